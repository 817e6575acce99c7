package tile_builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "navcache.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	cfg = testConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
cell_size: 0.5
tile_size: 32
compressor: zstd
workers: 3
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cfg.CellSize)
	assert.Equal(t, 32, cfg.TileSize)
	assert.Equal(t, detour_tile_cache.CompressorZstd, cfg.Compressor)
	assert.Equal(t, 3, cfg.Workers)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig().AgentHeight, cfg.AgentHeight)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "cell_sise: 0.5\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "compressor: lz4\n"))
	assert.ErrorIs(t, err, common.ErrInvalidParam)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"cell size":       func(c *Config) { c.CellSize = 0 },
		"agent height":    func(c *Config) { c.AgentHeight = -1 },
		"slope":           func(c *Config) { c.AgentMaxSlope = 90 },
		"verts per poly":  func(c *Config) { c.VertsPerPoly = 2 },
		"tile too large":  func(c *Config) { c.TileSize = 250 },
		"tile size":       func(c *Config) { c.TileSize = 0 },
		"layers":          func(c *Config) { c.ExpectedLayersPerTile = MAX_LAYERS + 1 },
		"obstacles":       func(c *Config) { c.MaxObstacles = -1 },
		"workers":         func(c *Config) { c.Workers = -2 },
		"arena too small": func(c *Config) { c.ArenaSize = 100 },
		"compressor":      func(c *Config) { c.Compressor = "gzip" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidParam, name)
	}
}

func TestRcConfig(t *testing.T) {
	cfg := testConfig()
	bmin, bmax := common.Vec3{0, 0, 0}, common.Vec3{20, 1, 20}
	rc := cfg.RcConfig(bmin, bmax)
	assert.Equal(t, 4, rc.WalkableHeight)
	assert.Equal(t, 2, rc.WalkableClimb)
	assert.Equal(t, 1, rc.WalkableRadius)
	assert.Equal(t, 4, rc.BorderSize)
	assert.Equal(t, 24, rc.Width)
	assert.Equal(t, 24, rc.Height)
	assert.Equal(t, 16, rc.TileSize)
	assert.Equal(t, 4, rc.MinRegionArea)
	assert.Equal(t, bmax, rc.Bmax)
}
