package tile_builder

import (
	"fmt"
	"math"
	"os"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/logger"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
	"github.com/gorustyt/navtilecache/recast"
	"gopkg.in/yaml.v3"
)

// Config holds the build settings, in world units unless noted.
type Config struct {
	CellSize              float32 `yaml:"cell_size"`
	CellHeight            float32 `yaml:"cell_height"`
	AgentHeight           float32 `yaml:"agent_height"`
	AgentRadius           float32 `yaml:"agent_radius"`
	AgentMaxClimb         float32 `yaml:"agent_max_climb"`
	AgentMaxSlope         float32 `yaml:"agent_max_slope"` // degrees
	RegionMinSize         float32 `yaml:"region_min_size"`
	RegionMergeSize       float32 `yaml:"region_merge_size"`
	EdgeMaxLen            float32 `yaml:"edge_max_len"`
	EdgeMaxError          float32 `yaml:"edge_max_error"`
	VertsPerPoly          int     `yaml:"verts_per_poly"`
	TileSize              int     `yaml:"tile_size"` // cells
	ExpectedLayersPerTile int     `yaml:"expected_layers_per_tile"`
	MaxObstacles          int     `yaml:"max_obstacles"`
	Compressor            string  `yaml:"compressor"` // s2, snappy, zstd, raw
	ArenaSize             int     `yaml:"arena_size"` // bytes per build worker
	TrisPerChunk          int     `yaml:"tris_per_chunk"`
	Workers               int     `yaml:"workers"` // 0 uses GOMAXPROCS

	Log logger.Options `yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		CellSize:              0.3,
		CellHeight:            0.2,
		AgentHeight:           2.0,
		AgentRadius:           0.6,
		AgentMaxClimb:         0.9,
		AgentMaxSlope:         45,
		RegionMinSize:         8,
		RegionMergeSize:       20,
		EdgeMaxLen:            12,
		EdgeMaxError:          1.3,
		VertsPerPoly:          6,
		TileSize:              48,
		ExpectedLayersPerTile: 4,
		MaxObstacles:          128,
		Compressor:            detour_tile_cache.CompressorS2,
		ArenaSize:             32000,
		TrisPerChunk:          256,
		Log:                   logger.DefaultOptions(),
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("config: "+format+": %w", append(args, common.ErrInvalidParam)...)
	}
	if !(c.CellSize > 0) || !(c.CellHeight > 0) {
		return bad("cell size %v, cell height %v", c.CellSize, c.CellHeight)
	}
	if !(c.AgentHeight > 0) || c.AgentRadius < 0 || c.AgentMaxClimb < 0 {
		return bad("agent height %v, radius %v, climb %v", c.AgentHeight, c.AgentRadius, c.AgentMaxClimb)
	}
	if c.AgentMaxSlope < 0 || c.AgentMaxSlope >= 90 {
		return bad("agent max slope %v", c.AgentMaxSlope)
	}
	if c.VertsPerPoly < 3 {
		return bad("verts per poly %d", c.VertsPerPoly)
	}
	// Layer headers store the grid size in a byte.
	if border := c.borderSize(); c.TileSize <= 0 || c.TileSize+2*border > 255 {
		return bad("tile size %d with border %d", c.TileSize, border)
	}
	if c.ExpectedLayersPerTile <= 0 || c.ExpectedLayersPerTile > MAX_LAYERS {
		return bad("expected layers per tile %d", c.ExpectedLayersPerTile)
	}
	if c.MaxObstacles < 0 || c.MaxObstacles > 0xffff {
		return bad("max obstacles %d", c.MaxObstacles)
	}
	if c.TrisPerChunk <= 0 || c.Workers < 0 {
		return bad("tris per chunk %d, workers %d", c.TrisPerChunk, c.Workers)
	}
	// The arena must hold one decompressed layer.
	if gw := c.TileSize + 2*c.borderSize(); c.ArenaSize < gw*gw*4 {
		return bad("arena size %d below %d", c.ArenaSize, gw*gw*4)
	}
	switch c.Compressor {
	case detour_tile_cache.CompressorS2, detour_tile_cache.CompressorSnappy,
		detour_tile_cache.CompressorZstd, detour_tile_cache.CompressorRaw:
	default:
		return bad("compressor %q", c.Compressor)
	}
	return nil
}

func (c *Config) walkableRadius() int {
	return int(math.Ceil(float64(c.AgentRadius / c.CellSize)))
}

func (c *Config) borderSize() int {
	return c.walkableRadius() + 3 // Reserve enough padding.
}

// RcConfig converts the settings into voxel units for a build over the given
// bounds.
func (c *Config) RcConfig(bmin, bmax common.Vec3) recast.RcConfig {
	var cfg recast.RcConfig
	cfg.Cs = c.CellSize
	cfg.Ch = c.CellHeight
	cfg.WalkableSlopeAngle = c.AgentMaxSlope
	cfg.WalkableHeight = int(math.Ceil(float64(c.AgentHeight / cfg.Ch)))
	cfg.WalkableClimb = int(math.Floor(float64(c.AgentMaxClimb / cfg.Ch)))
	cfg.WalkableRadius = c.walkableRadius()
	cfg.MaxEdgeLen = int(c.EdgeMaxLen / c.CellSize)
	cfg.MaxSimplificationError = c.EdgeMaxError
	cfg.MinRegionArea = int(common.Sqr(c.RegionMinSize))     // Note: area = size*size
	cfg.MergeRegionArea = int(common.Sqr(c.RegionMergeSize)) // Note: area = size*size
	cfg.MaxVertsPerPoly = c.VertsPerPoly
	cfg.TileSize = c.TileSize
	cfg.BorderSize = c.borderSize()
	cfg.Width = cfg.TileSize + cfg.BorderSize*2
	cfg.Height = cfg.TileSize + cfg.BorderSize*2
	cfg.Bmin = bmin
	cfg.Bmax = bmax
	return cfg
}
