package tile_builder

import (
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
	"github.com/gorustyt/navtilecache/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRasterizer(t *testing.T, geom *InputGeom, cfg Config) *TileRasterizer {
	t.Helper()
	require.NoError(t, cfg.Validate())
	comp, err := detour_tile_cache.NewCompressor(cfg.Compressor)
	require.NoError(t, err)
	return NewTileRasterizer(geom, cfg.RcConfig(geom.GetMeshBoundsMin(), geom.GetMeshBoundsMax()), comp)
}

// stackedFloors returns n 32x32 floors, 2 units apart.
func stackedFloors(t *testing.T, n int) *InputGeom {
	t.Helper()
	var verts []float32
	var tris []int32
	for k := 0; k < n; k++ {
		v, tr := quadMesh(0, 0, 32, 32, float32(2*k))
		base := int32(len(verts) / 3)
		for _, i := range tr {
			tris = append(tris, base+i)
		}
		verts = append(verts, v...)
	}
	geom, err := NewInputGeom(verts, tris, nil, 256)
	require.NoError(t, err)
	return geom
}

func stackedConfig() Config {
	cfg := DefaultConfig()
	cfg.CellSize = 1
	cfg.CellHeight = 0.5
	cfg.AgentHeight = 1
	cfg.AgentRadius = 0.5
	cfg.AgentMaxClimb = 0.5
	cfg.TileSize = 8
	cfg.ArenaSize = 4096
	return cfg
}

func TestTileBounds(t *testing.T) {
	r := newTestRasterizer(t, newFlatGeom(t), testConfig())
	bmin, bmax := r.TileBounds(1, 2)
	assert.Equal(t, common.Vec3{8, 0, 16}, bmin)
	assert.Equal(t, common.Vec3{16, 0, 24}, bmax)
}

func TestRasterizeFlatTile(t *testing.T) {
	cfg := testConfig()
	r := newTestRasterizer(t, newFlatGeom(t), cfg)
	alloc := NewLinearAllocator(cfg.ArenaSize)

	for ty := 0; ty < 3; ty++ {
		for tx := 0; tx < 3; tx++ {
			tiles, err := r.RasterizeTileLayers(tx, ty, alloc)
			require.NoError(t, err)
			require.Len(t, tiles, 1, "tile (%d,%d)", tx, ty)
			assert.Equal(t, 0, alloc.Top())

			header, err := detour_tile_cache.DecodeLayerHeader(tiles[0].Data)
			require.NoError(t, err)
			assert.Equal(t, int32(tx), header.Tx)
			assert.Equal(t, int32(ty), header.Ty)
			assert.Equal(t, int32(0), header.Tlayer)
			assert.Equal(t, uint8(cfg.TileSize), header.Width)
			bmin, _ := r.TileBounds(tx, ty)
			assert.InDelta(t, bmin[0], header.Bmin[0], 1e-4)
			assert.InDelta(t, bmin[2], header.Bmin[2], 1e-4)
		}
	}
	assert.Positive(t, alloc.High())
}

func TestRasterizeIsDeterministic(t *testing.T) {
	cfg := testConfig()
	r := newTestRasterizer(t, newFlatGeom(t), cfg)
	a, err := r.RasterizeTileLayers(1, 1, NewLinearAllocator(cfg.ArenaSize))
	require.NoError(t, err)
	b, err := r.RasterizeTileLayers(1, 1, NewLinearAllocator(cfg.ArenaSize))
	require.NoError(t, err)
	assert.Equal(t, digestsOf(a), digestsOf(b))
}

func TestRasterizeEmptyTile(t *testing.T) {
	cfg := testConfig()
	r := newTestRasterizer(t, newFlatGeom(t), cfg)
	tiles, err := r.RasterizeTileLayers(10, 10, NewLinearAllocator(cfg.ArenaSize))
	require.NoError(t, err)
	assert.Empty(t, tiles)
}

func TestRasterizeStackedFloors(t *testing.T) {
	cfg := stackedConfig()
	r := newTestRasterizer(t, stackedFloors(t, MAX_LAYERS), cfg)
	alloc := NewLinearAllocator(cfg.ArenaSize)
	tiles, err := r.RasterizeTileLayers(1, 1, alloc)
	require.NoError(t, err)
	require.Len(t, tiles, MAX_LAYERS)
	for i, tile := range tiles {
		header, err := detour_tile_cache.DecodeLayerHeader(tile.Data)
		require.NoError(t, err)
		assert.Equal(t, int32(i), header.Tlayer)
	}
}

func TestRasterizeTooManyLayers(t *testing.T) {
	cfg := stackedConfig()
	r := newTestRasterizer(t, stackedFloors(t, MAX_LAYERS+1), cfg)
	alloc := NewLinearAllocator(cfg.ArenaSize)
	tiles, err := r.RasterizeTileLayers(1, 1, alloc)
	assert.ErrorIs(t, err, common.ErrCapacityExceeded)
	assert.Nil(t, tiles)
	assert.Equal(t, 0, alloc.Top())
}

type failingErode struct {
	recast.DefaultBuilder
}

func (failingErode) ErodeWalkableArea(int, *recast.RcCompactHeightfield) bool { return false }

func TestRasterizeBuilderFailure(t *testing.T) {
	cfg := testConfig()
	r := newTestRasterizer(t, newFlatGeom(t), cfg)
	r.SetBuilder(failingErode{})
	alloc := NewLinearAllocator(cfg.ArenaSize)
	_, err := r.RasterizeTileLayers(0, 0, alloc)
	assert.ErrorIs(t, err, common.ErrAlgorithmFailure)
	assert.Equal(t, 0, alloc.Top())

	r.SetBuilder(nil)
	_, err = r.RasterizeTileLayers(0, 0, alloc)
	assert.NoError(t, err)
}

func TestRasterizeArenaTooSmall(t *testing.T) {
	cfg := testConfig()
	r := newTestRasterizer(t, newFlatGeom(t), cfg)
	_, err := r.RasterizeTileLayers(0, 0, NewLinearAllocator(1))
	assert.ErrorIs(t, err, common.ErrAllocationFailure)
}

func TestRasterizeWithoutGeom(t *testing.T) {
	r := NewTileRasterizer(nil, recast.RcConfig{}, detour_tile_cache.RawCompressor{})
	_, err := r.RasterizeTileLayers(0, 0, NewLinearAllocator(16))
	assert.ErrorIs(t, err, common.ErrInvalidParam)
}
