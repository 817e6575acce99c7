package tile_builder

import (
	"testing"

	"github.com/gorustyt/navtilecache/detour"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeQuads lays out three 4x4 quads along x, at x=0, x=6 and x=12.
func threeQuads() *detour.DtNavMeshCreateParams {
	params := &detour.DtNavMeshCreateParams{
		Nvp:       6,
		PolyCount: 3,
		Cs:        1,
		Ch:        1,
		Bmin:      [3]float32{0, 0, 0},
		Bmax:      [3]float32{16, 1, 4},
	}
	for q := 0; q < 3; q++ {
		x := uint16(q * 6)
		base := uint16(params.VertCount)
		params.Verts = append(params.Verts,
			x, 0, 0,
			x, 0, 4,
			x+4, 0, 4,
			x+4, 0, 0)
		params.VertCount += 4
		params.Polys = append(params.Polys, base, base+1, base+2, base+3,
			detour.DT_MESH_NULL_IDX, detour.DT_MESH_NULL_IDX)
	}
	return params
}

func TestMeshProcessAreas(t *testing.T) {
	geom := newFlatGeom(t)
	_, err := geom.AddConvexVolume(squareVolume(5, -1, 11, 5, SAMPLE_POLYAREA_WATER))
	require.NoError(t, err)
	_, err = geom.AddConvexVolume(squareVolume(11, -1, 17, 5, SAMPLE_POLYAREA_WATER))
	require.NoError(t, err)
	// Registered last, wins over the water on the third quad.
	_, err = geom.AddConvexVolume(squareVolume(13, 1, 15, 3, SAMPLE_POLYAREA_ROAD))
	require.NoError(t, err)

	params := threeQuads()
	areas := []uint8{detour_tile_cache.DT_TILECACHE_WALKABLE_AREA, detour_tile_cache.DT_TILECACHE_WALKABLE_AREA, SAMPLE_POLYAREA_GRASS}
	flags := make([]uint16, 3)
	NewMeshProcess(geom).Process(params, areas, flags)

	assert.Equal(t, []uint8{SAMPLE_POLYAREA_GROUND, SAMPLE_POLYAREA_WATER, SAMPLE_POLYAREA_ROAD}, areas)
	assert.Equal(t, []uint16{SAMPLE_POLYFLAGS_WALK, SAMPLE_POLYFLAGS_SWIM, SAMPLE_POLYFLAGS_WALK}, flags)
}

func TestMeshProcessVolumeHeight(t *testing.T) {
	geom := newFlatGeom(t)
	high := squareVolume(-1, -1, 20, 20, SAMPLE_POLYAREA_WATER)
	high.Hmin, high.Hmax = 5, 8
	_, err := geom.AddConvexVolume(high)
	require.NoError(t, err)

	params := threeQuads()
	areas := []uint8{detour_tile_cache.DT_TILECACHE_WALKABLE_AREA, SAMPLE_POLYAREA_DOOR, SAMPLE_POLYAREA_JUMP}
	flags := make([]uint16, 3)
	NewMeshProcess(geom).Process(params, areas, flags)

	assert.Equal(t, []uint8{SAMPLE_POLYAREA_GROUND, SAMPLE_POLYAREA_DOOR, SAMPLE_POLYAREA_JUMP}, areas)
	assert.Equal(t, []uint16{SAMPLE_POLYFLAGS_WALK, SAMPLE_POLYFLAGS_WALK | SAMPLE_POLYFLAGS_DOOR, SAMPLE_POLYFLAGS_JUMP}, flags)
}

func TestMeshProcessWithoutGeom(t *testing.T) {
	params := threeQuads()
	areas := []uint8{detour_tile_cache.DT_TILECACHE_WALKABLE_AREA, 7, 9}
	flags := []uint16{0, 0, 0}
	NewMeshProcess(nil).Process(params, areas, flags)
	assert.Equal(t, []uint8{SAMPLE_POLYAREA_GROUND, 7, 9}, areas)
	assert.Equal(t, []uint16{0, 0, 0}, flags)
}
