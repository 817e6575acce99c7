package detour_tile_cache

import (
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatLayer(w, h int) *DtTileCacheLayer {
	heights, areas, cons := flatGrids(w, h)
	regs := make([]uint8, w*h)
	return &DtTileCacheLayer{
		Header:  testLayerHeader(0, 0, 0, w, h),
		Heights: heights,
		Areas:   areas,
		Cons:    cons,
		Regs:    regs,
	}
}

// coveredCells sums the cell area of every quad in the mesh.
func coveredCells(mesh *DtTileCachePolyMesh) int {
	n := 0
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*mesh.Nvp:]
		v0 := mesh.Verts[int(p[0])*3:]
		v2 := mesh.Verts[int(p[2])*3:]
		n += int(v2[0]-v0[0]) * int(v2[2]-v0[2])
	}
	return n
}

func countArea(layer *DtTileCacheLayer, area uint8) int {
	n := 0
	for _, a := range layer.Areas {
		if a == area {
			n++
		}
	}
	return n
}

func TestBuildPolyMeshFlat(t *testing.T) {
	layer := flatLayer(4, 3)
	mesh, err := DefaultMeshBuilder{}.BuildPolyMesh(layer, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, layer.RegCount)
	require.Equal(t, 1, mesh.Npolys)
	assert.Equal(t, 4, mesh.Nverts)
	assert.Equal(t, []uint16{
		0, 0, 0,
		0, 0, 3,
		4, 0, 3,
		4, 0, 0,
	}, mesh.Verts)
	assert.Equal(t, []uint16{0, 1, 2, 3, DT_TILECACHE_NULL_IDX, DT_TILECACHE_NULL_IDX}, mesh.Polys)
	assert.Equal(t, []uint8{DT_TILECACHE_WALKABLE_AREA}, mesh.Areas)
}

func TestBuildPolyMeshAreasSplitRegions(t *testing.T) {
	layer := flatLayer(4, 3)
	for z := 0; z < 3; z++ {
		for x := 2; x < 4; x++ {
			layer.Areas[x+z*4] = 5
		}
	}
	mesh, err := DefaultMeshBuilder{}.BuildPolyMesh(layer, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, layer.RegCount)
	assert.Equal(t, 2, mesh.Npolys)
	assert.Equal(t, 6, mesh.Nverts, "shared edge vertices are merged")
	assert.ElementsMatch(t, []uint8{DT_TILECACHE_WALKABLE_AREA, 5}, mesh.Areas)
}

func TestBuildPolyMeshHole(t *testing.T) {
	layer := flatLayer(3, 3)
	layer.Areas[4] = DT_TILECACHE_NULL_AREA
	mesh, err := DefaultMeshBuilder{}.BuildPolyMesh(layer, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, layer.RegCount)
	assert.Equal(t, 4, mesh.Npolys)
	assert.Equal(t, 8, coveredCells(mesh))
	assert.EqualValues(t, 0xff, layer.Regs[4])
}

func TestBuildPolyMeshClimb(t *testing.T) {
	layer := flatLayer(4, 1)
	layer.Heights[2] = 5
	layer.Heights[3] = 5
	mesh, err := DefaultMeshBuilder{}.BuildPolyMesh(layer, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, layer.RegCount)
	assert.Equal(t, 2, mesh.Npolys)

	mesh, err = DefaultMeshBuilder{}.BuildPolyMesh(layer, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, layer.RegCount)
	assert.Equal(t, 1, mesh.Npolys)
}

func TestBuildRegionsTooMany(t *testing.T) {
	layer := flatLayer(32, 16)
	for i := range layer.Areas {
		layer.Areas[i] = uint8(1 + i%2 + (i/32)%2)
	}
	err := DtBuildTileCacheRegions(layer, 1)
	assert.ErrorIs(t, err, common.ErrCapacityExceeded)
}

func TestMarkBoxArea(t *testing.T) {
	layer := flatLayer(10, 10)
	DtMarkBoxArea(layer, [3]float32{}, 1, 1, common.Vec3{2, 0, 2}, common.Vec3{4, 1, 4}, DT_TILECACHE_NULL_AREA)
	assert.Equal(t, 9, countArea(layer, DT_TILECACHE_NULL_AREA))

	layer = flatLayer(10, 10)
	DtMarkBoxArea(layer, [3]float32{}, 1, 1, common.Vec3{2, 5, 2}, common.Vec3{4, 6, 4}, DT_TILECACHE_NULL_AREA)
	assert.Equal(t, 0, countArea(layer, DT_TILECACHE_NULL_AREA), "box above the floor")

	layer = flatLayer(10, 10)
	DtMarkBoxArea(layer, [3]float32{}, 1, 1, common.Vec3{20, 0, 20}, common.Vec3{24, 1, 24}, DT_TILECACHE_NULL_AREA)
	assert.Equal(t, 0, countArea(layer, DT_TILECACHE_NULL_AREA), "box outside the layer")
}

func TestMarkCylinderArea(t *testing.T) {
	layer := flatLayer(10, 10)
	DtMarkCylinderArea(layer, [3]float32{}, 1, 1, common.Vec3{5, 0, 5}, 1, 2, DT_TILECACHE_NULL_AREA)
	assert.Equal(t, 4, countArea(layer, DT_TILECACHE_NULL_AREA))
	for _, idx := range []int{44, 45, 54, 55} {
		assert.EqualValues(t, DT_TILECACHE_NULL_AREA, layer.Areas[idx])
	}
}

func TestMarkOrientedBoxArea(t *testing.T) {
	layer := flatLayer(10, 10)
	rotAux := [2]float32{0, 0.5} // no rotation
	DtMarkOrientedBoxArea(layer, [3]float32{}, 1, 1, common.Vec3{5, 0, 5}, common.Vec3{1, 1, 1}, rotAux, 7)
	assert.Equal(t, 9, countArea(layer, 7))
}

func TestMarkConvexArea(t *testing.T) {
	layer := flatLayer(10, 10)
	square := []common.Vec3{{1, 0, 1}, {1, 0, 3}, {3, 0, 3}, {3, 0, 1}}
	DtMarkConvexArea(layer, [3]float32{}, 1, 1, square, -1, 1, 9)
	assert.Equal(t, 4, countArea(layer, 9))
	for _, idx := range []int{11, 12, 21, 22} {
		assert.EqualValues(t, 9, layer.Areas[idx])
	}

	layer = flatLayer(10, 10)
	DtMarkConvexArea(layer, [3]float32{}, 1, 1, square, 3, 4, 9)
	assert.Equal(t, 0, countArea(layer, 9))
}
