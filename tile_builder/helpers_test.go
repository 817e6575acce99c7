package tile_builder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// quadMesh returns a flat square of two triangles at height y.
func quadMesh(x0, z0, x1, z1, y float32) ([]float32, []int32) {
	verts := []float32{
		x0, y, z0,
		x0, y, z1,
		x1, y, z1,
		x1, y, z0,
	}
	return verts, []int32{0, 1, 2, 0, 2, 3}
}

// gridMesh returns an n x n grid of unit quads on the y=0 plane.
func gridMesh(n int) ([]float32, []int32) {
	var verts []float32
	var tris []int32
	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			verts = append(verts, float32(x), 0, float32(z))
		}
	}
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			i := int32(z*(n+1) + x)
			j := i + int32(n+1)
			tris = append(tris, i, j, j+1, i, j+1, i+1)
		}
	}
	return verts, tris
}

func newFlatGeom(t *testing.T) *InputGeom {
	t.Helper()
	verts, tris := quadMesh(0, 0, 20, 20, 0)
	geom, err := NewInputGeom(verts, tris, nil, 256)
	require.NoError(t, err)
	return geom
}

// testConfig covers the 20x20 quad with 3x3 tiles of 8 world units.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CellSize = 0.5
	cfg.CellHeight = 0.25
	cfg.AgentHeight = 1
	cfg.AgentRadius = 0.5
	cfg.AgentMaxClimb = 0.5
	cfg.RegionMinSize = 2
	cfg.RegionMergeSize = 10
	cfg.TileSize = 16
	cfg.ArenaSize = 8192
	cfg.Workers = 2
	return cfg
}
