package tile_builder

import (
	"math"
	"sync"
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareVolume(x0, z0, x1, z1 float32, area uint8) ConvexVolume {
	return ConvexVolume{
		Verts: []common.Vec3{{x0, 0, z0}, {x1, 0, z0}, {x1, 0, z1}, {x0, 0, z1}},
		Hmin:  -1,
		Hmax:  2,
		Area:  area,
	}
}

func TestNewInputGeom(t *testing.T) {
	verts, tris := quadMesh(-2, 1, 6, 5, 3)
	geom, err := NewInputGeom(verts, tris, []uint8{SAMPLE_POLYAREA_GRASS, 0}, 16)
	require.NoError(t, err)
	assert.Equal(t, 4, geom.GetVertCount())
	assert.Equal(t, 2, geom.GetTriCount())
	assert.Equal(t, common.Vec3{-2, 3, 1}, geom.GetMeshBoundsMin())
	assert.Equal(t, common.Vec3{6, 3, 5}, geom.GetMeshBoundsMax())
	assert.NotNil(t, geom.GetChunkyMesh())

	cases := map[string]struct {
		verts    []float32
		tris     []int32
		triAreas []uint8
	}{
		"too few verts":   {verts: verts[:6], tris: tris},
		"ragged verts":    {verts: verts[:10], tris: tris},
		"ragged tris":     {verts: verts, tris: tris[:4]},
		"nan":             {verts: append([]float32{float32(math.NaN()), 0, 0}, verts...), tris: tris},
		"area count":      {verts: verts, tris: tris, triAreas: []uint8{1}},
		"area out of ids": {verts: verts, tris: tris, triAreas: []uint8{1, 64}},
		"bad index":       {verts: verts, tris: []int32{0, 1, 7}},
	}
	for name, c := range cases {
		_, err := NewInputGeom(c.verts, c.tris, c.triAreas, 16)
		assert.ErrorIs(t, err, common.ErrInvalidParam, name)
	}
}

func TestConvexVolumeContains(t *testing.T) {
	vol := squareVolume(0, 0, 4, 4, SAMPLE_POLYAREA_WATER)
	assert.True(t, vol.Contains(common.Vec3{2, 0, 2}))
	assert.False(t, vol.Contains(common.Vec3{5, 0, 2}))
	assert.False(t, vol.Contains(common.Vec3{2, 3, 2}))
	assert.False(t, vol.Contains(common.Vec3{2, -1.5, 2}))

	bmin, bmax := vol.Bounds()
	assert.Equal(t, common.Vec3{0, -1, 0}, bmin)
	assert.Equal(t, common.Vec3{4, 2, 4}, bmax)
}

func TestInputGeomVolumes(t *testing.T) {
	geom := newFlatGeom(t)

	vol := squareVolume(0, 0, 4, 4, SAMPLE_POLYAREA_WATER)
	r1, err := geom.AddConvexVolume(vol)
	require.NoError(t, err)
	r2, err := geom.AddConvexVolume(squareVolume(2, 2, 6, 6, SAMPLE_POLYAREA_ROAD))
	require.NoError(t, err)
	r3, err := geom.AddConvexVolume(squareVolume(10, 10, 12, 12, SAMPLE_POLYAREA_DOOR))
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
	assert.Equal(t, 3, geom.GetConvexVolumeCount())

	// The registry keeps its own copy.
	vol.Verts[0][0] = 100
	got, ok := geom.GetConvexVolume(r1)
	require.True(t, ok)
	assert.Equal(t, float32(0), got.Verts[0][0])

	hits := geom.ListVolumesOverlapping(common.Vec3{3, 0, 3}, common.Vec3{3.5, 1, 3.5})
	require.Len(t, hits, 2)
	assert.Equal(t, uint8(SAMPLE_POLYAREA_WATER), hits[0].Area)
	assert.Equal(t, uint8(SAMPLE_POLYAREA_ROAD), hits[1].Area)

	require.NoError(t, geom.RemoveConvexVolume(r1))
	assert.ErrorIs(t, geom.RemoveConvexVolume(r1), common.ErrInvalidParam)
	_, ok = geom.GetConvexVolume(r1)
	assert.False(t, ok)

	// Removing keeps the other refs valid.
	got, ok = geom.GetConvexVolume(r3)
	require.True(t, ok)
	assert.Equal(t, uint8(SAMPLE_POLYAREA_DOOR), got.Area)
	got, ok = geom.GetConvexVolume(r2)
	require.True(t, ok)
	assert.Equal(t, uint8(SAMPLE_POLYAREA_ROAD), got.Area)
	assert.Len(t, geom.ListVolumesOverlapping(common.Vec3{3, 0, 3}, common.Vec3{3.5, 1, 3.5}), 1)
}

func TestInputGeomVolumeValidation(t *testing.T) {
	geom := newFlatGeom(t)
	_, err := geom.AddConvexVolume(ConvexVolume{Verts: []common.Vec3{{0, 0, 0}, {1, 0, 0}}, Hmax: 1})
	assert.ErrorIs(t, err, common.ErrInvalidParam)

	many := squareVolume(0, 0, 1, 1, 0)
	for len(many.Verts) <= MAX_CONVEXVOL_PTS {
		many.Verts = append(many.Verts, common.Vec3{0.5, 0, 0.5})
	}
	_, err = geom.AddConvexVolume(many)
	assert.ErrorIs(t, err, common.ErrInvalidParam)

	inverted := squareVolume(0, 0, 1, 1, 0)
	inverted.Hmin, inverted.Hmax = 2, 1
	_, err = geom.AddConvexVolume(inverted)
	assert.ErrorIs(t, err, common.ErrInvalidParam)

	_, err = geom.AddConvexVolume(squareVolume(0, 0, 1, 1, 64))
	assert.ErrorIs(t, err, common.ErrInvalidParam)
	assert.Equal(t, 0, geom.GetConvexVolumeCount())
}

func TestInputGeomVolumeLimit(t *testing.T) {
	geom := newFlatGeom(t)
	vol := squareVolume(0, 0, 1, 1, SAMPLE_POLYAREA_GRASS)
	for i := 0; i < MAX_CONVEX_VOLUMES; i++ {
		_, err := geom.AddConvexVolume(vol)
		require.NoError(t, err)
	}
	_, err := geom.AddConvexVolume(vol)
	assert.ErrorIs(t, err, common.ErrCapacityExceeded)
	assert.Equal(t, MAX_CONVEX_VOLUMES, geom.GetConvexVolumeCount())
}

func TestInputGeomConcurrentVolumes(t *testing.T) {
	geom := newFlatGeom(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ref, err := geom.AddConvexVolume(squareVolume(float32(i), 0, float32(i+1), 1, 1))
				if !assert.NoError(t, err) {
					return
				}
				geom.ListVolumesOverlapping(common.Vec3{0, 0, 0}, common.Vec3{20, 1, 20})
				if j%2 == 0 {
					assert.NoError(t, geom.RemoveConvexVolume(ref))
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8*25, geom.GetConvexVolumeCount())
}
