package tile_builder

import (
	"fmt"
	"sync"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour"
	"github.com/tidwall/hashmap"
)

const (
	MAX_CONVEXVOL_PTS  = 16
	MAX_CONVEX_VOLUMES = 4096
)

// ConvexVolume is a footprint polygon extruded from Hmin to Hmax that
// overrides the area of everything inside it.
type ConvexVolume struct {
	Verts []common.Vec3
	Hmin  float32
	Hmax  float32
	Area  uint8
}

func (v *ConvexVolume) Bounds() (bmin, bmax common.Vec3) {
	bmin, bmax = common.PolyBounds(v.Verts)
	bmin[1] = v.Hmin
	bmax[1] = v.Hmax
	return bmin, bmax
}

// Contains reports whether p lies inside the footprint and the height range.
func (v *ConvexVolume) Contains(p common.Vec3) bool {
	if p[1] < v.Hmin || p[1] > v.Hmax {
		return false
	}
	return common.PointInPoly(v.Verts, p)
}

func (v *ConvexVolume) clone() ConvexVolume {
	c := *v
	c.Verts = append([]common.Vec3(nil), v.Verts...)
	return c
}

func (v *ConvexVolume) validate() error {
	if len(v.Verts) < 3 || len(v.Verts) > MAX_CONVEXVOL_PTS {
		return fmt.Errorf("convex volume: %d points: %w", len(v.Verts), common.ErrInvalidParam)
	}
	if !(v.Hmin <= v.Hmax) || int(v.Area) >= detour.DT_MAX_AREAS {
		return fmt.Errorf("convex volume: height %v..%v area %d: %w", v.Hmin, v.Hmax, v.Area, common.ErrInvalidParam)
	}
	for _, p := range v.Verts {
		if !common.IsFinite(p[0]) || !common.IsFinite(p[1]) || !common.IsFinite(p[2]) {
			return fmt.Errorf("convex volume: point %v: %w", p, common.ErrInvalidParam)
		}
	}
	return nil
}

type ConvexVolumeRef uint32

// InputGeom holds the static world mesh with its chunky index, the convex
// volumes and the flag table. The mesh never changes after construction;
// volumes and flags are guarded by a readers-writer lock.
type InputGeom struct {
	m_verts      []float32
	m_tris       []int32
	m_triAreas   []uint8
	m_chunkyMesh *ChunkyTriMesh
	m_meshBMin   common.Vec3
	m_meshBMax   common.Vec3

	mu              sync.RWMutex
	m_volumes       []ConvexVolume // registration order
	m_volumeRefs    []ConvexVolumeRef
	m_volumeIndex   hashmap.Map[ConvexVolumeRef, int]
	m_nextVolumeRef ConvexVolumeRef

	m_flags     []AreaFlag
	m_areaFlags [detour.DT_MAX_AREAS]uint16
}

// NewInputGeom indexes the mesh. triAreas may be nil; when given it holds an
// area id per triangle that replaces the walkable area of that triangle.
func NewInputGeom(verts []float32, tris []int32, triAreas []uint8, trisPerChunk int) (*InputGeom, error) {
	if len(verts) < 9 || len(verts)%3 != 0 {
		return nil, fmt.Errorf("input geom: %d vertex floats: %w", len(verts), common.ErrInvalidParam)
	}
	for _, v := range verts {
		if !common.IsFinite(v) {
			return nil, fmt.Errorf("input geom: vertex value %v: %w", v, common.ErrInvalidParam)
		}
	}
	if len(tris)%3 != 0 {
		return nil, fmt.Errorf("input geom: %d triangle indices: %w", len(tris), common.ErrInvalidParam)
	}
	if triAreas != nil && len(triAreas) != len(tris)/3 {
		return nil, fmt.Errorf("input geom: %d areas for %d triangles: %w", len(triAreas), len(tris)/3, common.ErrInvalidParam)
	}
	for i, area := range triAreas {
		if int(area) >= detour.DT_MAX_AREAS {
			return nil, fmt.Errorf("input geom: triangle %d area %d: %w", i, area, common.ErrInvalidParam)
		}
	}
	chunky, err := NewChunkyTriMesh(verts, tris, trisPerChunk)
	if err != nil {
		return nil, err
	}

	g := &InputGeom{
		m_verts:         verts,
		m_tris:          tris,
		m_triAreas:      triAreas,
		m_chunkyMesh:    chunky,
		m_nextVolumeRef: 1,
	}
	g.m_meshBMin, g.m_meshBMax = common.CalcBounds(verts)
	g.initFlags()
	return g, nil
}

func (g *InputGeom) GetVerts() []float32           { return g.m_verts }
func (g *InputGeom) GetTris() []int32              { return g.m_tris }
func (g *InputGeom) GetTriAreas() []uint8          { return g.m_triAreas }
func (g *InputGeom) GetChunkyMesh() *ChunkyTriMesh { return g.m_chunkyMesh }
func (g *InputGeom) GetMeshBoundsMin() common.Vec3 { return g.m_meshBMin }
func (g *InputGeom) GetMeshBoundsMax() common.Vec3 { return g.m_meshBMax }
func (g *InputGeom) GetTriCount() int              { return len(g.m_tris) / 3 }
func (g *InputGeom) GetVertCount() int             { return len(g.m_verts) / 3 }

// AddConvexVolume registers a copy of vol. Later volumes win where they
// overlap earlier ones.
func (g *InputGeom) AddConvexVolume(vol ConvexVolume) (ConvexVolumeRef, error) {
	if err := vol.validate(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.m_volumes) >= MAX_CONVEX_VOLUMES {
		return 0, fmt.Errorf("convex volume: %d registered: %w", len(g.m_volumes), common.ErrCapacityExceeded)
	}
	ref := g.m_nextVolumeRef
	g.m_nextVolumeRef++
	if g.m_nextVolumeRef == 0 {
		g.m_nextVolumeRef = 1
	}
	g.m_volumeIndex.Set(ref, len(g.m_volumes))
	g.m_volumes = append(g.m_volumes, vol.clone())
	g.m_volumeRefs = append(g.m_volumeRefs, ref)
	return ref, nil
}

func (g *InputGeom) RemoveConvexVolume(ref ConvexVolumeRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.m_volumeIndex.Delete(ref)
	if !ok {
		return fmt.Errorf("convex volume: unknown ref %d: %w", ref, common.ErrInvalidParam)
	}
	g.m_volumes = append(g.m_volumes[:i], g.m_volumes[i+1:]...)
	g.m_volumeRefs = append(g.m_volumeRefs[:i], g.m_volumeRefs[i+1:]...)
	for j := i; j < len(g.m_volumeRefs); j++ {
		g.m_volumeIndex.Set(g.m_volumeRefs[j], j)
	}
	return nil
}

func (g *InputGeom) GetConvexVolume(ref ConvexVolumeRef) (ConvexVolume, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.m_volumeIndex.Get(ref)
	if !ok {
		return ConvexVolume{}, false
	}
	return g.m_volumes[i].clone(), true
}

func (g *InputGeom) GetConvexVolumeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.m_volumes)
}

// ListVolumesOverlapping returns copies of the volumes whose bounds touch the
// box, in registration order.
func (g *InputGeom) ListVolumesOverlapping(bmin, bmax common.Vec3) []ConvexVolume {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var res []ConvexVolume
	for i := range g.m_volumes {
		vmin, vmax := g.m_volumes[i].Bounds()
		if common.OverlapBounds(bmin[:], bmax[:], vmin[:], vmax[:]) {
			res = append(res, g.m_volumes[i].clone())
		}
	}
	return res
}
