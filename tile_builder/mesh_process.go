package tile_builder

import (
	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
)

var _ detour_tile_cache.DtTileCacheMeshProcess = (*MeshProcess)(nil)

// MeshProcess assigns the final area and flags of every polygon of a tile
// before it is added to the navigation mesh.
type MeshProcess struct {
	m_geom *InputGeom
}

func NewMeshProcess(geom *InputGeom) *MeshProcess {
	return &MeshProcess{m_geom: geom}
}

func (p *MeshProcess) Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
	var vols []ConvexVolume
	if p.m_geom != nil {
		vols = p.m_geom.ListVolumesOverlapping(params.Bmin, params.Bmax)
	}

	for i := 0; i < params.PolyCount; i++ {
		area := polyAreas[i]
		if area == detour_tile_cache.DT_TILECACHE_WALKABLE_AREA {
			area = SAMPLE_POLYAREA_GROUND
		}

		if len(vols) > 0 {
			c, ok := polyCentroid(params, i)
			if ok {
				// Later volumes win.
				for j := len(vols) - 1; j >= 0; j-- {
					if vols[j].Contains(c) {
						area = vols[j].Area
						break
					}
				}
			}
		}

		polyAreas[i] = area
		if p.m_geom != nil {
			polyFlags[i] = p.m_geom.GetAreaFlags(area)
		}
	}
}

func polyCentroid(params *detour.DtNavMeshCreateParams, i int) (c common.Vec3, ok bool) {
	n := 0
	for _, vi := range params.PolyVerts(i) {
		if vi == detour.DT_MESH_NULL_IDX {
			break
		}
		v := params.VertWorld(int(vi))
		c = c.Add(v)
		n++
	}
	if n == 0 {
		return c, false
	}
	return c.Mul(1 / float32(n)), true
}
