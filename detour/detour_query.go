package detour

import (
	"github.com/gorustyt/navtilecache/common"
)

// / Defines polygon filtering and traversal costs for navigation mesh query operations.
type DtQueryFilter struct {
	m_areaCost     [DT_MAX_AREAS]float32 ///< Cost per area type. (Used by default implementation.)
	m_includeFlags uint16                ///< Flags for polygons that can be visited. (Used by default implementation.)
	m_excludeFlags uint16                ///< Flags for polygons that should not be visited. (Used by default implementation.)
}

func NewDtQueryFilter() *DtQueryFilter {
	filter := &DtQueryFilter{m_includeFlags: 0xffff}
	for i := range filter.m_areaCost {
		filter.m_areaCost[i] = 1.0
	}
	return filter
}

// / Returns true if the polygon can be visited.  (I.e. Is traversable.)
// /  @param[in]		poly	The polygon to test.
func (filter *DtQueryFilter) PassFilter(poly *DtPoly) bool {
	return (poly.Flags&filter.m_includeFlags) != 0 && (poly.Flags&filter.m_excludeFlags) == 0
}

// / Returns the traversal cost of the area.
func (filter *DtQueryFilter) GetAreaCost(i int) float32 { return filter.m_areaCost[i] }

// / Sets the traversal cost of the area.
func (filter *DtQueryFilter) SetAreaCost(i int, cost float32) { filter.m_areaCost[i] = cost }

func (filter *DtQueryFilter) GetIncludeFlags() uint16 { return filter.m_includeFlags }

func (filter *DtQueryFilter) SetIncludeFlags(flags uint16) { filter.m_includeFlags = flags }

func (filter *DtQueryFilter) GetExcludeFlags() uint16 { return filter.m_excludeFlags }

func (filter *DtQueryFilter) SetExcludeFlags(flags uint16) { filter.m_excludeFlags = flags }

// PolyHit describes the polygon found under a query point.
type PolyHit struct {
	Ref    DtPolyRef
	Area   uint8
	Flags  uint16
	Height float32 // Polygon centroid height.
}

// FindPolyAt returns the polygon whose footprint contains pos and whose
// centroid height is closest to it. The filter may be nil.
func (mesh *DtNavMesh) FindPolyAt(pos common.Vec3, filter *DtQueryFilter) (hit PolyHit, status DtStatus) {
	tx, ty := mesh.CalcTileLoc(pos)
	bestDist := float32(-1)
	for _, tile := range mesh.GetTilesAt(tx, ty) {
		it := uint32(mesh.getTileIndex(tile))
		for ip, poly := range tile.Polys {
			if filter != nil && !filter.PassFilter(poly) {
				continue
			}
			if !common.PointInPoly(poly.Footprint(tile.Verts), pos) {
				continue
			}
			c := poly.Centroid(tile.Verts)
			d := common.Abs(c[1] - pos[1])
			if bestDist >= 0 && d >= bestDist {
				continue
			}
			bestDist = d
			hit = PolyHit{
				Ref:    mesh.EncodePolyId(tile.salt, it, uint32(ip)),
				Area:   poly.Area,
				Flags:  poly.Flags,
				Height: c[1],
			}
		}
	}
	if bestDist < 0 {
		return hit, DT_FAILURE
	}
	return hit, DT_SUCCESS
}
