package recast

import (
	"math"

	"github.com/gorustyt/navtilecache/common"
)

// / Specifies a configuration to use when performing Recast builds.
// / @ingroup recast
type RcConfig struct {
	/// The width of the field along the x-axis. [Limit: >= 0] [Units: vx]
	Width int

	/// The height of the field along the z-axis. [Limit: >= 0] [Units: vx]
	Height int

	/// The width/height size of tile's on the xz-plane. [Limit: >= 0] [Units: vx]
	TileSize int

	/// The size of the non-navigable border around the heightfield. [Limit: >=0] [Units: vx]
	BorderSize int

	/// The xz-plane cell size to use for fields. [Limit: > 0] [Units: wu]
	Cs float32

	/// The y-axis cell size to use for fields. [Limit: > 0] [Units: wu]
	Ch float32

	/// The minimum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmin common.Vec3

	/// The maximum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmax common.Vec3

	/// The maximum slope that is considered walkable. [Limits: 0 <= value < 90] [Units: Degrees]
	WalkableSlopeAngle float32

	/// Minimum floor to 'ceiling' height that will still allow the floor area to
	/// be considered walkable. [Limit: >= 3] [Units: vx]
	WalkableHeight int

	/// Maximum ledge height that is considered to still be traversable. [Limit: >=0] [Units: vx]
	WalkableClimb int

	/// The distance to erode/shrink the walkable area of the heightfield away from
	/// obstructions.  [Limit: >=0] [Units: vx]
	WalkableRadius int

	/// The maximum allowed length for contour edges along the border of the mesh. [Limit: >=0] [Units: vx]
	MaxEdgeLen int

	/// The maximum distance a simplified contour's border edges should deviate
	/// the original raw contour. [Limit: >=0] [Units: vx]
	MaxSimplificationError float32

	/// The minimum number of cells allowed to form isolated island areas. [Limit: >=0] [Units: vx]
	MinRegionArea int

	/// Any regions with a span count smaller than this value will, if possible,
	/// be merged with larger regions. [Limit: >=0] [Units: vx]
	MergeRegionArea int

	/// The maximum number of vertices allowed for polygons generated during the
	/// contour to polygon conversion process. [Limit: >= 3]
	MaxVertsPerPoly int
}

const (
	// / The default area id used to indicate a walkable polygon.
	// / This is also the maximum allowed area id, and the only non-null area id
	// / recognized by some steps in the build process.
	RC_WALKABLE_AREA = 63

	// / Represents the null area.
	// / When a data element is given this value it is considered to no longer be
	// / assigned to a usable area.  (E.g. It is un-walkable.)
	RC_NULL_AREA = 0
)

func RcCalcGridSize(minBounds, maxBounds common.Vec3, cellSize float32) (sizeX, sizeZ int) {
	sizeX = int((maxBounds[0]-minBounds[0])/cellSize + 0.5)
	sizeZ = int((maxBounds[2]-minBounds[2])/cellSize + 0.5)
	return sizeX, sizeZ
}

func calcTriNormal(v0, v1, v2 common.Vec3) common.Vec3 {
	e0 := v1.Sub(v0)
	e1 := v2.Sub(v0)
	n := e0.Cross(e1)
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}

// / Sets the area id of all triangles with a slope below the specified value
// / to #RC_WALKABLE_AREA.
// / Only sets the area id's for the walkable triangles.  Does not alter the
// / area id's for un-walkable triangles.
func RcMarkWalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int32, triAreaIDs []uint8) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	numTris := len(tris) / 3
	for i := 0; i < numTris; i++ {
		norm := calcTriNormal(
			common.ToVec3(verts, tris[i*3+0]),
			common.ToVec3(verts, tris[i*3+1]),
			common.ToVec3(verts, tris[i*3+2]))
		// Check if the face is walkable.
		if norm[1] > walkableThr {
			triAreaIDs[i] = RC_WALKABLE_AREA
		}
	}
}

// / Sets the area id of all triangles with a slope greater than or equal to the specified value to #RC_NULL_AREA.
func RcClearUnwalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int32, triAreaIDs []uint8) {
	// The minimum Y value for a face normal of a triangle with a walkable slope.
	walkableLimitY := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	numTris := len(tris) / 3
	for i := 0; i < numTris; i++ {
		faceNormal := calcTriNormal(
			common.ToVec3(verts, tris[i*3+0]),
			common.ToVec3(verts, tris[i*3+1]),
			common.ToVec3(verts, tris[i*3+2]))
		if faceNormal[1] <= walkableLimitY {
			triAreaIDs[i] = RC_NULL_AREA
		}
	}
}

func RcCreateHeightfield(sizeX, sizeZ int, minBounds, maxBounds common.Vec3, cellSize, cellHeight float32) *RcHeightfield {
	return &RcHeightfield{
		Width:  sizeX,
		Height: sizeZ,
		Bmin:   minBounds,
		Bmax:   maxBounds,
		Cs:     cellSize,
		Ch:     cellHeight,
		Spans:  make([]*RcSpan, sizeX*sizeZ),
	}
}

// Builder runs the voxelization steps of a tile build. DefaultBuilder is the
// in-package implementation; callers may swap in their own.
type Builder interface {
	RasterizeTriangles(verts []float32, tris []int32, triAreaIDs []uint8, hf *RcHeightfield, flagMergeThreshold int) bool
	FilterHeightfield(cfg *RcConfig, hf *RcHeightfield)
	BuildCompactHeightfield(walkableHeight, walkableClimb int, hf *RcHeightfield) (*RcCompactHeightfield, bool)
	ErodeWalkableArea(radius int, chf *RcCompactHeightfield) bool
	BuildHeightfieldLayers(chf *RcCompactHeightfield, borderSize, walkableHeight, walkableClimb int) (*RcHeightfieldLayerSet, bool)
}

type DefaultBuilder struct{}

func (DefaultBuilder) RasterizeTriangles(verts []float32, tris []int32, triAreaIDs []uint8, hf *RcHeightfield, flagMergeThreshold int) bool {
	return RcRasterizeTriangles(verts, tris, triAreaIDs, hf, flagMergeThreshold)
}

func (DefaultBuilder) FilterHeightfield(cfg *RcConfig, hf *RcHeightfield) {
	RcFilterLowHangingWalkableObstacles(cfg.WalkableClimb, hf)
	RcFilterLedgeSpans(cfg.WalkableHeight, cfg.WalkableClimb, hf)
	RcFilterWalkableLowHeightSpans(cfg.WalkableHeight, hf)
}

func (DefaultBuilder) BuildCompactHeightfield(walkableHeight, walkableClimb int, hf *RcHeightfield) (*RcCompactHeightfield, bool) {
	chf := &RcCompactHeightfield{}
	return chf, RcBuildCompactHeightfield(walkableHeight, walkableClimb, hf, chf)
}

func (DefaultBuilder) ErodeWalkableArea(radius int, chf *RcCompactHeightfield) bool {
	return RcErodeWalkableArea(radius, chf)
}

func (DefaultBuilder) BuildHeightfieldLayers(chf *RcCompactHeightfield, borderSize, walkableHeight, walkableClimb int) (*RcHeightfieldLayerSet, bool) {
	lset := &RcHeightfieldLayerSet{}
	return lset, RcBuildHeightfieldLayers(chf, borderSize, walkableHeight, walkableClimb, lset)
}
