package detour

import "github.com/gorustyt/navtilecache/common"

const (
	// The maximum number of vertices per navigation polygon.
	DT_VERTS_PER_POLYGON = 6

	// A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'

	// A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7

	// The maximum number of user defined area ids.
	DT_MAX_AREAS = 64

	// Marks a vertex slot of a polygon as unused.
	DT_MESH_NULL_IDX = 0xffff
)

// Tile flags used for various functions and fields.
const (
	// The navigation mesh owns the tile memory and is responsible for freeing it.
	DT_TILE_FREE_DATA = 0x01
)

// A handle to a tile within a navigation mesh.
type DtTileRef uint32

// A handle to a polygon within a navigation mesh tile.
type DtPolyRef uint32

// Configuration parameters used to define multi-tile navigation meshes.
type NavMeshParams struct {
	Orig       [3]float32 ///< The world space origin of the navigation mesh's tile space. [(x, y, z)]
	TileWidth  float32    ///< The width of each tile. (Along the x-axis.)
	TileHeight float32    ///< The height of each tile. (Along the z-axis.)
	MaxTiles   int32      ///< The maximum number of tiles the navigation mesh can contain.
	MaxPolys   int32      ///< The maximum number of polygons each tile can contain.
}

// Largest tile count a navigation mesh accepts.
const DT_MAX_TILES = 1 << 16

func (params *NavMeshParams) idBits() (tileBits, polyBits uint32) {
	tileBits = common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	polyBits = common.Ilog2(common.NextPow2(uint32(params.MaxPolys)))
	return tileBits, polyBits
}

// Valid reports whether the parameters describe a mesh whose refs keep at
// least 10 salt bits.
func (params *NavMeshParams) Valid() bool {
	if params == nil || params.MaxTiles <= 0 || params.MaxTiles > DT_MAX_TILES || params.MaxPolys <= 0 {
		return false
	}
	if !(params.TileWidth > 0) || !(params.TileHeight > 0) ||
		!common.IsFinite(params.TileWidth) || !common.IsFinite(params.TileHeight) {
		return false
	}
	for _, v := range params.Orig {
		if !common.IsFinite(v) {
			return false
		}
	}
	tileBits, polyBits := params.idBits()
	return tileBits+polyBits <= 22
}

// Provides high level information related to a tile.
type DtMeshHeader struct {
	Magic          int32
	Version        int32
	X, Y, Layer    int32
	PolyCount      int32
	VertCount      int32
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Bmin, Bmax     [3]float32
}

// Defines a polygon within a tile.
type DtPoly struct {
	Verts     [DT_VERTS_PER_POLYGON]uint16 ///< Indices into the tile vertex array.
	VertCount uint8
	Flags     uint16 ///< The user defined polygon flags.
	Area      uint8  ///< The user defined area id.
}

func (p *DtPoly) GetArea() uint8 { return p.Area }

// Centroid returns the average of the polygon vertices.
func (p *DtPoly) Centroid(verts []float32) common.Vec3 {
	var c common.Vec3
	if p.VertCount == 0 {
		return c
	}
	for i := 0; i < int(p.VertCount); i++ {
		c = c.Add(common.ToVec3(verts, p.Verts[i]))
	}
	return c.Mul(1.0 / float32(p.VertCount))
}

// Footprint returns the polygon vertices in world space.
func (p *DtPoly) Footprint(verts []float32) []common.Vec3 {
	res := make([]common.Vec3, p.VertCount)
	for i := range res {
		res[i] = common.ToVec3(verts, p.Verts[i])
	}
	return res
}

// NavMeshData is the tile payload accepted by DtNavMesh.AddTile.
type NavMeshData struct {
	Header   *DtMeshHeader
	NavVerts []float32
	NavPolys []*DtPoly
}

// A navigation mesh tile.
type DtMeshTile struct {
	salt   uint32 ///< Counter describing modifications to the tile.
	Header *DtMeshHeader
	Verts  []float32
	Polys  []*DtPoly
	Data   *NavMeshData
	Flags  int
	next   *DtMeshTile
}

// IDtNavMesh is the part of the navigation mesh the tile cache writes to.
type IDtNavMesh interface {
	/// Adds a tile to the navigation mesh.
	///  @param[in]		data		Data for the new tile mesh. (See: #DtCreateNavMeshData)
	///  @param[in]		flags		Tile flags. (See: #dtTileFlags)
	///  @param[in]		lastRef		The desired reference for the tile. (When reloading a tile.) [opt] [Default: 0]
	AddTile(data *NavMeshData, flags int, lastRef DtTileRef) (DtTileRef, DtStatus)
	/// Removes the specified tile from the navigation mesh.
	RemoveTile(ref DtTileRef) (*NavMeshData, DtStatus)
	/// Gets the tile reference for the tile at specified grid location.
	GetTileRefAt(x, y, layer int32) DtTileRef
}
