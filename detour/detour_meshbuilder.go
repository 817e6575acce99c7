package detour

// Represents the source data used to build an navigation mesh tile.
type DtNavMeshCreateParams struct {

	/// @name Polygon Mesh Attributes
	/// Used to create the base navigation graph.
	/// @{

	Verts     []uint16 ///< The polygon mesh vertices. [(x, y, z) * #VertCount] [Unit: vx]
	VertCount int      ///< The number vertices in the polygon mesh. [Limit: >= 3]
	Polys     []uint16 ///< The polygon data. [Size: #PolyCount * #Nvp]
	PolyFlags []uint16 ///< The user defined flags assigned to each polygon. [Size: #PolyCount]
	PolyAreas []uint8  ///< The user defined area ids assigned to each polygon. [Size: #PolyCount]
	PolyCount int      ///< Number of polygons in the mesh. [Limit: >= 1]
	Nvp       int      ///< Number maximum number of vertices per polygon. [Limit: >= 3]

	/// @}
	/// @name Tile Attributes
	/// @{

	TileX     int32      ///< The tile's x-grid location within the multi-tile destination mesh. (Along the x-axis.)
	TileY     int32      ///< The tile's y-grid location within the multi-tile destination mesh. (Along the z-axis.)
	TileLayer int32      ///< The tile's layer within the layered destination mesh. [Limit: >= 0] (Along the y-axis.)
	Bmin      [3]float32 ///< The minimum bounds of the tile. [(x, y, z)] [Unit: wu]
	Bmax      [3]float32 ///< The maximum bounds of the tile. [(x, y, z)] [Unit: wu]

	/// @}
	/// @name General Configuration Attributes
	/// @{

	WalkableHeight float32 ///< The agent height. [Unit: wu]
	WalkableRadius float32 ///< The agent radius. [Unit: wu]
	WalkableClimb  float32 ///< The agent maximum traversable ledge. (Up/Down) [Unit: wu]
	Cs             float32 ///< The xz-plane cell size of the polygon mesh. [Limit: > 0] [Unit: wu]
	Ch             float32 ///< The y-axis cell height of the polygon mesh. [Limit: > 0] [Unit: wu]

	/// True if a bounding volume tree should be built for the tile.
	/// @note The BVTree is not normally needed for layered navigation meshes.
	BuildBvTree bool

	/// @}
}

// PolyVerts returns the vertex slots of polygon i, including unused ones.
func (params *DtNavMeshCreateParams) PolyVerts(i int) []uint16 {
	return params.Polys[i*params.Nvp : (i+1)*params.Nvp]
}

// VertWorld converts vertex i from cell units into world space.
func (params *DtNavMeshCreateParams) VertWorld(i int) [3]float32 {
	iv := params.Verts[i*3 : i*3+3]
	return [3]float32{
		params.Bmin[0] + float32(iv[0])*params.Cs,
		params.Bmin[1] + float32(iv[1])*params.Ch,
		params.Bmin[2] + float32(iv[2])*params.Cs,
	}
}

// / Builds navigation mesh tile data from the provided tile creation data.
// /  @param[in]		params		Tile creation data.
// / @return The tile data and the status flags for the operation.
func DtCreateNavMeshData(params *DtNavMeshCreateParams) (*NavMeshData, DtStatus) {
	if params.Nvp < 3 || params.Nvp > DT_VERTS_PER_POLYGON {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if params.VertCount >= 0xffff {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if params.VertCount == 0 || len(params.Verts) < params.VertCount*3 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if params.PolyCount == 0 || len(params.Polys) < params.PolyCount*params.Nvp {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if len(params.PolyAreas) < params.PolyCount || len(params.PolyFlags) < params.PolyCount {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	header := &DtMeshHeader{
		Magic:          DT_NAVMESH_MAGIC,
		Version:        DT_NAVMESH_VERSION,
		X:              params.TileX,
		Y:              params.TileY,
		Layer:          params.TileLayer,
		PolyCount:      int32(params.PolyCount),
		VertCount:      int32(params.VertCount),
		WalkableHeight: params.WalkableHeight,
		WalkableRadius: params.WalkableRadius,
		WalkableClimb:  params.WalkableClimb,
		Bmin:           params.Bmin,
		Bmax:           params.Bmax,
	}

	// Store vertices
	navVerts := make([]float32, params.VertCount*3)
	for i := 0; i < params.VertCount; i++ {
		v := params.VertWorld(i)
		copy(navVerts[i*3:i*3+3], v[:])
	}

	// Store polygons
	navPolys := make([]*DtPoly, params.PolyCount)
	for i := 0; i < params.PolyCount; i++ {
		p := &DtPoly{
			Flags: params.PolyFlags[i],
			Area:  params.PolyAreas[i],
		}
		for j, vi := range params.PolyVerts(i) {
			if vi == DT_MESH_NULL_IDX {
				break
			}
			if int(vi) >= params.VertCount {
				return nil, DT_FAILURE | DT_INVALID_PARAM
			}
			p.Verts[j] = vi
			p.VertCount++
		}
		navPolys[i] = p
	}

	return &NavMeshData{Header: header, NavVerts: navVerts, NavPolys: navPolys}, DT_SUCCESS
}
