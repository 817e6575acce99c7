package detour

import (
	"math"

	"github.com/gorustyt/navtilecache/common"
)

// DtNavMesh stores the built polygon tiles keyed by tile grid location and
// layer. It is the runtime structure the tile cache feeds.
type DtNavMesh struct {
	m_params                  NavMeshParams
	m_orig                    [3]float32
	m_tileWidth, m_tileHeight float32
	m_maxTiles                int32
	m_tileLutSize             int32
	m_tileLutMask             int32

	m_posLookup []*DtMeshTile
	m_nextFree  *DtMeshTile
	m_tiles     []*DtMeshTile

	m_saltBits uint32
	m_tileBits uint32
	m_polyBits uint32
}

// / Initializes the navigation mesh for tiled use.
// /  @param[in]	params		Initialization parameters.
// / @return The status flags for the operation.
func NewDtNavMesh(params *NavMeshParams) (*DtNavMesh, DtStatus) {
	if !params.Valid() {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	mesh := &DtNavMesh{}
	mesh.m_params = *params
	mesh.m_orig = params.Orig
	mesh.m_tileWidth = params.TileWidth
	mesh.m_tileHeight = params.TileHeight

	// Init tiles
	mesh.m_maxTiles = params.MaxTiles
	mesh.m_tileLutSize = int32(common.NextPow2(uint32(params.MaxTiles) / 4))
	if mesh.m_tileLutSize == 0 {
		mesh.m_tileLutSize = 1
	}
	mesh.m_tileLutMask = mesh.m_tileLutSize - 1
	mesh.m_posLookup = make([]*DtMeshTile, mesh.m_tileLutSize)
	mesh.m_tiles = make([]*DtMeshTile, mesh.m_maxTiles)
	for i := mesh.m_maxTiles - 1; i >= 0; i-- {
		mesh.m_tiles[i] = &DtMeshTile{salt: 1, next: mesh.m_nextFree}
		mesh.m_nextFree = mesh.m_tiles[i]
	}

	// Init ID generator values.
	mesh.m_tileBits, mesh.m_polyBits = params.idBits()
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	mesh.m_saltBits = min(31, 32-mesh.m_tileBits-mesh.m_polyBits)
	return mesh, DT_SUCCESS
}

func (mesh *DtNavMesh) GetParams() *NavMeshParams { return &mesh.m_params }

func (mesh *DtNavMesh) GetMaxTiles() int32 { return mesh.m_maxTiles }

func (mesh *DtNavMesh) GetTile(i int) *DtMeshTile { return mesh.m_tiles[i] }

// / Derives a standard polygon reference.
// /  @param[in]	salt	The tile's salt value.
// /  @param[in]	it		The index of the tile.
// /  @param[in]	ip		The index of the polygon within the tile.
func (mesh *DtNavMesh) EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef((salt << (mesh.m_polyBits + mesh.m_tileBits)) | (it << mesh.m_polyBits) | ip)
}

// / Decodes a standard polygon reference.
func (mesh *DtNavMesh) DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	saltMask := (uint32(1) << mesh.m_saltBits) - 1
	tileMask := (uint32(1) << mesh.m_tileBits) - 1
	polyMask := (uint32(1) << mesh.m_polyBits) - 1
	salt = (uint32(ref) >> (mesh.m_polyBits + mesh.m_tileBits)) & saltMask
	it = (uint32(ref) >> mesh.m_polyBits) & tileMask
	ip = uint32(ref) & polyMask
	return
}

func (mesh *DtNavMesh) getTileIndex(tile *DtMeshTile) int {
	for i, v := range mesh.m_tiles {
		if v == tile {
			return i
		}
	}
	return -1
}

func (mesh *DtNavMesh) GetTileRef(tile *DtMeshTile) DtTileRef {
	if tile == nil {
		return 0
	}
	it := mesh.getTileIndex(tile)
	return DtTileRef(mesh.EncodePolyId(tile.salt, uint32(it), 0))
}

func (mesh *DtNavMesh) GetTileByRef(ref DtTileRef) *DtMeshTile {
	if ref == 0 {
		return nil
	}
	salt, it, _ := mesh.DecodePolyId(DtPolyRef(ref))
	if int32(it) >= mesh.m_maxTiles {
		return nil
	}
	tile := mesh.m_tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil
	}
	return tile
}

func (mesh *DtNavMesh) GetTileAt(x, y, layer int32) *DtMeshTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	tile := mesh.m_posLookup[h]
	for tile != nil {
		if tile.Header != nil &&
			tile.Header.X == x &&
			tile.Header.Y == y &&
			tile.Header.Layer == layer {
			return tile
		}
		tile = tile.next
	}
	return nil
}

func (mesh *DtNavMesh) GetTileRefAt(x, y, layer int32) DtTileRef {
	return mesh.GetTileRef(mesh.GetTileAt(x, y, layer))
}

// GetTilesAt returns every layer tile at the grid location.
func (mesh *DtNavMesh) GetTilesAt(x, y int32) (tiles []*DtMeshTile) {
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	tile := mesh.m_posLookup[h]
	for tile != nil {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y {
			tiles = append(tiles, tile)
		}
		tile = tile.next
	}
	return tiles
}

// / Adds a tile to the navigation mesh.
// /  @param[in]		data		Data for the new tile mesh. (See: #DtCreateNavMeshData)
// /  @param[in]		flags		Tile flags. (See: #dtTileFlags)
// /  @param[in]		lastRef		The desired reference for the tile. (When reloading a tile.) [opt] [Default: 0]
// / @return The status flags for the operation and the tile reference.
func (mesh *DtNavMesh) AddTile(data *NavMeshData, flags int, lastRef DtTileRef) (DtTileRef, DtStatus) {
	if data == nil || data.Header == nil {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	header := data.Header
	// Make sure the data is in right format.
	if header.Magic != DT_NAVMESH_MAGIC {
		return 0, DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != DT_NAVMESH_VERSION {
		return 0, DT_FAILURE | DT_WRONG_VERSION
	}
	if header.PolyCount > mesh.m_params.MaxPolys {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}

	// Make sure the location is free.
	if mesh.GetTileAt(header.X, header.Y, header.Layer) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}

	// Allocate a tile.
	var tile *DtMeshTile
	if lastRef == 0 {
		if mesh.m_nextFree != nil {
			tile = mesh.m_nextFree
			mesh.m_nextFree = tile.next
			tile.next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		salt, it, _ := mesh.DecodePolyId(DtPolyRef(lastRef))
		if int32(it) >= mesh.m_maxTiles {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Try to find the specific tile id from the free list.
		target := mesh.m_tiles[it]
		var prev *DtMeshTile
		tile = mesh.m_nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Remove from freelist
		if prev == nil {
			mesh.m_nextFree = tile.next
		} else {
			prev.next = tile.next
		}
		// Restore salt.
		tile.salt = salt
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := common.ComputeTileHash(header.X, header.Y, mesh.m_tileLutMask)
	tile.next = mesh.m_posLookup[h]
	mesh.m_posLookup[h] = tile

	tile.Header = header
	tile.Verts = data.NavVerts
	tile.Polys = data.NavPolys
	tile.Data = data
	tile.Flags = flags

	return mesh.GetTileRef(tile), DT_SUCCESS
}

// / Removes the specified tile from the navigation mesh.
// /  @param[in]		ref			The reference of the tile to remove.
// / @return The tile data when the caller owns it, and the status flags for the operation.
func (mesh *DtNavMesh) RemoveTile(ref DtTileRef) (*NavMeshData, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tileSalt, tileIndex, _ := mesh.DecodePolyId(DtPolyRef(ref))
	if int32(tileIndex) >= mesh.m_maxTiles {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(tile.Header.X, tile.Header.Y, mesh.m_tileLutMask)
	var prev *DtMeshTile
	cur := mesh.m_posLookup[h]
	for cur != nil {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				mesh.m_posLookup[h] = cur.next
			}
			break
		}
		prev = cur
		cur = cur.next
	}

	var data *NavMeshData
	if tile.Flags&DT_TILE_FREE_DATA == 0 {
		data = tile.Data
	}

	// Reset tile.
	tile.Header = nil
	tile.Verts = nil
	tile.Polys = nil
	tile.Data = nil
	tile.Flags = 0

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & ((1 << mesh.m_saltBits) - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = mesh.m_nextFree
	mesh.m_nextFree = tile

	return data, DT_SUCCESS
}

// CalcTileLoc returns the tile grid location containing the position.
func (mesh *DtNavMesh) CalcTileLoc(pos common.Vec3) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - mesh.m_orig[0]) / mesh.m_tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - mesh.m_orig[2]) / mesh.m_tileHeight)))
	return tx, ty
}

// TileCount returns the number of tiles currently stored.
func (mesh *DtNavMesh) TileCount() (n int) {
	for _, tile := range mesh.m_tiles {
		if tile.Header != nil {
			n++
		}
	}
	return n
}
