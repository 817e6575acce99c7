package detour_tile_cache

import (
	"fmt"
	"math"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/rw"
	"github.com/gorustyt/navtilecache/detour"
)

type DtObstacleRef uint32

type DtCompressedTileRef uint32

/// Flags for addTile

const DT_COMPRESSEDTILE_FREE_DATA = 0x01 ///< Navmesh owns the tile memory and should free it.

type DtCompressedTile struct {
	salt       uint32 ///< Counter describing modifications to the tile.
	index      int
	Header     *DtTileCacheLayerHeader
	Data       []byte ///< Header followed by the compressed grids.
	Compressed []byte ///< Compressed part of Data.
	flags      uint32
	next       *DtCompressedTile
}

const (
	DT_OBSTACLE_EMPTY = iota
	DT_OBSTACLE_PROCESSING
	DT_OBSTACLE_PROCESSED
	DT_OBSTACLE_REMOVING
)

const (
	DT_OBSTACLE_CYLINDER     = iota
	DT_OBSTACLE_BOX          // AABB
	DT_OBSTACLE_ORIENTED_BOX // OBB
	DT_OBSTACLE_CONVEX       // extruded convex polygon
)

type dtObstacleCylinder struct {
	pos    common.Vec3
	radius float32
	height float32
}

type dtObstacleBox struct {
	bmin common.Vec3
	bmax common.Vec3
}

type dtObstacleOrientedBox struct {
	center      common.Vec3
	halfExtents common.Vec3
	rotAux      [2]float32 //{ cos(0.5f*angle)*sin(-0.5f*angle); cos(0.5f*angle)*cos(0.5f*angle) - 0.5 }
}

type dtObstacleConvex struct {
	verts      []common.Vec3
	hmin, hmax float32
}

type DtTileCacheParams struct {
	Orig                   [3]float32
	Cs, Ch                 float32
	Width, Height          int32
	WalkableHeight         float32
	WalkableRadius         float32
	WalkableClimb          float32
	MaxSimplificationError float32
	MaxTiles               int32
	MaxObstacles           int32
}

// Largest tile count a tile cache accepts.
const DT_TILECACHE_MAX_TILES = 1 << 18

func (p *DtTileCacheParams) validate() error {
	if p.MaxTiles <= 0 || p.MaxTiles > DT_TILECACHE_MAX_TILES {
		return fmt.Errorf("max tiles %d", p.MaxTiles)
	}
	if p.MaxObstacles < 0 || p.MaxObstacles > 0xffff {
		return fmt.Errorf("max obstacles %d", p.MaxObstacles)
	}
	// Layer headers store the grid size in a byte.
	if p.Width <= 0 || p.Width > 255 || p.Height <= 0 || p.Height > 255 {
		return fmt.Errorf("tile size %dx%d", p.Width, p.Height)
	}
	if !(p.Cs > 0) || !(p.Ch > 0) || !common.IsFinite(p.Cs) || !common.IsFinite(p.Ch) {
		return fmt.Errorf("cell size %v, cell height %v", p.Cs, p.Ch)
	}
	for _, v := range [...]float32{p.Orig[0], p.Orig[1], p.Orig[2],
		p.WalkableHeight, p.WalkableRadius, p.WalkableClimb, p.MaxSimplificationError} {
		if !common.IsFinite(v) {
			return fmt.Errorf("non finite value %v", v)
		}
	}
	return nil
}

// DtTileCacheParamsSize is the encoded size of DtTileCacheParams.
const DtTileCacheParamsSize = 4*3 + 4*2 + 4*2 + 4*4 + 4*2

func (p *DtTileCacheParams) ToBin(w *rw.Writer) {
	w.WriteFloat32s(p.Orig[:])
	w.WriteFloat32(p.Cs)
	w.WriteFloat32(p.Ch)
	w.WriteInt32(p.Width)
	w.WriteInt32(p.Height)
	w.WriteFloat32(p.WalkableHeight)
	w.WriteFloat32(p.WalkableRadius)
	w.WriteFloat32(p.WalkableClimb)
	w.WriteFloat32(p.MaxSimplificationError)
	w.WriteInt32(p.MaxTiles)
	w.WriteInt32(p.MaxObstacles)
}

func (p *DtTileCacheParams) FromBin(r *rw.Reader) {
	r.ReadFloat32s(p.Orig[:])
	p.Cs = r.ReadFloat32()
	p.Ch = r.ReadFloat32()
	p.Width = r.ReadInt32()
	p.Height = r.ReadInt32()
	p.WalkableHeight = r.ReadFloat32()
	p.WalkableRadius = r.ReadFloat32()
	p.WalkableClimb = r.ReadFloat32()
	p.MaxSimplificationError = r.ReadFloat32()
	p.MaxTiles = r.ReadInt32()
	p.MaxObstacles = r.ReadInt32()
}

const (
	REQUEST_ADD = iota
	REQUEST_REMOVE
)

const (
	MAX_REQUESTS = 64
	MAX_UPDATE   = 64
)

const DT_MAX_TOUCHED_TILES = 8

type DtTileCacheObstacle struct {
	cylinder    dtObstacleCylinder
	box         dtObstacleBox
	orientedBox dtObstacleOrientedBox
	convex      dtObstacleConvex
	touched     [DT_MAX_TOUCHED_TILES]DtCompressedTileRef
	pending     [DT_MAX_TOUCHED_TILES]DtCompressedTileRef
	salt        uint32
	index       int
	Type        int
	State       int
	ntouched    int
	npending    int
	next        *DtTileCacheObstacle
}

// Touched returns the tiles the obstacle was stamped into.
func (ob *DtTileCacheObstacle) Touched() []DtCompressedTileRef {
	return ob.touched[:ob.ntouched]
}

type obstacleRequest struct {
	action int
	ref    DtObstacleRef
}

type DtTileCache struct {
	m_tileLutSize int ///< Tile hash lookup size (must be pot).
	m_tileLutMask int ///< Tile hash lookup mask.

	m_posLookup    []*DtCompressedTile ///< Tile hash lookup.
	m_nextFreeTile *DtCompressedTile   ///< Freelist of tiles.
	m_tiles        []*DtCompressedTile ///< List of tiles.

	m_saltBits uint32 ///< Number of salt bits in the tile ID.
	m_tileBits uint32 ///< Number of tile bits in the tile ID.

	m_params      DtTileCacheParams
	m_talloc      DtTileCacheAlloc
	m_tcomp       DtTileCacheCompressor
	m_tmproc      DtTileCacheMeshProcess
	m_meshBuilder DtTileCacheMeshBuilder

	m_obstacles        []*DtTileCacheObstacle
	m_nextFreeObstacle *DtTileCacheObstacle

	m_reqs  [MAX_REQUESTS]obstacleRequest
	m_nreqs int

	m_update  [MAX_UPDATE]DtCompressedTileRef
	m_nupdate int
}

// NewDtTileCache creates an empty tile cache. A nil talloc falls back to the
// heap; tmproc may be nil.
func NewDtTileCache(params *DtTileCacheParams, talloc DtTileCacheAlloc,
	tcomp DtTileCacheCompressor, tmproc DtTileCacheMeshProcess) (*DtTileCache, error) {
	if params == nil || tcomp == nil {
		return nil, fmt.Errorf("tile cache: missing params or compressor: %w", common.ErrInvalidParam)
	}
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("tile cache: %v: %w", err, common.ErrInvalidParam)
	}
	if talloc == nil {
		talloc = HeapAlloc{}
	}

	// Init ID generator values.
	tileBits := common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	saltBits := min(31, 32-tileBits)
	if saltBits < 10 {
		return nil, (detour.DT_FAILURE | detour.DT_INVALID_PARAM).Err()
	}

	d := &DtTileCache{
		m_tileBits:    tileBits,
		m_saltBits:    saltBits,
		m_params:      *params,
		m_talloc:      talloc,
		m_tcomp:       tcomp,
		m_tmproc:      tmproc,
		m_meshBuilder: DefaultMeshBuilder{},
	}

	// Alloc space for obstacles.
	d.m_obstacles = make([]*DtTileCacheObstacle, params.MaxObstacles)
	for i := len(d.m_obstacles) - 1; i >= 0; i-- {
		d.m_obstacles[i] = &DtTileCacheObstacle{salt: 1, index: i, next: d.m_nextFreeObstacle}
		d.m_nextFreeObstacle = d.m_obstacles[i]
	}

	// Init tiles
	d.m_tileLutSize = int(common.NextPow2(uint32(params.MaxTiles / 4)))
	if d.m_tileLutSize == 0 {
		d.m_tileLutSize = 1
	}
	d.m_tileLutMask = d.m_tileLutSize - 1
	d.m_posLookup = make([]*DtCompressedTile, d.m_tileLutSize)

	d.m_tiles = make([]*DtCompressedTile, params.MaxTiles)
	for i := len(d.m_tiles) - 1; i >= 0; i-- {
		d.m_tiles[i] = &DtCompressedTile{salt: 1, index: i, next: d.m_nextFreeTile}
		d.m_nextFreeTile = d.m_tiles[i]
	}

	return d, nil
}

// SetMeshBuilder replaces the layer to polygon mesh step.
func (d *DtTileCache) SetMeshBuilder(b DtTileCacheMeshBuilder) {
	if b == nil {
		b = DefaultMeshBuilder{}
	}
	d.m_meshBuilder = b
}

func (d *DtTileCache) GetAlloc() DtTileCacheAlloc           { return d.m_talloc }
func (d *DtTileCache) GetCompressor() DtTileCacheCompressor { return d.m_tcomp }
func (d *DtTileCache) GetParams() *DtTileCacheParams        { return &d.m_params }

func (d *DtTileCache) GetTileCount() int               { return len(d.m_tiles) }
func (d *DtTileCache) GetTile(i int) *DtCompressedTile { return d.m_tiles[i] }

func (d *DtTileCache) GetObstacleCount() int                  { return len(d.m_obstacles) }
func (d *DtTileCache) GetObstacle(i int) *DtTileCacheObstacle { return d.m_obstacles[i] }

// UsedTileCount returns the number of occupied tile slots.
func (d *DtTileCache) UsedTileCount() (n int) {
	for _, t := range d.m_tiles {
		if t.Header != nil {
			n++
		}
	}
	return n
}

// / Encodes a tile id.
func (d *DtTileCache) encodeTileId(salt uint32, it int) DtCompressedTileRef {
	return DtCompressedTileRef(salt<<d.m_tileBits | uint32(it))
}

// / Decodes a tile salt.
func (d *DtTileCache) decodeTileIdSalt(ref DtCompressedTileRef) uint32 {
	saltMask := uint32(1)<<d.m_saltBits - 1
	return (uint32(ref) >> d.m_tileBits) & saltMask
}

// / Decodes a tile id.
func (d *DtTileCache) decodeTileIdTile(ref DtCompressedTileRef) int {
	tileMask := uint32(1)<<d.m_tileBits - 1
	return int(uint32(ref) & tileMask)
}

// / Encodes an obstacle id.
func encodeObstacleId(salt uint32, it int) DtObstacleRef {
	return DtObstacleRef(salt<<16 | uint32(it))
}

// / Decodes an obstacle salt.
func decodeObstacleIdSalt(ref DtObstacleRef) uint32 {
	return (uint32(ref) >> 16) & 0xffff
}

// / Decodes an obstacle id.
func decodeObstacleIdObstacle(ref DtObstacleRef) int {
	return int(uint32(ref) & 0xffff)
}

func contains(a []DtCompressedTileRef, v DtCompressedTileRef) bool {
	for _, r := range a {
		if r == v {
			return true
		}
	}
	return false
}

func (d *DtTileCache) GetTileRef(tile *DtCompressedTile) DtCompressedTileRef {
	if tile == nil {
		return 0
	}
	return d.encodeTileId(tile.salt, tile.index)
}

func (d *DtTileCache) GetTileByRef(ref DtCompressedTileRef) *DtCompressedTile {
	if ref == 0 {
		return nil
	}
	tileIndex := d.decodeTileIdTile(ref)
	if tileIndex >= len(d.m_tiles) {
		return nil
	}
	tile := d.m_tiles[tileIndex]
	if tile.salt != d.decodeTileIdSalt(ref) || tile.Header == nil {
		return nil
	}
	return tile
}

// GetTilesAt returns the refs of every layer stored at the tile location.
func (d *DtTileCache) GetTilesAt(tx, ty int32) []DtCompressedTileRef {
	var tiles []DtCompressedTileRef
	// Find tile based on hash.
	h := common.ComputeTileHash(tx, ty, int32(d.m_tileLutMask))
	for tile := d.m_posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.Tx == tx && tile.Header.Ty == ty {
			tiles = append(tiles, d.GetTileRef(tile))
		}
	}
	return tiles
}

func (d *DtTileCache) GetTileAt(tx, ty, tlayer int32) *DtCompressedTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(tx, ty, int32(d.m_tileLutMask))
	for tile := d.m_posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil &&
			tile.Header.Tx == tx &&
			tile.Header.Ty == ty &&
			tile.Header.Tlayer == tlayer {
			return tile
		}
	}
	return nil
}

func (d *DtTileCache) GetObstacleRef(ob *DtTileCacheObstacle) DtObstacleRef {
	if ob == nil {
		return 0
	}
	return encodeObstacleId(ob.salt, ob.index)
}

func (d *DtTileCache) GetObstacleByRef(ref DtObstacleRef) *DtTileCacheObstacle {
	if ref == 0 {
		return nil
	}
	idx := decodeObstacleIdObstacle(ref)
	if idx >= len(d.m_obstacles) {
		return nil
	}
	ob := d.m_obstacles[idx]
	if ob.salt != decodeObstacleIdSalt(ref) {
		return nil
	}
	return ob
}

// AddTile stores a compressed tile blob. The blob must start with a valid
// layer header and its location must be free.
func (d *DtTileCache) AddTile(data []byte, flags int) (DtCompressedTileRef, error) {
	header, err := DecodeLayerHeader(data)
	if err != nil {
		return 0, err
	}
	ref, status := d.addTile(header, data, flags)
	return ref, status.Err()
}

func (d *DtTileCache) addTile(header *DtTileCacheLayerHeader, data []byte, flags int) (DtCompressedTileRef, detour.DtStatus) {
	// Make sure the location is free.
	if d.GetTileAt(header.Tx, header.Ty, header.Tlayer) != nil {
		return 0, detour.DT_FAILURE | detour.DT_ALREADY_OCCUPIED
	}

	// Allocate a tile.
	tile := d.m_nextFreeTile
	if tile == nil {
		return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	d.m_nextFreeTile = tile.next
	tile.next = nil

	// Insert tile into the position lut.
	h := common.ComputeTileHash(header.Tx, header.Ty, int32(d.m_tileLutMask))
	tile.next = d.m_posLookup[h]
	d.m_posLookup[h] = tile

	// Init tile.
	tile.Header = header
	tile.Data = data
	tile.Compressed = data[DtTileCacheLayerHeaderSize:]
	tile.flags = uint32(flags)

	return d.GetTileRef(tile), detour.DT_SUCCESS
}

// RemoveTile frees the tile slot. The blob is returned unless the cache owned it.
func (d *DtTileCache) RemoveTile(ref DtCompressedTileRef) ([]byte, error) {
	data, status := d.removeTile(ref)
	return data, status.Err()
}

func (d *DtTileCache) removeTile(ref DtCompressedTileRef) (data []byte, status detour.DtStatus) {
	tile := d.GetTileByRef(ref)
	if tile == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(tile.Header.Tx, tile.Header.Ty, int32(d.m_tileLutMask))
	var prev *DtCompressedTile
	for cur := d.m_posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				d.m_posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	// Reset tile.
	if tile.flags&DT_COMPRESSEDTILE_FREE_DATA == 0 {
		data = tile.Data
	}
	tile.Header = nil
	tile.Data = nil
	tile.Compressed = nil
	tile.flags = 0

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & (uint32(1)<<d.m_saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = d.m_nextFreeTile
	d.m_nextFreeTile = tile

	return data, detour.DT_SUCCESS
}

func (d *DtTileCache) freeTileCount() (n int) {
	for t := d.m_nextFreeTile; t != nil; t = t.next {
		n++
	}
	return n
}

// ReplaceTilesAt swaps every layer stored at (tx, ty) for the given blobs and
// re-attaches the obstacles that touched the old layers. The cache is left
// unchanged when a blob is invalid or the new layers do not fit.
func (d *DtTileCache) ReplaceTilesAt(tx, ty int32, datas [][]byte, flags int) ([]DtCompressedTileRef, error) {
	headers := make([]*DtTileCacheLayerHeader, len(datas))
	for i, data := range datas {
		header, err := DecodeLayerHeader(data)
		if err != nil {
			return nil, err
		}
		if header.Tx != tx || header.Ty != ty {
			return nil, fmt.Errorf("tile cache: layer at (%d,%d) replacing (%d,%d): %w",
				header.Tx, header.Ty, tx, ty, common.ErrInvalidParam)
		}
		for _, prev := range headers[:i] {
			if prev.Tlayer == header.Tlayer {
				return nil, fmt.Errorf("tile cache: layer %d given twice: %w", header.Tlayer, common.ErrInvalidParam)
			}
		}
		headers[i] = header
	}
	old := d.GetTilesAt(tx, ty)
	if len(datas) > d.freeTileCount()+len(old) {
		return nil, fmt.Errorf("tile cache: %d layers at (%d,%d): %w", len(datas), tx, ty, common.ErrCapacityExceeded)
	}

	for _, ref := range old {
		d.removeTile(ref)
		for i := 0; i < d.m_nupdate; i++ {
			if d.m_update[i] == ref {
				d.m_nupdate--
				copy(d.m_update[i:], d.m_update[i+1:d.m_nupdate+1])
				break
			}
		}
	}
	refs := make([]DtCompressedTileRef, 0, len(datas))
	for i, data := range datas {
		ref, status := d.addTile(headers[i], data, flags)
		if status.DtStatusFailed() {
			return refs, status.Err()
		}
		refs = append(refs, ref)
	}

	for _, ob := range d.m_obstacles {
		if ob.State == DT_OBSTACLE_EMPTY {
			continue
		}
		if ob.State != DT_OBSTACLE_REMOVING {
			bmin, bmax := d.GetObstacleBounds(ob)
			ob.ntouched = copy(ob.touched[:], d.QueryTiles(bmin, bmax, DT_MAX_TOUCHED_TILES))
		}
		n := 0
		for _, ref := range ob.pending[:ob.npending] {
			if !contains(old, ref) {
				ob.pending[n] = ref
				n++
			}
		}
		ob.npending = n
		d.settleObstacle(ob)
	}
	return refs, nil
}

func (d *DtTileCache) allocObstacle(obType int) (*DtTileCacheObstacle, detour.DtStatus) {
	if d.m_nreqs >= MAX_REQUESTS {
		return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	ob := d.m_nextFreeObstacle
	if ob == nil {
		return nil, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	d.m_nextFreeObstacle = ob.next

	*ob = DtTileCacheObstacle{salt: ob.salt, index: ob.index}
	ob.State = DT_OBSTACLE_PROCESSING
	ob.Type = obType
	return ob, detour.DT_SUCCESS
}

func (d *DtTileCache) queueAdd(ob *DtTileCacheObstacle) DtObstacleRef {
	ref := d.GetObstacleRef(ob)
	d.m_reqs[d.m_nreqs] = obstacleRequest{action: REQUEST_ADD, ref: ref}
	d.m_nreqs++
	return ref
}

// AddObstacle queues a cylinder obstacle standing on pos.
func (d *DtTileCache) AddObstacle(pos common.Vec3, radius, height float32) (DtObstacleRef, error) {
	ob, status := d.allocObstacle(DT_OBSTACLE_CYLINDER)
	if status.DtStatusFailed() {
		return 0, status.Err()
	}
	ob.cylinder = dtObstacleCylinder{pos: pos, radius: radius, height: height}
	return d.queueAdd(ob), nil
}

// AddBoxObstacle queues an axis aligned box obstacle.
func (d *DtTileCache) AddBoxObstacle(bmin, bmax common.Vec3) (DtObstacleRef, error) {
	ob, status := d.allocObstacle(DT_OBSTACLE_BOX)
	if status.DtStatusFailed() {
		return 0, status.Err()
	}
	ob.box = dtObstacleBox{bmin: bmin, bmax: bmax}
	return d.queueAdd(ob), nil
}

// AddOrientedBoxObstacle queues a box rotated by yRadians around the y axis.
func (d *DtTileCache) AddOrientedBoxObstacle(center, halfExtents common.Vec3, yRadians float32) (DtObstacleRef, error) {
	ob, status := d.allocObstacle(DT_OBSTACLE_ORIENTED_BOX)
	if status.DtStatusFailed() {
		return 0, status.Err()
	}
	coshalf := math.Cos(0.5 * float64(yRadians))
	sinhalf := math.Sin(-0.5 * float64(yRadians))
	ob.orientedBox = dtObstacleOrientedBox{
		center:      center,
		halfExtents: halfExtents,
		rotAux:      [2]float32{float32(coshalf * sinhalf), float32(coshalf*coshalf) - 0.5},
	}
	return d.queueAdd(ob), nil
}

// AddConvexObstacle queues a convex polygon extruded from hmin to hmax.
func (d *DtTileCache) AddConvexObstacle(verts []common.Vec3, hmin, hmax float32) (DtObstacleRef, error) {
	if len(verts) < 3 || hmax < hmin {
		return 0, fmt.Errorf("tile cache: convex obstacle with %d points: %w", len(verts), common.ErrInvalidParam)
	}
	ob, status := d.allocObstacle(DT_OBSTACLE_CONVEX)
	if status.DtStatusFailed() {
		return 0, status.Err()
	}
	ob.convex = dtObstacleConvex{verts: append([]common.Vec3(nil), verts...), hmin: hmin, hmax: hmax}
	return d.queueAdd(ob), nil
}

// RemoveObstacle queues the removal of an obstacle. A zero ref is ignored.
func (d *DtTileCache) RemoveObstacle(ref DtObstacleRef) error {
	if ref == 0 {
		return nil
	}
	if d.m_nreqs >= MAX_REQUESTS {
		return (detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL).Err()
	}
	d.m_reqs[d.m_nreqs] = obstacleRequest{action: REQUEST_REMOVE, ref: ref}
	d.m_nreqs++
	return nil
}

// QueryTiles returns up to maxResults tiles whose tight bounds overlap the box.
func (d *DtTileCache) QueryTiles(bmin, bmax common.Vec3, maxResults int) []DtCompressedTileRef {
	var results []DtCompressedTileRef

	tw := float32(d.m_params.Width) * d.m_params.Cs
	th := float32(d.m_params.Height) * d.m_params.Cs
	tx0 := int32(math.Floor(float64((bmin[0] - d.m_params.Orig[0]) / tw)))
	tx1 := int32(math.Floor(float64((bmax[0] - d.m_params.Orig[0]) / tw)))
	ty0 := int32(math.Floor(float64((bmin[2] - d.m_params.Orig[2]) / th)))
	ty1 := int32(math.Floor(float64((bmax[2] - d.m_params.Orig[2]) / th)))

	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			for _, ref := range d.GetTilesAt(tx, ty) {
				tile := d.m_tiles[d.decodeTileIdTile(ref)]
				tbmin, tbmax := d.CalcTightTileBounds(tile.Header)
				if common.OverlapBounds(bmin[:], bmax[:], tbmin[:], tbmax[:]) && len(results) < maxResults {
					results = append(results, ref)
				}
			}
		}
	}
	return results
}

func (d *DtTileCache) queueTileUpdates(ob *DtTileCacheObstacle) {
	ob.npending = 0
	for _, ref := range ob.touched[:ob.ntouched] {
		if !contains(d.m_update[:d.m_nupdate], ref) {
			if d.m_nupdate >= MAX_UPDATE {
				continue
			}
			d.m_update[d.m_nupdate] = ref
			d.m_nupdate++
		}
		ob.pending[ob.npending] = ref
		ob.npending++
	}
}

// settleObstacle moves an obstacle out of a transient state once every
// pending tile has been rebuilt.
func (d *DtTileCache) settleObstacle(ob *DtTileCacheObstacle) {
	if ob.npending != 0 {
		return
	}
	switch ob.State {
	case DT_OBSTACLE_PROCESSING:
		ob.State = DT_OBSTACLE_PROCESSED
	case DT_OBSTACLE_REMOVING:
		ob.State = DT_OBSTACLE_EMPTY
		// Update salt, salt should never be zero.
		ob.salt = (ob.salt + 1) & 0xffff
		if ob.salt == 0 {
			ob.salt++
		}
		// Return obstacle to free list.
		ob.next = d.m_nextFreeObstacle
		d.m_nextFreeObstacle = ob
	}
}

// Update processes queued obstacle requests and rebuilds at most one touched
// tile. upToDate reports whether nothing is left to do.
func (d *DtTileCache) Update(navmesh detour.IDtNavMesh) (upToDate bool, err error) {
	if d.m_nupdate == 0 {
		// Process requests.
		for _, req := range d.m_reqs[:d.m_nreqs] {
			ob := d.GetObstacleByRef(req.ref)
			if ob == nil {
				continue
			}
			switch req.action {
			case REQUEST_ADD:
				if ob.State != DT_OBSTACLE_PROCESSING {
					continue
				}
				// Find touched tiles.
				bmin, bmax := d.GetObstacleBounds(ob)
				touched := d.QueryTiles(bmin, bmax, DT_MAX_TOUCHED_TILES)
				ob.ntouched = copy(ob.touched[:], touched)
			case REQUEST_REMOVE:
				if ob.State == DT_OBSTACLE_EMPTY || ob.State == DT_OBSTACLE_REMOVING {
					continue
				}
				// Prepare to remove obstacle.
				ob.State = DT_OBSTACLE_REMOVING
			}
			d.queueTileUpdates(ob)
			d.settleObstacle(ob)
		}
		d.m_nreqs = 0
	}

	// Process updates
	if d.m_nupdate != 0 {
		// Build mesh
		ref := d.m_update[0]
		err = d.BuildNavMeshTile(ref, navmesh)
		d.m_nupdate--
		copy(d.m_update[:], d.m_update[1:1+d.m_nupdate])

		// Update obstacle states.
		for _, ob := range d.m_obstacles {
			if ob.State != DT_OBSTACLE_PROCESSING && ob.State != DT_OBSTACLE_REMOVING {
				continue
			}
			// Remove handled tile from pending list.
			for j := 0; j < ob.npending; j++ {
				if ob.pending[j] == ref {
					ob.pending[j] = ob.pending[ob.npending-1]
					ob.npending--
					break
				}
			}
			d.settleObstacle(ob)
		}
	}

	return d.m_nupdate == 0 && d.m_nreqs == 0, err
}

// BuildNavMeshTilesAt rebuilds every layer stored at the tile location.
func (d *DtTileCache) BuildNavMeshTilesAt(tx, ty int32, navmesh detour.IDtNavMesh) error {
	for _, ref := range d.GetTilesAt(tx, ty) {
		if err := d.BuildNavMeshTile(ref, navmesh); err != nil {
			return err
		}
	}
	return nil
}

// BuildNavMeshTile decompresses a tile, stamps the obstacles touching it and
// replaces the matching navmesh tile with the result.
func (d *DtTileCache) BuildNavMeshTile(ref DtCompressedTileRef, navmesh detour.IDtNavMesh) error {
	tile := d.GetTileByRef(ref)
	if tile == nil {
		return (detour.DT_FAILURE | detour.DT_INVALID_PARAM).Err()
	}
	walkableClimbVx := int(d.m_params.WalkableClimb / d.m_params.Ch)

	// Decompress tile layer data.
	d.m_talloc.Reset()
	layer, err := DtDecompressTileCacheLayer(d.m_talloc, d.m_tcomp, tile.Data)
	if err != nil {
		return err
	}

	// Rasterize obstacles.
	orig := tile.Header.Bmin
	cs, ch := d.m_params.Cs, d.m_params.Ch
	for _, ob := range d.m_obstacles {
		if ob.State == DT_OBSTACLE_EMPTY || ob.State == DT_OBSTACLE_REMOVING {
			continue
		}
		if !contains(ob.touched[:ob.ntouched], ref) {
			continue
		}
		switch ob.Type {
		case DT_OBSTACLE_CYLINDER:
			DtMarkCylinderArea(layer, orig, cs, ch,
				ob.cylinder.pos, ob.cylinder.radius, ob.cylinder.height, DT_TILECACHE_NULL_AREA)
		case DT_OBSTACLE_BOX:
			DtMarkBoxArea(layer, orig, cs, ch, ob.box.bmin, ob.box.bmax, DT_TILECACHE_NULL_AREA)
		case DT_OBSTACLE_ORIENTED_BOX:
			DtMarkOrientedBoxArea(layer, orig, cs, ch,
				ob.orientedBox.center, ob.orientedBox.halfExtents, ob.orientedBox.rotAux, DT_TILECACHE_NULL_AREA)
		case DT_OBSTACLE_CONVEX:
			DtMarkConvexArea(layer, orig, cs, ch,
				ob.convex.verts, ob.convex.hmin, ob.convex.hmax, DT_TILECACHE_NULL_AREA)
		}
	}

	// Build navmesh
	lmesh, err := d.m_meshBuilder.BuildPolyMesh(layer, walkableClimbVx)
	if err != nil {
		return fmt.Errorf("tile cache: mesh tile (%d,%d,%d): %w: %w",
			tile.Header.Tx, tile.Header.Ty, tile.Header.Tlayer, common.ErrAlgorithmFailure, err)
	}

	existing := navmesh.GetTileRefAt(tile.Header.Tx, tile.Header.Ty, tile.Header.Tlayer)

	// Early out if the mesh tile is empty.
	if lmesh.Npolys == 0 {
		// Remove existing tile.
		if existing != 0 {
			navmesh.RemoveTile(existing)
		}
		return nil
	}

	params := detour.DtNavMeshCreateParams{
		Verts:          lmesh.Verts,
		VertCount:      lmesh.Nverts,
		Polys:          lmesh.Polys,
		PolyAreas:      lmesh.Areas,
		PolyFlags:      lmesh.Flags,
		PolyCount:      lmesh.Npolys,
		Nvp:            lmesh.Nvp,
		WalkableHeight: d.m_params.WalkableHeight,
		WalkableRadius: d.m_params.WalkableRadius,
		WalkableClimb:  d.m_params.WalkableClimb,
		TileX:          tile.Header.Tx,
		TileY:          tile.Header.Ty,
		TileLayer:      tile.Header.Tlayer,
		Cs:             cs,
		Ch:             ch,
		BuildBvTree:    false,
		Bmin:           tile.Header.Bmin,
		Bmax:           tile.Header.Bmax,
	}

	if d.m_tmproc != nil {
		d.m_tmproc.Process(&params, lmesh.Areas, lmesh.Flags)
	}

	navData, status := detour.DtCreateNavMeshData(&params)
	if status.DtStatusFailed() {
		return status.Err()
	}

	// Remove existing tile.
	if existing != 0 {
		navmesh.RemoveTile(existing)
	}

	// Let the navmesh own the data.
	_, status = navmesh.AddTile(navData, detour.DT_TILE_FREE_DATA, 0)
	return status.Err()
}

// CalcTightTileBounds returns the world bounds of the used part of a layer.
func (d *DtTileCache) CalcTightTileBounds(header *DtTileCacheLayerHeader) (bmin, bmax common.Vec3) {
	cs := d.m_params.Cs
	bmin[0] = header.Bmin[0] + float32(header.Minx)*cs
	bmin[1] = header.Bmin[1]
	bmin[2] = header.Bmin[2] + float32(header.Miny)*cs
	bmax[0] = header.Bmin[0] + float32(int(header.Maxx)+1)*cs
	bmax[1] = header.Bmax[1]
	bmax[2] = header.Bmin[2] + float32(int(header.Maxy)+1)*cs
	return bmin, bmax
}

func (d *DtTileCache) GetObstacleBounds(ob *DtTileCacheObstacle) (bmin, bmax common.Vec3) {
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		cl := ob.cylinder
		bmin = common.Vec3{cl.pos[0] - cl.radius, cl.pos[1], cl.pos[2] - cl.radius}
		bmax = common.Vec3{cl.pos[0] + cl.radius, cl.pos[1] + cl.height, cl.pos[2] + cl.radius}
	case DT_OBSTACLE_BOX:
		bmin, bmax = ob.box.bmin, ob.box.bmax
	case DT_OBSTACLE_ORIENTED_BOX:
		orientedBox := ob.orientedBox
		maxr := 1.41 * max(orientedBox.halfExtents[0], orientedBox.halfExtents[2])
		bmin = common.Vec3{orientedBox.center[0] - maxr, orientedBox.center[1] - orientedBox.halfExtents[1], orientedBox.center[2] - maxr}
		bmax = common.Vec3{orientedBox.center[0] + maxr, orientedBox.center[1] + orientedBox.halfExtents[1], orientedBox.center[2] + maxr}
	case DT_OBSTACLE_CONVEX:
		bmin, bmax = common.PolyBounds(ob.convex.verts)
		bmin[1], bmax[1] = ob.convex.hmin, ob.convex.hmax
	}
	return bmin, bmax
}
