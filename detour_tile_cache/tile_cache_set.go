package detour_tile_cache

import (
	"fmt"
	"io"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/rw"
	"github.com/gorustyt/navtilecache/detour"
)

const (
	TILECACHESET_MAGIC   = 'T'<<24 | 'S'<<16 | 'E'<<8 | 'T' //'TSET';
	TILECACHESET_VERSION = 1
)

// Largest layer grid a header can describe.
const maxLayerGridBytes = 255 * 255 * 3

type TileCacheSetHeader struct {
	Magic       int32
	Version     int32
	NumTiles    int32
	MeshParams  detour.NavMeshParams
	CacheParams DtTileCacheParams
}

func (h *TileCacheSetHeader) ToBin(w *rw.Writer) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.NumTiles)
	h.MeshParams.ToBin(w)
	h.CacheParams.ToBin(w)
}

func (h *TileCacheSetHeader) FromBin(r *rw.Reader) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.NumTiles = r.ReadInt32()
	h.MeshParams.FromBin(r)
	h.CacheParams.FromBin(r)
}

type TileCacheTileHeader struct {
	TileRef  DtCompressedTileRef
	DataSize int32
}

func (h *TileCacheTileHeader) ToBin(w *rw.Writer) {
	w.WriteUInt32(uint32(h.TileRef))
	w.WriteInt32(h.DataSize)
}

func (h *TileCacheTileHeader) FromBin(r *rw.Reader) {
	h.TileRef = DtCompressedTileRef(r.ReadUInt32())
	h.DataSize = r.ReadInt32()
}

type TileCacheSetTile struct {
	Ref    DtCompressedTileRef ///< Reference the tile had when it was saved.
	Header *DtTileCacheLayerHeader
	Data   []byte
}

// TileCacheSet is a fully validated container, ready to be restored.
type TileCacheSet struct {
	Header TileCacheSetHeader
	Tiles  []TileCacheSetTile
}

// SaveTileCacheSet writes every occupied tile of tc, in slot order.
func SaveTileCacheSet(w io.Writer, navParams *detour.NavMeshParams, tc *DtTileCache) error {
	header := TileCacheSetHeader{
		Magic:       TILECACHESET_MAGIC,
		Version:     TILECACHESET_VERSION,
		MeshParams:  *navParams,
		CacheParams: *tc.GetParams(),
	}
	for i := 0; i < tc.GetTileCount(); i++ {
		tile := tc.GetTile(i)
		if tile.Header == nil || len(tile.Data) == 0 {
			continue
		}
		header.NumTiles++
	}

	wr := rw.NewWriter(w)
	header.ToBin(wr)
	for i := 0; i < tc.GetTileCount(); i++ {
		tile := tc.GetTile(i)
		if tile.Header == nil || len(tile.Data) == 0 {
			continue
		}
		tileHeader := TileCacheTileHeader{
			TileRef:  tc.GetTileRef(tile),
			DataSize: int32(len(tile.Data)),
		}
		tileHeader.ToBin(wr)
		wr.WriteUInt8s(tile.Data)
	}
	if err := wr.Err(); err != nil {
		return fmt.Errorf("tile cache set: write: %w", err)
	}
	return nil
}

func corruptSet(format string, args ...any) error {
	return fmt.Errorf("tile cache set: %s: %w", fmt.Sprintf(format, args...), common.ErrCorruptData)
}

// LoadTileCacheSet reads and validates a container. Every tile is
// decompressed once with comp; nothing is returned unless all of them pass.
func LoadTileCacheSet(r io.Reader, comp DtTileCacheCompressor) (*TileCacheSet, error) {
	rd := rw.NewReader(r)
	set := &TileCacheSet{}
	set.Header.FromBin(rd)
	if err := rd.Err(); err != nil {
		return nil, corruptSet("header: %v", err)
	}
	if set.Header.Magic != TILECACHESET_MAGIC {
		return nil, corruptSet("wrong magic %#x", set.Header.Magic)
	}
	if set.Header.Version != TILECACHESET_VERSION {
		return nil, corruptSet("wrong version %d", set.Header.Version)
	}
	params := &set.Header.CacheParams
	if err := params.validate(); err != nil {
		return nil, corruptSet("cache params: %v", err)
	}
	if !set.Header.MeshParams.Valid() {
		return nil, corruptSet("navmesh params %+v", set.Header.MeshParams)
	}
	if set.Header.NumTiles < 0 || set.Header.NumTiles > params.MaxTiles {
		return nil, corruptSet("%d tiles for %d slots", set.Header.NumTiles, params.MaxTiles)
	}

	maxDataSize := DtTileCacheLayerHeaderSize + comp.MaxCompressedSize(maxLayerGridBytes)
	type loc struct{ x, y, layer int32 }
	seen := make(map[loc]struct{}, set.Header.NumTiles)
	set.Tiles = make([]TileCacheSetTile, 0, set.Header.NumTiles)
	for i := 0; i < int(set.Header.NumTiles); i++ {
		var tileHeader TileCacheTileHeader
		tileHeader.FromBin(rd)
		if err := rd.Err(); err != nil {
			return nil, corruptSet("tile %d: %v", i, err)
		}
		if tileHeader.TileRef == 0 || tileHeader.DataSize <= 0 || int(tileHeader.DataSize) > maxDataSize {
			return nil, corruptSet("tile %d: ref %d size %d", i, tileHeader.TileRef, tileHeader.DataSize)
		}
		data := rd.ReadBytes(int(tileHeader.DataSize))
		if err := rd.Err(); err != nil {
			return nil, corruptSet("tile %d: %v", i, err)
		}
		layer, err := DtDecompressTileCacheLayer(HeapAlloc{}, comp, data)
		if err != nil {
			return nil, corruptSet("tile %d: %v", i, err)
		}
		h := layer.Header
		key := loc{h.Tx, h.Ty, h.Tlayer}
		if _, dup := seen[key]; dup {
			return nil, corruptSet("tile %d: duplicate location (%d,%d,%d)", i, h.Tx, h.Ty, h.Tlayer)
		}
		seen[key] = struct{}{}
		set.Tiles = append(set.Tiles, TileCacheSetTile{Ref: tileHeader.TileRef, Header: h, Data: data})
	}
	return set, nil
}

// Restore adds the tiles of a loaded set in file order. The returned map
// translates the saved refs into the refs assigned by this cache. Nothing is
// added unless every tile fits.
func (d *DtTileCache) Restore(set *TileCacheSet) (map[DtCompressedTileRef]DtCompressedTileRef, error) {
	if free := d.freeTileCount(); len(set.Tiles) > free {
		return nil, fmt.Errorf("tile cache: restore %d tiles into %d free slots: %w",
			len(set.Tiles), free, common.ErrCapacityExceeded)
	}
	type loc struct{ x, y, layer int32 }
	seen := make(map[loc]struct{}, len(set.Tiles))
	for _, t := range set.Tiles {
		if t.Header == nil || len(t.Data) < DtTileCacheLayerHeaderSize {
			return nil, fmt.Errorf("tile cache: restore tile without header: %w", common.ErrInvalidParam)
		}
		key := loc{t.Header.Tx, t.Header.Ty, t.Header.Tlayer}
		if _, dup := seen[key]; dup || d.GetTileAt(key.x, key.y, key.layer) != nil {
			return nil, fmt.Errorf("tile cache: restore (%d,%d,%d): %w",
				key.x, key.y, key.layer, common.ErrCapacityExceeded)
		}
		seen[key] = struct{}{}
	}

	refs := make(map[DtCompressedTileRef]DtCompressedTileRef, len(set.Tiles))
	added := make([]DtCompressedTileRef, 0, len(set.Tiles))
	for _, t := range set.Tiles {
		ref, status := d.addTile(t.Header, t.Data, DT_COMPRESSEDTILE_FREE_DATA)
		if status.DtStatusFailed() {
			for _, r := range added {
				d.removeTile(r)
			}
			return nil, status.Err()
		}
		added = append(added, ref)
		refs[t.Ref] = ref
	}
	return refs, nil
}

// NewDtTileCacheFromSet creates a tile cache with the saved parameters and
// restores every tile of the set into it.
func NewDtTileCacheFromSet(set *TileCacheSet, talloc DtTileCacheAlloc,
	tcomp DtTileCacheCompressor, tmproc DtTileCacheMeshProcess) (*DtTileCache, map[DtCompressedTileRef]DtCompressedTileRef, error) {
	tc, err := NewDtTileCache(&set.Header.CacheParams, talloc, tcomp, tmproc)
	if err != nil {
		return nil, nil, err
	}
	refs, err := tc.Restore(set)
	if err != nil {
		return nil, nil, err
	}
	return tc, refs, nil
}
