package detour_tile_cache

import (
	"bytes"
	"fmt"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/rw"
)

const (
	DT_TILECACHE_MAGIC   = 'D'<<24 | 'T'<<16 | 'L'<<8 | 'R' ///< 'DTLR';
	DT_TILECACHE_VERSION = 1

	DT_TILECACHE_NULL_AREA     = 0
	DT_TILECACHE_WALKABLE_AREA = 63
	DT_TILECACHE_NULL_IDX      = 0xffff
)

// DtTileCacheLayerHeaderSize is the encoded size of DtTileCacheLayerHeader.
const DtTileCacheLayerHeaderSize = 4*5 + 4*6 + 2*2 + 6

type DtTileCacheLayerHeader struct {
	Magic                  int32 ///< Data magic
	Version                int32 ///< Data version
	Tx, Ty, Tlayer         int32
	Bmin, Bmax             [3]float32
	Hmin, Hmax             uint16 ///< Height min/max range
	Width, Height          uint8  ///< Dimension of the layer.
	Minx, Maxx, Miny, Maxy uint8  ///< Usable sub-region.
}

func (h *DtTileCacheLayerHeader) ToBin(w *rw.Writer) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.Tx)
	w.WriteInt32(h.Ty)
	w.WriteInt32(h.Tlayer)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteUInt16(h.Hmin)
	w.WriteUInt16(h.Hmax)
	w.WriteUInt8(h.Width)
	w.WriteUInt8(h.Height)
	w.WriteUInt8(h.Minx)
	w.WriteUInt8(h.Maxx)
	w.WriteUInt8(h.Miny)
	w.WriteUInt8(h.Maxy)
}

func (h *DtTileCacheLayerHeader) FromBin(r *rw.Reader) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.Tx = r.ReadInt32()
	h.Ty = r.ReadInt32()
	h.Tlayer = r.ReadInt32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	h.Hmin = r.ReadUInt16()
	h.Hmax = r.ReadUInt16()
	h.Width = r.ReadUInt8()
	h.Height = r.ReadUInt8()
	h.Minx = r.ReadUInt8()
	h.Maxx = r.ReadUInt8()
	h.Miny = r.ReadUInt8()
	h.Maxy = r.ReadUInt8()
}

// GridSize returns the number of cells in the layer.
func (h *DtTileCacheLayerHeader) GridSize() int {
	return int(h.Width) * int(h.Height)
}

// DecodeLayerHeader parses and validates the header at the start of a
// compressed tile.
func DecodeLayerHeader(data []byte) (*DtTileCacheLayerHeader, error) {
	if len(data) < DtTileCacheLayerHeaderSize {
		return nil, fmt.Errorf("tile layer: %d bytes is too short: %w", len(data), common.ErrCorruptData)
	}
	header := &DtTileCacheLayerHeader{}
	r := rw.NewReader(bytes.NewReader(data[:DtTileCacheLayerHeaderSize]))
	header.FromBin(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tile layer: %v: %w", err, common.ErrCorruptData)
	}
	if header.Magic != DT_TILECACHE_MAGIC {
		return nil, fmt.Errorf("tile layer: wrong magic %#x: %w", header.Magic, common.ErrCorruptData)
	}
	if header.Version != DT_TILECACHE_VERSION {
		return nil, fmt.Errorf("tile layer: wrong version %d: %w", header.Version, common.ErrCorruptData)
	}
	return header, nil
}

type DtTileCacheLayer struct {
	Header   *DtTileCacheLayerHeader
	RegCount int ///< Region count.
	Heights  []uint8
	Areas    []uint8
	Cons     []uint8
	Regs     []uint8
}

// DtBuildTileCacheLayer packs the layer grids into a tile blob: the header
// followed by the compressed heights, areas and cons.
func DtBuildTileCacheLayer(comp DtTileCacheCompressor, header *DtTileCacheLayerHeader,
	heights, areas, cons []uint8) ([]byte, error) {
	gridSize := header.GridSize()
	if gridSize == 0 || len(heights) < gridSize || len(areas) < gridSize || len(cons) < gridSize {
		return nil, fmt.Errorf("tile layer: grid of %d cells: %w", gridSize, common.ErrInvalidParam)
	}

	bufferSize := gridSize * 3
	buffer := make([]byte, bufferSize)
	copy(buffer, heights[:gridSize])
	copy(buffer[gridSize:], areas[:gridSize])
	copy(buffer[gridSize*2:], cons[:gridSize])

	maxCompressedSize := comp.MaxCompressedSize(bufferSize)
	if maxCompressedSize < 0 {
		return nil, fmt.Errorf("tile layer: %d bytes: %w", bufferSize, common.ErrAllocationFailure)
	}
	data := make([]byte, DtTileCacheLayerHeaderSize, DtTileCacheLayerHeaderSize+maxCompressedSize)

	var hdr bytes.Buffer
	w := rw.NewWriter(&hdr)
	header.ToBin(w)
	if err := w.Err(); err != nil {
		return nil, err
	}
	copy(data, hdr.Bytes())

	compressed, err := comp.Compress(data[DtTileCacheLayerHeaderSize:DtTileCacheLayerHeaderSize], buffer)
	if err != nil {
		return nil, err
	}
	return data[:DtTileCacheLayerHeaderSize+len(compressed)], nil
}

// DtDecompressTileCacheLayer expands a tile blob into grids allocated from alloc.
func DtDecompressTileCacheLayer(alloc DtTileCacheAlloc, comp DtTileCacheCompressor, data []byte) (*DtTileCacheLayer, error) {
	header, err := DecodeLayerHeader(data)
	if err != nil {
		return nil, err
	}
	gridSize := header.GridSize()
	if gridSize == 0 {
		return nil, fmt.Errorf("tile layer: empty grid: %w", common.ErrCorruptData)
	}

	buffer := alloc.Alloc(gridSize * 4)
	if buffer == nil {
		return nil, fmt.Errorf("tile layer: %d bytes: %w", gridSize*4, common.ErrAllocationFailure)
	}
	grids, err := comp.Decompress(buffer[:gridSize*3], data[DtTileCacheLayerHeaderSize:])
	if err != nil {
		alloc.Free(buffer)
		return nil, err
	}
	if len(grids) != gridSize*3 {
		alloc.Free(buffer)
		return nil, fmt.Errorf("tile layer: decoded %d bytes, want %d: %w", len(grids), gridSize*3, common.ErrCorruptData)
	}

	regs := buffer[gridSize*3 : gridSize*4]
	for i := range regs {
		regs[i] = 0xff
	}
	return &DtTileCacheLayer{
		Header:  header,
		Heights: grids[:gridSize],
		Areas:   grids[gridSize : gridSize*2],
		Cons:    grids[gridSize*2 : gridSize*3],
		Regs:    regs,
	}, nil
}
