package detour_tile_cache

import (
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatGrids returns a fully walkable layer at height 0 whose cells are
// connected to every neighbour inside the grid.
func flatGrids(w, h int) (heights, areas, cons []uint8) {
	heights = make([]uint8, w*h)
	areas = make([]uint8, w*h)
	cons = make([]uint8, w*h)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			idx := x + z*w
			areas[idx] = DT_TILECACHE_WALKABLE_AREA
			for dir := 0; dir < 4; dir++ {
				nx := x + common.GetDirOffsetX(dir)
				nz := z + common.GetDirOffsetY(dir)
				if nx >= 0 && nz >= 0 && nx < w && nz < h {
					cons[idx] |= (1 << dir) << 4
				}
			}
		}
	}
	return heights, areas, cons
}

func testLayerHeader(tx, ty, tlayer int32, w, h int) *DtTileCacheLayerHeader {
	return &DtTileCacheLayerHeader{
		Magic:   DT_TILECACHE_MAGIC,
		Version: DT_TILECACHE_VERSION,
		Tx:      tx,
		Ty:      ty,
		Tlayer:  tlayer,
		Bmin:    [3]float32{float32(tx) * float32(w), 0, float32(ty) * float32(h)},
		Bmax:    [3]float32{float32(tx+1) * float32(w), 2, float32(ty+1) * float32(h)},
		Width:   uint8(w),
		Height:  uint8(h),
		Maxx:    uint8(w - 1),
		Maxy:    uint8(h - 1),
	}
}

func testTile(t *testing.T, comp DtTileCacheCompressor, tx, ty, tlayer int32) []byte {
	t.Helper()
	heights, areas, cons := flatGrids(8, 8)
	data, err := DtBuildTileCacheLayer(comp, testLayerHeader(tx, ty, tlayer, 8, 8), heights, areas, cons)
	require.NoError(t, err)
	return data
}

type noAlloc struct{}

func (noAlloc) Reset()           {}
func (noAlloc) Alloc(int) []byte { return nil }
func (noAlloc) Free([]byte)      {}

func TestLayerRoundTrip(t *testing.T) {
	for _, name := range codecNames {
		comp := newCodec(t, name)
		heights, areas, cons := flatGrids(6, 5)
		heights[7] = 12
		areas[3] = DT_TILECACHE_NULL_AREA
		header := testLayerHeader(3, -2, 1, 6, 5)

		data, err := DtBuildTileCacheLayer(comp, header, heights, areas, cons)
		require.NoError(t, err, name)

		decoded, err := DecodeLayerHeader(data)
		require.NoError(t, err)
		assert.Equal(t, header, decoded)

		layer, err := DtDecompressTileCacheLayer(HeapAlloc{}, comp, data)
		require.NoError(t, err, name)
		assert.Equal(t, heights, layer.Heights)
		assert.Equal(t, areas, layer.Areas)
		assert.Equal(t, cons, layer.Cons)
		assert.Len(t, layer.Regs, 30)
		for _, r := range layer.Regs {
			assert.EqualValues(t, 0xff, r)
		}
	}
}

func TestLayerDecompressFailures(t *testing.T) {
	comp := newCodec(t, CompressorS2)
	data := testTile(t, comp, 0, 0, 0)

	_, err := DtDecompressTileCacheLayer(noAlloc{}, comp, data)
	assert.ErrorIs(t, err, common.ErrAllocationFailure)

	_, err = DtDecompressTileCacheLayer(HeapAlloc{}, comp, data[:DtTileCacheLayerHeaderSize-1])
	assert.ErrorIs(t, err, common.ErrCorruptData)

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	_, err = DtDecompressTileCacheLayer(HeapAlloc{}, comp, bad)
	assert.ErrorIs(t, err, common.ErrCorruptData)

	bad = append([]byte(nil), data...)
	bad[4] = 9
	_, err = DecodeLayerHeader(bad)
	assert.ErrorIs(t, err, common.ErrCorruptData)

	zcomp := newCodec(t, CompressorZstd)
	_, err = DtDecompressTileCacheLayer(HeapAlloc{}, comp, testTile(t, zcomp, 0, 0, 0))
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestBuildLayerInvalid(t *testing.T) {
	comp := newCodec(t, CompressorS2)
	heights, areas, cons := flatGrids(4, 4)
	_, err := DtBuildTileCacheLayer(comp, testLayerHeader(0, 0, 0, 8, 8), heights, areas, cons)
	assert.ErrorIs(t, err, common.ErrInvalidParam)
}
