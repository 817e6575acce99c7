package detour_tile_cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNavParams = detour.NavMeshParams{TileWidth: 8, TileHeight: 8, MaxTiles: 64, MaxPolys: 256}

func filledCache(t *testing.T, comp DtTileCacheCompressor, n int) *DtTileCache {
	t.Helper()
	tc, err := NewDtTileCache(testCacheParams(32, 4), nil, comp, nil)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := tc.AddTile(testTile(t, comp, int32(i%8), int32(i/8), 0), DT_COMPRESSEDTILE_FREE_DATA)
		require.NoError(t, err)
	}
	return tc
}

func savedSet(t *testing.T, tc *DtTileCache) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, SaveTileCacheSet(&buf, &testNavParams, tc))
	return buf.Bytes()
}

func TestTileCacheSetRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 5, 32} {
		t.Run(fmt.Sprintf("tiles=%d", n), func(t *testing.T) {
			comp := newCodec(t, CompressorS2)
			src := filledCache(t, comp, n)
			data := savedSet(t, src)

			set, err := LoadTileCacheSet(bytes.NewReader(data), comp)
			require.NoError(t, err)
			assert.EqualValues(t, n, set.Header.NumTiles)
			assert.Equal(t, testNavParams, set.Header.MeshParams)
			assert.Equal(t, *src.GetParams(), set.Header.CacheParams)

			dst, refs, err := NewDtTileCacheFromSet(set, nil, comp, nil)
			require.NoError(t, err)
			assert.Equal(t, n, dst.UsedTileCount())
			assert.Len(t, refs, n)

			for i := 0; i < src.GetTileCount(); i++ {
				tile := src.GetTile(i)
				if tile.Header == nil {
					continue
				}
				restored := dst.GetTileByRef(refs[src.GetTileRef(tile)])
				require.NotNil(t, restored)
				assert.Equal(t, tile.Header, restored.Header)
				assert.Equal(t, tile.Data, restored.Data)
			}
		})
	}
}

func TestLoadTileCacheSetCorrupt(t *testing.T) {
	comp := newCodec(t, CompressorS2)
	data := savedSet(t, filledCache(t, comp, 3))
	tileStart := 4*3 + detour.NavMeshParamsSize + DtTileCacheParamsSize + 8
	meshParams := 4 * 3
	cacheParams := meshParams + detour.NavMeshParamsSize
	put := func(off int, v uint32) func([]byte) []byte {
		return func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[off:], v)
			return b
		}
	}

	corrupt := map[string]func([]byte) []byte{
		"magic":               func(b []byte) []byte { b[0] ^= 0xff; return b },
		"version":             func(b []byte) []byte { b[4] = 2; return b },
		"too many tiles":      func(b []byte) []byte { b[8] = 0xff; return b },
		"truncated":           func(b []byte) []byte { return b[:len(b)-5] },
		"layer magic":         func(b []byte) []byte { b[tileStart] ^= 0xff; return b },
		"navmesh max tiles":   put(meshParams+20, 1<<24),
		"navmesh id bits":     put(meshParams+24, 1<<20),
		"navmesh tile width":  put(meshParams+12, math.Float32bits(float32(math.NaN()))),
		"cache max tiles":     put(cacheParams+44, 1<<30),
		"cache cell size":     put(cacheParams+12, math.Float32bits(-1)),
		"cache tile width":    put(cacheParams+20, 300),
		"cache max obstacles": put(cacheParams+48, 1<<20),
		"zero size": func(b []byte) []byte {
			copy(b[tileStart-4:], []byte{0, 0, 0, 0})
			return b
		},
	}
	for name, fn := range corrupt {
		set, err := LoadTileCacheSet(bytes.NewReader(fn(append([]byte(nil), data...))), comp)
		assert.ErrorIs(t, err, common.ErrCorruptData, name)
		assert.Nil(t, set, name)
	}
}

func TestLoadTileCacheSetWrongCodec(t *testing.T) {
	zcomp := newCodec(t, CompressorZstd)
	data := savedSet(t, filledCache(t, zcomp, 2))
	_, err := LoadTileCacheSet(bytes.NewReader(data), newCodec(t, CompressorS2))
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestRestoreLeavesCacheUntouched(t *testing.T) {
	comp := newCodec(t, CompressorS2)
	data := savedSet(t, filledCache(t, comp, 3))

	target := filledCache(t, comp, 1)
	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	_, err := LoadTileCacheSet(bytes.NewReader(bad), comp)
	require.ErrorIs(t, err, common.ErrCorruptData)
	assert.Equal(t, 1, target.UsedTileCount())

	set, err := LoadTileCacheSet(bytes.NewReader(data), comp)
	require.NoError(t, err)
	_, err = target.Restore(set)
	assert.ErrorIs(t, err, common.ErrCapacityExceeded, "tile (0,0,0) is already present")
	assert.Equal(t, 1, target.UsedTileCount())

	small, err := NewDtTileCache(testCacheParams(2, 1), nil, comp, nil)
	require.NoError(t, err)
	_, err = small.Restore(set)
	assert.ErrorIs(t, err, common.ErrCapacityExceeded)
	assert.Equal(t, 0, small.UsedTileCount())
}

func TestRestoreRejectsDuplicateLocations(t *testing.T) {
	comp := newCodec(t, CompressorS2)
	set, err := LoadTileCacheSet(bytes.NewReader(savedSet(t, filledCache(t, comp, 2))), comp)
	require.NoError(t, err)
	require.Len(t, set.Tiles, 2)
	set.Tiles = append(set.Tiles, set.Tiles[0])
	set.Tiles[2].Ref++

	tc, err := NewDtTileCache(testCacheParams(8, 1), nil, comp, nil)
	require.NoError(t, err)
	refs, err := tc.Restore(set)
	assert.ErrorIs(t, err, common.ErrCapacityExceeded)
	assert.Nil(t, refs)
	assert.Zero(t, tc.UsedTileCount())

	set.Tiles = set.Tiles[:2]
	refs, err = tc.Restore(set)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, 2, tc.UsedTileCount())
}
