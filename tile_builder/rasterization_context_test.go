package tile_builder

import (
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

func TestRasterizationContextRelease(t *testing.T) {
	alloc := NewLinearAllocator(1024)
	rc := NewRasterizationContext(alloc)
	require.NoError(t, rc.allocTriAreas(100))
	assert.Equal(t, 100, alloc.Top())
	rc.solid = recast.RcCreateHeightfield(4, 4, common.Vec3{}, common.Vec3{4, 4, 4}, 1, 1)
	rc.chf = &recast.RcCompactHeightfield{}
	require.NoError(t, rc.addTile([]byte{1, 2, 3}))

	rc.Release()
	assert.Equal(t, 4, rc.Freed())
	assert.Equal(t, 0, alloc.Top())
	assert.Equal(t, 0, rc.TileCount())

	rc.Release()
	assert.Equal(t, 4, rc.Freed())
}

func TestRasterizationContextFreeSolidOnce(t *testing.T) {
	rc := NewRasterizationContext(NewLinearAllocator(0))
	rc.solid = recast.RcCreateHeightfield(2, 2, common.Vec3{}, common.Vec3{2, 2, 2}, 1, 1)
	rc.freeSolid()
	rc.freeSolid()
	rc.Release()
	assert.Equal(t, 1, rc.Freed())
}

func TestRasterizationContextTakeTiles(t *testing.T) {
	rc := NewRasterizationContext(NewLinearAllocator(16))
	require.NoError(t, rc.addTile([]byte("a")))
	require.NoError(t, rc.addTile([]byte("bc")))

	tiles := rc.TakeTiles()
	require.Len(t, tiles, 2)
	assert.Equal(t, []byte("bc"), tiles[1].Data)
	assert.Equal(t, xxh3.Hash([]byte("a")), tiles[0].Digest)
	assert.Equal(t, 2, tiles[1].DataSize())

	// Taken tiles are not released with the context.
	rc.Release()
	assert.Equal(t, 0, rc.Freed())
	assert.Equal(t, []byte("a"), tiles[0].Data)
}

func TestRasterizationContextLayerLimit(t *testing.T) {
	rc := NewRasterizationContext(NewLinearAllocator(16))
	defer rc.Release()
	for i := 0; i < MAX_LAYERS; i++ {
		require.NoError(t, rc.addTile([]byte{byte(i)}))
	}
	err := rc.addTile([]byte{0xff})
	assert.ErrorIs(t, err, common.ErrCapacityExceeded)
	assert.Equal(t, MAX_LAYERS, rc.TileCount())
}

func TestRasterizationContextArenaTooSmall(t *testing.T) {
	rc := NewRasterizationContext(NewLinearAllocator(10))
	err := rc.allocTriAreas(11)
	assert.ErrorIs(t, err, common.ErrAllocationFailure)
	rc.Release()
	assert.Equal(t, 0, rc.Freed())
}
