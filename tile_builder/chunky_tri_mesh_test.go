package tile_builder

import (
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkyTriMeshChunks(t *testing.T) {
	verts, tris := gridMesh(8)
	cm, err := NewChunkyTriMesh(verts, tris, 16)
	require.NoError(t, err)
	assert.LessOrEqual(t, cm.MaxTrisPerChunk, 16)
	assert.Len(t, cm.TriIds, 128)
	assert.Len(t, cm.Tris, 128*3)

	// Every triangle lands in exactly one leaf.
	seen := make(map[int32]int)
	all := cm.GetChunksOverlappingRect([2]float32{-1, -1}, [2]float32{9, 9})
	for _, id := range all {
		tris, ids := cm.ChunkTris(id)
		assert.Len(t, tris, len(ids)*3)
		for _, ti := range ids {
			seen[ti]++
		}
	}
	assert.Len(t, seen, 128)
	for ti, n := range seen {
		assert.Equal(t, 1, n, "triangle %d", ti)
	}
}

func TestChunkyTriMeshOverlap(t *testing.T) {
	verts, tris := gridMesh(8)
	cm, err := NewChunkyTriMesh(verts, tris, 8)
	require.NoError(t, err)

	bmin, bmax := [2]float32{0.2, 0.2}, [2]float32{0.8, 0.8}
	ids := cm.GetChunksOverlappingRect(bmin, bmax)
	require.NotEmpty(t, ids)
	assert.Less(t, len(ids), len(cm.GetChunksOverlappingRect([2]float32{0, 0}, [2]float32{8, 8})))

	// The triangles of the first grid cell are reported.
	found := 0
	for _, id := range ids {
		node := cm.Nodes[id]
		assert.True(t, common.OverlapRect(bmin, bmax, node.Bmin, node.Bmax))
		_, triIds := cm.ChunkTris(id)
		for _, ti := range triIds {
			if ti == 0 || ti == 1 {
				found++
			}
		}
	}
	assert.Equal(t, 2, found)

	assert.Empty(t, cm.GetChunksOverlappingRect([2]float32{20, 20}, [2]float32{30, 30}))
}

func TestChunkyTriMeshInvalid(t *testing.T) {
	verts, tris := quadMesh(0, 0, 1, 1, 0)
	_, err := NewChunkyTriMesh(verts, nil, 4)
	assert.ErrorIs(t, err, common.ErrInvalidParam)
	_, err = NewChunkyTriMesh(verts, tris, 0)
	assert.ErrorIs(t, err, common.ErrInvalidParam)
	_, err = NewChunkyTriMesh(verts, []int32{0, 1, 4}, 4)
	assert.ErrorIs(t, err, common.ErrInvalidParam)
}
