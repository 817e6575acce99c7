package tile_builder

import (
	"fmt"
	"sort"

	"github.com/gorustyt/navtilecache/common"
)

type ChunkyTriMeshNode struct {
	Bmin [2]float32
	Bmax [2]float32
	I    int // first triangle of a leaf; negative escape offset on inner nodes
	N    int
}

// ChunkyTriMesh is an AABB tree over the xz footprint of a triangle mesh.
// Leaves hold at most trisPerChunk triangles, stored contiguously in Tris.
type ChunkyTriMesh struct {
	Nodes           []ChunkyTriMeshNode
	Tris            []int32
	TriIds          []int32 // source triangle index of every entry in Tris
	MaxTrisPerChunk int
}

type boundsItem struct {
	bmin [2]float32
	bmax [2]float32
	i    int
}

func calcExtends(items []boundsItem) (bmin, bmax [2]float32) {
	bmin = items[0].bmin
	bmax = items[0].bmax
	for _, it := range items[1:] {
		bmin[0] = min(bmin[0], it.bmin[0])
		bmin[1] = min(bmin[1], it.bmin[1])
		bmax[0] = max(bmax[0], it.bmax[0])
		bmax[1] = max(bmax[1], it.bmax[1])
	}
	return bmin, bmax
}

func longestAxis(x, y float32) int {
	if y > x {
		return 1
	}
	return 0
}

func (cm *ChunkyTriMesh) subdivide(items []boundsItem, trisPerChunk int, inTris []int32) {
	cur := len(cm.Nodes)
	cm.Nodes = append(cm.Nodes, ChunkyTriMeshNode{})
	bmin, bmax := calcExtends(items)
	cm.Nodes[cur].Bmin = bmin
	cm.Nodes[cur].Bmax = bmax

	if len(items) <= trisPerChunk {
		// Leaf
		cm.Nodes[cur].I = len(cm.TriIds)
		cm.Nodes[cur].N = len(items)
		for _, it := range items {
			cm.Tris = append(cm.Tris, inTris[it.i*3:it.i*3+3]...)
			cm.TriIds = append(cm.TriIds, int32(it.i))
		}
		return
	}

	// Split
	axis := longestAxis(bmax[0]-bmin[0], bmax[1]-bmin[1])
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].bmin[axis] < items[j].bmin[axis]
	})
	isplit := len(items) / 2
	cm.subdivide(items[:isplit], trisPerChunk, inTris)
	cm.subdivide(items[isplit:], trisPerChunk, inTris)

	// Negative index means escape.
	cm.Nodes[cur].I = -(len(cm.Nodes) - cur)
}

// NewChunkyTriMesh partitions the triangles into chunks of at most
// trisPerChunk.
func NewChunkyTriMesh(verts []float32, tris []int32, trisPerChunk int) (*ChunkyTriMesh, error) {
	ntris := len(tris) / 3
	if ntris == 0 || trisPerChunk <= 0 {
		return nil, fmt.Errorf("chunky mesh: %d triangles, %d per chunk: %w", ntris, trisPerChunk, common.ErrInvalidParam)
	}
	nverts := int32(len(verts) / 3)

	items := make([]boundsItem, ntris)
	for i := range items {
		t := tris[i*3 : i*3+3]
		for _, v := range t {
			if v < 0 || v >= nverts {
				return nil, fmt.Errorf("chunky mesh: triangle %d references vertex %d of %d: %w",
					i, v, nverts, common.ErrInvalidParam)
			}
		}
		it := &items[i]
		it.i = i
		// Calc triangle XZ bounds.
		it.bmin = [2]float32{verts[t[0]*3+0], verts[t[0]*3+2]}
		it.bmax = it.bmin
		for _, v := range t[1:] {
			it.bmin[0] = min(it.bmin[0], verts[v*3+0])
			it.bmin[1] = min(it.bmin[1], verts[v*3+2])
			it.bmax[0] = max(it.bmax[0], verts[v*3+0])
			it.bmax[1] = max(it.bmax[1], verts[v*3+2])
		}
	}

	nchunks := (ntris + trisPerChunk - 1) / trisPerChunk
	cm := &ChunkyTriMesh{
		Nodes:  make([]ChunkyTriMeshNode, 0, nchunks*4),
		Tris:   make([]int32, 0, ntris*3),
		TriIds: make([]int32, 0, ntris),
	}
	cm.subdivide(items, trisPerChunk, tris)

	// Calc max tris per node.
	for _, node := range cm.Nodes {
		if node.I >= 0 {
			cm.MaxTrisPerChunk = max(cm.MaxTrisPerChunk, node.N)
		}
	}
	return cm, nil
}

// GetChunksOverlappingRect returns the leaf nodes whose bounds touch the
// xz rectangle.
func (cm *ChunkyTriMesh) GetChunksOverlappingRect(bmin, bmax [2]float32) []int {
	var ids []int
	// Traverse tree
	for i := 0; i < len(cm.Nodes); {
		node := &cm.Nodes[i]
		overlap := common.OverlapRect(bmin, bmax, node.Bmin, node.Bmax)
		isLeafNode := node.I >= 0

		if isLeafNode && overlap {
			ids = append(ids, i)
		}

		if overlap || isLeafNode {
			i++
		} else {
			i += -node.I
		}
	}
	return ids
}

// ChunkTris returns the triangles of a leaf and their source indices.
func (cm *ChunkyTriMesh) ChunkTris(node int) (tris, triIds []int32) {
	n := cm.Nodes[node]
	return cm.Tris[n.I*3 : (n.I+n.N)*3], cm.TriIds[n.I : n.I+n.N]
}
