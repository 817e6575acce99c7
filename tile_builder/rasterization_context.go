package tile_builder

import (
	"fmt"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/recast"
	"github.com/zeebo/xxh3"
)

// MAX_LAYERS bounds the number of layers one tile column may produce.
const MAX_LAYERS = 32

// TileCacheData is one compressed layer blob.
type TileCacheData struct {
	Data   []byte
	Digest uint64 // xxh3 of Data
}

func NewTileCacheData(data []byte) TileCacheData {
	return TileCacheData{Data: data, Digest: xxh3.Hash(data)}
}

func (t TileCacheData) DataSize() int { return len(t.Data) }

// RasterizationContext owns every intermediate of a single tile build. Release
// drops them all, whether the build finished or not.
type RasterizationContext struct {
	solid    *recast.RcHeightfield
	triareas []uint8
	lset     *recast.RcHeightfieldLayerSet
	chf      *recast.RcCompactHeightfield
	tiles    [MAX_LAYERS]TileCacheData
	ntiles   int

	alloc    *LinearAllocator
	released bool
	freed    int
}

// NewRasterizationContext binds a context to the arena the build draws its
// scratch memory from.
func NewRasterizationContext(alloc *LinearAllocator) *RasterizationContext {
	return &RasterizationContext{alloc: alloc}
}

// allocTriAreas takes a zeroed area buffer for n triangles from the arena.
func (rc *RasterizationContext) allocTriAreas(n int) error {
	buf := rc.alloc.Alloc(n)
	if buf == nil {
		return fmt.Errorf("rasterize: %d triangle areas from a %d byte arena: %w",
			n, rc.alloc.Capacity(), common.ErrAllocationFailure)
	}
	clear(buf)
	rc.triareas = buf
	return nil
}

// freeSolid drops the voxel heightfield once the compact one is built.
func (rc *RasterizationContext) freeSolid() {
	if rc.solid != nil {
		rc.solid = nil
		rc.freed++
	}
}

func (rc *RasterizationContext) addTile(data []byte) error {
	if rc.ntiles >= MAX_LAYERS {
		return fmt.Errorf("rasterize: more than %d layers: %w", MAX_LAYERS, common.ErrCapacityExceeded)
	}
	rc.tiles[rc.ntiles] = NewTileCacheData(data)
	rc.ntiles++
	return nil
}

func (rc *RasterizationContext) TileCount() int { return rc.ntiles }

// TakeTiles hands the compressed layers to the caller. They are no longer
// owned by the context.
func (rc *RasterizationContext) TakeTiles() []TileCacheData {
	tiles := make([]TileCacheData, rc.ntiles)
	copy(tiles, rc.tiles[:rc.ntiles])
	for i := 0; i < rc.ntiles; i++ {
		rc.tiles[i] = TileCacheData{}
	}
	rc.ntiles = 0
	return tiles
}

// Release frees every resource still owned by the context and rewinds the
// arena. Calling it again is a no-op.
func (rc *RasterizationContext) Release() {
	if rc.released {
		return
	}
	rc.released = true
	rc.freeSolid()
	if rc.triareas != nil {
		rc.alloc.Free(rc.triareas)
		rc.triareas = nil
		rc.freed++
	}
	if rc.lset != nil {
		rc.lset = nil
		rc.freed++
	}
	if rc.chf != nil {
		rc.chf = nil
		rc.freed++
	}
	for i := 0; i < rc.ntiles; i++ {
		rc.tiles[i] = TileCacheData{}
		rc.freed++
	}
	rc.ntiles = 0
	if rc.alloc != nil {
		rc.alloc.Reset()
	}
}

// Freed reports how many owned resources Release dropped.
func (rc *RasterizationContext) Freed() int { return rc.freed }
