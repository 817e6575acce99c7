package tile_builder

import (
	"github.com/gorustyt/navtilecache/detour_tile_cache"
)

var _ detour_tile_cache.DtTileCacheAlloc = (*LinearAllocator)(nil)

// LinearAllocator is a bump allocator over one fixed buffer. Memory is only
// reclaimed in bulk by Reset; Free does nothing.
type LinearAllocator struct {
	buffer     []byte
	capacity   int
	top        int
	high       int
	generation int
}

func NewLinearAllocator(capacity int) *LinearAllocator {
	a := &LinearAllocator{}
	a.Resize(capacity)
	return a
}

// Resize drops the current buffer and allocates a new one. Every slice handed
// out before the call must no longer be used.
func (a *LinearAllocator) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	a.buffer = make([]byte, capacity)
	a.capacity = capacity
	a.high = max(a.high, a.top)
	a.top = 0
	a.generation++
}

func (a *LinearAllocator) Reset() {
	a.high = max(a.high, a.top)
	a.top = 0
}

// Alloc returns size bytes past the current top, or nil when they do not fit.
// The returned slice is not zeroed.
func (a *LinearAllocator) Alloc(size int) []byte {
	if size < 0 || a.top+size > a.capacity {
		return nil
	}
	mem := a.buffer[a.top : a.top+size : a.top+size]
	a.top += size
	return mem
}

func (a *LinearAllocator) Free([]byte) {}

func (a *LinearAllocator) Capacity() int   { return a.capacity }
func (a *LinearAllocator) Top() int        { return a.top }
func (a *LinearAllocator) High() int       { return max(a.high, a.top) }
func (a *LinearAllocator) Generation() int { return a.generation }
