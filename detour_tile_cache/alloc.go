package detour_tile_cache

// DtTileCacheAlloc hands out scratch memory for a single tile build. Reset
// is called before every build; everything allocated since the previous
// Reset becomes invalid.
type DtTileCacheAlloc interface {
	Reset()
	// Alloc returns size bytes or nil when the allocator is exhausted.
	Alloc(size int) []byte
	Free(ptr []byte)
}

// HeapAlloc allocates every request from the Go heap.
type HeapAlloc struct{}

func (HeapAlloc) Reset() {}

func (HeapAlloc) Alloc(size int) []byte {
	if size < 0 {
		return nil
	}
	return make([]byte, size)
}

func (HeapAlloc) Free([]byte) {}
