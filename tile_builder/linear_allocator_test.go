package tile_builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearAllocatorAlloc(t *testing.T) {
	a := NewLinearAllocator(64)
	require.Equal(t, 64, a.Capacity())

	b1 := a.Alloc(16)
	b2 := a.Alloc(32)
	require.Len(t, b1, 16)
	require.Len(t, b2, 32)
	assert.Equal(t, 48, a.Top())

	// Blocks do not alias.
	for i := range b1 {
		b1[i] = 1
	}
	for i := range b2 {
		b2[i] = 2
	}
	for _, v := range b1 {
		assert.Equal(t, byte(1), v)
	}
	b1 = append(b1, 9)
	assert.Equal(t, byte(2), b2[0])

	assert.Nil(t, a.Alloc(17))
	assert.Equal(t, 48, a.Top())
	assert.NotNil(t, a.Alloc(16))
	assert.Nil(t, a.Alloc(1))
	assert.Nil(t, a.Alloc(-1))
}

func TestLinearAllocatorReset(t *testing.T) {
	a := NewLinearAllocator(100)
	a.Alloc(40)
	a.Free(a.Alloc(20))
	assert.Equal(t, 60, a.Top())

	a.Reset()
	assert.Equal(t, 0, a.Top())
	assert.Equal(t, 60, a.High())

	a.Alloc(10)
	assert.Equal(t, 60, a.High())
	a.Alloc(80)
	assert.Equal(t, 90, a.High())
	assert.Len(t, a.Alloc(10), 10)
}

func TestLinearAllocatorResetTwice(t *testing.T) {
	a := NewLinearAllocator(64)
	a.Alloc(24)
	a.Reset()
	a.Reset()
	assert.Equal(t, 0, a.Top())
	assert.Equal(t, 24, a.High())

	fresh := NewLinearAllocator(64)
	fresh.Reset()
	fresh.Reset()
	assert.Equal(t, 0, fresh.Top())
	assert.Equal(t, 0, fresh.High())
}

func TestLinearAllocatorResize(t *testing.T) {
	a := NewLinearAllocator(8)
	gen := a.Generation()
	a.Alloc(8)

	a.Resize(32)
	assert.Equal(t, gen+1, a.Generation())
	assert.Equal(t, 0, a.Top())
	assert.Equal(t, 8, a.High(), "peak before the resize is kept")
	assert.Equal(t, 32, a.Capacity())
	assert.Len(t, a.Alloc(32), 32)

	a.Resize(-5)
	assert.Equal(t, 0, a.Capacity())
	assert.Nil(t, a.Alloc(1))
	assert.NotNil(t, a.Alloc(0))
}
