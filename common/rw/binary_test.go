package rw

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteInt32(-7)
	w.WriteUInt16(0xbeef)
	w.WriteFloat32s([]float32{1.5, -2.25})
	w.WriteUInt8s([]uint8{1, 2, 3})
	require.NoError(t, w.Err())
	assert.EqualValues(t, 4+2+8+3, w.Size())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	assert.EqualValues(t, -7, r.ReadInt32())
	assert.EqualValues(t, 0xbeef, r.ReadUInt16())
	f := make([]float32, 2)
	r.ReadFloat32s(f)
	assert.Equal(t, []float32{1.5, -2.25}, f)
	assert.Equal(t, []byte{1, 2, 3}, r.ReadBytes(3))
	require.NoError(t, r.Err())
}

func TestReaderShortInput(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	assert.EqualValues(t, 0, r.ReadUInt32())
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
	// sticky
	assert.EqualValues(t, 0, r.ReadUInt8())
	assert.Nil(t, r.ReadBytes(4))
}
