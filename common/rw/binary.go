package rw

import (
	"encoding/binary"
	"io"
	"math"
)

// Reader decodes little-endian primitives from an io.Reader. The first error
// sticks: later reads return zero values and Err reports it.
type Reader struct {
	order   binary.ByteOrder
	dataBuf [8]byte
	r       io.Reader
	n       int64
	err     error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{order: binary.LittleEndian, r: r}
}

func (rd *Reader) Err() error { return rd.err }

// Offset returns the number of bytes consumed so far.
func (rd *Reader) Offset() int64 { return rd.n }

func (rd *Reader) read(buf []byte) {
	if rd.err != nil {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	n, err := io.ReadFull(rd.r, buf)
	rd.n += int64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		rd.err = err
		for i := range buf {
			buf[i] = 0
		}
	}
}

func (rd *Reader) ReadUInt8() uint8 {
	rd.read(rd.dataBuf[:1])
	return rd.dataBuf[0]
}

func (rd *Reader) ReadUInt8s(value []uint8) {
	rd.read(value)
}

func (rd *Reader) ReadUInt16() uint16 {
	rd.read(rd.dataBuf[:2])
	return rd.order.Uint16(rd.dataBuf[:2])
}

func (rd *Reader) ReadUInt32() uint32 {
	rd.read(rd.dataBuf[:4])
	return rd.order.Uint32(rd.dataBuf[:4])
}

func (rd *Reader) ReadInt32() int32 {
	return int32(rd.ReadUInt32())
}

func (rd *Reader) ReadInt32s(value []int32) {
	for i := range value {
		value[i] = rd.ReadInt32()
	}
}

func (rd *Reader) ReadFloat32() float32 {
	return math.Float32frombits(rd.ReadUInt32())
}

func (rd *Reader) ReadFloat32s(value []float32) {
	for i := range value {
		value[i] = rd.ReadFloat32()
	}
}

// ReadBytes reads exactly n bytes into a freshly allocated slice.
func (rd *Reader) ReadBytes(n int) []byte {
	if n < 0 {
		return nil
	}
	buf := make([]byte, n)
	rd.read(buf)
	if rd.err != nil {
		return nil
	}
	return buf
}

// Writer encodes little-endian primitives into an io.Writer, keeping the
// first error.
type Writer struct {
	order   binary.ByteOrder
	dataBuf [8]byte
	w       io.Writer
	n       int64
	err     error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{order: binary.LittleEndian, w: w}
}

func (wr *Writer) Err() error { return wr.err }

// Size returns the number of bytes written so far.
func (wr *Writer) Size() int64 { return wr.n }

func (wr *Writer) write(buf []byte) {
	if wr.err != nil {
		return
	}
	n, err := wr.w.Write(buf)
	wr.n += int64(n)
	if err != nil {
		wr.err = err
	}
}

func (wr *Writer) WriteUInt8(v uint8) {
	wr.dataBuf[0] = v
	wr.write(wr.dataBuf[:1])
}

func (wr *Writer) WriteUInt8s(v []uint8) {
	wr.write(v)
}

func (wr *Writer) WriteUInt16(v uint16) {
	wr.order.PutUint16(wr.dataBuf[:2], v)
	wr.write(wr.dataBuf[:2])
}

func (wr *Writer) WriteUInt32(v uint32) {
	wr.order.PutUint32(wr.dataBuf[:4], v)
	wr.write(wr.dataBuf[:4])
}

func (wr *Writer) WriteInt32(v int32) {
	wr.WriteUInt32(uint32(v))
}

func (wr *Writer) WriteInt32s(v []int32) {
	for _, tmp := range v {
		wr.WriteInt32(tmp)
	}
}

func (wr *Writer) WriteFloat32(v float32) {
	wr.WriteUInt32(math.Float32bits(v))
}

func (wr *Writer) WriteFloat32s(v []float32) {
	for _, tmp := range v {
		wr.WriteFloat32(tmp)
	}
}

func (wr *Writer) PadZero(n int) {
	for i := 0; i < n; i++ {
		wr.WriteUInt8(0)
	}
}
