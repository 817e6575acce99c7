package detour_tile_cache

import (
	"fmt"

	"github.com/gorustyt/navtilecache/common"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// DtTileCacheCompressor compresses layer grids. Implementations are stateless
// per call and safe for concurrent use.
type DtTileCacheCompressor interface {
	// MaxCompressedSize returns the worst case output size for bufferSize input bytes.
	MaxCompressedSize(bufferSize int) int
	// Compress writes the compressed form of buffer into dst[:0]. cap(dst)
	// must be at least MaxCompressedSize(len(buffer)).
	Compress(dst, buffer []byte) ([]byte, error)
	// Decompress writes at most len(dst) bytes into dst and returns the used prefix.
	Decompress(dst, compressed []byte) ([]byte, error)
}

const (
	CompressorS2     = "s2"
	CompressorSnappy = "snappy"
	CompressorZstd   = "zstd"
	CompressorRaw    = "raw"
)

// NewCompressor returns the codec registered under name. An empty name selects s2.
func NewCompressor(name string) (DtTileCacheCompressor, error) {
	switch name {
	case "", CompressorS2:
		return S2Compressor{}, nil
	case CompressorSnappy:
		return SnappyCompressor{}, nil
	case CompressorZstd:
		return NewZstdCompressor()
	case CompressorRaw:
		return RawCompressor{}, nil
	}
	return nil, fmt.Errorf("unknown compressor %q: %w", name, common.ErrInvalidParam)
}

func checkDst(c DtTileCacheCompressor, dst, buffer []byte) error {
	need := c.MaxCompressedSize(len(buffer))
	if need < 0 || cap(dst) < need {
		return fmt.Errorf("compress: need %d bytes, have %d: %w", need, cap(dst), common.ErrAllocationFailure)
	}
	return nil
}

// S2Compressor uses the s2 block format.
type S2Compressor struct{}

func (S2Compressor) MaxCompressedSize(bufferSize int) int {
	return s2.MaxEncodedLen(bufferSize)
}

func (c S2Compressor) Compress(dst, buffer []byte) ([]byte, error) {
	if err := checkDst(c, dst, buffer); err != nil {
		return nil, err
	}
	return s2.Encode(dst[:cap(dst)], buffer), nil
}

func (S2Compressor) Decompress(dst, compressed []byte) ([]byte, error) {
	return decodeS2(dst, compressed)
}

func decodeS2(dst, compressed []byte) ([]byte, error) {
	n, err := s2.DecodedLen(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress: %v: %w", err, common.ErrCorruptData)
	}
	if n > len(dst) {
		return nil, fmt.Errorf("decompress: %d bytes exceed buffer of %d: %w", n, len(dst), common.ErrCorruptData)
	}
	out, err := s2.Decode(dst, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress: %v: %w", err, common.ErrCorruptData)
	}
	return out, nil
}

// SnappyCompressor writes snappy compatible blocks through s2.
type SnappyCompressor struct{}

func (SnappyCompressor) MaxCompressedSize(bufferSize int) int {
	return s2.MaxEncodedLen(bufferSize)
}

func (c SnappyCompressor) Compress(dst, buffer []byte) ([]byte, error) {
	if err := checkDst(c, dst, buffer); err != nil {
		return nil, err
	}
	return s2.EncodeSnappy(dst[:cap(dst)], buffer), nil
}

func (SnappyCompressor) Decompress(dst, compressed []byte) ([]byte, error) {
	return decodeS2(dst, compressed)
}

// ZstdCompressor shares one encoder and decoder; EncodeAll and DecodeAll
// may be called concurrently. Decompress never produces more than
// maxLayerGridBytes.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewZstdCompressor() (*ZstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	// Frames without a content size are only bounded by the decoder limit.
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(uint64(maxLayerGridBytes)))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ZstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (*ZstdCompressor) MaxCompressedSize(bufferSize int) int {
	bound := bufferSize + bufferSize>>8
	if bufferSize < 128<<10 {
		bound += (128<<10 - bufferSize) >> 11
	}
	return bound + 64 // frame header and checksum
}

func (c *ZstdCompressor) Compress(dst, buffer []byte) ([]byte, error) {
	if err := checkDst(c, dst, buffer); err != nil {
		return nil, err
	}
	out := c.encoder.EncodeAll(buffer, dst[:0])
	if len(out) > cap(dst) {
		return nil, fmt.Errorf("compress: zstd output %d exceeds %d: %w", len(out), cap(dst), common.ErrAllocationFailure)
	}
	return out, nil
}

func (c *ZstdCompressor) Decompress(dst, compressed []byte) ([]byte, error) {
	var h zstd.Header
	if err := h.Decode(compressed); err != nil {
		return nil, fmt.Errorf("decompress: %v: %w", err, common.ErrCorruptData)
	}
	if h.HasFCS && h.FrameContentSize > uint64(len(dst)) {
		return nil, fmt.Errorf("decompress: %d bytes exceed buffer of %d: %w", h.FrameContentSize, len(dst), common.ErrCorruptData)
	}
	out, err := c.decoder.DecodeAll(compressed, dst[:0])
	if err != nil {
		return nil, fmt.Errorf("decompress: %v: %w", err, common.ErrCorruptData)
	}
	if len(out) > len(dst) {
		return nil, fmt.Errorf("decompress: %d bytes exceed buffer of %d: %w", len(out), len(dst), common.ErrCorruptData)
	}
	return out, nil
}

func (c *ZstdCompressor) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

// RawCompressor stores the grids as is.
type RawCompressor struct{}

func (RawCompressor) MaxCompressedSize(bufferSize int) int { return bufferSize }

func (c RawCompressor) Compress(dst, buffer []byte) ([]byte, error) {
	if err := checkDst(c, dst, buffer); err != nil {
		return nil, err
	}
	return append(dst[:0], buffer...), nil
}

func (RawCompressor) Decompress(dst, compressed []byte) ([]byte, error) {
	if len(compressed) > len(dst) {
		return nil, fmt.Errorf("decompress: %d bytes exceed buffer of %d: %w", len(compressed), len(dst), common.ErrCorruptData)
	}
	return dst[:copy(dst, compressed)], nil
}
