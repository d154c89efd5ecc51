package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4"
)

// NoCompressor implements a pass-through compressor that doesn't compress data.
type NoCompressor struct{}

// Name returns the name of the compressor.
func (c *NoCompressor) Name() string {
	return "none"
}

// Compress returns the data unchanged.
func (c *NoCompressor) Compress(data []byte) ([]byte, error) {
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Decompress returns the data unchanged.
func (c *NoCompressor) Decompress(data []byte) ([]byte, error) {
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Frame markers for LZ4 values. Incompressible payloads are stored raw so
// decompression never has to guess the output size.
const (
	frameRaw byte = 0
	frameLZ4 byte = 1
)

// LZ4Compressor implements LZ4 block compression with a small frame
// carrying the uncompressed length.
type LZ4Compressor struct{}

// Name returns the name of the compressor.
func (c *LZ4Compressor) Name() string {
	return "lz4"
}

// Compress compresses data using LZ4. Data that does not shrink is stored
// raw behind a marker byte.
func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{frameRaw}, nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 || n >= len(data) {
		// Incompressible
		out := make([]byte, 1+len(data))
		out[0] = frameRaw
		copy(out[1:], data)
		return out, nil
	}

	out := make([]byte, 5+n)
	out[0] = frameLZ4
	binary.BigEndian.PutUint32(out[1:5], uint32(len(data)))
	copy(out[5:], compressed[:n])
	return out, nil
}

// Decompress decompresses a framed LZ4 value.
func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("lz4 decompression: empty input")
	}

	switch data[0] {
	case frameRaw:
		out := make([]byte, len(data)-1)
		copy(out, data[1:])
		return out, nil
	case frameLZ4:
		if len(data) < 5 {
			return nil, fmt.Errorf("lz4 decompression: truncated frame")
		}
		size := binary.BigEndian.Uint32(data[1:5])
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data[5:], out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("lz4 decompression: unknown frame marker %d", data[0])
	}
}
