package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressionType represents the type of compression algorithm
type CompressionType int

const (
	// None represents no compression
	None CompressionType = iota
	// Gzip represents gzip compression
	Gzip
	// Zstd represents zstandard compression
	Zstd
)

// String returns the string representation of the compression type
func (ct CompressionType) String() string {
	switch ct {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Extension returns the file suffix used for the type, including the dot.
func (ct CompressionType) Extension() string {
	switch ct {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// ParseType maps a settings value to a CompressionType.
func ParseType(name string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

// Compressor interface defines methods for data compression
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Type() CompressionType
}

type gzipCompressor struct {
	level int
}

// NewGzipCompressor creates a gzip compressor with the given level
func NewGzipCompressor(level int) Compressor {
	return &gzipCompressor{level: level}
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, gc.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data to gzip writer: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()
	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from gzip reader: %w", err)
	}
	return result, nil
}

func (gc *gzipCompressor) Type() CompressionType { return Gzip }

type zstdCompressor struct{}

// NewZstdCompressor creates a zstandard compressor
func NewZstdCompressor() Compressor { return zstdCompressor{} }

func (zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode zstd data: %w", err)
	}
	return out, nil
}

func (zstdCompressor) Type() CompressionType { return Zstd }

type noneCompressor struct{}

// NewNoneCompressor creates a compressor that passes data through
func NewNoneCompressor() Compressor { return noneCompressor{} }

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Type() CompressionType                  { return None }

// NewCompressor creates a new compressor based on the specified type
func NewCompressor(cType CompressionType) Compressor {
	switch cType {
	case Gzip:
		return NewGzipCompressor(gzip.DefaultCompression)
	case Zstd:
		return NewZstdCompressor()
	default:
		return NewNoneCompressor()
	}
}

// IsCompressed checks the magic bytes of data
func IsCompressed(data []byte) CompressionType {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		return Gzip
	}
	if len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd {
		return Zstd
	}
	return None
}

// DecompressAuto detects the format by magic bytes and decompresses;
// unrecognised data is returned as is.
func DecompressAuto(data []byte) ([]byte, error) {
	return NewCompressor(IsCompressed(data)).Decompress(data)
}
