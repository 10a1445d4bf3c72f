// Package compress archives rotated audit logs.
//
// Supported algorithms:
//   - ZSTD (Zstandard): default, best balance of speed and ratio
//   - Gzip: for archives that must be readable with standard tools
package compress

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// AlgorithmZSTD is the Zstandard compression algorithm.
	AlgorithmZSTD Algorithm = "zstd"

	// AlgorithmGzip is the gzip compression algorithm.
	AlgorithmGzip Algorithm = "gzip"

	// AlgorithmNone leaves rotated files as they are.
	AlgorithmNone Algorithm = "none"
)

// ParseAlgorithm maps a config value onto an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmZSTD, AlgorithmGzip, AlgorithmNone:
		return Algorithm(s), nil
	case "":
		return AlgorithmZSTD, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", s)
	}
}

// Extension returns the file suffix for archives produced with a.
func (a Algorithm) Extension() string {
	switch a {
	case AlgorithmZSTD:
		return ".zst"
	case AlgorithmGzip:
		return ".gz"
	default:
		return ""
	}
}

// NewWriter wraps w with an encoder for a. The caller must Close it.
func NewWriter(w io.Writer, a Algorithm) (io.WriteCloser, error) {
	switch a {
	case AlgorithmZSTD:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer error: %w", err)
		}
		return enc, nil
	case AlgorithmGzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case AlgorithmNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// NewReader wraps r with a decoder for a. The caller must Close it.
func NewReader(r io.Reader, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case AlgorithmZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader error: %w", err)
		}
		return dec.IOReadCloser(), nil
	case AlgorithmGzip:
		return gzip.NewReader(r)
	case AlgorithmNone:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// ArchiveFile compresses src into src plus the algorithm's extension and
// removes src. With AlgorithmNone the file is left untouched.
func ArchiveFile(src string, a Algorithm) (string, error) {
	if a == AlgorithmNone {
		return src, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	dst := src + a.Extension()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	enc, err := NewWriter(out, a)
	if err != nil {
		out.Close()
		return "", err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return "", fmt.Errorf("compress %s: %w", src, err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("compress %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("remove %s: %w", src, err)
	}
	return dst, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
