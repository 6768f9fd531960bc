package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression codecs accepted by OptionCompression.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionGzip = "gzip"
)

// compressionFor picks the codec for path. An explicit option wins over the file suffix.
func compressionFor(path string, options map[string]string) (string, error) {
	if c, ok := options[OptionCompression]; ok {
		switch c = strings.ToLower(c); c {
		case CompressionNone, CompressionZstd, CompressionGzip:
			return c, nil
		default:
			return "", fmt.Errorf("unsupported compression %q", c)
		}
	}

	switch {
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		return CompressionZstd, nil
	case strings.HasSuffix(path, ".gz"):
		return CompressionGzip, nil
	default:
		return CompressionNone, nil
	}
}

// textFile is an opened text file, possibly behind a decompressor.
type textFile struct {
	io.Reader
	file    *os.File
	release func()
}

// openText opens path for reading and applies the configured decompression.
func openText(path string, options map[string]string) (*textFile, error) {
	codec, err := compressionFor(path, options)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch codec {
	case CompressionZstd:
		decoder, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return &textFile{Reader: decoder, file: f, release: decoder.Close}, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &textFile{Reader: gz, file: f, release: func() { _ = gz.Close() }}, nil
	default:
		return &textFile{Reader: f, file: f}, nil
	}
}

// Close releases the decompressor and the file.
func (t *textFile) Close() error {
	if t.release != nil {
		t.release()
	}
	return t.file.Close()
}
