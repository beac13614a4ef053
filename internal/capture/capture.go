// Package capture reads raw firmware log buffers saved to disk.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the little-endian frame magic 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// ErrShortCapture is returned when a capture is smaller than its header.
var ErrShortCapture = errors.New("capture shorter than header")

// ReadFile loads a capture, decompressing zstd frames when the file ends
// in .zst or starts with the zstd magic, and strips headerSize bytes.
func ReadFile(path string, headerSize int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := Read(f, strings.HasSuffix(path, ".zst"), headerSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Read loads a capture from r. compressed forces zstd decoding; otherwise
// it is detected from the magic.
func Read(r io.Reader, compressed bool, headerSize int) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if compressed || bytes.HasPrefix(raw, zstdMagic) {
		raw, err = decompress(raw)
		if err != nil {
			return nil, err
		}
	}

	if headerSize < 0 || len(raw) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, header %d", ErrShortCapture, len(raw), headerSize)
	}
	return raw[headerSize:], nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}
