package compress

// Ramdisk codec detection + decompression.
// R: gzip, zstd, lz4 (frame + legacy), xz, lzma, bzip2
// Names: none|auto|gzip|gz|zstd|zst|lz4|lzma|xz|bzip2|bz2

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

var ErrUnsupported = errors.New("compress: unsupported codec")

func normalize(name string) string {
	switch name {
	case "", "auto":
		return "auto"
	case "none", "raw":
		return "none"
	case "gz":
		return "gzip"
	case "zst":
		return "zstd"
	case "bz2":
		return "bzip2"
	default:
		return name
	}
}

// Detect sniffs the codec from magic bytes. Ramdisks are gzip in the
// wild for anything Loki touched, but modern repacks use the rest.
func Detect(data []byte) string {
	switch {
	case len(data) >= 2 && data[0] == 0x1f && (data[1] == 0x8b || data[1] == 0x9e):
		return "gzip"
	case len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd:
		return "zstd"
	case len(data) >= 4 && data[0] == 0x04 && data[1] == 0x22 && data[2] == 0x4d && data[3] == 0x18:
		return "lz4"
	case len(data) >= 4 && data[0] == 0x02 && data[1] == 0x21 && data[2] == 0x4c && data[3] == 0x18:
		return "lz4" // legacy frame
	case len(data) >= 6 && bytes.Equal(data[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return "xz"
	case len(data) >= 13 && data[0] == 0x5d && data[1] == 0x00 && data[2] == 0x00 &&
		(data[12] == 0xff || data[12] == 0x00):
		return "lzma"
	case len(data) >= 3 && data[0] == 'B' && data[1] == 'Z' && data[2] == 'h':
		return "bzip2"
	default:
		return "none"
	}
}

// DecompressAuto sniffs and decompresses in one step, reporting the
// codec it found. Unknown data passes through unchanged.
func DecompressAuto(in []byte) ([]byte, string, error) {
	kind := Detect(in)
	if kind == "none" {
		return in, "none", nil
	}
	out, err := Decompress(in, kind)
	return out, kind, err
}

func Decompress(in []byte, name string) ([]byte, error) {
	switch normalize(name) {
	case "none":
		return in, nil
	case "auto":
		out, _, err := DecompressAuto(in)
		return out, err
	default:
		r, err := NewReader(normalize(name), bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
}

// NewReader wraps r with the named codec's decompressor.
func NewReader(name string, r io.Reader) (io.ReadCloser, error) {
	switch normalize(name) {
	case "gzip":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case "zstd":
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case "lz4":
		return io.NopCloser(lz4.NewReader(r)), nil
	case "xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case "lzma":
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	case "bzip2":
		br, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
		if err != nil {
			return nil, err
		}
		return br, nil
	default:
		return nil, ErrUnsupported
	}
}

// Ext returns the conventional file extension for a codec name, used
// when naming extracted segments.
func Ext(name string) string {
	switch normalize(name) {
	case "gzip":
		return ".gz"
	case "zstd":
		return ".zst"
	case "lz4":
		return ".lz4"
	case "xz":
		return ".xz"
	case "lzma":
		return ".lzma"
	case "bzip2":
		return ".bz2"
	default:
		return ""
	}
}
