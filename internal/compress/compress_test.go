package compress

import (
	"bytes"
	"compress/gzip"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, "gzip"},
		{"gzip old", []byte{0x1f, 0x9e, 0x00, 0x00}, "gzip"},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd}, "zstd"},
		{"lz4 frame", []byte{0x04, 0x22, 0x4d, 0x18}, "lz4"},
		{"lz4 legacy", []byte{0x02, 0x21, 0x4c, 0x18}, "lz4"},
		{"xz", []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, "xz"},
		{"bzip2", []byte("BZh91AY"), "bzip2"},
		{"cpio", []byte("070701000000"), "none"},
		{"short", []byte{0x1f}, "none"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.data); got != tc.want {
				t.Fatalf("Detect = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGzipRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("070701 cpio entry "), 64)
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	out, kind, err := DecompressAuto(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if kind != "gzip" {
		t.Fatalf("kind = %q, want gzip", kind)
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("round trip mismatch")
	}
}

func TestZstdRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("ramdisk data "), 128)
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	out, kind, err := DecompressAuto(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if kind != "zstd" || !bytes.Equal(out, plain) {
		t.Fatalf("kind = %q, match = %v", kind, bytes.Equal(out, plain))
	}
}

func TestLz4RoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("kernel data "), 128)
	var buf bytes.Buffer
	lw := lz4.NewWriter(&buf)
	if _, err := lw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := lw.Close(); err != nil {
		t.Fatal(err)
	}

	out, kind, err := DecompressAuto(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if kind != "lz4" || !bytes.Equal(out, plain) {
		t.Fatalf("kind = %q, match = %v", kind, bytes.Equal(out, plain))
	}
}

func TestPassThrough(t *testing.T) {
	plain := []byte("just bytes")
	out, kind, err := DecompressAuto(plain)
	if err != nil {
		t.Fatal(err)
	}
	if kind != "none" || !bytes.Equal(out, plain) {
		t.Fatalf("kind = %q", kind)
	}
}

func TestUnsupportedCodec(t *testing.T) {
	if _, err := Decompress([]byte("x"), "lzop"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestExt(t *testing.T) {
	if got := Ext("gzip"); got != ".gz" {
		t.Fatalf("Ext(gzip) = %q", got)
	}
	if got := Ext("none"); got != "" {
		t.Fatalf("Ext(none) = %q", got)
	}
}
