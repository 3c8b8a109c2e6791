package bootimg

import (
	"bytes"
	"encoding/binary"
	"io"

	"lokitool/internal/stream"
)

// Android boot image format constants.
const (
	BootMagic         = "ANDROID!"
	BootMagicSize     = 8
	BootNameSize      = 16
	BootArgsSize      = 512
	BootExtraArgsSize = 1024

	// MaxHeaderOffset bounds the magic scan: some devices prepend a
	// vendor blob before the real header.
	MaxHeaderOffset = 512

	// Kernel/tags load offsets relative to base in the stock mkbootimg
	// layout.
	DefaultKernelOffset = 0x00008000
	DefaultTagsOffset   = 0x00000100
)

// AndroidHeader is the on-disk boot image header (v0), little-endian.
type AndroidHeader struct {
	Magic        [BootMagicSize]byte
	KernelSize   uint32
	KernelAddr   uint32
	RamdiskSize  uint32
	RamdiskAddr  uint32
	SecondSize   uint32
	SecondAddr   uint32
	TagsAddr     uint32
	PageSize     uint32
	DTSize       uint32
	OSVersion    uint32
	Name         [BootNameSize]byte
	Cmdline      [BootArgsSize]byte
	ID           [8]uint32
	ExtraCmdline [BootExtraArgsSize]byte
}

// BoardName returns the board name up to the first NUL.
func (h *AndroidHeader) BoardName() string { return cstr(h.Name[:]) }

// KernelCmdline returns the command line up to the first NUL.
func (h *AndroidHeader) KernelCmdline() string { return cstr(h.Cmdline[:]) }

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// FindAndroidHeader scans the first maxOffset bytes of rs for the
// Android boot magic and decodes the surrounding header. maxOffset is
// capped at MaxHeaderOffset. It returns the header and its byte offset,
// or ErrNotFormat if no magic is found.
func FindAndroidHeader(rs io.ReadSeeker, maxOffset int64) (*AndroidHeader, uint64, error) {
	if maxOffset > MaxHeaderOffset {
		maxOffset = MaxHeaderOffset
	}

	var (
		offset uint64
		found  bool
	)
	err := stream.Search(rs, 0, maxOffset+BootMagicSize, []byte(BootMagic), 1,
		func(_ io.ReadSeeker, off uint64) (stream.SearchAction, error) {
			offset = off
			found = true
			return stream.SearchStop, nil
		})
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, notFormat("Android magic not found in first %d bytes", maxOffset)
	}

	if _, err := rs.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, 0, err
	}
	var hdr AndroidHeader
	raw := make([]byte, binary.Size(&hdr))
	n, err := stream.ReadFully(rs, raw)
	if err != nil {
		return nil, 0, err
	}
	if n != len(raw) {
		return nil, 0, notFormat("too small to be Android image")
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &hdr); err != nil {
		return nil, 0, err
	}
	return &hdr, offset, nil
}

// AlignPage rounds x up to the next multiple of pageSize. pageSize must
// be a power of two.
func AlignPage(x uint64, pageSize uint32) uint64 {
	mask := uint64(pageSize) - 1
	return (x + mask) &^ mask
}
