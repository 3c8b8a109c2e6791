// Package loki reads Android boot images patched by the Loki exploit
// tool. Loki overwrites parts of the Android header, relocates image
// data and stashes a copy of the aboot bootloader at the end of the
// file; this package reconstructs the original layout from what the
// patcher leaves behind.
package loki

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"lokitool/internal/image/bootimg"
	"lokitool/internal/stream"
)

const (
	Magic       = "LOKI"
	MagicSize   = 4
	MagicOffset = 0x400

	// MaxHeaderOffset bounds the Android magic scan during bidding. A
	// Loki image always starts with the (mangled) Android header, so
	// the magic sits right at the front.
	MaxHeaderOffset = 32

	// jflteRamdiskOffset is the ramdisk load offset relative to the
	// kernel address in the Samsung Galaxy S4 default layout
	// (-0x00008000 + 0x02000000).
	jflteRamdiskOffset = 0x01ff8000

	// zImageSizeOffset is where the ARM zImage header stores the image
	// size (zreladdr-relative _edata), counted from the kernel start.
	zImageSizeOffset = 0x2c

	// abootTailSize is the space Loki reserves at the end of the file
	// for the aboot copy on non-LG devices; LG devices reserve a full
	// page instead.
	abootTailSize = 0x200
)

// shellcode is the ARM blob the Loki patcher injects. The trailing
// nine bytes are a patch slot, so scans match only the prefix before it
// and the recovered ramdisk address is read out of the slot itself.
var shellcode = []byte{
	0xfe, 0xb5, 0x0d, 0x4d, 0xd5, 0xf8, 0x88, 0x04,
	0xab, 0x68, 0x98, 0x42, 0x12, 0xd0, 0xd5, 0xf8,
	0x90, 0x64, 0x0a, 0x4c, 0xd5, 0xf8, 0x8c, 0x74,
	0x07, 0xf5, 0x80, 0x57, 0x0f, 0xce, 0x0f, 0xc4,
	0x10, 0x3f, 0xfb, 0xdc, 0xd5, 0xf8, 0x88, 0x04,
	0x04, 0x49, 0xd5, 0xf8, 0x8c, 0x24, 0xa8, 0x60,
	0x69, 0x61, 0x2a, 0x61, 0x00, 0x20, 0xfe, 0xbd,
	0xff, 0xff, 0xff, 0xff, 0xee, 0xee, 0xee, 0xee,
}

const (
	shellcodeSize      = 64
	shellcodeMatchLen  = shellcodeSize - 9
	shellcodeAddrShift = shellcodeSize - 5
)

// Header is the metadata block the Loki patcher writes at MagicOffset.
// Integer fields are little-endian on disk.
type Header struct {
	Magic           [MagicSize]byte
	Recovery        uint32
	Build           [128]byte
	OrigKernelSize  uint32
	OrigRamdiskSize uint32
	RamdiskAddr     uint32
}

// BuildID returns the build identifier up to the first NUL.
func (h *Header) BuildID() string {
	b := h.Build[:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// findHeader seeks to MagicOffset, reads the Loki metadata block and
// validates its magic. A missing or short block is a soft failure.
func findHeader(rs io.ReadSeeker) (*Header, uint64, error) {
	if _, err := rs.Seek(MagicOffset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("%w: Loki magic not found: %v", bootimg.ErrNotFormat, err)
	}

	var hdr Header
	raw := make([]byte, binary.Size(&hdr))
	n, err := stream.ReadFully(rs, raw)
	if err != nil {
		return nil, 0, err
	}
	if n != len(raw) {
		return nil, 0, fmt.Errorf("%w: too small to be Loki image", bootimg.ErrNotFormat)
	}
	if !bytes.Equal(raw[:MagicSize], []byte(Magic)) {
		return nil, 0, fmt.Errorf("%w: invalid Loki magic", bootimg.ErrNotFormat)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &hdr); err != nil {
		return nil, 0, err
	}
	return &hdr, MagicOffset, nil
}

// findRamdiskAddress recovers the pre-patch ramdisk load address.
// Images patched by newer Loki versions carry the address inside the
// injected shellcode; older ones fall back to the jflte layout.
func findRamdiskAddress(rs io.ReadSeeker, hdr *bootimg.AndroidHeader, lokiHdr *Header) (uint32, error) {
	if lokiHdr.RamdiskAddr == 0 {
		if hdr.KernelAddr > 0xffffffff-jflteRamdiskOffset {
			return 0, fmt.Errorf("%w: invalid kernel address %#x",
				bootimg.ErrFormat, hdr.KernelAddr)
		}
		return hdr.KernelAddr + jflteRamdiskOffset, nil
	}

	var (
		offset uint64
		found  bool
	)
	err := stream.Search(rs, -1, -1, shellcode[:shellcodeMatchLen], 1,
		func(_ io.ReadSeeker, off uint64) (stream.SearchAction, error) {
			offset = off
			found = true
			return stream.SearchStop, nil
		})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: Loki shellcode not found", bootimg.ErrFormat)
	}

	if _, err := rs.Seek(int64(offset)+shellcodeAddrShift, io.SeekStart); err != nil {
		return 0, err
	}
	var raw [4]byte
	n, err := stream.ReadFully(rs, raw[:])
	if err != nil {
		return 0, err
	}
	if n != len(raw) {
		return 0, fmt.Errorf("%w: unexpected EOF when reading ramdisk address",
			bootimg.ErrFormat)
	}
	return binary.LittleEndian.Uint32(raw[:]), nil
}
