package loki

import (
	"fmt"
	"io"

	"lokitool/internal/image/bootimg"
)

// readNewHeader reconstructs an image patched by newer Loki versions.
// Those preserve the original kernel and ramdisk sizes in the Loki
// header, so only the ramdisk address has to be dug out of the
// shellcode. If a device tree is present, Loki inserts a fake block
// (one page on LG, 0x200 elsewhere) ahead of it.
func readNewHeader(rs io.ReadSeeker, hdr *bootimg.AndroidHeader, lokiHdr *Header) (*bootimg.Header, *layout, error) {
	if hdr.PageSize == 0 {
		return nil, nil, fmt.Errorf("%w: page size cannot be 0", bootimg.ErrFormat)
	}

	fakeSize := abootSize(hdr.RamdiskAddr, hdr.PageSize)

	ramdiskAddr, err := findRamdiskAddress(rs, hdr, lokiHdr)
	if err != nil {
		return nil, nil, err
	}

	out := bootimg.NewHeader(newFields)
	if err := setCommonFields(out, hdr, ramdiskAddr, hdr.TagsAddr); err != nil {
		return nil, nil, err
	}

	var pos uint64

	// Adding a handful of uint32 values cannot overflow uint64; file
	// length bounds are enforced at segment read time.
	pos += uint64(hdr.PageSize)

	lay := &layout{}
	lay.kernelOffset = pos
	lay.kernelSize = lokiHdr.OrigKernelSize
	pos += uint64(lokiHdr.OrigKernelSize)
	pos = bootimg.AlignPage(pos, hdr.PageSize)

	lay.ramdiskOffset = pos
	lay.ramdiskSize = lokiHdr.OrigRamdiskSize
	pos += uint64(lokiHdr.OrigRamdiskSize)
	pos = bootimg.AlignPage(pos, hdr.PageSize)

	if hdr.DTSize != 0 {
		pos += uint64(fakeSize)
		lay.dtOffset = pos
	}

	return out, lay, nil
}
