package loki

import (
	"encoding/binary"
	"fmt"
	"io"

	"lokitool/internal/image/bootimg"
	"lokitool/internal/stream"
)

var gzipDeflateMagic = []byte{0x1f, 0x8b, 0x08}

// findLinuxKernelSize reads the image size out of the ARM zImage header
// at kernelOffset. Early Loki versions do not preserve the kernel size
// anywhere else, but the kernel's own header still carries it.
func findLinuxKernelSize(rs io.ReadSeeker, kernelOffset uint32) (uint32, error) {
	if _, err := rs.Seek(int64(kernelOffset)+zImageSizeOffset, io.SeekStart); err != nil {
		return 0, err
	}
	var raw [4]byte
	n, err := stream.ReadFully(rs, raw[:])
	if err != nil {
		return 0, err
	}
	if n != len(raw) {
		return 0, fmt.Errorf("%w: unexpected EOF when reading kernel header",
			bootimg.ErrNotFormat)
	}
	return binary.LittleEndian.Uint32(raw[:]), nil
}

// findGzipOffset locates the gzip header that starts the relocated
// ramdisk. It scans for the deflate magic at or after startOffset and
// prefers a header whose flags byte has the original-filename bit set
// (0x08, what the gzip tool emits) over a bare one (0x00); any other
// flags value is ignored.
func findGzipOffset(rs io.ReadSeeker, startOffset uint64) (uint64, error) {
	var (
		haveFlag0, haveFlag8     bool
		flag0Offset, flag8Offset uint64
	)

	err := stream.Search(rs, int64(startOffset), -1, gzipDeflateMagic, 0,
		func(rs io.ReadSeeker, offset uint64) (stream.SearchAction, error) {
			if haveFlag0 && haveFlag8 {
				return stream.SearchStop, nil
			}

			orig, err := rs.Seek(0, io.SeekCurrent)
			if err != nil {
				return stream.SearchFail, err
			}

			if _, err := rs.Seek(int64(offset)+3, io.SeekStart); err != nil {
				return stream.SearchFail, err
			}
			var flags [1]byte
			n, err := stream.ReadFully(rs, flags[:])
			if err != nil {
				return stream.SearchFail, err
			}
			if n != 1 {
				// EOF right after the magic; nothing further to scan.
				return stream.SearchStop, nil
			}

			switch {
			case !haveFlag0 && flags[0] == 0x00:
				haveFlag0 = true
				flag0Offset = offset
			case !haveFlag8 && flags[0] == 0x08:
				haveFlag8 = true
				flag8Offset = offset
			}

			// The search owns the stream position; put it back.
			if _, err := rs.Seek(orig, io.SeekStart); err != nil {
				return stream.SearchFail, err
			}
			return stream.SearchContinue, nil
		})
	if err != nil {
		return 0, err
	}

	switch {
	case haveFlag8:
		return flag8Offset, nil
	case haveFlag0:
		return flag0Offset, nil
	default:
		return 0, fmt.Errorf("%w: no gzip headers found", bootimg.ErrNotFormat)
	}
}

// findOldRamdiskSize bounds the relocated ramdisk. It runs from the
// gzip header to the aboot stash at the end of the file; zero padding
// in between stays part of the ramdisk since stripping it risks eating
// valid trailing bytes.
func findOldRamdiskSize(rs io.ReadSeeker, hdr *bootimg.AndroidHeader, ramdiskOffset uint64) (uint32, error) {
	tail := abootSize(hdr.RamdiskAddr, hdr.PageSize)

	abootOffset, err := rs.Seek(-int64(tail), io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if ramdiskOffset > uint64(abootOffset) {
		return 0, fmt.Errorf("%w: ramdisk offset greater than aboot offset",
			bootimg.ErrFormat)
	}
	return uint32(uint64(abootOffset) - ramdiskOffset), nil
}

// readOldHeader reconstructs an image patched by early Loki versions,
// which zero the original size fields. Kernel size comes from the
// zImage header, the ramdisk start from a gzip scan and the ramdisk
// size from the distance to the aboot stash.
func readOldHeader(rs io.ReadSeeker, hdr *bootimg.AndroidHeader, lokiHdr *Header) (*bootimg.Header, *layout, error) {
	if hdr.PageSize == 0 {
		return nil, nil, fmt.Errorf("%w: page size cannot be 0", bootimg.ErrFormat)
	}

	// The kernel tags address is clobbered in old images; synthesize it
	// from the jflte defaults.
	tagsAddr := hdr.KernelAddr - bootimg.DefaultKernelOffset + bootimg.DefaultTagsOffset

	kernelSize, err := findLinuxKernelSize(rs, hdr.PageSize)
	if err != nil {
		return nil, nil, err
	}

	gzipOffset, err := findGzipOffset(rs,
		uint64(hdr.PageSize)+bootimg.AlignPage(uint64(kernelSize), hdr.PageSize))
	if err != nil {
		return nil, nil, err
	}

	ramdiskSize, err := findOldRamdiskSize(rs, hdr, gzipOffset)
	if err != nil {
		return nil, nil, err
	}

	ramdiskAddr, err := findRamdiskAddress(rs, hdr, lokiHdr)
	if err != nil {
		return nil, nil, err
	}

	out := bootimg.NewHeader(oldFields)
	if err := setCommonFields(out, hdr, ramdiskAddr, tagsAddr); err != nil {
		return nil, nil, err
	}

	lay := &layout{
		kernelOffset:  uint64(hdr.PageSize),
		kernelSize:    kernelSize,
		ramdiskOffset: gzipOffset,
		ramdiskSize:   ramdiskSize,
	}
	return out, lay, nil
}
