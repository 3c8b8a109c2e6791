package loki

import (
	"io"

	"lokitool/internal/image/bootimg"
)

const (
	oldFields = bootimg.FieldBoardName | bootimg.FieldKernelCmdline |
		bootimg.FieldPageSize | bootimg.FieldKernelAddress |
		bootimg.FieldRamdiskAddress | bootimg.FieldSecondAddress |
		bootimg.FieldTagsAddress

	newFields = oldFields
)

// layout is what a reconstructor derives: where the segments live and
// how large they are. dtOffset of zero means no device tree.
type layout struct {
	kernelOffset  uint64
	kernelSize    uint32
	ramdiskOffset uint64
	ramdiskSize   uint32
	dtOffset      uint64
}

// era tags the two incompatible generations of the Loki patcher. The
// discriminator is evaluated once; everything downstream switches on
// the tag.
type era int

const (
	eraOld era = iota
	eraNew
)

func eraOf(lokiHdr *Header) era {
	if lokiHdr.OrigKernelSize != 0 && lokiHdr.OrigRamdiskSize != 0 &&
		lokiHdr.RamdiskAddr != 0 {
		return eraNew
	}
	return eraOld
}

func setCommonFields(out *bootimg.Header, hdr *bootimg.AndroidHeader, ramdiskAddr, tagsAddr uint32) error {
	if err := out.SetBoardName(hdr.BoardName()); err != nil {
		return err
	}
	if err := out.SetKernelCmdline(hdr.KernelCmdline()); err != nil {
		return err
	}
	if err := out.SetPageSize(hdr.PageSize); err != nil {
		return err
	}
	if err := out.SetKernelAddress(hdr.KernelAddr); err != nil {
		return err
	}
	if err := out.SetRamdiskAddress(ramdiskAddr); err != nil {
		return err
	}
	if err := out.SetSecondBootAddress(hdr.SecondAddr); err != nil {
		return err
	}
	return out.SetKernelTagsAddress(tagsAddr)
}

// Format reads Loki-patched boot images. One value serves one image;
// the bid caches the located headers so the read phase does not scan
// again.
type Format struct {
	hdr        bootimg.AndroidHeader
	lokiHdr    Header
	hdrOffset  uint64
	lokiOffset uint64
	haveHdr    bool
	haveLoki   bool
	seg        *bootimg.Segments
}

// New returns a FormatReader for Loki images.
func New() *Format {
	return &Format{seg: bootimg.NewSegments()}
}

func (f *Format) Name() string { return "loki" }

// Bid probes for the Loki metadata block and the Android header. Each
// hit is worth its magic size in bits; a miss on either means the
// stream cannot be a Loki image.
func (f *Format) Bid(rs io.ReadSeeker, bestBid int) (int, error) {
	if bestBid >= (bootimg.BootMagicSize+MagicSize)*8 {
		// A bid we cannot win.
		return 0, nil
	}

	bid := 0

	lokiHdr, lokiOffset, err := findHeader(rs)
	if err != nil {
		if bootimg.Soft(err) {
			return 0, nil
		}
		return 0, err
	}
	f.lokiHdr = *lokiHdr
	f.lokiOffset = lokiOffset
	f.haveLoki = true
	bid += MagicSize * 8

	hdr, hdrOffset, err := bootimg.FindAndroidHeader(rs, MaxHeaderOffset)
	if err != nil {
		if bootimg.Soft(err) {
			return 0, nil
		}
		return 0, err
	}
	f.hdr = *hdr
	f.hdrOffset = hdrOffset
	f.haveHdr = true
	bid += bootimg.BootMagicSize * 8

	return bid, nil
}

// ReadHeader reconstructs the original boot image header and installs
// the segment table. If the bid was skipped (forced format), the header
// scans run here instead, with the wider plain-Android search bound.
func (f *Format) ReadHeader(rs io.ReadSeeker) (*bootimg.Header, error) {
	if !f.haveLoki {
		lokiHdr, lokiOffset, err := findHeader(rs)
		if err != nil {
			return nil, err
		}
		f.lokiHdr = *lokiHdr
		f.lokiOffset = lokiOffset
		f.haveLoki = true
	}
	if !f.haveHdr {
		hdr, hdrOffset, err := bootimg.FindAndroidHeader(rs, bootimg.MaxHeaderOffset)
		if err != nil {
			return nil, err
		}
		f.hdr = *hdr
		f.hdrOffset = hdrOffset
		f.haveHdr = true
	}

	var (
		out *bootimg.Header
		lay *layout
		err error
	)
	switch eraOf(&f.lokiHdr) {
	case eraNew:
		out, lay, err = readNewHeader(rs, &f.hdr, &f.lokiHdr)
	default:
		out, lay, err = readOldHeader(rs, &f.hdr, &f.lokiHdr)
	}
	if err != nil {
		return nil, err
	}

	f.seg.Clear()
	if err := f.seg.Add(bootimg.EntryKernel, lay.kernelOffset, lay.kernelSize, false); err != nil {
		return nil, err
	}
	if err := f.seg.Add(bootimg.EntryRamdisk, lay.ramdiskOffset, lay.ramdiskSize, false); err != nil {
		return nil, err
	}
	if f.hdr.DTSize > 0 && lay.dtOffset != 0 {
		if err := f.seg.Add(bootimg.EntryDeviceTree, lay.dtOffset, f.hdr.DTSize, false); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f *Format) ReadEntry(rs io.ReadSeeker) (*bootimg.Entry, error) {
	return f.seg.ReadEntry(rs)
}

func (f *Format) GoToEntry(rs io.ReadSeeker, typ bootimg.EntryType) (*bootimg.Entry, error) {
	return f.seg.GoToEntry(rs, typ)
}

func (f *Format) ReadData(rs io.ReadSeeker, p []byte) (int, error) {
	return f.seg.ReadData(rs, p)
}

// LokiHeader exposes the cached Loki metadata block after a successful
// bid or read.
func (f *Format) LokiHeader() (Header, bool) {
	return f.lokiHdr, f.haveLoki
}
