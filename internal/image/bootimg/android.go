package bootimg

import (
	"io"
)

// AndroidFields are the header fields a plain Android image reports.
const AndroidFields = FieldBoardName | FieldKernelCmdline | FieldPageSize |
	FieldKernelAddress | FieldRamdiskAddress | FieldSecondAddress |
	FieldTagsAddress | FieldOSVersion

// androidFormat reads unpatched Android boot images.
type androidFormat struct {
	hdr       AndroidHeader
	hdrOffset uint64
	haveHdr   bool
	seg       *Segments
}

// NewAndroidFormat returns a FormatReader for plain Android boot images.
func NewAndroidFormat() FormatReader {
	return &androidFormat{seg: NewSegments()}
}

func (f *androidFormat) Name() string { return "android" }

func (f *androidFormat) Bid(rs io.ReadSeeker, bestBid int) (int, error) {
	if bestBid >= BootMagicSize*8 {
		// A bid we cannot win.
		return 0, nil
	}
	hdr, offset, err := FindAndroidHeader(rs, MaxHeaderOffset)
	if err != nil {
		if Soft(err) {
			return 0, nil
		}
		return 0, err
	}
	f.hdr = *hdr
	f.hdrOffset = offset
	f.haveHdr = true
	return BootMagicSize * 8, nil
}

func (f *androidFormat) ReadHeader(rs io.ReadSeeker) (*Header, error) {
	if !f.haveHdr {
		hdr, offset, err := FindAndroidHeader(rs, MaxHeaderOffset)
		if err != nil {
			return nil, err
		}
		f.hdr = *hdr
		f.hdrOffset = offset
		f.haveHdr = true
	}

	hdr := &f.hdr
	if hdr.PageSize == 0 {
		return nil, badFormat("page size cannot be 0")
	}

	out := NewHeader(AndroidFields)
	if err := out.SetBoardName(hdr.BoardName()); err != nil {
		return nil, err
	}
	if err := out.SetKernelCmdline(hdr.KernelCmdline()); err != nil {
		return nil, err
	}
	if err := out.SetPageSize(hdr.PageSize); err != nil {
		return nil, err
	}
	if err := out.SetKernelAddress(hdr.KernelAddr); err != nil {
		return nil, err
	}
	if err := out.SetRamdiskAddress(hdr.RamdiskAddr); err != nil {
		return nil, err
	}
	if err := out.SetSecondBootAddress(hdr.SecondAddr); err != nil {
		return nil, err
	}
	if err := out.SetKernelTagsAddress(hdr.TagsAddr); err != nil {
		return nil, err
	}
	if err := out.SetOSVersion(hdr.OSVersion); err != nil {
		return nil, err
	}

	// Segments follow the header page back to back, each padded to the
	// page size.
	pos := f.hdrOffset + uint64(hdr.PageSize)

	f.seg.Clear()
	if err := f.seg.Add(EntryKernel, pos, hdr.KernelSize, false); err != nil {
		return nil, err
	}
	pos += uint64(hdr.KernelSize)
	pos = AlignPage(pos, hdr.PageSize)

	if err := f.seg.Add(EntryRamdisk, pos, hdr.RamdiskSize, false); err != nil {
		return nil, err
	}
	pos += uint64(hdr.RamdiskSize)
	pos = AlignPage(pos, hdr.PageSize)

	if hdr.SecondSize > 0 {
		if err := f.seg.Add(EntrySecond, pos, hdr.SecondSize, false); err != nil {
			return nil, err
		}
		pos += uint64(hdr.SecondSize)
		pos = AlignPage(pos, hdr.PageSize)
	}

	if hdr.DTSize > 0 {
		if err := f.seg.Add(EntryDeviceTree, pos, hdr.DTSize, false); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f *androidFormat) ReadEntry(rs io.ReadSeeker) (*Entry, error) {
	return f.seg.ReadEntry(rs)
}

func (f *androidFormat) GoToEntry(rs io.ReadSeeker, typ EntryType) (*Entry, error) {
	return f.seg.GoToEntry(rs, typ)
}

func (f *androidFormat) ReadData(rs io.ReadSeeker, p []byte) (int, error) {
	return f.seg.ReadData(rs, p)
}
