package bootimg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func serialize(t *testing.T, hdr *AndroidHeader) []byte {
	t.Helper()
	copy(hdr.Magic[:], BootMagic)
	var b bytes.Buffer
	if err := binary.Write(&b, binary.LittleEndian, hdr); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestFindAndroidHeaderAtStart(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img, serialize(t, &AndroidHeader{PageSize: 2048, KernelAddr: 0x10008000}))

	hdr, offset, err := FindAndroidHeader(bytes.NewReader(img), MaxHeaderOffset)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 0 {
		t.Fatalf("offset = %d, want 0", offset)
	}
	if hdr.PageSize != 2048 || hdr.KernelAddr != 0x10008000 {
		t.Fatalf("hdr = %+v", hdr)
	}
}

func TestFindAndroidHeaderShifted(t *testing.T) {
	img := make([]byte, 0x2000)
	copy(img[512:], serialize(t, &AndroidHeader{PageSize: 4096}))

	hdr, offset, err := FindAndroidHeader(bytes.NewReader(img), MaxHeaderOffset)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 512 {
		t.Fatalf("offset = %d, want 512", offset)
	}
	if hdr.PageSize != 4096 {
		t.Fatalf("page size = %d", hdr.PageSize)
	}
}

func TestFindAndroidHeaderMissing(t *testing.T) {
	_, _, err := FindAndroidHeader(bytes.NewReader(make([]byte, 0x1000)), MaxHeaderOffset)
	if !errors.Is(err, ErrNotFormat) {
		t.Fatalf("err = %v, want ErrNotFormat", err)
	}
}

func TestFindAndroidHeaderBeyondBound(t *testing.T) {
	img := make([]byte, 0x2000)
	copy(img[1024:], serialize(t, &AndroidHeader{PageSize: 2048}))
	_, _, err := FindAndroidHeader(bytes.NewReader(img), MaxHeaderOffset)
	if !errors.Is(err, ErrNotFormat) {
		t.Fatalf("err = %v, want ErrNotFormat", err)
	}
}

func TestHeaderFieldMask(t *testing.T) {
	h := NewHeader(FieldBoardName | FieldPageSize)
	if err := h.SetBoardName("jflte"); err != nil {
		t.Fatal(err)
	}
	if err := h.SetPageSize(2048); err != nil {
		t.Fatal(err)
	}
	if err := h.SetKernelAddress(1); !errors.Is(err, ErrUnsupportedField) {
		t.Fatalf("err = %v, want ErrUnsupportedField", err)
	}
}

func TestAlignPage(t *testing.T) {
	cases := []struct {
		x    uint64
		page uint32
		want uint64
	}{
		{0, 2048, 0},
		{1, 2048, 2048},
		{2048, 2048, 2048},
		{2049, 2048, 4096},
		{0x3000, 0x800, 0x3000},
	}
	for _, tc := range cases {
		if got := AlignPage(tc.x, tc.page); got != tc.want {
			t.Errorf("AlignPage(%#x, %#x) = %#x, want %#x", tc.x, tc.page, got, tc.want)
		}
	}
}

func TestSegmentsOrder(t *testing.T) {
	s := NewSegments()
	if err := s.Add(EntryKernel, 0x800, 0x100, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(EntryRamdisk, 0x400, 0x100, false); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat for decreasing offset", err)
	}
	if err := s.Add(EntryKernel, 0x1000, 0x100, false); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat for duplicate type", err)
	}
}

func TestSegmentsReadFlow(t *testing.T) {
	data := make([]byte, 0x1000)
	for i := range data {
		data[i] = byte(i)
	}
	rs := bytes.NewReader(data)

	s := NewSegments()
	if err := s.Add(EntryKernel, 0x100, 0x80, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(EntryRamdisk, 0x200, 0x40, false); err != nil {
		t.Fatal(err)
	}

	e, err := s.ReadEntry(rs)
	if err != nil {
		t.Fatal(err)
	}
	if e.Type != EntryKernel || e.Offset != 0x100 || e.Size != 0x80 {
		t.Fatalf("entry = %+v", e)
	}

	buf := make([]byte, 0x30)
	total := 0
	for {
		n, err := s.ReadData(rs, buf)
		for i := 0; i < n; i++ {
			if buf[i] != byte(0x100+total+i) {
				t.Fatalf("byte %d wrong", total+i)
			}
		}
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if total != 0x80 {
		t.Fatalf("read %d bytes, want 0x80", total)
	}

	if e, err = s.ReadEntry(rs); err != nil || e.Type != EntryRamdisk {
		t.Fatalf("entry = %+v, err = %v", e, err)
	}
	if _, err := s.ReadEntry(rs); !errors.Is(err, ErrEndOfEntries) {
		t.Fatalf("err = %v, want ErrEndOfEntries", err)
	}

	// Random access rewinds.
	if e, err = s.GoToEntry(rs, EntryKernel); err != nil || e.Offset != 0x100 {
		t.Fatalf("entry = %+v, err = %v", e, err)
	}
	if _, err := s.GoToEntry(rs, EntryDeviceTree); !errors.Is(err, ErrEndOfEntries) {
		t.Fatalf("err = %v, want ErrEndOfEntries for absent type", err)
	}
}

func TestSegmentsTruncated(t *testing.T) {
	rs := bytes.NewReader(make([]byte, 0x100))
	s := NewSegments()
	if err := s.Add(EntryKernel, 0x80, 0x100, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadEntry(rs); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 0x100)
	_, err := s.ReadData(rs, buf)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat for truncated segment", err)
	}
}

func TestSegmentsReadBeforeHeader(t *testing.T) {
	s := NewSegments()
	if _, err := s.ReadData(bytes.NewReader(nil), make([]byte, 4)); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func buildPlainImage(t *testing.T) []byte {
	t.Helper()
	hdr := &AndroidHeader{
		KernelSize:  0x1000,
		KernelAddr:  0x10008000,
		RamdiskSize: 0x800,
		RamdiskAddr: 0x11000000,
		SecondSize:  0,
		TagsAddr:    0x10000100,
		PageSize:    2048,
		DTSize:      0x400,
	}
	copy(hdr.Name[:], "mako")
	copy(hdr.Cmdline[:], "androidboot.hardware=mako")

	img := make([]byte, 0x4000)
	copy(img, serialize(t, hdr))
	return img
}

func TestAndroidFormat(t *testing.T) {
	img := buildPlainImage(t)
	f := NewAndroidFormat()
	rs := bytes.NewReader(img)

	bid, err := f.Bid(rs, -1)
	if err != nil {
		t.Fatal(err)
	}
	if bid != BootMagicSize*8 {
		t.Fatalf("bid = %d, want %d", bid, BootMagicSize*8)
	}

	hdr, err := f.ReadHeader(rs)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.BoardName != "mako" || hdr.PageSize != 2048 {
		t.Fatalf("hdr = %+v", hdr)
	}

	wantLayout := []struct {
		typ    EntryType
		offset uint64
		size   uint32
	}{
		{EntryKernel, 0x800, 0x1000},
		{EntryRamdisk, 0x1800, 0x800},
		{EntryDeviceTree, 0x2000, 0x400},
	}
	for _, w := range wantLayout {
		e, err := f.ReadEntry(rs)
		if err != nil {
			t.Fatal(err)
		}
		if e.Type != w.typ || e.Offset != w.offset || e.Size != w.size {
			t.Fatalf("entry = %+v, want %+v", e, w)
		}
	}
}

func TestAndroidFormatCannotWin(t *testing.T) {
	img := buildPlainImage(t)
	bid, err := NewAndroidFormat().Bid(bytes.NewReader(img), BootMagicSize*8)
	if err != nil {
		t.Fatal(err)
	}
	if bid != 0 {
		t.Fatalf("bid = %d, want 0", bid)
	}
}

func TestReaderNoFormat(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 64)))
	if err := r.RegisterFormat(NewAndroidFormat()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Bid(); !errors.Is(err, ErrNoFormat) {
		t.Fatalf("err = %v, want ErrNoFormat", err)
	}
}

func TestReaderReadEntryData(t *testing.T) {
	img := buildPlainImage(t)
	for i := 0; i < 0x1000; i++ {
		img[0x800+i] = byte(i ^ 0x5a)
	}
	r := NewReader(bytes.NewReader(img))
	if err := r.RegisterFormat(NewAndroidFormat()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadHeader(); err != nil {
		t.Fatal(err)
	}
	e, data, err := r.ReadEntryData(EntryKernel)
	if err != nil {
		t.Fatal(err)
	}
	if e.Size != 0x1000 || len(data) != 0x1000 {
		t.Fatalf("size = %d, len = %d", e.Size, len(data))
	}
	for i, b := range data {
		if b != byte(i^0x5a) {
			t.Fatalf("byte %d wrong", i)
		}
	}
}
