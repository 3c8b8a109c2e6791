package bootimg

import (
	"errors"
	"fmt"
	"io"
)

// FormatReader is one candidate decoder registered with a Reader. Bid
// probes the stream and reports confidence in bits of matched magic; a
// stream that is not this format bids 0. ReadHeader reconstructs the
// header and installs the segment table; the remaining methods stream
// segment data.
type FormatReader interface {
	Name() string
	Bid(rs io.ReadSeeker, bestBid int) (int, error)
	ReadHeader(rs io.ReadSeeker) (*Header, error)
	ReadEntry(rs io.ReadSeeker) (*Entry, error)
	GoToEntry(rs io.ReadSeeker, typ EntryType) (*Entry, error)
	ReadData(rs io.ReadSeeker, p []byte) (int, error)
}

// Reader multiplexes registered formats over one seekable stream. The
// stream is borrowed, not owned; the caller closes it.
type Reader struct {
	rs      io.ReadSeeker
	formats []FormatReader
	format  FormatReader
	header  *Header
}

func NewReader(rs io.ReadSeeker) *Reader {
	return &Reader{rs: rs}
}

// RegisterFormat adds a candidate format. Names must be unique.
func (r *Reader) RegisterFormat(f FormatReader) error {
	for _, g := range r.formats {
		if g.Name() == f.Name() {
			return fmt.Errorf("bootimg: format %q already registered", f.Name())
		}
	}
	r.formats = append(r.formats, f)
	return nil
}

// SetFormat forces a format by name, skipping the bid round. The forced
// format must still be registered.
func (r *Reader) SetFormat(name string) error {
	for _, f := range r.formats {
		if f.Name() == name {
			r.format = f
			return nil
		}
	}
	return fmt.Errorf("bootimg: format %q not registered", name)
}

// Format reports the selected format name, or "" before selection.
func (r *Reader) Format() string {
	if r.format == nil {
		return ""
	}
	return r.format.Name()
}

// Bid runs the bid round and selects the highest-scoring format without
// reading the header. Returns the winning bid in bits.
func (r *Reader) Bid() (int, error) {
	best := -1
	var winner FormatReader
	for _, f := range r.formats {
		bid, err := f.Bid(r.rs, best)
		if err != nil {
			return 0, err
		}
		if bid > best {
			best = bid
			winner = f
		}
	}
	if winner == nil || best <= 0 {
		return 0, ErrNoFormat
	}
	r.format = winner
	return best, nil
}

// ReadHeader selects a format (bidding if none was forced) and returns
// the reconstructed header.
func (r *Reader) ReadHeader() (*Header, error) {
	if r.format == nil {
		if _, err := r.Bid(); err != nil {
			return nil, err
		}
	}
	hdr, err := r.format.ReadHeader(r.rs)
	if err != nil {
		return nil, err
	}
	r.header = hdr
	return hdr, nil
}

func (r *Reader) ReadEntry() (*Entry, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.format.ReadEntry(r.rs)
}

func (r *Reader) GoToEntry(typ EntryType) (*Entry, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.format.GoToEntry(r.rs, typ)
}

func (r *Reader) ReadData(p []byte) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	return r.format.ReadData(r.rs, p)
}

func (r *Reader) ready() error {
	if r.format == nil || r.header == nil {
		return ErrNoHeader
	}
	return nil
}

// ReadEntryData drains the given entry type into a byte slice.
func (r *Reader) ReadEntryData(typ EntryType) (*Entry, []byte, error) {
	e, err := r.GoToEntry(typ)
	if err != nil {
		return nil, nil, err
	}
	out := make([]byte, 0, e.Size)
	buf := make([]byte, 64*1024)
	for {
		n, err := r.ReadData(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return e, out, nil
		}
		if err != nil {
			return e, out, err
		}
	}
}

// Soft reports whether err is a recognition or format failure rather
// than a stream failure.
func Soft(err error) bool {
	return errors.Is(err, ErrNotFormat) || errors.Is(err, ErrFormat) ||
		errors.Is(err, ErrNoFormat)
}
