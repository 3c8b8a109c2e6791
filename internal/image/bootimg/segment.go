package bootimg

import (
	"fmt"
	"io"

	"lokitool/internal/stream"
)

type segment struct {
	typ      EntryType
	offset   uint64
	size     uint32
	optional bool
}

// Segments is the per-image run table: an ordered list of segment
// descriptors plus the read cursor for the segment currently open.
// Formats install their layout here after reading the header and route
// all entry/data operations through it.
type Segments struct {
	entries []segment
	cur     int
	done    uint32
}

func NewSegments() *Segments {
	return &Segments{cur: -1}
}

// Clear empties the table and resets the cursor.
func (s *Segments) Clear() {
	s.entries = s.entries[:0]
	s.cur = -1
	s.done = 0
}

// Add appends a descriptor in layout order. Offsets must be
// non-decreasing and each type may appear at most once.
func (s *Segments) Add(typ EntryType, offset uint64, size uint32, optional bool) error {
	for _, e := range s.entries {
		if e.typ == typ {
			return badFormat("duplicate %s segment", typ)
		}
	}
	if n := len(s.entries); n > 0 && offset < s.entries[n-1].offset {
		return badFormat("%s segment offset %#x precedes previous segment", typ, offset)
	}
	s.entries = append(s.entries, segment{typ: typ, offset: offset, size: size, optional: optional})
	return nil
}

// ReadEntry advances to the next segment, seeks the stream to its start
// and returns its descriptor. ErrEndOfEntries signals table exhaustion.
func (s *Segments) ReadEntry(rs io.ReadSeeker) (*Entry, error) {
	if s.cur+1 >= len(s.entries) {
		return nil, ErrEndOfEntries
	}
	return s.open(rs, s.cur+1)
}

// GoToEntry jumps to the segment of the given type regardless of the
// cursor position.
func (s *Segments) GoToEntry(rs io.ReadSeeker, typ EntryType) (*Entry, error) {
	for i, e := range s.entries {
		if e.typ == typ {
			return s.open(rs, i)
		}
	}
	return nil, fmt.Errorf("%w: no %s segment", ErrEndOfEntries, typ)
}

func (s *Segments) open(rs io.ReadSeeker, i int) (*Entry, error) {
	e := s.entries[i]
	if _, err := rs.Seek(int64(e.offset), io.SeekStart); err != nil {
		return nil, err
	}
	s.cur = i
	s.done = 0
	return &Entry{Type: e.typ, Offset: e.offset, Size: e.size}, nil
}

// ReadData reads from the current segment, clamped to the bytes that
// remain. io.EOF marks the end of the segment; running out of stream
// before the segment ends is a format error, not EOF.
func (s *Segments) ReadData(rs io.ReadSeeker, p []byte) (int, error) {
	if s.cur < 0 || s.cur >= len(s.entries) {
		return 0, ErrNoHeader
	}
	e := s.entries[s.cur]
	remain := e.size - s.done
	if remain == 0 {
		return 0, io.EOF
	}
	if uint32(len(p)) > remain {
		p = p[:remain]
	}
	// Re-seek on every call: callers are free to move the stream
	// between reads.
	if _, err := rs.Seek(int64(e.offset+uint64(s.done)), io.SeekStart); err != nil {
		return 0, err
	}
	n, err := stream.ReadFully(rs, p)
	if err != nil {
		return n, err
	}
	s.done += uint32(n)
	if n < len(p) {
		return n, badFormat("%s segment truncated at %d of %d bytes",
			e.typ, s.done, e.size)
	}
	return n, nil
}
