package stream

import (
	"bytes"
	"errors"
	"io"
)

// SearchAction is returned by a SearchFunc to steer the scan.
type SearchAction int

const (
	SearchContinue SearchAction = iota
	SearchStop
	SearchFail
)

// SearchFunc is called once per match with the absolute match offset.
// The callback may seek the stream freely; it must restore the position
// before returning if it expects later reads of its own to line up.
// Search itself re-seeks before every chunk, so the scan is unaffected.
type SearchFunc func(rs io.ReadSeeker, offset uint64) (SearchAction, error)

const searchChunk = 512 * 1024

// Search scans [start, end) of rs for needle and invokes fn for each
// occurrence. start < 0 means the beginning of the stream, end < 0 means
// the end. maxMatches <= 0 removes the match limit. A SearchFail from the
// callback surfaces as an error; SearchStop ends the scan cleanly.
func Search(rs io.ReadSeeker, start, end int64, needle []byte, maxMatches int, fn SearchFunc) error {
	if len(needle) == 0 {
		return errors.New("stream: empty search pattern")
	}

	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if start < 0 {
		start = 0
	}
	if end < 0 || end > size {
		end = size
	}
	if end-start < int64(len(needle)) {
		return nil
	}

	buf := make([]byte, searchChunk)
	if len(needle) > len(buf) {
		buf = make([]byte, len(needle)*2)
	}

	matches := 0
	pos := start
	for pos < end {
		want := int64(len(buf))
		if want > end-pos {
			want = end - pos
		}
		if want < int64(len(needle)) {
			break
		}

		if _, err := rs.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		n, err := ReadFully(rs, buf[:want])
		if err != nil {
			return err
		}
		if n < len(needle) {
			break
		}

		chunk := buf[:n]
		off := 0
		for {
			i := bytes.Index(chunk[off:], needle)
			if i < 0 {
				break
			}
			matchOff := uint64(pos) + uint64(off+i)
			action, err := fn(rs, matchOff)
			if err != nil || action == SearchFail {
				if err == nil {
					err = errors.New("stream: search aborted by callback")
				}
				return err
			}
			if action == SearchStop {
				return nil
			}
			matches++
			if maxMatches > 0 && matches >= maxMatches {
				return nil
			}
			off += i + 1
		}

		// Overlap so matches spanning a chunk boundary are not lost.
		advance := int64(n) - int64(len(needle)) + 1
		if advance < 1 {
			advance = 1
		}
		pos += advance
	}
	return nil
}

// ReadFully reads len(p) bytes unless EOF cuts the stream short. A short
// read is only reported at end of stream; any other error passes through.
func ReadFully(r io.Reader, p []byte) (int, error) {
	n, err := io.ReadFull(r, p)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	return n, err
}
