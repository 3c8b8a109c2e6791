package disk

// Boot images rarely travel alone: they come out of full eMMC dumps.
// This package lists a dump's partition table and hands single
// partitions to the boot image readers as substreams.

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
)

var ErrNotFound = errors.New("disk: partition not found")

type Entry struct {
	Index int
	Start int64
	Size  int64
	Type  string
	Name  string
}

// List reads the MBR/GPT partition table of a raw dump.
func List(path string) ([]Entry, string, error) {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, "", err
	}
	defer d.Close()

	table, err := d.GetPartitionTable()
	if err != nil {
		return nil, "", err
	}

	var out []Entry
	for i, p := range table.GetPartitions() {
		e := Entry{
			Index: i + 1,
			Start: p.GetStart(),
			Size:  p.GetSize(),
		}
		switch pp := p.(type) {
		case *gpt.Partition:
			e.Name = pp.Name
			e.Type = string(pp.Type)
		case *mbr.Partition:
			e.Type = fmt.Sprintf("%02x", byte(pp.Type))
		}
		if e.Size > 0 {
			out = append(out, e)
		}
	}
	return out, table.Type(), nil
}

// Open returns a read-only substream over one partition, selected by
// 1-based index or by GPT name ("boot", "recovery", ...). The caller
// closes the returned closer when done with the stream.
func Open(path, idxOrName string) (*io.SectionReader, io.Closer, error) {
	entries, _, err := List(path)
	if err != nil {
		return nil, nil, err
	}
	e, ok := find(entries, idxOrName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, idxOrName)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return io.NewSectionReader(f, e.Start, e.Size), f, nil
}

// Extract copies one partition to a file.
func Extract(path, idxOrName, out string) error {
	sr, c, err := Open(path, idxOrName)
	if err != nil {
		return err
	}
	defer c.Close()

	g, err := os.Create(out)
	if err != nil {
		return err
	}
	defer g.Close()
	_, err = io.Copy(g, sr)
	return err
}

func find(entries []Entry, s string) (Entry, bool) {
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		var x int
		fmt.Sscanf(s, "%d", &x)
		for _, e := range entries {
			if e.Index == x {
				return e, true
			}
		}
	}
	ns := strings.ToLower(s)
	for _, e := range entries {
		if strings.ToLower(e.Name) == ns {
			return e, true
		}
	}
	return Entry{}, false
}
