package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lokitool/internal/compress"
	"lokitool/internal/image/bootimg"
)

func runInfo(path string) error {
	f, r, err := openReader(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := r.ReadHeader()
	if err != nil {
		return err
	}

	fmt.Printf("format:     %s\n", r.Format())
	fmt.Printf("board:      %q\n", hdr.BoardName)
	fmt.Printf("cmdline:    %q\n", hdr.KernelCmdline)
	fmt.Printf("page size:  %d\n", hdr.PageSize)
	fmt.Printf("kernel:     0x%08x\n", hdr.KernelAddr)
	fmt.Printf("ramdisk:    0x%08x\n", hdr.RamdiskAddr)
	fmt.Printf("second:     0x%08x\n", hdr.SecondAddr)
	fmt.Printf("tags:       0x%08x\n", hdr.TagsAddr)

	fmt.Printf("\n%-12s %10s %10s\n", "SEGMENT", "OFFSET", "SIZE")
	for {
		e, err := r.ReadEntry()
		if err != nil {
			break
		}
		fmt.Printf("%-12s %#10x %10d\n", e.Type, e.Offset, e.Size)
	}
	return nil
}

func runUnpack(path, outdir string, extractRamdisk bool) error {
	f, r, err := openReader(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := r.ReadHeader(); err != nil {
		return err
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return err
	}

	names := map[bootimg.EntryType]string{
		bootimg.EntryKernel:     "kernel.img",
		bootimg.EntryRamdisk:    "ramdisk.img",
		bootimg.EntrySecond:     "second.img",
		bootimg.EntryDeviceTree: "dt.img",
	}

	for {
		e, err := r.ReadEntry()
		if err != nil {
			break
		}
		data, err := drain(r, e.Size)
		if err != nil {
			return err
		}

		name := names[e.Type]
		if e.Type == bootimg.EntryRamdisk {
			codec := compress.Detect(data)
			if extractRamdisk && codec != "none" {
				if data, err = compress.Decompress(data, codec); err != nil {
					return fmt.Errorf("ramdisk: %w", err)
				}
				name = "ramdisk.cpio"
			} else if ext := compress.Ext(codec); ext != "" {
				name = "ramdisk.cpio" + ext
			}
		}

		out := filepath.Join(outdir, name)
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("%-12s -> %s (%d bytes)\n", e.Type, out, len(data))
	}
	return nil
}

func drain(r *bootimg.Reader, size uint32) ([]byte, error) {
	out := make([]byte, 0, size)
	buf := make([]byte, 64*1024)
	for {
		n, err := r.ReadData(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
