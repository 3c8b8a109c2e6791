package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"lokitool/internal/image/bootimg"
	"lokitool/internal/image/disk"
	"lokitool/internal/image/loki"
)

func usage() {
	fmt.Print(`lokitool - Loki boot image reader (Go)
Usage:
  lokitool bid <image>                        # which format wins, and by how many bits
  lokitool info <image>                       # reconstructed header + segment table
  lokitool unpack <image> [outdir] [--extract-ramdisk]
  lokitool part <dump>                        # list partitions of a raw eMMC/GPT dump
  lokitool part <dump> <idx|name> <out>       # extract one partition
  lokitool inspect <image>                    # interactive TUI
  lokitool help
`)
}

func newReader(rs io.ReadSeeker) (*bootimg.Reader, error) {
	r := bootimg.NewReader(rs)
	if err := r.RegisterFormat(loki.New()); err != nil {
		return nil, err
	}
	if err := r.RegisterFormat(bootimg.NewAndroidFormat()); err != nil {
		return nil, err
	}
	return r, nil
}

func openReader(path string) (*os.File, *bootimg.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, r, nil
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}

	switch args[0] {
	case "help", "-h", "--help":
		usage()

	case "bid":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		f, r, err := openReader(args[1])
		if err != nil {
			fail("bid", err)
		}
		defer f.Close()
		bid, err := r.Bid()
		if errors.Is(err, bootimg.ErrNoFormat) {
			fmt.Println("no format matched")
			os.Exit(1)
		}
		if err != nil {
			fail("bid", err)
		}
		fmt.Printf("%s (%d bits)\n", r.Format(), bid)

	case "info":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		if err := runInfo(args[1]); err != nil {
			fail("info", err)
		}

	case "unpack":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		path := args[1]
		outdir := "."
		extractRamdisk := false
		for _, a := range args[2:] {
			if a == "--extract-ramdisk" {
				extractRamdisk = true
			} else {
				outdir = a
			}
		}
		if err := runUnpack(path, outdir, extractRamdisk); err != nil {
			fail("unpack", err)
		}

	case "part":
		switch len(args) {
		case 2:
			entries, scheme, err := disk.List(args[1])
			if err != nil {
				fail("part", err)
			}
			fmt.Printf("scheme: %s\n", scheme)
			fmt.Printf("IDX %-20s %12s %12s  TYPE\n", "NAME", "START", "SIZE")
			for _, e := range entries {
				fmt.Printf("%3d %-20s %12d %12d  %s\n", e.Index, e.Name, e.Start, e.Size, e.Type)
			}
		case 4:
			if err := disk.Extract(args[1], args[2], args[3]); err != nil {
				fail("part", err)
			}
		default:
			usage()
			os.Exit(1)
		}

	case "inspect":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		if err := runInspect(args[1]); err != nil {
			fail("inspect", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown command:", args[0])
		os.Exit(2)
	}
}

func fail(cmd string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
	os.Exit(2)
}
