package main

import (
	"lokitool/internal/tui/inspect"
)

func runInspect(path string) error {
	f, r, err := openReader(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return inspect.Run(path, r)
}
