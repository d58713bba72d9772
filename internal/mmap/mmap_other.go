//go:build !unix

package mmap

import (
	"fmt"
	"io"
	"os"
)

func mapFile(f *os.File, size int) (*File, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	return &File{data: data}, nil
}

func unmap([]byte) error {
	return nil
}
