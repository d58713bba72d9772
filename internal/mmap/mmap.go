// Package mmap maps whole files into memory read-only.
package mmap

import (
	"fmt"
	"os"
)

// File is a read-only view of a file's contents.
type File struct {
	data   []byte
	mapped bool
}

// Open maps the named file. Empty files yield an empty, unmapped view.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return &File{data: []byte{}}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("file too large to map: %d bytes", size)
	}
	return mapFile(f, int(size))
}

// Bytes returns the contents. The slice must not be used after Close.
func (m *File) Bytes() []byte {
	return m.data
}

// Len returns the size of the file.
func (m *File) Len() int {
	return len(m.data)
}

// Close releases the mapping. Calling it more than once is harmless.
func (m *File) Close() error {
	if m == nil || m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if !m.mapped {
		return nil
	}
	return unmap(data)
}
