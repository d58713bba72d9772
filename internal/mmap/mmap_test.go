package mmap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"small", []byte("%PDF-1.4\n%%EOF\n")},
		{"binary", bytes.Repeat([]byte{0, 0xff, 0x10}, 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}

			m, err := Open(path)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if m.Len() != len(tt.content) {
				t.Errorf("Len() = %d, want %d", m.Len(), len(tt.content))
			}
			if !bytes.Equal(m.Bytes(), tt.content) && len(tt.content) > 0 {
				t.Error("Bytes() differ from file content")
			}
			if err := m.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
			if err := m.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
		})
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
