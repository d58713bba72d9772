package core

import (
	"strings"
	"testing"

	"github.com/tsawler/pdfreader/diag"
)

func TestFindEOFMarker(t *testing.T) {
	tests := []struct {
		data string
		want int64
	}{
		{"abc\n%%EOF\n", 4},
		{"%%EOF\nupdate\n%%EOF", 13},
		{"no marker here", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := FindEOFMarker([]byte(tt.data)); got != tt.want {
			t.Errorf("FindEOFMarker(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestFindStartXRef(t *testing.T) {
	tests := []struct {
		name     string
		tail     string
		want     int64
		sameLine bool
	}{
		{"standard", "trailer<<>>\nstartxref\n123\n%%EOF\n", 123, false},
		{"crlf", "startxref\r\n456\r\n%%EOF", 456, false},
		{"blank lines", "startxref\n\n789\n\n\n%%EOF", 789, false},
		{"same line", "startxref 42\n%%EOF", 42, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.tail)
			c := diag.New(nil)
			got, err := FindStartXRef(data, FindEOFMarker(data), c)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if c.Has(diag.ClassStartXRefSameLine) != tt.sameLine {
				t.Errorf("same-line warning = %v", c.Warnings())
			}
		})
	}
}

func TestFindStartXRefMissing(t *testing.T) {
	for _, tail := range []string{
		"123\n%%EOF",
		"startxref\nabc\n%%EOF",
		"startxref x\n%%EOF",
		"%%EOF",
	} {
		data := []byte(tail)
		_, err := FindStartXRef(data, FindEOFMarker(data), nil)
		if !IsKind(err, KindLocation) || err.Error() != "startxref not found" {
			t.Errorf("FindStartXRef(%q) error = %v", tail, err)
		}
	}
}

func TestXRefIssue(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		ptr   int64
		issue int
	}{
		{"xref keyword", "abc\nxref\n", 4, 0},
		{"object header", "abc\n12 0 obj", 4, 0},
		{"after endobj", "endobj 3 0 obj", 6, 0},
		{"zero", "xref", 0, 1},
		{"past end", "abc\nxref", 50, 1},
		{"not after whitespace", "abcxref", 3, 1},
		{"ends in header", "abc\n12 0", 4, 2},
		{"no keyword", "abc\n12 0 R", 4, 3},
		{"garbage", "abc\nfoo", 4, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XRefIssue([]byte(tt.data), tt.ptr); got != tt.issue {
				t.Errorf("XRefIssue = %d, want %d", got, tt.issue)
			}
		})
	}
}

func TestFindXRefNear(t *testing.T) {
	data := []byte(strings.Repeat("a", 20) + "\nxref\n0 1\n")
	xrefPos := int64(21)

	for _, ptr := range []int64{xrefPos - 7, xrefPos + 3, xrefPos + 20} {
		got, ok := FindXRefNear(data, ptr, 20)
		if !ok || got != xrefPos {
			t.Errorf("FindXRefNear(%d) = %d, %v; want %d", ptr, got, ok, xrefPos)
		}
	}
	if _, ok := FindXRefNear(data, xrefPos+30, 5); ok {
		t.Error("found a candidate outside the window")
	}
}

func TestFindXRefNearPrefersClosest(t *testing.T) {
	//                0         1
	//                0123456789012345678
	data := []byte("1 0 obj\nnull\nxref\n")
	got, ok := FindXRefNear(data, 11, 20)
	if !ok || got != 13 {
		t.Errorf("got %d, %v; want the xref keyword at 13", got, ok)
	}
	got, ok = FindXRefNear(data, 2, 20)
	if !ok || got != 0 {
		t.Errorf("got %d, %v; want the object header at 0", got, ok)
	}
}

func TestFindXRefNearSkipsStartXRef(t *testing.T) {
	data := []byte("trailer <<>>\nstartxref\n9\n%%EOF")
	if got, ok := FindXRefNear(data, 15, 20); ok {
		t.Errorf("matched startxref at %d", got)
	}
}
