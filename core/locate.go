package core

import (
	"bytes"
	"strconv"

	"github.com/tsawler/pdfreader/diag"
)

// DefaultStartXRefWindow is how many bytes on each side of a wrong startxref
// pointer are searched for the real xref section.
const DefaultStartXRefWindow = 20

var (
	eofMarker       = []byte("%%EOF")
	startxrefMarker = []byte("startxref")
	xrefKeyword     = []byte("xref")
)

// FindEOFMarker returns the position of the last %%EOF marker, or -1.
func FindEOFMarker(data []byte) int64 {
	return int64(bytes.LastIndex(data, eofMarker))
}

// previousLine returns the line ending before end, skipping blank lines.
// It returns the trimmed line and the position where it starts.
func previousLine(data []byte, end int64) ([]byte, int64) {
	for end > 0 && isWhitespace(data[end-1]) {
		end--
	}
	start := end
	for start > 0 && data[start-1] != '\n' && data[start-1] != '\r' {
		start--
	}
	return bytes.TrimSpace(data[start:end]), start
}

// FindStartXRef reads the startxref offset from the lines preceding the
// %%EOF marker at eof.
func FindStartXRef(data []byte, eof int64, c *diag.Collector) (int64, error) {
	line, start := previousLine(data, eof)
	if bytes.HasPrefix(line, startxrefMarker) {
		n, err := strconv.ParseInt(string(bytes.TrimSpace(line[len(startxrefMarker):])), 10, 64)
		if err != nil {
			return 0, errorAt(KindLocation, start, nil, "startxref not found")
		}
		c.Warn(diag.ClassStartXRefSameLine, start, "startxref on same line as offset")
		return n, nil
	}

	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, errorAt(KindLocation, start, nil, "startxref not found")
	}
	keyword, kwStart := previousLine(data, start)
	if !bytes.HasPrefix(keyword, startxrefMarker) {
		return 0, errorAt(KindLocation, kwStart, nil, "startxref not found")
	}
	return n, nil
}

// XRefIssue checks what startxref points at. It returns 0 when the target
// looks like an xref table or an object header, and otherwise a code:
//
//	1  the pointer is out of range or not preceded by whitespace
//	2  the data ends while reading an object header
//	3  neither the xref keyword nor an object header follows
func XRefIssue(data []byte, startxref int64) int {
	size := int64(len(data))
	if startxref < 1 || startxref >= size {
		return 1
	}
	pos := startxref - 1
	c := data[pos]
	if c == 'j' {
		// endobj directly before: the byte at the pointer must separate them
		pos++
		c = data[pos]
	}
	if !isWhitespace(c) {
		return 1
	}

	if bytes.HasPrefix(data[startxref:], xrefKeyword) {
		return 0
	}
	pos = startxref
	for pos < size && (isDigit(data[pos]) || data[pos] == ' ' || data[pos] == '\t') {
		pos++
	}
	if pos >= size {
		return 2
	}
	if pos+3 > size || !bytes.EqualFold(data[pos:pos+3], []byte("obj")) {
		return 3
	}
	return 0
}

// FindXRefNear searches window bytes around a wrong startxref pointer for an
// xref keyword (not part of startxref) or an object header. It returns the
// candidate closest to the pointer.
func FindXRefNear(data []byte, startxref int64, window int) (int64, bool) {
	if window <= 0 {
		window = DefaultStartXRefWindow
	}
	size := int64(len(data))
	best := int64(-1)
	bestDist := int64(-1)
	consider := func(pos int64) {
		d := pos - startxref
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = pos, d
		}
	}

	for pos := startxref - int64(window); pos <= startxref+int64(window); pos++ {
		if pos < 0 || pos >= size {
			continue
		}
		if bytes.HasPrefix(data[pos:], xrefKeyword) {
			if pos >= 5 && bytes.Equal(data[pos-5:pos], []byte("start")) {
				continue
			}
			consider(pos)
			continue
		}
		if isDigit(data[pos]) && (pos == 0 || !isDigit(data[pos-1])) {
			if _, _, err := ReadObjectHeader(data, pos); err == nil {
				consider(pos)
			}
		}
	}
	return best, best >= 0
}
