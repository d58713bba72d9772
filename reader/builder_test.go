package reader

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// pdfBuilder writes synthetic PDF files and keeps track of object offsets.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int
	gens    map[int]int
}

func newPDF(version string) *pdfBuilder {
	b := &pdfBuilder{offsets: make(map[int]int), gens: make(map[int]int)}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n", version)
	return b
}

// obj writes "num 0 obj body endobj".
func (b *pdfBuilder) obj(num int, body string) *pdfBuilder {
	return b.objGen(num, 0, body)
}

func (b *pdfBuilder) objGen(num, gen int, body string) *pdfBuilder {
	b.offsets[num] = b.buf.Len()
	b.gens[num] = gen
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", num, gen, body)
	return b
}

// stream writes a stream object. dict is the dictionary content without
// the brackets and without /Length.
func (b *pdfBuilder) stream(num int, dict string, data []byte) *pdfBuilder {
	b.offsets[num] = b.buf.Len()
	b.gens[num] = 0
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return b
}

// raw appends bytes as is.
func (b *pdfBuilder) raw(s string) *pdfBuilder {
	b.buf.WriteString(s)
	return b
}

func (b *pdfBuilder) offset() int {
	return b.buf.Len()
}

// xrefTable writes a classic table for the given object numbers, one
// subsection per contiguous run, and returns its offset. Object 0 is
// always written as the head of the free list.
func (b *pdfBuilder) xrefTable(nums []int) int {
	start := b.buf.Len()
	b.buf.WriteString("xref\n")

	all := append([]int{0}, nums...)
	sort.Ints(all)
	for i := 0; i < len(all); {
		j := i
		for j+1 < len(all) && all[j+1] == all[j]+1 {
			j++
		}
		fmt.Fprintf(&b.buf, "%d %d\n", all[i], j-i+1)
		for _, n := range all[i : j+1] {
			if n == 0 {
				b.buf.WriteString("0000000000 65535 f \n")
				continue
			}
			fmt.Fprintf(&b.buf, "%010d %05d n \n", b.offsets[n], b.gens[n])
		}
		i = j + 1
	}
	return start
}

// trailer writes the trailer, startxref and %%EOF.
func (b *pdfBuilder) trailer(dict string, startxref int) *pdfBuilder {
	fmt.Fprintf(&b.buf, "trailer\n<< %s >>\nstartxref\n%d\n", dict, startxref)
	b.buf.WriteString("%%EOF\n")
	return b
}

// finish writes a table covering every object written so far and a
// trailer with /Size and /Root 1 0 R plus extra.
func (b *pdfBuilder) finish(extra string) []byte {
	nums := b.numbers()
	xref := b.xrefTable(nums)
	size := 1
	if len(nums) > 0 {
		size = nums[len(nums)-1] + 1
	}
	b.trailer(fmt.Sprintf("/Size %d /Root 1 0 R %s", size, extra), xref)
	return b.bytes()
}

func (b *pdfBuilder) numbers() []int {
	nums := make([]int, 0, len(b.offsets))
	for n := range b.offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func (b *pdfBuilder) bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// xrefEntry is one row of an xref stream: type and two fields.
type xrefEntry [3]int

// xrefStream writes an xref stream object num with /W [1 2 1] and the
// given rows for objects 0..len(rows)-1, compressed with zlib. It returns
// the stream's offset.
func (b *pdfBuilder) xrefStream(num int, rows []xrefEntry, extra string) int {
	var raw bytes.Buffer
	for _, r := range rows {
		raw.WriteByte(byte(r[0]))
		raw.WriteByte(byte(r[1] >> 8))
		raw.WriteByte(byte(r[1]))
		raw.WriteByte(byte(r[2]))
	}
	start := b.buf.Len()
	b.stream(num, fmt.Sprintf("/Type /XRef /Size %d /W [1 2 1] /Filter /FlateDecode %s", len(rows), extra),
		deflate(raw.Bytes()))
	return start
}

// objStream writes an object stream holding the given members, in order.
func (b *pdfBuilder) objStream(num int, members []int, bodies []string) *pdfBuilder {
	var header, body bytes.Buffer
	for i, m := range members {
		fmt.Fprintf(&header, "%d %d ", m, body.Len())
		body.WriteString(bodies[i])
		body.WriteByte('\n')
	}
	data := append(header.Bytes(), body.Bytes()...)
	return b.stream(num, fmt.Sprintf("/Type /ObjStm /N %d /First %d /Filter /FlateDecode",
		len(members), header.Len()), deflate(data))
}

func deflate(data []byte) []byte {
	var out bytes.Buffer
	w := zlib.NewWriter(&out)
	w.Write(data)
	w.Close()
	return out.Bytes()
}

// pageTree returns the bodies of a catalog (1), a pages node (2) and n
// pages (3..n+2).
func pageTree(b *pdfBuilder, n int) *pdfBuilder {
	return catalogTree(b, n, "", "")
}

// catalogTree is pageTree with extra entries for the catalog and for
// every page dictionary.
func catalogTree(b *pdfBuilder, n int, catalogExtra, pageExtra string) *pdfBuilder {
	b.obj(1, fmt.Sprintf("<< /Type /Catalog /Pages 2 0 R %s >>", catalogExtra))
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	b.obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i := 0; i < n; i++ {
		b.obj(i+3, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] %s >>", pageExtra))
	}
	return b
}

// openBytes opens data and fails the test on error.
func openBytes(t *testing.T, data []byte, opts ...Option) *Document {
	t.Helper()
	doc, err := NewDocument(data, opts...)
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	return doc
}

// createTempPDF writes content to a file in a temporary directory.
func createTempPDF(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create temp PDF: %v", err)
	}
	return path
}

// hasWarning reports whether doc recorded a warning with exactly msg.
func hasWarning(doc *Document, msg string) bool {
	for _, m := range doc.Diagnostics().Messages() {
		if m == msg {
			return true
		}
	}
	return false
}
