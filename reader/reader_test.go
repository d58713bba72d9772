package reader

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
)

// minimalPDF is a minimal valid PDF with 19-byte xref records.
const minimalPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [] /Count 0 >>
endobj
xref
0 3
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
trailer
<< /Size 3 /Root 1 0 R >>
startxref
110
%%EOF`

// pdfWithInfo is a PDF with an Info dictionary
const pdfWithInfo = `%PDF-1.7
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [] /Count 0 >>
endobj
3 0 obj
<< /Title (Test Document) /Author (Test Author) >>
endobj
xref
0 4
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000110 00000 n
trailer
<< /Size 4 /Root 1 0 R /Info 3 0 R >>
startxref
176
%%EOF`

func onePagePDF() []byte {
	return pageTree(newPDF("1.7"), 1).finish("")
}

func TestOpen(t *testing.T) {
	path := createTempPDF(t, onePagePDF())

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open PDF: %v", err)
	}
	defer doc.Close()

	if doc.mapped == nil {
		t.Error("expected file to be mapped")
	}
	if doc.xref == nil {
		t.Error("expected xref table to be set")
	}
	if doc.Trailer() == nil {
		t.Error("expected trailer to be set")
	}
	if n, err := doc.PageCount(); err != nil || n != 1 {
		t.Errorf("PageCount() = %d, %v; want 1", n, err)
	}
}

func TestOpenNonExistent(t *testing.T) {
	_, err := Open("/nonexistent/file.pdf")
	if err == nil {
		t.Error("expected error when opening non-existent file")
	}
}

func TestNewDocumentFromReader(t *testing.T) {
	doc, err := NewDocumentFromReader(bytes.NewReader(onePagePDF()))
	if err != nil {
		t.Fatalf("NewDocumentFromReader() error = %v", err)
	}
	if doc.FileSize() != int64(len(onePagePDF())) {
		t.Errorf("FileSize() = %d", doc.FileSize())
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantMajor int
		wantMinor int
	}{
		{"PDF 1.4", "%PDF-1.4\n" + minimalPDF[9:], 1, 4},
		{"PDF 1.7", "%PDF-1.7\n" + minimalPDF[9:], 1, 7},
		{"PDF 2.0", "%PDF-2.0\n" + minimalPDF[9:], 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := openBytes(t, []byte(tt.content), WithStrict(true))

			v := doc.Version()
			if v.Major != tt.wantMajor || v.Minor != tt.wantMinor {
				t.Errorf("Version() = %d.%d, want %d.%d", v.Major, v.Minor, tt.wantMajor, tt.wantMinor)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	if got := (PDFVersion{Major: 1, Minor: 7}).String(); got != "1.7" {
		t.Errorf("String() = %q, want 1.7", got)
	}
}

func TestReadEmpty(t *testing.T) {
	for _, strict := range []bool{true, false} {
		_, err := NewDocument(nil, WithStrict(strict))
		if err == nil {
			t.Fatal("expected error for empty input")
		}
		if err.Error() != "Cannot read an empty file" {
			t.Errorf("error = %q", err)
		}
		if !errors.Is(err, core.ErrEmptyFile) {
			t.Errorf("error %v is not ErrEmptyFile", err)
		}
	}
}

func TestReadMalformedHeader(t *testing.T) {
	_, err := NewDocument([]byte("foo"), WithStrict(true))
	if err == nil {
		t.Fatal("expected error in strict mode")
	}
	if err.Error() != "PDF starts with 'foo', but '%PDF-' expected" {
		t.Errorf("error = %q", err)
	}
	if !core.IsKind(err, core.KindHeader) {
		t.Errorf("error kind = %v, want header", err)
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	if _, err := NewDocument([]byte("foo"), WithLogger(logger)); err == nil {
		t.Error("expected lenient open of garbage to fail after recovery")
	}
	if !strings.Contains(logs.String(), "invalid pdf header") {
		t.Errorf("log does not mention the header:\n%s", logs.String())
	}
}

func TestReadMalformedBody(t *testing.T) {
	_, err := NewDocument([]byte("%PDF-"), WithStrict(true))
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "EOF marker not found" {
		t.Errorf("error = %q", err)
	}
}

func TestTrailer(t *testing.T) {
	doc := openBytes(t, []byte(pdfWithInfo))

	trailer := doc.Trailer()
	if size, ok := trailer.GetInt("Size"); !ok || size != 4 {
		t.Errorf("/Size = %v", trailer.Get("Size"))
	}
	root, ok := trailer.GetIndirectRef("Root")
	if !ok || root.Number != 1 {
		t.Errorf("/Root = %v", trailer.Get("Root"))
	}
	if !trailer.Has("Info") {
		t.Error("expected /Info in trailer")
	}
}

func TestNineteenByteRecords(t *testing.T) {
	doc := openBytes(t, []byte(minimalPDF), WithStrict(true))

	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if typ, _ := catalog.GetName("Type"); typ != "Catalog" {
		t.Errorf("/Type = %v", typ)
	}
	if n, err := doc.PageCount(); err != nil || n != 0 {
		t.Errorf("PageCount() = %d, %v; want 0", n, err)
	}
	if len(doc.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", doc.Warnings())
	}
}

func TestGetObject(t *testing.T) {
	doc := openBytes(t, []byte(pdfWithInfo))

	obj, err := doc.GetObject(3)
	if err != nil {
		t.Fatalf("GetObject(3) error = %v", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", obj)
	}
	if title, _ := dict.GetString("Title"); title != "Test Document" {
		t.Errorf("/Title = %q", title)
	}
}

func TestGetObjectCaching(t *testing.T) {
	doc := openBytes(t, []byte(pdfWithInfo))

	first, err := doc.GetObject(3)
	if err != nil {
		t.Fatal(err)
	}
	count := doc.ParseCount()
	if count != 1 {
		t.Errorf("ParseCount() = %d after first load, want 1", count)
	}

	second, err := doc.GetObject(3)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ParseCount() != count {
		t.Errorf("cached object was parsed again")
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("cached object differs: %v vs %v", first, second)
	}
	if doc.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", doc.CacheSize())
	}
}

func TestGetObjectNotFound(t *testing.T) {
	t.Run("lenient", func(t *testing.T) {
		doc := openBytes(t, onePagePDF())
		obj, err := doc.GetObject(99)
		if err != nil {
			t.Fatalf("GetObject(99) error = %v", err)
		}
		if !core.IsNull(obj) {
			t.Errorf("GetObject(99) = %v, want null", obj)
		}
		if !hasWarning(doc, "Object 99 0 not defined.") {
			t.Errorf("warnings = %v", doc.Diagnostics().Messages())
		}
	})

	t.Run("strict", func(t *testing.T) {
		doc := openBytes(t, onePagePDF(), WithStrict(true))
		_, err := doc.GetObject(99)
		if err == nil {
			t.Fatal("expected error")
		}
		if err.Error() != "Could not find object." {
			t.Errorf("error = %q", err)
		}
		if !errors.Is(err, core.ErrReference) {
			t.Errorf("error %v is not ErrReference", err)
		}
	})
}

func TestFreeEntryResolvesToNull(t *testing.T) {
	b := pageTree(newPDF("1.7"), 1)
	b.obj(4, "(gone)")
	xref := b.offset()
	b.raw("xref\n0 5\n0000000000 65535 f \n")
	for n := 1; n <= 3; n++ {
		b.raw(fmt.Sprintf("%010d 00000 n \n", b.offsets[n]))
	}
	b.raw("0000000000 00001 f \n")
	b.trailer("/Size 5 /Root 1 0 R", xref)

	doc := openBytes(t, b.bytes())
	obj, err := doc.ResolveReference(core.IndirectRef{Number: 4, Generation: 1})
	if err != nil {
		t.Fatalf("ResolveReference error = %v", err)
	}
	if !core.IsNull(obj) {
		t.Errorf("free object = %v, want null", obj)
	}
}

func TestResolve(t *testing.T) {
	doc := openBytes(t, []byte(pdfWithInfo))

	direct := core.Int(42)
	got, err := doc.Resolve(direct)
	if err != nil || got != direct {
		t.Errorf("Resolve(direct) = %v, %v", got, err)
	}

	got, err = doc.Resolve(core.IndirectRef{Number: 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(core.Dict); !ok {
		t.Errorf("Resolve(3 0 R) = %T, want Dict", got)
	}
}

func TestResolveDeep(t *testing.T) {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R /Extra 4 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.obj(4, "<< /Items [5 0 R 5 0 R] >>")
	b.obj(5, "(shared)")
	doc := openBytes(t, b.finish(""))

	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := doc.ResolveDeep(catalog)
	if err != nil {
		t.Fatalf("ResolveDeep() error = %v", err)
	}
	extra := resolved.(core.Dict)["Extra"].(core.Dict)
	items := extra["Items"].(core.Array)
	for i, item := range items {
		if s, ok := item.(core.String); !ok || s != "shared" {
			t.Errorf("item %d = %v", i, item)
		}
	}
}

func TestCircularReferences(t *testing.T) {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R /Loop 4 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.obj(4, "<< /Next 5 0 R >>")
	b.obj(5, "<< /Next 4 0 R >>")
	data := b.finish("")

	for _, strict := range []bool{true, false} {
		doc := openBytes(t, data, WithStrict(strict))
		_, err := doc.ResolveDeep(core.IndirectRef{Number: 4})
		if !core.IsKind(err, core.KindRecursion) {
			t.Errorf("strict=%v: ResolveDeep error = %v, want recursion", strict, err)
		}
		if !errors.Is(err, core.ErrRecursion) {
			t.Errorf("strict=%v: error %v is not ErrRecursion", strict, err)
		}
	}
}

func TestObjectStreamContainsItself(t *testing.T) {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	self := b.offset()
	rows := []xrefEntry{
		{0, 0, 255},
		{1, b.offsets[1], 0},
		{1, b.offsets[2], 0},
		{2, 3, 0}, // object 3 claims to live in object stream 3
		{1, self, 0},
	}
	b.xrefStream(4, rows, "/Root 1 0 R")
	b.raw(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", self))

	for _, strict := range []bool{true, false} {
		doc := openBytes(t, b.bytes(), WithStrict(strict))
		_, err := doc.GetObject(3)
		if !core.IsKind(err, core.KindRecursion) {
			t.Errorf("strict=%v: GetObject(3) error = %v, want recursion", strict, err)
		}
	}
}

func TestCatalog(t *testing.T) {
	doc := openBytes(t, []byte(pdfWithInfo))

	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if typ, _ := catalog.GetName("Type"); typ != "Catalog" {
		t.Errorf("/Type = %v", typ)
	}
}

func TestCatalog_MissingRoot(t *testing.T) {
	b := pageTree(newPDF("1.7"), 1)
	nums := b.numbers()
	xref := b.xrefTable(nums)
	b.trailer("/Size 4", xref)

	doc := openBytes(t, b.bytes(), WithStrict(true))
	if _, err := doc.Catalog(); !core.IsKind(err, core.KindReference) {
		t.Errorf("strict Catalog() error = %v, want reference error", err)
	}

	// lenient mode finds the catalog by scanning
	doc = openBytes(t, b.bytes())
	if n, err := doc.PageCount(); err != nil || n != 1 {
		t.Errorf("lenient PageCount() = %d, %v; want 1", n, err)
	}
	if !doc.Diagnostics().Has(diag.ClassInvalidTable) {
		t.Errorf("expected rebuild warning, got %v", doc.Diagnostics().Messages())
	}
}

func TestNumObjects(t *testing.T) {
	doc := openBytes(t, []byte(pdfWithInfo))
	if n := doc.NumObjects(); n != 4 {
		t.Errorf("NumObjects() = %d, want 4", n)
	}
	if doc.XRefTable().Size() != 4 {
		t.Errorf("XRefTable().Size() = %d, want 4", doc.XRefTable().Size())
	}
}

func TestClose(t *testing.T) {
	doc, err := Open(createTempPDF(t, onePagePDF()))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	mem := openBytes(t, onePagePDF())
	if err := mem.Close(); err != nil {
		t.Errorf("Close() on in-memory document error = %v", err)
	}
}

func TestPages(t *testing.T) {
	doc := openBytes(t, pageTree(newPDF("1.7"), 3).finish(""))

	n, err := doc.PageCount()
	if err != nil || n != 3 {
		t.Fatalf("PageCount() = %d, %v; want 3", n, err)
	}

	pages, err := doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range pages {
		ref, ok := p.Ref()
		if !ok {
			t.Fatalf("page %d has no ref", i)
		}
		if got := doc.PageNumber(ref); got != i {
			t.Errorf("PageNumber(%v) = %d, want %d", ref, got, i)
		}
		if w, err := p.Width(); err != nil || w != 612 {
			t.Errorf("page %d width = %v, %v", i, w, err)
		}
	}

	if _, err := doc.Page(3); err == nil {
		t.Error("expected error for out-of-range page")
	}
	if got := doc.PageNumber(core.IndirectRef{Number: 1}); got != -1 {
		t.Errorf("PageNumber(catalog) = %d, want -1", got)
	}
}

func TestPageCountIgnoresDeclaredCount(t *testing.T) {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 7 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R >>")
	b.obj(4, "<< /Type /Page /Parent 2 0 R >>")
	doc := openBytes(t, b.finish(""))

	if n, err := doc.PageCount(); err != nil || n != 2 {
		t.Errorf("PageCount() = %d, %v; want 2", n, err)
	}
}

func TestPageLayoutAndMode(t *testing.T) {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R /PageLayout /TwoColumnLeft /PageMode /UseOutlines >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	doc := openBytes(t, b.finish(""))

	if got := doc.PageLayout(); got != "TwoColumnLeft" {
		t.Errorf("PageLayout() = %q", got)
	}
	if got := doc.PageMode(); got != "UseOutlines" {
		t.Errorf("PageMode() = %q", got)
	}

	plain := openBytes(t, onePagePDF())
	if plain.PageLayout() != "" || plain.PageMode() != "" {
		t.Errorf("expected empty layout and mode, got %q %q", plain.PageLayout(), plain.PageMode())
	}
}

func TestWithLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	doc := openBytes(t, onePagePDF(), WithLogger(logger))
	doc.GetObject(42)

	out := logs.String()
	for _, want := range []string{"opened document", "objects=", "recovered=false", "version=1.7", "Object 42 0 not defined."} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithStrict(true),
		WithPassword("pw"),
		WithStartXRefWindow(50),
		WithMaxDepth(10),
		WithStartXRefWindow(0),
		WithMaxDepth(-1),
	} {
		opt(&cfg)
	}
	if !cfg.Strict || cfg.Password != "pw" || cfg.StartXRefWindow != 50 || cfg.MaxDepth != 10 {
		t.Errorf("config = %+v", cfg)
	}
}
