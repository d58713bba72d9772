package pdfreader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/pdfreader/diag"
	"github.com/tsawler/pdfreader/reader"
)

// buildPDF writes a one page document with an /Info dictionary. Without
// the xref section the file only has objects and must be rebuilt by
// scanning.
func buildPDF(withXRef bool) []byte {
	return assemblePDF(withXRef, "",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
		"<< /Title (Quarterly report) /Author (Finance) >>",
	)
}

// assemblePDF numbers bodies from 3, after the catalog and page tree.
// catalogExtra is appended to the catalog dictionary.
func assemblePDF(withXRef bool, catalogExtra string, rest ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	bodies := append([]string{
		"<< /Type /Catalog /Pages 2 0 R /PageLayout /SinglePage " + catalogExtra + ">>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
	}, rest...)
	offsets := make([]int, len(bodies))
	for i, body := range bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	if !withXRef {
		return buf.Bytes()
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(bodies)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(bodies)+1, xref)
	return buf.Bytes()
}

func writePDF(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("nonexistent.pdf").PageCount(); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := Open("").Summary(); err == nil {
		t.Error("expected error without a filename")
	}
}

func TestSummary(t *testing.T) {
	path := writePDF(t, buildPDF(true))

	s, err := Open(path).Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.Version != "1.4" || s.Pages != 1 || s.Recovered || s.Encrypted {
		t.Errorf("summary = %+v", s)
	}
	if s.Layout != "SinglePage" || s.Mode != "" {
		t.Errorf("layout %q, mode %q", s.Layout, s.Mode)
	}
	if s.Metadata == nil || s.Metadata.Title != "Quarterly report" || s.Metadata.Author != "Finance" {
		t.Errorf("metadata = %+v", s.Metadata)
	}
	if len(s.Warnings) != 0 {
		t.Errorf("unexpected warnings:\n%s", FormatWarnings(s.Warnings))
	}
}

func TestRecoveredFile(t *testing.T) {
	path := writePDF(t, buildPDF(false))

	if _, err := Open(path).Strict().PageCount(); err == nil {
		t.Error("strict mode opened a file without an xref table")
	}

	s, err := Open(path).Summary()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Recovered || s.Pages != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Warnings) == 0 {
		t.Error("expected warnings for the rebuilt table")
	}

	warnings, err := Open(path).Warnings()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != len(s.Warnings) {
		t.Errorf("Warnings() returned %d, Summary %d", len(warnings), len(s.Warnings))
	}
}

func TestAttachmentsOutliveDocument(t *testing.T) {
	path := writePDF(t, assemblePDF(true, "/Names << /EmbeddedFiles << /Names [(a.txt) 5 0 R] >> >> ",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
		"<< /Title (Attachments) >>",
		"<< /Type /Filespec /F (a.txt) /EF << /F 6 0 R >> >>",
		"<< /Type /EmbeddedFile /Length 13 >>\nstream\nhello, world!\nendstream",
	))

	files, err := Open(path).Attachments()
	if err != nil {
		t.Fatal(err)
	}
	// the file has been closed and unmapped by now
	if got := files["a.txt"]; len(got) != 1 || string(got[0]) != "hello, world!" {
		t.Errorf("a.txt = %q", got)
	}
}

func TestChainImmutability(t *testing.T) {
	path := writePDF(t, buildPDF(false))
	base := Open(path)
	strict := base.Strict()

	if base.options.strict {
		t.Error("Strict() modified the base inspector")
	}
	if _, err := base.PageCount(); err != nil {
		t.Errorf("lenient: %v", err)
	}
	if _, err := strict.PageCount(); err == nil {
		t.Error("strict inspector accepted the file")
	}

	// terminal operations close the file, so the base can run again
	if n, err := base.PageCount(); err != nil || n != 1 {
		t.Errorf("second PageCount() = %d, %v", n, err)
	}
}

func TestReaderOptions(t *testing.T) {
	e := Open("x.pdf").Password("pw").StartXRefWindow(64)
	if got := len(e.options.readerOptions()); got != 3 {
		t.Errorf("got %d reader options, want 3", got)
	}
	if got := len(defaultOptions().readerOptions()); got != 1 {
		t.Errorf("defaults give %d reader options, want 1", got)
	}
}

func TestFromDocument(t *testing.T) {
	doc, err := reader.NewDocument(buildPDF(true))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	e := FromDocument(doc)
	if _, err := e.Outline(); err != nil {
		t.Errorf("Outline() = %v", err)
	}
	// the document stays open for the caller
	if n, err := e.PageCount(); err != nil || n != 1 {
		t.Errorf("PageCount() = %d, %v", n, err)
	}
	files, err := e.Attachments()
	if err != nil || len(files) != 0 {
		t.Errorf("Attachments() = %v, %v", files, err)
	}
	fields, err := e.FormFields()
	if err != nil || len(fields) != 0 {
		t.Errorf("FormFields() = %v, %v", fields, err)
	}
	meta, err := e.Metadata()
	if err != nil || meta == nil {
		t.Errorf("Metadata() = %v, %v", meta, err)
	}
}

func TestMust(t *testing.T) {
	if got := Must(3, nil); got != 3 {
		t.Errorf("Must() = %d", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("Must did not panic on error")
		}
	}()
	Must(Open("nonexistent.pdf").PageCount())
}

func TestFormatWarnings(t *testing.T) {
	got := FormatWarnings([]diag.Warning{
		{Class: diag.ClassXRefRepaired, Offset: diag.NoOffset, Message: "xref table repaired by scanning the file"},
		{Class: diag.ClassStartXRefPointer, Offset: 120, Message: "incorrect startxref pointer(1)"},
	})
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(lines[1], "incorrect startxref pointer(1)") || !strings.Contains(lines[1], "120") {
		t.Errorf("second line = %q", lines[1])
	}
	if FormatWarnings(nil) != "" {
		t.Error("no warnings should format as an empty string")
	}
}
