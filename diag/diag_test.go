package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWarnDeduplicates(t *testing.T) {
	c := New(nil)

	if !c.Warn(ClassStartXRefPointer, 10, "incorrect startxref pointer(%d)", 1) {
		t.Fatal("first warning should be new")
	}
	if c.Warn(ClassStartXRefPointer, 10, "incorrect startxref pointer(%d)", 1) {
		t.Error("identical warning should be dropped")
	}
	if !c.Warn(ClassStartXRefPointer, 11, "incorrect startxref pointer(%d)", 1) {
		t.Error("warning at a different offset should be recorded")
	}

	if c.Len() != 2 {
		t.Errorf("expected 2 warnings, got %d", c.Len())
	}
	if c.Count(ClassStartXRefPointer) != 2 {
		t.Errorf("expected 2 of class, got %d", c.Count(ClassStartXRefPointer))
	}
	if c.Has(ClassXRefRepaired) {
		t.Error("unexpected class reported")
	}
}

func TestWarnFormatting(t *testing.T) {
	c := New(nil)
	c.Warn(ClassObjectNotDefined, NoOffset, "Object %d %d not defined.", 5, 1)
	c.Warn(ClassHeader, 0, "plain message")

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0] != "Object 5 1 not defined." {
		t.Errorf("got %q", msgs[0])
	}
	if msgs[1] != "plain message" {
		t.Errorf("got %q", msgs[1])
	}

	ws := c.Warnings()
	if got := ws[0].String(); got != "[object-not-defined] Object 5 1 not defined." {
		t.Errorf("String() = %q", got)
	}
	if got := ws[1].String(); !strings.HasSuffix(got, "(at byte 0)") {
		t.Errorf("String() = %q", got)
	}
}

func TestWarningsIsCopy(t *testing.T) {
	c := New(nil)
	c.Warn(ClassHeader, 0, "invalid pdf header")

	ws := c.Warnings()
	ws[0].Message = "changed"

	if c.Warnings()[0].Message != "invalid pdf header" {
		t.Error("Warnings should return a copy")
	}
}

func TestWarnLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := New(logger)

	c.Warn(ClassXRefRepaired, 42, "xref table repaired by scanning the file")

	out := buf.String()
	for _, want := range []string{"level=WARN", "class=xref-repaired", "offset=42", "repaired"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestResetAndNil(t *testing.T) {
	c := New(nil)
	c.Warn(ClassHeader, 0, "x")
	c.Reset()
	if c.Len() != 0 {
		t.Error("Reset should clear warnings")
	}
	if !c.Warn(ClassHeader, 0, "x") {
		t.Error("warning should be new after Reset")
	}

	var nilc *Collector
	if nilc.Warn(ClassHeader, 0, "x") {
		t.Error("nil collector should not record")
	}
	if nilc.Len() != 0 || nilc.Warnings() != nil || nilc.Has(ClassHeader) {
		t.Error("nil collector should be empty")
	}
	if nilc.Logger() == nil {
		t.Error("nil collector should still return a logger")
	}
}
