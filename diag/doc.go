// Package diag collects structured warnings produced while reading a PDF.
//
// Reading damaged files in lenient mode downgrades many problems to
// warnings. Instead of writing them to a global log, every document owns a
// [Collector] that records each warning as a [Warning] with a stable
// [Class], the byte offset it relates to, and a human readable message.
//
//	c := diag.New(logger)
//	c.Warn(diag.ClassStartXRefPointer, 1234, "incorrect startxref pointer(%d)", 1)
//	for _, w := range c.Warnings() {
//	    fmt.Println(w.Class, w.Offset, w.Message)
//	}
//
// Identical warnings are recorded once. Each new warning is also written to
// the collector's [log/slog] logger at warn level.
package diag
