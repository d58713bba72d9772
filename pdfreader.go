// Package pdfreader provides a fluent API for inspecting PDF files,
// including damaged ones.
//
// Basic usage:
//
//	summary, err := pdfreader.Open("document.pdf").Summary()
//	if err != nil {
//	    // handle error
//	}
//	if summary.Recovered {
//	    log.Println(pdfreader.FormatWarnings(summary.Warnings))
//	}
//
// With options:
//
//	count, err := pdfreader.Open("secret.pdf").
//	    Password("hunter2").
//	    Strict().
//	    PageCount()
//
// For full access to the object graph, use the reader package.
package pdfreader

import (
	"fmt"
	"strings"

	"github.com/tsawler/pdfreader/diag"
	"github.com/tsawler/pdfreader/reader"
)

// Open returns an Inspector for the file. Nothing is read until a terminal
// operation such as PageCount or Summary runs.
func Open(filename string) *Inspector {
	return &Inspector{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromDocument wraps an already open Document. The caller keeps ownership
// and must close it.
//
// Example:
//
//	doc, err := reader.NewDocument(data)
//	if err != nil {
//	    // handle error
//	}
//	defer doc.Close()
//	outline, err := pdfreader.FromDocument(doc).Outline()
func FromDocument(doc *reader.Document) *Inspector {
	return &Inspector{
		doc:     doc,
		opened:  true,
		options: defaultOptions(),
	}
}

// Must panics if err is non-nil and returns val otherwise. It is meant for
// scripts and tests.
//
//	count := pdfreader.Must(pdfreader.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []diag.Warning) string {
	var sb strings.Builder
	for i, w := range warnings {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "  - %s", w)
	}
	return sb.String()
}
