package pdfreader

import (
	"fmt"
	"log/slog"

	"github.com/tsawler/pdfreader/diag"
	"github.com/tsawler/pdfreader/reader"
)

// Inspector is a fluent front end to reader.Document. Configuration
// methods return a new Inspector, so a base Inspector can be shared and
// specialized.
//
// Terminal operations open the file on first use and close it when they
// return, unless the Inspector was created with FromDocument.
type Inspector struct {
	filename string

	doc     *reader.Document
	ownsDoc bool
	opened  bool

	options inspectOptions
}

// Summary describes a document as opened.
type Summary struct {
	Version   string
	Pages     int
	Objects   int
	Recovered bool
	Encrypted bool
	Layout    string
	Mode      string
	Metadata  *reader.Metadata
	Warnings  []diag.Warning
}

func (e *Inspector) clone() *Inspector {
	c := *e
	return &c
}

// ensureDocument opens the file if it is not open yet.
func (e *Inspector) ensureDocument() error {
	if e.opened {
		return nil
	}
	if e.filename == "" {
		return fmt.Errorf("no filename specified")
	}
	doc, err := reader.Open(e.filename, e.options.readerOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	e.doc = doc
	e.ownsDoc = true
	e.opened = true
	return nil
}

// Close releases the document if this Inspector opened it. It is safe to
// call more than once.
func (e *Inspector) Close() error {
	if !e.ownsDoc || e.doc == nil {
		return nil
	}
	err := e.doc.Close()
	e.doc = nil
	e.ownsDoc = false
	e.opened = false
	return err
}

// Strict makes every structural problem an error instead of a warning
// followed by repair.
func (e *Inspector) Strict() *Inspector {
	c := e.clone()
	c.options.strict = true
	return c
}

// Password sets the password for encrypted files.
func (e *Inspector) Password(password string) *Inspector {
	c := e.clone()
	c.options.password = password
	return c
}

// Logger routes warnings to logger as they are found.
func (e *Inspector) Logger(logger *slog.Logger) *Inspector {
	c := e.clone()
	c.options.logger = logger
	return c
}

// StartXRefWindow sets how many bytes around a wrong startxref pointer are
// searched for the xref section.
func (e *Inspector) StartXRefWindow(n int) *Inspector {
	c := e.clone()
	c.options.window = n
	return c
}

// run opens the document, calls fn and closes the document again.
func (e *Inspector) run(fn func(doc *reader.Document) error) error {
	if err := e.ensureDocument(); err != nil {
		return err
	}
	defer e.Close()
	return fn(e.doc)
}

// PageCount returns the number of pages reached by walking the page tree.
func (e *Inspector) PageCount() (int, error) {
	var n int
	err := e.run(func(doc *reader.Document) error {
		var err error
		n, err = doc.PageCount()
		return err
	})
	return n, err
}

// Summary opens the document, walks its pages and reads its metadata.
// Warnings raised along the way are included.
func (e *Inspector) Summary() (*Summary, error) {
	var s *Summary
	err := e.run(func(doc *reader.Document) error {
		pages, err := doc.PageCount()
		if err != nil {
			return err
		}
		meta, err := doc.Metadata()
		if err != nil {
			return err
		}
		s = &Summary{
			Version:   doc.Version().String(),
			Pages:     pages,
			Objects:   doc.NumObjects(),
			Recovered: doc.Recovered(),
			Encrypted: doc.Encrypted(),
			Layout:    doc.PageLayout(),
			Mode:      doc.PageMode(),
			Metadata:  meta,
			Warnings:  doc.Warnings(),
		}
		return nil
	})
	return s, err
}

// Warnings returns what was repaired or ignored while opening the file and
// walking its page tree.
func (e *Inspector) Warnings() ([]diag.Warning, error) {
	var w []diag.Warning
	err := e.run(func(doc *reader.Document) error {
		if _, err := doc.PageCount(); err != nil {
			return err
		}
		w = doc.Warnings()
		return nil
	})
	return w, err
}

// Metadata returns the document information dictionary, or nil.
func (e *Inspector) Metadata() (*reader.Metadata, error) {
	var m *reader.Metadata
	err := e.run(func(doc *reader.Document) error {
		var err error
		m, err = doc.Metadata()
		return err
	})
	return m, err
}

// Outline returns the bookmarks.
func (e *Inspector) Outline() ([]*reader.OutlineItem, error) {
	var items []*reader.OutlineItem
	err := e.run(func(doc *reader.Document) error {
		var err error
		items, err = doc.Outline()
		return err
	})
	return items, err
}

// Attachments returns the embedded files keyed by name.
func (e *Inspector) Attachments() (map[string][][]byte, error) {
	var files map[string][][]byte
	err := e.run(func(doc *reader.Document) error {
		var err error
		files, err = doc.Attachments()
		return err
	})
	return files, err
}

// FormFields returns the values of the text fields of the form.
func (e *Inspector) FormFields() (map[string]string, error) {
	var fields map[string]string
	err := e.run(func(doc *reader.Document) error {
		fields = doc.FormTextFields()
		return nil
	})
	return fields, err
}
