package reader

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
	"github.com/tsawler/pdfreader/internal/mmap"
	"github.com/tsawler/pdfreader/pages"
	"github.com/tsawler/pdfreader/resolver"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// headerLimit is how far into the file a lenient reader looks for the
// %PDF- header.
const headerLimit = 1024

var (
	headerMarker  = []byte("%PDF-")
	versionRegexp = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)
)

// Document is an open PDF file. It owns the cross-reference table, the
// object cache and the warnings collected while reading. A Document is not
// safe for concurrent use.
type Document struct {
	data   []byte
	mapped *mmap.File
	config Config
	diag   *diag.Collector

	version        PDFVersion
	xref           *core.XRefTable
	recovery       *core.XRefTable
	recTried       bool
	recovered      bool
	notZeroIndexed bool
	startxref      int64

	cache      map[core.IndirectRef]core.Object
	resolving  map[core.IndirectRef]bool
	objStreams map[int]*core.ObjectStream
	parseCount int

	crypt      *securityHandler
	encryptRef *core.IndirectRef

	deep     *resolver.ObjectResolver
	pageTree *pages.PageTree
}

var _ pages.Resolver = (*Document)(nil)

// Open memory-maps a PDF file and opens it.
func Open(path string, opts ...Option) (*Document, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	doc, err := NewDocument(m.Bytes(), opts...)
	if err != nil {
		m.Close()
		return nil, err
	}
	doc.mapped = m
	return doc, nil
}

// NewDocumentFromReader reads all of r and opens the result.
func NewDocumentFromReader(r io.Reader, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return NewDocument(data, opts...)
}

// NewDocument opens a PDF held in memory. The slice must not be modified
// while the Document is in use.
func NewDocument(data []byte, opts ...Option) (*Document, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Document{
		data:       data,
		config:     cfg,
		diag:       diag.New(cfg.Logger),
		cache:      make(map[core.IndirectRef]core.Object),
		resolving:  make(map[core.IndirectRef]bool),
		objStreams: make(map[int]*core.ObjectStream),
		startxref:  -1,
	}
	d.deep = resolver.NewResolver(d, resolver.WithMaxDepth(cfg.MaxDepth))

	if len(data) == 0 {
		return nil, core.NewError(core.KindEmptyFile, -1, nil, "Cannot read an empty file")
	}

	version, err := d.parseHeader()
	if err != nil {
		return nil, err
	}
	d.version = version

	if err := d.loadXRef(); err != nil {
		return nil, err
	}

	if err := d.setupEncryption(); err != nil {
		return nil, err
	}

	d.diag.Logger().Debug("opened document",
		"objects", d.xref.Size(),
		"recovered", d.recovered,
		"version", d.version.String())
	return d, nil
}

// parseHeader checks the %PDF- header and reads the version. Lenient mode
// accepts a header preceded by junk, or none at all.
func (d *Document) parseHeader() (PDFVersion, error) {
	if !bytes.HasPrefix(d.data, headerMarker) {
		head := d.data[:min(len(d.data), len(headerMarker))]
		if d.config.Strict {
			return PDFVersion{}, core.NewError(core.KindHeader, 0, nil,
				fmt.Sprintf("PDF starts with '%s', but '%%PDF-' expected", head))
		}
		d.diag.Warn(diag.ClassHeader, 0, "invalid pdf header: %q", head)
	}

	m := versionRegexp.FindSubmatch(d.data[:min(len(d.data), headerLimit)])
	if m == nil {
		return PDFVersion{}, nil
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// loadXRef builds the cumulative cross-reference table.
func (d *Document) loadXRef() error {
	res, err := core.LoadXRef(d.data, d.loadOptions())
	if err != nil {
		return err
	}
	d.xref = res.Table
	d.recovery = res.Recovery
	d.recTried = res.RecoveryTried
	d.recovered = res.Recovered
	d.notZeroIndexed = res.NotZeroIndexed
	d.startxref = res.StartXRef
	return nil
}

// setupEncryption authenticates against /Encrypt when the file has one.
func (d *Document) setupEncryption() error {
	encObj := d.Trailer().Get("Encrypt")
	if encObj == nil {
		return nil
	}
	if ref, ok := encObj.(core.IndirectRef); ok {
		d.encryptRef = &ref
	}

	resolved, err := d.Resolve(encObj)
	if err != nil {
		return core.NewError(core.KindEncryption, -1, err, "failed to read /Encrypt")
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return core.NewError(core.KindEncryption, -1, nil,
			fmt.Sprintf("/Encrypt is %T, not a dictionary", resolved))
	}

	var id []byte
	if ids, ok := d.Trailer().GetArray("ID"); ok && len(ids) > 0 {
		if first, err := d.Resolve(ids[0]); err == nil {
			id = stringBytes(first)
		}
	}

	h, err := newSecurityHandler(dict, id)
	if err != nil {
		return core.NewError(core.KindEncryption, -1, err, "unsupported encryption")
	}
	if err := h.authenticate(d.config.Password); err != nil {
		return err
	}
	d.crypt = h
	return nil
}

// Close releases the file mapping. The Document must not be used
// afterwards.
func (d *Document) Close() error {
	if d.mapped != nil {
		err := d.mapped.Close()
		d.mapped = nil
		return err
	}
	return nil
}

// Version returns the PDF version
func (d *Document) Version() PDFVersion {
	return d.version
}

// Trailer returns the merged trailer dictionary
func (d *Document) Trailer() core.Dict {
	return d.xref.Trailer
}

// XRefTable returns the cross-reference table
// Exposed for debugging/inspection
func (d *Document) XRefTable() *core.XRefTable {
	return d.xref
}

// StartXRef returns the offset of the first xref section read, or -1 when
// the table was rebuilt by scanning.
func (d *Document) StartXRef() int64 {
	return d.startxref
}

// Strict reports whether the document was opened in strict mode.
func (d *Document) Strict() bool {
	return d.config.Strict
}

// Recovered reports whether the table had to be rebuilt by scanning the
// file.
func (d *Document) Recovered() bool {
	return d.recovered
}

// Encrypted reports whether the document has an /Encrypt dictionary.
func (d *Document) Encrypted() bool {
	return d.crypt != nil
}

// Warnings returns the warnings collected so far.
func (d *Document) Warnings() []diag.Warning {
	return d.diag.Warnings()
}

// Diagnostics returns the document's warning collector.
func (d *Document) Diagnostics() *diag.Collector {
	return d.diag
}

// ParseCount returns how many objects have been parsed from the file or
// from object streams. Cache hits do not count.
func (d *Document) ParseCount() int {
	return d.parseCount
}

// NumObjects returns the trailer's /Size.
func (d *Document) NumObjects() int {
	if n := d.xref.DeclaredSize(); n > 0 {
		return n
	}
	return 0
}

// FileSize returns the size of the PDF file in bytes
func (d *Document) FileSize() int64 {
	return int64(len(d.data))
}

// CacheSize returns the number of cached objects
func (d *Document) CacheSize() int {
	return len(d.cache)
}

// Catalog returns the document catalog (root object)
func (d *Document) Catalog() (core.Dict, error) {
	rootObj := d.Trailer().Get("Root")
	if rootObj == nil {
		return nil, core.NewError(core.KindReference, -1, nil, "trailer missing /Root entry")
	}

	obj, err := d.Resolve(rootObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}

	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, core.NewError(core.KindReference, -1, nil,
			fmt.Sprintf("catalog is not a dictionary: %T", obj))
	}
	return catalog, nil
}

func (d *Document) catalog() (*pages.Catalog, error) {
	dict, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	return pages.NewCatalog(dict, d), nil
}

// PageLayout returns the catalog's /PageLayout, or "".
func (d *Document) PageLayout() string {
	c, err := d.catalog()
	if err != nil {
		return ""
	}
	return c.PageLayout()
}

// PageMode returns the catalog's /PageMode, or "".
func (d *Document) PageMode() string {
	c, err := d.catalog()
	if err != nil {
		return ""
	}
	return c.PageMode()
}

// PageCount returns the number of pages found by walking the page tree.
func (d *Document) PageCount() (int, error) {
	if err := d.ensurePageTree(); err != nil {
		return 0, err
	}
	return d.pageTree.Count()
}

// Page returns the page at the given index (0-based)
func (d *Document) Page(index int) (*pages.Page, error) {
	if err := d.ensurePageTree(); err != nil {
		return nil, err
	}
	return d.pageTree.GetPage(index)
}

// Pages returns every page in document order.
func (d *Document) Pages() ([]*pages.Page, error) {
	if err := d.ensurePageTree(); err != nil {
		return nil, err
	}
	return d.pageTree.Pages()
}

// PageNumber returns the 0-based index of the page with the given
// reference, or -1.
func (d *Document) PageNumber(ref core.IndirectRef) int {
	if err := d.ensurePageTree(); err != nil {
		return -1
	}
	return d.pageTree.IndexOf(ref)
}

// ensurePageTree loads the page tree if not already loaded
func (d *Document) ensurePageTree() error {
	if d.pageTree != nil {
		return nil
	}

	catalog, err := d.catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	root, err := catalog.Pages()
	if err != nil {
		return err
	}

	var rootRef *core.IndirectRef
	if ref, ok := catalog.PagesRef(); ok {
		rootRef = &ref
	}

	d.pageTree = pages.NewPageTree(root, rootRef, d,
		pages.WithStrict(d.config.Strict),
		pages.WithDiagnostics(d.diag))
	return nil
}
