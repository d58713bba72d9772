package core

import (
	"bytes"
	"errors"

	"github.com/tsawler/pdfreader/diag"
)

// LoadOptions controls how cross-reference data is read.
type LoadOptions struct {
	// Strict turns recoverable damage into errors.
	Strict bool
	// Diag receives warnings. A nil collector discards them.
	Diag *diag.Collector
	// Window is the search radius used to correct a wrong startxref
	// pointer. Zero means DefaultStartXRefWindow.
	Window int
	// Resolver resolves indirect /Length values of xref and object
	// streams. Optional.
	Resolver ReferenceResolver
}

// LoadResult is the outcome of loading the cross-reference data.
type LoadResult struct {
	Table *XRefTable
	// Recovery is the table rebuilt by scanning the file, if the loader
	// had to build one. Recovered reports the same. RecoveryTried is set
	// once the scan has run, even when it found nothing.
	Recovery      *XRefTable
	Recovered     bool
	RecoveryTried bool
	StartXRef int64
	// NotZeroIndexed is set when the original table started at a non-zero
	// object number.
	NotZeroIndexed bool
}

// XRefParser locates and walks the cross-reference chain of a file held
// in memory.
type XRefParser struct {
	data []byte
	opts LoadOptions

	table    *XRefTable
	visited  map[int64]bool
	recovery *XRefTable
	recErr   error
	recTried bool
	// start of the first subsection of the oldest classic table
	zeroStart int
}

// NewXRefParser creates a parser for data.
func NewXRefParser(data []byte, opts LoadOptions) *XRefParser {
	if opts.Window <= 0 {
		opts.Window = DefaultStartXRefWindow
	}
	return &XRefParser{
		data:    data,
		opts:    opts,
		table:   NewXRefTable(),
		visited: make(map[int64]bool),
	}
}

// LoadXRef is a convenience wrapper around NewXRefParser and Load.
func LoadXRef(data []byte, opts LoadOptions) (*LoadResult, error) {
	return NewXRefParser(data, opts).Load()
}

// Load finds startxref, walks the /Prev chain and merges every section into
// one table. In lenient mode damaged files fall back to a table rebuilt by
// scanning the file.
func (x *XRefParser) Load() (*LoadResult, error) {
	data := x.data
	if len(data) == 0 {
		return nil, newError(KindEmptyFile, "Cannot read an empty file")
	}

	eof := FindEOFMarker(data)
	if eof < 0 {
		if x.opts.Strict {
			return nil, newError(KindLocation, "EOF marker not found")
		}
		x.opts.Diag.Warn(diag.ClassEOFMarker, diag.NoOffset, "EOF marker not found")
		return x.recoverAll(newError(KindLocation, "EOF marker not found"))
	}

	startxref, err := FindStartXRef(data, eof, x.opts.Diag)
	if err != nil {
		if x.opts.Strict {
			return nil, err
		}
		x.opts.Diag.Warn(diag.ClassStartXRefMissing, eof, "startxref not found")
		return x.recoverAll(err)
	}

	if issue := XRefIssue(data, startxref); issue != 0 {
		if x.opts.Strict {
			return nil, errorAt(KindStructural, startxref, nil, "Broken xref table")
		}
		x.opts.Diag.Warn(diag.ClassStartXRefPointer, startxref, "incorrect startxref pointer(%d)", issue)
		fixed, ok := FindXRefNear(data, startxref, x.opts.Window)
		if !ok {
			return x.recoverAll(errorAt(KindLocation, startxref, nil, "no xref section near byte %d", startxref))
		}
		startxref = fixed
	}

	if err := x.walk(startxref); err != nil {
		if x.opts.Strict {
			return nil, err
		}
		x.opts.Diag.Warn(diag.ClassInvalidTable, startxref, "xref section can not be read, rebuilding: %v", err)
		return x.recoverAll(err)
	}

	res := &LoadResult{
		Table:          x.table,
		StartXRef:      startxref,
		NotZeroIndexed: x.zeroStart > 0,
	}

	if !x.opts.Strict {
		if x.zeroStart > 0 {
			x.renumber()
		}
		if problem := x.validate(); problem != "" {
			x.opts.Diag.Warn(diag.ClassInvalidTable, diag.NoOffset, "%s, rebuilding xref table", problem)
			if rec, err := x.recover(); err == nil {
				if ref, ok := rec.Root(); ok {
					if _, found := rec.Lookup(ref); found {
						res.Table = rec
					}
				}
			}
		}
	}

	res.Recovery = x.recovery
	res.Recovered = x.recovery != nil
	res.RecoveryTried = x.recTried
	return res, nil
}

// walk follows the chain starting at offset. Sections are merged newest
// first, so entries and trailer keys from later updates win.
func (x *XRefParser) walk(offset int64) error {
	first := true
	for {
		if x.visited[offset] {
			x.opts.Diag.Warn(diag.ClassChainLoop, offset, "xref chain loops back to offset %d", offset)
			return nil
		}
		x.visited[offset] = true

		sec, err := x.readSection(offset)
		if err != nil {
			if first {
				return err
			}
			if x.opts.Strict {
				return errorAt(KindStructural, offset, err, "Previous trailer can not be read")
			}
			x.opts.Diag.Warn(diag.ClassPrevUnreadable, offset, "Previous trailer can not be read: %v", err)
			return nil
		}
		x.table.Merge(sec)
		first = false

		if !sec.Trailer.Has("Prev") {
			return nil
		}
		prev, ok := sec.Trailer.GetInt("Prev")
		if !ok {
			if x.opts.Strict {
				return errorAt(KindStructural, offset, nil, "/Prev in the trailer is not an integer")
			}
			x.opts.Diag.Warn(diag.ClassPrevUnreadable, offset,
				"Previous trailer can not be read: /Prev is %v", sec.Trailer.Get("Prev"))
			return nil
		}
		if prev == 0 {
			if x.opts.Strict {
				return errorAt(KindStructural, offset, nil, "/Prev=0 in the trailer (try opening with strict=False)")
			}
			x.opts.Diag.Warn(diag.ClassPrevZero, offset,
				"/Prev=0 in the trailer - assuming there is no previous xref table")
			return nil
		}
		offset = int64(prev)
	}
}

// readSection reads the section at offset, an xref table or xref stream.
// A classic table with /XRefStm gets the stream's entries merged in.
func (x *XRefParser) readSection(offset int64) (*XRefSection, error) {
	data := x.data
	if offset < 0 || offset >= int64(len(data)) {
		return x.invalidLocation(offset, errorAt(KindStructural, offset, nil, "offset %d is outside the file", offset))
	}

	if bytes.HasPrefix(data[offset:], xrefKeyword) {
		sec, err := ParseXRefTableAt(data, offset, x.opts)
		if err != nil {
			return nil, err
		}
		if sec.FirstStart > 0 {
			x.zeroStart = sec.FirstStart
		} else if sec.FirstStart == 0 {
			x.zeroStart = 0
		}
		if stmOff, ok := sec.Trailer.GetInt("XRefStm"); ok && !x.visited[int64(stmOff)] {
			x.visited[int64(stmOff)] = true
			stm, err := ParseXRefStreamAt(data, int64(stmOff), x.opts)
			if err != nil {
				if x.opts.Strict {
					return nil, err
				}
				x.opts.Diag.Warn(diag.ClassXRefStmUnreadable, int64(stmOff),
					"XRef object at %d can not be read, some object may be missing", int64(stmOff))
			} else {
				sec.mergeHybrid(stm)
			}
		}
		return sec, nil
	}

	if _, _, err := ReadObjectHeader(data, offset); err == nil {
		return ParseXRefStreamAt(data, offset, x.opts)
	}
	if near, ok := FindXRefNear(data, offset, x.opts.Window); ok && !x.visited[near] {
		x.opts.Diag.Warn(diag.ClassStartXRefPointer, offset, "incorrect startxref pointer(%d)", XRefIssue(data, offset))
		x.visited[near] = true
		return x.readSection(near)
	}
	return x.invalidLocation(offset, errorAt(KindStructural, offset, nil,
		"Could not find xref table at specified location"))
}

// invalidLocation handles a pointer that leads to neither an xref table nor
// an xref stream. When the trailer already names a /Root, lenient mode
// rebuilds the table and merges the result into the gaps.
func (x *XRefParser) invalidLocation(offset int64, cause *Error) (*XRefSection, error) {
	_, hasRoot := x.table.Root()
	if x.opts.Strict || !hasRoot {
		return nil, cause
	}
	x.opts.Diag.Warn(diag.ClassInvalidParentXRef, offset, "Invalid parent xref., rebuild xref")
	rec, err := x.recover()
	if err != nil {
		return nil, cause
	}
	sec := newSection(offset, false)
	for num, e := range rec.Entries {
		sec.Entries[num] = e
	}
	return sec, nil
}

// recover rebuilds the table by scanning, at most once per parser.
func (x *XRefParser) recover() (*XRefTable, error) {
	if !x.recTried {
		x.recTried = true
		x.recovery, x.recErr = Recover(x.data, x.opts)
	}
	return x.recovery, x.recErr
}

// recoverAll replaces the whole chain with the rebuilt table. cause is the
// problem that made the chain unusable.
func (x *XRefParser) recoverAll(cause error) (*LoadResult, error) {
	rec, err := x.recover()
	if err != nil {
		kind := KindLocation
		var e *Error
		if errors.As(cause, &e) {
			kind = e.Kind
		}
		return nil, &Error{Kind: kind, Offset: -1, Msg: cause.Error(), Err: err}
	}
	return &LoadResult{
		Table:         rec,
		Recovery:      rec,
		Recovered:     true,
		RecoveryTried: true,
		StartXRef:     -1,
	}, nil
}

// renumber repairs tables that were written starting at a non-zero number
// although they describe the whole file. Entries are visited in ascending
// order; an entry moves when the object header at its offset carries the
// number shifted by the table's start. The first unreadable header stops
// the pass.
func (x *XRefParser) renumber() {
	start := x.zeroStart
	for _, num := range x.table.Numbers() {
		e := x.table.Entries[num]
		if e.Kind != EntryOffset {
			continue
		}
		ref, _, err := ReadObjectHeader(x.data, e.Offset)
		if err != nil {
			return
		}
		if ref.Number == num-start {
			delete(x.table.Entries, num)
			x.table.Entries[ref.Number] = e
		}
	}
}

// validate reports a reason to distrust the walked table, or "".
func (x *XRefParser) validate() string {
	root, ok := x.table.Root()
	if !ok {
		return "trailer has no /Root"
	}
	if _, ok := x.table.Lookup(root); !ok {
		return "/Root is not in the xref table"
	}
	if size := x.table.DeclaredSize(); x.table.Trailer.Has("Size") && (size < 0 || size > len(x.data)) {
		return "trailer /Size is invalid"
	}
	return ""
}
