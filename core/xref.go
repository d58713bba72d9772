package core

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/tsawler/pdfreader/diag"
)

// EntryKind tells how a cross-reference entry locates its object.
type EntryKind int

const (
	EntryFree       EntryKind = iota // object number is free
	EntryOffset                      // object stored at a byte offset
	EntryCompressed                  // object stored inside an object stream
)

func (k EntryKind) String() string {
	switch k {
	case EntryFree:
		return "free"
	case EntryOffset:
		return "offset"
	case EntryCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// XRefEntry is one cross-reference entry. Which fields are meaningful
// depends on Kind:
//
//	EntryFree:       Offset = next free object number, Generation
//	EntryOffset:     Offset = byte offset, Generation
//	EntryCompressed: Stream = object stream number, Index = position in it
type XRefEntry struct {
	Kind       EntryKind
	Offset     int64
	Generation int
	Stream     int
	Index      int
}

// InUse reports whether the entry locates an object.
func (e *XRefEntry) InUse() bool {
	return e.Kind != EntryFree
}

// Matches reports whether the entry describes the given generation.
// Objects in object streams always have generation 0.
func (e *XRefEntry) Matches(generation int) bool {
	if e.Kind == EntryCompressed {
		return generation == 0
	}
	return e.Generation == generation
}

// XRefSection is the content of a single xref table or xref stream: the
// entries it declares and its trailer dictionary.
type XRefSection struct {
	Offset     int64
	Entries    map[int]*XRefEntry
	Trailer    Dict
	IsStream   bool
	FirstStart int // start of the first subsection, -1 if there is none
}

func newSection(offset int64, isStream bool) *XRefSection {
	return &XRefSection{
		Offset:     offset,
		Entries:    make(map[int]*XRefEntry),
		IsStream:   isStream,
		FirstStart: -1,
	}
}

// add stores e unless the section already has an entry for num.
func (s *XRefSection) add(num int, e *XRefEntry) {
	if _, exists := s.Entries[num]; !exists {
		s.Entries[num] = e
	}
}

// mergeHybrid folds the entries of a hybrid file's /XRefStm stream into a
// classic section. Stream entries fill gaps and replace free records, which
// is how hybrid files hide compressed objects from older readers.
func (s *XRefSection) mergeHybrid(stm *XRefSection) {
	for num, e := range stm.Entries {
		if cur, ok := s.Entries[num]; !ok || (!cur.InUse() && e.InUse()) {
			s.Entries[num] = e
		}
	}
}

// XRefTable is the cumulative cross-reference table of a document. Entries
// are keyed by object number; the generation lives in the entry.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict   // merged trailer, first value found wins per key
	Trailers []Dict // trailer of every merged section, newest first
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get returns the entry for an object number.
func (t *XRefTable) Get(num int) (*XRefEntry, bool) {
	e, ok := t.Entries[num]
	return e, ok
}

// Lookup returns the entry for ref. An entry for the same number but a
// different generation does not match.
func (t *XRefTable) Lookup(ref IndirectRef) (*XRefEntry, bool) {
	e, ok := t.Entries[ref.Number]
	if !ok || !e.Matches(ref.Generation) {
		return nil, false
	}
	return e, true
}

// Set stores an entry, replacing any existing one.
func (t *XRefTable) Set(num int, e *XRefEntry) {
	t.Entries[num] = e
}

// Fill stores an entry only if the number has none yet. It reports whether
// the entry was stored.
func (t *XRefTable) Fill(num int, e *XRefEntry) bool {
	if _, exists := t.Entries[num]; exists {
		return false
	}
	t.Entries[num] = e
	return true
}

// streamTrailerKeys are the keys an xref stream contributes to the merged
// trailer.
var streamTrailerKeys = []string{"Root", "Encrypt", "Info", "ID", "Size"}

// Merge adds an older section to the table. Existing entries are never
// overwritten, and trailer keys already present keep their value.
func (t *XRefTable) Merge(s *XRefSection) {
	for num, e := range s.Entries {
		t.Fill(num, e)
	}
	if s.Trailer == nil {
		return
	}
	t.Trailers = append(t.Trailers, s.Trailer)
	if s.IsStream {
		for _, key := range streamTrailerKeys {
			if v, ok := s.Trailer[key]; ok && !t.Trailer.Has(key) {
				t.Trailer[key] = v
			}
		}
		return
	}
	for key, v := range s.Trailer {
		if !t.Trailer.Has(key) {
			t.Trailer[key] = v
		}
	}
}

// Size returns the number of entries in the table.
func (t *XRefTable) Size() int {
	return len(t.Entries)
}

// DeclaredSize returns the trailer's /Size, or -1 if it is missing.
func (t *XRefTable) DeclaredSize() int {
	if n, ok := t.Trailer.GetInt("Size"); ok {
		return int(n)
	}
	return -1
}

// Numbers returns the object numbers in the table in ascending order.
func (t *XRefTable) Numbers() []int {
	nums := make([]int, 0, len(t.Entries))
	for n := range t.Entries {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Root returns the trailer's /Root reference.
func (t *XRefTable) Root() (IndirectRef, bool) {
	return t.Trailer.GetIndirectRef("Root")
}

// ParseXRefTableAt parses a classic cross-reference table starting at the
// xref keyword at offset, together with the trailer that follows it.
//
// Records are nominally 20 bytes. Tables written with a one-byte EOL have
// 19-byte records; these are detected and re-synchronized per record.
// Unreadable records are skipped with a warning.
func ParseXRefTableAt(data []byte, offset int64, opts LoadOptions) (*XRefSection, error) {
	size := int64(len(data))
	if offset < 0 || offset >= size || !bytes.HasPrefix(data[offset:], []byte("xref")) {
		return nil, errorAt(KindStructural, offset, nil, "xref keyword not found at byte %d", offset)
	}

	sec := newSection(offset, false)
	pos := offset + 4
	for {
		pos = skipSpace(data, pos)
		if bytes.HasPrefix(data[pos:], []byte("trailer")) {
			pos += 7
			break
		}

		start, next, ok := readDecimal(data, pos)
		if !ok {
			return nil, errorAt(KindStructural, pos, nil, "xref subsection header expected at byte %d", pos)
		}
		count, next, ok := readDecimal(data, skipSpace(data, next))
		if !ok {
			return nil, errorAt(KindStructural, next, nil, "xref subsection count expected at byte %d", next)
		}
		if sec.FirstStart < 0 {
			sec.FirstStart = int(start)
			if start != 0 && opts.Strict {
				opts.Diag.Warn(diag.ClassNotZeroIndexed, offset,
					"Xref table not zero-indexed. ID numbers for objects will be corrected.")
			}
		}
		pos = next

		num := int(start)
		for i := int64(0); i < count; i++ {
			pos = skipSpace(data, pos)
			if pos >= size {
				return nil, errorAt(KindStructural, pos, nil, "xref table truncated at byte %d", pos)
			}
			if bytes.HasPrefix(data[pos:], []byte("trailer")) {
				// count overstated
				break
			}

			end := pos + 20
			if end > size {
				end = size
			}
			rec := data[pos:end]
			if e, ok := parseXRefRecord(rec); ok {
				sec.add(num, e)
			} else {
				opts.Diag.Warn(diag.ClassXRefEntryInvalid, pos, "entry %d in Xref table invalid", num)
			}

			if len(rec) == 20 && (isDigit(rec[19]) || rec[19] == 't') {
				pos += 19
			} else {
				pos += int64(len(rec))
			}
			num++
		}
	}

	p := NewParserAt(data, pos)
	p.SetDiagnostics(opts.Diag)
	p.SetStrict(opts.Strict)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, errorAt(KindStructural, pos, err, "trailer can not be read at byte %d", pos)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, errorAt(KindStructural, pos, nil, "trailer at byte %d is %T, not a dictionary", pos, obj)
	}
	sec.Trailer = trailer
	return sec, nil
}

// parseXRefRecord parses "oooooooooo ggggg n" (or f). Only the first three
// fields are looked at, so a 19-byte record read as 20 bytes still parses.
func parseXRefRecord(rec []byte) (*XRefEntry, bool) {
	fields := bytes.Fields(rec)
	if len(fields) < 3 {
		return nil, false
	}
	off, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil || off < 0 {
		return nil, false
	}
	gen, err := strconv.Atoi(string(fields[1]))
	if err != nil || gen < 0 {
		return nil, false
	}
	switch string(fields[2]) {
	case "n":
		return &XRefEntry{Kind: EntryOffset, Offset: off, Generation: gen}, true
	case "f":
		return &XRefEntry{Kind: EntryFree, Offset: off, Generation: gen}, true
	default:
		return nil, false
	}
}

// readDecimal reads an unsigned decimal integer at pos.
func readDecimal(data []byte, pos int64) (int64, int64, bool) {
	begin := pos
	for pos < int64(len(data)) && isDigit(data[pos]) {
		pos++
	}
	if pos == begin || pos-begin > 18 {
		return 0, begin, false
	}
	n, err := strconv.ParseInt(string(data[begin:pos]), 10, 64)
	if err != nil {
		return 0, begin, false
	}
	return n, pos, true
}
