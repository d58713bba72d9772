package core

import (
	"bytes"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/tsawler/pdfreader/diag"
)

// ObjectMark is an "n g obj" header found by scanning.
type ObjectMark struct {
	Ref    IndirectRef
	Offset int64
}

// typeMarker finds the dictionaries recovery cares about.
var typeMarker = regexp.MustCompile(`/Type\s*/(XRef|ObjStm|Catalog)\b`)

var (
	objKeyword       = []byte("obj")
	trailerKeyword   = []byte("trailer")
	startxrefKeyword = []byte("startxref")
)

// errNoObjects is returned when scanning finds nothing to rebuild from.
var errNoObjects = newError(KindStructural, "no indirect objects found by scanning")

// Recover rebuilds a cross-reference table by scanning the whole file for
// object headers. When an object number is defined more than once the last
// definition wins, as it would in an incremental update.
//
// The trailer is assembled from every "trailer" dictionary in the file,
// later keys overriding earlier ones. Files without classic trailers take
// their keys from xref stream dictionaries, and as a last resort /Root is
// set to the last catalog found. Members of object streams become
// compressed entries for numbers that have no direct definition.
func Recover(data []byte, opts LoadOptions) (*XRefTable, error) {
	marks := ScanObjects(data)
	if len(marks) == 0 {
		return nil, errNoObjects
	}

	table := NewXRefTable()
	for _, m := range marks {
		table.Set(m.Ref.Number, &XRefEntry{Kind: EntryOffset, Offset: m.Offset, Generation: m.Ref.Generation})
	}

	trailer := scanTrailers(data, marks, opts)

	var xrefDicts, objStms, catalogs []int64
	for _, loc := range typeMarker.FindAllSubmatchIndex(data, -1) {
		switch string(data[loc[2]:loc[3]]) {
		case "XRef":
			xrefDicts = append(xrefDicts, int64(loc[0]))
		case "ObjStm":
			objStms = append(objStms, int64(loc[0]))
		case "Catalog":
			catalogs = append(catalogs, int64(loc[0]))
		}
	}

	rs := &scanResolver{data: data, table: table, marks: marks}

	if !trailer.Has("Root") {
		for _, pos := range xrefDicts {
			m, ok := containing(marks, table, pos)
			if !ok {
				continue
			}
			obj, err := rs.parse(m.Offset)
			if err != nil {
				continue
			}
			stream, ok := obj.(*Stream)
			if !ok {
				continue
			}
			if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
				continue
			}
			for _, key := range streamTrailerKeys {
				if v, ok := stream.Dict[key]; ok {
					trailer[key] = v
				}
			}
		}
	}

	if !trailer.Has("Root") {
		for _, pos := range catalogs {
			if m, ok := containing(marks, table, pos); ok {
				trailer["Root"] = m.Ref
			}
		}
	}

	for _, pos := range objStms {
		m, ok := containing(marks, table, pos)
		if !ok {
			continue
		}
		obj, err := rs.parse(m.Offset)
		if err != nil {
			continue
		}
		stream, ok := obj.(*Stream)
		if !ok {
			continue
		}
		objStm, err := NewObjectStream(stream)
		if err != nil {
			continue
		}
		nums, err := objStm.ObjectNumbers()
		if err != nil {
			continue
		}
		for i, num := range nums {
			table.Fill(num, &XRefEntry{Kind: EntryCompressed, Stream: m.Ref.Number, Index: i})
		}
	}

	if !trailer.Has("Size") {
		nums := table.Numbers()
		trailer["Size"] = Int(nums[len(nums)-1] + 1)
	}
	table.Trailer = trailer
	table.Trailers = []Dict{trailer}

	opts.Diag.Warn(diag.ClassXRefRepaired, diag.NoOffset, "xref table repaired by scanning the file")
	opts.Diag.Warn(diag.ClassObjectsFound, diag.NoOffset, "%d objects found by scanning", len(marks))
	return table, nil
}

// ScanObjects finds every "n g obj" header in data, in file order. It
// looks for the obj keyword and reads the two numbers before it, so the
// scan is linear in the size of the file.
func ScanObjects(data []byte) []ObjectMark {
	var marks []ObjectMark
	size := len(data)
	for i := 0; i < size; {
		j := bytes.Index(data[i:], objKeyword)
		if j < 0 {
			break
		}
		kw := i + j
		i = kw + len(objKeyword)

		if i < size && !isWhitespace(data[i]) && !isDelimiter(data[i]) {
			continue
		}
		if m, ok := headerBefore(data, kw); ok {
			marks = append(marks, m)
		}
	}
	return marks
}

// headerBefore reads "n g " backwards from the obj keyword at kw.
func headerBefore(data []byte, kw int) (ObjectMark, bool) {
	p := kw - 1
	if p < 0 || !isWhitespace(data[p]) {
		return ObjectMark{}, false
	}
	for p >= 0 && isWhitespace(data[p]) {
		p--
	}
	genEnd := p + 1
	for p >= 0 && isDigit(data[p]) {
		p--
	}
	genStart := p + 1
	if genStart == genEnd || genEnd-genStart > 5 {
		return ObjectMark{}, false
	}
	if p < 0 || !isWhitespace(data[p]) {
		return ObjectMark{}, false
	}
	for p >= 0 && isWhitespace(data[p]) {
		p--
	}
	numEnd := p + 1
	for p >= 0 && isDigit(data[p]) {
		p--
	}
	numStart := p + 1
	if numStart == numEnd || numEnd-numStart > 10 {
		return ObjectMark{}, false
	}
	if p >= 0 && !isWhitespace(data[p]) && !isDelimiter(data[p]) {
		return ObjectMark{}, false
	}

	num, err := strconv.Atoi(string(data[numStart:numEnd]))
	if err != nil {
		return ObjectMark{}, false
	}
	gen, err := strconv.Atoi(string(data[genStart:genEnd]))
	if err != nil {
		return ObjectMark{}, false
	}
	return ObjectMark{Ref: IndirectRef{Number: num, Generation: gen}, Offset: int64(numStart)}, true
}

// scanTrailers merges every trailer dictionary in the file; later keys
// override earlier ones. Each dictionary is parsed no further than the
// next trailer, startxref or object header, so no byte is read twice.
func scanTrailers(data []byte, marks []ObjectMark, opts LoadOptions) Dict {
	trailers := keywordOffsets(data, trailerKeyword)
	startxrefs := keywordOffsets(data, startxrefKeyword)

	trailer := make(Dict)
	for n, kw := range trailers {
		pos := skipSpace(data, kw+int64(len(trailerKeyword)))
		if !bytes.HasPrefix(data[pos:], []byte("<<")) {
			continue
		}

		limit := int64(len(data))
		if n+1 < len(trailers) {
			limit = trailers[n+1]
		}
		limit = min(limit, nextOffset(startxrefs, pos), nextMark(marks, pos))

		p := NewParserWithin(data, pos, limit)
		p.SetDiagnostics(opts.Diag)
		obj, err := p.ParseObject()
		if err != nil {
			continue
		}
		if d, ok := obj.(Dict); ok {
			for k, v := range d {
				trailer[k] = v
			}
		}
	}
	return trailer
}

// keywordOffsets returns the offset of every occurrence of kw, in order.
func keywordOffsets(data, kw []byte) []int64 {
	var offsets []int64
	for i := 0; i < len(data); {
		j := bytes.Index(data[i:], kw)
		if j < 0 {
			break
		}
		offsets = append(offsets, int64(i+j))
		i += j + len(kw)
	}
	return offsets
}

// nextOffset returns the first offset after pos, or math.MaxInt64.
func nextOffset(offsets []int64, pos int64) int64 {
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > pos })
	if i == len(offsets) {
		return math.MaxInt64
	}
	return offsets[i]
}

// nextMark returns the offset of the first object header after pos.
func nextMark(marks []ObjectMark, pos int64) int64 {
	i := sort.Search(len(marks), func(i int) bool { return marks[i].Offset > pos })
	if i == len(marks) {
		return math.MaxInt64
	}
	return marks[i].Offset
}

// containing returns the object whose header is the last one before pos,
// provided it is still the current definition of its number.
func containing(marks []ObjectMark, table *XRefTable, pos int64) (ObjectMark, bool) {
	i := sort.Search(len(marks), func(i int) bool { return marks[i].Offset > pos }) - 1
	if i < 0 {
		return ObjectMark{}, false
	}
	m := marks[i]
	e, ok := table.Get(m.Ref.Number)
	if !ok || e.Kind != EntryOffset || e.Offset != m.Offset {
		return ObjectMark{}, false
	}
	return m, true
}

// scanResolver parses objects straight from a scanned table. It resolves
// stream lengths one level deep only. Every parse stops at the next
// scanned object header.
type scanResolver struct {
	data  []byte
	table *XRefTable
	marks []ObjectMark
}

func (r *scanResolver) parser(offset int64) *Parser {
	return NewParserWithin(r.data, offset, nextMark(r.marks, offset))
}

func (r *scanResolver) parse(offset int64) (Object, error) {
	p := r.parser(offset)
	p.SetReferenceResolver(r)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	return obj.Object, nil
}

// ResolveReference implements ReferenceResolver for /Length values.
func (r *scanResolver) ResolveReference(ref IndirectRef) (Object, error) {
	e, ok := r.table.Lookup(ref)
	if !ok || e.Kind != EntryOffset {
		return nil, errorAt(KindReference, -1, nil, "object %d %d not found by scanning", ref.Number, ref.Generation)
	}
	obj, err := r.parser(e.Offset).ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	return obj.Object, nil
}
