package core

import (
	"fmt"

	"github.com/tsawler/pdfreader/diag"
)

// ParseXRefStreamAt parses the cross-reference stream whose object header
// is at offset (PDF 1.5+). The stream dictionary doubles as the section's
// trailer.
func ParseXRefStreamAt(data []byte, offset int64, opts LoadOptions) (*XRefSection, error) {
	p := NewParserAt(data, offset)
	p.SetDiagnostics(opts.Diag)
	p.SetStrict(opts.Strict)
	p.SetReferenceResolver(opts.Resolver)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, errorAt(KindStructural, offset, err, "xref stream can not be read at byte %d", offset)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, errorAt(KindStructural, offset, nil, "object %d %d at byte %d is not a stream",
			obj.Ref.Number, obj.Ref.Generation, offset)
	}
	if t, ok := stream.Dict.GetName("Type"); !ok || t != "XRef" {
		return nil, errorAt(KindStructural, offset, nil, "object %d %d at byte %d is not an xref stream",
			obj.Ref.Number, obj.Ref.Generation, offset)
	}

	sec := newSection(offset, true)
	sec.Trailer = stream.Dict
	if err := fillFromXRefStream(sec, stream, opts); err != nil {
		return nil, errorAt(KindStructural, offset, err, "xref stream at byte %d is invalid", offset)
	}
	return sec, nil
}

// fillFromXRefStream decodes the binary entries of an xref stream into sec.
func fillFromXRefStream(sec *XRefSection, stream *Stream, opts LoadOptions) error {
	widths, err := xrefWidths(stream.Dict)
	if err != nil {
		return err
	}
	index, err := xrefIndex(stream.Dict)
	if err != nil {
		return err
	}

	body, err := stream.Decoded()
	if err != nil {
		return fmt.Errorf("failed to decode xref stream: %w", err)
	}

	rowSize := widths[0] + widths[1] + widths[2]
	if rowSize == 0 {
		return fmt.Errorf("/W describes zero-width rows")
	}

	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		if sec.FirstStart < 0 {
			sec.FirstStart = start
		}
		for j := 0; j < count; j++ {
			if pos+rowSize > len(body) {
				// Truncated stream: keep what was read.
				return nil
			}
			row := body[pos : pos+rowSize]
			pos += rowSize

			typ := int64(1)
			if widths[0] > 0 {
				typ = readBigEndian(row[:widths[0]])
			}
			f2 := readBigEndian(row[widths[0] : widths[0]+widths[1]])
			f3 := readBigEndian(row[widths[0]+widths[1]:])

			num := start + j
			switch typ {
			case 0:
				sec.add(num, &XRefEntry{Kind: EntryFree, Offset: f2, Generation: int(f3)})
			case 1:
				sec.add(num, &XRefEntry{Kind: EntryOffset, Offset: f2, Generation: int(f3)})
			case 2:
				sec.add(num, &XRefEntry{Kind: EntryCompressed, Stream: int(f2), Index: int(f3)})
			default:
				// Unknown types are treated as references to the null object.
				if opts.Strict {
					return fmt.Errorf("entry %d has unknown type %d", num, typ)
				}
				opts.Diag.Warn(diag.ClassXRefTypeUnknown, sec.Offset,
					"xref stream entry %d has unknown type %d", num, typ)
			}
		}
	}
	return nil
}

// xrefWidths reads /W, the byte widths of the three entry fields.
func xrefWidths(dict Dict) ([3]int, error) {
	var widths [3]int
	arr, ok := dict.GetArray("W")
	if !ok || arr.Len() < 3 {
		return widths, fmt.Errorf("xref stream missing /W")
	}
	for i := 0; i < 3; i++ {
		w, ok := arr.GetInt(i)
		if !ok || w < 0 || w > 8 {
			return widths, fmt.Errorf("invalid /W entry %v", arr.Get(i))
		}
		widths[i] = int(w)
	}
	return widths, nil
}

// xrefIndex reads /Index, defaulting to [0 Size].
func xrefIndex(dict Dict) ([]int, error) {
	arr, ok := dict.GetArray("Index")
	if !ok {
		size, ok := dict.GetInt("Size")
		if !ok || size < 0 {
			return nil, fmt.Errorf("xref stream missing /Size")
		}
		return []int{0, int(size)}, nil
	}
	if arr.Len()%2 != 0 {
		return nil, fmt.Errorf("/Index has odd length %d", arr.Len())
	}
	index := make([]int, arr.Len())
	for i := range index {
		v, ok := arr.GetInt(i)
		if !ok || v < 0 {
			return nil, fmt.Errorf("invalid /Index entry %v", arr.Get(i))
		}
		index[i] = int(v)
	}
	return index, nil
}

// readBigEndian interprets b as an unsigned big-endian integer. An empty
// field reads as 0.
func readBigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
