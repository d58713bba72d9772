package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF value: the eight basic types, streams and indirect
// references. References are never followed implicitly; callers resolve
// them through a document.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType tags the concrete type of an Object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
)

var objectTypeNames = [...]string{
	ObjNull:     "Null",
	ObjBool:     "Bool",
	ObjInt:      "Int",
	ObjReal:     "Real",
	ObjString:   "String",
	ObjName:     "Name",
	ObjArray:    "Array",
	ObjDict:     "Dict",
	ObjStream:   "Stream",
	ObjIndirect: "IndirectRef",
}

func (t ObjectType) String() string {
	if t >= 0 && int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return "Unknown"
}

type (
	Null   struct{}
	Bool   bool
	Int    int64
	Real   float64
	String string // raw bytes; see DecodeTextString for text
	Name   string // without the leading slash
)

func (Null) Type() ObjectType   { return ObjNull }
func (Bool) Type() ObjectType   { return ObjBool }
func (Int) Type() ObjectType    { return ObjInt }
func (Real) Type() ObjectType   { return ObjReal }
func (String) Type() ObjectType { return ObjString }
func (Name) Type() ObjectType   { return ObjName }

func (Null) String() string     { return "null" }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (i Int) String() string    { return strconv.FormatInt(int64(i), 10) }
func (r Real) String() string   { return strconv.FormatFloat(float64(r), 'f', -1, 64) }
func (s String) String() string { return string(s) }
func (n Name) String() string   { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (Array) Type() ObjectType { return ObjArray }

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = objectString(obj)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the number of elements.
func (a Array) Len() int { return len(a) }

// Get returns the element at index, or nil when out of range.
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

func (a Array) GetInt(index int) (Int, bool)   { return as[Int](a.Get(index)) }
func (a Array) GetReal(index int) (Real, bool) { return as[Real](a.Get(index)) }
func (a Array) GetName(index int) (Name, bool) { return as[Name](a.Get(index)) }

// Dict is a PDF dictionary keyed by name without the leading slash.
type Dict map[string]Object

func (Dict) Type() ObjectType { return ObjDict }

// String renders the dictionary with keys in sorted order.
func (d Dict) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for i, key := range d.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "/%s %s", key, objectString(d[key]))
	}
	sb.WriteString(">>")
	return sb.String()
}

// Get returns the value for key, or nil.
func (d Dict) Get(key string) Object { return d[key] }

// Has reports whether key is present, even with a null value.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Dict) GetName(key string) (Name, bool)     { return as[Name](d[key]) }
func (d Dict) GetInt(key string) (Int, bool)       { return as[Int](d[key]) }
func (d Dict) GetReal(key string) (Real, bool)     { return as[Real](d[key]) }
func (d Dict) GetBool(key string) (Bool, bool)     { return as[Bool](d[key]) }
func (d Dict) GetString(key string) (String, bool) { return as[String](d[key]) }
func (d Dict) GetDict(key string) (Dict, bool)     { return as[Dict](d[key]) }
func (d Dict) GetArray(key string) (Array, bool)   { return as[Array](d[key]) }
func (d Dict) GetStream(key string) (*Stream, bool) {
	return as[*Stream](d[key])
}

// GetIndirectRef returns the reference stored under key. Values that are
// not references report false.
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	return as[IndirectRef](d[key])
}

// Keys returns the keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// as is a type assertion that tolerates nil.
func as[T Object](obj Object) (T, bool) {
	v, ok := obj.(T)
	return v, ok
}

func objectString(obj Object) string {
	if obj == nil {
		return "null"
	}
	return obj.String()
}

// Stream represents a PDF stream object. Data holds the raw, still
// filtered bytes; Offset is the absolute position of the first data byte
// when the stream was parsed from a file, or -1.
type Stream struct {
	Dict    Dict
	Data    []byte
	Offset  int64
	decoded []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// Decoded returns the decoded stream data, decoding at most once.
func (s *Stream) Decoded() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}
	data, err := s.Decode()
	if err != nil {
		return nil, err
	}
	s.decoded = data
	return data, nil
}

// Filters returns the names of the filters applied to the stream, in
// decoding order.
func (s *Stream) Filters() []string {
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		return []string{string(f)}
	case Array:
		names := make([]string, 0, len(f))
		for _, o := range f {
			if n, ok := o.(Name); ok {
				names = append(names, string(n))
			}
		}
		return names
	}
	return nil
}

// IndirectRef is a reference to an indirect object. It also serves as the
// object identifier: two definitions with the same number and generation
// describe the same logical object.
type IndirectRef struct {
	Number     int
	Generation int
}

func (r IndirectRef) Type() ObjectType { return ObjIndirect }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject represents an indirect object with its reference
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

// Number converts an Int or Real to float64.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// IsNull reports whether obj is nil or the PDF null object.
func IsNull(obj Object) bool {
	if obj == nil {
		return true
	}
	_, ok := obj.(Null)
	return ok
}
