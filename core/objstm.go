package core

import (
	"fmt"
)

// ObjectStream is a decoded object stream (/Type /ObjStm). Its body starts
// with /N pairs of "number offset"; the offsets count from /First. Members
// are parsed on demand and kept.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends *IndirectRef

	body    []byte
	members []member
	parsed  map[int]Object // by index
}

type member struct {
	num    int
	offset int // relative to first
}

// NewObjectStream checks the stream dictionary. The body is decoded on
// first access.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	dict := stream.Dict
	if t := dict.Get("Type"); t != nil && t != Name("ObjStm") {
		return nil, fmt.Errorf("stream /Type is %v, not /ObjStm", t)
	}

	n, ok := dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream /N is %v", dict.Get("N"))
	}
	first, ok := dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream /First is %v", dict.Get("First"))
	}

	os := &ObjectStream{
		stream: stream,
		n:      int(n),
		first:  int(first),
		parsed: make(map[int]Object),
	}
	if dict.Has("Extends") {
		ref, ok := dict.GetIndirectRef("Extends")
		if !ok {
			return nil, fmt.Errorf("object stream /Extends is %T", dict.Get("Extends"))
		}
		os.extends = &ref
	}
	return os, nil
}

// N returns the declared number of members.
func (os *ObjectStream) N() int { return os.n }

// First returns the offset of the first member in the decoded body.
func (os *ObjectStream) First() int { return os.first }

// Extends returns the object stream this one extends, or nil.
func (os *ObjectStream) Extends() *IndirectRef { return os.extends }

// load decodes the body and reads the member table. A table shorter than
// /N keeps the pairs it has.
func (os *ObjectStream) load() error {
	if os.body != nil {
		return nil
	}
	body, err := os.stream.Decoded()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if os.first > len(body) {
		return fmt.Errorf("object stream /First %d is past the end of its %d bytes", os.first, len(body))
	}

	p := NewParser(body[:os.first])
	members := make([]member, 0, os.n)
	for i := 0; i < os.n; i++ {
		num, err1 := p.ParseObject()
		off, err2 := p.ParseObject()
		if err1 != nil || err2 != nil {
			if i > 0 {
				break
			}
			return fmt.Errorf("object stream has no member table")
		}
		n, ok1 := num.(Int)
		o, ok2 := off.(Int)
		if !ok1 || !ok2 || n < 0 || o < 0 {
			return fmt.Errorf("object stream member %d: bad pair %v %v", i, num, off)
		}
		members = append(members, member{num: int(n), offset: int(o)})
	}

	os.body = body
	os.members = members
	return nil
}

// GetObjectByIndex returns the member at index and its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.members) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.members))
	}
	m := os.members[index]
	if obj, ok := os.parsed[index]; ok {
		return obj, m.num, nil
	}

	start := os.first + m.offset
	if start >= len(os.body) {
		return nil, 0, fmt.Errorf("member %d starts past the end of the object stream", m.num)
	}
	obj, err := NewParserAt(os.body, int64(start)).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object stream member %d: %w", m.num, err)
	}
	os.parsed[index] = obj
	return obj, m.num, nil
}

// GetObjectByNumber returns the member with object number num and its
// index.
func (os *ObjectStream) GetObjectByNumber(num int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	for i, m := range os.members {
		if m.num == num {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, fmt.Errorf("object %d not found in object stream", num)
}

// ObjectNumbers lists the member numbers in table order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.members))
	for i, m := range os.members {
		nums[i] = m.num
	}
	return nums, nil
}
