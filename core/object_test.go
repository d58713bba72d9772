package core

import (
	"testing"
)

func TestObjectString(t *testing.T) {
	tests := []struct {
		obj  Object
		want string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Int(-3), "-3"},
		{Real(0.25), "0.25"},
		{Name("Type"), "/Type"},
		{IndirectRef{Number: 4, Generation: 1}, "4 1 R"},
		{Array{Int(1), nil, Name("X")}, "[1 null /X]"},
		{Dict{"b": Int(2), "a": Array{}}, "<</a [] /b 2>>"},
		{&Stream{Dict: Dict{"Length": Int(3)}, Data: []byte("abc")}, "stream <</Length 3>> (3 bytes)"},
	}
	for _, tt := range tests {
		if got := tt.obj.String(); got != tt.want {
			t.Errorf("%T.String() = %q, want %q", tt.obj, got, tt.want)
		}
	}
}

func TestObjectType(t *testing.T) {
	if got := (Dict{}).Type().String(); got != "Dict" {
		t.Errorf("Dict type = %q", got)
	}
	if got := (IndirectRef{}).Type().String(); got != "IndirectRef" {
		t.Errorf("IndirectRef type = %q", got)
	}
	if got := ObjectType(99).String(); got != "Unknown" {
		t.Errorf("ObjectType(99) = %q", got)
	}
}

func TestDictAccessors(t *testing.T) {
	d := Dict{
		"Type":  Name("Page"),
		"Count": Int(3),
		"Scale": Real(1.5),
		"Open":  Bool(true),
		"Title": String("t"),
		"Res":   Dict{},
		"Kids":  Array{IndirectRef{Number: 2}},
		"Ref":   IndirectRef{Number: 9},
		"Nil":   Null{},
	}

	if v, ok := d.GetName("Type"); !ok || v != "Page" {
		t.Errorf("GetName = %v, %v", v, ok)
	}
	if v, ok := d.GetInt("Count"); !ok || v != 3 {
		t.Errorf("GetInt = %v, %v", v, ok)
	}
	if _, ok := d.GetInt("Scale"); ok {
		t.Error("GetInt accepted a real")
	}
	if v, ok := d.GetReal("Scale"); !ok || v != 1.5 {
		t.Errorf("GetReal = %v, %v", v, ok)
	}
	if v, ok := d.GetBool("Open"); !ok || !bool(v) {
		t.Errorf("GetBool = %v, %v", v, ok)
	}
	if v, ok := d.GetString("Title"); !ok || v != "t" {
		t.Errorf("GetString = %v, %v", v, ok)
	}
	if _, ok := d.GetDict("Res"); !ok {
		t.Error("GetDict failed")
	}
	if v, ok := d.GetArray("Kids"); !ok || v.Len() != 1 {
		t.Errorf("GetArray = %v, %v", v, ok)
	}
	if v, ok := d.GetIndirectRef("Ref"); !ok || v.Number != 9 {
		t.Errorf("GetIndirectRef = %v, %v", v, ok)
	}
	if _, ok := d.GetStream("Res"); ok {
		t.Error("GetStream accepted a dictionary")
	}
	if !d.Has("Nil") || d.Has("Missing") {
		t.Error("Has is wrong")
	}
	if d.Get("Missing") != nil {
		t.Error("Get of a missing key is not nil")
	}
}

func TestArrayAccessors(t *testing.T) {
	a := Array{Int(1), Real(2.5), Name("N")}
	if v, ok := a.GetInt(0); !ok || v != 1 {
		t.Errorf("GetInt(0) = %v, %v", v, ok)
	}
	if v, ok := a.GetReal(1); !ok || v != 2.5 {
		t.Errorf("GetReal(1) = %v, %v", v, ok)
	}
	if v, ok := a.GetName(2); !ok || v != "N" {
		t.Errorf("GetName(2) = %v, %v", v, ok)
	}
	if a.Get(-1) != nil || a.Get(3) != nil {
		t.Error("out of range Get is not nil")
	}
	if _, ok := a.GetInt(5); ok {
		t.Error("GetInt(5) reported ok")
	}
}

func TestNumberAndIsNull(t *testing.T) {
	if v, ok := Number(Int(4)); !ok || v != 4 {
		t.Errorf("Number(Int) = %v, %v", v, ok)
	}
	if v, ok := Number(Real(0.5)); !ok || v != 0.5 {
		t.Errorf("Number(Real) = %v, %v", v, ok)
	}
	if _, ok := Number(Name("x")); ok {
		t.Error("Number(Name) reported ok")
	}
	if !IsNull(nil) || !IsNull(Null{}) || IsNull(Int(0)) {
		t.Error("IsNull is wrong")
	}
}

func TestStreamFilters(t *testing.T) {
	tests := []struct {
		filter Object
		want   []string
	}{
		{nil, nil},
		{Name("FlateDecode"), []string{"FlateDecode"}},
		{Array{Name("AHx"), Int(1), Name("Fl")}, []string{"AHx", "Fl"}},
	}
	for _, tt := range tests {
		s := &Stream{Dict: Dict{}}
		if tt.filter != nil {
			s.Dict["Filter"] = tt.filter
		}
		got := s.Filters()
		if len(got) != len(tt.want) {
			t.Errorf("Filters(%v) = %v, want %v", tt.filter, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Filters(%v) = %v, want %v", tt.filter, got, tt.want)
			}
		}
	}
}
