package pages

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
)

// Page is one leaf of the page tree.
type Page struct {
	dict      core.Dict
	ref       *core.IndirectRef
	ancestors []core.Dict // nearest first
	resolver  Resolver
}

// NewPage creates a page. ancestors lists the enclosing /Pages nodes,
// nearest first, for inherited attributes.
func NewPage(dict core.Dict, ref *core.IndirectRef, ancestors []core.Dict, resolver Resolver) *Page {
	return &Page{dict: dict, ref: ref, ancestors: ancestors, resolver: resolver}
}

func (p *Page) Dict() core.Dict { return p.dict }

// Ref returns the page object's reference. Pages stored as direct objects
// in /Kids have none.
func (p *Page) Ref() (core.IndirectRef, bool) {
	if p.ref == nil {
		return core.IndirectRef{}, false
	}
	return *p.ref, true
}

// inheritable lists the attributes a page takes from its ancestors.
var inheritable = map[string]bool{
	"Resources": true,
	"MediaBox":  true,
	"CropBox":   true,
	"Rotate":    true,
}

// Attr returns key from the page or, for inheritable attributes, from the
// nearest ancestor that has it.
func (p *Page) Attr(key string) core.Object {
	if v, ok := p.dict[key]; ok {
		return v
	}
	if !inheritable[key] {
		return nil
	}
	for _, a := range p.ancestors {
		if v, ok := a[key]; ok {
			return v
		}
	}
	return nil
}

// MediaBox returns the inherited /MediaBox as [llx lly urx ury].
func (p *Page) MediaBox() ([]float64, error) {
	return p.box("MediaBox")
}

// CropBox returns /CropBox, falling back to the media box.
func (p *Page) CropBox() ([]float64, error) {
	if box, err := p.box("CropBox"); err == nil {
		return box, nil
	}
	return p.MediaBox()
}

func (p *Page) box(key string) ([]float64, error) {
	obj := p.Attr(key)
	if obj == nil {
		return nil, fmt.Errorf("page has no /%s", key)
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("/%s is %v, not a rectangle", key, resolved)
	}

	box := make([]float64, 4)
	for i, v := range arr {
		if r, ok := v.(core.IndirectRef); ok {
			obj, err := p.resolver.Resolve(r)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve /%s[%d]: %w", key, i, err)
			}
			v = obj
		}
		n, ok := core.Number(v)
		if !ok {
			return nil, fmt.Errorf("/%s[%d] is %T, not a number", key, i, v)
		}
		box[i] = n
	}
	return box, nil
}

// Width is the media box width.
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height is the media box height.
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}

// Rotate returns the inherited /Rotate normalized to [0, 360).
func (p *Page) Rotate() int {
	obj := p.Attr("Rotate")
	if r, ok := obj.(core.IndirectRef); ok {
		obj, _ = p.resolver.Resolve(r)
	}
	n, ok := obj.(core.Int)
	if !ok {
		return 0
	}
	deg := int(n) % 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Resources returns the inherited /Resources dictionary.
func (p *Page) Resources() (core.Dict, error) {
	obj := p.Attr("Resources")
	if obj == nil {
		return nil, fmt.Errorf("page has no /Resources")
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Resources: %w", err)
	}
	res, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/Resources is %T, not a dictionary", resolved)
	}
	return res, nil
}

// Contents returns the page's content streams in order. A page without
// /Contents is blank.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Contents: %w", err)
	}

	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			obj, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve /Contents[%d]: %w", i, err)
			}
			s, ok := obj.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("/Contents[%d] is %T, not a stream", i, obj)
			}
			streams = append(streams, s)
		}
		return streams, nil
	case core.Null:
		return nil, nil
	}
	return nil, fmt.Errorf("/Contents is %T", resolved)
}

// Annotations returns the page's annotation dictionaries. Entries that do
// not resolve to dictionaries are left out.
func (p *Page) Annotations() ([]core.Dict, error) {
	obj := p.dict.Get("Annots")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Annots: %w", err)
	}
	arr, _ := resolved.(core.Array)

	var annots []core.Dict
	for _, a := range arr {
		obj, err := p.resolver.Resolve(a)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve annotation: %w", err)
		}
		if d, ok := obj.(core.Dict); ok {
			annots = append(annots, d)
		}
	}
	return annots, nil
}
