package reader

import (
	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
)

// Field is an interactive form field.
type Field struct {
	// Name is the fully qualified name: the partial names of the field
	// and its ancestors joined with dots.
	Name        string
	PartialName string
	// FT is the field type (Btn, Tx, Ch, Sig), inherited from ancestors
	// when the field does not set it.
	FT   string
	V    core.Object
	DV   core.Object
	Ff   int
	Kids []string
	Dict core.Dict
	Ref  *core.IndirectRef
}

// Fields returns the AcroForm fields keyed by fully qualified name. It
// returns nil, nil when the document has no form.
func (d *Document) Fields() (map[string]*Field, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	form, ok := d.resolveDict(catalog.Get("AcroForm"))
	if !ok {
		return nil, nil
	}
	roots, ok := d.resolveArray(form.Get("Fields"))
	if !ok {
		return nil, nil
	}

	w := &fieldWalker{
		doc:     d,
		fields:  make(map[string]*Field),
		visited: make(map[core.IndirectRef]bool),
	}
	for _, root := range roots {
		if _, err := w.walk(root, "", ""); err != nil {
			return nil, err
		}
	}
	return w.fields, nil
}

// FormTextFields returns the values of the text fields, keyed by fully
// qualified name. Fields without a value map to "".
func (d *Document) FormTextFields() map[string]string {
	fields, err := d.Fields()
	if err != nil || fields == nil {
		return nil
	}

	out := make(map[string]string)
	for name, f := range fields {
		if f.FT != "Tx" {
			continue
		}
		v, err := d.Resolve(f.V)
		if err != nil {
			v = nil
		}
		out[name] = core.TextOf(v)
	}
	return out
}

type fieldWalker struct {
	doc     *Document
	fields  map[string]*Field
	visited map[core.IndirectRef]bool
}

// walk records the field at obj and its descendants. It returns the
// field's qualified name, or "" for a node without /T (a widget).
func (w *fieldWalker) walk(obj core.Object, parent, parentFT string) (string, error) {
	d := w.doc

	var ref *core.IndirectRef
	if r, ok := obj.(core.IndirectRef); ok {
		if w.visited[r] {
			d.diag.Warn(diag.ClassForm, diag.NoOffset,
				"form field %d %d is reachable twice, skipping", r.Number, r.Generation)
			return "", nil
		}
		w.visited[r] = true
		ref = &r
	}

	resolved, err := d.Resolve(obj)
	if err != nil {
		if d.config.Strict {
			return "", err
		}
		d.diag.Warn(diag.ClassForm, diag.NoOffset, "form field unreadable: %v", err)
		return "", nil
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return "", nil
	}

	ft := parentFT
	if name, ok := dict.GetName("FT"); ok {
		ft = string(name)
	}

	partial := ""
	if t, err := d.Resolve(dict.Get("T")); err == nil {
		partial = core.TextOf(t)
	}
	if partial == "" && !dict.Has("T") {
		// widget annotation of the parent field
		return "", nil
	}

	name := partial
	if parent != "" {
		name = parent + "." + partial
	}

	f := &Field{
		Name:        name,
		PartialName: partial,
		FT:          ft,
		V:           dict.Get("V"),
		DV:          dict.Get("DV"),
		Dict:        dict,
		Ref:         ref,
	}
	if ff, ok := dict.GetInt("Ff"); ok {
		f.Ff = int(ff)
	}
	w.fields[name] = f

	if kids, ok := d.resolveArray(dict.Get("Kids")); ok {
		for _, kid := range kids {
			kidName, err := w.walk(kid, name, ft)
			if err != nil {
				return "", err
			}
			if kidName != "" {
				f.Kids = append(f.Kids, kidName)
			}
		}
	}
	return name, nil
}
