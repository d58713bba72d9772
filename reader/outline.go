package reader

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
)

// OutlineItem is one bookmark of the document outline.
type OutlineItem struct {
	Title string
	// Page is the 0-based index of the destination page, or -1.
	Page int
	// Dest is the destination as written: an explicit array, or the name
	// of a named destination.
	Dest     core.Object
	Children []*OutlineItem
	Open     bool
	Color    []float64
	Flags    int
}

// NamedDestinations returns the explicit destination arrays of the
// document's named destinations. Names from the catalog's /Dests
// dictionary and the /Names /Dests tree are merged, the dictionary
// winning.
func (d *Document) NamedDestinations() (map[string]core.Array, error) {
	dests := make(map[string]core.Array)

	if tree, ok := d.namesTree("Dests"); ok {
		err := d.walkNameTree(tree, func(name string, value core.Object) {
			if arr, ok := d.destArray(value); ok {
				dests[name] = arr
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read /Dests name tree: %w", err)
		}
	}

	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	if old, ok := d.resolveDict(catalog.Get("Dests")); ok {
		for _, name := range old.Keys() {
			if arr, ok := d.destArray(old[name]); ok {
				dests[name] = arr
			}
		}
	}
	return dests, nil
}

// destArray unwraps a destination value: an array, or a dictionary whose
// /D is one.
func (d *Document) destArray(obj core.Object) (core.Array, bool) {
	resolved, err := d.Resolve(obj)
	if err != nil {
		return nil, false
	}
	switch v := resolved.(type) {
	case core.Array:
		return v, true
	case core.Dict:
		return d.resolveArray(v.Get("D"))
	}
	return nil, false
}

// Outline returns the document outline. A document without /Outlines has
// an empty outline.
func (d *Document) Outline() ([]*OutlineItem, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	root, ok := d.resolveDict(catalog.Get("Outlines"))
	if !ok {
		return nil, nil
	}

	named, err := d.NamedDestinations()
	if err != nil {
		if d.config.Strict {
			return nil, err
		}
		d.diag.Warn(diag.ClassDestination, diag.NoOffset, "named destinations unreadable: %v", err)
	}

	b := &outlineBuilder{
		doc:     d,
		named:   named,
		visited: make(map[core.IndirectRef]bool),
	}
	return b.branch(root.Get("First"))
}

type outlineBuilder struct {
	doc     *Document
	named   map[string]core.Array
	visited map[core.IndirectRef]bool
}

// branch builds a sibling list starting at first, following /Next.
func (b *outlineBuilder) branch(first core.Object) ([]*OutlineItem, error) {
	d := b.doc
	var items []*OutlineItem

	for cur := first; cur != nil; {
		if ref, ok := cur.(core.IndirectRef); ok {
			if b.visited[ref] {
				d.diag.Warn(diag.ClassOutline, diag.NoOffset,
					"outline loops back to object %d %d", ref.Number, ref.Generation)
				break
			}
			b.visited[ref] = true
		}

		node, ok := d.resolveDict(cur)
		if !ok {
			break
		}

		item, err := b.item(node)
		if err != nil {
			return nil, err
		}
		if node.Has("First") {
			item.Children, err = b.branch(node.Get("First"))
			if err != nil {
				return nil, err
			}
		}
		items = append(items, item)
		cur = node.Get("Next")
	}
	return items, nil
}

func (b *outlineBuilder) item(node core.Dict) (*OutlineItem, error) {
	d := b.doc
	item := &OutlineItem{Page: -1}

	titleObj, err := d.Resolve(node.Get("Title"))
	if err != nil || titleObj == nil {
		if d.config.Strict {
			return nil, core.NewError(core.KindStructural, -1, nil,
				fmt.Sprintf("Outline Entry Missing /Title attribute: %s", node))
		}
	} else {
		item.Title = core.TextOf(titleObj)
	}

	if count, ok := node.GetInt("Count"); ok {
		item.Open = count > 0
	}
	if flags, ok := node.GetInt("F"); ok {
		item.Flags = int(flags)
	}
	if color, ok := d.resolveArray(node.Get("C")); ok {
		for _, c := range color {
			if v, ok := core.Number(c); ok {
				item.Color = append(item.Color, v)
			}
		}
	}

	dest := node.Get("Dest")
	if dest == nil {
		if action, ok := d.resolveDict(node.Get("A")); ok {
			if s, _ := action.GetName("S"); s == "GoTo" {
				dest = action.Get("D")
			}
		}
	}
	if dest == nil {
		return item, nil
	}

	dest, err = d.Resolve(dest)
	if err != nil {
		return nil, err
	}
	if err := b.setDest(item, dest); err != nil {
		return nil, err
	}
	return item, nil
}

// setDest records dest on item and maps it to a page.
func (b *outlineBuilder) setDest(item *OutlineItem, dest core.Object) error {
	d := b.doc

	var arr core.Array
	switch v := dest.(type) {
	case core.Array:
		arr = v
	case core.Name, core.String:
		name := nameOrString(v)
		found, ok := b.named[name]
		if !ok {
			if d.config.Strict {
				return core.NewError(core.KindReference, -1, nil,
					fmt.Sprintf("Unknown Destination: %s", name))
			}
			d.diag.Warn(diag.ClassDestination, diag.NoOffset, "Unknown Destination: %s", name)
			item.Dest = v
			return nil
		}
		arr = found
	case core.Null:
		return nil
	default:
		if d.config.Strict {
			return core.NewError(core.KindStructural, -1, nil,
				fmt.Sprintf("Unexpected destination %s", dest))
		}
		d.diag.Warn(diag.ClassDestination, diag.NoOffset,
			"Removed unexpected destination %s from destination", dest)
		return nil
	}

	item.Dest = dest
	if len(arr) > 0 {
		if ref, ok := arr[0].(core.IndirectRef); ok {
			item.Page = d.PageNumber(ref)
		}
	}
	return nil
}

func nameOrString(obj core.Object) string {
	switch v := obj.(type) {
	case core.Name:
		return string(v)
	case core.String:
		return string(v)
	}
	return ""
}
