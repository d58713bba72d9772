package reader

import (
	"github.com/tsawler/pdfreader/core"
)

// walkNameTree visits every key/value pair of a name tree in order. Nodes
// reached a second time are skipped.
func (d *Document) walkNameTree(root core.Object, fn func(name string, value core.Object)) error {
	visited := make(map[core.IndirectRef]bool)

	var walk func(obj core.Object) error
	walk = func(obj core.Object) error {
		if ref, ok := obj.(core.IndirectRef); ok {
			if visited[ref] {
				return nil
			}
			visited[ref] = true
		}

		resolved, err := d.Resolve(obj)
		if err != nil {
			return err
		}
		node, ok := resolved.(core.Dict)
		if !ok {
			return nil
		}

		if names, ok := d.resolveArray(node.Get("Names")); ok {
			for i := 0; i+1 < len(names); i += 2 {
				key, err := d.Resolve(names[i])
				if err != nil {
					return err
				}
				var name string
				switch k := key.(type) {
				case core.String:
					name = string(k)
				case core.Name:
					name = string(k)
				default:
					continue
				}
				fn(name, names[i+1])
			}
		}

		if kids, ok := d.resolveArray(node.Get("Kids")); ok {
			for _, kid := range kids {
				if err := walk(kid); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return walk(root)
}

// resolveArray resolves obj and reports whether it is an array.
func (d *Document) resolveArray(obj core.Object) (core.Array, bool) {
	if obj == nil {
		return nil, false
	}
	resolved, err := d.Resolve(obj)
	if err != nil {
		return nil, false
	}
	arr, ok := resolved.(core.Array)
	return arr, ok
}

// resolveDict resolves obj and reports whether it is a dictionary.
func (d *Document) resolveDict(obj core.Object) (core.Dict, bool) {
	if obj == nil {
		return nil, false
	}
	resolved, err := d.Resolve(obj)
	if err != nil {
		return nil, false
	}
	dict, ok := resolved.(core.Dict)
	return dict, ok
}

// namesTree returns the named subtree of the catalog's /Names dictionary.
func (d *Document) namesTree(key string) (core.Object, bool) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, false
	}
	names, ok := d.resolveDict(catalog.Get("Names"))
	if !ok {
		return nil, false
	}
	tree := names.Get(key)
	return tree, tree != nil
}
