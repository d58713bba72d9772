package reader

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
)

// Attachments returns the embedded files of the document keyed by file
// name. Files come from the /EmbeddedFiles name tree and from
// FileAttachment annotations; a name used more than once maps to every
// file carrying it.
func (d *Document) Attachments() (map[string][][]byte, error) {
	out := make(map[string][][]byte)

	add := func(fallback string, specObj core.Object) error {
		spec, ok := d.resolveDict(specObj)
		if !ok {
			return nil
		}
		name, data, err := d.fileSpec(spec, fallback)
		if err != nil {
			if d.config.Strict {
				return err
			}
			d.diag.Warn(diag.ClassAttachment, diag.NoOffset, "attachment %q unreadable: %v", fallback, err)
			return nil
		}
		if data != nil {
			out[name] = append(out[name], data)
		}
		return nil
	}

	if tree, ok := d.namesTree("EmbeddedFiles"); ok {
		var specs []core.Object
		var names []string
		err := d.walkNameTree(tree, func(name string, value core.Object) {
			names = append(names, name)
			specs = append(specs, value)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read /EmbeddedFiles: %w", err)
		}
		for i, spec := range specs {
			if err := add(core.DecodeTextString(core.String(names[i])), spec); err != nil {
				return nil, err
			}
		}
	}

	pageList, err := d.Pages()
	if err != nil {
		if d.config.Strict {
			return nil, err
		}
		return out, nil
	}
	for _, page := range pageList {
		annots, err := page.Annotations()
		if err != nil {
			continue
		}
		for _, annot := range annots {
			if subtype, _ := annot.GetName("Subtype"); subtype != "FileAttachment" {
				continue
			}
			if err := add("", annot.Get("FS")); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// fileSpec returns the name and decoded content of a file specification.
// The /UF name is preferred over /F; fallback is used when neither is
// set.
func (d *Document) fileSpec(spec core.Dict, fallback string) (string, []byte, error) {
	name := fallback
	for _, key := range []string{"UF", "F"} {
		if v, err := d.Resolve(spec.Get(key)); err == nil {
			if s := core.TextOf(v); s != "" {
				name = s
				break
			}
		}
	}

	ef, ok := d.resolveDict(spec.Get("EF"))
	if !ok {
		return name, nil, nil
	}
	for _, key := range []string{"F", "UF"} {
		if !ef.Has(key) {
			continue
		}
		data, err := d.streamData(ef.Get(key))
		if err != nil {
			return name, nil, err
		}
		return name, data, nil
	}
	return name, nil, nil
}
