package reader

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
)

// GetObject returns the object with the given number, using the generation
// recorded in the xref table.
func (d *Document) GetObject(num int) (core.Object, error) {
	gen := 0
	if e, ok := d.xref.Get(num); ok && e.Kind != core.EntryCompressed {
		gen = e.Generation
	}
	return d.ResolveReference(core.IndirectRef{Number: num, Generation: gen})
}

// Resolve follows obj if it is an indirect reference. Other objects are
// returned unchanged.
func (d *Document) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return d.ResolveReference(ref)
	}
	return obj, nil
}

// ResolveDeep returns obj with every nested reference replaced by its
// target.
func (d *Document) ResolveDeep(obj core.Object) (core.Object, error) {
	return d.deep.ResolveDeep(obj)
}

// ResolveReference loads the object ref points to. Results are cached, so
// each object is parsed at most once. A reference that is reached again
// while it is being loaded is an error.
func (d *Document) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if obj, ok := d.cache[ref]; ok {
		return obj, nil
	}
	if d.resolving[ref] {
		return nil, core.NewError(core.KindRecursion, -1, nil,
			fmt.Sprintf("object %d %d is referenced while being resolved", ref.Number, ref.Generation))
	}
	d.resolving[ref] = true
	defer delete(d.resolving, ref)

	obj, err := d.load(ref)
	if err != nil {
		return nil, err
	}
	d.cache[ref] = obj
	return obj, nil
}

func (d *Document) load(ref core.IndirectRef) (core.Object, error) {
	e, ok := d.xref.Get(ref.Number)
	if !ok {
		return d.loadMissing(ref)
	}
	if !e.InUse() || !e.Matches(ref.Generation) {
		return d.notDefined(ref)
	}
	if e.Kind == core.EntryCompressed {
		return d.loadCompressed(ref, e)
	}
	return d.loadAt(ref, e.Offset)
}

// notDefined handles a reference to an object the file does not define.
// Lenient readers treat it as null.
func (d *Document) notDefined(ref core.IndirectRef) (core.Object, error) {
	d.diag.Warn(diag.ClassObjectNotDefined, diag.NoOffset, "Object %d %d not defined.", ref.Number, ref.Generation)
	if d.config.Strict {
		return nil, core.NewError(core.KindReference, -1, nil, "Could not find object.")
	}
	return core.Null{}, nil
}

// loadMissing looks for an object the xref table has no entry for in the
// table rebuilt by scanning.
func (d *Document) loadMissing(ref core.IndirectRef) (core.Object, error) {
	if d.config.Strict {
		return d.notDefined(ref)
	}
	rec := d.recoveryTable()
	if rec == nil {
		return d.notDefined(ref)
	}
	e, ok := rec.Lookup(ref)
	if !ok || !e.InUse() {
		return d.notDefined(ref)
	}
	if e.Kind == core.EntryCompressed {
		return d.loadCompressed(ref, e)
	}
	return d.loadAt(ref, e.Offset)
}

// recoveryTable returns the table rebuilt by scanning, building it on
// first use. It returns nil when the file has no recognizable objects.
// The scan runs at most once per Document.
func (d *Document) recoveryTable() *core.XRefTable {
	if d.recovery == nil && !d.recTried {
		d.recTried = true
		rec, err := core.Recover(d.data, d.loadOptions())
		if err != nil {
			d.diag.Logger().Debug("recovery scan failed", "error", err)
			return nil
		}
		d.recovery = rec
		d.recovered = true
	}
	return d.recovery
}

func (d *Document) loadOptions() core.LoadOptions {
	return core.LoadOptions{
		Strict: d.config.Strict,
		Diag:   d.diag,
		Window: d.config.StartXRefWindow,
	}
}

// loadAt parses the object at a file offset after checking that the
// header there names ref.
func (d *Document) loadAt(ref core.IndirectRef, offset int64) (core.Object, error) {
	hdr, _, herr := core.ReadObjectHeader(d.data, offset)
	if herr != nil || hdr != ref {
		if d.config.Strict {
			if herr != nil {
				return nil, core.NewError(core.KindReference, offset, herr,
					fmt.Sprintf("no header for object %d %d", ref.Number, ref.Generation))
			}
			msg := fmt.Sprintf("Expected object ID (%d %d) does not match actual (%d %d).",
				ref.Number, ref.Generation, hdr.Number, hdr.Generation)
			if d.notZeroIndexed {
				msg += " xref table not zero-indexed."
			}
			return nil, core.NewError(core.KindReference, offset, nil, msg)
		}

		d.diag.Warn(diag.ClassRefRepaired, offset, "Object ID %d,%d ref repaired", ref.Number, ref.Generation)
		if rec := d.recoveryTable(); rec != nil {
			if e, ok := rec.Lookup(ref); ok && e.InUse() {
				if e.Kind == core.EntryCompressed {
					return d.loadCompressed(ref, e)
				}
				offset = e.Offset
				_, _, herr = core.ReadObjectHeader(d.data, offset)
			}
		}
		if herr != nil {
			return d.notDefined(ref)
		}
	}

	p := core.NewParserAt(d.data, offset)
	p.SetDiagnostics(d.diag)
	p.SetStrict(d.config.Strict)
	p.SetReferenceResolver(d)

	d.parseCount++
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, core.NewError(core.KindStructural, offset, err,
			fmt.Sprintf("failed to parse object %d %d", ref.Number, ref.Generation))
	}

	obj := ind.Object
	if d.crypt != nil && (d.encryptRef == nil || *d.encryptRef != ref) {
		obj = d.crypt.decryptObject(ref, obj)
	}
	return obj, nil
}

// loadCompressed reads an object stored in an object stream. The index
// from the xref entry is tried first, then a search by number.
func (d *Document) loadCompressed(ref core.IndirectRef, e *core.XRefEntry) (core.Object, error) {
	objStm, err := d.objectStream(e.Stream)
	if err != nil {
		if d.config.Strict || core.IsKind(err, core.KindRecursion) {
			return nil, err
		}
		d.diag.Logger().Debug("object stream unreadable", "stream", e.Stream, "error", err)
		return d.notDefined(ref)
	}

	d.parseCount++
	obj, num, err := objStm.GetObjectByIndex(e.Index)
	if err != nil || num != ref.Number {
		obj, _, err = objStm.GetObjectByNumber(ref.Number)
	}
	if err != nil {
		if d.config.Strict {
			return nil, core.NewError(core.KindReference, -1, err,
				fmt.Sprintf("object %d not found in object stream %d", ref.Number, e.Stream))
		}
		return d.notDefined(ref)
	}
	return obj, nil
}

// objectStream returns the decoded object stream with the given number.
func (d *Document) objectStream(num int) (*core.ObjectStream, error) {
	if objStm, ok := d.objStreams[num]; ok {
		return objStm, nil
	}

	obj, err := d.ResolveReference(core.IndirectRef{Number: num})
	if err != nil {
		return nil, fmt.Errorf("failed to load object stream %d: %w", num, err)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, core.NewError(core.KindReference, -1, nil,
			fmt.Sprintf("object stream %d is %T, not a stream", num, obj))
	}
	objStm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, core.NewError(core.KindStructural, -1, err,
			fmt.Sprintf("invalid object stream %d", num))
	}
	d.objStreams[num] = objStm
	return objStm, nil
}
