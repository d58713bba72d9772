package resolver

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
)

// ObjectReader loads the target of a single reference.
type ObjectReader interface {
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// DefaultMaxDepth bounds nesting during deep resolution.
const DefaultMaxDepth = 100

// Option configures an ObjectResolver.
type Option func(*ObjectResolver)

// WithMaxDepth sets how deep ResolveDeep may nest. Values below 1 keep
// the default.
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// ObjectResolver expands indirect references inside nested objects.
type ObjectResolver struct {
	reader   ObjectReader
	maxDepth int
}

// NewResolver creates a resolver that loads objects through reader.
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{reader: reader, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveDeep returns a copy of obj with every nested reference replaced
// by its target. Streams are copied with a resolved dictionary and the
// same data.
//
// A reference that leads back to one of its own ancestors is a recursion
// error; the same object reached through sibling branches is fine and is
// expanded once, so siblings share the resolved value.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	w := &walk{
		ObjectResolver: r,
		path:           make(map[core.IndirectRef]bool),
		done:           make(map[core.IndirectRef]expanded),
	}
	return w.expand(obj, 0)
}

// ResolveDict deep-resolves a dictionary.
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	obj, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return obj.(core.Dict), nil
}

// ResolveArray deep-resolves an array.
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	obj, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return obj.(core.Array), nil
}

// walk is the state of one ResolveDeep call.
type walk struct {
	*ObjectResolver
	path map[core.IndirectRef]bool // references being expanded above
	done map[core.IndirectRef]expanded
}

// expanded is a finished reference and the depth it was reached at. The
// result can be reused at that depth or above.
type expanded struct {
	obj   core.Object
	depth int
}

func (r *walk) expand(obj core.Object, depth int) (core.Object, error) {
	if depth >= r.maxDepth {
		return nil, core.NewError(core.KindRecursion, -1, nil,
			fmt.Sprintf("maximum recursion depth (%d) exceeded", r.maxDepth))
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if r.path[v] {
			return nil, core.NewError(core.KindRecursion, -1, nil,
				fmt.Sprintf("circular reference detected for object %d %d", v.Number, v.Generation))
		}
		if e, ok := r.done[v]; ok && depth <= e.depth {
			return e.obj, nil
		}
		target, err := r.reader.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", v, err)
		}
		r.path[v] = true
		defer delete(r.path, v)
		out, err := r.expand(target, depth+1)
		if err != nil {
			return nil, err
		}
		r.done[v] = expanded{obj: out, depth: depth}
		return out, nil

	case core.Dict:
		out := make(core.Dict, len(v))
		for key, val := range v {
			resolved, err := r.expand(val, depth+1)
			if err != nil {
				return nil, fmt.Errorf("/%s: %w", key, err)
			}
			out[key] = resolved
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			resolved, err := r.expand(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil

	case *core.Stream:
		dict, err := r.expand(v.Dict, depth+1)
		if err != nil {
			return nil, fmt.Errorf("stream dictionary: %w", err)
		}
		return &core.Stream{Dict: dict.(core.Dict), Data: v.Data, Offset: v.Offset}, nil
	}
	return obj, nil
}
