package pages

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
	"github.com/tsawler/pdfreader/diag"
)

// Option configures a PageTree.
type Option func(*PageTree)

// WithStrict makes unreadable or malformed kids an error instead of
// skipping them.
func WithStrict(strict bool) Option {
	return func(t *PageTree) { t.strict = strict }
}

// WithDiagnostics routes warnings about skipped nodes to c.
func WithDiagnostics(c *diag.Collector) Option {
	return func(t *PageTree) { t.diag = c }
}

// PageTree flattens the /Pages hierarchy into document order. The tree is
// walked once, on first use; /Count is never trusted.
type PageTree struct {
	root     core.Dict
	rootRef  *core.IndirectRef
	resolver Resolver
	strict   bool
	diag     *diag.Collector

	pages  []*Page
	loaded bool
	err    error
}

// NewPageTree creates a tree rooted at root. rootRef is nil when the root
// is a direct object.
func NewPageTree(root core.Dict, rootRef *core.IndirectRef, resolver Resolver, opts ...Option) *PageTree {
	t := &PageTree{root: root, rootRef: rootRef, resolver: resolver}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Count returns the number of leaves reached by the walk.
func (t *PageTree) Count() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// DeclaredCount returns the root's /Count, which damaged files get wrong.
func (t *PageTree) DeclaredCount() (int, bool) {
	n, ok := t.root.GetInt("Count")
	return int(n), ok
}

// GetPage returns the page at a 0-based index.
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns every page in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

// IndexOf returns the index of the page object ref, or -1.
func (t *PageTree) IndexOf(ref core.IndirectRef) int {
	if t.load() != nil {
		return -1
	}
	for i, p := range t.pages {
		if r, ok := p.Ref(); ok && r == ref {
			return i
		}
	}
	return -1
}

func (t *PageTree) load() error {
	if t.loaded {
		return t.err
	}
	t.loaded = true

	w := &walker{tree: t, seen: make(map[core.IndirectRef]bool)}
	if t.rootRef != nil {
		w.seen[*t.rootRef] = true
	}
	if err := w.node(t.root, t.rootRef, nil); err != nil {
		t.err = fmt.Errorf("failed to traverse page tree: %w", err)
		return t.err
	}
	t.pages = w.out
	return nil
}

// walker holds the state of one traversal.
type walker struct {
	tree *PageTree
	seen map[core.IndirectRef]bool
	out  []*Page
}

// bad reports a node that can not be used. Lenient walks record a warning
// and carry on.
func (w *walker) bad(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	if w.tree.strict {
		return err
	}
	w.tree.diag.Warn(diag.ClassPageTree, diag.NoOffset, "%v", err)
	return nil
}

// node visits one node. ancestors are the enclosing /Pages nodes, nearest
// first.
func (w *walker) node(dict core.Dict, ref *core.IndirectRef, ancestors []core.Dict) error {
	leaf, err := isLeaf(dict)
	if err != nil {
		return w.bad("%v", err)
	}
	if leaf {
		w.out = append(w.out, NewPage(dict, ref, ancestors, w.tree.resolver))
		return nil
	}

	kidsObj := dict.Get("Kids")
	if kidsObj == nil {
		return w.bad("Pages node has no /Kids")
	}
	resolved, err := w.tree.resolver.Resolve(kidsObj)
	if err != nil {
		return w.bad("failed to resolve /Kids: %w", err)
	}
	kids, ok := resolved.(core.Array)
	if !ok {
		return w.bad("/Kids is %T, not an array", resolved)
	}

	chain := append([]core.Dict{dict}, ancestors...)
	for i, kid := range kids {
		var kidRef *core.IndirectRef
		if r, ok := kid.(core.IndirectRef); ok {
			if w.seen[r] {
				if err := w.bad("page tree revisits object %d %d", r.Number, r.Generation); err != nil {
					return err
				}
				continue
			}
			w.seen[r] = true
			kidRef = &r
		}

		obj, err := w.tree.resolver.Resolve(kid)
		if err != nil {
			if err := w.bad("failed to resolve kid %d: %w", i, err); err != nil {
				return err
			}
			continue
		}
		kidDict, ok := obj.(core.Dict)
		if !ok {
			if err := w.bad("kid %d is %T, not a dictionary", i, obj); err != nil {
				return err
			}
			continue
		}
		if err := w.node(kidDict, kidRef, chain); err != nil {
			return err
		}
	}
	return nil
}

// isLeaf tells pages from intermediate nodes. Without a usable /Type the
// presence of /Kids decides.
func isLeaf(node core.Dict) (bool, error) {
	typ, ok := node.GetName("Type")
	if !ok {
		return !node.Has("Kids"), nil
	}
	switch typ {
	case "Page":
		return true, nil
	case "Pages":
		return false, nil
	}
	if node.Has("Kids") {
		return false, nil
	}
	return false, fmt.Errorf("unexpected page tree node /Type /%s", typ)
}
