package pages

import (
	"fmt"

	"github.com/tsawler/pdfreader/core"
)

// Resolver follows indirect references. Direct objects are returned as is.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Catalog wraps the document catalog, the /Root of the trailer.
type Catalog struct {
	dict     core.Dict
	resolver Resolver
}

// NewCatalog wraps dict.
func NewCatalog(dict core.Dict, resolver Resolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

func (c *Catalog) Dict() core.Dict { return c.dict }

func (c *Catalog) Type() string { return c.name("Type") }

// PageLayout returns /PageLayout, or "" when absent.
func (c *Catalog) PageLayout() string { return c.name("PageLayout") }

// PageMode returns /PageMode, or "" when absent.
func (c *Catalog) PageMode() string { return c.name("PageMode") }

func (c *Catalog) name(key string) string {
	n, _ := c.dict.GetName(key)
	return string(n)
}

// PagesRef returns the reference to the root of the page tree. A direct
// /Pages dictionary has none.
func (c *Catalog) PagesRef() (core.IndirectRef, bool) {
	return c.dict.GetIndirectRef("Pages")
}

// Pages resolves the root node of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	obj := c.dict.Get("Pages")
	if obj == nil {
		return nil, fmt.Errorf("catalog has no /Pages")
	}
	resolved, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	root, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/Pages is %T, not a dictionary", resolved)
	}
	return root, nil
}
