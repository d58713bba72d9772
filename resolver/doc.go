// Package resolver expands indirect references inside PDF objects.
//
// A reader.Document resolves one reference at a time. [ObjectResolver]
// builds on that to copy a whole object graph with every "n g R" replaced
// by its target:
//
//	r := resolver.NewResolver(doc, resolver.WithMaxDepth(50))
//	info, err := r.ResolveDict(trailerInfo)
//
// Cycles are errors of kind core.KindRecursion, as is nesting deeper than
// the configured limit.
package resolver
