// Package pages walks the page tree of a PDF document.
//
// [PageTree] flattens the /Pages hierarchy into document order on first
// use. It counts the leaves it reaches rather than trusting /Count, and it
// refuses to visit an object twice, so a tree that loops ends instead of
// recursing forever. Kids that do not resolve, or are not dictionaries,
// are skipped with a diag warning unless [WithStrict] is set.
//
// A [Page] keeps its ancestors, so MediaBox, CropBox, Resources and
// Rotate are inherited from the nearest node that defines them.
//
// References are followed through a [Resolver], normally a
// reader.Document.
package pages
