// Package reader opens PDF files and resolves their objects.
//
// A [Document] is created from a path, a byte slice or an io.Reader:
//
//	doc, err := reader.Open("document.pdf", reader.WithStrict(false))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
// Opening loads the cross-reference data. In lenient mode (the default)
// damaged files are repaired where possible: a wrong startxref pointer is
// corrected, unreadable tables are rebuilt by scanning the file, and
// objects whose header does not match their xref entry are looked up in
// the rebuilt table. Each repair is recorded as a warning, available from
// [Document.Warnings]. In strict mode the same problems are errors.
//
// # Object Resolution
//
//   - GetObject(num) - load an object by number
//   - ResolveReference(ref) - load the target of an IndirectRef
//   - Resolve(obj) - resolve if indirect, otherwise return as-is
//   - ResolveDeep(obj) - recursively resolve all references
//
// Objects are parsed at most once and cached. [Document.ParseCount]
// reports how many objects have been parsed.
//
// # Document Information
//
//   - Version, Trailer, Catalog, Metadata
//   - PageCount, Page, Pages, PageNumber, PageLayout, PageMode
//   - Outline, NamedDestinations
//   - Fields, FormTextFields, XFA
//   - Attachments
//
// # Encryption
//
// Files protected by the standard security handler (RC4, AES-128 and
// AES-256) are decrypted transparently. The password given with
// [WithPassword] is tried as user and as owner password; without one the
// empty password is tried.
package reader
