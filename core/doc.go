// Package core holds the PDF object model and the cross-reference engine.
//
// # Objects
//
// Every PDF value satisfies [Object]: [Null], [Bool], [Int], [Real],
// [String], [Name], [Array], [Dict], [Stream] and [IndirectRef]. Strings
// hold raw bytes; [DecodeTextString] turns a text string into UTF-8.
//
// [Lexer] and [Parser] read objects straight from a byte slice, normally
// the whole file, so token positions are file offsets. Stream data is
// sliced from the same bytes and decoded on demand by [Stream.Decode].
//
// # Cross-reference data
//
// [LoadXRef] finds startxref, walks the /Prev chain of classic tables and
// xref streams, and merges the sections into one [XRefTable], newest
// first. A lenient load repairs what it can:
//
//   - a startxref pointer that misses the table by a few bytes
//   - tables written with 19-byte records or a non-zero first number
//   - /Prev loops and unreadable older sections
//   - files with no usable table at all, rebuilt by [Recover]
//
// Each repair is reported to a diag.Collector. With LoadOptions.Strict
// the same problems are returned as [*Error] values whose Kind tells
// structural, location and reference failures apart.
//
// [ObjectStream] reads objects stored in /Type /ObjStm streams.
package core
