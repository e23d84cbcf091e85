// Package model provides the in-memory representation of a decoded notebook.
//
// A [Document] is produced by the note reader and consumed by the PDF
// emitter. It is immutable once built: nothing downstream of the reader
// mutates pages, layers or strokes.
//
// # Document Structure
//
// The [Document] type holds [Metadata] and an ordered list of [Page] values.
// Each page carries its template geometry, an ordered list of [Layer] values
// (z-order 0 is the bottom-most layer), and the page-relative [Link],
// [Title] and [Keyword] records recovered from the container.
//
// # Coordinates
//
// All geometry is expressed in PDF points (1/72 inch) with the origin at the
// top-left corner of the page, matching the device's pixel grid. The emitter
// flips the y axis when it writes PDF user space.
//
// # Page Sources
//
// The emitter consumes the [PageSource] interface rather than a concrete
// Document, so a lazily decoded notebook can be written one page at a time.
// [Document.AsSource] adapts an eager Document to PageSource.
package model
