// Package pdfwriter emits notebook pages as a PDF document.
//
// Pages are written one at a time from a [model.PageSource], so a lazily
// decoded notebook never has to be held in memory as a whole. Two page
// renderings are available:
//
//   - Vector (default): every stroke becomes a stroked path with round caps
//     and joins in DeviceGray.
//   - Raster: every page is rendered to a gray bitmap and embedded as an
//     image XObject.
//
// Link annotations, an outline built from page titles, and an invisible OCR
// text layer are optional. Output is byte-for-byte deterministic for the same
// input and options: dictionaries are written with sorted keys, no wall-clock
// time is recorded and the trailer /ID is a digest of the file body.
package pdfwriter
