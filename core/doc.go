// Package core provides the PDF object types and a serializer for them.
//
// This package implements the eight PDF object types (null, boolean,
// integer, real, string, name, array, and dictionary), as well as streams
// and indirect references. Every object renders its own PDF syntax through
// String, and [Writer] lays indirect objects out into a complete file with a
// classic cross-reference table.
//
// # Object Types
//
//   - [Null] - the PDF null object
//   - [Bool] - true/false
//   - [Int] - integers
//   - [Real] - real numbers, written with at most four decimals
//   - [String] - literal strings, escaped on output
//   - [Name] - names such as /Type, with #xx escaping
//   - [Array] - arrays
//   - [Dict] - dictionaries, written with sorted keys
//
// [Stream] pairs a dictionary with binary data, and [IndirectRef] refers to
// an object written elsewhere in the file.
//
// # Determinism
//
// Output is byte-for-byte reproducible: dictionary keys are sorted, reals are
// formatted with a fixed precision, and the writer never consults the clock.
//
// # Writing
//
//	w := core.NewWriter(out)
//	catalog := w.Alloc()
//	w.WriteObject(catalog, core.Dict{"Type": core.Name("Catalog"), ...})
//	w.Close(core.Dict{"Root": catalog})
package core
