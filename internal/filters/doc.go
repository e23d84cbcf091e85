// Package filters provides the PDF stream filters used by the emitter.
//
// Content streams and image data are written with FlateDecode:
//
//	encoded, err := filters.FlateEncode(data)
//
// Grayscale image rows can additionally be run through the PNG "Up"
// predictor, which compresses pen-on-paper bitmaps noticeably better:
//
//	encoded, err := filters.FlateEncodePNGUp(pixels, width, 1)
//
// The matching decode parameters for the stream dictionary are returned by
// [PNGUpParams]. FlateDecode reverses both forms and is used to inspect
// emitted files.
package filters
