// Package notepdf converts handwritten .note notebooks to PDF.
//
// Basic usage:
//
//	warnings, err := notepdf.Open("meeting.note").WriteFile("meeting.pdf")
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", notepdf.FormatWarnings(warnings))
//	}
//
// With options:
//
//	warnings, err := notepdf.Open("meeting.note").
//	    Raster(200).
//	    NoLinks().
//	    WriteFile("meeting.pdf")
//
// For batches of notebooks, see the batch package; for the lower-level
// decoder and emitter, see the note and pdfwriter packages.
package notepdf

import (
	"strings"

	"github.com/tsawler/notepdf/model"
)

// Warning is a non-fatal issue found during conversion.
type Warning = model.Warning

// Open returns a Converter for the notebook at path. The file is read by the
// terminal operation.
//
// Example:
//
//	n, err := notepdf.Open("meeting.note").PageCount()
func Open(path string) *Converter {
	return &Converter{path: path, options: defaultOptions()}
}

// FromBytes returns a Converter for an in-memory notebook. name is used for
// the title and for the capture time fallback; it may be empty. data must
// not be modified while the Converter is in use.
func FromBytes(data []byte, name string) *Converter {
	return &Converter{data: data, name: name, options: defaultOptions()}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := notepdf.Must(notepdf.Open("meeting.note").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustWarn is Must for calls that also return warnings, which it discards.
//
// Example:
//
//	pdf := notepdf.MustWarn(notepdf.Open("meeting.note").Bytes())
func MustWarn[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// FormatWarnings joins warnings into a single line.
func FormatWarnings(warnings []Warning) string {
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}
