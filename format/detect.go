// Package format provides file format detection for notepdf.
package format

import (
	"io"
	"path/filepath"
	"strings"
)

// Format represents a file format the pipeline reads or writes.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// Note indicates a handwritten notebook container.
	Note
	// PDF indicates a PDF document.
	PDF
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case Note:
		return "NOTE"
	case PDF:
		return "PDF"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case Note:
		return ".note"
	case PDF:
		return ".pdf"
	default:
		return ""
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".note":
		return Note
	case ".pdf":
		return PDF
	default:
		return Unknown
	}
}

// DetectFromMagic checks file magic bytes to determine format.
// This provides more reliable detection than extension-based detection.
func DetectFromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}

	// Notebook container: "note" followed by the version signature
	if string(data[:4]) == "note" {
		return Note
	}

	// PDF magic: %PDF
	if string(data[:4]) == "%PDF" {
		return PDF
	}

	return Unknown
}

// DetectFromReader reads the leading bytes of r to determine format.
func DetectFromReader(r io.ReaderAt) (Format, error) {
	magic := make([]byte, 4)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	return DetectFromMagic(magic[:n]), nil
}

// SwapExtension replaces the extension of name with f's extension.
func SwapExtension(name string, f Format) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + f.Extension()
}
