package notepdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tsawler/notepdf/format"
	"github.com/tsawler/notepdf/model"
	"github.com/tsawler/notepdf/note"
	"github.com/tsawler/notepdf/ocr"
	"github.com/tsawler/notepdf/pdfwriter"
)

// Converter provides a fluent interface for converting one notebook.
// Each configuration method returns a new Converter, so a Converter can be
// shared and extended safely; every terminal operation decodes the notebook
// afresh.
type Converter struct {
	path string
	data []byte
	name string

	options convertOptions
}

func (c *Converter) clone() *Converter {
	n := *c
	return &n
}

// ============================================================================
// Configuration Methods (return new Converter instance)
// ============================================================================

// WithContext sets the context checked between pages.
func (c *Converter) WithContext(ctx context.Context) *Converter {
	n := c.clone()
	n.options.ctx = ctx
	return n
}

// Vector draws strokes as PDF paths. This is the default.
func (c *Converter) Vector() *Converter {
	n := c.clone()
	n.options.mode = pdfwriter.ModeVector
	return n
}

// Raster draws each page as an image at dpi. A dpi of 0 uses the default.
//
// Example:
//
//	_, err := notepdf.Open("sketch.note").Raster(300).WriteFile("sketch.pdf")
func (c *Converter) Raster(dpi float64) *Converter {
	n := c.clone()
	n.options.mode = pdfwriter.ModeRaster
	n.options.rasterDPI = dpi
	return n
}

// NoLinks omits link annotations.
func (c *Converter) NoLinks() *Converter {
	n := c.clone()
	n.options.omitLinks = true
	return n
}

// HiddenLayers also draws layers the notebook marks invisible.
func (c *Converter) HiddenLayers() *Converter {
	n := c.clone()
	n.options.hiddenLayers = true
	return n
}

// Exact keeps every recorded stroke point.
func (c *Converter) Exact() *Converter {
	n := c.clone()
	n.options.exact = true
	return n
}

// Tolerance sets the stroke thinning distance in device pixels.
func (c *Converter) Tolerance(px float64) *Converter {
	n := c.clone()
	n.options.tolerance = px
	return n
}

// OCR adds an invisible text layer produced by r.
func (c *Converter) OCR(r ocr.Recognizer) *Converter {
	n := c.clone()
	n.options.recognizer = r
	return n
}

// Creator sets the /Creator entry of the document information.
func (c *Converter) Creator(s string) *Converter {
	n := c.clone()
	n.options.creator = s
	return n
}

// ============================================================================
// Terminal Operations
// ============================================================================

func (c *Converter) open() (*note.File, error) {
	data, name := c.data, c.name
	if data == nil {
		if c.path == "" {
			return nil, fmt.Errorf("no filename specified")
		}
		var err error
		if data, err = os.ReadFile(c.path); err != nil {
			return nil, fmt.Errorf("failed to read notebook: %w", err)
		}
		name = c.path
	}
	if format.DetectFromMagic(data) != format.Note {
		return nil, fmt.Errorf("unsupported file format: %s is not a notebook", displayName(name))
	}
	return note.Parse(data, note.Options{
		Name:      name,
		Exact:     c.options.exact,
		Tolerance: c.options.tolerance,
	})
}

func displayName(name string) string {
	if name == "" {
		return "input"
	}
	return filepath.Base(name)
}

// Metadata returns the notebook metadata without decoding any page.
func (c *Converter) Metadata() (model.Metadata, error) {
	f, err := c.open()
	if err != nil {
		return model.Metadata{}, err
	}
	return f.Metadata(), nil
}

// PageCount returns the number of pages.
func (c *Converter) PageCount() (int, error) {
	f, err := c.open()
	if err != nil {
		return 0, err
	}
	return f.PageCount(), nil
}

// Document decodes every page into a model.Document.
func (c *Converter) Document() (*model.Document, []Warning, error) {
	f, err := c.open()
	if err != nil {
		return nil, nil, err
	}
	doc, err := f.Document()
	return doc, f.Warnings(), err
}

// WritePDF writes the PDF to w.
//
// Example:
//
//	var buf bytes.Buffer
//	warnings, err := notepdf.FromBytes(data, "meeting.note").WritePDF(&buf)
func (c *Converter) WritePDF(w io.Writer) ([]Warning, error) {
	f, err := c.open()
	if err != nil {
		return nil, err
	}
	res, err := pdfwriter.Write(c.options.ctx, w, f, c.options.writerOptions())
	return collect(f, res), err
}

// WriteFile writes the PDF to path. The file is replaced atomically; on
// error nothing is left at path.
func (c *Converter) WriteFile(path string) ([]Warning, error) {
	f, err := c.open()
	if err != nil {
		return nil, err
	}
	res, err := pdfwriter.WriteFile(c.options.ctx, path, f, c.options.writerOptions())
	return collect(f, res), err
}

// Bytes returns the PDF.
func (c *Converter) Bytes() ([]byte, []Warning, error) {
	var buf bytes.Buffer
	warnings, err := c.WritePDF(&buf)
	if err != nil {
		return nil, warnings, err
	}
	return buf.Bytes(), warnings, nil
}

func collect(f *note.File, res *pdfwriter.Result) []Warning {
	warnings := append([]Warning(nil), f.Warnings()...)
	if res != nil {
		warnings = append(warnings, res.Warnings...)
	}
	return warnings
}
