package model

import (
	"sort"
	"time"
)

// Document is a fully decoded notebook.
type Document struct {
	Metadata Metadata
	Pages    []*Page
}

// Metadata contains document-level information
type Metadata struct {
	Title       string
	Captured    time.Time // zero when the container carries no timestamp
	Device      string
	Version     string // container signature, e.g. SN_FILE_VER_20230015
	FileID      string
	Keywords    []string
	PageWidth   float64 // points
	PageHeight  float64 // points
	TemplateDPI float64
}

// HasCaptureTime reports whether a capture timestamp is known.
func (m Metadata) HasCaptureTime() bool {
	return !m.Captured.IsZero()
}

// CaptureDate returns the capture date as YYYY-MM-DD, or "" when unknown.
func (m Metadata) CaptureDate() string {
	if m.Captured.IsZero() {
		return ""
	}
	return m.Captured.Format("2006-01-02")
}

// PageSource is the read side of a notebook as consumed by the emitter.
// Page must be safe to call once per index in order; implementations may
// decode lazily.
type PageSource interface {
	Metadata() Metadata
	PageCount() int
	Page(index int) (*Page, error)
}

// NewDocument creates a new empty document
func NewDocument() *Document {
	return &Document{
		Pages: make([]*Page, 0),
	}
}

// AddPage adds a page to the document
func (d *Document) AddPage(page *Page) {
	page.Index = len(d.Pages)
	d.Pages = append(d.Pages, page)
}

// GetPage returns a page by number (1-indexed)
func (d *Document) GetPage(number int) *Page {
	if number < 1 || number > len(d.Pages) {
		return nil
	}
	return d.Pages[number-1]
}

// PageCount returns the total number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Page returns the page at a zero-based index.
func (d *Document) Page(index int) (*Page, error) {
	if index < 0 || index >= len(d.Pages) {
		return nil, &PageRangeError{Index: index, Count: len(d.Pages)}
	}
	return d.Pages[index], nil
}

// AsSource returns d as a PageSource. The Metadata field shadows the
// interface method name, so the adapter is a separate type.
func (d *Document) AsSource() PageSource {
	return documentSource{d}
}

type documentSource struct{ d *Document }

func (s documentSource) Metadata() Metadata            { return s.d.Metadata }
func (s documentSource) PageCount() int                { return s.d.PageCount() }
func (s documentSource) Page(index int) (*Page, error) { return s.d.Page(index) }

// Titles returns every outline title in page order.
func (d *Document) Titles() []Title {
	var out []Title
	for _, p := range d.Pages {
		out = append(out, p.Titles...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// StrokeCount returns the number of strokes across all layers and pages.
func (d *Document) StrokeCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, l := range p.Layers {
			n += len(l.Strokes)
		}
	}
	return n
}
