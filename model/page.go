package model

import "fmt"

// Page is one notebook page.
type Page struct {
	Index    int     // 0-based position in the document
	Width    float64 // Page width in points
	Height   float64 // Page height in points
	Template Template
	Layers   []*Layer // ordered by ZOrder, bottom first
	Links    []Link
	Titles   []Title
	Keywords []Keyword
}

// Template describes the page background and device pixel grid.
type Template struct {
	Style  string // background template id (PAGESTYLE)
	DPI    float64
	PixelW int
	PixelH int
}

// NewPage creates a new page with given dimensions
func NewPage(width, height float64) *Page {
	return &Page{
		Width:  width,
		Height: height,
		Layers: make([]*Layer, 0),
	}
}

// AddLayer appends a layer and assigns it the next z-order.
func (p *Page) AddLayer(l *Layer) {
	l.ZOrder = len(p.Layers)
	p.Layers = append(p.Layers, l)
}

// VisibleLayers returns the layers to render by default, bottom first.
func (p *Page) VisibleLayers() []*Layer {
	var out []*Layer
	for _, l := range p.Layers {
		if l.Visible {
			out = append(out, l)
		}
	}
	return out
}

// Layer is a named, ordered set of strokes.
type Layer struct {
	Name    string
	ZOrder  int // 0 is the bottom-most layer
	Visible bool
	Strokes []Stroke
}

// Brush identifies the pen tool used for a stroke.
type Brush int

const (
	BrushInkPen Brush = iota
	BrushNeedlePoint
	BrushMarker
	BrushCalligraphy
	BrushUnknown
)

func (b Brush) String() string {
	switch b {
	case BrushInkPen:
		return "ink-pen"
	case BrushNeedlePoint:
		return "needle-point"
	case BrushMarker:
		return "marker"
	case BrushCalligraphy:
		return "calligraphy"
	default:
		return "unknown"
	}
}

// Stroke is a single pen-down to pen-up trace. Points are in time order.
type Stroke struct {
	Points []Point
	Color  uint8   // gray level, 0 = black
	Width  float64 // points
	Brush  Brush
}

// Bounds returns the bounding box of the stroke's points.
func (s Stroke) Bounds() BBox {
	if len(s.Points) == 0 {
		return BBox{}
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range s.Points[1:] {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.X > maxX {
			maxX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	return BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// PageRangeError is returned when a page index is outside the document.
type PageRangeError struct {
	Index int
	Count int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("page index %d out of range [0,%d)", e.Index, e.Count)
}
