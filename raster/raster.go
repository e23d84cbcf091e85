// Package raster renders notebook pages into 8-bit gray bitmaps.
//
// Strokes are converted to filled outlines (a quad per segment plus round
// joins and caps) and scan-converted with golang.org/x/image/vector. Each
// stroke is rasterized in its own clipped mask so cost scales with the inked
// area rather than the page size.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/vector"

	"github.com/tsawler/notepdf/model"
)

// DefaultDPI is the raster resolution used when none is configured.
const DefaultDPI = 150

// capSegments is the number of polygon edges used to approximate a round cap.
const capSegments = 16

// Options controls rasterization.
type Options struct {
	DPI          float64
	HiddenLayers bool // also draw layers marked hidden
}

// Size returns the bitmap size for a page of w x h points at dpi.
func Size(w, h, dpi float64) (int, int) {
	scale := dpi / 72
	return int(math.Ceil(w*scale - 1e-9)), int(math.Ceil(h*scale - 1e-9))
}

// Render draws the page's strokes onto a white gray bitmap. Layers are drawn
// bottom first.
func Render(p *model.Page, opts Options) (*image.Gray, error) {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	pw, ph := Size(p.Width, p.Height, dpi)
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("raster: empty page %gx%g", p.Width, p.Height)
	}

	img := image.NewGray(image.Rect(0, 0, pw, ph))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	layers := p.VisibleLayers()
	if opts.HiddenLayers {
		layers = p.Layers
	}
	scale := dpi / 72
	for _, l := range layers {
		for _, s := range l.Strokes {
			drawStroke(img, s, scale)
		}
	}
	return img, nil
}

// drawStroke fills the outline of s into img.
func drawStroke(img *image.Gray, s model.Stroke, scale float64) {
	if len(s.Points) == 0 {
		return
	}
	half := s.Width * scale / 2
	if half < 0.5 {
		half = 0.5
	}

	b := s.Bounds()
	r := image.Rect(
		int(math.Floor(b.Left()*scale-half))-1,
		int(math.Floor(b.Top()*scale-half))-1,
		int(math.Ceil(b.Right()*scale+half))+1,
		int(math.Ceil(b.Bottom()*scale+half))+1,
	).Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	at := func(p model.Point) (float64, float64) {
		return p.X*scale - ox, p.Y*scale - oy
	}

	for i, p := range s.Points {
		x, y := at(p)
		circle(z, x, y, half)
		if i == 0 {
			continue
		}
		px, py := at(s.Points[i-1])
		segment(z, px, py, x, y, half)
	}

	z.Draw(img, r, image.NewUniform(color.Gray{Y: s.Color}), image.Point{})
}

// segment adds a quad of half-width h around the line (x0,y0)-(x1,y1).
// Winding matches circle so overlapping outlines do not cancel.
func segment(z *vector.Rasterizer, x0, y0, x1, y1, h float64) {
	dx, dy := x1-x0, y1-y0
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	nx, ny := -dy/n*h, dx/n*h
	z.MoveTo(float32(x0+nx), float32(y0+ny))
	z.LineTo(float32(x1+nx), float32(y1+ny))
	z.LineTo(float32(x1-nx), float32(y1-ny))
	z.LineTo(float32(x0-nx), float32(y0-ny))
	z.ClosePath()
}

// circle adds a closed polygon approximating a disc, clockwise in page space.
func circle(z *vector.Rasterizer, cx, cy, r float64) {
	z.MoveTo(float32(cx+r), float32(cy))
	for i := 1; i < capSegments; i++ {
		a := -2 * math.Pi * float64(i) / capSegments
		z.LineTo(float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a)))
	}
	z.ClosePath()
}

// PNG encodes img as a PNG.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("raster: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
