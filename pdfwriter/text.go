package pdfwriter

import (
	"context"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/notepdf/contentstream"
	"github.com/tsawler/notepdf/core"
	"github.com/tsawler/notepdf/model"
	"github.com/tsawler/notepdf/ocr"
	"github.com/tsawler/notepdf/raster"
)

const fontName = "F1"

// avgGlyphWidth approximates Helvetica's mean advance as a fraction of the
// font size. Recognized words are stretched with Tz to fill their box.
const avgGlyphWidth = 0.5

func helvetica() core.Dict {
	return core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Helvetica"),
		"Encoding": core.Name("WinAnsiEncoding"),
	}
}

// textLayer recognizes the rendered page and adds the words as invisible
// text. Recognition failures only produce a warning; a canceled context
// is returned.
func (e *emitter) textLayer(ctx context.Context, b *contentstream.Builder, resources core.Dict, p *model.Page) error {
	img, err := raster.Render(p, raster.Options{DPI: e.opts.OCRDPI, HiddenLayers: e.opts.HiddenLayers})
	if err != nil {
		e.warn(p.Index, "text layer skipped: %v", err)
		return nil
	}
	png, err := raster.PNG(img)
	if err != nil {
		e.warn(p.Index, "text layer skipped: %v", err)
		return nil
	}
	words, err := e.opts.Recognizer.Recognize(ctx, png)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.warn(p.Index, "text recognition failed: %v", err)
		return nil
	}
	words = ocr.Filter(words)
	if len(words) == 0 {
		return nil
	}

	if e.fontRef.IsZero() {
		e.fontRef = e.w.Alloc()
	}
	resources["Font"] = core.Dict{fontName: e.fontRef}

	scale := 72 / e.opts.OCRDPI
	b.BeginText().TextRender(3)
	for _, w := range words {
		text := winAnsi(w.Text)
		size := float64(w.Box.Dy()) * scale
		width := float64(w.Box.Dx()) * scale
		x := float64(w.Box.Min.X) * scale
		y := p.Height - float64(w.Box.Max.Y)*scale

		b.Font(fontName, size).TextMatrix(1, 0, 0, 1, x, y)
		if natural := avgGlyphWidth * size * float64(len(text)); natural > 0 {
			b.HorizontalScale(width / natural * 100)
		}
		b.ShowText(text)
	}
	b.EndText()
	return nil
}

// winAnsi encodes s in WinAnsiEncoding, replacing unmappable runes with '?'.
func winAnsi(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = '?'
		}
		out = append(out, c)
	}
	return string(out)
}
