package pdfwriter

import (
	"context"
	"fmt"

	"github.com/tsawler/notepdf/contentstream"
	"github.com/tsawler/notepdf/core"
	"github.com/tsawler/notepdf/internal/filters"
	"github.com/tsawler/notepdf/model"
	"github.com/tsawler/notepdf/raster"
)

const imageName = "Im0"

func (e *emitter) writePage(ctx context.Context, i int, p *model.Page) error {
	b := contentstream.NewBuilder()
	resources := core.Dict{}

	switch e.opts.Mode {
	case ModeRaster:
		ref, err := e.writeImage(p)
		if err != nil {
			return err
		}
		resources["XObject"] = core.Dict{imageName: ref}
		b.Save().Concat(p.Width, 0, 0, p.Height, 0, 0).DrawXObject(imageName).Restore()
	default:
		e.drawStrokes(b, p)
	}

	if e.opts.Recognizer != nil {
		if err := e.textLayer(ctx, b, resources, p); err != nil {
			return err
		}
	}

	content, err := core.NewFlateStream(core.Dict{}, b.Bytes())
	if err != nil {
		return err
	}
	contentRef, err := e.w.Add(content)
	if err != nil {
		return err
	}

	page := core.Dict{
		"Type":      core.Name("Page"),
		"Parent":    e.pagesRef,
		"MediaBox":  core.Rect(0, 0, p.Width, p.Height),
		"Resources": resources,
		"Contents":  contentRef,
	}
	if !e.opts.OmitLinks {
		annots, err := e.writeAnnotations(i, p)
		if err != nil {
			return err
		}
		if len(annots) > 0 {
			page["Annots"] = annots
		}
	}

	e.heights[i] = p.Height
	e.titles = append(e.titles, p.Titles...)
	return e.w.WriteObject(e.pageRefs[i], page)
}

func (e *emitter) layers(p *model.Page) []*model.Layer {
	if e.opts.HiddenLayers {
		return p.Layers
	}
	return p.VisibleLayers()
}

// drawStrokes adds one stroked path per stroke. PDF space has its origin at
// the bottom left, so y is flipped.
func (e *emitter) drawStrokes(b *contentstream.Builder, p *model.Page) {
	for _, l := range e.layers(p) {
		for _, s := range l.Strokes {
			if len(s.Points) == 0 {
				continue
			}
			b.Save().
				StrokeGray(float64(s.Color) / 255).
				LineWidth(s.Width).
				LineCap(contentstream.CapRound).
				LineJoin(contentstream.JoinRound)

			first := s.Points[0]
			b.MoveTo(first.X, p.Height-first.Y)
			if len(s.Points) == 1 {
				// zero-length segment with round caps draws a dot
				b.LineTo(first.X, p.Height-first.Y)
			}
			for _, pt := range s.Points[1:] {
				b.LineTo(pt.X, p.Height-pt.Y)
			}
			b.Stroke().Restore()
		}
	}
}

// writeImage renders the page and writes it as an image XObject.
func (e *emitter) writeImage(p *model.Page) (core.IndirectRef, error) {
	img, err := raster.Render(p, raster.Options{DPI: e.opts.RasterDPI, HiddenLayers: e.opts.HiddenLayers})
	if err != nil {
		return core.IndirectRef{}, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data, err := filters.FlateEncodePNGUp(img.Pix, w, 1)
	if err != nil {
		return core.IndirectRef{}, fmt.Errorf("encode image: %w", err)
	}

	stream := &core.Stream{
		Dict: core.Dict{
			"Type":             core.Name("XObject"),
			"Subtype":          core.Name("Image"),
			"Width":            core.Int(w),
			"Height":           core.Int(h),
			"ColorSpace":       core.Name("DeviceGray"),
			"BitsPerComponent": core.Int(8),
			"Filter":           core.Name("FlateDecode"),
			"DecodeParms":      predictorParms(w),
		},
		Data: data,
	}
	return e.w.Add(stream)
}

func predictorParms(columns int) core.Dict {
	d := core.Dict{}
	for k, v := range filters.PNGUpParams(columns, 1) {
		if n, ok := v.(int); ok {
			d[k] = core.Int(n)
		}
	}
	return d
}
