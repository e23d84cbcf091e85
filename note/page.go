package note

import (
	"fmt"
	"strings"

	"github.com/tsawler/notepdf/model"
	"github.com/tsawler/notepdf/stroke"
)

// DefaultLayerSeq is the layer order assumed when a page omits LAYERSEQ,
// top-most first.
var DefaultLayerSeq = []string{"MAINLAYER", "LAYER1", "LAYER2", "LAYER3", "BGLAYER"}

// Page decodes page i (0-based), including its layers and strokes.
func (f *File) Page(i int) (*model.Page, error) {
	if i < 0 || i >= len(f.pageAddrs) {
		return nil, &model.PageRangeError{Index: i, Count: len(f.pageAddrs)}
	}
	addr := f.pageAddrs[i]
	tags, err := f.c.tags(addr)
	if err != nil {
		return nil, err
	}

	p := model.NewPage(f.device.Width(), f.device.Height())
	p.Index = i
	p.Template = model.Template{
		Style:  tags.Value("PAGESTYLE"),
		DPI:    f.device.DPI,
		PixelW: f.device.PixelW,
		PixelH: f.device.PixelH,
	}

	if f.c.layout.Layered {
		err = f.readLayers(p, tags)
	} else {
		err = f.readLegacy(p, tags)
	}
	if err != nil {
		return nil, err
	}

	p.Links = f.extras.Links[i]
	p.Titles = f.extras.Titles[i]
	p.Keywords = f.extras.Keywords[i]
	return p, nil
}

// readLegacy handles the single-layer layout, where the page points straight
// at its stroke block.
func (f *File) readLegacy(p *model.Page, tags Tags) error {
	layer := &model.Layer{Name: "MAINLAYER", Visible: true}
	if addr, ok := tags.Addr("TOTALPATH"); ok {
		strokes, err := f.strokes(addr)
		if err != nil {
			return err
		}
		layer.Strokes = strokes
	}
	p.AddLayer(layer)
	return nil
}

// readLayers walks LAYERSEQ bottom-up so z-order 0 is the bottom layer.
func (f *File) readLayers(p *model.Page, tags Tags) error {
	seq := DefaultLayerSeq
	if v := strings.TrimSpace(tags.Value("LAYERSEQ")); v != "" {
		seq = strings.Split(v, ",")
	}

	seen := make(map[string]bool)
	for j := len(seq) - 1; j >= 0; j-- {
		name := strings.TrimSpace(seq[j])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		addr, ok := tags.Addr(name)
		if !ok {
			continue
		}
		layer, err := f.layer(addr, name)
		if err != nil {
			return err
		}
		p.AddLayer(layer)
	}
	return nil
}

func (f *File) layer(addr int64, name string) (*model.Layer, error) {
	tags, err := f.c.tags(addr)
	if err != nil {
		return nil, err
	}

	layer := &model.Layer{Name: name, Visible: true}
	if n := strings.TrimSpace(tags.Value("LAYERNAME")); n != "" {
		layer.Name = n
	}
	if v, ok := tags.Get("LAYERVISIBLE"); ok && strings.TrimSpace(v) == "0" {
		layer.Visible = false
	}

	if pathAddr, ok := tags.Addr("LAYERPATH"); ok {
		strokes, err := f.strokes(pathAddr)
		if err != nil {
			return nil, err
		}
		layer.Strokes = strokes
	}
	return layer, nil
}

// strokes decodes and reconstructs the stroke block at addr.
func (f *File) strokes(addr int64) ([]model.Stroke, error) {
	payload, err := f.c.block(addr)
	if err != nil {
		return nil, err
	}
	raw, err := stroke.Decode(payload, f.c.layout.Pressure)
	if err != nil {
		return nil, &FormatError{Kind: CorruptRecord, Offset: addr, Err: err}
	}
	return stroke.Reconstruct(raw, stroke.Options{
		DPI:       f.device.DPI,
		Pressure:  f.c.layout.Pressure,
		Exact:     f.opts.Exact,
		Tolerance: f.opts.Tolerance,
	}), nil
}

// String describes the file for logs.
func (f *File) String() string {
	return fmt.Sprintf("%s (%s, %d pages)", f.meta.Title, f.c.layout.Signature, len(f.pageAddrs))
}
