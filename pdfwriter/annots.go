package pdfwriter

import (
	"path"

	"github.com/tsawler/notepdf/core"
	"github.com/tsawler/notepdf/format"
	"github.com/tsawler/notepdf/model"
)

// writeAnnotations writes a /Link annotation per page link and returns the
// page's /Annots array.
func (e *emitter) writeAnnotations(i int, p *model.Page) (core.Array, error) {
	var annots core.Array
	for _, l := range p.Links {
		action, ok := e.linkAction(i, l.Target)
		if !ok {
			continue
		}
		annot := core.Dict{
			"Type":    core.Name("Annot"),
			"Subtype": core.Name("Link"),
			"Rect":    pdfRect(p, l.Rect),
			"Border":  core.Array{core.Int(0), core.Int(0), core.Int(0)},
		}
		for k, v := range action {
			annot[k] = v
		}
		ref, err := e.w.Add(annot)
		if err != nil {
			return nil, err
		}
		annots = append(annots, ref)
		e.links++
	}
	return annots, nil
}

// linkAction returns the /Dest or /A entry for a link target.
func (e *emitter) linkAction(page int, t model.LinkTarget) (core.Dict, bool) {
	switch t := t.(type) {
	case model.InternalPage:
		if t.Index < 0 || t.Index >= len(e.pageRefs) {
			e.warn(page, "link to missing %s dropped", t)
			return nil, false
		}
		return core.Dict{"Dest": core.Array{e.pageRefs[t.Index], core.Name("Fit")}}, true

	case model.ExternalURI:
		return core.Dict{"A": core.Dict{
			"S":   core.Name("URI"),
			"URI": core.String(t.URI),
		}}, true

	case model.DeviceFileRef:
		return core.Dict{"A": core.Dict{
			"S": core.Name("GoToR"),
			"F": core.TextString(RemotePath(t.Path)),
			"D": core.Array{core.Int(t.Page), core.Name("Fit")},
		}}, true

	default:
		e.warn(page, "unsupported link target %T dropped", t)
		return nil, false
	}
}

// RemotePath maps a notebook path on the device to the file name of its
// converted PDF, which is expected next to the linking document.
func RemotePath(devicePath string) string {
	return format.SwapExtension(path.Base(devicePath), format.PDF)
}

// pdfRect converts a top-left page box to a PDF rectangle.
func pdfRect(p *model.Page, b model.BBox) core.Array {
	return core.Rect(b.Left(), p.Height-b.Bottom(), b.Right(), p.Height-b.Top())
}
