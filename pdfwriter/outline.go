package pdfwriter

import (
	"github.com/tsawler/notepdf/core"
	"github.com/tsawler/notepdf/model"
)

type outlineItem struct {
	title    model.Title
	ref      core.IndirectRef
	parent   *outlineItem
	children []*outlineItem
}

// buildOutline nests titles by level. A title becomes the child of the
// nearest preceding title with a lower level.
func buildOutline(titles []model.Title) *outlineItem {
	root := &outlineItem{}
	stack := []*outlineItem{root}
	for _, t := range titles {
		if t.Level < 1 {
			t.Level = 1
		}
		for len(stack) > 1 && stack[len(stack)-1].title.Level >= t.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		item := &outlineItem{title: t, parent: parent}
		parent.children = append(parent.children, item)
		stack = append(stack, item)
	}
	return root
}

// count returns the number of descendants; every item is open.
func (o *outlineItem) count() int {
	n := len(o.children)
	for _, c := range o.children {
		n += c.count()
	}
	return n
}

func (e *emitter) allocOutline(o *outlineItem) {
	o.ref = e.w.Alloc()
	for _, c := range o.children {
		e.allocOutline(c)
	}
}

// writeOutline writes the outline tree and returns the /Outlines reference.
func (e *emitter) writeOutline() (core.IndirectRef, error) {
	root := buildOutline(e.titles)
	e.allocOutline(root)

	dict := core.Dict{"Type": core.Name("Outlines"), "Count": core.Int(root.count())}
	linkChildren(dict, root)
	if err := e.w.WriteObject(root.ref, dict); err != nil {
		return core.IndirectRef{}, err
	}
	for _, c := range root.children {
		if err := e.writeOutlineItem(c, root); err != nil {
			return core.IndirectRef{}, err
		}
	}
	return root.ref, nil
}

func (e *emitter) writeOutlineItem(o, parent *outlineItem) error {
	dict := core.Dict{
		"Title":  core.TextString(o.title.Label()),
		"Parent": parent.ref,
		"Dest":   e.titleDest(o.title),
	}
	for i, sib := range parent.children {
		if sib != o {
			continue
		}
		if i > 0 {
			dict["Prev"] = parent.children[i-1].ref
		}
		if i < len(parent.children)-1 {
			dict["Next"] = parent.children[i+1].ref
		}
	}
	if len(o.children) > 0 {
		linkChildren(dict, o)
		dict["Count"] = core.Int(o.count())
	}
	if err := e.w.WriteObject(o.ref, dict); err != nil {
		return err
	}
	for _, c := range o.children {
		if err := e.writeOutlineItem(c, o); err != nil {
			return err
		}
	}
	return nil
}

func linkChildren(dict core.Dict, o *outlineItem) {
	if len(o.children) == 0 {
		return
	}
	dict["First"] = o.children[0].ref
	dict["Last"] = o.children[len(o.children)-1].ref
}

// titleDest scrolls to the title's top edge, or the page top when the title
// has no area.
func (e *emitter) titleDest(t model.Title) core.Array {
	page := t.Page
	if page < 0 || page >= len(e.pageRefs) {
		page = 0
	}
	top := e.heights[page]
	if t.Rect.IsValid() {
		top -= t.Rect.Top()
	}
	return core.Array{e.pageRefs[page], core.Name("XYZ"), core.Real(t.Rect.Left()), core.Real(top), core.Null{}}
}
