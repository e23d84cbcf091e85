package pdfwriter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/notepdf/core"
	"github.com/tsawler/notepdf/model"
)

// ErrNoPages is returned for a source without pages.
var ErrNoPages = errors.New("document has no pages")

// Result summarizes an emission.
type Result struct {
	Pages    int
	Links    int
	Warnings []model.Warning
}

type emitter struct {
	w    *core.Writer
	opts Options
	meta model.Metadata

	pagesRef core.IndirectRef
	pageRefs []core.IndirectRef
	heights  []float64
	fontRef  core.IndirectRef
	titles   []model.Title
	links    int
	warnings []model.Warning
}

// Write emits src as PDF to w. Pages are requested from src in order and
// ctx is checked before each one.
func Write(ctx context.Context, w io.Writer, src model.PageSource, opts Options) (*Result, error) {
	n := src.PageCount()
	if n == 0 {
		return nil, ErrNoPages
	}

	e := &emitter{
		w:       core.NewWriter(w),
		opts:    opts.withDefaults(),
		meta:    src.Metadata(),
		heights: make([]float64, n),
	}
	catalogRef := e.w.Alloc()
	e.pagesRef = e.w.Alloc()
	e.pageRefs = make([]core.IndirectRef, n)
	for i := range e.pageRefs {
		e.pageRefs[i] = e.w.Alloc()
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := src.Page(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if err := e.writePage(ctx, i, p); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	if err := e.finish(catalogRef); err != nil {
		return nil, err
	}
	return &Result{Pages: n, Links: e.links, Warnings: e.warnings}, nil
}

// finish writes the shared objects and the trailer.
func (e *emitter) finish(catalogRef core.IndirectRef) error {
	if !e.fontRef.IsZero() {
		if err := e.w.WriteObject(e.fontRef, helvetica()); err != nil {
			return err
		}
	}

	kids := make(core.Array, len(e.pageRefs))
	for i, ref := range e.pageRefs {
		kids[i] = ref
	}
	pages := core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  kids,
		"Count": core.Int(len(e.pageRefs)),
	}
	if err := e.w.WriteObject(e.pagesRef, pages); err != nil {
		return err
	}

	catalog := core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": e.pagesRef,
	}
	if len(e.titles) > 0 {
		outlines, err := e.writeOutline()
		if err != nil {
			return fmt.Errorf("outline: %w", err)
		}
		catalog["Outlines"] = outlines
		catalog["PageMode"] = core.Name("UseOutlines")
	}
	if err := e.w.WriteObject(catalogRef, catalog); err != nil {
		return err
	}

	infoRef, err := e.w.Add(e.info())
	if err != nil {
		return err
	}

	id := core.String(e.w.Sum()[:16])
	return e.w.Close(core.Dict{
		"Root": catalogRef,
		"Info": infoRef,
		"ID":   core.Array{id, id},
	})
}

func (e *emitter) info() core.Dict {
	info := core.Dict{
		"Creator":  core.TextString(e.opts.Creator),
		"Producer": core.TextString(e.opts.Producer),
	}
	if e.meta.Title != "" {
		info["Title"] = core.TextString(e.meta.Title)
	}
	if e.meta.HasCaptureTime() {
		info["CreationDate"] = core.Date(e.meta.Captured)
	}
	if len(e.meta.Keywords) > 0 {
		info["Keywords"] = core.TextString(strings.Join(e.meta.Keywords, ", "))
	}
	if e.meta.FileID != "" {
		info["NoteFileID"] = core.TextString(e.meta.FileID)
	}
	if e.opts.SourceDigest != "" {
		info["SourceDigest"] = core.String(e.opts.SourceDigest)
	}
	return info
}

func (e *emitter) warn(page int, format string, args ...interface{}) {
	e.warnings = append(e.warnings, model.PageWarning(Stage, page, format, args...))
}

// WriteFile emits src to path. Output goes to a temporary file in the same
// directory which is renamed over path only when emission succeeds.
func WriteFile(ctx context.Context, path string, src model.PageSource, opts Options) (*Result, error) {
	var res *Result
	err := AtomicWrite(path, func(w io.Writer) error {
		var err error
		res, err = Write(ctx, w, src, opts)
		return err
	})
	return res, err
}

// AtomicWrite creates path by writing a temporary sibling and renaming it.
// Nothing is left behind when write fails.
func AtomicWrite(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
