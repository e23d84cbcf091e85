// Package links resolves hyperlink, title and keyword records into
// page-relative model values.
//
// The note reader hands over the decoded metadata of every link, title and
// keyword block together with the page geometry. Records that cannot be
// resolved are dropped with a warning; nothing here fails a conversion.
package links

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/notepdf/model"
)

// Stage names this component in warnings.
const Stage = "links"

// Link record types.
const (
	TypePage = 0
	TypeFile = 1
	TypeWeb  = 4
)

// Fields holds the key/value metadata of one record block.
type Fields map[string]string

// Record is one link, title or keyword block as found in the container.
type Record struct {
	Key    string // footer key, used as the sort key
	Page   int    // 0-based page the record is drawn on
	Fields Fields
	Err    error // non-nil when the block itself could not be read
}

// Geometry describes the document the records belong to.
type Geometry struct {
	Width     float64 // page width in points
	Height    float64 // page height in points
	Scale     float64 // points per device pixel
	PageCount int
	FileID    string
}

// Result holds resolved values indexed by page.
type Result struct {
	Links    [][]model.Link
	Titles   [][]model.Title
	Keywords [][]model.Keyword
	Warnings []model.Warning
}

// KeywordTexts returns the distinct keyword strings in document order.
func (r *Result) KeywordTexts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, page := range r.Keywords {
		for _, k := range page {
			if !seen[k.Text] {
				seen[k.Text] = true
				out = append(out, k.Text)
			}
		}
	}
	return out
}

// Extract resolves all records. Record slices may be in any order; output
// is sorted by footer key within each page.
func Extract(linkRecs, titleRecs, keywordRecs []Record, g Geometry) *Result {
	res := &Result{
		Links:    make([][]model.Link, g.PageCount),
		Titles:   make([][]model.Title, g.PageCount),
		Keywords: make([][]model.Keyword, g.PageCount),
	}

	for _, rec := range sorted(linkRecs) {
		if !res.usable(rec, g, "link") {
			continue
		}
		link, err := ResolveLink(rec, g)
		if err != nil {
			res.warn(rec.Page, "dropped link %s: %v", rec.Key, err)
			continue
		}
		res.Links[rec.Page] = append(res.Links[rec.Page], link)
	}

	for _, rec := range sorted(titleRecs) {
		if !res.usable(rec, g, "title") {
			continue
		}
		title, err := resolveTitle(rec, g)
		if err != nil {
			res.warn(rec.Page, "title %s: %v", rec.Key, err)
		}
		res.Titles[rec.Page] = append(res.Titles[rec.Page], title)
	}

	for _, rec := range sorted(keywordRecs) {
		if !res.usable(rec, g, "keyword") {
			continue
		}
		kw, err := resolveKeyword(rec, g)
		if err != nil {
			res.warn(rec.Page, "dropped keyword %s: %v", rec.Key, err)
			continue
		}
		res.Keywords[rec.Page] = append(res.Keywords[rec.Page], kw)
	}

	return res
}

func (r *Result) usable(rec Record, g Geometry, kind string) bool {
	if rec.Page < 0 || rec.Page >= g.PageCount {
		r.Warnings = append(r.Warnings, model.DocWarning(Stage, "dropped %s %s: page %d out of range", kind, rec.Key, rec.Page+1))
		return false
	}
	if rec.Err != nil {
		r.warn(rec.Page, "dropped %s %s: %v", kind, rec.Key, rec.Err)
		return false
	}
	return true
}

func (r *Result) warn(page int, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, model.PageWarning(Stage, page, format, args...))
}

func sorted(recs []Record) []Record {
	out := append([]Record(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ResolveLink turns one link record into a model link.
func ResolveLink(rec Record, g Geometry) (model.Link, error) {
	rect, err := pageRect(rec.Fields["LINKRECT"], g)
	if err != nil {
		return model.Link{}, err
	}

	typ, err := strconv.Atoi(strings.TrimSpace(rec.Fields["LINKTYPE"]))
	if err != nil {
		return model.Link{}, fmt.Errorf("bad LINKTYPE %q", rec.Fields["LINKTYPE"])
	}

	switch typ {
	case TypeWeb:
		raw, err := decodeText(rec.Fields["LINKFILE"])
		if err != nil {
			return model.Link{}, err
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || !u.IsAbs() {
			return model.Link{}, fmt.Errorf("not an absolute URL: %q", raw)
		}
		return model.Link{Rect: rect, Target: model.ExternalURI{URI: u.String()}}, nil

	case TypePage:
		fileID := rec.Fields["LINKFILEID"]
		if fileID == "" || fileID == "none" || fileID == g.FileID {
			page, err := targetPage(rec.Fields["OBJPAGE"])
			if err != nil {
				return model.Link{}, err
			}
			if page >= g.PageCount {
				return model.Link{}, fmt.Errorf("target page %d out of range", page+1)
			}
			return model.Link{Rect: rect, Target: model.InternalPage{Index: page}}, nil
		}
		return fileRef(rec, rect)

	case TypeFile:
		return fileRef(rec, rect)

	default:
		return model.Link{}, fmt.Errorf("unsupported link type %d", typ)
	}
}

func fileRef(rec Record, rect model.BBox) (model.Link, error) {
	path, err := decodeText(rec.Fields["LINKFILE"])
	if err != nil {
		return model.Link{}, err
	}
	if path == "" {
		return model.Link{}, fmt.Errorf("empty target file")
	}
	page := 0
	if rec.Fields["OBJPAGE"] != "" {
		if page, err = targetPage(rec.Fields["OBJPAGE"]); err != nil {
			return model.Link{}, err
		}
	}
	return model.Link{Rect: rect, Target: model.DeviceFileRef{Path: path, Page: page}}, nil
}

// targetPage converts a 1-based page field to a 0-based index.
func targetPage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("bad target page %q", s)
	}
	return n - 1, nil
}

func resolveTitle(rec Record, g Geometry) (model.Title, error) {
	t := model.Title{Page: rec.Page, Level: 1}
	if lv, err := strconv.Atoi(strings.TrimSpace(rec.Fields["TITLELEVEL"])); err == nil && lv > 0 {
		t.Level = lv
	}
	if raw, ok := rec.Fields["TITLETEXT"]; ok {
		text, err := decodeText(raw)
		if err != nil {
			return t, err
		}
		t.Text = text
	}
	rect, err := pageRect(rec.Fields["TITLERECT"], g)
	if err != nil {
		return t, err
	}
	t.Rect = rect
	return t, nil
}

func resolveKeyword(rec Record, g Geometry) (model.Keyword, error) {
	text, err := decodeText(rec.Fields["KEYWORD"])
	if err != nil {
		return model.Keyword{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Keyword{}, fmt.Errorf("empty keyword")
	}
	kw := model.Keyword{Page: rec.Page, Text: text}
	if raw := rec.Fields["KEYWORDRECT"]; raw != "" {
		if rect, err := pageRect(raw, g); err == nil {
			kw.Rect = rect
		}
	}
	return kw, nil
}

// pageRect parses a device-pixel rectangle and converts it to points. The
// rectangle must have positive size and lie within the page.
func pageRect(s string, g Geometry) (model.BBox, error) {
	px, err := ParseRect(s)
	if err != nil {
		return model.BBox{}, err
	}
	rect := px.Scale(g.Scale)
	if !rect.IsValid() {
		return model.BBox{}, fmt.Errorf("empty rectangle %q", s)
	}
	// Allow for rounding when the rectangle touches the page edge.
	const eps = 1e-6
	if rect.X < -eps || rect.Y < -eps || rect.Right() > g.Width+eps || rect.Bottom() > g.Height+eps {
		return model.BBox{}, fmt.Errorf("rectangle %q outside page", s)
	}
	return rect, nil
}

// ParseRect parses "x,y,w,h" in device pixels.
func ParseRect(s string) (model.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.BBox{}, fmt.Errorf("bad rectangle %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return model.BBox{}, fmt.Errorf("bad rectangle %q", s)
		}
		v[i] = float64(n)
	}
	return model.NewBBox(v[0], v[1], v[2], v[3]), nil
}

func decodeText(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("bad base64 text: %w", err)
	}
	return string(b), nil
}

// EncodeText is the inverse of the base64 text encoding used by record fields.
func EncodeText(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
