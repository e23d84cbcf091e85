package note

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/notepdf/links"
	"github.com/tsawler/notepdf/model"
	"github.com/tsawler/notepdf/stroke"
)

// Stage names the reader in warnings.
const Stage = "reader"

// Options controls decoding.
type Options struct {
	// Name is the source file name. It supplies the title and capture time
	// when the container has none.
	Name string
	// Exact disables stroke thinning.
	Exact bool
	// Tolerance overrides the thinning distance in device pixels.
	Tolerance float64
}

// File is an opened notebook. Metadata is decoded eagerly; pages are decoded
// on demand by Page. A File is not safe for concurrent use.
type File struct {
	c         *container
	opts      Options
	meta      model.Metadata
	device    Device
	pageAddrs []int64
	extras    *links.Result
	warnings  []model.Warning
}

// Open reads and parses the notebook at path.
func Open(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if opts.Name == "" {
		opts.Name = path
	}
	return Parse(data, opts)
}

// Parse decodes the container metadata in data. The returned File keeps a
// reference to data.
func Parse(data []byte, opts Options) (*File, error) {
	c, footerAddr, err := openContainer(data)
	if err != nil {
		return nil, err
	}

	footer, err := c.tags(footerAddr)
	if err != nil {
		return nil, asHeaderError(err, "footer")
	}

	f := &File{c: c, opts: opts}

	headerAddr, ok := footer.Addr("FILE_FEATURE")
	if !ok {
		return nil, formatErr(CorruptHeader, footerAddr, "footer has no FILE_FEATURE")
	}
	header, err := c.tags(headerAddr)
	if err != nil {
		return nil, asHeaderError(err, "header block")
	}

	if f.pageAddrs, err = pageAddresses(footer, footerAddr); err != nil {
		return nil, err
	}

	f.readMetadata(header)
	f.readExtras(footer)
	return f, nil
}

// asHeaderError keeps range and checksum failures as they are and reports
// anything else as a corrupt header.
func asHeaderError(err error, what string) error {
	if fe, ok := err.(*FormatError); ok {
		if fe.Kind == CorruptHeader && fe.Msg == "bad metadata" {
			fe.Msg = "bad " + what
		}
		return fe
	}
	return &FormatError{Kind: CorruptHeader, Offset: -1, Msg: what, Err: err}
}

// pageAddresses collects PAGE1..PAGEn from the footer. The numbering must be
// contiguous from 1.
func pageAddresses(footer Tags, footerAddr int64) ([]int64, error) {
	byNum := make(map[int]int64)
	for _, tag := range footer {
		if !strings.HasPrefix(tag.Key, "PAGE") {
			continue
		}
		n, err := strconv.Atoi(tag.Key[len("PAGE"):])
		if err != nil {
			continue // PAGESTYLE and friends
		}
		addr, ok := Tags{tag}.Addr(tag.Key)
		if !ok || n < 1 {
			return nil, formatErr(CorruptHeader, footerAddr, "bad page entry %s", tag.Key)
		}
		if _, dup := byNum[n]; dup {
			return nil, formatErr(CorruptHeader, footerAddr, "duplicate page entry %s", tag.Key)
		}
		byNum[n] = addr
	}
	if len(byNum) == 0 {
		return nil, formatErr(CorruptHeader, footerAddr, "no pages")
	}

	addrs := make([]int64, len(byNum))
	for i := range addrs {
		addr, ok := byNum[i+1]
		if !ok {
			return nil, formatErr(CorruptHeader, footerAddr, "page %d missing from footer", i+1)
		}
		addrs[i] = addr
	}
	return addrs, nil
}

func (f *File) warn(format string, args ...interface{}) {
	f.warnings = append(f.warnings, model.DocWarning(Stage, format, args...))
}

func (f *File) readMetadata(header Tags) {
	equipment := header.Value("APPLY_EQUIPMENT")
	dev, ok := LookupDevice(equipment)
	if !ok {
		f.warn("unknown device model %q, assuming %s geometry", equipment, DefaultDevice.Model)
		dev = DefaultDevice
	}
	f.device = dev

	f.meta.Version = f.c.layout.Signature
	f.meta.Device = strings.TrimSpace(equipment)
	if f.meta.Device == "" {
		f.meta.Device = dev.Model
	}
	f.meta.FileID = strings.TrimSpace(header.Value("FILE_ID"))
	f.meta.PageWidth = dev.Width()
	f.meta.PageHeight = dev.Height()
	f.meta.TemplateDPI = dev.DPI

	f.meta.Title = strings.TrimSpace(header.Value("FILE_TITLE"))
	if f.meta.Title == "" && f.opts.Name != "" {
		base := filepath.Base(f.opts.Name)
		f.meta.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	f.meta.Captured = f.captureTime(header)
}

// captureTime prefers the timestamp embedded in FILE_ID, then CREATE_TIME,
// then a YYYYMMDD_HHMMSS file name.
func (f *File) captureTime(header Tags) time.Time {
	if t, ok := parseFileID(f.meta.FileID); ok {
		return t
	}
	if v := strings.TrimSpace(header.Value("CREATE_TIME")); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC()
		}
	}
	if f.opts.Name != "" {
		if t, ok := ParseNameTime(filepath.Base(f.opts.Name)); ok {
			f.warn("no capture time in container, using file name")
			return t
		}
	}
	f.warn("no capture time")
	return time.Time{}
}

// parseFileID reads the timestamp in an id of the form F<yyyymmddhhmmss>...
func parseFileID(id string) (time.Time, bool) {
	if len(id) < 15 || id[0] != 'F' {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102150405", id[1:15], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseNameTime parses a YYYYMMDD_HHMMSS prefix of a file name.
func ParseNameTime(name string) (time.Time, bool) {
	if len(name) < 15 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102_150405", name[:15], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// readExtras resolves the link, title and keyword blocks named in the footer.
func (f *File) readExtras(footer Tags) {
	var linkRecs, titleRecs, keywordRecs []links.Record
	for _, tag := range footer {
		switch {
		case strings.HasPrefix(tag.Key, "LINKO_"):
			linkRecs = append(linkRecs, f.record(tag, "LINKO_"))
		case strings.HasPrefix(tag.Key, "TITLE_"):
			titleRecs = append(titleRecs, f.record(tag, "TITLE_"))
		case strings.HasPrefix(tag.Key, "KEYWORD_"):
			keywordRecs = append(keywordRecs, f.record(tag, "KEYWORD_"))
		}
	}

	scale := stroke.PointsPerPixel(f.device.DPI)
	f.extras = links.Extract(linkRecs, titleRecs, keywordRecs, links.Geometry{
		Width:     f.device.Width(),
		Height:    f.device.Height(),
		Scale:     scale,
		PageCount: len(f.pageAddrs),
		FileID:    f.meta.FileID,
	})
	f.warnings = append(f.warnings, f.extras.Warnings...)
	f.meta.Keywords = f.extras.KeywordTexts()
}

// record loads the block behind a footer entry. The four digits after the
// prefix are the 1-based page number.
func (f *File) record(tag Tag, prefix string) links.Record {
	rec := links.Record{Key: tag.Key, Page: -1}
	digits := tag.Key[len(prefix):]
	if len(digits) >= 4 {
		if n, err := strconv.Atoi(digits[:4]); err == nil {
			rec.Page = n - 1
		}
	}

	addr, ok := Tags{tag}.Addr(tag.Key)
	if !ok {
		rec.Err = fmt.Errorf("bad block address %q", tag.Value)
		return rec
	}
	fields, err := f.c.tags(addr)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.Fields = links.Fields(fields.Map())
	return rec
}

// Metadata returns the document metadata.
func (f *File) Metadata() model.Metadata {
	m := f.meta
	m.Keywords = append([]string(nil), f.meta.Keywords...)
	return m
}

// Layout returns the container layout.
func (f *File) Layout() Layout {
	return f.c.layout
}

// Device returns the page geometry in use.
func (f *File) Device() Device {
	return f.device
}

// PageCount returns the number of pages.
func (f *File) PageCount() int {
	return len(f.pageAddrs)
}

// Warnings returns the warnings collected so far, including those from
// pages decoded by Page.
func (f *File) Warnings() []model.Warning {
	return append([]model.Warning(nil), f.warnings...)
}

// Document decodes every page into a Document.
func (f *File) Document() (*model.Document, error) {
	doc := model.NewDocument()
	doc.Metadata = f.Metadata()
	for i := range f.pageAddrs {
		p, err := f.Page(i)
		if err != nil {
			return nil, err
		}
		doc.AddPage(p)
	}
	return doc, nil
}
