// Package notetest builds synthetic notebook containers for tests.
package notetest

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/tsawler/notepdf/links"
	"github.com/tsawler/notepdf/stroke"
)

// Container signatures, mirrored here so tests do not need the reader.
const (
	Legacy      = "SN_FILE_VER_20200001"
	Layered     = "SN_FILE_VER_20210010"
	Checksummed = "SN_FILE_VER_20230015"
)

// Layer is one page layer. Hidden layers are written with LAYERVISIBLE 0.
type Layer struct {
	Name    string
	Hidden  bool
	Strokes []stroke.RawStroke
}

// Page is one page. Layers are listed top-most first, as in LAYERSEQ.
// When Layers is empty, Strokes are written to MAINLAYER (or TOTALPATH in
// the legacy layout).
type Page struct {
	Style   string
	Strokes []stroke.RawStroke
	Layers  []Layer
	// RawStrokes, when set, replaces the encoded stroke block of the page.
	RawStrokes []byte
}

// Link is an outgoing link on a page (1-based).
type Link struct {
	Page    int
	Type    int
	Rect    [4]int
	File    string
	FileID  string
	ObjPage int
}

// Title is an outline title on a page (1-based).
type Title struct {
	Page  int
	Level int
	Rect  [4]int
	Text  string
}

// Keyword is a keyword on a page (1-based).
type Keyword struct {
	Page int
	Text string
	Rect [4]int
}

// Notebook describes a container to build.
type Notebook struct {
	Signature string // defaults to Checksummed
	Device    string // defaults to A5X
	FileID    string
	Title     string
	// Header overrides every header tag when non-nil.
	Header   map[string]string
	Pages    []Page
	Links    []Link
	Titles   []Title
	Keywords []Keyword
}

// Built is an encoded container with the address of every block by name:
// "FOOTER", "HEADER", "PAGE1", "PAGE1/MAINLAYER", "PAGE1/MAINLAYER/PATH",
// and the footer key of each link, title and keyword.
type Built struct {
	Data  []byte
	Addrs map[string]int
}

// Stroke returns a horizontal stroke of n points starting at (x, y).
func Stroke(x, y, n int) stroke.RawStroke {
	pts := make([]stroke.RawPoint, n)
	for i := range pts {
		pts[i] = stroke.RawPoint{X: x + i*4, Y: y, P: 2048}
	}
	return stroke.RawStroke{Width: 300, Points: pts}
}

// Pages returns n pages with one stroke each.
func Pages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Strokes: []stroke.RawStroke{Stroke(100, 100+i*50, 20)}}
	}
	return pages
}

type builder struct {
	buf      []byte
	checksum bool
	addrs    map[string]int
}

func (b *builder) block(name string, payload []byte) int {
	addr := len(b.buf)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(payload)))
	b.buf = append(b.buf, payload...)
	if b.checksum {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, crc32.ChecksumIEEE(payload))
	}
	if name != "" {
		b.addrs[name] = addr
	}
	return addr
}

type kv struct{ k, v string }

func tags(pairs ...kv) []byte {
	var s strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&s, "<%s:%s>", p.k, p.v)
	}
	return []byte(s.String())
}

func rect(r [4]int) string {
	return fmt.Sprintf("%d,%d,%d,%d", r[0], r[1], r[2], r[3])
}

// Build encodes the notebook.
func (n Notebook) Build() Built {
	sig := n.Signature
	if sig == "" {
		sig = Checksummed
	}
	legacy := sig == Legacy
	pressure := !legacy

	b := &builder{checksum: sig == Checksummed, addrs: make(map[string]int)}
	b.buf = append(b.buf, "note"...)
	b.buf = append(b.buf, fmt.Sprintf("%-20s", sig)[:20]...)

	var footer []kv
	for i, pg := range n.Pages {
		name := fmt.Sprintf("PAGE%d", i+1)
		pageTags := []kv{{"PAGESTYLE", orDefault(pg.Style, "style_white")}}

		layers := pg.Layers
		if len(layers) == 0 {
			layers = []Layer{{Name: "MAINLAYER", Strokes: pg.Strokes}}
		}

		if legacy {
			pathAddr := b.block(name+"/MAINLAYER/PATH", b.strokeBlock(pg.RawStrokes, layers[0].Strokes, false))
			pageTags = append(pageTags, kv{"TOTALPATH", fmt.Sprint(pathAddr)})
		} else {
			seq := make([]string, len(layers))
			for j, l := range layers {
				seq[j] = l.Name
				raw := []byte(nil)
				if j == 0 {
					raw = pg.RawStrokes
				}
				pathAddr := b.block(name+"/"+l.Name+"/PATH", b.strokeBlock(raw, l.Strokes, pressure))
				visible := "1"
				if l.Hidden {
					visible = "0"
				}
				layerAddr := b.block(name+"/"+l.Name, tags(
					kv{"LAYERNAME", l.Name},
					kv{"LAYERTYPE", "NOTE"},
					kv{"LAYERPROTOCOL", "RATTA_RLE"},
					kv{"LAYERVISIBLE", visible},
					kv{"LAYERPATH", fmt.Sprint(pathAddr)},
					kv{"LAYERBITMAP", "0"},
				))
				pageTags = append(pageTags, kv{l.Name, fmt.Sprint(layerAddr)})
			}
			pageTags = append(pageTags, kv{"LAYERSEQ", strings.Join(seq, ",")})
		}
		footer = append(footer, kv{name, fmt.Sprint(b.block(name, tags(pageTags...)))})
	}

	for i, l := range n.Links {
		key := fmt.Sprintf("LINKO_%04d%04d", l.Page, i+1)
		fields := []kv{
			{"LINKTYPE", fmt.Sprint(l.Type)},
			{"LINKINOUT", "0"},
			{"LINKRECT", rect(l.Rect)},
			{"LINKFILE", links.EncodeText(l.File)},
			{"LINKFILEID", orDefault(l.FileID, "none")},
		}
		if l.ObjPage > 0 {
			fields = append(fields, kv{"OBJPAGE", fmt.Sprint(l.ObjPage)})
		}
		footer = append(footer, kv{key, fmt.Sprint(b.block(key, tags(fields...)))})
	}

	for i, t := range n.Titles {
		key := fmt.Sprintf("TITLE_%04d%04d", t.Page, i+1)
		fields := []kv{{"TITLELEVEL", fmt.Sprint(max(t.Level, 1))}, {"TITLERECT", rect(t.Rect)}}
		if t.Text != "" {
			fields = append(fields, kv{"TITLETEXT", links.EncodeText(t.Text)})
		}
		footer = append(footer, kv{key, fmt.Sprint(b.block(key, tags(fields...)))})
	}

	for i, k := range n.Keywords {
		key := fmt.Sprintf("KEYWORD_%04d%04d", k.Page, i+1)
		footer = append(footer, kv{key, fmt.Sprint(b.block(key, tags(
			kv{"KEYWORD", links.EncodeText(k.Text)},
			kv{"KEYWORDRECT", rect(k.Rect)},
		)))})
	}

	header := n.Header
	if header == nil {
		header = map[string]string{
			"FILE_TYPE":       "NOTE",
			"APPLY_EQUIPMENT": orDefault(n.Device, "A5X"),
			"FILE_ID":         n.FileID,
		}
		if n.Title != "" {
			header["FILE_TITLE"] = n.Title
		}
	}
	headerAddr := b.block("HEADER", tags(sortedPairs(header)...))

	footer = append([]kv{{"FILE_FEATURE", fmt.Sprint(headerAddr)}}, footer...)
	footerAddr := b.block("FOOTER", tags(footer...))

	b.buf = append(b.buf, "tail"...)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(footerAddr))
	return Built{Data: b.buf, Addrs: b.addrs}
}

// Bytes encodes the notebook.
func (n Notebook) Bytes() []byte {
	return n.Build().Data
}

func (b *builder) strokeBlock(raw []byte, strokes []stroke.RawStroke, pressure bool) []byte {
	if raw != nil {
		return raw
	}
	data, err := stroke.Encode(strokes, pressure)
	if err != nil {
		panic(fmt.Sprintf("notetest: %v", err))
	}
	return data
}

func sortedPairs(m map[string]string) []kv {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kv, len(keys))
	for i, k := range keys {
		out[i] = kv{k, m[k]}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FileID returns a FILE_ID carrying the given timestamp (yyyymmddhhmmss).
func FileID(stamp string) string {
	return "F" + stamp + "000001"
}
