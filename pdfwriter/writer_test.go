package pdfwriter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/notepdf/core"
	"github.com/tsawler/notepdf/model"
	"github.com/tsawler/notepdf/ocr"
)

func TestWriteVector(t *testing.T) {
	data, res := write(t, testDoc(1).AsSource(), Options{})
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
	if n := checkPDF(t, data); n != 1 {
		t.Errorf("page count = %d, want 1", n)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.7\n")) {
		t.Error("missing PDF header")
	}
	if !bytes.Contains(data, []byte("/MediaBox [0 0 200 300]")) {
		t.Error("missing MediaBox")
	}

	ops := contentOps(t, data)
	got := strings.Join(operators(ops), " ")
	want := "q G w J j m l l S Q q G w J j m l S Q"
	if got != want {
		t.Fatalf("operators = %q, want %q", got, want)
	}

	tests := []struct {
		index int
		want  []float64
	}{
		{1, []float64{0}},         // black
		{2, []float64{1.5}},       // width
		{3, []float64{1}},         // round cap
		{5, []float64{10, 280}},   // y flipped
		{7, []float64{50, 240}},   // last point
		{11, []float64{0.6157}},   // gray
		{15, []float64{100, 200}}, // dot start
		{16, []float64{100, 200}}, // dot end
	}
	for _, tt := range tests {
		nums, ok := ops[tt.index].Floats()
		if !ok || len(nums) != len(tt.want) {
			t.Errorf("op %d (%s) operands = %v", tt.index, ops[tt.index].Operator, ops[tt.index].Operands)
			continue
		}
		for i := range nums {
			if nums[i] != tt.want[i] {
				t.Errorf("op %d (%s) operand %d = %v, want %v", tt.index, ops[tt.index].Operator, i, nums[i], tt.want[i])
			}
		}
	}
}

func TestWriteRaster(t *testing.T) {
	data, res := write(t, testDoc(2).AsSource(), Options{Mode: ModeRaster, RasterDPI: 150})
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}
	if n := checkPDF(t, data); n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}
	if !bytes.Contains(data, []byte("/Width 417")) || !bytes.Contains(data, []byte("/Height 625")) {
		t.Error("unexpected image size")
	}

	images := 0
	for _, s := range streams(t, data) {
		if !s.Dict.Has("Subtype") {
			continue
		}
		images++
		s.Dict["DecodeParms"] = core.Dict{
			"Predictor":        core.Int(12),
			"Columns":          core.Int(417),
			"Colors":           core.Int(1),
			"BitsPerComponent": core.Int(8),
		}
		pix, err := s.Decode()
		if err != nil {
			t.Fatalf("image decode: %v", err)
		}
		if len(pix) != 417*625 {
			t.Errorf("image has %d bytes, want %d", len(pix), 417*625)
		}
		if bytes.IndexByte(pix, 0) < 0 {
			t.Error("image has no black pixels")
		}
	}
	if images != 2 {
		t.Errorf("found %d images, want 2", images)
	}

	got := strings.Join(operators(contentOps(t, data)), " ")
	if got != "q cm Do Q q cm Do Q" {
		t.Errorf("operators = %q", got)
	}
}

func TestVectorAndRasterPageCountsMatch(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		vector, _ := write(t, testDoc(n).AsSource(), Options{})
		rasterized, _ := write(t, testDoc(n).AsSource(), Options{Mode: ModeRaster, RasterDPI: 36})
		if v, r := checkPDF(t, vector), checkPDF(t, rasterized); v != n || r != n {
			t.Errorf("%d pages: vector %d, raster %d", n, v, r)
		}
	}
}

func linkedDoc() *model.Document {
	doc := testDoc(2)
	rect := model.BBox{X: 10, Y: 20, Width: 30, Height: 10}
	doc.Pages[0].Links = []model.Link{
		{Rect: rect, Target: model.InternalPage{Index: 1}},
		{Rect: rect, Target: model.ExternalURI{URI: "https://example.com/a"}},
		{Rect: rect, Target: model.DeviceFileRef{Path: "Note/Work/Plan.note", Page: 2}},
		{Rect: rect, Target: model.InternalPage{Index: 5}},
	}
	return doc
}

func TestLinks(t *testing.T) {
	data, res := write(t, linkedDoc().AsSource(), Options{})
	checkPDF(t, data)

	if res.Links != 3 {
		t.Errorf("Links = %d, want 3", res.Links)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "page 6") {
		t.Errorf("Warnings = %v", res.Warnings)
	}

	for _, want := range []string{
		"/Rect [10 270 40 280]",
		"/Dest [4 0 R /Fit]",
		"/S /URI /URI (https://example.com/a)",
		"/D [2 /Fit] /F (Plan.pdf) /S /GoToR",
		"/Annots [",
	} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if n := bytes.Count(data, []byte("/Subtype /Link")); n != 3 {
		t.Errorf("%d link annotations, want 3", n)
	}
}

func TestOmitLinks(t *testing.T) {
	data, res := write(t, linkedDoc().AsSource(), Options{OmitLinks: true})
	if n := checkPDF(t, data); n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}
	if res.Links != 0 || len(res.Warnings) != 0 {
		t.Errorf("Links = %d, Warnings = %v", res.Links, res.Warnings)
	}
	for _, absent := range []string{"/Annots", "/Subtype /Link", "/URI"} {
		if bytes.Contains(data, []byte(absent)) {
			t.Errorf("output contains %q", absent)
		}
	}
}

func TestRemotePath(t *testing.T) {
	tests := map[string]string{
		"Note/Work/Plan.note":                 "Plan.pdf",
		"/storage/emulated/0/Note/Daily.note": "Daily.pdf",
		"Plain":                               "Plain.pdf",
	}
	for in, want := range tests {
		if got := RemotePath(in); got != want {
			t.Errorf("RemotePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutline(t *testing.T) {
	doc := testDoc(2)
	doc.Pages[0].Titles = []model.Title{
		{Page: 0, Level: 1, Text: "Intro", Rect: model.BBox{X: 5, Y: 10, Width: 50, Height: 20}},
		{Page: 0, Level: 2, Text: "Détails"},
	}
	doc.Pages[1].Titles = []model.Title{{Page: 1, Level: 1}}

	data, _ := write(t, doc.AsSource(), Options{})
	checkPDF(t, data)

	for _, want := range []string{
		"/PageMode /UseOutlines",
		"/Type /Outlines",
		"/Title (Intro)",
		"/Title (Page 2)",
		"/Title " + core.TextString("Détails").String(),
		"/Dest [3 0 R /XYZ 5 290 null]",
	} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestBuildOutline(t *testing.T) {
	root := buildOutline([]model.Title{
		{Level: 1, Text: "a"},
		{Level: 2, Text: "a.1"},
		{Level: 3, Text: "a.1.1"},
		{Level: 2, Text: "a.2"},
		{Level: 1, Text: "b"},
		{Level: 0, Text: "c"},
	})
	if len(root.children) != 3 {
		t.Fatalf("top level has %d items, want 3", len(root.children))
	}
	a := root.children[0]
	if len(a.children) != 2 || a.children[0].title.Text != "a.1" || a.children[1].title.Text != "a.2" {
		t.Errorf("unexpected children of a: %+v", a.children)
	}
	if len(a.children[0].children) != 1 {
		t.Error("a.1.1 not nested under a.1")
	}
	if root.count() != 6 || a.count() != 3 {
		t.Errorf("count root=%d a=%d, want 6 and 3", root.count(), a.count())
	}
}

func TestNoOutlineWithoutTitles(t *testing.T) {
	data, _ := write(t, testDoc(1).AsSource(), Options{})
	if bytes.Contains(data, []byte("/Outlines")) || bytes.Contains(data, []byte("/PageMode")) {
		t.Error("outline written for a document without titles")
	}
}

func TestInfo(t *testing.T) {
	data, _ := write(t, testDoc(1).AsSource(), Options{SourceDigest: "abc123"})
	for _, want := range []string{
		"/CreationDate (D:20240307120000Z)",
		"/Creator (notepdf)",
		"/Keywords (alpha, beta)",
		"/NoteFileID (F20240307120000123456)",
		"/SourceDigest (abc123)",
		"/Title (Meeting)",
	} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("info missing %q", want)
		}
	}
	if bytes.Contains(data, []byte("/ModDate")) {
		t.Error("info contains a modification date")
	}
}

func TestInfoWithoutCaptureTime(t *testing.T) {
	doc := testDoc(1)
	doc.Metadata = model.Metadata{}
	data, _ := write(t, doc.AsSource(), Options{})
	if bytes.Contains(data, []byte("/CreationDate")) || bytes.Contains(data, []byte("/Title")) {
		t.Error("info has entries for unknown metadata")
	}
}

func TestDeterministic(t *testing.T) {
	a, _ := write(t, linkedDoc().AsSource(), Options{})
	b, _ := write(t, linkedDoc().AsSource(), Options{})
	if !bytes.Equal(a, b) {
		t.Error("identical input produced different output")
	}

	c, _ := write(t, linkedDoc().AsSource(), Options{SourceDigest: "other"})
	idAt := func(data []byte) []byte {
		return data[bytes.LastIndex(data, []byte("/ID [")):]
	}
	if bytes.Equal(idAt(a), idAt(c)) {
		t.Error("/ID does not depend on content")
	}
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Write(context.Background(), &buf, model.NewDocument().AsSource(), Options{}); !errors.Is(err, ErrNoPages) {
		t.Errorf("empty document: err = %v, want ErrNoPages", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Write(ctx, &buf, testDoc(2).AsSource(), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: err = %v, want context.Canceled", err)
	}

	src := failingSource{PageSource: testDoc(3).AsSource(), failAt: 1}
	_, err := Write(context.Background(), &buf, src, Options{})
	if !errors.Is(err, errPage) {
		t.Errorf("page error: err = %v, want errPage", err)
	}
	if err != nil && !strings.Contains(err.Error(), "page 2") {
		t.Errorf("error %q does not name the page", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")

	res, err := WriteFile(context.Background(), path, testDoc(2).AsSource(), Options{})
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	checkPDF(t, data)

	bad := filepath.Join(dir, "bad.pdf")
	src := failingSource{PageSource: testDoc(2).AsSource(), failAt: 1}
	if _, err := WriteFile(context.Background(), bad, src, Options{}); err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.pdf" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v after a failed write", names)
	}
}

func TestHiddenLayers(t *testing.T) {
	doc := testDoc(1)
	doc.Pages[0].AddLayer(&model.Layer{Name: "LAYER1", Strokes: []model.Stroke{
		{Points: []model.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, Width: 1},
	}})

	count := func(opts Options) int {
		data, _ := write(t, doc.AsSource(), opts)
		n := 0
		for _, op := range contentOps(t, data) {
			if op.Operator == "S" {
				n++
			}
		}
		return n
	}
	if n := count(Options{}); n != 2 {
		t.Errorf("default: %d strokes, want 2", n)
	}
	if n := count(Options{HiddenLayers: true}); n != 3 {
		t.Errorf("hidden layers: %d strokes, want 3", n)
	}
}

type fakeRecognizer struct {
	words []ocr.Word
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, png []byte) ([]ocr.Word, error) {
	f.calls++
	if len(png) == 0 {
		return nil, errors.New("empty image")
	}
	return f.words, f.err
}

func TestTextLayer(t *testing.T) {
	rec := &fakeRecognizer{words: []ocr.Word{
		{Text: "Hello", Box: image.Rect(30, 40, 130, 80), Confidence: 90},
		{Text: "noise", Box: image.Rect(0, 0, 5, 5), Confidence: 5},
	}}
	data, res := write(t, testDoc(2).AsSource(), Options{Recognizer: rec, OCRDPI: 72})
	checkPDF(t, data)

	if rec.calls != 2 {
		t.Errorf("recognizer called %d times, want 2", rec.calls)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if n := bytes.Count(data, []byte("/BaseFont /Helvetica")); n != 1 {
		t.Errorf("%d font objects, want 1", n)
	}

	ops := contentOps(t, data)
	var text []string
	for i, op := range ops {
		switch op.Operator {
		case "Tr", "Tz", "Tm":
			nums, _ := op.Floats()
			text = append(text, op.Operator+formatNums(nums))
		case "Tj":
			if s, ok := op.Operands[0].(core.String); ok {
				text = append(text, "Tj "+string(s))
			}
		case "Tf":
			if ops[i].Operands[0] != core.Name("F1") {
				t.Errorf("font operand = %v", ops[i].Operands[0])
			}
		}
	}
	got := strings.Join(text, "; ")
	want := "Tr 3; Tm 1 0 0 1 30 220; Tz 100; Tj Hello; Tr 3; Tm 1 0 0 1 30 220; Tz 100; Tj Hello"
	if got != want {
		t.Errorf("text ops = %q, want %q", got, want)
	}
}

func formatNums(nums []float64) string {
	var b strings.Builder
	for _, n := range nums {
		b.WriteByte(' ')
		b.WriteString(core.FormatReal(n))
	}
	return b.String()
}

func TestTextLayerRecognizerFailure(t *testing.T) {
	rec := &fakeRecognizer{err: ocr.ErrOCRNotEnabled}
	data, res := write(t, testDoc(2).AsSource(), Options{Recognizer: rec})
	if n := checkPDF(t, data); n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("Warnings = %v, want one per page", res.Warnings)
	}
	if bytes.Contains(data, []byte("/Font")) {
		t.Error("font written without recognized text")
	}
}

func TestWinAnsi(t *testing.T) {
	tests := map[string]string{
		"plain": "plain",
		"café":  "caf\xe9",
		"€5":    "\x805",
		"✓ok":   "?ok",
	}
	for in, want := range tests {
		if got := winAnsi(in); got != want {
			t.Errorf("winAnsi(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModeString(t *testing.T) {
	if ModeVector.String() != "vector" || ModeRaster.String() != "raster" {
		t.Error("unexpected mode names")
	}
}
