package raster

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/tsawler/notepdf/model"
)

func testPage(hidden bool) *model.Page {
	p := model.NewPage(144, 72) // 2in x 1in
	ink := &model.Layer{Name: "MAINLAYER", Visible: true, Strokes: []model.Stroke{{
		Points: []model.Point{{X: 10, Y: 36, Pressure: 1}, {X: 60, Y: 36, Pressure: 1}},
		Width:  4,
	}}}
	p.AddLayer(ink)
	p.AddLayer(&model.Layer{Name: "LAYER1", Visible: !hidden, Strokes: []model.Stroke{{
		Points: []model.Point{{X: 120, Y: 20, Pressure: 1}},
		Color:  0x80,
		Width:  6,
	}}})
	return p
}

func TestSize(t *testing.T) {
	tests := []struct {
		w, h, dpi float64
		pw, ph    int
	}{
		{144, 72, 72, 144, 72},
		{144, 72, 150, 300, 150},
		{447.29, 596.39, 150, 932, 1243},
	}
	for _, tt := range tests {
		pw, ph := Size(tt.w, tt.h, tt.dpi)
		if pw != tt.pw || ph != tt.ph {
			t.Errorf("Size(%g, %g, %g) = %d x %d, want %d x %d", tt.w, tt.h, tt.dpi, pw, ph, tt.pw, tt.ph)
		}
	}
}

func TestRender(t *testing.T) {
	img, err := Render(testPage(false), Options{DPI: 72})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.Bounds().Dx() != 144 || img.Bounds().Dy() != 72 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	tests := []struct {
		name string
		x, y int
		dark bool
	}{
		{"middle of line", 35, 36, true},
		{"round cap", 9, 36, true},
		{"above line", 35, 30, false},
		{"blank corner", 1, 1, false},
		{"dot", 120, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := img.GrayAt(tt.x, tt.y).Y < 0xc0
			if got != tt.dark {
				t.Errorf("pixel (%d,%d) = %d, want dark=%v", tt.x, tt.y, img.GrayAt(tt.x, tt.y).Y, tt.dark)
			}
		})
	}
}

func TestRenderHiddenLayers(t *testing.T) {
	img, err := Render(testPage(true), Options{DPI: 72})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if y := img.GrayAt(120, 20).Y; y != 0xff {
		t.Errorf("hidden layer drawn: pixel = %d", y)
	}

	img, err = Render(testPage(true), Options{DPI: 72, HiddenLayers: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if y := img.GrayAt(120, 20).Y; y == 0xff {
		t.Error("hidden layer not drawn with HiddenLayers")
	}
}

func TestRenderClipsAtEdges(t *testing.T) {
	p := model.NewPage(72, 72)
	p.AddLayer(&model.Layer{Visible: true, Strokes: []model.Stroke{{
		Points: []model.Point{{X: 0, Y: 0}, {X: 72, Y: 72}},
		Width:  10,
	}}})
	img, err := Render(p, Options{DPI: 72})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.GrayAt(36, 36).Y > 0x40 {
		t.Errorf("diagonal centre not inked: %d", img.GrayAt(36, 36).Y)
	}
}

func TestRenderEmptyPage(t *testing.T) {
	if _, err := Render(model.NewPage(0, 0), Options{}); err == nil {
		t.Error("expected error for zero-size page")
	}
}

func TestPNG(t *testing.T) {
	img, err := Render(testPage(false), Options{DPI: 36})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	data, err := PNG(img)
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
}
