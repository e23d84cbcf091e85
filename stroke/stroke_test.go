package stroke

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/tsawler/notepdf/model"
)

func line(n, x0, y0, dx, dy int) []RawPoint {
	pts := make([]RawPoint, n)
	for i := range pts {
		pts[i] = RawPoint{X: x0 + i*dx, Y: y0 + i*dy, P: 2000}
	}
	return pts
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	strokes := []RawStroke{
		{Brush: 0, Color: 0, Width: 200, Points: line(10, 100, 100, 2, 1)},
		{Brush: 2, Color: 128, Width: 900, Points: []RawPoint{
			{X: 10, Y: 10, P: 100},
			{X: 1000, Y: 10, P: 4000}, // jump forces an escape
			{X: 1001, Y: 12, P: 3990},
		}},
		{Brush: 3, Color: 255, Width: 50, Points: []RawPoint{{X: 5, Y: 6, P: 7}}},
	}

	tests := []struct {
		name     string
		pressure bool
	}{
		{"with pressure", true},
		{"without pressure", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(strokes, tt.pressure)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(data, tt.pressure)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(got) != len(strokes) {
				t.Fatalf("decoded %d strokes, want %d", len(got), len(strokes))
			}
			for i := range strokes {
				if got[i].Brush != strokes[i].Brush || got[i].Color != strokes[i].Color || got[i].Width != strokes[i].Width {
					t.Errorf("stroke %d header mismatch: %+v", i, got[i])
				}
				if len(got[i].Points) != len(strokes[i].Points) {
					t.Fatalf("stroke %d has %d points, want %d", i, len(got[i].Points), len(strokes[i].Points))
				}
				for j, p := range got[i].Points {
					want := strokes[i].Points[j]
					if !tt.pressure {
						want.P = MaxPressure
					}
					if p != want {
						t.Errorf("stroke %d point %d = %+v, want %+v", i, j, p, want)
					}
				}
			}
		})
	}
}

func TestEncodeFoldsRuns(t *testing.T) {
	data, err := Encode([]RawStroke{{Width: 100, Points: line(4, 0, 0, 1, 1)}}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// count + header + absolute point + one run of three
	if want := 4 + 9 + 6 + 4; len(data) != want {
		t.Errorf("encoded length = %d, want %d", len(data), want)
	}
	if data[len(data)-1] != 3 {
		t.Errorf("run length = %d, want 3", data[len(data)-1])
	}
}

func TestEncodeRejectsEmptyStroke(t *testing.T) {
	if _, err := Encode([]RawStroke{{}}, true); err == nil {
		t.Error("expected error for stroke without points")
	}
}

// record builds a stroke block by hand; body follows the point count.
func record(count uint32, points uint32, body ...byte) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, count)
	buf = append(buf, 'S', 0, 0, 100, 0)
	buf = binary.LittleEndian.AppendUint32(buf, points)
	return append(buf, body...)
}

func TestDecodeCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantMsg string
	}{
		{"empty", nil, "need 4 bytes"},
		{"count too large", binary.LittleEndian.AppendUint32(nil, 1000), "exceeds block size"},
		{"bad tag", append(binary.LittleEndian.AppendUint32(nil, 1), 'X', 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0), "bad record tag"},
		{"zero points", record(1, 0, 0, 0, 0, 0), "zero point count"},
		{"truncated point", record(1, 1, 1, 0, 2), "need 2 bytes"},
		{"zero run", record(1, 2, 1, 0, 1, 0, 1, 1, 0), "zero run length"},
		{"run overflow", record(1, 2, 1, 0, 1, 0, 1, 1, 5), "overflows point count"},
		{"underflow", record(1, 2, 1, 0, 1, 0, byte(0xfe), 0, 1), "coordinate out of range"},
		{"trailing bytes", record(1, 1, 1, 0, 1, 0, 9, 9), "trailing bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, false)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("error %v does not match ErrCorrupt", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestDecodePressureOutOfRange(t *testing.T) {
	body := []byte{1, 0, 1, 0}
	body = binary.LittleEndian.AppendUint16(body, MaxPressure+1)
	if _, err := Decode(record(1, 1, body...), true); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestDecodeDeterministic(t *testing.T) {
	data, err := Encode([]RawStroke{{Width: 150, Points: line(50, 3, 4, 1, -1)}}, true)
	if err != nil {
		t.Fatal(err)
	}
	a, err := Decode(data, true)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Decode(data, true)
	if !reflect.DeepEqual(a, b) {
		t.Error("decoding the same bytes twice gave different results")
	}
}

func TestSimplify(t *testing.T) {
	pts := []RawPoint{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 10}, {X: 11}}

	tests := []struct {
		name string
		tol  float64
		want []RawPoint
	}{
		{"disabled", 0, pts},
		{"keeps ends", 2.5, []RawPoint{{X: 0}, {X: 3}, {X: 10}, {X: 11}}},
		{"coarse", 100, []RawPoint{{X: 0}, {X: 11}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(pts, tt.tol)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Simplify() = %v, want %v", got, tt.want)
			}
		})
	}

	short := []RawPoint{{X: 1}, {X: 1}}
	if got := Simplify(short, 5); len(got) != 2 {
		t.Errorf("two-point strokes must be kept intact, got %v", got)
	}
}

func TestSimplifyPreservesOrder(t *testing.T) {
	pts := line(200, 0, 0, 1, 0)
	got := Simplify(pts, 3)
	for i := 1; i < len(got); i++ {
		if got[i].X <= got[i-1].X {
			t.Fatalf("order not preserved at %d: %v", i, got)
		}
	}
	if got[0] != pts[0] || got[len(got)-1] != pts[len(pts)-1] {
		t.Error("first and last points must be kept")
	}
}

func TestReconstruct(t *testing.T) {
	raw := []RawStroke{{
		Brush: 2, Color: 64, Width: 200,
		Points: []RawPoint{{X: 0, Y: 0, P: 0}, {X: 226, Y: 452, P: MaxPressure}},
	}}

	got := Reconstruct(raw, Options{DPI: 226, Pressure: true})
	if len(got) != 1 {
		t.Fatalf("got %d strokes", len(got))
	}
	s := got[0]
	if s.Brush != model.BrushMarker || s.Color != 64 {
		t.Errorf("unexpected stroke attributes: %+v", s)
	}
	if math.Abs(s.Width-2*72.0/226) > 1e-9 {
		t.Errorf("Width = %v", s.Width)
	}
	last := s.Points[1]
	if math.Abs(last.X-72) > 1e-9 || math.Abs(last.Y-144) > 1e-9 {
		t.Errorf("last point = %+v, want (72,144)", last)
	}
	if s.Points[0].Pressure != 0 || last.Pressure != 1 {
		t.Errorf("pressure not normalized: %v %v", s.Points[0].Pressure, last.Pressure)
	}

	flat := Reconstruct(raw, Options{DPI: 226})
	if flat[0].Points[0].Pressure != 1 {
		t.Error("layouts without pressure should draw at full pressure")
	}
}

func TestReconstructExact(t *testing.T) {
	raw := []RawStroke{{Width: 100, Points: line(100, 0, 0, 1, 0)}}

	thinned := Reconstruct(raw, Options{DPI: 300})
	exact := Reconstruct(raw, Options{DPI: 300, Exact: true})

	if len(exact[0].Points) != 100 {
		t.Errorf("exact mode kept %d points, want 100", len(exact[0].Points))
	}
	if len(thinned[0].Points) >= 100 {
		t.Errorf("default tolerance did not thin a dense line (%d points)", len(thinned[0].Points))
	}
}

func TestBrush(t *testing.T) {
	tests := []struct {
		id   uint8
		want model.Brush
	}{
		{0, model.BrushInkPen},
		{1, model.BrushNeedlePoint},
		{2, model.BrushMarker},
		{3, model.BrushCalligraphy},
		{77, model.BrushUnknown},
	}
	for _, tt := range tests {
		if got := Brush(tt.id); got != tt.want {
			t.Errorf("Brush(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
