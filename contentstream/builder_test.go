package contentstream

import (
	"strings"
	"testing"
)

func TestBuilderBytes(t *testing.T) {
	b := NewBuilder().
		Save().
		StrokeGray(0).
		LineWidth(1.25).
		LineCap(CapRound).
		LineJoin(JoinRound).
		MoveTo(10, 20.5).
		LineTo(30.12345, 40).
		Stroke().
		Restore()

	want := strings.Join([]string{
		"q",
		"0 G",
		"1.25 w",
		"1 J",
		"1 j",
		"10 20.5 m",
		"30.1235 40 l",
		"S",
		"Q",
	}, "\n") + "\n"

	if got := string(b.Bytes()); got != want {
		t.Errorf("Bytes() =\n%s\nwant\n%s", got, want)
	}
	if b.Len() != 9 {
		t.Errorf("Len() = %d, want 9", b.Len())
	}
}

func TestBuilderText(t *testing.T) {
	b := NewBuilder().
		BeginText().
		Font("F1", 12).
		TextRender(3).
		TextMatrix(1, 0, 0, 1, 72, 700).
		HorizontalScale(80).
		ShowText("a(b)").
		EndText()

	want := "BT\n/F1 12 Tf\n3 Tr\n1 0 0 1 72 700 Tm\n80 Tz\n(a\\(b\\)) Tj\nET\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("Bytes() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder().
		Save().
		Concat(612, 0, 0, 792, 0, 0).
		DrawXObject("Im0").
		Restore().
		BeginText().
		ShowText("caf\xe9").
		EndText()

	ops, err := NewParser(b.Bytes()).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ops) != b.Len() {
		t.Fatalf("parsed %d ops, built %d", len(ops), b.Len())
	}
	for i, op := range ops {
		if op.String() != b.Operations()[i].String() {
			t.Errorf("op %d = %q, want %q", i, op.String(), b.Operations()[i].String())
		}
	}
}
