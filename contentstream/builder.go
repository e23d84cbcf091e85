package contentstream

import (
	"strings"

	"github.com/tsawler/notepdf/core"
)

// Line cap and join styles.
const (
	CapButt  = 0
	CapRound = 1

	JoinMiter = 0
	JoinRound = 1
)

// Builder accumulates content stream operations. Every method returns the
// builder so calls can be chained.
type Builder struct {
	ops []Operation
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends an arbitrary operation.
func (b *Builder) Add(operator string, operands ...core.Object) *Builder {
	b.ops = append(b.ops, Operation{Operator: operator, Operands: operands})
	return b
}

func (b *Builder) addReals(operator string, vals ...float64) *Builder {
	operands := make([]core.Object, len(vals))
	for i, v := range vals {
		operands[i] = core.Real(v)
	}
	return b.Add(operator, operands...)
}

// Save pushes the graphics state (q).
func (b *Builder) Save() *Builder { return b.Add("q") }

// Restore pops the graphics state (Q).
func (b *Builder) Restore() *Builder { return b.Add("Q") }

// Concat modifies the current transformation matrix (cm).
func (b *Builder) Concat(a, bb, c, d, e, f float64) *Builder {
	return b.addReals("cm", a, bb, c, d, e, f)
}

// Translate is Concat with a pure translation.
func (b *Builder) Translate(tx, ty float64) *Builder {
	return b.Concat(1, 0, 0, 1, tx, ty)
}

// LineWidth sets the stroke width (w).
func (b *Builder) LineWidth(w float64) *Builder { return b.addReals("w", w) }

// LineCap sets the line cap style (J).
func (b *Builder) LineCap(style int) *Builder { return b.Add("J", core.Int(style)) }

// LineJoin sets the line join style (j).
func (b *Builder) LineJoin(style int) *Builder { return b.Add("j", core.Int(style)) }

// StrokeGray sets the stroking color in DeviceGray (G).
func (b *Builder) StrokeGray(level float64) *Builder { return b.addReals("G", level) }

// FillGray sets the non-stroking color in DeviceGray (g).
func (b *Builder) FillGray(level float64) *Builder { return b.addReals("g", level) }

// MoveTo begins a subpath (m).
func (b *Builder) MoveTo(x, y float64) *Builder { return b.addReals("m", x, y) }

// LineTo appends a straight segment (l).
func (b *Builder) LineTo(x, y float64) *Builder { return b.addReals("l", x, y) }

// Stroke paints the current path (S).
func (b *Builder) Stroke() *Builder { return b.Add("S") }

// DrawXObject paints a named XObject (Do).
func (b *Builder) DrawXObject(name string) *Builder { return b.Add("Do", core.Name(name)) }

// BeginText starts a text object (BT).
func (b *Builder) BeginText() *Builder { return b.Add("BT") }

// EndText ends a text object (ET).
func (b *Builder) EndText() *Builder { return b.Add("ET") }

// Font selects a font resource and size (Tf).
func (b *Builder) Font(name string, size float64) *Builder {
	return b.Add("Tf", core.Name(name), core.Real(size))
}

// TextRender sets the text rendering mode (Tr). Mode 3 is invisible.
func (b *Builder) TextRender(mode int) *Builder { return b.Add("Tr", core.Int(mode)) }

// TextMatrix sets the text matrix (Tm).
func (b *Builder) TextMatrix(a, bb, c, d, e, f float64) *Builder {
	return b.addReals("Tm", a, bb, c, d, e, f)
}

// HorizontalScale sets horizontal text scaling in percent (Tz).
func (b *Builder) HorizontalScale(pct float64) *Builder { return b.addReals("Tz", pct) }

// ShowText shows a string of already-encoded bytes (Tj).
func (b *Builder) ShowText(s string) *Builder { return b.Add("Tj", core.String(s)) }

// Operations returns the accumulated operations.
func (b *Builder) Operations() []Operation {
	return b.ops
}

// Len returns the number of operations.
func (b *Builder) Len() int {
	return len(b.ops)
}

// Bytes renders the content stream, one operation per line.
func (b *Builder) Bytes() []byte {
	var sb strings.Builder
	for _, op := range b.ops {
		sb.WriteString(op.String())
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
