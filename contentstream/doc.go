// Package contentstream builds and parses PDF content streams.
//
// Content streams contain the instructions for rendering page content:
// graphics state changes, path construction and painting, image placement
// and text.
//
// # Building
//
// [Builder] accumulates operations and renders them with [Builder.Bytes]:
//
//	b := contentstream.NewBuilder()
//	b.Save().StrokeGray(0).LineWidth(1.2).MoveTo(10, 10).LineTo(20, 20).Stroke().Restore()
//	data := b.Bytes()
//
// # Parsing
//
// [Parser] reads a content stream back into operations. The emitter's tests
// use it to inspect what was written:
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Printf("Operator: %s, Operands: %v\n", op.Operator, op.Operands)
//	}
//
// # Operators Used
//
// Graphics state: q, Q, cm, w, J, j, G, g.
// Paths: m, l, S.
// XObjects: Do.
// Text: BT, ET, Tf, Tr, Tm, Tz, Tj.
package contentstream
