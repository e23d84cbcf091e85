package core

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
)

// Header is the file header written by NewWriter. The second line is the
// customary binary marker so transfer tools treat the file as binary.
const Header = "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"

// ErrWriterClosed is returned when objects are written after Close.
var ErrWriterClosed = errors.New("pdf writer closed")

// Writer serializes indirect objects and the cross-reference table.
// Object numbers are handed out by Alloc so objects can reference each other
// before they are written.
type Writer struct {
	w       *bufio.Writer
	offset  int64
	offsets []int64 // offsets[n] is the byte offset of object n; index 0 unused
	closed  bool
	err     error
	digest  hash.Hash
}

// NewWriter writes the file header to w and returns a Writer.
func NewWriter(w io.Writer) *Writer {
	pw := &Writer{
		w:       bufio.NewWriter(w),
		offsets: []int64{0},
		digest:  sha256.New(),
	}
	pw.writeString(Header)
	return pw
}

// Alloc reserves the next object number.
func (w *Writer) Alloc() IndirectRef {
	w.offsets = append(w.offsets, -1)
	return IndirectRef{Number: len(w.offsets) - 1}
}

// WriteObject writes obj as the indirect object ref.
func (w *Writer) WriteObject(ref IndirectRef, obj Object) error {
	if w.closed {
		return ErrWriterClosed
	}
	if ref.Number <= 0 || ref.Number >= len(w.offsets) {
		return fmt.Errorf("object %d was not allocated", ref.Number)
	}
	if w.offsets[ref.Number] >= 0 {
		return fmt.Errorf("object %d written twice", ref.Number)
	}
	w.offsets[ref.Number] = w.offset
	w.writeString(fmt.Sprintf("%d 0 obj\n", ref.Number))
	w.writeString(objString(obj))
	w.writeString("\nendobj\n")
	return w.err
}

// Add allocates a number for obj and writes it.
func (w *Writer) Add(obj Object) (IndirectRef, error) {
	ref := w.Alloc()
	return ref, w.WriteObject(ref, obj)
}

// Close writes the cross-reference table and trailer, then flushes. Every
// allocated object must have been written. Size is added to the trailer.
func (w *Writer) Close(trailer Dict) error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	for n := 1; n < len(w.offsets); n++ {
		if w.offsets[n] < 0 {
			return fmt.Errorf("object %d allocated but never written", n)
		}
	}

	xrefOffset := w.offset
	w.writeString(fmt.Sprintf("xref\n0 %d\n", len(w.offsets)))
	w.writeString("0000000000 65535 f \n")
	for n := 1; n < len(w.offsets); n++ {
		w.writeString(fmt.Sprintf("%010d %05d n \n", w.offsets[n], 0))
	}

	t := make(Dict, len(trailer)+1)
	for k, v := range trailer {
		t[k] = v
	}
	t["Size"] = Int(len(w.offsets))
	w.writeString("trailer\n")
	w.writeString(t.String())
	w.writeString(fmt.Sprintf("\nstartxref\n%d\n%%%%EOF\n", xrefOffset))
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Sum returns the SHA-256 digest of every byte written so far.
func (w *Writer) Sum() []byte {
	return w.digest.Sum(nil)
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.offset
}

func (w *Writer) writeString(s string) {
	if w.err != nil {
		return
	}
	n, err := w.w.WriteString(s)
	w.digest.Write([]byte(s[:n]))
	w.offset += int64(n)
	w.err = err
}
