package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrOCRNotEnabled is returned when OCR functions are called but OCR support
// was not compiled in. Rebuild with -tags ocr to enable OCR support.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Word is a recognized word with its bounding box in image pixels.
type Word struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // 0-100
}

// Recognizer turns a PNG page image into positioned words. Implementations
// must be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) ([]Word, error)
}

// MinConfidence is the confidence below which words are dropped.
const MinConfidence = 30

// Filter drops empty and low-confidence words.
func Filter(words []Word) []Word {
	out := words[:0:0]
	for _, w := range words {
		if w.Text == "" || w.Confidence < MinConfidence || w.Box.Empty() {
			continue
		}
		out = append(out, w)
	}
	return out
}
