package notepdf

import (
	"context"

	"github.com/tsawler/notepdf/ocr"
	"github.com/tsawler/notepdf/pdfwriter"
)

// convertOptions holds the configuration of a Converter.
type convertOptions struct {
	ctx context.Context

	// Decoding
	exact     bool
	tolerance float64

	// Emission
	mode         pdfwriter.Mode
	rasterDPI    float64
	omitLinks    bool
	hiddenLayers bool
	recognizer   ocr.Recognizer
	creator      string
}

func defaultOptions() convertOptions {
	return convertOptions{
		ctx:  context.Background(),
		mode: pdfwriter.ModeVector,
	}
}

func (o convertOptions) writerOptions() pdfwriter.Options {
	return pdfwriter.Options{
		Mode:         o.mode,
		RasterDPI:    o.rasterDPI,
		OmitLinks:    o.omitLinks,
		HiddenLayers: o.hiddenLayers,
		Recognizer:   o.recognizer,
		Creator:      o.creator,
	}
}
