package pdfwriter

import (
	"github.com/tsawler/notepdf/ocr"
	"github.com/tsawler/notepdf/raster"
)

// Stage names the pipeline stage in warnings produced here.
const Stage = "emitter"

// Mode selects how page content is rendered.
type Mode int

const (
	// ModeVector draws strokes as PDF paths.
	ModeVector Mode = iota
	// ModeRaster embeds each page as a gray image.
	ModeRaster
)

func (m Mode) String() string {
	if m == ModeRaster {
		return "raster"
	}
	return "vector"
}

// DefaultCreator is written to /Creator and /Producer when unset.
const DefaultCreator = "notepdf"

// Options controls emission. The zero value writes vector pages with links.
type Options struct {
	Mode Mode
	// RasterDPI is the bitmap resolution in raster mode.
	RasterDPI float64
	// OmitLinks drops link annotations entirely.
	OmitLinks bool
	// HiddenLayers also renders layers marked hidden on the device.
	HiddenLayers bool
	// Recognizer, when set, adds an invisible text layer from OCR.
	Recognizer ocr.Recognizer
	// OCRDPI is the resolution of the image handed to Recognizer.
	OCRDPI float64

	Creator  string
	Producer string
	// SourceDigest is recorded in the info dictionary when set.
	SourceDigest string
}

func (o Options) withDefaults() Options {
	if o.RasterDPI <= 0 {
		o.RasterDPI = raster.DefaultDPI
	}
	if o.OCRDPI <= 0 {
		o.OCRDPI = 300
	}
	if o.Creator == "" {
		o.Creator = DefaultCreator
	}
	if o.Producer == "" {
		o.Producer = DefaultCreator
	}
	return o
}
