package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tsawler/notepdf/pdfwriter"
)

// ConvertOptions are the per-notebook conversion settings. They take part
// in the fingerprint, so changing any of them reconverts every notebook.
type ConvertOptions struct {
	Mode         pdfwriter.Mode
	RasterDPI    float64
	OmitLinks    bool
	Exact        bool
	HiddenLayers bool
	OCR          bool
}

// Digest returns a stable identifier for the options.
func (o ConvertOptions) Digest() string {
	s := fmt.Sprintf("v1|mode=%s|dpi=%g|links=%t|exact=%t|hidden=%t|ocr=%t",
		o.Mode, o.RasterDPI, !o.OmitLinks, o.Exact, o.HiddenLayers, o.OCR)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// SourceDigest returns the hex SHA-256 of a notebook's bytes.
func SourceDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint identifies one conversion: the source content plus the
// options it was converted with.
func Fingerprint(data []byte, opts ConvertOptions) string {
	return SourceDigest(data) + "-" + opts.Digest()
}
