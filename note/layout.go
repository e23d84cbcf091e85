package note

import "strings"

// Container signatures.
const (
	SignatureLegacy      = "SN_FILE_VER_20200001"
	SignatureLayered     = "SN_FILE_VER_20210010"
	SignatureChecksummed = "SN_FILE_VER_20230015"

	signaturePrefix = "SN_FILE_VER_"
)

// Layout describes how one container version stores its data.
type Layout struct {
	Signature   string
	Layered     bool // pages reference named layers; otherwise one TOTALPATH
	Pressure    bool // stroke points carry pressure
	Checksummed bool // every block is followed by a CRC-32
}

var layouts = map[string]Layout{
	SignatureLegacy:      {Signature: SignatureLegacy},
	SignatureLayered:     {Signature: SignatureLayered, Layered: true, Pressure: true},
	SignatureChecksummed: {Signature: SignatureChecksummed, Layered: true, Pressure: true, Checksummed: true},
}

// LookupLayout returns the layout for a signature.
func LookupLayout(signature string) (Layout, bool) {
	l, ok := layouts[signature]
	return l, ok
}

// Signatures returns the supported signatures, oldest first.
func Signatures() []string {
	return []string{SignatureLegacy, SignatureLayered, SignatureChecksummed}
}

// wellFormedSignature reports whether s looks like a version signature.
func wellFormedSignature(s string) bool {
	if len(s) != len(signaturePrefix)+8 || !strings.HasPrefix(s, signaturePrefix) {
		return false
	}
	for _, c := range s[len(signaturePrefix):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Device is the page geometry of a device model.
type Device struct {
	Model  string
	PixelW int
	PixelH int
	DPI    float64
}

// DefaultDevice is used when the container names an unknown model.
var DefaultDevice = Device{Model: "A5X", PixelW: 1404, PixelH: 1872, DPI: 226}

var devices = map[string]Device{
	"A5X":  DefaultDevice,
	"A6X":  {Model: "A6X", PixelW: 1404, PixelH: 1872, DPI: 226},
	"A5X2": {Model: "A5X2", PixelW: 1404, PixelH: 1872, DPI: 226},
	"A6X2": {Model: "A6X2", PixelW: 1404, PixelH: 1872, DPI: 226},
	"N5":   {Model: "N5", PixelW: 1920, PixelH: 2560, DPI: 300},
	"N6":   {Model: "N6", PixelW: 1920, PixelH: 2560, DPI: 300},
}

// LookupDevice returns the geometry for a device model name.
func LookupDevice(model string) (Device, bool) {
	d, ok := devices[strings.ToUpper(strings.TrimSpace(model))]
	return d, ok
}

// Width returns the page width in points.
func (d Device) Width() float64 { return float64(d.PixelW) * 72 / d.DPI }

// Height returns the page height in points.
func (d Device) Height() float64 { return float64(d.PixelH) * 72 / d.DPI }
