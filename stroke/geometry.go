package stroke

import (
	"github.com/tsawler/notepdf/model"
)

// Options controls how raw strokes become page geometry.
type Options struct {
	// DPI is the device template resolution; required.
	DPI float64
	// Pressure reports whether raw points carry real pressure. Without it
	// every point is drawn at full pressure.
	Pressure bool
	// Exact disables point thinning.
	Exact bool
	// Tolerance is the thinning distance in device pixels. Zero selects the
	// default of 1/200 inch.
	Tolerance float64
}

// DefaultTolerance returns the thinning distance in device pixels for dpi.
func DefaultTolerance(dpi float64) float64 {
	return dpi / 200
}

// PointsPerPixel returns the scale from device pixels to PDF points.
func PointsPerPixel(dpi float64) float64 {
	return 72 / dpi
}

// Brush maps a raw brush id to the model kind.
func Brush(id uint8) model.Brush {
	switch id {
	case 0:
		return model.BrushInkPen
	case 1:
		return model.BrushNeedlePoint
	case 2:
		return model.BrushMarker
	case 3:
		return model.BrushCalligraphy
	default:
		return model.BrushUnknown
	}
}

// Reconstruct converts decoded strokes into model strokes in page points.
func Reconstruct(raw []RawStroke, opts Options) []model.Stroke {
	scale := PointsPerPixel(opts.DPI)
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance(opts.DPI)
	}

	out := make([]model.Stroke, 0, len(raw))
	for _, rs := range raw {
		pts := rs.Points
		if !opts.Exact {
			pts = Simplify(pts, tol)
		}

		s := model.Stroke{
			Points: make([]model.Point, len(pts)),
			Color:  rs.Color,
			Width:  float64(rs.Width) / 100 * scale,
			Brush:  Brush(rs.Brush),
		}
		for i, p := range pts {
			pressure := 1.0
			if opts.Pressure {
				pressure = float64(p.P) / MaxPressure
			}
			s.Points[i] = model.Point{
				X:        float64(p.X) * scale,
				Y:        float64(p.Y) * scale,
				Pressure: pressure,
			}
		}
		out = append(out, s)
	}
	return out
}

// Simplify drops points closer than tol pixels to the last kept point.
// The first and last points are always kept and order is preserved.
func Simplify(pts []RawPoint, tol float64) []RawPoint {
	if len(pts) <= 2 || tol <= 0 {
		return pts
	}

	tol2 := tol * tol
	out := make([]RawPoint, 0, len(pts))
	out = append(out, pts[0])
	last := pts[0]
	for _, p := range pts[1 : len(pts)-1] {
		dx := float64(p.X - last.X)
		dy := float64(p.Y - last.Y)
		if dx*dx+dy*dy < tol2 {
			continue
		}
		out = append(out, p)
		last = p
	}
	return append(out, pts[len(pts)-1])
}
