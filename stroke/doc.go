// Package stroke decodes pen stroke records and reconstructs page geometry.
//
// Decoding and geometry are separate stages. [Decode] turns a stroke block
// payload into [RawStroke] values in device pixels, undoing the delta and
// run-length compression of the point stream. [Reconstruct] scales those
// points into PDF points, normalizes pressure, and thins dense point runs
// with [Simplify].
//
// Both stages are deterministic: identical input bytes always produce
// identical geometry.
//
// # Record Layout
//
// A stroke block holds a little-endian u32 stroke count followed by the
// records. Each record is:
//
//	u8  tag 'S'
//	u8  brush
//	u8  gray level
//	u16 width in 1/100 device px
//	u32 point count
//	u16 x, u16 y, [u16 pressure]          first point
//	runs:
//	  i8 dx == -128 -> u16 x, u16 y, [u16 pressure]
//	  i8 dx, i8 dy, [i8 dpressure], u8 repeat
//
// Pressure fields are present only when the container layout records
// pressure.
package stroke
