package stroke

import (
	"encoding/binary"
	"fmt"
)

// Encode writes strokes in the block layout read by Decode. Consecutive
// equal deltas are folded into runs; steps that do not fit a signed byte
// are written as absolute points.
func Encode(strokes []RawStroke, pressure bool) ([]byte, error) {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(strokes)))
	for i, s := range strokes {
		if len(s.Points) == 0 {
			return nil, fmt.Errorf("stroke %d has no points", i)
		}
		buf = append(buf, RecordTag, s.Brush, s.Color)
		buf = binary.LittleEndian.AppendUint16(buf, s.Width)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Points)))
		buf = appendAbsolute(buf, s.Points[0], pressure)

		for j := 1; j < len(s.Points); {
			dx, dy, dp := delta(s.Points[j-1], s.Points[j], pressure)
			if !fitsDelta(dx) || !fitsDelta(dy) || !fitsDelta(dp) {
				buf = append(buf, byte(0x80))
				buf = appendAbsolute(buf, s.Points[j], pressure)
				j++
				continue
			}

			run := 1
			for j+run < len(s.Points) && run < 255 {
				ndx, ndy, ndp := delta(s.Points[j+run-1], s.Points[j+run], pressure)
				if ndx != dx || ndy != dy || ndp != dp {
					break
				}
				run++
			}

			buf = append(buf, byte(int8(dx)), byte(int8(dy)))
			if pressure {
				buf = append(buf, byte(int8(dp)))
			}
			buf = append(buf, byte(run))
			j += run
		}
	}
	return buf, nil
}

func delta(a, b RawPoint, pressure bool) (int, int, int) {
	dp := 0
	if pressure {
		dp = b.P - a.P
	}
	return b.X - a.X, b.Y - a.Y, dp
}

// fitsDelta excludes -128, which is reserved for the escape marker.
func fitsDelta(v int) bool {
	return v > EscapeDelta && v <= 127
}

func appendAbsolute(buf []byte, p RawPoint, pressure bool) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(p.X))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(p.Y))
	if pressure {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(p.P))
	}
	return buf
}
