package stroke

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RecordTag marks the start of every stroke record.
const RecordTag = 'S'

// EscapeDelta introduces an absolute point inside the run stream.
const EscapeDelta = -128

// MaxPressure is the full-scale raw pressure value.
const MaxPressure = 4095

// ErrCorrupt is matched by every decode failure.
var ErrCorrupt = errors.New("corrupt stroke record")

// DecodeError describes where a stroke block stopped making sense.
type DecodeError struct {
	Stroke int // index of the failing record, -1 for the block header
	Offset int // byte offset inside the block payload
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Stroke < 0 {
		return fmt.Sprintf("stroke block at +%d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("stroke %d at +%d: %s", e.Stroke, e.Offset, e.Msg)
}

func (e *DecodeError) Is(target error) bool { return target == ErrCorrupt }

// RawPoint is a decoded sample in device pixels with raw pressure.
type RawPoint struct {
	X, Y int
	P    int
}

// RawStroke is a decoded record before any geometry is applied.
type RawStroke struct {
	Brush  uint8
	Color  uint8
	Width  uint16 // 1/100 device px
	Points []RawPoint
}

// decoder reads little-endian fields from a block payload.
type decoder struct {
	buf    []byte
	pos    int
	stroke int
}

func (d *decoder) fail(format string, args ...interface{}) error {
	return &DecodeError{Stroke: d.stroke, Offset: d.pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return d.fail("need %d bytes, %d left", n, len(d.buf)-d.pos)
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) i8() (int, error) {
	v, err := d.u8()
	return int(int8(v)), err
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// Decode parses a stroke block payload. pressure selects whether the
// records carry pressure fields.
func Decode(payload []byte, pressure bool) ([]RawStroke, error) {
	d := &decoder{buf: payload, stroke: -1}

	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	// Smallest possible record header: tag, brush, color, width, count.
	minRecord := 1 + 1 + 1 + 2 + 4
	if int64(count)*int64(minRecord) > int64(len(payload)-d.pos) {
		return nil, d.fail("stroke count %d exceeds block size", count)
	}

	strokes := make([]RawStroke, 0, count)
	for i := 0; i < int(count); i++ {
		d.stroke = i
		s, err := d.record(pressure)
		if err != nil {
			return nil, err
		}
		strokes = append(strokes, s)
	}

	if d.pos != len(payload) {
		d.stroke = -1
		return nil, d.fail("%d trailing bytes", len(payload)-d.pos)
	}
	return strokes, nil
}

func (d *decoder) record(pressure bool) (RawStroke, error) {
	var s RawStroke

	tag, err := d.u8()
	if err != nil {
		return s, err
	}
	if tag != RecordTag {
		d.pos--
		return s, d.fail("bad record tag 0x%02x", tag)
	}
	if s.Brush, err = d.u8(); err != nil {
		return s, err
	}
	if s.Color, err = d.u8(); err != nil {
		return s, err
	}
	if s.Width, err = d.u16(); err != nil {
		return s, err
	}
	n, err := d.u32()
	if err != nil {
		return s, err
	}
	if n == 0 {
		return s, d.fail("zero point count")
	}
	if int64(n) > int64(len(d.buf)-d.pos)*255 {
		return s, d.fail("point count %d exceeds block size", n)
	}

	capacity := int(n)
	if capacity > 4096 {
		capacity = 4096
	}
	s.Points = make([]RawPoint, 0, capacity)
	first, err := d.absolute(pressure)
	if err != nil {
		return s, err
	}
	s.Points = append(s.Points, first)

	for uint32(len(s.Points)) < n {
		dx, err := d.i8()
		if err != nil {
			return s, err
		}
		if dx == EscapeDelta {
			pt, err := d.absolute(pressure)
			if err != nil {
				return s, err
			}
			s.Points = append(s.Points, pt)
			continue
		}

		dy, err := d.i8()
		if err != nil {
			return s, err
		}
		dp := 0
		if pressure {
			if dp, err = d.i8(); err != nil {
				return s, err
			}
		}
		repeat, err := d.u8()
		if err != nil {
			return s, err
		}
		if repeat == 0 {
			return s, d.fail("zero run length")
		}
		if uint32(len(s.Points))+uint32(repeat) > n {
			return s, d.fail("run of %d overflows point count %d", repeat, n)
		}

		prev := s.Points[len(s.Points)-1]
		for r := 0; r < int(repeat); r++ {
			next := RawPoint{X: prev.X + dx, Y: prev.Y + dy, P: prev.P + dp}
			if next.X < 0 || next.Y < 0 || next.X > 0xffff || next.Y > 0xffff {
				return s, d.fail("coordinate out of range (%d,%d)", next.X, next.Y)
			}
			if next.P < 0 || next.P > MaxPressure {
				return s, d.fail("pressure out of range %d", next.P)
			}
			s.Points = append(s.Points, next)
			prev = next
		}
	}
	return s, nil
}

func (d *decoder) absolute(pressure bool) (RawPoint, error) {
	x, err := d.u16()
	if err != nil {
		return RawPoint{}, err
	}
	y, err := d.u16()
	if err != nil {
		return RawPoint{}, err
	}
	p := uint16(MaxPressure)
	if pressure {
		if p, err = d.u16(); err != nil {
			return RawPoint{}, err
		}
		if p > MaxPressure {
			return RawPoint{}, d.fail("pressure out of range %d", p)
		}
	}
	return RawPoint{X: int(x), Y: int(y), P: int(p)}, nil
}
