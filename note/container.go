package note

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

const (
	fileTag     = "note"
	trailerTag  = "tail"
	headerSize  = 4 + 20
	trailerSize = 8
)

// container gives range-checked access to the blocks of one file.
type container struct {
	data   []byte
	layout Layout
}

// openContainer validates the fixed header and trailer and returns the
// container and the footer address.
func openContainer(data []byte) (*container, int64, error) {
	if len(data) < headerSize {
		return nil, 0, formatErr(TruncatedBlock, 0, "file is %d bytes, header needs %d", len(data), headerSize)
	}
	if string(data[:4]) != fileTag {
		return nil, 0, formatErr(CorruptHeader, 0, "bad file tag %q", data[:4])
	}

	sig := string(data[4:headerSize])
	if !wellFormedSignature(sig) {
		return nil, 0, formatErr(CorruptHeader, 4, "bad signature %q", sig)
	}
	layout, ok := LookupLayout(sig)
	if !ok {
		return nil, 0, formatErr(UnsupportedVersion, 4, "%s", sig)
	}

	if len(data) < headerSize+trailerSize || string(data[len(data)-trailerSize:len(data)-4]) != trailerTag {
		return nil, 0, formatErr(TruncatedBlock, int64(len(data)), "missing trailer")
	}
	footer := int64(binary.LittleEndian.Uint32(data[len(data)-4:]))

	return &container{data: data, layout: layout}, footer, nil
}

// block returns the payload of the block at addr after range and checksum
// validation.
func (c *container) block(addr int64) ([]byte, error) {
	end := int64(len(c.data) - trailerSize)
	if addr < headerSize || addr+4 > end {
		return nil, formatErr(TruncatedBlock, addr, "block address outside file (size %d)", len(c.data))
	}

	length := int64(binary.LittleEndian.Uint32(c.data[addr:]))
	start := addr + 4
	stop := start + length
	if c.layout.Checksummed {
		if stop+4 > end {
			return nil, formatErr(TruncatedBlock, addr, "block of %d bytes runs past end of data", length)
		}
		want := binary.LittleEndian.Uint32(c.data[stop:])
		if got := crc32.ChecksumIEEE(c.data[start:stop]); got != want {
			return nil, formatErr(ChecksumMismatch, addr, "crc %08x, stored %08x", got, want)
		}
	} else if stop > end {
		return nil, formatErr(TruncatedBlock, addr, "block of %d bytes runs past end of data", length)
	}

	return c.data[start:stop], nil
}

// tags reads the block at addr as metadata.
func (c *container) tags(addr int64) (Tags, error) {
	payload, err := c.block(addr)
	if err != nil {
		return nil, err
	}
	t, err := ParseTags(payload)
	if err != nil {
		return nil, &FormatError{Kind: CorruptHeader, Offset: addr, Msg: "bad metadata", Err: err}
	}
	return t, nil
}

// Tag is one <KEY:VALUE> pair.
type Tag struct {
	Key   string
	Value string
}

// Tags is an ordered list of metadata pairs. Keys may repeat.
type Tags []Tag

// ParseTags parses a metadata payload. Whitespace between tags is ignored.
func ParseTags(payload []byte) (Tags, error) {
	var tags Tags
	s := string(payload)
	for i := 0; i < len(s); {
		switch s[i] {
		case ' ', '\t', '\r', '\n', 0:
			i++
			continue
		case '<':
		default:
			return nil, fmt.Errorf("unexpected byte 0x%02x at %d", s[i], i)
		}

		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			return nil, fmt.Errorf("unterminated tag at %d", i)
		}
		inner := s[i+1 : i+end]
		colon := strings.IndexByte(inner, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("tag without key at %d", i)
		}
		tags = append(tags, Tag{Key: inner[:colon], Value: inner[colon+1:]})
		i += end + 1
	}
	return tags, nil
}

// Get returns the first value for key.
func (t Tags) Get(key string) (string, bool) {
	for _, tag := range t {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Value returns the first value for key, or "".
func (t Tags) Value(key string) string {
	v, _ := t.Get(key)
	return v
}

// Addr parses the first value for key as a block address. Zero, missing
// and unparsable values report false.
func (t Tags) Addr(key string) (int64, bool) {
	v, ok := t.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Map returns the first value of every key.
func (t Tags) Map() map[string]string {
	m := make(map[string]string, len(t))
	for _, tag := range t {
		if _, ok := m[tag.Key]; !ok {
			m[tag.Key] = tag.Value
		}
	}
	return m
}

// Encode renders tags in container syntax.
func (t Tags) Encode() []byte {
	var b strings.Builder
	for _, tag := range t {
		b.WriteByte('<')
		b.WriteString(tag.Key)
		b.WriteByte(':')
		b.WriteString(tag.Value)
		b.WriteByte('>')
	}
	return []byte(b.String())
}
