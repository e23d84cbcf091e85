package core

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// TextString encodes s as a PDF text string. Printable ASCII is written
// as-is; anything else is encoded as UTF-16BE with a byte order mark.
func TextString(s string) String {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return utf16String(s)
		}
	}
	return String(s)
}

func utf16String(s string) String {
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(s)
	if err != nil {
		// Invalid UTF-8 input; keep the raw bytes.
		return String(s)
	}
	return String(out)
}

// DecodeTextString reverses TextString.
func DecodeTextString(s String) (string, error) {
	b := []byte(s)
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err != nil {
			return "", fmt.Errorf("decode UTF-16 text string: %w", err)
		}
		return string(out), nil
	}
	return string(s), nil
}

// Date formats t as a PDF date string, e.g. D:20240307120000Z.
func Date(t time.Time) String {
	_, off := t.Zone()
	if off == 0 {
		return String("D:" + t.Format("20060102150405") + "Z")
	}
	sign := '+'
	if off < 0 {
		sign = '-'
		off = -off
	}
	return String(fmt.Sprintf("D:%s%c%02d'%02d'", t.Format("20060102150405"), sign, off/3600, (off%3600)/60))
}
