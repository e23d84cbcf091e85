package note

import "fmt"

// Kind classifies a FormatError.
type Kind int

const (
	// UnsupportedVersion means the signature is well formed but unknown.
	UnsupportedVersion Kind = iota + 1
	// CorruptHeader means the file header, header block or footer is unusable.
	CorruptHeader
	// TruncatedBlock means a block extends past the data, or the trailer is missing.
	TruncatedBlock
	// ChecksumMismatch means a block failed its CRC-32 check.
	ChecksumMismatch
	// CorruptRecord means a stroke block could not be decoded.
	CorruptRecord
)

func (k Kind) String() string {
	switch k {
	case UnsupportedVersion:
		return "unsupported version"
	case CorruptHeader:
		return "corrupt header"
	case TruncatedBlock:
		return "truncated block"
	case ChecksumMismatch:
		return "checksum mismatch"
	case CorruptRecord:
		return "corrupt record"
	default:
		return "format error"
	}
}

// FormatError reports a container that cannot be decoded.
type FormatError struct {
	Kind   Kind
	Offset int64 // byte offset of the offending block, or -1
	Msg    string
	Err    error
}

// Sentinels for errors.Is. They match any FormatError of the same Kind.
var (
	ErrUnsupportedVersion = &FormatError{Kind: UnsupportedVersion, Offset: -1}
	ErrCorruptHeader      = &FormatError{Kind: CorruptHeader, Offset: -1}
	ErrTruncatedBlock     = &FormatError{Kind: TruncatedBlock, Offset: -1}
	ErrChecksumMismatch   = &FormatError{Kind: ChecksumMismatch, Offset: -1}
	ErrCorruptRecord      = &FormatError{Kind: CorruptRecord, Offset: -1}
)

func (e *FormatError) Error() string {
	msg := "note: " + e.Kind.String()
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is matches sentinels by Kind.
func (e *FormatError) Is(target error) bool {
	t, ok := target.(*FormatError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

func formatErr(kind Kind, offset int64, format string, args ...interface{}) *FormatError {
	return &FormatError{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
