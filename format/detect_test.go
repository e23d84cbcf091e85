package format

import (
	"bytes"
	"testing"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{Note, "NOTE"},
		{PDF, "PDF"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Extension(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{Note, ".note"},
		{PDF, ".pdf"},
		{Unknown, ""},
	}

	for _, tt := range tests {
		if got := tt.format.Extension(); got != tt.want {
			t.Errorf("Format(%d).Extension() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"20240307_101500.note", Note},
		{"Meeting.NOTE", Note},
		{"Meeting.Note", Note},
		{"document.pdf", PDF},
		{"document.PDF", PDF},
		{"document.txt", Unknown},
		{"document", Unknown},
		{"", Unknown},
		{"/path/to/file.note", Note},
		{"/path/to/file.pdf", PDF},
		{"archive.note.bak", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := Detect(tt.filename); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"note", []byte("noteSN_FILE_VER_20230015"), Note},
		{"pdf", []byte("%PDF-1.7\n"), PDF},
		{"short", []byte("no"), Unknown},
		{"empty", nil, Unknown},
		{"zip", []byte{0x50, 0x4B, 0x03, 0x04}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFromReader(t *testing.T) {
	got, err := DetectFromReader(bytes.NewReader([]byte("note....")))
	if err != nil {
		t.Fatalf("DetectFromReader failed: %v", err)
	}
	if got != Note {
		t.Errorf("DetectFromReader() = %v, want Note", got)
	}

	got, err = DetectFromReader(bytes.NewReader([]byte("%P")))
	if err != nil {
		t.Fatalf("DetectFromReader failed on short input: %v", err)
	}
	if got != Unknown {
		t.Errorf("DetectFromReader() = %v, want Unknown", got)
	}
}

func TestSwapExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Note/Meeting.note", "Note/Meeting.pdf"},
		{"plain", "plain.pdf"},
		{"a.b.note", "a.b.pdf"},
	}
	for _, tt := range tests {
		if got := SwapExtension(tt.in, PDF); got != tt.want {
			t.Errorf("SwapExtension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
