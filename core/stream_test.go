package core

import (
	"bytes"
	"compress/zlib"
	"testing"
)

// zlibCompress compresses data for testing
func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// TestStreamDecodeNoFilter tests stream with no filter
func TestStreamDecodeNoFilter(t *testing.T) {
	data := []byte("Raw stream data")
	stream := &Stream{
		Dict: Dict{},
		Data: data,
	}

	decoded, err := stream.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, data) {
		t.Error("decoded data should equal original when no filter")
	}
}

// TestStreamDecodeFlateDecode tests FlateDecode filter
func TestStreamDecodeFlateDecode(t *testing.T) {
	original := []byte("This is test data for FlateDecode")
	stream := &Stream{
		Dict: Dict{"Filter": Name("FlateDecode")},
		Data: zlibCompress(original),
	}

	decoded, err := stream.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !bytes.Equal(decoded, original) {
		t.Errorf("decoded data doesn't match\ngot:  %s\nwant: %s", decoded, original)
	}
}

// TestNewFlateStream tests the compress/decode round trip
func TestNewFlateStream(t *testing.T) {
	content := []byte("q 0 G 1 w 10 10 m 20 20 l S Q")
	stream, err := NewFlateStream(Dict{"Type": Name("XObject")}, content)
	if err != nil {
		t.Fatalf("NewFlateStream failed: %v", err)
	}

	if f, _ := stream.Dict.GetName("Filter"); f != "FlateDecode" {
		t.Errorf("Filter = %q, want FlateDecode", f)
	}
	if t2, _ := stream.Dict.GetName("Type"); t2 != "XObject" {
		t.Errorf("Type = %q, want XObject", t2)
	}

	decoded, err := stream.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Errorf("round trip mismatch: %q", decoded)
	}
}

// TestStreamDecodeUnknownFilter tests an unsupported filter
func TestStreamDecodeUnknownFilter(t *testing.T) {
	stream := &Stream{Dict: Dict{"Filter": Name("LZWDecode")}, Data: []byte("x")}
	if _, err := stream.Decode(); err == nil {
		t.Error("expected error for unknown filter")
	}

	stream = &Stream{Dict: Dict{"Filter": Int(1)}, Data: []byte("x")}
	if _, err := stream.Decode(); err == nil {
		t.Error("expected error for non-name filter")
	}
}
