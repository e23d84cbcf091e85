package core

import (
	"fmt"

	"github.com/tsawler/notepdf/internal/filters"
)

// NewFlateStream returns a stream holding data compressed with FlateDecode.
func NewFlateStream(dict Dict, data []byte) (*Stream, error) {
	compressed, err := filters.FlateEncode(data)
	if err != nil {
		return nil, fmt.Errorf("flate encode: %w", err)
	}
	d := make(Dict, len(dict)+1)
	for k, v := range dict {
		d[k] = v
	}
	d["Filter"] = Name("FlateDecode")
	return &Stream{Dict: d, Data: compressed}, nil
}

// Decode decodes the stream data according to the Filter specified in the
// stream dictionary. Only FlateDecode is produced by this module, so it is
// the only filter understood.
func (s *Stream) Decode() ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}

	name, ok := filterObj.(Name)
	if !ok {
		return nil, fmt.Errorf("invalid Filter type: %T", filterObj)
	}

	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(s.Data, s.decodeParams())
	default:
		return nil, fmt.Errorf("unknown filter: %s", name)
	}
}

// decodeParams converts integer entries of /DecodeParms to filter params.
func (s *Stream) decodeParams() filters.Params {
	parms, ok := s.Dict.Get("DecodeParms").(Dict)
	if !ok {
		return nil
	}
	out := make(filters.Params, len(parms))
	for k, v := range parms {
		if i, ok := v.(Int); ok {
			out[k] = int(i)
		}
	}
	return out
}
