package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// FlateEncode compresses data with zlib at the best compression level.
// Output is deterministic for identical input.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	return buf.Bytes(), nil
}

// FlateEncodePNGUp applies the PNG Up predictor to rows of columns×colors
// bytes, then compresses the result.
func FlateEncodePNGUp(data []byte, columns, colors int) ([]byte, error) {
	rowSize := columns * colors
	if rowSize <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	rows := len(data) / rowSize
	predicted := make([]byte, 0, rows*(rowSize+1))
	for r := 0; r < rows; r++ {
		row := data[r*rowSize : (r+1)*rowSize]
		predicted = append(predicted, 2)
		if r == 0 {
			predicted = append(predicted, row...)
			continue
		}
		prev := data[(r-1)*rowSize : r*rowSize]
		for i := range row {
			predicted = append(predicted, row[i]-prev[i])
		}
	}
	return FlateEncode(predicted)
}

// PNGUpParams returns the DecodeParms entries matching FlateEncodePNGUp.
func PNGUpParams(columns, colors int) Params {
	return Params{
		"Predictor":        12,
		"Columns":          columns,
		"Colors":           colors,
		"BitsPerComponent": 8,
	}
}

// FlateDecode decompresses Flate (zlib/deflate) compressed data.
// It undoes PNG predictors 10-15 when params specify one.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	decompressed, err := zlibDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	predictor := getIntParam(params, "Predictor", 1)
	switch {
	case predictor == 1:
		return decompressed, nil
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(decompressed, params)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

// zlibDecompress decompresses zlib-compressed data using the standard library.
func zlibDecompress(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	return buf.Bytes(), nil
}

// applyPNGPredictor reverses the None, Sub and Up row filters. Each row starts
// with a filter type byte. Average and Paeth are never produced by this
// module and are rejected.
func applyPNGPredictor(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	if bpc != 8 {
		return nil, fmt.Errorf("PNG predictor only supports 8 bits per component, got %d", bpc)
	}

	rowLen := columns * colors
	rowSize := rowLen + 1
	if len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	numRows := len(data) / rowSize
	result := make([]byte, numRows*rowLen)
	for row := 0; row < numRows; row++ {
		in := data[row*rowSize+1 : (row+1)*rowSize]
		out := result[row*rowLen : (row+1)*rowLen]
		switch data[row*rowSize] {
		case 0:
			copy(out, in)
		case 1:
			for i := range in {
				var left byte
				if i >= colors {
					left = out[i-colors]
				}
				out[i] = in[i] + left
			}
		case 2:
			for i := range in {
				var up byte
				if row > 0 {
					up = result[(row-1)*rowLen+i]
				}
				out[i] = in[i] + up
			}
		default:
			return nil, fmt.Errorf("unsupported PNG filter type %d in row %d", data[row*rowSize], row)
		}
	}

	return result, nil
}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	switch v := obj.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}
