package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and then undoes the predictor named in
// params, if any. Data without a zlib header is inflated as raw deflate.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, err
	}
	return newPredictor(params).apply(out)
}

func inflate(data []byte) ([]byte, error) {
	var src io.ReadCloser
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, zlib.ErrHeader) {
			return nil, fmt.Errorf("flate: %w", err)
		}
		src = flate.NewReader(bytes.NewReader(data))
	} else {
		src = zr
	}
	defer src.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		// a damaged tail still leaves usable output
		if buf.Len() > 0 && isTruncation(err) {
			return buf.Bytes(), nil
		}
		return nil, fmt.Errorf("flate: %w", err)
	}
	return buf.Bytes(), nil
}

func isTruncation(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, zlib.ErrChecksum) ||
		errors.As(err, &corrupt)
}
