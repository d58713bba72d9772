package filters

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data as used by PDF: MSB-first codes growing
// from 9 to 12 bits. EarlyChange 1, the default, widens codes one code
// early, which is the TIFF variant; 0 is plain LZW. Data that ends without
// an EOD code keeps what was decoded. Predictor parameters are applied as
// for FlateDecode.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var r io.ReadCloser
	if params.Int("EarlyChange", 1) == 0 {
		r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("LZW decode: %w", err)
	}
	return newPredictor(params).apply(out)
}
