package filters

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// faxOptions is the decoded form of CCITTFaxDecode parameters.
type faxOptions struct {
	format  ccitt.SubFormat
	columns int
	rows    int
	opts    ccitt.Options
}

func newFaxOptions(p Params) (faxOptions, error) {
	f := faxOptions{
		format:  ccitt.Group3,
		columns: p.Int("Columns", 1728),
		rows:    p.Int("Rows", 0),
		opts: ccitt.Options{
			Align:  p.Bool("EncodedByteAlign", false),
			Invert: p.Bool("BlackIs1", false),
		},
	}
	if p.Int("K", 0) < 0 {
		f.format = ccitt.Group4
	}
	if f.columns < 1 {
		return f, fmt.Errorf("CCITTFaxDecode: invalid Columns %d", f.columns)
	}
	if f.rows <= 0 {
		f.rows = ccitt.AutoDetectHeight
	}
	return f, nil
}

// CCITTFaxDecode expands Group 3 or Group 4 fax data to one bit per
// pixel, MSB first. K < 0 selects Group 4. Without /Rows the height is
// taken from the data.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	f, err := newFaxOptions(params)
	if err != nil {
		return nil, err
	}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, f.format, f.columns, f.rows, &f.opts)
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("CCITTFaxDecode: %w", err)
	}
	return out, nil
}
