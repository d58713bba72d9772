package core

import (
	"fmt"

	"github.com/tsawler/pdfreader/internal/filters"
)

// passthroughFilters are image codecs whose encoded bytes are the payload.
var passthroughFilters = map[string]bool{
	"DCTDecode": true, "DCT": true,
	"JPXDecode":   true,
	"JBIG2Decode": true,
}

// Decode applies the stream's filters in order and returns the result.
// /DecodeParms is either one dictionary for a single filter or an array
// parallel to /Filter.
func (s *Stream) Decode() ([]byte, error) {
	names := s.Filters()
	if len(names) == 0 {
		if f := s.Dict.Get("Filter"); f != nil && !IsNull(f) {
			if arr, ok := f.(Array); !ok || len(arr) > 0 {
				return nil, fmt.Errorf("invalid /Filter %v", f)
			}
		}
		return s.Data, nil
	}

	parms := s.Dict.Get("DecodeParms")
	data := s.Data
	for i, name := range names {
		var p Dict
		switch v := parms.(type) {
		case Dict:
			p = v
		case Array:
			if i < len(v) {
				p, _ = v[i].(Dict)
			}
		}

		out, err := applyFilter(name, data, p)
		if err != nil {
			if len(names) == 1 {
				return nil, err
			}
			return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
		data = out
	}
	return data, nil
}

func applyFilter(name string, data []byte, parms Dict) ([]byte, error) {
	if passthroughFilters[name] {
		return data, nil
	}
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, filterParams(parms))
	case "LZWDecode", "LZW":
		return filters.LZWDecode(data, filterParams(parms))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return filters.RunLengthDecode(data)
	case "CCITTFaxDecode", "CCF":
		return filters.CCITTFaxDecode(data, filterParams(parms))
	case "Crypt":
		// decryption happens in the security handler; only Identity
		// can be applied here
		if n, ok := parms.GetName("Name"); ok && n != "Identity" {
			return nil, fmt.Errorf("crypt filter /%s not supported", n)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown filter: %s", name)
}

// filterParams converts decode parameters to plain Go values.
func filterParams(d Dict) filters.Params {
	if d == nil {
		return nil
	}
	p := make(filters.Params, len(d))
	for k, v := range d {
		switch o := v.(type) {
		case Int:
			p[k] = int(o)
		case Real:
			p[k] = float64(o)
		case Bool:
			p[k] = bool(o)
		case Name:
			p[k] = string(o)
		case String:
			p[k] = string(o)
		default:
			p[k] = v
		}
	}
	return p
}
