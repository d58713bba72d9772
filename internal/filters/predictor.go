package filters

import "fmt"

// predictor describes the /Predictor family of parameters shared by
// FlateDecode and LZWDecode.
type predictor struct {
	kind    int
	colors  int
	bpc     int
	columns int
}

func newPredictor(p Params) predictor {
	return predictor{
		kind:    p.Int("Predictor", 1),
		colors:  p.Int("Colors", 1),
		bpc:     p.Int("BitsPerComponent", 8),
		columns: p.Int("Columns", 1),
	}
}

// stride is the number of bytes in one row of samples.
func (pr predictor) stride() int {
	return (pr.columns*pr.colors*pr.bpc + 7) / 8
}

// pixel is the distance in bytes to the corresponding byte of the
// previous pixel, at least 1.
func (pr predictor) pixel() int {
	if n := pr.colors * pr.bpc / 8; n > 1 {
		return n
	}
	return 1
}

func (pr predictor) validate() error {
	switch pr.bpc {
	case 1, 2, 4, 8, 16:
	default:
		return fmt.Errorf("predictor: unsupported BitsPerComponent %d", pr.bpc)
	}
	if pr.colors < 1 || pr.colors > 32 {
		return fmt.Errorf("predictor: invalid Colors %d", pr.colors)
	}
	if pr.columns < 1 {
		return fmt.Errorf("predictor: invalid Columns %d", pr.columns)
	}
	return nil
}

func (pr predictor) apply(data []byte) ([]byte, error) {
	switch {
	case pr.kind <= 1:
		return data, nil
	case pr.kind != 2 && (pr.kind < 10 || pr.kind > 15):
		return nil, fmt.Errorf("predictor: unsupported value %d", pr.kind)
	}
	if err := pr.validate(); err != nil {
		return nil, err
	}
	if pr.kind == 2 {
		return pr.tiff(data), nil
	}
	return pr.png(data)
}

// png reverses PNG row filters. Each row carries its own filter tag, so
// the value of /Predictor beyond "10 or more" does not matter. A partial
// final row is dropped.
func (pr predictor) png(data []byte) ([]byte, error) {
	stride := pr.stride()
	bpp := pr.pixel()
	rows := len(data) / (stride + 1)
	out := make([]byte, rows*stride)
	prev := make([]byte, stride)

	for r := 0; r < rows; r++ {
		in := data[r*(stride+1):]
		tag, src := in[0], in[1:stride+1]
		cur := out[r*stride : (r+1)*stride]
		copy(cur, src)

		switch tag {
		case 0:
		case 1:
			for i := bpp; i < stride; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2:
			for i := range cur {
				cur[i] += prev[i]
			}
		case 3:
			for i := range cur {
				var left int
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4:
			for i := range cur {
				var left, upLeft byte
				if i >= bpp {
					left, upLeft = cur[i-bpp], prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("predictor: unknown PNG filter %d in row %d", tag, r)
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tiff reverses TIFF predictor 2: every component is stored as the
// difference from the same component of the pixel to its left.
func (pr predictor) tiff(data []byte) []byte {
	stride := pr.stride()
	rows := len(data) / stride
	out := make([]byte, rows*stride)
	copy(out, data)

	for r := 0; r < rows; r++ {
		row := out[r*stride : (r+1)*stride]
		switch pr.bpc {
		case 8:
			for i := pr.colors; i < len(row); i++ {
				row[i] += row[i-pr.colors]
			}
		case 16:
			step := 2 * pr.colors
			for i := step; i+1 < len(row); i += 2 {
				v := uint16(row[i])<<8 | uint16(row[i+1])
				v += uint16(row[i-step])<<8 | uint16(row[i-step+1])
				row[i], row[i+1] = byte(v>>8), byte(v)
			}
		default:
			pr.tiffPacked(row)
		}
	}
	return out
}

// tiffPacked handles components narrower than a byte. They never straddle
// a byte boundary since bpc divides 8.
func (pr predictor) tiffPacked(row []byte) {
	mask := 1<<pr.bpc - 1
	left := make([]int, pr.colors)
	for s := 0; s < pr.columns*pr.colors; s++ {
		bit := s * pr.bpc
		shift := 8 - pr.bpc - bit%8
		v := int(row[bit/8]>>shift) & mask
		c := s % pr.colors
		if s >= pr.colors {
			v = (v + left[c]) & mask
			row[bit/8] = row[bit/8]&^byte(mask<<shift) | byte(v<<shift)
		}
		left[c] = v
	}
}
