package filters

import "fmt"

// ASCIIHexDecode decodes pairs of hex digits. White space is skipped and
// '>' ends the data. An odd final digit is read as if followed by 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	odd := false
	for i, c := range data {
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		v, ok := unhex(c)
		if !ok {
			return nil, fmt.Errorf("ASCIIHexDecode: invalid digit %q at %d", c, i)
		}
		if odd {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		odd = !odd
	}
	if odd {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data. A leading "<~" is accepted, 'z'
// stands for four zero bytes and '~' ends the data. A final partial group
// of n characters yields n-1 bytes.
func ASCII85Decode(data []byte) ([]byte, error) {
	i := 0
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i+1 < len(data) && data[i] == '<' && data[i+1] == '~' {
		i += 2
	}

	out := make([]byte, 0, len(data)*4/5)
	var group [5]byte
	n := 0
scan:
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case isSpace(c):
			continue
		case c == '~':
			break scan
		case c == 'z':
			if n != 0 {
				return nil, fmt.Errorf("ASCII85Decode: 'z' inside a group at %d", i)
			}
			out = append(out, 0, 0, 0, 0)
			continue
		case c < '!' || c > 'u':
			return nil, fmt.Errorf("ASCII85Decode: invalid character %q at %d", c, i)
		}
		group[n] = c - '!'
		n++
		if n == 5 {
			var err error
			if out, err = appendGroup(out, group, 4); err != nil {
				return nil, err
			}
			n = 0
		}
	}

	if n > 1 {
		for j := n; j < 5; j++ {
			group[j] = 'u' - '!'
		}
		return appendGroup(out, group, n-1)
	}
	return out, nil
}

// appendGroup appends the first count bytes of the value of a five digit
// group.
func appendGroup(out []byte, group [5]byte, count int) ([]byte, error) {
	var v uint64
	for _, d := range group {
		v = v*85 + uint64(d)
	}
	if v > 0xFFFFFFFF {
		return nil, fmt.Errorf("ASCII85Decode: group value %d overflows 32 bits", v)
	}
	word := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return append(out, word[:count]...), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}
