package core

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// pdfDocHigh maps PDFDocEncoding bytes 0x80-0xAD. Bytes from 0xAE up agree
// with Latin-1; 0x9F and 0xAD are undefined.
var pdfDocHigh = [...]rune{
	0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044, // 80
	0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018, // 88
	0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160, // 90
	0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E, 0xFFFD, // 98
	0x20AC, 0x00A1, 0x00A2, 0x00A3, 0x00A4, 0x00A5, 0x00A6, 0x00A7, // A0
	0x00A8, 0x00A9, 0x00AA, 0x00AB, 0x00AC, 0xFFFD, // A8
}

// pdfDocLow maps the accent characters at 0x18-0x1F.
var pdfDocLow = [...]rune{
	0x02D8, 0x02C7, 0x02C6, 0x02D9, 0x02DD, 0x02DB, 0x02DA, 0x02DC,
}

// DecodeTextString converts a PDF text string to UTF-8. Strings starting
// with a UTF-16BE byte order mark are decoded as UTF-16, strings with a
// UTF-8 mark are taken as is, everything else is PDFDocEncoding. The
// result is NFC-normalized.
func DecodeTextString(s String) string {
	b := []byte(s)
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err != nil {
			return decodePDFDoc(b)
		}
		return norm.NFC.String(string(out))
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return norm.NFC.String(string(b[3:]))
	default:
		return decodePDFDoc(b)
	}
}

func decodePDFDoc(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c >= 0x18 && c <= 0x1F:
			sb.WriteRune(pdfDocLow[c-0x18])
		case c >= 0x80 && c <= 0xAD:
			sb.WriteRune(pdfDocHigh[c-0x80])
		default:
			sb.WriteRune(rune(c))
		}
	}
	return norm.NFC.String(sb.String())
}

// TextOf returns obj decoded as a text string, or "" if it is not a string.
func TextOf(obj Object) string {
	if s, ok := obj.(String); ok {
		return DecodeTextString(s)
	}
	return ""
}
