package reader

import (
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/pdfreader/core"
)

// Metadata is the document information dictionary with its text strings
// decoded.
type Metadata struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
	Raw          core.Dict
}

// Metadata reads the trailer's /Info dictionary. It returns nil, nil when
// the document has none.
func (d *Document) Metadata() (*Metadata, error) {
	infoObj := d.Trailer().Get("Info")
	if infoObj == nil {
		return nil, nil
	}

	resolved, err := d.Resolve(infoObj)
	if err != nil {
		return nil, core.NewError(core.KindReference, -1, err,
			"trailer not found or does not point to document information directory")
	}
	if core.IsNull(resolved) {
		return nil, nil
	}
	info, ok := resolved.(core.Dict)
	if !ok {
		return nil, core.NewError(core.KindReference, -1, nil,
			"trailer not found or does not point to document information directory")
	}

	text := func(key string) string {
		v, err := d.Resolve(info.Get(key))
		if err != nil {
			return ""
		}
		return core.TextOf(v)
	}

	return &Metadata{
		Title:        text("Title"),
		Author:       text("Author"),
		Subject:      text("Subject"),
		Keywords:     text("Keywords"),
		Creator:      text("Creator"),
		Producer:     text("Producer"),
		CreationDate: ParseDate(text("CreationDate")),
		ModDate:      ParseDate(text("ModDate")),
		Raw:          info,
	}, nil
}

// ParseDate parses a PDF date string of the form D:YYYYMMDDHHmmSSOHH'mm'.
// Every field after the year is optional. An unparsable string gives the
// zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return time.Time{}
	}

	// year, month, day, hour, minute, second
	fields := [6]int{0, 1, 1, 0, 0, 0}
	widths := [6]int{4, 2, 2, 2, 2, 2}
	pos := 0
	for i, w := range widths {
		if pos+w > len(s) || !allDigits(s[pos:pos+w]) {
			if i == 0 {
				return time.Time{}
			}
			break
		}
		fields[i], _ = strconv.Atoi(s[pos : pos+w])
		pos += w
	}

	loc := time.UTC
	if pos < len(s) {
		loc = parseZone(s[pos:])
	}

	return time.Date(fields[0], time.Month(fields[1]), fields[2],
		fields[3], fields[4], fields[5], 0, loc)
}

// parseZone parses the O HH'mm' suffix of a date.
func parseZone(s string) *time.Location {
	if s == "" || s[0] == 'Z' {
		return time.UTC
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return time.UTC
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s[1:])
	if len(digits) < 2 {
		return time.UTC
	}
	hours, _ := strconv.Atoi(digits[:2])
	minutes := 0
	if len(digits) >= 4 {
		minutes, _ = strconv.Atoi(digits[2:4])
	}

	offset := sign * (hours*3600 + minutes*60)
	return time.FixedZone("", offset)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
