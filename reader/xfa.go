package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"

	"github.com/tsawler/pdfreader/core"
)

// XFA returns the XML Forms Architecture packets of the document's form,
// keyed by packet name. It returns nil, nil when the form has no /XFA.
func (d *Document) XFA() (map[string][]byte, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	form, ok := d.resolveDict(catalog.Get("AcroForm"))
	if !ok {
		return nil, nil
	}
	xfaObj, err := d.Resolve(form.Get("XFA"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /XFA: %w", err)
	}

	switch v := xfaObj.(type) {
	case core.Array:
		packets := make(map[string][]byte)
		for i := 0; i+1 < len(v); i += 2 {
			nameObj, err := d.Resolve(v[i])
			if err != nil {
				return nil, err
			}
			data, err := d.streamData(v[i+1])
			if err != nil {
				return nil, fmt.Errorf("XFA packet %d: %w", i/2, err)
			}
			packets[core.TextOf(nameObj)] = data
		}
		return packets, nil
	case *core.Stream:
		data, err := v.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode XFA stream: %w", err)
		}
		return splitXFA(data)
	}
	return nil, nil
}

// streamData resolves obj to a stream and decodes it. The result is a
// copy, so it stays valid after the Document is closed.
func (d *Document) streamData(obj core.Object) ([]byte, error) {
	resolved, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("expected stream, got %T", resolved)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

// splitXFA cuts a complete XDP document into its top-level packets: the
// children of the root element, each kept as its raw markup.
func splitXFA(data []byte) (map[string][]byte, error) {
	packets := make(map[string][]byte)
	z := html.NewTokenizer(bytes.NewReader(data))

	var (
		depth int
		name  string
		buf   bytes.Buffer
	)
	for {
		tt := z.Next()
		raw := z.Raw()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return packets, nil
			}
			return nil, z.Err()
		case html.StartTagToken:
			if depth == 1 {
				name = packetName(raw)
				buf.Reset()
			}
			if depth >= 1 {
				buf.Write(raw)
			}
			depth++
		case html.EndTagToken:
			depth--
			if depth >= 1 {
				buf.Write(raw)
			}
			if depth == 1 && name != "" {
				packets[name] = bytes.Clone(buf.Bytes())
				name = ""
			}
			if depth < 0 {
				depth = 0
			}
		case html.SelfClosingTagToken:
			if depth == 1 {
				packets[packetName(raw)] = bytes.Clone(raw)
			} else if depth > 1 {
				buf.Write(raw)
			}
		default:
			if depth >= 2 {
				buf.Write(raw)
			}
		}
	}
}

// packetName returns the local name of the element whose start tag is
// raw, keeping its case.
func packetName(raw []byte) string {
	tag := bytes.TrimPrefix(raw, []byte("<"))
	if end := bytes.IndexAny(tag, " \t\r\n/>"); end >= 0 {
		tag = tag[:end]
	}
	if colon := bytes.LastIndexByte(tag, ':'); colon >= 0 {
		tag = tag[colon+1:]
	}
	return string(tag)
}
