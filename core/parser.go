package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/tsawler/pdfreader/diag"
)

// ReferenceResolver resolves indirect references. The parser uses it for
// stream /Length values given as references.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds objects from the tokens of a Lexer, with one token of
// lookahead for "num gen R" references.
//
// Token positions are offsets in the data the parser was created on, so a
// parser over the whole file reports file offsets. Stream data is sliced
// from that data; a wrong /Length is repaired by searching for endstream.
type Parser struct {
	lexer *Lexer
	cur   *Token
	peek  *Token
	err   error // first tokenizer error

	src      []byte
	limit    int64 // end of the endstream search
	resolver ReferenceResolver
	diag     *diag.Collector
	strict   bool
}

// NewParser creates a parser for data starting at its first byte.
func NewParser(data []byte) *Parser {
	return NewParserAt(data, 0)
}

// NewParserAt creates a parser that starts reading data at offset.
func NewParserAt(data []byte, offset int64) *Parser {
	return NewParserWithin(data, offset, int64(len(data)))
}

// NewParserWithin creates a parser that starts at offset and reads no
// token past limit. A stream whose /Length is wrong is searched for
// endstream only up to limit; a correct /Length may still reach past it.
func NewParserWithin(data []byte, offset, limit int64) *Parser {
	limit = max(0, min(limit, int64(len(data))))
	p := &Parser{
		lexer: NewLexerAt(data[:limit], offset),
		src:   data,
		limit: limit,
	}
	p.advance()
	p.advance()
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetDiagnostics routes parser warnings to c.
func (p *Parser) SetDiagnostics(c *diag.Collector) {
	p.diag = c
}

// SetStrict makes recoverable syntax problems (duplicate dictionary keys,
// wrong stream lengths) fatal.
func (p *Parser) SetStrict(strict bool) {
	p.strict = strict
}

// Offset returns the position of the next unconsumed token.
func (p *Parser) Offset() int64 {
	if p.cur != nil {
		return p.cur.Pos
	}
	return p.lexer.Position()
}

// advance shifts the lookahead. The token after a stream keyword is not
// read, since binary data follows.
func (p *Parser) advance() {
	p.cur = p.peek
	if p.cur != nil && p.cur.Type == TokenKeyword && string(p.cur.Value) == "stream" {
		p.peek = nil
		return
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		// stop at the bad byte instead of looping on a stale token
		if p.err == nil {
			p.err = err
		}
		tok = &Token{Type: TokenEOF, Pos: p.lexer.Position()}
	}
	p.peek = tok
}

// restart discards the lookahead and continues at offset.
func (p *Parser) restart(offset int64) {
	p.lexer.Seek(offset)
	p.cur, p.peek = nil, nil
	p.advance()
	p.advance()
}

func (p *Parser) skipComments() {
	for p.cur != nil && p.cur.Type == TokenComment {
		p.advance()
	}
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur != nil && p.cur.Type == TokenKeyword && string(p.cur.Value) == kw
}

// ParseObject parses the next direct object, or an indirect reference.
// It returns io.EOF at the end of the data.
func (p *Parser) ParseObject() (Object, error) {
	p.skipComments()
	tok := p.cur
	if tok == nil {
		return nil, io.ErrUnexpectedEOF
	}

	switch tok.Type {
	case TokenEOF:
		if p.err != nil {
			return nil, fmt.Errorf("at offset %d: %w", tok.Pos, p.err)
		}
		return nil, io.EOF
	case TokenInteger:
		return p.parseNumber()
	case TokenReal:
		p.advance()
		// malformed reals such as "-." read as zero
		v, _ := strconv.ParseFloat(string(tok.Value), 64)
		return Real(v), nil
	case TokenString:
		p.advance()
		return String(tok.Value), nil
	case TokenHexString:
		p.advance()
		return decodeHex(tok.Value), nil
	case TokenName:
		p.advance()
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	case TokenKeyword:
		var obj Object
		switch string(tok.Value) {
		case "null":
			obj = Null{}
		case "true":
			obj = Bool(true)
		case "false":
			obj = Bool(false)
		default:
			return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
		}
		p.advance()
		return obj, nil
	}
	return nil, fmt.Errorf("unexpected %v %q at offset %d", tok.Type, tok.Value, tok.Pos)
}

// decodeHex turns hex digits into bytes. An odd final digit is followed
// by an implied 0.
func decodeHex(digits []byte) String {
	out := make([]byte, (len(digits)+1)/2)
	for i, d := range digits {
		if i%2 == 0 {
			out[i/2] = hexValue(d) << 4
		} else {
			out[i/2] |= hexValue(d)
		}
	}
	return String(out)
}

// parseNumber parses an integer, or an indirect reference when the
// integer is followed by another integer and R.
func (p *Parser) parseNumber() (Object, error) {
	first := p.cur
	n, err := strconv.ParseInt(string(first.Value), 10, 64)
	p.advance()
	if err != nil {
		// a lone sign
		return Int(0), nil
	}

	if p.cur == nil || p.cur.Type != TokenInteger || p.peek == nil || p.peek.Type != TokenIndirectRef {
		return Int(n), nil
	}
	gen, err := strconv.ParseInt(string(p.cur.Value), 10, 64)
	if err != nil {
		return Int(n), nil
	}
	p.advance() // generation
	p.advance() // R
	return IndirectRef{Number: int(n), Generation: int(gen)}, nil
}

func (p *Parser) parseArray() (Object, error) {
	open := p.cur.Pos
	p.advance()

	arr := Array{}
	for {
		p.skipComments()
		switch {
		case p.cur == nil || p.cur.Type == TokenEOF:
			return nil, fmt.Errorf("array starting at offset %d is not closed", open)
		case p.cur.Type == TokenArrayEnd:
			p.advance()
			return arr, nil
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses << /Key value ... >>. A repeated key keeps its first
// value; lenient parsers warn, strict ones fail.
func (p *Parser) parseDict() (Object, error) {
	open := p.cur.Pos
	p.advance()

	dict := make(Dict)
	for {
		p.skipComments()
		switch {
		case p.cur == nil || p.cur.Type == TokenEOF:
			return nil, fmt.Errorf("dictionary starting at offset %d is not closed", open)
		case p.cur.Type == TokenDictEnd:
			p.advance()
			return dict, nil
		case p.cur.Type != TokenName:
			return nil, fmt.Errorf("dictionary key expected at offset %d, got %v", p.cur.Pos, p.cur.Type)
		}

		key, keyPos := string(p.cur.Value), p.cur.Pos
		p.advance()
		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("value of /%s: %w", key, err)
		}

		if _, dup := dict[key]; dup {
			if p.strict {
				return nil, errorAt(KindStructural, keyPos, nil,
					"Multiple definitions in dictionary at byte 0x%x for key /%s", keyPos, key)
			}
			p.diag.Warn(diag.ClassDuplicateKey, keyPos,
				"Multiple definitions in dictionary at byte 0x%x for key /%s", keyPos, key)
			continue
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "num gen obj ... endobj", including a
// stream body. A missing endobj is tolerated, and "num gen obj endobj"
// defines null.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipComments()

	var nums [2]int
	for i, what := range []string{"object number", "generation number"} {
		if p.cur == nil || p.cur.Type != TokenInteger {
			return nil, fmt.Errorf("%s expected at offset %d", what, p.Offset())
		}
		n, err := strconv.Atoi(string(p.cur.Value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s %q at offset %d", what, p.cur.Value, p.cur.Pos)
		}
		nums[i] = n
		p.advance()
	}
	if !p.isKeyword("obj") {
		return nil, fmt.Errorf("obj keyword expected at offset %d", p.Offset())
	}
	p.advance()

	var obj Object = Null{}
	if !p.isKeyword("endobj") {
		var err error
		if obj, err = p.ParseObject(); err != nil {
			return nil, fmt.Errorf("object %d %d: %w", nums[0], nums[1], err)
		}
	}

	if p.isKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream keyword after %T", nums[0], nums[1], obj)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", nums[0], nums[1], err)
		}
		obj = stream
	}

	if p.isKeyword("endobj") {
		p.advance()
	}
	return &IndirectObject{
		Ref:    IndirectRef{Number: nums[0], Generation: nums[1]},
		Object: obj,
	}, nil
}

// streamLength returns the declared /Length, resolving a reference.
func (p *Parser) streamLength(dict Dict) (int, error) {
	obj := dict.Get("Length")
	if ref, ok := obj.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, fmt.Errorf("stream /Length %v needs a resolver", ref)
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("stream /Length %v: %w", ref, err)
		}
		obj = resolved
	}

	switch v := obj.(type) {
	case Int:
		if v < 0 {
			return 0, fmt.Errorf("negative stream /Length %d", v)
		}
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("stream dictionary has no /Length")
	default:
		return 0, fmt.Errorf("stream /Length is %T, not an integer", obj)
	}
}

// parseStream reads stream data after the stream keyword. The data is
// taken from the source bytes. When the declared length does not end at
// endstream, the data runs up to the next endstream keyword instead.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	length, lenErr := p.streamLength(dict)

	p.lexer.SkipStreamEOL()
	start := p.lexer.Position()
	src := p.src
	end := int64(-1)

	if lenErr == nil && start+int64(length) <= int64(len(src)) {
		after := skipSpace(src, start+int64(length))
		if bytes.HasPrefix(src[after:], endstreamKeyword) {
			end = start + int64(length)
		}
	}

	if end < 0 {
		idx := -1
		if start <= p.limit {
			idx = bytes.Index(src[start:p.limit], endstreamKeyword)
		}
		switch {
		case idx < 0 && lenErr != nil:
			return nil, lenErr
		case idx < 0:
			return nil, errorAt(KindStructural, start, nil, "stream data at byte %d not terminated by endstream", start)
		case p.strict && lenErr != nil:
			return nil, lenErr
		case p.strict:
			return nil, errorAt(KindStructural, start, nil,
				"stream /Length %d does not match endstream at byte %d", length, start+int64(idx))
		}
		found := start + int64(idx)
		p.diag.Warn(diag.ClassStreamLength, start, "stream /Length incorrect, data ends at byte %d", found)
		end = trimEOL(src, start, found)
	}

	p.restart(skipSpace(src, end) + int64(len(endstreamKeyword)))
	return &Stream{Dict: dict, Data: src[start:end], Offset: start}, nil
}

var endstreamKeyword = []byte("endstream")

// skipSpace returns the first position at or after pos that is not PDF
// whitespace.
func skipSpace(data []byte, pos int64) int64 {
	for pos < int64(len(data)) && isWhitespace(data[pos]) {
		pos++
	}
	return pos
}

// trimEOL drops one EOL marker that precedes end, never moving before start.
func trimEOL(data []byte, start, end int64) int64 {
	if end > start && data[end-1] == '\n' {
		end--
		if end > start && data[end-1] == '\r' {
			end--
		}
	} else if end > start && data[end-1] == '\r' {
		end--
	}
	return end
}

// ReadObjectHeader reads an "num gen obj" header at offset, skipping
// leading whitespace and comments. It returns the reference and the
// position just after the obj keyword.
func ReadObjectHeader(data []byte, offset int64) (IndirectRef, int64, error) {
	pos := offset
	size := int64(len(data))
	if pos < 0 || pos >= size {
		return IndirectRef{}, offset, fmt.Errorf("offset %d out of range", offset)
	}

	skip := func() {
		for pos < size {
			switch {
			case isWhitespace(data[pos]):
				pos++
			case data[pos] == '%':
				for pos < size && data[pos] != '\n' && data[pos] != '\r' {
					pos++
				}
			default:
				return
			}
		}
	}
	readInt := func() (int, bool) {
		begin := pos
		for pos < size && isDigit(data[pos]) {
			pos++
		}
		if pos == begin || pos-begin > 10 {
			return 0, false
		}
		n, err := strconv.Atoi(string(data[begin:pos]))
		return n, err == nil
	}

	skip()
	num, ok := readInt()
	if !ok {
		return IndirectRef{}, offset, fmt.Errorf("no object number at offset %d", offset)
	}
	skip()
	gen, ok := readInt()
	if !ok {
		return IndirectRef{}, offset, fmt.Errorf("no generation number at offset %d", offset)
	}
	skip()
	if !bytes.HasPrefix(data[pos:], []byte("obj")) {
		return IndirectRef{}, offset, fmt.Errorf("no obj keyword at offset %d", offset)
	}
	pos += 3
	return IndirectRef{Number: num, Generation: gen}, pos, nil
}
