package core

import (
	"bytes"
	"fmt"
)

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // obj, endobj, stream, true, null, ...
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello), escapes already applied
	TokenHexString   // <48656C6C6F>, digits only
	TokenName        // /Type, #xx escapes already applied
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

var tokenNames = [...]string{
	TokenEOF:         "EOF",
	TokenComment:     "comment",
	TokenKeyword:     "keyword",
	TokenInteger:     "integer",
	TokenReal:        "real",
	TokenString:      "string",
	TokenHexString:   "hex string",
	TokenName:        "name",
	TokenArrayStart:  "[",
	TokenArrayEnd:    "]",
	TokenDictStart:   "<<",
	TokenDictEnd:     ">>",
	TokenIndirectRef: "R",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical token. Pos is the offset of its first byte in the
// data the lexer was created on.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

// Lexer splits PDF syntax into tokens. It works directly on a byte slice,
// which is usually the whole file.
type Lexer struct {
	data []byte
	pos  int64
}

// NewLexer creates a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return NewLexerAt(data, 0)
}

// NewLexerAt creates a lexer positioned at offset in data.
func NewLexerAt(data []byte, offset int64) *Lexer {
	offset = max(0, min(offset, int64(len(data))))
	return &Lexer{data: data, pos: offset}
}

// Position returns the offset of the next unread byte.
func (l *Lexer) Position() int64 {
	return l.pos
}

// Seek moves the lexer to offset.
func (l *Lexer) Seek(offset int64) {
	l.pos = max(0, min(offset, int64(len(l.data))))
}

func (l *Lexer) atEnd() bool {
	return l.pos >= int64(len(l.data))
}

// at returns the byte i positions ahead, or 0 past the end.
func (l *Lexer) at(i int64) (byte, bool) {
	if l.pos+i >= int64(len(l.data)) {
		return 0, false
	}
	return l.data[l.pos+i], true
}

// NextToken returns the next token. At the end of the data it returns a
// TokenEOF token and no error.
func (l *Lexer) NextToken() (*Token, error) {
	l.skipWhitespace()
	start := l.pos
	b, ok := l.at(0)
	if !ok {
		return &Token{Type: TokenEOF, Pos: start}, nil
	}

	switch {
	case b == '%':
		return l.readComment(), nil
	case b == '[':
		l.pos++
		return &Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case b == ']':
		l.pos++
		return &Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case b == '(':
		return l.readString()
	case b == '<':
		if next, _ := l.at(1); next == '<' {
			l.pos += 2
			return &Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case b == '>':
		if next, _ := l.at(1); next == '>' {
			l.pos += 2
			return &Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at offset %d", start)
	case b == '/':
		return l.readName()
	case isDigit(b) || b == '-' || b == '+' || b == '.':
		return l.readNumber(), nil
	case isRegular(b):
		return l.readKeyword(), nil
	}
	return nil, fmt.Errorf("unexpected character %q at offset %d", b, start)
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
}

// readComment reads from % up to, not including, the end of the line.
func (l *Lexer) readComment() *Token {
	start := l.pos
	for !l.atEnd() && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
		l.pos++
	}
	return &Token{Type: TokenComment, Value: l.data[start:l.pos], Pos: start}
}

var escapes = map[byte]byte{
	'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f',
	'(': '(', ')': ')', '\\': '\\',
}

// readString reads a literal string. Balanced parentheses need no escape;
// an end-of-line is normalized to \n.
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1

	for {
		b, ok := l.at(0)
		if !ok {
			return nil, fmt.Errorf("unterminated string starting at offset %d", start)
		}
		l.pos++

		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
		case '\r':
			if next, _ := l.at(0); next == '\n' {
				l.pos++
			}
			b = '\n'
		case '\\':
			next, ok := l.at(0)
			if !ok {
				continue
			}
			l.pos++
			if c, ok := escapes[next]; ok {
				buf.WriteByte(c)
				continue
			}
			switch {
			case next == '\r':
				// line continuation
				if n, _ := l.at(0); n == '\n' {
					l.pos++
				}
			case next == '\n':
			case isOctalDigit(next):
				v := next - '0'
				for i := 0; i < 2; i++ {
					d, ok := l.at(0)
					if !ok || !isOctalDigit(d) {
						break
					}
					v = v<<3 | (d - '0')
					l.pos++
				}
				buf.WriteByte(v)
			default:
				buf.WriteByte(next)
			}
			continue
		}
		buf.WriteByte(b)
	}
}

// readHexString reads <...>. Whitespace is dropped; other non-hex bytes
// are an error.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.pos++ // <
	var digits []byte

	for {
		b, ok := l.at(0)
		if !ok {
			return nil, fmt.Errorf("unterminated hex string starting at offset %d", start)
		}
		l.pos++
		switch {
		case b == '>':
			return &Token{Type: TokenHexString, Value: digits, Pos: start}, nil
		case isWhitespace(b):
		case isHexDigit(b):
			digits = append(digits, b)
		default:
			return nil, fmt.Errorf("invalid hex digit %q at offset %d", b, l.pos-1)
		}
	}
}

// readName reads /Name and decodes #xx escapes. A # that is not followed
// by two hex digits is kept literally.
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.pos++ // /
	var name []byte

	for !l.atEnd() {
		b := l.data[l.pos]
		if !isRegular(b) {
			break
		}
		l.pos++
		if b == '#' {
			h1, ok1 := l.at(0)
			h2, ok2 := l.at(1)
			if ok1 && ok2 && isHexDigit(h1) && isHexDigit(h2) {
				name = append(name, hexValue(h1)<<4|hexValue(h2))
				l.pos += 2
				continue
			}
		}
		name = append(name, b)
	}
	return &Token{Type: TokenName, Value: name, Pos: start}, nil
}

// readNumber reads an integer or real. The token may be malformed ("-",
// "1.2.3" stops at the second dot); the parser decides what it means.
func (l *Lexer) readNumber() *Token {
	start := l.pos
	typ := TokenInteger
	if b := l.data[l.pos]; b == '+' || b == '-' {
		l.pos++
	}
	for !l.atEnd() {
		b := l.data[l.pos]
		if b == '.' && typ == TokenInteger {
			typ = TokenReal
		} else if !isDigit(b) {
			break
		}
		l.pos++
	}
	return &Token{Type: typ, Value: l.data[start:l.pos], Pos: start}
}

// readKeyword reads a run of regular characters. A lone R is an indirect
// reference marker.
func (l *Lexer) readKeyword() *Token {
	start := l.pos
	for !l.atEnd() && isRegular(l.data[l.pos]) {
		l.pos++
	}
	value := l.data[start:l.pos]
	if len(value) == 1 && value[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: value, Pos: start}
	}
	return &Token{Type: TokenKeyword, Value: value, Pos: start}
}

// SkipStreamEOL moves past the end-of-line after the stream keyword.
// CRLF and LF are standard; spaces before it and a lone CR are accepted.
func (l *Lexer) SkipStreamEOL() {
	for !l.atEnd() && (l.data[l.pos] == ' ' || l.data[l.pos] == '\t') {
		l.pos++
	}
	switch b, _ := l.at(0); b {
	case '\n':
		l.pos++
	case '\r':
		l.pos++
		if next, _ := l.at(0); next == '\n' {
			l.pos++
		}
	}
}

// isWhitespace reports PDF white-space: NUL, HT, LF, FF, CR and SP.
func isWhitespace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// isRegular reports bytes that can be part of a name or keyword.
func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

func isOctalDigit(b byte) bool {
	return '0' <= b && b <= '7'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
