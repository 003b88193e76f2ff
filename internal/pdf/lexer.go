package pdf

import (
	"fmt"
	"strconv"
	"strings"
)

// lexer tokenizes PDF syntax out of an in-memory byte slice. Everything the
// reader touches is already in memory (signing operates on complete byte
// payloads), so an index into a slice beats buffered readers and their
// seek-invalidation headaches.
type lexer struct {
	data []byte
	pos  int
}

func newLexer(data []byte, pos int) *lexer {
	return &lexer{data: data, pos: pos}
}

func (l *lexer) readObject() (Object, error) {
	l.skipWhitespace()
	if l.pos >= len(l.data) {
		return nil, fmt.Errorf("unexpected end of data at offset %d", l.pos)
	}

	switch c := l.data[l.pos]; {
	case c == '/':
		return l.readName(), nil
	case c == '(':
		return l.readString()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDict()
		}
		return l.readHexString()
	case c == '[':
		return l.readArray()
	case c == '%':
		l.skipComment()
		return l.readObject()
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.readNumberOrRef()
	case isAlpha(c):
		return l.readKeyword(), nil
	default:
		return nil, fmt.Errorf("unexpected byte %q at offset %d", c, l.pos)
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			l.skipComment()
			continue
		}
		break
	}
}

func (l *lexer) skipComment() {
	for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
		l.pos++
	}
}

func (l *lexer) readName() Name {
	l.pos++ // slash
	var sb strings.Builder
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
		if c == '#' && l.pos+1 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos:l.pos+2]), 16, 8); err == nil {
				sb.WriteByte(byte(v))
				l.pos += 2
				continue
			}
		}
		sb.WriteByte(c)
	}
	return Name(sb.String())
}

func (l *lexer) readString() (String, error) {
	l.pos++ // opening paren
	var out []byte
	depth := 1
	for {
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated string literal")
		}
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return nil, fmt.Errorf("unterminated escape in string literal")
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\n':
				// line continuation
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				oct := []byte{e}
				for len(oct) < 3 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7' {
					oct = append(oct, l.data[l.pos])
					l.pos++
				}
				v, _ := strconv.ParseUint(string(oct), 8, 16)
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		default:
			out = append(out, c)
		}
	}
}

func (l *lexer) readHexString() (HexString, error) {
	l.pos++ // '<'
	var digits []byte
	for {
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated hex string")
		}
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad hex string digit: %w", err)
		}
		out[i] = byte(v)
	}
	return HexString(out), nil
}

func (l *lexer) readArray() (Array, error) {
	l.pos++ // '['
	var arr Array
	for {
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		obj, err := l.readObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *lexer) readDict() (Object, error) {
	l.pos += 2 // '<<'
	dict := Dict{}
	for {
		l.skipWhitespace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return dict, nil
		}
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		keyObj, err := l.readObject()
		if err != nil {
			return nil, err
		}
		key, ok := keyObj.(Name)
		if !ok {
			return nil, fmt.Errorf("dictionary key must be a name, got %T", keyObj)
		}
		val, err := l.readObject()
		if err != nil {
			return nil, err
		}
		dict[key] = val
	}
}

// readNumberOrRef disambiguates "12", "12.5" and "12 0 R" by tentatively
// parsing ahead and rolling back when the reference shape does not complete.
func (l *lexer) readNumberOrRef() (Object, error) {
	first := l.readToken()

	save := l.pos
	l.skipWhitespace()
	genTok := l.readToken()
	if isAllDigits(genTok) && genTok != "" {
		l.skipWhitespace()
		if l.pos < len(l.data) && l.data[l.pos] == 'R' {
			after := l.pos + 1
			if after >= len(l.data) || isWhitespace(l.data[after]) || isDelimiter(l.data[after]) {
				l.pos = after
				num, err1 := strconv.Atoi(first)
				gen, err2 := strconv.Atoi(genTok)
				if err1 == nil && err2 == nil {
					return Ref{Num: num, Gen: gen}, nil
				}
			}
		}
	}
	l.pos = save

	return parseNumber(first)
}

func parseNumber(tok string) (Object, error) {
	if strings.ContainsAny(tok, ".eE") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", tok, err)
		}
		return Real(f), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad integer %q: %w", tok, err)
	}
	return Integer(i), nil
}

func (l *lexer) readKeyword() Object {
	tok := l.readToken()
	switch tok {
	case "true":
		return Boolean(true)
	case "false":
		return Boolean(false)
	case "null":
		return Null{}
	}
	return keyword(tok)
}

func (l *lexer) readToken() string {
	start := l.pos
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// expectKeyword consumes the next token and checks it.
func (l *lexer) expectKeyword(kw string) error {
	l.skipWhitespace()
	obj, err := l.readObject()
	if err != nil {
		return err
	}
	if k, ok := obj.(keyword); !ok || string(k) != kw {
		return fmt.Errorf("expected %q, got %v", kw, obj)
	}
	return nil
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
