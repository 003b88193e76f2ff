// Package pdf reads existing PDF documents far enough to locate pages and
// their attributes, and writes modifications back as incremental update
// sections appended after the original bytes. Keeping the original byte range
// untouched is what makes the original-hash/signed-hash pair meaningful: the
// source document is always a verbatim prefix of the signed output.
package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Object is any value of the PDF object model.
type Object interface {
	encode(buf *bytes.Buffer)
}

// Name is a PDF name without its leading slash.
type Name string

// Integer and Real are kept distinct so integers round-trip without a
// fractional rendering (object numbers, lengths and counts must stay whole).
type (
	Integer int64
	Real    float64
)

// Boolean mirrors the PDF true/false keywords.
type Boolean bool

// String is a literal string; arbitrary bytes are allowed.
type String []byte

// HexString preserves <...> spelling, used mostly for file identifiers.
type HexString []byte

// Array is an ordered heterogeneous sequence.
type Array []Object

// Dict maps names to objects.
type Dict map[Name]Object

// Null is the PDF null object.
type Null struct{}

// Ref is an indirect reference "n g R".
type Ref struct {
	Num int
	Gen int
}

// Stream couples a dictionary with raw (still encoded) stream bytes. The
// Length entry of the dictionary is authoritative for len(Raw) on encode.
type Stream struct {
	Dict Dict
	Raw  []byte
}

// keyword is a lexer-internal token for obj/endobj/stream/R and friends. It
// never appears in a parsed object tree handed to callers.
type keyword string

func (n Name) encode(buf *bytes.Buffer) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= ' ' || c == '#' || c == '/' || c == '(' || c == ')' || c == '<' || c == '>' ||
			c == '[' || c == ']' || c == '{' || c == '}' || c == '%' || c > '~' {
			fmt.Fprintf(buf, "#%02X", c)
		} else {
			buf.WriteByte(c)
		}
	}
}

func (i Integer) encode(buf *bytes.Buffer) {
	buf.WriteString(strconv.FormatInt(int64(i), 10))
}

func (r Real) encode(buf *bytes.Buffer) {
	// Exponent notation is not legal in PDF; 'f' keeps plain decimals.
	buf.WriteString(strconv.FormatFloat(float64(r), 'f', -1, 64))
}

func (b Boolean) encode(buf *bytes.Buffer) {
	if b {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
}

func (s String) encode(buf *bytes.Buffer) {
	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func (h HexString) encode(buf *bytes.Buffer) {
	buf.WriteByte('<')
	for _, c := range h {
		fmt.Fprintf(buf, "%02X", c)
	}
	buf.WriteByte('>')
}

func (a Array) encode(buf *bytes.Buffer) {
	buf.WriteByte('[')
	for i, obj := range a {
		if i > 0 {
			buf.WriteByte(' ')
		}
		encodeObject(buf, obj)
	}
	buf.WriteByte(']')
}

func (d Dict) encode(buf *bytes.Buffer) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	// Deterministic output keeps signed hashes reproducible for identical
	// inputs.
	sort.Strings(keys)

	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte(' ')
		Name(k).encode(buf)
		buf.WriteByte(' ')
		encodeObject(buf, d[Name(k)])
	}
	buf.WriteString(" >>")
}

func (Null) encode(buf *bytes.Buffer) {
	buf.WriteString("null")
}

func (r Ref) encode(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "%d %d R", r.Num, r.Gen)
}

func (s *Stream) encode(buf *bytes.Buffer) {
	d := Dict{}
	for k, v := range s.Dict {
		d[k] = v
	}
	d["Length"] = Integer(len(s.Raw))
	d.encode(buf)
	buf.WriteString("\nstream\n")
	buf.Write(s.Raw)
	buf.WriteString("\nendstream")
}

func (k keyword) encode(buf *bytes.Buffer) {
	buf.WriteString(string(k))
}

func encodeObject(buf *bytes.Buffer, obj Object) {
	if obj == nil {
		Null{}.encode(buf)
		return
	}
	obj.encode(buf)
}

// EncodeObject renders an object in PDF syntax.
func EncodeObject(obj Object) []byte {
	var buf bytes.Buffer
	encodeObject(&buf, obj)
	return buf.Bytes()
}

// numberValue widens either numeric type to float64.
func numberValue(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}
