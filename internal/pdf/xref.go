package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type xrefEntry struct {
	offset     int64
	generation int
	free       bool
	// compressed entries live inside an object stream
	compressed bool
	streamObj  int
	streamIdx  int
}

type xrefTable struct {
	entries map[int]xrefEntry
	trailer Dict
	// start is the byte offset of the newest cross-reference section, the
	// /Prev target for the next incremental update.
	start int64
	// streamBased records whether the newest section is an xref stream;
	// update sections must use the same flavor as the file they extend.
	streamBased bool
}

func parseXRef(data []byte) (*xrefTable, error) {
	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}

	table := &xrefTable{
		entries: make(map[int]xrefEntry),
		trailer: Dict{},
		start:   start,
	}

	visited := make(map[int64]bool)
	offset := start
	first := true
	for offset > 0 {
		if visited[offset] || offset >= int64(len(data)) {
			break
		}
		visited[offset] = true

		streamBased := !bytes.HasPrefix(data[offset:], []byte("xref"))
		if first {
			table.streamBased = streamBased
			first = false
		}

		var (
			prev int64
			tr   Dict
		)
		if streamBased {
			prev, tr, err = table.readXRefStream(data, offset)
		} else {
			prev, tr, err = table.readClassicXRef(data, offset)
		}
		if err != nil {
			return nil, err
		}

		// Newer sections win; only fill keys we have not seen yet.
		for k, v := range tr {
			if _, ok := table.trailer[k]; !ok {
				table.trailer[k] = v
			}
		}

		// Hybrid-reference files point at an additional xref stream.
		if x, ok := tr["XRefStm"]; ok {
			if off, ok := numberValue(x); ok && !visited[int64(off)] {
				visited[int64(off)] = true
				if _, _, err := table.readXRefStream(data, int64(off)); err != nil {
					return nil, fmt.Errorf("hybrid xref stream: %w", err)
				}
			}
		}

		offset = prev
	}

	if _, ok := table.trailer["Root"]; !ok {
		return nil, errors.New("invalid PDF: trailer has no Root")
	}
	return table, nil
}

// findStartXRef locates the startxref pointer in the file tail.
func findStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("invalid PDF: startxref not found")
	}
	l := newLexer(tail, idx+len("startxref"))
	l.skipWhitespace()
	tok := l.readToken()
	off, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset %q: %w", tok, err)
	}
	if off <= 0 || off >= int64(len(data)) {
		return 0, fmt.Errorf("startxref offset %d out of range", off)
	}
	return off, nil
}

func (t *xrefTable) readClassicXRef(data []byte, offset int64) (int64, Dict, error) {
	l := newLexer(data, int(offset)+len("xref"))

	for {
		l.skipWhitespace()
		if bytes.HasPrefix(data[l.pos:], []byte("trailer")) {
			l.pos += len("trailer")
			break
		}

		startObj, err := l.readObject()
		if err != nil {
			return 0, nil, fmt.Errorf("xref subsection start: %w", err)
		}
		countObj, err := l.readObject()
		if err != nil {
			return 0, nil, fmt.Errorf("xref subsection count: %w", err)
		}
		startNum, ok1 := startObj.(Integer)
		countNum, ok2 := countObj.(Integer)
		if !ok1 || !ok2 {
			return 0, nil, errors.New("malformed xref subsection header")
		}

		for i := 0; i < int(countNum); i++ {
			offObj, err := l.readObject()
			if err != nil {
				return 0, nil, err
			}
			genObj, err := l.readObject()
			if err != nil {
				return 0, nil, err
			}
			l.skipWhitespace()
			flag := l.readToken()

			off, ok1 := offObj.(Integer)
			gen, ok2 := genObj.(Integer)
			if !ok1 || !ok2 || (flag != "n" && flag != "f") {
				return 0, nil, errors.New("malformed xref entry")
			}

			id := int(startNum) + i
			if _, seen := t.entries[id]; !seen {
				t.entries[id] = xrefEntry{
					offset:     int64(off),
					generation: int(gen),
					free:       flag == "f",
				}
			}
		}
	}

	trObj, err := l.readObject()
	if err != nil {
		return 0, nil, fmt.Errorf("trailer dictionary: %w", err)
	}
	tr, ok := trObj.(Dict)
	if !ok {
		return 0, nil, errors.New("trailer is not a dictionary")
	}
	return prevOffset(tr), tr, nil
}

func (t *xrefTable) readXRefStream(data []byte, offset int64) (int64, Dict, error) {
	l := newLexer(data, int(offset))
	// indirect object header: num gen obj
	if _, err := l.readObject(); err != nil {
		return 0, nil, err
	}
	if _, err := l.readObject(); err != nil {
		return 0, nil, err
	}
	if err := l.expectKeyword("obj"); err != nil {
		return 0, nil, err
	}

	dictObj, err := l.readObject()
	if err != nil {
		return 0, nil, err
	}
	dict, ok := dictObj.(Dict)
	if !ok {
		return 0, nil, errors.New("xref stream object is not a dictionary")
	}
	if typ, _ := dict["Type"].(Name); typ != "XRef" {
		return 0, nil, fmt.Errorf("expected XRef stream, got type %q", typ)
	}

	raw, err := readRawStream(data, l, dict)
	if err != nil {
		return 0, nil, err
	}
	decoded, err := decodeStream(dict, raw)
	if err != nil {
		return 0, nil, fmt.Errorf("xref stream decode: %w", err)
	}

	wArr, ok := dict["W"].(Array)
	if !ok || len(wArr) < 3 {
		return 0, nil, errors.New("xref stream has no usable W array")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		v, ok := numberValue(wArr[i])
		if !ok {
			return 0, nil, errors.New("non-numeric entry in W array")
		}
		w[i] = int(v)
	}

	var index []int
	if idxArr, ok := dict["Index"].(Array); ok {
		for _, v := range idxArr {
			n, ok := numberValue(v)
			if !ok {
				return 0, nil, errors.New("non-numeric entry in Index array")
			}
			index = append(index, int(n))
		}
	} else {
		size, ok := numberValue(dict["Size"])
		if !ok {
			return 0, nil, errors.New("xref stream has neither Index nor Size")
		}
		index = []int{0, int(size)}
	}

	r := bytes.NewReader(decoded)
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			f1, err1 := readBE(r, w[0], 1)
			f2, err2 := readBE(r, w[1], 0)
			f3, err3 := readBE(r, w[2], 0)
			if err1 != nil || err2 != nil || err3 != nil {
				return 0, nil, errors.New("truncated xref stream data")
			}

			id := start + j
			if _, seen := t.entries[id]; seen {
				continue
			}
			switch f1 {
			case 0:
				t.entries[id] = xrefEntry{free: true, generation: int(f3)}
			case 1:
				t.entries[id] = xrefEntry{offset: f2, generation: int(f3)}
			case 2:
				t.entries[id] = xrefEntry{compressed: true, streamObj: int(f2), streamIdx: int(f3)}
			}
		}
	}

	return prevOffset(dict), dict, nil
}

func prevOffset(tr Dict) int64 {
	if v, ok := numberValue(tr["Prev"]); ok {
		return int64(v)
	}
	return 0
}

// readBE reads width bytes as a big-endian integer; width 0 yields def.
func readBE(r *bytes.Reader, width int, def int64) (int64, error) {
	if width == 0 {
		return def, nil
	}
	buf := make([]byte, width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// readRawStream consumes the stream keyword after a stream dictionary and
// returns the raw (still encoded) stream bytes. The lexer must be positioned
// right after the dictionary.
func readRawStream(data []byte, l *lexer, dict Dict) ([]byte, error) {
	length, ok := numberValue(dict["Length"])
	if !ok {
		return nil, errors.New("stream Length is missing or indirect")
	}

	l.skipWhitespace()
	if !bytes.HasPrefix(data[l.pos:], []byte("stream")) {
		return nil, errors.New("stream keyword not found after dictionary")
	}
	l.pos += len("stream")
	// Exactly one EOL follows the keyword; the payload starts right after and
	// may itself begin with bytes that look like whitespace.
	if l.pos < len(data) && data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(data) && data[l.pos] == '\n' {
		l.pos++
	}

	end := l.pos + int(length)
	if end > len(data) {
		return nil, errors.New("stream extends past end of data")
	}
	raw := data[l.pos:end]
	l.pos = end
	return raw, nil
}

// decodeStream applies the stream's filter chain. Only FlateDecode (with the
// optional PNG predictor) is supported, which covers xref and object streams
// produced by every mainstream writer.
func decodeStream(dict Dict, raw []byte) ([]byte, error) {
	return decodeStreamWith(dict, raw, nil)
}

// decodeStreamWith additionally resolves indirect Filter and DecodeParms
// values through resolve. The xref stream itself is decoded before object
// lookup exists, so it passes no resolver and must use direct values.
func decodeStreamWith(dict Dict, raw []byte, resolve func(Object) Object) ([]byte, error) {
	direct := func(obj Object) (Object, error) {
		if _, ok := obj.(Ref); !ok {
			return obj, nil
		}
		if resolve == nil {
			return nil, errors.New("indirect stream parameter where only direct values are usable")
		}
		return resolve(obj), nil
	}

	filterObj, err := direct(dict["Filter"])
	if err != nil {
		return nil, err
	}
	var filters []Name
	switch f := filterObj.(type) {
	case nil:
		return raw, nil
	case Name:
		filters = []Name{f}
	case Array:
		for _, v := range f {
			fv, err := direct(v)
			if err != nil {
				return nil, err
			}
			if n, ok := fv.(Name); ok {
				filters = append(filters, n)
			}
		}
	}

	// DecodeParms is a single dictionary when Filter is a name, or an array
	// aligned with the filter array; either spelling may hide behind a
	// reference.
	parmsObj, err := direct(dict["DecodeParms"])
	if err != nil {
		return nil, err
	}
	parmsFor := func(i int) (Dict, error) {
		switch p := parmsObj.(type) {
		case Dict:
			if i == 0 {
				return p, nil
			}
		case Array:
			if i < len(p) {
				v, err := direct(p[i])
				if err != nil {
					return nil, err
				}
				if d, ok := v.(Dict); ok {
					return d, nil
				}
			}
		}
		return nil, nil
	}

	out := raw
	for i, f := range filters {
		if f != "FlateDecode" {
			return nil, fmt.Errorf("unsupported stream filter %q", f)
		}
		zr, err := zlib.NewReader(bytes.NewReader(out))
		if err != nil {
			return nil, err
		}
		decoded, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, err
		}
		out = decoded

		parms, err := parmsFor(i)
		if err != nil {
			return nil, err
		}
		if parms == nil {
			continue
		}
		pred := 1
		if v, ok := numberValue(parms["Predictor"]); ok {
			pred = int(v)
		}
		if pred >= 10 {
			columns := 1
			if v, ok := numberValue(parms["Columns"]); ok {
				columns = int(v)
			}
			out, err = undoPNGPredictor(out, columns)
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// undoPNGPredictor reverses PNG row filtering (predictors 10-15) with a
// one-byte-per-sample layout, the form PDF xref streams use.
func undoPNGPredictor(data []byte, columns int) ([]byte, error) {
	rowSize := columns + 1
	if columns <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("predictor data length %d does not fit %d columns", len(data), columns)
	}
	rows := len(data) / rowSize
	out := make([]byte, rows*columns)
	prev := make([]byte, columns)

	for i := 0; i < rows; i++ {
		filter := data[i*rowSize]
		row := data[i*rowSize+1 : (i+1)*rowSize]
		dst := out[i*columns : (i+1)*columns]

		switch filter {
		case 0:
			copy(dst, row)
		case 1:
			var left byte
			for x := range row {
				left += row[x]
				dst[x] = left
			}
		case 2:
			for x := range row {
				dst[x] = row[x] + prev[x]
			}
		case 3:
			var left byte
			for x := range row {
				dst[x] = row[x] + byte((int(left)+int(prev[x]))/2)
				left = dst[x]
			}
		case 4:
			var left, upLeft byte
			for x := range row {
				dst[x] = row[x] + byte(paeth(int(left), int(prev[x]), int(upLeft)))
				upLeft = prev[x]
				left = dst[x]
			}
		default:
			return nil, fmt.Errorf("unknown PNG filter %d", filter)
		}
		copy(prev, dst)
	}
	return out, nil
}

func paeth(a, b, c int) int {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
