package pdf

import (
	"bytes"
	"errors"
	"fmt"
)

const maxTreeDepth = 64

// Document is a parsed PDF held fully in memory. It is owned by a single
// signing operation and is not safe for concurrent use.
type Document struct {
	data  []byte
	xref  *xrefTable
	pages []*Page
	cache map[int]Object
}

// Page is one leaf of the page tree with its inheritable attributes already
// resolved.
type Page struct {
	// Ref is the indirect reference of the page object; incremental updates
	// overwrite it by number.
	Ref  Ref
	Dict Dict
	// MediaBox is [llx lly urx ury] in points.
	MediaBox [4]float64
	// Resources is the effective resource dictionary value, possibly
	// inherited from an ancestor node. May be a Ref.
	Resources Object
}

// Size returns the page extent in points.
func (p *Page) Size() (width, height float64) {
	return p.MediaBox[2] - p.MediaBox[0], p.MediaBox[3] - p.MediaBox[1]
}

// Load parses a PDF from memory. The byte slice is retained; callers must not
// mutate it afterwards.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("not a PDF: missing %PDF header")
	}
	xref, err := parseXRef(data)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		data:  data,
		xref:  xref,
		cache: make(map[int]Object),
	}
	if err := doc.loadPages(); err != nil {
		return nil, err
	}
	return doc, nil
}

// PageCount returns the number of leaf pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Page returns the zero-indexed page.
func (d *Document) Page(i int) (*Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", i, len(d.pages))
	}
	return d.pages[i], nil
}

// Resolve follows indirect references until a direct object is reached.
func (d *Document) Resolve(obj Object) Object {
	for depth := 0; depth < maxTreeDepth; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		next, err := d.getObject(ref.Num)
		if err != nil {
			return Null{}
		}
		obj = next
	}
	return Null{}
}

func (d *Document) getObject(num int) (Object, error) {
	if obj, ok := d.cache[num]; ok {
		return obj, nil
	}
	entry, ok := d.xref.entries[num]
	if !ok {
		return nil, fmt.Errorf("object %d not in xref", num)
	}
	if entry.free {
		return Null{}, nil
	}

	var (
		obj Object
		err error
	)
	if entry.compressed {
		obj, err = d.objectFromStream(entry.streamObj, entry.streamIdx)
	} else {
		obj, err = d.objectAt(entry.offset)
	}
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	d.cache[num] = obj
	return obj, nil
}

func (d *Document) objectAt(offset int64) (Object, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, errors.New("object offset out of range")
	}
	l := newLexer(d.data, int(offset))
	if _, err := l.readObject(); err != nil { // object number
		return nil, err
	}
	if _, err := l.readObject(); err != nil { // generation
		return nil, err
	}
	if err := l.expectKeyword("obj"); err != nil {
		return nil, err
	}
	obj, err := l.readObject()
	if err != nil {
		return nil, err
	}

	dict, ok := obj.(Dict)
	if !ok {
		return obj, nil
	}
	save := l.pos
	l.skipWhitespace()
	if !bytes.HasPrefix(d.data[l.pos:], []byte("stream")) {
		l.pos = save
		return dict, nil
	}

	// Length may itself be indirect; materialize it before slicing.
	if ref, ok := dict["Length"].(Ref); ok {
		lv, err := d.getObject(ref.Num)
		if err != nil {
			return nil, fmt.Errorf("stream Length: %w", err)
		}
		dict["Length"] = lv
	}
	raw, err := readRawStream(d.data, l, dict)
	if err != nil {
		return nil, err
	}
	return &Stream{Dict: dict, Raw: raw}, nil
}

// objectFromStream extracts entry idx out of an object stream.
func (d *Document) objectFromStream(streamNum, idx int) (Object, error) {
	container, err := d.getObject(streamNum)
	if err != nil {
		return nil, err
	}
	stm, ok := container.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is not an object stream", streamNum)
	}
	decoded, err := decodeStreamWith(stm.Dict, stm.Raw, d.Resolve)
	if err != nil {
		return nil, err
	}

	n, ok := numberValue(stm.Dict["N"])
	if !ok {
		return nil, errors.New("object stream without N")
	}
	first, ok := numberValue(stm.Dict["First"])
	if !ok {
		return nil, errors.New("object stream without First")
	}
	if idx < 0 || idx >= int(n) {
		return nil, fmt.Errorf("object stream index %d out of range", idx)
	}

	l := newLexer(decoded, 0)
	var objOffset int64 = -1
	for i := 0; i < int(n); i++ {
		if _, err := l.readObject(); err != nil { // object number
			return nil, err
		}
		offObj, err := l.readObject()
		if err != nil {
			return nil, err
		}
		off, ok := numberValue(offObj)
		if !ok {
			return nil, errors.New("malformed object stream offset table")
		}
		if i == idx {
			objOffset = int64(off)
		}
	}
	if objOffset < 0 {
		return nil, errors.New("object stream entry not found")
	}

	ol := newLexer(decoded, int(first)+int(objOffset))
	return ol.readObject()
}

func (d *Document) loadPages() error {
	catalog, ok := d.Resolve(d.xref.trailer["Root"]).(Dict)
	if !ok {
		return errors.New("document catalog is not a dictionary")
	}
	rootRef, ok := catalog["Pages"].(Ref)
	if !ok {
		return errors.New("catalog has no Pages reference")
	}

	visited := make(map[Ref]bool)
	inherited := pageAttrs{mediaBox: [4]float64{0, 0, 612, 792}}
	return d.walkPages(rootRef, inherited, visited, 0)
}

type pageAttrs struct {
	mediaBox  [4]float64
	resources Object
}

func (d *Document) walkPages(ref Ref, attrs pageAttrs, visited map[Ref]bool, depth int) error {
	if depth > maxTreeDepth {
		return errors.New("page tree too deep")
	}
	if visited[ref] {
		return errors.New("cycle in page tree")
	}
	visited[ref] = true

	node, ok := d.Resolve(ref).(Dict)
	if !ok {
		return fmt.Errorf("page tree node %d is not a dictionary", ref.Num)
	}

	if mb, ok := d.mediaBox(node); ok {
		attrs.mediaBox = mb
	}
	if res, ok := node["Resources"]; ok {
		attrs.resources = res
	}

	typ, _ := node["Type"].(Name)
	if typ == "Page" || (typ == "" && node["Kids"] == nil) {
		d.pages = append(d.pages, &Page{
			Ref:       ref,
			Dict:      node,
			MediaBox:  attrs.mediaBox,
			Resources: attrs.resources,
		})
		return nil
	}

	kids, ok := d.Resolve(node["Kids"]).(Array)
	if !ok {
		return fmt.Errorf("page tree node %d has no Kids array", ref.Num)
	}
	for _, kid := range kids {
		kidRef, ok := kid.(Ref)
		if !ok {
			// Inline page nodes have no identity to overwrite; nothing this
			// pipeline can do with them.
			continue
		}
		if err := d.walkPages(kidRef, attrs, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) mediaBox(node Dict) ([4]float64, bool) {
	arr, ok := d.Resolve(node["MediaBox"]).(Array)
	if !ok || len(arr) != 4 {
		return [4]float64{}, false
	}
	var mb [4]float64
	for i, v := range arr {
		n, ok := numberValue(d.Resolve(v))
		if !ok {
			return [4]float64{}, false
		}
		mb[i] = n
	}
	// Normalize so ll is really lower-left.
	if mb[0] > mb[2] {
		mb[0], mb[2] = mb[2], mb[0]
	}
	if mb[1] > mb[3] {
		mb[1], mb[3] = mb[3], mb[1]
	}
	return mb, true
}

// maxObjectNumber returns the highest object number the file knows about.
func (d *Document) maxObjectNumber() int {
	max := 0
	for num := range d.xref.entries {
		if num > max {
			max = num
		}
	}
	return max
}
