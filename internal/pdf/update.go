package pdf

import (
	"bytes"
	"fmt"
	"sort"
)

// Bytes finalizes the update and returns the full signed document: the
// original bytes verbatim, followed by one incremental update section with
// the new content streams, resources, page overwrites and a cross-reference
// section of the same flavor (classic table or xref stream) as the file being
// extended.
func (u *Updater) Bytes() ([]byte, error) {
	if !u.HasChanges() {
		// Nothing injected; the signed output is byte-identical to the
		// source apart from nothing at all. Return a copy so callers can
		// treat the result as owned.
		out := make([]byte, len(u.doc.data))
		copy(out, u.doc.data)
		return out, nil
	}

	pageIndexes := make([]int, 0, len(u.pages))
	for idx := range u.pages {
		pageIndexes = append(pageIndexes, idx)
	}
	sort.Ints(pageIndexes)

	for _, idx := range pageIndexes {
		if err := u.finalizePage(idx); err != nil {
			return nil, err
		}
	}

	out := make([]byte, len(u.doc.data), len(u.doc.data)+4096)
	copy(out, u.doc.data)
	if len(out) > 0 && out[len(out)-1] != '\n' && out[len(out)-1] != '\r' {
		out = append(out, '\n')
	}
	buf := bytes.NewBuffer(out)

	offsets := make(map[int]int64, len(u.objects))
	gens := make(map[int]int, len(u.objects))
	for _, obj := range u.objects {
		offsets[obj.ref.Num] = int64(buf.Len())
		gens[obj.ref.Num] = obj.ref.Gen
		fmt.Fprintf(buf, "%d %d obj\n", obj.ref.Num, obj.ref.Gen)
		buf.Write(EncodeObject(obj.body))
		buf.WriteString("\nendobj\n")
	}

	if u.doc.xref.streamBased {
		return u.writeXRefStreamSection(buf, offsets, gens)
	}
	return u.writeClassicXRefSection(buf, offsets, gens)
}

// finalizePage turns the accumulated drawing ops for one page into a content
// stream and an overwritten page object.
func (u *Updater) finalizePage(index int) error {
	up := u.pages[index]
	if up.ops.Len() == 0 {
		return nil
	}
	pg, err := u.doc.Page(index)
	if err != nil {
		return err
	}

	// The original content may leave the graphics state transformed. Bracket
	// it: a "q" stream before, and a leading "Q" in ours, so injected
	// coordinates always see the page's default coordinate system.
	saveRef := u.add(&Stream{Dict: Dict{}, Raw: []byte("q\n")})
	body := append([]byte("Q\n"), up.ops.Bytes()...)
	contentRef := u.add(&Stream{Dict: Dict{}, Raw: body})

	newPage := Dict{}
	for k, v := range pg.Dict {
		newPage[k] = v
	}
	newPage["Contents"] = u.rebuildContents(pg, saveRef, contentRef)
	newPage["Resources"] = u.rebuildResources(pg, up)
	// Attributes are materialized onto the leaf so the overwrite cannot lose
	// values it used to inherit.
	if _, ok := newPage["MediaBox"]; !ok {
		newPage["MediaBox"] = Array{
			Real(pg.MediaBox[0]), Real(pg.MediaBox[1]),
			Real(pg.MediaBox[2]), Real(pg.MediaBox[3]),
		}
	}

	entry := u.doc.xref.entries[pg.Ref.Num]
	u.objects = append(u.objects, updateObject{
		ref:  Ref{Num: pg.Ref.Num, Gen: entry.generation},
		body: newPage,
	})
	return nil
}

func (u *Updater) rebuildContents(pg *Page, saveRef, contentRef Ref) Array {
	switch orig := pg.Dict["Contents"].(type) {
	case nil:
		return Array{saveRef, contentRef}
	case Ref:
		if arr, ok := u.doc.Resolve(orig).(Array); ok {
			out := Array{saveRef}
			out = append(out, arr...)
			return append(out, contentRef)
		}
		return Array{saveRef, orig, contentRef}
	case Array:
		out := Array{saveRef}
		out = append(out, orig...)
		return append(out, contentRef)
	default:
		return Array{saveRef, contentRef}
	}
}

func (u *Updater) rebuildResources(pg *Page, up *pageUpdate) Dict {
	res := Dict{}
	if orig, ok := u.doc.Resolve(pg.Resources).(Dict); ok {
		for k, v := range orig {
			res[k] = v
		}
	}

	merge := func(key Name, extra Dict) {
		if len(extra) == 0 {
			return
		}
		sub := Dict{}
		if orig, ok := u.doc.Resolve(res[key]).(Dict); ok {
			for k, v := range orig {
				sub[k] = v
			}
		}
		for k, v := range extra {
			sub[k] = v
		}
		res[key] = sub
	}
	merge("XObject", up.xobjects)
	merge("Font", up.fonts)
	return res
}

func (u *Updater) writeClassicXRefSection(buf *bytes.Buffer, offsets map[int]int64, gens map[int]int) ([]byte, error) {
	nums := sortedKeys(offsets)
	xrefPos := buf.Len()

	buf.WriteString("xref\n")
	for _, run := range contiguousRuns(nums) {
		fmt.Fprintf(buf, "%d %d\n", run[0], len(run))
		for _, num := range run {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[num], gens[num])
		}
	}

	trailer := u.updateTrailer()
	buf.WriteString("trailer\n")
	buf.Write(EncodeObject(trailer))
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes(), nil
}

func (u *Updater) writeXRefStreamSection(buf *bytes.Buffer, offsets map[int]int64, gens map[int]int) ([]byte, error) {
	// The xref stream is itself an indirect object and indexes itself.
	streamRef := u.alloc()
	xrefPos := int64(buf.Len())
	offsets[streamRef.Num] = xrefPos
	gens[streamRef.Num] = 0

	nums := sortedKeys(offsets)

	var index Array
	var data bytes.Buffer
	for _, run := range contiguousRuns(nums) {
		index = append(index, Integer(run[0]), Integer(len(run)))
		for _, num := range run {
			off := offsets[num]
			data.Write([]byte{
				1,
				byte(off >> 24), byte(off >> 16), byte(off >> 8), byte(off),
				byte(gens[num] >> 8), byte(gens[num]),
			})
		}
	}

	dict := u.updateTrailer()
	dict["Type"] = Name("XRef")
	dict["W"] = Array{Integer(1), Integer(4), Integer(2)}
	dict["Index"] = index
	dict["Size"] = Integer(u.nextNum)

	fmt.Fprintf(buf, "%d 0 obj\n", streamRef.Num)
	buf.Write(EncodeObject(&Stream{Dict: dict, Raw: data.Bytes()}))
	buf.WriteString("\nendobj\n")
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes(), nil
}

// updateTrailer carries the document-level entries forward and chains to the
// previous cross-reference section.
func (u *Updater) updateTrailer() Dict {
	tr := Dict{
		"Size": Integer(u.nextNum),
		"Prev": Integer(u.doc.xref.start),
	}
	if root, ok := u.doc.xref.trailer["Root"]; ok {
		tr["Root"] = root
	}
	if info, ok := u.doc.xref.trailer["Info"]; ok {
		tr["Info"] = info
	}
	if id, ok := u.doc.xref.trailer["ID"]; ok {
		tr["ID"] = id
	}
	return tr
}

func sortedKeys(m map[int]int64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// contiguousRuns groups sorted object numbers into the consecutive spans xref
// subsections require.
func contiguousRuns(nums []int) [][]int {
	var runs [][]int
	for _, n := range nums {
		if len(runs) == 0 || n != runs[len(runs)-1][len(runs[len(runs)-1])-1]+1 {
			runs = append(runs, []int{n})
			continue
		}
		last := runs[len(runs)-1]
		runs[len(runs)-1] = append(last, n)
	}
	return runs
}
