package pdf

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/sauravkrkushwaha/BoloSign/internal/geometry"
)

// Resource names added by an update section. The prefix keeps them clear of
// anything a sane producer would have used on the original pages.
const (
	imageNamePrefix = "BSIm"
	helveticaName   = "BSHelv"
	dingbatsName    = "BSZaDb"
	checkGlyph      = "4" // ZapfDingbats code for the check mark
)

// Updater accumulates page mutations against a loaded document and serializes
// them as one incremental update section. It is single-use: build, inject,
// then call Bytes once.
type Updater struct {
	doc     *Document
	nextNum int

	objects []updateObject
	pages   map[int]*pageUpdate

	helvRef Ref
	dingRef Ref
	imgSeq  int
}

type updateObject struct {
	ref  Ref
	body Object
}

type pageUpdate struct {
	ops      bytes.Buffer
	xobjects Dict
	fonts    Dict
}

// NewUpdater prepares an update section for doc.
func NewUpdater(doc *Document) *Updater {
	return &Updater{
		doc:     doc,
		nextNum: doc.maxObjectNumber() + 1,
		pages:   map[int]*pageUpdate{},
	}
}

func (u *Updater) alloc() Ref {
	ref := Ref{Num: u.nextNum}
	u.nextNum++
	return ref
}

func (u *Updater) add(body Object) Ref {
	ref := u.alloc()
	u.objects = append(u.objects, updateObject{ref: ref, body: body})
	return ref
}

func (u *Updater) page(index int) (*Page, *pageUpdate, error) {
	pg, err := u.doc.Page(index)
	if err != nil {
		return nil, nil, err
	}
	up := u.pages[index]
	if up == nil {
		up = &pageUpdate{xobjects: Dict{}, fonts: Dict{}}
		u.pages[index] = up
	}
	return pg, up, nil
}

// HasChanges reports whether any injection succeeded.
func (u *Updater) HasChanges() bool { return len(u.pages) > 0 }

// DrawImage decodes the raster payload and draws it inside rect on the given
// page, scaled to fit while preserving aspect ratio and centered both ways.
// rect is in page-local points, bottom-left origin.
func (u *Updater) DrawImage(pageIndex int, rect geometry.PointRect, payload []byte) error {
	img, err := embedImage(payload)
	if err != nil {
		return err
	}
	if img.width <= 0 || img.height <= 0 || rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("degenerate image or rectangle")
	}
	pg, up, err := u.page(pageIndex)
	if err != nil {
		return err
	}

	if img.smask != nil {
		smaskRef := u.add(img.smask)
		img.xobject.Dict["SMask"] = smaskRef
	}
	imgRef := u.add(img.xobject)
	name := Name(imageNamePrefix + strconv.Itoa(u.imgSeq))
	u.imgSeq++
	up.xobjects[name] = imgRef

	scale := rect.Width / float64(img.width)
	if s := rect.Height / float64(img.height); s < scale {
		scale = s
	}
	drawW := float64(img.width) * scale
	drawH := float64(img.height) * scale
	drawX := pg.MediaBox[0] + rect.X + (rect.Width-drawW)/2
	drawY := pg.MediaBox[1] + rect.Y + (rect.Height-drawH)/2

	fmt.Fprintf(&up.ops, "q\n%s 0 0 %s %s %s cm\n", fnum(drawW), fnum(drawH), fnum(drawX), fnum(drawY))
	var nb bytes.Buffer
	name.encode(&nb)
	fmt.Fprintf(&up.ops, "%s Do\nQ\n", nb.String())
	return nil
}

// DrawText renders text left-anchored with a small inset, vertically centered
// in rect. rect is in page-local points, bottom-left origin.
func (u *Updater) DrawText(pageIndex int, rect geometry.PointRect, text string) error {
	if text == "" {
		return nil
	}
	pg, up, err := u.page(pageIndex)
	if err != nil {
		return err
	}

	if u.helvRef == (Ref{}) {
		u.helvRef = u.add(Dict{
			"Type":     Name("Font"),
			"Subtype":  Name("Type1"),
			"BaseFont": Name("Helvetica"),
			"Encoding": Name("WinAnsiEncoding"),
		})
	}
	up.fonts[helveticaName] = u.helvRef

	size := fitFontSize(rect.Height)
	const inset = 4.0
	x := pg.MediaBox[0] + rect.X + inset
	// Baseline sits a quarter of the em above the box midline floor, which
	// optically centers Latin text of this size.
	y := pg.MediaBox[1] + rect.Y + (rect.Height-size)/2 + size*0.25

	u.writeText(up, Name(helveticaName), size, x, y, text)
	return nil
}

// DrawCheck renders the checkbox glyph centered-left in rect when checked is
// true; an unchecked choice draws nothing.
func (u *Updater) DrawCheck(pageIndex int, rect geometry.PointRect, checked bool) error {
	if !checked {
		return nil
	}
	pg, up, err := u.page(pageIndex)
	if err != nil {
		return err
	}

	if u.dingRef == (Ref{}) {
		u.dingRef = u.add(Dict{
			"Type":     Name("Font"),
			"Subtype":  Name("Type1"),
			"BaseFont": Name("ZapfDingbats"),
		})
	}
	up.fonts[dingbatsName] = u.dingRef

	size := fitFontSize(rect.Height)
	const inset = 2.0
	x := pg.MediaBox[0] + rect.X + inset
	y := pg.MediaBox[1] + rect.Y + (rect.Height-size)/2 + size*0.2

	u.writeText(up, Name(dingbatsName), size, x, y, checkGlyph)
	return nil
}

func (u *Updater) writeText(up *pageUpdate, font Name, size, x, y float64, text string) {
	var fb bytes.Buffer
	font.encode(&fb)
	fmt.Fprintf(&up.ops, "q\nBT\n%s %s Tf\n%s %s Td\n", fb.String(), fnum(size), fnum(x), fnum(y))
	up.ops.Write(EncodeObject(String(text)))
	up.ops.WriteString(" Tj\nET\nQ\n")
}

func fitFontSize(boxHeight float64) float64 {
	size := boxHeight * 0.6
	if size > 18 {
		size = 18
	}
	if size < 4 {
		size = 4
	}
	return size
}

// fnum renders a coordinate with enough precision for layout and no exponent
// notation.
func fnum(v float64) string {
	return string(EncodeObject(Real(v)))
}
