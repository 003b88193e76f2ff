// Package geometry converts field placements between the three coordinate
// spaces used by the signing pipeline: rendered pixels, resolution-independent
// page fractions, and native PDF points. Pixel and fraction space have their
// origin at the top-left corner of the page; PDF point space has its origin at
// the bottom-left, so the conversion into point space flips the vertical axis.
package geometry

// Size is a page extent in whichever unit the surrounding code works in.
type Size struct {
	Width  float64
	Height float64
}

// PixelRect is a rectangle on a rendered page surface, top-left origin.
type PixelRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// FracRect is a rectangle expressed as fractions of the page size. Values are
// logically in [0,1]; ToFraction clamps, but consumers must still treat the
// range defensively because rects can arrive straight off the wire.
type FracRect struct {
	XPct      float64 `json:"xPct"`
	YPct      float64 `json:"yPct"`
	WidthPct  float64 `json:"widthPct"`
	HeightPct float64 `json:"heightPct"`
}

// PointRect is a rectangle in native PDF user space, bottom-left origin.
type PointRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Clamp restricts v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ToFraction normalizes a pixel rectangle against the rendered page size.
// Out-of-range inputs are clamped rather than rejected: interactive drags
// routinely produce transiently out-of-bounds rectangles.
func ToFraction(r PixelRect, page Size) FracRect {
	return FracRect{
		XPct:      Clamp(r.X/page.Width, 0, 1),
		YPct:      Clamp(r.Y/page.Height, 0, 1),
		WidthPct:  Clamp(r.Width/page.Width, 0, 1),
		HeightPct: Clamp(r.Height/page.Height, 0, 1),
	}
}

// ToPixels is the inverse of ToFraction. No clamping here; page-bounds safety
// belongs to whichever layer needs it.
func ToPixels(r FracRect, page Size) PixelRect {
	return PixelRect{
		X:      r.XPct * page.Width,
		Y:      r.YPct * page.Height,
		Width:  r.WidthPct * page.Width,
		Height: r.HeightPct * page.Height,
	}
}

// ToDocumentPoints maps a pixel rectangle on a rendered surface of size
// rendered onto a PDF page of size page (in points). The vertical axis is
// flipped: a rect at pixel y=0 lands at point y = pageHeight - rectHeight.
func ToDocumentPoints(r PixelRect, rendered Size, page Size) PointRect {
	scaleX := page.Width / rendered.Width
	scaleY := page.Height / rendered.Height
	return PointRect{
		X:      r.X * scaleX,
		Y:      (rendered.Height - r.Y - r.Height) * scaleY,
		Width:  r.Width * scaleX,
		Height: r.Height * scaleY,
	}
}

// ClampToPage moves a pixel rectangle so its full box stays on the page.
// Width and height are never altered. A rect larger than the page pins to
// the top-left corner.
func ClampToPage(r PixelRect, page Size) PixelRect {
	maxX := page.Width - r.Width
	if maxX < 0 {
		maxX = 0
	}
	maxY := page.Height - r.Height
	if maxY < 0 {
		maxY = 0
	}
	return PixelRect{
		X:      Clamp(r.X, 0, maxX),
		Y:      Clamp(r.Y, 0, maxY),
		Width:  r.Width,
		Height: r.Height,
	}
}
