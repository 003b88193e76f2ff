package geometry

import "sort"

// Layout tuning. Padding keeps boxes off the page edge, Gap is the vertical
// space inserted between boxes when an overlap is resolved.
const (
	LayoutPadding = 8.0
	LayoutGap     = 6.0
)

// LayoutField is one field handed to the layout pass, identified so callers
// can map resolved positions back onto their own state.
type LayoutField struct {
	ID   string
	Rect FracRect
}

// PlacedField is the display position produced for one field. Only X and Y
// ever differ from a plain ToPixels conversion; width and height pass through
// untouched.
type PlacedField struct {
	ID   string
	Rect PixelRect
}

// ResolveLayout produces a non-overlapping, in-bounds pixel layout for one
// page worth of fields. It is a single deterministic pass, not a physics
// simulation: fields are ordered top-to-bottom then left-to-right, and a field
// that overlaps an earlier one is pushed below it. Running the pass on its own
// output moves nothing.
//
// The persisted fractional state is never touched; callers commit geometry
// changes separately through ToFraction.
func ResolveLayout(fields []LayoutField, page Size) []PlacedField {
	placed := make([]PlacedField, len(fields))
	for i, f := range fields {
		px := ToPixels(f.Rect, page)
		placed[i] = PlacedField{ID: f.ID, Rect: clampPadded(px, page)}
	}

	sort.SliceStable(placed, func(i, j int) bool {
		a, b := placed[i].Rect, placed[j].Rect
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	for i := 1; i < len(placed); i++ {
		r := placed[i].Rect
		// A push-down can land on another earlier box, so rescan from the
		// top after every move until the rect settles or hits the bottom.
		for {
			moved := false
			for j := 0; j < i; j++ {
				prev := placed[j].Rect
				if !overlaps(r, prev) {
					continue
				}
				next := prev.Y + prev.Height + LayoutGap
				clamped := clampPadded(PixelRect{X: r.X, Y: next, Width: r.Width, Height: r.Height}, page)
				if clamped.Y <= r.Y {
					// Pinned against the page bottom; nowhere left to go.
					r = clamped
					moved = false
					break
				}
				r = clamped
				moved = true
				break
			}
			if !moved {
				break
			}
		}
		placed[i].Rect = r
	}

	return placed
}

func clampPadded(r PixelRect, page Size) PixelRect {
	maxX := page.Width - LayoutPadding - r.Width
	if maxX < LayoutPadding {
		maxX = LayoutPadding
	}
	maxY := page.Height - LayoutPadding - r.Height
	if maxY < LayoutPadding {
		maxY = LayoutPadding
	}
	return PixelRect{
		X:      Clamp(r.X, LayoutPadding, maxX),
		Y:      Clamp(r.Y, LayoutPadding, maxY),
		Width:  r.Width,
		Height: r.Height,
	}
}

func overlaps(a, b PixelRect) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}
