// Package fields models placed annotations and the ordered collections the
// editor and the signing pipeline exchange.
package fields

import (
	"fmt"

	"github.com/sauravkrkushwaha/BoloSign/internal/geometry"
)

// Type enumerates the supported annotation kinds.
type Type string

const (
	TypeSignature Type = "signature"
	TypeText      Type = "text"
	TypeDate      Type = "date"
	TypeChoice    Type = "choice"
)

// Valid reports whether t is one of the supported kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeSignature, TypeText, TypeDate, TypeChoice:
		return true
	}
	return false
}

// Field is one placed annotation. Rect is fractional and resolution
// independent: the same field reproduces the same document-point rectangle no
// matter what pixel size it was edited at.
type Field struct {
	ID    string            `json:"id"`
	Type  Type              `json:"type"`
	Page  int               `json:"page"`
	Rect  geometry.FracRect `json:"rect"`
	Value string            `json:"value,omitempty"`
}

// DefaultSize returns the fractional size a freshly added field of the given
// type starts with. The values are tuned for A4 pages.
func DefaultSize(t Type) geometry.FracRect {
	switch t {
	case TypeSignature:
		return geometry.FracRect{XPct: 0.1, YPct: 0.1, WidthPct: 0.25, HeightPct: 0.1}
	case TypeText:
		return geometry.FracRect{XPct: 0.1, YPct: 0.1, WidthPct: 0.2, HeightPct: 0.06}
	case TypeDate:
		return geometry.FracRect{XPct: 0.1, YPct: 0.1, WidthPct: 0.18, HeightPct: 0.06}
	case TypeChoice:
		return geometry.FracRect{XPct: 0.1, YPct: 0.1, WidthPct: 0.05, HeightPct: 0.05}
	}
	return geometry.FracRect{XPct: 0.1, YPct: 0.1, WidthPct: 0.2, HeightPct: 0.06}
}

// Set is an insertion-ordered mapping from field id to field. Draw order is
// the order fields were added, and update/remove at the id boundary is O(1).
type Set struct {
	order []string
	byID  map[string]*Field
}

// NewSet returns an empty field set.
func NewSet() *Set {
	return &Set{byID: make(map[string]*Field)}
}

// Add appends a field to the set. Adding an id that already exists is an
// error; use Update for in-place changes.
func (s *Set) Add(f Field) error {
	if f.ID == "" {
		return fmt.Errorf("field id must not be empty")
	}
	if _, ok := s.byID[f.ID]; ok {
		return fmt.Errorf("field %q already present", f.ID)
	}
	cp := f
	s.byID[f.ID] = &cp
	s.order = append(s.order, f.ID)
	return nil
}

// Get looks a field up by id.
func (s *Set) Get(id string) (Field, bool) {
	f, ok := s.byID[id]
	if !ok {
		return Field{}, false
	}
	return *f, true
}

// Update replaces the stored field with the same id, keeping its position in
// the draw order.
func (s *Set) Update(f Field) error {
	if _, ok := s.byID[f.ID]; !ok {
		return fmt.Errorf("field %q not present", f.ID)
	}
	cp := f
	s.byID[f.ID] = &cp
	return nil
}

// SetRect commits new fractional geometry for one field.
func (s *Set) SetRect(id string, rect geometry.FracRect) error {
	f, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("field %q not present", id)
	}
	f.Rect = rect
	return nil
}

// Remove deletes a field. Removing an unknown id is a no-op.
func (s *Set) Remove(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields in the set.
func (s *Set) Len() int { return len(s.order) }

// All returns the fields in draw order.
func (s *Set) All() []Field {
	out := make([]Field, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Page returns the fields on one page, in draw order.
func (s *Set) Page(page int) []Field {
	var out []Field
	for _, id := range s.order {
		if f := s.byID[id]; f.Page == page {
			out = append(out, *f)
		}
	}
	return out
}

// LayoutFields adapts one page of the set for geometry.ResolveLayout.
func (s *Set) LayoutFields(page int) []geometry.LayoutField {
	var out []geometry.LayoutField
	for _, f := range s.Page(page) {
		out = append(out, geometry.LayoutField{ID: f.ID, Rect: f.Rect})
	}
	return out
}
