package fields

import (
	"testing"

	"github.com/sauravkrkushwaha/BoloSign/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeSignature.Valid())
	assert.True(t, TypeText.Valid())
	assert.True(t, TypeDate.Valid())
	assert.True(t, TypeChoice.Valid())
	assert.False(t, Type("stamp").Valid())
	assert.False(t, Type("").Valid())
}

func TestSetPreservesInsertionOrder(t *testing.T) {
	s := NewSet()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(Field{ID: id, Type: TypeText, Rect: DefaultSize(TypeText)}))
	}

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, "b", all[2].ID)
}

func TestSetAddRejectsDuplicatesAndEmptyIDs(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(Field{ID: "x", Type: TypeText}))
	assert.Error(t, s.Add(Field{ID: "x", Type: TypeText}))
	assert.Error(t, s.Add(Field{Type: TypeText}))
	assert.Equal(t, 1, s.Len())
}

func TestSetUpdateKeepsDrawOrder(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(Field{ID: "first", Type: TypeText}))
	require.NoError(t, s.Add(Field{ID: "second", Type: TypeText}))

	require.NoError(t, s.Update(Field{ID: "first", Type: TypeDate, Value: "updated"}))

	all := s.All()
	assert.Equal(t, "first", all[0].ID)
	assert.Equal(t, TypeDate, all[0].Type)
	assert.Equal(t, "updated", all[0].Value)

	assert.Error(t, s.Update(Field{ID: "missing"}))
}

func TestSetSetRectAndRemove(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(Field{ID: "a", Type: TypeSignature, Rect: DefaultSize(TypeSignature)}))

	rect := geometry.FracRect{XPct: 0.5, YPct: 0.5, WidthPct: 0.1, HeightPct: 0.1}
	require.NoError(t, s.SetRect("a", rect))
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, rect, got.Rect)

	assert.Error(t, s.SetRect("missing", rect))

	s.Remove("a")
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	s.Remove("a") // no-op
}

func TestSetPageFilter(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(Field{ID: "p0", Page: 0, Type: TypeText}))
	require.NoError(t, s.Add(Field{ID: "p1", Page: 1, Type: TypeText}))
	require.NoError(t, s.Add(Field{ID: "p0b", Page: 0, Type: TypeChoice}))

	page0 := s.Page(0)
	require.Len(t, page0, 2)
	assert.Equal(t, "p0", page0[0].ID)
	assert.Equal(t, "p0b", page0[1].ID)

	layout := s.LayoutFields(1)
	require.Len(t, layout, 1)
	assert.Equal(t, "p1", layout[0].ID)
}

func TestDefaultSizes(t *testing.T) {
	sig := DefaultSize(TypeSignature)
	assert.Equal(t, 0.25, sig.WidthPct)
	assert.Equal(t, 0.1, sig.HeightPct)

	choice := DefaultSize(TypeChoice)
	assert.Equal(t, 0.05, choice.WidthPct)
	assert.Equal(t, 0.05, choice.HeightPct)
}
