package pdf

import (
	"testing"

	"github.com/sauravkrkushwaha/BoloSign/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawImageAspectAndCentering(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	// 100x50 image into a 200x200 box: scale 2, so the drawn box is 200x100
	// and floats to the vertical middle.
	rect := geometry.PointRect{X: 100, Y: 200, Width: 200, Height: 200}
	require.NoError(t, u.DrawImage(0, rect, pngPayload(t, 100, 50, true)))

	ops := u.pages[0].ops.String()
	assert.Contains(t, ops, "200 0 0 100 100 250 cm")
	assert.Contains(t, ops, "/BSIm0 Do")
	assert.Contains(t, u.pages[0].xobjects, Name("BSIm0"))
}

func TestDrawImageTallBoxCentersHorizontally(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	// 50x100 image into a 300x100 box: scale 1, centered left-right.
	rect := geometry.PointRect{X: 0, Y: 0, Width: 300, Height: 100}
	require.NoError(t, u.DrawImage(0, rect, pngPayload(t, 50, 100, true)))

	assert.Contains(t, u.pages[0].ops.String(), "50 0 0 100 125 0 cm")
}

func TestDrawImageRejectsBadPayload(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	rect := geometry.PointRect{X: 0, Y: 0, Width: 100, Height: 100}
	assert.Error(t, u.DrawImage(0, rect, []byte("not an image")))
	assert.False(t, u.HasChanges())
}

func TestDrawImageTransparentPNGWiresSoftMask(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	rect := geometry.PointRect{X: 10, Y: 10, Width: 50, Height: 50}
	require.NoError(t, u.DrawImage(0, rect, pngPayload(t, 8, 8, false)))

	// Two objects: the soft mask and the image referencing it.
	require.Len(t, u.objects, 2)
	img, ok := u.objects[1].body.(*Stream)
	require.True(t, ok)
	assert.Equal(t, u.objects[0].ref, img.Dict["SMask"])
}

func TestDrawTextVerticallyCentered(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	rect := geometry.PointRect{X: 50, Y: 300, Width: 120, Height: 20}
	require.NoError(t, u.DrawText(0, rect, "John Doe"))

	ops := u.pages[0].ops.String()
	// box height 20 -> font size 12, inset 4, baseline 300 + 4 + 3.
	assert.Contains(t, ops, "/BSHelv 12 Tf")
	assert.Contains(t, ops, "54 307 Td")
	assert.Contains(t, ops, "(John Doe) Tj")
	assert.Contains(t, u.pages[0].fonts, Name(helveticaName))
}

func TestDrawTextEmptyStringIsNoop(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	require.NoError(t, u.DrawText(0, geometry.PointRect{Width: 100, Height: 20}, ""))
	assert.False(t, u.HasChanges())
}

func TestDrawCheck(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	rect := geometry.PointRect{X: 20, Y: 40, Width: 15, Height: 15}
	require.NoError(t, u.DrawCheck(0, rect, true))

	ops := u.pages[0].ops.String()
	assert.Contains(t, ops, "(4) Tj")
	assert.Contains(t, u.pages[0].fonts, Name(dingbatsName))
}

func TestDrawCheckUncheckedDrawsNothing(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	require.NoError(t, u.DrawCheck(0, geometry.PointRect{Width: 15, Height: 15}, false))
	assert.False(t, u.HasChanges())
}

func TestDrawOnMissingPageFails(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	u := NewUpdater(doc)

	assert.Error(t, u.DrawText(3, geometry.PointRect{Width: 100, Height: 20}, "x"))
}

func TestFitFontSize(t *testing.T) {
	assert.Equal(t, 12.0, fitFontSize(20))
	assert.Equal(t, 18.0, fitFontSize(100))
	assert.Equal(t, 4.0, fitFontSize(2))
}
