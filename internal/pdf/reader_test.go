package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRejectsNonPDF(t *testing.T) {
	_, err := Load([]byte("GIF89a not a pdf"))
	assert.Error(t, err)
}

func TestLoadMinimalDocument(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())

	pg, err := doc.Page(0)
	require.NoError(t, err)
	w, h := pg.Size()
	assert.Equal(t, 612.0, w)
	assert.Equal(t, 792.0, h)
}

func TestPageInheritsTreeAttributes(t *testing.T) {
	// MediaBox and Resources live on the Pages node, not the leaves.
	doc, err := Load(buildTestPDF(t, 3))
	require.NoError(t, err)
	require.Equal(t, 3, doc.PageCount())

	for i := 0; i < 3; i++ {
		pg, err := doc.Page(i)
		require.NoError(t, err)
		assert.Equal(t, [4]float64{0, 0, 612, 792}, pg.MediaBox)

		res, ok := doc.Resolve(pg.Resources).(Dict)
		require.True(t, ok, "page %d resources", i)
		assert.Contains(t, res, Name("ProcSet"))
	}
}

func TestPageIndexOutOfRange(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 2))
	require.NoError(t, err)

	_, err = doc.Page(2)
	assert.Error(t, err)
	_, err = doc.Page(-1)
	assert.Error(t, err)
}

func TestResolveIndirectChain(t *testing.T) {
	doc, err := Load(buildTestPDF(t, 1))
	require.NoError(t, err)

	pg, err := doc.Page(0)
	require.NoError(t, err)

	contents := doc.Resolve(pg.Dict["Contents"])
	stream, ok := contents.(*Stream)
	require.True(t, ok, "resolved contents should be a stream, got %T", contents)
	assert.Contains(t, string(stream.Raw), "Page 1")
}
