package storage

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "uploads")
	s, err := NewStore(root)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root())
}

func TestReadWriteExists(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path := s.OriginalPath("doc-1")
	assert.False(t, s.Exists(path))

	require.NoError(t, s.Write(path, []byte("%PDF-1.4 data")))
	assert.True(t, s.Exists(path))

	data, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 data"), data)

	_, err = s.Read(filepath.Join(s.Root(), "missing.pdf"))
	assert.Error(t, err)
}

func TestSignedPathsDoNotCollide(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a := s.SignedPath("doc")
	assert.True(t, strings.HasPrefix(filepath.Base(a), "doc-signed-"))
	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.Equal(t, s.Root(), filepath.Dir(a))

	// Back-to-back calls, faster than any clock tick, still never reuse a
	// name.
	seen := map[string]bool{a: true}
	for i := 0; i < 1000; i++ {
		p := s.SignedPath("doc")
		assert.False(t, seen[p], "path %s issued twice", p)
		seen[p] = true
	}
}

func TestSignedPathsUniqueAcrossGoroutines(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	const workers, perWorker = 8, 100
	paths := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				paths <- s.SignedPath("doc")
			}
		}()
	}
	wg.Wait()
	close(paths)

	seen := map[string]bool{}
	for p := range paths {
		assert.False(t, seen[p], "path %s issued twice", p)
		seen[p] = true
	}
}

func TestSanitizeKeepsPathsInsideRoot(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"../../etc/passwd", "a/b\\c", "", "..", "nor:mal"} {
		p := s.OriginalPath(id)
		assert.Equal(t, s.Root(), filepath.Dir(p), "id %q escaped the root: %s", id, p)
	}
}
