package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Store is a filesystem blob store rooted at a single directory. Originals
// and signed outputs live side by side; names are sanitized so a documentId
// can never escape the root.
type Store struct {
	root  string
	stamp atomic.Int64
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

// OriginalPath returns the canonical location for a document's source PDF.
func (s *Store) OriginalPath(documentID string) string {
	return filepath.Join(s.root, sanitize(documentID)+".pdf")
}

// SignedPath returns a fresh output location for a signing run. Each run gets
// its own timestamped file; the database points at the latest one.
func (s *Store) SignedPath(documentID string) string {
	name := fmt.Sprintf("%s-signed-%d.pdf", sanitize(documentID), s.nextStamp())
	return filepath.Join(s.root, name)
}

// nextStamp returns a strictly increasing nanosecond stamp, so back-to-back
// signings of the same document can never collide on an output name.
func (s *Store) nextStamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := s.stamp.Load()
		if now <= last {
			now = last + 1
		}
		if s.stamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func (s *Store) Write(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// sanitize strips path separators and traversal sequences from identifiers
// that end up in file names.
func sanitize(id string) string {
	id = strings.ReplaceAll(id, "..", "")
	id = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, id)
	if id == "" {
		id = "document"
	}
	return id
}
