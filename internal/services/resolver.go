package services

import (
	"fmt"

	"github.com/sauravkrkushwaha/BoloSign/internal/storage"
)

// SourceResolver decides what source bytes back a documentId that has no
// DocumentRecord yet. The policy is pluggable: the default binds unknown ids
// to a configured sample document, the strict variant rejects them.
type SourceResolver interface {
	Resolve(documentID string) (sourcePath string, err error)
}

// DefaultSourceResolver binds unknown ids to a fixed sample PDF, matching the
// behavior of demo deployments where the client signs a built-in document.
type DefaultSourceResolver struct {
	store      *storage.Store
	samplePath string
}

func NewDefaultSourceResolver(store *storage.Store, samplePath string) *DefaultSourceResolver {
	return &DefaultSourceResolver{store: store, samplePath: samplePath}
}

func (r *DefaultSourceResolver) Resolve(documentID string) (string, error) {
	// An already uploaded original wins over the sample.
	if p := r.store.OriginalPath(documentID); r.store.Exists(p) {
		return p, nil
	}
	if r.samplePath == "" || !r.store.Exists(r.samplePath) {
		return "", fmt.Errorf("no source available for document %s", documentID)
	}
	return r.samplePath, nil
}

// StrictSourceResolver rejects ids that were never uploaded.
type StrictSourceResolver struct {
	store *storage.Store
}

func NewStrictSourceResolver(store *storage.Store) *StrictSourceResolver {
	return &StrictSourceResolver{store: store}
}

func (r *StrictSourceResolver) Resolve(documentID string) (string, error) {
	if p := r.store.OriginalPath(documentID); r.store.Exists(p) {
		return p, nil
	}
	return "", fmt.Errorf("unknown document %s", documentID)
}
