package vectorstore

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// MemoryStore is an in-memory image index for callers that supply vectors
// directly rather than through an indexing backend
type MemoryStore struct {
	paths   []string
	vectors map[string][]byte
	dims    int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store. dims may be 0 when unknown.
func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{
		vectors: make(map[string][]byte),
		dims:    dims,
	}
}

// Add stores a vector, keeping first-insertion order
func (m *MemoryStore) Add(ctx context.Context, rec ImageRecord) error {
	if len(rec.Vector) == 0 {
		return fmt.Errorf("empty vector")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vectors[rec.Filepath]; !exists {
		m.paths = append(m.paths, rec.Filepath)
	}
	m.vectors[rec.Filepath] = rec.Vector

	return nil
}

// ImageVectorsByDir yields a snapshot of the images below dir
func (m *MemoryStore) ImageVectorsByDir(ctx context.Context, dir string) iter.Seq2[ImageRecord, error] {
	records := m.snapshot(dir)
	return func(yield func(ImageRecord, error) bool) {
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				yield(ImageRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// CountByDir returns the number of images below dir
func (m *MemoryStore) CountByDir(ctx context.Context, dir string) (int, error) {
	return len(m.snapshot(dir)), nil
}

func (m *MemoryStore) snapshot(dir string) []ImageRecord {
	prefix := dirPrefix(dir)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []ImageRecord
	for _, p := range m.paths {
		if strings.HasPrefix(p, prefix) {
			records = append(records, ImageRecord{Filepath: p, Vector: m.vectors[p]})
		}
	}
	return records
}

// Dimensions returns the configured vector size
func (m *MemoryStore) Dimensions() int {
	return m.dims
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
