package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
)

// Store implements ports.ProjectStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*schema.Document
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*schema.Document),
	}
}

// Save persists the document in memory.
func (s *Store) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := doc.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[projectID] = copied
	return nil
}

// Load retrieves a copy of the document from memory.
func (s *Store) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return doc.Clone(), nil
}

// Delete removes the project from memory.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, projectID)
	return nil
}

// List returns all project IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic order
	return ids, nil
}
