package middleware_test

import (
	"context"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
)

// MockStore is a simple map-based store for testing middleware.
// It keeps the exact pointer it was given so tests can inspect what reached it.
type MockStore struct {
	data map[string]*schema.Document
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*schema.Document),
	}
}

func (s *MockStore) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	s.data[projectID] = doc
	return nil
}

func (s *MockStore) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	doc, ok := s.data[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return doc, nil
}

func (s *MockStore) Delete(ctx context.Context, projectID string) error {
	delete(s.data, projectID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.ProjectStore = (*MockStore)(nil)
