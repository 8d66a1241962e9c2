package ports_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
)

// MockStore is a JSON-backed implementation of ProjectStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string][]byte),
	}
}

func (m *MockStore) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	// Serialize to simulate a real backend
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[projectID] = raw
	return nil
}

func (m *MockStore) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	m.mu.Lock()
	raw, ok := m.data[projectID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	var doc schema.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MockStore) Delete(ctx context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, projectID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestProjectStore_Contract(t *testing.T) {
	ports.RunProjectStoreContract(t, NewMockStore())
}
