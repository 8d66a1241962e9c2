package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/compositor/pkg/schema"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	return nil
}
func (m *MockStore) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	return nil, nil
}
func (m *MockStore) Delete(ctx context.Context, projectID string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)         { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	// 1. Create and Delete many projects
	for i := 0; i < count; i++ {
		pid := fmt.Sprintf("project-%d", i)
		_ = mgr.Save(ctx, pid, &schema.Document{})
		_ = mgr.Delete(ctx, pid)
	}

	// 2. Count locks remaining in map
	lockCount := len(mgr.locks)

	// 3. Assert no leak
	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
