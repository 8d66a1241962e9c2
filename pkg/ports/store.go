package ports

import (
	"context"

	"github.com/aretw0/compositor/pkg/schema"
)

// ProjectStore defines the interface for persisting project documents.
// Implementations must return copies: mutating a loaded document never affects the store.
type ProjectStore interface {
	// Save persists the document under the given project ID, replacing any previous version.
	Save(ctx context.Context, projectID string, doc *schema.Document) error

	// Load retrieves the document for a given project ID.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	Load(ctx context.Context, projectID string) (*schema.Document, error)

	// Delete removes the project. Deleting a missing project is not an error.
	Delete(ctx context.Context, projectID string) error

	// List returns all stored project IDs.
	List(ctx context.Context) ([]string, error)
}
