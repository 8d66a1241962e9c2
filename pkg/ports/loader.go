package ports

import (
	"context"

	"github.com/aretw0/compositor/pkg/schema"
)

// DocumentLoader reads a whole project from a source other than a ProjectStore,
// such as a directory with one file per node.
type DocumentLoader interface {
	LoadDocument(ctx context.Context) (*schema.Document, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying project changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
