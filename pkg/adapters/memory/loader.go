package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/compositor/pkg/schema"
)

// Loader implements ports.DocumentLoader over a document held in memory.
type Loader struct {
	doc *schema.Document
}

// NewLoader creates a loader that always yields a copy of doc.
func NewLoader(doc *schema.Document) *Loader {
	return &Loader{doc: doc.Clone()}
}

// NewLoaderFromBytes decodes a YAML or JSON document.
func NewLoaderFromBytes(data []byte, format schema.Format) (*Loader, error) {
	doc, err := schema.Unmarshal(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return &Loader{doc: doc}, nil
}

// LoadDocument returns a copy of the held document.
func (l *Loader) LoadDocument(ctx context.Context) (*schema.Document, error) {
	return l.doc.Clone(), nil
}
