package ports

import (
	"context"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
)

// RenderResult summarizes one evaluation for driving adapters.
type RenderResult struct {
	NodeID    string                  `json:"node_id"`
	Time      domain.Time             `json:"time"`
	Value     domain.Value            `json:"-"`
	Outputs   map[string]domain.Value `json:"-"`
	Evaluated int                     `json:"evaluated"`
	CacheHits int                     `json:"cache_hits"`
	Degraded  []Fault                 `json:"degraded,omitempty"`
}

// Fault describes a node that fell back to default outputs during a render.
type Fault struct {
	NodeID string `json:"node_id"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// Compositor is the surface driving adapters (HTTP, MCP) operate on.
type Compositor interface {
	// Name returns the graph name.
	Name() string

	// Document returns the current graph in persisted form.
	Document() (*schema.Document, error)

	// Render evaluates the node at t. Sinks deliver to their attached consumers.
	Render(ctx context.Context, nodeID string, t domain.Time) (*RenderResult, error)

	// SetParameter replaces an input parameter of a node.
	SetParameter(ctx context.Context, nodeID, port string, param schema.ParamDoc) error
}
