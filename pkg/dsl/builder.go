package dsl

import (
	"fmt"

	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/registry"
	"github.com/aretw0/compositor/pkg/schema"
)

// Builder manages the graph construction.
type Builder struct {
	name  string
	order []string
	nodes map[string]*NodeBuilder
	edges []schema.EdgeDoc
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		doc:     schema.NodeDoc{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Connect adds an edge between "node.port" references.
func (b *Builder) Connect(from, to string) *Builder {
	b.edges = append(b.edges, schema.EdgeDoc{From: from, To: to})
	return b
}

// Document returns the persisted form of the graph described so far.
func (b *Builder) Document() (*schema.Document, error) {
	doc := &schema.Document{Version: schema.CurrentVersion, Name: b.name}
	for _, id := range b.order {
		nd, err := b.nodes[id].Build()
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	doc.Edges = append(doc.Edges, b.edges...)
	return doc, nil
}

// Build compiles the description into a graph, resolving kinds through reg.
func (b *Builder) Build(reg *registry.Registry, opts ...graph.Option) (*graph.Graph, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	g, err := schema.Build(doc, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph %q: %w", b.name, err)
	}
	return g, nil
}
