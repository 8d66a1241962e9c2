package tests

import (
	"context"
	"testing"

	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
)

// DocumentLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DocumentLoader.
// want lists the node IDs and kinds the loader must produce, plus the edges between them.
func DocumentLoaderContractTest(t *testing.T, loader ports.DocumentLoader, want *schema.Document) {
	t.Helper()

	doc, err := loader.LoadDocument(context.Background())
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}

	t.Run("Nodes", func(t *testing.T) {
		got := make(map[string]string)
		for _, n := range doc.Nodes {
			got[n.ID] = n.Kind
		}
		for _, n := range want.Nodes {
			kind, ok := got[n.ID]
			if !ok {
				t.Errorf("node %s missing", n.ID)
				continue
			}
			if kind != n.Kind {
				t.Errorf("node %s kind = %q, want %q", n.ID, kind, n.Kind)
			}
		}
		if len(doc.Nodes) != len(want.Nodes) {
			t.Errorf("got %d nodes, want %d", len(doc.Nodes), len(want.Nodes))
		}
	})

	t.Run("Edges", func(t *testing.T) {
		got := make(map[schema.EdgeDoc]bool)
		for _, e := range doc.Edges {
			got[e] = true
		}
		for _, e := range want.Edges {
			if !got[e] {
				t.Errorf("edge %s -> %s missing", e.From, e.To)
			}
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		again, err := loader.LoadDocument(context.Background())
		if err != nil {
			t.Fatalf("second LoadDocument() error = %v", err)
		}
		for i := range doc.Nodes {
			if again.Nodes[i].ID != doc.Nodes[i].ID {
				t.Errorf("node order changed at %d: %s vs %s", i, again.Nodes[i].ID, doc.Nodes[i].ID)
			}
		}
	})
}
