package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/compositor/internal/presentation/graph"
	"github.com/aretw0/compositor/pkg/schema"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		doc      *schema.Document
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Node Shapes",
			doc: &schema.Document{Nodes: []schema.NodeDoc{
				{ID: "viewer", Kind: "viewer"},
				{ID: "plate", Kind: "image"},
				{ID: "bg", Kind: "solid"},
				{ID: "mix", Kind: "switch"},
			}},
			contains: []string{
				`viewer(("viewer <br/> viewer"))`,
				`plate[/"plate <br/> image"/]`,
				`bg(["bg <br/> solid"])`,
				`mix["mix <br/> switch"]`,
			},
		},
		{
			name: "ID Sanitization",
			doc: &schema.Document{Nodes: []schema.NodeDoc{
				{ID: "shot/plate-v2.1", Kind: "image"},
			}},
			contains: []string{`shot_plate_v2_1[/`},
		},
		{
			name: "Edge Labels",
			doc: &schema.Document{
				Nodes: []schema.NodeDoc{{ID: "bg", Kind: "solid"}, {ID: "v", Kind: "viewer"}, {ID: "m", Kind: "math"}},
				Edges: []schema.EdgeDoc{
					{From: "bg.texture", To: "v.texture"},
					{From: "m.result", To: "v.number"},
				},
			},
			contains: []string{
				`bg -- "texture" --> v`,
				`m -- "result → number" --> v`,
			},
		},
		{
			name: "Overlay",
			doc:  &schema.Document{Nodes: []schema.NodeDoc{{ID: "a", Kind: "math"}, {ID: "b", Kind: "viewer"}}},
			overlay: &graph.GraphOverlay{
				Evaluated: []string{"a", "a", "b"},
				Degraded:  []string{"a"},
				Target:    "b",
			},
			contains: []string{
				"class a evaluated;",
				"class a degraded;",
				"class b target;",
			},
		},
		{
			name:     "No Overlay",
			doc:      &schema.Document{Nodes: []schema.NodeDoc{{ID: "a", Kind: "math"}}},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.doc, tt.overlay)
			if !strings.HasPrefix(got, "graph LR\n") {
				t.Errorf("missing header:\n%s", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q", unwanted)
				}
			}
			if n := strings.Count(got, "class a evaluated;"); n > 1 {
				t.Errorf("evaluated class repeated %d times", n)
			}
		})
	}
}
