package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/compositor/pkg/schema"
)

// GraphOverlay contains evaluation data to visualize on the graph.
type GraphOverlay struct {
	Evaluated []string
	Degraded  []string
	Target    string
}

// sourceKinds have no upstream inputs worth drawing as data entry points.
var sourceKinds = map[string]bool{
	"constant": true,
	"time":     true,
	"solid":    true,
}

// GenerateMermaid produces a Mermaid flowchart (left to right) from a project document.
// It applies semantic styling:
// - Viewer: ((Circle))
// - Footage (image): [/Parallelogram/]
// - Generators (constant, time, solid): ([Stadium])
// - Default: [Rectangle]
// Edges are labeled "output → input". Overlay styles are applied if provided.
func GenerateMermaid(doc *schema.Document, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, node := range doc.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.Kind == "viewer":
			opener, closer = "((", "))"
		case node.Kind == "image":
			opener, closer = "[/", "/]"
		case sourceKinds[node.Kind]:
			opener, closer = "([", "])"
		}

		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", safeID, opener, node.ID, node.Kind, closer)
	}

	edges := append([]schema.EdgeDoc(nil), doc.Edges...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	for _, e := range edges {
		from, err := schema.ParsePortRef(e.From)
		if err != nil {
			continue
		}
		to, err := schema.ParsePortRef(e.To)
		if err != nil {
			continue
		}
		label := from.Port
		if from.Port != to.Port {
			label = from.Port + " → " + to.Port
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(from.Node), label, sanitizeMermaidID(to.Node))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef evaluated fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef degraded fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef target fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		writeClass(&sb, overlay.Evaluated, "evaluated")
		writeClass(&sb, overlay.Degraded, "degraded")
		if overlay.Target != "" {
			fmt.Fprintf(&sb, "    class %s target;\n", sanitizeMermaidID(overlay.Target))
		}
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
