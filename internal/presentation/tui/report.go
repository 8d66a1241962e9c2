package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
)

// RenderReport formats a render result as Markdown.
func RenderReport(graphName string, res *ports.RenderResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", graphName)
	fmt.Fprintf(&sb, "Rendered **%s** at `%s`.\n\n", res.NodeID, res.Time)

	sb.WriteString("| Output | Type | Value |\n|---|---|---|\n")
	names := make([]string, 0, len(res.Outputs))
	for name := range res.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := res.Outputs[name]
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", name, v.Type(), describe(schema.APIValue(v)))
	}

	fmt.Fprintf(&sb, "\n%d evaluated, %d from cache.\n", res.Evaluated, res.CacheHits)

	if len(res.Degraded) > 0 {
		sb.WriteString("\n## Degraded\n\n")
		for _, f := range res.Degraded {
			fmt.Fprintf(&sb, "- **%s** (%s): %s\n", f.NodeID, f.Kind, f.Error)
		}
	}
	return sb.String()
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case map[string]int:
		return fmt.Sprintf("%dx%d", x["width"], x["height"])
	case string:
		return "`" + x + "`"
	}
	return fmt.Sprint(v)
}
