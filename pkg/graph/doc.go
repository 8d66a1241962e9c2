/*
Package graph implements the compositor's dataflow model: typed ports, nodes built
from a Kind, and the Graph that owns them.

The Graph keeps its edge set acyclic at all times. Connect runs a forward reachability
search from the input's node before linking, so a failed connect never leaves a partial
edge behind. Every mutation bumps a version counter on the mutated node and on everything
downstream of it; evaluators compare those versions against their cached results instead
of re-running anything eagerly.

Evaluation never walks the live graph. It takes a Plan, which is an immutable snapshot
of the target's upstream closure in topological order, so structural edits and
evaluation passes cannot interleave inconsistently.

	g := graph.New("Edit")
	gen := graph.MustNode("solid", nodes.Solid{})
	view := graph.MustNode("viewer", nodes.NewViewer(domain.TypeTexture))
	_ = g.AddNode(gen)
	_ = g.AddNode(view)
	_ = g.Connect(gen.Output("texture"), view.Input("texture"))
*/
package graph
