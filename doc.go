/*
Package compositor is a node-graph compositing engine: typed nodes connected into a
directed acyclic graph, evaluated on demand at exact rational times.

# Concept

A project is a graph of nodes. Every node is built from a Kind that declares typed input
and output ports and a pure Evaluate function. Inputs are either connected to an upstream
output or driven by a keyframed Parameter. Asking a node for its value at time t
evaluates only its upstream closure, ancestors first, and caches each node's outputs per
(node, time) until a parameter or structural edit invalidates them.

Viewer nodes are sinks: rendering a viewer hands the resulting Frame to whatever consumer
is attached (a file writer, an SSE stream, a test recorder).

# Usage

	eng, err := compositor.New("./shot010")
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	res, err := eng.Render(ctx, "viewer", domain.NewTime(1, 24))

Projects can also be loaded from any ports.DocumentLoader (WithLoader), built in code
with pkg/dsl, or assembled directly on a *graph.Graph (FromGraph).

# Failure model

Structural edits that would break the graph (cycles, type mismatches, occupied inputs)
are rejected and leave it untouched. Node failures during evaluation are not fatal: the
node falls back to its default outputs and is reported in RenderResult.Degraded.
*/
package compositor
