package graph

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/compositor/pkg/domain"
)

// DefaultName is the name given to graphs created without one.
const DefaultName = "New Graph"

// ChangeType identifies a structural or parameter change on a graph.
type ChangeType string

const (
	ChangeNodeAdded    ChangeType = "node_added"
	ChangeNodeRemoved  ChangeType = "node_removed"
	ChangeConnected    ChangeType = "connected"
	ChangeDisconnected ChangeType = "disconnected"
	ChangeParameter    ChangeType = "parameter"
)

// Change describes a mutation. Affected lists every node whose cached outputs became stale,
// which is the mutated node plus all of its downstream nodes.
type Change struct {
	Type     ChangeType
	Node     *Node
	Port     string
	Affected []*Node
}

// Observer is notified after each mutation, synchronously and while the graph's write
// lock is still held. Observers must not call back into the graph.
type Observer func(Change)

// Graph owns a set of nodes and the edges between them, and guarantees the edge set
// stays acyclic. Graph methods are safe for concurrent use; evaluations read a
// consistent snapshot via Plan.
type Graph struct {
	mu   sync.RWMutex
	name string

	nodes []*Node
	index map[string]*Node

	observers map[int]Observer
	nextObs   int

	replaceOnConnect bool
	logger           *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithReplaceOnConnect makes Connect replace an input's existing edge instead of
// rejecting it with ErrPortOccupied.
func WithReplaceOnConnect() Option {
	return func(g *Graph) {
		g.replaceOnConnect = true
	}
}

// WithLogger sets the logger for structural events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates an empty graph. An empty name falls back to DefaultName.
func New(name string, opts ...Option) *Graph {
	if name == "" {
		name = DefaultName
	}
	g := &Graph{
		name:      name,
		index:     make(map[string]*Node),
		observers: make(map[int]Observer),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("graph", name)
	return g
}

func (g *Graph) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

func (g *Graph) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = name
}

// Subscribe registers an observer and returns a function that removes it.
func (g *Graph) Subscribe(obs Observer) func() {
	g.mu.Lock()
	id := g.nextObs
	g.nextObs++
	g.observers[id] = obs
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.observers, id)
		g.mu.Unlock()
	}
}

// Nodes returns the graph's nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Node(nil), g.nodes...)
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.index[id]
	return n, ok
}

// Contains reports whether n is owned by g.
func (g *Graph) Contains(n *Node) bool {
	return n != nil && n.graph.Load() == g
}

// Edges returns every edge, ordered by node insertion order and then input declaration order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []Edge
	for _, n := range g.nodes {
		for _, in := range n.inputs {
			if in.src != nil {
				edges = append(edges, Edge{From: in.src, To: in})
			}
		}
	}
	return edges
}

// AddNode transfers ownership of n to the graph.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("add node: nil node")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if other, ok := g.index[n.id]; ok && other != n {
		return fmt.Errorf("add node %q: %w", n.id, domain.ErrDuplicateNodeID)
	}
	if !n.graph.CompareAndSwap(nil, g) {
		return fmt.Errorf("add node %q: %w", n.id, domain.ErrAlreadyOwned)
	}

	g.nodes = append(g.nodes, n)
	g.index[n.id] = n

	affected := g.invalidateLocked(n)
	g.logger.Debug("node added", "node", n.id, "kind", n.kind.Name())
	g.notifyLocked(Change{Type: ChangeNodeAdded, Node: n, Affected: affected})
	return nil
}

// RemoveNode detaches every edge touching n, then releases it. The node can be added
// to a graph again afterwards.
func (g *Graph) RemoveNode(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.Contains(n) {
		return fmt.Errorf("remove node: %w", domain.ErrNodeNotFound)
	}

	affected := g.invalidateLocked(n)

	for _, in := range n.inputs {
		g.unlinkLocked(in)
	}
	for _, out := range n.outputs {
		for _, dst := range append([]*Port(nil), out.dsts...) {
			g.unlinkLocked(dst)
		}
	}

	for i, m := range g.nodes {
		if m == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.index, n.id)
	n.graph.Store(nil)

	g.logger.Debug("node removed", "node", n.id)
	g.notifyLocked(Change{Type: ChangeNodeRemoved, Node: n, Affected: affected})
	return nil
}

// Connect links an output port to an input port.
//
// Both ports must belong to nodes in this graph, the types must be compatible and the
// edge must not close a cycle. An input accepts one edge; a second connect fails with
// ErrPortOccupied unless the graph was built with WithReplaceOnConnect. Reconnecting the
// same pair is a no-op.
func (g *Graph) Connect(out, in *Port) error {
	if out == nil || in == nil {
		return fmt.Errorf("connect: %w", domain.ErrPortNotFound)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.Contains(out.node) || !g.Contains(in.node) {
		return fmt.Errorf("connect %s -> %s: %w", out, in, domain.ErrNodeNotFound)
	}
	if out.dir != Output || in.dir != Input {
		return fmt.Errorf("connect %s -> %s: %w", out, in, domain.ErrInvalidPort)
	}
	if !domain.Compatible(out.typ, in.typ) {
		return fmt.Errorf("connect %s (%s) -> %s (%s): %w", out, out.typ, in, in.typ, domain.ErrTypeMismatch)
	}
	if in.src == out {
		return nil
	}
	if in.src != nil && !g.replaceOnConnect {
		return fmt.Errorf("connect %s -> %s: fed by %s: %w", out, in, in.src, domain.ErrPortOccupied)
	}
	if g.reachableLocked(in.node, out.node) {
		return fmt.Errorf("connect %s -> %s: %w", out, in, domain.ErrCycleDetected)
	}

	g.unlinkLocked(in)
	in.src = out
	out.dsts = append(out.dsts, in)

	affected := g.invalidateLocked(in.node)
	g.logger.Debug("connected", "from", out.String(), "to", in.String())
	g.notifyLocked(Change{Type: ChangeConnected, Node: in.node, Port: in.name, Affected: affected})
	return nil
}

// ConnectByID resolves "node.port" style references and connects them.
func (g *Graph) ConnectByID(fromNode, fromPort, toNode, toPort string) error {
	out, err := g.port(fromNode, fromPort, Output)
	if err != nil {
		return err
	}
	in, err := g.port(toNode, toPort, Input)
	if err != nil {
		return err
	}
	return g.Connect(out, in)
}

func (g *Graph) port(nodeID, name string, dir Direction) (*Port, error) {
	n, ok := g.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", nodeID, domain.ErrNodeNotFound)
	}
	var p *Port
	if dir == Output {
		p = n.Output(name)
	} else {
		p = n.Input(name)
	}
	if p == nil {
		return nil, fmt.Errorf("%s %s.%s: %w", dir, nodeID, name, domain.ErrPortNotFound)
	}
	return p, nil
}

// Disconnect removes the edge feeding in, if any.
func (g *Graph) Disconnect(in *Port) error {
	if in == nil {
		return fmt.Errorf("disconnect: %w", domain.ErrPortNotFound)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.Contains(in.node) {
		return fmt.Errorf("disconnect %s: %w", in, domain.ErrNodeNotFound)
	}
	if in.dir != Input {
		return fmt.Errorf("disconnect %s: %w", in, domain.ErrInvalidPort)
	}
	if in.src == nil {
		return nil
	}

	g.unlinkLocked(in)
	affected := g.invalidateLocked(in.node)
	g.logger.Debug("disconnected", "to", in.String())
	g.notifyLocked(Change{Type: ChangeDisconnected, Node: in.node, Port: in.name, Affected: affected})
	return nil
}

func (g *Graph) setParameter(n *Node, p *Port, param domain.Parameter) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.Contains(n) {
		p.param = param
		return nil
	}

	p.param = param
	affected := g.invalidateLocked(n)
	g.notifyLocked(Change{Type: ChangeParameter, Node: n, Port: p.name, Affected: affected})
	return nil
}

// TopologicalOrder returns every node reachable upstream of target, target included,
// with each node placed after all of its sources. The order is deterministic: inputs are
// visited in declaration order.
func (g *Graph) TopologicalOrder(target *Node) ([]*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.Contains(target) {
		return nil, fmt.Errorf("order: %w", domain.ErrNodeNotFound)
	}
	return g.orderLocked(target), nil
}

func (g *Graph) orderLocked(target *Node) []*Node {
	var order []*Node
	visited := make(map[*Node]bool)

	var visit func(*Node)
	visit = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, in := range n.inputs {
			if in.src != nil {
				visit(in.src.node)
			}
		}
		order = append(order, n)
	}
	visit(target)
	return order
}

// Downstream returns n and every node that transitively consumes its outputs,
// in breadth-first order.
func (g *Graph) Downstream(n *Node) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.Contains(n) {
		return nil
	}
	return g.downstreamLocked(n)
}

func (g *Graph) downstreamLocked(n *Node) []*Node {
	seen := map[*Node]bool{n: true}
	queue := []*Node{n}
	for i := 0; i < len(queue); i++ {
		for _, out := range queue[i].outputs {
			for _, dst := range out.dsts {
				if !seen[dst.node] {
					seen[dst.node] = true
					queue = append(queue, dst.node)
				}
			}
		}
	}
	return queue
}

// reachableLocked reports whether to is reachable from from by following edges forward.
func (g *Graph) reachableLocked(from, to *Node) bool {
	if from == to {
		return true
	}
	for _, n := range g.downstreamLocked(from) {
		if n == to {
			return true
		}
	}
	return false
}

func (g *Graph) unlinkLocked(in *Port) {
	src := in.src
	if src == nil {
		return
	}
	for i, dst := range src.dsts {
		if dst == in {
			src.dsts = append(src.dsts[:i], src.dsts[i+1:]...)
			break
		}
	}
	in.src = nil
	// The consumer changed, so it and everything after it is stale too.
	g.invalidateLocked(in.node)
}

// invalidateLocked bumps the version of n and everything downstream of it.
func (g *Graph) invalidateLocked(n *Node) []*Node {
	affected := g.downstreamLocked(n)
	for _, m := range affected {
		m.version++
	}
	return affected
}

func (g *Graph) notifyLocked(c Change) {
	if len(g.observers) == 0 {
		return
	}
	ids := make([]int, 0, len(g.observers))
	for id := range g.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		g.observers[id](c)
	}
}

// Version returns the node's current invalidation version.
func (g *Graph) Version(n *Node) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return n.version
}
