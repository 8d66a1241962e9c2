package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/compositor/internal/logging"
	"github.com/aretw0/compositor/internal/runtime"
	loamAdapter "github.com/aretw0/compositor/pkg/adapters/loam"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/registry"
	"github.com/aretw0/compositor/pkg/schema"
)

// ErrNotViewer is returned when attaching a consumer to a node that is not a viewer.
var ErrNotViewer = errors.New("node is not a viewer")

// ErrWatchUnsupported is returned by Watch when the loader cannot watch its source.
var ErrWatchUnsupported = errors.New("loader does not support watching")

// Engine is the high-level entry point for the compositor library.
// It owns a graph and its evaluator and can rebuild both from its loader.
type Engine struct {
	mu        sync.RWMutex
	graph     *graph.Graph
	evaluator *runtime.Evaluator
	consumers map[string]domain.FrameConsumer

	loader           ports.DocumentLoader
	registry         *registry.Registry
	hooks            domain.LifecycleHooks
	logger           *slog.Logger
	parallelism      int
	cacheDepth       int
	replaceOnConnect bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom DocumentLoader, bypassing the default Loam initialization.
func WithLoader(l ports.DocumentLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithRegistry sets the node kinds available to loaded projects (default: nodes.NewRegistry()).
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithParallelism evaluates independent nodes concurrently with at most n goroutines.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithCacheDepth sets how many distinct times are cached per node.
func WithCacheDepth(n int) Option {
	return func(e *Engine) {
		e.cacheDepth = n
	}
}

// WithReplaceOnConnect makes connecting into an occupied input replace the old edge.
func WithReplaceOnConnect() Option {
	return func(e *Engine) {
		e.replaceOnConnect = true
	}
}

// New initializes an Engine from a project.
// By default, it reads a node-per-file Loam directory at projectPath.
// If WithLoader is provided, projectPath can be empty and Loam is skipped.
// With neither, the engine starts with an empty graph.
func New(projectPath string, opts ...Option) (*Engine, error) {
	eng := newEngine(opts)

	if eng.loader == nil && projectPath != "" {
		l, err := loamAdapter.Open(projectPath)
		if err != nil {
			return nil, err
		}
		eng.loader = l
	}

	if eng.loader == nil {
		eng.install(graph.New(graph.DefaultName, eng.graphOptions()...))
		return eng, nil
	}

	if err := eng.Reload(context.Background()); err != nil {
		return nil, err
	}
	return eng, nil
}

// FromDocument builds an Engine from an in-memory document.
func FromDocument(doc *schema.Document, opts ...Option) (*Engine, error) {
	eng := newEngine(opts)
	g, err := schema.Build(doc, eng.registry, eng.graphOptions()...)
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", doc.Name, err)
	}
	eng.install(g)
	return eng, nil
}

// FromGraph wraps an existing graph. The engine evaluates g in place.
func FromGraph(g *graph.Graph, opts ...Option) *Engine {
	eng := newEngine(opts)
	eng.install(g)
	return eng
}

func newEngine(opts []Option) *Engine {
	eng := &Engine{consumers: make(map[string]domain.FrameConsumer)}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.registry == nil {
		eng.registry = nodes.NewRegistry()
	}
	return eng
}

func (e *Engine) graphOptions() []graph.Option {
	opts := []graph.Option{graph.WithLogger(e.logger)}
	if e.replaceOnConnect {
		opts = append(opts, graph.WithReplaceOnConnect())
	}
	return opts
}

// install swaps in g with a fresh evaluator. Caller must not hold e.mu.
func (e *Engine) install(g *graph.Graph) {
	ev := runtime.NewEvaluator(g,
		runtime.WithLogger(e.logger.With("graph", g.Name())),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithParallelism(e.parallelism),
		runtime.WithCacheDepth(e.cacheDepth),
	)

	e.mu.Lock()
	old := e.evaluator
	e.graph = g
	e.evaluator = ev
	for id, c := range e.consumers {
		if err := e.attachLocked(id, c); err != nil {
			e.logger.Warn("viewer binding dropped after reload", "node", id, "error", err)
			delete(e.consumers, id)
		}
	}
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Reload rebuilds the graph from the loader. On error the current graph is kept.
func (e *Engine) Reload(ctx context.Context) error {
	if e.loader == nil {
		return fmt.Errorf("reload: no loader configured")
	}
	doc, err := e.loader.LoadDocument(ctx)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	g, err := schema.Build(doc, e.registry, e.graphOptions()...)
	if err != nil {
		return fmt.Errorf("build %q: %w", doc.Name, err)
	}
	e.install(g)
	e.logger.Debug("project loaded", "graph", g.Name(), "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	return nil
}

// Watch reloads the project whenever the loader reports a change, until ctx is done.
// Each reload outcome is sent on the returned channel (nil on success).
func (e *Engine) Watch(ctx context.Context) (<-chan error, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan error, 1)
	go func() {
		defer close(out)
		for range changes {
			err := e.Reload(ctx)
			if err != nil {
				e.logger.Warn("reload failed", "error", err)
			}
			select {
			case out <- err:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close detaches the evaluator from the graph.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evaluator != nil {
		e.evaluator.Close()
	}
}

// Name returns the graph name.
func (e *Engine) Name() string {
	return e.Graph().Name()
}

// Graph returns the live graph. Edits through it are seen by the next Render.
func (e *Engine) Graph() *graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// Registry returns the node kinds available to this engine.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Document returns the current graph in persisted form.
func (e *Engine) Document() (*schema.Document, error) {
	return schema.FromGraph(e.Graph())
}

// Stats reports evaluation cache counters.
func (e *Engine) Stats() runtime.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.evaluator.Stats()
}

// Render evaluates the node at t. Sinks deliver to their attached consumers.
func (e *Engine) Render(ctx context.Context, nodeID string, t domain.Time) (*ports.RenderResult, error) {
	// The evaluator and its graph are swapped together on reload.
	e.mu.RLock()
	ev, g := e.evaluator, e.graph
	e.mu.RUnlock()

	res, err := ev.EvaluateID(ctx, nodeID, t)
	if err != nil {
		return nil, err
	}

	n, _ := g.Node(nodeID)
	out := &ports.RenderResult{
		NodeID:    res.NodeID,
		Time:      res.Time,
		Outputs:   res.Outputs,
		Evaluated: res.Evaluated,
		CacheHits: res.CacheHits,
	}
	if n != nil {
		out.Value = res.Value(n)
	}
	for _, f := range res.Degraded {
		out.Degraded = append(out.Degraded, ports.Fault{NodeID: f.NodeID, Kind: f.Kind, Error: f.Err.Error()})
	}
	return out, nil
}

// SetParameter replaces an input parameter of a node.
func (e *Engine) SetParameter(ctx context.Context, nodeID, port string, param schema.ParamDoc) error {
	n, ok := e.Graph().Node(nodeID)
	if !ok {
		return fmt.Errorf("node %q: %w", nodeID, domain.ErrNodeNotFound)
	}
	in := n.Input(port)
	if in == nil {
		return fmt.Errorf("node %q input %q: %w", nodeID, port, domain.ErrPortNotFound)
	}
	p, err := schema.ParamFromDoc(in.Type(), param)
	if err != nil {
		return fmt.Errorf("node %q input %q: %w", nodeID, port, err)
	}
	return n.SetParameter(port, p)
}

// Attach binds a consumer to a viewer node. The binding survives reloads as long as the
// node still exists and is still a viewer.
func (e *Engine) Attach(nodeID string, c domain.FrameConsumer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.attachLocked(nodeID, c); err != nil {
		return err
	}
	e.consumers[nodeID] = c
	return nil
}

// Detach removes the consumer bound to a viewer node.
func (e *Engine) Detach(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.consumers, nodeID)
	if n, ok := e.graph.Node(nodeID); ok {
		if v, ok := nodes.ViewerOf(n); ok {
			v.DetachViewer()
		}
	}
}

func (e *Engine) attachLocked(nodeID string, c domain.FrameConsumer) error {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("attach %q: %w", nodeID, domain.ErrNodeNotFound)
	}
	v, ok := nodes.ViewerOf(n)
	if !ok {
		return fmt.Errorf("attach %q: %w", nodeID, ErrNotViewer)
	}
	v.AttachViewer(c)
	return nil
}

// Viewers lists the IDs of viewer nodes, in graph order.
func (e *Engine) Viewers() []string {
	var ids []string
	for _, n := range e.Graph().Nodes() {
		if _, ok := nodes.ViewerOf(n); ok {
			ids = append(ids, n.ID())
		}
	}
	return ids
}

var _ ports.Compositor = (*Engine)(nil)
