package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"golang.org/x/sync/errgroup"
)

// NodeFault records a node that produced fallback outputs during a pass.
// Err always wraps domain.ErrNodeEvaluationDegraded.
type NodeFault struct {
	NodeID string
	Kind   string
	Err    error
}

func (f NodeFault) Error() string { return fmt.Sprintf("node %s (%s): %v", f.NodeID, f.Kind, f.Err) }
func (f NodeFault) Unwrap() error { return f.Err }

// Result is the outcome of one evaluation pass.
type Result struct {
	NodeID  string
	Time    domain.Time
	Outputs graph.Values
	// Frame is set when the target is a sink.
	Frame *domain.Frame
	// Evaluated counts nodes whose Evaluate ran; CacheHits counts nodes served from cache.
	Evaluated int
	CacheHits int
	Degraded  []NodeFault
}

// Value returns the target's first declared output.
func (r *Result) Value(target *graph.Node) domain.Value {
	outs := target.Outputs()
	if len(outs) == 0 {
		return domain.Value{}
	}
	return r.Outputs[outs[0].Name()]
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Evaluator computes the outputs of a target node at a requested time.
// It is safe for concurrent use.
type Evaluator struct {
	graph       *graph.Graph
	cache       *cache
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	parallelism int
	cacheDepth  int
	unsubscribe func()
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the evaluator logger.
func WithLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EvaluatorOption {
	return func(e *Evaluator) {
		e.hooks = hooks
	}
}

// WithParallelism evaluates nodes of equal topological depth concurrently, using at most
// n goroutines. Values below 2 keep the serial scheduler.
func WithParallelism(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.parallelism = n
	}
}

// WithCacheDepth sets how many distinct times are cached per node.
func WithCacheDepth(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.cacheDepth = n
	}
}

// NewEvaluator creates an evaluator bound to g. It subscribes to g's change
// notifications to drop stale cache entries; call Close to unsubscribe.
func NewEvaluator(g *graph.Graph, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		graph:  g,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = newCache(e.cacheDepth)
	e.unsubscribe = g.Subscribe(func(c graph.Change) {
		e.cache.prune(c.Affected)
	})
	return e
}

// Close detaches the evaluator from its graph.
func (e *Evaluator) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// Stats returns cache counters.
func (e *Evaluator) Stats() Stats {
	return Stats{
		Hits:    e.cache.hits.Load(),
		Misses:  e.cache.misses.Load(),
		Entries: e.cache.len(),
	}
}

// EvaluateID looks the target up by identifier and evaluates it.
func (e *Evaluator) EvaluateID(ctx context.Context, id string, t domain.Time) (*Result, error) {
	n, ok := e.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("evaluate %q: %w", id, domain.ErrNodeNotFound)
	}
	return e.Evaluate(ctx, n, t)
}

// Evaluate runs one pass over the upstream closure of target at time t.
//
// Nodes are visited ancestors first. A node whose cached result is still current is not
// re-evaluated. A node that fails, panics or returns malformed outputs is degraded: its
// outputs fall back to port defaults, the fault is recorded in the result and the pass
// continues. Cancellation is checked between nodes. When target is a sink its first
// output is delivered as a frame.
func (e *Evaluator) Evaluate(ctx context.Context, target *graph.Node, t domain.Time) (*Result, error) {
	if target == nil {
		return nil, fmt.Errorf("evaluate: %w", domain.ErrNodeNotFound)
	}
	plan, err := e.graph.Plan(target)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", target.ID(), err)
	}

	p := &pass{
		evaluator: e,
		plan:      plan,
		time:      t.Normalize(),
		outputs:   make(map[*graph.Node]graph.Values, len(plan.Steps)),
	}

	if e.parallelism > 1 {
		err = p.runParallel(ctx, e.parallelism)
	} else {
		err = p.runSerial(ctx)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		NodeID:    target.ID(),
		Time:      p.time,
		Outputs:   maps.Clone(p.outputs[target]),
		Evaluated: p.evaluated,
		CacheHits: p.hits,
		Degraded:  p.faults,
	}

	if sink, ok := target.Kind().(graph.Sink); ok {
		frame := domain.Frame{NodeID: target.ID(), Time: p.time, Value: res.Value(target)}
		res.Frame = &frame
		e.deliver(ctx, plan.Graph, sink, frame)
	}

	e.logger.Debug("evaluation complete",
		"node", target.ID(),
		"time", p.time.String(),
		"evaluated", res.Evaluated,
		"cache_hits", res.CacheHits,
		"degraded", len(res.Degraded))
	return res, nil
}

func (e *Evaluator) deliver(ctx context.Context, graphName string, sink graph.Sink, frame domain.Frame) {
	err := sink.Deliver(ctx, frame)
	if err != nil {
		e.logger.Warn("frame delivery failed", "node", frame.NodeID, "error", err)
	}
	if e.hooks.OnFrameDelivered != nil {
		e.hooks.OnFrameDelivered(ctx, &domain.FrameEvent{
			EventBase: domain.NewEventBase(domain.EventFrameDelivered, graphName),
			Frame:     frame,
			Err:       err,
		})
	}
}

// pass is the mutable state of a single Evaluate call.
type pass struct {
	evaluator *Evaluator
	plan      *graph.Plan
	time      domain.Time

	mu        sync.Mutex
	outputs   map[*graph.Node]graph.Values
	evaluated int
	hits      int
	faults    []NodeFault
}

func (p *pass) runSerial(ctx context.Context) error {
	for _, step := range p.plan.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evaluate %q cancelled before %q: %w", p.plan.Target.ID(), step.Node.ID(), err)
		}
		p.step(ctx, step)
	}
	return nil
}

func (p *pass) runParallel(ctx context.Context, limit int) error {
	for _, level := range p.plan.Levels() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evaluate %q cancelled: %w", p.plan.Target.ID(), err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, step := range level {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("evaluate %q cancelled before %q: %w", p.plan.Target.ID(), step.Node.ID(), err)
				}
				p.step(gctx, step)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// step produces one node's outputs, from cache or by evaluating it.
func (p *pass) step(ctx context.Context, step graph.Step) {
	e := p.evaluator
	n := step.Node

	if cached, ok := e.cache.get(n, step.Version, p.time); ok {
		p.record(n, cached.outputs, cached.fault, true)
		if e.hooks.OnCacheHit != nil {
			e.hooks.OnCacheHit(ctx, p.event(domain.EventCacheHit, n, 0, nil))
		}
		return
	}

	in := p.inputs(step)
	start := time.Now()
	out, fault := evaluateNode(n, p.time, in)
	elapsed := time.Since(start)

	e.cache.put(n, p.time, entry{version: step.Version, outputs: out, fault: fault})
	p.record(n, out, fault, false)

	if fault != nil {
		e.logger.Warn("node degraded",
			"node", n.ID(),
			"kind", n.Kind().Name(),
			"time", p.time.String(),
			"error", fault.Err)
		if e.hooks.OnNodeDegraded != nil {
			e.hooks.OnNodeDegraded(ctx, p.event(domain.EventNodeDegraded, n, elapsed, fault.Err))
		}
	}
	if e.hooks.OnNodeEvaluate != nil {
		var err error
		if fault != nil {
			err = fault.Err
		}
		e.hooks.OnNodeEvaluate(ctx, p.event(domain.EventNodeEvaluate, n, elapsed, err))
	}
}

func (p *pass) event(typ domain.EventType, n *graph.Node, d time.Duration, err error) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase: domain.NewEventBase(typ, p.plan.Graph),
		NodeID:    n.ID(),
		Kind:      n.Kind().Name(),
		Time:      p.time,
		Duration:  d,
		Err:       err,
	}
}

// inputs resolves every binding to a concrete value at the pass time.
func (p *pass) inputs(step graph.Step) graph.Values {
	p.mu.Lock()
	defer p.mu.Unlock()

	in := make(graph.Values, len(step.Inputs))
	for _, b := range step.Inputs {
		if b.Source != nil {
			in[b.Port] = p.outputs[b.Source.Node()][b.Source.Name()]
			continue
		}
		in[b.Port] = b.Param.At(p.time)
	}
	return in
}

func (p *pass) record(n *graph.Node, out graph.Values, fault *NodeFault, hit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outputs[n] = out
	if hit {
		p.hits++
	} else {
		p.evaluated++
	}
	if fault != nil {
		p.faults = append(p.faults, *fault)
	}
}

// evaluateNode calls the node's kind and normalizes whatever comes back into a full,
// correctly typed output set.
func evaluateNode(n *graph.Node, t domain.Time, in graph.Values) (out graph.Values, fault *NodeFault) {
	kind := n.Kind()
	degrade := func(cause error) *NodeFault {
		return &NodeFault{
			NodeID: n.ID(),
			Kind:   kind.Name(),
			Err:    fmt.Errorf("%w: %w", domain.ErrNodeEvaluationDegraded, cause),
		}
	}

	raw, err := safeEvaluate(kind, t, in)
	if err != nil {
		fault = degrade(err)
	}

	out = make(graph.Values, len(n.Outputs()))
	for _, port := range n.Outputs() {
		out[port.Name()] = port.Default()
		if err != nil {
			continue
		}
		v, ok := raw[port.Name()]
		switch {
		case !ok:
			if fault == nil {
				fault = degrade(fmt.Errorf("missing output %q", port.Name()))
			}
		case v.Type() != port.Type():
			if fault == nil {
				fault = degrade(fmt.Errorf("output %q is %s, want %s: %w", port.Name(), v.Type(), port.Type(), domain.ErrTypeMismatch))
			}
		default:
			out[port.Name()] = v
		}
	}
	return out, fault
}

func safeEvaluate(kind graph.Kind, t domain.Time, in graph.Values) (out graph.Values, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return kind.Evaluate(t, in)
}
