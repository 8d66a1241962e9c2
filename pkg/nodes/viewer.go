package nodes

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
)

// Viewer is the sink node kind. It passes its single input through and, when it is the
// target of an evaluation, hands the result to the attached consumer. An unattached
// viewer still evaluates; the frame is returned to the caller and otherwise dropped.
//
// The input and output ports are both named after the viewer's value type.
type Viewer struct {
	typ domain.ValueType

	mu       sync.RWMutex
	consumer domain.FrameConsumer
}

// NewViewer creates a viewer for the given value type. An invalid or any type falls back
// to texture.
func NewViewer(t domain.ValueType) *Viewer {
	if !t.Valid() || t == domain.TypeAny {
		t = domain.TypeTexture
	}
	return &Viewer{typ: t}
}

// ViewerOf returns n's kind as a Viewer.
func ViewerOf(n *graph.Node) (*Viewer, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.Kind().(*Viewer)
	return v, ok
}

func (v *Viewer) Name() string { return KindViewer }

// Type is the viewer's value type.
func (v *Viewer) Type() domain.ValueType { return v.typ }

func (v *Viewer) Inputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: string(v.typ), Type: v.typ}}
}

func (v *Viewer) Outputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: string(v.typ), Type: v.typ}}
}

func (v *Viewer) Evaluate(_ domain.Time, in graph.Values) (graph.Values, error) {
	val, ok := in[string(v.typ)]
	if !ok || val.Type() != v.typ {
		return nil, fmt.Errorf("viewer input %q missing", v.typ)
	}
	return graph.Values{string(v.typ): val}, nil
}

func (v *Viewer) Config() map[string]any {
	return map[string]any{"type": string(v.typ)}
}

// AttachViewer binds a consumer. Subsequent evaluations targeting this viewer deliver to it.
func (v *Viewer) AttachViewer(c domain.FrameConsumer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.consumer = c
}

// DetachViewer clears the binding.
func (v *Viewer) DetachViewer() {
	v.AttachViewer(nil)
}

// Attached reports whether a consumer is bound.
func (v *Viewer) Attached() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.consumer != nil
}

// Deliver hands the frame to the attached consumer, if any.
func (v *Viewer) Deliver(ctx context.Context, frame domain.Frame) error {
	v.mu.RLock()
	c := v.consumer
	v.mu.RUnlock()

	if c == nil {
		return nil
	}
	return c.ConsumeFrame(ctx, frame)
}
