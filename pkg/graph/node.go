package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/aretw0/compositor/pkg/domain"
)

// Node is a unit of computation: a Kind plus the fixed set of ports derived from it.
// A node belongs to at most one Graph. Its identifier is stable and never localized,
// since persistence and external references key on it.
type Node struct {
	id      string
	kind    Kind
	inputs  []*Port
	outputs []*Port

	graph atomic.Pointer[Graph]

	// version is bumped on every change that invalidates this node's cached outputs.
	// Guarded by the owning graph's lock.
	version uint64
}

// NewNode builds a node and its ports from the kind's declarations.
// Ports are fixed from here on.
func NewNode(id string, kind Kind) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("node id cannot be empty")
	}
	if kind == nil {
		return nil, fmt.Errorf("node %s: kind cannot be nil", id)
	}

	n := &Node{id: id, kind: kind}

	// Names are unique per direction; an input may share its output's name.
	seen := make(map[string]bool)
	for _, spec := range kind.Inputs() {
		if err := checkSpec(id, spec, seen); err != nil {
			return nil, err
		}
		def := spec.Default
		if !def.IsValid() {
			def = domain.Zero(spec.Type)
		}
		if spec.Type != domain.TypeAny && def.Type() != spec.Type {
			return nil, fmt.Errorf("node %s: default for input %q is %s, want %s: %w",
				id, spec.Name, def.Type(), spec.Type, domain.ErrTypeMismatch)
		}
		n.inputs = append(n.inputs, &Port{
			node:  n,
			name:  spec.Name,
			dir:   Input,
			typ:   spec.Type,
			def:   def,
			param: domain.StaticParameter(def),
		})
	}

	seen = make(map[string]bool)
	for _, spec := range kind.Outputs() {
		if err := checkSpec(id, spec, seen); err != nil {
			return nil, err
		}
		if spec.Type == domain.TypeAny {
			return nil, fmt.Errorf("node %s: output %q must declare a concrete type", id, spec.Name)
		}
		n.outputs = append(n.outputs, &Port{
			node: n,
			name: spec.Name,
			dir:  Output,
			typ:  spec.Type,
			def:  domain.Zero(spec.Type),
		})
	}

	return n, nil
}

func checkSpec(id string, spec PortSpec, seen map[string]bool) error {
	if spec.Name == "" {
		return fmt.Errorf("node %s: port name cannot be empty", id)
	}
	if !spec.Type.Valid() {
		return fmt.Errorf("node %s: port %q has unknown type %q", id, spec.Name, spec.Type)
	}
	if seen[spec.Name] {
		return fmt.Errorf("node %s: duplicate port name %q", id, spec.Name)
	}
	seen[spec.Name] = true
	return nil
}

// MustNode is like NewNode but panics on invalid declarations.
func MustNode(id string, kind Kind) *Node {
	n, err := NewNode(id, kind)
	if err != nil {
		panic(err)
	}
	return n
}

func (n *Node) ID() string { return n.id }

// Kind returns the node's behaviour.
func (n *Node) Kind() Kind { return n.kind }

// Graph returns the owning graph, or nil when the node is detached.
func (n *Node) Graph() *Graph { return n.graph.Load() }

// Inputs returns the input ports in declaration order.
func (n *Node) Inputs() []*Port { return append([]*Port(nil), n.inputs...) }

// Outputs returns the output ports in declaration order.
func (n *Node) Outputs() []*Port { return append([]*Port(nil), n.outputs...) }

// Input returns the named input port, or nil.
func (n *Node) Input(name string) *Port {
	for _, p := range n.inputs {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Output returns the named output port, or nil.
func (n *Node) Output(name string) *Port {
	for _, p := range n.outputs {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.id, n.kind.Name())
}

// rlock takes the owning graph's read lock, if any.
func (n *Node) rlock() func() {
	g := n.graph.Load()
	if g == nil {
		return func() {}
	}
	g.mu.RLock()
	return g.mu.RUnlock
}

// Parameter returns the value an unconnected input evaluates to.
func (n *Node) Parameter(port string) (domain.Parameter, error) {
	p := n.Input(port)
	if p == nil {
		return domain.Parameter{}, fmt.Errorf("node %s input %q: %w", n.id, port, domain.ErrPortNotFound)
	}
	unlock := n.rlock()
	defer unlock()
	return p.param.Clone(), nil
}

// SetValue sets a static parameter on an input.
func (n *Node) SetValue(port string, v domain.Value) error {
	return n.SetParameter(port, domain.StaticParameter(v))
}

// SetParameter replaces an input's parameter. When the node is inside a graph the change
// invalidates the node and everything downstream of it.
func (n *Node) SetParameter(port string, param domain.Parameter) error {
	p := n.Input(port)
	if p == nil {
		return fmt.Errorf("node %s input %q: %w", n.id, port, domain.ErrPortNotFound)
	}
	if err := checkParameter(p, param); err != nil {
		return err
	}
	param = param.Clone()

	if g := n.graph.Load(); g != nil {
		return g.setParameter(n, p, param)
	}
	p.param = param
	return nil
}

func checkParameter(p *Port, param domain.Parameter) error {
	types := []domain.ValueType{param.Static.Type()}
	for _, k := range param.Keyframes {
		types = append(types, k.Value.Type())
	}
	for _, t := range types {
		if !domain.Compatible(t, p.typ) {
			return fmt.Errorf("parameter %s: got %q, want %q: %w", p, t, p.typ, domain.ErrTypeMismatch)
		}
		if t != types[0] {
			return fmt.Errorf("parameter %s: mixed keyframe types %q and %q: %w", p, types[0], t, domain.ErrTypeMismatch)
		}
	}
	return nil
}
