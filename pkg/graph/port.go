package graph

import "github.com/aretw0/compositor/pkg/domain"

// Direction tells inputs from outputs.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Port is a typed connection point owned by a node.
// Connection state is guarded by the owning graph's lock.
type Port struct {
	node *Node
	name string
	dir  Direction
	typ  domain.ValueType
	def  domain.Value

	// inputs only
	param domain.Parameter
	src   *Port

	// outputs only, in connection order
	dsts []*Port
}

func (p *Port) Node() *Node { return p.node }
func (p *Port) Name() string { return p.name }
func (p *Port) Direction() Direction { return p.dir }
func (p *Port) Type() domain.ValueType { return p.typ }

// Default is the value the port takes when it is unconnected and has no parameter set.
func (p *Port) Default() domain.Value { return p.def }

// String returns "node.port".
func (p *Port) String() string {
	return p.node.id + "." + p.name
}

// Source returns the output port feeding this input, or nil.
func (p *Port) Source() *Port {
	unlock := p.node.rlock()
	defer unlock()
	return p.src
}

// Connected reports whether an input has an incoming edge or an output fans out to at least one input.
func (p *Port) Connected() bool {
	unlock := p.node.rlock()
	defer unlock()
	if p.dir == Input {
		return p.src != nil
	}
	return len(p.dsts) > 0
}

// Targets returns the input ports fed by this output, in connection order.
func (p *Port) Targets() []*Port {
	unlock := p.node.rlock()
	defer unlock()
	return append([]*Port(nil), p.dsts...)
}

// Edge is a directed, type-checked link from an output port to an input port.
// Edges are derived from port state and are not separately owned.
type Edge struct {
	From *Port
	To   *Port
}

func (e Edge) String() string {
	return e.From.String() + " -> " + e.To.String()
}
