package graph

import (
	"fmt"

	"github.com/aretw0/compositor/pkg/domain"
)

// Binding says where an input's value comes from in a plan: an upstream output, or the
// input's own parameter when it is unconnected.
type Binding struct {
	Port   string
	Type   domain.ValueType
	Source *Port
	Param  domain.Parameter
}

// Step is one node in an evaluation plan, with its inputs resolved at snapshot time.
type Step struct {
	Node    *Node
	Version uint64
	// Depth is the length of the longest path from any source node; steps of equal depth
	// do not depend on each other.
	Depth  int
	Inputs []Binding
}

// Plan is an immutable snapshot of everything needed to evaluate Target. Later graph
// mutations do not affect a plan already taken.
type Plan struct {
	Graph  string
	Target *Node
	Steps  []Step
}

// Plan snapshots the upstream closure of target in topological order.
func (g *Graph) Plan(target *Node) (*Plan, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.Contains(target) {
		return nil, fmt.Errorf("plan: %w", domain.ErrNodeNotFound)
	}

	order := g.orderLocked(target)
	depth := make(map[*Node]int, len(order))
	steps := make([]Step, 0, len(order))

	for _, n := range order {
		d := 0
		bindings := make([]Binding, 0, len(n.inputs))
		for _, in := range n.inputs {
			b := Binding{Port: in.name, Type: in.typ}
			if in.src != nil {
				b.Source = in.src
				if sd := depth[in.src.node] + 1; sd > d {
					d = sd
				}
			} else {
				b.Param = in.param.Clone()
			}
			bindings = append(bindings, b)
		}
		depth[n] = d
		steps = append(steps, Step{Node: n, Version: n.version, Depth: d, Inputs: bindings})
	}

	return &Plan{Graph: g.name, Target: target, Steps: steps}, nil
}

// Levels groups steps by depth, preserving plan order inside each level.
func (p *Plan) Levels() [][]Step {
	var levels [][]Step
	for _, s := range p.Steps {
		for len(levels) <= s.Depth {
			levels = append(levels, nil)
		}
		levels[s.Depth] = append(levels[s.Depth], s)
	}
	return levels
}
