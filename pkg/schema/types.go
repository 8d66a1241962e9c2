package schema

import (
	"fmt"
	"strings"
)

// CurrentVersion is the document format version written by FromGraph.
const CurrentVersion = 1

// Document is the persisted form of a graph.
type Document struct {
	Version int       `json:"version" yaml:"version"`
	Name    string    `json:"name" yaml:"name"`
	Nodes   []NodeDoc `json:"nodes" yaml:"nodes"`
	Edges   []EdgeDoc `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// NodeDoc describes a single node.
type NodeDoc struct {
	ID     string              `json:"id" yaml:"id"`
	Kind   string              `json:"kind" yaml:"kind"`
	Config map[string]any      `json:"config,omitempty" yaml:"config,omitempty"`
	Params map[string]ParamDoc `json:"params,omitempty" yaml:"params,omitempty"`
}

// ParamDoc is an input parameter: a static value, keyframes, or both.
type ParamDoc struct {
	Value     any           `json:"value,omitempty" yaml:"value,omitempty"`
	Keyframes []KeyframeDoc `json:"keyframes,omitempty" yaml:"keyframes,omitempty"`
}

// KeyframeDoc is one key on an animated parameter.
type KeyframeDoc struct {
	Time   string `json:"time" yaml:"time"`
	Value  any    `json:"value" yaml:"value"`
	Interp string `json:"interp,omitempty" yaml:"interp,omitempty"`
}

// EdgeDoc links "node.port" references.
type EdgeDoc struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// PortRef is a parsed "node.port" reference.
type PortRef struct {
	Node string
	Port string
}

func (r PortRef) String() string { return r.Node + "." + r.Port }

// ParsePortRef splits "node.port" on its last dot, so node identifiers may contain dots.
func ParsePortRef(s string) (PortRef, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return PortRef{}, fmt.Errorf("invalid port reference %q, want node.port", s)
	}
	return PortRef{Node: s[:i], Port: s[i+1:]}, nil
}

// Node returns the document node with the given identifier.
func (d *Document) Node(id string) (*NodeDoc, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Version: d.Version, Name: d.Name}
	for _, n := range d.Nodes {
		nc := NodeDoc{ID: n.ID, Kind: n.Kind}
		if n.Config != nil {
			nc.Config = cloneMap(n.Config)
		}
		if n.Params != nil {
			nc.Params = make(map[string]ParamDoc, len(n.Params))
			for k, p := range n.Params {
				nc.Params[k] = ParamDoc{
					Value:     cloneAny(p.Value),
					Keyframes: append([]KeyframeDoc(nil), p.Keyframes...),
				}
			}
		}
		out.Nodes = append(out.Nodes, nc)
	}
	out.Edges = append(out.Edges, d.Edges...)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneAny(e)
		}
		return out
	}
	return v
}
