package dsl

import (
	"fmt"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	doc     schema.NodeDoc
	params  []namedParam
	builder *Builder
}

type namedParam struct {
	port  string
	param domain.Parameter
}

// Kind sets the registered kind name.
func (n *NodeBuilder) Kind(name string) *NodeBuilder {
	n.doc.Kind = name
	return n
}

// Config sets one construction-time setting of the kind.
func (n *NodeBuilder) Config(key string, value any) *NodeBuilder {
	if n.doc.Config == nil {
		n.doc.Config = make(map[string]any)
	}
	n.doc.Config[key] = value
	return n
}

// Set gives an input a static value.
func (n *NodeBuilder) Set(port string, v domain.Value) *NodeBuilder {
	n.params = append(n.params, namedParam{port: port, param: domain.StaticParameter(v)})
	return n
}

// Animate keyframes an input.
func (n *NodeBuilder) Animate(port string, keys ...domain.Keyframe) *NodeBuilder {
	n.params = append(n.params, namedParam{port: port, param: domain.Animated(keys...)})
	return n
}

// From feeds one of this node's inputs from a "node.port" output reference.
func (n *NodeBuilder) From(input, source string) *NodeBuilder {
	n.builder.Connect(source, n.doc.ID+"."+input)
	return n
}

// Build returns the node's document form.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() (schema.NodeDoc, error) {
	doc := n.doc
	if len(n.params) > 0 {
		doc.Params = make(map[string]schema.ParamDoc, len(n.params))
	}
	for _, p := range n.params {
		pd, err := schema.ParamToDoc(p.param)
		if err != nil {
			return doc, fmt.Errorf("node %s param %s: %w", n.doc.ID, p.port, err)
		}
		doc.Params[p.port] = pd
	}
	return doc, nil
}
