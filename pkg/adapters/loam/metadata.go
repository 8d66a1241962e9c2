package loam

// NodeMetadata is the frontmatter of one node file.
// It uses "mapstructure" tags to match the YAML/JSON keys.
//
//	---
//	kind: math
//	config:
//	  op: multiply
//	params:
//	  b: {value: 2}
//	inputs:
//	  a: clock.seconds
//	---
type NodeMetadata struct {
	ID     string         `json:"id" mapstructure:"id"`
	Kind   string         `json:"kind" mapstructure:"kind"`
	Config map[string]any `json:"config" mapstructure:"config"`

	// Params holds ParamDoc-shaped maps; they are decoded leniently because keyframe
	// times may arrive as numbers.
	Params map[string]any `json:"params" mapstructure:"params"`

	// Inputs maps an input port of this node to its source "node.port".
	Inputs map[string]string `json:"inputs" mapstructure:"inputs"`

	// Graph names the project; the first node that sets it wins.
	Graph string `json:"graph" mapstructure:"graph"`
}
