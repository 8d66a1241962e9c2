package schema

import (
	"fmt"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/registry"
)

// FromGraph captures g as a document. Inputs still at their declared default are
// omitted, as are texture parameters.
func FromGraph(g *graph.Graph) (*Document, error) {
	doc := &Document{Version: CurrentVersion, Name: g.Name()}

	for _, n := range g.Nodes() {
		nd := NodeDoc{ID: n.ID(), Kind: n.Kind().Name()}
		if c, ok := n.Kind().(graph.Configurable); ok {
			nd.Config = c.Config()
		}

		for _, in := range n.Inputs() {
			if in.Type() == domain.TypeTexture {
				continue
			}
			p, err := n.Parameter(in.Name())
			if err != nil {
				return nil, err
			}
			if !p.IsAnimated() && p.Static.Equal(in.Default()) {
				continue
			}
			pd, err := ParamToDoc(p)
			if err != nil {
				return nil, fmt.Errorf("node %s param %s: %w", n.ID(), in.Name(), err)
			}
			if nd.Params == nil {
				nd.Params = make(map[string]ParamDoc)
			}
			nd.Params[in.Name()] = pd
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{From: e.From.String(), To: e.To.String()})
	}
	return doc, nil
}

// Build validates doc and constructs the graph it describes.
func Build(doc *Document, reg *registry.Registry, opts ...graph.Option) (*graph.Graph, error) {
	if err := Validate(doc, reg); err != nil {
		return nil, err
	}

	g := graph.New(doc.Name, opts...)
	for _, nd := range doc.Nodes {
		n, err := reg.NewNode(nd.ID, nd.Kind, nd.Config)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
		if err := ApplyParams(n, nd.Params); err != nil {
			return nil, err
		}
	}

	for i, ed := range doc.Edges {
		from, _ := ParsePortRef(ed.From)
		to, _ := ParsePortRef(ed.To)
		if err := g.ConnectByID(from.Node, from.Port, to.Node, to.Port); err != nil {
			return nil, fmt.Errorf("edges[%d] %s -> %s: %w", i, ed.From, ed.To, err)
		}
	}
	return g, nil
}

// ApplyParams sets document parameters on a node's inputs.
func ApplyParams(n *graph.Node, params map[string]ParamDoc) error {
	for name, pd := range params {
		in := n.Input(name)
		if in == nil {
			return fmt.Errorf("node %s param %s: %w", n.ID(), name, domain.ErrPortNotFound)
		}
		p, err := ParamFromDoc(in.Type(), pd)
		if err != nil {
			return fmt.Errorf("node %s param %s: %w", n.ID(), name, err)
		}
		if err := n.SetParameter(name, p); err != nil {
			return err
		}
	}
	return nil
}

// ParamToDoc encodes a parameter.
func ParamToDoc(p domain.Parameter) (ParamDoc, error) {
	var pd ParamDoc
	if !p.IsAnimated() {
		v, err := EncodeValue(p.Static)
		if err != nil {
			return pd, err
		}
		pd.Value = v
		return pd, nil
	}

	for _, k := range p.Keyframes {
		v, err := EncodeValue(k.Value)
		if err != nil {
			return pd, err
		}
		kd := KeyframeDoc{Time: k.Time.String(), Value: v}
		if k.Interp != domain.InterpolationLinear {
			kd.Interp = string(k.Interp)
		}
		pd.Keyframes = append(pd.Keyframes, kd)
	}
	return pd, nil
}

// ParamFromDoc decodes a parameter for a port of type t.
func ParamFromDoc(t domain.ValueType, pd ParamDoc) (domain.Parameter, error) {
	if len(pd.Keyframes) == 0 {
		if pd.Value == nil {
			return domain.Parameter{}, fmt.Errorf("parameter has neither value nor keyframes")
		}
		v, err := DecodeValue(t, pd.Value)
		if err != nil {
			return domain.Parameter{}, err
		}
		return domain.StaticParameter(v), nil
	}

	keys := make([]domain.Keyframe, 0, len(pd.Keyframes))
	for i, kd := range pd.Keyframes {
		at, err := domain.ParseTime(kd.Time)
		if err != nil {
			return domain.Parameter{}, fmt.Errorf("keyframes[%d]: %w", i, err)
		}
		v, err := DecodeValue(t, kd.Value)
		if err != nil {
			return domain.Parameter{}, fmt.Errorf("keyframes[%d]: %w", i, err)
		}
		interp := domain.InterpolationLinear
		switch domain.Interpolation(kd.Interp) {
		case "", domain.InterpolationLinear:
		case domain.InterpolationHold:
			interp = domain.InterpolationHold
		default:
			return domain.Parameter{}, fmt.Errorf("keyframes[%d]: unknown interpolation %q", i, kd.Interp)
		}
		keys = append(keys, domain.Keyframe{Time: at, Value: v, Interp: interp})
	}
	return domain.Animated(keys...), nil
}
