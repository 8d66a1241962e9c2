package schema_test

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"strings"
	"testing"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/schema"
)

const demoYAML = `version: 1
name: New Graph
nodes:
  - id: solid.generator
    kind: solid
    params:
      color: {value: "#ff000080"}
      width:
        keyframes:
          - {time: "0", value: 640}
          - {time: "1/2", value: 1280, interp: hold}
  - id: footage
    kind: image
    config: {source: clip.png}
  - id: viewer
    kind: viewer
    config: {type: texture}
edges:
  - from: solid.generator.texture
    to: viewer.texture
`

func TestBuild_FromYAML(t *testing.T) {
	doc, err := schema.Unmarshal([]byte(demoYAML), schema.FormatYAML)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	g, err := schema.Build(doc, nodes.NewRegistry())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if g.Name() != "New Graph" {
		t.Errorf("Name() = %q, want %q", g.Name(), "New Graph")
	}
	if got := len(g.Nodes()); got != 3 {
		t.Fatalf("len(Nodes()) = %d, want 3", got)
	}

	solid, ok := g.Node("solid.generator")
	if !ok {
		t.Fatal("node solid.generator missing")
	}
	p, _ := solid.Parameter("color")
	if c, _ := p.Static.AsColor(); c != (color.RGBA{R: 255, A: 128}) {
		t.Errorf("color = %v", c)
	}
	p, _ = solid.Parameter("width")
	if !p.IsAnimated() || len(p.Keyframes) != 2 {
		t.Fatalf("width keyframes = %+v", p.Keyframes)
	}
	if p.Keyframes[1].Interp != domain.InterpolationHold {
		t.Errorf("interp = %q, want hold", p.Keyframes[1].Interp)
	}

	edges := g.Edges()
	if len(edges) != 1 || edges[0].String() != "solid.generator.texture -> viewer.texture" {
		t.Errorf("edges = %v", edges)
	}
}

func TestRoundTrip_StableIdentifiers(t *testing.T) {
	reg := nodes.NewRegistry()
	g := graph.New("Edit")
	k := graph.MustNode("k-01", nodes.Constant{})
	m := graph.MustNode("m-02", nodes.Math{})
	v := graph.MustNode("v-03", nodes.NewViewer(domain.TypeNumber))
	for _, n := range []*graph.Node{k, m, v} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	_ = k.SetValue("value", domain.Number(4))
	_ = m.SetValue("op", domain.String(nodes.OpMultiply))
	_ = m.SetParameter("b", domain.Animated(
		domain.Keyframe{Time: domain.NewTime(0, 1), Value: domain.Number(1)},
		domain.Keyframe{Time: domain.NewTime(1, 30), Value: domain.Number(2)},
	))
	if err := g.ConnectByID("k-01", "value", "m-02", "a"); err != nil {
		t.Fatal(err)
	}
	if err := g.ConnectByID("m-02", "result", "v-03", "number"); err != nil {
		t.Fatal(err)
	}

	for _, format := range []schema.Format{schema.FormatYAML, schema.FormatJSON} {
		doc, err := schema.FromGraph(g)
		if err != nil {
			t.Fatalf("FromGraph() error = %v", err)
		}
		data, err := schema.Marshal(doc, format)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", format, err)
		}
		back, err := schema.Unmarshal(data, format)
		if err != nil {
			t.Fatalf("Unmarshal(%s) error = %v\n%s", format, err, data)
		}
		g2, err := schema.Build(back, reg)
		if err != nil {
			t.Fatalf("Build(%s) error = %v", format, err)
		}

		var ids []string
		for _, n := range g2.Nodes() {
			ids = append(ids, n.ID())
		}
		if strings.Join(ids, ",") != "k-01,m-02,v-03" {
			t.Errorf("%s: ids = %v", format, ids)
		}
		if len(g2.Edges()) != 2 {
			t.Errorf("%s: edges = %v", format, g2.Edges())
		}

		m2, _ := g2.Node("m-02")
		op, _ := m2.Parameter("op")
		if s, _ := op.Static.AsString(); s != nodes.OpMultiply {
			t.Errorf("%s: op = %q", format, s)
		}
		b, _ := m2.Parameter("b")
		if len(b.Keyframes) != 2 || b.Keyframes[1].Time != domain.NewTime(1, 30) {
			t.Errorf("%s: b keyframes = %+v", format, b.Keyframes)
		}

		v2, _ := g2.Node("v-03")
		if vk, ok := nodes.ViewerOf(v2); !ok || vk.Type() != domain.TypeNumber {
			t.Errorf("%s: viewer type lost", format)
		}
	}
}

func TestFromGraph_OmitsDefaults(t *testing.T) {
	g := graph.New("")
	_ = g.AddNode(graph.MustNode("solid", nodes.Solid{}))

	doc, err := schema.FromGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != graph.DefaultName {
		t.Errorf("Name = %q", doc.Name)
	}
	if len(doc.Nodes[0].Params) != 0 {
		t.Errorf("Params = %v, want none", doc.Nodes[0].Params)
	}
}

func TestValidate_Errors(t *testing.T) {
	doc := &schema.Document{
		Version: 1,
		Nodes: []schema.NodeDoc{
			{ID: "a", Kind: "constant", Params: map[string]schema.ParamDoc{"value": {Value: "high"}}},
			{ID: "a", Kind: "constant"},
			{ID: "b", Kind: "blur"},
			{ID: "", Kind: "constant"},
			{ID: "c", Kind: "math", Params: map[string]schema.ParamDoc{"gain": {Value: 1}}},
		},
		Edges: []schema.EdgeDoc{
			{From: "a.value", To: "ghost.in"},
			{From: "a.nope", To: "c.a"},
			{From: "novalue", To: "c.b"},
		},
	}

	err := schema.Validate(doc, nodes.NewRegistry())
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	errs := schema.ValidationErrors(err)
	if len(errs) != 8 {
		t.Fatalf("got %d errors, want 8:\n%v", len(errs), err)
	}

	for _, want := range []error{
		domain.ErrTypeMismatch,
		domain.ErrDuplicateNodeID,
		domain.ErrUnknownKind,
		domain.ErrPortNotFound,
		domain.ErrNodeNotFound,
	} {
		if !errors.Is(err, want) {
			t.Errorf("errors.Is(err, %v) = false", want)
		}
	}

	if _, err := schema.Build(doc, nodes.NewRegistry()); err == nil {
		t.Error("Build() should refuse an invalid document")
	}
}

func TestBuild_RejectsCycle(t *testing.T) {
	doc := &schema.Document{
		Nodes: []schema.NodeDoc{{ID: "a", Kind: "math"}, {ID: "b", Kind: "math"}},
		Edges: []schema.EdgeDoc{
			{From: "a.result", To: "b.a"},
			{From: "b.result", To: "a.a"},
		},
	}
	_, err := schema.Build(doc, nodes.NewRegistry())
	if !errors.Is(err, domain.ErrCycleDetected) {
		t.Errorf("Build() error = %v, want ErrCycleDetected", err)
	}
}

func TestUnmarshal_UnknownField(t *testing.T) {
	_, err := schema.Unmarshal([]byte("name: x\nnodez: []\n"), schema.FormatYAML)
	if err == nil {
		t.Error("expected unknown field error")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ff8000", color.RGBA{R: 255, G: 128, A: 255}, false},
		{"#00000080", color.RGBA{A: 128}, false},
		{"red", color.RGBA{R: 255, A: 255}, false},
		{"Teal", color.RGBA{G: 128, B: 128, A: 255}, false},
		{"#fff", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
		{"ultraviolet", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := schema.ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePortRef(t *testing.T) {
	r, err := schema.ParsePortRef("a.b.c")
	if err != nil || r.Node != "a.b" || r.Port != "c" {
		t.Errorf("ParsePortRef() = %+v, %v", r, err)
	}
	for _, bad := range []string{"", "abc", ".x", "x."} {
		if _, err := schema.ParsePortRef(bad); err == nil {
			t.Errorf("ParsePortRef(%q) should fail", bad)
		}
	}
}

func TestAPIValue(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Value
		want any
	}{
		{"number", domain.Number(1.5), 1.5},
		{"time", domain.TimeValue(domain.NewTime(1, 2)), "1/2"},
		{"color", domain.Color(color.RGBA{R: 255, A: 255}), "#ff0000ff"},
		{"texture", domain.Texture(image.NewRGBA(image.Rect(0, 0, 4, 3))), map[string]int{"width": 4, "height": 3}},
		{"nil texture", domain.Texture(nil), nil},
		{"invalid", domain.Value{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schema.APIValue(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("APIValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
