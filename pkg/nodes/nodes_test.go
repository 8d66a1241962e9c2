package nodes_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMath(t *testing.T) {
	tests := []struct {
		op      string
		a, b    float64
		want    float64
		wantErr bool
	}{
		{nodes.OpAdd, 2, 3, 5, false},
		{nodes.OpSubtract, 2, 3, -1, false},
		{nodes.OpMultiply, 2, 3, 6, false},
		{nodes.OpDivide, 3, 2, 1.5, false},
		{nodes.OpDivide, 3, 0, 0, true},
		{nodes.OpMin, 2, 3, 2, false},
		{nodes.OpMax, 2, 3, 3, false},
		{nodes.OpPow, 2, 3, 8, false},
		{"modulo", 2, 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			out, err := nodes.Math{}.Evaluate(domain.Time{}, graph.Values{
				"a":  domain.Number(tt.a),
				"b":  domain.Number(tt.b),
				"op": domain.String(tt.op),
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Number("result"))
		})
	}
}

func TestTime(t *testing.T) {
	out, err := nodes.Time{}.Evaluate(domain.NewTime(3, 2), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, out.Number("seconds"))
	assert.Equal(t, domain.NewTime(3, 2), out.Time("time"))
}

func TestSolid(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	out, err := nodes.Solid{}.Evaluate(domain.Time{}, graph.Values{
		"color":  domain.Color(red),
		"width":  domain.Number(4),
		"height": domain.Number(2),
	})
	require.NoError(t, err)

	img := out.Texture("texture")
	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
	assert.Equal(t, red, img.At(1, 1))
	assert.Equal(t, color.RGBA{}, img.At(9, 9))

	_, err = nodes.Solid{}.Evaluate(domain.Time{}, graph.Values{
		"width":  domain.Number(0),
		"height": domain.Number(2),
	})
	assert.Error(t, err)

	_, err = nodes.Solid{}.Evaluate(domain.Time{}, graph.Values{
		"width":  domain.Number(10),
		"height": domain.Number(nodes.MaxTextureSize + 1),
	})
	assert.Error(t, err)
}

func TestSolid_Defaults(t *testing.T) {
	n := graph.MustNode("solid", nodes.Solid{})
	p, err := n.Parameter("color")
	require.NoError(t, err)
	c, _ := p.Static.AsColor()
	assert.Equal(t, color.RGBA{A: 255}, c)

	p, err = n.Parameter("width")
	require.NoError(t, err)
	w, _ := p.Static.AsNumber()
	assert.Equal(t, float64(nodes.DefaultWidth), w)
}

func TestSwitch(t *testing.T) {
	a := &nodes.SolidImage{Rect: image.Rect(0, 0, 1, 1)}
	b := &nodes.SolidImage{Rect: image.Rect(0, 0, 2, 2)}
	in := graph.Values{"a": domain.Texture(a), "b": domain.Texture(b), "select": domain.Bool(false)}

	out, err := nodes.Switch{}.Evaluate(domain.Time{}, in)
	require.NoError(t, err)
	assert.Same(t, a, out.Texture("texture"))

	in["select"] = domain.Bool(true)
	out, err = nodes.Switch{}.Evaluate(domain.Time{}, in)
	require.NoError(t, err)
	assert.Same(t, b, out.Texture("texture"))
}

func TestViewer_Ports(t *testing.T) {
	v := nodes.NewViewer(domain.TypeNumber)
	n := graph.MustNode("viewer", v)
	assert.NotNil(t, n.Input("number"))
	assert.NotNil(t, n.Output("number"))

	def := nodes.NewViewer(domain.TypeAny)
	assert.Equal(t, domain.TypeTexture, def.Type())
	assert.Equal(t, map[string]any{"type": "texture"}, def.Config())
}

func TestViewer_Attach(t *testing.T) {
	v := nodes.NewViewer(domain.TypeTexture)
	frame := domain.Frame{NodeID: "viewer"}

	// Unattached delivery is a silent no-op.
	assert.False(t, v.Attached())
	assert.NoError(t, v.Deliver(context.Background(), frame))

	var got []domain.Frame
	v.AttachViewer(domain.FrameConsumerFunc(func(_ context.Context, f domain.Frame) error {
		got = append(got, f)
		return nil
	}))
	assert.True(t, v.Attached())
	require.NoError(t, v.Deliver(context.Background(), frame))
	assert.Len(t, got, 1)

	v.DetachViewer()
	assert.False(t, v.Attached())
	require.NoError(t, v.Deliver(context.Background(), frame))
	assert.Len(t, got, 1)
}

func TestRegister(t *testing.T) {
	reg := nodes.NewRegistry()
	assert.Equal(t, []string{"constant", "image", "math", "solid", "switch", "time", "viewer"}, reg.Names())

	k, err := reg.Kind(nodes.KindViewer, map[string]any{"type": "number"})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeNumber, k.(*nodes.Viewer).Type())

	_, err = reg.Kind(nodes.KindViewer, map[string]any{"type": "any"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = reg.Kind(nodes.KindViewer, map[string]any{"colour": "red"})
	assert.Error(t, err)

	k, err = reg.Kind(nodes.KindImage, map[string]any{"source": "clip.png"})
	require.NoError(t, err)
	assert.Equal(t, "clip.png", k.(nodes.Image).Source)

	_, err = reg.Kind("blur", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	n, err := reg.NewNode("c", nodes.KindConstant, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", n.ID())
}

func TestRegistry_EveryKindBuildsNode(t *testing.T) {
	reg := nodes.NewRegistry()
	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			k, err := reg.Kind(name, nil)
			require.NoError(t, err)
			n, err := graph.NewNode(name+"1", k)
			require.NoError(t, err)
			assert.Len(t, n.Inputs(), len(k.Inputs()))
			assert.Len(t, n.Outputs(), len(k.Outputs()))
		})
	}

	// Viewers pass their value through under the same port name.
	for _, typ := range []string{"number", "boolean", "string", "time", "color", "texture"} {
		k, err := reg.Kind(nodes.KindViewer, map[string]any{"type": typ})
		require.NoError(t, err, typ)
		n, err := graph.NewNode("viewer", k)
		require.NoError(t, err, typ)
		assert.NotNil(t, n.Input(typ), typ)
		assert.NotNil(t, n.Output(typ), typ)
	}
}
