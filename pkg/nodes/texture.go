package nodes

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
)

// MaxTextureSize bounds the width and height a generator may produce.
const MaxTextureSize = 16384

// Default solid dimensions.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// SolidImage is a uniform texture. It holds no pixel buffer; every pixel reports the same color.
type SolidImage struct {
	Fill color.RGBA
	Rect image.Rectangle
}

func (s *SolidImage) ColorModel() color.Model { return color.RGBAModel }
func (s *SolidImage) Bounds() image.Rectangle { return s.Rect }

func (s *SolidImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(s.Rect)) {
		return color.RGBA{}
	}
	return s.Fill
}

// Solid generates a uniform color texture. Unconnected it is opaque black at 1920x1080.
type Solid struct{}

func (Solid) Name() string { return KindSolid }

func (Solid) Inputs() []graph.PortSpec {
	return []graph.PortSpec{
		{Name: "color", Type: domain.TypeColor, Default: domain.Color(color.RGBA{A: 255})},
		{Name: "width", Type: domain.TypeNumber, Default: domain.Number(DefaultWidth)},
		{Name: "height", Type: domain.TypeNumber, Default: domain.Number(DefaultHeight)},
	}
}

func (Solid) Outputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "texture", Type: domain.TypeTexture}}
}

func (Solid) Evaluate(_ domain.Time, in graph.Values) (graph.Values, error) {
	w, err := dimension("width", in.Number("width"))
	if err != nil {
		return nil, err
	}
	h, err := dimension("height", in.Number("height"))
	if err != nil {
		return nil, err
	}
	img := &SolidImage{Fill: in.Color("color"), Rect: image.Rect(0, 0, w, h)}
	return graph.Values{"texture": domain.Texture(img)}, nil
}

func dimension(name string, v float64) (int, error) {
	n := int(math.Round(v))
	if n <= 0 || n > MaxTextureSize {
		return 0, fmt.Errorf("%s %g out of range (1..%d)", name, v, MaxTextureSize)
	}
	return n, nil
}

// Image is a footage source. Decoding happens outside the graph; the decoded texture is
// handed in through the footage input, usually as a parameter. Source names the media
// for display and persistence only.
type Image struct {
	Source string `mapstructure:"source"`
}

func (Image) Name() string { return KindImage }

func (Image) Inputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "footage", Type: domain.TypeTexture}}
}

func (Image) Outputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "texture", Type: domain.TypeTexture}}
}

func (Image) Evaluate(_ domain.Time, in graph.Values) (graph.Values, error) {
	return graph.Values{"texture": domain.Texture(in.Texture("footage"))}, nil
}

func (i Image) Config() map[string]any {
	if i.Source == "" {
		return nil
	}
	return map[string]any{"source": i.Source}
}

// Switch picks between two textures. Unconnected select is false, which picks a.
type Switch struct{}

func (Switch) Name() string { return KindSwitch }

func (Switch) Inputs() []graph.PortSpec {
	return []graph.PortSpec{
		{Name: "a", Type: domain.TypeTexture},
		{Name: "b", Type: domain.TypeTexture},
		{Name: "select", Type: domain.TypeBoolean},
	}
}

func (Switch) Outputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "texture", Type: domain.TypeTexture}}
}

func (Switch) Evaluate(_ domain.Time, in graph.Values) (graph.Values, error) {
	pick := "a"
	if in.Bool("select") {
		pick = "b"
	}
	return graph.Values{"texture": domain.Texture(in.Texture(pick))}, nil
}
