package cli

import (
	"image/color"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/dsl"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/schema"
)

// DemoDocument is the starter project: a solid generator feeding a viewer, plus an image
// input that is not wired yet.
func DemoDocument() *schema.Document {
	b := dsl.New(graph.DefaultName)
	b.Add("solid.generator").Kind(nodes.KindSolid).
		Animate("color",
			domain.Keyframe{Time: domain.NewTime(0, 1), Value: domain.Color(color.RGBA{R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff})},
			domain.Keyframe{Time: domain.NewTime(2, 1), Value: domain.Color(color.RGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff})},
		).
		Set("width", domain.Number(640)).
		Set("height", domain.Number(360))
	b.Add("viewer").Kind(nodes.KindViewer).Config("type", "texture").From("texture", "solid.generator.texture")
	b.Add("image.input").Kind(nodes.KindImage)

	doc, err := b.Document()
	if err != nil {
		// The demo is static; a failure here is a programming error.
		panic(err)
	}
	return doc
}
