/*
Package dsl provides a fluent Go builder for compositor graphs.

It describes the same structure a project document does, so graphs built in code can be
saved, diffed and reloaded like any other project. This is mostly useful in tests and
when embedding the engine.

Example usage:

	b := dsl.New("Edit")

	b.Add("solid").
		Kind("solid").
		Set("color", domain.Color(color.RGBA{R: 255, A: 255}))

	b.Add("viewer").
		Kind("viewer").
		Config("type", "texture").
		From("texture", "solid.texture")

	g, err := b.Build(nodes.NewRegistry())
*/
package dsl
