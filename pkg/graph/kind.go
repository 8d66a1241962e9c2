package graph

import (
	"context"
	"image"
	"image/color"

	"github.com/aretw0/compositor/pkg/domain"
)

// PortSpec declares a port on a node kind.
// Default is the value an unconnected input evaluates to; when left invalid the
// type's zero value is used.
type PortSpec struct {
	Name    string
	Type    domain.ValueType
	Default domain.Value
}

// Values maps port names to values, for both evaluation inputs and outputs.
type Values map[string]domain.Value

// Number returns the named number, or 0.
func (v Values) Number(name string) float64 {
	f, _ := v[name].AsNumber()
	return f
}

// Bool returns the named boolean, or false.
func (v Values) Bool(name string) bool {
	b, _ := v[name].AsBool()
	return b
}

// String returns the named string, or "".
func (v Values) String(name string) string {
	s, _ := v[name].AsString()
	return s
}

// Time returns the named time, or 0.
func (v Values) Time(name string) domain.Time {
	t, _ := v[name].AsTime()
	return t.Normalize()
}

// Color returns the named color, or transparent black.
func (v Values) Color(name string) color.RGBA {
	c, _ := v[name].AsColor()
	return c
}

// Texture returns the named texture, or nil for the empty texture.
func (v Values) Texture(name string) image.Image {
	img, _ := v[name].AsTexture()
	return img
}

// Kind is the capability set every node kind implements.
//
// Evaluate must be deterministic and must not touch the graph: the same inputs at the
// same time always yield the same outputs. Inputs arrive fully resolved, with
// parameters already evaluated at t. A non-nil error degrades the node; the evaluator
// substitutes output defaults and keeps going.
type Kind interface {
	Name() string
	Inputs() []PortSpec
	Outputs() []PortSpec
	Evaluate(t domain.Time, in Values) (Values, error)
}

// Configurable kinds carry construction-time settings that must survive persistence.
type Configurable interface {
	Config() map[string]any
}

// Sink kinds hand their primary output to an external consumer when they are the
// target of an evaluation.
type Sink interface {
	Kind
	Deliver(ctx context.Context, frame domain.Frame) error
}
