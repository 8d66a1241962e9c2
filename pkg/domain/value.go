package domain

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// ValueType identifies the variant carried by a Value and the declared type of a port.
type ValueType string

const (
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeString  ValueType = "string"
	TypeTime    ValueType = "time"
	TypeColor   ValueType = "color"
	TypeTexture ValueType = "texture"

	// TypeAny is only valid as an input port declaration. It accepts every other type.
	TypeAny ValueType = "any"
)

// Valid reports whether t is a known type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeNumber, TypeBoolean, TypeString, TypeTime, TypeColor, TypeTexture, TypeAny:
		return true
	}
	return false
}

// Compatible reports whether a value produced as src may flow into a port declared as dst.
func Compatible(src, dst ValueType) bool {
	if dst == TypeAny {
		return src.Valid() && src != TypeAny
	}
	return src == dst && src != TypeAny
}

// Value is a closed tagged variant. The zero Value is invalid (Type() == "").
// Values are immutable; textures must not be mutated once wrapped.
type Value struct {
	typ ValueType
	num float64
	b   bool
	str string
	t   Time
	c   color.RGBA
	tex image.Image
}

// Number wraps a float64.
func Number(f float64) Value { return Value{typ: TypeNumber, num: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{typ: TypeBoolean, b: b} }

// String wraps a string.
func String(s string) Value { return Value{typ: TypeString, str: s} }

// TimeValue wraps a Time.
func TimeValue(t Time) Value { return Value{typ: TypeTime, t: t.Normalize()} }

// Color wraps a non-premultiplied RGBA color.
func Color(c color.RGBA) Value { return Value{typ: TypeColor, c: c} }

// Texture wraps an image. A nil image is the empty texture.
func Texture(img image.Image) Value { return Value{typ: TypeTexture, tex: img} }

// Zero returns the documented default for a type.
//
//	number 0, boolean false, string "", time 0, color transparent black, texture empty.
func Zero(t ValueType) Value {
	switch t {
	case TypeNumber:
		return Number(0)
	case TypeBoolean:
		return Bool(false)
	case TypeString:
		return String("")
	case TypeTime:
		return TimeValue(Time{})
	case TypeColor:
		return Color(color.RGBA{})
	case TypeTexture:
		return Texture(nil)
	}
	return Value{}
}

// Type returns the variant tag.
func (v Value) Type() ValueType { return v.typ }

// IsValid reports whether the value carries a variant.
func (v Value) IsValid() bool { return v.typ != "" }

func (v Value) AsNumber() (float64, bool) { return v.num, v.typ == TypeNumber }
func (v Value) AsBool() (bool, bool) { return v.b, v.typ == TypeBoolean }
func (v Value) AsString() (string, bool) { return v.str, v.typ == TypeString }
func (v Value) AsTime() (Time, bool) { return v.t, v.typ == TypeTime }
func (v Value) AsColor() (color.RGBA, bool) { return v.c, v.typ == TypeColor }
func (v Value) AsTexture() (image.Image, bool) { return v.tex, v.typ == TypeTexture }

// Equal compares two values. Textures compare by identity.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case TypeBoolean:
		return v.b == o.b
	case TypeString:
		return v.str == o.str
	case TypeTime:
		return v.t.Cmp(o.t) == 0
	case TypeColor:
		return v.c == o.c
	case TypeTexture:
		return v.tex == o.tex
	}
	return true
}

func (v Value) String() string {
	switch v.typ {
	case TypeNumber:
		return fmt.Sprintf("%g", v.num)
	case TypeBoolean:
		return fmt.Sprintf("%t", v.b)
	case TypeString:
		return fmt.Sprintf("%q", v.str)
	case TypeTime:
		return v.t.String()
	case TypeColor:
		return FormatColor(v.c)
	case TypeTexture:
		if v.tex == nil {
			return "texture(empty)"
		}
		b := v.tex.Bounds()
		return fmt.Sprintf("texture(%dx%d)", b.Dx(), b.Dy())
	}
	return "<invalid>"
}

// FormatColor renders c as #rrggbbaa.
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
