package domain

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatible(t *testing.T) {
	tests := []struct {
		src, dst ValueType
		want     bool
	}{
		{TypeNumber, TypeNumber, true},
		{TypeNumber, TypeBoolean, false},
		{TypeTexture, TypeAny, true},
		{TypeAny, TypeAny, false},
		{TypeColor, TypeTexture, false},
		{ValueType("bogus"), TypeAny, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compatible(tt.src, tt.dst), "%s -> %s", tt.src, tt.dst)
	}
}

func TestValue_Accessors(t *testing.T) {
	n, ok := Number(1.5).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 1.5, n)

	_, ok = Number(1.5).AsBool()
	assert.False(t, ok, "number must not read as boolean")

	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	tex, ok := Texture(img).AsTexture()
	require.True(t, ok)
	assert.Same(t, img, tex)
	assert.Equal(t, "texture(2x3)", Texture(img).String())
}

func TestZero(t *testing.T) {
	for _, typ := range []ValueType{TypeNumber, TypeBoolean, TypeString, TypeTime, TypeColor, TypeTexture} {
		v := Zero(typ)
		assert.Equal(t, typ, v.Type())
		assert.True(t, v.IsValid())
	}
	assert.False(t, Zero(TypeAny).IsValid())

	tex, _ := Zero(TypeTexture).AsTexture()
	assert.Nil(t, tex)
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Number(2).Equal(Number(2)))
	assert.False(t, Number(2).Equal(String("2")))
	assert.True(t, TimeValue(NewTime(2, 4)).Equal(TimeValue(NewTime(1, 2))))
	assert.True(t, Color(color.RGBA{R: 1, A: 255}).Equal(Color(color.RGBA{R: 1, A: 255})))

	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewRGBA(image.Rect(0, 0, 1, 1))
	assert.True(t, Texture(a).Equal(Texture(a)))
	assert.False(t, Texture(a).Equal(Texture(b)))
}
