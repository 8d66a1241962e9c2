package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/compositor/pkg/domain"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// Format selects a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the encoding from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Marshal encodes the document.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Unmarshal decodes a document. Unknown fields are rejected.
func Unmarshal(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json document: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &doc, nil
}

// EncodeValue converts a value to its document scalar.
func EncodeValue(v domain.Value) (any, error) {
	switch v.Type() {
	case domain.TypeNumber:
		f, _ := v.AsNumber()
		return f, nil
	case domain.TypeBoolean:
		b, _ := v.AsBool()
		return b, nil
	case domain.TypeString:
		s, _ := v.AsString()
		return s, nil
	case domain.TypeTime:
		t, _ := v.AsTime()
		return t.String(), nil
	case domain.TypeColor:
		c, _ := v.AsColor()
		return domain.FormatColor(c), nil
	}
	return nil, fmt.Errorf("%s values are not persisted", v.Type())
}

// DecodeValue converts a document scalar to a value of type t. For inputs declared any,
// the type is inferred from the scalar.
func DecodeValue(t domain.ValueType, raw any) (domain.Value, error) {
	switch t {
	case domain.TypeNumber:
		f, err := toFloat(raw)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.Number(f), nil
	case domain.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return domain.Value{}, fmt.Errorf("expected boolean, got %T", raw)
		}
		return domain.Bool(b), nil
	case domain.TypeString:
		s, ok := raw.(string)
		if !ok {
			return domain.Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		return domain.String(s), nil
	case domain.TypeTime:
		switch x := raw.(type) {
		case string:
			tm, err := domain.ParseTime(x)
			if err != nil {
				return domain.Value{}, err
			}
			return domain.TimeValue(tm), nil
		default:
			f, err := toFloat(raw)
			if err != nil {
				return domain.Value{}, err
			}
			tm, err := domain.Seconds(f)
			if err != nil {
				return domain.Value{}, err
			}
			return domain.TimeValue(tm), nil
		}
	case domain.TypeColor:
		s, ok := raw.(string)
		if !ok {
			return domain.Value{}, fmt.Errorf("expected color string, got %T", raw)
		}
		c, err := ParseColor(s)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.Color(c), nil
	case domain.TypeAny:
		switch x := raw.(type) {
		case bool:
			return domain.Bool(x), nil
		case string:
			return domain.String(x), nil
		}
		return DecodeValue(domain.TypeNumber, raw)
	}
	return domain.Value{}, fmt.Errorf("%s values cannot be loaded from a document", t)
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}

// ParseColor accepts "#rrggbb", "#rrggbbaa" or an SVG 1.1 color name.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// APIValue is the form a value takes in API responses. Unlike EncodeValue it never
// fails: textures are summarized by their size and unencodable values become nil.
func APIValue(v domain.Value) any {
	if img, ok := v.AsTexture(); ok {
		if img == nil {
			return nil
		}
		b := img.Bounds()
		return map[string]int{"width": b.Dx(), "height": b.Dy()}
	}
	out, err := EncodeValue(v)
	if err != nil {
		return nil
	}
	return out
}
