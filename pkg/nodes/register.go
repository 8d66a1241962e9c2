package nodes

import (
	"fmt"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

// ViewerConfig is the persisted configuration of a viewer node.
type ViewerConfig struct {
	Type string `mapstructure:"type"`
}

// Register adds the built-in kinds to reg.
func Register(reg *registry.Registry) {
	reg.Register(KindConstant, stateless(Constant{}))
	reg.Register(KindTime, stateless(Time{}))
	reg.Register(KindMath, stateless(Math{}))
	reg.Register(KindSolid, stateless(Solid{}))
	reg.Register(KindSwitch, stateless(Switch{}))

	reg.Register(KindImage, func(config map[string]any) (graph.Kind, error) {
		var img Image
		if err := decode(config, &img); err != nil {
			return nil, err
		}
		return img, nil
	})

	reg.Register(KindViewer, func(config map[string]any) (graph.Kind, error) {
		var cfg ViewerConfig
		if err := decode(config, &cfg); err != nil {
			return nil, err
		}
		t := domain.ValueType(cfg.Type)
		if cfg.Type != "" && (!t.Valid() || t == domain.TypeAny) {
			return nil, fmt.Errorf("viewer type %q: %w", cfg.Type, domain.ErrTypeMismatch)
		}
		return NewViewer(t), nil
	})
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	Register(reg)
	return reg
}

func stateless(k graph.Kind) registry.Factory {
	return func(map[string]any) (graph.Kind, error) { return k, nil }
}

func decode(config map[string]any, out any) error {
	if len(config) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(config); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
