package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// Loader reads a project directory holding one file per node.
// It implements ports.DocumentLoader and ports.Watchable.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
	Name string
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository rooted at dir.
// Strict mode keeps numbers as json.Number across Markdown, YAML and JSON files.
func Open(dir string, opts ...loam.Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	opts = append([]loam.Option{loam.WithStrict(true), loam.WithReadOnly(true)}, opts...)
	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	l := New(loam.NewTypedRepository[NodeMetadata](repo))
	l.Name = filepath.Base(absPath)
	return l, nil
}

// LoadDocument assembles every node file into a document. Nodes are sorted by ID and
// edges by target so repeated loads are identical.
func (l *Loader) LoadDocument(ctx context.Context) (*schema.Document, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	out := &schema.Document{Version: schema.CurrentVersion, Name: l.Name}
	seen := make(map[string]string)
	names := make(map[string]string)

	for _, doc := range docs {
		meta := doc.Data
		if meta.Kind == "" {
			// Not a node file (README, notes).
			continue
		}

		rawID := meta.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		params, err := decodeParams(meta.Params)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		out.Nodes = append(out.Nodes, schema.NodeDoc{
			ID:     id,
			Kind:   meta.Kind,
			Config: meta.Config,
			Params: params,
		})

		for port, src := range meta.Inputs {
			out.Edges = append(out.Edges, schema.EdgeDoc{From: src, To: id + "." + port})
		}

		if meta.Graph != "" {
			names[id] = meta.Graph
		}
	}

	sort.Slice(out.Nodes, func(i, j int) bool { return out.Nodes[i].ID < out.Nodes[j].ID })
	sort.Slice(out.Edges, func(i, j int) bool { return out.Edges[i].To < out.Edges[j].To })
	// The lowest node ID that names the graph wins.
	for _, n := range out.Nodes {
		if name, ok := names[n.ID]; ok {
			out.Name = name
			break
		}
	}
	if out.Name == "" {
		out.Name = graph.DefaultName
	}
	return out, nil
}

func decodeParams(raw map[string]any) (map[string]schema.ParamDoc, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := make(map[string]schema.ParamDoc, len(raw))
	for port, v := range raw {
		var pd schema.ParamDoc
		switch x := v.(type) {
		case map[string]any, map[any]any:
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           &pd,
				WeaklyTypedInput: true,
				ErrorUnused:      true,
			})
			if err != nil {
				return nil, err
			}
			if err := dec.Decode(x); err != nil {
				return nil, fmt.Errorf("params.%s: %w", port, err)
			}
		default:
			// Shorthand: "b: 2" means a static value.
			pd.Value = x
		}
		params[port] = pd
	}
	return params, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts: a pending signal already means "reload".
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
