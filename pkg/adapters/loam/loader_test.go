package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/compositor/internal/testutils"
	"github.com/aretw0/compositor/pkg/ports/tests"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

var demoFiles = map[string]string{
	"solid.md": `---
kind: solid
params:
  color: {value: "#ff0000"}
  width: 64
  height: 32
---
Red plate.`,
	"viewer.md": `---
graph: Edit
kind: viewer
config:
  type: texture
inputs:
  texture: solid.texture
---`,
	"footage.json": `{
  "kind": "image",
  "config": {"source": "plate.exr"}
}`,
}

func TestLoader_Contract(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))
	writeFiles(t, dir, demoFiles)

	loader := New(loam.NewTypedRepository[NodeMetadata](repo))

	tests.DocumentLoaderContractTest(t, loader, &schema.Document{
		Nodes: []schema.NodeDoc{
			{ID: "footage", Kind: "image"},
			{ID: "solid", Kind: "solid"},
			{ID: "viewer", Kind: "viewer"},
		},
		Edges: []schema.EdgeDoc{{From: "solid.texture", To: "viewer.texture"}},
	})
}

func TestLoader_LoadDocument_Details(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))
	writeFiles(t, dir, demoFiles)

	loader := New(loam.NewTypedRepository[NodeMetadata](repo))
	doc, err := loader.LoadDocument(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Edit", doc.Name)
	assert.Equal(t, schema.CurrentVersion, doc.Version)

	solid, ok := doc.Node("solid")
	require.True(t, ok)
	assert.Equal(t, "#ff0000", solid.Params["color"].Value)
	assert.NotNil(t, solid.Params["width"].Value, "shorthand params become static values")

	footage, ok := doc.Node("footage")
	require.True(t, ok)
	assert.Equal(t, "plate.exr", footage.Config["source"])
}

func TestLoader_Keyframes(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))
	writeFiles(t, dir, map[string]string{
		"k.md": `---
kind: constant
params:
  value:
    keyframes:
      - {time: 0, value: 0}
      - {time: "1/2", value: 10, interp: hold}
---`,
	})

	loader := New(loam.NewTypedRepository[NodeMetadata](repo))
	doc, err := loader.LoadDocument(context.Background())
	require.NoError(t, err)

	k, ok := doc.Node("k")
	require.True(t, ok)
	keys := k.Params["value"].Keyframes
	require.Len(t, keys, 2)
	assert.Equal(t, "0", keys[0].Time)
	assert.Equal(t, "1/2", keys[1].Time)
	assert.Equal(t, "hold", keys[1].Interp)
}

func TestLoader_DetectsCollisions(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeFiles(t, dir, map[string]string{
		"foo.md": `---
id: foo
kind: constant
---`,
		"foo.json": `{"id": "foo", "kind": "constant"}`,
	})

	loader := New(loam.NewTypedRepository[NodeMetadata](repo))
	_, err := loader.LoadDocument(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestLoader_DefaultName(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeFiles(t, dir, map[string]string{"k.md": "---\nkind: constant\n---"})

	loader := New(loam.NewTypedRepository[NodeMetadata](repo))
	doc, err := loader.LoadDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New Graph", doc.Name)
}

func TestOpen_NamesAfterDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shot010")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeFiles(t, dir, map[string]string{"k.md": "---\nkind: constant\n---"})

	loader, err := Open(dir)
	require.NoError(t, err)

	doc, err := loader.LoadDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shot010", doc.Name)
}

func TestLoader_Watch(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	writeFiles(t, dir, map[string]string{"k.md": "---\nkind: constant\n---"})

	loader := New(loam.NewTypedRepository[NodeMetadata](repo))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeFiles(t, dir, map[string]string{"k.md": "---\nkind: constant\nparams:\n  value: 3\n---"})

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}

	cancel()
	for range ch {
	}
}
