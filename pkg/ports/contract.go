package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProjectStoreContract runs a suite of tests to verify that a ProjectStore implementation
// adheres to the defined interface contract.
func RunProjectStoreContract(t *testing.T, store ProjectStore) {
	ctx := context.Background()
	projectID := "contract-test-project-" + time.Now().Format("20060102150405")

	sample := func(name string) *schema.Document {
		return &schema.Document{
			Version: schema.CurrentVersion,
			Name:    name,
			Nodes: []schema.NodeDoc{
				{ID: "k", Kind: "constant", Params: map[string]schema.ParamDoc{"value": {Value: 2.5}}},
				{ID: "v", Kind: "viewer", Config: map[string]any{"type": "number"}},
			},
			Edges: []schema.EdgeDoc{{From: "k.value", To: "v.number"}},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		doc := sample("contract")

		err := store.Save(ctx, projectID, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "contract", loaded.Name)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "k", loaded.Nodes[0].ID)
		assert.Equal(t, "v", loaded.Nodes[1].ID)
		assert.Equal(t, doc.Edges, loaded.Edges)
		// Encoded stores may turn numbers into other numeric types; the value must survive.
		assert.NotNil(t, loaded.Nodes[0].Params["value"].Value)
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		loaded.Name = "mutated"
		loaded.Nodes[0].ID = "mutated"

		again, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		assert.Equal(t, "contract", again.Name)
		assert.Equal(t, "k", again.Nodes[0].ID)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, projectID, sample("second")))
		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, projectID, sample("doomed"))
		require.NoError(t, err)

		err = store.Delete(ctx, projectID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound, "Load after Delete should return ErrProjectNotFound")

		assert.NoError(t, store.Delete(ctx, projectID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := projectID + "-1"
		id2 := projectID + "-2"
		_ = store.Save(ctx, id1, sample("one"))
		_ = store.Save(ctx, id2, sample("two"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		projects, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, projects, id1)
		assert.Contains(t, projects, id2)
	})
}
