package compositor_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/pkg/adapters/memory"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/dsl"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scaleDoc(t *testing.T) *schema.Document {
	t.Helper()
	b := dsl.New("Scale")
	b.Add("k").Kind(nodes.KindConstant).Set("value", domain.Number(3))
	b.Add("mul").Kind(nodes.KindMath).
		Set("op", domain.String(nodes.OpMultiply)).
		Set("b", domain.Number(2)).
		From("a", "k.value")
	b.Add("out").Kind(nodes.KindViewer).Config("type", "number").From("number", "mul.result")
	doc, err := b.Document()
	require.NoError(t, err)
	return doc
}

func TestEngine_Render(t *testing.T) {
	eng, err := compositor.FromDocument(scaleDoc(t))
	require.NoError(t, err)
	defer eng.Close()

	assert.Equal(t, "Scale", eng.Name())

	res, err := eng.Render(context.Background(), "out", domain.NewTime(0, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.Number(6), res.Value)
	assert.Equal(t, 3, res.Evaluated)
	assert.Empty(t, res.Degraded)

	again, err := eng.Render(context.Background(), "out", domain.NewTime(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Evaluated)
	assert.Equal(t, 3, again.CacheHits)
}

func TestEngine_RenderUnknownNode(t *testing.T) {
	eng, err := compositor.New("")
	require.NoError(t, err)
	defer eng.Close()

	assert.Equal(t, "New Graph", eng.Name())
	_, err = eng.Render(context.Background(), "nope", domain.Time{})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestEngine_SetParameter(t *testing.T) {
	eng, err := compositor.FromDocument(scaleDoc(t))
	require.NoError(t, err)
	defer eng.Close()
	ctx := context.Background()

	require.NoError(t, eng.SetParameter(ctx, "k", "value", schema.ParamDoc{Value: 5.0}))
	res, err := eng.Render(ctx, "out", domain.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.Number(10), res.Value)

	require.NoError(t, eng.SetParameter(ctx, "k", "value", schema.ParamDoc{
		Keyframes: []schema.KeyframeDoc{
			{Time: "0", Value: 0.0},
			{Time: "1", Value: 10.0},
		},
	}))
	res, err = eng.Render(ctx, "out", domain.NewTime(1, 2))
	require.NoError(t, err)
	assert.Equal(t, domain.Number(10), res.Value)

	assert.ErrorIs(t, eng.SetParameter(ctx, "ghost", "value", schema.ParamDoc{Value: 1.0}), domain.ErrNodeNotFound)
	assert.ErrorIs(t, eng.SetParameter(ctx, "k", "nope", schema.ParamDoc{Value: 1.0}), domain.ErrPortNotFound)
	assert.Error(t, eng.SetParameter(ctx, "k", "value", schema.ParamDoc{Value: "text"}))
}

func TestEngine_AttachViewer(t *testing.T) {
	eng, err := compositor.FromDocument(scaleDoc(t))
	require.NoError(t, err)
	defer eng.Close()

	rec := memory.NewFrameRecorder(0)
	require.NoError(t, eng.Attach("out", rec))
	assert.ErrorIs(t, eng.Attach("k", rec), compositor.ErrNotViewer)
	assert.ErrorIs(t, eng.Attach("ghost", rec), domain.ErrNodeNotFound)
	assert.Equal(t, []string{"out"}, eng.Viewers())

	_, err = eng.Render(context.Background(), "out", domain.NewTime(1, 24))
	require.NoError(t, err)
	require.Len(t, rec.Frames(), 1)
	assert.Equal(t, domain.NewTime(1, 24), rec.Frames()[0].Time)

	eng.Detach("out")
	_, err = eng.Render(context.Background(), "out", domain.NewTime(2, 24))
	require.NoError(t, err)
	assert.Len(t, rec.Frames(), 1)
}

func TestEngine_ReloadKeepsBindings(t *testing.T) {
	loader := memory.NewLoader(scaleDoc(t))
	eng, err := compositor.New("", compositor.WithLoader(loader))
	require.NoError(t, err)
	defer eng.Close()

	rec := memory.NewFrameRecorder(0)
	require.NoError(t, eng.Attach("out", rec))

	require.NoError(t, eng.Reload(context.Background()))
	_, err = eng.Render(context.Background(), "out", domain.Time{})
	require.NoError(t, err)
	assert.Len(t, rec.Frames(), 1, "binding must survive a reload")
}

func TestEngine_DocumentRoundTrip(t *testing.T) {
	eng, err := compositor.FromDocument(scaleDoc(t))
	require.NoError(t, err)
	defer eng.Close()

	doc, err := eng.Document()
	require.NoError(t, err)

	again, err := compositor.FromDocument(doc)
	require.NoError(t, err)
	defer again.Close()

	res, err := again.Render(context.Background(), "out", domain.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.Number(6), res.Value)
}

func TestEngine_DegradedIsReported(t *testing.T) {
	b := dsl.New("Div")
	b.Add("div").Kind(nodes.KindMath).
		Set("op", domain.String(nodes.OpDivide)).
		Set("a", domain.Number(1))
	doc, err := b.Document()
	require.NoError(t, err)

	eng, err := compositor.FromDocument(doc)
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Render(context.Background(), "div", domain.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.Number(0), res.Value)
	require.Len(t, res.Degraded, 1)
	assert.Equal(t, "div", res.Degraded[0].NodeID)
	assert.Contains(t, res.Degraded[0].Error, "divide by zero")
}

func TestEngine_LoamProjectAndWatch(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("k.md", "---\nkind: constant\nparams:\n  value: 4\n---")
	write("out.md", "---\nkind: viewer\nconfig:\n  type: number\ninputs:\n  number: k.value\n---")

	eng, err := compositor.New(dir)
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Render(context.Background(), "out", domain.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.Number(4), res.Value)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads, err := eng.Watch(ctx)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	write("k.md", "---\nkind: constant\nparams:\n  value: 7\n---")

	select {
	case err := <-reloads:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reload")
	}

	res, err = eng.Render(context.Background(), "out", domain.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.Number(7), res.Value)
}

func TestEngine_WatchUnsupported(t *testing.T) {
	eng, err := compositor.New("")
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Watch(context.Background())
	assert.ErrorIs(t, err, compositor.ErrWatchUnsupported)
}

// flipLoader alternates between two documents on every load.
type flipLoader struct {
	mu   sync.Mutex
	docs [2]*schema.Document
	n    int
}

func (l *flipLoader) LoadDocument(ctx context.Context) (*schema.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc := l.docs[l.n%2]
	l.n++
	return doc.Clone(), nil
}

func TestEngine_RenderDuringReload(t *testing.T) {
	b := dsl.New("Texture")
	b.Add("src").Kind(nodes.KindSolid).Set("width", domain.Number(2)).Set("height", domain.Number(2))
	b.Add("out").Kind(nodes.KindViewer).Config("type", "texture").From("texture", "src.texture")
	texDoc, err := b.Document()
	require.NoError(t, err)

	eng, err := compositor.New("", compositor.WithLoader(&flipLoader{docs: [2]*schema.Document{scaleDoc(t), texDoc}}))
	require.NoError(t, err)
	defer eng.Close()

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			assert.NoError(t, eng.Reload(ctx))
		}
	}()

	for i := 0; i < 200; i++ {
		res, err := eng.Render(ctx, "out", domain.NewTime(int64(i), 24))
		require.NoError(t, err)
		require.True(t, res.Value.IsValid(), "render %d mixed graphs", i)
		_, ok := res.Outputs[string(res.Value.Type())]
		assert.True(t, ok, "render %d: value %s not among outputs", i, res.Value.Type())
	}
	<-done
}
