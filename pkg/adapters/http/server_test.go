package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/compositor"
	api "github.com/aretw0/compositor/pkg/adapters/http"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/dsl"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/observability"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts ...compositor.Option) *compositor.Engine {
	t.Helper()
	b := dsl.New("Edit")
	b.Add("solid").Kind(nodes.KindSolid).
		Set("width", domain.Number(8)).
		Set("height", domain.Number(4))
	b.Add("viewer").Kind(nodes.KindViewer).Config("type", "texture").From("texture", "solid.texture")
	b.Add("k").Kind(nodes.KindConstant).Set("value", domain.Number(2))
	b.Add("div").Kind(nodes.KindMath).Set("op", domain.String(nodes.OpDivide)).From("a", "k.value")

	doc, err := b.Document()
	require.NoError(t, err)
	eng, err := compositor.FromDocument(doc, opts...)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func newServer(t *testing.T, opts ...api.Option) (*api.Server, http.Handler) {
	t.Helper()
	s, err := api.NewServer(newEngine(t), opts...)
	require.NoError(t, err)
	return s, s.Handler()
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", url, nil))
	return w
}

func TestHealthAndInfo(t *testing.T) {
	_, h := newServer(t)

	w := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get(t, h, "/info")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, compositor.Version, info["version"])
	assert.Equal(t, "Edit", info["graph"])
}

func TestOpenAPISpecIsServedAndValid(t *testing.T) {
	_, h := newServer(t)
	w := get(t, h, "/openapi.yaml")
	require.Equal(t, http.StatusOK, w.Code)

	spec, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, spec.Validate(context.Background()))
	assert.NotNil(t, spec.Paths.Find("/nodes/{id}/render"))
}

func TestGetGraph(t *testing.T) {
	_, h := newServer(t)
	w := get(t, h, "/graph")
	require.Equal(t, http.StatusOK, w.Code)

	var doc schema.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Edit", doc.Name)
	assert.Len(t, doc.Nodes, 4)
	assert.Contains(t, doc.Edges, schema.EdgeDoc{From: "solid.texture", To: "viewer.texture"})
}

func TestRenderNode_JSON(t *testing.T) {
	_, h := newServer(t)

	w := get(t, h, "/nodes/viewer/render?time=1/2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "viewer", resp.NodeID)
	assert.Equal(t, "1/2", resp.Time)
	assert.Equal(t, "texture", resp.Type)
	assert.Equal(t, map[string]any{"width": 8.0, "height": 4.0}, resp.Value)
	assert.Equal(t, 2, resp.Evaluated)

	w = get(t, h, "/nodes/viewer/render?time=0.5")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.CacheHits, "0.5 and 1/2 are the same instant")
}

func TestRenderNode_Degraded(t *testing.T) {
	_, h := newServer(t)

	w := get(t, h, "/nodes/div/render")
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.0, resp.Value)
	require.Len(t, resp.Degraded, 1)
	assert.Equal(t, "div", resp.Degraded[0].NodeID)

	w = get(t, h, "/graph/mermaid?node=div")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class div degraded;")
	assert.Contains(t, w.Body.String(), "class k evaluated;")
	assert.Contains(t, w.Body.String(), "class div target;")
}

func TestRenderNode_PNG(t *testing.T) {
	_, h := newServer(t)

	w := get(t, h, "/nodes/viewer/render?format=png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	w = get(t, h, "/nodes/k/render?format=png")
	assert.Equal(t, http.StatusBadRequest, w.Code, "numbers cannot be encoded as images")
}

func TestRenderNode_Errors(t *testing.T) {
	_, h := newServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nodes/ghost/render").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/nodes/k/render?time=soon").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/nodes/k/render?format=gif").Code)
}

func put(t *testing.T, h http.Handler, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("PUT", url, bytes.NewBufferString(body)))
	return w
}

func TestSetParameter(t *testing.T) {
	_, h := newServer(t)

	w := put(t, h, "/nodes/k/params/value", `{"value": 7}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = get(t, h, "/nodes/k/render")
	var resp api.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7.0, resp.Value)

	w = put(t, h, "/nodes/solid/params/color", `{"keyframes":[{"time":"0","value":"black"},{"time":"1","value":"#ffffff"}]}`)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	assert.Equal(t, http.StatusNotFound, put(t, h, "/nodes/ghost/params/value", `{"value":1}`).Code)
	assert.Equal(t, http.StatusNotFound, put(t, h, "/nodes/k/params/nope", `{"value":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(t, h, "/nodes/k/params/value", `{"value":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(t, h, "/nodes/k/params/value", `not json`).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics()
	s, err := api.NewServer(newEngine(t, compositor.WithLifecycleHooks(m.Hooks())), api.WithMetrics(m.Handler()))
	require.NoError(t, err)
	h := s.Handler()

	get(t, h, "/nodes/viewer/render")
	w := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `compositor_node_evaluations_total{kind="solid"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	eng := newEngine(t)
	s, err := api.NewServer(eng)
	require.NoError(t, err)
	require.NoError(t, eng.Attach("viewer", s.Streams))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?node=viewer", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", prefix)
				}
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %q", prefix)
			}
		}
	}

	waitFor("event: ping")
	require.Eventually(t, func() bool { return s.Streams.Subscribers("viewer") == 1 }, time.Second, 10*time.Millisecond)

	r, err := http.Get(srv.URL + "/nodes/viewer/render?time=1")
	require.NoError(t, err)
	r.Body.Close()

	waitFor("event: frame")
	data := waitFor("data: ")
	assert.Contains(t, data, `"node_id":"viewer"`)
	assert.Contains(t, data, `"width":8`)

	// Events for other nodes are filtered out of this stream.
	r, err = http.Get(srv.URL + "/nodes/k/render")
	require.NoError(t, err)
	r.Body.Close()
	r, err = http.Get(srv.URL + "/nodes/viewer/render?time=2")
	require.NoError(t, err)
	r.Body.Close()

	for i := 0; i < 2; i++ {
		line := waitFor("event: ")
		assert.NotContains(t, line, "event: ping")
		data := waitFor("data: ")
		assert.Contains(t, data, `"node_id":"viewer"`)
	}
}

func TestStreamManager_Topics(t *testing.T) {
	sm := api.NewStreamManager(nil)

	all, cancelAll := sm.Subscribe("")
	defer cancelAll()
	mine, cancelMine := sm.Subscribe("a")

	sm.Broadcast(api.Event{Type: "render", NodeID: "b"})
	sm.Broadcast(api.Event{Type: "render", NodeID: "a"})

	assert.Len(t, all, 2)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", (<-mine).NodeID)

	cancelMine()
	cancelMine()
	assert.Equal(t, 0, sm.Subscribers("a"))
	_, open := <-mine
	assert.False(t, open)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := api.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("v")
	defer cancel()

	for i := 0; i < 25; i++ {
		require.NoError(t, sm.ConsumeFrame(context.Background(), domain.Frame{
			NodeID: "v",
			Time:   domain.NewTime(int64(i), 1),
			Value:  domain.Number(float64(i)),
		}))
	}
	assert.Equal(t, 10, len(ch), "publisher never blocks on a slow client")

	evt := <-ch
	assert.Equal(t, "frame", evt.Type)
	data := evt.Data.(map[string]any)
	assert.Equal(t, "0", data["time"])
	assert.Equal(t, 0.0, data["value"])
}
