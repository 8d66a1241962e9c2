package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeEvent(kind string) *domain.NodeEvent {
	return &domain.NodeEvent{NodeID: "n", Kind: kind, Duration: 2 * time.Millisecond}
}

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics()
	h := m.Hooks()
	ctx := context.Background()

	h.OnNodeEvaluate(ctx, nodeEvent("math"))
	h.OnNodeEvaluate(ctx, nodeEvent("math"))
	h.OnCacheHit(ctx, nodeEvent("solid"))
	h.OnNodeDegraded(ctx, nodeEvent("math"))
	h.OnFrameDelivered(ctx, &domain.FrameEvent{Frame: domain.Frame{NodeID: "viewer"}})
	h.OnFrameDelivered(ctx, &domain.FrameEvent{Frame: domain.Frame{NodeID: "viewer"}, Err: errors.New("full")})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("math")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("solid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degraded.WithLabelValues("math")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("viewer", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("viewer", "error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Hooks().OnNodeEvaluate(context.Background(), nodeEvent("constant"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `compositor_node_evaluations_total{kind="constant"} 1`)
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnNodeEvaluate: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnNodeEvaluate:   func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") },
		OnFrameDelivered: func(context.Context, *domain.FrameEvent) { calls = append(calls, "frame") },
	}

	h := Chain(a, domain.LifecycleHooks{}, b)
	h.OnNodeEvaluate(context.Background(), nodeEvent("k"))
	h.OnFrameDelivered(context.Background(), &domain.FrameEvent{})

	assert.Equal(t, []string{"a", "b", "frame"}, calls)
	assert.Nil(t, h.OnCacheHit, "unset callbacks stay nil")
	assert.Nil(t, h.OnNodeDegraded)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LoggingHooks(logger).OnNodeEvaluate(context.Background(), nodeEvent("math"))
	assert.True(t, strings.Contains(buf.String(), "node evaluated"))
	assert.Contains(t, buf.String(), "kind=math")
}
