package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/compositor/pkg/domain"
)

// Chain combines hook sets; each event is passed to every non-nil callback in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var evaluate, hit, degraded []func(context.Context, *domain.NodeEvent)
	var delivered []func(context.Context, *domain.FrameEvent)
	for _, s := range sets {
		if s.OnNodeEvaluate != nil {
			evaluate = append(evaluate, s.OnNodeEvaluate)
		}
		if s.OnCacheHit != nil {
			hit = append(hit, s.OnCacheHit)
		}
		if s.OnNodeDegraded != nil {
			degraded = append(degraded, s.OnNodeDegraded)
		}
		if s.OnFrameDelivered != nil {
			delivered = append(delivered, s.OnFrameDelivered)
		}
	}

	out.OnNodeEvaluate = fanNode(evaluate)
	out.OnCacheHit = fanNode(hit)
	out.OnNodeDegraded = fanNode(degraded)
	if len(delivered) > 0 {
		out.OnFrameDelivered = func(ctx context.Context, e *domain.FrameEvent) {
			for _, fn := range delivered {
				fn(ctx, e)
			}
		}
	}
	return out
}

func fanNode(fns []func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e *domain.NodeEvent) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}

// LoggingHooks logs every evaluator event at Debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEvaluate: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node evaluated",
				"node", e.NodeID, "kind", e.Kind, "time", e.Time.String(), "duration", e.Duration)
		},
		OnCacheHit: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "cache hit", "node", e.NodeID, "time", e.Time.String())
		},
		OnFrameDelivered: func(ctx context.Context, e *domain.FrameEvent) {
			logger.DebugContext(ctx, "frame delivered",
				"node", e.Frame.NodeID, "time", e.Frame.Time.String(), "error", e.Err)
		},
	}
}
