package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEvaluate   EventType = "node_evaluate"
	EventCacheHit       EventType = "cache_hit"
	EventNodeDegraded   EventType = "node_degraded"
	EventFrameDelivered EventType = "frame_delivered"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Graph     string    `json:"graph,omitempty"`
}

// NodeEvent describes the evaluation of a single node at a point in time.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Kind     string        `json:"kind"`
	Time     Time          `json:"time"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// FrameEvent describes a frame handed to a viewer binding.
type FrameEvent struct {
	EventBase
	Frame Frame `json:"frame"`
	Err   error `json:"-"`
}

// LifecycleHooks defines callbacks for evaluator observability.
// Hooks may be called concurrently when the evaluator runs in parallel.
type LifecycleHooks struct {
	OnNodeEvaluate   func(context.Context, *NodeEvent)
	OnCacheHit       func(context.Context, *NodeEvent)
	OnNodeDegraded   func(context.Context, *NodeEvent)
	OnFrameDelivered func(context.Context, *FrameEvent)
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType, graph string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, Graph: graph}
}
