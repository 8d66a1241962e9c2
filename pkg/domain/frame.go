package domain

import "context"

// Frame is the opaque result of evaluating a sink node, handed to external consumers.
type Frame struct {
	NodeID string `json:"node_id"`
	Time   Time   `json:"time"`
	Value  Value  `json:"-"`
}

// FrameConsumer receives frames from a viewer binding (display, export, stream).
type FrameConsumer interface {
	ConsumeFrame(ctx context.Context, frame Frame) error
}

// FrameConsumerFunc adapts a function to FrameConsumer.
type FrameConsumerFunc func(ctx context.Context, frame Frame) error

// ConsumeFrame calls f.
func (f FrameConsumerFunc) ConsumeFrame(ctx context.Context, frame Frame) error {
	return f(ctx, frame)
}
