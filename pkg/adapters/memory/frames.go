package memory

import (
	"context"
	"sync"

	"github.com/aretw0/compositor/pkg/domain"
)

// FrameRecorder is a domain.FrameConsumer that keeps delivered frames in memory.
// With a positive limit only the most recent frames are kept.
type FrameRecorder struct {
	mu     sync.Mutex
	limit  int
	frames []domain.Frame
}

// NewFrameRecorder creates a recorder. A limit of 0 keeps every frame.
func NewFrameRecorder(limit int) *FrameRecorder {
	return &FrameRecorder{limit: limit}
}

// ConsumeFrame records the frame.
func (r *FrameRecorder) ConsumeFrame(ctx context.Context, frame domain.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	if r.limit > 0 && len(r.frames) > r.limit {
		r.frames = append([]domain.Frame(nil), r.frames[len(r.frames)-r.limit:]...)
	}
	return nil
}

// Frames returns the recorded frames, oldest first.
func (r *FrameRecorder) Frames() []domain.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Frame(nil), r.frames...)
}

// Last returns the most recent frame.
func (r *FrameRecorder) Last() (domain.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return domain.Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Reset drops all recorded frames.
func (r *FrameRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}
