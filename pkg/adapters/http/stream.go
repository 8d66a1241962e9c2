package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/compositor/internal/logging"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/schema"
)

// Event is one server-sent event.
type Event struct {
	Type   string `json:"type"`
	NodeID string `json:"node_id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// StreamManager fans events out to SSE subscribers.
// Subscribers to the empty topic receive every event.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Event]struct{} // topic (node ID) -> set of channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for topic. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(topic string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 10)
	if _, ok := sm.subscribers[topic]; !ok {
		sm.subscribers[topic] = make(map[chan<- Event]struct{})
	}
	sm.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[topic]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, topic)
				}
			}
		})
	}
}

// Subscribers counts the channels registered for topic.
func (sm *StreamManager) Subscribers(topic string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[topic])
}

// Broadcast delivers evt to subscribers of its node and to global subscribers.
// Slow clients drop events rather than block the publisher.
func (sm *StreamManager) Broadcast(evt Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	topics := []string{""}
	if evt.NodeID != "" {
		topics = append(topics, evt.NodeID)
	}
	for _, topic := range topics {
		for ch := range sm.subscribers[topic] {
			select {
			case ch <- evt:
			default:
				sm.logger.Warn("SSE: client buffer full, dropping event", "type", evt.Type, "node", evt.NodeID)
			}
		}
	}
}

// ConsumeFrame implements domain.FrameConsumer so a viewer can stream its frames.
func (sm *StreamManager) ConsumeFrame(ctx context.Context, frame domain.Frame) error {
	sm.Broadcast(Event{
		Type:   "frame",
		NodeID: frame.NodeID,
		Data: map[string]any{
			"time":  frame.Time.String(),
			"type":  frame.Value.Type(),
			"value": schema.APIValue(frame.Value),
		},
	})
	return nil
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
