// ABOUTME: In-memory fan-out of maze frames to render sinks
// ABOUTME: Slow subscribers drop frames instead of stalling the avatars

package render

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Broadcaster provides in-memory pub/sub for frames. Publish never blocks.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Frame // subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Frame),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber. Returns a channel that receives frames
// and a subscription ID for later unsubscription. The subscription is
// automatically cleaned up when ctx is cancelled. Subscribing to a closed
// broadcaster returns an already closed channel.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Frame, string) {
	subID := uuid.New().String()
	ch := make(chan Frame, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	context.AfterFunc(ctx, func() {
		b.Unsubscribe(subID)
	})

	return ch, subID
}

// Publish sends a frame to all subscribers.
// Frames are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(f Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- f:
		default:
			b.logger.Debug("dropped frame for slow subscriber", "sub_id", id, "turn", f.Turn)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.subscribers[subID]
	if !exists {
		return
	}

	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close closes all subscriber channels. Later publishes are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}

	b.logger.Debug("broadcaster closed")
}
