// Package events provides the audit event recorder for the execution context.
package events

import (
	"context"
	"sync"

	"github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/business/execution/domain"
	"github.com/fd1az/flash-arb/internal/logger"
)

// Ensure Recorder implements EventRecorder.
var _ app.EventRecorder = (*Recorder)(nil)

const defaultHistory = 256

// Recorder logs every audit event, keeps a bounded history for queries, and
// fans events out to subscribers (the TUI reads this stream). Slow
// subscribers drop events rather than blocking settlement.
type Recorder struct {
	log logger.LoggerInterface

	mu          sync.Mutex
	history     []domain.Event
	subscribers []chan domain.Event
}

// NewRecorder creates a recorder with a bounded in-memory history.
func NewRecorder(log logger.LoggerInterface) *Recorder {
	return &Recorder{log: log}
}

// Record appends the event to the history, logs it, and notifies
// subscribers.
func (r *Recorder) Record(ctx context.Context, event domain.Event) {
	r.mu.Lock()
	r.history = append(r.history, event)
	if len(r.history) > defaultHistory {
		r.history = r.history[len(r.history)-defaultHistory:]
	}
	subs := make([]chan domain.Event, len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()

	args := make([]any, 0, 2+2*len(event.Attributes))
	args = append(args, "event", string(event.Type))
	for k, v := range event.Attributes {
		args = append(args, k, v)
	}
	r.log.Info(ctx, "state transition", args...)

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving future events.
func (r *Recorder) Subscribe() <-chan domain.Event {
	ch := make(chan domain.Event, 64)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()
	return ch
}

// History returns a copy of the retained events, oldest first.
func (r *Recorder) History() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.history))
	copy(out, r.history)
	return out
}
