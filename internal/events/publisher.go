// ABOUTME: Event publisher: appends to the outbox, then fans out to in-memory subscribers
// ABOUTME: Emission is fire-and-forget; failures are logged and never reach the caller

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

const (
	// DefaultBufferSize is the channel buffer for each subscriber.
	DefaultBufferSize = 64
)

// Publisher persists events to the outbox and pushes them to live
// subscribers. Slow subscribers drop events rather than block emitters; they
// can catch up through Replay.
type Publisher struct {
	outbox     store.EventStore
	bufferSize int
	logger     *slog.Logger

	// emitMu keeps outbox order and fan-out order identical
	emitMu sync.Mutex

	mu          sync.RWMutex
	subscribers map[string]chan Event
	closed      bool
}

// NewPublisher creates a publisher over outbox. Pass nil logger for default
// and bufferSize <= 0 for DefaultBufferSize.
func NewPublisher(outbox store.EventStore, bufferSize int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Publisher{
		outbox:      outbox,
		bufferSize:  bufferSize,
		logger:      logger.With("component", "events"),
		subscribers: make(map[string]chan Event),
	}
}

// Emit records e and delivers it to every subscriber. ID and Timestamp are
// filled in when unset.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	// The entity write has already committed, so the outbox append must
	// outlive a cancelled request.
	rec := e.record()
	if err := p.outbox.AppendEvent(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Error("failed to persist event",
			"type", e.Type,
			"entity_id", e.EntityID,
			"error", err)
	} else {
		e.Seq = rec.Seq
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	for subID, ch := range p.subscribers {
		select {
		case ch <- e:
		default:
			p.logger.Debug("dropped event for slow subscriber",
				"sub_id", subID,
				"event_id", e.ID)
		}
	}
}

// Subscribe registers a subscriber and returns its channel and ID. The
// subscription is cleaned up when ctx is cancelled.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, p.bufferSize)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, subID
	}
	p.subscribers[subID] = ch
	p.mu.Unlock()

	p.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		p.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (p *Publisher) Unsubscribe(subID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.subscribers[subID]
	if !ok {
		return
	}
	delete(p.subscribers, subID)
	close(ch)

	p.logger.Debug("subscriber removed", "sub_id", subID)
}

// Replay returns persisted events after afterSeq, oldest first.
func (p *Publisher) Replay(ctx context.Context, afterSeq int64, limit int) ([]Event, error) {
	records, err := p.outbox.ListEvents(ctx, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Event, len(records))
	for i, r := range records {
		out[i] = fromRecord(r)
	}
	return out, nil
}

// Close shuts down the publisher and closes all subscriber channels.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for subID, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, subID)
	}
	p.closed = true

	p.logger.Debug("publisher closed")
}
