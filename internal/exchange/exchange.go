// ABOUTME: Exchange is the externally facing operation set over the ledger
// ABOUTME: Enforces create/update/settle lifecycle rules and emits domain events

package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

// EventSink receives domain events. Emit must not block for long; it runs
// while the entity's write lock is held.
type EventSink interface {
	Emit(ctx context.Context, e events.Event)
}

// Exchange layers lifecycle legality on top of the ledger.
type Exchange struct {
	ledger *ledger.Ledger
	gate   ledger.Authorizer
	coeffs store.CoefficientStore
	sink   EventSink
	logger *slog.Logger

	retainSettled bool
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithRetainSettledHitFields keeps a hit's type, session, space, offer,
// details and categories when it is settled. By default they are cleared.
func WithRetainSettledHitFields(retain bool) Option {
	return func(x *Exchange) { x.retainSettled = retain }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Exchange) { x.logger = logger }
}

// New creates an Exchange. sink may be nil, in which case no events are
// emitted.
func New(l *ledger.Ledger, gate ledger.Authorizer, coeffs store.CoefficientStore, sink EventSink, opts ...Option) *Exchange {
	x := &Exchange{
		ledger: l,
		gate:   gate,
		coeffs: coeffs,
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = x.logger.With("component", "exchange")
	return x
}

func (x *Exchange) emit(ctx context.Context, e events.Event) {
	if x.sink == nil {
		return
	}
	x.sink.Emit(ctx, e)
	x.logger.Debug("event emitted", "type", e.Type, "id", e.EntityID)
}

func mustBeFresh(kind store.Kind, id uuid.UUID, state store.State) error {
	if state != store.StateUnknown {
		return fmt.Errorf("%w: %s %s", ErrDuplicateID, kind, id)
	}
	return nil
}

func mustExist(kind store.Kind, id uuid.UUID, state store.State) error {
	if state == store.StateUnknown {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}

// checkTransition rejects state changes out of a terminal state. Field edits
// that leave the state alone are still allowed.
func checkTransition(kind store.Kind, id uuid.UUID, current, next store.State) error {
	if !current.Terminal() || next == store.StateUnknown || next == current {
		return nil
	}
	return fmt.Errorf("%w: %s %s is %s, cannot move to %s", ErrInvalidState, kind, id, current, next)
}

// initialState defaults the state of a new record to New.
func initialState(s store.State) store.State {
	if s == store.StateUnknown {
		return store.StateNew
	}
	return s
}
