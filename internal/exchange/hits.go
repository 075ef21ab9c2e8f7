// ABOUTME: Hit lifecycle: display/action creation, updates and settlement
// ABOUTME: TransactHit finishes a hit and records the settled amount

package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

// CreateDisplayHit records a new display impression.
func (x *Exchange) CreateDisplayHit(ctx context.Context, id uuid.UUID, f ledger.HitFields) (*store.Hit, error) {
	return x.createHit(ctx, id, f, store.HitTypeDisplay)
}

// CreateActionHit records a new user action.
func (x *Exchange) CreateActionHit(ctx context.Context, id uuid.UUID, f ledger.HitFields) (*store.Hit, error) {
	return x.createHit(ctx, id, f, store.HitTypeAction)
}

// UpdateDisplayHit partially updates an existing display hit.
func (x *Exchange) UpdateDisplayHit(ctx context.Context, id uuid.UUID, f ledger.HitFields) (*store.Hit, error) {
	return x.updateHit(ctx, id, f, store.HitTypeDisplay)
}

// UpdateActionHit partially updates an existing action hit.
func (x *Exchange) UpdateActionHit(ctx context.Context, id uuid.UUID, f ledger.HitFields) (*store.Hit, error) {
	return x.updateHit(ctx, id, f, store.HitTypeAction)
}

// GetHit returns the hit with id or ErrNotFound.
func (x *Exchange) GetHit(ctx context.Context, id uuid.UUID) (*store.Hit, error) {
	h, err := x.ledger.GetHit(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mustExist(store.KindHit, id, h.State); err != nil {
		return nil, err
	}
	return h, nil
}

func (x *Exchange) createHit(ctx context.Context, id uuid.UUID, f ledger.HitFields, t store.HitType) (*store.Hit, error) {
	f.HitType = t
	f.State = initialState(f.State)

	return x.ledger.GuardedUpsertHit(ctx, id, f, ledger.Guard[store.Hit]{
		Check: func(cur *store.Hit) error {
			return mustBeFresh(store.KindHit, id, cur.State)
		},
		Commit: func(h *store.Hit) {
			x.emit(ctx, events.Event{Type: events.HitCreated, EntityID: h.ID, Offer: h.Offer, Amount: h.Amount})
		},
	})
}

func (x *Exchange) updateHit(ctx context.Context, id uuid.UUID, f ledger.HitFields, t store.HitType) (*store.Hit, error) {
	f.HitType = store.HitTypeUndefined

	return x.ledger.GuardedUpsertHit(ctx, id, f, ledger.Guard[store.Hit]{
		Check: func(cur *store.Hit) error {
			if err := mustExist(store.KindHit, id, cur.State); err != nil {
				return err
			}
			if cur.HitType != t {
				return fmt.Errorf("%w: hit %s is a %s hit, not %s", ErrKindMismatch, id, cur.HitType, t)
			}
			return checkTransition(store.KindHit, id, cur.State, f.State)
		},
	})
}

// TransactHit settles a hit: it moves to Finished with amount recorded.
// The hit must exist and be neither Finished nor Rejected. Unless the
// exchange retains settled fields, the hit's type, session, space, offer,
// details and categories are cleared. Token movement between advertiser and
// publisher is not performed.
func (x *Exchange) TransactHit(ctx context.Context, id uuid.UUID, amount uint64) (*store.Hit, error) {
	// The settlement event names the offer even when the record forgets it.
	var offer uuid.UUID

	h, err := x.ledger.RewriteHit(ctx, id, func(h *store.Hit) error {
		switch h.State {
		case store.StateUnknown, store.StateRejected, store.StateFinished:
			return fmt.Errorf("%w: hit %s is %s", ErrInvalidState, id, h.State)
		}
		offer = h.Offer
		if !x.retainSettled {
			*h = store.Hit{}
		}
		h.State = store.StateFinished
		h.Amount = amount
		return nil
	}, func(h *store.Hit) {
		x.emit(ctx, events.Event{Type: events.HitTransacted, EntityID: h.ID, Offer: offer, Amount: h.Amount})
	})
	if err != nil {
		return nil, err
	}

	x.logger.Info("hit settled", "id", id, "amount", amount)
	return h, nil
}
