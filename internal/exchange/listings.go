// ABOUTME: Ad space and offer lifecycle operations
// ABOUTME: Creation events carry the owning user id

package exchange

import (
	"context"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

// CreateAdSpace creates an ad space. The id must be fresh.
func (x *Exchange) CreateAdSpace(ctx context.Context, id uuid.UUID, f ledger.AdSpaceFields) (*store.AdSpace, error) {
	f.State = initialState(f.State)

	return x.ledger.GuardedUpsertAdSpace(ctx, id, f, ledger.Guard[store.AdSpace]{
		Check: func(cur *store.AdSpace) error {
			return mustBeFresh(store.KindAdSpace, id, cur.State)
		},
		Commit: func(a *store.AdSpace) {
			x.emit(ctx, events.Event{Type: events.AdSpaceCreated, EntityID: a.ID, Owner: a.Owner.String()})
		},
	})
}

// UpdateAdSpace partially updates an existing ad space.
func (x *Exchange) UpdateAdSpace(ctx context.Context, id uuid.UUID, f ledger.AdSpaceFields) (*store.AdSpace, error) {
	return x.ledger.GuardedUpsertAdSpace(ctx, id, f, ledger.Guard[store.AdSpace]{
		Check: func(cur *store.AdSpace) error {
			if err := mustExist(store.KindAdSpace, id, cur.State); err != nil {
				return err
			}
			return checkTransition(store.KindAdSpace, id, cur.State, f.State)
		},
	})
}

// GetAdSpace returns the ad space with id or ErrNotFound.
func (x *Exchange) GetAdSpace(ctx context.Context, id uuid.UUID) (*store.AdSpace, error) {
	a, err := x.ledger.GetAdSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mustExist(store.KindAdSpace, id, a.State); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateOffer creates an offer. The id must be fresh.
func (x *Exchange) CreateOffer(ctx context.Context, id uuid.UUID, f ledger.OfferFields) (*store.Offer, error) {
	f.State = initialState(f.State)

	return x.ledger.GuardedUpsertOffer(ctx, id, f, ledger.Guard[store.Offer]{
		Check: func(cur *store.Offer) error {
			return mustBeFresh(store.KindOffer, id, cur.State)
		},
		Commit: func(o *store.Offer) {
			x.emit(ctx, events.Event{Type: events.OfferCreated, EntityID: o.ID, Owner: o.Owner.String()})
		},
	})
}

// UpdateOffer partially updates an existing offer.
func (x *Exchange) UpdateOffer(ctx context.Context, id uuid.UUID, f ledger.OfferFields) (*store.Offer, error) {
	return x.ledger.GuardedUpsertOffer(ctx, id, f, ledger.Guard[store.Offer]{
		Check: func(cur *store.Offer) error {
			if err := mustExist(store.KindOffer, id, cur.State); err != nil {
				return err
			}
			return checkTransition(store.KindOffer, id, cur.State, f.State)
		},
	})
}

// GetOffer returns the offer with id or ErrNotFound.
func (x *Exchange) GetOffer(ctx context.Context, id uuid.UUID) (*store.Offer, error) {
	o, err := x.ledger.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mustExist(store.KindOffer, id, o.State); err != nil {
		return nil, err
	}
	return o, nil
}
