// ABOUTME: Publisher and advertiser lifecycle operations
// ABOUTME: Role is fixed at creation and checked on every update

package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

// CreatePublisher creates a user with the publisher role.
func (x *Exchange) CreatePublisher(ctx context.Context, id uuid.UUID, f ledger.UserFields) (*store.User, error) {
	return x.createUser(ctx, id, f, store.RolePublisher, events.PublisherCreated)
}

// CreateAdvertiser creates a user with the advertiser role.
func (x *Exchange) CreateAdvertiser(ctx context.Context, id uuid.UUID, f ledger.UserFields) (*store.User, error) {
	return x.createUser(ctx, id, f, store.RoleAdvertiser, events.AdvertiserCreated)
}

// UpdatePublisher partially updates an existing publisher.
func (x *Exchange) UpdatePublisher(ctx context.Context, id uuid.UUID, f ledger.UserFields) (*store.User, error) {
	return x.updateUser(ctx, id, f, store.RolePublisher)
}

// UpdateAdvertiser partially updates an existing advertiser.
func (x *Exchange) UpdateAdvertiser(ctx context.Context, id uuid.UUID, f ledger.UserFields) (*store.User, error) {
	return x.updateUser(ctx, id, f, store.RoleAdvertiser)
}

// GetUser returns the user with id or ErrNotFound.
func (x *Exchange) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	u, err := x.ledger.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mustExist(store.KindUser, id, u.State); err != nil {
		return nil, err
	}
	return u, nil
}

func (x *Exchange) createUser(ctx context.Context, id uuid.UUID, f ledger.UserFields, role store.Role, evt events.Type) (*store.User, error) {
	f.Role = role
	f.State = initialState(f.State)

	return x.ledger.GuardedUpsertUser(ctx, id, f, ledger.Guard[store.User]{
		Check: func(cur *store.User) error {
			return mustBeFresh(store.KindUser, id, cur.State)
		},
		Commit: func(u *store.User) {
			x.emit(ctx, events.Event{Type: evt, EntityID: u.ID, Owner: u.Owner})
		},
	})
}

func (x *Exchange) updateUser(ctx context.Context, id uuid.UUID, f ledger.UserFields, role store.Role) (*store.User, error) {
	f.Role = store.RoleUndefined

	return x.ledger.GuardedUpsertUser(ctx, id, f, ledger.Guard[store.User]{
		Check: func(cur *store.User) error {
			if err := mustExist(store.KindUser, id, cur.State); err != nil {
				return err
			}
			if cur.Role != role {
				return fmt.Errorf("%w: user %s is a %s, not a %s", ErrKindMismatch, id, cur.Role, role)
			}
			return checkTransition(store.KindUser, id, cur.State, f.State)
		},
	})
}
