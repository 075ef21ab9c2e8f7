// ABOUTME: AccessGate holding the set of owners allowed to mutate the ledger
// ABOUTME: Membership is cached in memory and persisted through store.OwnerStore

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/2389/adledger/internal/store"
)

// ErrUnauthorized is returned when the caller is not in the owner set.
var ErrUnauthorized = errors.New("caller is not authorized")

// Gate is the access gate consulted by every mutating operation.
type Gate struct {
	mu     sync.RWMutex
	owners map[Caller]struct{}
	store  store.OwnerStore
	logger *slog.Logger
}

// NewGate loads the persisted owner set and seeds creator as a member.
// Pass nil logger for default.
func NewGate(ctx context.Context, owners store.OwnerStore, creator Caller, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if creator == "" {
		return nil, errors.New("gate creator is required")
	}

	g := &Gate{
		owners: make(map[Caller]struct{}),
		store:  owners,
		logger: logger.With("component", "gate"),
	}

	if err := owners.AddOwner(ctx, string(creator)); err != nil {
		return nil, fmt.Errorf("seeding creator: %w", err)
	}

	persisted, err := owners.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading owners: %w", err)
	}
	for _, o := range persisted {
		g.owners[Caller(o)] = struct{}{}
	}

	g.logger.Info("access gate ready", "creator", creator, "owners", len(g.owners))
	return g, nil
}

// IsAuthorized reports whether caller is in the owner set.
func (g *Gate) IsAuthorized(caller Caller) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.owners[caller]
	return ok
}

// Authorize checks the caller attached to ctx. Returns ErrUnauthorized if
// there is no caller or the caller is not an owner.
func (g *Gate) Authorize(ctx context.Context) error {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no caller", ErrUnauthorized)
	}
	if !g.IsAuthorized(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

// Grant adds member to the owner set. The caller on ctx must already be an
// owner.
func (g *Gate) Grant(ctx context.Context, member Caller) error {
	if member == "" {
		return errors.New("member is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.authorizeLocked(ctx); err != nil {
		return err
	}
	if err := g.store.AddOwner(ctx, string(member)); err != nil {
		return fmt.Errorf("granting owner: %w", err)
	}
	g.owners[member] = struct{}{}

	g.logger.Info("owner granted", "member", member)
	return nil
}

// Revoke removes member from the owner set. The caller on ctx must be an
// owner. Owners may revoke themselves.
func (g *Gate) Revoke(ctx context.Context, member Caller) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.authorizeLocked(ctx); err != nil {
		return err
	}
	if err := g.store.RemoveOwner(ctx, string(member)); err != nil {
		return fmt.Errorf("revoking owner: %w", err)
	}
	delete(g.owners, member)

	g.logger.Info("owner revoked", "member", member)
	return nil
}

// Owners returns the current owner set sorted by caller.
func (g *Gate) Owners() []Caller {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Sorted(maps.Keys(g.owners))
}

func (g *Gate) authorizeLocked(ctx context.Context) error {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no caller", ErrUnauthorized)
	}
	if _, member := g.owners[caller]; !member {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}
