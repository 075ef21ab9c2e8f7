// ABOUTME: Ledger is the entity store: authorized, per-id atomic upserts over store.EntityStore
// ABOUTME: Applies partial-update merge rules and keeps created/role fixed after first write

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

// Authorizer checks that the caller on ctx may mutate the ledger.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// Guard hooks into a write while the entity's lock is held. Check sees the
// current record (State Unknown when absent) and may veto the write. Commit
// runs after the record is persisted.
type Guard[R any] struct {
	Check  func(current *R) error
	Commit func(written *R)
}

// Ledger owns every entity record. All mutations go through the authorizer
// first and are serialized per (kind, id); reads are not locked.
type Ledger struct {
	store  store.EntityStore
	gate   Authorizer
	locks  *keyedLocks
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source used for created.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a Ledger over s guarded by gate.
func New(s store.EntityStore, gate Authorizer, opts ...Option) *Ledger {
	l := &Ledger{
		store:  s,
		gate:   gate,
		locks:  newKeyedLocks(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ledger")
	return l
}

// entity binds a record type to its storage and bookkeeping fields.
type entity[R any] struct {
	kind       store.Kind
	get        func(context.Context, uuid.UUID) (*R, error)
	put        func(context.Context, *R) error
	state      func(*R) store.State
	created    func(*R) *time.Time
	identifier func(*R) *uuid.UUID
}

func (l *Ledger) users() entity[store.User] {
	return entity[store.User]{
		kind:       store.KindUser,
		get:        l.store.GetUser,
		put:        l.store.PutUser,
		state:      func(r *store.User) store.State { return r.State },
		created:    func(r *store.User) *time.Time { return &r.Created },
		identifier: func(r *store.User) *uuid.UUID { return &r.ID },
	}
}

func (l *Ledger) adSpaces() entity[store.AdSpace] {
	return entity[store.AdSpace]{
		kind:       store.KindAdSpace,
		get:        l.store.GetAdSpace,
		put:        l.store.PutAdSpace,
		state:      func(r *store.AdSpace) store.State { return r.State },
		created:    func(r *store.AdSpace) *time.Time { return &r.Created },
		identifier: func(r *store.AdSpace) *uuid.UUID { return &r.ID },
	}
}

func (l *Ledger) offers() entity[store.Offer] {
	return entity[store.Offer]{
		kind:       store.KindOffer,
		get:        l.store.GetOffer,
		put:        l.store.PutOffer,
		state:      func(r *store.Offer) store.State { return r.State },
		created:    func(r *store.Offer) *time.Time { return &r.Created },
		identifier: func(r *store.Offer) *uuid.UUID { return &r.ID },
	}
}

func (l *Ledger) hits() entity[store.Hit] {
	return entity[store.Hit]{
		kind:       store.KindHit,
		get:        l.store.GetHit,
		put:        l.store.PutHit,
		state:      func(r *store.Hit) store.State { return r.State },
		created:    func(r *store.Hit) *time.Time { return &r.Created },
		identifier: func(r *store.Hit) *uuid.UUID { return &r.ID },
	}
}

// load returns the stored record, or a blank one carrying id when absent.
func load[R any](ctx context.Context, e entity[R], id uuid.UUID) (*R, error) {
	r, err := e.get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r = new(R)
		*e.identifier(r) = id
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", e.kind, id, err)
	}
	return r, nil
}

// mutate is the single write path: authorize, lock, read, change, write.
// A record whose state is Unknown counts as absent and gets a fresh created
// timestamp; otherwise created is restored after fn runs.
func mutate[R any](ctx context.Context, l *Ledger, e entity[R], id uuid.UUID, fn func(cur *R, exists bool) error, commit func(*R)) (*R, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%s id is required", e.kind)
	}
	if err := l.gate.Authorize(ctx); err != nil {
		return nil, err
	}

	unlock := l.locks.lock(e.kind, id)
	defer unlock()

	cur, err := load(ctx, e, id)
	if err != nil {
		return nil, err
	}

	exists := e.state(cur) != store.StateUnknown
	created := *e.created(cur)

	if err := fn(cur, exists); err != nil {
		return nil, err
	}

	*e.identifier(cur) = id
	if exists {
		*e.created(cur) = created
	} else {
		*e.created(cur) = l.now()
	}

	if err := e.put(ctx, cur); err != nil {
		return nil, fmt.Errorf("writing %s %s: %w", e.kind, id, err)
	}

	if commit != nil {
		commit(cur)
	}
	return cur, nil
}

func upsert[R, F any](ctx context.Context, l *Ledger, e entity[R], id uuid.UUID, f *F, schema []fieldSpec[R, F], g Guard[R]) (*R, error) {
	return mutate(ctx, l, e, id, func(cur *R, exists bool) error {
		if g.Check != nil {
			if err := g.Check(cur); err != nil {
				return err
			}
		}
		written := merge(cur, f, schema, !exists)
		l.logger.Debug("merged fields", "kind", e.kind, "id", id, "created", !exists, "fields", written)
		return nil
	}, g.Commit)
}

// UpsertUser creates or partially updates the user with id.
func (l *Ledger) UpsertUser(ctx context.Context, id uuid.UUID, f UserFields) (*store.User, error) {
	return upsert(ctx, l, l.users(), id, &f, userSchema, Guard[store.User]{})
}

// GuardedUpsertUser is UpsertUser with hooks run under the entity lock.
func (l *Ledger) GuardedUpsertUser(ctx context.Context, id uuid.UUID, f UserFields, g Guard[store.User]) (*store.User, error) {
	return upsert(ctx, l, l.users(), id, &f, userSchema, g)
}

// GetUser returns the user with id. An absent user comes back with
// State Unknown and a nil error.
func (l *Ledger) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	return load(ctx, l.users(), id)
}

// UpsertAdSpace creates or partially updates the ad space with id.
func (l *Ledger) UpsertAdSpace(ctx context.Context, id uuid.UUID, f AdSpaceFields) (*store.AdSpace, error) {
	return upsert(ctx, l, l.adSpaces(), id, &f, adSpaceSchema, Guard[store.AdSpace]{})
}

// GuardedUpsertAdSpace is UpsertAdSpace with hooks run under the entity lock.
func (l *Ledger) GuardedUpsertAdSpace(ctx context.Context, id uuid.UUID, f AdSpaceFields, g Guard[store.AdSpace]) (*store.AdSpace, error) {
	return upsert(ctx, l, l.adSpaces(), id, &f, adSpaceSchema, g)
}

// GetAdSpace returns the ad space with id, State Unknown when absent.
func (l *Ledger) GetAdSpace(ctx context.Context, id uuid.UUID) (*store.AdSpace, error) {
	return load(ctx, l.adSpaces(), id)
}

// UpsertOffer creates or partially updates the offer with id.
func (l *Ledger) UpsertOffer(ctx context.Context, id uuid.UUID, f OfferFields) (*store.Offer, error) {
	return upsert(ctx, l, l.offers(), id, &f, offerSchema, Guard[store.Offer]{})
}

// GuardedUpsertOffer is UpsertOffer with hooks run under the entity lock.
func (l *Ledger) GuardedUpsertOffer(ctx context.Context, id uuid.UUID, f OfferFields, g Guard[store.Offer]) (*store.Offer, error) {
	return upsert(ctx, l, l.offers(), id, &f, offerSchema, g)
}

// GetOffer returns the offer with id, State Unknown when absent.
func (l *Ledger) GetOffer(ctx context.Context, id uuid.UUID) (*store.Offer, error) {
	return load(ctx, l.offers(), id)
}

// UpsertHit creates or partially updates the hit with id.
func (l *Ledger) UpsertHit(ctx context.Context, id uuid.UUID, f HitFields) (*store.Hit, error) {
	return upsert(ctx, l, l.hits(), id, &f, hitSchema, Guard[store.Hit]{})
}

// GuardedUpsertHit is UpsertHit with hooks run under the entity lock.
func (l *Ledger) GuardedUpsertHit(ctx context.Context, id uuid.UUID, f HitFields, g Guard[store.Hit]) (*store.Hit, error) {
	return upsert(ctx, l, l.hits(), id, &f, hitSchema, g)
}

// GetHit returns the hit with id, State Unknown when absent.
func (l *Ledger) GetHit(ctx context.Context, id uuid.UUID) (*store.Hit, error) {
	return load(ctx, l.hits(), id)
}

// RewriteHit hands the current hit to fn under the entity lock and writes
// whatever fn leaves in it, bypassing merge rules. Created and ID are
// restored afterwards. An error from fn aborts with nothing written.
func (l *Ledger) RewriteHit(ctx context.Context, id uuid.UUID, fn func(h *store.Hit) error, commit func(*store.Hit)) (*store.Hit, error) {
	return mutate(ctx, l, l.hits(), id, func(cur *store.Hit, _ bool) error {
		return fn(cur)
	}, commit)
}
