package exchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/adledger/internal/auth"
	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

const testOwner auth.Caller = "0xowner"

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Emit(ctx context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type fixture struct {
	x     *Exchange
	store *store.MockStore
	sink  *recordingSink
	ctx   context.Context
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := store.NewMockStore()
	gate, err := auth.NewGate(context.Background(), s, testOwner, nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := ledger.New(s, gate, ledger.WithClock(func() time.Time { return now }))
	sink := &recordingSink{}

	return &fixture{
		x:     New(l, gate, s, sink, opts...),
		store: s,
		sink:  sink,
		ctx:   auth.WithCaller(context.Background(), testOwner),
		now:   now,
	}
}

func TestCreateAdvertiser_Scenario(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	u, err := f.x.CreateAdvertiser(f.ctx, id, ledger.UserFields{
		Owner: "0xabc",
		Name:  "X",
		Rank:  store.RankKnown,
		State: store.StateNew,
	})
	require.NoError(t, err)

	assert.Equal(t, store.RoleAdvertiser, u.Role)
	assert.Equal(t, store.RankKnown, u.Rank)
	assert.Equal(t, store.StateNew, u.State)
	assert.Equal(t, f.now, u.Created)

	got := f.sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.AdvertiserCreated, got[0].Type)
	assert.Equal(t, id, got[0].EntityID)
	assert.Equal(t, "0xabc", got[0].Owner)

	// A publisher-shaped update must not touch the role
	_, err = f.x.UpdatePublisher(f.ctx, id, ledger.UserFields{Name: "Y"})
	assert.ErrorIs(t, err, ErrKindMismatch)

	stored, err := f.x.GetUser(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdvertiser, stored.Role)
	assert.Equal(t, "X", stored.Name)
}

func TestCreate_DuplicateID(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.CreatePublisher(f.ctx, id, ledger.UserFields{Name: "first"})
	require.NoError(t, err)

	// Same id, other role: still a duplicate
	_, err = f.x.CreateAdvertiser(f.ctx, id, ledger.UserFields{Name: "second"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	got, err := f.x.GetUser(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.Len(t, f.sink.all(), 1)
}

func TestCreate_DefaultsStateToNew(t *testing.T) {
	f := newFixture(t)

	a, err := f.x.CreateAdSpace(f.ctx, uuid.New(), ledger.AdSpaceFields{Name: "banner"})
	require.NoError(t, err)
	assert.Equal(t, store.StateNew, a.State)

	o, err := f.x.CreateOffer(f.ctx, uuid.New(), ledger.OfferFields{Name: "sale", State: store.StateActive})
	require.NoError(t, err)
	assert.Equal(t, store.StateActive, o.State)
}

func TestUpdate_RequiresExistingID(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.UpdateAdvertiser(f.ctx, id, ledger.UserFields{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.UpdateAdSpace(f.ctx, id, ledger.AdSpaceFields{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.UpdateOffer(f.ctx, id, ledger.OfferFields{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.UpdateDisplayHit(f.ctx, id, ledger.HitFields{Details: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing was written
	_, err = f.store.GetUser(f.ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.store.GetHit(f.ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate_MergesAndEmitsNothing(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	owner := uuid.New()

	_, err := f.x.CreateOffer(f.ctx, id, ledger.OfferFields{
		Owner:       owner,
		Name:        "sale",
		HitPrice:    ledger.Uint64(5),
		ActionPrice: ledger.Uint64(50),
		Categories:  store.Categories{1, 2},
	})
	require.NoError(t, err)

	o, err := f.x.UpdateOffer(f.ctx, id, ledger.OfferFields{HitPrice: ledger.Uint64(7), State: store.StateActive})
	require.NoError(t, err)

	assert.Equal(t, owner, o.Owner)
	assert.Equal(t, "sale", o.Name)
	assert.Equal(t, uint64(7), o.HitPrice)
	assert.Equal(t, uint64(50), o.ActionPrice)
	assert.Equal(t, store.Categories{1, 2}, o.Categories)
	assert.Equal(t, store.StateActive, o.State)
	assert.Equal(t, f.now, o.Created)

	assert.Len(t, f.sink.all(), 1)
}

func TestUpdate_TerminalStateIsFinal(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.CreateAdSpace(f.ctx, id, ledger.AdSpaceFields{Name: "old", State: store.StateRejected})
	require.NoError(t, err)

	_, err = f.x.UpdateAdSpace(f.ctx, id, ledger.AdSpaceFields{State: store.StateActive})
	assert.ErrorIs(t, err, ErrInvalidState)

	// Field edits that keep the state are fine
	a, err := f.x.UpdateAdSpace(f.ctx, id, ledger.AdSpaceFields{Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", a.Name)
	assert.Equal(t, store.StateRejected, a.State)
}

func TestUpdateHit_TypeMismatch(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.CreateActionHit(f.ctx, id, ledger.HitFields{Amount: ledger.Uint64(3)})
	require.NoError(t, err)

	_, err = f.x.UpdateDisplayHit(f.ctx, id, ledger.HitFields{Details: "x"})
	assert.ErrorIs(t, err, ErrKindMismatch)

	h, err := f.x.UpdateActionHit(f.ctx, id, ledger.HitFields{Details: "x"})
	require.NoError(t, err)
	assert.Equal(t, store.HitTypeAction, h.HitType)
	assert.Equal(t, "x", h.Details)
}

func TestDisplayHit_SettlementScenario(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	session, space, offer := uuid.New(), uuid.New(), uuid.New()

	_, err := f.x.CreateDisplayHit(f.ctx, id, ledger.HitFields{
		Session: session,
		Space:   space,
		Offer:   offer,
		Amount:  ledger.Uint64(100),
		State:   store.StateNew,
	})
	require.NoError(t, err)

	h, err := f.x.TransactHit(f.ctx, id, 100)
	require.NoError(t, err)
	assert.Equal(t, store.StateFinished, h.State)
	assert.Equal(t, uint64(100), h.Amount)
	assert.Equal(t, f.now, h.Created)

	// Settlement clears the hit's descriptive fields
	assert.Equal(t, store.HitTypeUndefined, h.HitType)
	assert.Equal(t, uuid.Nil, h.Session)
	assert.Equal(t, uuid.Nil, h.Offer)

	got := f.sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, events.HitCreated, got[0].Type)
	assert.Equal(t, offer, got[0].Offer)
	assert.Equal(t, uint64(100), got[0].Amount)
	assert.Equal(t, events.HitTransacted, got[1].Type)
	assert.Equal(t, id, got[1].EntityID)
	assert.Equal(t, uint64(100), got[1].Amount)
	assert.Equal(t, offer, got[1].Offer)

	_, err = f.x.TransactHit(f.ctx, id, 100)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, f.sink.all(), 2)
}

func TestTransactHit_RetainSettledFields(t *testing.T) {
	f := newFixture(t, WithRetainSettledHitFields(true))
	id := uuid.New()
	offer := uuid.New()

	_, err := f.x.CreateActionHit(f.ctx, id, ledger.HitFields{
		Offer:      offer,
		Details:    "click",
		Categories: store.Categories{4},
	})
	require.NoError(t, err)

	h, err := f.x.TransactHit(f.ctx, id, 25)
	require.NoError(t, err)
	assert.Equal(t, store.StateFinished, h.State)
	assert.Equal(t, uint64(25), h.Amount)
	assert.Equal(t, store.HitTypeAction, h.HitType)
	assert.Equal(t, offer, h.Offer)
	assert.Equal(t, "click", h.Details)
	assert.Equal(t, store.Categories{4}, h.Categories)
}

func TestTransactHit_UnknownID(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.TransactHit(f.ctx, id, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.store.GetHit(f.ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.sink.all())
}

func TestTransactHit_Rejected(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.CreateDisplayHit(f.ctx, id, ledger.HitFields{State: store.StateRejected})
	require.NoError(t, err)

	_, err = f.x.TransactHit(f.ctx, id, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUnauthorized_LeavesRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.CreateDisplayHit(f.ctx, id, ledger.HitFields{Amount: ledger.Uint64(9), Details: "d"})
	require.NoError(t, err)
	require.NoError(t, f.x.SetHitCoeffs(f.ctx, id, []int64{1, 2}))
	before, err := f.store.GetHit(f.ctx, id)
	require.NoError(t, err)

	stranger := auth.WithCaller(context.Background(), "0xstranger")

	_, err = f.x.UpdateDisplayHit(stranger, id, ledger.HitFields{Details: "evil"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	_, err = f.x.TransactHit(stranger, id, 1)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	_, err = f.x.CreatePublisher(stranger, uuid.New(), ledger.UserFields{Name: "p"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	err = f.x.SetHitCoeffs(stranger, id, []int64{9})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	after, err := f.store.GetHit(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	v, err := f.x.GetHitCoeff(stranger, id, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Len(t, f.sink.all(), 1)
}

func TestCoefficients(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	space := uuid.New()

	_, err := f.x.CreatePublisher(f.ctx, user, ledger.UserFields{Name: "p"})
	require.NoError(t, err)
	_, err = f.x.CreateAdSpace(f.ctx, space, ledger.AdSpaceFields{Name: "s"})
	require.NoError(t, err)

	require.NoError(t, f.x.SetUserCoeffs(f.ctx, user, []int64{-5, 0, 7}))

	v, err := f.x.GetUserCoeff(f.ctx, user, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = f.x.GetUserCoeff(f.ctx, user, 3)
	assert.ErrorIs(t, err, ErrCoefficientIndex)
	_, err = f.x.GetUserCoeff(f.ctx, user, -1)
	assert.ErrorIs(t, err, ErrCoefficientIndex)

	// Vectors are per kind even when ids collide
	_, err = f.x.GetAdSpaceCoeff(f.ctx, space, 0)
	assert.ErrorIs(t, err, ErrCoefficientIndex)

	// Absent ids
	err = f.x.SetOfferCoeffs(f.ctx, uuid.New(), []int64{1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.GetOfferCoeff(f.ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, ErrNotFound)

	// Coefficients on a user id do not make an ad space with that id exist
	err = f.x.SetAdSpaceCoeffs(f.ctx, user, []int64{1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_AbsentIsNotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.GetUser(f.ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.GetAdSpace(f.ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.GetOffer(f.ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.x.GetHit(f.ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeparateNamespaces(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	_, err := f.x.CreatePublisher(f.ctx, id, ledger.UserFields{Name: "p"})
	require.NoError(t, err)
	_, err = f.x.CreateOffer(f.ctx, id, ledger.OfferFields{Name: "o"})
	require.NoError(t, err)
	_, err = f.x.CreateDisplayHit(f.ctx, id, ledger.HitFields{})
	require.NoError(t, err)
}

func TestConcurrentCreates_OneWins(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, dups := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.x.CreateOffer(f.ctx, id, ledger.OfferFields{Name: "race"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, ErrDuplicateID):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 15, dups)
	assert.Len(t, f.sink.all(), 1)
}

func TestEventsOrderedPerID(t *testing.T) {
	s := store.NewMockStore()
	gate, err := auth.NewGate(context.Background(), s, testOwner, nil)
	require.NoError(t, err)
	pub := events.NewPublisher(s, 16, nil)
	defer pub.Close()

	x := New(ledger.New(s, gate), gate, s, pub)
	ctx := auth.WithCaller(context.Background(), testOwner)

	id := uuid.New()
	_, err = x.CreateDisplayHit(ctx, id, ledger.HitFields{Amount: ledger.Uint64(10)})
	require.NoError(t, err)
	_, err = x.TransactHit(ctx, id, 10)
	require.NoError(t, err)

	replayed, err := pub.Replay(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.Equal(t, events.HitCreated, replayed[0].Type)
	assert.Equal(t, events.HitTransacted, replayed[1].Type)
	assert.Less(t, replayed[0].Seq, replayed[1].Seq)
}
