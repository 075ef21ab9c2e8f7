package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/adledger/internal/auth"
	"github.com/2389/adledger/internal/config"
	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/exchange"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

var testSecret = []byte("api-handler-test-secret-32-bytes")

const testOwner auth.Caller = "0xowner"

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	store    *store.MockStore
	verifier *auth.JWTVerifier
	owner    string
	stranger string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, config.ServerConfig{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0"})
}

func newTestEnvWith(t *testing.T, cfg config.ServerConfig) *testEnv {
	t.Helper()
	ctx := context.Background()

	s := store.NewMockStore()
	gate, err := auth.NewGate(ctx, s, testOwner, nil)
	require.NoError(t, err)
	verifier, err := auth.NewJWTVerifier(testSecret)
	require.NoError(t, err)

	pub := events.NewPublisher(s, 16, nil)
	x := exchange.New(ledger.New(s, gate), gate, s, pub)

	srv := New(cfg, Deps{
		Exchange: x,
		Gate:     gate,
		Events:   pub,
		Verifier: verifier,
	}, nil)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		pub.Close()
		ts.Close()
		srv.idempotency.Close()
	})

	owner, err := verifier.Generate(testOwner, time.Hour)
	require.NoError(t, err)
	stranger, err := verifier.Generate("0xstranger", time.Hour)
	require.NoError(t, err)

	return &testEnv{srv: srv, ts: ts, store: s, verifier: verifier, owner: owner, stranger: stranger}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))
}

func TestAdvertiserLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	status, body := env.do(t, http.MethodPost, "/api/advertisers", env.owner, map[string]any{
		"id":    id,
		"owner": "0xabc",
		"name":  "X",
		"rank":  "known",
		"state": "new",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	u := decode[UserResponse](t, body)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, store.RoleAdvertiser, u.Role)
	assert.Equal(t, store.RankKnown, u.Rank)
	assert.Equal(t, store.StateNew, u.State)
	assert.False(t, u.Created.IsZero())

	status, body = env.do(t, http.MethodPatch, "/api/publishers/"+id.String(), env.owner, map[string]any{"name": "Y"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, decode[map[string]string](t, body)["error"], "kind mismatch")

	status, body = env.do(t, http.MethodPatch, "/api/advertisers/"+id.String(), env.owner, map[string]any{"details": "ipfs://d"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/users/"+id.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[UserResponse](t, body)
	assert.Equal(t, store.RoleAdvertiser, got.Role)
	assert.Equal(t, "X", got.Name)
	assert.Equal(t, "ipfs://d", got.Details)
	assert.True(t, u.Created.Equal(got.Created))
}

func TestCreate_GeneratesIDWhenOmitted(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/adspaces", env.owner, map[string]any{
		"name":       "banner",
		"url":        "https://pub.example/banner",
		"categories": []int{3, 1, 3},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	a := decode[AdSpaceResponse](t, body)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, store.Categories{3, 1}, a.Categories)
	assert.Equal(t, store.StateNew, a.State)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"name": "p"}

	status, _ := env.do(t, http.MethodPost, "/api/publishers", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/publishers", env.stranger, body)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, "/api/publishers", "not-a-jwt", body)
	assert.Equal(t, http.StatusUnauthorized, status)

	other, err := auth.NewJWTVerifier([]byte("some-other-secret-that-is-32-byte"))
	require.NoError(t, err)
	forged, err := other.Generate(testOwner, time.Hour)
	require.NoError(t, err)
	status, _ = env.do(t, http.MethodPost, "/api/publishers", forged, body)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreate_DuplicateIDConflict(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	status, _ := env.do(t, http.MethodPost, "/api/offers", env.owner, map[string]any{"id": id, "name": "a"})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodPost, "/api/offers", env.owner, map[string]any{"id": id, "name": "b"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestNotFoundAndBadRequest(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	status, _ := env.do(t, http.MethodPatch, "/api/offers/"+id, env.owner, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/api/hits/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/api/offers/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/api/offers/"+uuid.Nil.String(), "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/offers", env.owner, `{"name": "x", "bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/offers", env.owner, `{"state": "sideways"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/adspaces", env.owner, `{"categories": [300]}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOfferPriceMerge(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	status, _ := env.do(t, http.MethodPost, "/api/offers", env.owner, map[string]any{
		"id":           id,
		"name":         "sale",
		"hit_price":    5,
		"action_price": 50,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, http.MethodPatch, "/api/offers/"+id.String(), env.owner, map[string]any{"hit_price": 0})
	require.Equal(t, http.StatusOK, status, string(body))

	o := decode[OfferResponse](t, body)
	assert.Equal(t, uint64(0), o.HitPrice)
	assert.Equal(t, uint64(50), o.ActionPrice)
	assert.Equal(t, "sale", o.Name)
}

func TestDisplayHitSettlement(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	status, body := env.do(t, http.MethodPost, "/api/hits/display", env.owner, map[string]any{
		"id":      id,
		"session": uuid.New(),
		"space":   uuid.New(),
		"offer":   uuid.New(),
		"amount":  100,
		"state":   "new",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, store.HitTypeDisplay, decode[HitResponse](t, body).HitType)

	status, _ = env.do(t, http.MethodPatch, "/api/hits/action/"+id.String(), env.owner, map[string]any{"details": "x"})
	assert.Equal(t, http.StatusConflict, status)

	path := "/api/hits/" + id.String() + "/transact"
	status, body = env.do(t, http.MethodPost, path, env.owner, map[string]any{"amount": 100})
	require.Equal(t, http.StatusOK, status, string(body))

	h := decode[HitResponse](t, body)
	assert.Equal(t, store.StateFinished, h.State)
	assert.Equal(t, uint64(100), h.Amount)

	status, _ = env.do(t, http.MethodPost, path, env.owner, map[string]any{"amount": 100})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/api/hits/"+uuid.NewString()+"/transact", env.owner, map[string]any{"amount": 1})
	assert.Equal(t, http.StatusConflict, status)
}

func TestCoefficients(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	status, _ := env.do(t, http.MethodPost, "/api/offers", env.owner, map[string]any{"id": id, "name": "o"})
	require.Equal(t, http.StatusCreated, status)

	base := "/api/offers/" + id.String() + "/coefficients"
	status, body := env.do(t, http.MethodPut, base, env.owner, map[string]any{"values": []int64{-3, 8}})
	require.Equal(t, http.StatusNoContent, status, string(body))

	status, body = env.do(t, http.MethodGet, base+"/1", "", nil)
	require.Equal(t, http.StatusOK, status)
	c := decode[CoefficientResponse](t, body)
	assert.Equal(t, int64(8), c.Value)
	assert.Equal(t, store.KindOffer, c.Kind)

	status, _ = env.do(t, http.MethodGet, base+"/2", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, base+"/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPut, base, env.stranger, map[string]any{"values": []int64{1}})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/widgets/"+id.String()+"/coefficients/0", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPut, "/api/hits/"+id.String()+"/coefficients", env.owner, map[string]any{"values": []int64{1}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOwners(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/owners", env.stranger, map[string]any{"caller": "0xstranger"})
	assert.Equal(t, http.StatusForbidden, status, string(body))

	status, body = env.do(t, http.MethodPost, "/api/owners", env.owner, map[string]any{"caller": "0xstranger"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/owners/0xstranger", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[OwnerResponse](t, body).Authorized)

	// The new owner can now write
	status, _ = env.do(t, http.MethodPost, "/api/publishers", env.stranger, map[string]any{"name": "p"})
	assert.Equal(t, http.StatusCreated, status)

	status, body = env.do(t, http.MethodGet, "/api/owners", env.owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"0xowner", "0xstranger"}, decode[ListOwnersResponse](t, body).Owners)

	status, _ = env.do(t, http.MethodGet, "/api/owners", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodDelete, "/api/owners/0xstranger", env.owner, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodPost, "/api/publishers", env.stranger, map[string]any{"name": "q"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, "/api/owners", env.owner, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodPost, "/api/publishers", env.owner, map[string]any{"name": "p"}, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, http.MethodPost, "/api/publishers", env.owner, map[string]any{"name": "p"}, IdempotencyHeader, "k1")
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "duplicate request")

	// The same key from another caller is independent
	status, _ = env.do(t, http.MethodPost, "/api/publishers", env.stranger, map[string]any{"name": "p"}, IdempotencyHeader, "k1")
	assert.Equal(t, http.StatusForbidden, status)

	// A failed request releases its key
	status, _ = env.do(t, http.MethodPatch, "/api/offers/"+uuid.NewString(), env.owner, map[string]any{"name": "x"}, IdempotencyHeader, "k2")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodPost, "/api/offers", env.owner, map[string]any{"name": "x"}, IdempotencyHeader, "k2")
	assert.Equal(t, http.StatusCreated, status)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)

	offer := uuid.New()
	status, _ := env.do(t, http.MethodPost, "/api/offers", env.owner, map[string]any{"id": offer, "owner": uuid.New(), "name": "o"})
	require.Equal(t, http.StatusCreated, status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/api/events?after=0", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, events.Event) {
		t.Helper()
		var name string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				var e events.Event
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
				return name, e
			}
		}
	}

	name, e := readEvent()
	assert.Equal(t, "OfferCreated", name)
	assert.Equal(t, offer, e.EntityID)
	assert.Equal(t, int64(1), e.Seq)

	hit := uuid.New()
	status, _ = env.do(t, http.MethodPost, "/api/hits/action", env.owner, map[string]any{"id": hit, "offer": offer, "amount": 7})
	require.Equal(t, http.StatusCreated, status)

	name, e = readEvent()
	assert.Equal(t, "HitCreated", name)
	assert.Equal(t, hit, e.EntityID)
	assert.Equal(t, offer, e.Offer)
	assert.Equal(t, uint64(7), e.Amount)
	assert.Equal(t, int64(2), e.Seq)
}

func TestEventStream_BadAfter(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/api/events?after=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEventStream_RefillsDroppedEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.srv.events.Emit(ctx, events.Event{Type: events.PublisherCreated, EntityID: uuid.New()})
	}
	all, err := env.srv.events.Replay(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// The subscriber buffer overflowed and seq 2 never reached the channel
	live := make(chan events.Event, 2)
	live <- all[0]
	live <- all[2]
	close(live)

	rec := httptest.NewRecorder()
	env.srv.streamEvents(ctx, rec, rec, live, 0, false)

	var ids []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "id: ") {
			ids = append(ids, strings.TrimPrefix(line, "id: "))
		}
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestEventStream_SkipsAlreadyReplayed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		env.srv.events.Emit(ctx, events.Event{Type: events.PublisherCreated, EntityID: uuid.New()})
	}
	all, err := env.srv.events.Replay(ctx, 0, 0)
	require.NoError(t, err)

	live := make(chan events.Event, 2)
	live <- all[0]
	live <- all[1]
	close(live)

	rec := httptest.NewRecorder()
	env.srv.streamEvents(ctx, rec, rec, live, 2, true)
	assert.NotContains(t, rec.Body.String(), "id: ")
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnvWith(t, config.ServerConfig{
		HTTPAddr:   "127.0.0.1:0",
		GRPCAddr:   "127.0.0.1:0",
		WriteRate:  0.001,
		WriteBurst: 2,
	})

	for i := 0; i < 2; i++ {
		status, body := env.do(t, http.MethodPost, "/api/publishers", env.owner, map[string]any{"name": "p"})
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	status, _ := env.do(t, http.MethodPost, "/api/publishers", env.owner, map[string]any{"name": "p"})
	assert.Equal(t, http.StatusTooManyRequests, status)

	// Other callers have their own budget and reads are never limited
	status, _ = env.do(t, http.MethodPost, "/api/publishers", env.stranger, map[string]any{"name": "p"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/owners/0xowner", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestWriteLimiter_DisabledWhenRateIsZero(t *testing.T) {
	assert.Nil(t, newWriteLimiter(0, 10))

	l := newWriteLimiter(1, 0)
	require.NotNil(t, l)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
}

func TestWriteLimiter_PrunesRefilledBuckets(t *testing.T) {
	l := newWriteLimiter(0.1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("b"))
	assert.Len(t, l.limiters, 2)

	// "a" refills, "b" spends again just before the sweep
	now = now.Add(limiterPruneInterval - time.Second)
	assert.True(t, l.allow("b"))
	now = now.Add(time.Second)
	assert.True(t, l.allow("c"))

	l.mu.Lock()
	_, hasA := l.limiters["a"]
	_, hasB := l.limiters["b"]
	l.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB)
	assert.Len(t, l.limiters, 2)

	// A pruned caller starts over with a full bucket
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
}
