// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type coeffKey struct {
	kind Kind
	id   uuid.UUID
}

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*User
	adspaces map[uuid.UUID]*AdSpace
	offers   map[uuid.UUID]*Offer
	hits     map[uuid.UUID]*Hit
	coeffs   map[coeffKey][]int64
	owners   map[string]struct{}
	events   []EventRecord

	// FailWrites makes every write return an error when set.
	FailWrites bool
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[uuid.UUID]*User),
		adspaces: make(map[uuid.UUID]*AdSpace),
		offers:   make(map[uuid.UUID]*Offer),
		hits:     make(map[uuid.UUID]*Hit),
		coeffs:   make(map[coeffKey][]int64),
		owners:   make(map[string]struct{}),
	}
}

var errMockWrite = errors.New("mock store: write failed")

// PutUser stores a copy of the user.
func (m *MockStore) PutUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	c := *u
	m.users[c.ID] = &c
	return nil
}

// GetUser retrieves a copy of the user.
func (m *MockStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// PutAdSpace stores a copy of the ad space.
func (m *MockStore) PutAdSpace(ctx context.Context, a *AdSpace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	c := *a
	c.Categories = slices.Clone(a.Categories)
	m.adspaces[c.ID] = &c
	return nil
}

// GetAdSpace retrieves a copy of the ad space.
func (m *MockStore) GetAdSpace(ctx context.Context, id uuid.UUID) (*AdSpace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.adspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	c.Categories = slices.Clone(a.Categories)
	return &c, nil
}

// PutOffer stores a copy of the offer.
func (m *MockStore) PutOffer(ctx context.Context, o *Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	c := *o
	c.Categories = slices.Clone(o.Categories)
	m.offers[c.ID] = &c
	return nil
}

// GetOffer retrieves a copy of the offer.
func (m *MockStore) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *o
	c.Categories = slices.Clone(o.Categories)
	return &c, nil
}

// PutHit stores a copy of the hit.
func (m *MockStore) PutHit(ctx context.Context, h *Hit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	c := *h
	c.Categories = slices.Clone(h.Categories)
	m.hits[c.ID] = &c
	return nil
}

// GetHit retrieves a copy of the hit.
func (m *MockStore) GetHit(ctx context.Context, id uuid.UUID) (*Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hits[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *h
	c.Categories = slices.Clone(h.Categories)
	return &c, nil
}

// SetCoefficients replaces the vector for (kind, id).
func (m *MockStore) SetCoefficients(ctx context.Context, kind Kind, id uuid.UUID, values []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	m.coeffs[coeffKey{kind, id}] = slices.Clone(values)
	return nil
}

// Coefficients returns a copy of the vector for (kind, id).
func (m *MockStore) Coefficients(ctx context.Context, kind Kind, id uuid.UUID) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := slices.Clone(m.coeffs[coeffKey{kind, id}])
	if values == nil {
		values = []int64{}
	}
	return values, nil
}

// AddOwner adds a caller to the owner set.
func (m *MockStore) AddOwner(ctx context.Context, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	m.owners[caller] = struct{}{}
	return nil
}

// RemoveOwner removes a caller from the owner set.
func (m *MockStore) RemoveOwner(ctx context.Context, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	delete(m.owners, caller)
	return nil
}

// ListOwners returns the owner set sorted by caller.
func (m *MockStore) ListOwners(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owners := make([]string, 0, len(m.owners))
	for caller := range m.owners {
		owners = append(owners, caller)
	}
	sort.Strings(owners)
	return owners, nil
}

// AppendEvent records the event with the next sequence number.
func (m *MockStore) AppendEvent(ctx context.Context, e *EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMockWrite
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Seq = int64(len(m.events)) + 1
	m.events = append(m.events, *e)
	return nil
}

// ListEvents returns events with Seq > afterSeq, oldest first.
func (m *MockStore) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeEventLimit(limit)
	var out []EventRecord
	for _, e := range m.events {
		if e.Seq <= afterSeq {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
