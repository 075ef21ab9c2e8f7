// ABOUTME: Record types and store interfaces for adledger persistence
// ABOUTME: Defines User, AdSpace, Offer, Hit records and the enums they carry

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Kind names one of the four fixed record schemas. Each kind is its own id
// namespace: a User and an AdSpace may share an id without conflict.
type Kind string

const (
	KindUser    Kind = "user"
	KindAdSpace Kind = "adspace"
	KindOffer   Kind = "offer"
	KindHit     Kind = "hit"
)

// ValidKinds lists all entity kinds
var ValidKinds = []Kind{KindUser, KindAdSpace, KindOffer, KindHit}

// ParseKind converts a kind name (singular or plural) into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "user", "users":
		return KindUser, true
	case "adspace", "adspaces":
		return KindAdSpace, true
	case "offer", "offers":
		return KindOffer, true
	case "hit", "hits":
		return KindHit, true
	}
	return "", false
}

// User is a publisher or advertiser account
type User struct {
	ID      uuid.UUID
	Created time.Time
	Owner   string // account reference
	Role    Role
	Name    string
	Details string // free text, ideally an external URI
	Rank    Rank
	State   State
}

// AdSpace is a publisher's advertising slot
type AdSpace struct {
	ID         uuid.UUID
	Created    time.Time
	Owner      uuid.UUID // User id
	Name       string
	URL        string
	Details    string
	Categories Categories
	State      State
}

// Offer is an advertiser's campaign with unit prices
type Offer struct {
	ID          uuid.UUID
	Created     time.Time
	Owner       uuid.UUID // User id
	Name        string
	HitPrice    uint64
	ActionPrice uint64
	Details     string
	Categories  Categories
	State       State
}

// Hit is a single impression (Display) or user action (Action)
type Hit struct {
	ID         uuid.UUID
	Created    time.Time
	HitType    HitType
	Session    uuid.UUID
	Space      uuid.UUID // AdSpace id
	Offer      uuid.UUID // Offer id
	Amount     uint64
	Details    string
	Categories Categories
	State      State
}

// EntityStore persists the four record collections. Put overwrites the whole
// record; merge rules live above this layer.
type EntityStore interface {
	PutUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	PutAdSpace(ctx context.Context, a *AdSpace) error
	GetAdSpace(ctx context.Context, id uuid.UUID) (*AdSpace, error)

	PutOffer(ctx context.Context, o *Offer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error)

	PutHit(ctx context.Context, h *Hit) error
	GetHit(ctx context.Context, id uuid.UUID) (*Hit, error)
}

// CoefficientStore holds one int64 vector per (kind, id)
type CoefficientStore interface {
	// SetCoefficients replaces the full vector
	SetCoefficients(ctx context.Context, kind Kind, id uuid.UUID, values []int64) error
	// Coefficients returns the stored vector, or an empty slice if none was set
	Coefficients(ctx context.Context, kind Kind, id uuid.UUID) ([]int64, error)
}

// OwnerStore persists the access-control owner set
type OwnerStore interface {
	AddOwner(ctx context.Context, caller string) error
	RemoveOwner(ctx context.Context, caller string) error
	ListOwners(ctx context.Context) ([]string, error)
}

// EventStore is the outbox of emitted domain events
type EventStore interface {
	// AppendEvent assigns the next sequence number to e and persists it
	AppendEvent(ctx context.Context, e *EventRecord) error
	// ListEvents returns events with Seq > afterSeq in sequence order
	ListEvents(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error)
}

// Store is everything the ledger needs from persistence
type Store interface {
	EntityStore
	CoefficientStore
	OwnerStore
	EventStore

	// Close releases any resources held by the store
	Close() error
}

// EventRecord is a persisted domain event
type EventRecord struct {
	Seq       int64
	ID        uuid.UUID
	Type      string
	EntityID  uuid.UUID
	Owner     string
	Offer     uuid.UUID
	Amount    uint64
	Timestamp time.Time
}

// normalizeEventLimit applies default (100) and cap (1000) to event limit.
func normalizeEventLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
