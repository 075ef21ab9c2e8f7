// ABOUTME: Domain events emitted by the exchange for off-ledger observers
// ABOUTME: Defines the Event type and its conversion to and from outbox records

package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

// Type names a domain event
type Type string

const (
	PublisherCreated  Type = "PublisherCreated"
	AdvertiserCreated Type = "AdvertiserCreated"
	AdSpaceCreated    Type = "AdSpaceCreated"
	OfferCreated      Type = "OfferCreated"
	HitCreated        Type = "HitCreated"
	HitTransacted     Type = "HitTransacted"
)

// Event is one domain event. Which optional fields are set depends on Type:
// the *Created events for users, ad spaces and offers carry Owner, HitCreated
// carries Offer and Amount, HitTransacted carries Amount.
type Event struct {
	Seq       int64     `json:"seq"`
	ID        uuid.UUID `json:"event_id"`
	Type      Type      `json:"type"`
	EntityID  uuid.UUID `json:"id"`
	Owner     string    `json:"owner,omitempty"`
	Offer     uuid.UUID `json:"offer,omitempty"`
	Amount    uint64    `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Event) record() *store.EventRecord {
	return &store.EventRecord{
		ID:        e.ID,
		Type:      string(e.Type),
		EntityID:  e.EntityID,
		Owner:     e.Owner,
		Offer:     e.Offer,
		Amount:    e.Amount,
		Timestamp: e.Timestamp,
	}
}

func fromRecord(r store.EventRecord) Event {
	return Event{
		Seq:       r.Seq,
		ID:        r.ID,
		Type:      Type(r.Type),
		EntityID:  r.EntityID,
		Owner:     r.Owner,
		Offer:     r.Offer,
		Amount:    r.Amount,
		Timestamp: r.Timestamp,
	}
}
