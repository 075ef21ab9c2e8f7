// ABOUTME: Request and response bodies for the HTTP API
// ABOUTME: Enums travel as lowercase names, ids as UUID strings, categories as number arrays

package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

// UserRequest is the body for POST/PATCH on /api/publishers and /api/advertisers.
// A create without an id gets a fresh one.
type UserRequest struct {
	ID      uuid.UUID   `json:"id"`
	Owner   string      `json:"owner"`
	Name    string      `json:"name"`
	Details string      `json:"details"`
	Rank    store.Rank  `json:"rank"`
	State   store.State `json:"state"`
}

func (r *UserRequest) fields() ledger.UserFields {
	return ledger.UserFields{
		Owner:   r.Owner,
		Name:    r.Name,
		Details: r.Details,
		Rank:    r.Rank,
		State:   r.State,
	}
}

// AdSpaceRequest is the body for POST/PATCH on /api/adspaces.
type AdSpaceRequest struct {
	ID         uuid.UUID        `json:"id"`
	Owner      uuid.UUID        `json:"owner"`
	Name       string           `json:"name"`
	URL        string           `json:"url"`
	Details    string           `json:"details"`
	Categories store.Categories `json:"categories"`
	State      store.State      `json:"state"`
}

func (r *AdSpaceRequest) fields() ledger.AdSpaceFields {
	return ledger.AdSpaceFields{
		Owner:      r.Owner,
		Name:       r.Name,
		URL:        r.URL,
		Details:    r.Details,
		Categories: r.Categories,
		State:      r.State,
	}
}

// OfferRequest is the body for POST/PATCH on /api/offers. Omitted prices
// are left unchanged on update; an explicit 0 sets the price to zero.
type OfferRequest struct {
	ID          uuid.UUID        `json:"id"`
	Owner       uuid.UUID        `json:"owner"`
	Name        string           `json:"name"`
	HitPrice    *uint64          `json:"hit_price"`
	ActionPrice *uint64          `json:"action_price"`
	Details     string           `json:"details"`
	Categories  store.Categories `json:"categories"`
	State       store.State      `json:"state"`
}

func (r *OfferRequest) fields() ledger.OfferFields {
	return ledger.OfferFields{
		Owner:       r.Owner,
		Name:        r.Name,
		HitPrice:    r.HitPrice,
		ActionPrice: r.ActionPrice,
		Details:     r.Details,
		Categories:  r.Categories,
		State:       r.State,
	}
}

// HitRequest is the body for POST/PATCH on /api/hits/display and /api/hits/action.
type HitRequest struct {
	ID         uuid.UUID        `json:"id"`
	Session    uuid.UUID        `json:"session"`
	Space      uuid.UUID        `json:"space"`
	Offer      uuid.UUID        `json:"offer"`
	Amount     *uint64          `json:"amount"`
	Details    string           `json:"details"`
	Categories store.Categories `json:"categories"`
	State      store.State      `json:"state"`
}

func (r *HitRequest) fields() ledger.HitFields {
	return ledger.HitFields{
		Session:    r.Session,
		Space:      r.Space,
		Offer:      r.Offer,
		Amount:     r.Amount,
		Details:    r.Details,
		Categories: r.Categories,
		State:      r.State,
	}
}

// TransactRequest is the body for POST /api/hits/{id}/transact.
type TransactRequest struct {
	Amount uint64 `json:"amount"`
}

// CoefficientsRequest is the body for PUT /api/{kind}/{id}/coefficients.
type CoefficientsRequest struct {
	Values []int64 `json:"values"`
}

// CoefficientResponse is the JSON response for GET /api/{kind}/{id}/coefficients/{index}.
type CoefficientResponse struct {
	Kind  store.Kind `json:"kind"`
	ID    uuid.UUID  `json:"id"`
	Index int        `json:"index"`
	Value int64      `json:"value"`
}

// OwnerRequest is the body for POST /api/owners.
type OwnerRequest struct {
	Caller string `json:"caller"`
}

// OwnerResponse reports owner-set membership.
type OwnerResponse struct {
	Caller     string `json:"caller"`
	Authorized bool   `json:"authorized"`
}

// ListOwnersResponse is the JSON response for GET /api/owners.
type ListOwnersResponse struct {
	Owners []string `json:"owners"`
}

// UserResponse is the JSON form of a user record.
type UserResponse struct {
	ID      uuid.UUID   `json:"id"`
	Created time.Time   `json:"created"`
	Owner   string      `json:"owner"`
	Role    store.Role  `json:"role"`
	Name    string      `json:"name"`
	Details string      `json:"details"`
	Rank    store.Rank  `json:"rank"`
	State   store.State `json:"state"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Created: u.Created,
		Owner:   u.Owner,
		Role:    u.Role,
		Name:    u.Name,
		Details: u.Details,
		Rank:    u.Rank,
		State:   u.State,
	}
}

// AdSpaceResponse is the JSON form of an ad space record.
type AdSpaceResponse struct {
	ID         uuid.UUID        `json:"id"`
	Created    time.Time        `json:"created"`
	Owner      uuid.UUID        `json:"owner"`
	Name       string           `json:"name"`
	URL        string           `json:"url"`
	Details    string           `json:"details"`
	Categories store.Categories `json:"categories"`
	State      store.State      `json:"state"`
}

func adSpaceResponse(a *store.AdSpace) AdSpaceResponse {
	return AdSpaceResponse{
		ID:         a.ID,
		Created:    a.Created,
		Owner:      a.Owner,
		Name:       a.Name,
		URL:        a.URL,
		Details:    a.Details,
		Categories: a.Categories,
		State:      a.State,
	}
}

// OfferResponse is the JSON form of an offer record.
type OfferResponse struct {
	ID          uuid.UUID        `json:"id"`
	Created     time.Time        `json:"created"`
	Owner       uuid.UUID        `json:"owner"`
	Name        string           `json:"name"`
	HitPrice    uint64           `json:"hit_price"`
	ActionPrice uint64           `json:"action_price"`
	Details     string           `json:"details"`
	Categories  store.Categories `json:"categories"`
	State       store.State      `json:"state"`
}

func offerResponse(o *store.Offer) OfferResponse {
	return OfferResponse{
		ID:          o.ID,
		Created:     o.Created,
		Owner:       o.Owner,
		Name:        o.Name,
		HitPrice:    o.HitPrice,
		ActionPrice: o.ActionPrice,
		Details:     o.Details,
		Categories:  o.Categories,
		State:       o.State,
	}
}

// HitResponse is the JSON form of a hit record.
type HitResponse struct {
	ID         uuid.UUID        `json:"id"`
	Created    time.Time        `json:"created"`
	HitType    store.HitType    `json:"hit_type"`
	Session    uuid.UUID        `json:"session"`
	Space      uuid.UUID        `json:"space"`
	Offer      uuid.UUID        `json:"offer"`
	Amount     uint64           `json:"amount"`
	Details    string           `json:"details"`
	Categories store.Categories `json:"categories"`
	State      store.State      `json:"state"`
}

func hitResponse(h *store.Hit) HitResponse {
	return HitResponse{
		ID:         h.ID,
		Created:    h.Created,
		HitType:    h.HitType,
		Session:    h.Session,
		Space:      h.Space,
		Offer:      h.Offer,
		Amount:     h.Amount,
		Details:    h.Details,
		Categories: h.Categories,
		State:      h.State,
	}
}
