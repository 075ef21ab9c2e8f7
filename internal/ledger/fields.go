// ABOUTME: Field sets accepted by upserts and the per-kind merge schemas
// ABOUTME: One generic merge routine walks a schema of (name, supplied, apply) entries

package ledger

import (
	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

// UserFields is the full field set for a user write. Zero values mean
// "leave unchanged" on an existing record.
type UserFields struct {
	Owner   string
	Role    store.Role // only honored when the record is created
	Name    string
	Details string
	Rank    store.Rank
	State   store.State
}

// AdSpaceFields is the full field set for an ad space write.
type AdSpaceFields struct {
	Owner      uuid.UUID
	Name       string
	URL        string
	Details    string
	Categories store.Categories
	State      store.State
}

// OfferFields is the full field set for an offer write. Prices are pointers:
// nil leaves the stored price alone, any supplied value (zero included)
// overwrites it.
type OfferFields struct {
	Owner       uuid.UUID
	Name        string
	HitPrice    *uint64
	ActionPrice *uint64
	Details     string
	Categories  store.Categories
	State       store.State
}

// HitFields is the full field set for a hit write. Amount follows the same
// pointer rule as offer prices.
type HitFields struct {
	HitType    store.HitType
	Session    uuid.UUID
	Space      uuid.UUID
	Offer      uuid.UUID
	Amount     *uint64
	Details    string
	Categories store.Categories
	State      store.State
}

// Uint64 returns a pointer to v, for populating price and amount fields.
func Uint64(v uint64) *uint64 { return &v }

func deref(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

// fieldSpec describes one mergeable field of record R written from field set F.
type fieldSpec[R, F any] struct {
	name string
	// supplied reports whether the incoming value should overwrite an
	// existing one
	supplied func(f *F) bool
	apply    func(r *R, f *F)
	// createOnly fields are written when the record is created and never again
	createOnly bool
}

// merge writes f into r according to schema. On create every field is taken
// literally. On update only supplied, mutable fields are written. Returns the
// names of the fields written.
func merge[R, F any](r *R, f *F, schema []fieldSpec[R, F], create bool) []string {
	var written []string
	for _, fs := range schema {
		if !create && (fs.createOnly || !fs.supplied(f)) {
			continue
		}
		fs.apply(r, f)
		written = append(written, fs.name)
	}
	return written
}

var userSchema = []fieldSpec[store.User, UserFields]{
	{name: "owner", supplied: func(f *UserFields) bool { return f.Owner != "" }, apply: func(r *store.User, f *UserFields) { r.Owner = f.Owner }},
	{name: "role", createOnly: true, apply: func(r *store.User, f *UserFields) { r.Role = f.Role }},
	{name: "name", supplied: func(f *UserFields) bool { return f.Name != "" }, apply: func(r *store.User, f *UserFields) { r.Name = f.Name }},
	{name: "details", supplied: func(f *UserFields) bool { return f.Details != "" }, apply: func(r *store.User, f *UserFields) { r.Details = f.Details }},
	{name: "rank", supplied: func(f *UserFields) bool { return f.Rank != store.RankNotSet }, apply: func(r *store.User, f *UserFields) { r.Rank = f.Rank }},
	{name: "state", supplied: func(f *UserFields) bool { return f.State != store.StateUnknown }, apply: func(r *store.User, f *UserFields) { r.State = f.State }},
}

var adSpaceSchema = []fieldSpec[store.AdSpace, AdSpaceFields]{
	{name: "owner", supplied: func(f *AdSpaceFields) bool { return f.Owner != uuid.Nil }, apply: func(r *store.AdSpace, f *AdSpaceFields) { r.Owner = f.Owner }},
	{name: "name", supplied: func(f *AdSpaceFields) bool { return f.Name != "" }, apply: func(r *store.AdSpace, f *AdSpaceFields) { r.Name = f.Name }},
	{name: "url", supplied: func(f *AdSpaceFields) bool { return f.URL != "" }, apply: func(r *store.AdSpace, f *AdSpaceFields) { r.URL = f.URL }},
	{name: "details", supplied: func(f *AdSpaceFields) bool { return f.Details != "" }, apply: func(r *store.AdSpace, f *AdSpaceFields) { r.Details = f.Details }},
	{name: "categories", supplied: func(f *AdSpaceFields) bool { return len(f.Categories) > 0 }, apply: func(r *store.AdSpace, f *AdSpaceFields) { r.Categories = f.Categories.Normalize() }},
	{name: "state", supplied: func(f *AdSpaceFields) bool { return f.State != store.StateUnknown }, apply: func(r *store.AdSpace, f *AdSpaceFields) { r.State = f.State }},
}

var offerSchema = []fieldSpec[store.Offer, OfferFields]{
	{name: "owner", supplied: func(f *OfferFields) bool { return f.Owner != uuid.Nil }, apply: func(r *store.Offer, f *OfferFields) { r.Owner = f.Owner }},
	{name: "name", supplied: func(f *OfferFields) bool { return f.Name != "" }, apply: func(r *store.Offer, f *OfferFields) { r.Name = f.Name }},
	{name: "hit_price", supplied: func(f *OfferFields) bool { return f.HitPrice != nil }, apply: func(r *store.Offer, f *OfferFields) { r.HitPrice = deref(f.HitPrice) }},
	{name: "action_price", supplied: func(f *OfferFields) bool { return f.ActionPrice != nil }, apply: func(r *store.Offer, f *OfferFields) { r.ActionPrice = deref(f.ActionPrice) }},
	{name: "details", supplied: func(f *OfferFields) bool { return f.Details != "" }, apply: func(r *store.Offer, f *OfferFields) { r.Details = f.Details }},
	{name: "categories", supplied: func(f *OfferFields) bool { return len(f.Categories) > 0 }, apply: func(r *store.Offer, f *OfferFields) { r.Categories = f.Categories.Normalize() }},
	{name: "state", supplied: func(f *OfferFields) bool { return f.State != store.StateUnknown }, apply: func(r *store.Offer, f *OfferFields) { r.State = f.State }},
}

var hitSchema = []fieldSpec[store.Hit, HitFields]{
	{name: "hit_type", supplied: func(f *HitFields) bool { return f.HitType != store.HitTypeUndefined }, apply: func(r *store.Hit, f *HitFields) { r.HitType = f.HitType }},
	{name: "session", supplied: func(f *HitFields) bool { return f.Session != uuid.Nil }, apply: func(r *store.Hit, f *HitFields) { r.Session = f.Session }},
	{name: "space", supplied: func(f *HitFields) bool { return f.Space != uuid.Nil }, apply: func(r *store.Hit, f *HitFields) { r.Space = f.Space }},
	{name: "offer", supplied: func(f *HitFields) bool { return f.Offer != uuid.Nil }, apply: func(r *store.Hit, f *HitFields) { r.Offer = f.Offer }},
	{name: "amount", supplied: func(f *HitFields) bool { return f.Amount != nil }, apply: func(r *store.Hit, f *HitFields) { r.Amount = deref(f.Amount) }},
	{name: "details", supplied: func(f *HitFields) bool { return f.Details != "" }, apply: func(r *store.Hit, f *HitFields) { r.Details = f.Details }},
	{name: "categories", supplied: func(f *HitFields) bool { return len(f.Categories) > 0 }, apply: func(r *store.Hit, f *HitFields) { r.Categories = f.Categories.Normalize() }},
	{name: "state", supplied: func(f *HitFields) bool { return f.State != store.StateUnknown }, apply: func(r *store.Hit, f *HitFields) { r.State = f.State }},
}
