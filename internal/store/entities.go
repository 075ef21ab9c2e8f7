// ABOUTME: SQLite persistence for the four entity kinds
// ABOUTME: Put is a whole-record upsert; Get returns ErrNotFound for absent ids

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Unsigned amounts are stored bit-for-bit in SQLite's signed INTEGER.
func toDB(v uint64) int64   { return int64(v) }
func fromDB(v int64) uint64 { return uint64(v) }

// PutUser writes the full user record, replacing any existing row.
func (s *SQLiteStore) PutUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, created_at, owner, role, name, details, rank, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			owner = excluded.owner,
			role = excluded.role,
			name = excluded.name,
			details = excluded.details,
			rank = excluded.rank,
			state = excluded.state
	`

	_, err := s.db.ExecContext(ctx, query,
		u.ID.String(),
		formatTime(u.Created),
		u.Owner,
		int(u.Role),
		u.Name,
		u.Details,
		int(u.Rank),
		int(u.State),
	)
	if err != nil {
		return fmt.Errorf("writing user: %w", err)
	}

	s.logger.Debug("wrote user", "id", u.ID, "role", u.Role, "state", u.State)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT created_at, owner, role, name, details, rank, state
		FROM users
		WHERE id = ?
	`

	u := User{ID: id}
	var createdAt string
	var role, rank, state int

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&createdAt,
		&u.Owner,
		&role,
		&u.Name,
		&u.Details,
		&rank,
		&state,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.Created, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	u.Role = Role(role)
	u.Rank = Rank(rank)
	u.State = State(state)

	return &u, nil
}

// PutAdSpace writes the full ad space record, replacing any existing row.
func (s *SQLiteStore) PutAdSpace(ctx context.Context, a *AdSpace) error {
	categories, err := encodeCategories(a.Categories)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO adspaces (id, created_at, owner, name, url, details, categories, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			owner = excluded.owner,
			name = excluded.name,
			url = excluded.url,
			details = excluded.details,
			categories = excluded.categories,
			state = excluded.state
	`

	_, err = s.db.ExecContext(ctx, query,
		a.ID.String(),
		formatTime(a.Created),
		a.Owner.String(),
		a.Name,
		a.URL,
		a.Details,
		categories,
		int(a.State),
	)
	if err != nil {
		return fmt.Errorf("writing adspace: %w", err)
	}

	s.logger.Debug("wrote adspace", "id", a.ID, "owner", a.Owner, "state", a.State)
	return nil
}

// GetAdSpace retrieves an ad space by ID.
// Returns ErrNotFound if the ad space doesn't exist.
func (s *SQLiteStore) GetAdSpace(ctx context.Context, id uuid.UUID) (*AdSpace, error) {
	query := `
		SELECT created_at, owner, name, url, details, categories, state
		FROM adspaces
		WHERE id = ?
	`

	a := AdSpace{ID: id}
	var createdAt, owner, categories string
	var state int

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&createdAt,
		&owner,
		&a.Name,
		&a.URL,
		&a.Details,
		&categories,
		&state,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying adspace: %w", err)
	}

	if a.Created, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.Owner, err = parseUUID(owner); err != nil {
		return nil, fmt.Errorf("parsing owner: %w", err)
	}
	if a.Categories, err = decodeCategories(categories); err != nil {
		return nil, err
	}
	a.State = State(state)

	return &a, nil
}

// PutOffer writes the full offer record, replacing any existing row.
func (s *SQLiteStore) PutOffer(ctx context.Context, o *Offer) error {
	categories, err := encodeCategories(o.Categories)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO offers (id, created_at, owner, name, hit_price, action_price, details, categories, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			owner = excluded.owner,
			name = excluded.name,
			hit_price = excluded.hit_price,
			action_price = excluded.action_price,
			details = excluded.details,
			categories = excluded.categories,
			state = excluded.state
	`

	_, err = s.db.ExecContext(ctx, query,
		o.ID.String(),
		formatTime(o.Created),
		o.Owner.String(),
		o.Name,
		toDB(o.HitPrice),
		toDB(o.ActionPrice),
		o.Details,
		categories,
		int(o.State),
	)
	if err != nil {
		return fmt.Errorf("writing offer: %w", err)
	}

	s.logger.Debug("wrote offer", "id", o.ID, "owner", o.Owner, "state", o.State)
	return nil
}

// GetOffer retrieves an offer by ID.
// Returns ErrNotFound if the offer doesn't exist.
func (s *SQLiteStore) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	query := `
		SELECT created_at, owner, name, hit_price, action_price, details, categories, state
		FROM offers
		WHERE id = ?
	`

	o := Offer{ID: id}
	var createdAt, owner, categories string
	var hitPrice, actionPrice int64
	var state int

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&createdAt,
		&owner,
		&o.Name,
		&hitPrice,
		&actionPrice,
		&o.Details,
		&categories,
		&state,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying offer: %w", err)
	}

	if o.Created, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if o.Owner, err = parseUUID(owner); err != nil {
		return nil, fmt.Errorf("parsing owner: %w", err)
	}
	if o.Categories, err = decodeCategories(categories); err != nil {
		return nil, err
	}
	o.HitPrice = fromDB(hitPrice)
	o.ActionPrice = fromDB(actionPrice)
	o.State = State(state)

	return &o, nil
}

// PutHit writes the full hit record, replacing any existing row.
func (s *SQLiteStore) PutHit(ctx context.Context, h *Hit) error {
	categories, err := encodeCategories(h.Categories)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO hits (id, created_at, hit_type, session_id, space_id, offer_id, amount, details, categories, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			hit_type = excluded.hit_type,
			session_id = excluded.session_id,
			space_id = excluded.space_id,
			offer_id = excluded.offer_id,
			amount = excluded.amount,
			details = excluded.details,
			categories = excluded.categories,
			state = excluded.state
	`

	_, err = s.db.ExecContext(ctx, query,
		h.ID.String(),
		formatTime(h.Created),
		int(h.HitType),
		h.Session.String(),
		h.Space.String(),
		h.Offer.String(),
		toDB(h.Amount),
		h.Details,
		categories,
		int(h.State),
	)
	if err != nil {
		return fmt.Errorf("writing hit: %w", err)
	}

	s.logger.Debug("wrote hit", "id", h.ID, "type", h.HitType, "state", h.State)
	return nil
}

// GetHit retrieves a hit by ID.
// Returns ErrNotFound if the hit doesn't exist.
func (s *SQLiteStore) GetHit(ctx context.Context, id uuid.UUID) (*Hit, error) {
	query := `
		SELECT created_at, hit_type, session_id, space_id, offer_id, amount, details, categories, state
		FROM hits
		WHERE id = ?
	`

	h := Hit{ID: id}
	var createdAt, session, space, offer, categories string
	var hitType, state int
	var amount int64

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&createdAt,
		&hitType,
		&session,
		&space,
		&offer,
		&amount,
		&h.Details,
		&categories,
		&state,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying hit: %w", err)
	}

	if h.Created, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if h.Session, err = parseUUID(session); err != nil {
		return nil, fmt.Errorf("parsing session_id: %w", err)
	}
	if h.Space, err = parseUUID(space); err != nil {
		return nil, fmt.Errorf("parsing space_id: %w", err)
	}
	if h.Offer, err = parseUUID(offer); err != nil {
		return nil, fmt.Errorf("parsing offer_id: %w", err)
	}
	if h.Categories, err = decodeCategories(categories); err != nil {
		return nil, err
	}
	h.HitType = HitType(hitType)
	h.Amount = fromDB(amount)
	h.State = State(state)

	return &h, nil
}
