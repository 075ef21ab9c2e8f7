// ABOUTME: Outbox of domain events for off-ledger observers
// ABOUTME: Events get a monotonically increasing sequence number on append

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AppendEvent persists an event and sets e.Seq to its assigned sequence
// number. Generates ID if not set.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e *EventRecord) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `
		INSERT INTO events (event_id, type, entity_id, owner, offer_id, amount, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		e.ID.String(),
		e.Type,
		e.EntityID.String(),
		e.Owner,
		e.Offer.String(),
		toDB(e.Amount),
		formatTime(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event sequence: %w", err)
	}
	e.Seq = seq

	s.logger.Debug("appended event", "seq", e.Seq, "type", e.Type, "entity_id", e.EntityID)
	return nil
}

// ListEvents returns up to limit events with Seq > afterSeq, oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error) {
	query := `
		SELECT seq, event_id, type, entity_id, owner, offer_id, amount, ts
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, afterSeq, normalizeEventLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var id, entityID, offer, ts string
		var amount int64
		if err := rows.Scan(&e.Seq, &id, &e.Type, &entityID, &e.Owner, &offer, &amount, &ts); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing event_id: %w", err)
		}
		if e.EntityID, err = parseUUID(entityID); err != nil {
			return nil, fmt.Errorf("parsing entity_id: %w", err)
		}
		if e.Offer, err = parseUUID(offer); err != nil {
			return nil, fmt.Errorf("parsing offer_id: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing ts: %w", err)
		}
		e.Amount = fromDB(amount)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}
