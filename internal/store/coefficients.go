// ABOUTME: Coefficient vector storage keyed by entity kind and id
// ABOUTME: Vectors are replaced whole; reads return an empty slice when unset

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SetCoefficients replaces the coefficient vector for (kind, id).
func (s *SQLiteStore) SetCoefficients(ctx context.Context, kind Kind, id uuid.UUID, values []int64) error {
	if values == nil {
		values = []int64{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling coefficients: %w", err)
	}

	query := `
		INSERT INTO coefficients (kind, entity_id, vals, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, entity_id) DO UPDATE SET vals = excluded.vals, updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		string(kind),
		id.String(),
		string(data),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("writing coefficients: %w", err)
	}

	s.logger.Debug("set coefficients", "kind", kind, "id", id, "len", len(values))
	return nil
}

// Coefficients returns the vector for (kind, id). Returns an empty slice
// (not nil) if no vector was ever set.
func (s *SQLiteStore) Coefficients(ctx context.Context, kind Kind, id uuid.UUID) ([]int64, error) {
	query := `SELECT vals FROM coefficients WHERE kind = ? AND entity_id = ?`

	var data string
	err := s.db.QueryRowContext(ctx, query, string(kind), id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying coefficients: %w", err)
	}

	var values []int64
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshaling coefficients: %w", err)
	}
	if values == nil {
		values = []int64{}
	}
	return values, nil
}
