// ABOUTME: Owner set persistence for the access gate
// ABOUTME: Owners are caller identities allowed to invoke mutating operations

package store

import (
	"context"
	"fmt"
	"time"
)

// AddOwner adds a caller to the owner set. This operation is idempotent -
// adding an existing owner succeeds silently.
func (s *SQLiteStore) AddOwner(ctx context.Context, caller string) error {
	query := `
		INSERT OR IGNORE INTO owners (caller, created_at)
		VALUES (?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, caller, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("adding owner: %w", err)
	}

	s.logger.Debug("added owner", "caller", caller)
	return nil
}

// RemoveOwner removes a caller from the owner set. This operation is
// idempotent - removing a non-member succeeds silently.
func (s *SQLiteStore) RemoveOwner(ctx context.Context, caller string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM owners WHERE caller = ?`, caller)
	if err != nil {
		return fmt.Errorf("removing owner: %w", err)
	}

	s.logger.Debug("removed owner", "caller", caller)
	return nil
}

// ListOwners returns every owner ordered by caller. Returns an empty slice
// if the set is empty.
func (s *SQLiteStore) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT caller FROM owners ORDER BY caller`)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var caller string
		if err := rows.Scan(&caller); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		owners = append(owners, caller)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owners: %w", err)
	}

	return owners, nil
}
