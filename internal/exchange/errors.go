// ABOUTME: Error taxonomy for exchange operations
// ABOUTME: All are validation failures; a failed call applies nothing

package exchange

import "errors"

var (
	// ErrDuplicateID is returned when a create targets an id that already exists.
	ErrDuplicateID = errors.New("id already exists")

	// ErrNotFound is returned when an update, coefficient call or read targets
	// an absent id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned for illegal lifecycle transitions, such as
	// settling a hit that is absent, rejected or already finished.
	ErrInvalidState = errors.New("invalid state")

	// ErrKindMismatch is returned when an update is addressed to the wrong
	// user role or hit type, e.g. UpdatePublisher on an advertiser.
	ErrKindMismatch = errors.New("kind mismatch")

	// ErrCoefficientIndex is returned for a coefficient index outside the
	// stored vector.
	ErrCoefficientIndex = errors.New("coefficient index out of range")
)
