// ABOUTME: Coefficient vector operations for all four entity kinds
// ABOUTME: Writes require authorization; both reads and writes require the entity to exist

package exchange

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

// SetCoeffs replaces the coefficient vector of the kind/id entity.
func (x *Exchange) SetCoeffs(ctx context.Context, kind store.Kind, id uuid.UUID, values []int64) error {
	if err := x.gate.Authorize(ctx); err != nil {
		return err
	}
	if err := x.requireExists(ctx, kind, id); err != nil {
		return err
	}
	if err := x.coeffs.SetCoefficients(ctx, kind, id, slices.Clone(values)); err != nil {
		return fmt.Errorf("setting %s %s coefficients: %w", kind, id, err)
	}

	x.logger.Debug("coefficients set", "kind", kind, "id", id, "len", len(values))
	return nil
}

// Coeff returns one coefficient of the kind/id entity.
func (x *Exchange) Coeff(ctx context.Context, kind store.Kind, id uuid.UUID, index int) (int64, error) {
	if err := x.requireExists(ctx, kind, id); err != nil {
		return 0, err
	}
	values, err := x.coeffs.Coefficients(ctx, kind, id)
	if err != nil {
		return 0, fmt.Errorf("reading %s %s coefficients: %w", kind, id, err)
	}
	if index < 0 || index >= len(values) {
		return 0, fmt.Errorf("%w: %d of %d", ErrCoefficientIndex, index, len(values))
	}
	return values[index], nil
}

// SetUserCoeffs replaces a user's coefficient vector.
func (x *Exchange) SetUserCoeffs(ctx context.Context, id uuid.UUID, values []int64) error {
	return x.SetCoeffs(ctx, store.KindUser, id, values)
}

// GetUserCoeff returns one of a user's coefficients.
func (x *Exchange) GetUserCoeff(ctx context.Context, id uuid.UUID, index int) (int64, error) {
	return x.Coeff(ctx, store.KindUser, id, index)
}

// SetAdSpaceCoeffs replaces an ad space's coefficient vector.
func (x *Exchange) SetAdSpaceCoeffs(ctx context.Context, id uuid.UUID, values []int64) error {
	return x.SetCoeffs(ctx, store.KindAdSpace, id, values)
}

// GetAdSpaceCoeff returns one of an ad space's coefficients.
func (x *Exchange) GetAdSpaceCoeff(ctx context.Context, id uuid.UUID, index int) (int64, error) {
	return x.Coeff(ctx, store.KindAdSpace, id, index)
}

// SetOfferCoeffs replaces an offer's coefficient vector.
func (x *Exchange) SetOfferCoeffs(ctx context.Context, id uuid.UUID, values []int64) error {
	return x.SetCoeffs(ctx, store.KindOffer, id, values)
}

// GetOfferCoeff returns one of an offer's coefficients.
func (x *Exchange) GetOfferCoeff(ctx context.Context, id uuid.UUID, index int) (int64, error) {
	return x.Coeff(ctx, store.KindOffer, id, index)
}

// SetHitCoeffs replaces a hit's coefficient vector.
func (x *Exchange) SetHitCoeffs(ctx context.Context, id uuid.UUID, values []int64) error {
	return x.SetCoeffs(ctx, store.KindHit, id, values)
}

// GetHitCoeff returns one of a hit's coefficients.
func (x *Exchange) GetHitCoeff(ctx context.Context, id uuid.UUID, index int) (int64, error) {
	return x.Coeff(ctx, store.KindHit, id, index)
}

func (x *Exchange) requireExists(ctx context.Context, kind store.Kind, id uuid.UUID) error {
	var state store.State
	switch kind {
	case store.KindUser:
		u, err := x.ledger.GetUser(ctx, id)
		if err != nil {
			return err
		}
		state = u.State
	case store.KindAdSpace:
		a, err := x.ledger.GetAdSpace(ctx, id)
		if err != nil {
			return err
		}
		state = a.State
	case store.KindOffer:
		o, err := x.ledger.GetOffer(ctx, id)
		if err != nil {
			return err
		}
		state = o.State
	case store.KindHit:
		h, err := x.ledger.GetHit(ctx, id)
		if err != nil {
			return err
		}
		state = h.State
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	return mustExist(kind, id, state)
}
