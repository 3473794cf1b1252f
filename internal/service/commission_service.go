package service

import (
	"eatoff-settlement/internal/core/domain"
)

// CommissionEngineImpl implements ports.CommissionEngine. It is stateless
// and shared between redemption and reporting paths.
type CommissionEngineImpl struct {
	defaultRateBasisPoints int64
}

// NewCommissionEngine creates a commission engine with the given platform
// default rate in basis points. Zero or negative falls back to the built-in
// platform default.
func NewCommissionEngine(defaultRateBasisPoints int64) *CommissionEngineImpl {
	if defaultRateBasisPoints <= 0 {
		defaultRateBasisPoints = domain.DefaultCommissionRateBasisPoints
	}
	return &CommissionEngineImpl{defaultRateBasisPoints: defaultRateBasisPoints}
}

// Compute resolves the restaurant's rate (configured rate if present, else
// the platform default) and splits the gross amount. The commission is
// rounded half-up to the minor unit; the net is the exact remainder, so
// CommissionAmount + NetRestaurantAmount == grossAmount always holds and
// rounding residue lands on the platform side.
func (e *CommissionEngineImpl) Compute(grossAmount int64, restaurant *domain.Restaurant) domain.CommissionResult {
	rate := e.defaultRateBasisPoints
	if restaurant != nil && restaurant.CommissionRateBasis != nil {
		rate = *restaurant.CommissionRateBasis
	}

	commission := roundHalfUpBasisPoints(grossAmount, rate)
	return domain.CommissionResult{
		RateBasisPoints:     rate,
		CommissionAmount:    commission,
		NetRestaurantAmount: grossAmount - commission,
	}
}

// roundHalfUpBasisPoints computes amount * rate / 10000 rounded half-up.
func roundHalfUpBasisPoints(amount, rateBasisPoints int64) int64 {
	product := amount * rateBasisPoints
	quotient := product / 10000
	if product%10000*2 >= 10000 {
		quotient++
	}
	return quotient
}
