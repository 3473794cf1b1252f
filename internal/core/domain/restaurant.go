package domain

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is the commission-relevant slice of restaurant configuration.
// Read-only from the settlement subsystem's perspective.
type Restaurant struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	CommissionRateBasis *int64    `json:"commission_rate_basis,omitempty"` // nil = platform default
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// EffectiveCommissionRate returns the restaurant's configured rate in basis
// points, falling back to the platform default when unset.
func (r *Restaurant) EffectiveCommissionRate() int64 {
	if r != nil && r.CommissionRateBasis != nil {
		return *r.CommissionRateBasis
	}
	return DefaultCommissionRateBasisPoints
}
