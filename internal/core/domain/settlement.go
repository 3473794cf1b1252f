package domain

import (
	"time"

	"github.com/google/uuid"
)

// SettlementStatus is the lifecycle state of a settlement record.
type SettlementStatus string

const (
	// SettlementStatusPending exists only inside the atomic commit unit and
	// is never observable through any read path.
	SettlementStatusPending SettlementStatus = "PENDING"
	SettlementStatusSettled SettlementStatus = "SETTLED"
)

// Settlement is the single record produced by one successful redemption. The
// nonce carries a uniqueness constraint in the store: it is the final arbiter
// against double-spend, and replays with a known nonce return this row
// instead of settling again.
type Settlement struct {
	ID           uuid.UUID        `json:"id"`
	Nonce        string           `json:"nonce"`
	CustomerID   uuid.UUID        `json:"customer_id"`
	RestaurantID uuid.UUID        `json:"restaurant_id"`
	GrossAmount  int64            `json:"gross_amount"`
	Method       PaymentMethod    `json:"method"`
	Allocation   AllocationPlan   `json:"allocation"`
	Commission   CommissionResult `json:"commission"`
	Status       SettlementStatus `json:"status"`
	VerifiedBy   *string          `json:"verified_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	SettledAt    *time.Time       `json:"settled_at,omitempty"`
}

// IsSettled reports whether the settlement reached its terminal state.
func (s *Settlement) IsSettled() bool {
	return s.Status == SettlementStatusSettled
}
