package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a customer's stored cash balance in minor currency units.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoyaltyAccount holds a customer's loyalty point balance. Points convert to
// currency at the fixed PointsPerCurrencyUnit rate, never per restaurant.
type LoyaltyAccount struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Points     int64     `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PointsPerCurrencyUnit is the fixed global conversion rate: 100 points equal
// one whole unit of currency (so one point is worth one minor unit).
const PointsPerCurrencyUnit = 100

// PointsValueCents converts a point count to its monetary value in minor
// units, truncating so fractional value stays with the customer.
func PointsValueCents(points int64) int64 {
	return points * 100 / PointsPerCurrencyUnit
}

// PointsForCents converts a minor-unit amount to the points required to cover
// it, truncating so the customer is never charged more points than the amount
// is worth.
func PointsForCents(cents int64) int64 {
	return cents * PointsPerCurrencyUnit / 100
}

// BalanceSnapshot is a customer's spendable funds at a single instant. Read
// under lock by the settlement writer; mutated only through a committed plan.
type BalanceSnapshot struct {
	Wallet   *Wallet
	Loyalty  *LoyaltyAccount
	Vouchers []VoucherEntitlement
}
