package domain

import "github.com/google/uuid"

// VoucherDraw is the amount consumed from a single voucher entitlement.
type VoucherDraw struct {
	VoucherID uuid.UUID `json:"voucher_id"`
	Amount    int64     `json:"amount"`
}

// AllocationPlan is the exact split of a requested amount across funding
// sources. Transient: computed per redemption, persisted only as part of the
// resulting settlement.
type AllocationPlan struct {
	// VoucherValueUsed is value drawn from restaurant-scoped vouchers.
	VoucherValueUsed int64 `json:"voucher_value_used"`
	// GeneralVoucherDiscount is value drawn from platform-scoped vouchers.
	// Settles against a different entitlement pool than VoucherValueUsed.
	GeneralVoucherDiscount int64 `json:"general_voucher_discount"`
	// PointsUsed is the raw point count debited.
	PointsUsed int64 `json:"points_used"`
	// PointsValue is PointsUsed expressed in minor currency units.
	PointsValue int64 `json:"points_value"`
	// CashFromWallet is value drawn from the customer's stored balance.
	CashFromWallet int64 `json:"cash_from_wallet"`
	// CashUsed is the residual covered by external capture (card or cash at
	// the counter). Must be authorized before commit.
	CashUsed int64 `json:"cash_used"`
	// VoucherDraws records per-voucher consumption, earliest expiry first.
	VoucherDraws []VoucherDraw `json:"voucher_draws,omitempty"`
}

// Total returns the sum of every funding source in minor units.
func (p *AllocationPlan) Total() int64 {
	return p.VoucherValueUsed + p.GeneralVoucherDiscount + p.PointsValue +
		p.CashFromWallet + p.CashUsed
}

// Covers reports whether the plan funds the requested amount exactly.
func (p *AllocationPlan) Covers(amount int64) bool {
	return p.Total() == amount
}
