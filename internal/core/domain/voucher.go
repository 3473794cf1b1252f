package domain

import (
	"time"

	"github.com/google/uuid"
)

// VoucherType distinguishes how a voucher's value was funded at purchase.
type VoucherType string

const (
	// VoucherTypeImmediate is paid in full at purchase time.
	VoucherTypeImmediate VoucherType = "immediate"
	// VoucherTypePayLater is charged after redemption and carries bonus value
	// minted at purchase. At settlement both types redeem identically.
	VoucherTypePayLater VoucherType = "pay_later"
)

// VoucherStatus is the lifecycle state of a voucher entitlement.
type VoucherStatus string

const (
	VoucherStatusActive    VoucherStatus = "active"
	VoucherStatusDepleted  VoucherStatus = "depleted"
	VoucherStatusExpired   VoucherStatus = "expired"
	VoucherStatusCancelled VoucherStatus = "cancelled"
)

// VoucherEntitlement is remaining spendable voucher value owned by a
// customer. RestaurantScope nil means the voucher is platform-scoped and
// spendable anywhere.
type VoucherEntitlement struct {
	ID              uuid.UUID     `json:"id"`
	CustomerID      uuid.UUID     `json:"customer_id"`
	RestaurantScope *uuid.UUID    `json:"restaurant_scope,omitempty"`
	RemainingCents  int64         `json:"remaining_cents"`
	VoucherType     VoucherType   `json:"voucher_type"`
	BonusBasisPts   int64         `json:"bonus_basis_points"`
	Status          VoucherStatus `json:"status"`
	ExpiresAt       time.Time     `json:"expires_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsGeneral reports whether the voucher is platform-scoped.
func (v *VoucherEntitlement) IsGeneral() bool {
	return v.RestaurantScope == nil
}

// UsableAt reports whether the voucher can fund a payment at the given
// restaurant right now.
func (v *VoucherEntitlement) UsableAt(restaurantID uuid.UUID, now time.Time) bool {
	if v.Status != VoucherStatusActive || v.RemainingCents <= 0 {
		return false
	}
	if now.After(v.ExpiresAt) {
		return false
	}
	return v.RestaurantScope == nil || *v.RestaurantScope == restaurantID
}
