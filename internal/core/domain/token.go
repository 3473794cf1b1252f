package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the primary source the payer selected for a redemption.
type PaymentMethod string

const (
	PaymentMethodWallet  PaymentMethod = "wallet"
	PaymentMethodVoucher PaymentMethod = "voucher"
	PaymentMethodPoints  PaymentMethod = "points"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodWallet, PaymentMethodVoucher, PaymentMethodPoints:
		return true
	}
	return false
}

// TokenExpiryWindow is how long a payment token stays redeemable after issue.
const TokenExpiryWindow = 5 * time.Minute

// PaymentToken is a self-describing, single-use payment request carried in a
// QR payload. Immutable once issued; consumed exactly once by settlement.
type PaymentToken struct {
	CustomerID       uuid.UUID     `json:"customer_id"`
	CustomerName     string        `json:"customer_name"`
	RestaurantID     uuid.UUID     `json:"restaurant_id"`
	RestaurantName   string        `json:"restaurant_name"`
	Amount           int64         `json:"amount"` // minor currency units
	Method           PaymentMethod `json:"method"`
	VoucherID        *uuid.UUID    `json:"voucher_id,omitempty"`
	GeneralVoucherID *uuid.UUID    `json:"general_voucher_id,omitempty"`
	IssuedAt         time.Time     `json:"issued_at"`
	Nonce            string        `json:"nonce"`
}

// ExpiresAt returns the instant the token becomes permanently invalid.
func (t *PaymentToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(TokenExpiryWindow)
}

// IsExpired reports whether the token is past its expiry window at now.
func (t *PaymentToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt())
}
