package ports

import (
	"context"
	"time"

	"eatoff-settlement/internal/core/domain"

	"github.com/google/uuid"
)

// TokenCodec produces and parses the QR transport form of a payment token.
// Every decode failure is a MalformedToken error, never a partial token.
type TokenCodec interface {
	Encode(token *domain.PaymentToken) (string, error)
	Decode(encoded string) (*domain.PaymentToken, error)
}

// TokenValidator decides whether a decoded token may be consumed right now.
// The settlement store is the source of truth for "already consumed"; the
// nonce cache is a fast-path optimization only.
type TokenValidator interface {
	Validate(ctx context.Context, token *domain.PaymentToken, now time.Time) error
}

// TokenService issues signed payment tokens for customers.
type TokenService interface {
	Issue(ctx context.Context, req IssueTokenRequest) (*IssuedToken, error)
}

// IssueTokenRequest holds validated input for token issuance.
type IssueTokenRequest struct {
	CustomerID       uuid.UUID
	RestaurantID     uuid.UUID
	Amount           int64
	Method           domain.PaymentMethod
	VoucherID        *uuid.UUID
	GeneralVoucherID *uuid.UUID
}

// IssuedToken pairs a token with its QR transport string.
type IssuedToken struct {
	Token     *domain.PaymentToken
	QRPayload string
	ExpiresAt time.Time
}

// Allocator turns a requested amount plus a chosen primary method into an
// exact allocation plan without overdrawing any source. Pure: only the
// settlement writer's commit mutates balances.
type Allocator interface {
	Plan(req AllocationRequest) (*domain.AllocationPlan, error)
}

// AllocationRequest is the allocator's input.
type AllocationRequest struct {
	Amount         int64
	Method         domain.PaymentMethod
	RestaurantID   uuid.UUID
	Snapshot       domain.BalanceSnapshot
	AuthorizedCash int64 // externally pre-captured residual, in minor units
	// WalletFallback lets voucher and points remainders fall through to the
	// stored wallet balance. Without it, uncovered remainders must be
	// externally authorized or the plan fails.
	WalletFallback bool
	PinnedVoucher  *uuid.UUID
	PinnedGeneral  *uuid.UUID
	Now            time.Time
}

// CommissionEngine computes the platform's cut of a gross amount. Pure and
// safe to call any number of times; reused by reporting aggregation.
type CommissionEngine interface {
	Compute(grossAmount int64, restaurant *domain.Restaurant) domain.CommissionResult
}

// SettlementService is the redemption entry point: decode, validate,
// allocate, compute commission, and commit atomically.
type SettlementService interface {
	Redeem(ctx context.Context, req RedeemRequest) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, id uuid.UUID) (*domain.Settlement, error)
	ListSettlements(ctx context.Context, params SettlementListParams) ([]domain.Settlement, int64, error)
	GetStats(ctx context.Context, restaurantID uuid.UUID, periodStart *int64) (*SettlementStats, error)
}

// RedeemRequest holds validated input for a QR redemption.
type RedeemRequest struct {
	RestaurantID   uuid.UUID
	QRPayload      string
	AuthorizedCash int64
	WalletFallback bool
	VerifiedBy     *string
}

// NonceCache is the fast-path replay check over consumed nonces. Best-effort:
// the settlement store's unique constraint is the final arbiter.
type NonceCache interface {
	// IsConsumed reports whether the nonce was already marked consumed.
	IsConsumed(ctx context.Context, nonce string) (bool, error)
	// MarkConsumed records the nonce after a successful commit.
	MarkConsumed(ctx context.Context, nonce string, ttl time.Duration) error
}
