package ports

import (
	"context"
	"errors"

	"eatoff-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Storage sentinels. Repositories wrap these so services can branch on the
// condition without knowing the backing store.
var (
	// ErrInsufficientBalance is returned by debit operations that would
	// overdraw a source. The store is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDuplicateNonce is returned by SettlementRepository.Create when the
	// nonce already has a committed settlement.
	ErrDuplicateNonce = errors.New("settlement nonce already exists")
)

// CustomerRepository exposes the customer fields the settlement core needs.
type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
}

// RestaurantRepository supplies restaurant configuration, read-only from this
// subsystem's perspective.
type RestaurantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error)
}

// WalletRepository defines persistence operations for customer cash balances.
// Methods accepting pgx.Tx run inside the settlement commit for pessimistic
// locking; Debit is only ever invoked from a committed allocation plan.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error)
	GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.Wallet, error)
	// Debit subtracts amount from the wallet, failing without mutation when
	// the balance cannot cover it.
	Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error
}

// LoyaltyRepository defines persistence operations for loyalty point
// balances. Same locking contract as WalletRepository.
type LoyaltyRepository interface {
	Create(ctx context.Context, account *domain.LoyaltyAccount) error
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.LoyaltyAccount, error)
	GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.LoyaltyAccount, error)
	DebitPoints(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, points int64) error
}

// VoucherRepository defines persistence operations for voucher entitlements.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *domain.VoucherEntitlement) error
	// ListUsable returns active, unexpired vouchers spendable at the given
	// restaurant (restaurant-scoped plus general), earliest expiry first.
	ListUsable(ctx context.Context, customerID, restaurantID uuid.UUID) ([]domain.VoucherEntitlement, error)
	// ListUsableForUpdate is ListUsable with row locks, for use inside the
	// settlement commit.
	ListUsableForUpdate(ctx context.Context, tx pgx.Tx, customerID, restaurantID uuid.UUID) ([]domain.VoucherEntitlement, error)
	// Debit subtracts amount from the voucher's remaining value, marking it
	// depleted when it reaches zero. Fails without mutation on underflow.
	Debit(ctx context.Context, tx pgx.Tx, voucherID uuid.UUID, amount int64) error
}

// SettlementRepository defines persistence for settlement records. The store
// enforces UNIQUE(nonce); Create surfaces a nonce collision as
// domain-recognizable so callers can fall back to the already-settled row.
type SettlementRepository interface {
	Create(ctx context.Context, tx pgx.Tx, settlement *domain.Settlement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error)
	GetByNonce(ctx context.Context, nonce string) (*domain.Settlement, error)
	List(ctx context.Context, params SettlementListParams) ([]domain.Settlement, int64, error)
	GetStats(ctx context.Context, restaurantID uuid.UUID, periodStart *int64) (*SettlementStats, error)
}

// SettlementListParams holds filter + pagination for listing settlements.
type SettlementListParams struct {
	RestaurantID uuid.UUID
	Method       *domain.PaymentMethod
	From         *int64 // Unix timestamp
	To           *int64 // Unix timestamp
	Page         int
	PageSize     int
}

// SettlementStats holds aggregated settlement figures for a restaurant.
type SettlementStats struct {
	TotalSettlements int64
	GrossAmount      int64
	CommissionAmount int64
	NetAmount        int64
	VoucherValue     int64
	PointsValue      int64
	WalletValue      int64
	ExternalValue    int64
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
