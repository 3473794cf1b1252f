package postgres

import (
	"context"
	"fmt"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VoucherRepo implements ports.VoucherRepository.
type VoucherRepo struct {
	pool Pool
}

// NewVoucherRepo creates a new VoucherRepo.
func NewVoucherRepo(pool Pool) *VoucherRepo {
	return &VoucherRepo{pool: pool}
}

const voucherColumns = `id, customer_id, restaurant_scope, remaining_cents, voucher_type,
		bonus_basis_points, status, expires_at, created_at, updated_at`

// Create inserts a new voucher entitlement.
func (r *VoucherRepo) Create(ctx context.Context, v *domain.VoucherEntitlement) error {
	query := `INSERT INTO voucher_entitlements (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.CustomerID, v.RestaurantScope, v.RemainingCents, v.VoucherType,
		v.BonusBasisPts, v.Status, v.ExpiresAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// ListUsable returns active, unexpired vouchers spendable at the restaurant:
// restaurant-scoped plus general, earliest expiry first.
func (r *VoucherRepo) ListUsable(ctx context.Context, customerID, restaurantID uuid.UUID) ([]domain.VoucherEntitlement, error) {
	query := `SELECT ` + voucherColumns + ` FROM voucher_entitlements
		WHERE customer_id = $1 AND status = 'active' AND remaining_cents > 0
		AND expires_at > NOW()
		AND (restaurant_scope IS NULL OR restaurant_scope = $2)
		ORDER BY expires_at ASC`

	rows, err := r.pool.Query(ctx, query, customerID, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list usable vouchers: %w", err)
	}
	return collectVouchers(rows)
}

// ListUsableForUpdate is ListUsable with row locks. This MUST be called
// within a transaction; it serializes concurrent redemptions that touch the
// same entitlements.
func (r *VoucherRepo) ListUsableForUpdate(ctx context.Context, tx pgx.Tx, customerID, restaurantID uuid.UUID) ([]domain.VoucherEntitlement, error) {
	query := `SELECT ` + voucherColumns + ` FROM voucher_entitlements
		WHERE customer_id = $1 AND status = 'active' AND remaining_cents > 0
		AND expires_at > NOW()
		AND (restaurant_scope IS NULL OR restaurant_scope = $2)
		ORDER BY expires_at ASC
		FOR UPDATE`

	rows, err := tx.Query(ctx, query, customerID, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("lock usable vouchers: %w", err)
	}
	return collectVouchers(rows)
}

// Debit subtracts amount from the voucher's remaining value, marking the
// entitlement depleted when it hits zero. Fails without mutation on
// underflow.
func (r *VoucherRepo) Debit(ctx context.Context, tx pgx.Tx, voucherID uuid.UUID, amount int64) error {
	query := `UPDATE voucher_entitlements
		SET remaining_cents = remaining_cents - $1,
			status = CASE WHEN remaining_cents - $1 = 0 THEN 'depleted' ELSE status END,
			updated_at = NOW()
		WHERE id = $2 AND status = 'active' AND remaining_cents >= $1`

	tag, err := tx.Exec(ctx, query, amount, voucherID)
	if err != nil {
		return fmt.Errorf("debit voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("voucher %s: %w", voucherID, ports.ErrInsufficientBalance)
	}
	return nil
}

func collectVouchers(rows pgx.Rows) ([]domain.VoucherEntitlement, error) {
	defer rows.Close()

	var vouchers []domain.VoucherEntitlement
	for rows.Next() {
		v := domain.VoucherEntitlement{}
		err := rows.Scan(
			&v.ID, &v.CustomerID, &v.RestaurantScope, &v.RemainingCents, &v.VoucherType,
			&v.BonusBasisPts, &v.Status, &v.ExpiresAt, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan voucher row: %w", err)
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}
	return vouchers, nil
}
