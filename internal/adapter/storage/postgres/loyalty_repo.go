package postgres

import (
	"context"
	"errors"
	"fmt"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LoyaltyRepo implements ports.LoyaltyRepository.
type LoyaltyRepo struct {
	pool Pool
}

// NewLoyaltyRepo creates a new LoyaltyRepo.
func NewLoyaltyRepo(pool Pool) *LoyaltyRepo {
	return &LoyaltyRepo{pool: pool}
}

// Create inserts a new loyalty account.
func (r *LoyaltyRepo) Create(ctx context.Context, a *domain.LoyaltyAccount) error {
	query := `INSERT INTO loyalty_accounts (id, customer_id, points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, a.ID, a.CustomerID, a.Points, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert loyalty account: %w", err)
	}
	return nil
}

// GetByCustomerID fetches a customer's loyalty account (non-locking read).
func (r *LoyaltyRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.LoyaltyAccount, error) {
	query := `SELECT id, customer_id, points, created_at, updated_at
		FROM loyalty_accounts WHERE customer_id = $1`

	return scanLoyalty(r.pool.QueryRow(ctx, query, customerID))
}

// GetByCustomerIDForUpdate fetches a customer's loyalty account with
// pessimistic locking. This MUST be called within a transaction.
func (r *LoyaltyRepo) GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.LoyaltyAccount, error) {
	query := `SELECT id, customer_id, points, created_at, updated_at
		FROM loyalty_accounts WHERE customer_id = $1 FOR UPDATE`

	return scanLoyalty(tx.QueryRow(ctx, query, customerID))
}

// DebitPoints subtracts points within a transaction, failing without
// mutation on underflow.
func (r *LoyaltyRepo) DebitPoints(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, points int64) error {
	query := `UPDATE loyalty_accounts SET points = points - $1, updated_at = NOW()
		WHERE id = $2 AND points >= $1`

	tag, err := tx.Exec(ctx, query, points, accountID)
	if err != nil {
		return fmt.Errorf("debit loyalty points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("loyalty account %s: %w", accountID, ports.ErrInsufficientBalance)
	}
	return nil
}

func scanLoyalty(row pgx.Row) (*domain.LoyaltyAccount, error) {
	a := &domain.LoyaltyAccount{}
	err := row.Scan(&a.ID, &a.CustomerID, &a.Points, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan loyalty account: %w", err)
	}
	return a, nil
}
