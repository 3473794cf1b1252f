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

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, customer_id, currency, balance_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.CustomerID, w.Currency, w.BalanceCents, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByCustomerID fetches a customer's wallet (non-locking read).
func (r *WalletRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, customer_id, currency, balance_cents, created_at, updated_at
		FROM wallets WHERE customer_id = $1`

	return scanWallet(r.pool.QueryRow(ctx, query, customerID))
}

// GetByCustomerIDForUpdate fetches a customer's wallet with pessimistic
// locking. This MUST be called within a transaction.
func (r *WalletRepo) GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, customer_id, currency, balance_cents, created_at, updated_at
		FROM wallets WHERE customer_id = $1 FOR UPDATE`

	return scanWallet(tx.QueryRow(ctx, query, customerID))
}

// Debit subtracts amount from the wallet balance within a transaction. The
// guard in the WHERE clause makes underflow impossible regardless of what
// the caller read before locking.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	query := `UPDATE wallets SET balance_cents = balance_cents - $1, updated_at = NOW()
		WHERE id = $2 AND balance_cents >= $1`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s: %w", walletID, ports.ErrInsufficientBalance)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.CustomerID, &w.Currency, &w.BalanceCents, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
