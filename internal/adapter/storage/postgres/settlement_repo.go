package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SettlementRepo implements ports.SettlementRepository. The settlements
// table carries UNIQUE(nonce); that constraint, not application checks, is
// what guarantees single settlement per token.
type SettlementRepo struct {
	pool Pool
}

// NewSettlementRepo creates a new SettlementRepo.
func NewSettlementRepo(pool Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

const settlementColumns = `id, nonce, customer_id, restaurant_id, gross_amount, method,
		voucher_value_used, general_voucher_discount, points_used, points_value,
		cash_from_wallet, cash_used, voucher_draws,
		commission_rate_bp, commission_amount, net_restaurant_amount,
		status, verified_by, created_at, settled_at`

// Create inserts a settlement within a database transaction. A nonce
// collision surfaces as ports.ErrDuplicateNonce so the caller can return the
// already-settled row instead of erroring.
func (r *SettlementRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Settlement) error {
	draws, err := json.Marshal(s.Allocation.VoucherDraws)
	if err != nil {
		return fmt.Errorf("marshal voucher draws: %w", err)
	}

	query := `INSERT INTO settlements (` + settlementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = tx.Exec(ctx, query,
		s.ID, s.Nonce, s.CustomerID, s.RestaurantID, s.GrossAmount, s.Method,
		s.Allocation.VoucherValueUsed, s.Allocation.GeneralVoucherDiscount,
		s.Allocation.PointsUsed, s.Allocation.PointsValue,
		s.Allocation.CashFromWallet, s.Allocation.CashUsed, draws,
		s.Commission.RateBasisPoints, s.Commission.CommissionAmount, s.Commission.NetRestaurantAmount,
		s.Status, s.VerifiedBy, s.CreatedAt, s.SettledAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("nonce %s: %w", s.Nonce, ports.ErrDuplicateNonce)
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// GetByID fetches a settlement by UUID.
func (r *SettlementRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1`
	return scanSettlement(r.pool.QueryRow(ctx, query, id))
}

// GetByNonce fetches a settlement by its token nonce.
func (r *SettlementRepo) GetByNonce(ctx context.Context, nonce string) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE nonce = $1`
	return scanSettlement(r.pool.QueryRow(ctx, query, nonce))
}

// List fetches a restaurant's settlements with filtering and pagination.
func (r *SettlementRepo) List(ctx context.Context, params ports.SettlementListParams) ([]domain.Settlement, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("restaurant_id = $%d", argIdx))
	args = append(args, params.RestaurantID)
	argIdx++

	if params.Method != nil {
		conditions = append(conditions, fmt.Sprintf("method = $%d", argIdx))
		args = append(args, *params.Method)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM settlements %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count settlements: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM settlements %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		settlementColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		s, err := scanSettlementValues(rows)
		if err != nil {
			return nil, 0, err
		}
		settlements = append(settlements, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate settlement rows: %w", err)
	}
	return settlements, total, nil
}

// GetStats retrieves aggregated settlement figures for a restaurant.
func (r *SettlementRepo) GetStats(ctx context.Context, restaurantID uuid.UUID, periodStart *int64) (*ports.SettlementStats, error) {
	var args []any
	argIdx := 1

	condition := fmt.Sprintf("restaurant_id = $%d", argIdx)
	args = append(args, restaurantID)
	argIdx++

	if periodStart != nil {
		condition += fmt.Sprintf(" AND created_at >= to_timestamp($%d)", argIdx)
		args = append(args, *periodStart)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COALESCE(SUM(gross_amount), 0) AS gross,
		COALESCE(SUM(commission_amount), 0) AS commission,
		COALESCE(SUM(net_restaurant_amount), 0) AS net,
		COALESCE(SUM(voucher_value_used + general_voucher_discount), 0) AS voucher_value,
		COALESCE(SUM(points_value), 0) AS points_value,
		COALESCE(SUM(cash_from_wallet), 0) AS wallet_value,
		COALESCE(SUM(cash_used), 0) AS external_value
		FROM settlements WHERE %s`, condition)

	stats := &ports.SettlementStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalSettlements, &stats.GrossAmount, &stats.CommissionAmount, &stats.NetAmount,
		&stats.VoucherValue, &stats.PointsValue, &stats.WalletValue, &stats.ExternalValue,
	)
	if err != nil {
		return nil, fmt.Errorf("get settlement stats: %w", err)
	}
	return stats, nil
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	s, err := scanSettlementValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSettlementValues(row pgx.Row) (*domain.Settlement, error) {
	s := &domain.Settlement{}
	var draws []byte
	err := row.Scan(
		&s.ID, &s.Nonce, &s.CustomerID, &s.RestaurantID, &s.GrossAmount, &s.Method,
		&s.Allocation.VoucherValueUsed, &s.Allocation.GeneralVoucherDiscount,
		&s.Allocation.PointsUsed, &s.Allocation.PointsValue,
		&s.Allocation.CashFromWallet, &s.Allocation.CashUsed, &draws,
		&s.Commission.RateBasisPoints, &s.Commission.CommissionAmount, &s.Commission.NetRestaurantAmount,
		&s.Status, &s.VerifiedBy, &s.CreatedAt, &s.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan settlement: %w", err)
	}
	if len(draws) > 0 {
		if err := json.Unmarshal(draws, &s.Allocation.VoucherDraws); err != nil {
			return nil, fmt.Errorf("unmarshal voucher draws: %w", err)
		}
	}
	return s, nil
}
