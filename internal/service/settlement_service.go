package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// nonceCacheTTL keeps consumed nonces in the fast-path cache well past the
// token expiry window.
const nonceCacheTTL = 24 * time.Hour

// SettlementServiceImpl implements ports.SettlementService. It is the only
// component that mutates balances: all debits plus the settlement insert run
// in one database transaction keyed by the token nonce.
type SettlementServiceImpl struct {
	codec          ports.TokenCodec
	validator      ports.TokenValidator
	allocator      ports.Allocator
	commission     ports.CommissionEngine
	walletRepo     ports.WalletRepository
	loyaltyRepo    ports.LoyaltyRepository
	voucherRepo    ports.VoucherRepository
	settlementRepo ports.SettlementRepository
	restaurantRepo ports.RestaurantRepository
	nonces         ports.NonceCache
	transactor     ports.DBTransactor
	log            zerolog.Logger
	now            func() time.Time
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	codec ports.TokenCodec,
	validator ports.TokenValidator,
	allocator ports.Allocator,
	commission ports.CommissionEngine,
	walletRepo ports.WalletRepository,
	loyaltyRepo ports.LoyaltyRepository,
	voucherRepo ports.VoucherRepository,
	settlementRepo ports.SettlementRepository,
	restaurantRepo ports.RestaurantRepository,
	nonces ports.NonceCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		codec:          codec,
		validator:      validator,
		allocator:      allocator,
		commission:     commission,
		walletRepo:     walletRepo,
		loyaltyRepo:    loyaltyRepo,
		voucherRepo:    voucherRepo,
		settlementRepo: settlementRepo,
		restaurantRepo: restaurantRepo,
		nonces:         nonces,
		transactor:     transactor,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Redeem converts a scanned QR payload into a committed settlement:
// decode, validate, lock balances, allocate, compute commission, commit.
// Replays with a known nonce return the original settlement.
func (s *SettlementServiceImpl) Redeem(ctx context.Context, req ports.RedeemRequest) (*domain.Settlement, error) {
	token, err := s.codec.Decode(req.QRPayload)
	if err != nil {
		return nil, err
	}
	if token.RestaurantID != req.RestaurantID {
		return nil, apperror.ErrRestaurantMismatch()
	}

	now := s.now()
	if err := s.validator.Validate(ctx, token, now); err != nil {
		return nil, err
	}

	restaurant, err := s.restaurantRepo.GetByID(ctx, token.RestaurantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load restaurant: %w", err))
	}
	if restaurant == nil {
		return nil, apperror.ErrNotFound("restaurant")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	snapshot, err := s.lockSnapshot(ctx, dbTx, token, req.WalletFallback)
	if err != nil {
		return nil, err
	}

	plan, err := s.allocator.Plan(ports.AllocationRequest{
		Amount:         token.Amount,
		Method:         token.Method,
		RestaurantID:   token.RestaurantID,
		Snapshot:       *snapshot,
		AuthorizedCash: req.AuthorizedCash,
		WalletFallback: req.WalletFallback,
		PinnedVoucher:  token.VoucherID,
		PinnedGeneral:  token.GeneralVoucherID,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	commission := s.commission.Compute(token.Amount, restaurant)

	if err := s.applyPlan(ctx, dbTx, snapshot, plan); err != nil {
		return nil, err
	}

	settledAt := now
	settlement := &domain.Settlement{
		ID:           uuid.New(),
		Nonce:        token.Nonce,
		CustomerID:   token.CustomerID,
		RestaurantID: token.RestaurantID,
		GrossAmount:  token.Amount,
		Method:       token.Method,
		Allocation:   *plan,
		Commission:   commission,
		Status:       domain.SettlementStatusSettled,
		VerifiedBy:   req.VerifiedBy,
		CreatedAt:    now,
		SettledAt:    &settledAt,
	}

	if err := s.settlementRepo.Create(ctx, dbTx, settlement); err != nil {
		if errors.Is(err, ports.ErrDuplicateNonce) {
			// A concurrent scan won the race. Roll back our debits and hand
			// back the committed result; the unique constraint is the final
			// arbiter for replays.
			_ = dbTx.Rollback(ctx)
			return s.replaySettled(ctx, token.Nonce)
		}
		return nil, apperror.InternalError(fmt.Errorf("insert settlement: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		if isRetryableTxError(err) {
			return nil, apperror.ErrConflict(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.nonces.MarkConsumed(ctx, token.Nonce, nonceCacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to mark nonce in cache")
	}

	s.log.Info().
		Str("settlement_id", settlement.ID.String()).
		Str("customer_id", token.CustomerID.String()).
		Str("restaurant_id", token.RestaurantID.String()).
		Int64("gross", token.Amount).
		Int64("commission", commission.CommissionAmount).
		Str("method", string(token.Method)).
		Msg("redemption settled")

	return settlement, nil
}

// lockSnapshot reads the customer's balances under row locks, touching only
// the sources the chosen method can draw from so unrelated redemptions for
// the same customer do not serialize needlessly.
func (s *SettlementServiceImpl) lockSnapshot(ctx context.Context, dbTx pgx.Tx, token *domain.PaymentToken, walletFallback bool) (*domain.BalanceSnapshot, error) {
	snapshot := &domain.BalanceSnapshot{}

	if token.Method == domain.PaymentMethodWallet || walletFallback {
		wallet, err := s.walletRepo.GetByCustomerIDForUpdate(ctx, dbTx, token.CustomerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil && token.Method == domain.PaymentMethodWallet {
			return nil, apperror.ErrNotFound("wallet")
		}
		snapshot.Wallet = wallet
	}

	if token.Method == domain.PaymentMethodPoints {
		loyalty, err := s.loyaltyRepo.GetByCustomerIDForUpdate(ctx, dbTx, token.CustomerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock loyalty account: %w", err))
		}
		if loyalty == nil {
			return nil, apperror.ErrNotFound("loyalty account")
		}
		snapshot.Loyalty = loyalty
	}

	if token.Method == domain.PaymentMethodVoucher {
		vouchers, err := s.voucherRepo.ListUsableForUpdate(ctx, dbTx, token.CustomerID, token.RestaurantID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock vouchers: %w", err))
		}
		snapshot.Vouchers = vouchers
	}

	return snapshot, nil
}

// applyPlan executes every debit the plan calls for inside the commit
// transaction. Any failure aborts the whole unit.
func (s *SettlementServiceImpl) applyPlan(ctx context.Context, dbTx pgx.Tx, snapshot *domain.BalanceSnapshot, plan *domain.AllocationPlan) error {
	for _, draw := range plan.VoucherDraws {
		if draw.Amount == 0 {
			continue
		}
		if err := s.voucherRepo.Debit(ctx, dbTx, draw.VoucherID, draw.Amount); err != nil {
			return s.debitError("voucher", err)
		}
	}
	if plan.PointsUsed > 0 {
		if err := s.loyaltyRepo.DebitPoints(ctx, dbTx, snapshot.Loyalty.ID, plan.PointsUsed); err != nil {
			return s.debitError("loyalty points", err)
		}
	}
	if plan.CashFromWallet > 0 {
		if err := s.walletRepo.Debit(ctx, dbTx, snapshot.Wallet.ID, plan.CashFromWallet); err != nil {
			return s.debitError("wallet", err)
		}
	}
	return nil
}

func (s *SettlementServiceImpl) debitError(source string, err error) error {
	if errors.Is(err, ports.ErrInsufficientBalance) {
		return apperror.ErrInsufficientFunds()
	}
	return apperror.InternalError(fmt.Errorf("debit %s: %w", source, err))
}

// replaySettled fetches the settlement that won a nonce race.
func (s *SettlementServiceImpl) replaySettled(ctx context.Context, nonce string) (*domain.Settlement, error) {
	existing, err := s.settlementRepo.GetByNonce(ctx, nonce)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("replay nonce lookup: %w", err))
	}
	if existing == nil {
		// The winning transaction has not committed yet; the caller can
		// safely retry and will land on the settled row.
		return nil, apperror.ErrConflict(ports.ErrDuplicateNonce)
	}
	return existing, nil
}

// GetSettlement fetches a settlement by id.
func (s *SettlementServiceImpl) GetSettlement(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	settlement, err := s.settlementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get settlement: %w", err))
	}
	if settlement == nil {
		return nil, apperror.ErrNotFound("settlement")
	}
	return settlement, nil
}

// ListSettlements returns a restaurant's settlements with filters and
// pagination.
func (s *SettlementServiceImpl) ListSettlements(ctx context.Context, params ports.SettlementListParams) ([]domain.Settlement, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 200 {
		params.PageSize = 50
	}
	settlements, total, err := s.settlementRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list settlements: %w", err))
	}
	return settlements, total, nil
}

// GetStats returns aggregated settlement figures for a restaurant.
func (s *SettlementServiceImpl) GetStats(ctx context.Context, restaurantID uuid.UUID, periodStart *int64) (*ports.SettlementStats, error) {
	stats, err := s.settlementRepo.GetStats(ctx, restaurantID, periodStart)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get settlement stats: %w", err))
	}
	return stats, nil
}

// isRetryableTxError reports whether a commit failed on transient
// contention: serialization failure, deadlock, or lock timeout.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
