package service

import (
	"context"
	"fmt"
	"time"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/pkg/apperror"

	"github.com/rs/zerolog"
)

// TokenValidatorImpl implements ports.TokenValidator. The settlement store
// is the single source of truth for consumed nonces; the Redis cache only
// short-circuits obvious replays. The store's unique constraint on nonce is
// what actually prevents a double-scan race, so a cache miss here is never
// treated as proof of freshness.
type TokenValidatorImpl struct {
	settlements ports.SettlementRepository
	nonces      ports.NonceCache
	log         zerolog.Logger
}

// NewTokenValidator creates a new TokenValidatorImpl.
func NewTokenValidator(settlements ports.SettlementRepository, nonces ports.NonceCache, log zerolog.Logger) *TokenValidatorImpl {
	return &TokenValidatorImpl{settlements: settlements, nonces: nonces, log: log}
}

// Validate checks expiry first, then replay. Expired tokens are rejected
// regardless of nonce state.
func (v *TokenValidatorImpl) Validate(ctx context.Context, token *domain.PaymentToken, now time.Time) error {
	if token.IsExpired(now) {
		return apperror.ErrTokenExpired()
	}

	consumed, err := v.nonces.IsConsumed(ctx, token.Nonce)
	if err != nil {
		v.log.Warn().Err(err).Msg("nonce cache check failed, falling through to store")
	} else if consumed {
		return apperror.ErrAlreadyConsumed()
	}

	existing, err := v.settlements.GetByNonce(ctx, token.Nonce)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("nonce lookup: %w", err))
	}
	if existing != nil {
		return apperror.ErrAlreadyConsumed()
	}
	return nil
}
