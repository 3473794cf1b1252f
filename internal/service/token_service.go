package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/pkg/apperror"

	"github.com/rs/zerolog"
)

// nonceBytes is the entropy of a token nonce; hex-encoded to 32 characters.
const nonceBytes = 16

// TokenServiceImpl implements ports.TokenService.
type TokenServiceImpl struct {
	customerRepo   ports.CustomerRepository
	restaurantRepo ports.RestaurantRepository
	codec          ports.TokenCodec
	log            zerolog.Logger
}

// NewTokenService creates a new TokenServiceImpl.
func NewTokenService(
	customerRepo ports.CustomerRepository,
	restaurantRepo ports.RestaurantRepository,
	codec ports.TokenCodec,
	log zerolog.Logger,
) *TokenServiceImpl {
	return &TokenServiceImpl{
		customerRepo:   customerRepo,
		restaurantRepo: restaurantRepo,
		codec:          codec,
		log:            log,
	}
}

// Issue builds a signed single-use payment token for the customer and
// returns it together with its QR transport string.
func (s *TokenServiceImpl) Issue(ctx context.Context, req ports.IssueTokenRequest) (*ports.IssuedToken, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Method.IsValid() {
		return nil, apperror.Validation("unknown payment method")
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load customer: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("customer")
	}

	restaurant, err := s.restaurantRepo.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load restaurant: %w", err))
	}
	if restaurant == nil {
		return nil, apperror.ErrNotFound("restaurant")
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate nonce: %w", err))
	}

	token := &domain.PaymentToken{
		CustomerID:       customer.ID,
		CustomerName:     customer.Name,
		RestaurantID:     restaurant.ID,
		RestaurantName:   restaurant.Name,
		Amount:           req.Amount,
		Method:           req.Method,
		VoucherID:        req.VoucherID,
		GeneralVoucherID: req.GeneralVoucherID,
		IssuedAt:         time.Now().UTC(),
		Nonce:            nonce,
	}

	payload, err := s.codec.Encode(token)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("customer_id", customer.ID.String()).
		Str("restaurant_id", restaurant.ID.String()).
		Int64("amount", req.Amount).
		Str("method", string(req.Method)).
		Msg("payment token issued")

	return &ports.IssuedToken{
		Token:     token,
		QRPayload: payload,
		ExpiresAt: token.ExpiresAt(),
	}, nil
}

func newNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
