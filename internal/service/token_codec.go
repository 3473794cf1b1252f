package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/pkg/apperror"

	"github.com/google/uuid"
)

// TokenPrefix is the literal marker identifying a payment token payload.
// Decoding rejects any string without this exact prefix before parsing.
const TokenPrefix = "EATOFF_PAYMENT:"

// TokenCodecImpl implements ports.TokenCodec. Wire format:
//
//	EATOFF_PAYMENT:<base64url(JSON payload)>.<hex HMAC-SHA256 of the base64>
//
// The signature is verified before the payload is parsed, so a tampered
// amount or restaurant never reaches the caller as a partial token.
type TokenCodecImpl struct {
	secret string
	sig    *HMACSignatureService
}

// NewTokenCodec creates a codec signing with the given server-held secret.
func NewTokenCodec(secret string) *TokenCodecImpl {
	return &TokenCodecImpl{
		secret: secret,
		sig:    NewHMACSignatureService(),
	}
}

// Encode serializes and signs a payment token into its QR transport string.
func (c *TokenCodecImpl) Encode(token *domain.PaymentToken) (string, error) {
	payload, err := json.Marshal(token)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	signature := c.sig.Sign(c.secret, encoded)
	return TokenPrefix + encoded + "." + signature, nil
}

// Decode parses and authenticates a QR transport string. Missing prefix, bad
// encoding, signature mismatch, and missing or non-positive required fields
// all map to MalformedToken.
func (c *TokenCodecImpl) Decode(encoded string) (*domain.PaymentToken, error) {
	body, ok := strings.CutPrefix(encoded, TokenPrefix)
	if !ok {
		return nil, apperror.ErrMalformedToken()
	}

	payload, signature, ok := strings.Cut(body, ".")
	if !ok || payload == "" {
		return nil, apperror.ErrMalformedToken()
	}
	if !c.sig.Verify(c.secret, payload, signature) {
		return nil, apperror.ErrMalformedToken()
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperror.ErrMalformedToken()
	}

	token := &domain.PaymentToken{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, apperror.ErrMalformedToken()
	}
	if err := checkRequiredFields(token); err != nil {
		return nil, err
	}
	return token, nil
}

func checkRequiredFields(token *domain.PaymentToken) error {
	if token.CustomerID == uuid.Nil || token.RestaurantID == uuid.Nil {
		return apperror.ErrMalformedToken()
	}
	if token.Amount <= 0 {
		return apperror.ErrMalformedToken()
	}
	if !token.Method.IsValid() {
		return apperror.ErrMalformedToken()
	}
	if token.Nonce == "" || token.IssuedAt.IsZero() {
		return apperror.ErrMalformedToken()
	}
	return nil
}
