package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func sampleToken() *domain.PaymentToken {
	return &domain.PaymentToken{
		CustomerID:     uuid.New(),
		CustomerName:   "Anna",
		RestaurantID:   uuid.New(),
		RestaurantName: "Trattoria Roma",
		Amount:         1200,
		Method:         domain.PaymentMethodVoucher,
		IssuedAt:       time.Now().UTC().Truncate(time.Second),
		Nonce:          "a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8",
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	token := sampleToken()

	encoded, err := codec.Encode(token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, TokenPrefix))

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, token.CustomerID, decoded.CustomerID)
	assert.Equal(t, token.RestaurantID, decoded.RestaurantID)
	assert.Equal(t, token.Amount, decoded.Amount)
	assert.Equal(t, token.Method, decoded.Method)
	assert.Equal(t, token.Nonce, decoded.Nonce)
	assert.True(t, token.IssuedAt.Equal(decoded.IssuedAt))
}

func TestTokenCodec_MissingPrefix(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	_, err := codec.Decode("NOT_A_TOKEN:abc.def")
	assertMalformed(t, err)
}

func TestTokenCodec_MissingSignature(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	_, err := codec.Decode(TokenPrefix + "payloadwithoutdot")
	assertMalformed(t, err)
}

func TestTokenCodec_TamperedAmount(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	token := sampleToken()

	encoded, err := codec.Encode(token)
	require.NoError(t, err)

	// Re-encode the payload with a different amount, keep the signature.
	body := strings.TrimPrefix(encoded, TokenPrefix)
	payload, signature, _ := strings.Cut(body, ".")
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	require.NoError(t, err)

	var decoded domain.PaymentToken
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decoded.Amount = 1
	tampered, err := json.Marshal(&decoded)
	require.NoError(t, err)

	forged := TokenPrefix + base64.RawURLEncoding.EncodeToString(tampered) + "." + signature
	_, err = codec.Decode(forged)
	assertMalformed(t, err)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	encoded, err := NewTokenCodec(testSecret).Encode(sampleToken())
	require.NoError(t, err)

	_, err = NewTokenCodec("other-secret").Decode(encoded)
	assertMalformed(t, err)
}

func TestTokenCodec_MissingRequiredFields(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	cases := []struct {
		name   string
		mutate func(*domain.PaymentToken)
	}{
		{"no customer", func(tok *domain.PaymentToken) { tok.CustomerID = uuid.Nil }},
		{"no restaurant", func(tok *domain.PaymentToken) { tok.RestaurantID = uuid.Nil }},
		{"zero amount", func(tok *domain.PaymentToken) { tok.Amount = 0 }},
		{"negative amount", func(tok *domain.PaymentToken) { tok.Amount = -100 }},
		{"bad method", func(tok *domain.PaymentToken) { tok.Method = "card" }},
		{"no nonce", func(tok *domain.PaymentToken) { tok.Nonce = "" }},
		{"no issued at", func(tok *domain.PaymentToken) { tok.IssuedAt = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := sampleToken()
			tc.mutate(token)

			encoded, err := codec.Encode(token)
			require.NoError(t, err)

			_, err = codec.Decode(encoded)
			assertMalformed(t, err)
		})
	}
}

func TestTokenCodec_GarbageInputs(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	for _, input := range []string{"", "   ", TokenPrefix, TokenPrefix + ".", TokenPrefix + "!!!.???"} {
		_, err := codec.Decode(input)
		assertMalformed(t, err)
	}
}

func assertMalformed(t *testing.T, err error) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, "TOKEN_001", appErr.Code)
}
