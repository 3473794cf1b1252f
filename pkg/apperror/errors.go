package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Payment Token (TOKEN) ----

// ErrMalformedToken covers every decode failure: missing prefix, bad
// encoding, bad signature, missing required fields. Recoverable by issuing a
// fresh token.
func ErrMalformedToken() *AppError {
	return New("TOKEN_001", "Payment token is malformed or not authentic", http.StatusBadRequest)
}

// ErrTokenExpired signals the token is past its redemption window.
// Recoverable by issuing a fresh token.
func ErrTokenExpired() *AppError {
	return New("TOKEN_002", "Payment token has expired", http.StatusGone)
}

// ErrAlreadyConsumed signals the redemption already happened. Terminal: the
// UI must show "already processed", never a retry.
func ErrAlreadyConsumed() *AppError {
	return New("TOKEN_003", "Payment token has already been redeemed", http.StatusConflict)
}

// ---- Settlement Business Logic (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Available sources cannot cover the requested amount", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrRestaurantMismatch signals a token scanned at a restaurant other than
// the one it was issued for.
func ErrRestaurantMismatch() *AppError {
	return New("PAY_005", "Payment token is not valid for this restaurant", http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrConflict signals transient storage contention. Safe to retry the whole
// commit, since replays are idempotent via the nonce.
func ErrConflict(err error) *AppError {
	return Wrap("SYS_002", "Settlement contention, retry the request", http.StatusServiceUnavailable, err)
}

// ErrRateLimitExceeded signals a client exceeded its request budget.
func ErrRateLimitExceeded() *AppError {
	return New("SYS_003", "Rate limit exceeded, slow down", http.StatusTooManyRequests)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
