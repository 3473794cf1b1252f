package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/internal/core/ports/mocks"
	"eatoff-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type tokenTestDeps struct {
	svc            *TokenServiceImpl
	customerRepo   *mocks.MockCustomerRepository
	restaurantRepo *mocks.MockRestaurantRepository
	ctrl           *gomock.Controller
}

func setupTokenService(t *testing.T) *tokenTestDeps {
	ctrl := gomock.NewController(t)
	d := &tokenTestDeps{
		customerRepo:   mocks.NewMockCustomerRepository(ctrl),
		restaurantRepo: mocks.NewMockRestaurantRepository(ctrl),
		ctrl:           ctrl,
	}
	d.svc = NewTokenService(d.customerRepo, d.restaurantRepo, NewTokenCodec(testSecret), zerolog.Nop())
	return d
}

func TestTokenService_Issue_Success(t *testing.T) {
	d := setupTokenService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := &domain.Customer{ID: uuid.New(), Name: "Anna"}
	restaurant := &domain.Restaurant{ID: uuid.New(), Name: "Trattoria Roma"}

	d.customerRepo.EXPECT().GetByID(ctx, customer.ID).Return(customer, nil)
	d.restaurantRepo.EXPECT().GetByID(ctx, restaurant.ID).Return(restaurant, nil)

	issued, err := d.svc.Issue(ctx, ports.IssueTokenRequest{
		CustomerID:   customer.ID,
		RestaurantID: restaurant.ID,
		Amount:       1200,
		Method:       domain.PaymentMethodVoucher,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(issued.QRPayload, TokenPrefix))
	assert.Len(t, issued.Token.Nonce, 32)
	assert.Equal(t, customer.Name, issued.Token.CustomerName)
	assert.Equal(t, restaurant.Name, issued.Token.RestaurantName)
	assert.WithinDuration(t, time.Now().UTC().Add(domain.TokenExpiryWindow), issued.ExpiresAt, 5*time.Second)

	// Payload must decode back to the same token.
	decoded, err := NewTokenCodec(testSecret).Decode(issued.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, issued.Token.Nonce, decoded.Nonce)
	assert.Equal(t, int64(1200), decoded.Amount)
}

func TestTokenService_Issue_UniqueNonces(t *testing.T) {
	d := setupTokenService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := &domain.Customer{ID: uuid.New(), Name: "Anna"}
	restaurant := &domain.Restaurant{ID: uuid.New(), Name: "Trattoria Roma"}

	d.customerRepo.EXPECT().GetByID(ctx, customer.ID).Return(customer, nil).Times(2)
	d.restaurantRepo.EXPECT().GetByID(ctx, restaurant.ID).Return(restaurant, nil).Times(2)

	req := ports.IssueTokenRequest{
		CustomerID:   customer.ID,
		RestaurantID: restaurant.ID,
		Amount:       500,
		Method:       domain.PaymentMethodWallet,
	}

	first, err := d.svc.Issue(ctx, req)
	require.NoError(t, err)
	second, err := d.svc.Issue(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token.Nonce, second.Token.Nonce)
}

func TestTokenService_Issue_InvalidAmount(t *testing.T) {
	d := setupTokenService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Issue(context.Background(), ports.IssueTokenRequest{
		CustomerID:   uuid.New(),
		RestaurantID: uuid.New(),
		Amount:       0,
		Method:       domain.PaymentMethodWallet,
	})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_002", appErr.Code)
}

func TestTokenService_Issue_UnknownCustomer(t *testing.T) {
	d := setupTokenService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	d.customerRepo.EXPECT().GetByID(ctx, customerID).Return(nil, nil)

	_, err := d.svc.Issue(ctx, ports.IssueTokenRequest{
		CustomerID:   customerID,
		RestaurantID: uuid.New(),
		Amount:       500,
		Method:       domain.PaymentMethodWallet,
	})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_004", appErr.Code)
}

func TestTokenService_Issue_UnknownRestaurant(t *testing.T) {
	d := setupTokenService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := &domain.Customer{ID: uuid.New(), Name: "Anna"}
	restaurantID := uuid.New()

	d.customerRepo.EXPECT().GetByID(ctx, customer.ID).Return(customer, nil)
	d.restaurantRepo.EXPECT().GetByID(ctx, restaurantID).Return(nil, nil)

	_, err := d.svc.Issue(ctx, ports.IssueTokenRequest{
		CustomerID:   customer.ID,
		RestaurantID: restaurantID,
		Amount:       500,
		Method:       domain.PaymentMethodWallet,
	})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_004", appErr.Code)
}

func TestTokenService_Issue_RepoError(t *testing.T) {
	d := setupTokenService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	d.customerRepo.EXPECT().GetByID(ctx, customerID).Return(nil, errors.New("db down"))

	_, err := d.svc.Issue(ctx, ports.IssueTokenRequest{
		CustomerID:   customerID,
		RestaurantID: uuid.New(),
		Amount:       500,
		Method:       domain.PaymentMethodWallet,
	})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SYS_001", appErr.Code)
}
