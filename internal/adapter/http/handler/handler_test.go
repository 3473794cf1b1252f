package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eatoff-settlement/internal/adapter/http/dto"
	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/internal/core/ports/mocks"
	"eatoff-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(t *testing.T, method, path string, body []byte, paramID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}
	return c, w
}

// --- Token Handler Tests ---

func TestIssueToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTokens := mocks.NewMockTokenService(ctrl)
	h := NewTokenHandler(mockTokens)

	customerID := uuid.New()
	restaurantID := uuid.New()
	issuedAt := time.Now().UTC()

	mockTokens.EXPECT().Issue(gomock.Any(), ports.IssueTokenRequest{
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Amount:       1200,
		Method:       domain.PaymentMethodVoucher,
	}).Return(&ports.IssuedToken{
		Token: &domain.PaymentToken{
			CustomerID:   customerID,
			RestaurantID: restaurantID,
			Amount:       1200,
			Method:       domain.PaymentMethodVoucher,
			Nonce:        "a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8",
			IssuedAt:     issuedAt,
		},
		QRPayload: "EATOFF_PAYMENT:payload.sig",
		ExpiresAt: issuedAt.Add(domain.TokenExpiryWindow),
	}, nil)

	body, _ := json.Marshal(dto.IssueTokenRequest{
		RestaurantID: restaurantID.String(),
		Amount:       1200,
		Method:       "voucher",
	})

	c, w := testContext(t, http.MethodPost, "/api/v1/customers/"+customerID.String()+"/payment-tokens", body, customerID.String())
	h.Issue(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "EATOFF_PAYMENT:payload.sig", data["qr_payload"])
	assert.Equal(t, "voucher", data["method"])
	assert.NotEmpty(t, data["expires_at"])
}

func TestIssueToken_InvalidCustomerID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTokenHandler(mocks.NewMockTokenService(ctrl))

	body, _ := json.Marshal(dto.IssueTokenRequest{
		RestaurantID: uuid.New().String(),
		Amount:       500,
		Method:       "wallet",
	})

	c, w := testContext(t, http.MethodPost, "/api/v1/customers/not-a-uuid/payment-tokens", body, "not-a-uuid")
	h.Issue(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueToken_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTokenHandler(mocks.NewMockTokenService(ctrl))

	// Missing method and amount => binding error
	c, w := testContext(t, http.MethodPost, "/api/v1/customers/x/payment-tokens", []byte("{}"), uuid.New().String())
	h.Issue(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueToken_InvalidMethod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTokenHandler(mocks.NewMockTokenService(ctrl))

	body := []byte(`{"restaurant_id":"` + uuid.New().String() + `","amount":500,"method":"card"}`)
	c, w := testContext(t, http.MethodPost, "/api/v1/customers/x/payment-tokens", body, uuid.New().String())
	h.Issue(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueToken_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTokens := mocks.NewMockTokenService(ctrl)
	h := NewTokenHandler(mockTokens)

	mockTokens.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrNotFound("Customer"))

	body, _ := json.Marshal(dto.IssueTokenRequest{
		RestaurantID: uuid.New().String(),
		Amount:       500,
		Method:       "wallet",
	})

	c, w := testContext(t, http.MethodPost, "/api/v1/customers/x/payment-tokens", body, uuid.New().String())
	h.Issue(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Settlement Handler Tests ---

func sampleSettlement(restaurantID uuid.UUID) *domain.Settlement {
	settledAt := time.Now().UTC()
	return &domain.Settlement{
		ID:           uuid.New(),
		Nonce:        "a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8",
		CustomerID:   uuid.New(),
		RestaurantID: restaurantID,
		GrossAmount:  1200,
		Method:       domain.PaymentMethodVoucher,
		Allocation: domain.AllocationPlan{
			VoucherValueUsed: 500,
			CashFromWallet:   700,
			VoucherDraws: []domain.VoucherDraw{
				{VoucherID: uuid.New(), Amount: 500},
			},
		},
		Commission: domain.CommissionResult{
			RateBasisPoints:     500,
			CommissionAmount:    60,
			NetRestaurantAmount: 1140,
		},
		Status:    domain.SettlementStatusSettled,
		CreatedAt: settledAt,
		SettledAt: &settledAt,
	}
}

func TestRedeem_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	restaurantID := uuid.New()
	verifier := "staff-7"
	mockSettlements.EXPECT().Redeem(gomock.Any(), ports.RedeemRequest{
		RestaurantID:   restaurantID,
		QRPayload:      "EATOFF_PAYMENT:payload.sig",
		AuthorizedCash: 0,
		WalletFallback: true,
		VerifiedBy:     &verifier,
	}).Return(sampleSettlement(restaurantID), nil)

	body, _ := json.Marshal(dto.RedeemRequest{
		QRCodeData:     "EATOFF_PAYMENT:payload.sig",
		WalletFallback: true,
		VerifiedBy:     &verifier,
	})

	c, w := testContext(t, http.MethodPost, "/api/v1/restaurants/"+restaurantID.String()+"/redemptions", body, restaurantID.String())
	h.Redeem(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "SETTLED", data["status"])
	assert.Equal(t, float64(1200), data["gross_amount"])

	alloc := data["allocation"].(map[string]interface{})
	assert.Equal(t, float64(500), alloc["voucher_value_used"])
	assert.Equal(t, float64(700), alloc["cash_from_wallet"])

	commission := data["commission"].(map[string]interface{})
	assert.Equal(t, float64(1140), commission["net_restaurant_amount"])
}

func TestRedeem_MissingQRData(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewSettlementHandler(mocks.NewMockSettlementService(ctrl))

	c, w := testContext(t, http.MethodPost, "/api/v1/restaurants/x/redemptions", []byte("{}"), uuid.New().String())
	h.Redeem(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeem_AlreadyConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	mockSettlements.EXPECT().Redeem(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrAlreadyConsumed())

	body, _ := json.Marshal(dto.RedeemRequest{QRCodeData: "EATOFF_PAYMENT:payload.sig"})
	c, w := testContext(t, http.MethodPost, "/api/v1/restaurants/x/redemptions", body, uuid.New().String())
	h.Redeem(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TOKEN_003", resp["error_code"])
}

func TestRedeem_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	mockSettlements.EXPECT().Redeem(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	body, _ := json.Marshal(dto.RedeemRequest{QRCodeData: "EATOFF_PAYMENT:payload.sig"})
	c, w := testContext(t, http.MethodPost, "/api/v1/restaurants/x/redemptions", body, uuid.New().String())
	h.Redeem(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestGetSettlement_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	settlement := sampleSettlement(uuid.New())
	mockSettlements.EXPECT().GetSettlement(gomock.Any(), settlement.ID).Return(settlement, nil)

	c, w := testContext(t, http.MethodGet, "/api/v1/settlements/"+settlement.ID.String(), nil, settlement.ID.String())
	h.GetSettlement(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, settlement.ID.String(), data["id"])
}

func TestGetSettlement_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	id := uuid.New()
	mockSettlements.EXPECT().GetSettlement(gomock.Any(), id).Return(nil, apperror.ErrNotFound("Settlement"))

	c, w := testContext(t, http.MethodGet, "/api/v1/settlements/"+id.String(), nil, id.String())
	h.GetSettlement(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSettlements_ParsesFilters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	restaurantID := uuid.New()
	method := domain.PaymentMethodWallet
	from := int64(1700000000)

	mockSettlements.EXPECT().ListSettlements(gomock.Any(), ports.SettlementListParams{
		RestaurantID: restaurantID,
		Method:       &method,
		From:         &from,
		Page:         2,
		PageSize:     10,
	}).Return([]domain.Settlement{*sampleSettlement(restaurantID)}, int64(15), nil)

	c, w := testContext(t, http.MethodGet,
		"/api/v1/restaurants/"+restaurantID.String()+"/settlements?method=wallet&from=1700000000&page=2&page_size=10",
		nil, restaurantID.String())
	h.ListSettlements(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(15), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Len(t, data["settlements"], 1)
}

func TestListSettlements_InvalidMethodFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewSettlementHandler(mocks.NewMockSettlementService(ctrl))

	restaurantID := uuid.New()
	c, w := testContext(t, http.MethodGet,
		"/api/v1/restaurants/"+restaurantID.String()+"/settlements?method=card",
		nil, restaurantID.String())
	h.ListSettlements(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlements := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSettlements)

	restaurantID := uuid.New()
	mockSettlements.EXPECT().GetStats(gomock.Any(), restaurantID, nil).Return(&ports.SettlementStats{
		TotalSettlements: 3,
		GrossAmount:      4550,
		CommissionAmount: 250,
		NetAmount:        4300,
	}, nil)

	c, w := testContext(t, http.MethodGet,
		"/api/v1/restaurants/"+restaurantID.String()+"/settlements/stats",
		nil, restaurantID.String())
	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total_settlements"])
	assert.Equal(t, float64(250), data["commission_amount"])
}

// --- Router Tests ---

func TestRouter_HealthRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := SetupRouter(RouterDeps{
		TokenSvc:      mocks.NewMockTokenService(ctrl),
		SettlementSvc: mocks.NewMockSettlementService(ctrl),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := SetupRouter(RouterDeps{
		TokenSvc:      mocks.NewMockTokenService(ctrl),
		SettlementSvc: mocks.NewMockSettlementService(ctrl),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
