package handler

import (
	"time"

	"eatoff-settlement/internal/adapter/http/dto"
	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/pkg/apperror"
	"eatoff-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenHandler handles payment token issuance endpoints.
type TokenHandler struct {
	tokenSvc ports.TokenService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenSvc ports.TokenService) *TokenHandler {
	return &TokenHandler{tokenSvc: tokenSvc}
}

// Issue handles POST /api/v1/customers/:id/payment-tokens.
func (h *TokenHandler) Issue(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer id"))
		return
	}

	var req dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	voucherID, err := parseOptionalUUID(req.VoucherID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid voucher id"))
		return
	}
	generalVoucherID, err := parseOptionalUUID(req.GeneralVoucherID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid general voucher id"))
		return
	}

	issued, err := h.tokenSvc.Issue(c.Request.Context(), ports.IssueTokenRequest{
		CustomerID:       customerID,
		RestaurantID:     restaurantID,
		Amount:           req.Amount,
		Method:           domain.PaymentMethod(req.Method),
		VoucherID:        voucherID,
		GeneralVoucherID: generalVoucherID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.IssueTokenResponse{
		QRPayload:    issued.QRPayload,
		Nonce:        issued.Token.Nonce,
		Amount:       issued.Token.Amount,
		Method:       string(issued.Token.Method),
		RestaurantID: issued.Token.RestaurantID.String(),
		IssuedAt:     issued.Token.IssuedAt.Format(time.RFC3339),
		ExpiresAt:    issued.ExpiresAt.Format(time.RFC3339),
	})
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
