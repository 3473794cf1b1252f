package handler

import (
	"strconv"
	"time"

	"eatoff-settlement/internal/adapter/http/dto"
	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/pkg/apperror"
	"eatoff-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementHandler handles redemption and settlement read endpoints.
type SettlementHandler struct {
	settlementSvc ports.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementSvc ports.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// Redeem handles POST /api/v1/restaurants/:id/redemptions.
func (h *SettlementHandler) Redeem(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	settlement, err := h.settlementSvc.Redeem(c.Request.Context(), ports.RedeemRequest{
		RestaurantID:   restaurantID,
		QRPayload:      req.QRCodeData,
		AuthorizedCash: req.AuthorizedCash,
		WalletFallback: req.WalletFallback,
		VerifiedBy:     req.VerifiedBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toSettlementResponse(settlement))
}

// GetSettlement handles GET /api/v1/settlements/:id.
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid settlement id"))
		return
	}

	settlement, err := h.settlementSvc.GetSettlement(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toSettlementResponse(settlement))
}

// ListSettlements handles GET /api/v1/restaurants/:id/settlements.
func (h *SettlementHandler) ListSettlements(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	params := ports.SettlementListParams{
		RestaurantID: restaurantID,
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 50),
	}

	if m := c.Query("method"); m != "" {
		method := domain.PaymentMethod(m)
		if !method.IsValid() {
			response.Error(c, apperror.Validation("invalid method filter"))
			return
		}
		params.Method = &method
	}
	if from, ok, err := queryUnix(c, "from"); err != nil {
		response.Error(c, apperror.Validation("invalid from timestamp"))
		return
	} else if ok {
		params.From = &from
	}
	if to, ok, err := queryUnix(c, "to"); err != nil {
		response.Error(c, apperror.Validation("invalid to timestamp"))
		return
	} else if ok {
		params.To = &to
	}

	settlements, total, err := h.settlementSvc.ListSettlements(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.SettlementResponse, 0, len(settlements))
	for i := range settlements {
		items = append(items, toSettlementResponse(&settlements[i]))
	}

	response.OK(c, dto.SettlementListResponse{
		Settlements: items,
		Total:       total,
		Page:        params.Page,
		PageSize:    params.PageSize,
	})
}

// GetStats handles GET /api/v1/restaurants/:id/settlements/stats.
func (h *SettlementHandler) GetStats(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid restaurant id"))
		return
	}

	var periodStart *int64
	if from, ok, err := queryUnix(c, "from"); err != nil {
		response.Error(c, apperror.Validation("invalid from timestamp"))
		return
	} else if ok {
		periodStart = &from
	}

	stats, err := h.settlementSvc.GetStats(c.Request.Context(), restaurantID, periodStart)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SettlementStatsResponse{
		TotalSettlements: stats.TotalSettlements,
		GrossAmount:      stats.GrossAmount,
		CommissionAmount: stats.CommissionAmount,
		NetAmount:        stats.NetAmount,
		VoucherValue:     stats.VoucherValue,
		PointsValue:      stats.PointsValue,
		WalletValue:      stats.WalletValue,
		ExternalValue:    stats.ExternalValue,
	})
}

// toSettlementResponse converts domain.Settlement to DTO.
func toSettlementResponse(s *domain.Settlement) dto.SettlementResponse {
	draws := make([]dto.VoucherDrawDetail, 0, len(s.Allocation.VoucherDraws))
	for _, d := range s.Allocation.VoucherDraws {
		draws = append(draws, dto.VoucherDrawDetail{
			VoucherID: d.VoucherID.String(),
			Amount:    d.Amount,
		})
	}

	resp := dto.SettlementResponse{
		ID:           s.ID.String(),
		CustomerID:   s.CustomerID.String(),
		RestaurantID: s.RestaurantID.String(),
		GrossAmount:  s.GrossAmount,
		Method:       string(s.Method),
		Allocation: dto.AllocationResponse{
			VoucherValueUsed:       s.Allocation.VoucherValueUsed,
			GeneralVoucherDiscount: s.Allocation.GeneralVoucherDiscount,
			PointsUsed:             s.Allocation.PointsUsed,
			PointsValue:            s.Allocation.PointsValue,
			CashFromWallet:         s.Allocation.CashFromWallet,
			CashUsed:               s.Allocation.CashUsed,
			VoucherDraws:           draws,
		},
		Commission: dto.CommissionResponse{
			RateBasisPoints:     s.Commission.RateBasisPoints,
			CommissionAmount:    s.Commission.CommissionAmount,
			NetRestaurantAmount: s.Commission.NetRestaurantAmount,
		},
		Status:     string(s.Status),
		VerifiedBy: s.VerifiedBy,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
	if s.SettledAt != nil {
		at := s.SettledAt.Format(time.RFC3339)
		resp.SettledAt = &at
	}
	return resp
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func queryUnix(c *gin.Context, name string) (int64, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
