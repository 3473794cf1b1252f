package dto

// IssueTokenRequest is the request body for payment token issuance.
type IssueTokenRequest struct {
	RestaurantID     string  `json:"restaurant_id" binding:"required,uuid"`
	Amount           int64   `json:"amount" binding:"required,gt=0"`
	Method           string  `json:"method" binding:"required,payment_method"`
	VoucherID        *string `json:"voucher_id,omitempty" binding:"omitempty,uuid"`
	GeneralVoucherID *string `json:"general_voucher_id,omitempty" binding:"omitempty,uuid"`
}

// IssueTokenResponse is the response body for a freshly issued token.
type IssueTokenResponse struct {
	QRPayload    string `json:"qr_payload"`
	Nonce        string `json:"nonce"`
	Amount       int64  `json:"amount"`
	Method       string `json:"method"`
	RestaurantID string `json:"restaurant_id"`
	IssuedAt     string `json:"issued_at"`
	ExpiresAt    string `json:"expires_at"`
}

// RedeemRequest is the request body for redeeming a scanned QR payload.
type RedeemRequest struct {
	QRCodeData     string  `json:"qr_code_data" binding:"required"`
	AuthorizedCash int64   `json:"authorized_cash" binding:"gte=0"`
	WalletFallback bool    `json:"wallet_fallback"`
	VerifiedBy     *string `json:"verified_by,omitempty" binding:"omitempty,max=100"`
}

// AllocationResponse is the per-source breakdown inside a settlement.
type AllocationResponse struct {
	VoucherValueUsed       int64               `json:"voucher_value_used"`
	GeneralVoucherDiscount int64               `json:"general_voucher_discount"`
	PointsUsed             int64               `json:"points_used"`
	PointsValue            int64               `json:"points_value"`
	CashFromWallet         int64               `json:"cash_from_wallet"`
	CashUsed               int64               `json:"cash_used"`
	VoucherDraws           []VoucherDrawDetail `json:"voucher_draws,omitempty"`
}

// VoucherDrawDetail is one voucher's contribution to a settlement.
type VoucherDrawDetail struct {
	VoucherID string `json:"voucher_id"`
	Amount    int64  `json:"amount"`
}

// CommissionResponse is the commission breakdown inside a settlement.
type CommissionResponse struct {
	RateBasisPoints     int64 `json:"rate_basis_points"`
	CommissionAmount    int64 `json:"commission_amount"`
	NetRestaurantAmount int64 `json:"net_restaurant_amount"`
}

// SettlementResponse is the response body for a settlement record.
type SettlementResponse struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	RestaurantID string             `json:"restaurant_id"`
	GrossAmount  int64              `json:"gross_amount"`
	Method       string             `json:"method"`
	Allocation   AllocationResponse `json:"allocation"`
	Commission   CommissionResponse `json:"commission"`
	Status       string             `json:"status"`
	VerifiedBy   *string            `json:"verified_by,omitempty"`
	CreatedAt    string             `json:"created_at"`
	SettledAt    *string            `json:"settled_at,omitempty"`
}

// SettlementListResponse wraps a paginated settlement list.
type SettlementListResponse struct {
	Settlements []SettlementResponse `json:"settlements"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
}

// SettlementStatsResponse is the response for restaurant settlement stats.
type SettlementStatsResponse struct {
	TotalSettlements int64 `json:"total_settlements"`
	GrossAmount      int64 `json:"gross_amount"`
	CommissionAmount int64 `json:"commission_amount"`
	NetAmount        int64 `json:"net_amount"`
	VoucherValue     int64 `json:"voucher_value"`
	PointsValue      int64 `json:"points_value"`
	WalletValue      int64 `json:"wallet_value"`
	ExternalValue    int64 `json:"external_value"`
}
