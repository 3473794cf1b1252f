package domain

// DefaultCommissionRateBasisPoints is the platform cut applied when a
// restaurant has no configured rate (500 bp = 5%).
const DefaultCommissionRateBasisPoints = 500

// CommissionResult is the platform's cut of a gross settled amount.
// CommissionAmount + NetRestaurantAmount always equals the gross amount;
// rounding residue lands in CommissionAmount so restaurant payouts stay
// predictable.
type CommissionResult struct {
	RateBasisPoints     int64 `json:"rate_basis_points"`
	CommissionAmount    int64 `json:"commission_amount"`
	NetRestaurantAmount int64 `json:"net_restaurant_amount"`
}
