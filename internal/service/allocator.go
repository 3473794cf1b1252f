package service

import (
	"sort"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/pkg/apperror"
)

// AllocatorImpl implements ports.Allocator. Plan computation is pure: no
// source is mutated until the settlement writer commits the plan.
type AllocatorImpl struct{}

// NewAllocator creates a new AllocatorImpl.
func NewAllocator() *AllocatorImpl {
	return &AllocatorImpl{}
}

// Plan computes the exact split of req.Amount across funding sources in
// priority order: restaurant-scoped vouchers, general vouchers, points,
// wallet, external cash. The plan always covers the amount exactly or the
// call fails with InsufficientFunds.
func (a *AllocatorImpl) Plan(req ports.AllocationRequest) (*domain.AllocationPlan, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Method.IsValid() {
		return nil, apperror.Validation("unknown payment method")
	}

	plan := &domain.AllocationPlan{}
	remaining := req.Amount

	switch req.Method {
	case domain.PaymentMethodVoucher:
		remaining = a.drawVouchers(plan, req, remaining)
	case domain.PaymentMethodPoints:
		remaining = a.drawPoints(plan, req.Snapshot.Loyalty, remaining)
	}

	// Wallet: the primary source for method=wallet, or the declared fallback
	// for voucher/points remainders.
	if remaining > 0 && (req.Method == domain.PaymentMethodWallet || req.WalletFallback) {
		if w := req.Snapshot.Wallet; w != nil && w.BalanceCents > 0 {
			draw := min(remaining, w.BalanceCents)
			plan.CashFromWallet = draw
			remaining -= draw
		}
	}

	// Residual is external capture. It must have been authorized before the
	// commit runs; anything beyond the authorization is a hard failure with
	// no partial mutation.
	if remaining > 0 {
		if remaining > req.AuthorizedCash {
			return nil, apperror.ErrInsufficientFunds()
		}
		plan.CashUsed = remaining
	}

	return plan, nil
}

// drawVouchers consumes restaurant-scoped value first, then general voucher
// value, earliest expiry first within each pool. The two pools are labeled
// separately because they settle against different entitlement pools.
func (a *AllocatorImpl) drawVouchers(plan *domain.AllocationPlan, req ports.AllocationRequest, remaining int64) int64 {
	var scoped, general []domain.VoucherEntitlement
	for _, v := range req.Snapshot.Vouchers {
		if !v.UsableAt(req.RestaurantID, req.Now) {
			continue
		}
		if v.IsGeneral() {
			if req.PinnedGeneral == nil || *req.PinnedGeneral == v.ID {
				general = append(general, v)
			}
		} else {
			if req.PinnedVoucher == nil || *req.PinnedVoucher == v.ID {
				scoped = append(scoped, v)
			}
		}
	}
	sortByExpiry(scoped)
	sortByExpiry(general)

	remaining = drawPool(plan, scoped, remaining, &plan.VoucherValueUsed)
	remaining = drawPool(plan, general, remaining, &plan.GeneralVoucherDiscount)
	return remaining
}

// drawPoints converts whole points at the fixed global rate, truncating so
// the customer is never debited more point value than the amount drawn.
func (a *AllocatorImpl) drawPoints(plan *domain.AllocationPlan, loyalty *domain.LoyaltyAccount, remaining int64) int64 {
	if loyalty == nil || loyalty.Points <= 0 {
		return remaining
	}
	points := min(loyalty.Points, domain.PointsForCents(remaining))
	if points <= 0 {
		return remaining
	}
	value := domain.PointsValueCents(points)
	plan.PointsUsed = points
	plan.PointsValue = value
	return remaining - value
}

func drawPool(plan *domain.AllocationPlan, pool []domain.VoucherEntitlement, remaining int64, used *int64) int64 {
	for _, v := range pool {
		if remaining == 0 {
			break
		}
		draw := min(remaining, v.RemainingCents)
		*used += draw
		remaining -= draw
		plan.VoucherDraws = append(plan.VoucherDraws, domain.VoucherDraw{VoucherID: v.ID, Amount: draw})
	}
	return remaining
}

func sortByExpiry(vouchers []domain.VoucherEntitlement) {
	sort.SliceStable(vouchers, func(i, j int) bool {
		return vouchers[i].ExpiresAt.Before(vouchers[j].ExpiresAt)
	})
}
