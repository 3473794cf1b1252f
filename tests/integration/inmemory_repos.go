package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"eatoff-settlement/internal/core/domain"
	"eatoff-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Customer Repo ---

type inMemoryCustomerRepo struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*domain.Customer
}

func newInMemoryCustomerRepo() *inMemoryCustomerRepo {
	return &inMemoryCustomerRepo{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (r *inMemoryCustomerRepo) add(c *domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
}

func (r *inMemoryCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

// --- In-Memory Restaurant Repo ---

type inMemoryRestaurantRepo struct {
	mu          sync.RWMutex
	restaurants map[uuid.UUID]*domain.Restaurant
}

func newInMemoryRestaurantRepo() *inMemoryRestaurantRepo {
	return &inMemoryRestaurantRepo{restaurants: make(map[uuid.UUID]*domain.Restaurant)}
}

func (r *inMemoryRestaurantRepo) add(rest *domain.Restaurant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restaurants[rest.ID] = rest
}

func (r *inMemoryRestaurantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rest, ok := r.restaurants[id]
	if !ok {
		return nil, nil
	}
	return rest, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.CustomerID == customerID {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByCustomerID(ctx, customerID)
}

func (r *inMemoryWalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok || w.BalanceCents < amount {
		return ports.ErrInsufficientBalance
	}
	w.BalanceCents -= amount
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		w.BalanceCents += amount
	})
	return nil
}

// --- In-Memory Loyalty Repo ---

type inMemoryLoyaltyRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.LoyaltyAccount
}

func newInMemoryLoyaltyRepo() *inMemoryLoyaltyRepo {
	return &inMemoryLoyaltyRepo{accounts: make(map[uuid.UUID]*domain.LoyaltyAccount)}
}

func (r *inMemoryLoyaltyRepo) Create(ctx context.Context, a *domain.LoyaltyAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
	return nil
}

func (r *inMemoryLoyaltyRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.LoyaltyAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.CustomerID == customerID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLoyaltyRepo) GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.LoyaltyAccount, error) {
	return r.GetByCustomerID(ctx, customerID)
}

func (r *inMemoryLoyaltyRepo) DebitPoints(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, points int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok || a.Points < points {
		return ports.ErrInsufficientBalance
	}
	a.Points -= points
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		a.Points += points
	})
	return nil
}

// --- In-Memory Voucher Repo ---

type inMemoryVoucherRepo struct {
	mu       sync.RWMutex
	vouchers map[uuid.UUID]*domain.VoucherEntitlement
}

func newInMemoryVoucherRepo() *inMemoryVoucherRepo {
	return &inMemoryVoucherRepo{vouchers: make(map[uuid.UUID]*domain.VoucherEntitlement)}
}

func (r *inMemoryVoucherRepo) Create(ctx context.Context, v *domain.VoucherEntitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vouchers[v.ID] = v
	return nil
}

func (r *inMemoryVoucherRepo) ListUsable(ctx context.Context, customerID, restaurantID uuid.UUID) ([]domain.VoucherEntitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now().UTC()
	var result []domain.VoucherEntitlement
	for _, v := range r.vouchers {
		if v.CustomerID != customerID || v.Status != domain.VoucherStatusActive || v.RemainingCents <= 0 {
			continue
		}
		if !v.ExpiresAt.After(now) {
			continue
		}
		if v.RestaurantScope != nil && *v.RestaurantScope != restaurantID {
			continue
		}
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

func (r *inMemoryVoucherRepo) ListUsableForUpdate(ctx context.Context, tx pgx.Tx, customerID, restaurantID uuid.UUID) ([]domain.VoucherEntitlement, error) {
	return r.ListUsable(ctx, customerID, restaurantID)
}

func (r *inMemoryVoucherRepo) Debit(ctx context.Context, tx pgx.Tx, voucherID uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[voucherID]
	if !ok || v.Status != domain.VoucherStatusActive || v.RemainingCents < amount {
		return ports.ErrInsufficientBalance
	}
	prevStatus := v.Status
	v.RemainingCents -= amount
	if v.RemainingCents == 0 {
		v.Status = domain.VoucherStatusDepleted
	}
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		v.RemainingCents += amount
		v.Status = prevStatus
	})
	return nil
}

// --- In-Memory Settlement Repo ---

// inMemorySettlementRepo mirrors the UNIQUE(nonce) constraint of the real
// table: the byNonce map is the arbiter, so concurrent redemptions of the
// same token race the same way they do against Postgres.
type inMemorySettlementRepo struct {
	mu          sync.RWMutex
	settlements map[uuid.UUID]*domain.Settlement
	byNonce     map[string]uuid.UUID
}

func newInMemorySettlementRepo() *inMemorySettlementRepo {
	return &inMemorySettlementRepo{
		settlements: make(map[uuid.UUID]*domain.Settlement),
		byNonce:     make(map[string]uuid.UUID),
	}
}

func (r *inMemorySettlementRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNonce[s.Nonce]; exists {
		return ports.ErrDuplicateNonce
	}
	r.settlements[s.ID] = s
	r.byNonce[s.Nonce] = s.ID
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.settlements, s.ID)
		delete(r.byNonce, s.Nonce)
	})
	return nil
}

func (r *inMemorySettlementRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settlements[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (r *inMemorySettlementRepo) GetByNonce(ctx context.Context, nonce string) (*domain.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNonce[nonce]
	if !ok {
		return nil, nil
	}
	return r.settlements[id], nil
}

func (r *inMemorySettlementRepo) List(ctx context.Context, params ports.SettlementListParams) ([]domain.Settlement, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Settlement
	for _, s := range r.settlements {
		if s.RestaurantID != params.RestaurantID {
			continue
		}
		if params.Method != nil && s.Method != *params.Method {
			continue
		}
		if params.From != nil && s.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && s.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Settlement{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemorySettlementRepo) GetStats(ctx context.Context, restaurantID uuid.UUID, periodStart *int64) (*ports.SettlementStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.SettlementStats{}
	for _, s := range r.settlements {
		if s.RestaurantID != restaurantID {
			continue
		}
		if periodStart != nil && s.CreatedAt.Unix() < *periodStart {
			continue
		}
		stats.TotalSettlements++
		stats.GrossAmount += s.GrossAmount
		stats.CommissionAmount += s.Commission.CommissionAmount
		stats.NetAmount += s.Commission.NetRestaurantAmount
		stats.VoucherValue += s.Allocation.VoucherValueUsed + s.Allocation.GeneralVoucherDiscount
		stats.PointsValue += s.Allocation.PointsValue
		stats.WalletValue += s.Allocation.CashFromWallet
		stats.ExternalValue += s.Allocation.CashUsed
	}
	return stats, nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// registerUndo attaches a compensation to the in-memory transaction so a
// rollback reverts the mutation, the way a real transaction would.
func registerUndo(tx pgx.Tx, fn func()) {
	if mtx, ok := tx.(*memTx); ok {
		mtx.onRollback(fn)
	}
}

// memTx is a pgx.Tx for in-memory testing. Mutations apply immediately;
// Rollback runs the registered compensations in reverse order.
type memTx struct {
	mu     sync.Mutex
	undo   []func()
	closed bool
}

func (t *memTx) onRollback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.undo = nil
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.closed = true
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
