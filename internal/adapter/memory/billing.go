package memory

import (
	"context"
	"time"

	"justbecause/internal/domain"
)

type transactionRepo struct{ d *db }

func (r *transactionRepo) Create(_ context.Context, tx *domain.Transaction) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	tx.ID = newID(tx.ID)
	stamp(&tx.CreatedAt)
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	c := *tx
	r.d.transactions[tx.ID] = &c
	return nil
}

func (r *transactionRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	tx, ok := r.d.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *tx
	return &c, nil
}

func (r *transactionRepo) GetByGatewayOrder(_ context.Context, gateway, orderID string) (*domain.Transaction, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, tx := range r.d.transactions {
		if tx.Gateway == gateway && orderID != "" && tx.GatewayOrderID == orderID {
			c := *tx
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *transactionRepo) SetGatewayOrder(_ context.Context, id, orderID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	tx, ok := r.d.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	tx.GatewayOrderID = orderID
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *transactionRepo) MarkPaid(_ context.Context, id, paymentID string, now time.Time) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	tx, ok := r.d.transactions[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if tx.Status != domain.TxPending {
		return false, nil
	}
	at := now
	tx.Status = domain.TxPaid
	tx.GatewayPaymentID = paymentID
	tx.PaidAt = &at
	tx.UpdatedAt = now
	return true, nil
}

func (r *transactionRepo) MarkFailed(_ context.Context, id string, now time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	tx, ok := r.d.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status == domain.TxPending {
		tx.Status = domain.TxFailed
		tx.UpdatedAt = now
	}
	return nil
}

func (r *transactionRepo) PinGrantExpiry(_ context.Context, id string, at time.Time) (time.Time, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	tx, ok := r.d.transactions[id]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	if tx.GrantExpiresAt == nil {
		pinned := at
		tx.GrantExpiresAt = &pinned
	}
	return *tx.GrantExpiresAt, nil
}

func (r *transactionRepo) MarkFulfilled(_ context.Context, id string, now time.Time) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	tx, ok := r.d.transactions[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if tx.Status != domain.TxPaid || tx.FulfilledAt != nil {
		return false, nil
	}
	at := now
	tx.FulfilledAt = &at
	tx.UpdatedAt = now
	return true, nil
}

func (r *transactionRepo) List(_ context.Context, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range r.d.transactions {
		if f.UserID != "" && tx.UserID != f.UserID {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		out = append(out, *tx)
	}
	sortByCreatedDesc(out, func(t domain.Transaction) time.Time { return t.CreatedAt })
	return paginate(out, f.Limit, f.Offset), len(out), nil
}

type couponRepo struct{ d *db }

func cloneCoupon(c *domain.Coupon) *domain.Coupon {
	out := *c
	out.Purposes = append([]domain.Purpose(nil), c.Purposes...)
	return &out
}

func (r *couponRepo) Create(_ context.Context, c *domain.Coupon) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.coupons {
		if existing.Code == c.Code {
			return domain.ErrConflict
		}
	}
	c.ID = newID(c.ID)
	stamp(&c.CreatedAt)
	r.d.coupons[c.ID] = cloneCoupon(c)
	return nil
}

func (r *couponRepo) GetByID(_ context.Context, id string) (*domain.Coupon, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCoupon(c), nil
}

func (r *couponRepo) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, c := range r.d.coupons {
		if c.Code == code {
			return cloneCoupon(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *couponRepo) List(_ context.Context) ([]domain.Coupon, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]domain.Coupon, 0, len(r.d.coupons))
	for _, c := range r.d.coupons {
		out = append(out, *cloneCoupon(c))
	}
	sortByCreatedDesc(out, func(c domain.Coupon) time.Time { return c.CreatedAt })
	return out, nil
}

func (r *couponRepo) Update(_ context.Context, c *domain.Coupon) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stored, ok := r.d.coupons[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneCoupon(c)
	next.Redeemed = stored.Redeemed
	r.d.coupons[c.ID] = next
	return nil
}

func (r *couponRepo) Redeem(_ context.Context, id string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c, ok := r.d.coupons[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.MaxRedemptions > 0 && c.Redeemed >= c.MaxRedemptions {
		return false, nil
	}
	c.Redeemed++
	return true, nil
}

type settingsRepo struct{ d *db }

func (r *settingsRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	v, ok := r.d.settings[key]
	return v, ok, nil
}

func (r *settingsRepo) Set(_ context.Context, key, value string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	r.d.settings[key] = value
	return nil
}

func (r *settingsRepo) All(_ context.Context) (map[string]string, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make(map[string]string, len(r.d.settings))
	for k, v := range r.d.settings {
		out[k] = v
	}
	return out, nil
}

type statsRepo struct{ d *db }

func (r *statsRepo) PlatformStats(_ context.Context, now time.Time) (*domain.PlatformStats, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	s := &domain.PlatformStats{
		UsersByRole:       map[domain.Role]int{},
		ProjectsByStatus:  map[domain.ProjectStatus]int{},
		RevenueByCurrency: map[string]int64{},
		GeneratedAt:       now,
	}
	monthAgo := now.AddDate(0, 0, -30)
	for _, u := range r.d.users {
		s.UsersByRole[u.Role]++
		if u.OnboardingCompleted {
			s.OnboardedUsers++
		}
		if u.Banned {
			s.BannedUsers++
		}
		if !u.CreatedAt.Before(monthAgo) {
			s.SignupsLast30Days++
		}
		if u.Volunteer != nil {
			s.HoursContributed += u.Volunteer.HoursContributed
		}
	}
	for _, p := range r.d.projects {
		s.ProjectsByStatus[p.Status]++
	}
	for _, a := range r.d.applications {
		s.Applications++
		if a.Status == domain.ApplicationCompleted {
			s.CompletedProjects++
		}
	}
	for _, tx := range r.d.transactions {
		if tx.Status == domain.TxPaid {
			s.PaidTransactions++
			s.RevenueByCurrency[tx.Currency] += tx.AmountMinor - tx.DiscountMinor
		}
	}
	return s, nil
}
