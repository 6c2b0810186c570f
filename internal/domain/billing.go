package domain

import (
	"strings"
	"time"
)

// Purpose names what a transaction pays for.
type Purpose string

const (
	PurposeSubscription  Purpose = "subscription"
	PurposeProfileUnlock Purpose = "profile_unlock"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeSubscription || p == PurposeProfileUnlock
}

// TransactionStatus enumerates payment outcomes.
type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxPaid     TransactionStatus = "paid"
	TxFailed   TransactionStatus = "failed"
	TxRefunded TransactionStatus = "refunded"
)

// Transaction records one checkout attempt.
type Transaction struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Purpose          Purpose           `json:"purpose"`
	Plan             Plan              `json:"plan,omitempty"`
	TargetUserID     string            `json:"target_user_id,omitempty"`
	Gateway          string            `json:"gateway"`
	GatewayOrderID   string            `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string            `json:"gateway_payment_id,omitempty"`
	AmountMinor      int64             `json:"amount_minor"`
	DiscountMinor    int64             `json:"discount_minor"`
	Currency         string            `json:"currency"`
	CouponCode       string            `json:"coupon_code,omitempty"`
	Status           TransactionStatus `json:"status"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	// GrantExpiresAt pins the plan expiry a subscription payment grants, so
	// a retried fulfilment applies the same period.
	GrantExpiresAt *time.Time `json:"grant_expires_at,omitempty"`
	// FulfilledAt is set once the purchase has been applied to the buyer.
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	UserID string
	Status TransactionStatus
	Limit  int
	Offset int
}

// CouponKind selects how a coupon discounts.
type CouponKind string

const (
	CouponPercent CouponKind = "percent"
	CouponFixed   CouponKind = "fixed"
)

// Coupon is a discount code redeemable at checkout.
type Coupon struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	Kind           CouponKind `json:"kind"`
	Value          int64      `json:"value"`
	Currency       string     `json:"currency,omitempty"`
	MaxRedemptions int        `json:"max_redemptions"`
	Redeemed       int        `json:"redeemed"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Purposes       []Purpose  `json:"purposes"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NormalizeCouponCode uppercases and trims a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check validates the coupon for a purchase at now.
func (c *Coupon) Check(now time.Time, purpose Purpose, currency string) error {
	switch {
	case !c.Active:
		return Invalid("coupon", "coupon is inactive")
	case c.ExpiresAt != nil && !c.ExpiresAt.After(now):
		return Invalid("coupon", "coupon has expired")
	case c.MaxRedemptions > 0 && c.Redeemed >= c.MaxRedemptions:
		return Invalid("coupon", "coupon has been fully redeemed")
	case c.Kind == CouponFixed && !strings.EqualFold(c.Currency, currency):
		return Invalid("coupon", "coupon is not valid for this currency")
	}
	if len(c.Purposes) > 0 {
		for _, p := range c.Purposes {
			if p == purpose {
				return nil
			}
		}
		return Invalid("coupon", "coupon does not apply to this purchase")
	}
	return nil
}

// Discount returns the amount taken off amount, never more than amount.
func (c *Coupon) Discount(amount int64) int64 {
	var d int64
	switch c.Kind {
	case CouponPercent:
		d = amount * c.Value / 100
	case CouponFixed:
		d = c.Value
	}
	if d > amount {
		d = amount
	}
	if d < 0 {
		d = 0
	}
	return d
}

// PlatformStats aggregates dashboard counters.
type PlatformStats struct {
	UsersByRole       map[Role]int          `json:"users_by_role"`
	OnboardedUsers    int                   `json:"onboarded_users"`
	BannedUsers       int                   `json:"banned_users"`
	ProjectsByStatus  map[ProjectStatus]int `json:"projects_by_status"`
	Applications      int                   `json:"applications"`
	CompletedProjects int                   `json:"completed_applications"`
	HoursContributed  int                   `json:"hours_contributed"`
	PaidTransactions  int                   `json:"paid_transactions"`
	RevenueByCurrency map[string]int64      `json:"revenue_by_currency"`
	SignupsLast30Days int                   `json:"signups_last_30_days"`
	GeneratedAt       time.Time             `json:"generated_at"`
}
