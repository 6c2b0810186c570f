// Package billing prices plans and profile unlocks, runs checkout through
// Stripe or Razorpay and applies what was paid for.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"justbecause/internal/domain"
	"justbecause/internal/infra/settings"
)

const (
	GatewayStripe   = "stripe"
	GatewayRazorpay = "razorpay"
	// GatewayCoupon marks transactions fully covered by a discount.
	GatewayCoupon = "coupon"

	// PlanPeriod is the length of one paid Pro period.
	PlanPeriod = 30 * 24 * time.Hour
)

// Price items as used in setting keys and plan names.
const (
	ItemVolunteerPro  = "volunteer_pro"
	ItemNGOPro        = "ngo_pro"
	ItemProfileUnlock = "profile_unlock"
)

var gatewayCurrency = map[string]string{
	GatewayStripe:   "USD",
	GatewayRazorpay: "INR",
}

// Catalog resolves prices, currencies and gateways.
type Catalog struct {
	settings *settings.Store
	enabled  map[string]bool
}

// NewCatalog builds a catalog; enabled lists the configured gateways.
func NewCatalog(s *settings.Store, enabled ...string) *Catalog {
	c := &Catalog{settings: s, enabled: make(map[string]bool)}
	for _, g := range enabled {
		c.enabled[g] = true
	}
	return c
}

// Region picks the gateway and currency for a buyer in country. Indian buyers
// pay in INR through Razorpay, everyone else in USD through Stripe. preferred
// overrides the choice when that gateway is configured.
func (c *Catalog) Region(country, preferred string) (gateway, cur string) {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred != "" && c.enabled[preferred] {
		return preferred, gatewayCurrency[preferred]
	}
	if strings.EqualFold(country, "IN") {
		return GatewayRazorpay, "INR"
	}
	return GatewayStripe, "USD"
}

// ItemFor maps a purchase to its price item. Subscriptions follow the buyer's role.
func ItemFor(buyer *domain.User, purpose domain.Purpose) (string, error) {
	switch purpose {
	case domain.PurposeProfileUnlock:
		return ItemProfileUnlock, nil
	case domain.PurposeSubscription:
		switch buyer.Role {
		case domain.RoleVolunteer:
			return ItemVolunteerPro, nil
		case domain.RoleNGO:
			return ItemNGOPro, nil
		}
		return "", fmt.Errorf("%w: only volunteers and organisations can subscribe", domain.ErrForbidden)
	}
	return "", domain.Invalid("purpose", "must be subscription or profile_unlock")
}

func (c *Catalog) Price(ctx context.Context, item, cur string) (int64, error) {
	return c.settings.Int(ctx, settings.PriceKey(item, cur))
}

// Quote is the price of one purchase after any coupon.
type Quote struct {
	Purpose       domain.Purpose `json:"purpose"`
	Item          string         `json:"item"`
	AmountMinor   int64          `json:"amount_minor"`
	DiscountMinor int64          `json:"discount_minor"`
	TotalMinor    int64          `json:"total_minor"`
	Currency      string         `json:"currency"`
	Gateway       string         `json:"gateway"`
	CouponCode    string         `json:"coupon_code,omitempty"`

	coupon *domain.Coupon
}

type QuoteInput struct {
	Buyer   *domain.User
	Purpose domain.Purpose
	Plan    string
	Coupon  string
	Country string
	Gateway string
}

// Quote prices a purchase. A coupon that fails its checks is a validation error.
func (c *Catalog) Quote(ctx context.Context, coupons domain.CouponRepository, now time.Time, in QuoteInput) (*Quote, error) {
	item, err := ItemFor(in.Buyer, in.Purpose)
	if err != nil {
		return nil, err
	}
	if in.Plan != "" && in.Plan != item {
		return nil, domain.Invalid("plan", fmt.Sprintf("%s accounts can only buy %s", in.Buyer.Role, item))
	}
	gateway, cur := c.Region(in.Country, in.Gateway)
	amount, err := c.Price(ctx, item, cur)
	if err != nil {
		return nil, err
	}
	q := &Quote{Purpose: in.Purpose, Item: item, AmountMinor: amount, Currency: cur, Gateway: gateway}
	if code := domain.NormalizeCouponCode(in.Coupon); code != "" {
		coupon, err := coupons.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Invalid("coupon", "coupon not found")
			}
			return nil, err
		}
		if err := coupon.Check(now, in.Purpose, cur); err != nil {
			return nil, err
		}
		q.CouponCode = coupon.Code
		q.DiscountMinor = coupon.Discount(amount)
		q.coupon = coupon
	}
	q.TotalMinor = q.AmountMinor - q.DiscountMinor
	return q, nil
}

// UnlockPrice quotes a profile unlock as a PaymentRequiredError the caller
// can return directly.
func (c *Catalog) UnlockPrice(ctx context.Context, _ *domain.User, country string) (*domain.PaymentRequiredError, error) {
	gateway, cur := c.Region(country, "")
	amount, err := c.Price(ctx, ItemProfileUnlock, cur)
	if err != nil {
		return nil, err
	}
	return &domain.PaymentRequiredError{
		Purpose:     domain.PurposeProfileUnlock,
		AmountMinor: amount,
		Currency:    cur,
		Gateway:     gateway,
	}, nil
}

// FormatMoney renders a minor-unit amount for locale, e.g. "$9.00".
func FormatMoney(locale string, amountMinor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f %s", float64(amountMinor)/100, code)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit.Amount(float64(amountMinor) / 100)))
}
