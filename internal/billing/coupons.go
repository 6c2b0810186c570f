package billing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"justbecause/internal/domain"
)

var couponCodeRe = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

type CouponInput struct {
	Code           string
	Kind           domain.CouponKind
	Value          int64
	Currency       string
	MaxRedemptions int
	ExpiresAt      *time.Time
	Purposes       []domain.Purpose
}

func (s *Service) CreateCoupon(ctx context.Context, in CouponInput) (*domain.Coupon, error) {
	c := &domain.Coupon{
		Code:           domain.NormalizeCouponCode(in.Code),
		Kind:           in.Kind,
		Value:          in.Value,
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		MaxRedemptions: in.MaxRedemptions,
		ExpiresAt:      in.ExpiresAt,
		Purposes:       in.Purposes,
		Active:         true,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if !couponCodeRe.MatchString(c.Code) {
		return nil, domain.Invalid("code", "must be 3-32 letters, digits, '-' or '_'")
	}
	switch c.Kind {
	case domain.CouponPercent:
		if c.Value < 1 || c.Value > 100 {
			return nil, domain.Invalid("value", "percent must be between 1 and 100")
		}
		c.Currency = ""
	case domain.CouponFixed:
		if c.Value <= 0 {
			return nil, domain.Invalid("value", "must be positive")
		}
		if _, ok := map[string]bool{"INR": true, "USD": true}[c.Currency]; !ok {
			return nil, domain.Invalid("currency", "must be INR or USD")
		}
	default:
		return nil, domain.Invalid("kind", "must be percent or fixed")
	}
	if c.MaxRedemptions < 0 {
		return nil, domain.Invalid("max_redemptions", "must not be negative")
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(s.clock.Now()) {
		return nil, domain.Invalid("expires_at", "must be in the future")
	}
	for _, p := range c.Purposes {
		if !p.Valid() {
			return nil, domain.Invalid("purposes", fmt.Sprintf("unknown purpose %q", p))
		}
	}
	if err := s.store.Coupons.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Coupons(ctx context.Context) ([]domain.Coupon, error) {
	return s.store.Coupons.List(ctx)
}

// CouponPatch changes an existing coupon. Nil fields are left alone.
type CouponPatch struct {
	Active         *bool
	MaxRedemptions *int
	ExpiresAt      *time.Time
	ClearExpiry    bool
}

func (s *Service) UpdateCoupon(ctx context.Context, id string, p CouponPatch) (*domain.Coupon, error) {
	c, err := s.store.Coupons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if p.MaxRedemptions != nil {
		if *p.MaxRedemptions < 0 {
			return nil, domain.Invalid("max_redemptions", "must not be negative")
		}
		c.MaxRedemptions = *p.MaxRedemptions
	}
	if p.ClearExpiry {
		c.ExpiresAt = nil
	} else if p.ExpiresAt != nil {
		c.ExpiresAt = p.ExpiresAt
	}
	if err := s.store.Coupons.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
