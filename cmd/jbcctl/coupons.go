package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"justbecause/internal/billing"
	"justbecause/internal/domain"
)

type couponFlags struct {
	code     string
	kind     string
	value    int64
	currency string
	max      int
	expires  string
	purposes []string
}

func (f couponFlags) input(now time.Time) (billing.CouponInput, error) {
	in := billing.CouponInput{
		Code:           f.code,
		Kind:           domain.CouponKind(strings.ToLower(f.kind)),
		Value:          f.value,
		Currency:       f.currency,
		MaxRedemptions: f.max,
	}
	if f.expires != "" {
		var exp time.Time
		if d, err := time.ParseDuration(f.expires); err == nil {
			exp = now.Add(d)
		} else if t, err := time.Parse(time.RFC3339, f.expires); err == nil {
			exp = t
		} else {
			return in, domain.Invalid("expires", "must be a duration like 720h or an RFC 3339 time")
		}
		exp = exp.UTC()
		in.ExpiresAt = &exp
	}
	for _, p := range f.purposes {
		in.Purposes = append(in.Purposes, domain.Purpose(strings.TrimSpace(p)))
	}
	return in, nil
}

func (c *cli) couponCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "coupon", Short: "Manage discount coupons"}

	var f couponFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an active coupon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, b, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			in, err := f.input(svc.Clock.Now())
			if err != nil {
				return err
			}
			coupon, err := svc.Billing.CreateCoupon(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.printf("coupon %s created (%s %d)\n", coupon.Code, coupon.Kind, coupon.Value)
			return nil
		},
	}
	create.Flags().StringVar(&f.code, "code", "", "coupon code")
	create.Flags().StringVar(&f.kind, "kind", string(domain.CouponPercent), "percent or fixed")
	create.Flags().Int64Var(&f.value, "value", 0, "percent off, or minor units off for fixed coupons")
	create.Flags().StringVar(&f.currency, "currency", "", "currency of a fixed coupon")
	create.Flags().IntVar(&f.max, "max-redemptions", 0, "redemption cap, 0 for unlimited")
	create.Flags().StringVar(&f.expires, "expires", "", "expiry as a duration from now or an RFC 3339 time")
	create.Flags().StringSliceVar(&f.purposes, "purpose", nil, "limit to subscription or profile_unlock (repeatable)")
	_ = create.MarkFlagRequired("code")
	_ = create.MarkFlagRequired("value")

	cmd.AddCommand(create)
	return cmd
}
