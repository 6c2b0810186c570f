package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/metrics"
	"justbecause/internal/notify"
	"justbecause/internal/profiles"
)

// Secrets verify inbound gateway callbacks.
type Secrets struct {
	StripeWebhook   string
	RazorpayKey     string
	RazorpayWebhook string
}

type Service struct {
	store      *domain.Store
	catalog    *Catalog
	profiles   *profiles.Service
	notifier   *notify.Service
	translator *i18n.Translator
	gateways   map[string]Gateway
	secrets    Secrets
	clock      clockwork.Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

type Deps struct {
	Store      *domain.Store
	Catalog    *Catalog
	Profiles   *profiles.Service
	Notifier   *notify.Service
	Translator *i18n.Translator
	Gateways   []Gateway
	Secrets    Secrets
	Clock      clockwork.Clock
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

func NewService(d Deps) *Service {
	gws := make(map[string]Gateway, len(d.Gateways))
	for _, g := range d.Gateways {
		gws[g.Name()] = g
	}
	return &Service{
		store:      d.Store,
		catalog:    d.Catalog,
		profiles:   d.Profiles,
		notifier:   d.Notifier,
		translator: d.Translator,
		gateways:   gws,
		secrets:    d.Secrets,
		clock:      d.Clock,
		metrics:    d.Metrics,
		logger:     d.Logger.With().Str("component", "billing").Logger(),
	}
}

// Quote prices a purchase for buyer without creating anything.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	return s.catalog.Quote(ctx, s.store.Coupons, s.clock.Now(), in)
}

// PlanQuote is one row of the public price table.
type PlanQuote struct {
	Item        string `json:"item"`
	Name        string `json:"name"`
	Period      string `json:"period,omitempty"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Display     string `json:"display"`
	Gateway     string `json:"gateway"`
}

// Plans lists prices in the buyer's region, localized for locale.
func (s *Service) Plans(ctx context.Context, country, locale string) ([]PlanQuote, error) {
	gateway, cur := s.catalog.Region(country, "")
	var out []PlanQuote
	for _, item := range []string{ItemVolunteerPro, ItemNGOPro, ItemProfileUnlock} {
		amount, err := s.catalog.Price(ctx, item, cur)
		if err != nil {
			return nil, err
		}
		q := PlanQuote{
			Item:        item,
			Name:        s.translator.T(locale, "plan."+item),
			AmountMinor: amount,
			Currency:    cur,
			Display:     FormatMoney(locale, amount, cur),
			Gateway:     gateway,
		}
		if item != ItemProfileUnlock {
			q.Period = s.translator.T(locale, "plan.period")
		}
		out = append(out, q)
	}
	return out, nil
}

type CheckoutInput struct {
	Purpose      domain.Purpose
	Plan         string
	TargetUserID string
	Coupon       string
	Country      string
	Gateway      string
}

type CheckoutResult struct {
	Transaction *domain.Transaction
	Quote       *Quote
	Order       *Order
	// Fulfilled is set when a coupon covered the whole price.
	Fulfilled bool
}

// Checkout creates a pending transaction and opens it with the gateway.
func (s *Service) Checkout(ctx context.Context, buyer *domain.User, in CheckoutInput) (*CheckoutResult, error) {
	if !in.Purpose.Valid() {
		return nil, domain.Invalid("purpose", "must be subscription or profile_unlock")
	}
	if in.Purpose == domain.PurposeProfileUnlock {
		if err := s.checkUnlockTarget(ctx, buyer, in.TargetUserID); err != nil {
			return nil, err
		}
	} else {
		in.TargetUserID = ""
	}
	quote, err := s.Quote(ctx, QuoteInput{
		Buyer: buyer, Purpose: in.Purpose, Plan: in.Plan, Coupon: in.Coupon,
		Country: in.Country, Gateway: in.Gateway,
	})
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:        buyer.ID,
		Purpose:       in.Purpose,
		TargetUserID:  in.TargetUserID,
		Gateway:       quote.Gateway,
		AmountMinor:   quote.AmountMinor,
		DiscountMinor: quote.DiscountMinor,
		Currency:      quote.Currency,
		CouponCode:    quote.CouponCode,
		Status:        domain.TxPending,
		CreatedAt:     s.clock.Now().UTC(),
	}
	if in.Purpose == domain.PurposeSubscription {
		tx.Plan = domain.PlanPro
	}

	if quote.TotalMinor == 0 {
		tx.Gateway = GatewayCoupon
		if err := s.store.Transactions.Create(ctx, tx); err != nil {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
		paid, err := s.Fulfill(ctx, tx.ID, "")
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Transaction: paid, Quote: quote, Fulfilled: true}, nil
	}

	gw, ok := s.gateways[quote.Gateway]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", domain.ErrProviderFailure, quote.Gateway)
	}
	if err := s.store.Transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	order, err := gw.CreateOrder(ctx, tx, buyer, s.translator.T(buyer.Locale, "plan."+quote.Item))
	if err != nil {
		s.metrics.Payment(gw.Name(), "error")
		if ferr := s.store.Transactions.MarkFailed(ctx, tx.ID, s.clock.Now().UTC()); ferr != nil {
			s.logger.Error().Err(ferr).Str("transaction_id", tx.ID).Msg("mark failed after gateway error")
		}
		return nil, err
	}
	if err := s.store.Transactions.SetGatewayOrder(ctx, tx.ID, order.OrderID); err != nil {
		return nil, fmt.Errorf("store gateway order: %w", err)
	}
	tx.GatewayOrderID = order.OrderID
	s.metrics.Payment(gw.Name(), "created")
	return &CheckoutResult{Transaction: tx, Quote: quote, Order: order}, nil
}

func (s *Service) checkUnlockTarget(ctx context.Context, buyer *domain.User, targetID string) error {
	if buyer.Role != domain.RoleNGO {
		return fmt.Errorf("%w: only organisations can unlock profiles", domain.ErrForbidden)
	}
	if targetID == "" {
		return domain.Invalid("target_user_id", "is required")
	}
	target, err := s.store.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("target_user_id", "volunteer not found")
		}
		return err
	}
	if target.Role != domain.RoleVolunteer {
		return domain.Invalid("target_user_id", "must be a volunteer")
	}
	visible, err := s.profiles.ContactVisible(ctx, buyer, target)
	if err != nil {
		return err
	}
	if visible {
		return fmt.Errorf("%w: contact details are already visible", domain.ErrConflict)
	}
	return nil
}

// Fulfill marks a transaction paid and applies it exactly once. A call that
// failed part-way is completed by the next one; calls after a completed
// fulfilment return the stored transaction.
func (s *Service) Fulfill(ctx context.Context, transactionID, paymentID string) (*domain.Transaction, error) {
	now := s.clock.Now().UTC()
	if _, err := s.store.Transactions.MarkPaid(ctx, transactionID, paymentID, now); err != nil {
		return nil, err
	}
	tx, err := s.store.Transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxPaid {
		return nil, fmt.Errorf("%w: transaction is %s", domain.ErrInvalidState, tx.Status)
	}
	if tx.FulfilledAt != nil {
		return tx, nil
	}

	// A paid but unfulfilled transaction is either new or left behind by a
	// failed attempt. Both effects below are safe to repeat.
	buyer, err := s.store.Users.GetByID(ctx, tx.UserID)
	if err != nil {
		return nil, fmt.Errorf("load buyer: %w", err)
	}
	item, err := ItemFor(buyer, tx.Purpose)
	if err != nil {
		return nil, err
	}
	switch tx.Purpose {
	case domain.PurposeSubscription:
		if err := s.applySubscription(ctx, tx, buyer, now); err != nil {
			return nil, fmt.Errorf("apply subscription: %w", err)
		}
	case domain.PurposeProfileUnlock:
		unlocked, err := s.store.Unlocks.Exists(ctx, buyer.ID, tx.TargetUserID)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			if err := s.profiles.GrantUnlock(ctx, buyer, tx.TargetUserID, domain.UnlockPayment, tx.ID); err != nil {
				return nil, err
			}
		}
	}

	first, err := s.store.Transactions.MarkFulfilled(ctx, tx.ID, now)
	if err != nil {
		return nil, fmt.Errorf("record fulfilment: %w", err)
	}
	tx.FulfilledAt = &now
	if !first {
		return tx, nil
	}

	if tx.CouponCode != "" {
		s.redeem(ctx, tx.CouponCode)
	}
	s.metrics.Payment(tx.Gateway, "paid")

	amount := FormatMoney(buyer.Locale, tx.AmountMinor-tx.DiscountMinor, tx.Currency)
	_, err = s.notifier.Notify(ctx, buyer.ID, notify.Event{
		Type: domain.NotifyPaymentSucceeded,
		Args: []any{amount, s.translator.T(buyer.Locale, "plan."+item)},
		Link: "/billing",
		Data: map[string]any{"transaction_id": tx.ID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", tx.ID).Msg("payment notification failed")
	}
	s.logger.Info().Str("transaction_id", tx.ID).Str("user_id", buyer.ID).Str("purpose", string(tx.Purpose)).Msg("transaction fulfilled")
	return tx, nil
}

// applySubscription extends the buyer's pro plan by one period. The granted
// expiry is pinned on the transaction first, so repeating the call after a
// partial failure never extends twice.
func (s *Service) applySubscription(ctx context.Context, tx *domain.Transaction, buyer *domain.User, now time.Time) error {
	base := now
	if buyer.Plan == domain.PlanPro && buyer.PlanExpiresAt != nil && buyer.PlanExpiresAt.After(now) {
		base = *buyer.PlanExpiresAt
	}
	grant, err := s.store.Transactions.PinGrantExpiry(ctx, tx.ID, base.Add(PlanPeriod))
	if err != nil {
		return err
	}
	tx.GrantExpiresAt = &grant
	if buyer.Plan == domain.PlanPro && buyer.PlanExpiresAt != nil && !buyer.PlanExpiresAt.Before(grant) {
		return nil
	}
	buyer.Plan = domain.PlanPro
	buyer.PlanExpiresAt = &grant
	return s.store.Users.Update(ctx, buyer)
}

func (s *Service) redeem(ctx context.Context, code string) {
	coupon, err := s.store.Coupons.GetByCode(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("coupon", code).Msg("coupon lookup failed")
		return
	}
	ok, err := s.store.Coupons.Redeem(ctx, coupon.ID)
	if err != nil || !ok {
		s.logger.Warn().Err(err).Str("coupon", code).Msg("coupon could not be redeemed")
	}
}

// HandleStripeWebhook verifies and applies a Stripe event.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.secrets.StripeWebhook == "" {
		return fmt.Errorf("%w: stripe webhooks are not configured", domain.ErrProviderFailure)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.secrets.StripeWebhook,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return domain.Invalid("signature", "invalid stripe signature")
	}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return domain.Invalid("payload", "malformed checkout session")
		}
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil
		}
		tx, err := s.stripeTransaction(ctx, &cs)
		if err != nil || tx == nil {
			return err
		}
		paymentID := ""
		if cs.PaymentIntent != nil {
			paymentID = cs.PaymentIntent.ID
		}
		_, err = s.Fulfill(ctx, tx.ID, paymentID)
		return err
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return domain.Invalid("payload", "malformed checkout session")
		}
		tx, err := s.stripeTransaction(ctx, &cs)
		if err != nil || tx == nil {
			return err
		}
		s.metrics.Payment(GatewayStripe, "failed")
		return s.store.Transactions.MarkFailed(ctx, tx.ID, s.clock.Now().UTC())
	default:
		s.logger.Debug().Str("type", string(event.Type)).Msg("ignoring stripe event")
		return nil
	}
}

// stripeTransaction finds the transaction behind a session. Unknown sessions
// are logged and skipped so Stripe stops retrying them.
func (s *Service) stripeTransaction(ctx context.Context, cs *stripe.CheckoutSession) (*domain.Transaction, error) {
	var (
		tx  *domain.Transaction
		err error
	)
	if cs.ClientReferenceID != "" {
		tx, err = s.store.Transactions.GetByID(ctx, cs.ClientReferenceID)
	} else {
		tx, err = s.store.Transactions.GetByGatewayOrder(ctx, GatewayStripe, cs.ID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn().Str("session_id", cs.ID).Msg("stripe session has no transaction")
		return nil, nil
	}
	return tx, err
}

// ConfirmRazorpay applies a payment the client completed in Razorpay
// Checkout. The signature proves the (order, payment) pair came from Razorpay.
func (s *Service) ConfirmRazorpay(ctx context.Context, buyer *domain.User, orderID, paymentID, signature string) (*domain.Transaction, error) {
	if s.secrets.RazorpayKey == "" {
		return nil, fmt.Errorf("%w: razorpay is not configured", domain.ErrProviderFailure)
	}
	if !validSignature(orderID+"|"+paymentID, s.secrets.RazorpayKey, signature) {
		return nil, domain.Invalid("signature", "invalid razorpay signature")
	}
	tx, err := s.store.Transactions.GetByGatewayOrder(ctx, GatewayRazorpay, orderID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != buyer.ID {
		return nil, domain.ErrNotFound
	}
	return s.Fulfill(ctx, tx.ID, paymentID)
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleRazorpayWebhook verifies and applies a Razorpay event.
func (s *Service) HandleRazorpayWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.secrets.RazorpayWebhook == "" {
		return fmt.Errorf("%w: razorpay webhooks are not configured", domain.ErrProviderFailure)
	}
	if !validSignature(string(payload), s.secrets.RazorpayWebhook, signature) {
		return domain.Invalid("signature", "invalid razorpay signature")
	}
	var ev razorpayEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.Invalid("payload", "malformed event")
	}
	payment := ev.Payload.Payment.Entity
	if ev.Event != "payment.captured" && ev.Event != "payment.failed" {
		s.logger.Debug().Str("type", ev.Event).Msg("ignoring razorpay event")
		return nil
	}
	tx, err := s.store.Transactions.GetByGatewayOrder(ctx, GatewayRazorpay, payment.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn().Str("order_id", payment.OrderID).Msg("razorpay order has no transaction")
		return nil
	}
	if err != nil {
		return err
	}
	if ev.Event == "payment.failed" {
		s.metrics.Payment(GatewayRazorpay, "failed")
		return s.store.Transactions.MarkFailed(ctx, tx.ID, s.clock.Now().UTC())
	}
	_, err = s.Fulfill(ctx, tx.ID, payment.ID)
	return err
}

func validSignature(message, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Transactions lists a user's payment history.
func (s *Service) Transactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int, error) {
	return s.store.Transactions.List(ctx, domain.TransactionFilter{UserID: userID, Limit: domain.ClampLimit(limit), Offset: offset})
}

// AllTransactions lists payments for administrators.
func (s *Service) AllTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	f.Limit = domain.ClampLimit(f.Limit)
	return s.store.Transactions.List(ctx, f)
}

const expiryWarning = 3 * 24 * time.Hour

// SweepExpiries downgrades lapsed Pro plans and warns users whose plan ends
// within three days. Each expiry date is warned about once.
func (s *Service) SweepExpiries(ctx context.Context) (expired, warned int, err error) {
	now := s.clock.Now().UTC()
	users, err := s.store.Users.ListPlansExpiringBefore(ctx, now.Add(expiryWarning))
	if err != nil {
		return 0, 0, err
	}
	for i := range users {
		u := &users[i]
		if !u.PlanExpiresAt.After(now) {
			u.Plan = domain.PlanFree
			if err := s.store.Users.Update(ctx, u); err != nil {
				return expired, warned, fmt.Errorf("downgrade %s: %w", u.ID, err)
			}
			expired++
			s.notifyUser(ctx, u.ID, notify.Event{Type: domain.NotifySubscriptionExpired, Link: "/billing"})
			continue
		}
		date := u.PlanExpiresAt.Format("2006-01-02")
		sent, err := s.notifier.SentSince(ctx, u.ID, domain.NotifySubscriptionExpiry, "expires_on", date, time.Time{})
		if err != nil {
			return expired, warned, err
		}
		if sent {
			continue
		}
		warned++
		s.notifyUser(ctx, u.ID, notify.Event{
			Type: domain.NotifySubscriptionExpiry,
			Args: []any{date},
			Link: "/billing",
			Data: map[string]any{"expires_on": date},
		})
	}
	return expired, warned, nil
}

func (s *Service) notifyUser(ctx context.Context, userID string, ev notify.Event) {
	if _, err := s.notifier.Notify(ctx, userID, ev); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("type", string(ev.Type)).Msg("notification failed")
	}
}
