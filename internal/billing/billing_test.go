package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/infra/settings"
	"justbecause/internal/notify"
	"justbecause/internal/profiles"
	"justbecause/internal/taxonomy"
	"justbecause/internal/testutil"
)

type fakeGateway struct {
	name   string
	orders []*domain.Transaction
	err    error
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateOrder(_ context.Context, tx *domain.Transaction, _ *domain.User, _ string) (*Order, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.orders = append(g.orders, tx)
	return &Order{OrderID: fmt.Sprintf("%s_order_%d", g.name, len(g.orders))}, nil
}

const (
	stripeSecret    = "whsec_test"
	razorpayKey     = "rzp_secret"
	razorpayWebhook = "rzp_webhook"
)

type fixture struct {
	svc      *Service
	store    *domain.Store
	clock    *clockwork.FakeClock
	stripe   *fakeGateway
	razorpay *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.Store()
	clock := testutil.Clock()
	tr := i18n.MustNew()
	catalog := NewCatalog(settings.NewStore(store.Settings), GatewayStripe, GatewayRazorpay)
	n := notify.NewService(store, tr, nil, clock, "https://app.example.org", zerolog.Nop())
	prof := profiles.NewService(store, taxonomy.MustLoad(), n, catalog, clock, zerolog.Nop())
	st := &fakeGateway{name: GatewayStripe}
	rz := &fakeGateway{name: GatewayRazorpay}
	svc := NewService(Deps{
		Store:      store,
		Catalog:    catalog,
		Profiles:   prof,
		Notifier:   n,
		Translator: tr,
		Gateways:   []Gateway{st, rz},
		Secrets:    Secrets{StripeWebhook: stripeSecret, RazorpayKey: razorpayKey, RazorpayWebhook: razorpayWebhook},
		Clock:      clock,
		Logger:     zerolog.Nop(),
	})
	return &fixture{svc: svc, store: store, clock: clock, stripe: st, razorpay: rz}
}

func sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRegion(t *testing.T) {
	only := NewCatalog(nil, GatewayStripe)
	tests := []struct {
		country, preferred, gateway, currency string
	}{
		{"IN", "", GatewayRazorpay, "INR"},
		{"in", "", GatewayRazorpay, "INR"},
		{"US", "", GatewayStripe, "USD"},
		{"", "", GatewayStripe, "USD"},
		{"IN", "stripe", GatewayStripe, "USD"},
		{"US", "razorpay", GatewayStripe, "USD"},
	}
	for _, tt := range tests {
		gw, cur := only.Region(tt.country, tt.preferred)
		assert.Equal(t, tt.gateway, gw, "%s/%s", tt.country, tt.preferred)
		assert.Equal(t, tt.currency, cur)
	}
}

func TestQuoteAppliesCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")
	_, err := f.svc.CreateCoupon(ctx, CouponInput{Code: "launch50", Kind: domain.CouponPercent, Value: 50})
	require.NoError(t, err)
	_, err = f.svc.CreateCoupon(ctx, CouponInput{Code: "INR100", Kind: domain.CouponFixed, Value: 10000, Currency: "inr"})
	require.NoError(t, err)

	q, err := f.svc.Quote(ctx, QuoteInput{Buyer: v, Purpose: domain.PurposeSubscription, Country: "IN", Coupon: " Launch50 "})
	require.NoError(t, err)
	assert.Equal(t, ItemVolunteerPro, q.Item)
	assert.Equal(t, int64(49900), q.AmountMinor)
	assert.Equal(t, int64(24950), q.DiscountMinor)
	assert.Equal(t, int64(24950), q.TotalMinor)
	assert.Equal(t, "LAUNCH50", q.CouponCode)

	_, err = f.svc.Quote(ctx, QuoteInput{Buyer: v, Purpose: domain.PurposeSubscription, Country: "US", Coupon: "INR100"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Quote(ctx, QuoteInput{Buyer: v, Purpose: domain.PurposeSubscription, Coupon: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Quote(ctx, QuoteInput{Buyer: v, Purpose: domain.PurposeSubscription, Plan: ItemNGOPro})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckoutSubscriptionAndFulfillOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")

	res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "IN"})
	require.NoError(t, err)
	assert.False(t, res.Fulfilled)
	assert.Equal(t, "razorpay_order_1", res.Order.OrderID)
	assert.Equal(t, domain.TxPending, res.Transaction.Status)
	require.Len(t, f.razorpay.orders, 1)

	sig := sign("razorpay_order_1|pay_1", razorpayKey)
	tx, err := f.svc.ConfirmRazorpay(ctx, v, "razorpay_order_1", "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, domain.TxPaid, tx.Status)

	user := testutil.Reload(t, f.store, v.ID)
	assert.Equal(t, domain.PlanPro, user.Plan)
	require.NotNil(t, user.PlanExpiresAt)
	assert.Equal(t, testutil.Epoch.Add(PlanPeriod), *user.PlanExpiresAt)

	// Webhook arriving after the client confirmation changes nothing.
	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"razorpay_order_1"}}}}`)
	require.NoError(t, f.svc.HandleRazorpayWebhook(ctx, payload, sign(string(payload), razorpayWebhook)))
	user = testutil.Reload(t, f.store, v.ID)
	assert.Equal(t, testutil.Epoch.Add(PlanPeriod), *user.PlanExpiresAt)

	notes, err := f.store.Notifications.ListForUser(ctx, v.ID, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotifyPaymentSucceeded, notes[0].Type)
}

func TestRenewalExtendsFromCurrentExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org", testutil.Pro)

	res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "US"})
	require.NoError(t, err)
	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.NoError(t, err)

	user := testutil.Reload(t, f.store, v.ID)
	assert.Equal(t, testutil.Epoch.Add(2*PlanPeriod), *user.PlanExpiresAt)
}

// failingUsers fails the next n user updates.
type failingUsers struct {
	domain.UserRepository
	n int
}

func (u *failingUsers) Update(ctx context.Context, user *domain.User) error {
	if u.n > 0 {
		u.n--
		return errors.New("connection reset")
	}
	return u.UserRepository.Update(ctx, user)
}

// failingUnlocks fails the next n unlock inserts.
type failingUnlocks struct {
	domain.UnlockRepository
	n int
}

func (u *failingUnlocks) Create(ctx context.Context, unlock *domain.ProfileUnlock) error {
	if u.n > 0 {
		u.n--
		return errors.New("connection reset")
	}
	return u.UnlockRepository.Create(ctx, unlock)
}

func TestFulfillRetryCompletesAfterFailedApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org", testutil.Pro)
	current := *testutil.Reload(t, f.store, v.ID).PlanExpiresAt

	res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "US"})
	require.NoError(t, err)

	users := f.store.Users
	f.store.Users = &failingUsers{UserRepository: users, n: 1}
	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.Error(t, err)

	tx, err := f.store.Transactions.GetByID(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxPaid, tx.Status)
	assert.Nil(t, tx.FulfilledAt)
	assert.Equal(t, current, *testutil.Reload(t, f.store, v.ID).PlanExpiresAt)

	f.clock.Advance(time.Hour)
	tx, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.NoError(t, err)
	require.NotNil(t, tx.FulfilledAt)
	want := current.Add(PlanPeriod)
	assert.Equal(t, want, *testutil.Reload(t, f.store, v.ID).PlanExpiresAt)

	// Further deliveries neither extend again nor notify again.
	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, want, *testutil.Reload(t, f.store, v.ID).PlanExpiresAt)
	notes, err := f.store.Notifications.ListForUser(ctx, v.ID, false, 0, 0)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestFulfillRetryAfterPlanWasApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")
	res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "US"})
	require.NoError(t, err)

	// The plan write lands but the fulfilment stamp is lost.
	_, err = f.store.Transactions.MarkPaid(ctx, res.Transaction.ID, "pi_1", testutil.Epoch)
	require.NoError(t, err)
	tx, err := f.store.Transactions.GetByID(ctx, res.Transaction.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.applySubscription(ctx, tx, testutil.Reload(t, f.store, v.ID), testutil.Epoch))

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, testutil.Epoch.Add(PlanPeriod), *testutil.Reload(t, f.store, v.ID).PlanExpiresAt)
}

func TestFulfillUnlockRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ngo := testutil.NGO(t, f.store, "n@example.org")
	v := testutil.Volunteer(t, f.store, "v@example.org")
	res, err := f.svc.Checkout(ctx, ngo, CheckoutInput{Purpose: domain.PurposeProfileUnlock, TargetUserID: v.ID, Country: "US"})
	require.NoError(t, err)

	unlocks := f.store.Unlocks
	f.store.Unlocks = &failingUnlocks{UnlockRepository: unlocks, n: 1}
	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.Error(t, err)
	ok, err := f.store.Unlocks.Exists(ctx, ngo.ID, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.NoError(t, err)
	ok, err = f.store.Unlocks.Exists(ctx, ngo.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRazorpayWebhook(t *testing.T) {
	event := func(name, orderID string) []byte {
		return []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":"pay_9","order_id":%q}}}}`, name, orderID))
	}
	tests := []struct {
		name       string
		payload    []byte
		signature  func(payload []byte) string
		wantErr    error
		wantStatus domain.TransactionStatus
	}{
		{
			name:       "captured fulfils",
			payload:    event("payment.captured", "razorpay_order_1"),
			wantStatus: domain.TxPaid,
		},
		{
			name:       "failed marks failed",
			payload:    event("payment.failed", "razorpay_order_1"),
			wantStatus: domain.TxFailed,
		},
		{
			name:       "bad signature",
			payload:    event("payment.captured", "razorpay_order_1"),
			signature:  func([]byte) string { return "deadbeef" },
			wantErr:    domain.ErrValidation,
			wantStatus: domain.TxPending,
		},
		{
			name:       "unknown order ignored",
			payload:    event("payment.captured", "order_missing"),
			wantStatus: domain.TxPending,
		},
		{
			name:       "unknown event ignored",
			payload:    event("refund.created", "razorpay_order_1"),
			wantStatus: domain.TxPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			v := testutil.Volunteer(t, f.store, "v@example.org")
			res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "IN"})
			require.NoError(t, err)

			sig := sign(string(tt.payload), razorpayWebhook)
			if tt.signature != nil {
				sig = tt.signature(tt.payload)
			}
			err = f.svc.HandleRazorpayWebhook(ctx, tt.payload, sig)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			tx, err := f.store.Transactions.GetByID(ctx, res.Transaction.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tx.Status)
			wantPlan := domain.PlanFree
			if tt.wantStatus == domain.TxPaid {
				wantPlan = domain.PlanPro
			}
			assert.Equal(t, wantPlan, testutil.Reload(t, f.store, v.ID).Plan)
		})
	}
}

func TestConfirmRazorpayRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")
	other := testutil.Volunteer(t, f.store, "o@example.org")
	_, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "IN"})
	require.NoError(t, err)

	_, err = f.svc.ConfirmRazorpay(ctx, v, "razorpay_order_1", "pay_1", "deadbeef")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.ConfirmRazorpay(ctx, other, "razorpay_order_1", "pay_1", sign("razorpay_order_1|pay_1", razorpayKey))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckoutFullyDiscounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ngo := testutil.NGO(t, f.store, "n@example.org")
	_, err := f.svc.CreateCoupon(ctx, CouponInput{Code: "FREEPRO", Kind: domain.CouponPercent, Value: 100, MaxRedemptions: 1})
	require.NoError(t, err)

	res, err := f.svc.Checkout(ctx, ngo, CheckoutInput{Purpose: domain.PurposeSubscription, Coupon: "FREEPRO"})
	require.NoError(t, err)
	assert.True(t, res.Fulfilled)
	assert.Equal(t, GatewayCoupon, res.Transaction.Gateway)
	assert.Empty(t, f.stripe.orders)
	assert.Equal(t, domain.PlanPro, testutil.Reload(t, f.store, ngo.ID).Plan)

	other := testutil.NGO(t, f.store, "o@example.org")
	_, err = f.svc.Checkout(ctx, other, CheckoutInput{Purpose: domain.PurposeSubscription, Coupon: "FREEPRO"})
	assert.ErrorIs(t, err, domain.ErrValidation, "coupon exhausted")
}

func TestCheckoutUnlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ngo := testutil.NGO(t, f.store, "n@example.org")
	v := testutil.Volunteer(t, f.store, "v@example.org")
	paid := testutil.Volunteer(t, f.store, "p@example.org", func(u *domain.User) {
		u.Volunteer.VolunteerType = domain.VolunteerPaid
	})

	_, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeProfileUnlock, TargetUserID: ngo.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Checkout(ctx, ngo, CheckoutInput{Purpose: domain.PurposeProfileUnlock, TargetUserID: paid.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	res, err := f.svc.Checkout(ctx, ngo, CheckoutInput{Purpose: domain.PurposeProfileUnlock, TargetUserID: v.ID, Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Transaction.AmountMinor)

	_, err = f.svc.Fulfill(ctx, res.Transaction.ID, "pi_1")
	require.NoError(t, err)
	ok, err := f.store.Unlocks.Exists(ctx, ngo.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.Checkout(ctx, ngo, CheckoutInput{Purpose: domain.PurposeProfileUnlock, TargetUserID: v.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCheckoutGatewayFailureMarksTransactionFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")
	f.stripe.err = fmt.Errorf("%w: boom", domain.ErrProviderFailure)

	_, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "US"})
	assert.ErrorIs(t, err, domain.ErrProviderFailure)

	txs, total, err := f.svc.Transactions(ctx, v.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, domain.TxFailed, txs[0].Status)
}

func stripeEvent(t *testing.T, eventType, body string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2024-06-20","type":%q,"data":{"object":%s}}`, eventType, body))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    stripeSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestStripeWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")
	res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "US"})
	require.NoError(t, err)

	payload, header := stripeEvent(t, "checkout.session.completed",
		fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","client_reference_id":%q,"payment_status":"paid","payment_intent":"pi_123"}`, res.Transaction.ID))
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))

	tx, err := f.store.Transactions.GetByID(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxPaid, tx.Status)
	assert.Equal(t, "pi_123", tx.GatewayPaymentID)

	err = f.svc.HandleStripeWebhook(ctx, payload, "t=1,v1=bad")
	assert.ErrorIs(t, err, domain.ErrValidation)

	unknown, header := stripeEvent(t, "customer.created", `{"id":"cus_1","object":"customer"}`)
	assert.NoError(t, f.svc.HandleStripeWebhook(ctx, unknown, header))
}

func TestStripeWebhookExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := testutil.Volunteer(t, f.store, "v@example.org")
	res, err := f.svc.Checkout(ctx, v, CheckoutInput{Purpose: domain.PurposeSubscription, Country: "US"})
	require.NoError(t, err)

	payload, header := stripeEvent(t, "checkout.session.expired",
		fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","client_reference_id":%q,"payment_status":"unpaid"}`, res.Transaction.ID))
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))

	tx, err := f.store.Transactions.GetByID(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxFailed, tx.Status)

	_, err = f.svc.Fulfill(ctx, tx.ID, "late")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSweepExpiries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := testutil.Epoch.Add(48 * time.Hour)
	past := testutil.Epoch.Add(-time.Hour)
	later := testutil.Epoch.Add(10 * 24 * time.Hour)
	expiring := testutil.Volunteer(t, f.store, "soon@example.org", func(u *domain.User) { u.Plan, u.PlanExpiresAt = domain.PlanPro, &soon })
	lapsed := testutil.NGO(t, f.store, "lapsed@example.org", func(u *domain.User) { u.Plan, u.PlanExpiresAt = domain.PlanPro, &past })
	testutil.NGO(t, f.store, "fine@example.org", func(u *domain.User) { u.Plan, u.PlanExpiresAt = domain.PlanPro, &later })

	expired, warned, err := f.svc.SweepExpiries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, warned)
	assert.Equal(t, domain.PlanFree, testutil.Reload(t, f.store, lapsed.ID).Plan)
	assert.Equal(t, domain.PlanPro, testutil.Reload(t, f.store, expiring.ID).Plan)

	f.clock.Advance(time.Hour)
	expired, warned, err = f.svc.SweepExpiries(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Zero(t, warned, "warning is sent once per expiry date")
}

func TestCreateCouponValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name  string
		in    CouponInput
		field string
	}{
		{"short code", CouponInput{Code: "AB", Kind: domain.CouponPercent, Value: 10}, "code"},
		{"percent range", CouponInput{Code: "BIG", Kind: domain.CouponPercent, Value: 101}, "value"},
		{"fixed currency", CouponInput{Code: "EUR5", Kind: domain.CouponFixed, Value: 500, Currency: "EUR"}, "currency"},
		{"kind", CouponInput{Code: "WHAT", Kind: "bogus", Value: 1}, "kind"},
		{"purpose", CouponInput{Code: "PURP", Kind: domain.CouponPercent, Value: 5, Purposes: []domain.Purpose{"donation"}}, "purposes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateCoupon(ctx, tt.in)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	c, err := f.svc.CreateCoupon(ctx, CouponInput{Code: "SPRING", Kind: domain.CouponPercent, Value: 20})
	require.NoError(t, err)
	_, err = f.svc.CreateCoupon(ctx, CouponInput{Code: "spring", Kind: domain.CouponPercent, Value: 20})
	assert.ErrorIs(t, err, domain.ErrConflict)

	off := false
	updated, err := f.svc.UpdateCoupon(ctx, c.ID, CouponPatch{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestPlans(t *testing.T) {
	f := newFixture(t)
	plans, err := f.svc.Plans(context.Background(), "IN", "en")
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "INR", plans[0].Currency)
	assert.Equal(t, int64(49900), plans[0].AmountMinor)
	assert.NotEmpty(t, plans[0].Period)
	assert.Empty(t, plans[2].Period)
	assert.Contains(t, FormatMoney("en", 900, "USD"), "9.00")
}
