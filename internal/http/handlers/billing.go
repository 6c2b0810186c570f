package handlers

import (
	"io"
	"net/http"

	"justbecause/internal/billing"
	"justbecause/internal/domain"
	"justbecause/internal/middleware"
)

const maxWebhookBody = 64 << 10

type quoteRequest struct {
	Purpose domain.Purpose `json:"purpose"`
	Plan    string         `json:"plan"`
	Coupon  string         `json:"coupon"`
	Gateway string         `json:"gateway"`
}

type checkoutRequest struct {
	Purpose      domain.Purpose `json:"purpose"`
	Plan         string         `json:"plan"`
	TargetUserID string         `json:"target_user_id"`
	Coupon       string         `json:"coupon"`
	Gateway      string         `json:"gateway"`
}

type checkoutResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	Quote       *billing.Quote      `json:"quote"`
	Order       *billing.Order      `json:"order,omitempty"`
	Fulfilled   bool                `json:"fulfilled"`
}

type razorpayConfirmRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Plans is public; prices follow the caller's country.
func (a *App) Plans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := a.Billing.Plans(ctx, middleware.CountryFromContext(ctx), middleware.LocaleFromContext(ctx))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": plans})
}

func (a *App) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !a.decode(w, r, &req) {
		return
	}
	q, err := a.Billing.Quote(r.Context(), billing.QuoteInput{
		Buyer:   a.currentUser(r),
		Purpose: req.Purpose,
		Plan:    req.Plan,
		Coupon:  req.Coupon,
		Country: middleware.CountryFromContext(r.Context()),
		Gateway: req.Gateway,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, q)
}

func (a *App) Quote(w http.ResponseWriter, r *http.Request) { a.quote(w, r) }

// ValidateCoupon prices a purchase with the coupon applied; an unusable coupon
// is reported as a validation error on the coupon field.
func (a *App) ValidateCoupon(w http.ResponseWriter, r *http.Request) { a.quote(w, r) }

func (a *App) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Billing.Checkout(r.Context(), a.currentUser(r), billing.CheckoutInput{
		Purpose:      req.Purpose,
		Plan:         req.Plan,
		TargetUserID: req.TargetUserID,
		Coupon:       req.Coupon,
		Country:      middleware.CountryFromContext(r.Context()),
		Gateway:      req.Gateway,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, checkoutResponse{
		Transaction: res.Transaction,
		Quote:       res.Quote,
		Order:       res.Order,
		Fulfilled:   res.Fulfilled,
	})
}

func (a *App) MyTransactions(w http.ResponseWriter, r *http.Request) {
	p := pagination(r)
	items, total, err := a.Billing.Transactions(r.Context(), a.currentUserID(r), p.Limit, p.Offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, total, p))
}

func (a *App) ConfirmRazorpay(w http.ResponseWriter, r *http.Request) {
	var req razorpayConfirmRequest
	if !a.decode(w, r, &req) {
		return
	}
	tx, err := a.Billing.ConfirmRazorpay(r.Context(), a.currentUser(r), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, tx)
}

func (a *App) webhookBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, r, http.StatusRequestEntityTooLarge, "bad_request", "payload too large")
		return nil, false
	}
	return body, true
}

func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := a.webhookBody(w, r)
	if !ok {
		return
	}
	if err := a.Billing.HandleStripeWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}

func (a *App) RazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := a.webhookBody(w, r)
	if !ok {
		return
	}
	if err := a.Billing.HandleRazorpayWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
