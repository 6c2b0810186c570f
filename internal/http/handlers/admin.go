package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"justbecause/internal/admin"
	"justbecause/internal/billing"
	"justbecause/internal/domain"
)

type verifyRequest struct {
	Verified bool `json:"verified"`
}

type couponRequest struct {
	Code           string            `json:"code"`
	Kind           domain.CouponKind `json:"kind"`
	Value          int64             `json:"value"`
	Currency       string            `json:"currency"`
	MaxRedemptions int               `json:"max_redemptions"`
	ExpiresAt      *time.Time        `json:"expires_at"`
	Purposes       []domain.Purpose  `json:"purposes"`
}

type couponPatchRequest struct {
	Active         *bool      `json:"active"`
	MaxRedemptions *int       `json:"max_redemptions"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ClearExpiry    bool       `json:"clear_expiry"`
}

func (a *App) PublicStats(w http.ResponseWriter, r *http.Request) {
	s, err := a.Admin.PublicStats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *App) AdminStats(w http.ResponseWriter, r *http.Request) {
	s, err := a.Admin.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *App) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination(r)
	users, total, err := a.Admin.ListUsers(r.Context(), admin.UserFilter{
		Role:   domain.Role(q.Get("role")),
		Query:  q.Get("q"),
		Banned: queryBool(q.Get("banned")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	now := a.Clock.Now()
	out := make([]adminUserView, 0, len(users))
	for i := range users {
		out = append(out, newAdminUserView(&users[i], now))
	}
	a.json(w, http.StatusOK, list(out, total, p))
}

func (a *App) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req admin.UserPatch
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.Admin.UpdateUser(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newAdminUserView(u, a.Clock.Now()))
}

func (a *App) AdminVerifyNGO(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.Admin.VerifyNGO(r.Context(), chi.URLParam(r, "id"), req.Verified)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newAdminUserView(u, a.Clock.Now()))
}

func (a *App) AdminTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination(r)
	items, total, err := a.Billing.AllTransactions(r.Context(), domain.TransactionFilter{
		UserID: q.Get("user_id"),
		Status: domain.TransactionStatus(q.Get("status")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, total, p))
}

func (a *App) AdminCoupons(w http.ResponseWriter, r *http.Request) {
	items, err := a.Billing.Coupons(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (a *App) AdminCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.Billing.CreateCoupon(r.Context(), billing.CouponInput{
		Code:           req.Code,
		Kind:           req.Kind,
		Value:          req.Value,
		Currency:       req.Currency,
		MaxRedemptions: req.MaxRedemptions,
		ExpiresAt:      req.ExpiresAt,
		Purposes:       req.Purposes,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, c)
}

func (a *App) AdminUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPatchRequest
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.Billing.UpdateCoupon(r.Context(), chi.URLParam(r, "id"), billing.CouponPatch{
		Active:         req.Active,
		MaxRedemptions: req.MaxRedemptions,
		ExpiresAt:      req.ExpiresAt,
		ClearExpiry:    req.ClearExpiry,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, c)
}

func (a *App) AdminSettings(w http.ResponseWriter, r *http.Request) {
	s, err := a.Admin.Settings(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *App) AdminPutSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !a.decode(w, r, &req) {
		return
	}
	s, err := a.Admin.PutSettings(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s)
}

// AdminDeleteProject removes any project regardless of status.
func (a *App) AdminDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := a.Marketplace.DeleteProject(r.Context(), a.currentUser(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
