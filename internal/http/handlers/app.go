package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/admin"
	"justbecause/internal/assist"
	"justbecause/internal/auth"
	"justbecause/internal/billing"
	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/marketplace"
	"justbecause/internal/messaging"
	"justbecause/internal/metrics"
	"justbecause/internal/middleware"
	"justbecause/internal/notify"
	"justbecause/internal/profiles"
	"justbecause/internal/realtime"
	"justbecause/internal/storage"
	"justbecause/internal/taxonomy"
)

const maxJSONBody = 1 << 20

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// App holds the services every handler reaches into.
type App struct {
	Auth          *auth.Service
	Profiles      *profiles.Service
	Marketplace   *marketplace.Service
	Messaging     *messaging.Service
	Notifications *notify.Service
	Billing       *billing.Service
	Admin         *admin.Service
	Assist        *assist.Service
	Files         *storage.FileStore
	Hub           *realtime.Hub
	Taxonomy      *taxonomy.Taxonomy
	Translator    *i18n.Translator
	Metrics       *metrics.Metrics
	Clock         clockwork.Clock
	Logger        zerolog.Logger
	// Readiness lists the dependencies /v1/readyz pings, by name.
	Readiness      map[string]Check
	AllowedOrigins []string

	openAPI []byte
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if key := "error." + code; message == "" && a.Translator.Has(key) {
		message = a.Translator.T(middleware.LocaleFromContext(r.Context()), key)
	}
	middleware.WriteError(w, status, middleware.ErrorDetail{Code: code, Message: message})
}

// fail maps a service error onto the JSON error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	msg := func(code string) string {
		return a.Translator.T(locale, "error."+code)
	}

	var verr *domain.ValidationError
	var payErr *domain.PaymentRequiredError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorDetail{
			Code: "validation", Message: verr.Reason, Field: verr.Field,
		})
	case errors.Is(err, domain.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorDetail{Code: "validation", Message: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrorDetail{Code: "invalid_credentials", Message: msg("invalid_credentials")})
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrorDetail{Code: "unauthorized", Message: msg("unauthorized")})
	case errors.As(err, &payErr):
		middleware.WriteError(w, http.StatusPaymentRequired, middleware.ErrorDetail{
			Code:    "payment_required",
			Message: msg("payment_required"),
			Details: map[string]any{
				"purpose":      payErr.Purpose,
				"amount_minor": payErr.AmountMinor,
				"currency":     payErr.Currency,
				"gateway":      payErr.Gateway,
				"display":      billing.FormatMoney(locale, payErr.AmountMinor, payErr.Currency),
			},
		})
	case errors.Is(err, domain.ErrBanned):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrorDetail{Code: "banned", Message: msg("banned")})
	case errors.Is(err, domain.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrorDetail{Code: "forbidden", Message: msg("forbidden")})
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrorDetail{Code: "not_found", Message: msg("not_found")})
	case errors.Is(err, domain.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrorDetail{Code: "conflict", Message: msg("conflict")})
	case errors.Is(err, domain.ErrInvalidState):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrorDetail{Code: "invalid_state", Message: msg("invalid_state")})
	case errors.Is(err, domain.ErrQuotaExceeded):
		middleware.WriteError(w, http.StatusTooManyRequests, middleware.ErrorDetail{Code: "quota_exceeded", Message: msg("quota_exceeded")})
	case errors.Is(err, domain.ErrProviderFailure):
		a.log(r).Error().Err(err).Msg("provider failure")
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrorDetail{Code: "provider", Message: msg("provider")})
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
	default:
		a.log(r).Error().Err(err).Msg("request failed")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorDetail{Code: "internal", Message: msg("internal")})
	}
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

// decode reads a JSON body into dst. Unknown fields are rejected.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (a *App) currentUser(r *http.Request) *domain.User {
	return middleware.UserFromContext(r.Context())
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

type page struct {
	Limit  int
	Offset int
}

func pagination(r *http.Request) page {
	q := r.URL.Query()
	p := page{Limit: queryInt(q.Get("limit"), 0), Offset: queryInt(q.Get("offset"), 0)}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func queryInt(raw string, fallback int) int {
	if raw = strings.TrimSpace(raw); raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func list[T any](items []T, total int, p page) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: total, Limit: domain.ClampLimit(p.Limit), Offset: p.Offset}
}
