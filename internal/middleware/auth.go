package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"justbecause/internal/domain"
)

// Authenticator resolves a bearer token to the live user record.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type userContextKey struct{}

// ContextWithUser stores the authenticated user in ctx.
func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user or nil.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey{}).(*domain.User)
	return u
}

func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	// Browsers cannot set headers on a websocket handshake.
	return r.URL.Query().Get("access_token")
}

func authenticate(authn Authenticator, r *http.Request) (*http.Request, error) {
	token := bearerToken(r)
	if token == "" {
		return r, domain.ErrUnauthorized
	}
	user, err := authn.Authenticate(r.Context(), token)
	if err != nil {
		return r, err
	}
	if st := stateFrom(r); st != nil {
		st.userID = user.ID
	}
	ctx := ContextWithUser(r.Context(), user)
	ctx = withUserLocale(ctx, user.Locale)
	return r.WithContext(ctx), nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrBanned) {
		WriteError(w, http.StatusForbidden, ErrorDetail{Code: "banned", Message: "account suspended"})
		return
	}
	WriteError(w, http.StatusUnauthorized, ErrorDetail{Code: "unauthorized", Message: "authentication required"})
}

// Auth rejects requests without a valid token.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, err := authenticate(authn, r)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through. Invalid or banned tokens are still rejected.
func OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			r, err := authenticate(authn, r)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after Auth.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeAuthError(w, domain.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, ErrorDetail{Code: "forbidden", Message: "insufficient role"})
		})
	}
}
