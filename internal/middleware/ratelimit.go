package middleware

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"justbecause/internal/ratelimit"
)

// KeyFunc picks the bucket a request counts against.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by the forwarded or remote client address.
func ByClientIP(r *http.Request) string {
	return clientIP(r)
}

// ByUserOrIP keys authenticated requests by user and the rest by address.
func ByUserOrIP(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return "u:" + id
	}
	return clientIP(r)
}

// RateLimit enforces rule per key. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, rule ratelimit.Rule, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || rule.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Allow(r.Context(), rule, key(r))
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("rule", rule.Name).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				WriteError(w, http.StatusTooManyRequests, ErrorDetail{Code: "rate_limited", Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first parseable X-Forwarded-For hop, then the host
// part of RemoteAddr.
func clientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
			return addr.String()
		}
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().String()
	}
	return r.RemoteAddr
}
