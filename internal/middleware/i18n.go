package middleware

import (
	"context"
	"net/http"
	"strings"

	"justbecause/internal/i18n"
	"justbecause/internal/infra/geoip"
)

type localeContextKey struct{}
type countryContextKey struct{}

type localeValue struct {
	code     string
	explicit bool
}

// I18N resolves the request locale and country. The locale comes from
// X-Locale, then Accept-Language; when neither matches, Auth may later swap in
// the user's saved locale. The country only drives currency and gateway.
func I18N(tr *i18n.Translator, locator *geoip.Locator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lv := detectLocale(r, tr)
			ctx := context.WithValue(r.Context(), localeContextKey{}, lv)
			if country := locator.Country(r); country != "" {
				ctx = context.WithValue(ctx, countryContextKey{}, country)
			}
			w.Header().Set("Content-Language", lv.code)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, tr *i18n.Translator) localeValue {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if m := tr.Match(v); m != "" {
			return localeValue{code: m, explicit: true}
		}
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if m := tr.Match(v); m != "" {
			return localeValue{code: m, explicit: true}
		}
	}
	return localeValue{code: i18n.DefaultLocale}
}

// withUserLocale applies the saved account locale unless the request chose one.
func withUserLocale(ctx context.Context, locale string) context.Context {
	if locale == "" {
		return ctx
	}
	if lv, ok := ctx.Value(localeContextKey{}).(localeValue); ok && lv.explicit {
		return ctx
	}
	return context.WithValue(ctx, localeContextKey{}, localeValue{code: locale})
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeContextKey{}).(localeValue); ok && v.code != "" {
		return v.code
	}
	return i18n.DefaultLocale
}

// CountryFromContext returns the ISO country code resolved for the request.
func CountryFromContext(ctx context.Context) string {
	v, _ := ctx.Value(countryContextKey{}).(string)
	return v
}
