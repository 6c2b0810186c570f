package handlers

import (
	"net/http"

	"justbecause/internal/middleware"
)

func (a *App) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	a.json(w, http.StatusOK, a.Taxonomy)
}

// I18nMessages returns the UI catalog for the request locale.
func (a *App) I18nMessages(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, http.StatusOK, map[string]any{
		"locale":    locale,
		"supported": a.Translator.Supported(),
		"messages":  a.Translator.Messages(locale),
	})
}
