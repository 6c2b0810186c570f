package handlers

import (
	"net/http"

	"justbecause/internal/assist"
	"justbecause/internal/middleware"
)

type draftRequest struct {
	Title  string   `json:"title"`
	Skills []string `json:"skills"`
	Causes []string `json:"causes"`
	Notes  string   `json:"notes"`
	Locale string   `json:"locale"`
}

type suggestRequest struct {
	Text string `json:"text"`
}

func (a *App) DraftDescription(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Locale == "" {
		req.Locale = middleware.LocaleFromContext(r.Context())
	}
	d, err := a.Assist.DraftProjectDescription(r.Context(), a.currentUser(r), assist.DraftRequest{
		Title:  req.Title,
		Skills: req.Skills,
		Causes: req.Causes,
		Notes:  req.Notes,
		Locale: req.Locale,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, d)
}

func (a *App) SuggestSkills(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !a.decode(w, r, &req) {
		return
	}
	skills, err := a.Assist.SuggestSkills(r.Context(), a.currentUser(r), req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"skills": nonNil(skills)})
}
