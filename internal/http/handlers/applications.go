package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"justbecause/internal/domain"
	"justbecause/internal/marketplace"
)

type applyRequest struct {
	CoverLetter  string `json:"cover_letter"`
	Availability string `json:"availability"`
}

type statusRequest struct {
	Status domain.ApplicationStatus `json:"status"`
	Note   string                   `json:"note"`
}

func (a *App) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !a.decode(w, r, &req) {
		return
	}
	app, err := a.Marketplace.Apply(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), marketplace.ApplyInput{
		CoverLetter:  req.CoverLetter,
		Availability: req.Availability,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, marketplace.NewApplicationView(*app))
}

func (a *App) ProjectApplications(w http.ResponseWriter, r *http.Request) {
	status := domain.ApplicationStatus(r.URL.Query().Get("status"))
	items, err := a.Marketplace.ListProjectApplications(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (a *App) MyApplications(w http.ResponseWriter, r *http.Request) {
	items, err := a.Marketplace.MyApplications(r.Context(), a.currentUser(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (a *App) ChangeApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	app, err := a.Marketplace.ChangeStatus(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, marketplace.NewApplicationView(*app))
}

func (a *App) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	app, err := a.Marketplace.Withdraw(r.Context(), a.currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, marketplace.NewApplicationView(*app))
}
