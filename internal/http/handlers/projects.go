package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"justbecause/internal/domain"
	"justbecause/internal/marketplace"
)

func (a *App) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req marketplace.ProjectInput
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.Marketplace.CreateProject(r.Context(), a.currentUser(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, p)
}

func (a *App) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req marketplace.ProjectInput
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.Marketplace.UpdateProject(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, p)
}

func (a *App) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := a.Marketplace.DeleteProject(r.Context(), a.currentUser(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) BrowseProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination(r)
	items, total, err := a.Marketplace.BrowseProjects(r.Context(), marketplace.ProjectFilter{
		Query:        q.Get("q"),
		Skill:        q.Get("skill"),
		Cause:        q.Get("cause"),
		WorkMode:     domain.WorkMode(q.Get("work_mode")),
		Compensation: domain.VolunteerType(q.Get("compensation")),
		NGOID:        q.Get("ngo_id"),
		Sort:         domain.ProjectSort(q.Get("sort")),
		Limit:        p.Limit,
		Offset:       p.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, total, p))
}

func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.Marketplace.GetProject(r.Context(), a.currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, p)
}

func (a *App) MyProjects(w http.ResponseWriter, r *http.Request) {
	p := pagination(r)
	items, total, err := a.Marketplace.MyProjects(r.Context(), a.currentUser(r), p.Limit, p.Offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, total, p))
}

func (a *App) RecommendProjects(w http.ResponseWriter, r *http.Request) {
	items, err := a.Marketplace.RecommendProjects(r.Context(), a.currentUser(r), queryInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (a *App) RecommendVolunteers(w http.ResponseWriter, r *http.Request) {
	items, err := a.Marketplace.RecommendVolunteers(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), queryInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
