package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"justbecause/internal/domain"
	"justbecause/internal/middleware"
	"justbecause/internal/profiles"
)

func (a *App) SaveVolunteerProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.VolunteerProfile
	if !a.decode(w, r, &req) {
		return
	}
	user, err := a.Profiles.SaveVolunteerProfile(r.Context(), a.currentUserID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newAccountView(user, a.Clock.Now()))
}

func (a *App) SaveNGOProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.NGOProfile
	if !a.decode(w, r, &req) {
		return
	}
	user, err := a.Profiles.SaveNGOProfile(r.Context(), a.currentUserID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newAccountView(user, a.Clock.Now()))
}

func (a *App) BrowseVolunteers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination(r)
	items, total, err := a.Profiles.BrowseVolunteers(r.Context(), a.currentUser(r), profiles.VolunteerFilter{
		Query:         q.Get("q"),
		Skill:         q.Get("skill"),
		Cause:         q.Get("cause"),
		WorkMode:      domain.WorkMode(q.Get("work_mode")),
		VolunteerType: domain.VolunteerType(q.Get("volunteer_type")),
		Country:       q.Get("country"),
		Limit:         p.Limit,
		Offset:        p.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, total, p))
}

func (a *App) GetVolunteer(w http.ResponseWriter, r *http.Request) {
	v, err := a.Profiles.GetVolunteer(r.Context(), a.currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, v)
}

// UnlockVolunteer answers 200 when the contact is open and 402 with a price
// quote when the NGO has to pay first.
func (a *App) UnlockVolunteer(w http.ResponseWriter, r *http.Request) {
	country := middleware.CountryFromContext(r.Context())
	res, err := a.Profiles.UnlockVolunteer(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), country)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) UnlockedVolunteers(w http.ResponseWriter, r *http.Request) {
	items, err := a.Profiles.Unlocked(r.Context(), a.currentUser(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, len(items), page{Limit: len(items)}))
}

func (a *App) BrowseNGOs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination(r)
	items, total, err := a.Profiles.BrowseNGOs(r.Context(), profiles.NGOFilter{
		Query:    q.Get("q"),
		Cause:    q.Get("cause"),
		Country:  q.Get("country"),
		Verified: queryBool(q.Get("verified")),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list(items, total, p))
}

func (a *App) GetNGO(w http.ResponseWriter, r *http.Request) {
	n, err := a.Profiles.GetNGO(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, n)
}
