package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"justbecause/internal/notify"
)

func (a *App) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p := pagination(r)
	unreadOnly := queryBool(r.URL.Query().Get("unread"))
	items, err := a.Notifications.List(r.Context(), a.currentUserID(r), unreadOnly != nil && *unreadOnly, p.Limit, p.Offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]notify.View, 0, len(items))
	for _, n := range items {
		out = append(out, notify.ToView(n))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

func (a *App) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := a.Notifications.MarkRead(r.Context(), a.currentUserID(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.Notifications.MarkAllRead(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"marked": n})
}

func (a *App) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := a.Notifications.UnreadCount(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"unread": n})
}
