package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"justbecause/internal/domain"
	"justbecause/internal/messaging"
)

type startConversationRequest struct {
	RecipientID string `json:"recipient_id"`
	ProjectID   string `json:"project_id"`
	Body        string `json:"body"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (a *App) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req startConversationRequest
	if !a.decode(w, r, &req) {
		return
	}
	conv, msg, err := a.Messaging.StartConversation(r.Context(), a.currentUser(r), req.RecipientID, req.ProjectID, req.Body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, startConversationResponse{ConversationID: conv.ID, Message: messaging.ToView(*msg)})
}

func (a *App) ListConversations(w http.ResponseWriter, r *http.Request) {
	p := pagination(r)
	items, err := a.Messaging.ListConversations(r.Context(), a.currentUserID(r), p.Limit, p.Offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]conversationView, 0, len(items))
	for _, c := range items {
		out = append(out, newConversationView(c))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// ListMessages pages backwards with ?before=<RFC3339>.
func (a *App) ListMessages(w http.ResponseWriter, r *http.Request) {
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			a.fail(w, r, domain.Invalid("before", "must be an RFC 3339 timestamp"))
			return
		}
		before = &t
	}
	msgs, err := a.Messaging.ListMessages(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"), before, queryInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]messaging.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messaging.ToView(m))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

func (a *App) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !a.decode(w, r, &req) {
		return
	}
	msg, err := a.Messaging.Send(r.Context(), a.currentUser(r), chi.URLParam(r, "id"), req.Body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, messaging.ToView(*msg))
}

func (a *App) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.Messaging.MarkRead(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"marked": n})
}

func (a *App) UnreadMessages(w http.ResponseWriter, r *http.Request) {
	n, err := a.Messaging.UnreadCount(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"unread": n})
}
