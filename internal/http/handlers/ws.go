package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"justbecause/internal/realtime"
)

func (a *App) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     a.checkOrigin,
	}
}

// checkOrigin accepts same-host handshakes and the configured CORS origins.
func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range a.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Websocket upgrades an authenticated request and keeps it registered with
// the hub until the client goes away.
func (a *App) Websocket(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if a.Hub.Count(userID) >= realtime.MaxConnectionsPerUser {
		a.error(w, r, http.StatusTooManyRequests, "rate_limited", realtime.ErrTooManyConnections.Error())
		return
	}
	conn, err := a.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		a.log(r).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	if err := a.Hub.Serve(userID, conn); err != nil {
		a.log(r).Info().Err(err).Str("user_id", userID).Msg("websocket rejected")
	}
}
