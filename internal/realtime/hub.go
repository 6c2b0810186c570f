// Package realtime pushes JSON events to users' open websocket connections.
package realtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"justbecause/internal/metrics"
)

// MaxConnectionsPerUser caps simultaneous sockets per account.
const MaxConnectionsPerUser = 5

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var ErrTooManyConnections = fmt.Errorf("at most %d live connections per user", MaxConnectionsPerUser)

var ErrHubStopped = errors.New("realtime hub stopped")

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	userID string
	conn   *websocket.Conn
	errCh  chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	userID string
	conn   *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdDeliver struct {
	userID string
	data   []byte
}

func (cmdDeliver) hubCmd() {}

type cmdCount struct {
	userID  string
	replyCh chan int
}

func (cmdCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := cw.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	_ = cw.conn.Close()
}

// Hub owns every connection. All state is confined to the run goroutine and
// mutated through commands.
type Hub struct {
	cmdCh   chan hubCmd
	stopped chan struct{}
	clients map[string]map[*websocket.Conn]*clientWriter
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewHub(logger zerolog.Logger, m *metrics.Metrics) *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		stopped: make(chan struct{}),
		clients: make(map[string]map[*websocket.Conn]*clientWriter),
		logger:  logger.With().Str("component", "hub").Logger(),
		metrics: m,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.userID, c.conn)
		case cmdDeliver:
			h.handleDeliver(c)
		case cmdCount:
			c.replyCh <- len(h.clients[c.userID])
		case cmdStop:
			for userID, clients := range h.clients {
				for conn := range clients {
					h.handleUnregister(userID, conn)
				}
			}
			close(h.stopped)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	clients, ok := h.clients[c.userID]
	if !ok {
		clients = make(map[*websocket.Conn]*clientWriter)
		h.clients[c.userID] = clients
	}
	if len(clients) >= MaxConnectionsPerUser {
		c.errCh <- ErrTooManyConnections
		return
	}
	clients[c.conn] = newClientWriter(c.conn)
	h.metrics.WebsocketConnections(1)
	h.logger.Debug().Str("user_id", c.userID).Int("connections", len(clients)).Msg("client registered")
	c.errCh <- nil
}

func (h *Hub) handleUnregister(userID string, conn *websocket.Conn) {
	clients, ok := h.clients[userID]
	if !ok {
		return
	}
	cw, ok := clients[conn]
	if !ok {
		return
	}
	cw.stop()
	delete(clients, conn)
	h.metrics.WebsocketConnections(-1)
	if len(clients) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) handleDeliver(c cmdDeliver) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients[c.userID] {
		select {
		case cw.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}
	for _, conn := range slow {
		h.logger.Warn().Str("user_id", c.userID).Msg("dropping slow client")
		h.handleUnregister(c.userID, conn)
	}
}

// send hands cmd to the run goroutine and reports false once the hub has
// stopped.
func (h *Hub) send(cmd hubCmd) bool {
	select {
	case <-h.stopped:
		return false
	default:
	}
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.stopped:
		return false
	}
}

// Register adds conn for userID. The caller keeps reading from conn and calls
// Unregister when the read loop ends.
func (h *Hub) Register(userID string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if !h.send(cmdRegister{userID: userID, conn: conn, errCh: errCh}) {
		return ErrHubStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-h.stopped:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.send(cmdUnregister{userID: userID, conn: conn})
}

// Deliver queues data for every connection of userID on this instance.
// It is a no-op after Stop.
func (h *Hub) Deliver(userID string, data []byte) {
	h.send(cmdDeliver{userID: userID, data: data})
}

// Count reports userID's live connections, 0 after Stop.
func (h *Hub) Count(userID string) int {
	replyCh := make(chan int, 1)
	if !h.send(cmdCount{userID: userID, replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.stopped:
		return 0
	}
}

// Stop closes every connection and ends the hub goroutine. Later calls
// return immediately.
func (h *Hub) Stop() {
	if h.send(cmdStop{}) {
		<-h.stopped
	}
}

// Serve runs the read side of conn until the peer goes away. Clients only
// send pongs; anything else is discarded.
func (h *Hub) Serve(userID string, conn *websocket.Conn) error {
	if err := h.Register(userID, conn); err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return err
	}
	defer h.Unregister(userID, conn)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("user_id", userID).Msg("socket closed")
			}
			return nil
		}
	}
}
