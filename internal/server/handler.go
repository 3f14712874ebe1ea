// Package server exposes sessions over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/engine"
	"github.com/jason-s-yu/crazyeights/internal/auth"
	"github.com/jason-s-yu/crazyeights/internal/game"
	"github.com/sirupsen/logrus"
)

const (
	// MsgSync asks for the current state without changing it.
	MsgSync = "sync"
	// MsgError is sent back for messages that cannot be handled.
	MsgError = "error"

	outboxSize   = 32
	writeTimeout = 5 * time.Second
)

// ClientMessage is one message received from the browser.
type ClientMessage struct {
	Type   string    `json:"type"`
	CardID uuid.UUID `json:"cardId"`
	Suit   string    `json:"suit,omitempty"`
}

// ErrorMessage reports a message the server could not handle.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SessionCreated is the response to POST /api/session.
type SessionCreated struct {
	SessionID uuid.UUID `json:"sessionId"`
	Token     string    `json:"token"`
	State     game.View `json:"state"`
}

// Handler serves the HTTP API and the per-session websocket.
type Handler struct {
	manager *game.Manager
	issuer  *auth.Issuer
	log     logrus.FieldLogger

	// OriginPatterns is passed to websocket.Accept. Nil only allows same-origin.
	OriginPatterns []string

	mu      sync.Mutex
	clients map[uuid.UUID]*client // session id -> attached connection
}

// NewHandler returns a Handler serving sessions from m.
func NewHandler(m *game.Manager, issuer *auth.Issuer, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		manager: m,
		issuer:  issuer,
		log:     logger,
		clients: make(map[uuid.UUID]*client),
	}
}

// Routes returns the router for all endpoints.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", h.handleCreateSession)
	mux.HandleFunc("GET /ws", h.handleWebsocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()
	token, err := h.issuer.Issue(s.ID)
	if err != nil {
		h.log.WithError(err).Error("Failed to issue session token.")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.log.WithField("session", s.ID).Info("Session issued.")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SessionCreated{SessionID: s.ID, Token: token, State: s.Snapshot()})
}

func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	id, err := h.issuer.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.log.WithError(err).Debug("Websocket rejected.")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	s, err := h.manager.Connect(r.Context(), id)
	if errors.Is(err, game.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("session", id).Error("Failed to load session.")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(id)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed.")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{
		conn: conn,
		out:  make(chan any, outboxSize),
		log:  h.log.WithField("session", id),
	}
	go c.writeLoop(ctx, cancel)

	h.attach(s, c)
	defer h.detach(s, c)

	c.log.Info("Client connected.")
	c.send(ctx, s.Snapshot().Event(game.EventGameState))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				c.log.WithError(err).Warn("Websocket read failed.")
			}
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.WithError(err).Debug("Failed to unmarshal message.")
			c.send(ctx, ErrorMessage{Type: MsgError, Message: "invalid message format"})
			continue
		}
		h.handleMessage(ctx, s, c, msg)
	}
	c.log.Info("Client disconnected.")
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) handleMessage(ctx context.Context, s *game.Session, c *client, msg ClientMessage) {
	c.log.WithField("type", msg.Type).Debug("Message received.")

	var action game.Action
	switch game.ActionType(msg.Type) {
	case game.ActionDraw, game.ActionRestart:
		action = game.Action{Type: game.ActionType(msg.Type)}
	case game.ActionPlay:
		if msg.CardID == uuid.Nil {
			c.send(ctx, ErrorMessage{Type: MsgError, Message: "cardId is required"})
			return
		}
		action = game.Action{Type: game.ActionPlay, CardID: msg.CardID}
	case game.ActionDeclareSuit:
		suit, err := engine.ParseSuit(msg.Suit)
		if err != nil {
			c.send(ctx, ErrorMessage{Type: MsgError, Message: err.Error()})
			return
		}
		action = game.Action{Type: game.ActionDeclareSuit, Suit: suit}
	default:
		if msg.Type == MsgSync {
			c.send(ctx, s.Snapshot().Event(game.EventGameState))
			return
		}
		c.send(ctx, ErrorMessage{Type: MsgError, Message: "unknown message type"})
		return
	}

	// Rejected intents change nothing and are not answered; accepted ones
	// reach the client through the session's events.
	s.HandleAction(action)
}

// attach makes c the receiver of s's events. An earlier connection to the
// same session is closed so that only one client drives the game.
func (h *Handler) attach(s *game.Session, c *client) {
	h.mu.Lock()
	old := h.clients[s.ID]
	h.clients[s.ID] = c
	h.mu.Unlock()

	if old != nil {
		old.log.Info("Client replaced by a newer connection.")
		go old.conn.Close(websocket.StatusPolicyViolation, "Replaced by a newer connection.")
	}

	s.Mu.Lock()
	s.BroadcastFn = func(ev game.GameEvent) { c.enqueue(ev) }
	s.OnPlayerWon = func(uuid.UUID) {
		c.log.Info("Player won, celebrating.")
	}
	s.Mu.Unlock()
}

// detach removes c's hooks unless a newer connection has replaced it.
func (h *Handler) detach(s *game.Session, c *client) {
	h.mu.Lock()
	current := h.clients[s.ID] == c
	if current {
		delete(h.clients, s.ID)
	}
	h.mu.Unlock()
	if !current {
		return
	}
	s.Mu.Lock()
	s.BroadcastFn = nil
	s.OnPlayerWon = nil
	s.Mu.Unlock()
}

// client is one websocket attached to a session. Events are queued so that
// the session never waits on the network while holding its lock.
type client struct {
	conn *websocket.Conn
	out  chan any
	log  logrus.FieldLogger
}

// enqueue queues msg without blocking. A full queue drops the message; the
// client can recover with a sync.
func (c *client) enqueue(msg any) {
	select {
	case c.out <- msg:
	default:
		c.log.Warn("Outbox full, message dropped.")
	}
}

// send queues msg, waiting for room unless ctx ends first.
func (c *client) send(ctx context.Context, msg any) {
	select {
	case c.out <- msg:
	case <-ctx.Done():
	}
}

func (c *client) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, msg)
			wcancel()
			if err != nil {
				c.log.WithError(err).Warn("Websocket write failed.")
				return
			}
		}
	}
}
