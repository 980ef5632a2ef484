// Package web serves the game over websockets. Every connection gets its own
// session; the hub only tracks presence.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wayfarer-rpg/wayfarer/internal/game/session"
	"github.com/wayfarer-rpg/wayfarer/internal/presenter"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

// Message types.
const (
	TypeCommand  = "command"
	TypeResult   = "result"
	TypePresence = "presence"
	TypeError    = "error"
)

// WSMessage is the envelope for both directions.
type WSMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// CommandData is the payload of a command message.
type CommandData struct {
	Input string `json:"input"`
}

// ResultData answers one command.
type ResultData struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	State   string   `json:"state"`
	Events  []string `json:"events"`
	Status  *Status  `json:"status,omitempty"`
	Quit    bool     `json:"quit,omitempty"`
}

// Status is the character panel.
type Status struct {
	Name       string `json:"name"`
	Class      string `json:"class"`
	Level      int    `json:"level"`
	Health     int    `json:"health"`
	MaxHealth  int    `json:"max_health"`
	Mana       int    `json:"mana"`
	MaxMana    int    `json:"max_mana"`
	Experience int    `json:"experience"`
	ToNext     int    `json:"to_next"`
	Gold       int    `json:"gold"`
	Location   string `json:"location,omitempty"`
	Enemy      string `json:"enemy,omitempty"`
}

// PresenceData reports how many players are connected.
type PresenceData struct {
	Online int `json:"online"`
}

// SessionFactory creates an independent game for a new connection.
type SessionFactory func() (*session.Game, error)

// Client is one websocket connection and the game it drives.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	game       *session.Game
	transcript *presenter.Transcript
}

// Hub tracks connected clients.
type Hub struct {
	logger     *zap.Logger
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	online int
}

// NewHub creates a hub; call Run before serving.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger.Named("web"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is done, then drops every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.setOnline(0)
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setOnline(len(h.clients))
			h.logger.Info("client registered", zap.String("session_id", client.id))
			h.fanOut(h.presence())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setOnline(len(h.clients))
				h.logger.Info("client unregistered", zap.String("session_id", client.id))
				h.fanOut(h.presence())
			}

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.logger.Debug("client too slow, message dropped", zap.String("session_id", client.id))
		}
	}
}

// Broadcast sends message to every client.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) setOnline(n int) {
	h.mu.Lock()
	h.online = n
	h.mu.Unlock()
}

// Online returns the number of connected clients.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online
}

func (h *Hub) presence() []byte {
	data, _ := json.Marshal(WSMessage{Type: TypePresence, Data: PresenceData{Online: len(h.clients)}})
	return data
}

// Server upgrades HTTP requests and pairs each connection with a session.
type Server struct {
	hub      *Hub
	factory  SessionFactory
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer builds a handler around hub.
func NewServer(hub *Hub, factory SessionFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub:     hub,
		factory: factory,
		logger:  logger.Named("web"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler routes /ws and a health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PresenceData{Online: s.hub.Online()})
	})
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	g, err := s.factory()
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		g.Close()
		return
	}

	tr := presenter.NewTranscript(s.logger)
	tr.Attach(g.Bus())
	client := &Client{
		id:         g.ID(),
		conn:       conn,
		send:       make(chan []byte, 256),
		game:       g,
		transcript: tr,
	}
	if client.id == "" {
		client.id = conn.RemoteAddr().String()
	}

	if !s.hub.join(client) {
		tr.Detach()
		g.Close()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(r.Context(), s.hub, s.logger)
}

func (c *Client) readPump(ctx context.Context, hub *Hub, logger *zap.Logger) {
	defer func() {
		hub.leave(c)
		c.transcript.Detach()
		c.game.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg struct {
			Type string      `json:"type"`
			Data CommandData `json:"data"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != TypeCommand {
			c.reply(WSMessage{Type: TypeError, Data: "expected {\"type\":\"command\",\"data\":{\"input\":...}}"})
			continue
		}

		res := c.game.ProcessCommand(context.WithoutCancel(ctx), msg.Data.Input)
		c.reply(WSMessage{
			Type:      TypeResult,
			SessionID: c.game.ID(),
			Data: ResultData{
				Success: res.Success,
				Message: res.Message,
				State:   res.State.String(),
				Events:  presenter.Texts(c.transcript.Drain()),
				Status:  status(c.game),
				Quit:    res.Quit,
			},
		})
	}
}

// reply queues a message; it is dropped when the client is too slow.
func (c *Client) reply(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func status(g *session.Game) *Status {
	p := g.Players().Player()
	if p == nil {
		return nil
	}
	st := &Status{
		Name:       p.Name,
		Class:      string(p.Class),
		Level:      p.Level,
		Health:     p.Health,
		MaxHealth:  p.MaxHealth,
		Mana:       p.Mana,
		MaxMana:    p.MaxMana,
		Experience: p.Experience,
		ToNext:     p.ExperienceToNextLevel,
		Gold:       p.Gold,
	}
	if loc := g.World().Current(); loc != nil {
		st.Location = loc.Name
	}
	if e, ok := g.Combat().Enemy(); ok {
		st.Enemy = e.Name
	}
	return st
}
