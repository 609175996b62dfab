package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/computor/core/computor"
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/internal/logging"
	"github.com/FocuswithJustin/computor/internal/validation"
)

const (
	wsMaxMessageSize = 4096
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsWriteWait      = 10 * time.Second
	wsSendBuffer     = 64
)

// WSMessage is sent to websocket clients.
type WSMessage struct {
	Type      string            `json:"type"` // "result", "error", "job"
	Input     string            `json:"input,omitempty"`
	Result    *computor.Summary `json:"result,omitempty"`
	Cached    bool              `json:"cached,omitempty"`
	Error     *APIError         `json:"error,omitempty"`
	Job       *Job              `json:"job,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans out broadcasts.
type Hub struct {
	clients   map[*Client]bool
	broadcast chan []byte
	mu        sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan []byte, 256),
	}
}

// Run delivers broadcasts until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client channel full, disconnect
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	logging.WebSocketEvent("client_connected", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	n := len(h.clients)
	h.mu.Unlock()
	logging.WebSocketEvent("client_disconnected", n)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping message")
	}
}

// reply queues msg for this client only.
func (h *Hub) reply(c *Client, msg WSMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.removeLocked(c)
	}
}

func encodeMessage(msg WSMessage) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

func (s *Server) broadcastJob(job Job) {
	job.Results = nil
	s.hub.Broadcast(WSMessage{Type: "job", Job: &job})
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if s.cors.OriginAllowed(origin) {
				return true
			}
			logging.SecurityEvent("origin_rejected", "websocket",
				"origin", origin,
				"remote_addr", r.RemoteAddr)
			return false
		},
	}
}

// handleWebSocket upgrades the connection and starts a solving session:
// each text message is an equation, answered with a result or error
// message. Job updates are broadcast to every session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}
	s.hub.register(client)

	go client.writePump()
	go s.readPump(client)
}

// readPump solves each incoming message.
func (s *Server) readPump(c *Client) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("websocket unexpected close", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.hub.reply(c, s.solveMessage(data))
	}
}

// solveMessage accepts a bare equation or a JSON SolveRequest.
func (s *Server) solveMessage(data []byte) WSMessage {
	req := SolveRequest{Equation: strings.TrimSpace(string(data))}
	if strings.HasPrefix(req.Equation, "{") {
		req = SolveRequest{}
		if err := json.Unmarshal(data, &req); err != nil {
			return WSMessage{Type: "error", Error: &APIError{Code: "INVALID_JSON", Message: "Invalid JSON message"}}
		}
	}
	if err := validation.ValidateEquation(req.Equation); err != nil {
		return WSMessage{Type: "error", Input: req.Equation, Error: &APIError{Code: "INVALID_REQUEST", Message: err.Error()}}
	}

	start := time.Now()
	result, cached, err := s.solve(req.Equation)
	if err != nil {
		logging.SolveEvent(context.Background(), req.Equation, "", time.Since(start), err, "transport", "websocket")
		return WSMessage{Type: "error", Input: req.Equation, Error: solveErrorBody(err)}
	}
	logging.SolveEvent(context.Background(), req.Equation, result.Kind.String(), time.Since(start), nil, "transport", "websocket")

	summary := result.Summarize(format.Options{Verbose: req.Verbose})
	return WSMessage{Type: "result", Input: req.Equation, Result: &summary, Cached: cached}
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
