// Package transport connects a running game to remote viewers.
//
// Hub is a websocket endpoint that implements the drive.Renderer, drive.InputSource
// and drive.AudioSink ports: snapshots and events are broadcast to every client,
// and clients send back player controls and game commands.
package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/baldhumanity/neat-drive/drive"
	"github.com/baldhumanity/neat-drive/runner"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	// Outbound messages buffered per client before it is dropped.
	clientBuffer = 64
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types exchanged with clients.
const (
	TypeSnapshot = "snapshot"
	TypeEvent    = "event"
	TypeControls = "controls"
	TypeCommand  = "command"
)

// ServerMessage is sent from the hub to clients.
type ServerMessage struct {
	Type     string          `json:"type"`
	Snapshot *drive.Snapshot `json:"snapshot,omitempty"`
	Event    *drive.Event    `json:"event,omitempty"`
}

// ClientMessage is sent from a client to the hub.
type ClientMessage struct {
	Type     string          `json:"type"`
	Controls *drive.Controls `json:"controls,omitempty"`
	Command  string          `json:"command,omitempty"`
	Value    float64         `json:"value,omitempty"`
}

// Submitter accepts commands for the game. *runner.Runner implements it.
type Submitter interface {
	Submit(cmd runner.Command) error
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans game output out to websocket clients and collects their input.
type Hub struct {
	logger    *zap.Logger
	submitter Submitter
	every     int
	frames    int

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	connected  atomic.Int64

	mu       sync.Mutex
	controls drive.Controls
}

// NewHub creates a hub forwarding client commands to submitter (which may be nil).
// Only every n-th snapshot is broadcast; n < 1 is treated as 1.
func NewHub(logger *zap.Logger, submitter Submitter, every int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every < 1 {
		every = 1
	}
	return &Hub{
		logger:     logger.Named("hub"),
		submitter:  submitter,
		every:      every,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, clientBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// SetSubmitter sets the command destination. It must be called before Run.
func (h *Hub) SetSubmitter(s Submitter) { h.submitter = s }

// Run services registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started.")
	defer h.logger.Info("WebSocket hub stopped.")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
			h.logger.Info("New WebSocket client connected.", zap.String("client_id", c.id))
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				h.logger.Info("WebSocket client disconnected.", zap.String("client_id", c.id))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("Dropping slow WebSocket client.", zap.String("client_id", c.id))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.connected.Load()) }

// Render implements drive.Renderer.
func (h *Hub) Render(s *drive.Snapshot) {
	h.frames++
	if (h.frames-1)%h.every != 0 {
		return
	}
	h.publish(ServerMessage{Type: TypeSnapshot, Snapshot: s})
}

// Play implements drive.AudioSink.
func (h *Hub) Play(e drive.Event) {
	h.publish(ServerMessage{Type: TypeEvent, Event: &e})
}

// Controls implements drive.InputSource.
func (h *Hub) Controls() drive.Controls {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.controls
}

func (h *Hub) setControls(c drive.Controls) {
	h.mu.Lock()
	h.controls = c
	h.mu.Unlock()
}

// publish never blocks the game loop: messages are dropped when the hub is
// saturated or stopped.
func (h *Hub) publish(msg ServerMessage) {
	if h.connected.Load() == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
	}
}

// HandleWS upgrades the request and attaches the connection to the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}
	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// HandleHealth reports liveness and the number of connected clients.
func (h *Hub) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": h.Clients()})
}

// Routes returns a mux serving /ws and /healthz.
func (h *Hub) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	mux.HandleFunc("/healthz", h.HandleHealth)
	return mux
}

func (h *Hub) handle(c *client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("Failed to unmarshal client message", zap.String("client_id", c.id), zap.Error(err))
		return
	}

	switch msg.Type {
	case TypeControls:
		if msg.Controls != nil {
			h.setControls(*msg.Controls)
		}
	case TypeCommand:
		cmd, err := runner.ParseCommand(msg.Command, msg.Value)
		if err != nil {
			h.logger.Warn("Rejected client command", zap.String("client_id", c.id), zap.Error(err))
			return
		}
		if h.submitter == nil {
			h.logger.Warn("No command destination", zap.String("command", msg.Command))
			return
		}
		if err := h.submitter.Submit(cmd); err != nil {
			h.logger.Warn("Failed to submit client command", zap.String("command", msg.Command), zap.Error(err))
			return
		}
		h.logger.Debug("Client command queued", zap.String("client_id", c.id), zap.String("command", msg.Command), zap.Float64("value", msg.Value))
	default:
		h.logger.Warn("Unknown client message type", zap.String("client_id", c.id), zap.String("type", msg.Type))
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("Websocket client read error", zap.Error(err))
			}
			return
		}
		c.hub.handle(c, message)
	}
}

// writePump pumps messages from the hub to the websocket connection, one
// message per frame.
func (c *client) writePump() {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
