package api

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"midnight-chase/internal/metrics"
	"midnight-chase/internal/room"
)

const (
	// sendQueueSize is how many outbound frames may wait for a slow client
	sendQueueSize = 64

	// maxMessageSize caps one inbound frame
	maxMessageSize = 4096

	writeWait = 5 * time.Second
)

var (
	errConnClosed     = errors.New("connection closed")
	errSendQueueFull  = errors.New("send queue full")
	errTooManyClients = errors.New("too many connections")
)

// MessageHandler receives every inbound frame of a connection and its close.
type MessageHandler interface {
	Handle(conn room.Conn, raw []byte)
	Close(conn room.Conn)
}

// wsConn adapts a websocket to room.Conn. Frames are queued and written by
// a dedicated goroutine, so Send never blocks the room task.
type wsConn struct {
	conn      *websocket.Conn
	ip        string
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, ip string) *wsConn {
	return &wsConn{
		conn:   conn,
		ip:     ip,
		send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// Send queues b; a closed connection or a full queue skips the frame.
func (c *wsConn) Send(b []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close stops the writer, which then closes the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *wsConn) writePump() {
	defer c.conn.Close()
	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.Close()
				return
			}
		}
	}
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients  map[*wsConn]struct{}
	mu       sync.RWMutex
	handler  MessageHandler
	upgrader websocket.Upgrader
	maxTotal int

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// HubConfig configures the WebSocket hub
type HubConfig struct {
	Handler        MessageHandler
	MaxConnections int
	MaxPerIP       int
	AllowedOrigins []string
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(cfg HubConfig) *WebSocketHub {
	origins := cfg.AllowedOrigins
	if origins == nil {
		origins = DefaultAllowedOrigins
	}
	h := &WebSocketHub{
		clients:   make(map[*wsConn]struct{}),
		handler:   cfg.Handler,
		maxTotal:  cfg.MaxConnections,
		wsLimiter: NewWebSocketRateLimiter(cfg.MaxPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if OriginAllowed(r, origins) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", r.Header.Get("Origin"))
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) register(c *wsConn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.maxTotal > 0 && len(h.clients) >= h.maxTotal {
		return errTooManyClients
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	log.Printf("📱 Client connected from %s (%d total)", c.ip, count)
	metrics.UpdateWSConnections(count)
	return nil
}

func (h *WebSocketHub) unregister(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.wsLimiter.Release(c.ip)
	count := len(h.clients)
	log.Printf("📱 Client disconnected (%d remaining)", count)
	metrics.UpdateWSConnections(count)
}

// CloseAll closes every connection; their read loops then run the normal close path.
func (h *WebSocketHub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Close()
	}
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.maxTotal > 0 && h.ClientCount() >= h.maxTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", h.maxTotal)
		metrics.RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached (%d open)", ip, h.wsLimiter.GetConnectionCount(ip))
		metrics.RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	c := newWSConn(conn, ip)
	if err := h.register(c); err != nil {
		metrics.RecordConnectionRejected("ws_limit")
		h.wsLimiter.Release(ip)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		conn.Close()
		return
	}

	go c.writePump()
	go h.readPump(c)
}

// readPump feeds inbound frames to the handler until the transport reports closure.
func (h *WebSocketHub) readPump(c *wsConn) {
	defer func() {
		h.handler.Close(c)
		c.Close()
		h.unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("📱 Read error from %s: %v", c.ip, err)
			}
			return
		}
		h.handler.Handle(c, message)
	}
}
