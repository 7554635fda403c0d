package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/app"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	// clientBuffer is the number of detections queued per websocket client.
	clientBuffer = 16
	writeWait    = 5 * time.Second
	currentKey   = "current"
)

// DefaultAlertTTL is how long a detection stays current after emission.
const DefaultAlertTTL = 3 * time.Second

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts detections to websocket clients and remembers the current alert.
// It implements session.Sink; Publish never blocks on a slow client.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
	closed  bool
	alerts  *cache.Cache
	logger  *zap.Logger
}

// NewHub creates a Hub whose current alert expires after alertTTL.
func NewHub(alertTTL time.Duration, logger *zap.Logger) *Hub {
	if alertTTL <= 0 {
		alertTTL = DefaultAlertTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		alerts:  cache.New(alertTTL, 2*alertTTL),
		logger:  logger,
	}
}

// Publish records result as the current alert and queues it for every client.
// Clients whose queue is full miss the detection.
func (h *Hub) Publish(result session.DetectionResult) error {
	h.alerts.SetDefault(currentKey, result)

	msg, err := json.Marshal(result)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, dropping detection",
				zap.String("remote", c.conn.RemoteAddr().String()))
		}
	}
	return nil
}

// Current returns the latest detection if its alert has not expired.
func (h *Hub) Current() (session.DetectionResult, bool) {
	v, ok := h.alerts.Get(currentKey)
	if !ok {
		return session.DetectionResult{}, false
	}
	return v.(session.DetectionResult), true
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams detections until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// FramesHandler ingests tracker frames over a websocket, one JSON frame per
// message. A detection completed by a frame is written back on the same connection.
type FramesHandler struct {
	app    *app.App
	logger *zap.Logger
}

// NewFramesHandler creates a new FramesHandler feeding a.
func NewFramesHandler(a *app.App, logger *zap.Logger) *FramesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FramesHandler{app: a, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("frame source connected", zap.String("remote", conn.RemoteAddr().String()))
	defer h.logger.Info("frame source disconnected", zap.String("remote", conn.RemoteAddr().String()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var raw detector.RawFrame
		if err := json.Unmarshal(data, &raw); err != nil {
			h.logger.Debug("skipping undecodable frame", zap.Error(err))
			continue
		}

		result := h.app.HandleFrame(raw)
		if result == nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(result); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}
