package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
	sendBuffer     = 16
)

// Hub pushes events to connected websocket subscribers. Subscribers that
// cannot keep up are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logger.Logger

	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// ServeHTTP upgrades the connection and returns; pumps run in their own
// goroutines.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[s] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SetSubscribers(count)
	h.logger.Debug("subscriber connected",
		logger.String("remote", r.RemoteAddr),
		logger.Int("subscribers", count))

	go h.writePump(s)
	go h.readPump(s)
}

// Notify queues ev for every subscriber without blocking.
func (h *Hub) Notify(_ context.Context, ev Event) error {
	payload, err := ev.encode()
	if err != nil {
		return err
	}

	h.mu.Lock()
	var slow []*subscriber
	for s := range h.clients {
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow subscriber")
		h.remove(s)
	}
	return nil
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*subscriber, 0, len(h.clients))
	for s := range h.clients {
		clients = append(clients, s)
	}
	h.mu.Unlock()

	for _, s := range clients {
		h.remove(s)
	}
}

// remove unregisters s once; closing send stops the write pump, which
// closes the connection.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, s)
	close(s.send)
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SetSubscribers(count)
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

// readPump only exists to process control frames and notice disconnects.
func (h *Hub) readPump(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
