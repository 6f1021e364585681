// Package websocket fans view updates out to connected browser viewers.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
)

const writeWait = 10 * time.Second

// SnapshotFunc returns the message a viewer receives right after connecting.
type SnapshotFunc func() []byte

type viewer struct {
	id   string
	conn *websocket.Conn
}

type HubService struct {
	clients    map[*websocket.Conn]string // conn -> viewer id
	broadcast  chan []byte
	register   chan viewer
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	snapshot   SnapshotFunc
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewHubService(logger *logger.Logger, m *metrics.Metrics, snapshot SnapshotFunc) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan []byte, 64),
		register:   make(chan viewer),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		snapshot:   snapshot,
		logger:     logger,
		metrics:    m,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *HubService) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case v := <-h.register:
			if h.snapshot != nil {
				if err := h.write(v.conn, h.snapshot()); err != nil {
					h.logger.Error("Error sending snapshot to viewer %s: %v", v.id, err)
					v.conn.Close()
					continue
				}
			}
			h.mutex.Lock()
			h.clients[v.conn] = v.id
			count := len(h.clients)
			h.mutex.Unlock()
			h.setViewers(count)
			h.logger.Info("Viewer %s connected. Total: %d", v.id, count)

		case conn := <-h.unregister:
			h.mutex.Lock()
			id, ok := h.clients[conn]
			if ok {
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			if ok {
				h.setViewers(count)
				h.logger.Info("Viewer %s disconnected. Total: %d", id, count)
			}

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn, id := range h.clients {
				if err := h.write(conn, message); err != nil {
					h.logger.Error("Error sending message to viewer %s: %v", id, err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.setViewers(count)
		}
	}
}

func (h *HubService) write(conn *websocket.Conn, message []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, message)
}

func (h *HubService) closeAll() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mutex.Lock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]string)
	h.mutex.Unlock()
	h.setViewers(0)
}

func (h *HubService) setViewers(n int) {
	if h.metrics != nil {
		h.metrics.ViewersActive.Set(float64(n))
	}
}

// Register adds a viewer connection and returns its id.
func (h *HubService) Register(conn *websocket.Conn) string {
	v := viewer{id: uuid.NewString(), conn: conn}
	select {
	case h.register <- v:
	case <-h.done:
		conn.Close()
	}
	return v.id
}

func (h *HubService) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast queues message for every connected viewer. It returns without
// sending once the hub has stopped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
