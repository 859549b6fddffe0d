package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
)

const writeTimeout = 10 * time.Second

// Manager tracks websocket connections per agent and fans order lifecycle
// events out to the parties involved. Delivery is best effort.
type Manager struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewWebSocketManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (m *Manager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return m.upgrader.Upgrade(w, r, nil)
}

// Register adds a connection to the agent's set.
func (m *Manager) Register(agentID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conns[agentID] == nil {
		m.conns[agentID] = make(map[*websocket.Conn]struct{})
	}
	m.conns[agentID][conn] = struct{}{}
}

// Unregister removes a connection; the caller closes it.
func (m *Manager) Unregister(agentID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.conns[agentID]
	delete(set, conn)
	if len(set) == 0 {
		delete(m.conns, agentID)
	}
}

// PublishOrderEvent pushes the event to every connection of the order's
// parties. Failed connections are dropped.
func (m *Manager) PublishOrderEvent(event ports.OrderEvent) {
	m.mu.RLock()
	var targets []*websocket.Conn
	for _, agentID := range event.Parties {
		for conn := range m.conns[agentID] {
			targets = append(targets, conn)
		}
	}
	m.mu.RUnlock()

	for _, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			m.logger.Warn("failed to push order event, dropping connection",
				"order_id", event.OrderID, "type", event.Type, "error", err)
			conn.Close()
		}
	}
}

var _ ports.OrderEventPublisher = (*Manager)(nil)
