// Package chatws provides the WebSocket transport for chat conversations.
package chatws

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager manages active WebSocket connections for users.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a user and session.
func (m *ConnManager) GetActive(userID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a new WebSocket connection for a user/session.
func (m *ConnManager) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	m.active[userID][sessionID] = conn
	slog.Info("Chat connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a WebSocket connection for a user/session.
func (m *ConnManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat connection unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseUser forcefully terminates all active connections for a user.
func (m *ConnManager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}

	for sid, conn := range sessions {
		_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
		slog.Info("Chat connection closed", "user_id", userID, "session_id", sid)
	}
	delete(m.active, userID)
}
