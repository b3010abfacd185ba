package chat

import (
	"log/slog"
	"sync"
)

// Registry manages active conversations, keyed by user and tab session.
// Conversations live only in memory: nothing about them survives a restart.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]*Conversation
	seed   func(*Conversation)
}

// NewRegistry creates a registry. seed is invoked once per new conversation
// to append the welcome message; the Service provides it so message ids and
// timestamps come from a single source.
func NewRegistry(seed func(*Conversation)) *Registry {
	return &Registry{
		active: make(map[string]map[string]*Conversation),
		seed:   seed,
	}
}

// Get returns the conversation for a user/session pair, creating and seeding
// it on first use.
func (r *Registry) Get(userID, sessionID string) *Conversation {
	r.mu.RLock()
	if sessions, ok := r.active[userID]; ok {
		if conv, ok := sessions[sessionID]; ok {
			r.mu.RUnlock()
			return conv
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[userID]; !ok {
		r.active[userID] = make(map[string]*Conversation)
	}
	if conv, ok := r.active[userID][sessionID]; ok {
		return conv
	}
	conv := newConversation(userID, sessionID)
	if r.seed != nil {
		r.seed(conv)
	}
	r.active[userID][sessionID] = conv
	slog.Info("Conversation started", "user_id", userID, "session_id", sessionID)
	return conv
}

// Remove drops a conversation from the registry.
func (r *Registry) Remove(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessions, ok := r.active[userID]; ok {
		if _, exists := sessions[sessionID]; exists {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(r.active, userID)
			}
			slog.Info("Conversation removed", "user_id", userID, "session_id", sessionID)
		}
	}
}
