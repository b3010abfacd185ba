// Package httpapi provides HTTP handlers for the chat API.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/yellowbank/superagent/internal/chat"
	"github.com/yellowbank/superagent/internal/store"
)

// maxRequestBody bounds inbound JSON payloads. Chat messages are short;
// anything past this is abuse.
const maxRequestBody = 16 << 10

// ConnCloser drops a user's live chat sockets. Implemented by the websocket
// layer's connection manager; logout uses it so stale tabs reconnect against
// the fresh conversation.
type ConnCloser interface {
	CloseUser(userID string)
}

// Handler provides common handler utilities.
type Handler struct {
	svc     *chat.Service
	reg     *chat.Registry
	repo    store.Repository
	limiter *chat.RateLimiter
	conns   ConnCloser
}

// NewHandler creates a new Handler with common dependencies. conns may be
// nil when no websocket transport is mounted.
func NewHandler(svc *chat.Service, reg *chat.Registry, repo store.Repository, limiter *chat.RateLimiter, conns ConnCloser) *Handler {
	return &Handler{
		svc:     svc,
		reg:     reg,
		repo:    repo,
		limiter: limiter,
		conns:   conns,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
