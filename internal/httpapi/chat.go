package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yellowbank/superagent/internal/chat"
	"github.com/yellowbank/superagent/internal/domain"
	"github.com/yellowbank/superagent/internal/identity"
)

type chatRequest struct {
	Message string `json:"message"`
}

type selectRequest struct {
	AccountID string `json:"account_id"`
}

type historyResponse struct {
	Messages       []domain.Message `json:"messages"`
	Session        domain.Session   `json:"session"`
	Username       string           `json:"username,omitempty"`
	RetryAvailable bool             `json:"retry_available"`
	Pending        bool             `json:"pending"`
}

// RegisterRoutes mounts the chat endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Post("/retry", h.HandleRetry)
		r.Post("/select", h.HandleSelect)
		r.Post("/reset", h.HandleReset)
		r.Get("/history", h.HandleHistory)
	})
	r.Post("/api/feedback", h.HandleFeedback)
	r.Get("/api/feedback", h.HandleListFeedback)
}

// HandleSubmit runs one user turn.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r, true)
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Submit(r.Context(), conv, req.Message)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// HandleRetry resubmits the last failed message.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r, true)
	if !ok {
		return
	}

	result, err := h.svc.Retry(r.Context(), conv)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// HandleSelect records an account choice and runs the synthesized detail turn.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r, true)
	if !ok {
		return
	}

	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.SelectAccount(r.Context(), conv, req.AccountID)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// HandleReset clears the conversation and returns the fresh transcript.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r, false)
	if !ok {
		return
	}

	messages := h.svc.Reset(conv)
	if h.conns != nil {
		// Logout invalidates every live socket for this user; tabs
		// reconnect and replay the re-seeded transcript.
		h.conns.CloseUser(conv.UserID)
	}
	JSON(w, http.StatusOK, historyResponse{
		Messages: messages,
		Session:  conv.SessionSnapshot(),
	})
}

// HandleHistory returns the current transcript and session snapshot.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r, false)
	if !ok {
		return
	}

	JSON(w, http.StatusOK, historyResponse{
		Messages:       conv.Messages(),
		Session:        conv.SessionSnapshot(),
		Username:       identity.UsernameFromContext(r.Context()),
		RetryAvailable: conv.RetryAvailable(),
		Pending:        conv.Pending(),
	})
}

// conversation resolves the caller's conversation from request identity.
// rateLimited applies the per-user turn limiter; reads skip it.
func (h *Handler) conversation(w http.ResponseWriter, r *http.Request, rateLimited bool) (*chat.Conversation, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "no identity")
		return nil, false
	}
	if rateLimited && h.limiter != nil && !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return nil, false
	}
	sessionID := identity.SessionIDFromContext(r.Context())
	return h.reg.Get(userID, sessionID), true
}

func (h *Handler) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrTurnPending):
		Error(w, http.StatusConflict, "a turn is already pending")
	case errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message must not be empty")
	case errors.Is(err, chat.ErrNothingToRetry):
		Error(w, http.StatusBadRequest, "no failed submission to retry")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
