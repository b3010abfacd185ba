package chatws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/yellowbank/superagent/internal/chat"
	"github.com/yellowbank/superagent/internal/domain"
	"github.com/yellowbank/superagent/internal/identity"
	"github.com/yellowbank/superagent/internal/store"
)

// Handler upgrades chat connections and dispatches inbound frames to the
// turn coordinator.
type Handler struct {
	svc           *chat.Service
	reg           *chat.Registry
	repo          store.Repository
	cm            *ConnManager
	limiter       *chat.RateLimiter
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new WebSocket chat handler.
func NewHandler(svc *chat.Service, reg *chat.Registry, repo store.Repository, cm *ConnManager, limiter *chat.RateLimiter, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		svc:           svc,
		reg:           reg,
		repo:          repo,
		cm:            cm,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// inboundFrame is a client frame.
type inboundFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// outboundFrame is a server frame.
type outboundFrame struct {
	Type           string           `json:"type"`
	Typing         bool             `json:"typing,omitempty"`
	Message        *domain.Message  `json:"message,omitempty"`
	Messages       []domain.Message `json:"messages,omitempty"`
	Session        *domain.Session  `json:"session,omitempty"`
	Error          string           `json:"error,omitempty"`
	RetryAvailable bool             `json:"retry_available,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "no identity", http.StatusUnauthorized)
		return
	}
	slog.Info("Chat connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.cm.Register(userID, sessionID, ws)
	defer h.cm.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conv := h.reg.Get(userID, sessionID)

	// Replay the transcript so a reconnecting tab starts in sync.
	snapshot := conv.SessionSnapshot()
	if err := h.writeFrame(ctx, ws, outboundFrame{
		Type:           "history",
		Messages:       conv.Messages(),
		Session:        &snapshot,
		RetryAvailable: conv.RetryAvailable(),
	}); err != nil {
		slog.Debug("Failed to send history frame", "error", err, "user_id", userID)
		return
	}

	h.readLoop(ctx, ws, conv)
	slog.Info("Chat connection ended", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conv *chat.Conversation) {
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", conv.UserID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", conv.UserID)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.writeError(ctx, ws, "invalid frame", false)
			continue
		}

		h.dispatch(ctx, ws, conv, frame)

		// Update last seen asynchronously with timeout.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.repo.UpdateLastSeen(updateCtx, conv.UserID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
}

func (h *Handler) dispatch(ctx context.Context, ws *websocket.Conn, conv *chat.Conversation, frame inboundFrame) {
	switch frame.Type {
	case "message", "retry", "select":
		if h.limiter != nil && !h.limiter.Allow(conv.UserID) {
			h.writeError(ctx, ws, "rate limit exceeded", false)
			return
		}
		h.runTurn(ctx, ws, conv, frame)
	case "reset":
		messages := h.svc.Reset(conv)
		snapshot := conv.SessionSnapshot()
		if err := h.writeFrame(ctx, ws, outboundFrame{
			Type:     "history",
			Messages: messages,
			Session:  &snapshot,
		}); err != nil {
			slog.Debug("Failed to send reset frame", "error", err, "user_id", conv.UserID)
		}
	case "ping":
		if err := h.writeFrame(ctx, ws, outboundFrame{Type: "pong"}); err != nil {
			slog.Debug("Failed to send pong", "error", err, "user_id", conv.UserID)
		}
	default:
		h.writeError(ctx, ws, "unknown frame type", false)
	}
}

func (h *Handler) runTurn(ctx context.Context, ws *websocket.Conn, conv *chat.Conversation, frame inboundFrame) {
	if err := h.writeFrame(ctx, ws, outboundFrame{Type: "typing", Typing: true}); err != nil {
		slog.Debug("Failed to send typing frame", "error", err, "user_id", conv.UserID)
	}

	var (
		result chat.TurnResult
		err    error
	)
	switch frame.Type {
	case "message":
		result, err = h.svc.Submit(ctx, conv, frame.Text)
	case "retry":
		result, err = h.svc.Retry(ctx, conv)
	case "select":
		result, err = h.svc.SelectAccount(ctx, conv, frame.AccountID)
	}

	if writeErr := h.writeFrame(ctx, ws, outboundFrame{Type: "typing", Typing: false}); writeErr != nil {
		slog.Debug("Failed to send typing frame", "error", writeErr, "user_id", conv.UserID)
	}

	if err != nil {
		h.writeError(ctx, ws, err.Error(), conv.RetryAvailable())
		return
	}

	session := result.Session
	for i := range result.AgentMessages {
		out := outboundFrame{
			Type:           "message",
			Message:        &result.AgentMessages[i],
			RetryAvailable: result.RetryAvailable,
		}
		// The session snapshot rides on the final message of the turn.
		if i == len(result.AgentMessages)-1 {
			out.Session = &session
		}
		if writeErr := h.writeFrame(ctx, ws, out); writeErr != nil {
			slog.Debug("Failed to send message frame", "error", writeErr, "user_id", conv.UserID)
			return
		}
	}
}

func (h *Handler) writeError(ctx context.Context, ws *websocket.Conn, msg string, retryAvailable bool) {
	if err := h.writeFrame(ctx, ws, outboundFrame{Type: "error", Error: msg, RetryAvailable: retryAvailable}); err != nil {
		slog.Debug("Failed to send error frame", "error", err)
	}
}

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, frame outboundFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
