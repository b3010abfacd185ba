package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yellowbank/superagent/internal/domain"
	"github.com/yellowbank/superagent/internal/identity"
)

type feedbackRequest struct {
	Rating string `json:"rating"`
}

// HandleFeedback stores one CSAT rating for the caller's session.
func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "no identity")
		return
	}

	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidRating(req.Rating) {
		Error(w, http.StatusBadRequest, "rating must be Good, Average or Bad")
		return
	}

	rating := &domain.CSATRating{
		UserID:    userID,
		SessionID: identity.SessionIDFromContext(r.Context()),
		Rating:    req.Rating,
		CreatedAt: time.Now(),
	}
	if err := h.repo.SaveRating(r.Context(), rating); err != nil {
		slog.Error("Failed to save rating", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save rating")
		return
	}
	slog.Info("CSAT rating recorded", "user_id", userID, "rating", req.Rating)

	// Let the model close the loop. Best effort: the rating itself is
	// already persisted, so a busy conversation is not an error.
	conv := h.reg.Get(userID, rating.SessionID)
	result, err := h.svc.Submit(r.Context(), conv, "Rating: "+req.Rating)
	if err != nil {
		JSON(w, http.StatusCreated, map[string]interface{}{"status": "recorded"})
		return
	}
	JSON(w, http.StatusCreated, map[string]interface{}{"status": "recorded", "turn": result})
}

// HandleListFeedback returns the most recent CSAT ratings.
func (h *Handler) HandleListFeedback(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.repo.ListRatings(r.Context(), 50)
	if err != nil {
		slog.Error("Failed to list ratings", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list ratings")
		return
	}
	if ratings == nil {
		ratings = []*domain.CSATRating{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"ratings": ratings})
}
