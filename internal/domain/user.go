package domain

import (
	"time"
)

// User represents an anonymous device identity known to the service.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CSATRating is a persisted post-conversation satisfaction rating.
type CSATRating struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Rating    string    `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRating reports whether r is one of the offered CSAT choices.
func ValidRating(r string) bool {
	switch r {
	case "Good", "Average", "Bad":
		return true
	}
	return false
}
