// Package store provides data persistence interfaces and implementations.
//
// Only durable facts live here: the anonymous user registry and CSAT
// ratings. Conversation state is in-memory by design and never persisted.
package store

import (
	"context"
	"time"

	"github.com/yellowbank/superagent/internal/domain"
)

// Repository defines the interface for persisting users and feedback.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns (nil, nil) when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SaveRating persists one CSAT rating.
	SaveRating(ctx context.Context, rating *domain.CSATRating) error

	// ListRatings returns the most recent ratings, newest first.
	ListRatings(ctx context.Context, limit int) ([]*domain.CSATRating, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
