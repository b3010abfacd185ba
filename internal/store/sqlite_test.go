package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yellowbank/superagent/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetUser(ctx, "anon_missing")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing user, got %+v", got)
	}

	now := time.Now().Truncate(time.Second)
	user := &domain.User{
		UserID:     "anon_ab12",
		Username:   "guest-anon_ab12",
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	got, err = repo.GetUser(ctx, "anon_ab12")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.Username != "guest-anon_ab12" {
		t.Fatalf("unexpected user: %+v", got)
	}

	later := now.Add(time.Hour)
	if err := repo.UpdateLastSeen(ctx, "anon_ab12", later); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}
	got, err = repo.GetUser(ctx, "anon_ab12")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !got.LastSeenAt.Equal(later) {
		t.Errorf("expected last seen %v, got %v", later, got.LastSeenAt)
	}
}

func TestRatingsNewestFirst(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Second)

	for i, rating := range []string{"Bad", "Average", "Good"} {
		err := repo.SaveRating(ctx, &domain.CSATRating{
			UserID:    "anon_ab12",
			SessionID: "tab-1",
			Rating:    rating,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveRating(%s) failed: %v", rating, err)
		}
	}

	ratings, err := repo.ListRatings(ctx, 2)
	if err != nil {
		t.Fatalf("ListRatings failed: %v", err)
	}
	if len(ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(ratings))
	}
	if ratings[0].Rating != "Good" || ratings[1].Rating != "Average" {
		t.Fatalf("expected newest first, got %s then %s", ratings[0].Rating, ratings[1].Rating)
	}
}
