// Package chat implements the turn coordinator: it owns per-conversation
// session state and the message transcript, and sequences one user turn
// through the conversational backend.
package chat

import (
	"errors"
	"sync"

	"github.com/yellowbank/superagent/internal/domain"
)

var (
	// ErrTurnPending is returned when a submission arrives while a prior
	// turn is still in flight. Turns are not re-entrant; callers disable
	// input until the pending turn resolves.
	ErrTurnPending = errors.New("chat: a turn is already pending")

	// ErrEmptyMessage is returned for blank submissions.
	ErrEmptyMessage = errors.New("chat: message must not be empty")

	// ErrNothingToRetry is returned when retry is requested without a
	// stored failed submission.
	ErrNothingToRetry = errors.New("chat: no failed submission to retry")
)

// Conversation holds the state of one chat: the session, the append-only
// transcript, and the one-shot retry slot. All fields are guarded by mu and
// mutated only by the Service.
type Conversation struct {
	UserID    string
	SessionID string

	mu             sync.Mutex
	session        *domain.Session
	messages       []domain.Message
	pending        bool
	lastFailedText string
}

// newConversation creates a conversation with an empty session. The welcome
// message is seeded by the registry so id/clock generation stays in one place.
func newConversation(userID, sessionID string) *Conversation {
	return &Conversation{
		UserID:    userID,
		SessionID: sessionID,
		session:   domain.NewSession(),
	}
}

// beginTurn marks a turn in flight. It fails if one is already pending.
func (c *Conversation) beginTurn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return ErrTurnPending
	}
	c.pending = true
	return nil
}

func (c *Conversation) endTurn() {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}

// Pending reports whether a turn is currently in flight.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Conversation) append(msgs ...domain.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msgs...)
	c.mu.Unlock()
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// SessionSnapshot returns a copy of the session for read-only consumers.
func (c *Conversation) SessionSnapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.session
}

// RetryAvailable reports whether a failed submission is stored for retry.
func (c *Conversation) RetryAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFailedText != ""
}

// peekFailedText returns the stored failed submission without consuming it.
// The slot is cleared inside the turn guard once the resubmission actually
// starts, so a rejected retry keeps the text.
func (c *Conversation) peekFailedText() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFailedText == "" {
		return "", false
	}
	return c.lastFailedText, true
}

func (c *Conversation) setFailedText(text string) {
	c.mu.Lock()
	c.lastFailedText = text
	c.mu.Unlock()
}

func (c *Conversation) clearFailedText() {
	c.setFailedText("")
}

// historyProjection builds the role+text history the backend receives.
func (c *Conversation) historyProjection() []domain.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.HistoryProjection(c.messages)
}

// reset clears the session, the transcript, and the retry slot (logout).
func (c *Conversation) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Reset()
	c.messages = nil
	c.lastFailedText = ""
}
