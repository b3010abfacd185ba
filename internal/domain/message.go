package domain

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// MessageVariant selects how the frontend renders a message.
type MessageVariant string

const (
	VariantPlain        MessageVariant = "plain"
	VariantAccountList  MessageVariant = "account-list"
	VariantDetailTable  MessageVariant = "detail-table"
	VariantSatisfaction MessageVariant = "satisfaction-prompt"
)

// Message is a single turn entry in the conversation transcript.
// Every message carries text, a variant payload, or both.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Text      string           `json:"text,omitempty"`
	Variant   MessageVariant   `json:"variant"`
	Accounts  []AccountSummary `json:"accounts,omitempty"`
	Detail    *LoanDetail      `json:"detail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// HistoryEntry is the reduced {role, text} projection of a message sent to
// the conversational backend. Variant payloads are never forwarded.
type HistoryEntry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// HistoryProjection reduces a transcript to the role+text pairs the backend
// receives. Messages that carry only a variant payload are skipped.
func HistoryProjection(messages []Message) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.Text == "" {
			continue
		}
		out = append(out, HistoryEntry{Role: m.Role, Text: m.Text})
	}
	return out
}
