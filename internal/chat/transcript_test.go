package chat

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTranscriptLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewTranscriptLogger(TranscriptLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(TranscriptEvent{
		UserID:    "user-1",
		SessionID: "tab-1",
		EventType: "user_message",
		Role:      "user",
		Text:      "View loan details",
	})

	path := filepath.Join(dir, "user-1", "tab-1.ndjson")
	line := waitForLogLine(t, path)
	var got TranscriptEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Text != "View loan details" {
		t.Fatalf("unexpected Text: %q", got.Text)
	}
	if got.EventType != "user_message" {
		t.Fatalf("unexpected EventType: %q", got.EventType)
	}
}

func TestTranscriptLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewTranscriptLogger(TranscriptLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}
	logger.Log(TranscriptEvent{UserID: "user-1", SessionID: "tab-1"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestSanitizePathSegment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"anon_ab12", "anon_ab12"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"", "unknown"},
		{"tab:1", "tab_1"},
	}
	for _, tc := range cases {
		if got := sanitizePathSegment(tc.in); got != tc.want {
			t.Errorf("sanitizePathSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			return string(data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("log line never appeared at %s", path)
	return ""
}
