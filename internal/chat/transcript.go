package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// TranscriptEvent is one NDJSON line in the conversation transcript.
type TranscriptEvent struct {
	Timestamp string         `json:"ts"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	EventType string         `json:"event_type"`
	Role      string         `json:"role,omitempty"`
	Text      string         `json:"text,omitempty"`
	Variant   string         `json:"variant,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// TranscriptLogger records conversation events for local diagnostics.
// It must never block or fail a turn.
type TranscriptLogger interface {
	Log(event TranscriptEvent)
	Close() error
}

type noopTranscriptLogger struct{}

func (noopTranscriptLogger) Log(TranscriptEvent) {}
func (noopTranscriptLogger) Close() error        { return nil }

// TranscriptLogConfig controls NDJSON transcript logging.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// fileTranscriptLogger writes one NDJSON file per user/session under Dir.
// Writes happen on a single background goroutine fed by a bounded queue;
// events are dropped (with a warning) when the queue is full.
type fileTranscriptLogger struct {
	dir    string
	queue  chan TranscriptEvent
	done   chan struct{}
	closed sync.Once
	logger *slog.Logger
}

// NewTranscriptLogger creates the NDJSON logger, or a no-op when disabled.
func NewTranscriptLogger(cfg TranscriptLogConfig, logger *slog.Logger) (TranscriptLogger, error) {
	if !cfg.Enabled {
		return noopTranscriptLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("chat: transcript log dir must not be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("chat: create transcript log dir: %w", err)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &fileTranscriptLogger{
		dir:    cfg.Dir,
		queue:  make(chan TranscriptEvent, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l, nil
}

func (l *fileTranscriptLogger) Log(event TranscriptEvent) {
	select {
	case l.queue <- event:
	case <-l.done:
	default:
		l.logger.Warn("transcript queue full, dropping event",
			"user_id", event.UserID, "event_type", event.EventType)
	}
}

func (l *fileTranscriptLogger) Close() error {
	l.closed.Do(func() {
		close(l.done)
	})
	return nil
}

func (l *fileTranscriptLogger) run() {
	for {
		select {
		case <-l.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case event := <-l.queue:
					l.write(event)
				default:
					return
				}
			}
		case event := <-l.queue:
			l.write(event)
		}
	}
}

func (l *fileTranscriptLogger) write(event TranscriptEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("failed to marshal transcript event", "error", err)
		return
	}

	userDir := filepath.Join(l.dir, sanitizePathSegment(event.UserID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		l.logger.Warn("failed to create transcript user dir", "error", err)
		return
	}
	path := filepath.Join(userDir, sanitizePathSegment(event.SessionID)+".ndjson")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.Warn("failed to open transcript file", "path", path, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("failed to append transcript event", "path", path, "error", err)
	}
}

// sanitizePathSegment keeps transcript filenames flat: anything that could
// escape the directory collapses to an underscore.
func sanitizePathSegment(s string) string {
	if s == "" {
		return "unknown"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
