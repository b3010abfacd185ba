package chatws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/yellowbank/superagent/internal/bankdata"
	"github.com/yellowbank/superagent/internal/chat"
	"github.com/yellowbank/superagent/internal/domain"
	"github.com/yellowbank/superagent/internal/identity"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*domain.User)}
}

func (m *memRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *memRepo) UpsertUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *memRepo) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.LastSeenAt = lastSeen
	}
	return nil
}

func (m *memRepo) soleUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.users {
		return id
	}
	return ""
}

func (m *memRepo) SaveRating(context.Context, *domain.CSATRating) error { return nil }
func (m *memRepo) ListRatings(context.Context, int) ([]*domain.CSATRating, error) {
	return nil, nil
}
func (m *memRepo) Ping(context.Context) error { return nil }
func (m *memRepo) Close() error               { return nil }

type echoBackend struct{}

func (echoBackend) Send(_ context.Context, text string, _ []domain.HistoryEntry, _ *domain.Session) (domain.Directive, error) {
	return domain.Directive{Reply: "you said: " + text, NextStep: domain.StepNone}, nil
}

func TestWebSocketChatRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := chat.NewService(echoBackend{}, bankdata.NewStaticCatalog(1), chat.WithVerifyDelay(0))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	reg := chat.NewRegistry(svc.SeedWelcome)
	repo := newMemRepo()
	handler := NewHandler(svc, reg, repo, NewConnManager(), nil, "*", true)

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	r.Get("/ws/chat", handler.ServeHTTP)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() { _ = ws.Close(websocket.StatusNormalClosure, "done") }()

	// The first frame replays the transcript: just the welcome message.
	hist := readFrame(ctx, t, ws)
	if hist.Type != "history" {
		t.Fatalf("expected history frame, got %q", hist.Type)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].Role != domain.RoleAgent {
		t.Fatalf("unexpected history: %+v", hist.Messages)
	}

	payload, err := json.Marshal(inboundFrame{Type: "message", Text: "hello"})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// One turn emits exactly: typing on, typing off, then the message.
	frame := readFrame(ctx, t, ws)
	if frame.Type != "typing" || !frame.Typing {
		t.Fatalf("expected typing-on first, got %+v", frame)
	}
	frame = readFrame(ctx, t, ws)
	if frame.Type != "typing" || frame.Typing {
		t.Fatalf("expected typing-off before the message, got %+v", frame)
	}
	frame = readFrame(ctx, t, ws)
	if frame.Type != "message" || frame.Message == nil {
		t.Fatalf("expected message frame last, got %+v", frame)
	}
	if frame.Message.Text != "you said: hello" {
		t.Fatalf("unexpected agent reply: %q", frame.Message.Text)
	}
	if frame.Session == nil {
		t.Fatal("final message of the turn must carry the session snapshot")
	}
}

func TestCloseUserDisconnectsLiveSocket(t *testing.T) {
	t.Parallel()

	svc, err := chat.NewService(echoBackend{}, bankdata.NewStaticCatalog(1), chat.WithVerifyDelay(0))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	reg := chat.NewRegistry(svc.SeedWelcome)
	repo := newMemRepo()
	cm := NewConnManager()
	handler := NewHandler(svc, reg, repo, cm, nil, "*", true)

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	r.Get("/ws/chat", handler.ServeHTTP)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() { _ = ws.Close(websocket.StatusNormalClosure, "done") }()

	readFrame(ctx, t, ws) // history

	userID := repo.soleUserID()
	if userID == "" {
		t.Fatal("expected a registered user")
	}
	cm.CloseUser(userID)

	if _, _, err := ws.Read(ctx); err == nil {
		t.Fatal("expected the closed socket's read to fail")
	}
	if cm.GetActive(userID, "default") != nil {
		t.Fatal("closed connection must leave the manager")
	}
}

func readFrame(ctx context.Context, t *testing.T, ws *websocket.Conn) outboundFrame {
	t.Helper()
	_, data, err := ws.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var frame outboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return frame
}
