package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yellowbank/superagent/internal/domain"
)

func modelJSON(t *testing.T, directive string) string {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": directive}}}},
		},
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal model response: %v", err)
	}
	return string(raw)
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("", "gemini-3-flash-preview"); err == nil {
		t.Fatal("expected error for empty API key")
	}
	if _, err := NewClient("key", "  "); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestSendForwardsHistoryAndParsesDirective(t *testing.T) {
	t.Parallel()

	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing API key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(modelJSON(t, `{"reply":"Please share your registered phone number.","nextStep":"REQUEST_PHONE"}`)))
	}))
	defer srv.Close()

	c, err := NewClient("test-key", "gemini-3-flash-preview", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	history := []domain.HistoryEntry{
		{Role: domain.RoleAgent, Text: "Welcome."},
		{Role: domain.RoleUser, Text: "View loan details"},
	}
	d, err := c.Send(context.Background(), "my number is 555-0101", history, domain.NewSession())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if d.NextStep != domain.StepRequestPhone {
		t.Errorf("expected REQUEST_PHONE, got %s", d.NextStep)
	}
	if d.Reply == "" {
		t.Error("expected reply text")
	}
	if gotReq.SystemInstruction == nil || len(gotReq.SystemInstruction.Parts) == 0 {
		t.Fatal("expected system instruction in request")
	}
	if len(gotReq.Contents) != 3 {
		t.Fatalf("expected 3 contents (history + latest), got %d", len(gotReq.Contents))
	}
	if gotReq.Contents[0].Role != "model" {
		t.Errorf("agent history role should map to model, got %q", gotReq.Contents[0].Role)
	}
	if gotReq.Contents[2].Parts[0].Text != "my number is 555-0101" {
		t.Errorf("latest user text missing: %+v", gotReq.Contents[2])
	}
	if gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("expected JSON response mime type, got %q", gotReq.GenerationConfig.ResponseMIMEType)
	}
}

func TestSendMalformedModelOutputFallsBack(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
	}{
		{"not json", "sorry, plain prose"},
		{"missing reply", `{"nextStep":"NONE"}`},
		{"missing nextStep", `{"reply":"hello"}`},
		{"unknown nextStep", `{"reply":"hello","nextStep":"SELF_DESTRUCT"}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(modelJSON(t, tc.text)))
			}))
			defer srv.Close()

			c, err := NewClient("test-key", "gemini-3-flash-preview", WithBaseURL(srv.URL))
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}
			d, err := c.Send(context.Background(), "hi", nil, domain.NewSession())
			if err != nil {
				t.Fatalf("malformed model output must not surface as an error, got %v", err)
			}
			if d.NextStep != domain.StepNone {
				t.Errorf("expected fallback NONE, got %s", d.NextStep)
			}
			if d.Reply != fallbackDirective.Reply {
				t.Errorf("expected fallback apology, got %q", d.Reply)
			}
		})
	}
}

func TestSendTransportFailurePropagates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient("test-key", "gemini-3-flash-preview", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	_, err = c.Send(context.Background(), "hi", nil, domain.NewSession())
	if err == nil {
		t.Fatal("expected transport error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.HTTPStatusCode() != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", statusErr.StatusCode)
	}
}

func TestSendEmptyCandidatesIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient("test-key", "gemini-3-flash-preview", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := c.Send(context.Background(), "hi", nil, domain.NewSession()); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestParseDirectivePreservesProjection(t *testing.T) {
	t.Parallel()

	d := ParseDirective(`{"reply":"Here are the details.","nextStep":"SHOW_DETAILS","dataProjection":{"accountId":"LN-98421","intentClear":false}}`)
	if d.NextStep != domain.StepShowDetails {
		t.Fatalf("unexpected nextStep: %s", d.NextStep)
	}
	if d.AccountID() != "LN-98421" {
		t.Errorf("expected projected account id, got %q", d.AccountID())
	}
	if d.IntentClear() {
		t.Error("intentClear should be false")
	}
}
