// Package gemini is a focused client for the Generative Language API.
// It performs one round trip per turn: no retries, no backoff, no caching.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yellowbank/superagent/internal/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// generateRequest is the minimal request shape for the generateContent endpoint.
type generateRequest struct {
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

// generateResponse is the minimal response shape returned by generateContent.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the Generative Language API for one model.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests point this at httptest).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. The API key is required; its absence is a
// startup error, not something callers can recover from at runtime.
func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: API key must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) generateURL() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
}

// Send submits the latest user text plus the rolling history and returns the
// backend's directive for this turn. Transport and HTTP failures propagate to
// the caller; only malformed MODEL OUTPUT is coerced to the safe fallback
// directive (see ParseDirective).
func (c *Client) Send(ctx context.Context, userText string, history []domain.HistoryEntry, session *domain.Session) (domain.Directive, error) {
	contents := make([]content, 0, len(history)+1)
	for _, h := range history {
		contents = append(contents, content{
			Role:  geminiRole(h.Role),
			Parts: []part{{Text: h.Text}},
		})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: userText}}})

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents:          contents,
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   directiveResponseSchema,
		},
	})
	if err != nil {
		return domain.Directive{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := c.generateURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Directive{}, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.Directive{}, fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return domain.Directive{}, fmt.Errorf("gemini: decode response: %w", decErr)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return domain.Directive{}, errors.New("gemini: no candidates in response")
	}

	return ParseDirective(payload.Candidates[0].Content.Parts[0].Text), nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func geminiRole(r domain.Role) string {
	if r == domain.RoleAgent {
		return "model"
	}
	return "user"
}
