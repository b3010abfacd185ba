package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yellowbank/superagent/internal/bankdata"
	"github.com/yellowbank/superagent/internal/domain"
)

// Scripted agent lines. The backend's reply is suppressed where these apply.
const (
	welcomeText = "Yellow Bank Super Agent online. \U0001F44B\n\n" +
		"I am your unified interface for loan management, powered by Yellow.ai. How can I assist you today?"
	verifiedText    = "Identity verified. Loading your Yellow Cloud registry..."
	otpMismatchText = "The security code does not match. Please try again."
	commFailureText = "I encountered a communication gap with Yellow Bank core services."
)

// defaultVerifyDelay simulates registry processing time between OTP
// verification and the account list appearing.
const defaultVerifyDelay = time.Second

// Backend is the conversational boundary the coordinator depends on.
// Implemented by the gemini client; tests substitute a scripted fake.
type Backend interface {
	Send(ctx context.Context, userText string, history []domain.HistoryEntry, session *domain.Session) (domain.Directive, error)
}

// TurnResult is what one submission produced: the appended messages plus a
// session snapshot for the presentation layer.
type TurnResult struct {
	UserMessage    domain.Message   `json:"user_message"`
	AgentMessages  []domain.Message `json:"agent_messages"`
	Session        domain.Session   `json:"session"`
	CommFailure    bool             `json:"comm_failure"`
	RetryAvailable bool             `json:"retry_available"`
}

// Service sequences user turns: it is the only component that mutates
// Session state or appends to the transcript.
type Service struct {
	backend     Backend
	catalog     bankdata.Catalog
	transcript  TranscriptLogger
	verifyDelay time.Duration
	now         func() time.Time
	newID       func() string
}

type ServiceOption func(*Service)

// WithVerifyDelay overrides the post-OTP processing delay (zero in tests).
func WithVerifyDelay(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.verifyDelay = d
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithTranscriptLogger attaches an NDJSON transcript logger.
func WithTranscriptLogger(l TranscriptLogger) ServiceOption {
	return func(s *Service) {
		s.transcript = l
	}
}

// NewService creates the turn coordinator.
func NewService(backend Backend, catalog bankdata.Catalog, opts ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("chat: backend must not be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("chat: catalog must not be nil")
	}
	s := &Service{
		backend:     backend,
		catalog:     catalog,
		transcript:  noopTranscriptLogger{},
		verifyDelay: defaultVerifyDelay,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SeedWelcome appends the welcome message to a fresh conversation. The
// registry calls this once per conversation.
func (s *Service) SeedWelcome(conv *Conversation) {
	conv.append(s.agentMessage(welcomeText, domain.VariantPlain))
}

// Submit runs one user turn. The returned error covers caller mistakes
// (empty text, a turn already pending); a backend transport failure is NOT
// an error here — it is reported through TurnResult.CommFailure with the
// fixed error message appended and the text stored for one manual retry.
func (s *Service) Submit(ctx context.Context, conv *Conversation, text string) (TurnResult, error) {
	return s.submit(ctx, conv, text, nil)
}

// submit runs the turn. preTurn, when set, mutates the session under the
// turn guard so rejected submissions (empty text, turn pending) leave no
// trace on session state.
func (s *Service) submit(ctx context.Context, conv *Conversation, text string, preTurn func(*domain.Session)) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if err := conv.beginTurn(); err != nil {
		return TurnResult{}, err
	}
	defer conv.endTurn()

	conv.clearFailedText()
	if preTurn != nil {
		conv.mu.Lock()
		preTurn(conv.session)
		conv.mu.Unlock()
	}

	userMsg := domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleUser,
		Text:      text,
		Variant:   domain.VariantPlain,
		Timestamp: s.now(),
	}
	history := conv.historyProjection()
	conv.append(userMsg)
	s.logTranscript(conv, "user_message", userMsg)

	directive, err := s.backend.Send(ctx, text, history, conv.session)
	if err != nil {
		// Session state stays untouched on any transport failure: one
		// fixed error message, one retry slot, nothing else.
		slog.Error("Backend call failed", "user_id", conv.UserID, "session_id", conv.SessionID, "error", err)
		conv.setFailedText(text)
		errMsg := s.agentMessage(commFailureText, domain.VariantPlain)
		conv.append(errMsg)
		s.logTurnError(conv, err)
		return TurnResult{
			UserMessage:    userMsg,
			AgentMessages:  []domain.Message{errMsg},
			Session:        conv.SessionSnapshot(),
			CommFailure:    true,
			RetryAvailable: true,
		}, nil
	}

	agentMsgs := s.applyDirective(ctx, conv, text, directive)
	conv.append(agentMsgs...)
	for _, m := range agentMsgs {
		s.logTranscript(conv, "agent_message", m)
	}

	return TurnResult{
		UserMessage:   userMsg,
		AgentMessages: agentMsgs,
		Session:       conv.SessionSnapshot(),
	}, nil
}

// Retry resubmits the stored failed text. One shot: the slot is consumed
// when the resubmission starts, and restored if the backend fails again. A
// retry rejected because a turn is pending keeps the text.
func (s *Service) Retry(ctx context.Context, conv *Conversation) (TurnResult, error) {
	text, ok := conv.peekFailedText()
	if !ok {
		return TurnResult{}, ErrNothingToRetry
	}
	return s.submit(ctx, conv, text, nil)
}

// SelectAccount records the chosen account and synthesizes the follow-up
// user turn asking for its details. The selection lands only once the turn
// is actually accepted.
func (s *Service) SelectAccount(ctx context.Context, conv *Conversation, accountID string) (TurnResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	text := fmt.Sprintf("Show details for loan %s", accountID)
	return s.submit(ctx, conv, text, func(session *domain.Session) {
		session.SelectedAccountID = accountID
	})
}

// Reset clears the conversation (logout) and re-seeds the welcome message.
func (s *Service) Reset(conv *Conversation) []domain.Message {
	conv.reset()
	s.SeedWelcome(conv)
	slog.Info("Conversation reset", "user_id", conv.UserID, "session_id", conv.SessionID)
	return conv.Messages()
}

// applyDirective applies the session state machine and decides which agent
// messages the turn appends. Called with the turn guard held, so session
// mutation is race-free.
func (s *Service) applyDirective(ctx context.Context, conv *Conversation, userText string, d domain.Directive) []domain.Message {
	conv.mu.Lock()
	session := conv.session
	if id := d.AccountID(); id != "" {
		session.SelectedAccountID = id
	}
	if d.IntentClear() {
		// "Change my number" flows: fresh auth cycle regardless of the
		// prior state, authenticated/guest distinction preserved.
		session.BeginAuthCycle()
	}
	conv.mu.Unlock()

	switch d.NextStep {
	case domain.StepTriggerOTP:
		return s.triggerOTP(conv, userText, d)
	case domain.StepVerifyOTP:
		return s.verifyOTP(ctx, conv, userText)
	case domain.StepShowDetails:
		return s.showDetails(conv, d)
	case domain.StepCSAT:
		return []domain.Message{
			s.agentMessage(d.Reply, domain.VariantPlain),
			s.agentMessage("", domain.VariantSatisfaction),
		}
	default:
		// REQUEST_PHONE, REQUEST_DOB, LIST_ACCOUNTS, NONE: the auth step
		// never moves; only the reply is shown.
		if d.NextStep == domain.StepRequestPhone {
			// The turn that starts credential collection is the user stating
			// their goal; keep it as the session intent.
			conv.mu.Lock()
			if conv.session.Intent == "" {
				conv.session.Intent = userText
			}
			conv.mu.Unlock()
		}
		if d.NextStep == domain.StepRequestDOB {
			// The model advancing to DOB means this turn's text was the
			// phone number.
			conv.mu.Lock()
			conv.session.PhoneNumber = userText
			conv.mu.Unlock()
		}
		return []domain.Message{s.agentMessage(d.Reply, domain.VariantPlain)}
	}
}

func (s *Service) triggerOTP(conv *Conversation, userText string, d domain.Directive) []domain.Message {
	otp := s.catalog.GenerateOTP()
	conv.mu.Lock()
	conv.session.DOB = userText
	conv.session.GeneratedOTP = otp
	conv.session.AuthStep = domain.AuthStepCollectingOTP
	conv.mu.Unlock()

	// The mock security hub "delivers" the OTP through the log. Insecure on
	// purpose: there is no real channel to send it over.
	slog.Info("[SECURITY HUB] Generated OTP", "user_id", conv.UserID, "otp", otp)

	return []domain.Message{s.agentMessage(d.Reply, domain.VariantPlain)}
}

func (s *Service) verifyOTP(ctx context.Context, conv *Conversation, userText string) []domain.Message {
	conv.mu.Lock()
	otp := conv.session.GeneratedOTP
	conv.mu.Unlock()

	if otp == "" || userText != otp {
		// Mismatch is a normal branch, not an error: the step and the
		// stored OTP stay, retries are unlimited.
		return []domain.Message{s.agentMessage(otpMismatchText, domain.VariantPlain)}
	}

	conv.mu.Lock()
	conv.session.AuthStep = domain.AuthStepAuthenticated
	conv.mu.Unlock()

	if s.verifyDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.verifyDelay):
		}
	}

	summaries := domain.SummarizeAccounts(s.catalog.Accounts())
	listMsg := s.agentMessage("", domain.VariantAccountList)
	listMsg.Accounts = summaries
	return []domain.Message{
		s.agentMessage(verifiedText, domain.VariantPlain),
		listMsg,
	}
}

func (s *Service) showDetails(conv *Conversation, d domain.Directive) []domain.Message {
	conv.mu.Lock()
	accountID := conv.session.SelectedAccountID
	conv.mu.Unlock()

	if accountID == "" {
		return []domain.Message{s.agentMessage(d.Reply, domain.VariantPlain)}
	}

	detail := s.catalog.Details(accountID)
	detailMsg := s.agentMessage("", domain.VariantDetailTable)
	detailMsg.Detail = &detail
	return []domain.Message{
		s.agentMessage(d.Reply, domain.VariantPlain),
		detailMsg,
	}
}

func (s *Service) agentMessage(text string, variant domain.MessageVariant) domain.Message {
	return domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleAgent,
		Text:      text,
		Variant:   variant,
		Timestamp: s.now(),
	}
}

func (s *Service) logTranscript(conv *Conversation, eventType string, m domain.Message) {
	s.transcript.Log(TranscriptEvent{
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		UserID:    conv.UserID,
		SessionID: conv.SessionID,
		EventType: eventType,
		Role:      string(m.Role),
		Text:      m.Text,
		Variant:   string(m.Variant),
	})
}

func (s *Service) logTurnError(conv *Conversation, err error) {
	s.transcript.Log(TranscriptEvent{
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		UserID:    conv.UserID,
		SessionID: conv.SessionID,
		EventType: "turn_error",
		Meta:      map[string]any{"error": err.Error()},
	})
}
