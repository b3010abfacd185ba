// Package domain contains core domain types for the Yellow Bank super agent.
package domain

// AuthStep is the authentication phase of a conversation.
type AuthStep string

const (
	AuthStepNone            AuthStep = "NONE"
	AuthStepCollectingPhone AuthStep = "COLLECTING_PHONE"
	AuthStepCollectingDOB   AuthStep = "COLLECTING_DOB"
	AuthStepCollectingOTP   AuthStep = "COLLECTING_OTP"
	AuthStepAuthenticated   AuthStep = "AUTHENTICATED"
)

// Session is the per-conversation authentication and selection state.
// It is owned and mutated exclusively by the turn coordinator; every other
// layer reads it through projections.
type Session struct {
	Intent            string   `json:"intent,omitempty"`
	AuthStep          AuthStep `json:"auth_step"`
	PhoneNumber       string   `json:"phone_number,omitempty"`
	DOB               string   `json:"dob,omitempty"`
	GeneratedOTP      string   `json:"-"`
	SelectedAccountID string   `json:"selected_account_id,omitempty"`
}

// NewSession returns an empty session at the start of a conversation.
func NewSession() *Session {
	return &Session{AuthStep: AuthStepNone}
}

// Reset clears all session state (logout).
func (s *Session) Reset() {
	*s = Session{AuthStep: AuthStepNone}
}

// BeginAuthCycle starts a fresh authentication cycle ("change my number"
// flows). Collected credentials and any outstanding OTP are discarded; the
// intent and selected account survive.
func (s *Session) BeginAuthCycle() {
	s.AuthStep = AuthStepCollectingPhone
	s.PhoneNumber = ""
	s.DOB = ""
	s.GeneratedOTP = ""
}

// Authenticated reports whether the caller has completed OTP verification.
func (s *Session) Authenticated() bool {
	return s.AuthStep == AuthStepAuthenticated
}
