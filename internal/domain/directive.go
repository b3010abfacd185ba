package domain

// NextStep is the closed set of UI actions the conversational backend may
// request. Anything outside this set is rejected at the adapter boundary and
// coerced to StepNone.
type NextStep string

const (
	StepRequestPhone NextStep = "REQUEST_PHONE"
	StepRequestDOB   NextStep = "REQUEST_DOB"
	StepTriggerOTP   NextStep = "TRIGGER_OTP"
	StepVerifyOTP    NextStep = "VERIFY_OTP"
	StepListAccounts NextStep = "LIST_ACCOUNTS"
	StepShowDetails  NextStep = "SHOW_DETAILS"
	StepCSAT         NextStep = "CSAT"
	StepNone         NextStep = "NONE"
)

// Valid reports whether s is one of the known next-step values.
func (s NextStep) Valid() bool {
	switch s {
	case StepRequestPhone, StepRequestDOB, StepTriggerOTP, StepVerifyOTP,
		StepListAccounts, StepShowDetails, StepCSAT, StepNone:
		return true
	}
	return false
}

// DataProjection carries the optional structured fields of a directive.
type DataProjection struct {
	AccountID   string `json:"accountId,omitempty"`
	IntentClear bool   `json:"intentClear,omitempty"`
}

// Directive is the validated decision object returned by the backend for one
// turn: the reply text plus the next UI action. Transient, never persisted.
type Directive struct {
	Reply          string          `json:"reply"`
	NextStep       NextStep        `json:"nextStep"`
	DataProjection *DataProjection `json:"dataProjection,omitempty"`
}

// AccountID returns the projected account id, if any.
func (d Directive) AccountID() string {
	if d.DataProjection == nil {
		return ""
	}
	return d.DataProjection.AccountID
}

// IntentClear reports whether the backend requested a fresh auth cycle.
func (d Directive) IntentClear() bool {
	return d.DataProjection != nil && d.DataProjection.IntentClear
}
