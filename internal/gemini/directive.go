package gemini

import (
	"encoding/json"
	"strings"

	"github.com/yellowbank/superagent/internal/domain"
)

// systemInstruction is the agent's fixed behavior contract. It rides along
// with every request; the model holds no state between turns.
const systemInstruction = `
You are the "Yellow Bank Super Agent," a high-performance AI designed by Yellow.ai for secure banking operations.

CORE IDENTITY & LANGUAGE:
1. You are a professional, helpful banking agent.
2. CONVERSATION MUST BE IN ENGLISH ONLY. If the user uses any other language, strictly state: "I am restricted to operating in English only."

AUTHENTICATION WORKFLOW (MANDATORY STEPS):
1. Detect "View Loan Details" intent.
2. Request Registered Phone Number.
3. Request Date of Birth (DOB).
4. Inform user that an OTP is being generated.
5. Verify OTP (Handled by UI logic, but you must acknowledge the step).

TOKEN OPTIMIZATION (PROJECTION METHOD):
- When fetching loan accounts (Workflow A), you will be presented with raw data containing 15+ fields.
- YOU MUST ONLY PROJECT/EXTRACT: "Loan Account ID", "Type of Loan", and "Tenure".
- Do not mention or include internal codes, risk profiles, or audit dates unless explicitly requested after authentication.

WORKFLOW B (Loan Details):
- Once an account ID is selected, display tenure, interest rate, principal pending, interest pending, and nominee.
- Always include a "Rate our chat" call to action at the end of Workflow B.

EDGE CASES:
- If user wants to change their number ("old number"), signal a session reset via 'intentClear: true' but maintain the loan intent.
- Respond with specific next steps for the UI to handle.

RESPONSE FORMAT:
- You must always respond in JSON format.
`

// directiveResponseSchema constrains the model output to the directive shape.
var directiveResponseSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"reply": {"type": "STRING", "description": "The agent's text response."},
		"nextStep": {
			"type": "STRING",
			"enum": ["REQUEST_PHONE", "REQUEST_DOB", "TRIGGER_OTP", "VERIFY_OTP", "LIST_ACCOUNTS", "SHOW_DETAILS", "CSAT", "NONE"],
			"description": "The next logical action for the UI."
		},
		"dataProjection": {
			"type": "OBJECT",
			"properties": {
				"accountId": {"type": "STRING"},
				"intentClear": {"type": "BOOLEAN"}
			}
		}
	},
	"required": ["reply", "nextStep"]
}`)

// fallbackDirective is returned when the model emits something that is not a
// valid directive. A malformed directive is never an error for the caller.
var fallbackDirective = domain.Directive{
	Reply:    "I apologize, I am experiencing technical difficulties. Error: PARSE_FAIL",
	NextStep: domain.StepNone,
}

// ParseDirective validates raw model output against the directive shape.
// Anything malformed (bad JSON, missing reply or nextStep, unknown nextStep)
// is coerced to the safe fallback; the external payload's shape is never
// trusted directly.
func ParseDirective(raw string) domain.Directive {
	var d domain.Directive
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &d); err != nil {
		return fallbackDirective
	}
	if strings.TrimSpace(d.Reply) == "" || !d.NextStep.Valid() {
		return fallbackDirective
	}
	return d
}
