package domain

// LoanAccount is a raw mock account record. The auxiliary fields exist so
// the projection rule is observable: only the AccountSummary subset may ever
// reach the backend or the frontend account list.
type LoanAccount struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Tenure string `json:"tenure"`

	InternalBankCode  string `json:"internal_bank_code"`
	AuditDate         string `json:"audit_date"`
	BranchLocation    string `json:"branch_location"`
	ManagerName       string `json:"manager_name"`
	LastUpdated       string `json:"last_updated"`
	RiskProfile       string `json:"risk_profile"`
	Currency          string `json:"currency"`
	EligibleForTopUp  bool   `json:"is_eligible_for_top_up"`
	InsuranceProvider string `json:"insurance_provider"`
	TaxIdentifier     string `json:"tax_identifier"`
	InterestCycle     string `json:"interest_cycle"`
	RepaymentMethod   string `json:"repayment_method"`
}

// AccountSummary is the minimal projection exposed onward.
type AccountSummary struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Tenure string `json:"tenure"`
}

// Summary projects the account down to the exposed subset.
func (a LoanAccount) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Type: a.Type, Tenure: a.Tenure}
}

// SummarizeAccounts projects a slice of raw accounts, preserving order.
func SummarizeAccounts(accounts []LoanAccount) []AccountSummary {
	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Summary())
	}
	return out
}

// LoanDetail is the per-account statement record.
type LoanDetail struct {
	Tenure           string `json:"tenure"`
	InterestRate     string `json:"interest_rate"`
	PrincipalPending string `json:"principal_pending"`
	InterestPending  string `json:"interest_pending"`
	Nominee          string `json:"nominee"`
}
