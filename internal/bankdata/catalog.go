// Package bankdata provides the static mock loan data the agent serves.
package bankdata

import (
	"math/rand"
	"sync"

	"github.com/yellowbank/superagent/internal/domain"
)

// Catalog is the mock data boundary consumed by the turn coordinator.
type Catalog interface {
	// Accounts returns the fixed account catalog in stable order.
	Accounts() []domain.LoanAccount

	// Details returns the statement for an account id. Unknown ids get the
	// sentinel "Unknown" record; the lookup never fails.
	Details(accountID string) domain.LoanDetail

	// GenerateOTP returns a 4-digit one-time code. The pick is uniform over
	// a small fixed set and is deliberately not cryptographic: this is mock
	// data and the code is written to the log on generation.
	GenerateOTP() string
}

// otpCodes is the fixed pool GenerateOTP draws from.
var otpCodes = []string{"1234", "5678", "7889", "1209"}

// unknownDetail is returned for account ids outside the catalog.
var unknownDetail = domain.LoanDetail{
	Tenure:           "Unknown",
	InterestRate:     "N/A",
	PrincipalPending: "N/A",
	InterestPending:  "N/A",
	Nominee:          "None",
}

// StaticCatalog is the deterministic in-memory Catalog implementation.
type StaticCatalog struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStaticCatalog creates the catalog with the given random source seed.
func NewStaticCatalog(seed int64) *StaticCatalog {
	return &StaticCatalog{rng: rand.New(rand.NewSource(seed))}
}

func (c *StaticCatalog) Accounts() []domain.LoanAccount {
	return []domain.LoanAccount{
		{
			ID:                "LN-98421",
			Type:              "Home Loan",
			Tenure:            "15 Years",
			InternalBankCode:  "HB-77-X",
			AuditDate:         "2023-10-12",
			BranchLocation:    "Downtown Branch",
			ManagerName:       "Alice Johnson",
			LastUpdated:       "2023-11-01",
			RiskProfile:       "Low",
			Currency:          "USD",
			EligibleForTopUp:  true,
			InsuranceProvider: "SecureLife",
			TaxIdentifier:     "TX-12345",
			InterestCycle:     "Monthly",
			RepaymentMethod:   "Direct Debit",
		},
		{
			ID:                "LN-10552",
			Type:              "Personal Loan",
			Tenure:            "5 Years",
			InternalBankCode:  "PL-12-Z",
			AuditDate:         "2023-08-20",
			BranchLocation:    "Westside Hub",
			ManagerName:       "Bob Smith",
			LastUpdated:       "2023-11-15",
			RiskProfile:       "Medium",
			Currency:          "USD",
			EligibleForTopUp:  false,
			InsuranceProvider: "N/A",
			TaxIdentifier:     "TX-99881",
			InterestCycle:     "Monthly",
			RepaymentMethod:   "Wire Transfer",
		},
		{
			ID:                "LN-55210",
			Type:              "Auto Loan",
			Tenure:            "7 Years",
			InternalBankCode:  "AL-55-Q",
			AuditDate:         "2023-09-05",
			BranchLocation:    "North Station",
			ManagerName:       "Charlie Davis",
			LastUpdated:       "2023-10-25",
			RiskProfile:       "Low",
			Currency:          "USD",
			EligibleForTopUp:  true,
			InsuranceProvider: "AutoGuard",
			TaxIdentifier:     "TX-55662",
			InterestCycle:     "Quarterly",
			RepaymentMethod:   "Check",
		},
	}
}

func (c *StaticCatalog) Details(accountID string) domain.LoanDetail {
	switch accountID {
	case "LN-98421":
		return domain.LoanDetail{
			Tenure:           "15 Years",
			InterestRate:     "4.5% p.a.",
			PrincipalPending: "$120,000",
			InterestPending:  "$12,400",
			Nominee:          "Sarah Parker",
		}
	case "LN-10552":
		return domain.LoanDetail{
			Tenure:           "5 Years",
			InterestRate:     "10.2% p.a.",
			PrincipalPending: "$15,000",
			InterestPending:  "$1,200",
			Nominee:          "James Brown",
		}
	case "LN-55210":
		return domain.LoanDetail{
			Tenure:           "7 Years",
			InterestRate:     "6.8% p.a.",
			PrincipalPending: "$32,500",
			InterestPending:  "$2,150",
			Nominee:          "Linda Davis",
		}
	default:
		return unknownDetail
	}
}

func (c *StaticCatalog) GenerateOTP() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return otpCodes[c.rng.Intn(len(otpCodes))]
}

var _ Catalog = (*StaticCatalog)(nil)
