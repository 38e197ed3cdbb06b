// pkg/cleaner/rules.go
package cleaner

import (
	"database/sql"
	"strings"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// Sentinel categories for values that cannot be classified
const (
	Unknown = "Unknown"
	Other   = "Other"
)

// MatchMode selects how a rule pattern is compared with the trimmed, lower-cased raw value
type MatchMode int

const (
	// MatchExact requires the whole value to equal the pattern
	MatchExact MatchMode = iota
	// MatchKeyword requires the value to contain the pattern
	MatchKeyword
)

// Rule maps raw values matching Pattern (lower case) to a canonical value
type Rule struct {
	Pattern   string
	Canonical string
}

// Mapping is the ordered rule table of one categorical column. The first matching rule wins.
type Mapping struct {
	Column   string
	Mode     MatchMode
	Rules    []Rule
	Fallback string
}

// Apply classifies a raw value. matched is false when the fallback was used.
func (m Mapping) Apply(raw sql.NullString) (value string, matched bool) {
	if !raw.Valid {
		return m.Fallback, false
	}

	normalized := strings.ToLower(strings.TrimSpace(raw.String))
	for _, rule := range m.Rules {
		switch m.Mode {
		case MatchExact:
			if normalized == rule.Pattern {
				return rule.Canonical, true
			}
		case MatchKeyword:
			if strings.Contains(normalized, rule.Pattern) {
				return rule.Canonical, true
			}
		}
	}
	return m.Fallback, false
}

// Domain returns the closed set of values the mapping can produce
func (m Mapping) Domain() []string {
	seen := make(map[string]bool, len(m.Rules)+1)
	domain := make([]string, 0, len(m.Rules)+1)
	for _, rule := range m.Rules {
		if !seen[rule.Canonical] {
			seen[rule.Canonical] = true
			domain = append(domain, rule.Canonical)
		}
	}
	if !seen[m.Fallback] {
		domain = append(domain, m.Fallback)
	}
	return domain
}

// Contains reports whether value belongs to the mapping's domain
func (m Mapping) Contains(value string) bool {
	for _, v := range m.Domain() {
		if v == value {
			return true
		}
	}
	return false
}

var (
	AccountTypeMapping = Mapping{
		Column: "account_type",
		Mode:   MatchExact,
		Rules: []Rule{
			{"savings", "Savings"},
			{"cd", "Certificate of Deposit"},
			{"money market", "Money Market"},
			{"checking", "Checking"},
		},
		Fallback: Unknown,
	}

	AccountStatusMapping = Mapping{
		Column: "status",
		Mode:   MatchExact,
		Rules: []Rule{
			{"closed", "Closed"},
			{"active", "Active"},
			{"dormant", "Dormant"},
		},
		Fallback: Unknown,
	}

	// Raw "Unemployed" maps to Unemployed, not Employed. "unemployed" and "self-employed"
	// both contain "employed", so they are listed first.
	EmploymentStatusMapping = Mapping{
		Column: "employment_status",
		Mode:   MatchKeyword,
		Rules: []Rule{
			{"unemployed", "Unemployed"},
			{"retired", "Retired"},
			{"self-employed", "Self Employed"},
			{"self employed", "Self Employed"},
			{"employed", "Employed"},
		},
		Fallback: "Unemployed",
	}

	LoanTypeMapping = Mapping{
		Column: "loan_type",
		Mode:   MatchKeyword,
		Rules: []Rule{
			{"mortgage", "Mortgage"},
			{"auto", "Auto Loan"},
			{"personal", "Personal Loan"},
			{"student", "Student Loan"},
		},
		Fallback: Other,
	}

	LoanStatusMapping = Mapping{
		Column: "status",
		Mode:   MatchKeyword,
		Rules: []Rule{
			{"current", "Current"},
			{"delinquent", "Delinquent"},
			{"paid off", "Paid Off"},
		},
		Fallback: Unknown,
	}

	TransactionTypeMapping = Mapping{
		Column: "transaction_type",
		Mode:   MatchExact,
		Rules: []Rule{
			{"atm", "ATM Withdrawal"},
			{"withdrawal", "Withdrawal"},
			{"deposit", "Deposit"},
			{"direct deposit", "Direct Deposit"},
			{"transfer", "Transfer"},
			{"pos", "POS Payment"},
			{"online payment", "Online Payment"},
			{"interest", "Interest"},
		},
		Fallback: Other,
	}

	TransactionStatusMapping = Mapping{
		Column: "status",
		Mode:   MatchExact,
		Rules: []Rule{
			{"completed", "Completed"},
			{"failed", "Failed"},
		},
		Fallback: Unknown,
	}
)

// MappingsFor returns the rule tables of an entity's categorical columns
func MappingsFor(entity model.Entity) []Mapping {
	switch entity {
	case model.EntityAccount:
		return []Mapping{AccountTypeMapping, AccountStatusMapping}
	case model.EntityCustomer:
		return []Mapping{EmploymentStatusMapping}
	case model.EntityLoan:
		return []Mapping{LoanTypeMapping, LoanStatusMapping}
	case model.EntityTransaction:
		return []Mapping{TransactionTypeMapping, TransactionStatusMapping}
	default:
		return nil
	}
}
