package verifier

import (
	"fmt"
	"strings"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// Rule names
const (
	RuleRowCount                  = "row_count"
	RulePrimaryKey                = "primary_key"
	RuleWhitespace                = "whitespace"
	RuleDomain                    = "domain"
	RuleNumericDomain             = "numeric_domain"
	RuleNotNull                   = "not_null"
	RuleReference                 = "reference"
	RuleAvailableCreditMismatch   = "available_credit_mismatch"
	RuleExpiryNotAfterIssue       = "expiry_not_after_issue"
	RuleSSNLength                 = "ssn_length"
	RuleRemainingExceedsPrincipal = "remaining_exceeds_principal"
)

// BusinessRule flags rows matching Predicate. Column is the value reported for each row.
// Predicates use bare lower-case column names, which resolve in both PostgreSQL and Snowflake.
type BusinessRule struct {
	Name      string
	Column    string
	Predicate string
}

var businessRules = map[model.Entity][]BusinessRule{
	model.EntityCreditCard: {
		{
			Name:      RuleAvailableCreditMismatch,
			Column:    "available_credit",
			Predicate: "available_credit <> credit_limit - current_balance",
		},
		{
			Name:      RuleExpiryNotAfterIssue,
			Column:    "expiry_date",
			Predicate: "expiry_date <= issue_date",
		},
	},
	model.EntityCustomer: {
		{
			Name:      RuleSSNLength,
			Column:    "ssn",
			Predicate: "ssn IS NOT NULL AND LENGTH(TRIM(ssn)) <> 9",
		},
	},
	model.EntityLoan: {
		{
			Name:      RuleRemainingExceedsPrincipal,
			Column:    "remaining_balance",
			Predicate: "remaining_balance > loan_amount",
		},
	},
}

// BusinessRulesFor returns the entity-specific rules
func BusinessRulesFor(entity model.Entity) []BusinessRule {
	return businessRules[entity]
}

// Every violation query returns (column, key, value) as text so one scanner serves all rules.

func asText(expr string) string {
	return fmt.Sprintf("CAST(%s AS VARCHAR)", expr)
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func withLimit(query string, limit int) string {
	if limit <= 0 {
		return query
	}
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

// unionPerColumn renders one branch per column, joined with UNION ALL
func unionPerColumn(columns []string, branch func(col string) string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = branch(col)
	}
	return strings.Join(parts, " UNION ALL ")
}

func rowCountQuery(table string) string {
	return "SELECT COUNT(*) FROM " + table
}

// primaryKeyQuery returns key groups with more than one row, plus the null-key group
func primaryKeyQuery(table, pk string) string {
	return fmt.Sprintf("SELECT %s, %s, %s FROM %s GROUP BY %s HAVING COUNT(*) > 1 OR %s IS NULL",
		literal(pk), asText(pk), asText("COUNT(*)"), table, pk, pk)
}

func whitespaceQuery(table, pk string, columns []string) string {
	return unionPerColumn(columns, func(col string) string {
		return fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s <> TRIM(%s)",
			literal(col), asText(pk), asText(col), table, col, col)
	})
}

// domainQuery returns the distinct values of each column
func domainQuery(table string, columns []string) string {
	return unionPerColumn(columns, func(col string) string {
		return fmt.Sprintf("SELECT %s, '', %s FROM %s GROUP BY %s",
			literal(col), asText(col), table, col)
	})
}

func numericDomainQuery(table, pk string, columns []string) string {
	return unionPerColumn(columns, func(col string) string {
		return fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s IS NULL OR %s < 0",
			literal(col), asText(pk), asText(col), table, col, col)
	})
}

func notNullQuery(table, pk string, columns []string) string {
	return unionPerColumn(columns, func(col string) string {
		return fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s IS NULL",
			literal(col), asText(pk), asText(col), table, col)
	})
}

func businessQuery(table, pk string, rule BusinessRule) string {
	return fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s",
		literal(rule.Column), asText(pk), asText(rule.Column), table, rule.Predicate)
}

// referenceQuery returns child rows whose foreign key has no parent row
func referenceQuery(child, childPK, parent, parentPK, column string) string {
	return fmt.Sprintf(
		"SELECT %s, %s, %s FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
		literal(column), asText("c."+childPK), asText("c."+column), child, column, parent, parentPK, column)
}
