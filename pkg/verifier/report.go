package verifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// Violation is a row that breaks a quality rule. Violations are data, never errors.
type Violation struct {
	Rule   string `json:"rule"`
	Column string `json:"column,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
}

// String returns a compact description for logs
func (v Violation) String() string {
	return fmt.Sprintf("%s %s[%s]=%q", v.Rule, v.Column, v.Key, v.Value)
}

// Category always reports a validation violation
func (v Violation) Category() model.ErrorCategory {
	return model.ErrorCategoryValidationViolation
}

// RuleError records a rule whose query could not be evaluated
type RuleError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Report contains the results of verifying one extent
type Report struct {
	Layer      model.Layer         `json:"layer"`
	Entity     model.Entity        `json:"entity"`
	Table      string              `json:"table"`
	RowCount   int64               `json:"row_count"`
	Violations []Violation         `json:"violations"`
	Domains    map[string][]string `json:"domains,omitempty"`
	Errors     []RuleError         `json:"errors,omitempty"`
	StartTime  time.Time           `json:"start_time"`
	Duration   time.Duration       `json:"duration_ns"`
}

func newReport(layer model.Layer, entity model.Entity, table string) *Report {
	return &Report{
		Layer:      layer,
		Entity:     entity,
		Table:      table,
		Violations: make([]Violation, 0),
		Domains:    make(map[string][]string),
		StartTime:  time.Now(),
	}
}

// Passed reports whether every rule ran and none found a violation
func (r *Report) Passed() bool {
	return len(r.Violations) == 0 && len(r.Errors) == 0
}

// CountByRule tallies violations per rule
func (r *Report) CountByRule() map[string]int {
	counts := make(map[string]int)
	for _, v := range r.Violations {
		counts[v.Rule]++
	}
	return counts
}

// Summary renders a one-block human-readable report
func (r *Report) Summary() string {
	var sb strings.Builder

	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}
	sb.WriteString(fmt.Sprintf("%s %s/%s (%s): %d rows, %d violations\n",
		status, r.Layer, r.Entity, r.Table, r.RowCount, len(r.Violations)))

	counts := r.CountByRule()
	rules := make([]string, 0, len(counts))
	for rule := range counts {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		sb.WriteString(fmt.Sprintf("  %-28s %d\n", rule, counts[rule]))
	}

	for _, e := range r.Errors {
		sb.WriteString(fmt.Sprintf("  error in %s: %s\n", e.Rule, e.Message))
	}
	return sb.String()
}
