// pkg/model/cleaning.go
package model

import "fmt"

// Anomaly reasons recorded while cleansing a batch
const (
	ReasonSentinel          = "unmapped_category"
	ReasonClampedNull       = "null_amount"
	ReasonClampedNegative   = "negative_amount"
	ReasonMissingKey        = "missing_primary_key"
	ReasonDuplicateKey      = "duplicate_key"
	ReasonPhoneUnformatted  = "phone_not_normalized"
	ReasonSSNLength         = "ssn_length"
	ReasonSSNPadded         = "ssn_padded"
	ReasonCreditMismatch    = "available_credit_mismatch"
	ReasonExpiryBeforeIssue = "expiry_not_after_issue"
)

// Anomaly represents a single value the cleanser could not carry over verbatim.
// Anomalies never fail a run.
type Anomaly struct {
	Entity        Entity // Entity the row belongs to
	RowIdentifier string // Primary key of the row (may be empty when the key itself is missing)
	ColumnName    string // Column that was substituted or flagged
	OriginalValue string // Raw value as text ("<null>" for NULL)
	NewValue      string // Value written to the cleansed layer
	Reason        string // One of the Reason* constants
}

// String returns a compact description for logs
func (a Anomaly) String() string {
	return fmt.Sprintf("%s[%s].%s: %q -> %q (%s)",
		a.Entity, a.RowIdentifier, a.ColumnName, a.OriginalValue, a.NewValue, a.Reason)
}

// Category always reports a transformation anomaly
func (a Anomaly) Category() ErrorCategory {
	return ErrorCategoryTransformationAnomaly
}

// CountByReason tallies anomalies per reason
func CountByReason(anomalies []Anomaly) map[string]int {
	counts := make(map[string]int)
	for _, a := range anomalies {
		counts[a.Reason]++
	}
	return counts
}
