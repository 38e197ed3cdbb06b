package model

import "fmt"

// ErrorCategory defines the kinds of failure a run or a verification can observe
type ErrorCategory int

const (
	// ErrorCategoryTransformationAnomaly is a value substituted or flagged during cleansing; never fatal
	ErrorCategoryTransformationAnomaly ErrorCategory = iota
	// ErrorCategoryLoadFailure aborts the run and rolls back every entity
	ErrorCategoryLoadFailure
	// ErrorCategoryValidationViolation is a verifier finding, returned as data
	ErrorCategoryValidationViolation
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryTransformationAnomaly:
		return "TransformationAnomaly"
	case ErrorCategoryLoadFailure:
		return "LoadFailure"
	case ErrorCategoryValidationViolation:
		return "ValidationViolation"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}
