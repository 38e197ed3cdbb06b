// pkg/cleaner/reconcile.go
package cleaner

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

var phonePunctuation = strings.NewReplacer(".", "", "(", "", ")", "", "-", "", " ", "")

// FormatPhone reformats a US phone number as (AAA) BBB-CCCC.
// An extension suffix starting at the first "x" is dropped, punctuation is removed and a
// leading +1 or 001 prefix is stripped. ok is false when ten digits do not remain, in which
// case the trimmed input is returned unchanged.
func FormatPhone(phone string) (formatted string, ok bool) {
	original := strings.TrimSpace(phone)

	digits := original
	if i := strings.IndexAny(digits, "xX"); i >= 0 {
		digits = digits[:i]
	}
	digits = phonePunctuation.Replace(digits)

	switch {
	case strings.HasPrefix(digits, "+1"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "001"):
		digits = digits[3:]
	}

	if len(digits) != 10 || !isDigits(digits) {
		return original, false
	}
	return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10]), true
}

// NormalizeSSN checks that an SSN has exactly nine digits.
// With legacyPadding set, a divergent SSN gets a trailing zero and is re-parsed as an
// integer, which reproduces what the source warehouse wrote. Otherwise it is returned as is.
func NormalizeSSN(ssn string, legacyPadding bool) (normalized string, valid bool) {
	trimmed := strings.TrimSpace(ssn)
	if len(trimmed) == 9 && isDigits(trimmed) {
		return trimmed, true
	}
	if !legacyPadding {
		return trimmed, false
	}

	padded, err := strconv.ParseInt(trimmed+"0", 10, 64)
	if err != nil {
		return trimmed, false
	}
	return strconv.FormatInt(padded, 10), false
}

// ReconcileCustomer reformats the phone number and applies the SSN policy
func (c *DataCleaner) ReconcileCustomer(customer model.Customer) (model.Customer, []model.Anomaly) {
	rc := newRowContext(model.EntityCustomer, customer.CustomerID)

	if customer.Phone.Valid {
		formatted, ok := FormatPhone(customer.Phone.String)
		if !ok {
			rc.record("phone", customer.Phone.String, formatted, model.ReasonPhoneUnformatted)
		}
		customer.Phone = sql.NullString{String: formatted, Valid: true}
	}

	if customer.SSN.Valid {
		normalized, valid := NormalizeSSN(customer.SSN.String, c.opts.LegacySSNPadding)
		switch {
		case valid:
		case normalized != customer.SSN.String:
			rc.record("ssn", customer.SSN.String, normalized, model.ReasonSSNPadded)
		default:
			rc.record("ssn", customer.SSN.String, normalized, model.ReasonSSNLength)
		}
		customer.SSN = sql.NullString{String: normalized, Valid: true}
	}

	return customer, rc.anomalies
}

// ReconcileCreditCard flags cross-field inconsistencies without correcting them.
// available_credit is never recomputed.
func ReconcileCreditCard(card model.CreditCard) (model.CreditCard, []model.Anomaly) {
	rc := newRowContext(model.EntityCreditCard, card.CardID)

	expected := card.CreditLimit.Sub(card.CurrentBalance)
	if !card.AvailableCredit.Equal(expected) {
		rc.record("available_credit", card.AvailableCredit.String(), card.AvailableCredit.String(),
			model.ReasonCreditMismatch)
	}

	if card.ExpiryDate.Valid && card.IssueDate.Valid && !card.ExpiryDate.Time.After(card.IssueDate.Time) {
		rc.record("expiry_date", card.ExpiryDate.Time.Format("2006-01-02"),
			card.ExpiryDate.Time.Format("2006-01-02"), model.ReasonExpiryBeforeIssue)
	}

	return card, rc.anomalies
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
