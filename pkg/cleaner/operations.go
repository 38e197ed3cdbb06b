// pkg/cleaner/operations.go
package cleaner

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

const nullText = "<null>"

// rowContext collects the anomalies raised while cleansing one row
type rowContext struct {
	entity    model.Entity
	rowID     string
	anomalies []model.Anomaly
}

func newRowContext(entity model.Entity, rowID string) *rowContext {
	return &rowContext{entity: entity, rowID: rowID}
}

func (rc *rowContext) record(column, original, replacement, reason string) {
	rc.anomalies = append(rc.anomalies, model.Anomaly{
		Entity:        rc.entity,
		RowIdentifier: rc.rowID,
		ColumnName:    column,
		OriginalValue: original,
		NewValue:      replacement,
		Reason:        reason,
	})
}

// category maps a raw categorical value, recording the fallback as an anomaly
func (rc *rowContext) category(m Mapping, raw sql.NullString) string {
	value, matched := m.Apply(raw)
	if !matched {
		rc.record(m.Column, toString(raw), value, model.ReasonSentinel)
	}
	return value
}

// amount clamps a monetary quantity to zero when null or negative
func (rc *rowContext) amount(column string, raw decimal.NullDecimal) decimal.Decimal {
	if !raw.Valid {
		rc.record(column, nullText, "0", model.ReasonClampedNull)
		return decimal.Zero
	}
	if raw.Decimal.IsNegative() {
		rc.record(column, raw.Decimal.String(), "0", model.ReasonClampedNegative)
		return decimal.Zero
	}
	return raw.Decimal
}

// count clamps a count quantity to zero when null or negative
func (rc *rowContext) count(column string, raw sql.NullInt64) int64 {
	if !raw.Valid {
		rc.record(column, nullText, "0", model.ReasonClampedNull)
		return 0
	}
	if raw.Int64 < 0 {
		rc.record(column, fmt.Sprintf("%d", raw.Int64), "0", model.ReasonClampedNegative)
		return 0
	}
	return raw.Int64
}

// orUnknown trims a value and substitutes Unknown for NULL or blank
func (rc *rowContext) orUnknown(column string, raw sql.NullString) string {
	trimmed := strings.TrimSpace(raw.String)
	if !raw.Valid || trimmed == "" {
		rc.record(column, toString(raw), Unknown, model.ReasonSentinel)
		return Unknown
	}
	return trimmed
}

// trimKey returns the trimmed primary key, or "" when it is missing
func trimKey(raw sql.NullString) string {
	if !raw.Valid {
		return ""
	}
	return strings.TrimSpace(raw.String)
}

// trim removes surrounding whitespace and preserves NULL
func trim(raw sql.NullString) sql.NullString {
	if !raw.Valid {
		return raw
	}
	return sql.NullString{String: strings.TrimSpace(raw.String), Valid: true}
}

func upper(raw sql.NullString) sql.NullString {
	raw = trim(raw)
	raw.String = strings.ToUpper(raw.String)
	return raw
}

func lower(raw sql.NullString) sql.NullString {
	raw = trim(raw)
	raw.String = strings.ToLower(raw.String)
	return raw
}

// toString renders a nullable string for anomaly records
func toString(v sql.NullString) string {
	if !v.Valid {
		return nullText
	}
	return v.String
}
