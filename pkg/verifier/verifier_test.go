package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/connector"
	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

const testLimit = 100

func newMockVerifier(t *testing.T, concurrency int) (*Verifier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := connector.NewPostgresConnectorFromDB(db, "finbank")
	v := NewVerifier(conn, conn, Options{
		RawSchema:      "bronze",
		CleansedSchema: "silver",
		Concurrency:    concurrency,
		MaxViolations:  testLimit,
	}, zap.NewNop())
	return v, mock
}

func mustTable(t *testing.T, e model.Entity) *model.Table {
	t.Helper()
	table, ok := model.TableFor(e)
	require.True(t, ok)
	return table
}

func violationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"column", "key", "value"})
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

// expectCleanExtent registers every query of a cleansed extent with no violations
func expectCleanExtent(mock sqlmock.Sqlmock, table *model.Table, name string, rows int64) {
	pk := table.PrimaryKey
	mock.ExpectQuery(rowCountQuery(name)).WillReturnRows(countRows(rows))
	mock.ExpectQuery(withLimit(primaryKeyQuery(name, pk), testLimit)).WillReturnRows(violationRows())
	if cols := table.TrimmedColumns(); len(cols) > 0 {
		mock.ExpectQuery(withLimit(whitespaceQuery(name, pk, cols), testLimit)).WillReturnRows(violationRows())
	}
	if cols := table.CategoricalColumns(); len(cols) > 0 {
		mock.ExpectQuery(domainQuery(name, cols)).WillReturnRows(violationRows())
	}
	if cols := table.NonNegativeColumns(); len(cols) > 0 {
		mock.ExpectQuery(withLimit(numericDomainQuery(name, pk, cols), testLimit)).WillReturnRows(violationRows())
	}
	if cols := table.RequiredColumns(); len(cols) > 0 {
		mock.ExpectQuery(withLimit(notNullQuery(name, pk, cols), testLimit)).WillReturnRows(violationRows())
	}
	for _, br := range BusinessRulesFor(table.Entity) {
		mock.ExpectQuery(withLimit(businessQuery(name, pk, br), testLimit)).WillReturnRows(violationRows())
	}
	for _, ref := range table.References {
		parent, _ := model.TableFor(ref.Parent)
		parentName := `"silver".` + `"` + string(ref.Parent) + `"`
		mock.ExpectQuery(withLimit(referenceQuery(name, pk, parentName, parent.PrimaryKey, ref.Column), testLimit)).
			WillReturnRows(violationRows())
	}
}

func TestVerifyCleanExtent(t *testing.T) {
	v, mock := newMockVerifier(t, 1)
	table := mustTable(t, model.EntityBranch)
	expectCleanExtent(mock, table, `"silver"."branches"`, 3)

	report, err := v.Verify(context.Background(), model.LayerCleansed, model.EntityBranch)
	require.NoError(t, err)

	assert.True(t, report.Passed())
	assert.Equal(t, int64(3), report.RowCount)
	assert.Equal(t, `"silver"."branches"`, report.Table)
	assert.Empty(t, report.Violations)
	assert.Empty(t, report.Errors)
	assert.Contains(t, report.Summary(), "PASS cleansed/branches")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCollectsViolationsAndKeepsGoing(t *testing.T) {
	v, mock := newMockVerifier(t, 1)
	table := mustTable(t, model.EntityCreditCard)
	name := `"silver"."credit_cards"`
	pk := table.PrimaryKey
	rules := BusinessRulesFor(model.EntityCreditCard)
	require.Len(t, rules, 2)

	mock.ExpectQuery(rowCountQuery(name)).WillReturnRows(countRows(4))
	mock.ExpectQuery(withLimit(primaryKeyQuery(name, pk), testLimit)).
		WillReturnRows(violationRows().AddRow("card_id", "C1", "2"))
	mock.ExpectQuery(withLimit(whitespaceQuery(name, pk, table.TrimmedColumns()), testLimit)).
		WillReturnRows(violationRows().AddRow("card_type", "C2", " Visa"))
	mock.ExpectQuery(withLimit(numericDomainQuery(name, pk, table.NonNegativeColumns()), testLimit)).
		WillReturnRows(violationRows().AddRow("credit_limit", "C3", nil))
	mock.ExpectQuery(withLimit(businessQuery(name, pk, rules[0]), testLimit)).
		WillReturnRows(violationRows().AddRow("available_credit", "C1", "100.00"))
	mock.ExpectQuery(withLimit(businessQuery(name, pk, rules[1]), testLimit)).
		WillReturnError(errors.New("statement timeout"))
	mock.ExpectQuery(withLimit(referenceQuery(name, pk, `"silver"."customers"`, "customer_id", "customer_id"), testLimit)).
		WillReturnRows(violationRows().AddRow("customer_id", "C4", "CUST9"))

	report, err := v.Verify(context.Background(), model.LayerCleansed, model.EntityCreditCard)
	require.NoError(t, err)

	assert.False(t, report.Passed())
	assert.Equal(t, int64(4), report.RowCount)
	assert.Equal(t, map[string]int{
		RulePrimaryKey:              1,
		RuleWhitespace:              1,
		RuleNumericDomain:           1,
		RuleAvailableCreditMismatch: 1,
		RuleReference:               1,
	}, report.CountByRule())

	assert.Contains(t, report.Violations, Violation{Rule: RuleNumericDomain, Column: "credit_limit", Key: "C3", Value: "<null>"})
	assert.Contains(t, report.Violations, Violation{Rule: RuleReference, Column: "customer_id", Key: "C4", Value: "CUST9"})

	require.Len(t, report.Errors, 1)
	assert.Equal(t, RuleExpiryNotAfterIssue, report.Errors[0].Rule)
	assert.Contains(t, report.Errors[0].Message, "statement timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyDomain(t *testing.T) {
	tests := []struct {
		name           string
		layer          model.Layer
		schema         string
		wantViolations []Violation
	}{
		{
			name:   "cleansed values outside the closed set are violations",
			layer:  model.LayerCleansed,
			schema: "silver",
			wantViolations: []Violation{
				{Rule: RuleDomain, Column: "account_type", Value: "Crypto"},
				{Rule: RuleDomain, Column: "status", Value: "<null>"},
			},
		},
		{
			name:   "raw domains are informational",
			layer:  model.LayerRaw,
			schema: "bronze",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, mock := newMockVerifier(t, 1)
			table := mustTable(t, model.EntityAccount)
			name := `"` + tt.schema + `"."accounts"`
			pk := table.PrimaryKey

			mock.ExpectQuery(rowCountQuery(name)).WillReturnRows(countRows(3))
			mock.ExpectQuery(withLimit(primaryKeyQuery(name, pk), testLimit)).WillReturnRows(violationRows())
			mock.ExpectQuery(withLimit(whitespaceQuery(name, pk, table.TrimmedColumns()), testLimit)).
				WillReturnRows(violationRows())
			mock.ExpectQuery(domainQuery(name, table.CategoricalColumns())).
				WillReturnRows(violationRows().
					AddRow("account_type", "", "Savings").
					AddRow("account_type", "", "Crypto").
					AddRow("account_type", "", "Checking").
					AddRow("status", "", "Active").
					AddRow("status", "", nil))
			mock.ExpectQuery(withLimit(numericDomainQuery(name, pk, table.NonNegativeColumns()), testLimit)).
				WillReturnRows(violationRows())
			mock.ExpectQuery(withLimit(referenceQuery(name, pk, `"`+tt.schema+`"."customers"`, "customer_id", "customer_id"), testLimit)).
				WillReturnRows(violationRows())

			report, err := v.Verify(context.Background(), tt.layer, model.EntityAccount)
			require.NoError(t, err)

			assert.Equal(t, []string{"Checking", "Crypto", "Savings"}, report.Domains["account_type"])
			assert.Equal(t, []string{"<null>", "Active"}, report.Domains["status"])
			if tt.wantViolations == nil {
				assert.Empty(t, report.Violations)
			} else {
				assert.ElementsMatch(t, tt.wantViolations, report.Violations)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerifyNotNull(t *testing.T) {
	tests := []struct {
		name           string
		layer          model.Layer
		schema         string
		wantViolations []Violation
	}{
		{
			name:   "cleansed required columns must be set",
			layer:  model.LayerCleansed,
			schema: "silver",
			wantViolations: []Violation{
				{Rule: RuleNotNull, Column: "merchant_name", Key: "T7", Value: "<null>"},
			},
		},
		{
			name:   "raw columns are nullable",
			layer:  model.LayerRaw,
			schema: "bronze",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, mock := newMockVerifier(t, 1)
			table := mustTable(t, model.EntityTransaction)
			name := `"` + tt.schema + `"."transactions"`
			pk := table.PrimaryKey

			mock.ExpectQuery(rowCountQuery(name)).WillReturnRows(countRows(2))
			mock.ExpectQuery(withLimit(primaryKeyQuery(name, pk), testLimit)).WillReturnRows(violationRows())
			mock.ExpectQuery(withLimit(whitespaceQuery(name, pk, table.TrimmedColumns()), testLimit)).
				WillReturnRows(violationRows())
			mock.ExpectQuery(domainQuery(name, table.CategoricalColumns())).
				WillReturnRows(violationRows().AddRow("status", "", "Completed"))
			if tt.layer == model.LayerCleansed {
				mock.ExpectQuery(withLimit(notNullQuery(name, pk, []string{"merchant_name", "merchant_category"}), testLimit)).
					WillReturnRows(violationRows().AddRow("merchant_name", "T7", nil))
			}
			mock.ExpectQuery(withLimit(referenceQuery(name, pk, `"`+tt.schema+`"."accounts"`, "account_id", "account_id"), testLimit)).
				WillReturnRows(violationRows())

			report, err := v.Verify(context.Background(), tt.layer, model.EntityTransaction)
			require.NoError(t, err)

			assert.Empty(t, report.Errors)
			if tt.wantViolations == nil {
				assert.Empty(t, report.Violations)
			} else {
				assert.Equal(t, tt.wantViolations, report.Violations)
				assert.Equal(t, model.ErrorCategoryValidationViolation, report.Violations[0].Category())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerifyRejectsUnknownInput(t *testing.T) {
	v, _ := newMockVerifier(t, 1)

	_, err := v.Verify(context.Background(), model.LayerCleansed, model.Entity("atm_logs"))
	assert.ErrorIs(t, err, model.ErrUnknownEntity)

	_, err = v.Verify(context.Background(), model.Layer("gold"), model.EntityBranch)
	assert.ErrorIs(t, err, model.ErrUnknownLayer)

	_, err = v.VerifyAll(context.Background(), model.Layer("gold"))
	assert.ErrorIs(t, err, model.ErrUnknownLayer)
}

func TestVerifyAllReturnsLoadOrder(t *testing.T) {
	v, mock := newMockVerifier(t, 2)
	mock.MatchExpectationsInOrder(false)

	expectCleanExtent(mock, mustTable(t, model.EntityLoan), `"silver"."loans"`, 5)
	expectCleanExtent(mock, mustTable(t, model.EntityBranch), `"silver"."branches"`, 2)
	expectCleanExtent(mock, mustTable(t, model.EntityCustomer), `"silver"."customers"`, 7)

	reports, err := v.VerifyAll(context.Background(), model.LayerCleansed,
		model.EntityLoan, model.EntityBranch, model.EntityCustomer)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, model.EntityBranch, reports[0].Entity)
	assert.Equal(t, model.EntityCustomer, reports[1].Entity)
	assert.Equal(t, model.EntityLoan, reports[2].Entity)
	assert.Equal(t, int64(2), reports[0].RowCount)
	assert.Equal(t, int64(7), reports[1].RowCount)
	assert.Equal(t, int64(5), reports[2].RowCount)
	for _, r := range reports {
		assert.True(t, r.Passed(), r.Summary())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
