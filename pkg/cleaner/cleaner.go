// pkg/cleaner/cleaner.go
package cleaner

import (
	"time"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// Options tunes the cleansing rules that have more than one accepted behavior
type Options struct {
	// LegacySSNPadding reproduces the source warehouse's trailing-zero SSN padding
	LegacySSNPadding bool
}

// DataCleaner turns raw batches into cleansed batches
type DataCleaner struct {
	opts Options
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(opts Options) *DataCleaner {
	return &DataCleaner{opts: opts}
}

// Stage bundles the per-entity functions of the Normalizer → Deduplicator → Reconciler pipeline
type Stage[R any, C model.Record] struct {
	Entity    model.Entity
	Normalize func(raw R, loadedAt time.Time) (C, []model.Anomaly)
	// Reconcile is optional
	Reconcile func(row C) (C, []model.Anomaly)
}

// Result is the cleansed batch of one entity
type Result[C model.Record] struct {
	Entity            model.Entity
	Rows              []C
	RowsRead          int
	MissingKeys       int
	DuplicatesDropped int
	Anomalies         []model.Anomaly
}

// Run cleanses a full raw batch. It has no side effects and the output depends only on
// raw and loadedAt.
func Run[R any, C model.Record](stage Stage[R, C], raw []R, loadedAt time.Time) Result[C] {
	result := Result[C]{
		Entity:   stage.Entity,
		RowsRead: len(raw),
	}

	// Step 1: normalize, setting aside rows without a primary key
	normalized := make([]C, 0, len(raw))
	for _, r := range raw {
		row, anomalies := stage.Normalize(r, loadedAt)
		result.Anomalies = append(result.Anomalies, anomalies...)
		if row.Key() == "" {
			result.MissingKeys++
			result.Anomalies = append(result.Anomalies, model.Anomaly{
				Entity:        stage.Entity,
				OriginalValue: nullText,
				Reason:        model.ReasonMissingKey,
			})
			continue
		}
		normalized = append(normalized, row)
	}

	// Step 2: one survivor per key
	survivors, dropped := Deduplicate(normalized)
	result.DuplicatesDropped = len(dropped)
	for _, row := range dropped {
		result.Anomalies = append(result.Anomalies, model.Anomaly{
			Entity:        stage.Entity,
			RowIdentifier: row.Key(),
			Reason:        model.ReasonDuplicateKey,
		})
	}

	// Step 3: derived fields
	if stage.Reconcile != nil {
		for i, row := range survivors {
			reconciled, anomalies := stage.Reconcile(row)
			survivors[i] = reconciled
			result.Anomalies = append(result.Anomalies, anomalies...)
		}
	}

	result.Rows = survivors
	return result
}

// Branches returns the branch stage
func (c *DataCleaner) Branches() Stage[model.RawBranch, model.Branch] {
	return Stage[model.RawBranch, model.Branch]{
		Entity:    model.EntityBranch,
		Normalize: NormalizeBranch,
	}
}

// Customers returns the customer stage
func (c *DataCleaner) Customers() Stage[model.RawCustomer, model.Customer] {
	return Stage[model.RawCustomer, model.Customer]{
		Entity:    model.EntityCustomer,
		Normalize: NormalizeCustomer,
		Reconcile: c.ReconcileCustomer,
	}
}

// Accounts returns the account stage
func (c *DataCleaner) Accounts() Stage[model.RawAccount, model.Account] {
	return Stage[model.RawAccount, model.Account]{
		Entity:    model.EntityAccount,
		Normalize: NormalizeAccount,
	}
}

// Transactions returns the transaction stage
func (c *DataCleaner) Transactions() Stage[model.RawTransaction, model.Transaction] {
	return Stage[model.RawTransaction, model.Transaction]{
		Entity:    model.EntityTransaction,
		Normalize: NormalizeTransaction,
	}
}

// Loans returns the loan stage
func (c *DataCleaner) Loans() Stage[model.RawLoan, model.Loan] {
	return Stage[model.RawLoan, model.Loan]{
		Entity:    model.EntityLoan,
		Normalize: NormalizeLoan,
	}
}

// CreditCards returns the credit card stage
func (c *DataCleaner) CreditCards() Stage[model.RawCreditCard, model.CreditCard] {
	return Stage[model.RawCreditCard, model.CreditCard]{
		Entity:    model.EntityCreditCard,
		Normalize: NormalizeCreditCard,
		Reconcile: ReconcileCreditCard,
	}
}
