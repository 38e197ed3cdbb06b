package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntity(t *testing.T) {
	tests := []struct {
		input   string
		want    Entity
		wantErr bool
	}{
		{"accounts", EntityAccount, false},
		{"Account", EntityAccount, false},
		{"credit-card", EntityCreditCard, false},
		{" credit_cards ", EntityCreditCard, false},
		{"branch", EntityBranch, false},
		{"TRANSACTIONS", EntityTransaction, false},
		{"atm_logs", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEntity(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownEntity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestParseLayer(t *testing.T) {
	for input, want := range map[string]Layer{
		"raw": LayerRaw, "bronze": LayerRaw, "Cleansed": LayerCleansed, "silver": LayerCleansed,
	} {
		got, err := ParseLayer(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseLayer("gold")
	assert.ErrorIs(t, err, ErrUnknownLayer)
}

func TestLoadOrderIsParentsFirst(t *testing.T) {
	position := make(map[Entity]int, len(LoadOrder))
	for i, e := range LoadOrder {
		position[e] = i
	}
	require.Len(t, position, 6)

	for _, e := range LoadOrder {
		table, ok := TableFor(e)
		require.True(t, ok)
		for _, ref := range table.References {
			assert.Less(t, position[ref.Parent], position[e], "%s references %s", e, ref.Parent)
		}
	}
}

func TestRecordValuesMatchCleansedColumns(t *testing.T) {
	records := map[Entity]Record{
		EntityBranch:      Branch{},
		EntityCustomer:    Customer{},
		EntityAccount:     Account{},
		EntityTransaction: Transaction{},
		EntityLoan:        Loan{},
		EntityCreditCard:  CreditCard{},
	}

	for entity, record := range records {
		t.Run(string(entity), func(t *testing.T) {
			table, ok := TableFor(entity)
			require.True(t, ok)
			assert.Len(t, record.Values(), len(table.CleansedColumnNames()))
			assert.Equal(t, LoadTimestampColumn, table.CleansedColumnNames()[len(table.Columns)])
		})
	}
}

func TestTableColumnKinds(t *testing.T) {
	card, ok := TableFor(EntityCreditCard)
	require.True(t, ok)
	assert.Equal(t, []string{"credit_limit", "current_balance", "available_credit"}, card.NonNegativeColumns())
	assert.Empty(t, card.CategoricalColumns())

	tx, ok := TableFor(EntityTransaction)
	require.True(t, ok)
	assert.Empty(t, tx.NonNegativeColumns())
	assert.Equal(t, []string{"transaction_type", "status"}, tx.CategoricalColumns())

	assert.Equal(t, []string{"merchant_name", "merchant_category"}, tx.RequiredColumns())

	branch, ok := TableFor(EntityBranch)
	require.True(t, ok)
	assert.Empty(t, branch.RequiredColumns())
}

func TestCountByReason(t *testing.T) {
	counts := CountByReason([]Anomaly{
		{Reason: ReasonSentinel}, {Reason: ReasonSentinel}, {Reason: ReasonDuplicateKey},
	})
	assert.Equal(t, map[string]int{ReasonSentinel: 2, ReasonDuplicateKey: 1}, counts)
}

func TestErrorCategory(t *testing.T) {
	assert.Equal(t, ErrorCategoryTransformationAnomaly, Anomaly{Reason: ReasonSentinel}.Category())
	assert.Equal(t, "TransformationAnomaly", ErrorCategoryTransformationAnomaly.String())
	assert.Equal(t, "LoadFailure", ErrorCategoryLoadFailure.String())
	assert.Equal(t, "ValidationViolation", ErrorCategoryValidationViolation.String())
	assert.Equal(t, "Unknown(9)", ErrorCategory(9).String())
}
