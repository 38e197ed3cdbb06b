// pkg/model/metadata.go
package model

// ColumnKind classifies how a column is cleansed and verified
type ColumnKind int

const (
	// KindOther columns are passed through (dates, rates, coordinates)
	KindOther ColumnKind = iota
	// KindText columns are trimmed
	KindText
	// KindCategorical columns are trimmed and mapped into a closed set
	KindCategorical
	// KindNonNegative columns are monetary or count quantities clamped to zero
	KindNonNegative
)

// Column represents metadata about a cleansed column
type Column struct {
	Name     string     // Column name
	Kind     ColumnKind // Cleansing treatment
	Nullable bool       // Whether the cleansed column allows NULL values
}

// Reference is a foreign key from one entity to its parent
type Reference struct {
	Column string // Referencing column
	Parent Entity // Referenced entity
}

// Table describes the shape of an entity, independent of the layer it lives in
type Table struct {
	Entity        Entity
	PrimaryKey    string
	Columns       []Column // Ordered as in the raw layer, without the load timestamp
	RecencyColumn string   // Date used to pick the surviving record among duplicates
	References    []Reference
}

// LoadTimestampColumn is the extra cleansed column recording when a row was materialized
const LoadTimestampColumn = "load_timestamp"

// ColumnNames returns the raw column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// CleansedColumnNames returns the cleansed column names, ending with the load timestamp
func (t *Table) CleansedColumnNames() []string {
	return append(t.ColumnNames(), LoadTimestampColumn)
}

// ColumnsOfKind returns the names of every column cleansed with the given treatment
func (t *Table) ColumnsOfKind(kinds ...ColumnKind) []string {
	var names []string
	for _, col := range t.Columns {
		for _, kind := range kinds {
			if col.Kind == kind {
				names = append(names, col.Name)
				break
			}
		}
	}
	return names
}

// TrimmedColumns returns the string columns that must carry no surrounding whitespace
func (t *Table) TrimmedColumns() []string {
	return t.ColumnsOfKind(KindText, KindCategorical)
}

// CategoricalColumns returns the columns whose values belong to a closed set
func (t *Table) CategoricalColumns() []string {
	return t.ColumnsOfKind(KindCategorical)
}

// NonNegativeColumns returns the monetary and count columns
func (t *Table) NonNegativeColumns() []string {
	return t.ColumnsOfKind(KindNonNegative)
}

// RequiredColumns returns the non-key string and untyped columns that may not be NULL in
// the cleansed layer. Categorical and numeric columns are covered by their own rules.
func (t *Table) RequiredColumns() []string {
	var names []string
	for _, col := range t.Columns {
		if col.Nullable || col.Name == t.PrimaryKey {
			continue
		}
		if col.Kind == KindText || col.Kind == KindOther {
			names = append(names, col.Name)
		}
	}
	return names
}

// TableFor returns the metadata of an entity
func TableFor(e Entity) (*Table, bool) {
	t, ok := tables[e]
	return t, ok
}

func text(name string) Column        { return Column{Name: name, Kind: KindText, Nullable: true} }
func key(name string) Column         { return Column{Name: name, Kind: KindText} }
func categorical(name string) Column { return Column{Name: name, Kind: KindCategorical} }
func amount(name string) Column      { return Column{Name: name, Kind: KindNonNegative} }
func other(name string) Column       { return Column{Name: name, Kind: KindOther, Nullable: true} }

var tables = map[Entity]*Table{
	EntityBranch: {
		Entity:     EntityBranch,
		PrimaryKey: "branch_id",
		Columns: []Column{
			key("branch_id"), text("branch_name"), text("city"), text("state"), text("zip_code"),
			other("latitude"), other("longitude"), other("opening_date"),
			amount("total_deposits"), amount("employee_count"),
		},
		RecencyColumn: "opening_date",
	},
	EntityCustomer: {
		Entity:     EntityCustomer,
		PrimaryKey: "customer_id",
		Columns: []Column{
			key("customer_id"), text("first_name"), text("last_name"), text("email"), text("phone"),
			text("address"), text("city"), text("state"), text("zip_code"), other("date_of_birth"),
			text("ssn"), other("customer_since"), other("credit_score"), amount("annual_income"),
			categorical("employment_status"), text("branch_id"),
		},
		RecencyColumn: "customer_since",
		References:    []Reference{{Column: "branch_id", Parent: EntityBranch}},
	},
	EntityAccount: {
		Entity:     EntityAccount,
		PrimaryKey: "account_id",
		Columns: []Column{
			key("account_id"), text("customer_id"), categorical("account_type"), text("account_number"),
			amount("current_balance"), other("open_date"), other("interest_rate"), categorical("status"),
		},
		RecencyColumn: "open_date",
		References:    []Reference{{Column: "customer_id", Parent: EntityCustomer}},
	},
	EntityTransaction: {
		Entity:     EntityTransaction,
		PrimaryKey: "transaction_id",
		Columns: []Column{
			key("transaction_id"), text("account_id"), other("transaction_date"),
			categorical("transaction_type"), other("amount"), other("balance_after"),
			{Name: "merchant_name", Kind: KindText}, {Name: "merchant_category", Kind: KindText},
			text("description"), categorical("status"),
		},
		RecencyColumn: "transaction_date",
		References:    []Reference{{Column: "account_id", Parent: EntityAccount}},
	},
	EntityLoan: {
		Entity:     EntityLoan,
		PrimaryKey: "loan_id",
		Columns: []Column{
			key("loan_id"), text("customer_id"), categorical("loan_type"), amount("loan_amount"),
			other("interest_rate"), amount("term_months"), other("start_date"),
			amount("monthly_payment"), amount("remaining_balance"), categorical("status"),
		},
		RecencyColumn: "start_date",
		References:    []Reference{{Column: "customer_id", Parent: EntityCustomer}},
	},
	EntityCreditCard: {
		Entity:     EntityCreditCard,
		PrimaryKey: "card_id",
		Columns: []Column{
			key("card_id"), text("customer_id"), text("card_number"), other("expiry_date"),
			amount("credit_limit"), amount("current_balance"), amount("available_credit"),
			other("issue_date"), text("card_type"), text("status"),
		},
		RecencyColumn: "issue_date",
		References:    []Reference{{Column: "customer_id", Parent: EntityCustomer}},
	},
}
