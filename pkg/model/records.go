// pkg/model/records.go
package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Record is implemented by every cleansed entity row
type Record interface {
	// Key returns the primary key value
	Key() string
	// Recency returns the date used to rank duplicates, most recent first
	Recency() sql.NullTime
	// Values returns column values in Table.CleansedColumnNames order
	Values() []interface{}
}

// Raw layer rows. Every attribute is nullable because the raw layer keeps source fidelity.

// RawBranch is a branch row as ingested
type RawBranch struct {
	BranchID      sql.NullString      `db:"branch_id"`
	BranchName    sql.NullString      `db:"branch_name"`
	City          sql.NullString      `db:"city"`
	State         sql.NullString      `db:"state"`
	ZipCode       sql.NullString      `db:"zip_code"`
	Latitude      sql.NullFloat64     `db:"latitude"`
	Longitude     sql.NullFloat64     `db:"longitude"`
	OpeningDate   sql.NullTime        `db:"opening_date"`
	TotalDeposits decimal.NullDecimal `db:"total_deposits"`
	EmployeeCount sql.NullInt64       `db:"employee_count"`
}

// RawCustomer is a customer row as ingested
type RawCustomer struct {
	CustomerID       sql.NullString      `db:"customer_id"`
	FirstName        sql.NullString      `db:"first_name"`
	LastName         sql.NullString      `db:"last_name"`
	Email            sql.NullString      `db:"email"`
	Phone            sql.NullString      `db:"phone"`
	Address          sql.NullString      `db:"address"`
	City             sql.NullString      `db:"city"`
	State            sql.NullString      `db:"state"`
	ZipCode          sql.NullString      `db:"zip_code"`
	DateOfBirth      sql.NullTime        `db:"date_of_birth"`
	SSN              sql.NullString      `db:"ssn"`
	CustomerSince    sql.NullTime        `db:"customer_since"`
	CreditScore      sql.NullInt64       `db:"credit_score"`
	AnnualIncome     decimal.NullDecimal `db:"annual_income"`
	EmploymentStatus sql.NullString      `db:"employment_status"`
	BranchID         sql.NullString      `db:"branch_id"`
}

// RawAccount is an account row as ingested
type RawAccount struct {
	AccountID      sql.NullString      `db:"account_id"`
	CustomerID     sql.NullString      `db:"customer_id"`
	AccountType    sql.NullString      `db:"account_type"`
	AccountNumber  sql.NullString      `db:"account_number"`
	CurrentBalance decimal.NullDecimal `db:"current_balance"`
	OpenDate       sql.NullTime        `db:"open_date"`
	InterestRate   decimal.NullDecimal `db:"interest_rate"`
	Status         sql.NullString      `db:"status"`
}

// RawTransaction is a transaction row as ingested
type RawTransaction struct {
	TransactionID    sql.NullString      `db:"transaction_id"`
	AccountID        sql.NullString      `db:"account_id"`
	TransactionDate  sql.NullTime        `db:"transaction_date"`
	TransactionType  sql.NullString      `db:"transaction_type"`
	Amount           decimal.NullDecimal `db:"amount"`
	BalanceAfter     decimal.NullDecimal `db:"balance_after"`
	MerchantName     sql.NullString      `db:"merchant_name"`
	MerchantCategory sql.NullString      `db:"merchant_category"`
	Description      sql.NullString      `db:"description"`
	Status           sql.NullString      `db:"status"`
}

// RawLoan is a loan row as ingested
type RawLoan struct {
	LoanID           sql.NullString      `db:"loan_id"`
	CustomerID       sql.NullString      `db:"customer_id"`
	LoanType         sql.NullString      `db:"loan_type"`
	LoanAmount       decimal.NullDecimal `db:"loan_amount"`
	InterestRate     decimal.NullDecimal `db:"interest_rate"`
	TermMonths       sql.NullInt64       `db:"term_months"`
	StartDate        sql.NullTime        `db:"start_date"`
	MonthlyPayment   decimal.NullDecimal `db:"monthly_payment"`
	RemainingBalance decimal.NullDecimal `db:"remaining_balance"`
	Status           sql.NullString      `db:"status"`
}

// RawCreditCard is a credit card row as ingested
type RawCreditCard struct {
	CardID          sql.NullString      `db:"card_id"`
	CustomerID      sql.NullString      `db:"customer_id"`
	CardNumber      sql.NullString      `db:"card_number"`
	ExpiryDate      sql.NullTime        `db:"expiry_date"`
	CreditLimit     decimal.NullDecimal `db:"credit_limit"`
	CurrentBalance  decimal.NullDecimal `db:"current_balance"`
	AvailableCredit decimal.NullDecimal `db:"available_credit"`
	IssueDate       sql.NullTime        `db:"issue_date"`
	CardType        sql.NullString      `db:"card_type"`
	Status          sql.NullString      `db:"status"`
}

// Cleansed layer rows.

// Branch is a cleansed branch
type Branch struct {
	BranchID      string          `db:"branch_id"`
	BranchName    sql.NullString  `db:"branch_name"`
	City          sql.NullString  `db:"city"`
	State         sql.NullString  `db:"state"`
	ZipCode       sql.NullString  `db:"zip_code"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
	OpeningDate   sql.NullTime    `db:"opening_date"`
	TotalDeposits decimal.Decimal `db:"total_deposits"`
	EmployeeCount int64           `db:"employee_count"`
	LoadTimestamp time.Time       `db:"load_timestamp"`
}

func (b Branch) Key() string           { return b.BranchID }
func (b Branch) Recency() sql.NullTime { return b.OpeningDate }

func (b Branch) Values() []interface{} {
	return []interface{}{
		b.BranchID, b.BranchName, b.City, b.State, b.ZipCode, b.Latitude, b.Longitude,
		b.OpeningDate, b.TotalDeposits, b.EmployeeCount, b.LoadTimestamp,
	}
}

// Customer is a cleansed customer
type Customer struct {
	CustomerID       string          `db:"customer_id"`
	FirstName        sql.NullString  `db:"first_name"`
	LastName         sql.NullString  `db:"last_name"`
	Email            sql.NullString  `db:"email"`
	Phone            sql.NullString  `db:"phone"`
	Address          sql.NullString  `db:"address"`
	City             sql.NullString  `db:"city"`
	State            sql.NullString  `db:"state"`
	ZipCode          sql.NullString  `db:"zip_code"`
	DateOfBirth      sql.NullTime    `db:"date_of_birth"`
	SSN              sql.NullString  `db:"ssn"`
	CustomerSince    sql.NullTime    `db:"customer_since"`
	CreditScore      sql.NullInt64   `db:"credit_score"`
	AnnualIncome     decimal.Decimal `db:"annual_income"`
	EmploymentStatus string          `db:"employment_status"`
	BranchID         sql.NullString  `db:"branch_id"`
	LoadTimestamp    time.Time       `db:"load_timestamp"`
}

func (c Customer) Key() string           { return c.CustomerID }
func (c Customer) Recency() sql.NullTime { return c.CustomerSince }

func (c Customer) Values() []interface{} {
	return []interface{}{
		c.CustomerID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.City, c.State,
		c.ZipCode, c.DateOfBirth, c.SSN, c.CustomerSince, c.CreditScore, c.AnnualIncome,
		c.EmploymentStatus, c.BranchID, c.LoadTimestamp,
	}
}

// Account is a cleansed account
type Account struct {
	AccountID      string              `db:"account_id"`
	CustomerID     sql.NullString      `db:"customer_id"`
	AccountType    string              `db:"account_type"`
	AccountNumber  sql.NullString      `db:"account_number"`
	CurrentBalance decimal.Decimal     `db:"current_balance"`
	OpenDate       sql.NullTime        `db:"open_date"`
	InterestRate   decimal.NullDecimal `db:"interest_rate"`
	Status         string              `db:"status"`
	LoadTimestamp  time.Time           `db:"load_timestamp"`
}

func (a Account) Key() string           { return a.AccountID }
func (a Account) Recency() sql.NullTime { return a.OpenDate }

func (a Account) Values() []interface{} {
	return []interface{}{
		a.AccountID, a.CustomerID, a.AccountType, a.AccountNumber, a.CurrentBalance,
		a.OpenDate, a.InterestRate, a.Status, a.LoadTimestamp,
	}
}

// Transaction is a cleansed transaction. Amounts keep their sign.
type Transaction struct {
	TransactionID    string              `db:"transaction_id"`
	AccountID        sql.NullString      `db:"account_id"`
	TransactionDate  sql.NullTime        `db:"transaction_date"`
	TransactionType  string              `db:"transaction_type"`
	Amount           decimal.NullDecimal `db:"amount"`
	BalanceAfter     decimal.NullDecimal `db:"balance_after"`
	MerchantName     string              `db:"merchant_name"`
	MerchantCategory string              `db:"merchant_category"`
	Description      sql.NullString      `db:"description"`
	Status           string              `db:"status"`
	LoadTimestamp    time.Time           `db:"load_timestamp"`
}

func (t Transaction) Key() string           { return t.TransactionID }
func (t Transaction) Recency() sql.NullTime { return t.TransactionDate }

func (t Transaction) Values() []interface{} {
	return []interface{}{
		t.TransactionID, t.AccountID, t.TransactionDate, t.TransactionType, t.Amount,
		t.BalanceAfter, t.MerchantName, t.MerchantCategory, t.Description, t.Status,
		t.LoadTimestamp,
	}
}

// Loan is a cleansed loan
type Loan struct {
	LoanID           string              `db:"loan_id"`
	CustomerID       sql.NullString      `db:"customer_id"`
	LoanType         string              `db:"loan_type"`
	LoanAmount       decimal.Decimal     `db:"loan_amount"`
	InterestRate     decimal.NullDecimal `db:"interest_rate"`
	TermMonths       int64               `db:"term_months"`
	StartDate        sql.NullTime        `db:"start_date"`
	MonthlyPayment   decimal.Decimal     `db:"monthly_payment"`
	RemainingBalance decimal.Decimal     `db:"remaining_balance"`
	Status           string              `db:"status"`
	LoadTimestamp    time.Time           `db:"load_timestamp"`
}

func (l Loan) Key() string           { return l.LoanID }
func (l Loan) Recency() sql.NullTime { return l.StartDate }

func (l Loan) Values() []interface{} {
	return []interface{}{
		l.LoanID, l.CustomerID, l.LoanType, l.LoanAmount, l.InterestRate, l.TermMonths,
		l.StartDate, l.MonthlyPayment, l.RemainingBalance, l.Status, l.LoadTimestamp,
	}
}

// CreditCard is a cleansed credit card. AvailableCredit is carried as supplied, not recomputed.
type CreditCard struct {
	CardID          string          `db:"card_id"`
	CustomerID      sql.NullString  `db:"customer_id"`
	CardNumber      sql.NullString  `db:"card_number"`
	ExpiryDate      sql.NullTime    `db:"expiry_date"`
	CreditLimit     decimal.Decimal `db:"credit_limit"`
	CurrentBalance  decimal.Decimal `db:"current_balance"`
	AvailableCredit decimal.Decimal `db:"available_credit"`
	IssueDate       sql.NullTime    `db:"issue_date"`
	CardType        sql.NullString  `db:"card_type"`
	Status          sql.NullString  `db:"status"`
	LoadTimestamp   time.Time       `db:"load_timestamp"`
}

func (c CreditCard) Key() string           { return c.CardID }
func (c CreditCard) Recency() sql.NullTime { return c.IssueDate }

func (c CreditCard) Values() []interface{} {
	return []interface{}{
		c.CardID, c.CustomerID, c.CardNumber, c.ExpiryDate, c.CreditLimit, c.CurrentBalance,
		c.AvailableCredit, c.IssueDate, c.CardType, c.Status, c.LoadTimestamp,
	}
}
