// pkg/cleaner/normalize.go
package cleaner

import (
	"time"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// The Normalize functions trim every string field, map categorical fields through their
// rule tables and clamp designated numeric fields. They never fail: anything that cannot be
// classified is replaced by its sentinel and reported as an anomaly.

// NormalizeBranch cleanses one raw branch
func NormalizeBranch(raw model.RawBranch, loadedAt time.Time) (model.Branch, []model.Anomaly) {
	id := trimKey(raw.BranchID)
	rc := newRowContext(model.EntityBranch, id)

	branch := model.Branch{
		BranchID:      id,
		BranchName:    trim(raw.BranchName),
		City:          trim(raw.City),
		State:         upper(raw.State),
		ZipCode:       trim(raw.ZipCode),
		Latitude:      raw.Latitude,
		Longitude:     raw.Longitude,
		OpeningDate:   raw.OpeningDate,
		TotalDeposits: rc.amount("total_deposits", raw.TotalDeposits),
		EmployeeCount: rc.count("employee_count", raw.EmployeeCount),
		LoadTimestamp: loadedAt,
	}
	return branch, rc.anomalies
}

// NormalizeCustomer cleanses one raw customer. Phone and SSN are left to the reconciler.
func NormalizeCustomer(raw model.RawCustomer, loadedAt time.Time) (model.Customer, []model.Anomaly) {
	id := trimKey(raw.CustomerID)
	rc := newRowContext(model.EntityCustomer, id)

	customer := model.Customer{
		CustomerID:       id,
		FirstName:        trim(raw.FirstName),
		LastName:         trim(raw.LastName),
		Email:            lower(raw.Email),
		Phone:            trim(raw.Phone),
		Address:          trim(raw.Address),
		City:             trim(raw.City),
		State:            upper(raw.State),
		ZipCode:          trim(raw.ZipCode),
		DateOfBirth:      raw.DateOfBirth,
		SSN:              trim(raw.SSN),
		CustomerSince:    raw.CustomerSince,
		CreditScore:      raw.CreditScore,
		AnnualIncome:     rc.amount("annual_income", raw.AnnualIncome),
		EmploymentStatus: rc.category(EmploymentStatusMapping, raw.EmploymentStatus),
		BranchID:         trim(raw.BranchID),
		LoadTimestamp:    loadedAt,
	}
	return customer, rc.anomalies
}

// NormalizeAccount cleanses one raw account
func NormalizeAccount(raw model.RawAccount, loadedAt time.Time) (model.Account, []model.Anomaly) {
	id := trimKey(raw.AccountID)
	rc := newRowContext(model.EntityAccount, id)

	account := model.Account{
		AccountID:      id,
		CustomerID:     trim(raw.CustomerID),
		AccountType:    rc.category(AccountTypeMapping, raw.AccountType),
		AccountNumber:  trim(raw.AccountNumber),
		CurrentBalance: rc.amount("current_balance", raw.CurrentBalance),
		OpenDate:       raw.OpenDate,
		InterestRate:   raw.InterestRate,
		Status:         rc.category(AccountStatusMapping, raw.Status),
		LoadTimestamp:  loadedAt,
	}
	return account, rc.anomalies
}

// NormalizeTransaction cleanses one raw transaction. Amount and balance_after are signed
// and pass through untouched.
func NormalizeTransaction(raw model.RawTransaction, loadedAt time.Time) (model.Transaction, []model.Anomaly) {
	id := trimKey(raw.TransactionID)
	rc := newRowContext(model.EntityTransaction, id)

	txn := model.Transaction{
		TransactionID:    id,
		AccountID:        trim(raw.AccountID),
		TransactionDate:  raw.TransactionDate,
		TransactionType:  rc.category(TransactionTypeMapping, raw.TransactionType),
		Amount:           raw.Amount,
		BalanceAfter:     raw.BalanceAfter,
		MerchantName:     rc.orUnknown("merchant_name", raw.MerchantName),
		MerchantCategory: rc.orUnknown("merchant_category", raw.MerchantCategory),
		Description:      trim(raw.Description),
		Status:           rc.category(TransactionStatusMapping, raw.Status),
		LoadTimestamp:    loadedAt,
	}
	return txn, rc.anomalies
}

// NormalizeLoan cleanses one raw loan
func NormalizeLoan(raw model.RawLoan, loadedAt time.Time) (model.Loan, []model.Anomaly) {
	id := trimKey(raw.LoanID)
	rc := newRowContext(model.EntityLoan, id)

	loan := model.Loan{
		LoanID:           id,
		CustomerID:       trim(raw.CustomerID),
		LoanType:         rc.category(LoanTypeMapping, raw.LoanType),
		LoanAmount:       rc.amount("loan_amount", raw.LoanAmount),
		InterestRate:     raw.InterestRate,
		TermMonths:       rc.count("term_months", raw.TermMonths),
		StartDate:        raw.StartDate,
		MonthlyPayment:   rc.amount("monthly_payment", raw.MonthlyPayment),
		RemainingBalance: rc.amount("remaining_balance", raw.RemainingBalance),
		Status:           rc.category(LoanStatusMapping, raw.Status),
		LoadTimestamp:    loadedAt,
	}
	return loan, rc.anomalies
}

// NormalizeCreditCard cleanses one raw credit card. card_type and status are trimmed only.
func NormalizeCreditCard(raw model.RawCreditCard, loadedAt time.Time) (model.CreditCard, []model.Anomaly) {
	id := trimKey(raw.CardID)
	rc := newRowContext(model.EntityCreditCard, id)

	card := model.CreditCard{
		CardID:          id,
		CustomerID:      trim(raw.CustomerID),
		CardNumber:      trim(raw.CardNumber),
		ExpiryDate:      raw.ExpiryDate,
		CreditLimit:     rc.amount("credit_limit", raw.CreditLimit),
		CurrentBalance:  rc.amount("current_balance", raw.CurrentBalance),
		AvailableCredit: rc.amount("available_credit", raw.AvailableCredit),
		IssueDate:       raw.IssueDate,
		CardType:        trim(raw.CardType),
		Status:          trim(raw.Status),
		LoadTimestamp:   loadedAt,
	}
	return card, rc.anomalies
}
