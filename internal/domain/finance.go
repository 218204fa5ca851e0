package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType is the direction of a transaction. Amounts are always positive.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Categories written by the service itself.
const (
	CategorySavings       = "Ahorro"
	CategoryInvestment    = "Inversión"
	CategoryDebts         = "Deudas"
	CategorySubscriptions = "Suscripciones"
)

// Transaction is one income or expense entry of the ledger.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	DebtID      string          `json:"debtId,omitempty"`
}

// NewTransactionRequest is the input of POST /v1/me/transactions.
type NewTransactionRequest struct {
	Type        TransactionType `json:"type"`
	Amount      string          `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date,omitempty"`
}

// ============================================================
// Goals
// ============================================================

// Goal is a savings target.
type Goal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
}

// Progress returns the completion percentage, capped at 100.
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	return decimal.Min(pct, decimal.NewFromInt(100)).Round(2)
}

// NewGoalRequest is the input of POST /v1/me/goals.
type NewGoalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"targetAmount"`
	CurrentAmount string `json:"currentAmount,omitempty"`
}

// ContributionRequest is the input of POST /v1/me/goals/{id}/contribute.
type ContributionRequest struct {
	Amount string `json:"amount"`
	// Mirror records the contribution as a savings expense as well.
	Mirror bool   `json:"mirror"`
	Date   string `json:"date,omitempty"`
}

// ============================================================
// Expected income
// ============================================================

// ExpectedIncome is income the user expects to receive on Date.
type ExpectedIncome struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// NewIncomeRequest is the input of POST /v1/me/income.
type NewIncomeRequest struct {
	Source string `json:"source"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// ============================================================
// Subscriptions
// ============================================================

// NewSubscriptionRequest is the input of POST /v1/me/subscriptions.
type NewSubscriptionRequest struct {
	Name      string    `json:"name"`
	Amount    string    `json:"amount"`
	Frequency Frequency `json:"frequency"`
	DueDay    int       `json:"dueDay,omitempty"`
	Date      string    `json:"date,omitempty"`
}

// PaymentRequest is the input of the pay endpoints.
type PaymentRequest struct {
	Amount string `json:"amount,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Summary holds the all-time totals shown on the dashboard.
type Summary struct {
	Balance  decimal.Decimal `json:"balance"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Savings  decimal.Decimal `json:"savings"`
}

// IsSavingsCategory reports whether expenses in category count as savings.
func IsSavingsCategory(category string) bool {
	switch category {
	case CategorySavings, CategoryInvestment, "savings":
		return true
	}
	return false
}
