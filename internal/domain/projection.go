package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyProjection is the cash-flow projection of one month. Derived, never stored.
type MonthlyProjection struct {
	Month                  Month           `json:"month"`
	IsPastMonth            bool            `json:"isPastMonth"`
	Expected               decimal.Decimal `json:"expected"`
	ActualIncome           decimal.Decimal `json:"actualIncome"`
	ActualExpenses         decimal.Decimal `json:"actualExpenses"`
	Savings                decimal.Decimal `json:"savings"`
	Pending                decimal.Decimal `json:"pending"`
	TotalProjectedExpenses decimal.Decimal `json:"totalProjectedExpenses"`
	Remaining              decimal.Decimal `json:"remaining"`
	// Deficit is set when projected expenses exceed expected income.
	Deficit      bool          `json:"deficit"`
	PendingItems []PendingItem `json:"pendingItems"`
}

// PendingItem is an obligation counted in Pending.
type PendingItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
}

// CycleStatus is the urgency bucket of an obligation.
type CycleStatus string

const (
	CycleOverdue  CycleStatus = "overdue"
	CycleCritical CycleStatus = "critical"
	CycleWarning  CycleStatus = "warning"
	CycleOK       CycleStatus = "ok"
)

// ObligationView is an obligation together with its evaluation for "today".
type ObligationView struct {
	Obligation    RecurringObligation `json:"obligation"`
	Paid          bool                `json:"paid"`
	DaysRemaining int                 `json:"daysRemaining"`
	Status        CycleStatus         `json:"status"`
	StatusText    string              `json:"statusText"`
	NextDue       time.Time           `json:"nextDue"`
}

// SubscriptionBoard is the list response of GET /v1/me/subscriptions.
type SubscriptionBoard struct {
	Pending       []ObligationView `json:"pending"`
	Paid          []ObligationView `json:"paid"`
	PendingAmount decimal.Decimal  `json:"pendingAmount"`
}
