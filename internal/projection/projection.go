// Package projection computes the cash-flow projection of a single month from
// a snapshot of the ledger. Every function is pure.
package projection

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// Input is the snapshot a projection is computed from.
type Input struct {
	Transactions   []domain.Transaction
	ExpectedIncome []domain.ExpectedIncome
	// Obligations are the subscriptions plus debts with a scheduled payment.
	Obligations []domain.RecurringObligation
	Month       domain.Month
	IsPastMonth bool
	// Location converts transaction timestamps and payment dates to calendar
	// dates. Nil keeps each value's own location.
	Location *time.Location
}

// IsPast reports whether m is strictly before the month containing today.
func IsPast(m domain.Month, today time.Time) bool {
	return m.Before(domain.MonthOf(today))
}

// Compute builds the projection of in.Month.
//
// Pending is always zero for past months. For the current and future months
// it is the sum of the obligations that apply to the month and have not been
// paid within it.
func Compute(in Input) domain.MonthlyProjection {
	p := domain.MonthlyProjection{
		Month:          in.Month,
		IsPastMonth:    in.IsPastMonth,
		Expected:       decimal.Zero,
		ActualIncome:   decimal.Zero,
		ActualExpenses: decimal.Zero,
		Savings:        decimal.Zero,
		Pending:        decimal.Zero,
		PendingItems:   []domain.PendingItem{},
	}

	for _, inc := range in.ExpectedIncome {
		if in.Month.Contains(inc.Date) {
			p.Expected = p.Expected.Add(inc.Amount)
		}
	}

	for _, tx := range in.Transactions {
		if !in.Month.Contains(localize(tx.Date, in.Location)) {
			continue
		}
		switch tx.Type {
		case domain.TransactionIncome:
			p.ActualIncome = p.ActualIncome.Add(tx.Amount)
		case domain.TransactionExpense:
			p.ActualExpenses = p.ActualExpenses.Add(tx.Amount)
			if domain.IsSavingsCategory(tx.Category) {
				p.Savings = p.Savings.Add(tx.Amount)
			}
		}
	}

	if !in.IsPastMonth {
		for _, o := range in.Obligations {
			if !Applies(o, in.Month) || PaidIn(o, in.Month, in.Location) {
				continue
			}
			p.Pending = p.Pending.Add(o.Amount)
			p.PendingItems = append(p.PendingItems, domain.PendingItem{
				ID:        o.ID,
				Name:      o.Name,
				Amount:    o.Amount,
				Frequency: o.Frequency(),
			})
		}
	}

	p.TotalProjectedExpenses = p.ActualExpenses.Add(p.Pending)
	p.Remaining = p.Expected.Sub(p.TotalProjectedExpenses)
	p.Deficit = p.Remaining.IsNegative()
	return p
}

// Applies reports whether o is due within m. Monthly obligations apply to
// every month; yearly ones to the month of their date; one-time ones to the
// month containing their date.
func Applies(o domain.RecurringObligation, m domain.Month) bool {
	switch s := o.Schedule.(type) {
	case domain.Yearly:
		return s.Month == m.Month
	case domain.OneTime:
		return m.Contains(s.Date)
	}
	return true
}

// PaidIn reports whether o counts as paid for m: a one-time obligation marked
// paid, or any obligation whose last payment falls within m.
func PaidIn(o domain.RecurringObligation, m domain.Month, loc *time.Location) bool {
	if _, ok := o.Schedule.(domain.OneTime); ok && o.Status == domain.StatusPaid {
		return true
	}
	if o.LastPaymentDate == nil {
		return false
	}
	return m.Contains(localize(*o.LastPaymentDate, loc))
}

func localize(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
