// Package cycle evaluates recurring obligations against a reference date:
// whether the current billing cycle is paid, how many days remain until the
// next due date (negative when overdue), and how urgent that is.
//
// The package is pure and has no I/O. The HTTP API and the reminder job both
// use it, so a due-date rule only exists here.
package cycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// Thresholds of the urgency buckets, in days.
const (
	CriticalDays = 3
	WarningDays  = 7
)

// IsPaidCurrentCycle reports whether o has been paid for the cycle containing today.
//
//   - monthly: last payment in today's calendar month.
//   - yearly: last payment in today's calendar year, on or after the first day
//     of the due month. Payments made before the due month do not count.
//   - one-time: status is paid.
func IsPaidCurrentCycle(o domain.RecurringObligation, today time.Time) bool {
	if _, ok := o.Schedule.(domain.OneTime); ok {
		return o.Status == domain.StatusPaid
	}
	if o.LastPaymentDate == nil {
		return false
	}
	lp := o.LastPaymentDate.In(today.Location())

	switch s := o.Schedule.(type) {
	case domain.Yearly:
		if lp.Year() != today.Year() {
			return false
		}
		dueMonthStart := time.Date(today.Year(), s.Month, 1, 0, 0, 0, 0, today.Location())
		return !lp.Before(dueMonthStart)
	default:
		return lp.Year() == today.Year() && lp.Month() == today.Month()
	}
}

// DaysRemaining returns the whole days from today (midnight) to the next due
// date of o. Negative values are days overdue.
//
// A monthly due day beyond the end of a month is clamped to its last day. When
// the monthly due day has passed, an unpaid obligation is overdue and a paid
// one rolls over to next month.
func DaysRemaining(o domain.RecurringObligation, today time.Time) int {
	today = Midnight(today)

	switch s := o.Schedule.(type) {
	case domain.Monthly:
		current := today.Day()
		dim := DaysInMonth(today.Year(), today.Month())
		due := min(s.DueDay, dim)
		if due >= current || !IsPaidCurrentCycle(o, today) {
			return due - current
		}
		next := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
		return dim - current + min(s.DueDay, DaysInMonth(next.Year(), next.Month()))

	case domain.Yearly:
		target := time.Date(today.Year(), s.Month, s.Day, 0, 0, 0, 0, today.Location())
		if target.Before(today) {
			target = time.Date(today.Year()+1, s.Month, s.Day, 0, 0, 0, 0, today.Location())
		}
		return DaysBetween(today, target)

	case domain.OneTime:
		return DaysBetween(today, s.Date)
	}
	return 0
}

// NextDue returns the calendar date DaysRemaining points at.
func NextDue(o domain.RecurringObligation, today time.Time) time.Time {
	return Midnight(today).AddDate(0, 0, DaysRemaining(o, today))
}

// Classify maps days remaining to an urgency bucket.
func Classify(days int) domain.CycleStatus {
	switch {
	case days < 0:
		return domain.CycleOverdue
	case days <= CriticalDays:
		return domain.CycleCritical
	case days <= WarningDays:
		return domain.CycleWarning
	default:
		return domain.CycleOK
	}
}

// StatusText is the user-facing label for days remaining.
func StatusText(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("Vencido hace %d días", -days)
	case days == 0:
		return "Vence hoy"
	case days == 1:
		return "Vence mañana"
	default:
		return fmt.Sprintf("Vence en %d días", days)
	}
}

// Evaluate bundles the evaluation of o for today.
func Evaluate(o domain.RecurringObligation, today time.Time) domain.ObligationView {
	days := DaysRemaining(o, today)
	return domain.ObligationView{
		Obligation:    o,
		Paid:          IsPaidCurrentCycle(o, today),
		DaysRemaining: days,
		Status:        Classify(days),
		StatusText:    StatusText(days),
		NextDue:       Midnight(today).AddDate(0, 0, days),
	}
}

// ReminderKind decides which email, if any, the reminder job sends for o.
// Unpaid obligations due within window days are upcoming; unpaid ones past
// their due date are overdue.
func ReminderKind(o domain.RecurringObligation, today time.Time, window int) domain.ReminderKind {
	if IsPaidCurrentCycle(o, today) {
		return domain.ReminderNone
	}
	days := DaysRemaining(o, today)
	switch {
	case days < 0:
		return domain.ReminderOverdue
	case days <= window:
		return domain.ReminderUpcoming
	}
	return domain.ReminderNone
}

// Partition splits obligations into unpaid and paid views, each sorted by
// days remaining (soonest first).
func Partition(obligations []domain.RecurringObligation, today time.Time) (pending, paid []domain.ObligationView) {
	pending = []domain.ObligationView{}
	paid = []domain.ObligationView{}
	for _, o := range obligations {
		v := Evaluate(o, today)
		if v.Paid {
			paid = append(paid, v)
		} else {
			pending = append(pending, v)
		}
	}
	byDays := func(vs []domain.ObligationView) func(i, j int) bool {
		return func(i, j int) bool { return vs[i].DaysRemaining < vs[j].DaysRemaining }
	}
	sort.SliceStable(pending, byDays(pending))
	sort.SliceStable(paid, byDays(paid))
	return pending, paid
}

// DueByCurrentMonth reports whether an unpaid o counts toward the amount still
// owed this month: monthly obligations always do, yearly and one-time ones
// when their due date is in the current month or earlier.
func DueByCurrentMonth(o domain.RecurringObligation, today time.Time) bool {
	switch s := o.Schedule.(type) {
	case domain.Yearly:
		return s.Month <= today.Month()
	case domain.OneTime:
		current := domain.MonthOf(today)
		due := domain.MonthOf(s.Date)
		return !current.Before(due)
	}
	return true
}

// Midnight truncates t to the start of its day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns 28–31 for the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween counts calendar days from a to b using each value's own calendar date.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
