package domain

import (
	"fmt"
	"time"
)

// Ledger is the snapshot of everything a user owns.
type Ledger struct {
	UserID         string                `json:"userId"`
	Transactions   []Transaction         `json:"transactions"`
	Subscriptions  []RecurringObligation `json:"subscriptions"`
	Debts          []Debt                `json:"debts"`
	Goals          []Goal                `json:"goals"`
	ExpectedIncome []ExpectedIncome      `json:"expectedIncome"`
	LoadedAt       time.Time             `json:"loadedAt"`
}

// Clone returns a copy whose slices can be mutated without touching l.
// Pointer fields inside records are treated as immutable and shared.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	c := *l
	c.Transactions = append([]Transaction(nil), l.Transactions...)
	c.Subscriptions = append([]RecurringObligation(nil), l.Subscriptions...)
	c.Debts = append([]Debt(nil), l.Debts...)
	c.Goals = append([]Goal(nil), l.Goals...)
	c.ExpectedIncome = append([]ExpectedIncome(nil), l.ExpectedIncome...)
	return &c
}

// Obligations returns the subscriptions plus every debt with a scheduled payment.
func (l *Ledger) Obligations() []RecurringObligation {
	out := make([]RecurringObligation, 0, len(l.Subscriptions)+len(l.Debts))
	out = append(out, l.Subscriptions...)
	for _, d := range l.Debts {
		if d.Scheduled() {
			out = append(out, d.RecurringObligation)
		}
	}
	return out
}

// Month is a calendar month selector (YYYY-MM).
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM selector.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, &ErrValidation{Field: "month", Message: fmt.Sprintf("invalid month %q, use YYYY-MM", s)}
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether t falls inside m, using t's own calendar date.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText encodes the month as YYYY-MM.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
