package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DebtType classifies a debt.
type DebtType string

const (
	DebtPersonal   DebtType = "personal"
	DebtCreditCard DebtType = "credit-card"
	DebtLoan       DebtType = "loan"
)

// Debt is an outstanding balance with an optional scheduled next payment.
//
// The embedded obligation carries the next payment: its Amount is the
// scheduled payment amount and its Schedule is OneTime{paymentDate}. A debt
// with no scheduled payment has a nil Schedule.
type Debt struct {
	RecurringObligation

	Type            DebtType        `json:"type"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Date            *time.Time      `json:"date,omitempty"`

	// Credit cards only.
	CreditLimit *decimal.Decimal `json:"creditLimit,omitempty"`
	CutoffDay   int              `json:"cutoffDay,omitempty"`
	PaymentDay  int              `json:"paymentDay,omitempty"`
}

// Scheduled reports whether a next payment is scheduled.
func (d Debt) Scheduled() bool { return d.Schedule != nil }

// PaidPct returns how much of the original principal has been repaid (0–100).
func (d Debt) PaidPct() decimal.Decimal {
	if !d.TotalAmount.IsPositive() {
		return decimal.Zero
	}
	paid := d.TotalAmount.Sub(d.RemainingAmount)
	pct := paid.Div(d.TotalAmount).Mul(decimal.NewFromInt(100))
	return decimal.Max(decimal.Zero, decimal.Min(pct, decimal.NewFromInt(100))).Round(2)
}

type debtJSON struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Type            DebtType         `json:"type"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	RemainingAmount decimal.Decimal  `json:"remainingAmount"`
	Date            *time.Time       `json:"date,omitempty"`
	PaymentDate     string           `json:"paymentDate,omitempty"`
	PaymentAmount   *decimal.Decimal `json:"paymentAmount,omitempty"`
	LastPaymentDate *time.Time       `json:"lastPaymentDate,omitempty"`
	Status          ObligationStatus `json:"status,omitempty"`
	CreditLimit     *decimal.Decimal `json:"creditLimit,omitempty"`
	CutoffDay       int              `json:"cutoffDay,omitempty"`
	PaymentDay      int              `json:"paymentDay,omitempty"`
}

// MarshalJSON writes the debt with its scheduled payment as paymentDate/paymentAmount.
func (d Debt) MarshalJSON() ([]byte, error) {
	w := debtJSON{
		ID:              d.ID,
		Name:            d.Name,
		Type:            d.Type,
		TotalAmount:     d.TotalAmount,
		RemainingAmount: d.RemainingAmount,
		Date:            d.Date,
		LastPaymentDate: d.LastPaymentDate,
		Status:          d.Status,
		CreditLimit:     d.CreditLimit,
		CutoffDay:       d.CutoffDay,
		PaymentDay:      d.PaymentDay,
	}
	if s, ok := d.Schedule.(OneTime); ok {
		w.PaymentDate = s.Date.Format(DateLayout)
		amt := d.Amount
		w.PaymentAmount = &amt
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (d *Debt) UnmarshalJSON(data []byte) error {
	var w debtJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Debt{
		RecurringObligation: RecurringObligation{
			ID:              w.ID,
			Name:            w.Name,
			LastPaymentDate: w.LastPaymentDate,
			Status:          w.Status,
		},
		Type:            w.Type,
		TotalAmount:     w.TotalAmount,
		RemainingAmount: w.RemainingAmount,
		Date:            w.Date,
		CreditLimit:     w.CreditLimit,
		CutoffDay:       w.CutoffDay,
		PaymentDay:      w.PaymentDay,
	}
	if w.PaymentDate != "" {
		pd, err := ParseDate(w.PaymentDate)
		if err != nil {
			return err
		}
		d.Schedule = OneTime{Date: pd}
		if w.PaymentAmount != nil {
			d.Amount = *w.PaymentAmount
		}
	}
	return nil
}

// NewDebtRequest is the input of POST /v1/me/debts.
type NewDebtRequest struct {
	Name          string   `json:"name"`
	Type          DebtType `json:"type"`
	Amount        string   `json:"amount"`
	Date          string   `json:"date,omitempty"`
	PaymentDate   string   `json:"paymentDate,omitempty"`
	PaymentAmount string   `json:"paymentAmount,omitempty"`
	CreditLimit   string   `json:"creditLimit,omitempty"`
	CutoffDay     int      `json:"cutoffDay,omitempty"`
	PaymentDay    int      `json:"paymentDay,omitempty"`
}

// ScheduleDebtRequest is the input of POST /v1/me/debts/{id}/schedule.
type ScheduleDebtRequest struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}
