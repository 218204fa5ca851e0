package supabase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// ============================================================
// Table rows (snake_case columns) and their domain mapping
// ============================================================

type transactionRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	DebtID      *string         `json:"debt_id"`
}

type subscriptionRow struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	Frequency       string          `json:"frequency"`
	DueDay          *int            `json:"due_day"`
	Date            *string         `json:"date"`
	LastPaymentDate *string         `json:"last_payment_date"`
	Status          *string         `json:"status"`
}

type debtRow struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Name            string           `json:"name"`
	Type            string           `json:"type"`
	Amount          decimal.Decimal  `json:"amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Date            *string          `json:"date"`
	PaymentDate     *string          `json:"payment_date"`
	PaymentAmount   *decimal.Decimal `json:"payment_amount"`
	LastPaymentDate *string          `json:"last_payment_date"`
	Status          *string          `json:"status"`
	CreditLimit     *decimal.Decimal `json:"credit_limit"`
	CutoffDay       *int             `json:"cutoff_day"`
	PaymentDay      *int             `json:"payment_day"`
}

type goalRow struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
}

type incomeRow struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

// --- Transactions ---

func (r transactionRow) toDomain() (domain.Transaction, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	tx := domain.Transaction{
		ID:          r.ID,
		Type:        domain.TransactionType(r.Type),
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		Date:        date,
	}
	if r.DebtID != nil {
		tx.DebtID = *r.DebtID
	}
	return tx, nil
}

func newTransactionRow(userID string, tx domain.Transaction) transactionRow {
	return transactionRow{
		ID:          tx.ID,
		UserID:      userID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.UTC().Format(time.RFC3339),
		DebtID:      optString(tx.DebtID),
	}
}

// --- Subscriptions ---

func (r subscriptionRow) toDomain() (domain.RecurringObligation, error) {
	date, err := parseOptDate(r.Date)
	if err != nil {
		return domain.RecurringObligation{}, fmt.Errorf("subscription %s: %w", r.ID, err)
	}
	sched, err := domain.NewSchedule(domain.Frequency(r.Frequency), derefInt(r.DueDay), date)
	if err != nil {
		return domain.RecurringObligation{}, fmt.Errorf("subscription %s: %w", r.ID, err)
	}
	last, err := parseOptDate(r.LastPaymentDate)
	if err != nil {
		return domain.RecurringObligation{}, fmt.Errorf("subscription %s: %w", r.ID, err)
	}
	return domain.RecurringObligation{
		ID:              r.ID,
		Name:            r.Name,
		Amount:          r.Amount,
		Schedule:        sched,
		LastPaymentDate: last,
		Status:          domain.ObligationStatus(derefString(r.Status)),
	}, nil
}

func newSubscriptionRow(userID string, o domain.RecurringObligation) subscriptionRow {
	freq, dueDay, date := domain.ScheduleColumns(o.Schedule)
	row := subscriptionRow{
		ID:              o.ID,
		UserID:          userID,
		Name:            o.Name,
		Amount:          o.Amount,
		Frequency:       string(freq),
		LastPaymentDate: formatOptTime(o.LastPaymentDate),
		Status:          optString(string(o.Status)),
	}
	if dueDay > 0 {
		row.DueDay = &dueDay
	}
	if date != nil {
		s := date.Format(domain.DateLayout)
		row.Date = &s
	}
	return row
}

// --- Debts ---

func (r debtRow) toDomain() (domain.Debt, error) {
	taken, err := parseOptDate(r.Date)
	if err != nil {
		return domain.Debt{}, fmt.Errorf("debt %s: %w", r.ID, err)
	}
	last, err := parseOptDate(r.LastPaymentDate)
	if err != nil {
		return domain.Debt{}, fmt.Errorf("debt %s: %w", r.ID, err)
	}
	d := domain.Debt{
		RecurringObligation: domain.RecurringObligation{
			ID:              r.ID,
			Name:            r.Name,
			LastPaymentDate: last,
			Status:          domain.ObligationStatus(derefString(r.Status)),
		},
		Type:            domain.DebtType(r.Type),
		TotalAmount:     r.Amount,
		RemainingAmount: r.RemainingAmount,
		Date:            taken,
		CreditLimit:     r.CreditLimit,
		CutoffDay:       derefInt(r.CutoffDay),
		PaymentDay:      derefInt(r.PaymentDay),
	}
	pd, err := parseOptDate(r.PaymentDate)
	if err != nil {
		return domain.Debt{}, fmt.Errorf("debt %s: %w", r.ID, err)
	}
	if pd != nil {
		d.Schedule = domain.OneTime{Date: *pd}
		d.Amount = r.RemainingAmount
		if r.PaymentAmount != nil {
			d.Amount = *r.PaymentAmount
		}
	}
	return d, nil
}

func newDebtRow(userID string, d domain.Debt) debtRow {
	row := debtRow{
		ID:              d.ID,
		UserID:          userID,
		Name:            d.Name,
		Type:            string(d.Type),
		Amount:          d.TotalAmount,
		RemainingAmount: d.RemainingAmount,
		Date:            formatOptTime(d.Date),
		LastPaymentDate: formatOptTime(d.LastPaymentDate),
		Status:          optString(string(d.Status)),
		CreditLimit:     d.CreditLimit,
	}
	if d.CutoffDay > 0 {
		row.CutoffDay = &d.CutoffDay
	}
	if d.PaymentDay > 0 {
		row.PaymentDay = &d.PaymentDay
	}
	if s, ok := d.Schedule.(domain.OneTime); ok {
		pd := s.Date.Format(domain.DateLayout)
		amount := d.Amount
		row.PaymentDate = &pd
		row.PaymentAmount = &amount
	}
	return row
}

// --- Goals and expected income ---

func (r goalRow) toDomain() domain.Goal {
	return domain.Goal{ID: r.ID, Name: r.Name, TargetAmount: r.TargetAmount, CurrentAmount: r.CurrentAmount}
}

func newGoalRow(userID string, g domain.Goal) goalRow {
	return goalRow{ID: g.ID, UserID: userID, Name: g.Name, TargetAmount: g.TargetAmount, CurrentAmount: g.CurrentAmount}
}

func (r incomeRow) toDomain() (domain.ExpectedIncome, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.ExpectedIncome{}, fmt.Errorf("expected income %s: %w", r.ID, err)
	}
	return domain.ExpectedIncome{ID: r.ID, Source: r.Source, Amount: r.Amount, Date: date}, nil
}

func newIncomeRow(userID string, inc domain.ExpectedIncome) incomeRow {
	return incomeRow{
		ID:     inc.ID,
		UserID: userID,
		Source: inc.Source,
		Amount: inc.Amount,
		Date:   inc.Date.Format(domain.DateLayout),
	}
}

// --- Helpers ---

func parseOptDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
