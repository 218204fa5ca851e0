// Package service provides the business logic layer (use cases).
// FinanceService owns every mutation of a user's ledger: transactions,
// subscriptions, debts, goals and expected income.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/cycle"
	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/ledger"
	"github.com/randal-web/administrador-de-finanzas/internal/port"
)

var financeTracer = otel.Tracer("service/finance")

// FinanceService handles ledger reads and writes through the ledger repository.
type FinanceService struct {
	ledger  *ledger.Repository
	loc     *time.Location
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewFinanceService creates a finance service evaluating "today" in loc.
func NewFinanceService(repo *ledger.Repository, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *FinanceService {
	return &FinanceService{
		ledger:  repo,
		loc:     loc,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *FinanceService) today() time.Time {
	return s.now().In(s.loc)
}

// ============================================================
// Transactions
// ============================================================

// ListTransactions returns the user's transactions, newest first.
func (s *FinanceService) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListTransactions")
	defer span.End()

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := append([]domain.Transaction{}, l.Transactions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// AddTransaction validates and records a transaction.
func (s *FinanceService) AddTransaction(ctx context.Context, userID string, req *domain.NewTransactionRequest) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AddTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if req.Type != domain.TransactionIncome && req.Type != domain.TransactionExpense {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	category, err := requireText("category", req.Category)
	if err != nil {
		return nil, err
	}
	date, err := parseDateOr("date", req.Date, s.now())
	if err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		ID:          s.newID(),
		Type:        req.Type,
		Amount:      amount,
		Category:    category,
		Description: req.Description,
		Date:        date,
	}
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "add_transaction",
		Apply: func(l *domain.Ledger) error {
			l.Transactions = append([]domain.Transaction{tx}, l.Transactions...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.InsertTransaction(ctx, userID, tx)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}
	return &tx, nil
}

// DeleteTransaction removes a transaction.
func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteTransaction")
	defer span.End()

	_, err := s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "delete_transaction",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Transactions, func(t domain.Transaction) bool { return t.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "transaction", ID: id}
			}
			l.Transactions = append(l.Transactions[:i], l.Transactions[i+1:]...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.DeleteTransaction(ctx, userID, id)
		},
	})
	return err
}

// ============================================================
// Subscriptions
// ============================================================

// ListSubscriptions evaluates every subscription for today and splits them
// into pending and paid. PendingAmount sums the pending ones already due by
// the end of the current month.
func (s *FinanceService) ListSubscriptions(ctx context.Context, userID string) (*domain.SubscriptionBoard, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListSubscriptions")
	defer span.End()

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	pending, paid := cycle.Partition(l.Subscriptions, today)
	total := decimal.Zero
	for _, v := range pending {
		if cycle.DueByCurrentMonth(v.Obligation, today) {
			total = total.Add(v.Obligation.Amount)
		}
	}
	return &domain.SubscriptionBoard{Pending: pending, Paid: paid, PendingAmount: total}, nil
}

// AddSubscription validates and records a subscription.
func (s *FinanceService) AddSubscription(ctx context.Context, userID string, req *domain.NewSubscriptionRequest) (*domain.RecurringObligation, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AddSubscription")
	defer span.End()

	name, err := requireText("name", req.Name)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	var date *time.Time
	if req.Date != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			return nil, err
		}
		date = &d
	}
	sched, err := domain.NewSchedule(req.Frequency, req.DueDay, date)
	if err != nil {
		return nil, err
	}

	o := domain.RecurringObligation{
		ID:       s.newID(),
		Name:     name,
		Amount:   amount,
		Schedule: sched,
	}
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "add_subscription",
		Apply: func(l *domain.Ledger) error {
			l.Subscriptions = append(l.Subscriptions, o)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.InsertSubscription(ctx, userID, o)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add subscription: %w", err)
	}
	return &o, nil
}

// DeleteSubscription removes a subscription.
func (s *FinanceService) DeleteSubscription(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteSubscription")
	defer span.End()

	_, err := s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "delete_subscription",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Subscriptions, func(o domain.RecurringObligation) bool { return o.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "subscription", ID: id}
			}
			l.Subscriptions = append(l.Subscriptions[:i], l.Subscriptions[i+1:]...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.DeleteSubscription(ctx, userID, id)
		},
	})
	return err
}

// PaySubscription records a payment of the current cycle: it sets the last
// payment date (and the paid status of one-time subscriptions) and mirrors
// the payment as an expense.
func (s *FinanceService) PaySubscription(ctx context.Context, userID, id string, req *domain.PaymentRequest) (*domain.ObligationView, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.PaySubscription")
	defer span.End()
	span.SetAttributes(attribute.String("subscription.id", id))

	date, err := parseDateOr("date", req.Date, s.now())
	if err != nil {
		return nil, err
	}
	var amount *decimal.Decimal
	if req.Amount != "" {
		a, err := parsePositiveAmount("amount", req.Amount)
		if err != nil {
			return nil, err
		}
		amount = &a
	}

	var paid domain.RecurringObligation
	var tx domain.Transaction
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "pay_subscription",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Subscriptions, func(o domain.RecurringObligation) bool { return o.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "subscription", ID: id}
			}
			paid = l.Subscriptions[i]
			paid.LastPaymentDate = &date
			if _, ok := paid.Schedule.(domain.OneTime); ok {
				paid.Status = domain.StatusPaid
			}
			l.Subscriptions[i] = paid

			value := paid.Amount
			if amount != nil {
				value = *amount
			}
			tx = domain.Transaction{
				ID:          s.newID(),
				Type:        domain.TransactionExpense,
				Amount:      value,
				Category:    domain.CategorySubscriptions,
				Description: "Pago de " + paid.Name,
				Date:        date,
			}
			l.Transactions = append([]domain.Transaction{tx}, l.Transactions...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			if err := store.InsertTransaction(ctx, userID, tx); err != nil {
				return err
			}
			if err := store.UpdateSubscription(ctx, userID, paid); err != nil {
				s.compensate(ctx, "pay_subscription", func() error {
					return store.DeleteTransaction(ctx, userID, tx.ID)
				})
				return err
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pay subscription: %w", err)
	}

	view := cycle.Evaluate(paid, s.today())
	return &view, nil
}

// ============================================================
// Debts
// ============================================================

// ListDebts returns the user's debts. With a month, only debts taken in that
// month and debts without a date are returned.
func (s *FinanceService) ListDebts(ctx context.Context, userID, month string) ([]domain.Debt, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListDebts")
	defer span.End()

	var filter *domain.Month
	if month != "" {
		m, err := domain.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		filter = &m
	}

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Debt, 0, len(l.Debts))
	for _, d := range l.Debts {
		if filter == nil || d.Date == nil || filter.Contains(*d.Date) {
			out = append(out, d)
		}
	}
	return out, nil
}

// AddDebt validates and records a debt, optionally with its first scheduled payment.
func (s *FinanceService) AddDebt(ctx context.Context, userID string, req *domain.NewDebtRequest) (*domain.Debt, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AddDebt")
	defer span.End()

	name, err := requireText("name", req.Name)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	debtType := req.Type
	switch debtType {
	case "":
		debtType = domain.DebtPersonal
	case domain.DebtPersonal, domain.DebtCreditCard, domain.DebtLoan:
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "must be personal, credit-card or loan"}
	}
	if err := validDayOfMonth("cutoffDay", req.CutoffDay); err != nil {
		return nil, err
	}
	if err := validDayOfMonth("paymentDay", req.PaymentDay); err != nil {
		return nil, err
	}

	d := domain.Debt{
		RecurringObligation: domain.RecurringObligation{ID: s.newID(), Name: name},
		Type:                debtType,
		TotalAmount:         amount,
		RemainingAmount:     amount,
		CutoffDay:           req.CutoffDay,
		PaymentDay:          req.PaymentDay,
	}
	if req.Date != "" {
		taken, err := parseDateOr("date", req.Date, s.now())
		if err != nil {
			return nil, err
		}
		d.Date = &taken
	}
	if req.CreditLimit != "" {
		limit, err := parsePositiveAmount("creditLimit", req.CreditLimit)
		if err != nil {
			return nil, err
		}
		d.CreditLimit = &limit
	}
	if req.PaymentDate != "" {
		pd, err := parseDateOr("paymentDate", req.PaymentDate, s.now())
		if err != nil {
			return nil, err
		}
		payment := amount
		if req.PaymentAmount != "" {
			if payment, err = parsePositiveAmount("paymentAmount", req.PaymentAmount); err != nil {
				return nil, err
			}
		}
		d.Schedule = domain.OneTime{Date: pd}
		d.Amount = payment
	}

	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "add_debt",
		Apply: func(l *domain.Ledger) error {
			l.Debts = append(l.Debts, d)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.InsertDebt(ctx, userID, d)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add debt: %w", err)
	}
	return &d, nil
}

// DeleteDebt removes a debt. Payment transactions keep their debt reference.
func (s *FinanceService) DeleteDebt(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteDebt")
	defer span.End()

	_, err := s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "delete_debt",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Debts, func(d domain.Debt) bool { return d.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "debt", ID: id}
			}
			l.Debts = append(l.Debts[:i], l.Debts[i+1:]...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.DeleteDebt(ctx, userID, id)
		},
	})
	return err
}

// PayDebt records a payment: the remaining balance drops by amount (floored
// at zero), the scheduled payment is marked paid and an expense linked to the
// debt is recorded.
func (s *FinanceService) PayDebt(ctx context.Context, userID, id string, req *domain.PaymentRequest) (*domain.Debt, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.PayDebt")
	defer span.End()
	span.SetAttributes(attribute.String("debt.id", id))

	amount, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseDateOr("date", req.Date, s.now())
	if err != nil {
		return nil, err
	}

	var paid domain.Debt
	var tx domain.Transaction
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "pay_debt",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Debts, func(d domain.Debt) bool { return d.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "debt", ID: id}
			}
			paid = l.Debts[i]
			paid.RemainingAmount = decimal.Max(decimal.Zero, paid.RemainingAmount.Sub(amount))
			paid.LastPaymentDate = &date
			if paid.Scheduled() || paid.RemainingAmount.IsZero() {
				paid.Status = domain.StatusPaid
			}
			l.Debts[i] = paid

			tx = domain.Transaction{
				ID:          s.newID(),
				Type:        domain.TransactionExpense,
				Amount:      amount,
				Category:    domain.CategoryDebts,
				Description: "Pago de deuda: " + paid.Name,
				Date:        date,
				DebtID:      paid.ID,
			}
			l.Transactions = append([]domain.Transaction{tx}, l.Transactions...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			if err := store.InsertTransaction(ctx, userID, tx); err != nil {
				return err
			}
			if err := store.UpdateDebt(ctx, userID, paid); err != nil {
				s.compensate(ctx, "pay_debt", func() error {
					return store.DeleteTransaction(ctx, userID, tx.ID)
				})
				return err
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pay debt: %w", err)
	}
	return &paid, nil
}

// ScheduleDebtPayment sets the next payment of a debt. The date cannot be in
// the past and the amount cannot exceed the remaining balance.
func (s *FinanceService) ScheduleDebtPayment(ctx context.Context, userID, id string, req *domain.ScheduleDebtRequest) (*domain.Debt, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ScheduleDebtPayment")
	defer span.End()

	if req.Date == "" {
		return nil, &domain.ErrValidation{Field: "date", Message: "is required"}
	}
	date, err := parseDateOr("date", req.Date, s.now())
	if err != nil {
		return nil, err
	}
	if cycle.DaysBetween(s.today(), date) < 0 {
		return nil, &domain.ErrValidation{Field: "date", Message: "must not be in the past"}
	}
	amount, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}

	var scheduled domain.Debt
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "schedule_debt_payment",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Debts, func(d domain.Debt) bool { return d.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "debt", ID: id}
			}
			scheduled = l.Debts[i]
			if scheduled.RemainingAmount.IsPositive() && amount.GreaterThan(scheduled.RemainingAmount) {
				return &domain.ErrValidation{Field: "amount", Message: "exceeds the remaining balance"}
			}
			scheduled.Schedule = domain.OneTime{Date: date}
			scheduled.Amount = amount
			scheduled.Status = domain.StatusNone
			l.Debts[i] = scheduled
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.UpdateDebt(ctx, userID, scheduled)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("schedule debt payment: %w", err)
	}
	return &scheduled, nil
}

// ============================================================
// Goals
// ============================================================

// ListGoals returns the user's goals.
func (s *FinanceService) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListGoals")
	defer span.End()

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append([]domain.Goal{}, l.Goals...), nil
}

// AddGoal validates and records a goal.
func (s *FinanceService) AddGoal(ctx context.Context, userID string, req *domain.NewGoalRequest) (*domain.Goal, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AddGoal")
	defer span.End()

	name, err := requireText("name", req.Name)
	if err != nil {
		return nil, err
	}
	target, err := parsePositiveAmount("targetAmount", req.TargetAmount)
	if err != nil {
		return nil, err
	}
	current, err := parseNonNegativeAmount("currentAmount", req.CurrentAmount)
	if err != nil {
		return nil, err
	}

	g := domain.Goal{ID: s.newID(), Name: name, TargetAmount: target, CurrentAmount: current}
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "add_goal",
		Apply: func(l *domain.Ledger) error {
			l.Goals = append(l.Goals, g)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.InsertGoal(ctx, userID, g)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add goal: %w", err)
	}
	return &g, nil
}

// ContributeToGoal increases a goal's current amount, optionally recording
// the contribution as a savings expense.
func (s *FinanceService) ContributeToGoal(ctx context.Context, userID, id string, req *domain.ContributionRequest) (*domain.Goal, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ContributeToGoal")
	defer span.End()

	amount, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseDateOr("date", req.Date, s.now())
	if err != nil {
		return nil, err
	}

	var before, after domain.Goal
	var tx domain.Transaction
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "contribute_goal",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Goals, func(g domain.Goal) bool { return g.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "goal", ID: id}
			}
			before = l.Goals[i]
			after = before
			after.CurrentAmount = before.CurrentAmount.Add(amount)
			l.Goals[i] = after

			if req.Mirror {
				tx = domain.Transaction{
					ID:          s.newID(),
					Type:        domain.TransactionExpense,
					Amount:      amount,
					Category:    domain.CategorySavings,
					Description: "Aporte a meta: " + after.Name,
					Date:        date,
				}
				l.Transactions = append([]domain.Transaction{tx}, l.Transactions...)
			}
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			if err := store.UpdateGoal(ctx, userID, after); err != nil {
				return err
			}
			if !req.Mirror {
				return nil
			}
			if err := store.InsertTransaction(ctx, userID, tx); err != nil {
				s.compensate(ctx, "contribute_goal", func() error {
					return store.UpdateGoal(ctx, userID, before)
				})
				return err
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("contribute to goal: %w", err)
	}
	return &after, nil
}

// DeleteGoal removes a goal.
func (s *FinanceService) DeleteGoal(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteGoal")
	defer span.End()

	_, err := s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "delete_goal",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.Goals, func(g domain.Goal) bool { return g.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "goal", ID: id}
			}
			l.Goals = append(l.Goals[:i], l.Goals[i+1:]...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.DeleteGoal(ctx, userID, id)
		},
	})
	return err
}

// ============================================================
// Expected income
// ============================================================

// ListExpectedIncome returns expected income sorted by date, optionally
// restricted to one month.
func (s *FinanceService) ListExpectedIncome(ctx context.Context, userID, month string) ([]domain.ExpectedIncome, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListExpectedIncome")
	defer span.End()

	var filter *domain.Month
	if month != "" {
		m, err := domain.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		filter = &m
	}

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExpectedIncome, 0, len(l.ExpectedIncome))
	for _, inc := range l.ExpectedIncome {
		if filter == nil || filter.Contains(inc.Date) {
			out = append(out, inc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// AddExpectedIncome validates and records expected income.
func (s *FinanceService) AddExpectedIncome(ctx context.Context, userID string, req *domain.NewIncomeRequest) (*domain.ExpectedIncome, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.AddExpectedIncome")
	defer span.End()

	source, err := requireText("source", req.Source)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositiveAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if req.Date == "" {
		return nil, &domain.ErrValidation{Field: "date", Message: "is required"}
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	inc := domain.ExpectedIncome{ID: s.newID(), Source: source, Amount: amount, Date: date}
	_, err = s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "add_expected_income",
		Apply: func(l *domain.Ledger) error {
			l.ExpectedIncome = append(l.ExpectedIncome, inc)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.InsertExpectedIncome(ctx, userID, inc)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add expected income: %w", err)
	}
	return &inc, nil
}

// DeleteExpectedIncome removes an expected income entry.
func (s *FinanceService) DeleteExpectedIncome(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteExpectedIncome")
	defer span.End()

	_, err := s.ledger.Write(ctx, userID, ledger.Mutation{
		Name: "delete_expected_income",
		Apply: func(l *domain.Ledger) error {
			i := indexOf(l.ExpectedIncome, func(inc domain.ExpectedIncome) bool { return inc.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "expected income", ID: id}
			}
			l.ExpectedIncome = append(l.ExpectedIncome[:i], l.ExpectedIncome[i+1:]...)
			return nil
		},
		Commit: func(ctx context.Context, store port.FinanceStore) error {
			return store.DeleteExpectedIncome(ctx, userID, id)
		},
	})
	return err
}

// ============================================================
// Helpers
// ============================================================

// compensate undoes the first half of a two-step remote write. Failures are
// logged: the ledger snapshot is rolled back either way.
func (s *FinanceService) compensate(ctx context.Context, mutation string, undo func() error) {
	if err := undo(); err != nil {
		s.metrics.IncrExternalError("compensation")
		s.logger.Error("compensating write failed",
			zap.String("mutation", mutation),
			zap.Error(err),
		)
	}
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}
