package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
)

func newTestDashboard(store *memStore, now func() time.Time) *DashboardService {
	svc := NewDashboardService(newTestRepo(store), time.UTC, observability.NewMetrics(), zap.NewNop())
	svc.now = now
	return svc
}

func seededStore() *memStore {
	store := newMemStore()
	store.txs = []domain.Transaction{
		{ID: "t1", Type: domain.TransactionIncome, Amount: dec("15000"), Category: "Sueldo", Date: date(2025, time.March, 1)},
		{ID: "t2", Type: domain.TransactionExpense, Amount: dec("1000"), Category: "Comida", Date: date(2025, time.March, 3)},
		{ID: "t3", Type: domain.TransactionExpense, Amount: dec("2000"), Category: domain.CategorySavings, Date: date(2025, time.March, 4)},
		{ID: "t4", Type: domain.TransactionExpense, Amount: dec("500"), Category: "Comida", Date: date(2025, time.February, 20)},
	}
	store.income = []domain.ExpectedIncome{
		{ID: "i1", Source: "Sueldo", Amount: dec("15000"), Date: date(2025, time.March, 1)},
	}
	store.subs = []domain.RecurringObligation{
		{ID: "netflix", Name: "Netflix", Amount: dec("199"), Schedule: domain.Monthly{DueDay: 10}},
		{ID: "gym", Name: "Gym", Amount: dec("500"), Schedule: domain.Monthly{DueDay: 2}, LastPaymentDate: datePtr(2025, time.March, 2)},
		{ID: "seguro", Name: "Seguro", Amount: dec("6000"), Schedule: domain.Yearly{Month: time.March, Day: 7}},
	}
	store.debts = []domain.Debt{
		{
			RecurringObligation: domain.RecurringObligation{
				ID: "tarjeta", Name: "Tarjeta", Amount: dec("800"),
				Schedule: domain.OneTime{Date: date(2025, time.March, 4)},
			},
			TotalAmount:     dec("8000"),
			RemainingAmount: dec("8000"),
		},
		{RecurringObligation: domain.RecurringObligation{ID: "unscheduled", Name: "Préstamo"}, RemainingAmount: dec("100")},
	}
	return store
}

func TestSummary(t *testing.T) {
	svc := newTestDashboard(seededStore(), fixedClock(2025, time.March, 5))

	sum, err := svc.Summary(context.Background(), testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Income.Equal(dec("15000")) {
		t.Errorf("expected income 15000, got %s", sum.Income)
	}
	if !sum.Expenses.Equal(dec("3500")) {
		t.Errorf("expected expenses 3500, got %s", sum.Expenses)
	}
	if !sum.Savings.Equal(dec("2000")) {
		t.Errorf("expected savings 2000, got %s", sum.Savings)
	}
	if !sum.Balance.Equal(dec("11500")) {
		t.Errorf("expected balance 11500, got %s", sum.Balance)
	}
}

func TestProjection_CurrentMonth(t *testing.T) {
	svc := newTestDashboard(seededStore(), fixedClock(2025, time.March, 5))

	p, err := svc.Projection(context.Background(), testUser, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Month.String() != "2025-03" || p.IsPastMonth {
		t.Fatalf("expected current month 2025-03, got %s (past=%v)", p.Month, p.IsPastMonth)
	}
	// netflix 199 + seguro 6000 + tarjeta 800; gym was paid this month.
	if !p.Pending.Equal(dec("6999")) {
		t.Errorf("expected pending 6999, got %s", p.Pending)
	}
	if len(p.PendingItems) != 3 {
		t.Errorf("expected 3 pending items, got %d", len(p.PendingItems))
	}
	if !p.ActualExpenses.Equal(dec("3000")) {
		t.Errorf("expected actual expenses 3000, got %s", p.ActualExpenses)
	}
	if !p.Remaining.Equal(dec("5001")) || p.Deficit {
		t.Errorf("expected remaining 5001 without deficit, got %s (deficit=%v)", p.Remaining, p.Deficit)
	}
}

func TestProjection_PastMonthHasNoPending(t *testing.T) {
	svc := newTestDashboard(seededStore(), fixedClock(2025, time.March, 5))

	p, err := svc.Projection(context.Background(), testUser, "2025-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsPastMonth || !p.Pending.IsZero() {
		t.Errorf("expected past month without pending, got past=%v pending=%s", p.IsPastMonth, p.Pending)
	}
	if !p.ActualExpenses.Equal(dec("500")) {
		t.Errorf("expected February expenses 500, got %s", p.ActualExpenses)
	}
	if !p.Deficit {
		t.Error("expected deficit with no expected income")
	}
}

func TestProjection_InvalidMonth(t *testing.T) {
	svc := newTestDashboard(seededStore(), fixedClock(2025, time.March, 5))

	_, err := svc.Projection(context.Background(), testUser, "2025-13")
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNotifications(t *testing.T) {
	svc := newTestDashboard(seededStore(), fixedClock(2025, time.March, 5))
	ctx := context.Background()

	got, err := svc.Notifications(ctx, testUser, DefaultNotificationDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// tarjeta -1 (overdue), seguro 2, netflix 5
	want := []struct {
		id   string
		days int
	}{{"tarjeta", -1}, {"seguro", 2}, {"netflix", 5}}
	if len(got) != len(want) {
		t.Fatalf("expected %d notifications, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Obligation.ID != w.id || got[i].DaysRemaining != w.days {
			t.Errorf("position %d: expected %s (%d), got %s (%d)", i, w.id, w.days, got[i].Obligation.ID, got[i].DaysRemaining)
		}
	}
	if got[0].Status != domain.CycleOverdue {
		t.Errorf("expected overdue status, got %s", got[0].Status)
	}

	narrow, err := svc.Notifications(ctx, testUser, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(narrow) != 2 {
		t.Errorf("expected 2 notifications within 2 days, got %d", len(narrow))
	}

	if _, err := svc.Notifications(ctx, testUser, -1); err == nil {
		t.Error("expected validation error for negative days")
	}
}
