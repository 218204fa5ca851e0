package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/cycle"
	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/ledger"
	"github.com/randal-web/administrador-de-finanzas/internal/projection"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DefaultNotificationDays is the look-ahead of GET /v1/me/notifications.
const DefaultNotificationDays = 5

// DashboardService computes read-only views over a ledger snapshot.
type DashboardService struct {
	ledger  *ledger.Repository
	loc     *time.Location
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardService creates a dashboard service evaluating "today" in loc.
func NewDashboardService(repo *ledger.Repository, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{ledger: repo, loc: loc, metrics: metrics, logger: logger, now: time.Now}
}

// Summary returns all-time totals. Savings are expenses booked in a savings
// category; they also count as expenses in the balance.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*domain.Summary, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := summarize(l)
	return &sum, nil
}

func summarize(l *domain.Ledger) domain.Summary {
	sum := domain.Summary{Income: decimal.Zero, Expenses: decimal.Zero, Savings: decimal.Zero}
	for _, tx := range l.Transactions {
		switch tx.Type {
		case domain.TransactionIncome:
			sum.Income = sum.Income.Add(tx.Amount)
		case domain.TransactionExpense:
			sum.Expenses = sum.Expenses.Add(tx.Amount)
			if domain.IsSavingsCategory(tx.Category) {
				sum.Savings = sum.Savings.Add(tx.Amount)
			}
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expenses)
	return sum
}

// Projection computes the projection of month (YYYY-MM); empty means the
// current month.
func (s *DashboardService) Projection(ctx context.Context, userID, month string) (*domain.MonthlyProjection, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Projection")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("projection", time.Since(start))
	}()

	today := s.now().In(s.loc)
	selected := domain.MonthOf(today)
	if month != "" {
		m, err := domain.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		selected = m
	}
	span.SetAttributes(attribute.String("projection.month", selected.String()))

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := projection.Compute(projection.Input{
		Transactions:   l.Transactions,
		ExpectedIncome: l.ExpectedIncome,
		Obligations:    l.Obligations(),
		Month:          selected,
		IsPastMonth:    projection.IsPast(selected, today),
		Location:       s.loc,
	})
	return &p, nil
}

// Notifications lists unpaid obligations due within days (overdue ones
// included), soonest first.
func (s *DashboardService) Notifications(ctx context.Context, userID string, days int) ([]domain.ObligationView, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Notifications")
	defer span.End()

	if days < 0 || days > 366 {
		return nil, &domain.ErrValidation{Field: "days", Message: "must be between 0 and 366"}
	}

	l, err := s.ledger.Read(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now().In(s.loc)
	pending, _ := cycle.Partition(l.Obligations(), today)
	out := make([]domain.ObligationView, 0, len(pending))
	for _, v := range pending {
		if v.DaysRemaining <= days {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysRemaining < out[j].DaysRemaining })
	return out, nil
}
