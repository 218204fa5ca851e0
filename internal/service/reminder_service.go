package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/randal-web/administrador-de-finanzas/internal/cycle"
	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/port"
)

var reminderTracer = otel.Tracer("service/reminder")

// ReminderConfig tunes a reminder run.
type ReminderConfig struct {
	From string
	// WindowDays is how far ahead an unpaid obligation triggers an upcoming reminder.
	WindowDays int
	// Concurrency bounds the user lookups in flight.
	Concurrency int
	Location    *time.Location
}

// ReminderService is the batch job emailing users about upcoming and overdue
// obligations. It applies the same cycle rules as the API.
type ReminderService struct {
	source  port.ObligationSource
	users   port.UserDirectory
	mailer  port.Mailer
	cfg     ReminderConfig
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewReminderService creates the reminder job.
func NewReminderService(
	source port.ObligationSource,
	users port.UserDirectory,
	mailer port.Mailer,
	cfg ReminderConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReminderService {
	if cfg.WindowDays < 0 {
		cfg.WindowDays = 3
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReminderService{
		source:  source,
		users:   users,
		mailer:  mailer,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

type reminderCandidate struct {
	owned domain.OwnedObligation
	kind  domain.ReminderKind
	days  int
}

// Run performs one pass: select obligations, resolve owners, send one batch.
// A failed user lookup skips that user's reminders. A failed send fails the
// run; the returned run still reports how many emails went out before it.
// Concurrent runs are not deduplicated.
func (s *ReminderService) Run(ctx context.Context) (*domain.ReminderRun, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Run")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("payment_reminders", time.Since(start))
	}()

	// --- Step 1: load subscriptions and scheduled debts concurrently ---
	var subs, debts []domain.OwnedObligation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subs, err = s.source.ListAllSubscriptions(gctx)
		if err != nil {
			return fmt.Errorf("listing subscriptions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		debts, err = s.source.ListAllScheduledDebts(gctx)
		if err != nil {
			return fmt.Errorf("listing debts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncrExternalError("obligations")
		return nil, err
	}

	// --- Step 2: select what needs a reminder ---
	today := s.now().In(s.cfg.Location)
	var candidates []reminderCandidate
	owners := map[string]struct{}{}
	for _, owned := range append(subs, debts...) {
		kind := cycle.ReminderKind(owned.Obligation, today, s.cfg.WindowDays)
		if kind == domain.ReminderNone {
			continue
		}
		candidates = append(candidates, reminderCandidate{
			owned: owned,
			kind:  kind,
			days:  cycle.DaysRemaining(owned.Obligation, today),
		})
		owners[owned.UserID] = struct{}{}
	}
	span.SetAttributes(attribute.Int("reminders.candidates", len(candidates)))

	if len(candidates) == 0 {
		return &domain.ReminderRun{Success: true, Message: "No upcoming payments found"}, nil
	}

	// --- Step 3: resolve each owner once ---
	contacts := s.lookupContacts(ctx, owners)

	// --- Step 4: render ---
	run := &domain.ReminderRun{Success: true}
	emails := make([]domain.Email, 0, len(candidates))
	for _, c := range candidates {
		contact, ok := contacts[c.owned.UserID]
		if !ok {
			run.Skipped++
			continue
		}
		email, err := renderReminder(s.cfg.From, domain.Reminder{
			UserID:        c.owned.UserID,
			Email:         contact.Email,
			Name:          c.owned.Obligation.Name,
			Amount:        c.owned.Obligation.Amount,
			DaysRemaining: c.days,
			Kind:          c.kind,
		}, c.owned.Source)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
		if c.kind == domain.ReminderOverdue {
			run.Overdue++
		} else {
			run.Upcoming++
		}
	}
	s.metrics.AddReminders("skipped", run.Skipped)

	if len(emails) == 0 {
		run.Message = "No reachable users"
		return run, nil
	}

	// --- Step 5: one batch, no retry ---
	sent, err := s.mailer.SendBatch(ctx, emails)
	run.Sent = sent
	if err != nil {
		s.metrics.IncrExternalError("mail")
		s.logger.Error("reminder batch failed",
			zap.Int("emails", len(emails)),
			zap.Int("sent", sent),
			zap.Error(err),
		)
		run.Success = false
		run.Message = fmt.Sprintf("Delivery failed after %d of %d emails", sent, len(emails))
		return run, fmt.Errorf("sending reminders: %w", err)
	}

	s.metrics.AddReminders("upcoming", run.Upcoming)
	s.metrics.AddReminders("overdue", run.Overdue)
	s.logger.Info("reminders sent",
		zap.Int("sent", run.Sent),
		zap.Int("upcoming", run.Upcoming),
		zap.Int("overdue", run.Overdue),
		zap.Int("skipped", run.Skipped),
	)
	return run, nil
}

// lookupContacts resolves owners with bounded concurrency. Users that fail to
// resolve or have no email are left out.
func (s *ReminderService) lookupContacts(ctx context.Context, owners map[string]struct{}) map[string]domain.UserContact {
	var mu sync.Mutex
	contacts := make(map[string]domain.UserContact, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for userID := range owners {
		g.Go(func() error {
			c, err := s.users.GetUserContact(gctx, userID)
			if err != nil || c == nil || c.Email == "" {
				s.logger.Warn("reminder: skipping user",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			contacts[userID] = *c
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return contacts
}
