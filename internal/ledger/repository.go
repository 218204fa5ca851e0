// Package ledger keeps a cached snapshot of each user's records and applies
// mutations optimistically: the new snapshot is published before the remote
// write and dropped if that write fails, so the next read reloads the stored
// state.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/port"
)

var tracer = otel.Tracer("ledger")

// Mutation is one change to a user's ledger.
type Mutation struct {
	// Name identifies the mutation in logs and spans.
	Name string
	// Apply changes the snapshot in place. It runs on a private clone; an
	// error aborts the write before anything is published.
	Apply func(l *domain.Ledger) error
	// Commit performs the remote write.
	Commit func(ctx context.Context, store port.FinanceStore) error
}

// Repository is the read/write entry point to ledgers.
// Snapshots returned by Read and Write are shared and must not be modified.
type Repository struct {
	store   port.FinanceStore
	cache   port.Cache[*domain.Ledger]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	locks sync.Map // userID -> *sync.Mutex
}

// NewRepository creates a repository over store, caching snapshots in c.
func NewRepository(store port.FinanceStore, c port.Cache[*domain.Ledger], metrics *observability.Metrics, logger *zap.Logger) *Repository {
	return &Repository{
		store:   store,
		cache:   c,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Read returns the user's snapshot, loading it from the store on a cache miss.
func (r *Repository) Read(ctx context.Context, userID string) (*domain.Ledger, error) {
	if l, ok := r.cache.Get(userID); ok && l != nil {
		r.metrics.IncrCacheHit("ledger")
		return l, nil
	}
	r.metrics.IncrCacheMiss("ledger")

	l, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(userID, l)
	return l, nil
}

// Write applies m to the user's snapshot. Writes of the same user are
// serialized within this process. On a failed commit the cached snapshot is
// evicted so the next Read reloads it, and the commit error is returned.
func (r *Repository) Write(ctx context.Context, userID string, m Mutation) (*domain.Ledger, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Write")
	defer span.End()
	span.SetAttributes(attribute.String("ledger.mutation", m.Name))

	mu := r.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	prev, err := r.Read(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := prev.Clone()
	if err := m.Apply(next); err != nil {
		return nil, err
	}
	r.cache.Set(userID, next)

	if err := m.Commit(ctx, r.store); err != nil {
		r.cache.Delete(userID)
		r.metrics.IncrLedgerRollback()
		r.logger.Warn("ledger write rolled back",
			zap.String("user_id", userID),
			zap.String("mutation", m.Name),
			zap.Error(err),
		)
		span.RecordError(err)
		return nil, err
	}
	return next, nil
}

// Invalidate drops the cached snapshot so the next Read reloads it.
func (r *Repository) Invalidate(userID string) {
	r.cache.Delete(userID)
}

func (r *Repository) lockFor(userID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load fetches every table of the user concurrently.
func (r *Repository) load(ctx context.Context, userID string) (*domain.Ledger, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Load")
	defer span.End()

	l := &domain.Ledger{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := r.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		l.Transactions = txs
		return nil
	})
	g.Go(func() error {
		subs, err := r.store.ListSubscriptions(gctx, userID)
		if err != nil {
			return fmt.Errorf("loading subscriptions: %w", err)
		}
		l.Subscriptions = subs
		return nil
	})
	g.Go(func() error {
		debts, err := r.store.ListDebts(gctx, userID)
		if err != nil {
			return fmt.Errorf("loading debts: %w", err)
		}
		l.Debts = debts
		return nil
	})
	g.Go(func() error {
		goals, err := r.store.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("loading goals: %w", err)
		}
		l.Goals = goals
		return nil
	})
	g.Go(func() error {
		income, err := r.store.ListExpectedIncome(gctx, userID)
		if err != nil {
			return fmt.Errorf("loading expected income: %w", err)
		}
		l.ExpectedIncome = income
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	l.LoadedAt = r.now()
	return l, nil
}
