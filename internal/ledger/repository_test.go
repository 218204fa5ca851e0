package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/cache"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/ledger"
	"github.com/randal-web/administrador-de-finanzas/internal/port"
)

// --- Mock store ---

type mockStore struct {
	txs       []domain.Transaction
	listCalls atomic.Int32
	listErr   error
	writeErr  error

	mu      sync.Mutex
	written []domain.Transaction
}

func (m *mockStore) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	m.listCalls.Add(1)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.txs, nil
}

func (m *mockStore) InsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, tx)
	return nil
}

func (m *mockStore) DeleteTransaction(ctx context.Context, userID, id string) error { return nil }
func (m *mockStore) ListSubscriptions(ctx context.Context, userID string) ([]domain.RecurringObligation, error) {
	return nil, nil
}
func (m *mockStore) InsertSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error {
	return nil
}
func (m *mockStore) UpdateSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error {
	return nil
}
func (m *mockStore) DeleteSubscription(ctx context.Context, userID, id string) error { return nil }
func (m *mockStore) ListDebts(ctx context.Context, userID string) ([]domain.Debt, error) {
	return nil, nil
}
func (m *mockStore) InsertDebt(ctx context.Context, userID string, d domain.Debt) error { return nil }
func (m *mockStore) UpdateDebt(ctx context.Context, userID string, d domain.Debt) error { return nil }
func (m *mockStore) DeleteDebt(ctx context.Context, userID, id string) error            { return nil }
func (m *mockStore) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	return nil, nil
}
func (m *mockStore) InsertGoal(ctx context.Context, userID string, g domain.Goal) error { return nil }
func (m *mockStore) UpdateGoal(ctx context.Context, userID string, g domain.Goal) error { return nil }
func (m *mockStore) DeleteGoal(ctx context.Context, userID, id string) error            { return nil }
func (m *mockStore) ListExpectedIncome(ctx context.Context, userID string) ([]domain.ExpectedIncome, error) {
	return nil, nil
}
func (m *mockStore) InsertExpectedIncome(ctx context.Context, userID string, inc domain.ExpectedIncome) error {
	return nil
}
func (m *mockStore) DeleteExpectedIncome(ctx context.Context, userID, id string) error { return nil }

// --- Helpers ---

func newRepo(store *mockStore) *ledger.Repository {
	return ledger.NewRepository(store, cache.New[*domain.Ledger](time.Minute), observability.NewMetrics(), zap.NewNop())
}

func addTx(id string) ledger.Mutation {
	tx := domain.Transaction{ID: id, Type: domain.TransactionExpense, Amount: decimal.NewFromInt(10)}
	return ledger.Mutation{
		Name: "add_transaction",
		Apply: func(l *domain.Ledger) error {
			l.Transactions = append(l.Transactions, tx)
			return nil
		},
		Commit: func(ctx context.Context, s port.FinanceStore) error {
			return s.InsertTransaction(ctx, "user-1", tx)
		},
	}
}

// --- Tests ---

func TestRead_CachesSnapshot(t *testing.T) {
	store := &mockStore{txs: []domain.Transaction{{ID: "tx-1"}}}
	repo := newRepo(store)

	for i := 0; i < 3; i++ {
		l, err := repo.Read(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(l.Transactions) != 1 {
			t.Fatalf("expected 1 transaction, got %d", len(l.Transactions))
		}
	}
	if n := store.listCalls.Load(); n != 1 {
		t.Errorf("expected a single load, got %d", n)
	}

	repo.Invalidate("user-1")
	if _, err := repo.Read(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}
	if n := store.listCalls.Load(); n != 2 {
		t.Errorf("expected a reload after invalidate, got %d loads", n)
	}
}

func TestRead_LoadError(t *testing.T) {
	store := &mockStore{listErr: errors.New("boom")}
	repo := newRepo(store)

	if _, err := repo.Read(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrite_PublishesNewSnapshot(t *testing.T) {
	store := &mockStore{}
	repo := newRepo(store)

	before, _ := repo.Read(context.Background(), "user-1")
	after, err := repo.Write(context.Background(), "user-1", addTx("tx-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(after.Transactions) != 1 {
		t.Errorf("expected 1 transaction after write, got %d", len(after.Transactions))
	}
	if len(before.Transactions) != 0 {
		t.Error("expected the previous snapshot to stay untouched")
	}
	current, _ := repo.Read(context.Background(), "user-1")
	if len(current.Transactions) != 1 {
		t.Errorf("expected the cached snapshot to be the new one")
	}
	if len(store.written) != 1 {
		t.Errorf("expected a remote insert, got %d", len(store.written))
	}
}

func TestWrite_RollsBackOnCommitFailure(t *testing.T) {
	store := &mockStore{txs: []domain.Transaction{{ID: "existing"}}, writeErr: errors.New("supabase down")}
	repo := newRepo(store)

	_, err := repo.Write(context.Background(), "user-1", addTx("tx-1"))
	if err == nil {
		t.Fatal("expected commit error")
	}

	l, _ := repo.Read(context.Background(), "user-1")
	if len(l.Transactions) != 1 || l.Transactions[0].ID != "existing" {
		t.Errorf("expected the pre-mutation snapshot, got %+v", l.Transactions)
	}
	if got := store.listCalls.Load(); got != 2 {
		t.Errorf("expected the rollback to force a reload, got %d loads", got)
	}
}

func TestWrite_ApplyErrorPublishesNothing(t *testing.T) {
	store := &mockStore{}
	repo := newRepo(store)
	committed := false

	_, err := repo.Write(context.Background(), "user-1", ledger.Mutation{
		Name: "invalid",
		Apply: func(l *domain.Ledger) error {
			l.Transactions = append(l.Transactions, domain.Transaction{ID: "ghost"})
			return &domain.ErrNotFound{Resource: "debt", ID: "x"}
		},
		Commit: func(ctx context.Context, s port.FinanceStore) error {
			committed = true
			return nil
		},
	})

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if committed {
		t.Error("expected no remote write")
	}
	l, _ := repo.Read(context.Background(), "user-1")
	if len(l.Transactions) != 0 {
		t.Error("expected the aborted change to stay private")
	}
}

func TestWrite_SerializesPerUser(t *testing.T) {
	store := &mockStore{}
	repo := newRepo(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.Write(context.Background(), "user-1", addTx(fmt.Sprintf("tx-%d", i))); err != nil {
				t.Errorf("write %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	l, _ := repo.Read(context.Background(), "user-1")
	if len(l.Transactions) != 50 {
		t.Errorf("expected 50 transactions, got %d", len(l.Transactions))
	}
}
