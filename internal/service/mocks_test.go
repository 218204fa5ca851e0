package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/cache"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/ledger"
)

// --- In-memory store ---

type memStore struct {
	mu         sync.Mutex
	txs        []domain.Transaction
	subs       []domain.RecurringObligation
	debts      []domain.Debt
	goals      []domain.Goal
	income     []domain.ExpectedIncome
	deletedTxs []string
	failOn     map[string]error
}

func newMemStore() *memStore {
	return &memStore{failOn: map[string]error{}}
}

func (m *memStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memStore) ListTransactions(_ context.Context, _ string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Transaction{}, m.txs...), m.fail("ListTransactions")
}

func (m *memStore) InsertTransaction(_ context.Context, _ string, tx domain.Transaction) error {
	if err := m.fail("InsertTransaction"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, tx)
	return nil
}

func (m *memStore) DeleteTransaction(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedTxs = append(m.deletedTxs, id)
	for i, tx := range m.txs {
		if tx.ID == id {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			break
		}
	}
	return m.fail("DeleteTransaction")
}

func (m *memStore) ListSubscriptions(_ context.Context, _ string) ([]domain.RecurringObligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RecurringObligation{}, m.subs...), nil
}

func (m *memStore) InsertSubscription(_ context.Context, _ string, o domain.RecurringObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, o)
	return nil
}

func (m *memStore) UpdateSubscription(_ context.Context, _ string, o domain.RecurringObligation) error {
	if err := m.fail("UpdateSubscription"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subs {
		if m.subs[i].ID == o.ID {
			m.subs[i] = o
		}
	}
	return nil
}

func (m *memStore) DeleteSubscription(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subs {
		if m.subs[i].ID == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) ListDebts(_ context.Context, _ string) ([]domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Debt{}, m.debts...), nil
}

func (m *memStore) InsertDebt(_ context.Context, _ string, d domain.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debts = append(m.debts, d)
	return nil
}

func (m *memStore) UpdateDebt(_ context.Context, _ string, d domain.Debt) error {
	if err := m.fail("UpdateDebt"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.debts {
		if m.debts[i].ID == d.ID {
			m.debts[i] = d
		}
	}
	return nil
}

func (m *memStore) DeleteDebt(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.debts {
		if m.debts[i].ID == id {
			m.debts = append(m.debts[:i], m.debts[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) ListGoals(_ context.Context, _ string) ([]domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Goal{}, m.goals...), nil
}

func (m *memStore) InsertGoal(_ context.Context, _ string, g domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals = append(m.goals, g)
	return nil
}

func (m *memStore) UpdateGoal(_ context.Context, _ string, g domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.goals {
		if m.goals[i].ID == g.ID {
			m.goals[i] = g
		}
	}
	return nil
}

func (m *memStore) DeleteGoal(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.goals {
		if m.goals[i].ID == id {
			m.goals = append(m.goals[:i], m.goals[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) ListExpectedIncome(_ context.Context, _ string) ([]domain.ExpectedIncome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExpectedIncome{}, m.income...), nil
}

func (m *memStore) InsertExpectedIncome(_ context.Context, _ string, inc domain.ExpectedIncome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.income = append(m.income, inc)
	return nil
}

func (m *memStore) DeleteExpectedIncome(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.income {
		if m.income[i].ID == id {
			m.income = append(m.income[:i], m.income[i+1:]...)
			break
		}
	}
	return nil
}

// --- Reminder mocks ---

type mockSource struct {
	subs  []domain.OwnedObligation
	debts []domain.OwnedObligation
	err   error
}

func (m *mockSource) ListAllSubscriptions(_ context.Context) ([]domain.OwnedObligation, error) {
	return m.subs, m.err
}

func (m *mockSource) ListAllScheduledDebts(_ context.Context) ([]domain.OwnedObligation, error) {
	return m.debts, nil
}

type mockDirectory struct {
	contacts map[string]string
	err      error
}

func (m *mockDirectory) GetUserContact(_ context.Context, userID string) (*domain.UserContact, error) {
	if m.err != nil {
		return nil, m.err
	}
	email, ok := m.contacts[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &domain.UserContact{ID: userID, Email: email}, nil
}

type mockMailer struct {
	mu    sync.Mutex
	sent  []domain.Email
	calls int
	err   error
	// accept is how many emails go out before err; zero means none.
	accept int
}

func (m *mockMailer) SendBatch(_ context.Context, emails []domain.Email) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		n := min(m.accept, len(emails))
		m.sent = append(m.sent, emails[:n]...)
		return n, m.err
	}
	m.sent = append(m.sent, emails...)
	return len(emails), nil
}

// --- Chat mock ---

type mockChatModel struct {
	// answers maps a model name to its reply; missing models fail.
	answers map[string]string
	calls   []string
	turns   []domain.ChatTurn
}

func (m *mockChatModel) Generate(_ context.Context, model string, turns []domain.ChatTurn) (string, error) {
	m.calls = append(m.calls, model)
	m.turns = turns
	text, ok := m.answers[model]
	if !ok {
		return "", errors.New("503 model overloaded")
	}
	return text, nil
}

// --- Helpers ---

const testUser = "user-1"

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 10, 0, 0, 0, time.UTC) }
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRepo(store *memStore) *ledger.Repository {
	return ledger.NewRepository(store, cache.New[*domain.Ledger](time.Minute), observability.NewMetrics(), zap.NewNop())
}

func newTestFinance(store *memStore, now func() time.Time) *FinanceService {
	svc := NewFinanceService(newTestRepo(store), time.UTC, observability.NewMetrics(), zap.NewNop())
	svc.now = now
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := date(year, month, day)
	return &t
}
