// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// FinanceStore defines the per-user data operations of the ledger.
// Implemented by the Supabase adapter and the Postgres adapter.
type FinanceStore interface {
	// Transactions
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	InsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error

	// Subscriptions
	ListSubscriptions(ctx context.Context, userID string) ([]domain.RecurringObligation, error)
	InsertSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error
	UpdateSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error
	DeleteSubscription(ctx context.Context, userID, id string) error

	// Debts
	ListDebts(ctx context.Context, userID string) ([]domain.Debt, error)
	InsertDebt(ctx context.Context, userID string, d domain.Debt) error
	UpdateDebt(ctx context.Context, userID string, d domain.Debt) error
	DeleteDebt(ctx context.Context, userID, id string) error

	// Goals
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	InsertGoal(ctx context.Context, userID string, g domain.Goal) error
	UpdateGoal(ctx context.Context, userID string, g domain.Goal) error
	DeleteGoal(ctx context.Context, userID, id string) error

	// Expected income
	ListExpectedIncome(ctx context.Context, userID string) ([]domain.ExpectedIncome, error)
	InsertExpectedIncome(ctx context.Context, userID string, inc domain.ExpectedIncome) error
	DeleteExpectedIncome(ctx context.Context, userID, id string) error
}

// ObligationSource reads obligations across all users. Used by batch jobs
// with service-role access.
type ObligationSource interface {
	ListAllSubscriptions(ctx context.Context) ([]domain.OwnedObligation, error)
	ListAllScheduledDebts(ctx context.Context) ([]domain.OwnedObligation, error)
}

// UserDirectory resolves users to their contact data.
type UserDirectory interface {
	GetUserContact(ctx context.Context, userID string) (*domain.UserContact, error)
}

// Mailer delivers transactional emails. SendBatch returns how many emails
// were accepted, also when it fails part way.
type Mailer interface {
	SendBatch(ctx context.Context, emails []domain.Email) (int, error)
}

// ChatModel generates the next model turn of a conversation.
type ChatModel interface {
	Generate(ctx context.Context, model string, turns []domain.ChatTurn) (string, error)
}
