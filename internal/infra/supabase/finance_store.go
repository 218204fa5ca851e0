package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// ============================================================
// Ledger tables: CRUD via PostgREST (implements port.FinanceStore)
// ============================================================

const (
	tableTransactions   = "transactions"
	tableSubscriptions  = "subscriptions"
	tableDebts          = "debts"
	tableGoals          = "goals"
	tableExpectedIncome = "expected_income"
)

func userFilter(table, userID, order string) string {
	path := fmt.Sprintf("%s?user_id=eq.%s", table, url.QueryEscape(userID))
	if order != "" {
		path += "&order=" + order
	}
	return path
}

func rowFilter(table, userID, id string) string {
	return fmt.Sprintf("%s?user_id=eq.%s&id=eq.%s", table, url.QueryEscape(userID), url.QueryEscape(id))
}

// listRows fetches and decodes every row of table owned by userID.
func listRows[R any](ctx context.Context, c *Client, table, userID, order string) ([]R, error) {
	ctx, span := tracer.Start(ctx, "Supabase.List")
	defer span.End()
	span.SetAttributes(attribute.String("supabase.table", table))

	var rows []R
	err := c.call(ctx, table, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, userFilter(table, userID, order))
		if err != nil {
			return err
		}
		rows = nil
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode %s: %w", table, err)
		}
		return nil
	})
	return rows, err
}

func (c *Client) insert(ctx context.Context, table string, row any) error {
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("supabase.table", table))

	return c.call(ctx, table, func() error {
		_, err := c.doPost(ctx, table, row)
		return err
	})
}

func (c *Client) update(ctx context.Context, table, userID, id string, row any) error {
	ctx, span := tracer.Start(ctx, "Supabase.Update")
	defer span.End()
	span.SetAttributes(attribute.String("supabase.table", table))

	return c.call(ctx, table, func() error {
		return c.doPatch(ctx, rowFilter(table, userID, id), row)
	})
}

func (c *Client) remove(ctx context.Context, table, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("supabase.table", table))

	return c.call(ctx, table, func() error {
		return c.doDelete(ctx, rowFilter(table, userID, id))
	})
}

// --- Transactions ---

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := listRows[transactionRow](ctx, c, tableTransactions, userID, "date.desc")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *Client) InsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	return c.insert(ctx, tableTransactions, newTransactionRow(userID, tx))
}

func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	return c.remove(ctx, tableTransactions, userID, id)
}

// --- Subscriptions ---

// ListSubscriptions returns the user's subscriptions. Rows that fail to map
// are logged and skipped so one bad record does not hide the rest.
func (c *Client) ListSubscriptions(ctx context.Context, userID string) ([]domain.RecurringObligation, error) {
	rows, err := listRows[subscriptionRow](ctx, c, tableSubscriptions, userID, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecurringObligation, 0, len(rows))
	for _, r := range rows {
		o, err := r.toDomain()
		if err != nil {
			c.logger.Warn("supabase: skipping subscription", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (c *Client) InsertSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error {
	return c.insert(ctx, tableSubscriptions, newSubscriptionRow(userID, o))
}

func (c *Client) UpdateSubscription(ctx context.Context, userID string, o domain.RecurringObligation) error {
	return c.update(ctx, tableSubscriptions, userID, o.ID, newSubscriptionRow(userID, o))
}

func (c *Client) DeleteSubscription(ctx context.Context, userID, id string) error {
	return c.remove(ctx, tableSubscriptions, userID, id)
}

// --- Debts ---

// ListDebts returns the user's debts, skipping rows that fail to map.
func (c *Client) ListDebts(ctx context.Context, userID string) ([]domain.Debt, error) {
	rows, err := listRows[debtRow](ctx, c, tableDebts, userID, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Debt, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDomain()
		if err != nil {
			c.logger.Warn("supabase: skipping debt", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Client) InsertDebt(ctx context.Context, userID string, d domain.Debt) error {
	return c.insert(ctx, tableDebts, newDebtRow(userID, d))
}

func (c *Client) UpdateDebt(ctx context.Context, userID string, d domain.Debt) error {
	return c.update(ctx, tableDebts, userID, d.ID, newDebtRow(userID, d))
}

func (c *Client) DeleteDebt(ctx context.Context, userID, id string) error {
	return c.remove(ctx, tableDebts, userID, id)
}

// --- Goals ---

func (c *Client) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := listRows[goalRow](ctx, c, tableGoals, userID, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Goal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) InsertGoal(ctx context.Context, userID string, g domain.Goal) error {
	return c.insert(ctx, tableGoals, newGoalRow(userID, g))
}

func (c *Client) UpdateGoal(ctx context.Context, userID string, g domain.Goal) error {
	return c.update(ctx, tableGoals, userID, g.ID, newGoalRow(userID, g))
}

func (c *Client) DeleteGoal(ctx context.Context, userID, id string) error {
	return c.remove(ctx, tableGoals, userID, id)
}

// --- Expected income ---

func (c *Client) ListExpectedIncome(ctx context.Context, userID string) ([]domain.ExpectedIncome, error) {
	rows, err := listRows[incomeRow](ctx, c, tableExpectedIncome, userID, "date.asc")
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExpectedIncome, 0, len(rows))
	for _, r := range rows {
		inc, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, nil
}

func (c *Client) InsertExpectedIncome(ctx context.Context, userID string, inc domain.ExpectedIncome) error {
	return c.insert(ctx, tableExpectedIncome, newIncomeRow(userID, inc))
}

func (c *Client) DeleteExpectedIncome(ctx context.Context, userID, id string) error {
	return c.remove(ctx, tableExpectedIncome, userID, id)
}
