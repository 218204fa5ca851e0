package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/resilience"
)

// ============================================================
// Cross-user reads for the reminder job
// (implements port.ObligationSource and port.UserDirectory)
// ============================================================

// ListAllSubscriptions returns every user's subscriptions. Rows that fail to
// map are logged and skipped so one bad record does not stop a run.
func (c *Client) ListAllSubscriptions(ctx context.Context) ([]domain.OwnedObligation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAllSubscriptions")
	defer span.End()

	var rows []subscriptionRow
	if err := c.listAll(ctx, tableSubscriptions+"?select=*", &rows); err != nil {
		return nil, err
	}

	out := make([]domain.OwnedObligation, 0, len(rows))
	for _, r := range rows {
		o, err := r.toDomain()
		if err != nil {
			c.logger.Warn("supabase: skipping subscription", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, domain.OwnedObligation{UserID: r.UserID, Obligation: o, Source: "subscription"})
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

// ListAllScheduledDebts returns every debt with a payment date.
func (c *Client) ListAllScheduledDebts(ctx context.Context) ([]domain.OwnedObligation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAllScheduledDebts")
	defer span.End()

	var rows []debtRow
	if err := c.listAll(ctx, tableDebts+"?select=*&payment_date=not.is.null", &rows); err != nil {
		return nil, err
	}

	out := make([]domain.OwnedObligation, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDomain()
		if err != nil {
			c.logger.Warn("supabase: skipping debt", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		if !d.Scheduled() {
			continue
		}
		out = append(out, domain.OwnedObligation{UserID: r.UserID, Obligation: d.RecurringObligation, Source: "debt"})
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (c *Client) listAll(ctx context.Context, path string, dst any) error {
	return c.call(ctx, "list_all", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return nil
		}
		return json.Unmarshal(body, dst)
	})
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// GetUserContact reads a user from the Auth admin API.
func (c *Client) GetUserContact(ctx context.Context, userID string) (*domain.UserContact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserContact")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var user authUser
	err := c.call(ctx, "auth", func() error {
		body, err := c.doAuthGet(ctx, "admin/users/"+url.PathEscape(userID))
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "user", ID: userID})
			}
			return err
		}
		if err := json.Unmarshal(body, &user); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.UserContact{ID: user.ID, Email: user.Email}, nil
}
