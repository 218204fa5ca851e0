// Package supabase provides a client for Supabase (PostgREST + Auth).
// It is the hosted data backend of the ledger and the user directory of the
// reminder job.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase PostgREST and Auth admin APIs.
// Requests are authorized with the service role key, so every query filters
// by user_id explicitly.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if apiKey == "" {
		apiKey = serviceRoleKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// call runs fn behind the circuit breaker with retries. 4xx responses are
// not retried. Failures come back as ErrCircuitOpen or ErrExternalService.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}
	return &domain.ErrExternalService{Service: "supabase/" + op, Err: err}
}

// doRequest executes an authenticated GET against PostgREST.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	return c.send(ctx, method, url, nil, "")
}

// Ping checks that PostgREST answers with the configured keys.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.send(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil, "")
	return err
}
