// Package mail delivers reminder emails through the Resend HTTP API or a
// plain SMTP relay.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

var tracer = otel.Tracer("mail")

// maxBatch is the largest batch the Resend API accepts in one request.
const maxBatch = 100

// ResendClient sends emails with the Resend batch endpoint.
// Sends are never retried: a partial failure must not duplicate reminders.
type ResendClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewResendClient creates a new ResendClient.
func NewResendClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *ResendClient {
	return &ResendClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		logger:     logger,
	}
}

// SendBatch posts the emails in chunks of at most maxBatch and returns how
// many were accepted before the first failed chunk.
func (c *ResendClient) SendBatch(ctx context.Context, emails []domain.Email) (int, error) {
	ctx, span := tracer.Start(ctx, "ResendClient.SendBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("emails", len(emails)))

	if c.apiKey == "" {
		return 0, &domain.ErrUnavailable{Component: "resend"}
	}

	for start := 0; start < len(emails); start += maxBatch {
		end := min(start+maxBatch, len(emails))
		if err := c.post(ctx, emails[start:end]); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Int("emails.accepted", start))
			return start, err
		}
	}
	return len(emails), nil
}

type batchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *ResendClient) post(ctx context.Context, chunk []domain.Email) error {
	_, err := c.cb.Execute(func() (any, error) {
		body, err := json.Marshal(chunk)
		if err != nil {
			return nil, err
		}

		url := fmt.Sprintf("%s/emails/batch", c.baseURL)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("resend API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		}

		var out batchResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode resend response: %w", err)
		}
		c.logger.Info("mail: batch accepted",
			zap.Int("emails", len(chunk)),
			zap.Int("ids", len(out.Data)),
		)
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "resend"}
		}
		return &domain.ErrExternalService{Service: "resend", Err: err}
	}
	return nil
}
