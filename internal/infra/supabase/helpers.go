package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/infra/resilience"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE
// ============================================================

func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	return c.send(ctx, http.MethodPost, url, data, "return=minimal")
}

func (c *Client) doPatch(ctx context.Context, path string, data any) error {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	_, err := c.send(ctx, http.MethodPatch, url, data, "return=minimal")
	return err
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	_, err := c.send(ctx, http.MethodDelete, url, nil, "")
	return err
}

// doAuthGet calls the GoTrue admin API.
func (c *Client) doAuthGet(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)
	return c.send(ctx, http.MethodGet, url, nil, "")
}

// send performs one request. Non-2xx responses become errors; 4xx ones are
// marked permanent so they are neither retried nor counted by the breaker.
func (c *Client) send(ctx context.Context, method, url string, data any, prefer string) ([]byte, error) {
	var reader io.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, statusError(method, resp.StatusCode, body)
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

// HTTPError is a non-2xx answer from Supabase.
type HTTPError struct {
	Method string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("supabase %s returned %d: %s", e.Method, e.Status, e.Body)
}

func statusError(method string, status int, body []byte) error {
	err := &HTTPError{Method: method, Status: status, Body: string(body)}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return resilience.Permanent(err)
	}
	return err
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
