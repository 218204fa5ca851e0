// Package gemini adapts the Google Gen AI SDK to the chat port.
package gemini

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

var tracer = otel.Tracer("gemini")

// Temperature of every chat completion.
const Temperature float32 = 0.7

// Client generates chat answers with the Gemini API.
type Client struct {
	genai *genai.Client
}

// NewClient creates a Gemini API client. baseURL overrides the API host and
// is empty in production.
func NewClient(ctx context.Context, httpClient *http.Client, apiKey, baseURL string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{genai: c}, nil
}

// Generate sends the conversation to model and returns the answer text.
func (c *Client) Generate(ctx context.Context, model string, turns []domain.ChatTurn) (string, error) {
	ctx, span := tracer.Start(ctx, "Gemini.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", model), attribute.Int("turns", len(turns)))

	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == domain.ChatRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(Temperature),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
