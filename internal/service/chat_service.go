package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/resilience"
	"github.com/randal-web/administrador-de-finanzas/internal/ledger"
	"github.com/randal-web/administrador-de-finanzas/internal/port"
)

var chatTracer = otel.Tracer("service/chat")

// recentTransactionsInContext caps the transactions listed in the context prompt.
const recentTransactionsInContext = 15

// ChatService proxies conversations to a chat model, trying each configured
// model in order until one answers.
type ChatService struct {
	model    port.ChatModel
	models   []string
	ledger   *ledger.Repository
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewChatService creates the chat proxy. model may be nil when no API key is
// configured; every call then fails with ErrUnavailable.
func NewChatService(
	model port.ChatModel,
	models []string,
	repo *ledger.Repository,
	maxConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		model:    model,
		models:   models,
		ledger:   repo,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

// Chat answers the conversation in req on behalf of userID.
func (s *ChatService) Chat(ctx context.Context, userID string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.Chat")
	defer span.End()

	if s.model == nil || len(s.models) == 0 {
		return nil, &domain.ErrUnavailable{Component: "chat"}
	}

	turns, err := NormalizeTurns(req.Messages)
	if err != nil {
		return nil, err
	}

	if req.WithContext {
		l, err := s.ledger.Read(ctx, userID)
		if err != nil {
			return nil, err
		}
		last := len(turns) - 1
		if turns[last].Role == domain.ChatRoleUser {
			turns[last].Text = FinancialContext(l) + "\n\nPregunta del usuario: " + turns[last].Text
		}
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "chat"}
	}
	defer s.bulkhead.Release()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("chat", time.Since(start))
	}()

	var errs []error
	for i, model := range s.models {
		text, err := s.model.Generate(ctx, model, turns)
		if err == nil && strings.TrimSpace(text) != "" {
			outcome := "primary"
			if i > 0 {
				outcome = "fallback"
			}
			s.metrics.IncrChat(outcome)
			span.SetAttributes(attribute.String("chat.model", model))
			return &domain.ChatResponse{Text: text, Model: model}, nil
		}
		if err == nil {
			err = errors.New("empty response")
		}
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
		s.logger.Warn("chat model failed, trying next",
			zap.String("model", model),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	s.metrics.IncrChat("error")
	s.metrics.IncrExternalError("gemini")
	return nil, &domain.ErrExternalService{Service: "gemini", Err: errors.Join(errs...)}
}

// NormalizeTurns maps client messages to model turns: "assistant" and "model"
// become the model role and everything else the user role, consecutive turns
// of the same role are merged with a blank line, and leading model turns are
// dropped so the conversation opens with the user.
func NormalizeTurns(messages []domain.ChatMessage) ([]domain.ChatTurn, error) {
	if len(messages) == 0 {
		return nil, &domain.ErrValidation{Field: "messages", Message: "no messages provided"}
	}

	turns := make([]domain.ChatTurn, 0, len(messages))
	for _, m := range messages {
		role := domain.ChatRoleUser
		if m.Role == "assistant" || m.Role == string(domain.ChatRoleModel) {
			role = domain.ChatRoleModel
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Text += "\n\n" + m.Content
			continue
		}
		turns = append(turns, domain.ChatTurn{Role: role, Text: m.Content})
	}

	for len(turns) > 0 && turns[0].Role == domain.ChatRoleModel {
		turns = turns[1:]
	}
	if len(turns) == 0 {
		return nil, &domain.ErrValidation{Field: "messages", Message: "conversation must contain at least one user message"}
	}
	return turns, nil
}

// FinancialContext renders the ledger as an instruction block for the model.
func FinancialContext(l *domain.Ledger) string {
	sum := summarize(l)

	var b strings.Builder
	b.WriteString("Actúa como un experto asesor financiero personal amable y conciso.\n\n")
	b.WriteString("Aquí tienes el contexto financiero actual del usuario:\n\n")

	b.WriteString("**Resumen General:**\n")
	fmt.Fprintf(&b, "- Balance Actual: $%s\n", sum.Balance.StringFixed(2))
	fmt.Fprintf(&b, "- Ingresos: $%s\n", sum.Income.StringFixed(2))
	fmt.Fprintf(&b, "- Gastos: $%s\n", sum.Expenses.StringFixed(2))
	fmt.Fprintf(&b, "- Ahorros: $%s\n\n", sum.Savings.StringFixed(2))

	b.WriteString("**Deudas Activas:**\n")
	if len(l.Debts) == 0 {
		b.WriteString("No hay deudas registradas.\n")
	}
	for _, d := range l.Debts {
		fmt.Fprintf(&b, "- %s: Deuda original $%s, Pendiente $%s\n",
			d.Name, d.TotalAmount.StringFixed(2), d.RemainingAmount.StringFixed(2))
	}

	b.WriteString("\n**Metas de Ahorro:**\n")
	if len(l.Goals) == 0 {
		b.WriteString("No hay metas activas.\n")
	}
	for _, g := range l.Goals {
		fmt.Fprintf(&b, "- %s: Llevas $%s de $%s\n",
			g.Name, g.CurrentAmount.StringFixed(2), g.TargetAmount.StringFixed(2))
	}

	b.WriteString("\n**Transacciones Recientes:**\n")
	recent := make([]domain.Transaction, len(l.Transactions))
	copy(recent, l.Transactions)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
	if len(recent) > recentTransactionsInContext {
		recent = recent[:recentTransactionsInContext]
	}
	for _, tx := range recent {
		fmt.Fprintf(&b, "- %s: %s ($%s) [%s] - %s\n",
			tx.Date.Format(domain.DateLayout), tx.Description, tx.Amount.StringFixed(2), tx.Type, tx.Category)
	}

	b.WriteString("\n**Instrucciones:**\n")
	b.WriteString("1. Responde preguntas sobre estos datos o da consejos generales.\n")
	b.WriteString("2. Sé breve y directo. Usa formato Markdown para listas o negritas.\n")
	b.WriteString("3. Si detectas gastos altos en algo, sugiérelo amablemente.\n")
	b.WriteString("4. Si el usuario pregunta \"qué puedo hacer\", analiza su balance y deudas.\n")
	b.WriteString("5. Responde siempre en Español.")
	return b.String()
}
