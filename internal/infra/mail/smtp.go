package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender sends each email as its own SMTP transaction.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *zap.Logger
	send   func(e *email.Email) error
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	s := &SMTPSender{cfg: cfg, logger: logger}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	s.send = func(e *email.Email) error { return e.Send(addr, auth) }
	return s
}

// SendBatch sends the emails one by one and stops at the first failure.
func (s *SMTPSender) SendBatch(ctx context.Context, emails []domain.Email) (int, error) {
	ctx, span := tracer.Start(ctx, "SMTPSender.SendBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("emails", len(emails)))

	if s.cfg.Host == "" {
		return 0, &domain.ErrUnavailable{Component: "smtp"}
	}

	for i, msg := range emails {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := s.send(toEmail(msg)); err != nil {
			s.logger.Error("mail: smtp send failed",
				zap.Strings("to", msg.To),
				zap.Int("sent", i),
				zap.Error(err),
			)
			return i, &domain.ErrExternalService{Service: "smtp", Err: fmt.Errorf("failed to send email: %w", err)}
		}
		s.logger.Debug("mail: email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	}
	return len(emails), nil
}

func toEmail(msg domain.Email) *email.Email {
	e := email.NewEmail()
	e.From = msg.From
	e.To = msg.To
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	for k, v := range msg.Headers {
		e.Headers.Set(k, v)
	}
	return e
}
