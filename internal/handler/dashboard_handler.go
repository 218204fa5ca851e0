package handler

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/service"
)

func summaryHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/summary")
		defer span.End()

		summary, err := svc.Summary(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func projectionHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/projection")
		defer span.End()

		month := r.URL.Query().Get("month")
		span.SetAttributes(attribute.String("month", month))

		projection, err := svc.Projection(ctx, UserIDFromContext(ctx), month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, projection)
	}
}

func notificationsHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/notifications")
		defer span.End()

		days, err := queryInt(r, "days", service.DefaultNotificationDays)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		views, err := svc.Notifications(ctx, UserIDFromContext(ctx), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// ============================================================
// Assistant: POST /v1/me/chat
// ============================================================

func chatHandler(svc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/chat")
		defer span.End()

		if svc == nil {
			handleServiceError(w, &domain.ErrUnavailable{Component: "chat"}, logger)
			return
		}

		var req domain.ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.Int("messages", len(req.Messages)))

		start := time.Now()
		resp, err := svc.Chat(ctx, UserIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Debug("chat answered",
			zap.String("model", resp.Model),
			zap.Duration("latency", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Jobs: POST /v1/jobs/payment-reminders
// ============================================================

func paymentRemindersHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/jobs/payment-reminders")
		defer span.End()

		if svc == nil {
			handleServiceError(w, &domain.ErrUnavailable{Component: "reminders"}, logger)
			return
		}

		run, err := svc.Run(ctx)
		if err != nil {
			if run != nil {
				span.SetAttributes(attribute.Int("sent", run.Sent))
			}
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("sent", run.Sent))
		writeJSON(w, http.StatusOK, run)
	}
}
