package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/service"
)

var tracer = otel.Tracer("handler")

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Services bundles what the router serves. Nil services answer 503.
type Services struct {
	Finance   *service.FinanceService
	Dashboard *service.DashboardService
	Reminders *service.ReminderService
	Chat      *service.ChatService
	Auth      TokenValidator

	CronSecret  string
	CORSOrigins []string
	Checks      []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: svcs.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/summary", metricsSummaryHandler(metrics))

		// =============================================
		// Batch jobs (scheduler secret)
		// POST /v1/jobs/payment-reminders
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(CronSecretMiddleware(svcs.CronSecret, logger))
			r.Post("/jobs/payment-reminders", paymentRemindersHandler(svcs.Reminders, logger))
		})

		// =============================================
		// Per-user ledger (Supabase session)
		// =============================================
		r.Route("/me", func(r chi.Router) {
			if svcs.Auth == nil || svcs.Finance == nil || svcs.Dashboard == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "ledger unavailable: data store not configured")
				}))
				return
			}
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(svcs.Finance, logger))
			r.Post("/transactions", addTransactionHandler(svcs.Finance, logger))
			r.Delete("/transactions/{id}", deleteTransactionHandler(svcs.Finance, logger))

			// Subscriptions
			r.Get("/subscriptions", listSubscriptionsHandler(svcs.Finance, logger))
			r.Post("/subscriptions", addSubscriptionHandler(svcs.Finance, logger))
			r.Delete("/subscriptions/{id}", deleteSubscriptionHandler(svcs.Finance, logger))
			r.Post("/subscriptions/{id}/pay", paySubscriptionHandler(svcs.Finance, logger))

			// Debts
			r.Get("/debts", listDebtsHandler(svcs.Finance, logger))
			r.Post("/debts", addDebtHandler(svcs.Finance, logger))
			r.Delete("/debts/{id}", deleteDebtHandler(svcs.Finance, logger))
			r.Post("/debts/{id}/pay", payDebtHandler(svcs.Finance, logger))
			r.Post("/debts/{id}/schedule", scheduleDebtHandler(svcs.Finance, logger))

			// Goals
			r.Get("/goals", listGoalsHandler(svcs.Finance, logger))
			r.Post("/goals", addGoalHandler(svcs.Finance, logger))
			r.Delete("/goals/{id}", deleteGoalHandler(svcs.Finance, logger))
			r.Post("/goals/{id}/contribute", contributeHandler(svcs.Finance, logger))

			// Expected income
			r.Get("/income", listIncomeHandler(svcs.Finance, logger))
			r.Post("/income", addIncomeHandler(svcs.Finance, logger))
			r.Delete("/income/{id}", deleteIncomeHandler(svcs.Finance, logger))

			// Dashboard
			r.Get("/summary", summaryHandler(svcs.Dashboard, logger))
			r.Get("/projection", projectionHandler(svcs.Dashboard, logger))
			r.Get("/notifications", notificationsHandler(svcs.Dashboard, logger))

			// Assistant
			r.Post("/chat", chatHandler(svcs.Chat, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "finanzas-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}
		for _, c := range checks {
			start := time.Now()
			err := c.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: c.Name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
