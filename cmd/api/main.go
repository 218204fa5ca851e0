package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/config"
	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/handler"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/cache"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/gemini"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/mail"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/observability"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/postgres"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/resilience"
	"github.com/randal-web/administrador-de-finanzas/internal/infra/supabase"
	"github.com/randal-web/administrador-de-finanzas/internal/ledger"
	"github.com/randal-web/administrador-de-finanzas/internal/port"
	"github.com/randal-web/administrador-de-finanzas/internal/service"
)

// store is what a data backend provides.
type store interface {
	port.FinanceStore
	port.ObligationSource
	port.UserDirectory
	Ping(ctx context.Context) error
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()
	loc := cfg.Location()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", loc.String()),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Bool("use_redis", cfg.RedisAddr != ""),
		zap.String("mail_provider", cfg.MailProvider),
		zap.Strings("gemini_models", cfg.GeminiModels),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "administrador-de-finanzas")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	var checks []handler.HealthCheck

	// --- Data backend ---
	var backend store
	switch {
	case cfg.DatabaseURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.MaxConcurrency)
		if err != nil {
			cancel()
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		pg := postgres.NewStore(db, logger)
		if err := pg.Migrate(ctx); err != nil {
			cancel()
			logger.Fatal("failed to migrate postgres", zap.Error(err))
		}
		cancel()
		defer db.Close()
		backend = pg
		checks = append(checks, handler.HealthCheck{Name: "postgres", Ping: pg.Ping})
		logger.Info("using Postgres as data backend")
	case cfg.SupabaseURL != "":
		backend = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
		checks = append(checks, handler.HealthCheck{Name: "supabase", Ping: backend.Ping})
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
	default:
		logger.Warn("no data backend configured, ledger routes unavailable")
	}

	// --- Ledger cache ---
	var ledgerCache port.Cache[*domain.Ledger]
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		redisCache := cache.NewRedis[*domain.Ledger](rdb, "ledger:", cfg.CacheTTL, logger)
		ledgerCache = redisCache
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: redisCache.Ping})
	} else {
		memCache := cache.New[*domain.Ledger](cfg.CacheTTL)
		defer memCache.Close()
		ledgerCache = memCache
	}

	// --- Mailer ---
	var mailer port.Mailer
	if cfg.MailProvider == "smtp" {
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, logger)
	} else {
		mailer = mail.NewResendClient(httpClient, cfg.ResendURL, cfg.ResendAPIKey, resilience.NewCircuitBreaker("resend"), logger)
	}

	// --- Chat model ---
	var chatModel port.ChatModel
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewClient(context.Background(), &http.Client{Timeout: 60 * time.Second}, cfg.GeminiAPIKey, "")
		if err != nil {
			logger.Fatal("failed to create gemini client", zap.Error(err))
		}
		chatModel = g
	} else {
		logger.Warn("chat: GEMINI_API_KEY not set, /v1/me/chat unavailable")
	}

	// --- Services ---
	svcs := handler.Services{
		Auth:        service.NewAuthService(cfg.SupabaseJWTSecret),
		CronSecret:  cfg.CronSecret,
		CORSOrigins: cfg.CORSOrigins,
		Checks:      checks,
	}
	var reminders *service.ReminderService
	if backend != nil {
		repo := ledger.NewRepository(backend, ledgerCache, metrics, logger)
		svcs.Finance = service.NewFinanceService(repo, loc, metrics, logger)
		svcs.Dashboard = service.NewDashboardService(repo, loc, metrics, logger)
		svcs.Chat = service.NewChatService(chatModel, cfg.GeminiModels, repo, cfg.MaxConcurrency, metrics, logger)

		reminders = service.NewReminderService(backend, backend, mailer, service.ReminderConfig{
			From:        cfg.MailFrom,
			WindowDays:  cfg.ReminderWindowDays,
			Concurrency: cfg.MaxConcurrency,
			Location:    loc,
		}, metrics, logger)
		svcs.Reminders = reminders
	}

	// --- Reminder schedule ---
	if cfg.ReminderCron != "" && reminders != nil {
		scheduler := cron.New(cron.WithLocation(loc))
		_, err := scheduler.AddFunc(cfg.ReminderCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if run, err := reminders.Run(ctx); err != nil {
				fields := []zap.Field{zap.Error(err)}
				if run != nil {
					fields = append(fields, zap.Int("sent", run.Sent))
				}
				logger.Error("scheduled reminder run failed", fields...)
			}
		})
		if err != nil {
			logger.Fatal("invalid REMINDER_CRON", zap.String("schedule", cfg.ReminderCron), zap.Error(err))
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		logger.Info("reminder schedule enabled", zap.String("schedule", cfg.ReminderCron))
	}

	// --- Router ---
	router := handler.NewRouter(svcs, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
