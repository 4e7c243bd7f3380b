// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instrutores-na-direcao/internal/config"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	payAdapters "instrutores-na-direcao/internal/infra/adapters/payment"
	"instrutores-na-direcao/internal/infra/api"
	"instrutores-na-direcao/internal/infra/auth"
	pg "instrutores-na-direcao/internal/infra/db/postgres"
	"instrutores-na-direcao/internal/infra/logging"
	"instrutores-na-direcao/internal/infra/metrics"
	red "instrutores-na-direcao/internal/infra/redis"
	"instrutores-na-direcao/internal/infra/sched"
	"instrutores-na-direcao/internal/usecase"

	"instrutores-na-direcao/internal/domain/model"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed validation, noop payment provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	instructorRepo := pg.NewInstructorRepo(pool)
	billingRepo := pg.NewBillingRepo(pool)
	auditRepo := pg.NewAuditLogRepo(pool)

	// ---- Payment provider ----
	prices := model.NewPriceTable(cfg.Stripe.Prices.Essencial, cfg.Stripe.Prices.Destaque, cfg.Stripe.Prices.Elite)
	var provider adapter.PaymentProvider
	if cfg.Stripe.SecretKey == "" && cfg.Runtime.Dev {
		logger.Warn().Msg("stripe.secret_key not set; using noop payment provider")
		provider = payAdapters.NewNoopProvider()
	} else {
		provider, err = payAdapters.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
		if err != nil {
			log.Fatalf("stripe: %v", err)
		}
	}

	// ---- Auth ----
	verifier := auth.NewSupabaseVerifier(cfg.Auth.JWTSecret)

	// ---- Use cases ----
	entUC := usecase.NewEntitlementUseCase(instructorRepo, billingRepo, provider, prices, cfg.Billing.EmailSearchLimit, logger)
	checkoutUC := usecase.NewCheckoutUseCase(instructorRepo, billingRepo, provider, prices, logger)
	webhookUC := usecase.NewWebhookUseCase(instructorRepo, billingRepo, provider, prices, logger)
	adminUC := usecase.NewAdminUseCase(billingRepo, provider, auditRepo, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- HTTP server ----
	srv := api.NewServer(
		entUC, checkoutUC, webhookUC, adminUC,
		verifier, rateLimiter, auditRepo,
		cfg.Admin.APIKey, cfg.RateLimit.CheckoutPerMinute,
		logger,
	)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: srv.Routes(cfg.HTTP.RequestTimeout),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Billing resync worker ----
	worker := sched.NewBillingResyncWorker(cfg.Billing.ResyncInterval, billingRepo, provider, prices, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
