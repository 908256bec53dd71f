package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/sales-flow-bfa-go/internal/config"
	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/handler"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/cache"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/crmapi"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/sales-flow-bfa-go/internal/port"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("remote_crm", cfg.CRMAPIURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("payment_settle_delay", cfg.PaymentSettleDelay),
		zap.String("timezone", cfg.Location.String()),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "sales-flow-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Clock ---
	clock := func() time.Time { return time.Now().In(cfg.Location) }

	// --- Stores ---
	// Payments and keymen always live in memory; the pipeline comes from the
	// CRM API when one is configured.
	local := memstore.New()
	var pipelineStore port.PipelineStore
	var probes []handler.HealthProbe

	if cfg.CRMAPIURL != "" {
		logger.Info("using CRM API as pipeline backend", zap.String("crm_api_url", cfg.CRMAPIURL))
		crm := crmapi.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.CRMAPIURL,
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			metrics,
			logger,
		)
		pipelineStore = crm
		probes = append(probes, handler.HealthProbe{Name: "crm-api", Pinger: crm})
	} else {
		if cfg.PipelineSeedFile != "" {
			err = local.LoadSeed(cfg.PipelineSeedFile)
		} else {
			err = local.LoadSeedYAML(memstore.DefaultSeed)
		}
		if err != nil {
			logger.Fatal("failed to load pipeline seed", zap.String("file", cfg.PipelineSeedFile), zap.Error(err))
		}
		logger.Info("using in-memory pipeline store", zap.String("seed_file", cfg.PipelineSeedFile))
		pipelineStore = local
	}
	probes = append(probes, handler.HealthProbe{Name: "memstore", Pinger: local})

	// --- Cache ---
	views := cache.New[*domain.PipelineView](cfg.CacheTTL)
	defer views.Close()

	// --- Services ---
	cardSvc := service.NewCardService(metrics, logger, clock)
	svcs := handler.Services{
		Cards:    cardSvc,
		Pipeline: service.NewPipelineService(pipelineStore, views, cfg.MaxConcurrency, metrics, logger, clock),
		Payments: service.NewPaymentService(local, cardSvc, service.PaymentConfig{
			SettleDelay: cfg.PaymentSettleDelay,
			MaxAmount:   cfg.PaymentMaxAmount,
		}, metrics, logger, clock),
		Keymen: service.NewKeymanService(local, metrics, logger, clock),
	}

	if cfg.AuthEnabled() {
		svcs.Auth = service.NewAuthService(cfg.OperatorUser, cfg.OperatorPasswordHash, cfg.JWTSecret, cfg.JWTAccessTTL, logger, clock)
		logger.Info("auth service enabled", zap.String("operator", cfg.OperatorUser))
	} else {
		logger.Warn("auth service: JWT_SECRET not set, write routes unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(svcs, probes, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
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
