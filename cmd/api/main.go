package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/whisperbox/cmd/mainconfig"
	"github.com/wolfman30/whisperbox/internal/api/router"
	"github.com/wolfman30/whisperbox/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/gate"
	"github.com/wolfman30/whisperbox/internal/history"
	"github.com/wolfman30/whisperbox/internal/letters"
	"github.com/wolfman30/whisperbox/internal/submission"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whisperbox API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}

	metricsHandler, registry, crisisMetrics := setupMetrics()

	loader, analyzer, err := setupCrisis(ctx, cfg, newS3Client(cfg, awsCfg), redisClient, crisisMetrics, logger)
	if err != nil {
		logger.Error("invalid crisis keyword source", "error", err)
		os.Exit(1)
	}

	mod, err := setupModeration(cfg, awsCfg, pool, crisisMetrics, logger)
	if err != nil {
		logger.Error("failed to set up moderation queue", "error", err)
		os.Exit(1)
	}

	historyService, closeHistory := setupHistory(ctx, cfg, logger)
	defer closeHistory()

	pendingGate := gate.New(bootstrap.BuildPendingStore(redisClient), cfg.PendingDraftTTL, logger).WithMetrics(crisisMetrics)
	letterRepo := bootstrap.BuildLetterRepository(pool)
	submissions := submission.NewService(analyzer, pendingGate, letterRepo, logger).
		WithModeration(mod.writer).
		WithHistory(historyService)

	r := router.New(&router.Config{
		Logger:             logger,
		CrisisHandler:      crisis.NewHandler(analyzer, loader, logger),
		SubmissionHandler:  submission.NewHandler(submissions, logger),
		LettersHandler:     letters.NewHandler(letterRepo, logger),
		HistoryHandler:     history.NewHandler(historyService, logger),
		ModerationHandler:  mod.handler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		UserAuthSecret:     cfg.UserJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		MetricsHandler:     metricsHandler,
		StatsGatherer:      registry,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// Flush moderation writes that were handed off before shutdown.
	mod.writer.Wait()

	logger.Info("server stopped")
}
