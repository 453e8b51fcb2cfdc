package main

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/whisperbox/cmd/mainconfig"
	"github.com/wolfman30/whisperbox/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/history"
	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/internal/notify"
	"github.com/wolfman30/whisperbox/internal/observability/metrics"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

func setupMetrics() (http.Handler, *prometheus.Registry, *metrics.CrisisMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	crisisMetrics := metrics.NewCrisisMetrics(registry)
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return handler, registry, crisisMetrics
}

// setupCrisis loads the keyword database once at startup. A failed fetch
// leaves the loader empty and it retries on the next analysis.
func setupCrisis(ctx context.Context, cfg *appconfig.Config, s3Client crisis.S3API, redisClient *redis.Client, m *metrics.CrisisMetrics, logger *logging.Logger) (*crisis.Loader, *crisis.Analyzer, error) {
	source, err := bootstrap.BuildKeywordSource(cfg, s3Client, redisClient, logger)
	if err != nil {
		return nil, nil, err
	}
	loader := crisis.NewLoader(source, logger).WithMetrics(m).WithFetchTimeout(cfg.CrisisKeywordsFetchTimeout)
	db := loader.Load(ctx)
	logger.Info("crisis keywords loaded", "categories", db.Len())
	analyzer := crisis.NewAnalyzer(loader, logger).WithMetrics(m)
	return loader, analyzer, nil
}

type moderationDeps struct {
	writer  *moderation.Writer
	handler *moderation.Handler
}

func setupModeration(cfg *appconfig.Config, awsCfg aws.Config, pool *pgxpool.Pool, m *metrics.CrisisMetrics, logger *logging.Logger) (moderationDeps, error) {
	var dynamoClient *dynamodb.Client
	if cfg.ModerationBackend == "dynamodb" {
		dynamoClient = dynamodb.NewFromConfig(awsCfg)
	}
	stores, err := bootstrap.BuildModerationStores(cfg, pool, dynamoClient)
	if err != nil {
		return moderationDeps{}, err
	}

	var sesClient *sesv2.Client
	if cfg.EmailProvider == "ses" {
		sesClient = sesv2.NewFromConfig(awsCfg)
	}
	sender := bootstrap.BuildEmailSender(cfg, sesClient, logger)
	alerter := notify.NewModeratorAlerter(sender, cfg.ModeratorEmails, logger).
		WithDashboardURL(cfg.ModerationDashboardURL)

	var sqsClient moderation.SQSAPI
	if cfg.ModerationQueueURL != "" {
		sqsClient = sqs.NewFromConfig(awsCfg)
	}

	writer := moderation.NewWriter(stores.Queue, logger).
		WithTimeout(cfg.ModerationWriteTimeout).
		WithMetrics(m)
	if notifier := bootstrap.BuildModerationNotifier(cfg, sqsClient, alerter); notifier != nil {
		writer = writer.WithNotifier(notifier)
	}

	deps := moderationDeps{writer: writer}
	if stores.Review != nil {
		deps.handler = moderation.NewHandler(stores.Review, logger)
	} else {
		logger.Warn("moderation backend has no review API; admin moderation routes disabled", "backend", cfg.ModerationBackend)
	}
	return deps, nil
}

// setupHistory uses Postgres through database/sql when DATABASE_URL is set.
// The returned close func is never nil.
func setupHistory(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*history.Service, func()) {
	noop := func() {}
	if cfg.DatabaseURL == "" {
		return history.NewService(history.NewMemoryStore(), logger), noop
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		logger.Error("crisis history database unavailable; using memory store", "error", err)
		if db != nil {
			_ = db.Close()
		}
		return history.NewService(history.NewMemoryStore(), logger), noop
	}
	return history.NewService(history.NewSQLStore(db), logger), func() { _ = db.Close() }
}

func newS3Client(cfg *appconfig.Config, awsCfg aws.Config) crisis.S3API {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.CrisisKeywordsSource)), "s3://") {
		return nil
	}
	return s3.NewFromConfig(awsCfg, mainconfig.S3Options(cfg))
}
