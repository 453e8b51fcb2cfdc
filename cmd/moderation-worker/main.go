package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/wolfman30/whisperbox/cmd/mainconfig"
	"github.com/wolfman30/whisperbox/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/notify"
	"github.com/wolfman30/whisperbox/internal/worker/alerts"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.ModerationQueueURL == "" {
		logger.Error("MODERATION_QUEUE_URL is required")
		os.Exit(1)
	}
	if len(cfg.ModeratorEmails) == 0 {
		logger.Warn("MODERATOR_EMAILS is empty; alerts will be dropped")
	}

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var sesClient *sesv2.Client
	if cfg.EmailProvider == "ses" {
		sesClient = sesv2.NewFromConfig(awsConfig)
	}
	sender := bootstrap.BuildEmailSender(cfg, sesClient, logger)
	alerter := notify.NewModeratorAlerter(sender, cfg.ModeratorEmails, logger).
		WithDashboardURL(cfg.ModerationDashboardURL)

	queue := alerts.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.ModerationQueueURL)
	opts := []alerts.WorkerOption{alerts.WithWorkerCount(cfg.AlertWorkerCount)}
	if redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		opts = append(opts, alerts.WithDedupe(alerts.NewRedisDedupe(redisClient, cfg.AlertDedupeTTL)))
	}
	worker := alerts.NewWorker(queue, alerter, logger, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	logger.Info("moderation alert worker started", "workers", cfg.AlertWorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down moderation alert worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("moderation alert worker stopped")
	case <-doneCtx.Done():
		logger.Error("moderation alert worker shutdown timed out", "error", doneCtx.Err())
	}
}
