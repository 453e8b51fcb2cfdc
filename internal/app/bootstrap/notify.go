package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/internal/notify"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// BuildEmailSender picks the EMAIL_PROVIDER sender, falling back to the stub
// when the chosen provider is not configured.
func BuildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub sender")
	case "ses":
		if sesClient != nil {
			return notify.NewSESSender(sesClient, notify.SESConfig{
				FromEmail:        cfg.EmailFrom,
				FromName:         cfg.EmailFromName,
				ConfigurationSet: cfg.SESConfigurationSet,
			}, logger)
		}
		logger.Warn("ses selected but no AWS client; using stub sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildModerationNotifier publishes to SQS when a queue is configured so a
// worker sends the alerts. Without a queue the API alerts moderators inline.
func BuildModerationNotifier(cfg *appconfig.Config, sqsClient moderation.SQSAPI, alerter *notify.ModeratorAlerter) moderation.Notifier {
	if cfg != nil && cfg.ModerationQueueURL != "" && sqsClient != nil {
		return moderation.NewSQSNotifier(sqsClient, cfg.ModerationQueueURL)
	}
	if alerter == nil || cfg == nil || len(cfg.ModeratorEmails) == 0 {
		return nil
	}
	return alerter
}
