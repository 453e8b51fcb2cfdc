package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// ModeratorAlerter emails moderators when a letter is queued for review.
// Alerts name the record, level and categories. They never include letter text.
type ModeratorAlerter struct {
	sender       EmailSender
	recipients   []string
	dashboardURL string
	logger       *logging.Logger
}

// NewModeratorAlerter creates an alerter for recipients.
func NewModeratorAlerter(sender EmailSender, recipients []string, logger *logging.Logger) *ModeratorAlerter {
	if logger == nil {
		logger = logging.Default()
	}
	return &ModeratorAlerter{
		sender:     sender,
		recipients: recipients,
		logger:     logger.Component("moderator-alerts"),
	}
}

// WithDashboardURL adds a review link to every alert.
func (a *ModeratorAlerter) WithDashboardURL(url string) *ModeratorAlerter {
	a.dashboardURL = strings.TrimRight(url, "/")
	return a
}

// Alert sends evt to every recipient. Failed deliveries are joined into
// the returned error; the rest are still attempted.
func (a *ModeratorAlerter) Alert(ctx context.Context, evt moderation.Event) error {
	if a == nil || a.sender == nil || len(a.recipients) == 0 {
		return nil
	}
	subject, body := a.format(evt)
	msg := EmailMessage{
		Subject: subject,
		Text:    body,
		Urgent:  evt.CrisisLevel == crisis.LevelCritical,
		Tags:    map[string]string{"kind": "crisis-alert", "level": string(evt.CrisisLevel)},
	}

	var errs []error
	for _, to := range a.recipients {
		msg.To = to
		if err := a.sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notify: alert %s: %w", to, err))
		}
	}
	if len(errs) > 0 {
		a.logger.Error("moderator alert delivery failed", "record_id", evt.RecordID, "failed", len(errs))
		return errors.Join(errs...)
	}
	a.logger.Info("moderators alerted", "record_id", evt.RecordID, "level", evt.CrisisLevel, "recipients", len(a.recipients))
	return nil
}

// RecordQueued lets the alerter act as a moderation.Notifier when no
// queue sits between the writer and the alerts.
func (a *ModeratorAlerter) RecordQueued(ctx context.Context, r *moderation.Record) error {
	return a.Alert(ctx, moderation.NewEvent(r))
}

func (a *ModeratorAlerter) format(evt moderation.Event) (string, string) {
	names := make([]string, 0, len(evt.Categories))
	for _, key := range evt.Categories {
		names = append(names, crisis.DisplayName(key))
	}

	prefix := "Crisis flag"
	if evt.CrisisLevel == crisis.LevelCritical {
		prefix = "URGENT crisis flag"
	}
	subject := fmt.Sprintf("[WhisperBox] %s: %s", prefix, strings.Join(names, ", "))

	var b strings.Builder
	fmt.Fprintf(&b, "A letter was flagged for moderator review.\n\n")
	fmt.Fprintf(&b, "Level: %s\n", evt.CrisisLevel)
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "Reason: %s\n", evt.Reason)
	fmt.Fprintf(&b, "Record: %s\n", evt.RecordID)
	fmt.Fprintf(&b, "Letter: %s\n", evt.LetterID)
	fmt.Fprintf(&b, "Flagged: %s\n", evt.FlaggedAt.UTC().Format("January 2, 2006 at 3:04 PM MST"))
	if a.dashboardURL != "" {
		fmt.Fprintf(&b, "\nReview: %s/admin/moderation/%s\n", a.dashboardURL, evt.RecordID)
	}
	return subject, b.String()
}

var _ moderation.Notifier = (*ModeratorAlerter)(nil)
