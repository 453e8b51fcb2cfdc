package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/moderation"
)

type flakySender struct {
	failFor string
	sent    []EmailMessage
}

func (f *flakySender) Send(_ context.Context, msg EmailMessage) error {
	if msg.To == f.failFor {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func criticalEvent() moderation.Event {
	return moderation.Event{
		Type:        moderation.EventFlagged,
		RecordID:    "rec-1",
		LetterID:    "letter-1",
		CrisisLevel: crisis.LevelCritical,
		Categories:  []string{"immediate_danger", "self_harm"},
		Reason:      moderation.ReasonCrisisCritical,
		FlaggedAt:   time.Date(2026, 6, 1, 15, 4, 0, 0, time.UTC),
	}
}

func TestModeratorAlerter_Alert(t *testing.T) {
	stub := NewStubEmailSender(nil)
	alerter := NewModeratorAlerter(stub, []string{"a@example.com", "b@example.com"}, nil).
		WithDashboardURL("https://admin.whisperbox.app/")

	require.NoError(t, alerter.Alert(context.Background(), criticalEvent()))

	sent := stub.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@example.com", sent[0].To)
	assert.Equal(t, "[WhisperBox] URGENT crisis flag: Immediate Danger, Self-Harm", sent[0].Subject)
	assert.Contains(t, sent[0].Text, "Level: critical")
	assert.Contains(t, sent[0].Text, "https://admin.whisperbox.app/admin/moderation/rec-1")
	assert.True(t, sent[0].Urgent)
	assert.Equal(t, map[string]string{"kind": "crisis-alert", "level": "critical"}, sent[0].Tags)
}

func TestModeratorAlerter_PartialFailure(t *testing.T) {
	sender := &flakySender{failFor: "a@example.com"}
	alerter := NewModeratorAlerter(sender, []string{"a@example.com", "b@example.com"}, nil)

	err := alerter.Alert(context.Background(), criticalEvent())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "a@example.com"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "b@example.com", sender.sent[0].To)
}

func TestModeratorAlerter_NoRecipients(t *testing.T) {
	stub := NewStubEmailSender(nil)
	assert.NoError(t, NewModeratorAlerter(stub, nil, nil).Alert(context.Background(), criticalEvent()))
	assert.Empty(t, stub.Sent())

	var nilAlerter *ModeratorAlerter
	assert.NoError(t, nilAlerter.Alert(context.Background(), criticalEvent()))
}

func TestModeratorAlerter_RecordQueued(t *testing.T) {
	stub := NewStubEmailSender(nil)
	alerter := NewModeratorAlerter(stub, []string{"mod@example.com"}, nil)
	result := &crisis.AnalysisResult{
		HasCrisisContent:       true,
		Level:                  crisis.LevelHigh,
		DetectedCategories:     []crisis.DetectedCategory{{Category: "self_harm", Level: crisis.LevelHigh}},
		ShouldNotifyModeration: true,
	}

	require.NoError(t, alerter.RecordQueued(context.Background(), moderation.NewRecord(result, "letter-7", time.Now())))
	sent := stub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "[WhisperBox] Crisis flag: Self-Harm", sent[0].Subject)
	assert.Contains(t, sent[0].Text, "Letter: letter-7")
	assert.False(t, sent[0].Urgent)
}
