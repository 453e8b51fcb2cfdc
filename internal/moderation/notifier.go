package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

// EventFlagged is published after a record is queued.
const EventFlagged = "moderation.flagged"

// Event announces a new moderation record. Like the record it carries no
// letter text.
type Event struct {
	Type        string       `json:"type"`
	RecordID    string       `json:"recordId"`
	LetterID    string       `json:"letterId"`
	CrisisLevel crisis.Level `json:"crisisLevel"`
	Categories  []string     `json:"categories"`
	Reason      string       `json:"reason"`
	FlaggedAt   time.Time    `json:"flaggedAt"`
}

// NewEvent describes r.
func NewEvent(r *Record) Event {
	return Event{
		Type:        EventFlagged,
		RecordID:    r.ID,
		LetterID:    r.LetterID,
		CrisisLevel: r.CrisisLevel,
		Categories:  append([]string(nil), r.DetectedCategories...),
		Reason:      r.Reason,
		FlaggedAt:   r.FlaggedAt,
	}
}

// Notifier is told about records after they are stored.
type Notifier interface {
	RecordQueued(ctx context.Context, r *Record) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, r *Record) error

func (f NotifierFunc) RecordQueued(ctx context.Context, r *Record) error {
	return f(ctx, r)
}

// SQSAPI is the subset of the SQS client used by SQSNotifier.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier publishes flagged events to an SQS queue.
type SQSNotifier struct {
	client   SQSAPI
	queueURL string
}

// NewSQSNotifier creates a notifier for queueURL.
func NewSQSNotifier(client SQSAPI, queueURL string) *SQSNotifier {
	return &SQSNotifier{client: client, queueURL: queueURL}
}

func (n *SQSNotifier) RecordQueued(ctx context.Context, r *Record) error {
	body, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("moderation: marshal event: %w", err)
	}
	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(EventFlagged)},
			"level":      {DataType: aws.String("String"), StringValue: aws.String(string(r.CrisisLevel))},
		},
	})
	if err != nil {
		return fmt.Errorf("moderation: send event: %w", err)
	}
	return nil
}
