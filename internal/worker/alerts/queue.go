package alerts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const eventTypeAttribute = "event_type"

// delivery is one received moderation event plus what SQS knows about it.
type delivery struct {
	ID      string
	Body    string
	Receipt string
	// EventType comes from the publisher's message attribute and may be empty.
	EventType string
	// Attempts is SQS's approximate receive count, 1 on first delivery.
	Attempts int
}

type eventSource interface {
	Receive(ctx context.Context, max, waitSeconds int) ([]delivery, error)
	Ack(ctx context.Context, receipt string) error
}

// SQSAPI is the subset of the SQS client the consumer needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue long-polls the moderation queue.
type SQSQueue struct {
	api SQSAPI
	url string
}

// NewSQSQueue panics on a nil client or empty URL.
func NewSQSQueue(api SQSAPI, url string) *SQSQueue {
	switch {
	case api == nil:
		panic("alerts: SQS client cannot be nil")
	case url == "":
		panic("alerts: queue URL cannot be empty")
	}
	return &SQSQueue{api: api, url: url}
}

func (q *SQSQueue) Receive(ctx context.Context, max, waitSeconds int) ([]delivery, error) {
	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(q.url),
		MaxNumberOfMessages:         int32(max),
		WaitTimeSeconds:             int32(waitSeconds),
		MessageAttributeNames:       []string{eventTypeAttribute},
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameApproximateReceiveCount},
	})
	if err != nil {
		return nil, fmt.Errorf("alerts: receive: %w", err)
	}

	batch := make([]delivery, len(out.Messages))
	for i, m := range out.Messages {
		batch[i] = toDelivery(m)
	}
	return batch, nil
}

func toDelivery(m sqstypes.Message) delivery {
	d := delivery{
		ID:       aws.ToString(m.MessageId),
		Body:     aws.ToString(m.Body),
		Receipt:  aws.ToString(m.ReceiptHandle),
		Attempts: 1,
	}
	if attr, ok := m.MessageAttributes[eventTypeAttribute]; ok {
		d.EventType = aws.ToString(attr.StringValue)
	}
	if n, err := strconv.Atoi(m.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil && n > 0 {
		d.Attempts = n
	}
	return d
}

// Ack deletes the message. An empty receipt is ignored.
func (q *SQSQueue) Ack(ctx context.Context, receipt string) error {
	if receipt == "" {
		return nil
	}
	if _, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		return fmt.Errorf("alerts: ack %s: %w", receipt, err)
	}
	return nil
}
