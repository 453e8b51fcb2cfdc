package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

type fakeQueue struct {
	mu      sync.Mutex
	pending []delivery
	acked   []string
}

func (q *fakeQueue) Receive(ctx context.Context, _, _ int) ([]delivery, error) {
	q.mu.Lock()
	msgs := q.pending
	q.pending = nil
	q.mu.Unlock()
	if len(msgs) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return nil, nil
		}
	}
	return msgs, nil
}

func (q *fakeQueue) Ack(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, receipt)
	return nil
}

func (q *fakeQueue) Acked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

type brokenDedupe struct{ released bool }

func (d *brokenDedupe) Claim(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (d *brokenDedupe) Release(context.Context, string) error {
	d.released = true
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	events []moderation.Event
	err    error
}

func (a *fakeAlerter) Alert(_ context.Context, evt moderation.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, evt)
	return a.err
}

func (a *fakeAlerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func flaggedBody(t *testing.T, recordID string) string {
	t.Helper()
	body, err := json.Marshal(moderation.Event{
		Type:        moderation.EventFlagged,
		RecordID:    recordID,
		LetterID:    "letter-1",
		CrisisLevel: crisis.LevelCritical,
		Categories:  []string{"immediate_danger"},
	})
	require.NoError(t, err)
	return string(body)
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter("error", &bytes.Buffer{})
}

func newRedisDedupe(t *testing.T) (*miniredis.Miniredis, *RedisDedupe) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisDedupe(client, time.Hour)
}

func TestProcess_Outcomes(t *testing.T) {
	cases := []struct {
		name     string
		d        delivery
		alertErr error
		want     outcome
		alerts   int
	}{
		{name: "flagged", d: delivery{EventType: moderation.EventFlagged, Body: flaggedBody(t, "rec-1")}, want: alerted, alerts: 1},
		{name: "no attribute", d: delivery{Body: flaggedBody(t, "rec-1")}, want: alerted, alerts: 1},
		{name: "alert fails", d: delivery{Body: flaggedBody(t, "rec-1")}, alertErr: errors.New("smtp down"), want: retry, alerts: 1},
		{name: "other attribute", d: delivery{EventType: "moderation.resolved", Body: flaggedBody(t, "rec-1")}, want: dropped},
		{name: "bad json", d: delivery{Body: "{not json"}, want: dropped},
		{name: "other type", d: delivery{Body: `{"type":"moderation.resolved","recordId":"x"}`}, want: dropped},
		{name: "no record", d: delivery{Body: `{"type":"moderation.flagged"}`}, want: dropped},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerter := &fakeAlerter{err: tc.alertErr}
			w := NewWorker(&fakeQueue{}, alerter, testLogger())
			assert.Equal(t, tc.want, w.process(context.Background(), tc.d))
			assert.Equal(t, tc.alerts, alerter.Count())
		})
	}
	assert.False(t, retry.ack())
	assert.True(t, duplicate.ack())
}

func TestProcess_DedupeSkipsRedelivery(t *testing.T) {
	mr, dedupe := newRedisDedupe(t)
	alerter := &fakeAlerter{}
	w := NewWorker(&fakeQueue{}, alerter, testLogger(), WithDedupe(dedupe))

	body := flaggedBody(t, "rec-9")
	assert.Equal(t, alerted, w.process(context.Background(), delivery{ID: "m1", Body: body, Attempts: 1}))
	assert.Equal(t, duplicate, w.process(context.Background(), delivery{ID: "m2", Body: body, Attempts: 2}))

	assert.Equal(t, 1, alerter.Count())
	assert.True(t, mr.Exists(dedupeKeyPrefix+"rec-9"))
}

func TestProcess_FailedAlertReleasesClaim(t *testing.T) {
	mr, dedupe := newRedisDedupe(t)
	w := NewWorker(&fakeQueue{}, &fakeAlerter{err: errors.New("boom")}, testLogger(), WithDedupe(dedupe))

	assert.Equal(t, retry, w.process(context.Background(), delivery{Body: flaggedBody(t, "rec-3")}))
	assert.False(t, mr.Exists(dedupeKeyPrefix+"rec-3"))
}

func TestProcess_DedupeOutageStillAlerts(t *testing.T) {
	dedupe := &brokenDedupe{}
	alerter := &fakeAlerter{err: errors.New("boom")}
	w := NewWorker(&fakeQueue{}, alerter, testLogger(), WithDedupe(dedupe))

	assert.Equal(t, retry, w.process(context.Background(), delivery{Body: flaggedBody(t, "rec-4")}))
	assert.Equal(t, 1, alerter.Count())
	assert.False(t, dedupe.released, "nothing was claimed, so nothing is released")
}

func TestWorker_StartAcksAlertedMessages(t *testing.T) {
	q := &fakeQueue{pending: []delivery{
		{ID: "m1", Body: flaggedBody(t, "rec-1"), Receipt: "rh-1"},
		{ID: "m2", Body: "{not json", Receipt: "rh-2"},
		{ID: "m3", Body: flaggedBody(t, "rec-3"), Receipt: "rh-3"},
	}}
	alerter := &fakeAlerter{}
	w := NewWorker(q, alerter, testLogger(), WithWorkerCount(2), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(q.Acked()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	w.Wait()

	assert.Equal(t, 2, alerter.Count())
	assert.ElementsMatch(t, []string{"rh-1", "rh-2", "rh-3"}, q.Acked())
}

func TestWorker_StartKeepsFailedAlerts(t *testing.T) {
	q := &fakeQueue{pending: []delivery{{ID: "m1", Body: flaggedBody(t, "rec-1"), Receipt: "rh-1"}}}
	alerter := &fakeAlerter{err: errors.New("smtp down")}
	w := NewWorker(q, alerter, testLogger(), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for alerter.Count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	w.Wait()

	assert.Equal(t, 1, alerter.Count())
	assert.Empty(t, q.Acked())
}

func TestWorkerOptions_Clamp(t *testing.T) {
	w := NewWorker(&fakeQueue{}, &fakeAlerter{}, nil,
		WithReceiveWaitSeconds(60),
		WithReceiveBatchSize(50),
		WithWorkerCount(0),
	)
	assert.Equal(t, maxWaitSeconds, w.waitSeconds)
	assert.Equal(t, maxBatchSize, w.batchSize)
	assert.Equal(t, 1, w.consumers)
}

type fakeSQS struct {
	receiveIn *sqs.ReceiveMessageInput
	deleteIn  *sqs.DeleteMessageInput
	messages  []sqstypes.Message
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.receiveIn = in
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleteIn = in
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueue_ReceiveAndAck(t *testing.T) {
	client := &fakeSQS{messages: []sqstypes.Message{
		{
			MessageId:     aws.String("m1"),
			Body:          aws.String("{}"),
			ReceiptHandle: aws.String("rh-1"),
			Attributes:    map[string]string{"ApproximateReceiveCount": "3"},
			MessageAttributes: map[string]sqstypes.MessageAttributeValue{
				"event_type": {DataType: aws.String("String"), StringValue: aws.String(moderation.EventFlagged)},
			},
		},
		{MessageId: aws.String("m2"), Body: aws.String("{}"), ReceiptHandle: aws.String("rh-2")},
	}}
	q := NewSQSQueue(client, "https://sqs.local/queue")

	batch, err := q.Receive(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, delivery{ID: "m1", Body: "{}", Receipt: "rh-1", EventType: moderation.EventFlagged, Attempts: 3}, batch[0])
	assert.Equal(t, delivery{ID: "m2", Body: "{}", Receipt: "rh-2", Attempts: 1}, batch[1])
	assert.Equal(t, int32(5), client.receiveIn.MaxNumberOfMessages)
	assert.Equal(t, int32(10), client.receiveIn.WaitTimeSeconds)
	assert.Equal(t, []string{"event_type"}, client.receiveIn.MessageAttributeNames)

	require.NoError(t, q.Ack(context.Background(), "rh-1"))
	assert.Equal(t, "rh-1", aws.ToString(client.deleteIn.ReceiptHandle))

	client.deleteIn = nil
	require.NoError(t, q.Ack(context.Background(), ""))
	assert.Nil(t, client.deleteIn)
}

func TestNewSQSQueue_PanicsOnMissingInputs(t *testing.T) {
	assert.Panics(t, func() { NewSQSQueue(nil, "https://sqs.local/queue") })
	assert.Panics(t, func() { NewSQSQueue(&fakeSQS{}, "") })
}
