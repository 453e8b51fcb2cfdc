// Package alerts consumes moderation.flagged events and emails moderators.
//
// A message is acked once moderators were alerted, once a dedupe claim shows
// another consumer already alerted, or when it can never be alerted. A failed
// alert leaves it on the queue so SQS redelivers it after the visibility
// timeout.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

const (
	maxWaitSeconds = 20
	maxBatchSize   = 10
	ackTimeout     = 5 * time.Second
	minBackoff     = time.Second
	maxBackoff     = 5 * time.Second
)

// Alerter sends one alert. *notify.ModeratorAlerter satisfies it.
type Alerter interface {
	Alert(ctx context.Context, evt moderation.Event) error
}

// Dedupe claims a record id before alerting. *RedisDedupe satisfies it.
type Dedupe interface {
	Claim(ctx context.Context, recordID string) (bool, error)
	Release(ctx context.Context, recordID string) error
}

type outcome int

const (
	alerted outcome = iota
	duplicate
	dropped
	retry
)

func (o outcome) ack() bool { return o != retry }

// Worker polls the queue and alerts moderators for each flagged record.
type Worker struct {
	source  eventSource
	alerter Alerter
	dedupe  Dedupe
	logger  *logging.Logger

	consumers   int
	waitSeconds int
	batchSize   int

	wg sync.WaitGroup
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithWorkerCount sets the number of consumer goroutines.
func WithWorkerCount(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.consumers = n
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait, capped at 20s.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(w *Worker) {
		if seconds >= 0 {
			w.waitSeconds = min(seconds, maxWaitSeconds)
		}
	}
}

// WithReceiveBatchSize sets messages per poll, capped at 10.
func WithReceiveBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = min(n, maxBatchSize)
		}
	}
}

// WithDedupe skips records that were already alerted.
func WithDedupe(d Dedupe) WorkerOption {
	return func(w *Worker) { w.dedupe = d }
}

// NewWorker builds a consumer over source.
func NewWorker(source eventSource, alerter Alerter, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	w := &Worker{
		source:      source,
		alerter:     alerter,
		logger:      logger.Component("alerts-worker"),
		consumers:   1,
		waitSeconds: 10,
		batchSize:   5,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumers. They stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(w.consumers)
	for i := range w.consumers {
		go w.consume(ctx, i+1)
	}
}

// Wait blocks until every consumer has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, id int) {
	defer w.wg.Done()
	backoff := minBackoff

	for ctx.Err() == nil {
		batch, err := w.source.Receive(ctx, w.batchSize, w.waitSeconds)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("receive failed", "error", err, "consumer", id, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		for _, d := range batch {
			if w.process(ctx, d).ack() {
				w.ack(d)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, d delivery) outcome {
	log := w.logger.With("msg_id", d.ID, "attempt", d.Attempts)

	if d.EventType != "" && d.EventType != moderation.EventFlagged {
		log.Warn("ignoring event", "type", d.EventType)
		return dropped
	}
	var evt moderation.Event
	if err := json.Unmarshal([]byte(d.Body), &evt); err != nil {
		log.Error("undecodable moderation event", "error", err)
		return dropped
	}
	if evt.Type != moderation.EventFlagged || evt.RecordID == "" {
		log.Warn("ignoring event", "type", evt.Type)
		return dropped
	}

	claimed := false
	if w.dedupe != nil {
		first, err := w.dedupe.Claim(ctx, evt.RecordID)
		switch {
		case err != nil:
			log.Warn("dedupe unavailable, alerting anyway", "error", err, "record_id", evt.RecordID)
		case !first:
			log.Info("record already alerted", "record_id", evt.RecordID)
			return duplicate
		default:
			claimed = true
		}
	}

	if err := w.alerter.Alert(ctx, evt); err != nil {
		log.Error("alert failed, leaving message for redelivery", "error", err, "record_id", evt.RecordID)
		if claimed {
			if err := w.dedupe.Release(context.WithoutCancel(ctx), evt.RecordID); err != nil {
				log.Warn("dedupe release failed", "error", err, "record_id", evt.RecordID)
			}
		}
		return retry
	}
	return alerted
}

func (w *Worker) ack(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	if err := w.source.Ack(ctx, d.Receipt); err != nil {
		w.logger.Error("ack failed", "error", err, "msg_id", d.ID)
	}
}
