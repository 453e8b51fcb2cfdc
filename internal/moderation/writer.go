package moderation

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/observability/metrics"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// DefaultWriteTimeout bounds a single moderation write.
const DefaultWriteTimeout = 3 * time.Second

var writerTracer = otel.Tracer("whisperbox/moderation-writer")

// Writer queues flagged letters for review. It never reports failure to the
// caller: a queue outage must not undo an accepted letter.
type Writer struct {
	store    Store
	notifier Notifier
	timeout  time.Duration
	logger   *logging.Logger
	metrics  *metrics.CrisisMetrics
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewWriter creates a writer over store.
func NewWriter(store Store, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Writer{
		store:   store,
		timeout: DefaultWriteTimeout,
		logger:  logger.Component("moderation-writer"),
		now:     time.Now,
	}
}

// WithTimeout overrides the per-write timeout.
func (w *Writer) WithTimeout(d time.Duration) *Writer {
	if d > 0 {
		w.timeout = d
	}
	return w
}

// WithNotifier sets a notifier called after each successful append.
func (w *Writer) WithNotifier(n Notifier) *Writer {
	w.notifier = n
	return w
}

// WithMetrics attaches enqueue counters.
func (w *Writer) WithMetrics(m *metrics.CrisisMetrics) *Writer {
	w.metrics = m
	return w
}

// EnqueueIfFlagged stores a pending record when result asks for moderation
// and letterID is set. It returns the record id and true on success.
// The write is detached from ctx cancellation and bounded by the writer timeout.
func (w *Writer) EnqueueIfFlagged(ctx context.Context, result *crisis.AnalysisResult, letterID string) (id string, ok bool) {
	if w == nil || result == nil || !result.ShouldNotifyModeration || letterID == "" {
		return "", false
	}
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("moderation enqueue panicked", "letter_id", letterID, "panic", rec)
			w.metrics.ObserveModeration(metrics.ModerationFailed, time.Since(start).Seconds())
			id, ok = "", false
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()
	ctx, span := writerTracer.Start(ctx, "moderation.enqueue", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("moderation.letter_id", letterID),
		attribute.String("crisis.level", string(result.Level)),
	)

	if w.store == nil {
		w.logger.Warn("moderation store not configured; flag dropped", "letter_id", letterID)
		w.metrics.ObserveModeration(metrics.ModerationSkipped, time.Since(start).Seconds())
		return "", false
	}

	record := NewRecord(result, letterID, w.now())
	id, err := w.store.Append(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		w.logger.Error("failed to queue letter for moderation",
			"letter_id", letterID,
			"level", result.Level,
			"error", err,
		)
		w.metrics.ObserveModeration(metrics.ModerationFailed, time.Since(start).Seconds())
		return "", false
	}
	if id == "" {
		id = record.ID
	}
	record.ID = id
	span.SetAttributes(attribute.String("moderation.record_id", id))
	w.metrics.ObserveModeration(metrics.ModerationQueued, time.Since(start).Seconds())
	w.logger.Info("letter queued for moderation",
		"letter_id", letterID,
		"record_id", id,
		"level", result.Level,
		"categories", record.DetectedCategories,
	)

	if w.notifier != nil {
		if err := w.notifier.RecordQueued(ctx, record); err != nil {
			w.logger.Warn("moderation notification failed", "record_id", id, "error", err)
		}
	}
	return id, true
}

// EnqueueAsync runs EnqueueIfFlagged in the background. Wait blocks until
// outstanding writes finish.
func (w *Writer) EnqueueAsync(ctx context.Context, result *crisis.AnalysisResult, letterID string) {
	if w == nil || result == nil || !result.ShouldNotifyModeration || letterID == "" {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.EnqueueIfFlagged(ctx, result, letterID)
	}()
}

// Wait blocks until all EnqueueAsync calls have returned.
func (w *Writer) Wait() {
	if w != nil {
		w.wg.Wait()
	}
}
