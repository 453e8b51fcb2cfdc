package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/observability/metrics"
)

type recordingStore struct {
	mu      sync.Mutex
	records []*Record
	err     error
	delay   time.Duration
	ctxErr  error
	panics  bool
}

func (s *recordingStore) Append(ctx context.Context, r *Record) (string, error) {
	if s.panics {
		panic("driver exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			s.mu.Lock()
			s.ctxErr = ctx.Err()
			s.mu.Unlock()
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func flaggedResult(level crisis.Level) *crisis.AnalysisResult {
	return &crisis.AnalysisResult{
		HasCrisisContent: true,
		Level:            level,
		DetectedCategories: []crisis.DetectedCategory{
			{Category: "self_harm", Level: crisis.LevelHigh, MatchedKeywords: []string{"hurt myself"}},
			{Category: "hopelessness", Level: crisis.LevelMedium, MatchedKeywords: []string{"pointless"}},
		},
		ShouldNotifyModeration: true,
	}
}

func TestEnqueueIfFlagged_WritesPendingRecord(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, nil)

	id, ok := w.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
	require.True(t, ok)
	require.NotEmpty(t, id)
	require.Equal(t, 1, store.count())

	r := store.records[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "letter-1", r.LetterID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, ReasonCrisisHigh, r.Reason)
	assert.Equal(t, FlaggedBySystem, r.FlaggedBy)
	assert.Equal(t, ActionReviewAndAcknowledge, r.Action)
	assert.Equal(t, []string{"self_harm", "hopelessness"}, r.DetectedCategories)
	assert.False(t, r.FlaggedAt.IsZero())
}

func TestEnqueueIfFlagged_CriticalReason(t *testing.T) {
	store := &recordingStore{}
	_, ok := NewWriter(store, nil).EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelCritical), "letter-1")
	require.True(t, ok)
	assert.Equal(t, ReasonCrisisCritical, store.records[0].Reason)
}

func TestEnqueueIfFlagged_NoOpCases(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, nil)

	notFlagged := flaggedResult(crisis.LevelMedium)
	notFlagged.ShouldNotifyModeration = false

	for name, tc := range map[string]struct {
		result   *crisis.AnalysisResult
		letterID string
	}{
		"moderation not requested": {notFlagged, "letter-1"},
		"missing letter id":        {flaggedResult(crisis.LevelHigh), ""},
		"nil result":               {nil, "letter-1"},
	} {
		t.Run(name, func(t *testing.T) {
			id, ok := w.EnqueueIfFlagged(context.Background(), tc.result, tc.letterID)
			assert.False(t, ok)
			assert.Empty(t, id)
		})
	}
	assert.Equal(t, 0, store.count())
}

func TestEnqueueIfFlagged_StoreFailureIsSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := NewWriter(&recordingStore{err: errors.New("permission denied")}, nil).WithMetrics(metrics.NewCrisisMetrics(reg))

	id, ok := w.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, float64(1), metrics.Snapshot(reg).ModerationFailed)
}

func TestEnqueueIfFlagged_PanicIsSwallowed(t *testing.T) {
	w := NewWriter(&recordingStore{panics: true}, nil)
	assert.NotPanics(t, func() {
		id, ok := w.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
		assert.False(t, ok)
		assert.Empty(t, id)
	})
}

func TestEnqueueIfFlagged_NilStoreAndNilWriter(t *testing.T) {
	_, ok := NewWriter(nil, nil).EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
	assert.False(t, ok)

	var w *Writer
	_, ok = w.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
	assert.False(t, ok)
}

func TestEnqueueIfFlagged_TimeoutBoundsSlowStore(t *testing.T) {
	store := &recordingStore{delay: time.Second}
	w := NewWriter(store, nil).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	_, ok := w.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, store.ctxErr, context.DeadlineExceeded)
}

func TestEnqueueIfFlagged_IgnoresCallerCancellation(t *testing.T) {
	store := &recordingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := NewWriter(store, nil).EnqueueIfFlagged(ctx, flaggedResult(crisis.LevelHigh), "letter-1")
	assert.True(t, ok)
	assert.Equal(t, 1, store.count())
}

func TestEnqueueIfFlagged_Notifier(t *testing.T) {
	var notified []*Record
	w := NewWriter(&recordingStore{}, nil).WithNotifier(NotifierFunc(func(_ context.Context, r *Record) error {
		notified = append(notified, r)
		return nil
	}))
	id, ok := w.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-1")
	require.True(t, ok)
	require.Len(t, notified, 1)
	assert.Equal(t, id, notified[0].ID)

	failing := NewWriter(&recordingStore{}, nil).WithNotifier(NotifierFunc(func(context.Context, *Record) error {
		return errors.New("queue unavailable")
	}))
	_, ok = failing.EnqueueIfFlagged(context.Background(), flaggedResult(crisis.LevelHigh), "letter-2")
	assert.True(t, ok)
}

func TestEnqueueAsync(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, nil)
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 5; i++ {
		w.EnqueueAsync(ctx, flaggedResult(crisis.LevelHigh), "letter-async")
	}
	cancel()
	w.Wait()
	assert.Equal(t, 5, store.count())

	w.EnqueueAsync(context.Background(), flaggedResult(crisis.LevelHigh), "")
	w.Wait()
	assert.Equal(t, 5, store.count())
}
