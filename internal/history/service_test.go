package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

type failingStore struct{ MemoryStore }

func (*failingStore) Insert(context.Context, Entry) error { return errors.New("disk full") }

func flagResult(store bool) *crisis.AnalysisResult {
	return &crisis.AnalysisResult{
		HasCrisisContent: true,
		Level:            crisis.LevelMedium,
		DetectedCategories: []crisis.DetectedCategory{
			{Category: "hopelessness", Level: crisis.LevelMedium, MatchedKeywords: []string{"no point"}},
		},
		ShouldStoreFlag: store,
	}
}

func TestStoreFlag(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	assert.True(t, svc.StoreFlag(ctx, "user-1", true, "letter-1", flagResult(true)))

	entries, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "letter-1", entries[0].LetterID)
	assert.Equal(t, crisis.LevelMedium, entries[0].Level)
	assert.Equal(t, []string{"hopelessness"}, entries[0].Categories)
	assert.False(t, entries[0].Acknowledged)
}

func TestStoreFlagSkips(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	assert.False(t, svc.StoreFlag(ctx, "user-1", true, "letter-1", flagResult(false)), "category did not ask for a flag")
	assert.False(t, svc.StoreFlag(ctx, "", true, "letter-1", flagResult(true)), "guest")
	assert.False(t, svc.StoreFlag(ctx, "user-1", false, "letter-1", flagResult(true)), "not opted in")
	assert.False(t, svc.StoreFlag(ctx, "user-1", true, "", flagResult(true)), "no letter")
	assert.False(t, svc.StoreFlag(ctx, "user-1", true, "letter-1", nil))

	entries, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	var nilSvc *Service
	assert.False(t, nilSvc.StoreFlag(ctx, "user-1", true, "letter-1", flagResult(true)))
}

func TestStoreFlagStoreErrorIsSwallowed(t *testing.T) {
	svc := NewService(&failingStore{}, nil)
	assert.False(t, svc.StoreFlag(context.Background(), "user-1", true, "letter-1", flagResult(true)))
}

func TestAcknowledgeAndClearOld(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, store.Insert(ctx, Entry{ID: "old", UserID: "u", DetectedAt: now.AddDate(0, -7, 0)}))
	require.NoError(t, store.Insert(ctx, Entry{ID: "new", UserID: "u", DetectedAt: now.AddDate(0, -1, 0)}))
	require.NoError(t, store.Insert(ctx, Entry{ID: "other", UserID: "someone-else", DetectedAt: now.AddDate(-1, 0, 0)}))

	require.NoError(t, svc.Acknowledge(ctx, "u", "new"))
	assert.ErrorIs(t, svc.Acknowledge(ctx, "u", "other"), ErrNotFound)

	removed, err := svc.ClearOld(ctx, "u")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	entries, err := svc.ListForUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ID)
	assert.True(t, entries[0].Acknowledged)

	others, err := svc.ListForUser(ctx, "someone-else")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	_, err = svc.ClearOld(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestServiceWithoutStore(t *testing.T) {
	svc := NewService(nil, nil)
	ctx := context.Background()

	_, err := svc.ListForUser(ctx, "user-1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, svc.Acknowledge(ctx, "user-1", "e1"), ErrUnavailable)
	n, err := svc.ClearOld(ctx, "user-1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, n)

	var nilSvc *Service
	_, err = nilSvc.ListForUser(ctx, "user-1")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewService(NewMemoryStore(), nil).ListForUser(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}
