package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

const defaultListLimit = 100

// Service records and serves an author's private crisis history.
type Service struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a history service. A nil store disables recording, and
// reads then fail with ErrUnavailable.
func NewService(store Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger.Component("crisis-history"), now: time.Now}
}

// StoreFlag saves a history entry when the analysis asks for one and the
// author is signed in and opted in. It never fails the caller; the return
// value reports whether an entry was written.
func (s *Service) StoreFlag(ctx context.Context, userID string, optedIn bool, letterID string, result *crisis.AnalysisResult) bool {
	if s == nil || s.store == nil || result == nil || !result.ShouldStoreFlag {
		return false
	}
	if userID == "" || letterID == "" || !optedIn {
		return false
	}

	entry := Entry{
		ID:         uuid.NewString(),
		UserID:     userID,
		LetterID:   letterID,
		Level:      result.Level,
		Categories: result.CategoryKeys(),
		DetectedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to store crisis flag", "error", err, "letter_id", letterID)
		return false
	}
	return true
}

// ListForUser returns the author's entries, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Entry, error) {
	if err := s.check(userID); err != nil {
		return nil, err
	}
	return s.store.ListForUser(ctx, userID, defaultListLimit)
}

// Acknowledge marks one of the author's entries as seen.
func (s *Service) Acknowledge(ctx context.Context, userID, id string) error {
	if err := s.check(userID); err != nil {
		return err
	}
	return s.store.Acknowledge(ctx, userID, id)
}

// ClearOld deletes the author's entries older than RetentionPeriod.
func (s *Service) ClearOld(ctx context.Context, userID string) (int64, error) {
	if err := s.check(userID); err != nil {
		return 0, err
	}
	cutoff := s.now().UTC().Add(-RetentionPeriod)
	n, err := s.store.DeleteBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("cleared old crisis history", "removed", n)
	}
	return n, nil
}

func (s *Service) check(userID string) error {
	if s == nil || s.store == nil {
		return ErrUnavailable
	}
	if userID == "" {
		return ErrMissingUser
	}
	return nil
}
