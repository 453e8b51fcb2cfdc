// Package history keeps a private, per-author record of crisis flags so a
// signed-in writer can look back at what they have shared. Entries are only
// written for authors who opted in and are never visible to anyone else.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

// RetentionPeriod is how long an entry is kept before ClearOld removes it.
const RetentionPeriod = 6 * 30 * 24 * time.Hour

var (
	// ErrNotFound is returned when the entry does not exist for the user.
	ErrNotFound = errors.New("history: entry not found")

	// ErrMissingUser is returned when an operation has no user id.
	ErrMissingUser = errors.New("history: user id required")

	// ErrUnavailable is returned when no store is configured.
	ErrUnavailable = errors.New("history: store unavailable")
)

// Entry is one stored crisis flag.
type Entry struct {
	ID           string       `json:"id"`
	UserID       string       `json:"-"`
	LetterID     string       `json:"letter_id"`
	Level        crisis.Level `json:"level"`
	Categories   []string     `json:"categories"`
	DetectedAt   time.Time    `json:"detected_at"`
	Acknowledged bool         `json:"acknowledged"`
}

// Store persists history entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	ListForUser(ctx context.Context, userID string, limit int) ([]Entry, error)
	Acknowledge(ctx context.Context, userID, id string) error
	DeleteBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error)
}
