package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

// SQLStore keeps entries in the crisis_history table through database/sql.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an open *sql.DB.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO crisis_history (id, user_id, letter_id, level, categories, detected_at, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.LetterID,
		string(e.Level),
		pq.Array(e.Categories),
		e.DetectedAt,
		e.Acknowledged,
	)
	if err != nil {
		return fmt.Errorf("history: insert entry: %w", err)
	}
	return nil
}

func (s *SQLStore) ListForUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, user_id, letter_id, level, categories, detected_at, acknowledged
		FROM crisis_history
		WHERE user_id = $1
		ORDER BY detected_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e     Entry
			level string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.LetterID, &level,
			pq.Array(&e.Categories), &e.DetectedAt, &e.Acknowledged); err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		e.Level = crisisLevel(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate entries: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) Acknowledge(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crisis_history SET acknowledged = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("history: acknowledge entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: acknowledge entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM crisis_history WHERE user_id = $1 AND detected_at < $2`,
		userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: delete old entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: delete old entries: %w", err)
	}
	return n, nil
}

func crisisLevel(s string) crisis.Level {
	l, _ := crisis.ParseLevel(s)
	return l
}
