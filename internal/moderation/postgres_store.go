package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const recordColumns = "id, letter_id, reason, flagged_by, flagged_at, crisis_level, detected_categories, " +
	"status, action, COALESCE(resolution_notes, ''), COALESCE(resolved_by, ''), resolved_at"

// PostgresStore persists the moderation queue in the moderation_queue table.
type PostgresStore struct {
	db  pgxQuerier
	now func() time.Time
}

var _ ReviewStore = (*PostgresStore)(nil)

// NewPostgresStore creates a store over a pgx pool or connection.
func NewPostgresStore(db pgxQuerier) *PostgresStore {
	if db == nil {
		panic("moderation: pgx pool required")
	}
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Append(ctx context.Context, r *Record) (string, error) {
	query := `
		INSERT INTO moderation_queue (id, letter_id, reason, flagged_by, flagged_at,
			crisis_level, detected_categories, status, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		r.ID, r.LetterID, r.Reason, r.FlaggedBy, r.FlaggedAt,
		string(r.CrisisLevel), r.DetectedCategories, string(r.Status), r.Action,
	)
	if err != nil {
		return "", fmt.Errorf("moderation: insert record: %w", err)
	}
	return r.ID, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, string(filter.Level))
		where = append(where, fmt.Sprintf("crisis_level = $%d", len(args)))
	}
	query := "SELECT " + recordColumns + " FROM moderation_queue"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.limit(), filter.offset())
	query += fmt.Sprintf(" ORDER BY flagged_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("moderation: list records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("moderation: list records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRow(ctx, "SELECT "+recordColumns+" FROM moderation_queue WHERE id = $1", id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) Resolve(ctx context.Context, id string, res Resolution) (*Record, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	query := `
		UPDATE moderation_queue
		SET status = $2, resolution_notes = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + recordColumns
	row := s.db.QueryRow(ctx, query, id, string(res.Status), res.Notes, res.ResolvedBy, s.now().UTC())
	r, err := scanRecord(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyResolved
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, crisis_level, detected_categories, COUNT(*)
		FROM moderation_queue
		GROUP BY status, crisis_level, detected_categories
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("moderation: stats: %w", err)
	}
	defer rows.Close()

	stats := newStats()
	for rows.Next() {
		var (
			status, level string
			categories    []string
			count         int64
		)
		if err := rows.Scan(&status, &level, &categories, &count); err != nil {
			return Stats{}, fmt.Errorf("moderation: scan stats: %w", err)
		}
		n := int(count)
		stats.Total += n
		stats.ByStatus[status] += n
		stats.ByLevel[level] += n
		for _, c := range categories {
			stats.ByCategory[c] += n
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("moderation: stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r          Record
		level      string
		status     string
		resolvedAt *time.Time
	)
	err := row.Scan(
		&r.ID, &r.LetterID, &r.Reason, &r.FlaggedBy, &r.FlaggedAt, &level,
		&r.DetectedCategories, &status, &r.Action, &r.ResolutionNotes,
		&r.ResolvedBy, &resolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("moderation: scan record: %w", err)
	}
	r.CrisisLevel, _ = crisis.ParseLevel(level)
	r.Status = Status(status)
	r.ResolvedAt = resolvedAt
	return &r, nil
}
