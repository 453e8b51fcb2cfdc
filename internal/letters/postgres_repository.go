package letters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores letters in the letters table.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("letters: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, draft *Draft) (*Letter, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	letter := newLetter(draft, time.Time{})
	query := `
		INSERT INTO letters (id, title, content, category, author_id, anonymous_handle)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		letter.ID,
		letter.Title,
		letter.Content,
		letter.Category,
		letter.AuthorID,
		letter.AnonymousHandle,
	).Scan(&letter.CreatedAt); err != nil {
		return nil, fmt.Errorf("letters: insert failed: %w", err)
	}
	return letter, nil
}

// GetByID fetches a single letter.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Letter, error) {
	query := `
		SELECT id, title, content, category, COALESCE(author_id, ''), anonymous_handle, created_at
		FROM letters
		WHERE id = $1
	`
	var letter Letter
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&letter.ID,
		&letter.Title,
		&letter.Content,
		&letter.Category,
		&letter.AuthorID,
		&letter.AnonymousHandle,
		&letter.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLetterNotFound
		}
		return nil, fmt.Errorf("letters: select failed: %w", err)
	}
	return &letter, nil
}
