package letters

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for letter storage
type Repository interface {
	Create(ctx context.Context, draft *Draft) (*Letter, error)
	GetByID(ctx context.Context, id string) (*Letter, error)
}

// InMemoryRepository keeps letters in a map. Used in development and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	letters map[string]*Letter
	order   []string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{letters: make(map[string]*Letter)}
}

// Create validates the draft and stores it as a letter.
func (r *InMemoryRepository) Create(ctx context.Context, draft *Draft) (*Letter, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	letter := newLetter(draft, time.Now().UTC())

	r.mu.Lock()
	r.letters[letter.ID] = letter
	r.order = append(r.order, letter.ID)
	r.mu.Unlock()

	cp := *letter
	return &cp, nil
}

// GetByID retrieves a letter by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Letter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	letter, ok := r.letters[id]
	if !ok {
		return nil, ErrLetterNotFound
	}
	cp := *letter
	return &cp, nil
}

// Len returns the number of stored letters.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func newLetter(d *Draft, now time.Time) *Letter {
	return &Letter{
		ID:              uuid.New().String(),
		Title:           d.Title,
		Content:         d.Content,
		Category:        d.Category,
		AuthorID:        d.AuthorID,
		AnonymousHandle: d.AnonymousHandle,
		CreatedAt:       now,
	}
}
