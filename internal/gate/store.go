package gate

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

// Held is a suspended submission.
type Held struct {
	Token     string                `json:"token"`
	Draft     json.RawMessage       `json:"draft"`
	Result    crisis.AnalysisResult `json:"result"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// DecodeDraft unmarshals the held draft into v.
func (h *Held) DecodeDraft(v any) error {
	return json.Unmarshal(h.Draft, v)
}

// Store holds pending drafts. Take must remove the entry so a ticket
// resolves at most once; missing or expired tokens yield ErrTicketNotFound.
type Store interface {
	Put(ctx context.Context, held *Held, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Held, error)
	Take(ctx context.Context, token string) (*Held, error)
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	held    Held
	expires time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, held *Held, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[held.Token] = memoryItem{held: *held, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Held, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[token]
	if !ok || !s.now().Before(item.expires) {
		return nil, ErrTicketNotFound
	}
	held := item.held
	return &held, nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (*Held, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[token]
	delete(s.items, token)
	if !ok || !s.now().Before(item.expires) {
		return nil, ErrTicketNotFound
	}
	held := item.held
	return &held, nil
}

// Len reports the number of unexpired entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.items)
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for token, item := range s.items {
		if !now.Before(item.expires) {
			delete(s.items, token)
		}
	}
}
