package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Insert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Categories = append([]string(nil), e.Categories...)
	s.entries[e.UserID] = append(s.entries[e.UserID], e)
	return nil
}

func (s *MemoryStore) ListForUser(_ context.Context, userID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries[userID]))
	for _, e := range s.entries[userID] {
		e.Categories = append([]string(nil), e.Categories...)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Acknowledge(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries[userID] {
		if s.entries[userID][i].ID == id {
			s.entries[userID][i].Acknowledged = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteBefore(_ context.Context, userID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[userID][:0]
	var removed int64
	for _, e := range s.entries[userID] {
		if e.DetectedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries[userID] = kept
	return removed, nil
}
