package moderation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store appends records to the moderation queue.
type Store interface {
	Append(ctx context.Context, record *Record) (string, error)
}

// ReviewStore is a Store moderators can browse and resolve.
type ReviewStore interface {
	Store
	List(ctx context.Context, filter Filter) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Resolve(ctx context.Context, id string, res Resolution) (*Record, error)
	Stats(ctx context.Context) (Stats, error)
}

// MemoryStore is an in-process ReviewStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
	now     func() time.Time
}

var _ ReviewStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), now: time.Now}
}

func (s *MemoryStore) Append(_ context.Context, record *Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneRecord(record)
	s.records[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return stored.ID, nil
}

// List returns matching records, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for _, id := range s.order {
		r := s.records[id]
		if filter.matches(r) {
			matched = append(matched, *cloneRecord(r))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].FlaggedAt.After(matched[j].FlaggedAt)
	})

	start := filter.offset()
	if start >= len(matched) {
		return []Record{}, nil
	}
	end := start + filter.limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *MemoryStore) Resolve(_ context.Context, id string, res Resolution) (*Record, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}
	r.apply(res, s.now())
	return cloneRecord(r), nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := newStats()
	for _, r := range s.records {
		stats.add(r.Status, r.CrisisLevel, r.DetectedCategories)
	}
	return stats, nil
}

func cloneRecord(r *Record) *Record {
	out := *r
	out.DetectedCategories = append([]string(nil), r.DetectedCategories...)
	if r.ResolvedAt != nil {
		at := *r.ResolvedAt
		out.ResolvedAt = &at
	}
	return &out
}
