package moderation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

// Status is the review state of a moderation record.
type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusAcknowledged Status = "acknowledged"
)

// ParseStatus normalizes s and reports whether it is a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected, StatusAcknowledged:
		return st, true
	}
	return st, false
}

// Terminal reports whether st closes a record.
func (st Status) Terminal() bool {
	return st == StatusApproved || st == StatusRejected || st == StatusAcknowledged
}

const (
	ReasonCrisisCritical = "keyword_crisis_critical"
	ReasonCrisisHigh     = "keyword_crisis_high"

	FlaggedBySystem = "system_keyword_detection"

	ActionReviewAndAcknowledge = "review_and_acknowledge"
)

// Record is a moderation queue entry. It carries category keys only, never
// the letter text or the keywords that matched.
type Record struct {
	ID                 string       `json:"id" dynamodbav:"id"`
	LetterID           string       `json:"letterId" dynamodbav:"letterId"`
	Reason             string       `json:"reason" dynamodbav:"reason"`
	FlaggedBy          string       `json:"flaggedBy" dynamodbav:"flaggedBy"`
	FlaggedAt          time.Time    `json:"flaggedAt" dynamodbav:"flaggedAt"`
	CrisisLevel        crisis.Level `json:"crisisLevel" dynamodbav:"crisisLevel"`
	DetectedCategories []string     `json:"detectedCategories" dynamodbav:"detectedCategories"`
	Status             Status       `json:"status" dynamodbav:"status"`
	Action             string       `json:"action" dynamodbav:"action"`
	ResolutionNotes    string       `json:"resolutionNotes,omitempty" dynamodbav:"resolutionNotes,omitempty"`
	ResolvedBy         string       `json:"resolvedBy,omitempty" dynamodbav:"resolvedBy,omitempty"`
	ResolvedAt         *time.Time   `json:"resolvedAt,omitempty" dynamodbav:"resolvedAt,omitempty"`
}

// NewRecord builds a pending record for a flagged letter.
func NewRecord(result *crisis.AnalysisResult, letterID string, now time.Time) *Record {
	reason := ReasonCrisisHigh
	if result.Level == crisis.LevelCritical {
		reason = ReasonCrisisCritical
	}
	return &Record{
		ID:                 uuid.NewString(),
		LetterID:           letterID,
		Reason:             reason,
		FlaggedBy:          FlaggedBySystem,
		FlaggedAt:          now.UTC(),
		CrisisLevel:        result.Level,
		DetectedCategories: result.CategoryKeys(),
		Status:             StatusPending,
		Action:             ActionReviewAndAcknowledge,
	}
}

// Resolution closes a pending record.
type Resolution struct {
	Status     Status `json:"status"`
	Notes      string `json:"notes"`
	ResolvedBy string `json:"resolvedBy"`
}

// Validate checks that the resolution moves a record to a terminal status.
func (r Resolution) Validate() error {
	if !r.Status.Terminal() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if strings.TrimSpace(r.ResolvedBy) == "" {
		return fmt.Errorf("%w: resolvedBy required", ErrInvalidResolution)
	}
	return nil
}

func (r *Record) apply(res Resolution, now time.Time) {
	at := now.UTC()
	r.Status = res.Status
	r.ResolutionNotes = res.Notes
	r.ResolvedBy = res.ResolvedBy
	r.ResolvedAt = &at
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Status Status
	Level  crisis.Level
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

func (f Filter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

func (f Filter) matches(r *Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Level != crisis.LevelNone && r.CrisisLevel != f.Level {
		return false
	}
	return true
}

// Stats summarizes the queue.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByLevel    map[string]int `json:"byLevel"`
	ByCategory map[string]int `json:"byCategory"`
}

func newStats() Stats {
	return Stats{
		ByStatus:   map[string]int{},
		ByLevel:    map[string]int{},
		ByCategory: map[string]int{},
	}
}

func (s *Stats) add(status Status, level crisis.Level, categories []string) {
	s.Total++
	s.ByStatus[string(status)]++
	s.ByLevel[string(level)]++
	for _, c := range categories {
		s.ByCategory[c]++
	}
}
