// Package submission runs a letter from draft to post: it validates the
// draft, analyzes it for crisis content, holds it behind the resource prompt
// when needed, then persists the letter and hands the analysis to the
// moderation queue and the author's private history.
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/gate"
	"github.com/wolfman30/whisperbox/internal/letters"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// AbandonMessage is shown when the writer closes the prompt without posting.
const AbandonMessage = "Thank you for considering reaching out. Help is available whenever you need it."

// Status is the state a submission ended in.
type Status string

const (
	StatusPosted            Status = "posted"
	StatusNeedsConfirmation Status = "needs_confirmation"
	StatusAbandoned         Status = "abandoned"
)

// ErrMissingRepository is returned when no letter repository is configured.
var ErrMissingRepository = errors.New("submission: letter repository required")

// Analyzer classifies a title and body.
type Analyzer interface {
	Analyze(ctx context.Context, title, content string) *crisis.AnalysisResult
}

// ModerationQueue accepts flagged letters. *moderation.Writer satisfies it.
type ModerationQueue interface {
	EnqueueIfFlagged(ctx context.Context, result *crisis.AnalysisResult, letterID string) (string, bool)
}

// HistoryRecorder stores the author's private crisis flag. *history.Service satisfies it.
type HistoryRecorder interface {
	StoreFlag(ctx context.Context, userID string, optedIn bool, letterID string, result *crisis.AnalysisResult) bool
}

// Outcome is what the writer sees after a submit, proceed or abandon.
type Outcome struct {
	Status           Status          `json:"status"`
	Letter           *letters.Letter `json:"letter,omitempty"`
	ModerationQueued bool            `json:"moderationQueued,omitempty"`
	Token            string          `json:"token,omitempty"`
	ExpiresAt        *time.Time      `json:"expiresAt,omitempty"`
	View             *gate.View      `json:"view,omitempty"`
	Message          string          `json:"message,omitempty"`
}

// Service coordinates one submission.
type Service struct {
	analyzer   Analyzer
	gate       *gate.Gate
	letters    letters.Repository
	moderation ModerationQueue
	history    HistoryRecorder
	logger     *logging.Logger
}

// NewService wires the required collaborators. A nil analyzer posts every
// draft unprompted; a nil gate fails open.
func NewService(analyzer Analyzer, g *gate.Gate, repo letters.Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		analyzer: analyzer,
		gate:     g,
		letters:  repo,
		logger:   logger.Component("submission"),
	}
}

// WithModeration attaches the moderation queue.
func (s *Service) WithModeration(q ModerationQueue) *Service {
	s.moderation = q
	return s
}

// WithHistory attaches the private history recorder.
func (s *Service) WithHistory(h HistoryRecorder) *Service {
	s.history = h
	return s
}

// Submit validates and analyzes draft. It posts immediately when nothing is
// detected, otherwise it returns a needs_confirmation outcome with the
// resource prompt and a ticket token.
func (s *Service) Submit(ctx context.Context, draft letters.Draft) (*Outcome, error) {
	if s.letters == nil {
		return nil, ErrMissingRepository
	}
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	result := s.analyze(ctx, draft)

	var outcome *Outcome
	ticket, err := s.gate.PresentIfNeeded(ctx, result, draft, func(ctx context.Context) error {
		posted, err := s.post(ctx, draft, result)
		outcome = posted
		return err
	})
	if err != nil {
		return nil, err
	}
	if ticket != nil {
		view := ticket.View
		expires := ticket.ExpiresAt
		return &Outcome{
			Status:    StatusNeedsConfirmation,
			Token:     ticket.Token,
			ExpiresAt: &expires,
			View:      &view,
		}, nil
	}
	return outcome, nil
}

// Pending returns the prompt for a held draft.
func (s *Service) Pending(ctx context.Context, token string) (*Outcome, error) {
	ticket, err := s.gate.Ticket(ctx, token)
	if err != nil {
		return nil, err
	}
	expires := ticket.ExpiresAt
	return &Outcome{
		Status:    StatusNeedsConfirmation,
		Token:     ticket.Token,
		ExpiresAt: &expires,
		View:      &ticket.View,
	}, nil
}

// Proceed posts a held draft after the writer has seen the resources.
func (s *Service) Proceed(ctx context.Context, token string) (*Outcome, error) {
	var outcome *Outcome
	err := s.gate.Resolve(ctx, token, gate.DecisionProceed, func(ctx context.Context, held *gate.Held) error {
		var draft letters.Draft
		if err := held.DecodeDraft(&draft); err != nil {
			return err
		}
		result := held.Result
		posted, err := s.post(ctx, draft, &result)
		outcome = posted
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Abandon discards a held draft.
func (s *Service) Abandon(ctx context.Context, token string) (*Outcome, error) {
	if err := s.gate.Resolve(ctx, token, gate.DecisionAbandon, nil); err != nil {
		return nil, err
	}
	return &Outcome{Status: StatusAbandoned, Message: AbandonMessage}, nil
}

func (s *Service) analyze(ctx context.Context, draft letters.Draft) *crisis.AnalysisResult {
	if s.analyzer == nil {
		return nil
	}
	return s.analyzer.Analyze(ctx, draft.Title, draft.Content)
}

func (s *Service) post(ctx context.Context, draft letters.Draft, result *crisis.AnalysisResult) (*Outcome, error) {
	if s.letters == nil {
		return nil, ErrMissingRepository
	}
	letter, err := s.letters.Create(ctx, &draft)
	if err != nil {
		return nil, err
	}
	s.logger.Info("letter posted", "letter_id", letter.ID, "category", letter.Category)

	outcome := &Outcome{Status: StatusPosted, Letter: letter}
	if result == nil {
		return outcome, nil
	}
	if s.moderation != nil {
		_, outcome.ModerationQueued = s.moderation.EnqueueIfFlagged(ctx, result, letter.ID)
	}
	if s.history != nil {
		s.history.StoreFlag(ctx, draft.AuthorID, draft.StoreCrisisHistory, letter.ID, result)
	}
	return outcome, nil
}
