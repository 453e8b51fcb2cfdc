package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/observability/metrics"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// DefaultTTL bounds how long a suspended draft waits for a decision.
const DefaultTTL = 30 * time.Minute

// Decision is the writer's answer to the resource prompt.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionAbandon Decision = "abandon"
)

// ParseDecision accepts "proceed" or "abandon" in any case.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionProceed, DecisionAbandon:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
}

// Ticket identifies a suspended submission and carries the prompt to render.
type Ticket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	View      View      `json:"view"`
}

// Gate decides whether a submission may continue or must wait for the writer.
type Gate struct {
	store   Store
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.CrisisMetrics
	now     func() time.Time
	token   func() string
}

// New creates a gate over store. A nil store makes every check fail open.
func New(store Store, ttl time.Duration, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{
		store:  store,
		ttl:    ttl,
		logger: logger.Component("gate"),
		now:    func() time.Time { return time.Now().UTC() },
		token:  uuid.NewString,
	}
}

// WithMetrics attaches gate decision counters.
func (g *Gate) WithMetrics(m *metrics.CrisisMetrics) *Gate {
	g.metrics = m
	return g
}

// PresentIfNeeded runs onProceed straight away when result carries no crisis
// content or the draft cannot be held. Otherwise it holds draft and returns
// the ticket to show; onProceed is not called.
func (g *Gate) PresentIfNeeded(ctx context.Context, result *crisis.AnalysisResult, draft any, onProceed func(context.Context) error) (*Ticket, error) {
	if result == nil || !result.HasCrisisContent {
		return nil, onProceed(ctx)
	}
	if g == nil || g.store == nil {
		return nil, g.failOpen(ctx, onProceed, errors.New("no pending store configured"))
	}

	raw, err := json.Marshal(draft)
	if err != nil {
		return nil, g.failOpen(ctx, onProceed, err)
	}

	now := g.now()
	held := &Held{
		Token:     g.token(),
		Draft:     raw,
		Result:    *result,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.store.Put(ctx, held, g.ttl); err != nil {
		return nil, g.failOpen(ctx, onProceed, err)
	}

	g.metrics.ObserveGate(metrics.GateShown)
	g.logger.Info("submission held for crisis resources",
		"token", held.Token,
		"level", result.Level,
		"categories", result.CategoryKeys(),
	)
	return &Ticket{Token: held.Token, ExpiresAt: held.ExpiresAt, View: BuildView(result)}, nil
}

// Ticket returns the prompt for a still-pending token without resolving it.
func (g *Gate) Ticket(ctx context.Context, token string) (*Ticket, error) {
	if g == nil || g.store == nil {
		return nil, ErrTicketNotFound
	}
	held, err := g.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Ticket{Token: held.Token, ExpiresAt: held.ExpiresAt, View: BuildView(&held.Result)}, nil
}

// Resolve settles a ticket once. DecisionProceed passes the held draft to
// onProceed; if onProceed fails the draft is held again so the writer can
// retry. DecisionAbandon discards the draft.
func (g *Gate) Resolve(ctx context.Context, token string, decision Decision, onProceed func(context.Context, *Held) error) error {
	if decision != DecisionProceed && decision != DecisionAbandon {
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if g == nil || g.store == nil {
		return ErrTicketNotFound
	}

	held, err := g.store.Take(ctx, token)
	if err != nil {
		return err
	}

	if decision == DecisionAbandon {
		g.metrics.ObserveGate(metrics.GateAbandoned)
		g.logger.Info("held submission abandoned", "token", token)
		return nil
	}

	if err := onProceed(ctx, held); err != nil {
		if remaining := held.ExpiresAt.Sub(g.now()); remaining > 0 {
			if putErr := g.store.Put(context.WithoutCancel(ctx), held, remaining); putErr != nil {
				g.logger.Error("failed to re-hold submission after proceed error", "token", token, "error", putErr)
			}
		}
		return err
	}
	g.metrics.ObserveGate(metrics.GateProceeded)
	g.logger.Info("held submission proceeded", "token", token)
	return nil
}

func (g *Gate) failOpen(ctx context.Context, onProceed func(context.Context) error, cause error) error {
	if g != nil {
		g.metrics.ObserveGate(metrics.GateFailOpen)
		g.logger.Warn("resource prompt unavailable; continuing submission", "error", cause)
	} else {
		logging.Default().Warn("resource prompt unavailable; continuing submission", "error", cause)
	}
	return onProceed(ctx)
}
