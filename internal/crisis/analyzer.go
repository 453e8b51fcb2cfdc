package crisis

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/whisperbox/internal/observability/metrics"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

var analyzerTracer = otel.Tracer("whisperbox/crisis-analyzer")

// Analyze classifies a title and body against db. It never fails: a nil or
// empty database yields a result with no crisis content.
func Analyze(db *Database, title, content string) *AnalysisResult {
	result := emptyResult()
	if db.Len() == 0 {
		return result
	}

	t := newText(title, content)
	seen := make(map[string]struct{})
	var top *compiledCategory

	for _, c := range db.categories {
		matched := c.match(t)
		if len(matched) == 0 {
			continue
		}

		result.DetectedCategories = append(result.DetectedCategories, DetectedCategory{
			Category:        c.Key,
			Level:           c.Level,
			MatchedKeywords: matched,
		})

		// First seen wins ties.
		if top == nil || c.Level.MoreSevere(top.Level) {
			top = c
		}

		for _, r := range c.Resources {
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			result.Resources = append(result.Resources, r)
		}

		if result.Action == "" || c.Action == ActionShowResourcesImmediately {
			result.Action = c.Action
		}
		result.ShouldNotifyModeration = result.ShouldNotifyModeration || c.NotifyModeration
		result.ShouldStoreFlag = result.ShouldStoreFlag || c.StoreFlag
	}

	if top != nil {
		result.HasCrisisContent = true
		result.Level = top.Level
		result.UserMessage = top.UserMessage
	}
	return result
}

// DatabaseProvider supplies the active keyword database.
type DatabaseProvider interface {
	Database(ctx context.Context) *Database
}

// Analyzer runs Analyze against the provider's current database and records
// the outcome. Letter text is never logged.
type Analyzer struct {
	provider DatabaseProvider
	logger   *logging.Logger
	metrics  *metrics.CrisisMetrics
}

// NewAnalyzer creates an analyzer over provider.
func NewAnalyzer(provider DatabaseProvider, logger *logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Analyzer{provider: provider, logger: logger}
}

// WithMetrics attaches crisis metrics.
func (a *Analyzer) WithMetrics(m *metrics.CrisisMetrics) *Analyzer {
	a.metrics = m
	return a
}

// Database returns the provider's current database.
func (a *Analyzer) Database(ctx context.Context) *Database {
	if a == nil || a.provider == nil {
		return EmptyDatabase()
	}
	return a.provider.Database(ctx)
}

// Analyze classifies a submission.
func (a *Analyzer) Analyze(ctx context.Context, title, content string) *AnalysisResult {
	ctx, span := analyzerTracer.Start(ctx, "crisis.analyze")
	defer span.End()

	db := a.Database(ctx)
	result := Analyze(db, title, content)

	span.SetAttributes(
		attribute.Bool("crisis.detected", result.HasCrisisContent),
		attribute.String("crisis.level", string(result.Level)),
		attribute.Int("crisis.categories", len(result.DetectedCategories)),
		attribute.Int("crisis.database_size", db.Len()),
	)
	a.metrics.ObserveAnalysis(string(result.Level), result.CategoryKeys())

	if result.HasCrisisContent {
		a.logger.Info("crisis analysis complete",
			"level", result.Level,
			"categories", result.CategoryKeys(),
			"notify_moderation", result.ShouldNotifyModeration,
		)
	} else {
		a.logger.Debug("crisis analysis complete", "level", "none")
	}
	return result
}
