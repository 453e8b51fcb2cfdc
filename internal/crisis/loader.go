package crisis

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/whisperbox/internal/observability/metrics"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

const (
	defaultRetryInterval = 30 * time.Second
	defaultFetchTimeout  = 5 * time.Second
	loadKey              = "keywords"
)

type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Loader fetches and caches the keyword database. Load never fails: fetch or
// parse errors yield an empty database, which is retried on a later call.
//
// Fetches run detached from the caller's cancellation, bounded by the fetch
// timeout, and outside the mutex. Concurrent loads share one fetch.
type Loader struct {
	source  Source
	logger  *logging.Logger
	metrics *metrics.CrisisMetrics
	group   singleflight.Group

	mu            sync.Mutex
	db            *Database
	lastAttempt   time.Time
	retryInterval time.Duration
	fetchTimeout  time.Duration
	now           func() time.Time
}

// NewLoader creates a loader for source.
func NewLoader(source Source, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{
		source:        source,
		logger:        logger.Component("crisis-loader"),
		retryInterval: defaultRetryInterval,
		fetchTimeout:  defaultFetchTimeout,
		now:           time.Now,
	}
}

// WithMetrics attaches load counters.
func (l *Loader) WithMetrics(m *metrics.CrisisMetrics) *Loader {
	l.metrics = m
	return l
}

// WithRetryInterval sets how long a failed load is reused before refetching.
func (l *Loader) WithRetryInterval(d time.Duration) *Loader {
	if d >= 0 {
		l.retryInterval = d
	}
	return l
}

// WithFetchTimeout bounds every fetch, whatever the source type.
func (l *Loader) WithFetchTimeout(d time.Duration) *Loader {
	if d > 0 {
		l.fetchTimeout = d
	}
	return l
}

// Load returns the cached database, fetching it if needed.
func (l *Loader) Load(ctx context.Context) *Database {
	if db, due := l.current(); !due {
		return db
	}

	v, _, _ := l.group.Do(loadKey, func() (any, error) {
		if db, due := l.current(); !due {
			return db, nil
		}
		next := l.fetch(ctx)
		l.mu.Lock()
		l.db, l.lastAttempt = next, l.now()
		l.mu.Unlock()
		return next, nil
	})
	return v.(*Database)
}

// current returns the held database and whether a fetch is due: nothing
// loaded yet, or an empty database older than the retry interval.
func (l *Loader) current() (*Database, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, true
	}
	return l.db, l.db.Len() == 0 && l.now().Sub(l.lastAttempt) >= l.retryInterval
}

// Reload refetches unconditionally. On failure the previous non-empty
// database stays active.
func (l *Loader) Reload(ctx context.Context) *Database {
	if inv, ok := l.source.(invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			l.logger.Warn("keyword cache invalidation failed", "error", err)
		}
	}
	next := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastAttempt = l.now()
	if next.Len() == 0 && l.db.Len() > 0 {
		return l.db
	}
	l.db = next
	return next
}

// Database implements DatabaseProvider.
func (l *Loader) Database(ctx context.Context) *Database {
	return l.Load(ctx)
}

// fetch reads and parses the source. It touches no loader state.
func (l *Loader) fetch(ctx context.Context) *Database {
	if l.source == nil {
		l.logger.Warn("no keyword source configured; crisis detection disabled")
		l.metrics.ObserveKeywordLoad("no_source", 0)
		return EmptyDatabase()
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.fetchTimeout)
	defer cancel()

	data, err := l.source.Fetch(fetchCtx)
	if err != nil {
		l.logger.Warn("crisis keyword fetch failed; crisis detection disabled", "source", l.source.String(), "error", err)
		l.metrics.ObserveKeywordLoad("fetch_error", 0)
		return EmptyDatabase()
	}

	db, err := ParseDatabase(data)
	if err != nil {
		l.logger.Warn("crisis keyword parse failed; crisis detection disabled", "source", l.source.String(), "error", err)
		l.metrics.ObserveKeywordLoad("parse_error", 0)
		if inv, ok := l.source.(invalidator); ok {
			if err := inv.Invalidate(fetchCtx); err != nil {
				l.logger.Warn("keyword cache invalidation failed", "error", err)
			}
		}
		return EmptyDatabase()
	}

	for _, s := range db.Skipped() {
		l.logger.Warn("skipping invalid crisis category", "category", s.Key, "reason", s.Reason)
	}
	l.logger.Info("crisis keywords loaded", "source", l.source.String(), "categories", db.Len(), "skipped", len(db.Skipped()))
	l.metrics.ObserveKeywordLoad("ok", db.Len())
	return db
}
