package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/history"
	httpmiddleware "github.com/wolfman30/whisperbox/internal/http/middleware"
	"github.com/wolfman30/whisperbox/internal/letters"
	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/internal/observability/metrics"
	"github.com/wolfman30/whisperbox/internal/submission"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	CrisisHandler     *crisis.Handler
	SubmissionHandler *submission.Handler
	LettersHandler    *letters.Handler
	HistoryHandler    *history.Handler
	ModerationHandler *moderation.Handler

	AdminAuthSecret    string
	UserAuthSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	MetricsHandler http.Handler
	StatsGatherer  prometheus.Gatherer
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.CrisisHandler != nil {
		r.Mount("/crisis", cfg.CrisisHandler.Routes())
	}

	r.Route("/letters", func(lr chi.Router) {
		lr.Use(httpmiddleware.OptionalAuthor(cfg.UserAuthSecret))
		if cfg.SubmissionHandler != nil {
			lr.Group(func(submit chi.Router) {
				if cfg.RateLimitRPS > 0 {
					submit.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
				}
				submit.Post("/", cfg.SubmissionHandler.Submit)
				submit.Mount("/pending", cfg.SubmissionHandler.Routes())
			})
		}
		if cfg.LettersHandler != nil {
			lr.Get("/{id}", cfg.LettersHandler.GetLetter)
		}
	})

	if cfg.HistoryHandler != nil {
		r.Route("/me", func(me chi.Router) {
			me.Use(httpmiddleware.RequireAuthor(cfg.UserAuthSecret))
			me.Mount("/crisis-history", cfg.HistoryHandler.Routes())
		})
	}

	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.ModerationHandler != nil {
				admin.Mount("/moderation", cfg.ModerationHandler.Routes())
			}
			if cfg.CrisisHandler != nil {
				admin.Post("/crisis/reload", cfg.CrisisHandler.Reload)
			}
			admin.Get("/detection-stats", detectionStats(cfg.StatsGatherer))
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// detectionStats reports gate and moderation totals read from the registry.
func detectionStats(gatherer prometheus.Gatherer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot(gatherer))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
