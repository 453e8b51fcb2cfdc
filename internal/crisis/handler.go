package crisis

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/whisperbox/pkg/logging"
)

const maxAnalyzeBody = 64 << 10

// Reloader refreshes the active keyword database.
type Reloader interface {
	Reload(ctx context.Context) *Database
}

// Handler exposes the analyzer and resource catalogue over HTTP.
type Handler struct {
	analyzer *Analyzer
	reloader Reloader
	logger   *logging.Logger
}

// NewHandler creates a crisis HTTP handler. reloader may be nil.
func NewHandler(analyzer *Analyzer, reloader Reloader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{analyzer: analyzer, reloader: reloader, logger: logger}
}

// Routes returns the public crisis routes, mounted under /crisis.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyze", h.Analyze)
	r.Get("/resources", h.Resources)
	r.Get("/categories", h.Categories)
	return r
}

// AnalyzeRequest is a draft to preview.
type AnalyzeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Analyze previews the classification of a draft without storing anything.
// POST /crisis/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, h.analyzer.Analyze(r.Context(), req.Title, req.Content))
}

// Resources lists the resources prioritized for a level.
// GET /crisis/resources?level=high
func (h *Handler) Resources(w http.ResponseWriter, r *http.Request) {
	level, ok := ParseLevel(r.URL.Query().Get("level"))
	if !ok {
		writeError(w, http.StatusBadRequest, "level must be one of critical, high, medium, low")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":     level,
		"resources": ResourcesByLevel(h.analyzer.Database(r.Context()), level),
	})
}

// CategorySummary describes a loaded category without its keyword list.
type CategorySummary struct {
	Key              string `json:"key"`
	DisplayName      string `json:"displayName"`
	Level            Level  `json:"level"`
	ResourceCount    int    `json:"resourceCount"`
	NotifyModeration bool   `json:"notifyModeration"`
}

// Categories lists the loaded categories.
// GET /crisis/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats := h.analyzer.Database(r.Context()).Categories()
	out := make([]CategorySummary, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategorySummary{
			Key:              c.Key,
			DisplayName:      DisplayName(c.Key),
			Level:            c.Level,
			ResourceCount:    len(c.Resources),
			NotifyModeration: c.NotifyModeration,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// Reload refetches the keyword database.
// POST /admin/crisis/reload
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeError(w, http.StatusNotImplemented, "keyword reload not configured")
		return
	}
	db := h.reloader.Reload(r.Context())
	h.logger.Info("crisis keywords reloaded", "categories", db.Len())
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": db.Len(),
		"skipped":    len(db.Skipped()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
