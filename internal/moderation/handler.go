package moderation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/http/middleware"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// Handler serves the moderator review API. Mount it behind AdminJWT.
type Handler struct {
	store  ReviewStore
	logger *logging.Logger
}

// NewHandler creates a moderation review handler.
func NewHandler(store ReviewStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns the review routes, mounted under /admin/moderation.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/resolve", h.Resolve)
	return r
}

// List returns queued records.
// GET /admin/moderation?status=pending&level=critical&limit=50&offset=0
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter Filter
	if s := q.Get("status"); s != "" {
		status, ok := ParseStatus(s)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = status
	}
	if l := q.Get("level"); l != "" {
		level, ok := crisis.ParseLevel(l)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown level")
			return
		}
		filter.Level = level
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list moderation records", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

// Get returns one record.
// GET /admin/moderation/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get moderation record", "record_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ResolveRequest is the body of a resolve call.
type ResolveRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Resolve closes a pending record. The resolver is the admin token subject.
// POST /admin/moderation/{id}/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status, _ := ParseStatus(req.Status)

	resolvedBy := "admin"
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		resolvedBy = claims.Subject
	}

	record, err := h.store.Resolve(r.Context(), id, Resolution{Status: status, Notes: req.Notes, ResolvedBy: resolvedBy})
	switch {
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidResolution):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
		return
	case errors.Is(err, ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "record already resolved")
		return
	case err != nil:
		h.logger.Error("failed to resolve moderation record", "record_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.logger.Info("moderation record resolved", "record_id", id, "status", record.Status, "resolved_by", resolvedBy)
	writeJSON(w, http.StatusOK, record)
}

// Stats summarizes the queue.
// GET /admin/moderation/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute moderation stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
