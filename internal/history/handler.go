package history

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/whisperbox/internal/http/middleware"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// Handler exposes an author's own history. Mount it behind RequireAuthor.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes is mounted at /me/crisis-history.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/{id}/acknowledge", h.Acknowledge)
	r.Delete("/old", h.ClearOld)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	author, ok := middleware.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	entries, err := h.service.ListForUser(r.Context(), author.UserID())
	if errors.Is(err, ErrUnavailable) {
		writeUnavailable(w)
		return
	}
	if err != nil {
		h.logger.Error("failed to list crisis history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	author, ok := middleware.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	err := h.service.Acknowledge(r.Context(), author.UserID(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
	case errors.Is(err, ErrUnavailable):
		writeUnavailable(w)
	case err != nil:
		h.logger.Error("failed to acknowledge crisis history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to acknowledge"})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) ClearOld(w http.ResponseWriter, r *http.Request) {
	author, ok := middleware.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	n, err := h.service.ClearOld(r.Context(), author.UserID())
	if errors.Is(err, ErrUnavailable) {
		writeUnavailable(w)
		return
	}
	if err != nil {
		h.logger.Error("failed to clear crisis history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

func writeUnavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "crisis history unavailable"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
