package letters

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/whisperbox/pkg/logging"
)

// Published letters never change, so readers may cache them briefly.
const letterCacheControl = "public, max-age=60"

// Handler serves published letters. Author ids never leave it.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger.Component("letters")}
}

// GetLetter handles GET /letters/{id}. Ids that are not UUIDs are rejected
// before the repository is asked.
func (h *Handler) GetLetter(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, errorBody("letter id must be a UUID"))
		return
	}

	letter, err := h.repo.GetByID(r.Context(), id.String())
	switch {
	case errors.Is(err, ErrLetterNotFound):
		respond(w, http.StatusNotFound, errorBody("letter not found"))
	case err != nil:
		h.logger.Error("letter lookup failed", "error", err, "letter_id", id)
		respond(w, http.StatusInternalServerError, errorBody("failed to load letter"))
	default:
		w.Header().Set("Cache-Control", letterCacheControl)
		respond(w, http.StatusOK, letter)
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
