package submission

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/whisperbox/internal/gate"
	"github.com/wolfman30/whisperbox/internal/http/middleware"
	"github.com/wolfman30/whisperbox/internal/letters"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

const maxSubmitBody = 64 << 10

// SubmitRequest is the body of POST /letters. The author id always comes
// from the bearer token, never from the body.
type SubmitRequest struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	Category           string `json:"category"`
	AnonymousHandle    string `json:"anonymous_handle"`
	StoreCrisisHistory bool   `json:"store_crisis_history"`
}

// Handler serves the letter submission flow.
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

// Routes covers the pending-ticket endpoints, mounted at /letters/pending.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.Pending)
	r.Post("/{token}/proceed", h.Proceed)
	r.Post("/{token}/abandon", h.Abandon)
	return r
}

// Submit handles POST /letters.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	draft := letters.Draft{
		Title:           req.Title,
		Content:         req.Content,
		Category:        req.Category,
		AnonymousHandle: req.AnonymousHandle,
	}
	if author, ok := middleware.AuthorFromContext(r.Context()); ok {
		draft.AuthorID = author.UserID()
		draft.StoreCrisisHistory = req.StoreCrisisHistory || author.StoreCrisisHistory
		if draft.AnonymousHandle == "" {
			draft.AnonymousHandle = author.Handle
		}
	}

	outcome, err := h.service.Submit(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if outcome.Status == StatusNeedsConfirmation {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

// Pending handles GET /letters/pending/{token}.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.Pending(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// Proceed handles POST /letters/pending/{token}/proceed.
func (h *Handler) Proceed(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.Proceed(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// Abandon handles POST /letters/pending/{token}/abandon.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.Abandon(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case letters.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, gate.ErrTicketNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "pending letter not found or expired"})
	default:
		h.logger.Error("letter submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to submit letter"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
