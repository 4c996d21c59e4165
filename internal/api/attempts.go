package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Compass/internal/recommend"
	"github.com/MikeSquared-Agency/Compass/internal/scoring"
)

type AttemptsHandler struct {
	svc    *recommend.Service
	logger *slog.Logger
}

func NewAttemptsHandler(svc *recommend.Service, logger *slog.Logger) *AttemptsHandler {
	return &AttemptsHandler{svc: svc, logger: logger}
}

// SubmitRequest maps question id to the chosen option id.
type SubmitRequest struct {
	Answers scoring.Answers `json:"answers"`
}

func (h *AttemptsHandler) Start(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.StartAttempt(r.Context(), studentID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Submit scores a test. Under /attempts/{id}/submit it completes that
// attempt; under /attempts/submit it creates one.
func (h *AttemptsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var attemptID *uuid.UUID
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attempt id"})
			return
		}
		attemptID = &id
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rec, err := h.svc.SubmitTest(r.Context(), studentID(r), attemptID, req.Answers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AttemptsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	attempts, err := h.svc.History(r.Context(), studentID(r), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *AttemptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attempt id"})
		return
	}
	res, err := h.svc.GetResult(r.Context(), studentID(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return 0, 0, false
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
