package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Compass/internal/recommend"
	"github.com/MikeSquared-Agency/Compass/internal/store"
)

type AdminHandler struct {
	svc    *recommend.Service
	logger *slog.Logger
}

func NewAdminHandler(svc *recommend.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Attempts lists attempts of all students. Optional query parameters:
// status, student_id, limit, offset.
func (h *AdminHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	filter := store.AttemptFilter{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := store.AttemptStatus(v)
		if status != store.StatusInProgress && status != store.StatusCompleted {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	if v := q.Get("student_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student_id"})
			return
		}
		filter.StudentID = &id
	}

	attempts, err := h.svc.Attempts(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *AdminHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attempt id"})
		return
	}
	res, err := h.svc.AttemptResult(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
