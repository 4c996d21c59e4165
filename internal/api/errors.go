package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Compass/internal/catalog"
	"github.com/MikeSquared-Agency/Compass/internal/recommend"
	"github.com/MikeSquared-Agency/Compass/internal/scoring"
	"github.com/MikeSquared-Agency/Compass/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var unknown *scoring.UnknownOptionError
	var perr *recommend.PersistenceError

	switch {
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":       "unknown option",
			"question_id": unknown.QuestionID,
			"option_id":   unknown.OptionID,
		})
	case errors.Is(err, recommend.ErrNoAnswers):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, scoring.ErrNoMajorsAvailable), errors.Is(err, catalog.ErrInvalidCatalog):
		logger.Error("catalog cannot produce a recommendation", "error", err)
		writeJSON(w, http.StatusPreconditionFailed, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrAttemptCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrAttemptNotFound), errors.Is(err, recommend.ErrAttemptNotCompleted):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &perr):
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":     "could not save result, try again",
			"retryable": perr.Retryable(),
		})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
