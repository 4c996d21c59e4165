package api

import (
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Compass/internal/recommend"
)

type CatalogHandler struct {
	svc    *recommend.Service
	logger *slog.Logger
}

func NewCatalogHandler(svc *recommend.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: logger}
}

func (h *CatalogHandler) Questions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.svc.Questions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *CatalogHandler) Majors(w http.ResponseWriter, r *http.Request) {
	majors, err := h.svc.Majors(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, majors)
}
