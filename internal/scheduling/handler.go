package scheduling

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Handler serves the public availability endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// GetDay handles GET /api/availability/{date}.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Day(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

// GetRange handles GET /api/availability-range.
func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	if start == "" || end == "" {
		httpjson.Error(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	out, err := h.svc.Range(r.Context(), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidRange) {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("availability lookup failed", "error", err)
	httpjson.Error(w, http.StatusInternalServerError, "failed to load availability")
}
