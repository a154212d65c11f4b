package bookings

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Handler serves the public booking endpoints.
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

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.svc.Create(r.Context(), req)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, b)
}

// GetBooking handles GET /api/bookings/{id}.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, b)
}

// ErrorStatus maps booking, scheduling and quote errors to HTTP status codes.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrTokenNotFound), errors.Is(err, quotes.ErrQuoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSlotTaken), errors.Is(err, scheduling.ErrSlotHeld),
		errors.Is(err, ErrQuoteRejected), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrCurbsideRequired),
		errors.Is(err, ErrInvalidPaymentMethod), errors.Is(err, ErrInvalidUpdate),
		errors.Is(err, scheduling.ErrInvalidDate), errors.Is(err, scheduling.ErrInvalidSlot),
		errors.Is(err, scheduling.ErrRestrictedDay), errors.Is(err, scheduling.ErrPastDate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the mapped status with a JSON error body.
func WriteError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("booking request failed", "error", err)
		}
		httpjson.Error(w, status, "failed to process booking")
		return
	}
	httpjson.Error(w, status, err.Error())
}
