package payments

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Handler serves the customer payment endpoints.
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

// CreateCheckoutSession handles POST /api/payments/create-checkout-session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.svc.CreateCheckout(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

// GetStatus handles GET /api/payments/status/{session_id}.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Status(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

// GetVenmo handles GET /api/payments/venmo/{booking_id}.
func (h *Handler) GetVenmo(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Venmo(r.Context(), chi.URLParam(r, "booking_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errorsIsNotFound(err):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPaymentNotAllowed), errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrBookingClosed):
		httpjson.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidOrigin), errors.Is(err, bookings.ErrMissingField):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTooManyAttempts):
		httpjson.Error(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error("payment request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "payment provider error")
	}
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, bookings.ErrBookingNotFound) ||
		errors.Is(err, quotes.ErrQuoteNotFound)
}
