// Package approvals serves the token-addressed page where a customer accepts
// or declines a price adjustment.
package approvals

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// BookingApprovals is the slice of the booking service this page needs.
type BookingApprovals interface {
	PendingApproval(ctx context.Context, token string) (*bookings.Booking, error)
	ResolveApproval(ctx context.Context, token string, approved bool, customerNotes string) (*bookings.Booking, error)
}

// View is the response of GET /customer-approval/{token}.
type View struct {
	BookingID     string  `json:"booking_id"`
	OriginalPrice float64 `json:"original_price"`
	AdjustedPrice float64 `json:"adjusted_price"`
	PriceIncrease float64 `json:"price_increase"`
	AdminNotes    string  `json:"admin_notes"`
	PickupDate    string  `json:"pickup_date"`
	PickupTime    string  `json:"pickup_time"`
	Address       string  `json:"address"`
}

// Answer is the body of POST /customer-approval/{token}.
type Answer struct {
	Approved      *bool  `json:"approved"`
	CustomerNotes string `json:"customer_notes"`
}

// Result is returned after the customer answers.
type Result struct {
	BookingID string          `json:"booking_id"`
	Status    bookings.Status `json:"status"`
	Message   string          `json:"message"`
}

type Handler struct {
	bookings BookingApprovals
	logger   *logging.Logger
}

func NewHandler(b BookingApprovals, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{bookings: b, logger: logger}
}

// Get handles GET /api/customer-approval/{token}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.PendingApproval(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, viewFor(b))
}

// Respond handles POST /api/customer-approval/{token}.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var ans Answer
	if err := httpjson.Decode(w, r, &ans); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if ans.Approved == nil {
		httpjson.Error(w, http.StatusBadRequest, "approved is required")
		return
	}
	b, err := h.bookings.ResolveApproval(r.Context(), chi.URLParam(r, "token"), *ans.Approved, ans.CustomerNotes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	msg := "Thanks! Your pickup is confirmed at the updated price."
	if !*ans.Approved {
		msg = "Your booking has been cancelled. We're sorry we couldn't work it out."
	}
	httpjson.Write(w, http.StatusOK, Result{BookingID: b.ID, Status: b.Status, Message: msg})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, bookings.ErrTokenNotFound) {
		httpjson.Error(w, http.StatusNotFound, "approval request not found or already answered")
		return
	}
	bookings.WriteError(w, h.logger, err)
}

func viewFor(b *bookings.Booking) View {
	v := View{
		BookingID:  b.ID,
		AdminNotes: b.AdminNotes,
		PickupDate: b.PickupDate,
		PickupTime: b.PickupTime,
		Address:    b.Address,
	}
	if b.OriginalPrice != nil {
		v.OriginalPrice = *b.OriginalPrice
	}
	if b.AdjustedPrice != nil {
		v.AdjustedPrice = *b.AdjustedPrice
	}
	v.PriceIncrease = decimal.NewFromFloat(v.AdjustedPrice).Sub(decimal.NewFromFloat(v.OriginalPrice)).Round(2).InexactFloat64()
	return v
}
