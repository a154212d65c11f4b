package events

import "time"

// Event types written to the outbox.
const (
	TypeBookingCreated           = "booking.created.v1"
	TypeQuoteReviewRequested     = "quote.review_requested.v1"
	TypePriceAdjustmentRequested = "booking.price_adjustment_requested.v1"
	TypePriceAdjustmentAnswered  = "booking.price_adjustment_answered.v1"
	TypePaymentSucceeded         = "payment.succeeded.v1"
)

type BookingCreatedV1 struct {
	BookingID        string    `json:"booking_id"`
	QuoteID          string    `json:"quote_id"`
	PickupDate       string    `json:"pickup_date"`
	PickupTime       string    `json:"pickup_time"`
	Address          string    `json:"address"`
	Phone            string    `json:"phone"`
	SMSNotifications bool      `json:"sms_notifications"`
	PaymentMethod    string    `json:"payment_method"`
	TotalPrice       float64   `json:"total_price"`
	RequiresApproval bool      `json:"requires_approval"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type QuoteReviewRequestedV1 struct {
	QuoteID      string    `json:"quote_id"`
	ScaleLevel   int       `json:"scale_level"`
	TotalPrice   float64   `json:"total_price"`
	HighPriority bool      `json:"high_priority"`
	Source       string    `json:"source"`
	Description  string    `json:"description,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type PriceAdjustmentRequestedV1 struct {
	BookingID     string    `json:"booking_id"`
	Phone         string    `json:"phone"`
	Token         string    `json:"token"`
	OriginalPrice float64   `json:"original_price"`
	AdjustedPrice float64   `json:"adjusted_price"`
	AdminNotes    string    `json:"admin_notes,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type PriceAdjustmentAnsweredV1 struct {
	BookingID     string    `json:"booking_id"`
	Approved      bool      `json:"approved"`
	AdjustedPrice float64   `json:"adjusted_price"`
	CustomerNotes string    `json:"customer_notes,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type PaymentSucceededV1 struct {
	EventID     string    `json:"event_id"`
	BookingID   string    `json:"booking_id"`
	SessionID   string    `json:"session_id"`
	Provider    string    `json:"provider"`
	AmountCents int64     `json:"amount_cents"`
	Phone       string    `json:"phone,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
