package bookings

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusScheduled               Status = "scheduled"
	StatusInProgress              Status = "in_progress"
	StatusCompleted               Status = "completed"
	StatusCancelled               Status = "cancelled"
	StatusPendingCustomerApproval Status = "pending_customer_approval"
)

// Payment methods and states.
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodVenmo  = "venmo"

	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

var transitions = map[Status][]Status{
	StatusScheduled:               {StatusInProgress, StatusCancelled},
	StatusInProgress:              {StatusCompleted, StatusScheduled, StatusCancelled},
	StatusPendingCustomerApproval: {StatusCancelled},
}

// CanTransition reports whether an admin may move a booking from one status to another.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Completion records the proof-of-pickup photo.
type Completion struct {
	PhotoKey    string    `json:"photo_key,omitempty"`
	Note        string    `json:"note,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Booking is a scheduled pickup.
type Booking struct {
	ID                       string      `json:"id"`
	QuoteID                  string      `json:"quote_id"`
	PickupDate               string      `json:"pickup_date"`
	PickupTime               string      `json:"pickup_time"`
	Address                  string      `json:"address"`
	Phone                    string      `json:"phone"`
	SpecialInstructions      string      `json:"special_instructions,omitempty"`
	CurbsideConfirmed        bool        `json:"curbside_confirmed"`
	SMSNotifications         bool        `json:"sms_notifications"`
	PaymentMethod            string      `json:"payment_method"`
	PaymentStatus            string      `json:"payment_status"`
	Status                   Status      `json:"status"`
	AdminNotes               string      `json:"admin_notes,omitempty"`
	Completion               *Completion `json:"completion,omitempty"`
	RequiresCustomerApproval bool        `json:"requires_customer_approval"`
	CustomerApprovalToken    string      `json:"-"`
	OriginalPrice            *float64    `json:"original_price,omitempty"`
	AdjustedPrice            *float64    `json:"adjusted_price,omitempty"`
	CustomerNotes            string      `json:"customer_notes,omitempty"`
	CreatedAt                time.Time   `json:"created_at"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

// Active reports whether the booking holds its slot.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

// Completable reports whether the job can be marked completed.
func (b *Booking) Completable() bool {
	return b.Status != StatusCancelled && b.Status != StatusPendingCustomerApproval
}

// ShortID is the reference shown to customers.
func (b *Booking) ShortID() string {
	if len(b.ID) <= 8 {
		return b.ID
	}
	return b.ID[:8]
}

// CreateBookingRequest is the body of POST /bookings.
type CreateBookingRequest struct {
	QuoteID             string `json:"quote_id"`
	PickupDate          string `json:"pickup_date"`
	PickupTime          string `json:"pickup_time"`
	Address             string `json:"address"`
	Phone               string `json:"phone"`
	SpecialInstructions string `json:"special_instructions"`
	CurbsideConfirmed   bool   `json:"curbside_confirmed"`
	SMSNotifications    *bool  `json:"sms_notifications"`
	PaymentMethod       string `json:"payment_method"`
}

// Validate trims fields and checks the ones that do not need the store.
func (r *CreateBookingRequest) Validate() error {
	r.QuoteID = strings.TrimSpace(r.QuoteID)
	r.PickupDate = strings.TrimSpace(r.PickupDate)
	r.PickupTime = strings.TrimSpace(r.PickupTime)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
	r.SpecialInstructions = strings.TrimSpace(r.SpecialInstructions)
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))

	required := []struct{ name, value string }{
		{"quote_id", r.QuoteID},
		{"pickup_date", r.PickupDate},
		{"pickup_time", r.PickupTime},
		{"address", r.Address},
		{"phone", r.Phone},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if !r.CurbsideConfirmed {
		return ErrCurbsideRequired
	}
	switch r.PaymentMethod {
	case "":
		r.PaymentMethod = PaymentMethodStripe
	case PaymentMethodStripe, PaymentMethodVenmo:
	default:
		return ErrInvalidPaymentMethod
	}
	return nil
}

// UpdateRequest is the body of PATCH /admin/bookings/{id}.
type UpdateRequest struct {
	Status        *Status `json:"status,omitempty"`
	AdminNotes    *string `json:"admin_notes,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	PickupDate    *string `json:"pickup_date,omitempty"`
	PickupTime    *string `json:"pickup_time,omitempty"`
}

// Empty reports whether the update changes nothing.
func (r UpdateRequest) Empty() bool {
	return r.Status == nil && r.AdminNotes == nil && r.PaymentStatus == nil && r.PickupDate == nil && r.PickupTime == nil
}

// ListFilter narrows booking listings by pickup date.
type ListFilter struct {
	StartDate        string
	EndDate          string
	IncludeCancelled bool
}

func (f ListFilter) matches(b *Booking) bool {
	if !f.IncludeCancelled && !b.Active() {
		return false
	}
	if f.StartDate != "" && b.PickupDate < f.StartDate {
		return false
	}
	if f.EndDate != "" && b.PickupDate > f.EndDate {
		return false
	}
	return true
}
