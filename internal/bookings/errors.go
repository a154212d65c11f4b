package bookings

import "errors"

var (
	// ErrBookingNotFound is returned when a booking is not found
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotTaken is returned when the pickup window already has a booking
	ErrSlotTaken = errors.New("time slot is already booked")

	// ErrCurbsideRequired is returned when the customer has not confirmed curbside staging
	ErrCurbsideRequired = errors.New("curbside placement must be confirmed")

	// ErrMissingField is returned when a required booking field is empty
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidPaymentMethod is returned for payment methods other than stripe and venmo
	ErrInvalidPaymentMethod = errors.New("payment_method must be stripe or venmo")

	// ErrQuoteRejected is returned when booking against a rejected quote
	ErrQuoteRejected = errors.New("quote was rejected and cannot be booked")

	// ErrInvalidTransition is returned for status changes the workflow does not allow
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidUpdate is returned for malformed admin updates
	ErrInvalidUpdate = errors.New("invalid booking update")

	// ErrTokenNotFound is returned for unknown or already used approval tokens
	ErrTokenNotFound = errors.New("approval request not found")
)
