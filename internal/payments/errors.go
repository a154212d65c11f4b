package payments

import "errors"

var (
	// ErrSessionNotFound is returned for unknown checkout sessions
	ErrSessionNotFound = errors.New("payment session not found")

	// ErrPaymentNotAllowed is returned while the quote still needs admin approval or was rejected
	ErrPaymentNotAllowed = errors.New("quote must be approved before payment")

	// ErrAlreadyPaid is returned when a paid booking asks for another checkout
	ErrAlreadyPaid = errors.New("booking is already paid")

	// ErrBookingClosed is returned for cancelled bookings
	ErrBookingClosed = errors.New("booking is cancelled")

	// ErrInvalidOrigin is returned when origin_url is not an absolute http(s) URL
	ErrInvalidOrigin = errors.New("origin_url must be an absolute http or https URL")

	// ErrTooManyAttempts is returned when a booking opens too many checkout sessions
	ErrTooManyAttempts = errors.New("too many payment attempts, please try again later")
)
