package scheduling

import "errors"

var (
	// ErrInvalidDate is returned when a date is not YYYY-MM-DD
	ErrInvalidDate = errors.New("date must be formatted YYYY-MM-DD")

	// ErrInvalidSlot is returned for times outside the fixed pickup windows
	ErrInvalidSlot = errors.New("pickup time must be one of the available time slots")

	// ErrRestrictedDay is returned for Friday through Sunday
	ErrRestrictedDay = errors.New("pickups are only available Monday through Thursday")

	// ErrPastDate is returned for dates before today
	ErrPastDate = errors.New("pickup date cannot be in the past")

	// ErrInvalidRange is returned for reversed or oversized date ranges
	ErrInvalidRange = errors.New("invalid date range")

	// ErrSlotHeld is returned when another request is booking the same slot
	ErrSlotHeld = errors.New("time slot is being booked by another customer")
)
