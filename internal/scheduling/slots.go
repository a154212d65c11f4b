package scheduling

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the wire format for pickup dates.
const DateLayout = "2006-01-02"

// TimeSlots are the fixed two-hour pickup windows, in day order.
var TimeSlots = []string{
	"08:00-10:00",
	"10:00-12:00",
	"12:00-14:00",
	"14:00-16:00",
	"16:00-18:00",
}

// TotalSlots is the number of pickup windows per service day.
var TotalSlots = len(TimeSlots)

// IsValidSlot reports whether slot is one of TimeSlots.
func IsValidSlot(slot string) bool {
	return slices.Contains(TimeSlots, slot)
}

// SlotIndex orders slots within a day; unknown slots sort last.
func SlotIndex(slot string) int {
	if i := slices.Index(TimeSlots, slot); i >= 0 {
		return i
	}
	return len(TimeSlots)
}

// SlotStart returns the wall-clock start of slot on date in loc.
func SlotStart(date time.Time, slot string, loc *time.Location) (time.Time, error) {
	if !IsValidSlot(slot) {
		return time.Time{}, ErrInvalidSlot
	}
	start, _, _ := strings.Cut(slot, "-")
	var hour, minute int
	if _, err := fmt.Sscanf(start, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("scheduling: parse slot %q: %w", slot, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return d, nil
}

// IsServiceDay reports whether pickups run on the date's weekday.
func IsServiceDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
		return true
	default:
		return false
	}
}

// RestrictionReason explains why a day cannot be booked, or returns "".
func RestrictionReason(d, today time.Time) string {
	if dateOnly(d).Before(dateOnly(today)) {
		return "Date is in the past"
	}
	if !IsServiceDay(d) {
		return fmt.Sprintf("No pickups on %s. Service days are Monday through Thursday", d.Weekday())
	}
	return ""
}

// ValidatePickup applies the weekday, past-date and slot rules for a booking.
func ValidatePickup(date, slot string, now time.Time, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !IsValidSlot(slot) {
		return time.Time{}, ErrInvalidSlot
	}
	today := now.In(d.Location())
	if dateOnly(d).Before(dateOnly(today)) {
		return time.Time{}, ErrPastDate
	}
	if !IsServiceDay(d) {
		return time.Time{}, ErrRestrictedDay
	}
	return d, nil
}

// InclusiveDays counts calendar days in [from, to] by date, so a DST
// change inside the range does not shift the count.
func InclusiveDays(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours()/24) + 1
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
