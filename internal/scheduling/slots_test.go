package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func TestIsServiceDay(t *testing.T) {
	for offset, want := range []bool{true, true, true, true, false, false, false} {
		d := monday.AddDate(0, 0, offset)
		assert.Equal(t, want, IsServiceDay(d), d.Weekday().String())
	}
}

func TestSlotStart(t *testing.T) {
	start, err := SlotStart(monday, "14:00-16:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 14, start.Hour())

	_, err = SlotStart(monday, "09:00-11:00", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestSlotIndex(t *testing.T) {
	assert.Equal(t, 0, SlotIndex("08:00-10:00"))
	assert.Equal(t, 4, SlotIndex("16:00-18:00"))
	assert.Equal(t, len(TimeSlots), SlotIndex("late"))
}

func TestValidatePickup(t *testing.T) {
	_, err := ValidatePickup("2026-03-05", "10:00-12:00", monday, time.UTC)
	assert.NoError(t, err)

	_, err = ValidatePickup("2026-03-02", "08:00-10:00", monday, time.UTC)
	assert.NoError(t, err, "same-day pickups are allowed")

	_, err = ValidatePickup("2026-03-06", "10:00-12:00", monday, time.UTC)
	assert.ErrorIs(t, err, ErrRestrictedDay)

	_, err = ValidatePickup("2026-02-26", "10:00-12:00", monday, time.UTC)
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = ValidatePickup("03/05/2026", "10:00-12:00", monday, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ValidatePickup("2026-03-05", "noon", monday, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestRestrictionReason(t *testing.T) {
	assert.Empty(t, RestrictionReason(monday.AddDate(0, 0, 1), monday))
	assert.Contains(t, RestrictionReason(monday.AddDate(0, 0, 5), monday), "Saturday")
	assert.Equal(t, "Date is in the past", RestrictionReason(monday.AddDate(0, 0, -7), monday))
}

func TestInclusiveDaysAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	// Clocks spring forward on 2026-03-08 in Chicago.
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, loc)
	assert.Equal(t, 31, InclusiveDays(from, to))
	assert.Equal(t, 1, InclusiveDays(from, from))
	assert.Equal(t, 62, InclusiveDays(from, time.Date(2026, 5, 1, 0, 0, 0, 0, loc)))
}
