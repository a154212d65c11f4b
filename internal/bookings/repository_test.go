package bookings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBooking(id, date, slot string, status Status) *Booking {
	return &Booking{ID: id, QuoteID: "q-" + id, PickupDate: date, PickupTime: slot, Status: status, PaymentStatus: PaymentUnpaid}
}

func TestInMemoryRepositorySlotUniqueness(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, seedBooking("a", "2026-03-02", "08:00-10:00", StatusScheduled)))
	assert.ErrorIs(t, repo.Create(ctx, seedBooking("b", "2026-03-02", "08:00-10:00", StatusScheduled)), ErrSlotTaken)

	// Cancelling frees the slot.
	a, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	a.Status = StatusCancelled
	require.NoError(t, repo.Update(ctx, a))
	require.NoError(t, repo.Create(ctx, seedBooking("b", "2026-03-02", "08:00-10:00", StatusScheduled)))

	slots, err := repo.BookedSlots(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00-10:00"}, slots)
}

func TestInMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, seedBooking("a", "2026-03-02", "10:00-12:00", StatusScheduled)))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	got.AdminNotes = "changed outside"

	again, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, again.AdminNotes)
}

func TestInMemoryRepositoryListAndCounts(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, seedBooking("late", "2026-03-03", "14:00-16:00", StatusScheduled)))
	require.NoError(t, repo.Create(ctx, seedBooking("early", "2026-03-03", "08:00-10:00", StatusScheduled)))
	require.NoError(t, repo.Create(ctx, seedBooking("first", "2026-03-02", "16:00-18:00", StatusScheduled)))
	require.NoError(t, repo.Create(ctx, seedBooking("gone", "2026-03-02", "08:00-10:00", StatusCancelled)))

	list, err := repo.List(ctx, ListFilter{StartDate: "2026-03-02", EndDate: "2026-03-03"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"first", "early", "late"}, []string{list[0].ID, list[1].ID, list[2].ID})

	counts, err := repo.BookedSlotCounts(ctx, "2026-03-02", "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2026-03-02": 1, "2026-03-03": 2}, counts)
}

func TestInMemoryRepositoryMarkPaidOnce(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, seedBooking("a", "2026-03-02", "12:00-14:00", StatusScheduled)))

	changed, err := repo.MarkPaid(ctx, "a")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaid(ctx, "a")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.MarkPaid(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestInMemoryRepositoryApprovalToken(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	b := seedBooking("a", "2026-03-02", "12:00-14:00", StatusPendingCustomerApproval)
	b.CustomerApprovalToken = "tok-1"
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByApprovalToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = repo.GetByApprovalToken(ctx, "")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
