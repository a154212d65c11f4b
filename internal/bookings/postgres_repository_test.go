package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"id", "quote_id", "pickup_date", "pickup_time", "address", "phone", "special_instructions",
	"curbside_confirmed", "sms_notifications", "payment_method", "payment_status", "status", "admin_notes",
	"completion_photo_key", "completion_note", "completed_at", "requires_customer_approval", "customer_approval_token",
	"original_price_cents", "adjusted_price_cents", "customer_notes", "created_at", "updated_at",
}

func TestPostgresCreateMapsUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	b := &Booking{ID: "b-1", QuoteID: "q-1", PickupDate: "2026-03-03", PickupTime: "08:00-10:00", Status: StatusScheduled}

	mock.ExpectQuery("INSERT INTO bookings").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_active_slot_idx"})
	assert.ErrorIs(t, repo.Create(context.Background(), b), ErrSlotTaken)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO bookings").WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, now, b.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByApprovalToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	pickup := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	token := "tok-1"
	orig, adj := int64(14500), int64(17500)
	rows := pgxmock.NewRows(bookingRowColumns).AddRow(
		"b-1", "q-1", pickup, "08:00-10:00", "12 Elm St", "+15555550100", "",
		true, true, "stripe", "unpaid", "pending_customer_approval", "stairs",
		"", "", (*time.Time)(nil), true, &token,
		&orig, &adj, "", now, now,
	)
	mock.ExpectQuery("WHERE customer_approval_token").WithArgs("tok-1").WillReturnRows(rows)

	b, err := repo.GetByApprovalToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", b.PickupDate)
	assert.Equal(t, StatusPendingCustomerApproval, b.Status)
	assert.Equal(t, "tok-1", b.CustomerApprovalToken)
	assert.Equal(t, float64(145), *b.OriginalPrice)
	assert.Equal(t, float64(175), *b.AdjustedPrice)
	assert.Nil(t, b.Completion)

	mock.ExpectQuery("WHERE customer_approval_token").WithArgs("used").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByApprovalToken(context.Background(), "used")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkPaid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	mock.ExpectExec("UPDATE bookings").WithArgs("b-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	changed, err := repo.MarkPaid(context.Background(), "b-1")
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec("UPDATE bookings").WithArgs("b-2").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT id, quote_id").WithArgs("b-2").WillReturnError(pgx.ErrNoRows)
	_, err = repo.MarkPaid(context.Background(), "b-2")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBookedSlotCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	rows := pgxmock.NewRows([]string{"pickup_date", "count"}).
		AddRow(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), 3).
		AddRow(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), 5)
	mock.ExpectQuery("GROUP BY pickup_date").WithArgs("2026-03-01", "2026-03-31").WillReturnRows(rows)

	counts, err := repo.BookedSlotCounts(context.Background(), "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2026-03-03": 3, "2026-03-04": 5}, counts)
}

func TestPostgresListBuildsFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	mock.ExpectQuery(`status <> 'cancelled' AND pickup_date >= \$1 AND pickup_date <= \$2`).
		WithArgs("2026-03-02", "2026-03-08").
		WillReturnRows(pgxmock.NewRows(bookingRowColumns))

	list, err := repo.List(context.Background(), ListFilter{StartDate: "2026-03-02", EndDate: "2026-03-08"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostgresConsumeApprovalTokenIsConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	b := &Booking{ID: "b-1", PickupDate: "2026-03-03", PickupTime: "08:00-10:00", Status: StatusScheduled, PaymentStatus: PaymentUnpaid}
	cond := `WHERE id = \$1 AND customer_approval_token = \$15 AND status = 'pending_customer_approval'`

	now := time.Now()
	mock.ExpectQuery(cond).WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	require.NoError(t, repo.ConsumeApprovalToken(context.Background(), "tok-1", b))
	assert.Equal(t, now, b.UpdatedAt)

	mock.ExpectQuery(cond).WillReturnError(pgx.ErrNoRows)
	assert.ErrorIs(t, repo.ConsumeApprovalToken(context.Background(), "tok-1", b), ErrTokenNotFound)

	assert.ErrorIs(t, repo.ConsumeApprovalToken(context.Background(), "", b), ErrTokenNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
