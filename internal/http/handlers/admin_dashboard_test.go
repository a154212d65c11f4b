package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

func expectCount(mock sqlmock.Sqlmock, query string, n int) {
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestGetDashboardOverview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := NewAdminDashboardHandler(db, logging.Default())
	handler.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) }

	expectCount(mock, `SELECT COUNT(*) FROM quotes`, 12)
	expectCount(mock, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'auto_approved'`, 8)
	expectCount(mock, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'pending_approval'`, 2)
	expectCount(mock, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'approved'`, 1)
	expectCount(mock, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'rejected'`, 1)
	expectCount(mock, `SELECT COUNT(*) FROM quotes WHERE created_at >= $1`, 5)
	expectCount(mock, `SELECT COUNT(*) FROM bookings`, 9)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE pickup_date >= $1 AND status NOT IN`)).
		WithArgs("2026-03-02").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE pickup_date >= $1 AND pickup_date < $2`)).
		WithArgs("2026-03-02", "2026-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	expectCount(mock, `SELECT COUNT(*) FROM bookings WHERE status = 'completed'`, 3)
	expectCount(mock, `SELECT COUNT(*) FROM bookings WHERE status = 'cancelled'`, 2)
	expectCount(mock, `SELECT COALESCE(SUM(amount_cents), 0) FROM payment_transactions WHERE payment_status = 'paid'`, 45000)
	expectCount(mock, `SELECT COALESCE(SUM(amount_cents), 0) FROM payment_transactions WHERE payment_status = 'paid' AND updated_at >= $1`, 15000)
	expectCount(mock, `SELECT COUNT(*) FROM payment_transactions WHERE status = 'open'`, 1)
	expectCount(mock, `SELECT COUNT(*) FROM bookings WHERE status = 'pending_customer_approval'`, 0)
	expectCount(mock, `SELECT COUNT(*) FROM bookings WHERE status = 'completed' AND payment_status <> 'paid'`, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.GetDashboardOverview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DashboardOverviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, 12, resp.Quotes.Total)
	assert.Equal(t, 2, resp.Quotes.Pending)
	assert.Equal(t, 5, resp.Quotes.NewThisWeek)
	assert.Equal(t, 4, resp.Bookings.Upcoming)
	assert.Equal(t, 3, resp.Bookings.ThisWeek)
	assert.Equal(t, 45000, resp.Payments.TotalCollected)
	assert.Equal(t, 15000, resp.Payments.ThisWeek)
	require.Len(t, resp.PendingActions, 2)
	assert.Equal(t, "quote_review", resp.PendingActions[0].Type)
	assert.Equal(t, 2, resp.PendingActions[0].Count)
	assert.Equal(t, "collect_payment", resp.PendingActions[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDashboardOverview_QueryErrorsZeroMetrics(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	for i := 0; i < 17; i++ {
		mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("relation does not exist"))
	}

	handler := NewAdminDashboardHandler(db, nil)
	rec := httptest.NewRecorder()
	handler.GetDashboardOverview(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DashboardOverviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Zero(t, resp.Quotes.Total)
	assert.Empty(t, resp.PendingActions)
}

func TestGetDashboardOverview_NoDatabase(t *testing.T) {
	handler := NewAdminDashboardHandler(nil, nil)
	rec := httptest.NewRecorder()
	handler.GetDashboardOverview(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
