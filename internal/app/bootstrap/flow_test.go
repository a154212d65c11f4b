package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// 2030-01-07 is a Monday, far enough out that the real clock never makes it past.
const flowDate = "2030-01-07"

type flowClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newFlowClient(t *testing.T) *flowClient {
	t.Helper()
	app, err := Build(context.Background(), inMemoryConfig(), logging.New("error"), Options{})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return &flowClient{t: t, handler: app.Handler}
}

func (c *flowClient) do(method, path, body string, out any) int {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (c *flowClient) login() {
	c.t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/api/admin/login", `{"password":"hunter2"}`, &res))
	c.token = res.Token
}

type flowQuote struct {
	ID             string  `json:"id"`
	ScaleLevel     int     `json:"scale_level"`
	TotalPrice     float64 `json:"total_price"`
	ApprovalStatus string  `json:"approval_status"`
}

type flowBooking struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func bookingBody(quoteID, slot string) string {
	return `{"quote_id":"` + quoteID + `","pickup_date":"` + flowDate + `","pickup_time":"` + slot +
		`","address":"12 Elm St","phone":"+15555550100","curbside_confirmed":true}`
}

func TestFlowQuoteBookAndPay(t *testing.T) {
	c := newFlowClient(t)

	var q flowQuote
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/quotes",
		`{"items":[{"name":"chair","quantity":1,"size":"small"}]}`, &q))
	assert.Equal(t, 1, q.ScaleLevel)
	assert.Equal(t, "auto_approved", q.ApprovalStatus)

	var b flowBooking
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/bookings", bookingBody(q.ID, "08:00-10:00"), &b))
	assert.Equal(t, "scheduled", b.Status)
	assert.Equal(t, "unpaid", b.PaymentStatus)

	// The slot is gone for everyone else.
	var other flowQuote
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/quotes",
		`{"items":[{"name":"desk","quantity":1,"size":"medium"}]}`, &other))
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/bookings", bookingBody(other.ID, "08:00-10:00"), nil))

	var day struct {
		AvailableSlots []string `json:"available_slots"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/availability/"+flowDate, "", &day))
	assert.Len(t, day.AvailableSlots, 4)
	assert.NotContains(t, day.AvailableSlots, "08:00-10:00")

	var session struct {
		SessionID string  `json:"session_id"`
		Amount    float64 `json:"amount"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/payments/create-checkout-session",
		`{"booking_id":"`+b.ID+`","origin_url":"https://text2toss.com"}`, &session))
	assert.True(t, strings.HasPrefix(session.SessionID, "cs_dryrun_"))
	assert.InDelta(t, q.TotalPrice, session.Amount, 0.001)

	var status struct {
		PaymentStatus string `json:"payment_status"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/payments/status/"+session.SessionID, "", &status))
	assert.Equal(t, "paid", status.PaymentStatus)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/bookings/"+b.ID, "", &b))
	assert.Equal(t, "paid", b.PaymentStatus)
}

func TestFlowRestrictedDayAndBadSlot(t *testing.T) {
	c := newFlowClient(t)

	var q flowQuote
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/quotes",
		`{"items":[{"name":"lamp","quantity":1,"size":"small"}]}`, &q))

	// 2030-01-11 is a Friday.
	body := strings.Replace(bookingBody(q.ID, "08:00-10:00"), flowDate, "2030-01-11", 1)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/bookings", body, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/bookings", bookingBody(q.ID, "07:00-08:00"), nil))

	noCurb := strings.Replace(bookingBody(q.ID, "10:00-12:00"), `"curbside_confirmed":true`, `"curbside_confirmed":false`, 1)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/bookings", noCurb, nil))
}

func TestFlowAdminReviewsLargeQuote(t *testing.T) {
	c := newFlowClient(t)

	var q flowQuote
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/quotes",
		`{"items":[{"name":"sectional","quantity":3,"size":"large"}]}`, &q))
	require.GreaterOrEqual(t, q.ScaleLevel, 4)
	assert.Equal(t, "pending_approval", q.ApprovalStatus)

	var b flowBooking
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/bookings", bookingBody(q.ID, "12:00-14:00"), &b))

	// Checkout waits for the review.
	assert.NotEqual(t, http.StatusOK, c.do(http.MethodPost, "/api/payments/create-checkout-session",
		`{"booking_id":"`+b.ID+`","origin_url":"https://text2toss.com"}`, nil))

	c.login()
	var pending []json.RawMessage
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/admin/pending-quotes", "", &pending))
	assert.Len(t, pending, 1)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/admin/quotes/"+q.ID+"/approve",
		`{"action":"approve","admin_notes":"looks right"}`, nil))

	c.token = ""
	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/payments/create-checkout-session",
		`{"booking_id":"`+b.ID+`","origin_url":"https://text2toss.com"}`, nil))
}
