package bookings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingRouter(t *testing.T) http.Handler {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)
	r := chi.NewRouter()
	r.Post("/api/bookings", h.CreateBooking)
	r.Get("/api/bookings/{id}", h.GetBooking)
	return r
}

const bookingBody = `{"quote_id":"q-small","pickup_date":"2026-03-03","pickup_time":"08:00-10:00",
	"address":"12 Elm St","phone":"+15555550100","curbside_confirmed":true}`

func TestHandlerCreateAndGetBooking(t *testing.T) {
	router := newBookingRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(bookingBody)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var b Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "q-small", b.QuoteID)
	assert.NotContains(t, rec.Body.String(), "customer_approval_token")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/"+b.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(bookingBody)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"time slot is already booked"}`, rec.Body.String())
}

func TestHandlerCreateBookingErrors(t *testing.T) {
	router := newBookingRouter(t)

	cases := map[string]struct {
		body string
		want int
	}{
		"no curbside":  {strings.Replace(bookingBody, `"curbside_confirmed":true`, `"curbside_confirmed":false`, 1), http.StatusBadRequest},
		"friday":       {strings.Replace(bookingBody, "2026-03-03", "2026-03-06", 1), http.StatusBadRequest},
		"bad slot":     {strings.Replace(bookingBody, "08:00-10:00", "09:00-11:00", 1), http.StatusBadRequest},
		"quote absent": {strings.Replace(bookingBody, "q-small", "q-nope", 1), http.StatusNotFound},
		"rejected":     {strings.Replace(bookingBody, "q-small", "q-rejected", 1), http.StatusConflict},
		"bad json":     {"{", http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerGetBookingNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newBookingRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
