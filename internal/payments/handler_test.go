package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	h := NewHandler(f.svc, nil)
	r := chi.NewRouter()
	r.Post("/api/payments/create-checkout-session", h.CreateCheckoutSession)
	r.Get("/api/payments/status/{session_id}", h.GetStatus)
	r.Get("/api/payments/venmo/{booking_id}", h.GetVenmo)
	return r, f
}

func TestHandler_CreateCheckoutSession(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"booking_id":"b-auto-0001","origin_url":"https://text2toss.com"}`, http.StatusOK},
		{"unknown booking", `{"booking_id":"nope","origin_url":"https://text2toss.com"}`, http.StatusNotFound},
		{"needs approval", `{"booking_id":"b-pending-0001","origin_url":"https://text2toss.com"}`, http.StatusConflict},
		{"bad origin", `{"booking_id":"b-auto-0001","origin_url":"text2toss"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/payments/create-checkout-session", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestHandler_GetStatus(t *testing.T) {
	router, f := newTestRouter(t)
	out, err := f.svc.CreateCheckout(context.Background(), CheckoutRequest{BookingID: "b-auto-0001", OriginURL: "https://a.com"})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments/status/"+out.SessionID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, out.SessionID, body.SessionID)
	assert.Equal(t, "b-auto-0001", body.BookingID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments/status/cs_unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_GetVenmo(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments/venmo/b-auto-0001", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	for _, key := range []string{"handle", "amount", "note", "deep_link", "web_link", "qr_code_png", "instructions"} {
		assert.Contains(t, body, key)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments/venmo/b-pending-0001", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}
