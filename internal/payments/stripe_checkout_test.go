package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripeCheckoutService_CreateSession(t *testing.T) {
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("expected path /v1/checkout/sessions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("expected auth header, got %q", got)
		}
		if r.Header.Get("Stripe-Version") == "" {
			t.Errorf("expected Stripe-Version header")
		}
		if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			t.Errorf("expected form-urlencoded content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":             "cs_test_abc123",
			"url":            "https://checkout.stripe.com/pay/cs_test_abc123",
			"status":         "open",
			"payment_status": "unpaid",
		})
	}))
	defer srv.Close()

	svc := NewStripeCheckoutService("sk_test_123", nil).WithBaseURL(srv.URL)
	session, err := svc.CreateSession(context.Background(), SessionParams{
		BookingID:   "b-123",
		AmountCents: 14999,
		Description: "Junk removal pickup",
		SuccessURL:  "https://app.example.com/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   "https://app.example.com/payment-cancelled",
		Phone:       "+15551112222",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "cs_test_abc123" || session.URL == "" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.AmountTotal != 14999 {
		t.Fatalf("expected amount fallback to params, got %d", session.AmountTotal)
	}

	checks := map[string]string{
		"mode": "payment",
		"line_items[0][price_data][currency]":    "usd",
		"line_items[0][price_data][unit_amount]": "14999",
		"line_items[0][quantity]":                "1",
		"metadata[booking_id]":                   "b-123",
		"metadata[phone]":                        "+15551112222",
		"client_reference_id":                    "b-123",
		"cancel_url":                             "https://app.example.com/payment-cancelled",
	}
	for key, want := range checks {
		if got := gotForm[key]; len(got) == 0 || got[0] != want {
			t.Errorf("form[%s] = %v, want %s", key, got, want)
		}
	}
	if got := gotForm["success_url"]; len(got) == 0 || !strings.Contains(got[0], "{CHECKOUT_SESSION_ID}") {
		t.Errorf("success_url should keep the session placeholder, got %v", got)
	}
}

func TestStripeCheckoutService_GetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_paid":
			json.NewEncoder(w).Encode(map[string]any{
				"id":             "cs_paid",
				"status":         "complete",
				"payment_status": "paid",
				"amount_total":   5000,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"No such checkout.session"}}`))
		}
	}))
	defer srv.Close()

	svc := NewStripeCheckoutService("sk_test_123", nil).WithBaseURL(srv.URL)

	session, err := svc.GetSession(context.Background(), "cs_paid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Status != SessionComplete || session.PaymentStatus != PaymentStatusPaid {
		t.Fatalf("unexpected session state: %+v", session)
	}

	if _, err := svc.GetSession(context.Background(), "cs_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStripeCheckoutService_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid amount","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	svc := NewStripeCheckoutService("sk_test_123", nil).WithBaseURL(srv.URL)
	_, err := svc.CreateSession(context.Background(), SessionParams{BookingID: "b-1", AmountCents: 1})
	if err == nil || !strings.Contains(err.Error(), "Invalid amount") {
		t.Fatalf("expected stripe error message, got %v", err)
	}
}

func TestStripeCheckoutService_DryRun(t *testing.T) {
	svc := NewStripeCheckoutService("", nil).WithBaseURL("http://127.0.0.1:1").WithDryRun(true)

	session, err := svc.CreateSession(context.Background(), SessionParams{BookingID: "b-1", AmountCents: 9900})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(session.ID, "cs_dryrun_") || session.Status != SessionOpen {
		t.Fatalf("unexpected dry run session: %+v", session)
	}

	refreshed, err := svc.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.PaymentStatus != PaymentStatusPaid {
		t.Fatalf("expected dry run session to report paid, got %s", refreshed.PaymentStatus)
	}
}
