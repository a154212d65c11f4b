package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

var stripeTracer = otel.Tracer("text2toss.internal.payments.stripe")

// Stripe checkout session states.
const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// SessionParams describes a checkout session for one booking.
type SessionParams struct {
	BookingID   string
	AmountCents int64
	Description string
	SuccessURL  string
	CancelURL   string
	Phone       string
}

// Session is the subset of a Stripe Checkout Session we use.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// StripeCheckoutService talks to the Stripe Checkout Sessions REST API.
type StripeCheckoutService struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

func NewStripeCheckoutService(secretKey string, logger *logging.Logger) *StripeCheckoutService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeCheckoutService{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeCheckoutService) WithBaseURL(baseURL string) *StripeCheckoutService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun returns fake sessions without calling Stripe. Dry-run sessions
// report as paid on the first status check so the booking flow can be
// exercised end to end.
func (s *StripeCheckoutService) WithDryRun(enabled bool) *StripeCheckoutService {
	s.dryRun = enabled
	return s
}

// CreateSession opens a hosted checkout page for the booking.
func (s *StripeCheckoutService) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("text2toss.booking_id", params.BookingID),
		attribute.Int64("text2toss.amount_cents", params.AmountCents),
	)

	if s.dryRun {
		fakeID := "cs_dryrun_" + uuid.New().String()[:8]
		s.logger.Info("stripe dry run: skipping checkout session creation",
			"booking_id", params.BookingID, "amount_cents", params.AmountCents)
		return &Session{
			ID:            fakeID,
			URL:           fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
			Status:        SessionOpen,
			PaymentStatus: PaymentStatusUnpaid,
			AmountTotal:   params.AmountCents,
			Currency:      "usd",
			Metadata:      map[string]string{"booking_id": params.BookingID},
		}, nil
	}

	description := params.Description
	if strings.TrimSpace(description) == "" {
		description = "Junk removal"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("client_reference_id", params.BookingID)

	// Metadata for webhook processing
	form.Set("metadata[booking_id]", params.BookingID)
	form.Set("payment_intent_data[metadata][booking_id]", params.BookingID)
	if phone := strings.TrimSpace(params.Phone); phone != "" {
		form.Set("metadata[phone]", phone)
	}

	var parsed Session
	if err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()), &parsed); err != nil {
		return nil, err
	}
	if parsed.URL == "" {
		return nil, fmt.Errorf("payments: stripe response missing checkout url")
	}
	if parsed.AmountTotal == 0 {
		parsed.AmountTotal = params.AmountCents
	}
	return &parsed, nil
}

// GetSession retrieves the current state of a checkout session.
func (s *StripeCheckoutService) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.get_checkout_session")
	defer span.End()
	span.SetAttributes(attribute.String("text2toss.session_id", sessionID))

	if s.dryRun {
		return &Session{ID: sessionID, Status: SessionComplete, PaymentStatus: PaymentStatusPaid, Currency: "usd"}, nil
	}

	var parsed Session
	if err := s.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (s *StripeCheckoutService) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", s.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, readStripeError(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

// stripeErrorResponse represents a Stripe API error.
type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// readStripeError extracts the message from a Stripe error body.
func readStripeError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "unknown error"
	}
	var parsed stripeErrorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(data)
}
