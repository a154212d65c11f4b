package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/events"
	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// BookingStore is the slice of the booking service payments needs.
type BookingStore interface {
	Get(ctx context.Context, id string) (*bookings.Booking, error)
	MarkPaid(ctx context.Context, id string) (bool, error)
}

// QuoteReader resolves the quote a booking was made against.
type QuoteReader interface {
	Get(ctx context.Context, id string) (*quotes.Quote, error)
}

// Publisher records domain events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// CheckoutProvider creates and inspects hosted checkout sessions.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// CheckoutRequest is the body of POST /payments/create-checkout-session.
type CheckoutRequest struct {
	BookingID string `json:"booking_id"`
	OriginURL string `json:"origin_url"`
}

// CheckoutResponse is returned after a session is opened.
type CheckoutResponse struct {
	URL       string  `json:"url"`
	SessionID string  `json:"session_id"`
	Amount    float64 `json:"amount"`
}

// StatusResponse is polled by the payment success page.
type StatusResponse struct {
	SessionID     string  `json:"session_id"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	BookingID     string  `json:"booking_id"`
	Amount        float64 `json:"amount"`
}

// Service opens checkouts, tracks their state, and marks bookings paid.
type Service struct {
	bookings BookingStore
	quotes   QuoteReader
	checkout CheckoutProvider
	repo     Repository
	velocity *VelocityChecker
	events   Publisher
	venmo    *VenmoBuilder
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

func NewService(bookingStore BookingStore, quoteReader QuoteReader, checkout CheckoutProvider, repo Repository, logger *logging.Logger) *Service {
	if bookingStore == nil || quoteReader == nil || checkout == nil || repo == nil {
		panic("payments: bookings, quotes, checkout and repository are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		bookings: bookingStore,
		quotes:   quoteReader,
		checkout: checkout,
		repo:     repo,
		logger:   logger,
	}
}

func (s *Service) WithVelocity(v *VelocityChecker) *Service {
	s.velocity = v
	return s
}

func (s *Service) WithPublisher(p Publisher) *Service {
	s.events = p
	return s
}

func (s *Service) WithVenmo(v *VenmoBuilder) *Service {
	s.venmo = v
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// CreateCheckout opens a Stripe checkout session for the booking.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := stripeTracer.Start(ctx, "payments.create_checkout")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", req.BookingID))

	if strings.TrimSpace(req.BookingID) == "" {
		return nil, fmt.Errorf("%w: booking_id", bookings.ErrMissingField)
	}
	origin, err := normalizeOrigin(req.OriginURL)
	if err != nil {
		return nil, err
	}
	b, amount, err := s.payable(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if s.velocity != nil {
		res, err := s.velocity.CheckCheckout(ctx, b.ID)
		if err == nil && !res.Allowed {
			s.metrics.ObserveCheckout(bookings.PaymentMethodStripe, "throttled")
			return nil, ErrTooManyAttempts
		}
	}

	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	session, err := s.checkout.CreateSession(ctx, SessionParams{
		BookingID:   b.ID,
		AmountCents: cents,
		Description: fmt.Sprintf("Junk removal pickup %s %s (#%s)", b.PickupDate, b.PickupTime, b.ShortID()),
		SuccessURL:  origin + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   origin + "/payment-cancelled",
		Phone:       b.Phone,
	})
	if err != nil {
		s.metrics.ObserveCheckout(bookings.PaymentMethodStripe, "error")
		return nil, err
	}

	status := session.Status
	if status == "" {
		status = SessionOpen
	}
	paymentStatus := session.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = PaymentStatusUnpaid
	}
	tx := &Transaction{
		SessionID:     session.ID,
		BookingID:     b.ID,
		AmountCents:   cents,
		Currency:      "usd",
		Status:        status,
		PaymentStatus: paymentStatus,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	s.metrics.ObserveCheckout(bookings.PaymentMethodStripe, "created")
	s.logger.Info("checkout session created", "booking_id", b.ID, "session_id", session.ID, "amount_cents", cents)

	return &CheckoutResponse{
		URL:       session.URL,
		SessionID: session.ID,
		Amount:    amount.InexactFloat64(),
	}, nil
}

// Status reports a session, refreshing it from Stripe until it settles.
func (s *Service) Status(ctx context.Context, sessionID string) (*StatusResponse, error) {
	ctx, span := stripeTracer.Start(ctx, "payments.status")
	defer span.End()

	tx, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !tx.Terminal() {
		remote, err := s.checkout.GetSession(ctx, sessionID)
		if err != nil {
			// Serve the last known state rather than failing the poll.
			s.logger.Warn("stripe session refresh failed", "session_id", sessionID, "error", err)
		} else if err := s.applySession(ctx, tx, remote.Status, remote.PaymentStatus, ""); err != nil {
			return nil, err
		}
	}
	return &StatusResponse{
		SessionID:     tx.SessionID,
		Status:        tx.Status,
		PaymentStatus: tx.PaymentStatus,
		BookingID:     tx.BookingID,
		Amount:        decimal.New(tx.AmountCents, -2).InexactFloat64(),
	}, nil
}

// HandleSessionEvent applies a webhook-delivered session state.
func (s *Service) HandleSessionEvent(ctx context.Context, eventID string, obj SessionEvent) error {
	tx, err := s.repo.GetBySessionID(ctx, obj.ID)
	if errors.Is(err, ErrSessionNotFound) {
		bookingID := obj.Metadata["booking_id"]
		if bookingID == "" {
			return err
		}
		// Session opened before transactions were recorded; adopt it.
		tx = &Transaction{
			SessionID:     obj.ID,
			BookingID:     bookingID,
			AmountCents:   obj.AmountTotal,
			Currency:      obj.Currency,
			Status:        SessionOpen,
			PaymentStatus: PaymentStatusUnpaid,
		}
		if err := s.repo.Create(ctx, tx); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return s.applySession(ctx, tx, obj.Status, obj.PaymentStatus, eventID)
}

// SessionEvent is the checkout.session object carried by webhooks.
type SessionEvent struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

func (s *Service) applySession(ctx context.Context, tx *Transaction, status, paymentStatus, eventID string) error {
	if status == "" {
		status = tx.Status
	}
	if paymentStatus == "" {
		paymentStatus = tx.PaymentStatus
	}
	if status != tx.Status || paymentStatus != tx.PaymentStatus {
		if err := s.repo.UpdateStatus(ctx, tx.SessionID, status, paymentStatus); err != nil {
			return err
		}
		tx.Status, tx.PaymentStatus = status, paymentStatus
	}
	if paymentStatus != PaymentStatusPaid {
		return nil
	}

	changed, err := s.bookings.MarkPaid(ctx, tx.BookingID)
	if err != nil {
		return fmt.Errorf("payments: mark booking paid: %w", err)
	}
	if !changed {
		return nil
	}
	s.metrics.ObserveCheckout(bookings.PaymentMethodStripe, "paid")
	s.logger.Info("booking paid", "booking_id", tx.BookingID, "session_id", tx.SessionID)

	if s.events == nil {
		return nil
	}
	phone := ""
	if b, err := s.bookings.Get(ctx, tx.BookingID); err == nil {
		phone = b.Phone
	}
	if eventID == "" {
		eventID = tx.SessionID
	}
	evt := events.PaymentSucceededV1{
		EventID:     eventID,
		BookingID:   tx.BookingID,
		SessionID:   tx.SessionID,
		Provider:    bookings.PaymentMethodStripe,
		AmountCents: tx.AmountCents,
		Phone:       phone,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, events.TypePaymentSucceeded, evt); err != nil {
		s.logger.Error("failed to publish payment event", "booking_id", tx.BookingID, "error", err)
	}
	return nil
}

// Venmo returns manual payment instructions for the booking.
func (s *Service) Venmo(ctx context.Context, bookingID string) (*VenmoInstructions, error) {
	b, amount, err := s.payable(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	venmo := s.venmo
	if venmo == nil {
		venmo = NewVenmoBuilder("")
	}
	out, err := venmo.Build(b, amount)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCheckout(bookings.PaymentMethodVenmo, "instructions")
	return out, nil
}

// payable loads the booking and works out what it costs, enforcing the
// approval gate on its quote.
func (s *Service) payable(ctx context.Context, bookingID string) (*bookings.Booking, decimal.Decimal, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	switch {
	case b.Status == bookings.StatusCancelled:
		return nil, decimal.Zero, ErrBookingClosed
	case b.PaymentStatus == bookings.PaymentPaid:
		return nil, decimal.Zero, ErrAlreadyPaid
	case b.Status == bookings.StatusPendingCustomerApproval:
		return nil, decimal.Zero, ErrPaymentNotAllowed
	}

	q, err := s.quotes.Get(ctx, b.QuoteID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !q.PaymentAllowed() {
		return nil, decimal.Zero, ErrPaymentNotAllowed
	}
	amount := decimal.NewFromFloat(q.PayableAmount())
	if b.AdjustedPrice != nil {
		amount = decimal.NewFromFloat(*b.AdjustedPrice)
	}
	return b, amount.Round(2), nil
}

func normalizeOrigin(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidOrigin
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
