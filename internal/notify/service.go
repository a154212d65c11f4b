package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/text2toss/junk-removal-api/internal/events"
	"github.com/text2toss/junk-removal-api/internal/messaging"
	"github.com/text2toss/junk-removal-api/internal/messaging/templates"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// SMSSender sends customer texts.
type SMSSender interface {
	Send(ctx context.Context, to, body string, mediaURLs ...string) messaging.Result
}

// Config controls who is notified and how links are built.
type Config struct {
	AdminEmail    string
	PublicBaseURL string
}

// Service turns outbox events into admin emails and customer texts.
type Service struct {
	email    EmailSender
	sms      SMSSender
	cfg      Config
	renderer templates.Renderer
	logger   *logging.Logger
}

// NewService creates a notification service. Either sender may be nil.
func NewService(email EmailSender, sms SMSSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{email: email, sms: sms, cfg: cfg, logger: logger}
}

var _ events.DeliveryHandler = (*Service)(nil)

// Handle dispatches one outbox entry. Unknown types are acknowledged.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	switch entry.Type {
	case events.TypeBookingCreated:
		var evt events.BookingCreatedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyBookingCreated(ctx, evt)
	case events.TypeQuoteReviewRequested:
		var evt events.QuoteReviewRequestedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyQuoteReview(ctx, evt)
	case events.TypePriceAdjustmentRequested:
		var evt events.PriceAdjustmentRequestedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyPriceAdjustment(ctx, evt)
	case events.TypePriceAdjustmentAnswered:
		var evt events.PriceAdjustmentAnsweredV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyPriceAnswer(ctx, evt)
	case events.TypePaymentSucceeded:
		var evt events.PaymentSucceededV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
		}
		return s.NotifyPaymentSuccess(ctx, evt)
	default:
		s.logger.Debug("notify: ignoring event", "type", entry.Type)
		return nil
	}
}

// NotifyBookingCreated emails the office and confirms with the customer
// when they opted into texts.
func (s *Service) NotifyBookingCreated(ctx context.Context, evt events.BookingCreatedV1) error {
	ref := shortRef(evt.BookingID)
	subject := fmt.Sprintf("New pickup booked: %s %s", evt.PickupDate, evt.PickupTime)
	if evt.RequiresApproval {
		subject = "[Needs quote approval] " + subject
	}
	body := strings.Join([]string{
		"A new junk removal pickup was booked.",
		"",
		"Reference: #" + ref,
		"Date: " + evt.PickupDate,
		"Window: " + evt.PickupTime,
		"Address: " + evt.Address,
		"Phone: " + evt.Phone,
		"Payment: " + evt.PaymentMethod,
		"Quoted: " + money(evt.TotalPrice),
	}, "\n")
	if err := s.emailAdmin(ctx, subject, body); err != nil {
		return err
	}

	if !evt.SMSNotifications {
		return nil
	}
	text, err := s.renderer.Render("booking_confirmed", templates.BookingConfirmed, map[string]string{
		"PickupDate": evt.PickupDate,
		"PickupTime": evt.PickupTime,
		"Address":    evt.Address,
		"Reference":  ref,
	})
	if err != nil {
		return err
	}
	s.text(ctx, evt.Phone, text)
	return nil
}

// NotifyQuoteReview asks the office to review a large quote.
func (s *Service) NotifyQuoteReview(ctx context.Context, evt events.QuoteReviewRequestedV1) error {
	subject := fmt.Sprintf("Quote needs review (scale %d)", evt.ScaleLevel)
	if evt.HighPriority {
		subject = "[HIGH PRIORITY] " + subject
	}
	body := strings.Join([]string{
		"A quote is waiting for approval before the customer can pay.",
		"",
		"Quote: " + evt.QuoteID,
		fmt.Sprintf("Scale: %d / 20", evt.ScaleLevel),
		"Source: " + evt.Source,
		"Quoted: " + money(evt.TotalPrice),
		"Description: " + evt.Description,
	}, "\n")
	return s.emailAdmin(ctx, subject, body)
}

// NotifyPriceAdjustment texts the customer a link to accept or decline.
func (s *Service) NotifyPriceAdjustment(ctx context.Context, evt events.PriceAdjustmentRequestedV1) error {
	text, err := s.renderer.Render("price_adjustment", templates.PriceAdjustment, map[string]string{
		"Reference":     shortRef(evt.BookingID),
		"AdjustedPrice": decimal.NewFromFloat(evt.AdjustedPrice).StringFixed(2),
		"OriginalPrice": decimal.NewFromFloat(evt.OriginalPrice).StringFixed(2),
		"Link":          s.ApprovalLink(evt.Token),
	})
	if err != nil {
		return err
	}
	s.text(ctx, evt.Phone, text)
	return nil
}

// NotifyPriceAnswer tells the office how the customer responded.
func (s *Service) NotifyPriceAnswer(ctx context.Context, evt events.PriceAdjustmentAnsweredV1) error {
	verdict := "declined"
	if evt.Approved {
		verdict = "accepted"
	}
	subject := fmt.Sprintf("Customer %s price adjustment for #%s", verdict, shortRef(evt.BookingID))
	body := fmt.Sprintf("Adjusted price: %s\nCustomer notes: %s", money(evt.AdjustedPrice), evt.CustomerNotes)
	if !evt.Approved {
		body += "\n\nThe booking was cancelled and its slot released."
	}
	return s.emailAdmin(ctx, subject, body)
}

// NotifyPaymentSuccess sends a receipt text and tells the office.
func (s *Service) NotifyPaymentSuccess(ctx context.Context, evt events.PaymentSucceededV1) error {
	amount := decimal.New(evt.AmountCents, -2).StringFixed(2)
	ref := shortRef(evt.BookingID)

	subject := fmt.Sprintf("Payment received for #%s", ref)
	body := fmt.Sprintf("Amount: $%s\nProvider: %s\nSession: %s\nAt: %s",
		amount, evt.Provider, evt.SessionID, evt.OccurredAt.Format("January 2, 2006 at 3:04 PM"))
	if err := s.emailAdmin(ctx, subject, body); err != nil {
		return err
	}

	if evt.Phone == "" {
		return nil
	}
	text, err := s.renderer.Render("payment_received", templates.PaymentReceived, map[string]string{
		"Amount":    amount,
		"Reference": ref,
	})
	if err != nil {
		return err
	}
	s.text(ctx, evt.Phone, text)
	return nil
}

// ApprovalLink is the customer-facing page for a price adjustment token.
func (s *Service) ApprovalLink(token string) string {
	return s.cfg.PublicBaseURL + "/customer-approval/" + token
}

func (s *Service) emailAdmin(ctx context.Context, subject, body string) error {
	if s.email == nil || s.cfg.AdminEmail == "" {
		s.logger.Debug("notify: admin email disabled", "subject", subject)
		return nil
	}
	err := s.email.Send(ctx, EmailMessage{
		To:      s.cfg.AdminEmail,
		ToName:   "Text2toss Admin",
		Subject:  subject,
		Body:     body,
		Category: "admin-notification",
	})
	if err != nil {
		return fmt.Errorf("notify: admin email: %w", err)
	}
	return nil
}

// Customer texts are best effort; a failed text does not retry the event.
func (s *Service) text(ctx context.Context, phone, body string) {
	if s.sms == nil || strings.TrimSpace(phone) == "" {
		return
	}
	res := s.sms.Send(ctx, phone, body)
	if res.Status == messaging.StatusFailed {
		s.logger.Warn("notify: customer sms failed", "provider", res.Provider, "error", res.Error)
	}
}

func shortRef(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}
