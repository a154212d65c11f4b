package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/internal/events"
	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

var tracer = otel.Tracer("text2toss.internal.bookings")

// Change kinds sent to listeners.
const (
	ChangeCreated   = "booking.created"
	ChangeUpdated   = "booking.updated"
	ChangeCompleted = "booking.completed"
	ChangePaid      = "booking.paid"
)

// QuoteReader looks up the quote a booking is made against.
type QuoteReader interface {
	Get(ctx context.Context, id string) (*quotes.Quote, error)
}

// Publisher records domain events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// ChangeListener is told about every booking mutation.
type ChangeListener interface {
	BookingChanged(kind string, b *Booking)
}

// Service owns the booking lifecycle.
type Service struct {
	repo     Repository
	quotes   QuoteReader
	holder   *scheduling.SlotHolder
	events   Publisher
	listener ChangeListener
	metrics  *metrics.Metrics
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo Repository, quoteReader QuoteReader, holder *scheduling.SlotHolder, publisher Publisher, logger *logging.Logger) *Service {
	if repo == nil || quoteReader == nil {
		panic("bookings: repository and quote reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		quotes: quoteReader,
		holder: holder,
		events: publisher,
		logger: logger,
		loc:    time.UTC,
		now:    time.Now,
	}
}

func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithListener(l ChangeListener) *Service {
	s.listener = l
	return s
}

// Repository exposes the underlying store to collaborators in the same process.
func (s *Service) Repository() Repository {
	return s.repo
}

// Create validates and stores a new booking.
func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("bookings.pickup_date", req.PickupDate),
		attribute.String("bookings.pickup_time", req.PickupTime),
	)
	if _, err := scheduling.ValidatePickup(req.PickupDate, req.PickupTime, s.now(), s.loc); err != nil {
		return nil, err
	}
	q, err := s.quotes.Get(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}
	if q.ApprovalStatus == quotes.ApprovalRejected {
		return nil, ErrQuoteRejected
	}

	release, err := s.holder.Acquire(ctx, req.PickupDate, req.PickupTime)
	if err != nil {
		s.metrics.ObserveSlotConflict()
		return nil, ErrSlotTaken
	}
	defer release()

	if taken, err := s.slotTaken(ctx, req.PickupDate, req.PickupTime, ""); err != nil {
		return nil, err
	} else if taken {
		s.metrics.ObserveSlotConflict()
		return nil, ErrSlotTaken
	}

	sms := true
	if req.SMSNotifications != nil {
		sms = *req.SMSNotifications
	}
	b := &Booking{
		ID:                  uuid.NewString(),
		QuoteID:             q.ID,
		PickupDate:          req.PickupDate,
		PickupTime:          req.PickupTime,
		Address:             req.Address,
		Phone:               req.Phone,
		SpecialInstructions: req.SpecialInstructions,
		CurbsideConfirmed:   true,
		SMSNotifications:    sms,
		PaymentMethod:       req.PaymentMethod,
		PaymentStatus:       PaymentUnpaid,
		Status:              StatusScheduled,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveSlotConflict()
		}
		return nil, err
	}
	s.metrics.ObserveBooking(string(b.Status))
	s.logger.Info("booking created", "booking_id", b.ID, "quote_id", b.QuoteID, "pickup_date", b.PickupDate, "pickup_time", b.PickupTime)

	s.publish(ctx, events.TypeBookingCreated, events.BookingCreatedV1{
		BookingID:        b.ID,
		QuoteID:          b.QuoteID,
		PickupDate:       b.PickupDate,
		PickupTime:       b.PickupTime,
		Address:          b.Address,
		Phone:            b.Phone,
		SMSNotifications: b.SMSNotifications,
		PaymentMethod:    b.PaymentMethod,
		TotalPrice:       q.PayableAmount(),
		RequiresApproval: q.ApprovalStatus == quotes.ApprovalPending,
		OccurredAt:       s.now().UTC(),
	})
	s.notify(ChangeCreated, b)
	return b, nil
}

// Get fetches a booking by id.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrBookingNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List returns bookings in pickup order.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	return s.repo.List(ctx, filter)
}

// Update applies an admin PATCH.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.update")
	defer span.End()
	span.SetAttributes(attribute.String("bookings.id", id))

	if req.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidUpdate)
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		next := *req.Status
		if !CanTransition(b.Status, next) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, next)
		}
		if b.Status == StatusPendingCustomerApproval && next == StatusCancelled {
			b.CustomerApprovalToken = ""
			b.RequiresCustomerApproval = false
		}
		if next == StatusCompleted && b.Completion == nil {
			b.Completion = &Completion{CompletedAt: s.now().UTC()}
		}
		b.Status = next
	}
	if req.AdminNotes != nil {
		b.AdminNotes = strings.TrimSpace(*req.AdminNotes)
	}
	if req.PaymentStatus != nil {
		switch *req.PaymentStatus {
		case PaymentPaid, PaymentUnpaid:
			b.PaymentStatus = *req.PaymentStatus
		default:
			return nil, fmt.Errorf("%w: payment_status must be paid or unpaid", ErrInvalidUpdate)
		}
	}

	if req.PickupDate != nil || req.PickupTime != nil {
		date, slot := b.PickupDate, b.PickupTime
		if req.PickupDate != nil {
			date = strings.TrimSpace(*req.PickupDate)
		}
		if req.PickupTime != nil {
			slot = strings.TrimSpace(*req.PickupTime)
		}
		if date != b.PickupDate || slot != b.PickupTime {
			if b.Status == StatusCompleted || b.Status == StatusCancelled {
				return nil, fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidUpdate, b.Status)
			}
			if _, err := scheduling.ValidatePickup(date, slot, s.now(), s.loc); err != nil {
				return nil, err
			}
			release, err := s.holder.Acquire(ctx, date, slot)
			if err != nil {
				return nil, ErrSlotTaken
			}
			defer release()
			if taken, err := s.slotTaken(ctx, date, slot, b.ID); err != nil {
				return nil, err
			} else if taken {
				s.metrics.ObserveSlotConflict()
				return nil, ErrSlotTaken
			}
			b.PickupDate, b.PickupTime = date, slot
		}
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.metrics.ObserveBooking(string(b.Status))
	s.logger.Info("booking updated", "booking_id", b.ID, "status", b.Status, "payment_status", b.PaymentStatus)
	s.notify(ChangeUpdated, b)
	return b, nil
}

// Complete attaches the completion record and marks the job done.
func (s *Service) Complete(ctx context.Context, id, photoKey, note string) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.complete")
	defer span.End()

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Completable() {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, StatusCompleted)
	}
	b.Status = StatusCompleted
	b.Completion = &Completion{
		PhotoKey:    photoKey,
		Note:        strings.TrimSpace(note),
		CompletedAt: s.now().UTC(),
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	s.metrics.ObserveBooking(string(b.Status))
	s.logger.Info("booking completed", "booking_id", b.ID, "photo", photoKey != "")
	s.notify(ChangeCompleted, b)
	return b, nil
}

// MarkPaid records a confirmed payment. It reports false when the booking
// was already paid so callers only react once.
func (s *Service) MarkPaid(ctx context.Context, id string) (bool, error) {
	changed, err := s.repo.MarkPaid(ctx, id)
	if err != nil || !changed {
		return changed, err
	}
	s.logger.Info("booking marked paid", "booking_id", id)
	if b, err := s.repo.GetByID(ctx, id); err == nil {
		s.notify(ChangePaid, b)
	}
	return true, nil
}

// RequestPriceAdjustment moves the quote's scheduled bookings into
// pending_customer_approval with a fresh single-use token each.
func (s *Service) RequestPriceAdjustment(ctx context.Context, quoteID string, original, adjusted float64, adminNotes string) ([]*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.request_price_adjustment")
	defer span.End()

	list, err := s.repo.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	var updated []*Booking
	for _, b := range list {
		if b.Status != StatusScheduled {
			continue
		}
		orig, adj := original, adjusted
		b.Status = StatusPendingCustomerApproval
		b.RequiresCustomerApproval = true
		b.CustomerApprovalToken = uuid.NewString()
		b.OriginalPrice = &orig
		b.AdjustedPrice = &adj
		if notes := strings.TrimSpace(adminNotes); notes != "" {
			b.AdminNotes = notes
		}
		if err := s.repo.Update(ctx, b); err != nil {
			return updated, err
		}
		updated = append(updated, b)
		s.logger.Info("price adjustment requested", "booking_id", b.ID, "original", orig, "adjusted", adj)
		s.publish(ctx, events.TypePriceAdjustmentRequested, events.PriceAdjustmentRequestedV1{
			BookingID:     b.ID,
			Phone:         b.Phone,
			Token:         b.CustomerApprovalToken,
			OriginalPrice: orig,
			AdjustedPrice: adj,
			AdminNotes:    b.AdminNotes,
			OccurredAt:    s.now().UTC(),
		})
		s.notify(ChangeUpdated, b)
	}
	return updated, nil
}

// PendingApproval looks up a booking by its customer approval token.
func (s *Service) PendingApproval(ctx context.Context, token string) (*Booking, error) {
	b, err := s.repo.GetByApprovalToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPendingCustomerApproval {
		return nil, ErrTokenNotFound
	}
	return b, nil
}

// ResolveApproval records the customer's answer and burns the token.
// Accepting returns the booking to scheduled; declining cancels it.
func (s *Service) ResolveApproval(ctx context.Context, token string, approved bool, customerNotes string) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.resolve_approval")
	defer span.End()
	span.SetAttributes(attribute.Bool("bookings.approved", approved))

	b, err := s.PendingApproval(ctx, token)
	if err != nil {
		return nil, err
	}
	issued := b.CustomerApprovalToken
	b.CustomerApprovalToken = ""
	b.RequiresCustomerApproval = false
	b.CustomerNotes = strings.TrimSpace(customerNotes)
	if approved {
		b.Status = StatusScheduled
	} else {
		b.Status = StatusCancelled
	}
	if err := s.repo.ConsumeApprovalToken(ctx, issued, b); err != nil {
		return nil, err
	}
	s.metrics.ObserveBooking(string(b.Status))
	s.logger.Info("customer answered price adjustment", "booking_id", b.ID, "approved", approved)

	adjusted := 0.0
	if b.AdjustedPrice != nil {
		adjusted = *b.AdjustedPrice
	}
	s.publish(ctx, events.TypePriceAdjustmentAnswered, events.PriceAdjustmentAnsweredV1{
		BookingID:     b.ID,
		Approved:      approved,
		AdjustedPrice: adjusted,
		CustomerNotes: b.CustomerNotes,
		OccurredAt:    s.now().UTC(),
	})
	s.notify(ChangeUpdated, b)
	return b, nil
}

func (s *Service) slotTaken(ctx context.Context, date, slot, excludeID string) (bool, error) {
	list, err := s.repo.List(ctx, ListFilter{StartDate: date, EndDate: date})
	if err != nil {
		return false, err
	}
	for _, b := range list {
		if b.ID != excludeID && b.PickupTime == slot {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("failed to publish booking event", "error", err, "type", eventType)
	}
}

func (s *Service) notify(kind string, b *Booking) {
	if s.listener != nil {
		s.listener.BookingChanged(kind, clone(b))
	}
}
