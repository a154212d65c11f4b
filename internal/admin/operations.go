package admin

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/internal/audit"
	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/messaging"
	"github.com/text2toss/junk-removal-api/internal/messaging/templates"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/routing"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
)

// CompletionUpload is the photo and note attached when a job is finished.
type CompletionUpload struct {
	Photo       []byte
	ContentType string
	Note        string
}

// CompleteBooking stores the proof photo, if any, and marks the job completed.
func (s *Service) CompleteBooking(ctx context.Context, id string, up CompletionUpload) (*bookings.Booking, error) {
	ctx, span := tracer.Start(ctx, "admin.complete_booking")
	defer span.End()

	current, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Reject before uploading so a refused completion leaves no object behind.
	if !current.Completable() {
		return nil, fmt.Errorf("%w: %s to %s", bookings.ErrInvalidTransition, current.Status, bookings.StatusCompleted)
	}
	var key string
	if len(up.Photo) > 0 {
		if s.photos == nil {
			return nil, ErrPhotosUnavailable
		}
		key, err = s.photos.PutCompletionPhoto(ctx, id, up.Photo, up.ContentType)
		if err != nil {
			return nil, fmt.Errorf("admin: store completion photo: %w", err)
		}
	}
	b, err := s.bookings.Complete(ctx, id, key, up.Note)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionBookingCompleted, "booking", b.ID, map[string]any{"photo": key != "", "note": up.Note})
	return b, nil
}

// NotifyResult is the body of POST /admin/bookings/{id}/notify-customer.
type NotifyResult struct {
	SMSStatus      messaging.Result `json:"sms_status"`
	CustomerPhone  string           `json:"customer_phone"`
	PhotoAvailable bool             `json:"photo_available"`
}

// NotifyCustomer texts the customer that the pickup is done, attaching the
// completion photo as MMS media when there is one.
func (s *Service) NotifyCustomer(ctx context.Context, id string) (*NotifyResult, error) {
	ctx, span := tracer.Start(ctx, "admin.notify_customer")
	defer span.End()

	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	body, err := templates.Renderer{}.Render("pickup_completed", templates.PickupCompleted, map[string]string{
		"Reference": b.ShortID(),
	})
	if err != nil {
		return nil, err
	}

	photoAvailable := b.Completion != nil && b.Completion.PhotoKey != ""
	var media []string
	if photoAvailable && s.cfg.APIPublicURL != "" {
		media = append(media, s.cfg.APIPublicURL+"/api/public/completion-photo/"+b.ID)
	}
	span.SetAttributes(attribute.Bool("admin.photo", photoAvailable))

	result := messaging.Result{Status: messaging.StatusSimulated, Provider: messaging.SMSProviderSimulated}
	if s.sms != nil {
		result = s.sms.Send(ctx, b.Phone, body, media...)
	}
	s.logger.Info("completion notice sent", "booking_id", b.ID, "status", result.Status, "phone", messaging.MaskPhone(b.Phone))
	s.record(ctx, audit.ActionCustomerNotified, "booking", b.ID, map[string]any{"status": result.Status, "provider": result.Provider})
	return &NotifyResult{SMSStatus: result, CustomerPhone: b.Phone, PhotoAvailable: photoAvailable}, nil
}

// RoutePlan orders the day's pickups.
func (s *Service) RoutePlan(ctx context.Context, date string) (*routing.Plan, error) {
	d, err := s.dateOrToday(date)
	if err != nil {
		return nil, err
	}
	day := d.Format(scheduling.DateLayout)
	list, err := s.bookings.List(ctx, bookings.ListFilter{StartDate: day, EndDate: day})
	if err != nil {
		return nil, err
	}
	stops := make([]routing.StopInput, 0, len(list))
	for _, b := range list {
		if b.Status == bookings.StatusCompleted {
			continue
		}
		start, _, _ := strings.Cut(b.PickupTime, "-")
		stops = append(stops, routing.StopInput{
			BookingID:  b.ID,
			Address:    b.Address,
			PickupTime: b.PickupTime,
			Phone:      b.Phone,
			Notes:      b.SpecialInstructions,
			SlotStart:  start,
		})
	}
	return s.planner.Plan(ctx, day, stops)
}

// RouteSheet renders the day's plan as a PDF.
func (s *Service) RouteSheet(ctx context.Context, date string) (*routing.Plan, []byte, error) {
	plan, err := s.RoutePlan(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := routing.RenderSheet(plan, s.now().In(s.loc))
	if err != nil {
		return nil, nil, err
	}
	return plan, pdf, nil
}

// ReviewResult is the body of POST /admin/quotes/{id}/approve.
type ReviewResult struct {
	Quote                 *quotes.Quote       `json:"quote"`
	PriceIncreased        bool                `json:"price_increased"`
	AwaitingCustomer      []*bookings.Booking `json:"awaiting_customer,omitempty"`
	AwaitingCustomerCount int                 `json:"awaiting_customer_count"`
}

// ReviewQuote applies an admin decision. Approving above the quoted price
// sends every scheduled booking on the quote to the customer for approval.
func (s *Service) ReviewQuote(ctx context.Context, id string, req quotes.ReviewRequest, reviewer string) (*ReviewResult, error) {
	ctx, span := tracer.Start(ctx, "admin.review_quote")
	defer span.End()

	outcome, err := s.quotes.Review(ctx, id, req, reviewer)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionQuoteReviewed, "quote", outcome.Quote.ID, req)
	res := &ReviewResult{Quote: outcome.Quote}
	if req.Action != quotes.ReviewApprove || !outcome.PriceIncreased() {
		return res, nil
	}
	res.PriceIncreased = true
	pending, err := s.bookings.RequestPriceAdjustment(ctx, outcome.Quote.ID, outcome.OriginalPrice, outcome.FinalPrice, req.AdminNotes)
	if err != nil {
		return nil, fmt.Errorf("admin: request price adjustment: %w", err)
	}
	res.AwaitingCustomer = pending
	res.AwaitingCustomerCount = len(pending)
	return res, nil
}

func (s *Service) PendingQuotes(ctx context.Context) ([]*quotes.Quote, error) {
	list, err := s.quotes.PendingReview(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*quotes.Quote{}
	}
	return list, nil
}

func (s *Service) QuoteStats(ctx context.Context) (quotes.ApprovalStats, error) {
	return s.quotes.ApprovalStats(ctx)
}

// CompletionPhoto loads a booking's completion photo.
func (s *Service) CompletionPhoto(ctx context.Context, bookingID string) (*photos.Object, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Completion == nil || b.Completion.PhotoKey == "" {
		return nil, ErrNoPhoto
	}
	return s.open(ctx, b.Completion.PhotoKey)
}

// QuoteImage loads the image an image quote was priced from.
func (s *Service) QuoteImage(ctx context.Context, quoteID string) (*photos.Object, error) {
	q, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.ImageKey == "" {
		return nil, ErrNoImage
	}
	return s.open(ctx, q.ImageKey)
}

func (s *Service) open(ctx context.Context, key string) (*photos.Object, error) {
	if s.photos == nil {
		return nil, ErrPhotosUnavailable
	}
	return s.photos.Open(ctx, key)
}

// SMSCheck is the body of POST /admin/test-sms.
type SMSCheck struct {
	Configured bool              `json:"configured"`
	Provider   string            `json:"provider"`
	Message    string            `json:"message"`
	Result     *messaging.Result `json:"result,omitempty"`
}

// TestSMS reports the SMS configuration and, when phone is set, sends a test text.
func (s *Service) TestSMS(ctx context.Context, phone string) SMSCheck {
	if s.sms == nil || !s.sms.Configured() {
		return SMSCheck{
			Provider: messaging.SMSProviderSimulated,
			Message:  "SMS is not configured; customer texts are simulated",
		}
	}
	check := SMSCheck{Configured: true, Provider: s.sms.Provider()}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		check.Message = fmt.Sprintf("SMS is configured via %s", check.Provider)
		return check
	}
	res := s.sms.Send(ctx, phone, "Text2toss: this is a test message from the admin console.")
	check.Result = &res
	if res.Status == messaging.StatusSent {
		check.Message = "Test message sent to " + messaging.MaskPhone(phone)
	} else {
		check.Message = "Test message failed: " + res.Error
	}
	return check
}

// CleanupResult is the body of POST /admin/cleanup-temp-images.
type CleanupResult struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// CleanupTempImages removes expired quote images now rather than waiting
// for the janitor.
func (s *Service) CleanupTempImages(ctx context.Context) (*CleanupResult, error) {
	if s.photos == nil {
		return nil, ErrPhotosUnavailable
	}
	n, err := s.photos.CleanupTemp(ctx, s.cfg.TempImageMaxAge)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionTempImagesCleaned, "", "", map[string]int{"deleted": n})
	return &CleanupResult{
		Deleted: n,
		Message: fmt.Sprintf("Deleted %d temporary image(s) older than %s", n, s.cfg.TempImageMaxAge),
	}, nil
}
