package admin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/text2toss/junk-removal-api/internal/audit"
	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/messaging"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Monday 2 March 2026, 09:00 in the business timezone.
var fixtureNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type stubSMS struct {
	mu         sync.Mutex
	configured bool
	status     string
	sent       []sentSMS
}

type sentSMS struct {
	to, body string
	media    []string
}

func (s *stubSMS) Send(_ context.Context, to, body string, media ...string) messaging.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentSMS{to: to, body: body, media: media})
	status := s.status
	if status == "" {
		status = messaging.StatusSent
	}
	return messaging.Result{Status: status, Provider: "twilio"}
}

func (s *stubSMS) Configured() bool { return s.configured }
func (s *stubSMS) Provider() string { return "twilio" }

type fixture struct {
	svc      *Service
	bookings *bookings.InMemoryRepository
	quotes   *quotes.InMemoryRepository
	photos   *photos.Service
	store    *photos.MemoryStore
	sms      *stubSMS
	audit    *audit.MemoryLog
}

func price(v float64) *float64 { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := logging.New("error")

	quoteRepo := quotes.NewInMemoryRepository()
	for _, q := range []*quotes.Quote{
		{ID: "q-small", TotalPrice: 65, ScaleLevel: 2, ApprovalStatus: quotes.ApprovalAutoApproved, Source: quotes.SourceItems, CreatedAt: fixtureNow.Add(-48 * time.Hour)},
		{ID: "q-big", TotalPrice: 185, ScaleLevel: 6, RequiresApproval: true, ApprovalStatus: quotes.ApprovalPending,
			Source: quotes.SourceImage, ImageKey: "quotes/tmp/q-big.jpg", CreatedAt: fixtureNow.Add(-24 * time.Hour)},
	} {
		require.NoError(t, quoteRepo.Create(ctx, q))
	}

	bookingRepo := bookings.NewInMemoryRepository()
	for _, b := range []*bookings.Booking{
		{ID: "b-today-1", QuoteID: "q-small", PickupDate: "2026-03-02", PickupTime: "10:00-12:00", Address: "1 Main St", Phone: "+15550000001", Status: bookings.StatusScheduled},
		{ID: "b-today-2", QuoteID: "q-small", PickupDate: "2026-03-02", PickupTime: "08:00-10:00", Address: "2 Elm St", Phone: "+15550000002", Status: bookings.StatusInProgress},
		{ID: "b-past", QuoteID: "q-small", PickupDate: "2026-02-26", PickupTime: "12:00-14:00", Address: "3 Oak St", Phone: "+15550000003", Status: bookings.StatusScheduled},
		{ID: "b-future", QuoteID: "q-big", PickupDate: "2026-03-04", PickupTime: "14:00-16:00", Address: "4 Pine St", Phone: "+15550000004", Status: bookings.StatusScheduled},
		{ID: "b-done", QuoteID: "q-small", PickupDate: "2026-02-25", PickupTime: "08:00-10:00", Address: "5 Ash St", Phone: "+15550000005", Status: bookings.StatusCompleted,
			Completion: &bookings.Completion{PhotoKey: "completions/b-done/photo.jpg", CompletedAt: fixtureNow.Add(-120 * time.Hour)}},
		{ID: "b-cancel", QuoteID: "q-small", PickupDate: "2026-03-03", PickupTime: "08:00-10:00", Address: "6 Fir St", Phone: "+15550000006", Status: bookings.StatusCancelled},
		{ID: "b-pend", QuoteID: "q-small", PickupDate: "2026-03-05", PickupTime: "16:00-18:00", Address: "7 Elm St", Phone: "+15550000007", Status: bookings.StatusPendingCustomerApproval},
	} {
		b.PaymentMethod = bookings.PaymentMethodStripe
		b.PaymentStatus = bookings.PaymentUnpaid
		require.NoError(t, bookingRepo.Create(ctx, b))
	}

	store := photos.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "completions/b-done/photo.jpg", []byte("jpeg-bytes"), "image/jpeg"))
	require.NoError(t, store.Put(ctx, "quotes/tmp/q-big.jpg", []byte("quote-bytes"), "image/jpeg"))
	photoSvc := photos.NewService(store, logger)

	quoteSvc := quotes.NewService(quoteRepo, nil, nil, nil, logger)
	bookingSvc := bookings.NewService(bookingRepo, quoteSvc, nil, nil, logger)

	sms := &stubSMS{configured: true}
	auditLog := audit.NewMemoryLog()
	svc := NewService(bookingSvc, quoteSvc, logger).
		WithConfig(Config{APIPublicURL: "https://api.text2toss.com/", TempImageMaxAge: 72 * time.Hour}).
		WithPhotos(photoSvc, photos.NewInMemoryGallery()).
		WithSMS(sms).
		WithAudit(auditLog)
	svc.now = func() time.Time { return fixtureNow }

	return &fixture{svc: svc, bookings: bookingRepo, quotes: quoteRepo, photos: photoSvc, store: store, sms: sms, audit: auditLog}
}

func ids(list []ScheduledBooking) []string {
	out := []string{}
	for _, sb := range list {
		out = append(out, sb.ID)
	}
	return out
}
