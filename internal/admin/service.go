package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"go.opentelemetry.io/otel"

	"github.com/text2toss/junk-removal-api/internal/audit"
	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/http/middleware"
	"github.com/text2toss/junk-removal-api/internal/messaging"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/routing"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

var tracer = otel.Tracer("text2toss.internal.admin")

// BookingStore is the slice of the booking service the console drives.
type BookingStore interface {
	Get(ctx context.Context, id string) (*bookings.Booking, error)
	List(ctx context.Context, filter bookings.ListFilter) ([]*bookings.Booking, error)
	Update(ctx context.Context, id string, req bookings.UpdateRequest) (*bookings.Booking, error)
	Complete(ctx context.Context, id, photoKey, note string) (*bookings.Booking, error)
	RequestPriceAdjustment(ctx context.Context, quoteID string, original, adjusted float64, adminNotes string) ([]*bookings.Booking, error)
}

// QuoteStore is the slice of the quote service the console drives.
type QuoteStore interface {
	Get(ctx context.Context, id string) (*quotes.Quote, error)
	PendingReview(ctx context.Context) ([]*quotes.Quote, error)
	ApprovalStats(ctx context.Context) (quotes.ApprovalStats, error)
	Review(ctx context.Context, id string, req quotes.ReviewRequest, reviewer string) (*quotes.ReviewOutcome, error)
}

// PhotoStore stores and serves images.
type PhotoStore interface {
	PutCompletionPhoto(ctx context.Context, bookingID string, data []byte, contentType string) (string, error)
	PutGalleryPhoto(ctx context.Context, data []byte, contentType string) (string, error)
	Open(ctx context.Context, key string) (*photos.Object, error)
	CleanupTemp(ctx context.Context, maxAge time.Duration) (int, error)
}

// SMSSender sends customer texts and reports how it went.
type SMSSender interface {
	Send(ctx context.Context, to, body string, mediaURLs ...string) messaging.Result
	Configured() bool
	Provider() string
}

// AuditLog records console actions.
type AuditLog interface {
	Record(ctx context.Context, event audit.Event) error
	Recent(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// Config holds console settings.
type Config struct {
	// APIPublicURL prefixes links to public photo endpoints.
	APIPublicURL    string
	TempImageMaxAge time.Duration
}

// Service backs the admin console.
type Service struct {
	bookings BookingStore
	quotes   QuoteStore
	photos   PhotoStore
	gallery  photos.GalleryRepository
	planner  *routing.Planner
	sms      SMSSender
	audit    AuditLog
	cfg      Config
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(bookingStore BookingStore, quoteStore QuoteStore, logger *logging.Logger) *Service {
	if bookingStore == nil || quoteStore == nil {
		panic("admin: booking and quote stores required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		bookings: bookingStore,
		quotes:   quoteStore,
		planner:  routing.NewPlanner(nil, "", logger),
		cfg:      Config{TempImageMaxAge: 72 * time.Hour},
		logger:   logger,
		loc:      time.UTC,
		now:      time.Now,
	}
}

func (s *Service) WithConfig(cfg Config) *Service {
	cfg.APIPublicURL = strings.TrimRight(cfg.APIPublicURL, "/")
	if cfg.TempImageMaxAge <= 0 {
		cfg.TempImageMaxAge = s.cfg.TempImageMaxAge
	}
	s.cfg = cfg
	return s
}

func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) WithPhotos(store PhotoStore, gallery photos.GalleryRepository) *Service {
	s.photos = store
	s.gallery = gallery
	return s
}

func (s *Service) WithPlanner(p *routing.Planner) *Service {
	if p != nil {
		s.planner = p
	}
	return s
}

func (s *Service) WithSMS(sms SMSSender) *Service {
	s.sms = sms
	return s
}

func (s *Service) WithAudit(log AuditLog) *Service {
	s.audit = log
	return s
}

// record writes an audit event for the signed-in admin. Failures are logged,
// never returned: the action itself already happened.
func (s *Service) record(ctx context.Context, action audit.Action, targetType, targetID string, details any) {
	if s.audit == nil {
		return
	}
	event := audit.NewEvent(action, middleware.AdminSubject(ctx), targetType, targetID, details)
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn("audit record failed", "action", string(action), "target_id", targetID, "error", err)
	}
}

// AuditTrail lists recent console actions, newest first.
func (s *Service) AuditTrail(ctx context.Context, filter audit.Filter) ([]audit.Event, error) {
	if s.audit == nil {
		return []audit.Event{}, nil
	}
	return s.audit.Recent(ctx, filter)
}

// ScheduledBooking is a booking with its quote embedded for display.
type ScheduledBooking struct {
	*bookings.Booking
	Quote *quotes.Quote `json:"quote,omitempty"`
}

// DailySchedule is the body of GET /admin/daily-schedule.
type DailySchedule struct {
	Date     string             `json:"date"`
	Bookings []ScheduledBooking `json:"bookings"`
}

// WeeklySchedule is the body of GET /admin/weekly-schedule.
type WeeklySchedule struct {
	StartDate string                        `json:"start_date"`
	EndDate   string                        `json:"end_date"`
	Days      map[string][]ScheduledBooking `json:"days"`
}

// Bins groups active bookings for the job board.
type Bins struct {
	New        []ScheduledBooking `json:"new"`
	Upcoming   []ScheduledBooking `json:"upcoming"`
	InProgress []ScheduledBooking `json:"inProgress"`
	Completed  []ScheduledBooking `json:"completed"`
}

func (s *Service) today() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Service) dateOrToday(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return s.today(), nil
	}
	return scheduling.ParseDate(value, s.loc)
}

// Daily lists the day's bookings in slot order, each with its quote.
func (s *Service) Daily(ctx context.Context, date string) (*DailySchedule, error) {
	d, err := s.dateOrToday(date)
	if err != nil {
		return nil, err
	}
	day := d.Format(scheduling.DateLayout)
	list, err := s.bookings.List(ctx, bookings.ListFilter{StartDate: day, EndDate: day})
	if err != nil {
		return nil, err
	}
	return &DailySchedule{Date: day, Bookings: s.withQuotes(ctx, list)}, nil
}

// Weekly returns seven days of bookings starting at start, which defaults to
// the Monday of the current week.
func (s *Service) Weekly(ctx context.Context, start string) (*WeeklySchedule, error) {
	var first time.Time
	if strings.TrimSpace(start) == "" {
		cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: s.loc}
		first = cfg.With(s.today()).BeginningOfWeek()
	} else {
		d, err := scheduling.ParseDate(start, s.loc)
		if err != nil {
			return nil, err
		}
		first = d
	}
	last := first.AddDate(0, 0, 6)

	out := &WeeklySchedule{
		StartDate: first.Format(scheduling.DateLayout),
		EndDate:   last.Format(scheduling.DateLayout),
		Days:      make(map[string][]ScheduledBooking, 7),
	}
	for i := 0; i < 7; i++ {
		out.Days[first.AddDate(0, 0, i).Format(scheduling.DateLayout)] = []ScheduledBooking{}
	}
	list, err := s.bookings.List(ctx, bookings.ListFilter{StartDate: out.StartDate, EndDate: out.EndDate})
	if err != nil {
		return nil, err
	}
	for _, sb := range s.withQuotes(ctx, list) {
		out.Days[sb.PickupDate] = append(out.Days[sb.PickupDate], sb)
	}
	return out, nil
}

// Calendar maps each date in [start, end] that has bookings to those bookings.
// start defaults to today and end to 30 days later.
func (s *Service) Calendar(ctx context.Context, start, end string) (map[string][]ScheduledBooking, error) {
	first, err := s.dateOrToday(start)
	if err != nil {
		return nil, err
	}
	last := first.AddDate(0, 0, 30)
	if strings.TrimSpace(end) != "" {
		if last, err = scheduling.ParseDate(end, s.loc); err != nil {
			return nil, err
		}
	}
	if last.Before(first) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidRange)
	}
	if scheduling.InclusiveDays(first, last) > scheduling.MaxRangeDays {
		return nil, fmt.Errorf("%w: at most %d days", ErrInvalidRange, scheduling.MaxRangeDays)
	}

	list, err := s.bookings.List(ctx, bookings.ListFilter{
		StartDate: first.Format(scheduling.DateLayout),
		EndDate:   last.Format(scheduling.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]ScheduledBooking)
	for _, sb := range s.withQuotes(ctx, list) {
		out[sb.PickupDate] = append(out[sb.PickupDate], sb)
	}
	return out, nil
}

// Bins sorts every active booking into the job board columns.
func (s *Service) Bins(ctx context.Context) (*Bins, error) {
	list, err := s.bookings.List(ctx, bookings.ListFilter{})
	if err != nil {
		return nil, err
	}
	today := s.today().Format(scheduling.DateLayout)
	bins := &Bins{
		New:        []ScheduledBooking{},
		Upcoming:   []ScheduledBooking{},
		InProgress: []ScheduledBooking{},
		Completed:  []ScheduledBooking{},
	}
	for _, sb := range s.withQuotes(ctx, list) {
		switch sb.Status {
		case bookings.StatusCompleted:
			bins.Completed = append(bins.Completed, sb)
		case bookings.StatusInProgress:
			bins.InProgress = append(bins.InProgress, sb)
		case bookings.StatusScheduled, bookings.StatusPendingCustomerApproval:
			if sb.PickupDate <= today {
				bins.New = append(bins.New, sb)
			} else {
				bins.Upcoming = append(bins.Upcoming, sb)
			}
		}
	}
	return bins, nil
}

// UpdateBooking applies an admin PATCH.
func (s *Service) UpdateBooking(ctx context.Context, id string, req bookings.UpdateRequest) (*bookings.Booking, error) {
	b, err := s.bookings.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionBookingUpdated, "booking", b.ID, req)
	return b, nil
}

func (s *Service) withQuotes(ctx context.Context, list []*bookings.Booking) []ScheduledBooking {
	bookings.SortBySchedule(list)
	cache := make(map[string]*quotes.Quote)
	out := make([]ScheduledBooking, 0, len(list))
	for _, b := range list {
		q, seen := cache[b.QuoteID]
		if !seen {
			var err error
			q, err = s.quotes.Get(ctx, b.QuoteID)
			if err != nil {
				s.logger.Warn("quote missing for booking", "booking_id", b.ID, "quote_id", b.QuoteID, "error", err)
				q = nil
			}
			cache[b.QuoteID] = q
		}
		out = append(out, ScheduledBooking{Booking: b, Quote: q})
	}
	return out
}
