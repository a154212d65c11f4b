package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/internal/events"
	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

var tracer = otel.Tracer("text2toss.internal.quotes")

// FallbackImageScale is used for photo quotes when no estimator answers; it
// sits at the approval threshold so an admin always looks at the job.
const FallbackImageScale = ApprovalThreshold

const fallbackNotice = "Basic pricing applied: AI analysis is temporarily unavailable."

// ImageStore keeps uploaded quote photos.
type ImageStore interface {
	PutQuoteImage(ctx context.Context, quoteID string, data []byte, contentType string) (string, error)
}

// Publisher records domain events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Service creates and reviews quotes.
type Service struct {
	repo      Repository
	estimator Estimator
	images    ImageStore
	events    Publisher
	metrics   *metrics.Metrics
	logger    *logging.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewService wires the quote service. estimator, images and publisher may be nil.
func NewService(repo Repository, estimator Estimator, images ImageStore, publisher Publisher, logger *logging.Logger) *Service {
	if repo == nil {
		panic("quotes: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		estimator: estimator,
		images:    images,
		events:    publisher,
		logger:    logger,
		timeout:   25 * time.Second,
		now:       time.Now,
	}
}

// WithMetrics attaches business metrics.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// WithEstimatorTimeout bounds each AI estimate.
func (s *Service) WithEstimatorTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// CreateFromItems prices a manual item list.
func (s *Service) CreateFromItems(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	ctx, span := tracer.Start(ctx, "quotes.create_from_items")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("quotes.item_count", len(req.Items)))

	est, err := s.estimateItems(ctx, req.Items, req.Description)
	if err != nil {
		s.logger.Warn("item estimate failed; using rule pricing", "error", err)
		est = RuleEstimate(req.Items)
		est.Explanation = fallbackNotice + " " + est.Explanation
		est.Provider = "rules"
	}
	est.Items = req.Items

	q := s.build(uuid.NewString(), SourceItems, req.Description, est)
	if err := s.persist(ctx, q); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("quotes.scale_level", q.ScaleLevel))
	return q, nil
}

// CreateFromImage prices a photo of the junk pile.
func (s *Service) CreateFromImage(ctx context.Context, img ImageInput) (*Quote, error) {
	ctx, span := tracer.Start(ctx, "quotes.create_from_image")
	defer span.End()

	if len(img.Data) == 0 {
		return nil, ErrImageRequired
	}
	if _, err := imageFormat(img.MIMEType); err != nil {
		return nil, err
	}
	img.Description = strings.TrimSpace(img.Description)

	id := uuid.NewString()
	var imageKey string
	if s.images != nil {
		key, err := s.images.PutQuoteImage(ctx, id, img.Data, img.MIMEType)
		if err != nil {
			// The quote is still useful without the stored photo.
			s.logger.Error("failed to store quote image", "error", err, "quote_id", id)
		} else {
			imageKey = key
		}
	}

	est, err := s.estimateImage(ctx, img)
	if err != nil {
		s.logger.Warn("image estimate failed; using fallback scale", "error", err, "quote_id", id)
		band := BandFor(FallbackImageScale)
		explanation := fmt.Sprintf("%s Photo quotes default to scale %d ($%d-$%d) until our team reviews the picture.",
			fallbackNotice, FallbackImageScale, band.Low, band.High)
		est = Estimate{
			ScaleLevel:  FallbackImageScale,
			TotalPrice:  float64(band.Midpoint()),
			Explanation: explanation,
			Provider:    "rules",
		}
	}
	if est.Items == nil {
		est.Items = []Item{}
	}

	q := s.build(id, SourceImage, img.Description, est)
	q.ImageKey = imageKey
	if err := s.persist(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Get fetches a quote by id.
func (s *Service) Get(ctx context.Context, id string) (*Quote, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrQuoteNotFound
	}
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	hydrate(q)
	return q, nil
}

// PendingReview lists quotes awaiting admin approval, oldest first.
func (s *Service) PendingReview(ctx context.Context) ([]*Quote, error) {
	quotes, err := s.repo.ListByApprovalStatus(ctx, ApprovalPending)
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		hydrate(q)
	}
	return quotes, nil
}

// ApprovalStats summarizes the review queue.
func (s *Service) ApprovalStats(ctx context.Context) (ApprovalStats, error) {
	return s.repo.ApprovalStats(ctx)
}

// ReviewOutcome describes the effect of an admin decision.
type ReviewOutcome struct {
	Quote         *Quote
	OriginalPrice float64
	FinalPrice    float64
}

// PriceIncreased reports whether the approved price is above the quote.
func (o ReviewOutcome) PriceIncreased() bool {
	return ToCents(o.FinalPrice) > ToCents(o.OriginalPrice)
}

// Review applies an admin approve/reject decision to a pending quote.
func (s *Service) Review(ctx context.Context, id string, req ReviewRequest, reviewer string) (*ReviewOutcome, error) {
	ctx, span := tracer.Start(ctx, "quotes.review")
	defer span.End()
	span.SetAttributes(attribute.String("quotes.id", id), attribute.String("quotes.action", string(req.Action)))

	if err := req.Validate(); err != nil {
		return nil, err
	}
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.ApprovalStatus != ApprovalPending {
		return nil, ErrAlreadyReviewed
	}

	now := s.now().UTC()
	q.AdminNotes = strings.TrimSpace(req.AdminNotes)
	q.ApprovedBy = reviewer
	q.ApprovedAt = &now
	switch req.Action {
	case ReviewApprove:
		q.ApprovalStatus = ApprovalApproved
		if req.ApprovedPrice != nil {
			price := FromCents(ToCents(*req.ApprovedPrice))
			q.ApprovedPrice = &price
		}
	case ReviewReject:
		q.ApprovalStatus = ApprovalRejected
		q.ApprovedPrice = nil
	}
	if err := s.repo.UpdateReview(ctx, q); err != nil {
		return nil, err
	}
	s.metrics.ObserveQuoteReview(string(q.ApprovalStatus))
	s.logger.Info("quote reviewed", "quote_id", q.ID, "status", q.ApprovalStatus, "reviewer", reviewer)

	return &ReviewOutcome{
		Quote:         q,
		OriginalPrice: q.TotalPrice,
		FinalPrice:    q.PayableAmount(),
	}, nil
}

func (s *Service) estimateItems(ctx context.Context, items []Item, description string) (Estimate, error) {
	if s.estimator == nil {
		return Estimate{}, ErrEstimatorUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := s.now()
	est, err := s.estimator.EstimateItems(ctx, items, description)
	s.metrics.ObserveEstimate(SourceItems, err == nil, s.now().Sub(start).Seconds())
	return est, err
}

func (s *Service) estimateImage(ctx context.Context, img ImageInput) (Estimate, error) {
	if s.estimator == nil {
		return Estimate{}, ErrEstimatorUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := s.now()
	est, err := s.estimator.EstimateImage(ctx, img)
	s.metrics.ObserveEstimate(SourceImage, err == nil, s.now().Sub(start).Seconds())
	return est, err
}

// build turns an estimate into a quote, enforcing scale and price bounds.
func (s *Service) build(id, source, description string, est Estimate) *Quote {
	scale := ClampScale(est.ScaleLevel)
	price := ClampPrice(scale, est.TotalPrice)
	if est.TotalPrice <= 0 {
		price = float64(BandFor(scale).Midpoint())
	}
	q := &Quote{
		ID:               id,
		Items:            est.Items,
		Description:      description,
		TotalPrice:       price,
		ScaleLevel:       scale,
		AIExplanation:    est.Explanation,
		Source:           source,
		RequiresApproval: scale >= ApprovalThreshold,
		CreatedAt:        s.now().UTC(),
	}
	if q.RequiresApproval {
		q.ApprovalStatus = ApprovalPending
	} else {
		q.ApprovalStatus = ApprovalAutoApproved
	}
	hydrate(q)
	return q
}

func (s *Service) persist(ctx context.Context, q *Quote) error {
	if err := s.repo.Create(ctx, q); err != nil {
		return err
	}
	s.metrics.ObserveQuote(q.Source, q.ScaleLevel, q.RequiresApproval)
	s.logger.Info("quote created",
		"quote_id", q.ID,
		"source", q.Source,
		"scale_level", q.ScaleLevel,
		"total_price", q.TotalPrice,
		"requires_approval", q.RequiresApproval,
	)
	if q.RequiresApproval && s.events != nil {
		evt := events.QuoteReviewRequestedV1{
			QuoteID:      q.ID,
			ScaleLevel:   q.ScaleLevel,
			TotalPrice:   q.TotalPrice,
			HighPriority: q.HighPriority,
			Source:       q.Source,
			Description:  q.Description,
			OccurredAt:   q.CreatedAt,
		}
		if err := s.events.Publish(ctx, events.TypeQuoteReviewRequested, evt); err != nil {
			s.logger.Error("failed to publish quote review event", "error", err, "quote_id", q.ID)
		}
	}
	return nil
}
