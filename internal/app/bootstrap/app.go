package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/text2toss/junk-removal-api/internal/admin"
	"github.com/text2toss/junk-removal-api/internal/api/router"
	"github.com/text2toss/junk-removal-api/internal/approvals"
	"github.com/text2toss/junk-removal-api/internal/audit"
	"github.com/text2toss/junk-removal-api/internal/bookings"
	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/internal/events"
	"github.com/text2toss/junk-removal-api/internal/http/handlers"
	httpmiddleware "github.com/text2toss/junk-removal-api/internal/http/middleware"
	"github.com/text2toss/junk-removal-api/internal/live"
	"github.com/text2toss/junk-removal-api/internal/notify"
	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/internal/payments"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/routing"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// webhookLedger dedupes provider webhook deliveries.
type webhookLedger interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
	events.Pruner
}

// processedPruneInterval paces the webhook ledger cleanup.
const processedPruneInterval = 24 * time.Hour

// App is the fully wired API process: the HTTP handler plus the background
// loops that serve it.
type App struct {
	Handler http.Handler
	Metrics *metrics.Metrics

	hub       *live.Hub
	deliverer *events.Deliverer
	janitor   *photos.Janitor
	processed webhookLedger

	inlineWorkers bool

	pool    *pgxpool.Pool
	sqlDB   *sql.DB
	redis   *redis.Client
	closers []func()
	logger  *logging.Logger
	wg      sync.WaitGroup
}

// Options carries dependencies the caller already owns. All fields are optional.
type Options struct {
	AWS *aws.Config
	// Registry receives the business metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
}

// Build connects storage and wires every service behind the router. With no
// DATABASE_URL the API runs on in-memory repositories.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{logger: logger, inlineWorkers: cfg.InlineWorkers}
	loc := cfg.Location()

	// Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := opts.Registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		app.Metrics = metrics.New(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Storage
	pool, sqlDB, err := ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	app.pool, app.sqlDB = pool, sqlDB
	if pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory storage")
	}
	app.redis = BuildRedisClient(ctx, cfg, logger, true)

	var (
		quoteRepo   quotes.Repository
		bookingRepo bookings.Repository
		paymentRepo payments.Repository
		gallery     photos.GalleryRepository
		processed   webhookLedger
		auditLog    admin.AuditLog
	)
	if pool != nil {
		quoteRepo = quotes.NewPostgresRepository(pool)
		bookingRepo = bookings.NewPostgresRepository(pool)
		paymentRepo = payments.NewPostgresRepository(pool)
		gallery = photos.NewPostgresGallery(pool)
		processed = events.NewProcessedStore(pool)
		auditLog = audit.NewService(sqlDB)
	} else {
		quoteRepo = quotes.NewInMemoryRepository()
		bookingRepo = bookings.NewInMemoryRepository()
		paymentRepo = payments.NewInMemoryRepository()
		gallery = photos.NewInMemoryGallery()
		processed = events.NewMemoryProcessedStore()
		auditLog = audit.NewMemoryLog()
	}
	app.processed = processed
	photoSvc := photos.NewService(BuildObjectStore(cfg, opts.AWS, logger), logger)
	app.janitor = photos.NewJanitor(photoSvc, cfg.TempImageMaxAge, cfg.JanitorInterval, logger)

	// Notifications and the outbox
	sms := BuildSMSDispatcher(cfg, app.Metrics, logger)
	notifier := notify.NewService(BuildEmailSender(cfg, opts.AWS, logger), sms, notify.Config{
		AdminEmail:    cfg.AdminEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger)

	var publisher quotes.Publisher
	if pool != nil {
		outbox := events.NewOutboxStore(pool)
		publisher = outbox
		app.deliverer = events.NewDeliverer(outbox, notifier, logger).
			WithInterval(cfg.OutboxInterval).
			WithMetrics(app.Metrics)
	} else {
		publisher = events.NewInlinePublisher(notifier, logger)
	}

	// Domain services
	estimator, closeEstimator, err := BuildEstimator(ctx, cfg, opts.AWS, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeEstimator)

	quoteSvc := quotes.NewService(quoteRepo, estimator, photoSvc, publisher, logger).
		WithMetrics(app.Metrics).
		WithEstimatorTimeout(cfg.EstimatorTimeout)

	app.hub = live.NewHub(logger)
	holder := scheduling.NewSlotHolder(app.redis, cfg.SlotHoldTTL, logger)
	bookingSvc := bookings.NewService(bookingRepo, quoteSvc, holder, publisher, logger).
		WithLocation(loc).
		WithMetrics(app.Metrics).
		WithListener(app.hub)
	availability := scheduling.NewService(bookingRepo, loc)

	checkout := payments.NewStripeCheckoutService(cfg.StripeSecretKey, logger)
	if cfg.StripeDryRun || strings.TrimSpace(cfg.StripeSecretKey) == "" {
		logger.Warn("stripe running in dry-run mode")
		checkout = checkout.WithDryRun(true)
	}
	paymentSvc := payments.NewService(bookingSvc, quoteSvc, checkout, paymentRepo, logger).
		WithVelocity(payments.NewVelocityChecker(app.redis, payments.DefaultVelocityConfig(), logger)).
		WithPublisher(publisher).
		WithVenmo(payments.NewVenmoBuilder(cfg.VenmoHandle)).
		WithMetrics(app.Metrics)

	var planner *routing.Planner
	if strings.TrimSpace(cfg.GoogleMapsAPIKey) != "" {
		planner = routing.NewPlanner(routing.NewDirectionsClient(cfg.GoogleMapsAPIKey), cfg.DepotAddress, logger)
	} else {
		planner = routing.NewPlanner(nil, cfg.DepotAddress, logger)
	}
	adminSvc := admin.NewService(bookingSvc, quoteSvc, logger).
		WithConfig(admin.Config{APIPublicURL: cfg.APIPublicURL, TempImageMaxAge: cfg.TempImageMaxAge}).
		WithLocation(loc).
		WithPhotos(photoSvc, gallery).
		WithPlanner(planner).
		WithSMS(sms).
		WithAudit(auditLog)

	auth, err := admin.NewAuthenticator(admin.AuthConfig{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Password:     cfg.AdminPassword,
		Secret:       cfg.AdminJWTSecret,
		TTL:          cfg.AdminTokenTTL,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap: admin auth: %w", err)
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin console disabled")
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = httpmiddleware.NewRateLimiter(app.redis, cfg.RateLimitPerMinute, logger)
	}

	app.Handler = router.New(&router.Config{
		Logger:              logger,
		Metrics:             app.Metrics,
		QuotesHandler:       quotes.NewHandler(quoteSvc, logger),
		AvailabilityHandler: scheduling.NewHandler(availability, logger),
		BookingsHandler:     bookings.NewHandler(bookingSvc, logger),
		PaymentsHandler:     payments.NewHandler(paymentSvc, logger),
		StripeWebhook:       payments.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentSvc, processed, logger),
		ApprovalsHandler:    approvals.NewHandler(bookingSvc, logger),
		AdminHandler:        admin.NewHandler(adminSvc, auth, logger),
		AdminDashboard:      handlers.NewAdminDashboardHandler(sqlDB, logger),
		LiveHandler:         live.NewHandler(app.hub, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
		Ready:               app.Ready,
	})
	return app, nil
}

// Start launches the background loops. They stop when ctx is cancelled;
// Wait blocks until they have.
func (a *App) Start(ctx context.Context) {
	a.goRun(func() { a.hub.Run(ctx) })
	if !a.inlineWorkers {
		a.logger.Info("outbox and janitor delegated to the worker process")
		return
	}
	a.goRun(func() { a.janitor.Start(ctx) })
	a.goRun(func() { events.RunPruner(ctx, a.processed, events.ProcessedRetention, processedPruneInterval, a.logger) })
	if a.deliverer != nil {
		a.goRun(func() { a.deliverer.Start(ctx) })
	}
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Wait blocks until every background loop has returned.
func (a *App) Wait() {
	a.wg.Wait()
}

// Ready pings the backing stores.
func (a *App) Ready(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases connections. It is safe to call more than once.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
		a.sqlDB = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}
