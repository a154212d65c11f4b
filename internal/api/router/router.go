package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/text2toss/junk-removal-api/internal/admin"
	"github.com/text2toss/junk-removal-api/internal/approvals"
	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/http/handlers"
	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	httpmiddleware "github.com/text2toss/junk-removal-api/internal/http/middleware"
	"github.com/text2toss/junk-removal-api/internal/live"
	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/internal/payments"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/scheduling"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger  *logging.Logger
	Metrics *metrics.Metrics

	QuotesHandler       *quotes.Handler
	AvailabilityHandler *scheduling.Handler
	BookingsHandler     *bookings.Handler
	PaymentsHandler     *payments.Handler
	StripeWebhook       *payments.StripeWebhookHandler
	ApprovalsHandler    *approvals.Handler
	AdminHandler        *admin.Handler
	AdminDashboard      *handlers.AdminDashboardHandler
	LiveHandler         *live.Handler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter guards the public write endpoints (optional).
	RateLimiter *httpmiddleware.RateLimiter

	// Ready reports dependency health for /health (optional).
	Ready func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))
	}

	limited := func(h http.HandlerFunc) http.Handler {
		if cfg.RateLimiter == nil {
			return h
		}
		return httpmiddleware.RateLimit(cfg.RateLimiter)(h)
	}

	r.Get("/health", healthHandler(cfg.Ready))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/", func(w http.ResponseWriter, r *http.Request) {
			httpjson.Write(w, http.StatusOK, map[string]string{"message": "Text2toss Junk Removal API"})
		})

		// Customer flow
		if cfg.QuotesHandler != nil {
			api.Method(http.MethodPost, "/quotes", limited(cfg.QuotesHandler.CreateQuote))
			api.Method(http.MethodPost, "/quotes/image", limited(cfg.QuotesHandler.CreateImageQuote))
			api.Get("/quotes/{id}", cfg.QuotesHandler.GetQuote)
		}
		if cfg.AvailabilityHandler != nil {
			api.Get("/availability/{date}", cfg.AvailabilityHandler.GetDay)
			api.Get("/availability-range", cfg.AvailabilityHandler.GetRange)
		}
		if cfg.BookingsHandler != nil {
			api.Method(http.MethodPost, "/bookings", limited(cfg.BookingsHandler.CreateBooking))
			api.Get("/bookings/{id}", cfg.BookingsHandler.GetBooking)
		}
		if cfg.PaymentsHandler != nil {
			api.Route("/payments", func(p chi.Router) {
				p.Method(http.MethodPost, "/create-checkout-session", limited(cfg.PaymentsHandler.CreateCheckoutSession))
				p.Get("/status/{session_id}", cfg.PaymentsHandler.GetStatus)
				p.Get("/venmo/{booking_id}", cfg.PaymentsHandler.GetVenmo)
			})
		}
		if cfg.StripeWebhook != nil {
			api.Post("/webhook/stripe", cfg.StripeWebhook.Handle)
		}
		if cfg.ApprovalsHandler != nil {
			api.Get("/customer-approval/{token}", cfg.ApprovalsHandler.Get)
			api.Method(http.MethodPost, "/customer-approval/{token}", limited(cfg.ApprovalsHandler.Respond))
		}

		// Public media
		if cfg.AdminHandler != nil {
			api.Get("/gallery/reel", cfg.AdminHandler.Reel)
			api.Get("/gallery/photos/{id}", cfg.AdminHandler.GalleryImage)
			api.Get("/public/completion-photo/{booking_id}", cfg.AdminHandler.PublicCompletionPhoto)
		}

		// Admin console
		if cfg.AdminHandler != nil && cfg.AdminAuthSecret != "" {
			api.Route("/admin", func(ar chi.Router) {
				ar.Method(http.MethodPost, "/login", limited(cfg.AdminHandler.Login))
				ar.Group(func(protected chi.Router) {
					protected.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
					registerAdminRoutes(protected, cfg)
				})
			})
		}
	})

	return r
}

func registerAdminRoutes(r chi.Router, cfg *Config) {
	h := cfg.AdminHandler

	r.Get("/verify", h.Verify)
	r.Get("/daily-schedule", h.DailySchedule)
	r.Get("/weekly-schedule", h.WeeklySchedule)
	r.Get("/calendar-data", h.CalendarData)

	r.Route("/bookings", func(b chi.Router) {
		b.Get("/bins", h.Bins)
		b.Patch("/{id}", h.UpdateBooking)
		b.Post("/{id}/completion", h.CompleteBooking)
		b.Post("/{id}/notify-customer", h.NotifyCustomer)
		b.Get("/{id}/completion-photo", h.CompletionPhoto)
	})

	r.Get("/route-plan", h.RoutePlan)
	r.Get("/route-plan/pdf", h.RoutePlanPDF)

	r.Get("/pending-quotes", h.PendingQuotes)
	r.Get("/quote-approval-stats", h.QuoteStats)
	r.Post("/quotes/{id}/approve", h.ReviewQuote)
	r.Get("/quotes/{id}/image", h.QuoteImage)

	r.Post("/test-sms", h.TestSMS)
	r.Post("/cleanup-temp-images", h.CleanupTempImages)
	r.Get("/audit-log", h.AuditLog)

	r.Post("/gallery", h.UploadGalleryPhoto)
	r.Get("/gallery", h.ListGallery)
	r.Put("/gallery/{id}/reel-slot", h.SetReelSlot)

	if cfg.AdminDashboard != nil {
		r.Get("/dashboard", cfg.AdminDashboard.GetDashboardOverview)
	}
	if cfg.LiveHandler != nil {
		r.Get("/live", cfg.LiveHandler.HandleWebSocket)
	}
}

func healthHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
