package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// AdminDashboardHandler serves the admin console overview.
type AdminDashboardHandler struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminDashboardHandler creates a new admin dashboard handler.
func NewAdminDashboardHandler(db *sql.DB, logger *logging.Logger) *AdminDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// DashboardOverviewResponse contains the main dashboard metrics.
type DashboardOverviewResponse struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Quotes         QuoteMetrics    `json:"quotes"`
	Bookings       BookingMetrics  `json:"bookings"`
	Payments       PaymentMetrics  `json:"payments"`
	PendingActions []PendingAction `json:"pending_actions"`
}

// QuoteMetrics counts quotes by approval state.
type QuoteMetrics struct {
	Total        int `json:"total"`
	AutoApproved int `json:"auto_approved"`
	Pending      int `json:"pending"`
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	NewThisWeek  int `json:"new_this_week"`
}

// BookingMetrics contains booking-related dashboard metrics.
type BookingMetrics struct {
	Total          int `json:"total"`
	Upcoming       int `json:"upcoming"`
	ThisWeek       int `json:"this_week"`
	Completed      int `json:"completed"`
	CancelledCount int `json:"cancelled_count"`
}

// PaymentMetrics contains payment-related dashboard metrics.
type PaymentMetrics struct {
	TotalCollected int `json:"total_collected_cents"`
	ThisWeek       int `json:"this_week_cents"`
	OpenSessions   int `json:"open_sessions"`
}

// PendingAction represents work waiting on the crew.
type PendingAction struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Link        string `json:"link,omitempty"`
}

// GetDashboardOverview returns the main dashboard overview.
// GET /api/admin/dashboard
func (h *AdminDashboardHandler) GetDashboardOverview(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		httpjson.Error(w, http.StatusServiceUnavailable, "dashboard requires a database")
		return
	}
	ctx := r.Context()
	now := h.now()
	weekAgo := now.AddDate(0, 0, -7)
	today := now.Format("2006-01-02")
	weekAhead := now.AddDate(0, 0, 7).Format("2006-01-02")

	dashboard := DashboardOverviewResponse{GeneratedAt: now.UTC()}

	// Quote metrics
	h.count(ctx, &dashboard.Quotes.Total, `SELECT COUNT(*) FROM quotes`)
	h.count(ctx, &dashboard.Quotes.AutoApproved, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'auto_approved'`)
	h.count(ctx, &dashboard.Quotes.Pending, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'pending_approval'`)
	h.count(ctx, &dashboard.Quotes.Approved, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'approved'`)
	h.count(ctx, &dashboard.Quotes.Rejected, `SELECT COUNT(*) FROM quotes WHERE approval_status = 'rejected'`)
	h.count(ctx, &dashboard.Quotes.NewThisWeek, `SELECT COUNT(*) FROM quotes WHERE created_at >= $1`, weekAgo)

	// Booking metrics
	h.count(ctx, &dashboard.Bookings.Total, `SELECT COUNT(*) FROM bookings`)
	h.count(ctx, &dashboard.Bookings.Upcoming,
		`SELECT COUNT(*) FROM bookings WHERE pickup_date >= $1 AND status NOT IN ('cancelled', 'completed')`, today)
	h.count(ctx, &dashboard.Bookings.ThisWeek,
		`SELECT COUNT(*) FROM bookings WHERE pickup_date >= $1 AND pickup_date < $2 AND status <> 'cancelled'`, today, weekAhead)
	h.count(ctx, &dashboard.Bookings.Completed, `SELECT COUNT(*) FROM bookings WHERE status = 'completed'`)
	h.count(ctx, &dashboard.Bookings.CancelledCount, `SELECT COUNT(*) FROM bookings WHERE status = 'cancelled'`)

	// Payment metrics
	h.count(ctx, &dashboard.Payments.TotalCollected,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payment_transactions WHERE payment_status = 'paid'`)
	h.count(ctx, &dashboard.Payments.ThisWeek,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payment_transactions WHERE payment_status = 'paid' AND updated_at >= $1`, weekAgo)
	h.count(ctx, &dashboard.Payments.OpenSessions,
		`SELECT COUNT(*) FROM payment_transactions WHERE status = 'open'`)

	dashboard.PendingActions = h.getPendingActions(ctx, dashboard.Quotes.Pending)

	httpjson.Write(w, http.StatusOK, dashboard)
}

func (h *AdminDashboardHandler) getPendingActions(ctx context.Context, pendingQuotes int) []PendingAction {
	actions := []PendingAction{}

	if pendingQuotes > 0 {
		actions = append(actions, PendingAction{
			Type:        "quote_review",
			Priority:    "high",
			Description: "Quotes waiting for price review",
			Count:       pendingQuotes,
			Link:        "/admin/quotes/pending",
		})
	}

	var awaitingCustomer int
	h.count(ctx, &awaitingCustomer, `SELECT COUNT(*) FROM bookings WHERE status = 'pending_customer_approval'`)
	if awaitingCustomer > 0 {
		actions = append(actions, PendingAction{
			Type:        "customer_approval",
			Priority:    "medium",
			Description: "Price adjustments awaiting customer approval",
			Count:       awaitingCustomer,
		})
	}

	var unpaid int
	h.count(ctx, &unpaid, `SELECT COUNT(*) FROM bookings WHERE status = 'completed' AND payment_status <> 'paid'`)
	if unpaid > 0 {
		actions = append(actions, PendingAction{
			Type:        "collect_payment",
			Priority:    "medium",
			Description: "Completed pickups without payment",
			Count:       unpaid,
			Link:        "/admin/bookings",
		})
	}

	return actions
}

// count scans a single integer. A failed query leaves dst at zero.
func (h *AdminDashboardHandler) count(ctx context.Context, dst *int, query string, args ...any) {
	if err := h.db.QueryRowContext(ctx, query, args...).Scan(dst); err != nil {
		h.logger.Warn("dashboard metric query failed", "error", err)
		*dst = 0
	}
}
