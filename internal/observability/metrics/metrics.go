package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "text2toss"

// Metrics exposes counters and histograms for the quote, booking and payment flows.
type Metrics struct {
	quotesTotal      *prometheus.CounterVec
	quoteScale       *prometheus.HistogramVec
	reviewsTotal     *prometheus.CounterVec
	estimateLatency  *prometheus.HistogramVec
	bookingsTotal    *prometheus.CounterVec
	checkoutTotal    *prometheus.CounterVec
	smsTotal         *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	slotConflicts    prometheus.Counter
	outboxDeliveries *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "created_total",
			Help:      "Quotes created by source and approval requirement",
		}, []string{"source", "requires_approval"}),
		quoteScale: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "scale_level",
			Help:      "Distribution of quoted scale levels",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 10, 14, 20},
		}, []string{"source"}),
		reviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "reviews_total",
			Help:      "Admin quote reviews by outcome",
		}, []string{"status"}),
		estimateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "latency_seconds",
			Help:      "Latency of AI pricing calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"source", "outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Booking lifecycle transitions",
		}, []string{"status"}),
		checkoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "checkout_total",
			Help:      "Checkout attempts by method and outcome",
		}, []string{"method", "status"}),
		smsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Outbound SMS by provider and outcome",
		}, []string{"provider", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}),
		outboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox deliveries by event type and outcome",
		}, []string{"type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.quotesTotal, m.quoteScale, m.reviewsTotal, m.estimateLatency,
		m.bookingsTotal, m.checkoutTotal, m.smsTotal,
		m.httpRequests, m.httpLatency, m.slotConflicts, m.outboxDeliveries,
	)
	return m
}

func (m *Metrics) ObserveQuote(source string, scale int, requiresApproval bool) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(source, strconv.FormatBool(requiresApproval)).Inc()
	m.quoteScale.WithLabelValues(source).Observe(float64(scale))
}

func (m *Metrics) ObserveQuoteReview(status string) {
	if m == nil {
		return
	}
	m.reviewsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveEstimate(source string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.estimateLatency.WithLabelValues(source, outcome).Observe(seconds)
}

func (m *Metrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *Metrics) ObserveCheckout(method, status string) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(method, status).Inc()
}

func (m *Metrics) ObserveSMS(provider, status string) {
	if m == nil {
		return
	}
	m.smsTotal.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) ObserveOutbox(eventType string, ok bool) {
	if m == nil {
		return
	}
	status := "delivered"
	if !ok {
		status = "failed"
	}
	m.outboxDeliveries.WithLabelValues(eventType, status).Inc()
}
