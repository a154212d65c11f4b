package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestObserveQuote(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuote("items", 2, false)
	m.ObserveQuote("image", 9, true)
	m.ObserveQuote("image", 5, true)

	family := findFamily(t, reg, "text2toss_quotes_created_total")
	counts := map[string]float64{}
	for _, metric := range family.GetMetric() {
		key := labelValue(metric, "source") + "/" + labelValue(metric, "requires_approval")
		counts[key] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, float64(1), counts["items/false"])
	assert.Equal(t, float64(2), counts["image/true"])
}

func TestObserveEstimateOutcomeLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEstimate("items", true, 0.8)
	m.ObserveEstimate("items", false, 25)

	family := findFamily(t, reg, "text2toss_estimator_latency_seconds")
	outcomes := map[string]uint64{}
	for _, metric := range family.GetMetric() {
		outcomes[labelValue(metric, "outcome")] = metric.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(1), outcomes["ok"])
	assert.Equal(t, uint64(1), outcomes["error"])
}

func TestObserveHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("POST", "/api/bookings", 409, 0.01)

	family := findFamily(t, reg, "text2toss_http_requests_total")
	require.Len(t, family.GetMetric(), 1)
	assert.Equal(t, "409", labelValue(family.GetMetric()[0], "status"))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveQuote("items", 1, false)
	m.ObserveQuoteReview("approved")
	m.ObserveEstimate("image", true, 1)
	m.ObserveBooking("scheduled")
	m.ObserveSlotConflict()
	m.ObserveCheckout("stripe", "created")
	m.ObserveSMS("twilio", "sent")
	m.ObserveHTTP("GET", "/api/health", 200, 0.001)
	m.ObserveOutbox("booking.created.v1", true)
}
