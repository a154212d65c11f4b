package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stops() []StopInput {
	return []StopInput{
		{BookingID: "b-3", Address: "3 Oak St", PickupTime: "14:00-16:00", SlotStart: "14:00"},
		{BookingID: "b-1", Address: "1 Main St", PickupTime: "08:00-10:00", SlotStart: "08:00"},
		{BookingID: "b-4", Address: "4 Pine St", PickupTime: "16:00-18:00", SlotStart: "16:00"},
		{BookingID: "b-2", Address: "2 Elm St", PickupTime: "10:00-12:00", SlotStart: "10:00"},
	}
}

type stubOptimizer struct {
	dir  *Directions
	err  error
	args []string
}

func (s *stubOptimizer) Optimize(_ context.Context, origin, destination string, waypoints []string) (*Directions, error) {
	s.args = append([]string{origin, destination}, waypoints...)
	return s.dir, s.err
}

func ids(plan *Plan) []string {
	var out []string
	for _, s := range plan.Stops {
		out = append(out, s.BookingID)
	}
	return out
}

func TestPlanner_TimeOrderedWithoutOptimizer(t *testing.T) {
	plan, err := NewPlanner(nil, "", nil).Plan(context.Background(), "2026-03-03", stops())
	require.NoError(t, err)
	assert.Equal(t, MethodTimeOrdered, plan.Method)
	assert.Equal(t, []string{"b-1", "b-2", "b-3", "b-4"}, ids(plan))
	assert.Equal(t, 1, plan.Stops[0].Sequence)
	assert.Contains(t, plan.Stops[0].MapsURL, "destination=1+Main+St")
	assert.Contains(t, plan.RouteURL, "destination=4+Pine+St")
}

func TestPlanner_GoogleOptimizedAnchorsEnds(t *testing.T) {
	opt := &stubOptimizer{dir: &Directions{WaypointOrder: []int{1, 0}, DistanceMeters: 12000, DurationSeconds: 1800}}
	plan, err := NewPlanner(opt, "", nil).Plan(context.Background(), "2026-03-03", stops())
	require.NoError(t, err)
	assert.Equal(t, MethodOptimized, plan.Method)
	// first and last by time stay fixed, the middle is reordered
	assert.Equal(t, []string{"b-1", "b-3", "b-2", "b-4"}, ids(plan))
	assert.Equal(t, []string{"1 Main St", "4 Pine St", "2 Elm St", "3 Oak St"}, opt.args)
	assert.Equal(t, 12000, plan.DistanceMeters)
}

func TestPlanner_DepotRoundTrip(t *testing.T) {
	opt := &stubOptimizer{dir: &Directions{WaypointOrder: []int{3, 2, 1, 0}}}
	plan, err := NewPlanner(opt, "Depot Rd", nil).Plan(context.Background(), "2026-03-03", stops())
	require.NoError(t, err)
	assert.Equal(t, []string{"b-4", "b-3", "b-2", "b-1"}, ids(plan))
	assert.Equal(t, "Depot Rd", opt.args[0])
	assert.Contains(t, plan.RouteURL, "origin=Depot+Rd")
}

func TestPlanner_FallsBackOnError(t *testing.T) {
	for _, opt := range []*stubOptimizer{
		{err: errors.New("quota")},
		{dir: &Directions{WaypointOrder: []int{0}}},
		{dir: &Directions{WaypointOrder: []int{0, 7}}},
		{dir: &Directions{WaypointOrder: []int{1, 1}}},
	} {
		plan, err := NewPlanner(opt, "", nil).Plan(context.Background(), "2026-03-03", stops())
		require.NoError(t, err)
		assert.Equal(t, MethodTimeOrdered, plan.Method)
		assert.Equal(t, []string{"b-1", "b-2", "b-3", "b-4"}, ids(plan))
	}
}

func TestPlanner_TooFewStops(t *testing.T) {
	_, err := NewPlanner(nil, "", nil).Plan(context.Background(), "2026-03-03", stops()[:1])
	assert.ErrorIs(t, err, ErrTooFewStops)
}

func TestDirectionsClient_Optimize(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/directions/json", r.URL.Path)
		query = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"routes": []map[string]any{{
				"waypoint_order": []int{1, 0},
				"legs": []map[string]any{
					{"distance": map[string]int{"value": 1000}, "duration": map[string]int{"value": 60}},
					{"distance": map[string]int{"value": 2000}, "duration": map[string]int{"value": 120}},
				},
			}},
		})
	}))
	defer srv.Close()

	c := NewDirectionsClient("key-1").WithBaseURL(srv.URL)
	assert.True(t, c.Configured())
	dir, err := c.Optimize(context.Background(), "A", "D", []string{"B", "C"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, dir.WaypointOrder)
	assert.Equal(t, 3000, dir.DistanceMeters)
	assert.Equal(t, 180, dir.DurationSeconds)
	assert.Equal(t, "optimize:true|B|C", query["waypoints"][0])
	assert.Equal(t, "key-1", query["key"][0])
}

func TestDirectionsClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "origin=nowhere") {
			w.Write([]byte(`{"status":"ZERO_RESULTS","routes":[]}`))
			return
		}
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	}))
	defer srv.Close()

	c := NewDirectionsClient("key").WithBaseURL(srv.URL)
	_, err := c.Optimize(context.Background(), "nowhere", "x", nil)
	assert.ErrorIs(t, err, ErrNoRoute)
	_, err = c.Optimize(context.Background(), "a", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestRouteLink(t *testing.T) {
	assert.Equal(t, "", RouteLink("", nil))
	link := RouteLink("", []string{"A St", "B St"})
	assert.Contains(t, link, "waypoints=A+St")
	assert.Contains(t, link, "destination=B+St")
	assert.NotContains(t, link, "origin=")
}

func TestRenderSheet(t *testing.T) {
	plan, err := NewPlanner(nil, "", nil).Plan(context.Background(), "2026-03-03", stops())
	require.NoError(t, err)
	plan.Stops[0].Notes = "Gate code 1234"

	out, err := RenderSheet(plan, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
