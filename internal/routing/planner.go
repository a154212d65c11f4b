package routing

import (
	"context"
	"errors"
	"sort"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// ErrTooFewStops is returned when a plan is requested for fewer than two pickups.
var ErrTooFewStops = errors.New("need at least 2 bookings to plan a route")

// Planning methods, in order of preference.
const (
	MethodOptimized   = "google_optimized"
	MethodTimeOrdered = "time_ordered"
)

// StopInput is one pickup to visit.
type StopInput struct {
	BookingID  string
	Address    string
	PickupTime string
	Phone      string
	Notes      string
	// SlotStart orders stops when optimization is unavailable.
	SlotStart string
}

// Stop is a pickup in route order.
type Stop struct {
	Sequence   int    `json:"sequence"`
	BookingID  string `json:"booking_id"`
	Address    string `json:"address"`
	PickupTime string `json:"pickup_time"`
	Phone      string `json:"phone,omitempty"`
	Notes      string `json:"notes,omitempty"`
	MapsURL    string `json:"maps_url"`
}

// Plan is the ordered route for one day.
type Plan struct {
	Date            string `json:"date"`
	Method          string `json:"method"`
	Stops           []Stop `json:"stops"`
	RouteURL        string `json:"route_url"`
	DistanceMeters  int    `json:"total_distance_meters,omitempty"`
	DurationSeconds int    `json:"total_duration_seconds,omitempty"`
	Message         string `json:"message"`
}

// Optimizer reorders waypoints; DirectionsClient is the production one.
type Optimizer interface {
	Optimize(ctx context.Context, origin, destination string, waypoints []string) (*Directions, error)
}

// Planner builds daily routes.
type Planner struct {
	optimizer Optimizer
	depot     string
	logger    *logging.Logger
}

// NewPlanner builds a planner. optimizer may be nil, and depot may be empty,
// in which case the first and last pickups anchor the route.
func NewPlanner(optimizer Optimizer, depot string, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Planner{optimizer: optimizer, depot: depot, logger: logger}
}

// Plan orders the stops with Google when possible and falls back to pickup
// window order. Map links are attached either way.
func (p *Planner) Plan(ctx context.Context, date string, inputs []StopInput) (*Plan, error) {
	if len(inputs) < 2 {
		return nil, ErrTooFewStops
	}
	ctx, span := tracer.Start(ctx, "routing.plan")
	defer span.End()

	ordered := timeOrdered(inputs)
	plan := &Plan{Date: date}

	if p.optimizer != nil {
		if optimized, dir, err := p.optimize(ctx, ordered); err == nil {
			ordered = optimized
			plan.Method = MethodOptimized
			plan.DistanceMeters = dir.DistanceMeters
			plan.DurationSeconds = dir.DurationSeconds
			plan.Message = "Optimal route calculated with Google Maps"
		} else {
			p.logger.Warn("route optimization failed; using pickup time order", "date", date, "error", err)
			plan.Message = "Route sorted by pickup time (Google Maps unavailable)"
		}
	} else {
		plan.Message = "Route sorted by pickup time (add a Google Maps API key for optimal routing)"
	}
	if plan.Method == "" {
		plan.Method = MethodTimeOrdered
	}

	addresses := make([]string, 0, len(ordered))
	for i, in := range ordered {
		plan.Stops = append(plan.Stops, Stop{
			Sequence:   i + 1,
			BookingID:  in.BookingID,
			Address:    in.Address,
			PickupTime: in.PickupTime,
			Phone:      in.Phone,
			Notes:      in.Notes,
			MapsURL:    DirectionsLink(in.Address),
		})
		addresses = append(addresses, in.Address)
	}
	plan.RouteURL = RouteLink(p.depot, addresses)
	return plan, nil
}

func (p *Planner) optimize(ctx context.Context, stops []StopInput) ([]StopInput, *Directions, error) {
	var origin, destination string
	var middle []StopInput
	if p.depot != "" {
		origin, destination = p.depot, p.depot
		middle = stops
	} else {
		origin, destination = stops[0].Address, stops[len(stops)-1].Address
		middle = stops[1 : len(stops)-1]
	}

	waypoints := make([]string, len(middle))
	for i, s := range middle {
		waypoints[i] = s.Address
	}
	dir, err := p.optimizer.Optimize(ctx, origin, destination, waypoints)
	if err != nil {
		return nil, nil, err
	}
	if len(dir.WaypointOrder) != len(middle) {
		return nil, nil, ErrNoRoute
	}

	out := make([]StopInput, 0, len(stops))
	if p.depot == "" {
		out = append(out, stops[0])
	}
	seen := make([]bool, len(middle))
	for _, idx := range dir.WaypointOrder {
		if idx < 0 || idx >= len(middle) || seen[idx] {
			return nil, nil, ErrNoRoute
		}
		seen[idx] = true
		out = append(out, middle[idx])
	}
	if p.depot == "" {
		out = append(out, stops[len(stops)-1])
	}
	return out, dir, nil
}

func timeOrdered(in []StopInput) []StopInput {
	out := append([]StopInput(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SlotStart < out[j].SlotStart })
	return out
}
