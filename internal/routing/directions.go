package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("text2toss.internal.routing")

// ErrNoRoute is returned when Google cannot route between the stops.
var ErrNoRoute = errors.New("routing: no route found")

// Directions is the result of a waypoint-optimized request.
type Directions struct {
	// WaypointOrder lists the optimized order of the waypoints passed in.
	WaypointOrder   []int
	DistanceMeters  int
	DurationSeconds int
}

// directionsResponse mirrors the parts of the Directions API response we read.
type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		WaypointOrder []int `json:"waypoint_order"`
		Legs          []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// DirectionsClient calls the Google Maps Directions API.
type DirectionsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewDirectionsClient(apiKey string) *DirectionsClient {
	return &DirectionsClient{
		apiKey:  apiKey,
		baseURL: "https://maps.googleapis.com",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API host (for testing).
func (c *DirectionsClient) WithBaseURL(baseURL string) *DirectionsClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Configured reports whether an API key is set.
func (c *DirectionsClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Optimize asks Google for the best order of waypoints between origin and destination.
func (c *DirectionsClient) Optimize(ctx context.Context, origin, destination string, waypoints []string) (*Directions, error) {
	ctx, span := tracer.Start(ctx, "routing.directions")
	defer span.End()
	span.SetAttributes(attribute.Int("routing.waypoints", len(waypoints)))

	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", "driving")
	params.Set("key", c.apiKey)
	if len(waypoints) > 0 {
		params.Set("waypoints", "optimize:true|"+strings.Join(waypoints, "|"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/maps/api/directions/json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("routing: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing: API returned status code %d", resp.StatusCode)
	}

	var result directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("routing: decode response: %w", err)
	}
	switch result.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, ErrNoRoute
	default:
		return nil, fmt.Errorf("routing: directions API returned status %s: %s", result.Status, result.ErrorMessage)
	}
	if len(result.Routes) == 0 {
		return nil, ErrNoRoute
	}

	route := result.Routes[0]
	out := &Directions{WaypointOrder: route.WaypointOrder}
	for _, leg := range route.Legs {
		out.DistanceMeters += leg.Distance.Value
		out.DurationSeconds += leg.Duration.Value
	}
	return out, nil
}
