package routing

import (
	"net/url"
	"strings"
)

const mapsDirBase = "https://www.google.com/maps/dir/?"

// DirectionsLink opens turn-by-turn driving directions to one address.
func DirectionsLink(address string) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", address)
	q.Set("travelmode", "driving")
	return mapsDirBase + q.Encode()
}

// RouteLink opens a multi-stop route. An empty origin starts from the
// device's current location.
func RouteLink(origin string, stops []string) string {
	if len(stops) == 0 {
		return ""
	}
	q := url.Values{}
	q.Set("api", "1")
	if origin != "" {
		q.Set("origin", origin)
	}
	q.Set("destination", stops[len(stops)-1])
	if len(stops) > 1 {
		q.Set("waypoints", strings.Join(stops[:len(stops)-1], "|"))
	}
	q.Set("travelmode", "driving")
	return mapsDirBase + q.Encode()
}
