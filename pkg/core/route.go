package core

import "errors"

// ErrInvalidRoute is returned when a route is configured with fewer than two waypoints.
var ErrInvalidRoute = errors.New("route requires at least two waypoints")

// RiskTier classifies the operational risk of a route.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskModerate RiskTier = "moderate"
	RiskHigh     RiskTier = "high"
)

// Waypoint is a single point on a route.
type Waypoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Route is an immutable ordered sequence of waypoints with display metadata.
// Consecutive waypoints define a segment; a route with N waypoints has N-1 segments.
type Route struct {
	id        string
	name      string
	riskTier  RiskTier
	waypoints []Waypoint
}

// NewRoute builds a Route from an ordered waypoint sequence.
// The waypoint slice is copied so later mutation of the caller's slice
// cannot reach the route.
func NewRoute(id, name string, tier RiskTier, waypoints []Waypoint) (*Route, error) {
	if len(waypoints) < 2 {
		return nil, ErrInvalidRoute
	}
	wps := make([]Waypoint, len(waypoints))
	copy(wps, waypoints)
	return &Route{
		id:        id,
		name:      name,
		riskTier:  tier,
		waypoints: wps,
	}, nil
}

// ID returns the route identifier.
func (r *Route) ID() string { return r.id }

// Name returns the display name.
func (r *Route) Name() string { return r.name }

// RiskTier returns the route's risk classification.
func (r *Route) RiskTier() RiskTier { return r.riskTier }

// WaypointCount returns the number of waypoints.
func (r *Route) WaypointCount() int { return len(r.waypoints) }

// WaypointAt returns the waypoint at the given index.
func (r *Route) WaypointAt(i int) Waypoint { return r.waypoints[i] }

// SegmentCount returns the number of segments (waypoints - 1).
func (r *Route) SegmentCount() int { return len(r.waypoints) - 1 }

// Segment returns the start and end waypoints of segment i.
func (r *Route) Segment(i int) (start, end Waypoint) {
	return r.waypoints[i], r.waypoints[i+1]
}

// Waypoints returns a copy of the waypoint sequence.
func (r *Route) Waypoints() []Waypoint {
	wps := make([]Waypoint, len(r.waypoints))
	copy(wps, r.waypoints)
	return wps
}
