package routes

import (
	"errors"

	"github.com/meridianops/voyagesim/internal/geo"
	"github.com/meridianops/voyagesim/pkg/core"
)

// ErrInvalidSpeed is returned when the vessel speed is not positive.
var ErrInvalidSpeed = errors.New("vessel speed must be positive")

// Congestion levels for traffic impact.
const (
	CongestionLow  = "Low"
	CongestionHigh = "High"
)

// Conditions carries the external factors applied to a transit estimate.
// Zero values mean no impact.
type Conditions struct {
	AvgWindSpeedKnots float64
	CongestionLevel   string
}

// Estimate is the computed transit time breakdown for a route.
type Estimate struct {
	DistanceNM          float64 `json:"distanceNm"`
	BaseTimeHours       float64 `json:"baseTimeHours"`
	WeatherDelayHours   float64 `json:"weatherDelayHours"`
	TrafficDelayHours   float64 `json:"trafficDelayHours"`
	TotalTimeHours      float64 `json:"totalTimeHours"`
	TotalTimeDays       float64 `json:"totalTimeDays"`
	EffectiveSpeedKnots float64 `json:"effectiveSpeedKnots"`
}

// EstimateTransit computes transit time for a route at the given vessel
// speed. Wind adds a delay proportional to wind speed over 100; congestion
// adds 10% when high, 5% otherwise when a level is set.
func EstimateTransit(route *core.Route, speedKnots float64, cond Conditions) (Estimate, error) {
	if speedKnots <= 0 {
		return Estimate{}, ErrInvalidSpeed
	}

	distance := geo.RouteDistance(route)
	base := distance / speedKnots

	var weatherDelay float64
	if cond.AvgWindSpeedKnots > 0 {
		weatherDelay = base * cond.AvgWindSpeedKnots / 100
	}

	var trafficDelay float64
	switch cond.CongestionLevel {
	case CongestionHigh:
		trafficDelay = base * 0.10
	case "":
		// no congestion information, no delay
	default:
		trafficDelay = base * 0.05
	}

	total := base + weatherDelay + trafficDelay
	return Estimate{
		DistanceNM:          distance,
		BaseTimeHours:       base,
		WeatherDelayHours:   weatherDelay,
		TrafficDelayHours:   trafficDelay,
		TotalTimeHours:      total,
		TotalTimeDays:       total / 24,
		EffectiveSpeedKnots: distance / total,
	}, nil
}
