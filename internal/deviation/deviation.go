// Package deviation implements the rule that injects a synthetic course
// divergence during the first segment of a voyage. The rule is a one-shot
// edge trigger: it fires at most once per voyage attempt, on the first tick
// where the segment-local fraction reaches the threshold, and stays quiet
// until an explicit resume-on-same-route decision re-arms it.
package deviation

import (
	"github.com/meridianops/voyagesim/internal/geo"
	"github.com/meridianops/voyagesim/pkg/core"
)

// Default rule parameters.
const (
	DefaultThreshold = 0.3
	DefaultOffsetLat = 2.5
	DefaultOffsetLon = -1.8
)

// Offset is the fixed vector applied to the expected position to produce the
// observed one. It models an injected divergence, not a sensor reading.
type Offset struct {
	Lat float64
	Lon float64
}

// Detector evaluates the deviation rule against interpolated fixes.
// The rule is scoped to segment 0.
type Detector struct {
	threshold float64
	offset    Offset
}

// NewDetector builds a detector. A zero threshold falls back to the default;
// a zero offset falls back to the default offset vector.
func NewDetector(threshold float64, offset Offset) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if offset.Lat == 0 && offset.Lon == 0 {
		offset = Offset{Lat: DefaultOffsetLat, Lon: DefaultOffsetLon}
	}
	return &Detector{threshold: threshold, offset: offset}
}

// Threshold returns the configured firing threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Evaluate applies the rule to a fix. It returns a record and true exactly
// when the rule fires: segment 0, fraction at or past the threshold, and no
// deviation currently active. Pure — the caller owns the active flag.
func (d *Detector) Evaluate(fix geo.Fix, step uint64, active bool) (*core.DeviationRecord, bool) {
	if active {
		return nil, false
	}
	if fix.SegmentIndex != 0 {
		return nil, false
	}
	if fix.Fraction < d.threshold {
		return nil, false
	}

	expected := core.Waypoint{Lat: fix.Lat, Lon: fix.Lon}
	observed := core.Waypoint{
		Lat: expected.Lat + d.offset.Lat,
		Lon: expected.Lon + d.offset.Lon,
	}
	return &core.DeviationRecord{
		Expected:       expected,
		Observed:       observed,
		DetectedAtStep: step,
	}, true
}
