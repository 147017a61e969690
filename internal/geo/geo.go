package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/meridianops/voyagesim/pkg/core"
)

// ErrInvalidTotalSteps is returned when totalSteps is not positive.
var ErrInvalidTotalSteps = errors.New("total steps must be positive")

// ErrStepOutOfRange is returned when step exceeds totalSteps.
var ErrStepOutOfRange = errors.New("step exceeds total steps")

// Fix is an interpolated position on a route: the segment, the fraction
// travelled along it, and the resulting coordinates.
type Fix struct {
	SegmentIndex int
	Fraction     float64
	Lat          float64
	Lon          float64
}

// Interpolate maps a step count onto a route. Pure and deterministic:
// identical inputs always yield identical fixes, which is what makes
// resume-from-pause land on the same position as an uninterrupted run.
//
// Let u = step/totalSteps * segmentCount. The segment index is floor(u)
// clamped to [0, segmentCount-1] and the fraction is u minus that index.
// Position is linear interpolation between the segment endpoints; no
// great-circle correction is applied.
func Interpolate(route *core.Route, step, totalSteps uint64) (Fix, error) {
	if totalSteps == 0 {
		return Fix{}, ErrInvalidTotalSteps
	}
	if step > totalSteps {
		return Fix{}, ErrStepOutOfRange
	}

	segments := route.SegmentCount()
	u := float64(step) / float64(totalSteps) * float64(segments)

	idx := int(math.Floor(u))
	if idx < 0 {
		idx = 0
	}
	if idx > segments-1 {
		idx = segments - 1
	}
	fraction := u - float64(idx)

	start, end := route.Segment(idx)
	return Fix{
		SegmentIndex: idx,
		Fraction:     fraction,
		Lat:          start.Lat + (end.Lat-start.Lat)*fraction,
		Lon:          start.Lon + (end.Lon-start.Lon)*fraction,
	}, nil
}

// Haversine returns the great-circle distance between two waypoints in
// nautical miles.
func Haversine(a, b core.Waypoint) float64 {
	const earthRadiusKm = 6371.0
	const kmToNauticalMiles = 0.539957

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(h))
	return earthRadiusKm * c * kmToNauticalMiles
}

// RouteDistance sums the segment distances of a route in nautical miles.
func RouteDistance(route *core.Route) float64 {
	var total float64
	for i := 0; i < route.SegmentCount(); i++ {
		start, end := route.Segment(i)
		total += Haversine(start, end)
	}
	return total
}

// Coords3857From4326 projects a WGS84 lat/lon pair to a web mercator (3857)
// point. Storage backends persist fixes as 3857 so point data can be handed
// to map frontends without reprojection; SQLite has no spatial awareness so
// the projection happens here.
func Coords3857From4326(lon, lat float64) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
}
