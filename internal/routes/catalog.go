// Package routes holds the preconfigured port-to-port routes, ports, and
// carrier schedule the engine offers for voyage selection, plus transit time
// estimation. Route data is read-only after construction and safe to share.
package routes

import (
	"errors"
	"fmt"

	"github.com/meridianops/voyagesim/pkg/core"
)

// ErrRouteNotFound is returned when a route ID is not in the catalog.
var ErrRouteNotFound = errors.New("route not found")

// ErrCarrierNotFound is returned when a carrier ID is not in the schedule.
var ErrCarrierNotFound = errors.New("carrier not found")

// Port is a named harbor location.
type Port struct {
	City string  `json:"city"`
	Code string  `json:"code"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Carrier is an operator from the carrier schedule.
type Carrier struct {
	ID            string  `json:"carrierId"`
	Name          string  `json:"carrierName"`
	ServiceType   string  `json:"serviceType"`
	AvgSpeedKnots float64 `json:"avgSpeedKnots"`
}

// Catalog is the set of preconfigured routes, ports, and carriers.
type Catalog struct {
	routes   map[string]*core.Route
	order    []string
	ports    []Port
	carriers []Carrier
}

// master port locations
var ports = []Port{
	{City: "New York", Code: "USNYC", Lat: 40.7128, Lon: -74.0060},
	{City: "Los Angeles", Code: "USLAX", Lat: 34.0522, Lon: -118.2437},
	{City: "London", Code: "GBLON", Lat: 51.5074, Lon: -0.1278},
	{City: "Cape Town", Code: "ZACPT", Lat: -33.9249, Lon: 18.4241},
	{City: "Tokyo", Code: "JPTYO", Lat: 35.6762, Lon: 139.6503},
	{City: "Boston", Code: "USBOS", Lat: 42.3601, Lon: -71.0589},
	{City: "Porto", Code: "PTOPO", Lat: 41.1579, Lon: -8.6291},
}

var carriers = []Carrier{
	{ID: "CR_0001", Name: "Ocean Express", ServiceType: "Container", AvgSpeedKnots: 22},
	{ID: "CR_0002", Name: "Global Maritime", ServiceType: "Bulk", AvgSpeedKnots: 18},
	{ID: "CR_0003", Name: "Sea Voyager", ServiceType: "Tanker", AvgSpeedKnots: 20},
	{ID: "CR_0009", Name: "Atlantic Shipping", ServiceType: "Container", AvgSpeedKnots: 24},
}

type routeSeed struct {
	id       string
	name     string
	tier     core.RiskTier
	from, to string // port cities; endpoints enriched with intermediates
	via      []core.Waypoint
}

var routeSeeds = []routeSeed{
	{
		id: "R_BOS_OPO", name: "Boston - Porto (North Atlantic)", tier: core.RiskModerate,
		from: "Boston", to: "Porto",
		via: []core.Waypoint{{Lat: 41, Lon: -48}, {Lat: 41, Lon: -25}},
	},
	{
		id: "R_001", name: "New York - Cape Town (Transatlantic)", tier: core.RiskModerate,
		from: "New York", to: "Cape Town",
	},
	{
		id: "R_002", name: "Los Angeles - Tokyo (Transpacific)", tier: core.RiskHigh,
		from: "Los Angeles", to: "Tokyo",
	},
	{
		id: "R_003", name: "New York - London (Transatlantic)", tier: core.RiskLow,
		from: "New York", to: "London",
	},
	{
		id: "R_004", name: "Cape Town - Tokyo (Southern)", tier: core.RiskHigh,
		from: "Cape Town", to: "Tokyo",
	},
}

// NewCatalog builds the default catalog from the built-in seeds. Port-to-port
// seeds without explicit via points get two evenly spaced intermediate
// waypoints so every route has at least four waypoints to interpolate over.
func NewCatalog() (*Catalog, error) {
	return build(ports, carriers)
}

func build(portList []Port, carrierList []Carrier) (*Catalog, error) {
	c := &Catalog{routes: make(map[string]*core.Route)}
	c.ports = portList
	c.carriers = carrierList

	for _, seed := range routeSeeds {
		origin, err := c.portByCity(seed.from)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", seed.id, err)
		}
		dest, err := c.portByCity(seed.to)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", seed.id, err)
		}

		start := core.Waypoint{Lat: origin.Lat, Lon: origin.Lon}
		end := core.Waypoint{Lat: dest.Lat, Lon: dest.Lon}

		via := seed.via
		if len(via) == 0 {
			via = intermediates(start, end, 2)
		}

		wps := make([]core.Waypoint, 0, len(via)+2)
		wps = append(wps, start)
		wps = append(wps, via...)
		wps = append(wps, end)

		route, err := core.NewRoute(seed.id, seed.name, seed.tier, wps)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", seed.id, err)
		}
		c.routes[seed.id] = route
		c.order = append(c.order, seed.id)
	}
	return c, nil
}

// intermediates linearly interpolates n points strictly between start and end.
func intermediates(start, end core.Waypoint, n int) []core.Waypoint {
	out := make([]core.Waypoint, 0, n)
	for j := 1; j <= n; j++ {
		fraction := float64(j) / float64(n+1)
		out = append(out, core.Waypoint{
			Lat: start.Lat + fraction*(end.Lat-start.Lat),
			Lon: start.Lon + fraction*(end.Lon-start.Lon),
		})
	}
	return out
}

func (c *Catalog) portByCity(city string) (Port, error) {
	for _, p := range c.ports {
		if p.City == city {
			return p, nil
		}
	}
	return Port{}, fmt.Errorf("unknown port city %q", city)
}

// Get returns the route with the given ID.
func (c *Catalog) Get(id string) (*core.Route, error) {
	r, ok := c.routes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	return r, nil
}

// Routes returns all routes in catalog order.
func (c *Catalog) Routes() []*core.Route {
	out := make([]*core.Route, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.routes[id])
	}
	return out
}

// Ports returns the master port list.
func (c *Catalog) Ports() []Port {
	out := make([]Port, len(c.ports))
	copy(out, c.ports)
	return out
}

// Carriers returns the carrier schedule.
func (c *Catalog) Carriers() []Carrier {
	out := make([]Carrier, len(c.carriers))
	copy(out, c.carriers)
	return out
}

// Carrier returns the carrier with the given ID.
func (c *Catalog) Carrier(id string) (Carrier, error) {
	for _, cr := range c.carriers {
		if cr.ID == id {
			return cr, nil
		}
	}
	return Carrier{}, fmt.Errorf("%w: %s", ErrCarrierNotFound, id)
}
