package routes

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/meridianops/voyagesim/internal/parser"
)

// Seed file names, matching the upstream table layouts.
const (
	carrierScheduleFile = "Table1_Carrier_Route_Schedule.csv"
	portLocationsFile   = "Table2_Master_Port_Locations.csv"
)

// NewCatalogFromDir builds a catalog using the carrier schedule and port
// location tables found in dataDir. Missing files fall back to the built-in
// seeds; ports from file are merged over the built-in list by city so the
// built-in routes stay resolvable.
func NewCatalogFromDir(dataDir string) (*Catalog, error) {
	portList := ports
	carrierList := carriers

	if recs, err := loadPorts(filepath.Join(dataDir, portLocationsFile)); err != nil {
		return nil, err
	} else if recs != nil {
		portList = mergePorts(ports, recs)
	}

	if recs, err := loadCarriers(filepath.Join(dataDir, carrierScheduleFile)); err != nil {
		return nil, err
	} else if recs != nil {
		carrierList = recs
	}

	return build(portList, carrierList)
}

func loadPorts(path string) ([]Port, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, err := parser.ParsePortLocations(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	out := make([]Port, 0, len(recs))
	for _, r := range recs {
		out = append(out, Port{City: r.City, Code: r.Code, Lat: r.Lat, Lon: r.Lon})
	}
	return out, nil
}

func loadCarriers(path string) ([]Carrier, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, err := parser.ParseCarrierSchedule(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	out := make([]Carrier, 0, len(recs))
	for _, r := range recs {
		out = append(out, Carrier{
			ID:            r.ID,
			Name:          r.Name,
			ServiceType:   r.ServiceType,
			AvgSpeedKnots: r.AvgSpeedKnots,
		})
	}
	return out, nil
}

// mergePorts overlays file ports onto the base list by city.
func mergePorts(base, overlay []Port) []Port {
	byCity := make(map[string]int, len(base))
	out := make([]Port, len(base))
	copy(out, base)
	for i, p := range out {
		byCity[p.City] = i
	}
	for _, p := range overlay {
		if i, ok := byCity[p.City]; ok {
			out[i] = p
		} else {
			byCity[p.City] = len(out)
			out = append(out, p)
		}
	}
	return out
}
