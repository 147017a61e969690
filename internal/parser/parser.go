// Package parser decodes the seed data files the catalog is built from:
// carrier schedules, master port locations, and waypoint chains. Files follow
// the upstream CSV table layouts; columns are located by header name so
// column order does not matter.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/meridianops/voyagesim/internal/util"
	"github.com/meridianops/voyagesim/pkg/core"
)

// CarrierRecord is one row of the carrier route schedule table.
type CarrierRecord struct {
	ID              string
	Name            string
	ServiceType     string
	OriginPort      string
	DestinationPort string
	AvgSpeedKnots   float64
}

// PortRecord is one row of the master port locations table.
type PortRecord struct {
	City string
	Code string
	Lat  float64
	Lon  float64
}

// headerIndex maps column names to positions, case-insensitively.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	return idx
}

// rowReader pulls named fields out of one CSV record, remembering the first
// error so callers can read a whole row before checking.
type rowReader struct {
	record []string
	idx    map[string]int
	err    error
}

func (r *rowReader) str(name string) string {
	if r.err != nil {
		return ""
	}
	i, ok := r.idx[name]
	if !ok {
		r.err = fmt.Errorf("missing column %s", name)
		return ""
	}
	if i >= len(r.record) {
		r.err = fmt.Errorf("short record, no value for %s", name)
		return ""
	}
	return util.TrimQuotes(strings.TrimSpace(r.record[i]))
}

func (r *rowReader) float(name string) float64 {
	s := r.str(name)
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("column %s: %w", name, err)
		return 0
	}
	return v
}

// ParseCarrierSchedule reads a carrier route schedule CSV
// (Table1_Carrier_Route_Schedule layout).
func ParseCarrierSchedule(r io.Reader) ([]CarrierRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading carrier schedule header: %w", err)
	}
	idx := headerIndex(header)

	var out []CarrierRecord
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("carrier schedule line %d: %w", line, err)
		}

		row := rowReader{record: record, idx: idx}
		rec := CarrierRecord{
			ID:              row.str("CARRIER_ID"),
			Name:            row.str("CARRIER_NAME"),
			ServiceType:     row.str("SERVICE_TYPE"),
			OriginPort:      row.str("ORIGIN_PORT"),
			DestinationPort: row.str("DESTINATION_PORT"),
			AvgSpeedKnots:   row.float("AVG_SPEED_KNOTS"),
		}
		if row.err != nil {
			return nil, fmt.Errorf("carrier schedule line %d: %w", line, row.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParsePortLocations reads a master port locations CSV
// (Table2_Master_Port_Locations layout).
func ParsePortLocations(r io.Reader) ([]PortRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading port locations header: %w", err)
	}
	idx := headerIndex(header)

	var out []PortRecord
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("port locations line %d: %w", line, err)
		}

		row := rowReader{record: record, idx: idx}
		rec := PortRecord{
			City: row.str("PORT_CITY"),
			Code: row.str("PORT_CODE"),
			Lat:  row.float("PORT_LATITUDE"),
			Lon:  row.float("PORT_LONGITUDE"),
		}
		if row.err != nil {
			return nil, fmt.Errorf("port locations line %d: %w", line, row.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseWaypoints parses a waypoint chain of the form "lat,lon;lat,lon;...".
func ParseWaypoints(s string) ([]core.Waypoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ";")
	out := make([]core.Waypoint, 0, len(parts))
	for i, part := range parts {
		lat, lon, err := util.ParseLatLon(part)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		out = append(out, core.Waypoint{Lat: lat, Lon: lon})
	}
	return out, nil
}
