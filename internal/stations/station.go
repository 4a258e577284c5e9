// Package stations reads the WMO/ICAO station directory (nsd_cccc.txt).
package stations

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultID is used when a directory entry has no usable WMO block/number.
const DefaultID = 99

// ErrNotFound means the directory has no entry for the requested code.
var ErrNotFound = errors.New("station not found")

// Station is one directory entry.
type Station struct {
	ICAO      string
	ID        int // WMO block and station number
	Location  string
	Country   string
	Latitude  float64
	Longitude float64
	Elevation float64 // m
}

// Name is the display name written into observation headers.
func (s Station) Name() string {
	name := []rune(s.Location + "/" + s.Country)
	if len(name) > 40 {
		name = name[:40]
	}
	return string(name)
}

// ParseLine parses one ';'-separated directory line.
func ParseLine(line string) (Station, error) {
	f := strings.Split(strings.TrimSpace(line), ";")
	if len(f) < 12 {
		return Station{}, fmt.Errorf("parse station line: %d fields, want at least 12", len(f))
	}

	s := Station{ICAO: f[0], ID: DefaultID, Location: f[3], Country: f[5]}
	if id, err := strconv.Atoi(f[1] + f[2]); err == nil {
		s.ID = id
	}

	var err error
	if s.Latitude, err = ParseDMS(f[7]); err != nil {
		return Station{}, fmt.Errorf("parse station %s latitude: %w", s.ICAO, err)
	}
	if s.Longitude, err = ParseDMS(f[8]); err != nil {
		return Station{}, fmt.Errorf("parse station %s longitude: %w", s.ICAO, err)
	}
	if s.Elevation, err = strconv.ParseFloat(strings.TrimSpace(f[11]), 64); err != nil {
		return Station{}, fmt.Errorf("parse station %s elevation: %w", s.ICAO, err)
	}
	return s, nil
}

// ParseDMS converts "081-45-24W" or "04-42N" to decimal degrees. Southern
// and western hemispheres are negative.
func ParseDMS(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid DMS %q", s)
	}
	hemi := strings.ToUpper(s[len(s)-1:])
	parts := strings.Split(s[:len(s)-1], "-")
	if len(parts) < 2 || len(parts) > 3 || !strings.Contains("NSEW", hemi) {
		return 0, fmt.Errorf("invalid DMS %q", s)
	}

	var dd float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid DMS %q: %w", s, err)
		}
		dd += v / []float64{1, 60, 3600}[i]
	}
	if hemi == "S" || hemi == "W" {
		dd = -dd
	}
	return dd, nil
}
