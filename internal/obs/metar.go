package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
	"github.com/couchcryptid/wrf-obsprep/internal/stations"
)

// METARReport is one decoded report as served by the aviationweather.gov
// data API in JSON form. Temperatures are in C, wind speed in knots and
// pressures in hPa. The wind direction is a number of degrees or "VRB".
type METARReport struct {
	ICAO          string          `json:"icaoId"`
	ReportTime    string          `json:"reportTime"`
	Temperature   *float64        `json:"temp"`
	DewPoint      *float64        `json:"dewp"`
	WindDirection json.RawMessage `json:"wdir"`
	WindSpeed     *float64        `json:"wspd"`
	Altimeter     *float64        `json:"altim"`
	SeaLevel      *float64        `json:"slp"`
	Latitude      *float64        `json:"lat"`
	Longitude     *float64        `json:"lon"`
	Elevation     *float64        `json:"elev"`
	Name          string          `json:"name"`
	RawOb         string          `json:"rawOb"`
}

// Time parses the report timestamp.
func (r METARReport) Time() (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, r.ReportTime); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse report time %q", r.ReportTime)
}

// Direction returns the wind direction; variable winds have none.
func (r METARReport) Direction() domain.Value {
	var v float64
	if err := json.Unmarshal(r.WindDirection, &v); err != nil {
		return domain.None()
	}
	return domain.Some(v)
}

// ParseMETARReports decodes a JSON array of reports.
func ParseMETARReports(r io.Reader) ([]METARReport, error) {
	var reports []METARReport
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decode metar json: %w", err)
	}
	return reports, nil
}

func opt(p *float64) domain.Value {
	if p == nil {
		return domain.None()
	}
	return domain.Some(*p)
}

// METAR reads metar*.json files from a directory.
type METAR struct {
	dir       string
	directory stations.Directory
	logger    *slog.Logger
}

// NewMETAR creates the METAR adapter.
func NewMETAR(dir string, directory stations.Directory, logger *slog.Logger) *METAR {
	return &METAR{dir: dir, directory: directory, logger: logger}
}

func (m *METAR) Kind() Kind { return KindMETAR }

func (m *METAR) Stations(ctx context.Context) ([]littler.Station, error) {
	files, err := inputFiles(m.dir, "metar*.json")
	if err != nil {
		return nil, err
	}
	var out []littler.Station
	for _, path := range files {
		reports, err := readMETARFile(path)
		if err != nil {
			m.logger.Warn("metar file skipped", "file", path, "error", err)
			continue
		}
		for _, rep := range reports {
			st, err := m.Station(ctx, rep)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				m.logger.Warn("metar report skipped", "station", rep.ICAO, "error", err)
				continue
			}
			out = append(out, st)
		}
	}
	return out, nil
}

func readMETARFile(path string) ([]METARReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMETARReports(f)
}

// Station builds the LITTLE_R station of one report. The station position
// comes from the directory, or from the report itself when the directory
// has no entry.
func (m *METAR) Station(ctx context.Context, rep METARReport) (littler.Station, error) {
	t, err := rep.Time()
	if err != nil {
		return littler.Station{}, err
	}

	site, err := m.directory.Lookup(ctx, rep.ICAO)
	switch {
	case errors.Is(err, stations.ErrNotFound) && rep.Latitude != nil && rep.Longitude != nil && rep.Elevation != nil:
		site = stations.Station{
			ICAO: rep.ICAO, ID: stations.DefaultID, Location: strings.TrimSpace(rep.Name),
			Latitude: *rep.Latitude, Longitude: *rep.Longitude, Elevation: *rep.Elevation,
		}
	case err != nil:
		return littler.Station{}, fmt.Errorf("lookup station: %w", err)
	}

	name := site.Name()
	if site.Country == "" {
		name = site.Location
	}

	return littler.Station{
		Header: littler.Header{
			Latitude:  site.Latitude,
			Longitude: site.Longitude,
			ID:        strconv.Itoa(site.ID),
			Name:      name,
			Platform:  littler.PlatformMETAR,
			Elevation: site.Elevation,
			Date:      t,
			Surface: littler.Surface{
				SeaLevelPressure: pascal(opt(rep.SeaLevel)),
			},
		},
		Records: []littler.Record{{
			Pressure:      pascal(opt(rep.Altimeter)),
			Height:        littler.Measured(site.Elevation),
			Temperature:   kelvin(opt(rep.Temperature)),
			DewPoint:      kelvin(opt(rep.DewPoint)),
			WindSpeed:     littler.Opt(opt(rep.WindSpeed).Map(domain.KnotsToMPS)),
			WindDirection: littler.Opt(rep.Direction()),
		}},
	}, nil
}
