package obs

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
	"github.com/couchcryptid/wrf-obsprep/internal/stations"
)

// Level-2 radiometer record types.
const (
	recordSurface     = "201"
	recordHeights     = "400"
	recordTemperature = "401"
	recordHumidity    = "404"
)

var zenithLabels = map[string]bool{"Zenith": true, "ZenithKV": true, "Zenith-V": true}

// RadiometerProfile is one zenith retrieval.
type RadiometerProfile struct {
	Date              time.Time
	GroundTemperature domain.Value // K
	SurfacePressure   domain.Value // hPa
	Rain              domain.Value
	Heights           []float64      // km above the site
	Temperature       []domain.Value // K
	RelativeHumidity  []domain.Value // %
}

// ParseRadiometer reads a level-2 CSV file. A profile is emitted for every
// zenith humidity record, using the latest height and zenith temperature
// records and the surface record that directly precedes the temperature.
func ParseRadiometer(r io.Reader) ([]RadiometerProfile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out      []RadiometerProfile
		cur      *RadiometerProfile
		heights  []float64
		previous []string
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read radiometer csv: %w", err)
		}
		row := compact(rec)
		if len(row) < 4 {
			previous = row
			continue
		}

		code, label := strings.TrimSpace(row[2]), strings.TrimSpace(row[3])
		switch {
		case code == recordHeights:
			heights = heights[:0]
			for _, v := range values(row) {
				if v.OK {
					heights = append(heights, v.V)
				}
			}
		case code == recordTemperature && zenithLabels[label]:
			date, err := time.Parse("01/02/06 15:04:05", strings.TrimSpace(row[1]))
			if err != nil {
				return nil, fmt.Errorf("radiometer date %q: %w", row[1], err)
			}
			cur = &RadiometerProfile{
				Date:        date,
				Heights:     append([]float64(nil), heights...),
				Temperature: values(row),
			}
			if len(previous) >= 8 && strings.TrimSpace(previous[2]) == recordSurface {
				cur.GroundTemperature = number(previous[3])
				cur.SurfacePressure = number(previous[5])
				cur.Rain = number(previous[7])
			}
		case code == recordHumidity && zenithLabels[label] && cur != nil:
			cur.RelativeHumidity = values(row)
			out = append(out, *cur)
			cur = nil
		}
		previous = row
	}
	return out, nil
}

// compact drops empty cells.
func compact(rec []string) []string {
	out := rec[:0:0]
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// values reads the per-level columns: everything after the label except the
// two trailing status columns.
func values(row []string) []domain.Value {
	if len(row) <= 6 {
		return nil
	}
	cols := row[4 : len(row)-2]
	out := make([]domain.Value, len(cols))
	for i, c := range cols {
		out[i] = number(c)
	}
	return out
}

// Radiometer reads *.csv level-2 files from a directory. The station is the
// ICAO code formed by the first four letters of the file name.
type Radiometer struct {
	dir       string
	directory stations.Directory
	logger    *slog.Logger
}

// NewRadiometer creates the radiometer adapter.
func NewRadiometer(dir string, directory stations.Directory, logger *slog.Logger) *Radiometer {
	return &Radiometer{dir: dir, directory: directory, logger: logger}
}

func (r *Radiometer) Kind() Kind { return KindRadiom }

func (r *Radiometer) Stations(ctx context.Context) ([]littler.Station, error) {
	files, err := inputFiles(r.dir, "*.csv")
	if err != nil {
		return nil, err
	}
	var out []littler.Station
	for _, path := range files {
		sts, err := r.file(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("radiometer file skipped", "file", path, "error", err)
			continue
		}
		out = append(out, sts...)
	}
	return out, nil
}

func (r *Radiometer) file(ctx context.Context, path string) ([]littler.Station, error) {
	base := filepath.Base(path)
	if len(base) < 4 {
		return nil, fmt.Errorf("file name %q has no station code", base)
	}
	site, err := r.directory.Lookup(ctx, strings.ToUpper(base[:4]))
	if err != nil {
		return nil, fmt.Errorf("lookup station: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	profiles, err := ParseRadiometer(f)
	if err != nil {
		return nil, err
	}

	out := make([]littler.Station, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, RadiometerStation(site, p))
	}
	return out, nil
}

// RadiometerStation builds the LITTLE_R profile of one retrieval.
func RadiometerStation(site stations.Station, p RadiometerProfile) littler.Station {
	st := littler.Station{
		Header: littler.Header{
			Latitude:  site.Latitude,
			Longitude: site.Longitude,
			ID:        strconv.Itoa(site.ID),
			Name:      site.Location,
			Platform:  littler.PlatformTEMP,
			Elevation: site.Elevation,
			Date:      p.Date,
			Surface: littler.Surface{
				GroundTemperature: littler.Opt(p.GroundTemperature),
				SurfacePressure:   pascal(p.SurfacePressure),
				Precipitation:     littler.Opt(p.Rain),
			},
		},
	}
	n := min(len(p.Heights), len(p.Temperature), len(p.RelativeHumidity))
	for i := range n {
		st.Records = append(st.Records, littler.Record{
			Height:           littler.Measured(p.Heights[i]*1000 + site.Elevation),
			Temperature:      littler.Opt(p.Temperature[i]),
			RelativeHumidity: littler.Opt(p.RelativeHumidity[i]),
		})
	}
	return st
}
