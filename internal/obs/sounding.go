package obs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
)

// soundingColumn is the width of one column of a TEXT:LIST data row.
const soundingColumn = 7

// ParseSounding decodes a University of Wyoming TEXT:LIST sounding page.
// Only complete rows, with all eleven columns present, become levels.
func ParseSounding(r io.Reader) (littler.Station, error) {
	meta := make(map[string]string)
	var lines, rows []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		trimmed := strings.TrimSpace(line)
		if key, value, ok := strings.Cut(trimmed, ":"); ok {
			meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
			continue
		}
		if isSoundingRow(trimmed) {
			rows = append(rows, line)
		}
	}
	if err := sc.Err(); err != nil {
		return littler.Station{}, fmt.Errorf("read sounding: %w", err)
	}

	id := meta["Station number"]
	if id == "" {
		return littler.Station{}, errors.New("sounding has no station number")
	}
	lat, lon, elev := number(meta["Station latitude"]), number(meta["Station longitude"]), number(meta["Station elevation"])
	if !lat.OK || !lon.OK || !elev.OK {
		return littler.Station{}, fmt.Errorf("sounding %s has no station position", id)
	}
	date, err := time.Parse("060102/1504", meta["Observation time"])
	if err != nil {
		return littler.Station{}, fmt.Errorf("sounding %s observation time: %w", id, err)
	}

	st := littler.Station{
		Header: littler.Header{
			Latitude:  lat.V,
			Longitude: lon.V,
			ID:        id,
			Name:      soundingName(lines, id),
			Platform:  littler.PlatformTEMP,
			Elevation: elev.V,
			Sounding:  true,
			Date:      date,
		},
	}
	for _, row := range rows {
		st.Records = append(st.Records, soundingRecord(row))
	}
	return st, nil
}

func isSoundingRow(trimmed string) bool {
	tokens := strings.Fields(trimmed)
	if len(tokens) != 11 {
		return false
	}
	for _, tok := range tokens {
		if !number(tok).OK {
			return false
		}
	}
	return true
}

// soundingName is "ICAO/place" from the title line, which starts with the
// station number.
func soundingName(lines []string, id string) string {
	for _, line := range lines {
		tokens := strings.Fields(line)
		if len(tokens) >= 3 && tokens[0] == id {
			return tokens[1] + "/" + tokens[2]
		}
	}
	return id
}

// soundingRecord reads PRES HGHT TEMP DWPT RELH MIXR DRCT SKNT columns.
func soundingRecord(row string) littler.Record {
	col := func(i int) domain.Value {
		start, end := i*soundingColumn, (i+1)*soundingColumn
		if start >= len(row) {
			return domain.None()
		}
		return number(row[start:min(end, len(row))])
	}
	return littler.Record{
		Pressure:         pascal(col(0)),
		Height:           littler.Opt(col(1)),
		Temperature:      kelvin(col(2)),
		DewPoint:         kelvin(col(3)),
		RelativeHumidity: littler.Opt(col(4)),
		WindDirection:    littler.Opt(col(6)),
		WindSpeed:        littler.Opt(col(7).Map(domain.KnotsToMPS)),
	}
}

// Sounding reads *.txt sounding pages from a directory, one station each.
type Sounding struct {
	dir    string
	logger *slog.Logger
}

// NewSounding creates the sounding adapter.
func NewSounding(dir string, logger *slog.Logger) *Sounding {
	return &Sounding{dir: dir, logger: logger}
}

func (s *Sounding) Kind() Kind { return KindSound }

func (s *Sounding) Stations(ctx context.Context) ([]littler.Station, error) {
	files, err := inputFiles(s.dir, "*.txt")
	if err != nil {
		return nil, err
	}
	var out []littler.Station
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := readSounding(path)
		if err != nil {
			s.logger.Warn("sounding skipped", "file", path, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func readSounding(path string) (littler.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return littler.Station{}, err
	}
	defer f.Close()
	return ParseSounding(f)
}
