package obs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
	"github.com/couchcryptid/wrf-obsprep/internal/stations"
)

// SynopBlock is one station entry of a synops.txt download: the "#  SYNOPS"
// info line split on '|' and the report text up to its "==" terminator.
type SynopBlock struct {
	Info   []string
	Report string
}

// SplitSynops splits a synops.txt stream into blocks.
func SplitSynops(r io.Reader) ([]SynopBlock, error) {
	var out []SynopBlock
	var info []string
	var report []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#  SYNOPS"):
			info = strings.Split(line, "|")
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}
		report = append(report, line)
		if strings.HasSuffix(line, "==") {
			out = append(out, SynopBlock{Info: info, Report: strings.Join(report, " ")})
			report = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read synops: %w", err)
	}
	return out, nil
}

// SynopSite is the station position from a block's info line.
type SynopSite struct {
	Location  string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// Site parses "#  SYNOPS from 80222, Bogota / Eldorado | 04-42N | 074-09W | 2548 m".
func (b SynopBlock) Site() (SynopSite, error) {
	if len(b.Info) < 4 {
		return SynopSite{}, fmt.Errorf("synop info has %d fields, want 4", len(b.Info))
	}
	var s SynopSite
	if _, loc, ok := strings.Cut(b.Info[0], ","); ok {
		s.Location = strings.TrimSpace(loc)
	}
	var err error
	if s.Latitude, err = stations.ParseDMS(b.Info[1]); err != nil {
		return SynopSite{}, fmt.Errorf("synop latitude: %w", err)
	}
	if s.Longitude, err = stations.ParseDMS(b.Info[2]); err != nil {
		return SynopSite{}, fmt.Errorf("synop longitude: %w", err)
	}
	alt := number(firstField(b.Info[3]))
	if !alt.OK {
		return SynopSite{}, fmt.Errorf("synop elevation %q", b.Info[3])
	}
	s.Elevation = alt.V
	return s, nil
}

func firstField(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// SynopReport holds the decoded quantities of one SYNOP, in SI units except
// temperatures (C) and pressures (hPa).
type SynopReport struct {
	SeaLevelPressure domain.Value
	StationPressure  domain.Value
	AirTemperature   domain.Value
	DewPoint         domain.Value
	RelativeHumidity domain.Value
	MinGround        domain.Value
	MinNight         domain.Value
	Precipitation    domain.Value
	WindDirection    domain.Value
	WindSpeed        domain.Value // m/s
}

// SynopDecoder turns SYNOP code into physical quantities.
type SynopDecoder interface {
	Decode(ctx context.Context, report string) (SynopReport, error)
}

// Metaf2XML runs the metaf2xml decoder and reads its XML output.
type Metaf2XML struct {
	Command string
	Args    []string
}

// NewMetaf2XML runs command with "-o-" followed by the report.
func NewMetaf2XML(command string) *Metaf2XML {
	return &Metaf2XML{Command: command, Args: []string{"-o-"}}
}

func (m *Metaf2XML) Decode(ctx context.Context, report string) (SynopReport, error) {
	args := append(append([]string{}, m.Args...), report)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Command, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return SynopReport{}, fmt.Errorf("run %s: %w: %s", m.Command, err, strings.TrimSpace(stderr.String()))
	}
	return ParseSynopXML(bytes.NewReader(out))
}

type xmlValue struct {
	V string `xml:"v,attr"`
	U string `xml:"u,attr"`
}

func (x *xmlValue) value() domain.Value {
	if x == nil {
		return domain.None()
	}
	return number(x.V)
}

type xmlSynop struct {
	SLP             *xmlValue `xml:"SLP>pressure"`
	StationPressure *xmlValue `xml:"stationPressure>pressure"`
	Air             *xmlValue `xml:"temperature>air>temp"`
	Dew             *xmlValue `xml:"temperature>dewpoint>temp"`
	RelHumid        *xmlValue `xml:"temperature>relHumid1"`
	MinGround       *xmlValue `xml:"synop_section3>tempMinGround>temp"`
	MinNight        *xmlValue `xml:"synop_section3>tempMinNighttime>temp"`
	Precip          *xmlValue `xml:"precipitation>precipAmount"`
	WindDir         *xmlValue `xml:"sfcWind>wind>dir"`
	WindSpeed       *xmlValue `xml:"sfcWind>wind>speed"`
}

type xmlData struct {
	Synops []xmlSynop `xml:"reports>synop"`
}

// ParseSynopXML reads the first report of a metaf2xml document.
func ParseSynopXML(r io.Reader) (SynopReport, error) {
	var doc xmlData
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return SynopReport{}, fmt.Errorf("decode synop xml: %w", err)
	}
	if len(doc.Synops) == 0 {
		return SynopReport{}, fmt.Errorf("decode synop xml: no synop report")
	}
	s := doc.Synops[0]

	speed := s.WindSpeed.value()
	if s.WindSpeed != nil && strings.EqualFold(s.WindSpeed.U, "KT") {
		speed = speed.Map(domain.KnotsToMPS)
	}
	return SynopReport{
		SeaLevelPressure: s.SLP.value(),
		StationPressure:  s.StationPressure.value(),
		AirTemperature:   s.Air.value(),
		DewPoint:         s.Dew.value(),
		RelativeHumidity: s.RelHumid.value(),
		MinGround:        s.MinGround.value(),
		MinNight:         s.MinNight.value(),
		Precipitation:    s.Precip.value(),
		WindDirection:    s.WindDir.value(),
		WindSpeed:        speed,
	}, nil
}

// Synop reads synops.txt from a directory and decodes every block.
type Synop struct {
	dir     string
	decoder SynopDecoder
	logger  *slog.Logger
}

// NewSynop creates the SYNOP adapter.
func NewSynop(dir string, decoder SynopDecoder, logger *slog.Logger) *Synop {
	return &Synop{dir: dir, decoder: decoder, logger: logger}
}

func (s *Synop) Kind() Kind { return KindSynop }

func (s *Synop) Stations(ctx context.Context) ([]littler.Station, error) {
	files, err := inputFiles(s.dir, "synops.txt")
	if err != nil || len(files) == 0 {
		return nil, err
	}
	f, err := os.Open(files[0])
	if err != nil {
		return nil, fmt.Errorf("open synops: %w", err)
	}
	defer f.Close()

	blocks, err := SplitSynops(f)
	if err != nil {
		return nil, err
	}
	var out []littler.Station
	for _, b := range blocks {
		st, err := s.Station(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("synop skipped", "report", b.Report, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// Station decodes one block. The report starts with its YYYYMMDDHHMM
// timestamp; the fourth token is the station number.
func (s *Synop) Station(ctx context.Context, b SynopBlock) (littler.Station, error) {
	tokens := strings.Fields(b.Report)
	if len(tokens) < 4 {
		return littler.Station{}, fmt.Errorf("synop report has %d tokens", len(tokens))
	}
	date, err := time.Parse("200601021504", tokens[0])
	if err != nil {
		return littler.Station{}, fmt.Errorf("synop time: %w", err)
	}
	site, err := b.Site()
	if err != nil {
		return littler.Station{}, err
	}
	rep, err := s.decoder.Decode(ctx, strings.Join(tokens[1:], " "))
	if err != nil {
		return littler.Station{}, err
	}

	return littler.Station{
		Header: littler.Header{
			Latitude:  site.Latitude,
			Longitude: site.Longitude,
			ID:        tokens[3],
			Name:      site.Location,
			Platform:  littler.PlatformSYNOP,
			Elevation: site.Elevation,
			Date:      date,
			Surface: littler.Surface{
				SeaLevelPressure:    pascal(rep.SeaLevelPressure),
				GroundTemperature:   kelvin(rep.AirTemperature),
				SurfacePressure:     pascal(rep.StationPressure),
				Precipitation:       littler.Opt(rep.Precipitation),
				DailyMinTemperature: kelvin(rep.MinGround),
				NightMinTemperature: kelvin(rep.MinNight),
			},
		},
		Records: []littler.Record{{
			Pressure:         pascal(rep.StationPressure),
			Height:           littler.Measured(site.Elevation),
			Temperature:      kelvin(rep.AirTemperature),
			DewPoint:         kelvin(rep.DewPoint),
			WindSpeed:        littler.Opt(rep.WindSpeed),
			WindDirection:    littler.Opt(rep.WindDirection),
			RelativeHumidity: littler.Opt(rep.RelativeHumidity),
		}},
	}, nil
}
