package littler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

// ErrLayout marks a line that does not match the fixed-column layout.
var ErrLayout = errors.New("littler layout")

// RawStation is one station split into fixed-width columns, untrimmed.
type RawStation struct {
	Line    int // 1-based line number of the header
	Header  []string
	Records [][]string
	Trailer []string
	Count   []string
}

// Split cuts line into columns of the given widths. The line must have
// exactly the summed width.
func Split(line string, widths []int) ([]string, error) {
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(line) != total {
		return nil, fmt.Errorf("%w: line has %d columns, want %d", ErrLayout, len(line), total)
	}
	out := make([]string, len(widths))
	at := 0
	for i, w := range widths {
		out[i] = line[at : at+w]
		at += w
	}
	return out, nil
}

// ReadRaw splits every station of a LITTLE_R stream. Blank lines between
// stations are ignored.
func ReadRaw(r io.Reader) ([]RawStation, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var out []RawStation
	var cur *RawStation
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		switch {
		case cur == nil && strings.TrimSpace(line) == "":
			continue
		case cur == nil:
			cols, err := Split(line, HeaderWidths)
			if err != nil {
				return nil, fmt.Errorf("line %d header: %w", n, err)
			}
			cur = &RawStation{Line: n, Header: cols}
		case cur.Trailer != nil:
			cols, err := Split(line, CountWidths)
			if err != nil {
				return nil, fmt.Errorf("line %d count: %w", n, err)
			}
			cur.Count = cols
			out = append(out, *cur)
			cur = nil
		case strings.HasPrefix(line, endPair):
			cols, err := Split(line, TrailerWidths)
			if err != nil {
				return nil, fmt.Errorf("line %d trailer: %w", n, err)
			}
			cur.Trailer = cols
		default:
			cols, err := Split(line, RecordWidths)
			if err != nil {
				return nil, fmt.Errorf("line %d record: %w", n, err)
			}
			cur.Records = append(cur.Records, cols)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read littler: %w", err)
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: station at line %d is not terminated", ErrLayout, cur.Line)
	}
	return out, nil
}

// Decoded is a parsed station with the counts declared in the file.
type Decoded struct {
	Station       Station
	DeclaredValid int
	TrailerLevels int
	TrailerValid  int
}

// Decode parses the columns of raw.
func Decode(raw RawStation) (Decoded, error) {
	var d Decoded
	h := raw.Header
	p := &parser{}

	d.Station.Header = Header{
		Latitude:  p.float(h[0]),
		Longitude: p.float(h[1]),
		ID:        strings.TrimSpace(h[2]),
		Name:      strings.TrimSpace(h[3]),
		Platform:  strings.TrimSpace(h[4]),
		Source:    strings.TrimSpace(h[5]),
		Elevation: p.float(h[6]),
		Sounding:  strings.TrimSpace(h[12]) == "T",
		Bogus:     strings.TrimSpace(h[13]) == "T",
		Discard:   strings.TrimSpace(h[14]) == "T",
	}
	d.DeclaredValid = p.int(h[7])
	date, err := time.Parse(dateLayout, strings.TrimSpace(h[17]))
	if err != nil {
		p.fail(fmt.Errorf("date %q: %w", h[17], err))
	}
	d.Station.Header.Date = date

	surface := make([]Field, 13)
	for i := range surface {
		surface[i] = p.field(h[18+2*i], h[19+2*i])
	}
	d.Station.Header.Surface = Surface{
		SeaLevelPressure: surface[0], ReferencePressure: surface[1], GroundTemperature: surface[2],
		SeaSurfaceTemperature: surface[3], SurfacePressure: surface[4], Precipitation: surface[5],
		DailyMaxTemperature: surface[6], DailyMinTemperature: surface[7], NightMinTemperature: surface[8],
		PressureChange3h: surface[9], PressureChange24h: surface[10], CloudCover: surface[11], Ceiling: surface[12],
	}

	for _, cols := range raw.Records {
		f := make([]Field, 10)
		for i := range f {
			f[i] = p.field(cols[2*i], cols[2*i+1])
		}
		d.Station.Records = append(d.Station.Records, Record{
			Pressure: f[0], Height: f[1], Temperature: f[2], DewPoint: f[3], WindSpeed: f[4],
			WindDirection: f[5], RelativeHumidity: f[8], Thickness: f[9],
		})
	}

	if len(raw.Trailer) > 4 {
		d.TrailerLevels = int(p.float(raw.Trailer[4]))
	}
	if len(raw.Count) > 0 {
		d.TrailerValid = p.int(raw.Count[0])
	}
	if p.err != nil {
		return Decoded{}, fmt.Errorf("decode station at line %d: %w", raw.Line, p.err)
	}
	return d, nil
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) float(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) int(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) field(value, qc string) Field {
	v := p.float(value)
	f := Field{QC: p.int(qc)}
	if v != domain.NotMeasured {
		f.Value = domain.Some(v)
	}
	return f
}
