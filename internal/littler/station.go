package littler

import (
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

// Field is one physical value and its quality-control flag. The zero Field
// is "not measured".
type Field struct {
	Value domain.Value
	QC    int
}

// Measured wraps a value with an accepted QC flag.
func Measured(v float64) Field {
	return Field{Value: domain.Some(v)}
}

// Opt wraps an optional value with an accepted QC flag.
func Opt(v domain.Value) Field {
	return Field{Value: v}
}

// Surface holds the single-level values carried in the station header.
type Surface struct {
	SeaLevelPressure      Field // Pa
	ReferencePressure     Field // Pa
	GroundTemperature     Field // K
	SeaSurfaceTemperature Field // K
	SurfacePressure       Field // Pa
	Precipitation         Field // mm
	DailyMaxTemperature   Field // K
	DailyMinTemperature   Field // K
	NightMinTemperature   Field // K
	PressureChange3h      Field // Pa
	PressureChange24h     Field // Pa
	CloudCover            Field
	Ceiling               Field // m
}

func (s Surface) fields() []Field {
	return []Field{
		s.SeaLevelPressure, s.ReferencePressure, s.GroundTemperature,
		s.SeaSurfaceTemperature, s.SurfacePressure, s.Precipitation,
		s.DailyMaxTemperature, s.DailyMinTemperature, s.NightMinTemperature,
		s.PressureChange3h, s.PressureChange24h, s.CloudCover, s.Ceiling,
	}
}

// Header identifies one station or profile.
type Header struct {
	Latitude  float64
	Longitude float64
	ID        string
	Name      string
	Platform  string
	Source    string
	Elevation float64
	Sounding  bool
	Bogus     bool
	Discard   bool
	Date      time.Time
	Surface   Surface
}

// Record is one vertical level. Wind components are always written as not
// measured.
type Record struct {
	Pressure         Field // Pa
	Height           Field // m
	Temperature      Field // K
	DewPoint         Field // K
	WindSpeed        Field // m/s
	WindDirection    Field // degrees
	RelativeHumidity Field // %
	Thickness        Field // m
}

func (r Record) fields() []Field {
	return []Field{
		r.Pressure, r.Height, r.Temperature, r.DewPoint, r.WindSpeed,
		r.WindDirection, {}, {}, r.RelativeHumidity, r.Thickness,
	}
}

// Station is a header and its ordered levels.
type Station struct {
	Header  Header
	Records []Record
}

// Platform codes.
const (
	PlatformMETAR = "FM-15 METAR"
	PlatformSYNOP = "FM-12 SYNOP"
	PlatformTEMP  = "FM-35 TEMP"
	PlatformRadar = "FM-128 RADAR"
)
