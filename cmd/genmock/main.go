// Command genmock lays out a mock DATA_DIR for one analysis time: a station
// directory, a METAR JSON file and one sounding page per upper-air site.
// Values follow a standard atmosphere so the prepared LITTLE_R output is
// reproducible and easy to eyeball.
//
// Usage:
//
//	go run ./cmd/genmock -data-dir data/mock -time 2017060800
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/obs"
)

type site struct {
	icao      string
	wmo       string // block+station number, empty when the site does not sound
	name      string
	latitude  float64
	longitude float64
	elevation float64
}

var sites = []site{
	{icao: "SKBO", wmo: "80222", name: "Bogota/Eldorado", latitude: 4.7, longitude: -74.15, elevation: 2548},
	{icao: "SKCL", wmo: "80259", name: "Cali/Alfonso Bonilla Aragon", latitude: 3.55, longitude: -76.383, elevation: 969},
	{icao: "SKRG", name: "Rionegro/Jose Maria Cordova", latitude: 6.167, longitude: -75.433, elevation: 2142},
	{icao: "SKBQ", name: "Barranquilla/Ernesto Cortissoz", latitude: 10.883, longitude: -74.783, elevation: 30},
}

// Standard atmosphere levels for soundings, hPa.
var soundingLevels = []float64{1000, 925, 850, 700, 500, 400, 300, 250, 200}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "", "directory to populate")
	stamp := flag.String("time", "", "analysis time, YYYYMMDDHH (default: now floored to the hour)")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -data-dir")
	}

	t0 := domain.DefaultAnalysisTime()
	if *stamp != "" {
		var err error
		if t0, err = domain.ParseAnalysisTime(*stamp); err != nil {
			return err
		}
	}
	if err := writeDirectory(filepath.Join(*dataDir, "nsd_cccc.txt")); err != nil {
		return fmt.Errorf("writing station directory: %w", err)
	}
	log.Printf("stations: %d", len(sites))

	metarPath := filepath.Join(*dataDir, string(obs.KindMETAR), "metar_"+t0.Format("2006010215")+".json")
	if err := writeJSON(metarPath, metarReports(t0)); err != nil {
		return fmt.Errorf("writing metar reports: %w", err)
	}
	log.Printf("wrote metar reports: %s", metarPath)

	for _, s := range sites {
		if s.wmo == "" {
			continue
		}
		path := filepath.Join(*dataDir, string(obs.KindSound), s.wmo+".txt")
		if err := writeFile(path, soundingPage(s, t0)); err != nil {
			return fmt.Errorf("writing sounding %s: %w", s.wmo, err)
		}
		log.Printf("wrote sounding: %s", path)
	}
	return nil
}

// writeDirectory writes sites in the NOAA nsd_cccc layout with DMS
// coordinates.
func writeDirectory(path string) error {
	var b strings.Builder
	for _, s := range sites {
		block, station := "", ""
		if len(s.wmo) == 5 {
			block, station = s.wmo[:2], s.wmo[2:]
		}
		fmt.Fprintf(&b, "%s;%s;%s;%s;;Colombia;3;%s;%s;;;%.0f;;P\n",
			s.icao, block, station, s.name, dms(s.latitude, "N", "S"), dms(s.longitude, "E", "W"), s.elevation)
	}
	return writeFile(path, b.String())
}

func dms(v float64, pos, neg string) string {
	hemi := pos
	if v < 0 {
		hemi, v = neg, -v
	}
	deg := math.Floor(v)
	minutes := math.Round((v - deg) * 60)
	width := 2
	if pos == "E" {
		width = 3
	}
	return fmt.Sprintf("%0*d-%02d%s", width, int(deg), int(minutes), hemi)
}

func metarReports(t0 time.Time) []obs.METARReport {
	reports := make([]obs.METARReport, 0, len(sites))
	for i, s := range sites {
		temp := math.Round(surfaceTemperature(s.elevation))
		dew := temp - 5
		speed := float64(3 + i)
		altim := math.Round(1013.25 + float64(i))
		reports = append(reports, obs.METARReport{
			ICAO:          s.icao,
			ReportTime:    t0.Format(time.RFC3339),
			Temperature:   &temp,
			DewPoint:      &dew,
			WindDirection: json.RawMessage(fmt.Sprintf("%d", 90*i)),
			WindSpeed:     &speed,
			Altimeter:     &altim,
			Name:          s.name,
			RawOb:         fmt.Sprintf("%s %sZ %03d%02dKT 9999 %02.0f/%02.0f", s.icao, t0.Format("021504"), 90*i, int(speed), temp, dew),
		})
	}
	return reports
}

// soundingPage renders a TEXT:LIST page with the levels above the site.
func soundingPage(s site, t0 time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s Observations at %s\n\n", s.wmo, s.icao, strings.SplitN(s.name, "/", 2)[0], t0.Format("15Z 02 Jan 2006"))
	rule := strings.Repeat("-", 77)
	b.WriteString(rule + "\n")
	b.WriteString("   PRES   HGHT   TEMP   DWPT   RELH   MIXR   DRCT   SKNT   THTA   THTE   THTV\n")
	b.WriteString("    hPa     m      C      C      %    g/kg    deg   knot     K      K      K \n")
	b.WriteString(rule + "\n")

	for _, p := range soundingLevels {
		h := pressureHeight(p)
		if h < s.elevation {
			continue
		}
		t := surfaceTemperature(h)
		theta := (t + 273.15) * math.Pow(1000/p, 0.286)
		fmt.Fprintf(&b, "%7.1f%7.0f%7.1f%7.1f%7d%7.2f%7d%7d%7.1f%7.1f%7.1f\n",
			p, h, t, t-6, 65, 5.0, 250, 15, theta, theta+15, theta+1)
	}

	b.WriteString("\nStation information and sounding indices\n")
	fmt.Fprintf(&b, "%44s %s\n", "Station identifier:", s.icao)
	fmt.Fprintf(&b, "%44s %s\n", "Station number:", s.wmo)
	fmt.Fprintf(&b, "%44s %s\n", "Observation time:", t0.Format("060102/1504"))
	fmt.Fprintf(&b, "%44s %.2f\n", "Station latitude:", s.latitude)
	fmt.Fprintf(&b, "%44s %.2f\n", "Station longitude:", s.longitude)
	fmt.Fprintf(&b, "%44s %.1f\n", "Station elevation:", s.elevation)
	return b.String()
}

// surfaceTemperature is the standard-atmosphere temperature at h meters, C,
// offset for the tropics.
func surfaceTemperature(h float64) float64 {
	return 27 - 0.0065*h
}

// pressureHeight is the standard-atmosphere height of pressure level p, m.
func pressureHeight(p float64) float64 {
	return 44330.8 * (1 - math.Pow(p/1013.25, 0.190263))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, string(data)+"\n")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
