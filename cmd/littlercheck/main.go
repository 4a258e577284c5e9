// Command littlercheck verifies the integrity of prepared observation files:
// the merged LITTLE_R file and the radar text file. It re-reads every
// station and compares the counts each file declares with its content.
//
// Usage:
//
//	go run ./cmd/littlercheck \
//	  -obs out/obs.2017060800 \
//	  -radar out/ob.radar.2017060800
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/wrf-obsprep/internal/littler"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	obsPath := flag.String("obs", "", "path to a merged LITTLE_R file")
	radarPath := flag.String("radar", "", "path to a radar text file")
	flag.Parse()

	if *obsPath == "" && *radarPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*obsPath, *radarPath))
}

func run(obsPath, radarPath string) int {
	fmt.Println("=== Observation File Integrity ===")
	fmt.Println()

	var phases []*phase
	if obsPath != "" {
		phases = append(phases, checkObsFile(obsPath))
	}
	if radarPath != "" {
		phases = append(phases, checkRadarFile(radarPath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

// checkObsFile decodes every station and compares the valid-field count in
// the header with the count line, and the record count with the trailer.
func checkObsFile(path string) *phase {
	p := &phase{name: "LITTLE_R stations (" + path + ")"}

	f, err := os.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer f.Close()

	raws, err := littler.ReadRaw(f)
	if err != nil {
		p.errorf("split: %v", err)
		return p
	}

	byPlatform := map[string]int{}
	for _, raw := range raws {
		d, err := littler.Decode(raw)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		h := d.Station.Header
		byPlatform[h.Platform]++
		if d.DeclaredValid != d.TrailerValid {
			p.errorf("station %s at line %d: header declares %d valid fields, count line has %d",
				h.ID, raw.Line, d.DeclaredValid, d.TrailerValid)
		}
		if d.TrailerLevels != len(d.Station.Records) {
			p.errorf("station %s at line %d: trailer declares %d levels, has %d",
				h.ID, raw.Line, d.TrailerLevels, len(d.Station.Records))
		}
		if h.Latitude < -90 || h.Latitude > 90 || h.Longitude < -180 || h.Longitude > 180 {
			p.errorf("station %s at line %d: position %.5f, %.5f out of range", h.ID, raw.Line, h.Latitude, h.Longitude)
		}
	}

	var counts []string
	for platform, n := range byPlatform {
		counts = append(counts, fmt.Sprintf("%s=%d", platform, n))
	}
	fmt.Printf("  %d stations: %s\n", len(raws), strings.Join(counts, ", "))
	return p
}

// checkRadarFile compares the preamble total with the station blocks and
// each block's declared cell and level counts with its content.
func checkRadarFile(path string) *phase {
	p := &phase{name: "Radar stations (" + path + ")"}

	f, err := os.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer f.Close()

	doc, err := littler.ReadRadar(f)
	if err != nil {
		p.errorf("read: %v", err)
		return p
	}
	if doc.Total != len(doc.Blocks) {
		p.errorf("preamble declares %d stations, file has %d", doc.Total, len(doc.Blocks))
	}

	cells := 0
	for _, b := range doc.Blocks {
		if err := b.Check(); err != nil {
			p.errorf("line %d: %v", b.Line, err)
		}
		cells += len(b.Station.Cells)
		for i, c := range b.Station.Cells {
			for _, l := range c.Levels {
				if l.ReflectivityError < 0 || l.VelocityError < 0 {
					p.errorf("line %d: station %s cell %d has a negative error estimate", b.Line, b.Station.Name, i)
				}
			}
		}
	}
	fmt.Printf("  %d stations, %d cells\n", len(doc.Blocks), cells)
	return p
}
