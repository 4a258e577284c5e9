package littler

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

const radarDateLayout = "2006-01-02_15:04:05"

// Column widths of the radar text layout.
var (
	RadarHeaderWidths = []int{5, 2, 12, 8, 2, 8, 2, 8, 2, 19, 6, 6}
	RadarCellWidths   = []int{12, 3, 19, 2, 12, 2, 12, 2, 8, 2, 6}
	RadarLevelWidths  = []int{3, 12, 12, 4, 12, 2, 12, 4, 12, 2}
)

var (
	radarPreambleRule = "#-----------------#"
	radarStationRule  = "#" + strings.Repeat("-", 79) + "#"
)

// RadarStation is one radar site's gridded observations.
type RadarStation struct {
	Name      string
	Longitude float64
	Latitude  float64
	Elevation float64 // m above sea level
	Date      time.Time
	Sweeps    int
	Cells     []RadarCell
}

// RadarCell is a grid column with at least one valid level.
type RadarCell struct {
	Latitude  float64
	Longitude float64
	Levels    []RadarLevel
}

// RadarLevel is one jointly valid reflectivity and velocity observation.
type RadarLevel struct {
	Height            float64
	Velocity          float64
	VelocityQC        int
	VelocityError     float64
	Reflectivity      float64
	ReflectivityQC    int
	ReflectivityError float64
}

// EncodeRadarPreamble writes the file header with the total station count.
func EncodeRadarPreamble(w io.Writer, total int) error {
	_, err := fmt.Fprintf(w, "%14s%3d\n%s\n", "TOTAL NUMBER =", total, radarPreambleRule)
	return err
}

// EncodeRadar writes one station block and returns the number of valid
// fields written: height, velocity and reflectivity of every level line.
// Cells without levels are skipped. Nothing is written when an error is
// returned.
func EncodeRadar(w io.Writer, st RadarStation) (int, error) {
	cells := make([]RadarCell, 0, len(st.Cells))
	for _, c := range st.Cells {
		if len(c.Levels) > 0 {
			cells = append(cells, c)
		}
	}
	date := st.Date.UTC().Format(radarDateLayout)

	var buf bytes.Buffer
	valid := 0
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "%5s%2s%12s%8.3f%2s%8.3f%2s%8.1f%2s%19s%6d%6d\n",
		"RADAR", "", st.Name, st.Longitude, "", st.Latitude, "", st.Elevation, "", date, len(cells), st.Sweeps)
	buf.WriteString(radarStationRule + "\n\n")

	for _, c := range cells {
		fmt.Fprintf(&buf, "%12s%3s%19s%2s%12.3f%2s%12.3f%2s%8.1f%2s%6d\n",
			PlatformRadar, "", date, "", c.Latitude, "", c.Longitude, "", math.Trunc(st.Elevation), "", len(c.Levels))
		for _, l := range c.Levels {
			fmt.Fprintf(&buf, "%3s%12.1f%12.3f%4d%12.3f%2s%12.3f%4d%12.3f%2s\n",
				"", l.Height, l.Velocity, l.VelocityQC, l.VelocityError, "",
				l.Reflectivity, l.ReflectivityQC, l.ReflectivityError, "")
			valid += 3
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write radar station %s: %w", st.Name, err)
	}
	return valid, nil
}
