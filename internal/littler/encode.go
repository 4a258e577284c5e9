package littler

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

// Column widths of the LITTLE_R layout.
var (
	HeaderWidths = append([]int{
		20, 20, 40, 40, 40, 40, 20, // lat, lon, id, name, platform, source, elevation
		10, 10, 10, 10, 10, // valid fields, errors, warnings, sequence, duplicates
		10, 10, 10, // sounding, bogus, discard
		10, 10, 20, // unix time, julian day, date
	}, pairs(13)...)
	RecordWidths  = pairs(10)
	TrailerWidths = pairs(10)
	CountWidths   = []int{7, 7, 7}
)

func pairs(n int) []int {
	out := make([]int, 0, 2*n)
	for range n {
		out = append(out, 13, 7)
	}
	return out
}

const (
	dateLayout = "20060102150405"
	endPair    = "-777777.00000      0"
	notPair    = "-888888.00000      0"
)

// Encode writes st and returns the number of valid fields written. Nothing
// is written when an error is returned.
func Encode(w io.Writer, st Station) (int, error) {
	var data bytes.Buffer
	valid := 0
	for _, rec := range st.Records {
		for _, f := range rec.fields() {
			if writeField(&data, f) {
				valid++
			}
		}
		data.WriteByte('\n')
	}

	var buf bytes.Buffer
	writeHeader(&buf, st.Header, valid)
	buf.Write(data.Bytes())
	buf.WriteString(endPair + endPair)
	fmt.Fprintf(&buf, "%13.5f%7d", float64(len(st.Records)), 0)
	buf.WriteString(strings.Repeat(notPair, 7))
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "%7d      0      0\n", valid)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write station %s: %w", st.Header.ID, err)
	}
	return valid, nil
}

func writeHeader(buf *bytes.Buffer, h Header, valid int) {
	fmt.Fprintf(buf, "%20.5f%20.5f", h.Latitude, h.Longitude)
	fmt.Fprintf(buf, "%40s%40s%-40s%40s", clip(h.ID, 40), clip(h.Name, 40), clip(h.Platform, 40), clip(h.Source, 40))
	fmt.Fprintf(buf, "%20.5f", h.Elevation)
	fmt.Fprintf(buf, "%10d%10d%10d%10s%10d", valid, int(domain.NotMeasured), int(domain.NotMeasured), "0", int(domain.NotMeasured))
	fmt.Fprintf(buf, "%10s%10s%10s", flag(h.Sounding), flag(h.Bogus), flag(h.Discard))
	fmt.Fprintf(buf, "%10d%10d%20s", int(domain.NotMeasured), int(domain.NotMeasured), h.Date.UTC().Format(dateLayout))
	for _, f := range h.Surface.fields() {
		writeField(buf, f)
	}
	buf.WriteByte('\n')
}

// writeField reports whether a measured value was written.
func writeField(buf *bytes.Buffer, f Field) bool {
	fmt.Fprintf(buf, "%13.5f%7d", f.Value.Or(domain.NotMeasured), f.QC)
	return f.Value.OK
}

func flag(b bool) string {
	if b {
		return "T"
	}
	return "F"
}

// clip keeps at most n runes, the unit fmt pads widths in.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
