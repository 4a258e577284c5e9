package littler

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() Header {
	return Header{
		Latitude:  4.70167,
		Longitude: -74.15,
		ID:        "80222",
		Name:      "BOGOTA/ELDORADO/Colombia",
		Platform:  PlatformMETAR,
		Elevation: 2548,
		Date:      time.Date(2017, 6, 8, 0, 0, 0, 0, time.UTC),
		Surface: Surface{
			SeaLevelPressure: Measured(102800),
		},
	}
}

func fullRecord() Record {
	return Record{
		Pressure:         Measured(75200),
		Height:           Measured(2548),
		Temperature:      Measured(286.15),
		DewPoint:         Measured(281.15),
		WindSpeed:        Measured(2.57222),
		WindDirection:    Measured(270),
		RelativeHumidity: Measured(71),
		Thickness:        Measured(120),
	}
}

func encodeLines(t *testing.T, st Station) ([]string, int) {
	t.Helper()
	var buf bytes.Buffer
	n, err := Encode(&buf, st)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(buf.String(), "\n"))
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"), n
}

func TestEncode_LineWidths(t *testing.T) {
	lines, _ := encodeLines(t, Station{Header: testHeader(), Records: []Record{fullRecord(), {}}})

	require.Len(t, lines, 5)
	assert.Len(t, lines[0], 600)
	assert.Len(t, lines[1], 200)
	assert.Len(t, lines[2], 200)
	assert.Len(t, lines[3], 200)
	assert.Len(t, lines[4], 21)
}

func TestEncode_ValidFieldCount(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    int
	}{
		{"no fields", []Record{{}}, 0},
		{"one field", []Record{{Height: Measured(2548)}}, 1},
		{"all fields", []Record{fullRecord()}, 8},
		{"all fields on two levels", []Record{fullRecord(), fullRecord()}, 16},
		{"missing values do not count", []Record{{Temperature: Opt(domain.None()), Height: Measured(10)}}, 1},
		{"no records", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, n := encodeLines(t, Station{Header: testHeader(), Records: tt.records})
			assert.Equal(t, tt.want, n)

			header, err := Split(lines[0], HeaderWidths)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustInt(t, header[7]))

			count, err := Split(lines[len(lines)-1], CountWidths)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustInt(t, count[0]))
			assert.Equal(t, "      0", count[1])
			assert.Equal(t, "      0", count[2])
		})
	}
}

func TestEncode_SentinelRoundTrip(t *testing.T) {
	lines, _ := encodeLines(t, Station{Header: Header{Date: time.Unix(0, 0)}, Records: []Record{{}}})

	header, err := Split(lines[0], HeaderWidths)
	require.NoError(t, err)
	for i := 18; i < len(header); i += 2 {
		assert.Equal(t, "-888888.00000", header[i])
		assert.Equal(t, "      0", header[i+1])
	}

	record, err := Split(lines[1], RecordWidths)
	require.NoError(t, err)
	for i := 0; i < len(record); i += 2 {
		assert.Equal(t, "-888888.00000", record[i], "column %d", i)
	}
}

func TestEncode_HeaderColumns(t *testing.T) {
	h := testHeader()
	h.Sounding = true
	h.Name = strings.Repeat("N", 45)
	lines, _ := encodeLines(t, Station{Header: h, Records: []Record{fullRecord()}})

	cols, err := Split(lines[0], HeaderWidths)
	require.NoError(t, err)

	assert.Equal(t, "             4.70167", cols[0])
	assert.Equal(t, "           -74.15000", cols[1])
	assert.Equal(t, strings.Repeat(" ", 35)+"80222", cols[2])
	assert.Equal(t, strings.Repeat("N", 40), cols[3])
	assert.Equal(t, "FM-15 METAR"+strings.Repeat(" ", 29), cols[4])
	assert.Equal(t, strings.Repeat(" ", 40), cols[5])
	assert.Equal(t, "          2548.00000", cols[6])
	assert.Equal(t, "   -888888", cols[8])
	assert.Equal(t, "   -888888", cols[9])
	assert.Equal(t, "         0", cols[10])
	assert.Equal(t, "   -888888", cols[11])
	assert.Equal(t, "         T", cols[12])
	assert.Equal(t, "         F", cols[13])
	assert.Equal(t, "         F", cols[14])
	assert.Equal(t, "      20170608000000", cols[17])
	assert.Equal(t, " 102800.00000", cols[18])
}

func TestClip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Bogotá", "Bogotá"},
		{"ascii", strings.Repeat("N", 45), strings.Repeat("N", 40)},
		{"multibyte", strings.Repeat("á", 45), strings.Repeat("á", 40)},
		{"boundary", strings.Repeat("N", 39) + "áé", strings.Repeat("N", 39) + "á"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clip(tt.in, 40)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestEncode_Trailer(t *testing.T) {
	lines, _ := encodeLines(t, Station{Header: testHeader(), Records: []Record{fullRecord(), fullRecord(), fullRecord()}})

	want := "-777777.00000      0-777777.00000      0      3.00000      0" + strings.Repeat("-888888.00000      0", 7)
	assert.Equal(t, want, lines[4])
	assert.Equal(t, "     24      0      0", lines[5])
}

func TestEncode_DataRecordOrder(t *testing.T) {
	lines, _ := encodeLines(t, Station{Header: testHeader(), Records: []Record{fullRecord()}})

	cols, err := Split(lines[1], RecordWidths)
	require.NoError(t, err)
	want := []string{
		"  75200.00000", "   2548.00000", "    286.15000", "    281.15000", "      2.57222",
		"    270.00000", "-888888.00000", "-888888.00000", "     71.00000", "    120.00000",
	}
	var got []string
	for i := 0; i < len(cols); i += 2 {
		got = append(got, cols[i])
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record values mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_QCFlags(t *testing.T) {
	rec := Record{Temperature: Field{Value: domain.Some(280), QC: 8}}
	lines, _ := encodeLines(t, Station{Header: testHeader(), Records: []Record{rec}})

	cols, err := Split(lines[1], RecordWidths)
	require.NoError(t, err)
	assert.Equal(t, "      8", cols[5])
}

func mustInt(t *testing.T, s string) int {
	t.Helper()
	p := &parser{}
	v := p.int(s)
	require.NoError(t, p.err)
	return v
}
