package obs

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/littler"
	"github.com/couchcryptid/wrf-obsprep/internal/stations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRadiometer(t *testing.T) {
	f, err := os.Open("testdata/radiom/SKBO_lv2_20170608.csv")
	require.NoError(t, err)
	defer f.Close()

	profiles, err := ParseRadiometer(f)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	p := profiles[0]
	assert.Equal(t, time.Date(2017, 6, 8, 0, 0, 10, 0, time.UTC), p.Date)
	assert.Equal(t, []float64{0, 0.1, 0.25}, p.Heights)
	assert.Equal(t, 285.30, p.GroundTemperature.V)
	assert.Equal(t, 752.10, p.SurfacePressure.V)
	assert.Equal(t, 0.0, p.Rain.V)
	require.Len(t, p.Temperature, 3)
	assert.Equal(t, 282.5, p.Temperature[2].V)
	require.Len(t, p.RelativeHumidity, 3)
	assert.Equal(t, 80.0, p.RelativeHumidity[2].V)

	second := profiles[1]
	assert.Equal(t, 0.5, second.Rain.V)
	assert.Len(t, second.Temperature, 2)
}

func TestParseRadiometer_BadDate(t *testing.T) {
	_, err := ParseRadiometer(strings.NewReader("1,yesterday,401,Zenith,1,2,0,0\n"))
	assert.Error(t, err)
}

func TestRadiometerStation(t *testing.T) {
	f, err := os.Open("testdata/radiom/SKBO_lv2_20170608.csv")
	require.NoError(t, err)
	defer f.Close()
	profiles, err := ParseRadiometer(f)
	require.NoError(t, err)

	site := stations.Station{ICAO: "SKBO", ID: 80222, Location: "Bogota/Eldorado", Latitude: 4.7, Longitude: -74.15, Elevation: 2548}
	st := RadiometerStation(site, profiles[0])

	assert.Equal(t, "80222", st.Header.ID)
	assert.Equal(t, littler.PlatformTEMP, st.Header.Platform)
	assert.False(t, st.Header.Sounding)
	assert.InDelta(t, 75210, st.Header.Surface.SurfacePressure.Value.V, 1e-6)

	require.Len(t, st.Records, 3)
	assert.Equal(t, 2548.0, st.Records[0].Height.Value.V)
	assert.InDelta(t, 2648.0, st.Records[1].Height.Value.V, 1e-9)
	assert.InDelta(t, 2798.0, st.Records[2].Height.Value.V, 1e-9)

	var sb strings.Builder
	n, err := littler.Encode(&sb, st)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	short := RadiometerStation(site, profiles[1])
	assert.Len(t, short.Records, 2, "levels stop at the shortest column")
}

func TestRadiometer_Stations(t *testing.T) {
	r := NewRadiometer("testdata/radiom", testDirectory(), slog.Default())
	sts, err := r.Stations(context.Background())
	require.NoError(t, err)
	require.Len(t, sts, 2)
	assert.Equal(t, "Bogota/Eldorado", sts[0].Header.Name)
}
