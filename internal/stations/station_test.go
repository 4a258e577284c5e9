package stations

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const skbo = "SKBO;80;222;Bogota/Eldorado;;Colombia;3;04-42N;074-09W;04-42N;074-09W;2548;2548;P"

func TestParseDMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"081-45-24W", -(81 + 45.0/60 + 24.0/3600)},
		{"04-42N", 4.7},
		{"33-56S", -(33 + 56.0/60)},
		{"151-10-37E", 151 + 10.0/60 + 37.0/3600},
		{"04-42n", 4.7},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDMS(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDMS_Invalid(t *testing.T) {
	for _, in := range []string{"", "N", "04N", "04-42X", "aa-bbN", "1-2-3-4E"} {
		_, err := ParseDMS(in)
		assert.Error(t, err, in)
	}
}

func TestParseLine(t *testing.T) {
	s, err := ParseLine(skbo)
	require.NoError(t, err)

	assert.Equal(t, "SKBO", s.ICAO)
	assert.Equal(t, 80222, s.ID)
	assert.Equal(t, "Bogota/Eldorado/Colombia", s.Name())
	assert.InDelta(t, 4.7, s.Latitude, 1e-9)
	assert.InDelta(t, -74.15, s.Longitude, 1e-9)
	assert.Equal(t, 2548.0, s.Elevation)
}

func TestParseLine_DefaultID(t *testing.T) {
	s, err := ParseLine("SKXX;--;---;Somewhere;;Colombia;3;04-42N;074-09W;;;100;;")
	require.NoError(t, err)
	assert.Equal(t, DefaultID, s.ID)
}

func TestParseLine_TooFewFields(t *testing.T) {
	_, err := ParseLine("SKBO;80;222")
	assert.Error(t, err)
}

func TestStation_NameTruncated(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{"ascii", "A Very Long Airport Name International", "A Very Long Airport Name International/C"},
		{"multibyte", "Aeropuerto Internacional de Bogotá Eldorado", "Aeropuerto Internacional de Bogotá Eldor"},
		{"short", "Bogotá", "Bogotá/Colombia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Station{Location: tt.location, Country: "Colombia"}.Name()
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), 40)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeDirectory(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nsd_cccc.txt")
	var data []byte
	for _, l := range lines {
		data = append(data, l+"\n"...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFileDirectory_Lookup(t *testing.T) {
	path := writeDirectory(t,
		"SKCL;80;259;Cali/Alfonso Bonilla Aragon;;Colombia;3;03-33N;076-23W;;;969;;",
		skbo,
	)
	d := NewFileDirectory(path, slog.Default())

	s, err := d.Lookup(context.Background(), "SKBO")
	require.NoError(t, err)
	assert.Equal(t, 80222, s.ID)

	_, err = d.Lookup(context.Background(), "SKRG")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.Lookup(context.Background(), "SKB")
	assert.ErrorIs(t, err, ErrNotFound, "codes match the whole first field")
}

func TestFileDirectory_MissingFile(t *testing.T) {
	d := NewFileDirectory(filepath.Join(t.TempDir(), "missing.txt"), slog.Default())
	_, err := d.Lookup(context.Background(), "SKBO")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type countingDirectory struct {
	calls int
	err   error
}

func (c *countingDirectory) Lookup(_ context.Context, icao string) (Station, error) {
	c.calls++
	if c.err != nil {
		return Station{}, c.err
	}
	return Station{ICAO: icao, ID: 80222}, nil
}

func TestCachedDirectory_CacheHit(t *testing.T) {
	inner := &countingDirectory{}
	cached := NewCachedDirectory(inner, 10, time.Hour)

	for range 3 {
		s, err := cached.Lookup(context.Background(), "SKBO")
		require.NoError(t, err)
		assert.Equal(t, 80222, s.ID)
	}
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedDirectory_ErrorsNotCached(t *testing.T) {
	inner := &countingDirectory{err: errors.New("boom")}
	cached := NewCachedDirectory(inner, 10, time.Hour)

	_, err := cached.Lookup(context.Background(), "SKBO")
	require.Error(t, err)
	_, err = cached.Lookup(context.Background(), "SKBO")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedDirectory_Eviction(t *testing.T) {
	inner := &countingDirectory{}
	cached := NewCachedDirectory(inner, 1, time.Hour)

	ctx := context.Background()
	_, _ = cached.Lookup(ctx, "SKBO")
	_, _ = cached.Lookup(ctx, "SKCL")
	_, _ = cached.Lookup(ctx, "SKBO")
	assert.Equal(t, 3, inner.calls)
}
