package littler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObsFile_WritesSectionsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "littler", "obs.2017060800")
	f, err := CreateObsFile(path)
	require.NoError(t, err)

	n, err := f.Write(Station{Header: testHeader(), Records: []Record{fullRecord()}})
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	require.NoError(t, f.EndSection())

	h := testHeader()
	h.ID = "80398"
	_, err = f.Write(Station{Header: h, Records: []Record{{Height: Measured(10)}}})
	require.NoError(t, err)
	require.NoError(t, f.EndSection())
	require.NoError(t, f.Close())

	assert.Equal(t, 2, f.Stations())
	assert.Equal(t, 9, f.Fields())
	assert.Equal(t, path, f.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "      0      0\n\n"))

	raw, err := ReadRaw(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "80222", strings.TrimSpace(raw[0].Header[2]))
	assert.Equal(t, "80398", strings.TrimSpace(raw[1].Header[2]))
}

func TestRadarFile_EmptyRunStillFinalized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ob.radar")

	f, err := CreateRadarFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL NUMBER =  0\n#-----------------#\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging files are removed")
}

func TestRadarFile_CountsWrittenStations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ob.radar")
	f, err := CreateRadarFile(path)
	require.NoError(t, err)

	n, err := f.Write(testRadarStation())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	st := testRadarStation()
	st.Name = "BAR"
	_, err = f.Write(st)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Stations())
	require.NoError(t, f.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	doc, err := ReadRadar(in)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Total)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "COR", doc.Blocks[0].Station.Name)
	assert.Equal(t, "BAR", doc.Blocks[1].Station.Name)
	for _, b := range doc.Blocks {
		assert.NoError(t, b.Check())
	}
}
