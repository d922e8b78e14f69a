package series_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

const sampleCSV = `timestamp,value,category
2024-01-01T00:00:00Z,100.5,
2024-01-01T01:00:00Z,NA,MISSING
2024-01-01T02:00:00Z,,
2024-01-01T03:00:00Z,98,OKAY
`

func TestReadCSV(t *testing.T) {
	t.Parallel()

	s, err := series.ReadCSV(strings.NewReader(sampleCSV), series.DefaultCSVOptions())
	require.NoError(t, err)
	require.Equal(t, 4, s.Len())

	assert.Equal(t, start, s.Samples[0].Timestamp)
	assert.InDelta(t, 100.5, s.Samples[0].Value, 1e-9)
	assert.True(t, s.Samples[1].Missing())
	assert.Equal(t, series.CategoryMissing, s.Samples[1].Category)
	assert.True(t, s.Samples[2].Missing())
	assert.Equal(t, series.CategoryOkay, s.Samples[3].Category)
	require.NoError(t, series.Validate(s))
}

func TestReadCSV_PositionalWithoutTimestamp(t *testing.T) {
	t.Parallel()

	s, err := series.ReadCSV(strings.NewReader("value\n1\n2\n"), series.DefaultCSVOptions())
	require.NoError(t, err)

	assert.True(t, s.Positional())
	assert.Equal(t, []float64{1, 2}, s.Values())
}

func TestReadCSV_Errors(t *testing.T) {
	t.Parallel()

	opts := series.DefaultCSVOptions()

	_, err := series.ReadCSV(strings.NewReader("timestamp,load\n"), opts)
	require.ErrorIs(t, err, series.ErrMissingColumn)

	_, err = series.ReadCSV(strings.NewReader("value\nabc\n"), opts)
	require.ErrorIs(t, err, series.ErrMalformedRow)

	_, err = series.ReadCSV(strings.NewReader("value,category\n1,SPIKE\n"), opts)
	require.ErrorIs(t, err, series.ErrUnknownCategory)
}

func TestWriteCSV_MissingAsEmptyAndExtraColumns(t *testing.T) {
	t.Parallel()

	s := series.FromValues([]float64{1.5, math.NaN()})
	s.Samples[0].Category = series.CategoryOkay
	s.Samples[1].Category = series.CategoryDelta

	var buf bytes.Buffer

	err := series.WriteCSV(&buf, s, series.DefaultCSVOptions(), series.Column{Name: "rolling", Values: []float64{2, math.NaN()}})
	require.NoError(t, err)

	assert.Equal(t, "value,category,rolling\n1.5,OKAY,2\n,DELTA,\n", buf.String())
}

func TestWriteCSV_ColumnMismatch(t *testing.T) {
	t.Parallel()

	err := series.WriteCSV(&bytes.Buffer{}, series.FromValues([]float64{1}), series.DefaultCSVOptions(),
		series.Column{Name: "x", Values: []float64{1, 2}})
	require.ErrorIs(t, err, series.ErrColumnMismatch)
}

func TestFiles_CompressedRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in, err := series.ReadCSV(strings.NewReader(sampleCSV), series.DefaultCSVOptions())
	require.NoError(t, err)

	path := filepath.Join(dir, "demand.csv.lz4")
	require.NoError(t, series.WriteFile(path, in, series.DefaultCSVOptions()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 4)
	assert.Equal(t, []byte{0x04, 0x22, 0x4d, 0x18}, raw[:4], "file should start with the LZ4 frame magic")

	out, err := series.ReadFile(path, series.DefaultCSVOptions())
	require.NoError(t, err)

	assert.Equal(t, "demand", out.Name)
	require.Equal(t, in.Len(), out.Len())
	assert.InDelta(t, 98.0, out.Samples[3].Value, 1e-9)
	assert.True(t, out.Samples[1].Missing())
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "demand", series.BaseName("/data/demand.csv"))
	assert.Equal(t, "demand", series.BaseName("demand.csv.lz4"))
	assert.False(t, series.Compressed("demand.csv"))
	assert.True(t, series.Compressed("demand.csv.LZ4"))
}
