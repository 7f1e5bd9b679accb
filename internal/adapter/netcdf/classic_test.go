package netcdf

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/precip-trend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fill() *float32 {
	v := float32(9.96921e36)
	return &v
}

// testGrid is 3 time steps over 2 latitudes and 3 longitudes with
// pre[t, i, j] = 100t + 10i + j, and one fill value at t=1, i=0, j=2.
func testGrid() Grid {
	g := Grid{
		Vars:      DefaultVars(),
		Lon:       []float64{-100, -99, -98},
		Lat:       []float64{30, 31},
		Time:      []float64{32864.5, 32895, 32924.5},
		TimeUnits: "days since 1900-1-1",
		Calendar:  "gregorian",
		Units:     "mm/month",
		FillValue: fill(),
	}
	g.Precip = make([]float32, 3*2*3)
	for t := 0; t < 3; t++ {
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				g.Precip[(t*2+i)*3+j] = float32(100*t + 10*i + j)
			}
		}
	}
	g.Precip[(1*2+0)*3+2] = *g.FillValue
	return g
}

func writeGrid(t *testing.T, g Grid) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.nc")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteClassic(f, g))
	require.NoError(t, f.Close())
	return path
}

func openGrid(t *testing.T, path string, vars Vars) domain.Dataset {
	t.Helper()
	ds, err := NewClassicLoader(vars, discardLogger()).Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestClassic_Axes(t *testing.T) {
	ds := openGrid(t, writeGrid(t, testGrid()), DefaultVars())

	axes, err := ds.Axes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{-100, -99, -98}, axes.Lon)
	assert.Equal(t, []float64{30, 31}, axes.Lat)
	assert.Equal(t, []float64{32864.5, 32895, 32924.5}, axes.Time)
	assert.Equal(t, "days since 1900-1-1", axes.TimeUnits)
	assert.Equal(t, "gregorian", axes.Calendar)
}

func fullSlab(span domain.TimeSpan) domain.Slab {
	return domain.Slab{
		Time: span,
		Lat:  domain.IndexRange{Start: 0, End: 1},
		Lon:  domain.IndexRange{Start: 0, End: 2},
	}
}

func TestClassic_ReadPrecipSpanDecodesFill(t *testing.T) {
	ds := openGrid(t, writeGrid(t, testGrid()), DefaultVars())

	cube, err := ds.ReadPrecip(context.Background(), fullSlab(domain.TimeSpan{Start: 1, End: 2}))
	require.NoError(t, err)
	assert.Equal(t, 2, cube.NT)
	assert.Equal(t, 2, cube.NLat)
	assert.Equal(t, 3, cube.NLon)

	assert.InDelta(t, 100.0, cube.At(0, 0, 0), 0)
	assert.True(t, math.IsNaN(cube.At(0, 0, 2)), "fill value decodes to NaN")
	assert.InDelta(t, 211.0, cube.At(1, 1, 1), 0)
}

func TestClassic_ReadPrecipSlab(t *testing.T) {
	ds := openGrid(t, writeGrid(t, testGrid()), DefaultVars())

	cube, err := ds.ReadPrecip(context.Background(), domain.Slab{
		Time: domain.TimeSpan{Start: 0, End: 2},
		Lat:  domain.IndexRange{Start: 1, End: 1},
		Lon:  domain.IndexRange{Start: 1, End: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cube.NT)
	assert.Equal(t, 1, cube.NLat)
	assert.Equal(t, 2, cube.NLon)
	assert.Equal(t, []float64{11, 12, 111, 112, 211, 212}, cube.Values)
}

func TestClassic_ReadPrecipSlabSpansRows(t *testing.T) {
	ds := openGrid(t, writeGrid(t, testGrid()), DefaultVars())

	cube, err := ds.ReadPrecip(context.Background(), domain.Slab{
		Time: domain.TimeSpan{Start: 2, End: 2},
		Lat:  domain.IndexRange{Start: 0, End: 1},
		Lon:  domain.IndexRange{Start: 1, End: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{201, 211}, cube.Values)
}

func TestClassic_ReadPrecipOutOfRange(t *testing.T) {
	ds := openGrid(t, writeGrid(t, testGrid()), DefaultVars())

	tests := []struct {
		name string
		slab domain.Slab
	}{
		{"time past end", fullSlab(domain.TimeSpan{Start: 2, End: 3})},
		{"empty time", fullSlab(domain.TimeSpan{Start: 2, End: 1})},
		{"lon past end", domain.Slab{
			Time: domain.TimeSpan{Start: 0, End: 0},
			Lat:  domain.IndexRange{Start: 0, End: 0},
			Lon:  domain.IndexRange{Start: 0, End: 3},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ds.ReadPrecip(context.Background(), tt.slab)
			assert.ErrorIs(t, err, domain.ErrDataUnavailable)
		})
	}
}

func TestClassic_RecordTimeDimension(t *testing.T) {
	g := testGrid()
	g.Record = true
	ds := openGrid(t, writeGrid(t, g), DefaultVars())

	axes, err := ds.Axes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{32864.5, 32895, 32924.5}, axes.Time)
	assert.Equal(t, []float64{30, 31}, axes.Lat)

	cube, err := ds.ReadPrecip(context.Background(), fullSlab(domain.TimeSpan{Start: 0, End: 2}))
	require.NoError(t, err)
	assert.Equal(t, 3, cube.NT)
	assert.InDelta(t, 0.0, cube.At(0, 0, 0), 0)
	assert.True(t, math.IsNaN(cube.At(1, 0, 2)))
	assert.InDelta(t, 212.0, cube.At(2, 1, 2), 0)

	cube, err = ds.ReadPrecip(context.Background(), domain.Slab{
		Time: domain.TimeSpan{Start: 1, End: 2},
		Lat:  domain.IndexRange{Start: 1, End: 1},
		Lon:  domain.IndexRange{Start: 0, End: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{110, 111, 210, 211}, cube.Values)
}

func TestClassic_RecordTimeDimensionRejectsPastLastRecord(t *testing.T) {
	g := testGrid()
	g.Record = true
	ds := openGrid(t, writeGrid(t, g), DefaultVars())

	_, err := ds.ReadPrecip(context.Background(), fullSlab(domain.TimeSpan{Start: 0, End: 3}))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClassic_CustomVariableNames(t *testing.T) {
	vars := Vars{Lon: "longitude", Lat: "latitude", Time: "t", Precip: "precip"}
	g := testGrid()
	g.Vars = vars

	ds := openGrid(t, writeGrid(t, g), vars)
	axes, err := ds.Axes(context.Background())
	require.NoError(t, err)
	assert.Len(t, axes.Lon, 3)
}

func TestClassic_MissingFile(t *testing.T) {
	_, err := NewClassicLoader(DefaultVars(), discardLogger()).
		Open(context.Background(), filepath.Join(t.TempDir(), "absent.nc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClassic_NotNetCDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.nc")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a netcdf header"), 0o600))

	_, err := NewClassicLoader(DefaultVars(), discardLogger()).Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClassic_MissingVariable(t *testing.T) {
	path := writeGrid(t, testGrid())
	vars := DefaultVars()
	vars.Precip = "tmp"

	_, err := NewClassicLoader(vars, discardLogger()).Open(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), `"tmp"`)
}

func TestClassic_WrongRank(t *testing.T) {
	path := writeGrid(t, testGrid())
	vars := DefaultVars()
	vars.Precip = vars.Lon

	_, err := NewClassicLoader(vars, discardLogger()).Open(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "rank")
}

func TestClassic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClassicLoader(DefaultVars(), discardLogger()).Open(ctx, writeGrid(t, testGrid()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLoader(t *testing.T) {
	l, err := NewLoader("classic", DefaultVars(), discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &ClassicLoader{}, l)

	_, err = NewLoader("grib", DefaultVars(), discardLogger())
	assert.Error(t, err)
}

func TestWriteClassic_RejectsShapeMismatch(t *testing.T) {
	g := testGrid()
	g.Precip = g.Precip[:5]

	f, err := os.Create(filepath.Join(t.TempDir(), "bad.nc"))
	require.NoError(t, err)
	defer f.Close()
	assert.Error(t, WriteClassic(f, g))
}
