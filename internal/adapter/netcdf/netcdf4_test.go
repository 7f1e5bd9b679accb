//go:build netcdf4

package netcdf

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/precip-trend/internal/domain"
	nc4 "github.com/fhs/go-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeNetCDF4 writes testGrid in the NetCDF-4 format.
func writeNetCDF4(t *testing.T) string {
	t.Helper()
	g := testGrid()
	path := filepath.Join(t.TempDir(), "grid4.nc")

	ds, err := nc4.CreateFile(path, nc4.CLOBBER|nc4.NETCDF4)
	require.NoError(t, err)
	defer func() { require.NoError(t, ds.Close()) }()

	tDim, err := ds.AddDim(g.Vars.Time, uint64(len(g.Time)))
	require.NoError(t, err)
	latDim, err := ds.AddDim(g.Vars.Lat, uint64(len(g.Lat)))
	require.NoError(t, err)
	lonDim, err := ds.AddDim(g.Vars.Lon, uint64(len(g.Lon)))
	require.NoError(t, err)

	lon, err := ds.AddVar(g.Vars.Lon, nc4.DOUBLE, []nc4.Dim{lonDim})
	require.NoError(t, err)
	lat, err := ds.AddVar(g.Vars.Lat, nc4.DOUBLE, []nc4.Dim{latDim})
	require.NoError(t, err)
	tm, err := ds.AddVar(g.Vars.Time, nc4.DOUBLE, []nc4.Dim{tDim})
	require.NoError(t, err)
	require.NoError(t, tm.Attr("units").WriteBytes([]byte(g.TimeUnits)))
	pre, err := ds.AddVar(g.Vars.Precip, nc4.FLOAT, []nc4.Dim{tDim, latDim, lonDim})
	require.NoError(t, err)
	require.NoError(t, pre.Attr("_FillValue").WriteFloat32s([]float32{*g.FillValue}))
	require.NoError(t, ds.EndDef())

	require.NoError(t, lon.WriteFloat64s(g.Lon))
	require.NoError(t, lat.WriteFloat64s(g.Lat))
	require.NoError(t, tm.WriteFloat64s(g.Time))
	require.NoError(t, pre.WriteFloat32s(g.Precip))
	return path
}

func TestNetCDF4_ReadPrecipSlab(t *testing.T) {
	l, err := NewLoader("netcdf4", DefaultVars(), discardLogger())
	require.NoError(t, err)
	ds, err := l.Open(context.Background(), writeNetCDF4(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	axes, err := ds.Axes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{32864.5, 32895, 32924.5}, axes.Time)

	cube, err := ds.ReadPrecip(context.Background(), domain.Slab{
		Time: domain.TimeSpan{Start: 1, End: 2},
		Lat:  domain.IndexRange{Start: 0, End: 1},
		Lon:  domain.IndexRange{Start: 1, End: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cube.NT)
	assert.Equal(t, 2, cube.NLat)
	assert.Equal(t, 2, cube.NLon)
	assert.InDelta(t, 101.0, cube.At(0, 0, 0), 0)
	assert.True(t, math.IsNaN(cube.At(0, 0, 1)))
	assert.InDelta(t, 212.0, cube.At(1, 1, 1), 0)

	_, err = ds.ReadPrecip(context.Background(), domain.Slab{
		Time: domain.TimeSpan{Start: 0, End: 3},
		Lat:  domain.IndexRange{Start: 0, End: 1},
		Lon:  domain.IndexRange{Start: 0, End: 2},
	})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}
