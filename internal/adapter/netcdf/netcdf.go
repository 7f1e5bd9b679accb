// Package netcdf reads gridded precipitation datasets from NetCDF files.
//
// The classic backend is pure Go and handles the NetCDF classic and 64-bit
// offset formats used by CRU TS. The netcdf4 backend links libnetcdf and is
// compiled only with the "netcdf4" build tag.
package netcdf

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/precip-trend/internal/domain"
)

// Vars names the variables to read.
type Vars struct {
	Lon    string
	Lat    string
	Time   string
	Precip string
}

// DefaultVars returns the CRU TS variable names.
func DefaultVars() Vars {
	return Vars{Lon: "lon", Lat: "lat", Time: "time", Precip: "pre"}
}

// NewLoader returns a loader for the given format ("classic" or "netcdf4").
func NewLoader(format string, vars Vars, logger *slog.Logger) (domain.Loader, error) {
	switch format {
	case "classic":
		return NewClassicLoader(vars, logger), nil
	case "netcdf4":
		return newNetCDF4Loader(vars, logger)
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
}

// packing holds the CF decoding attributes of a variable.
type packing struct {
	fill    []float64 // raw values meaning "missing"
	scale   float64
	offset  float64
	present bool // scale or offset was set
}

// decode maps a raw stored value to a physical value, NaN for fill values.
func (p packing) decode(raw float64) float64 {
	for _, f := range p.fill {
		if raw == f {
			return math.NaN()
		}
	}
	if p.present {
		return raw*p.scale + p.offset
	}
	return raw
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// checkSlab rejects empty blocks and blocks outside a [nt, nlat, nlon] grid.
func checkSlab(s domain.Slab, nt, nlat, nlon int) error {
	for _, r := range []struct {
		axis  string
		rng   domain.IndexRange
		limit int
	}{
		{"time", s.Time, nt},
		{"lat", s.Lat, nlat},
		{"lon", s.Lon, nlon},
	} {
		if r.rng.Len() == 0 || r.rng.Start < 0 || r.rng.End >= r.limit {
			return unavailable("%s range [%d, %d] outside [0, %d)", r.axis, r.rng.Start, r.rng.End, r.limit)
		}
	}
	return nil
}
