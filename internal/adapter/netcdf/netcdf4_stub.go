//go:build !netcdf4

package netcdf

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/precip-trend/internal/domain"
)

func newNetCDF4Loader(Vars, *slog.Logger) (domain.Loader, error) {
	return nil, errors.New("netcdf4 format requires a build with -tags netcdf4")
}
