package netcdf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/couchcryptid/precip-trend/internal/domain"
	"github.com/ctessum/cdf"
)

// ClassicLoader opens NetCDF classic files.
// It implements domain.Loader.
type ClassicLoader struct {
	vars   Vars
	logger *slog.Logger
}

// NewClassicLoader creates a loader for the given variable names.
func NewClassicLoader(vars Vars, logger *slog.Logger) *ClassicLoader {
	return &ClassicLoader{vars: vars, logger: logger}
}

// Open opens path and checks that every configured variable is present with
// the expected rank. The file is closed again if the check fails.
func (l *ClassicLoader) Open(ctx context.Context, path string) (domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, unavailable("open %s: %v", path, err)
	}
	nc, err := cdf.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, unavailable("read header of %s: %v", path, err)
	}

	ds := &classicDataset{file: f, nc: nc, vars: l.vars}
	if err := ds.validate(); err != nil {
		_ = f.Close()
		return nil, err
	}
	l.logger.Debug("dataset opened", "path", path, "format", "classic", "variables", nc.Header.Variables())
	return ds, nil
}

type classicDataset struct {
	file *os.File
	nc   *cdf.File
	vars Vars

	nt, nlat, nlon int
}

func (d *classicDataset) validate() error {
	present := d.nc.Header.Variables()
	for _, name := range []string{d.vars.Lon, d.vars.Lat, d.vars.Time, d.vars.Precip} {
		if !slices.Contains(present, name) {
			return unavailable("variable %q not found", name)
		}
	}
	for _, name := range []string{d.vars.Lon, d.vars.Lat, d.vars.Time} {
		if n := len(d.nc.Header.Lengths(name)); n != 1 {
			return unavailable("variable %q has rank %d, want 1", name, n)
		}
	}
	if _, ok := d.nc.Header.GetAttribute(d.vars.Time, "units").(string); !ok {
		return unavailable("variable %q has no units attribute", d.vars.Time)
	}

	dims := d.nc.Header.Lengths(d.vars.Precip)
	if len(dims) != 3 {
		return unavailable("variable %q has rank %d, want 3 [time, lat, lon]", d.vars.Precip, len(dims))
	}

	// The header records 0 for the unlimited dimension. The record count
	// follows from the file size.
	fi, err := d.file.Stat()
	if err != nil {
		return unavailable("stat dataset: %v", err)
	}
	records := int(d.nc.Header.NumRecs(fi.Size()))
	outer := func(name string) int {
		if d.nc.Header.IsRecordVariable(name) {
			return records
		}
		return d.nc.Header.Lengths(name)[0]
	}

	d.nt = outer(d.vars.Time)
	d.nlat = d.nc.Header.Lengths(d.vars.Lat)[0]
	d.nlon = d.nc.Header.Lengths(d.vars.Lon)[0]
	if nt := outer(d.vars.Precip); nt != d.nt || dims[1] != d.nlat || dims[2] != d.nlon {
		return unavailable("variable %q has shape [%d, %d, %d], want [%d, %d, %d]",
			d.vars.Precip, nt, dims[1], dims[2], d.nt, d.nlat, d.nlon)
	}
	return nil
}

func (d *classicDataset) Axes(ctx context.Context) (domain.Axes, error) {
	if err := ctx.Err(); err != nil {
		return domain.Axes{}, err
	}
	lon, err := d.readAll(d.vars.Lon, d.nlon)
	if err != nil {
		return domain.Axes{}, err
	}
	lat, err := d.readAll(d.vars.Lat, d.nlat)
	if err != nil {
		return domain.Axes{}, err
	}
	tm, err := d.readAll(d.vars.Time, d.nt)
	if err != nil {
		return domain.Axes{}, err
	}
	units, _ := d.nc.Header.GetAttribute(d.vars.Time, "units").(string)
	calendar, _ := d.nc.Header.GetAttribute(d.vars.Time, "calendar").(string)

	return domain.Axes{Lon: lon, Lat: lat, Time: tm, TimeUnits: units, Calendar: calendar}, nil
}

// ReadPrecip reads one contiguous run per time step, from the first to the
// last cell of the slab, and keeps the slab's columns of each row.
func (d *classicDataset) ReadPrecip(ctx context.Context, slab domain.Slab) (domain.Cube, error) {
	if err := checkSlab(slab, d.nt, d.nlat, d.nlon); err != nil {
		return domain.Cube{}, err
	}
	p := d.packing(d.vars.Precip)
	cube := domain.NewCube(slab.Time.Len(), slab.Lat.Len(), slab.Lon.Len())
	run := (slab.Lat.Len()-1)*d.nlon + slab.Lon.Len()

	for t := 0; t < cube.NT; t++ {
		if err := ctx.Err(); err != nil {
			return domain.Cube{}, err
		}
		k := slab.Time.Start + t
		begin := []int{k, slab.Lat.Start, slab.Lon.Start}
		end := []int{k, slab.Lat.End, slab.Lon.End}
		values, err := d.read(d.vars.Precip, begin, end, run, p)
		if err != nil {
			return domain.Cube{}, err
		}
		for i := 0; i < cube.NLat; i++ {
			row := values[i*d.nlon : i*d.nlon+cube.NLon]
			for j, v := range row {
				cube.Set(t, i, j, v)
			}
		}
	}
	return cube, nil
}

func (d *classicDataset) Close() error {
	return d.file.Close()
}

// readAll reads the first n values of a one-dimensional variable.
func (d *classicDataset) readAll(name string, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	return d.read(name, []int{0}, []int{n - 1}, n, d.packing(name))
}

// read reads n values between the inclusive corners begin and end.
func (d *classicDataset) read(name string, begin, end []int, n int, p packing) ([]float64, error) {
	r := d.nc.Reader(name, begin, end)
	buf := r.Zero(n)
	got, err := r.Read(buf)
	if err != nil && !(errors.Is(err, io.EOF) && got == n) {
		return nil, unavailable("read %s: %v", name, err)
	}
	if got != n {
		return nil, unavailable("read %s: got %d values, want %d", name, got, n)
	}

	raw, err := toFloat64s(buf)
	if err != nil {
		return nil, unavailable("read %s: %v", name, err)
	}
	for i, v := range raw {
		raw[i] = p.decode(v)
	}
	return raw, nil
}

func (d *classicDataset) packing(name string) packing {
	var p packing
	for _, attr := range []string{"_FillValue", "missing_value"} {
		if vals, ok := attrFloats(d.nc.Header.GetAttribute(name, attr)); ok {
			p.fill = append(p.fill, vals...)
		}
	}
	p.scale = 1
	if vals, ok := attrFloats(d.nc.Header.GetAttribute(name, "scale_factor")); ok && len(vals) > 0 {
		p.scale, p.present = vals[0], true
	}
	if vals, ok := attrFloats(d.nc.Header.GetAttribute(name, "add_offset")); ok && len(vals) > 0 {
		p.offset, p.present = vals[0], true
	}
	return p
}

// toFloat64s widens the numeric slice types produced by cdf readers.
func toFloat64s(buf any) ([]float64, error) {
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		return widen(v), nil
	case []int32:
		return widen(v), nil
	case []int16:
		return widen(v), nil
	case []int8:
		return widen(v), nil
	default:
		return nil, errors.New("unsupported variable type")
	}
}

func attrFloats(a any) ([]float64, bool) {
	if a == nil {
		return nil, false
	}
	v, err := toFloat64s(a)
	return v, err == nil
}

func widen[T float32 | int32 | int16 | int8](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
