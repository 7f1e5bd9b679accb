//go:build netcdf4

package netcdf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/precip-trend/internal/domain"
	nc4 "github.com/fhs/go-netcdf/netcdf"
)

// NetCDF4Loader opens NetCDF-4/HDF5 files through libnetcdf.
// It implements domain.Loader.
type NetCDF4Loader struct {
	vars   Vars
	logger *slog.Logger
}

func newNetCDF4Loader(vars Vars, logger *slog.Logger) (domain.Loader, error) {
	return &NetCDF4Loader{vars: vars, logger: logger}, nil
}

func (l *NetCDF4Loader) Open(ctx context.Context, path string) (domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := nc4.OpenFile(path, nc4.NOWRITE)
	if err != nil {
		return nil, unavailable("open %s: %v", path, err)
	}
	d := &netcdf4Dataset{ds: ds, vars: l.vars}
	if err := d.validate(); err != nil {
		_ = ds.Close()
		return nil, err
	}
	l.logger.Debug("dataset opened", "path", path, "format", "netcdf4")
	return d, nil
}

type netcdf4Dataset struct {
	ds   nc4.Dataset
	vars Vars

	nt, nlat, nlon int
}

func (d *netcdf4Dataset) validate() error {
	lens := make(map[string][]uint64, 4)
	for _, name := range []string{d.vars.Lon, d.vars.Lat, d.vars.Time, d.vars.Precip} {
		v, err := d.ds.Var(name)
		if err != nil {
			return unavailable("variable %q not found", name)
		}
		l, err := v.LenDims()
		if err != nil {
			return unavailable("variable %q dimensions: %v", name, err)
		}
		lens[name] = l
	}
	for _, name := range []string{d.vars.Lon, d.vars.Lat, d.vars.Time} {
		if len(lens[name]) != 1 {
			return unavailable("variable %q has rank %d, want 1", name, len(lens[name]))
		}
	}
	pre := lens[d.vars.Precip]
	if len(pre) != 3 {
		return unavailable("variable %q has rank %d, want 3 [time, lat, lon]", d.vars.Precip, len(pre))
	}
	d.nt = int(lens[d.vars.Time][0])
	d.nlat = int(lens[d.vars.Lat][0])
	d.nlon = int(lens[d.vars.Lon][0])
	if int(pre[0]) != d.nt || int(pre[1]) != d.nlat || int(pre[2]) != d.nlon {
		return unavailable("variable %q has shape %v, want [%d, %d, %d]", d.vars.Precip, pre, d.nt, d.nlat, d.nlon)
	}
	if _, err := d.textAttr(d.vars.Time, "units"); err != nil {
		return unavailable("variable %q has no units attribute", d.vars.Time)
	}
	return nil
}

func (d *netcdf4Dataset) Axes(ctx context.Context) (domain.Axes, error) {
	if err := ctx.Err(); err != nil {
		return domain.Axes{}, err
	}
	lon, err := d.readSlab(d.vars.Lon, []uint64{0}, []uint64{uint64(d.nlon)})
	if err != nil {
		return domain.Axes{}, err
	}
	lat, err := d.readSlab(d.vars.Lat, []uint64{0}, []uint64{uint64(d.nlat)})
	if err != nil {
		return domain.Axes{}, err
	}
	tm, err := d.readSlab(d.vars.Time, []uint64{0}, []uint64{uint64(d.nt)})
	if err != nil {
		return domain.Axes{}, err
	}
	units, _ := d.textAttr(d.vars.Time, "units")
	calendar, _ := d.textAttr(d.vars.Time, "calendar")
	return domain.Axes{Lon: lon, Lat: lat, Time: tm, TimeUnits: units, Calendar: calendar}, nil
}

func (d *netcdf4Dataset) ReadPrecip(ctx context.Context, slab domain.Slab) (domain.Cube, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cube{}, err
	}
	if err := checkSlab(slab, d.nt, d.nlat, d.nlon); err != nil {
		return domain.Cube{}, err
	}
	start := []uint64{uint64(slab.Time.Start), uint64(slab.Lat.Start), uint64(slab.Lon.Start)}
	count := []uint64{uint64(slab.Time.Len()), uint64(slab.Lat.Len()), uint64(slab.Lon.Len())}
	values, err := d.readSlab(d.vars.Precip, start, count)
	if err != nil {
		return domain.Cube{}, err
	}
	return domain.Cube{NT: slab.Time.Len(), NLat: slab.Lat.Len(), NLon: slab.Lon.Len(), Values: values}, nil
}

func (d *netcdf4Dataset) Close() error {
	return d.ds.Close()
}

// readSlab reads the hyperslab of name given by start and count.
func (d *netcdf4Dataset) readSlab(name string, start, count []uint64) ([]float64, error) {
	v, err := d.ds.Var(name)
	if err != nil {
		return nil, unavailable("variable %q not found", name)
	}
	t, err := v.Type()
	if err != nil {
		return nil, unavailable("variable %q type: %v", name, err)
	}
	n := 1
	for _, c := range count {
		n *= int(c)
	}

	var raw []float64
	switch t {
	case nc4.DOUBLE:
		raw = make([]float64, n)
		err = v.ReadFloat64Slice(raw, start, count)
	case nc4.FLOAT:
		tmp := make([]float32, n)
		err = v.ReadFloat32Slice(tmp, start, count)
		raw = widen(tmp)
	case nc4.INT:
		tmp := make([]int32, n)
		err = v.ReadInt32Slice(tmp, start, count)
		raw = widen(tmp)
	case nc4.SHORT:
		tmp := make([]int16, n)
		err = v.ReadInt16Slice(tmp, start, count)
		raw = widen(tmp)
	default:
		return nil, unavailable("variable %q has unsupported type %v", name, t)
	}
	if err != nil {
		return nil, unavailable("read %s: %v", name, err)
	}

	p := d.packing(v)
	for i, x := range raw {
		raw[i] = p.decode(x)
	}
	return raw, nil
}

func (d *netcdf4Dataset) packing(v nc4.Var) packing {
	p := packing{scale: 1}
	for _, name := range []string{"_FillValue", "missing_value"} {
		if x, ok := numericAttr(v.Attr(name)); ok {
			p.fill = append(p.fill, x)
		}
	}
	if x, ok := numericAttr(v.Attr("scale_factor")); ok {
		p.scale, p.present = x, true
	}
	if x, ok := numericAttr(v.Attr("add_offset")); ok {
		p.offset, p.present = x, true
	}
	return p
}

func numericAttr(a nc4.Attr) (float64, bool) {
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case nc4.DOUBLE:
		buf := make([]float64, 1)
		if a.ReadFloat64s(buf) == nil {
			return buf[0], true
		}
	case nc4.FLOAT:
		buf := make([]float32, 1)
		if a.ReadFloat32s(buf) == nil {
			return float64(buf[0]), true
		}
	case nc4.INT:
		buf := make([]int32, 1)
		if a.ReadInt32s(buf) == nil {
			return float64(buf[0]), true
		}
	case nc4.SHORT:
		buf := make([]int16, 1)
		if a.ReadInt16s(buf) == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

func (d *netcdf4Dataset) textAttr(varName, attr string) (string, error) {
	v, err := d.ds.Var(varName)
	if err != nil {
		return "", err
	}
	a := v.Attr(attr)
	n, err := a.Len()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("attribute %s:%s is empty", varName, attr)
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
