package netcdf

import (
	"errors"
	"fmt"
	"os"

	"github.com/ctessum/cdf"
)

// Grid is an in-memory dataset that can be written as a classic NetCDF file.
type Grid struct {
	Vars      Vars
	Lon       []float64
	Lat       []float64
	Time      []float64
	TimeUnits string
	Calendar  string
	Precip    []float32 // [time, lat, lon], row-major
	Units     string    // precipitation units
	FillValue *float32

	// Record makes time the unlimited dimension, the layout of CRU TS files.
	Record bool
}

// WriteClassic writes g to f in the NetCDF classic format.
func WriteClassic(f *os.File, g Grid) error {
	nt, nlat, nlon := len(g.Time), len(g.Lat), len(g.Lon)
	if len(g.Precip) != nt*nlat*nlon {
		return fmt.Errorf("precip has %d values, want %d×%d×%d", len(g.Precip), nt, nlat, nlon)
	}
	if g.TimeUnits == "" {
		return errors.New("time units are required")
	}

	timeLen := nt
	if g.Record {
		timeLen = 0
	}
	h := cdf.NewHeader(
		[]string{g.Vars.Time, g.Vars.Lat, g.Vars.Lon},
		[]int{timeLen, nlat, nlon})
	h.AddAttribute("", "title", "precip-trend grid")
	h.AddAttribute("", "Conventions", "CF-1.4")

	h.AddVariable(g.Vars.Lon, []string{g.Vars.Lon}, []float32{0})
	h.AddAttribute(g.Vars.Lon, "units", "degrees_east")
	h.AddVariable(g.Vars.Lat, []string{g.Vars.Lat}, []float32{0})
	h.AddAttribute(g.Vars.Lat, "units", "degrees_north")
	h.AddVariable(g.Vars.Time, []string{g.Vars.Time}, []float64{0})
	h.AddAttribute(g.Vars.Time, "units", g.TimeUnits)
	if g.Calendar != "" {
		h.AddAttribute(g.Vars.Time, "calendar", g.Calendar)
	}
	h.AddVariable(g.Vars.Precip, []string{g.Vars.Time, g.Vars.Lat, g.Vars.Lon}, []float32{0})
	if g.Units != "" {
		h.AddAttribute(g.Vars.Precip, "units", g.Units)
	}
	if g.FillValue != nil {
		h.AddAttribute(g.Vars.Precip, "_FillValue", []float32{*g.FillValue})
	}
	h.Define()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("create netcdf header: %w", err)
	}

	writes := []struct {
		name string
		data any
	}{
		{g.Vars.Lon, narrow(g.Lon)},
		{g.Vars.Lat, narrow(g.Lat)},
		{g.Vars.Time, g.Time},
		{g.Vars.Precip, g.Precip},
	}
	for _, w := range writes {
		var begin, end []int
		if !nc.Header.IsRecordVariable(w.name) {
			dims := nc.Header.Lengths(w.name)
			begin = make([]int, len(dims))
			end = make([]int, len(dims))
			for i, n := range dims {
				end[i] = n - 1
			}
		}
		if _, err := nc.Writer(w.name, begin, end).Write(w.data); err != nil {
			return fmt.Errorf("write variable %s: %w", w.name, err)
		}
	}
	return cdf.UpdateNumRecs(f)
}

func narrow(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(x)
	}
	return out
}
