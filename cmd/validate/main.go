// Command validate checks that a gridded precipitation dataset can feed the
// trend analysis: the configured variables exist, the coordinate axes are
// well formed, the time axis decodes, the configured box and window select
// data, and the selected values are plausible.
//
// Variable names and analysis parameters come from the same environment as
// the trend command.
//
// Usage:
//
//	go run ./cmd/validate -dataset cru_ts4.07.1901.2022.pre.dat.nc
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/precip-trend/internal/adapter/netcdf"
	"github.com/couchcryptid/precip-trend/internal/config"
	"github.com/couchcryptid/precip-trend/internal/domain"
)

// snapTolerance is how far a resolved window end may sit from the requested
// date before it is reported.
const snapTolerance = 31 * 24 * time.Hour

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	dataset := flag.String("dataset", cfg.DatasetPath, "path to the NetCDF dataset")
	format := flag.String("format", cfg.DatasetFormat, "dataset format: classic or netcdf4")
	flag.Parse()

	if code := run(cfg, *dataset, *format); code != 0 {
		os.Exit(code)
	}
}

func run(cfg *config.Config, path, format string) int {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vars := netcdf.Vars{Lon: cfg.LonVar, Lat: cfg.LatVar, Time: cfg.TimeVar, Precip: cfg.PrecipVar}

	fmt.Println("=== Precipitation Dataset Validation ===")
	fmt.Printf("Dataset: %s (%s)\n\n", path, format)

	loader, err := netcdf.NewLoader(format, vars, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	ds, err := loader.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open dataset: %v\n", err)
		return 1
	}
	defer ds.Close()

	axes, err := ds.Axes(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read axes: %v\n", err)
		return 1
	}

	params := cfg.Params
	axesPhase := validateAxes(axes)
	timePhase, times := validateTime(axes)
	selPhase, sel := validateSelection(axes, times, params)
	valuesPhase := &phase{name: "Selected precipitation values"}
	var valuesNote string
	if selPhase.passed() {
		valuesPhase, valuesNote = validateValues(ctx, ds, sel)
	} else {
		valuesPhase.errorf("skipped: selection is empty")
	}

	phases := []*phase{axesPhase, timePhase, selPhase, valuesPhase}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Grid: %d lon × %d lat × %d time\n", len(axes.Lon), len(axes.Lat), len(axes.Time))
	if len(times) > 0 {
		fmt.Printf("Time: %s .. %s (%s)\n",
			times[0].Format(time.DateOnly), times[len(times)-1].Format(time.DateOnly), axes.TimeUnits)
	}
	if selPhase.passed() {
		fmt.Printf("Selection: %d lon × %d lat, samples %d .. %d (%s .. %s)\n",
			len(sel.Lon), len(sel.Lat), sel.Time.Start, sel.Time.End,
			times[sel.Time.Start].Format(time.DateOnly), times[sel.Time.End].Format(time.DateOnly))
	}
	if valuesNote != "" {
		fmt.Println(valuesNote)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateAxes(axes domain.Axes) *phase {
	p := &phase{name: "Coordinate axes"}
	for _, ax := range []struct {
		name   string
		values []float64
		lo, hi float64
	}{
		{"longitude", axes.Lon, -180, 360},
		{"latitude", axes.Lat, -90, 90},
	} {
		if len(ax.values) == 0 {
			p.errorf("%s axis is empty", ax.name)
			continue
		}
		for i, v := range ax.values {
			if math.IsNaN(v) || v < ax.lo || v > ax.hi {
				p.errorf("%s[%d] = %g outside [%g, %g]", ax.name, i, v, ax.lo, ax.hi)
				break
			}
		}
		if !monotonic(ax.values) {
			p.errorf("%s axis is not strictly monotonic", ax.name)
		}
	}
	return p
}

func validateTime(axes domain.Axes) (*phase, []time.Time) {
	p := &phase{name: "Time axis decodes"}
	times, err := domain.DecodeTimes(axes.Time, axes.TimeUnits, axes.Calendar)
	if err != nil {
		p.errorf("%v", err)
		return p, nil
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			p.errorf("time[%d] %s not after time[%d] %s",
				i, times[i].Format(time.RFC3339), i-1, times[i-1].Format(time.RFC3339))
			break
		}
	}
	return p, times
}

func validateSelection(axes domain.Axes, times []time.Time, params domain.Params) (*phase, domain.Selection) {
	p := &phase{name: "Bounding box and window select data"}
	var sel domain.Selection
	var err error
	if sel.Lon, sel.Lat, err = domain.SelectBox(axes.Lon, axes.Lat, params.Box); err != nil {
		p.errorf("%v", err)
	}
	if sel.Time, err = domain.SelectDates(times, params.Dates); err != nil {
		p.errorf("%v", err)
		return p, sel
	}
	if d := times[sel.Time.Start].Sub(params.Dates.Start).Abs(); d > snapTolerance {
		p.errorf("window start snapped to %s, %s from %s",
			times[sel.Time.Start].Format(time.DateOnly), d, params.Dates.Start.Format(time.DateOnly))
	}
	if d := times[sel.Time.End].Sub(params.Dates.End).Abs(); d > snapTolerance {
		p.errorf("window end snapped to %s, %s from %s",
			times[sel.Time.End].Format(time.DateOnly), d, params.Dates.End.Format(time.DateOnly))
	}
	return p, sel
}

func validateValues(ctx context.Context, ds domain.Dataset, sel domain.Selection) (*phase, string) {
	p := &phase{name: "Selected precipitation values"}
	block, err := ds.ReadPrecip(ctx, sel.Slab())
	if err != nil {
		p.errorf("%v", err)
		return p, ""
	}
	cube := block.Subset(sel.Local())

	var missing, negative int
	for _, v := range cube.Values {
		switch {
		case math.IsNaN(v):
			missing++
		case v < 0:
			negative++
		}
	}
	if missing == len(cube.Values) {
		p.errorf("every selected value is missing")
	}
	if negative > 0 {
		p.errorf("%d negative precipitation values", negative)
	}
	note := fmt.Sprintf("Values: %d read, %d missing (%.1f%%)",
		len(cube.Values), missing, 100*float64(missing)/float64(max(len(cube.Values), 1)))
	return p, note
}

func monotonic(xs []float64) bool {
	if len(xs) < 2 {
		return true
	}
	up := xs[1] > xs[0]
	for i := 1; i < len(xs); i++ {
		if (up && xs[i] <= xs[i-1]) || (!up && xs[i] >= xs[i-1]) {
			return false
		}
	}
	return true
}
