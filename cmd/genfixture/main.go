// Command genfixture writes a synthetic CRU-style monthly precipitation grid
// as a classic NetCDF file. Every cell carries a seasonal cycle, a linear
// trend and a little noise, and cells east of -70° and south of 35° are
// filled to mimic ocean.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -out data/fixture/pre_conus.nc \
//	  -res 0.5 -start-year 1981 -years 40 -trend 0.02
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/precip-trend/internal/adapter/netcdf"
	"github.com/couchcryptid/precip-trend/internal/domain"
)

const fillValue = float32(9.96921e36)

var epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the NetCDF fixture")
	res := flag.Float64("res", 0.5, "grid resolution in degrees")
	startYear := flag.Int("start-year", 1981, "first year of monthly samples")
	years := flag.Int("years", 40, "number of years of monthly samples")
	trend := flag.Float64("trend", 0.02, "linear trend in mm/month per monthly step")
	seed := flag.Uint64("seed", 1, "noise seed")
	record := flag.Bool("record", true, "store time as the unlimited (record) dimension")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *res <= 0 || *years <= 0 {
		return fmt.Errorf("-res and -years must be positive")
	}

	box := domain.CONUS
	g := netcdf.Grid{
		Vars:      netcdf.DefaultVars(),
		Lon:       centers(box.LonMin, box.LonMax, *res),
		Lat:       centers(box.LatMin, box.LatMax, *res),
		TimeUnits: "days since 1900-1-1",
		Calendar:  "gregorian",
		Units:     "mm/month",
		Record:    *record,
	}
	fill := fillValue
	g.FillValue = &fill

	nt := *years * 12
	g.Time = make([]float64, nt)
	for t := range g.Time {
		mid := time.Date(*startYear+t/12, time.Month(t%12+1), 16, 0, 0, 0, 0, time.UTC)
		g.Time[t] = mid.Sub(epoch).Hours() / 24
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	nlat, nlon := len(g.Lat), len(g.Lon)
	g.Precip = make([]float32, nt*nlat*nlon)
	filled := 0
	for t := 0; t < nt; t++ {
		season := math.Sin(2 * math.Pi * float64(t%12) / 12)
		for i, lat := range g.Lat {
			for j, lon := range g.Lon {
				k := (t*nlat+i)*nlon + j
				if lon > -70 && lat < 35 {
					g.Precip[k] = fill
					filled++
					continue
				}
				base := 40 + 0.8*(lon-box.LonMin) + 20*season
				v := base + *trend*float64(t) + rng.NormFloat64()*2
				g.Precip[k] = float32(math.Max(v, 0))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := netcdf.WriteClassic(f, g); err != nil {
		f.Close()
		return fmt.Errorf("write fixture: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("wrote %s: %d×%d×%d (time×lat×lon), %d filled values", *out, nt, nlat, nlon, filled)
	return nil
}

// centers returns the cell centers of a regular grid of step res aligned to
// multiples of res, covering [lo, hi].
func centers(lo, hi, res float64) []float64 {
	var out []float64
	for c := math.Floor(lo/res)*res + res/2; c <= hi; c += res {
		if c >= lo {
			out = append(out, c)
		}
	}
	return out
}
