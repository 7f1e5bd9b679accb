package domain

import (
	"fmt"
	"math"
	"time"
)

// BoundingBox is a rectangular lon/lat region in degrees.
type BoundingBox struct {
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
}

// CONUS spans the contiguous United States.
var CONUS = BoundingBox{
	LonMin: -124.736342,
	LonMax: -66.945392,
	LatMin: 24.521208,
	LatMax: 49.382808,
}

// Validate rejects inverted or non-finite boxes.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.LonMin, b.LonMax, b.LatMin, b.LatMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounding box has non-finite bound: %+v", b)
		}
	}
	if b.LonMin > b.LonMax {
		return fmt.Errorf("bounding box lon_min %g > lon_max %g", b.LonMin, b.LonMax)
	}
	if b.LatMin > b.LatMax {
		return fmt.Errorf("bounding box lat_min %g > lat_max %g", b.LatMin, b.LatMax)
	}
	return nil
}

// DateRange is an inclusive calendar window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Axes holds the coordinate variables of a rectilinear grid.
type Axes struct {
	Lon       []float64
	Lat       []float64
	Time      []float64 // raw offsets, see TimeUnits
	TimeUnits string    // CF units, e.g. "days since 1900-1-1"
	Calendar  string    // CF calendar, empty means standard
}

// IndexRange is an inclusive range of indices along one axis.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices in the range.
func (r IndexRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// TimeSpan is an inclusive range of time indices.
type TimeSpan = IndexRange

// Hull returns the smallest range containing every index in idx.
func Hull(idx []int) IndexRange {
	if len(idx) == 0 {
		return IndexRange{Start: 0, End: -1}
	}
	r := IndexRange{Start: idx[0], End: idx[0]}
	for _, i := range idx[1:] {
		r.Start = min(r.Start, i)
		r.End = max(r.End, i)
	}
	return r
}

// Slab is a rectangular block of a [time, lat, lon] variable.
type Slab struct {
	Time TimeSpan
	Lat  IndexRange
	Lon  IndexRange
}

// Selection is the result of subsetting a grid.
type Selection struct {
	Lon  []int
	Lat  []int
	Time TimeSpan
}

// Slab returns the block of the source grid that covers s. On monotonic
// axes the box indices are contiguous and the slab holds exactly the
// selected cells.
func (s Selection) Slab() Slab {
	return Slab{Time: s.Time, Lat: Hull(s.Lat), Lon: Hull(s.Lon)}
}

// Local re-bases the selected indices onto a cube read over s.Slab().
func (s Selection) Local() (lat, lon []int) {
	slab := s.Slab()
	return shift(s.Lat, slab.Lat.Start), shift(s.Lon, slab.Lon.Start)
}

func shift(idx []int, by int) []int {
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = i - by
	}
	return out
}

// Cube is a dense [time, lat, lon] array in row-major order.
type Cube struct {
	NT, NLat, NLon int
	Values         []float64
}

// NewCube allocates a zeroed cube.
func NewCube(nt, nlat, nlon int) Cube {
	return Cube{NT: nt, NLat: nlat, NLon: nlon, Values: make([]float64, nt*nlat*nlon)}
}

// At returns the value at time t, latitude index i and longitude index j.
func (c Cube) At(t, i, j int) float64 {
	return c.Values[(t*c.NLat+i)*c.NLon+j]
}

// Set stores v at (t, i, j).
func (c Cube) Set(t, i, j int, v float64) {
	c.Values[(t*c.NLat+i)*c.NLon+j] = v
}

// Subset gathers the given latitude and longitude indices across every
// time step into a new cube.
func (c Cube) Subset(lat, lon []int) Cube {
	out := NewCube(c.NT, len(lat), len(lon))
	for t := 0; t < c.NT; t++ {
		for oi, i := range lat {
			for oj, j := range lon {
				out.Set(t, oi, oj, c.At(t, i, j))
			}
		}
	}
	return out
}

// Field is a dense [lat, lon] array in row-major order. NaN marks an
// undefined cell.
type Field struct {
	NLat, NLon int
	Values     []float64
}

// NewField allocates a zeroed field.
func NewField(nlat, nlon int) Field {
	return Field{NLat: nlat, NLon: nlon, Values: make([]float64, nlat*nlon)}
}

// At returns the value at latitude index i and longitude index j.
func (f Field) At(i, j int) float64 {
	return f.Values[i*f.NLon+j]
}

// Set stores v at (i, j).
func (f Field) Set(i, j int, v float64) {
	f.Values[i*f.NLon+j] = v
}

// Undefined counts NaN cells.
func (f Field) Undefined() int {
	n := 0
	for _, v := range f.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Pick returns the values of xs at the given indices.
func Pick(xs []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = xs[i]
	}
	return out
}

// TrendMap is a trend field with its coordinates, ready to be drawn.
type TrendMap struct {
	Lon    []float64
	Lat    []float64
	Trend  Field
	Params Params
}
