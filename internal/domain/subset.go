package domain

import (
	"fmt"
	"math"
	"time"
)

// SelectBox returns the indices of the longitudes and latitudes that lie in
// the closed intervals of box, in source order.
func SelectBox(lon, lat []float64, box BoundingBox) (lonIdx, latIdx []int, err error) {
	lonIdx = within(lon, box.LonMin, box.LonMax)
	latIdx = within(lat, box.LatMin, box.LatMax)
	if len(lonIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: no longitude in [%g, %g]", ErrEmptySelection, box.LonMin, box.LonMax)
	}
	if len(latIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: no latitude in [%g, %g]", ErrEmptySelection, box.LatMin, box.LatMax)
	}
	return lonIdx, latIdx, nil
}

func within(xs []float64, lo, hi float64) []int {
	var idx []int
	for i, x := range xs {
		if x >= lo && x <= hi {
			idx = append(idx, i)
		}
	}
	return idx
}

// SelectDates snaps each end of r to its nearest sample in times and
// returns the inclusive span between them. Ties resolve to the earliest
// index. The span is not an exact boundary test: it may include one sample
// outside r, or miss one inside it.
func SelectDates(times []time.Time, r DateRange) (TimeSpan, error) {
	if len(times) == 0 {
		return TimeSpan{}, fmt.Errorf("%w: time axis is empty", ErrEmptySelection)
	}
	span := TimeSpan{Start: nearest(times, r.Start), End: nearest(times, r.End)}
	if span.End < span.Start {
		return TimeSpan{}, fmt.Errorf("%w: resolved time span [%d, %d] is inverted", ErrEmptySelection, span.Start, span.End)
	}
	return span, nil
}

func nearest(times []time.Time, target time.Time) int {
	best, bestDist := 0, math.Inf(1)
	for i, t := range times {
		if d := absSeconds(t, target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// absSeconds avoids time.Duration, which overflows beyond ~292 years.
func absSeconds(a, b time.Time) float64 {
	return math.Abs(float64(a.Unix()-b.Unix()) + float64(a.Nanosecond()-b.Nanosecond())/1e9)
}
