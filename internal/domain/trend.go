package domain

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// EstimateTrend fits value = m*x + c by least squares for every cell of
// the cube, with x = 0, 1, ..., NT-1, and returns the slopes m.
//
// The design matrix A = [x, 1] is shared by every cell, so it is factorized
// once and all cells are solved as columns of a single right-hand side. The
// minimum-norm solution is used: a single-sample series is rank deficient
// and yields a slope of zero. A cell with any NaN sample has an undefined
// slope.
func EstimateTrend(c Cube) Field {
	out := NewField(c.NLat, c.NLon)
	cells := c.NLat * c.NLon
	if cells == 0 {
		return out
	}
	if c.NT == 0 {
		fillNaN(out.Values)
		return out
	}

	a := mat.NewDense(c.NT, 2, nil)
	for t := 0; t < c.NT; t++ {
		a.Set(t, 0, float64(t))
		a.Set(t, 1, 1)
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		fillNaN(out.Values)
		return out
	}
	// Matches the LAPACK gelsd default cutoff: machine epsilon scaled by the
	// larger dimension.
	rank := svd.Rank(eps * float64(max(c.NT, 2)))

	// Cube layout [t][lat][lon] is already a T×cells row-major matrix.
	defined := make([]bool, cells)
	for k := range defined {
		defined[k] = true
	}
	y := make([]float64, len(c.Values))
	for idx, v := range c.Values {
		if math.IsNaN(v) {
			defined[idx%cells] = false
			continue
		}
		y[idx] = v
	}

	var x mat.Dense
	svd.SolveTo(&x, mat.NewDense(c.NT, cells, y), rank)
	for k := 0; k < cells; k++ {
		if !defined[k] {
			out.Values[k] = math.NaN()
			continue
		}
		out.Values[k] = x.At(0, k)
	}
	return out
}

const eps = 0x1p-52

// MaskBelow returns a copy of f in which every value strictly below
// threshold is undefined, and the number of cells it masked.
func MaskBelow(f Field, threshold float64) (Field, int) {
	out := Field{NLat: f.NLat, NLon: f.NLon, Values: make([]float64, len(f.Values))}
	masked := 0
	for k, v := range f.Values {
		if v < threshold {
			out.Values[k] = math.NaN()
			masked++
			continue
		}
		out.Values[k] = v
	}
	return out, masked
}

func fillNaN(xs []float64) {
	for i := range xs {
		xs[i] = math.NaN()
	}
}
