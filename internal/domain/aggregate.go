package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LatitudeWeights returns a [lat, lon] field whose every row holds the cosine
// of its latitude. Weights depend on latitude only.
func LatitudeWeights(lat []float64, nlon int) Field {
	w := NewField(len(lat), nlon)
	for i, phi := range lat {
		c := math.Cos(phi * math.Pi / 180)
		for j := 0; j < nlon; j++ {
			w.Set(i, j, c)
		}
	}
	return w
}

// WeightedMean averages the defined cells of f with the matching weights.
// Undefined cells drop out of both the weighted sum and the weight total.
// If no defined cell carries weight, it returns NaN and ErrNoDefinedCells.
func WeightedMean(f, weights Field) (float64, error) {
	if f.NLat != weights.NLat || f.NLon != weights.NLon {
		return math.NaN(), fmt.Errorf("weights shape [%d, %d] does not match field [%d, %d]",
			weights.NLat, weights.NLon, f.NLat, f.NLon)
	}

	vals := make([]float64, 0, len(f.Values))
	ws := make([]float64, 0, len(f.Values))
	for k, v := range f.Values {
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
		ws = append(ws, weights.Values[k])
	}

	total := floats.Sum(ws)
	if len(vals) == 0 || total == 0 {
		return math.NaN(), ErrNoDefinedCells
	}
	return floats.Dot(vals, ws) / total, nil
}
