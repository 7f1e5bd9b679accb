package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Summary is the scalar outcome of a trend run.
type Summary struct {
	ID             string      `json:"id"`
	Dataset        string      `json:"dataset"`
	Variable       string      `json:"variable"`
	Box            BoundingBox `json:"bbox"`
	Requested      DateRange   `json:"requested"`
	Resolved       DateRange   `json:"resolved"`
	Samples        int         `json:"samples"`
	Cells          int         `json:"cells"`
	UndefinedCells int         `json:"undefined_cells"`
	MaskedCells    int         `json:"masked_cells"`
	AverageTrend   *float64    `json:"average_trend"` // nil when no cell is defined
	GeneratedAt    time.Time   `json:"generated_at"`
}

// NewSummary stamps a summary with the current clock time and a stable ID
// derived from the dataset, variable, box and resolved window.
func NewSummary(dataset, variable string, p Params, resolved DateRange, samples int, trend Field, masked int, avg float64) Summary {
	s := Summary{
		Dataset:        dataset,
		Variable:       variable,
		Box:            p.Box,
		Requested:      p.Dates,
		Resolved:       resolved,
		Samples:        samples,
		Cells:          trend.NLat * trend.NLon,
		UndefinedCells: trend.Undefined(),
		MaskedCells:    masked,
		GeneratedAt:    clock.Now().UTC(),
	}
	if !math.IsNaN(avg) {
		s.AverageTrend = &avg
	}
	s.ID = summaryID(s)
	return s
}

func summaryID(s Summary) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.6f|%.6f|%.6f|%.6f|%s|%s",
		s.Dataset, s.Variable,
		s.Box.LonMin, s.Box.LonMax, s.Box.LatMin, s.Box.LatMax,
		s.Resolved.Start.Format(time.RFC3339), s.Resolved.End.Format(time.RFC3339))))
	return hex.EncodeToString(h[:8])
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeSummary marshals a summary into an OutputEvent keyed by its ID.
func SerializeSummary(s Summary) (OutputEvent, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize summary: %w", err)
	}
	return OutputEvent{
		Key:   []byte(s.ID),
		Value: data,
		Headers: map[string]string{
			"variable":     s.Variable,
			"generated_at": s.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
