package domain

import (
	"errors"
	"fmt"
	"time"
)

// Params holds the constants of an analysis run.
type Params struct {
	Box              BoundingBox
	Dates            DateRange
	OutlierThreshold float64 // slopes strictly below are undefined
	DisplayMin       float64 // color scale lower bound, render only
	DisplayMax       float64 // color scale upper bound, render only
	Colormap         string
	Title            string
	ColorbarLabel    string
}

// DefaultParams returns the CONUS 1990-2020 analysis.
func DefaultParams() Params {
	return Params{
		Box: CONUS,
		Dates: DateRange{
			Start: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
		OutlierThreshold: -0.9,
		DisplayMin:       -0.07,
		DisplayMax:       0.07,
		Colormap:         "BrBG",
		Title:            "Trend in Precipitation (1990-2020)",
		ColorbarLabel:    "Trend (mm/year)",
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if err := p.Box.Validate(); err != nil {
		return err
	}
	if p.Dates.End.Before(p.Dates.Start) {
		return fmt.Errorf("date range end %s before start %s",
			p.Dates.End.Format(time.DateOnly), p.Dates.Start.Format(time.DateOnly))
	}
	if p.DisplayMin >= p.DisplayMax {
		return fmt.Errorf("display range [%g, %g] is empty", p.DisplayMin, p.DisplayMax)
	}
	if p.Colormap == "" {
		return errors.New("colormap is required")
	}
	return nil
}
