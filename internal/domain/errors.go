package domain

import "errors"

var (
	// ErrDataUnavailable reports that the dataset cannot be opened or lacks a
	// required variable or attribute.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrEmptySelection reports that the bounding box or date range matched
	// no grid points.
	ErrEmptySelection = errors.New("empty selection")

	// ErrNoDefinedCells reports that every cell of a field is undefined, or
	// that the defined cells carry no weight.
	ErrNoDefinedCells = errors.New("no defined cells")
)
