package domain

import "context"

// Loader opens gridded datasets.
type Loader interface {
	// Open acquires a dataset handle. Callers must Close it on every path.
	Open(ctx context.Context, source string) (Dataset, error)
}

// Dataset is an open gridded dataset.
type Dataset interface {
	// Axes reads the coordinate variables and the time metadata.
	Axes(ctx context.Context) (Axes, error)

	// ReadPrecip reads only the given block of the precipitation variable.
	// The cube has shape [slab.Time.Len(), slab.Lat.Len(), slab.Lon.Len()].
	ReadPrecip(ctx context.Context, slab Slab) (Cube, error)

	Close() error
}
