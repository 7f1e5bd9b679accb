// Package domain models gridded precipitation data and the trend analysis
// run over it.
//
// # Data Source
//
// The reference input is the Climatic Research Unit gridded time series
// (CRU TS) monthly precipitation product, distributed as NetCDF files at
// https://crudata.uea.ac.uk/cru/data/hrg/. Any dataset following the same
// CF layout works: one-dimensional "lon", "lat" and "time" coordinate
// variables and a three-dimensional precipitation variable ("pre").
//
// # CF Conventions
//
// Coordinates:
//
//	lon  degrees east,  ascending or descending
//	lat  degrees north, ascending or descending
//
// Time:
//
//	Raw numeric offsets with a "units" attribute of the form
//	"<unit> since <epoch>", e.g. "days since 1900-1-1". The optional
//	"calendar" attribute must name a Gregorian calendar. See [DecodeTimes].
//
// Precipitation:
//
//	Indexed [time, lat, lon], millimetres per month for CRU TS. Cells equal
//	to the variable's _FillValue or missing_value are decoded as NaN.
//
// # Analysis
//
// Subsetting keeps every grid point whose coordinate lies in the closed
// bounding box interval. The time window is resolved by snapping each
// requested endpoint to the nearest sample, so the resolved window may hold
// one sample more or fewer than the calendar range suggests.
//
// The trend of a cell is the ordinary least squares slope of its values
// against the sample index 0..T-1, not against elapsed calendar time.
// Slopes below the outlier threshold (-0.9 by default) are undefined and
// are excluded from the latitude-weighted spatial mean.
//
// Undefined values are represented as NaN throughout; zero is a valid trend.
package domain
