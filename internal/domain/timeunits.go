package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// unitSeconds maps CF time unit names to their length in seconds.
var unitSeconds = map[string]float64{
	"day": 86400, "days": 86400, "d": 86400,
	"hour": 3600, "hours": 3600, "hr": 3600, "hrs": 3600, "h": 3600,
	"minute": 60, "minutes": 60, "min": 60, "mins": 60,
	"second": 1, "seconds": 1, "sec": 1, "secs": 1, "s": 1,
}

// gregorianCalendars lists the CF calendars decoded on the proleptic
// Gregorian calendar.
var gregorianCalendars = map[string]bool{
	"":                    true,
	"standard":            true,
	"gregorian":           true,
	"proleptic_gregorian": true,
}

// DecodeTimes converts raw CF time offsets to UTC instants.
// units has the form "<unit> since <epoch>", e.g. "days since 1900-1-1" or
// "hours since 1800-01-01 00:00:00".
func DecodeTimes(values []float64, units, calendar string) ([]time.Time, error) {
	if !gregorianCalendars[strings.ToLower(strings.TrimSpace(calendar))] {
		return nil, fmt.Errorf("%w: unsupported calendar %q", ErrDataUnavailable, calendar)
	}
	step, epoch, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}

	base := epoch.Unix()
	out := make([]time.Time, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite time value at index %d", ErrDataUnavailable, i)
		}
		sec := v * step
		whole := math.Floor(sec)
		nsec := math.Round((sec - whole) * 1e9)
		out[i] = time.Unix(base+int64(whole), int64(nsec)).UTC()
	}
	return out, nil
}

func parseTimeUnits(units string) (float64, time.Time, error) {
	lower := strings.ToLower(strings.TrimSpace(units))
	unit, ref, ok := strings.Cut(lower, " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: malformed time units %q", ErrDataUnavailable, units)
	}
	step, ok := unitSeconds[strings.TrimSpace(unit)]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: unsupported time unit %q", ErrDataUnavailable, unit)
	}
	epoch, err := parseEpoch(strings.TrimSpace(ref))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: time units %q: %v", ErrDataUnavailable, units, err)
	}
	return step, epoch, nil
}

// parseEpoch accepts the loose ISO forms found in CF files: unpadded date
// fields, an optional clock time separated by a space or "T", and an
// optional UTC zone marker.
func parseEpoch(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "utc"), "z")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "+00:00"))
	datePart, clockPart, _ := strings.Cut(strings.Replace(s, "t", " ", 1), " ")

	ymd := strings.Split(datePart, "-")
	if len(ymd) != 3 {
		return time.Time{}, fmt.Errorf("bad epoch date %q", datePart)
	}
	var fields [3]int
	for k, p := range ymd {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad epoch date %q", datePart)
		}
		fields[k] = n
	}

	var hh, mm int
	var ss float64
	if clockPart = strings.TrimSpace(clockPart); clockPart != "" {
		hms := strings.Split(clockPart, ":")
		if len(hms) > 3 {
			return time.Time{}, fmt.Errorf("bad epoch time %q", clockPart)
		}
		var err error
		if hh, err = strconv.Atoi(hms[0]); err != nil {
			return time.Time{}, fmt.Errorf("bad epoch time %q", clockPart)
		}
		if len(hms) > 1 {
			if mm, err = strconv.Atoi(hms[1]); err != nil {
				return time.Time{}, fmt.Errorf("bad epoch time %q", clockPart)
			}
		}
		if len(hms) > 2 {
			if ss, err = strconv.ParseFloat(hms[2], 64); err != nil {
				return time.Time{}, fmt.Errorf("bad epoch time %q", clockPart)
			}
		}
	}

	whole := math.Floor(ss)
	return time.Date(fields[0], time.Month(fields[1]), fields[2],
		hh, mm, int(whole), int(math.Round((ss-whole)*1e9)), time.UTC), nil
}
