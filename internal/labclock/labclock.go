// Package labclock normalizes between the fixed lab-local civil calendar and
// UTC instants. Every slot boundary in the system is computed against the lab
// zone, never the caller's device zone, so two users in different timezones
// always see identical slot grids.
package labclock

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/lab-scheduler/internal/interval"
)

// DefaultZone is the lab deployment's civil timezone.
const DefaultZone = "America/Chicago"

// ErrUnknownZone indicates the configured zone name could not be loaded.
var ErrUnknownZone = errors.New("labclock: unknown timezone")

// Date identifies a calendar day on the lab clock.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a lab-local calendar date in YYYY-MM-DD form.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, fmt.Errorf("labclock: invalid date %q: %w", value, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// AddDays returns the date shifted by the given number of calendar days.
func (d Date) AddDays(days int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// String renders the date in YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Normalizer converts between lab-local wall-clock times and UTC instants.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer loads the named zone. An empty name selects DefaultZone.
func NewNormalizer(zone string) (*Normalizer, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownZone, zone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Location exposes the lab zone for callers that format display times.
func (n *Normalizer) Location() *time.Location {
	if n == nil || n.loc == nil {
		return time.UTC
	}
	return n.loc
}

// DayBounds returns the UTC instant span [local midnight, next local midnight)
// for the given lab-local calendar date. On days with a daylight-saving
// transition the span is 23 or 25 hours long.
func (n *Normalizer) DayBounds(date Date) (interval.Interval, error) {
	start := n.instantFor(date, 0, 0, 0, 0)
	next := date.AddDays(1)
	end := n.instantFor(next, 0, 0, 0, 0)
	return interval.New(start, end)
}

// ToLabLocal converts a UTC instant to the equivalent lab-local wall time.
func (n *Normalizer) ToLabLocal(instant time.Time) time.Time {
	return instant.In(n.Location())
}

// ToInstant interprets the wall-clock fields of local on the lab clock and
// returns the corresponding UTC instant. For any wall time outside a
// daylight-saving transition this is the exact inverse of ToLabLocal.
//
// Transition policy: an ambiguous wall time (the repeated hour when clocks
// fall back) resolves to the earlier of its two valid UTC instants. A
// non-existent wall time (the skipped hour when clocks spring forward)
// normalizes forward by the transition offset, which is again the earliest
// valid instant at or after the requested wall clock.
func (n *Normalizer) ToInstant(local time.Time) time.Time {
	year, month, day := local.Date()
	hour, min, sec := local.Clock()
	return n.instantFor(Date{Year: year, Month: month, Day: day}, hour, min, sec, local.Nanosecond())
}

func (n *Normalizer) instantFor(date Date, hour, min, sec, nsec int) time.Time {
	loc := n.Location()
	base := time.Date(date.Year, date.Month, date.Day, hour, min, sec, nsec, loc)

	// time.Date leaves the choice of offset unspecified for ambiguous wall
	// times. Probe one hour either side and keep the earliest instant that
	// still reads back as the requested wall clock.
	earliest := base
	for _, delta := range []time.Duration{-time.Hour, time.Hour} {
		alt := base.Add(delta)
		if sameWallClock(alt.In(loc), date, hour, min, sec, nsec) && alt.Before(earliest) {
			earliest = alt
		}
	}
	return earliest.UTC()
}

func sameWallClock(t time.Time, date Date, hour, min, sec, nsec int) bool {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return y == date.Year && m == date.Month && d == date.Day &&
		hh == hour && mm == min && ss == sec && t.Nanosecond() == nsec
}
