// Package interval provides the time interval value type shared by slot
// generation and conflict detection. Intervals are half-open: [Start, End).
package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval indicates a construction attempt where start >= end.
var ErrInvalidInterval = errors.New("interval: start must be before end")

// Interval is an immutable span of absolute time. The zero value is not a
// valid interval; construct through New so the start < end invariant holds.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New validates the invariant start < end and returns the interval.
func New(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// MustNew is a construction helper for fixtures and literals known to be valid.
// It panics on an invalid interval.
func MustNew(start, end time.Time) Interval {
	iv, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// Overlaps reports whether the two half-open intervals share any instant.
// An interval ending exactly when another begins does not overlap, so
// back-to-back slots remain independently bookable.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether the instant falls inside the half-open interval.
func (i Interval) Contains(instant time.Time) bool {
	return !instant.Before(i.Start) && instant.Before(i.End)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// IsZero reports whether the interval is the zero value, used to detect a
// missing slot selection before validation.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// String renders the interval for logs and error messages.
func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}
