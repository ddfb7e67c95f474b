// Package slots generates candidate reservation windows for a lab-local day
// and annotates them against reservations already known to the caller. The
// annotation is advisory only: it reflects a possibly stale local snapshot,
// and the authoritative conflict check happens inside the reservation store
// at creation time.
package slots

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/lab-scheduler/internal/interval"
	"github.com/example/lab-scheduler/internal/labclock"
	"github.com/example/lab-scheduler/internal/lifecycle"
)

// Reservation is the minimal view of an existing reservation needed for
// conflict detection.
type Reservation struct {
	ID       string
	Status   lifecycle.Status
	Interval interval.Interval
}

// Slot is a generated candidate reservation window. Slots are ephemeral:
// recomputed from scratch on every query and never persisted.
type Slot struct {
	Interval  interval.Interval
	Available bool
	// Conflict references the reservation blocking this slot when
	// Available is false.
	Conflict *Reservation
}

// Window describes the lab-local operating hours partitioned into slots.
type Window struct {
	StartHour  int
	EndHour    int
	SlotLength time.Duration
}

// DefaultWindow is the lab's standard operating window: 08:00-20:00 lab-local
// in one-hour slots.
var DefaultWindow = Window{StartHour: 8, EndHour: 20, SlotLength: time.Hour}

func (w Window) validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("slots: invalid operating window %02d:00-%02d:00", w.StartHour, w.EndHour)
	}
	if w.SlotLength <= 0 {
		return fmt.Errorf("slots: slot length must be positive, got %s", w.SlotLength)
	}
	return nil
}

// Generator produces the day's candidate slots on the lab clock.
type Generator struct {
	clock  *labclock.Normalizer
	window Window
}

// NewGenerator wires a generator for the given normalizer and window. A zero
// window selects DefaultWindow.
func NewGenerator(clock *labclock.Normalizer, window Window) (*Generator, error) {
	if window == (Window{}) {
		window = DefaultWindow
	}
	if err := window.validate(); err != nil {
		return nil, err
	}
	return &Generator{clock: clock, window: window}, nil
}

// Generate returns the candidate slots for the given lab-local date, marked
// against the supplied reservations. Only confirmed and active reservations
// block a slot; pending, cancelled, completed and no_show never do. Past
// dates are generated like any other: excluding them is a display concern.
func (g *Generator) Generate(date labclock.Date, existing []Reservation) ([]Slot, error) {
	blocking := make([]Reservation, 0, len(existing))
	for _, r := range existing {
		if r.Status.Blocks() {
			blocking = append(blocking, r)
		}
	}

	// The grid is anchored at the operating-window start so slot boundaries
	// never drift with the query date.
	windowMinutes := (g.window.EndHour - g.window.StartHour) * 60
	slotMinutes := int(g.window.SlotLength / time.Minute)

	result := make([]Slot, 0, windowMinutes/slotMinutes)
	for offset := 0; offset+slotMinutes <= windowMinutes; offset += slotMinutes {
		start := g.wallInstant(date, g.window.StartHour*60+offset)
		end := g.wallInstant(date, g.window.StartHour*60+offset+slotMinutes)
		iv, err := interval.New(start, end)
		if err != nil {
			return nil, fmt.Errorf("slots: slot boundary for %s: %w", date, err)
		}

		conflict := FindConflict(iv, blocking)
		result = append(result, Slot{
			Interval:  iv,
			Available: conflict == nil,
			Conflict:  conflict,
		})
	}

	return result, nil
}

func (g *Generator) wallInstant(date labclock.Date, minuteOfDay int) time.Time {
	wall := time.Date(date.Year, date.Month, date.Day, minuteOfDay/60, minuteOfDay%60, 0, 0, time.UTC)
	return g.clock.ToInstant(wall)
}

// FindConflict returns the first reservation, ordered by ascending start
// time, whose interval overlaps the candidate, or nil when none does. Status
// filtering is the caller's responsibility; every reservation passed in is
// treated as blocking.
func FindConflict(candidate interval.Interval, reservations []Reservation) *Reservation {
	ordered := make([]Reservation, len(reservations))
	copy(ordered, reservations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Interval.Start.Before(ordered[j].Interval.Start)
	})

	for _, r := range ordered {
		if candidate.Overlaps(r.Interval) {
			found := r
			return &found
		}
	}
	return nil
}
