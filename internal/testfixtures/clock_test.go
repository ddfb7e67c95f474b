package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("defaults to the reference time", func(t *testing.T) {
		clock := NewClock(time.Time{})
		if !clock.Now().Equal(ReferenceTime()) {
			t.Fatalf("expected reference time, got %s", clock.Now())
		}
	})

	t.Run("advance moves the clock forward", func(t *testing.T) {
		start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
		clock := NewClock(start)

		updated := clock.Advance(90 * time.Minute)
		expected := start.Add(90 * time.Minute)
		if !updated.Equal(expected) {
			t.Fatalf("expected %s, got %s", expected, updated)
		}
		if !clock.Now().Equal(expected) {
			t.Fatalf("Now disagrees with Advance: %s", clock.Now())
		}
	})

	t.Run("set replaces the current instant", func(t *testing.T) {
		clock := NewClock(time.Time{})
		target := time.Date(2025, time.November, 2, 1, 30, 0, 0, time.UTC)
		clock.Set(target)
		if !clock.Now().Equal(target) {
			t.Fatalf("expected %s, got %s", target, clock.Now())
		}
	})

	t.Run("nil clock falls back to real time", func(t *testing.T) {
		var clock *Clock
		fn := clock.NowFunc()
		if fn == nil {
			t.Fatal("expected a usable function from a nil clock")
		}
		if fn().IsZero() {
			t.Fatal("expected real time from a nil clock")
		}
	})
}
