package main

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/lab-scheduler/internal/labclock"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	err := run(context.Background(), logger, []string{"bogus"})
	if err == nil {
		t.Fatal("expected an error for an unknown command")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected the command name in the error, got: %v", err)
	}
}

func TestRunRequiresCommand(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	if err := run(context.Background(), logger, nil); err == nil {
		t.Fatal("expected an error when no command is given")
	}
}

func TestParseWindow(t *testing.T) {
	clock, err := labclock.NewNormalizer("")
	if err != nil {
		t.Fatalf("failed to load lab zone: %v", err)
	}
	a := &app{clock: clock}

	t.Run("converts lab-local wall times to UTC", func(t *testing.T) {
		// 2025-03-03 is CST, UTC-6.
		window, err := a.parseWindow("2025-03-03 09:00", "2025-03-03 10:00")
		if err != nil {
			t.Fatalf("parseWindow returned error: %v", err)
		}
		expectedStart := time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC)
		if !window.Start.Equal(expectedStart) {
			t.Fatalf("expected start %s, got %s", expectedStart, window.Start)
		}
		if window.Duration() != time.Hour {
			t.Fatalf("expected a one hour window, got %s", window.Duration())
		}
	})

	t.Run("summer wall times use the daylight offset", func(t *testing.T) {
		// 2025-07-07 is CDT, UTC-5.
		window, err := a.parseWindow("2025-07-07 09:00", "2025-07-07 10:00")
		if err != nil {
			t.Fatalf("parseWindow returned error: %v", err)
		}
		expectedStart := time.Date(2025, time.July, 7, 14, 0, 0, 0, time.UTC)
		if !window.Start.Equal(expectedStart) {
			t.Fatalf("expected start %s, got %s", expectedStart, window.Start)
		}
	})

	t.Run("rejects malformed times", func(t *testing.T) {
		if _, err := a.parseWindow("yesterday", "2025-03-03 10:00"); err == nil {
			t.Fatal("expected an error for a malformed start")
		}
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		if _, err := a.parseWindow("2025-03-03 10:00", "2025-03-03 09:00"); err == nil {
			t.Fatal("expected an error for an inverted window")
		}
	})
}
