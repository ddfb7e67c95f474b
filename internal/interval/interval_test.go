package interval

import (
	"errors"
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 3, hour, min, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	t.Run("accepts start before end", func(t *testing.T) {
		iv, err := New(at(9, 0), at(10, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := iv.Duration(); got != time.Hour {
			t.Fatalf("duration = %v, want 1h", got)
		}
	})

	t.Run("rejects start equal to end", func(t *testing.T) {
		_, err := New(at(9, 0), at(9, 0))
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("error = %v, want ErrInvalidInterval", err)
		}
	})

	t.Run("rejects start after end", func(t *testing.T) {
		_, err := New(at(11, 0), at(9, 0))
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("error = %v, want ErrInvalidInterval", err)
		}
	})
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "identical intervals overlap",
			a:    MustNew(at(9, 0), at(10, 0)),
			b:    MustNew(at(9, 0), at(10, 0)),
			want: true,
		},
		{
			name: "partial overlap",
			a:    MustNew(at(9, 0), at(10, 30)),
			b:    MustNew(at(10, 0), at(11, 0)),
			want: true,
		},
		{
			name: "containment overlaps",
			a:    MustNew(at(9, 0), at(12, 0)),
			b:    MustNew(at(10, 0), at(11, 0)),
			want: true,
		},
		{
			name: "back-to-back intervals do not overlap",
			a:    MustNew(at(9, 0), at(10, 0)),
			b:    MustNew(at(10, 0), at(11, 0)),
			want: false,
		},
		{
			name: "disjoint intervals do not overlap",
			a:    MustNew(at(9, 0), at(10, 0)),
			b:    MustNew(at(14, 0), at(15, 0)),
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tc.want)
			}
			// Overlap is symmetric.
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("b.Overlaps(a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	iv := MustNew(at(9, 0), at(10, 0))

	if !iv.Contains(at(9, 0)) {
		t.Fatal("start instant should be contained")
	}
	if !iv.Contains(at(9, 30)) {
		t.Fatal("interior instant should be contained")
	}
	if iv.Contains(at(10, 0)) {
		t.Fatal("end instant should not be contained in a half-open interval")
	}
	if iv.Contains(at(8, 59)) {
		t.Fatal("instant before start should not be contained")
	}
}

func TestIsZero(t *testing.T) {
	var zero Interval
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if MustNew(at(9, 0), at(10, 0)).IsZero() {
		t.Fatal("constructed interval should not report IsZero")
	}
}
