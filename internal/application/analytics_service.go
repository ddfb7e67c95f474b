package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/lab-scheduler/internal/gateway"
	"github.com/example/lab-scheduler/internal/labclock"
	"github.com/example/lab-scheduler/internal/lifecycle"
)

// AnalyticsStore captures the reads the analytics service needs.
type AnalyticsStore interface {
	ListAllReservations(ctx context.Context) ([]gateway.Reservation, error)
}

// EquipmentUsage summarizes reservation load on one piece of equipment
// within the reporting window.
type EquipmentUsage struct {
	EquipmentID   string
	EquipmentName string
	Reservations  int
	ReservedHours float64
	// Utilization is reserved time over the operating window of the
	// report period, between 0 and 1.
	Utilization float64
}

// MonthlyCount pairs a calendar month with its reservation count.
type MonthlyCount struct {
	Year  int
	Month time.Month
	Count int
}

// UserActivity summarizes one user's reservations in the window.
type UserActivity struct {
	UserID        string
	UserName      string
	Reservations  int
	ReservedHours float64
}

// UsageSummary is the full analytics report.
type UsageSummary struct {
	From              labclock.Date
	To                labclock.Date
	TotalReservations int
	ByStatus          map[lifecycle.Status]int
	Equipment         []EquipmentUsage
	Monthly           []MonthlyCount
	Users             []UserActivity
}

// AnalyticsService computes usage reports over the full reservation set.
// Reports are privileged-only.
type AnalyticsService struct {
	store        AnalyticsStore
	clock        *labclock.Normalizer
	windowPerDay time.Duration
	logger       *slog.Logger
}

// NewAnalyticsService wires the service. windowPerDay is the operating
// window length used for utilization, typically twelve hours.
func NewAnalyticsService(store AnalyticsStore, clock *labclock.Normalizer, windowPerDay time.Duration, logger *slog.Logger) *AnalyticsService {
	if windowPerDay <= 0 {
		windowPerDay = 12 * time.Hour
	}
	return &AnalyticsService{
		store:        store,
		clock:        clock,
		windowPerDay: windowPerDay,
		logger:       defaultLogger(logger),
	}
}

// Summary builds the usage report for the half-open date range [from, to).
// Reservations in a cancelled or no-show state are counted in the status
// breakdown but excluded from hours and utilization.
func (s *AnalyticsService) Summary(ctx context.Context, principal Principal, from, to labclock.Date) (UsageSummary, error) {
	if s == nil || s.store == nil {
		return UsageSummary{}, fmt.Errorf("analytics store not configured")
	}
	if !principal.Privileged {
		return UsageSummary{}, ErrUnauthorized
	}
	logger := serviceLogger(ctx, s.logger, "AnalyticsService", "Summary", "from", from.String(), "to", to.String())

	fromBounds, err := s.clock.DayBounds(from)
	if err != nil {
		return UsageSummary{}, err
	}
	toBounds, err := s.clock.DayBounds(to)
	if err != nil {
		return UsageSummary{}, err
	}
	if !fromBounds.Start.Before(toBounds.Start) {
		vErr := &ValidationError{}
		vErr.add("range", "from must precede to")
		return UsageSummary{}, vErr
	}
	days := int(toBounds.Start.Sub(fromBounds.Start).Hours()/24 + 0.5)

	wire, err := s.store.ListAllReservations(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "reservation listing failed", "error", err, "error_kind", ErrorKind(err))
		return UsageSummary{}, err
	}
	reservations, err := fromWireReservations(wire)
	if err != nil {
		return UsageSummary{}, err
	}

	summary := UsageSummary{
		From:     from,
		To:       to,
		ByStatus: make(map[lifecycle.Status]int),
	}
	equipmentUsage := make(map[string]*EquipmentUsage)
	monthly := make(map[string]*MonthlyCount)
	users := make(map[string]*UserActivity)

	for _, r := range reservations {
		if !r.Interval.Start.Before(toBounds.Start) || !fromBounds.Start.Before(r.Interval.End) {
			continue
		}
		summary.TotalReservations++
		summary.ByStatus[r.Status]++

		localStart := s.clock.ToLabLocal(r.Interval.Start)
		key := fmt.Sprintf("%04d-%02d", localStart.Year(), localStart.Month())
		if m, ok := monthly[key]; ok {
			m.Count++
		} else {
			monthly[key] = &MonthlyCount{Year: localStart.Year(), Month: localStart.Month(), Count: 1}
		}

		if r.Status == lifecycle.StatusCancelled || r.Status == lifecycle.StatusNoShow {
			continue
		}
		hours := r.Interval.Duration().Hours()

		eu, ok := equipmentUsage[r.EquipmentID]
		if !ok {
			eu = &EquipmentUsage{EquipmentID: r.EquipmentID, EquipmentName: r.EquipmentName}
			equipmentUsage[r.EquipmentID] = eu
		}
		eu.Reservations++
		eu.ReservedHours += hours

		ua, ok := users[r.UserID]
		if !ok {
			ua = &UserActivity{UserID: r.UserID, UserName: r.UserName}
			users[r.UserID] = ua
		}
		ua.Reservations++
		ua.ReservedHours += hours
	}

	operatingHours := float64(days) * s.windowPerDay.Hours()
	for _, eu := range equipmentUsage {
		if operatingHours > 0 {
			eu.Utilization = eu.ReservedHours / operatingHours
		}
		summary.Equipment = append(summary.Equipment, *eu)
	}
	sort.Slice(summary.Equipment, func(i, j int) bool {
		if summary.Equipment[i].ReservedHours == summary.Equipment[j].ReservedHours {
			return summary.Equipment[i].EquipmentName < summary.Equipment[j].EquipmentName
		}
		return summary.Equipment[i].ReservedHours > summary.Equipment[j].ReservedHours
	})

	for _, m := range monthly {
		summary.Monthly = append(summary.Monthly, *m)
	}
	sort.Slice(summary.Monthly, func(i, j int) bool {
		if summary.Monthly[i].Year == summary.Monthly[j].Year {
			return summary.Monthly[i].Month < summary.Monthly[j].Month
		}
		return summary.Monthly[i].Year < summary.Monthly[j].Year
	})

	for _, ua := range users {
		summary.Users = append(summary.Users, *ua)
	}
	sort.Slice(summary.Users, func(i, j int) bool {
		if summary.Users[i].Reservations == summary.Users[j].Reservations {
			return summary.Users[i].UserName < summary.Users[j].UserName
		}
		return summary.Users[i].Reservations > summary.Users[j].Reservations
	})

	logger.DebugContext(ctx, "usage summary built",
		"total", summary.TotalReservations,
		"equipment", len(summary.Equipment),
		"users", len(summary.Users),
	)
	return summary, nil
}
