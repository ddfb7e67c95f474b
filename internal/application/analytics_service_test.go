package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-scheduler/internal/gateway"
	"github.com/example/lab-scheduler/internal/labclock"
	"github.com/example/lab-scheduler/internal/lifecycle"
)

type analyticsStub struct {
	reservations []gateway.Reservation
}

func (a *analyticsStub) ListAllReservations(ctx context.Context) ([]gateway.Reservation, error) {
	return a.reservations, nil
}

func newAnalyticsService(t *testing.T, store *analyticsStub) *AnalyticsService {
	t.Helper()
	clock, err := labclock.NewNormalizer("")
	require.NoError(t, err)
	return NewAnalyticsService(store, clock, 12*time.Hour, nil)
}

func TestSummary(t *testing.T) {
	admin := Principal{UserID: "admin", Privileged: true}
	from := labclock.Date{Year: 2025, Month: time.March, Day: 1}
	to := labclock.Date{Year: 2025, Month: time.April, Day: 1}

	store := &analyticsStub{reservations: []gateway.Reservation{
		{
			ID: "r-1", EquipmentID: "eq-1", EquipmentName: "Confocal Microscope",
			UserID: "u-1", UserName: "sarah",
			StartTime: wall(9), EndTime: wall(12), Status: "completed",
		},
		{
			ID: "r-2", EquipmentID: "eq-1", EquipmentName: "Confocal Microscope",
			UserID: "u-2", UserName: "wei",
			StartTime: wall(14), EndTime: wall(15), Status: "confirmed",
		},
		{
			ID: "r-3", EquipmentID: "eq-2", EquipmentName: "Thermal Cycler",
			UserID: "u-1", UserName: "sarah",
			StartTime: wall(8), EndTime: wall(9), Status: "cancelled",
		},
		{
			// Outside the report range.
			ID: "r-4", EquipmentID: "eq-1",
			StartTime: time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2025, time.June, 2, 16, 0, 0, 0, time.UTC),
			Status:    "confirmed",
		},
	}}
	svc := newAnalyticsService(t, store)

	summary, err := svc.Summary(context.Background(), admin, from, to)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalReservations)
	assert.Equal(t, 1, summary.ByStatus[lifecycle.StatusCompleted])
	assert.Equal(t, 1, summary.ByStatus[lifecycle.StatusConfirmed])
	assert.Equal(t, 1, summary.ByStatus[lifecycle.StatusCancelled])

	// Cancelled hours do not count toward usage.
	require.Len(t, summary.Equipment, 1)
	microscope := summary.Equipment[0]
	assert.Equal(t, "eq-1", microscope.EquipmentID)
	assert.Equal(t, 2, microscope.Reservations)
	assert.InDelta(t, 4.0, microscope.ReservedHours, 1e-9)
	// 31 days times a 12 hour operating window.
	assert.InDelta(t, 4.0/(31*12), microscope.Utilization, 1e-9)

	require.Len(t, summary.Monthly, 1)
	assert.Equal(t, time.March, summary.Monthly[0].Month)
	assert.Equal(t, 3, summary.Monthly[0].Count)

	require.Len(t, summary.Users, 2)
	assert.Equal(t, "sarah", summary.Users[0].UserName)
	assert.InDelta(t, 3.0, summary.Users[0].ReservedHours, 1e-9)
}

func TestSummaryAuthorization(t *testing.T) {
	svc := newAnalyticsService(t, &analyticsStub{})
	from := labclock.Date{Year: 2025, Month: time.March, Day: 1}
	to := labclock.Date{Year: 2025, Month: time.April, Day: 1}

	_, err := svc.Summary(context.Background(), Principal{UserID: "u-1"}, from, to)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := newAnalyticsService(t, &analyticsStub{})
	admin := Principal{UserID: "admin", Privileged: true}
	from := labclock.Date{Year: 2025, Month: time.April, Day: 1}
	to := labclock.Date{Year: 2025, Month: time.March, Day: 1}

	_, err := svc.Summary(context.Background(), admin, from, to)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "range")
}
