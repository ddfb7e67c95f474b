package application

import (
	"fmt"
	"time"

	"github.com/example/lab-scheduler/internal/gateway"
	"github.com/example/lab-scheduler/internal/interval"
	"github.com/example/lab-scheduler/internal/labclock"
	"github.com/example/lab-scheduler/internal/lifecycle"
	"github.com/example/lab-scheduler/internal/slots"
)

// Principal identifies the user a service call acts for. It is built from the
// explicitly passed session rather than looked up from ambient state.
type Principal struct {
	UserID            string
	UserName          string
	Privileged        bool
	TrainingCompleted bool
}

// EquipmentStatus enumerates catalog availability states.
type EquipmentStatus string

const (
	EquipmentAvailable    EquipmentStatus = "available"
	EquipmentReserved     EquipmentStatus = "reserved"
	EquipmentMaintenance  EquipmentStatus = "maintenance"
	EquipmentOutOfService EquipmentStatus = "out_of_service"
)

// Equipment is the catalog entry as the scheduling core sees it: read-only
// input owned by the store. Specifications stay an opaque key/value bag.
type Equipment struct {
	ID                  string
	Name                string
	Description         string
	Category            string
	CategoryName        string
	Specifications      map[string]string
	Location            string
	Status              EquipmentStatus
	MaxReservationHours int
	RequiresTraining    bool
	IsActive            bool
	LastMaintenance     *time.Time
	NextMaintenance     *time.Time
}

// Reservable reports whether new reservations may target this equipment.
// Equipment marked reserved stays reservable for other windows; maintenance
// and out_of_service equipment does not.
func (e Equipment) Reservable() bool {
	return e.IsActive && (e.Status == EquipmentAvailable || e.Status == EquipmentReserved)
}

// RecurrenceFlag carries the recurring marker through to the store. The core
// never expands a pattern into concrete occurrences; materialization is the
// store's concern.
type RecurrenceFlag struct {
	IsRecurring bool
	Pattern     string
	EndDate     *time.Time
}

// Reservation is the domain view of a stored reservation.
type Reservation struct {
	ID            string
	EquipmentID   string
	EquipmentName string
	UserID        string
	UserName      string
	Interval      interval.Interval
	Status        lifecycle.Status
	Purpose       string
	Recurring     RecurrenceFlag
	CreatedAt     time.Time
}

// DaySchedule is the answer to a day-slot query: the equipment, the lab-local
// date, and the generated candidate windows with advisory availability.
type DaySchedule struct {
	Date      labclock.Date
	Equipment Equipment
	Slots     []slots.Slot
}

// EquipmentCategory mirrors the store's category resource.
type EquipmentCategory struct {
	ID          string
	Name        string
	Description string
}

func fromWireEquipment(w gateway.Equipment) Equipment {
	return Equipment{
		ID:                  w.ID,
		Name:                w.Name,
		Description:         w.Description,
		Category:            w.Category,
		CategoryName:        w.CategoryName,
		Specifications:      w.Specifications,
		Location:            w.Location,
		Status:              EquipmentStatus(w.Status),
		MaxReservationHours: w.MaxReservationHours,
		RequiresTraining:    w.RequiresTraining,
		IsActive:            w.IsActive,
		LastMaintenance:     w.LastMaintenance,
		NextMaintenance:     w.NextMaintenance,
	}
}

func fromWireReservation(w gateway.Reservation) (Reservation, error) {
	iv, err := interval.New(w.StartTime, w.EndTime)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %s: %w", w.ID, err)
	}
	status, err := lifecycle.Parse(w.Status)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %s: %w", w.ID, err)
	}
	return Reservation{
		ID:            w.ID,
		EquipmentID:   w.EquipmentID,
		EquipmentName: w.EquipmentName,
		UserID:        w.UserID,
		UserName:      w.UserName,
		Interval:      iv,
		Status:        status,
		Purpose:       w.Purpose,
		Recurring: RecurrenceFlag{
			IsRecurring: w.IsRecurring,
			Pattern:     w.RecurringPattern,
			EndDate:     w.RecurringEndDate,
		},
		CreatedAt: w.CreatedAt,
	}, nil
}

func fromWireReservations(wire []gateway.Reservation) ([]Reservation, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	out := make([]Reservation, 0, len(wire))
	for _, w := range wire {
		converted, err := fromWireReservation(w)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func toSlotReservation(r Reservation) slots.Reservation {
	return slots.Reservation{ID: r.ID, Status: r.Status, Interval: r.Interval}
}
