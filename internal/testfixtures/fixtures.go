package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/lab-scheduler/internal/gateway"
)

var (
	equipmentCounter   uint64
	reservationCounter uint64
	userCounter        uint64
)

var referenceTime = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a plain CST Monday, away from daylight-saving transitions.
func ReferenceTime() time.Time {
	return referenceTime
}

// EquipmentOption configures a generated equipment fixture.
type EquipmentOption func(*gateway.Equipment)

// NewEquipmentFixture returns a deterministic catalog entry with optional
// overrides.
func NewEquipmentFixture(opts ...EquipmentOption) gateway.Equipment {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	fixture := gateway.Equipment{
		ID:                  fmt.Sprintf("eq-%03d", idx),
		Name:                fmt.Sprintf("Instrument %03d", idx),
		Description:         "bench instrument",
		Category:            "cat-001",
		CategoryName:        "General",
		Location:            "Room 104",
		Status:              "available",
		MaxReservationHours: 4,
		IsActive:            true,
		CreatedAt:           referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEquipmentID overrides the generated equipment ID.
func WithEquipmentID(id string) EquipmentOption {
	return func(e *gateway.Equipment) { e.ID = id }
}

// WithEquipmentStatus overrides the catalog status.
func WithEquipmentStatus(status string) EquipmentOption {
	return func(e *gateway.Equipment) { e.Status = status }
}

// WithRequiresTraining marks the equipment as training-gated.
func WithRequiresTraining() EquipmentOption {
	return func(e *gateway.Equipment) { e.RequiresTraining = true }
}

// WithMaxReservationHours overrides the per-reservation duration cap.
func WithMaxReservationHours(hours int) EquipmentOption {
	return func(e *gateway.Equipment) { e.MaxReservationHours = hours }
}

// ReservationOption configures a generated reservation fixture.
type ReservationOption func(*gateway.Reservation)

// NewReservationFixture returns a deterministic reservation with optional
// overrides. Successive fixtures occupy successive one-hour windows so they
// never overlap unless a test asks them to.
func NewReservationFixture(opts ...ReservationOption) gateway.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := gateway.Reservation{
		ID:            fmt.Sprintf("res-%03d", idx),
		UserID:        "user-001",
		UserName:      "User 001",
		EquipmentID:   "eq-001",
		EquipmentName: "Instrument 001",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        "confirmed",
		Purpose:       "scheduled run",
		CreatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *gateway.Reservation) { r.ID = id }
}

// WithReservationEquipment ties the reservation to the given equipment.
func WithReservationEquipment(equipmentID string) ReservationOption {
	return func(r *gateway.Reservation) { r.EquipmentID = equipmentID }
}

// WithReservationUser ties the reservation to the given user.
func WithReservationUser(userID string) ReservationOption {
	return func(r *gateway.Reservation) { r.UserID = userID }
}

// WithReservationWindow overrides the reserved window.
func WithReservationWindow(start, end time.Time) ReservationOption {
	return func(r *gateway.Reservation) {
		r.StartTime = start
		r.EndTime = end
	}
}

// WithReservationStatus overrides the lifecycle status.
func WithReservationStatus(status string) ReservationOption {
	return func(r *gateway.Reservation) { r.Status = status }
}

// UserOption configures a generated account fixture.
type UserOption func(*gateway.User)

// NewUserFixture returns a deterministic account with optional overrides.
func NewUserFixture(opts ...UserOption) gateway.User {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := gateway.User{
		ID:                fmt.Sprintf("user-%03d", idx),
		Username:          fmt.Sprintf("user%03d", idx),
		Email:             fmt.Sprintf("user%03d@lab.example.edu", idx),
		Role:              "researcher",
		IsApproved:        true,
		TrainingCompleted: true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserRole overrides the account role.
func WithUserRole(role string) UserOption {
	return func(u *gateway.User) { u.Role = role }
}
