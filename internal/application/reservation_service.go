package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/example/lab-scheduler/internal/gateway"
	"github.com/example/lab-scheduler/internal/interval"
	"github.com/example/lab-scheduler/internal/labclock"
	"github.com/example/lab-scheduler/internal/lifecycle"
	"github.com/example/lab-scheduler/internal/slots"
)

// ReservationStore captures the gateway interactions the reservation service
// needs. The store is authoritative; everything computed from its responses
// locally is advisory.
type ReservationStore interface {
	GetEquipment(ctx context.Context, id string) (gateway.Equipment, error)
	ListReservations(ctx context.Context) ([]gateway.Reservation, error)
	ListAllReservations(ctx context.Context) ([]gateway.Reservation, error)
	CheckAvailability(ctx context.Context, equipmentID string, start, end time.Time) (gateway.AvailabilityResult, error)
	CreateReservation(ctx context.Context, req gateway.CreateReservationRequest) (gateway.Reservation, error)
	CancelReservation(ctx context.Context, id string) error
}

const (
	snapshotKeySelf = "reservations:self"
	snapshotKeyAll  = "reservations:all"

	// DefaultSnapshotTTL bounds how stale the advisory reservation snapshot
	// may grow between forced refreshes.
	DefaultSnapshotTTL = 30 * time.Second
)

// ReservationService orchestrates day-slot queries, validated creation
// requests and cancellations against the reservation store.
type ReservationService struct {
	store     ReservationStore
	generator *slots.Generator
	snapshots *gocache.Cache
	now       func() time.Time
	logger    *slog.Logger
}

// NewReservationService wires the service. A zero snapshotTTL selects
// DefaultSnapshotTTL; a nil now falls back to time.Now.
func NewReservationService(store ReservationStore, generator *slots.Generator, snapshotTTL time.Duration, now func() time.Time, logger *slog.Logger) *ReservationService {
	if snapshotTTL <= 0 {
		snapshotTTL = DefaultSnapshotTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		store:     store,
		generator: generator,
		snapshots: gocache.New(snapshotTTL, 2*snapshotTTL),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// DaySlotsParams identifies a day-slot query.
type DaySlotsParams struct {
	Principal   Principal
	EquipmentID string
	Date        labclock.Date
}

// DaySlots generates the candidate windows for one equipment and lab-local
// date, annotated against the cached reservation snapshot. Past dates are
// generated like any other; hiding them is a display concern.
func (s *ReservationService) DaySlots(ctx context.Context, params DaySlotsParams) (DaySchedule, error) {
	if s == nil || s.store == nil {
		return DaySchedule{}, fmt.Errorf("reservation store not configured")
	}
	logger := s.loggerWith(ctx, "DaySlots", "equipment_id", params.EquipmentID, "date", params.Date.String())

	wireEquipment, err := s.store.GetEquipment(ctx, params.EquipmentID)
	if err != nil {
		logger.ErrorContext(ctx, "equipment lookup failed", "error", err, "error_kind", ErrorKind(err))
		return DaySchedule{}, mapStoreError(err)
	}
	equipment := fromWireEquipment(wireEquipment)

	reservations, err := s.snapshot(ctx, params.Principal)
	if err != nil {
		logger.ErrorContext(ctx, "reservation snapshot failed", "error", err, "error_kind", ErrorKind(err))
		return DaySchedule{}, err
	}

	existing := make([]slots.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.EquipmentID == params.EquipmentID {
			existing = append(existing, toSlotReservation(r))
		}
	}

	generated, err := s.generator.Generate(params.Date, existing)
	if err != nil {
		return DaySchedule{}, err
	}

	logger.DebugContext(ctx, "day slots generated", "slots", len(generated), "known_reservations", len(existing))
	return DaySchedule{Date: params.Date, Equipment: equipment, Slots: generated}, nil
}

// ReserveParams carries a validated creation request.
type ReserveParams struct {
	Principal   Principal
	EquipmentID string
	// Slot is the selected candidate window. The zero value means no slot
	// was selected and fails validation.
	Slot      interval.Interval
	Purpose   string
	Recurring RecurrenceFlag
	// PreCheck runs the store's authoritative availability check before
	// submitting, trading one extra round-trip for an earlier answer.
	PreCheck bool
}

// Reserve validates the request locally, optionally pre-checks with the
// store, and submits the creation request. On an authoritative conflict the
// cached snapshot is invalidated and refreshed before the error is returned,
// so the next slot query reflects the reservation that won the race.
func (s *ReservationService) Reserve(ctx context.Context, params ReserveParams) (Reservation, error) {
	if s == nil || s.store == nil {
		return Reservation{}, fmt.Errorf("reservation store not configured")
	}
	logger := s.loggerWith(ctx, "Reserve",
		"equipment_id", params.EquipmentID,
		"user_id", params.Principal.UserID,
	)

	wireEquipment, err := s.store.GetEquipment(ctx, params.EquipmentID)
	if err != nil {
		return Reservation{}, mapStoreError(err)
	}
	equipment := fromWireEquipment(wireEquipment)

	if vErr := validateReserve(params, equipment); vErr.HasErrors() {
		logger.WarnContext(ctx, "reservation request rejected locally", "fields", vErr.FieldErrors)
		return Reservation{}, vErr
	}

	if params.PreCheck {
		result, err := s.store.CheckAvailability(ctx, params.EquipmentID, params.Slot.Start, params.Slot.End)
		if err != nil {
			logger.ErrorContext(ctx, "availability pre-check failed", "error", err, "error_kind", ErrorKind(err))
			return Reservation{}, err
		}
		if !result.Available {
			s.invalidateSnapshots()
			return Reservation{}, &gateway.ConflictError{
				Detail:    "window no longer available",
				Conflicts: result.ConflictingReservations,
			}
		}
	}

	created, err := s.store.CreateReservation(ctx, gateway.CreateReservationRequest{
		EquipmentID:      params.EquipmentID,
		StartTime:        params.Slot.Start,
		EndTime:          params.Slot.End,
		Purpose:          params.Purpose,
		IsRecurring:      params.Recurring.IsRecurring,
		RecurringPattern: params.Recurring.Pattern,
		RecurringEndDate: params.Recurring.EndDate,
	})
	if err != nil {
		if gateway.IsConflict(err) {
			// The advisory snapshot lost a race. Refresh it so the next
			// slot query shows the winning reservation.
			s.invalidateSnapshots()
			if _, refreshErr := s.snapshot(ctx, params.Principal); refreshErr != nil {
				logger.WarnContext(ctx, "snapshot refresh after conflict failed", "error", refreshErr)
			}
			logger.InfoContext(ctx, "authoritative conflict", "error", err)
			return Reservation{}, err
		}
		logger.ErrorContext(ctx, "reservation creation failed", "error", err, "error_kind", ErrorKind(err))
		return Reservation{}, err
	}

	s.invalidateSnapshots()

	reservation, err := fromWireReservation(created)
	if err != nil {
		return Reservation{}, err
	}
	logger.InfoContext(ctx, "reservation created", "reservation_id", reservation.ID, "status", string(reservation.Status))
	return reservation, nil
}

// Cancel requests cancellation of the identified reservation. Cancelling an
// already-cancelled reservation is a no-op success. Attempts on other
// terminal reservations fail with a lifecycle error before any network call.
func (s *ReservationService) Cancel(ctx context.Context, principal Principal, reservationID string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("reservation store not configured")
	}
	logger := s.loggerWith(ctx, "Cancel", "reservation_id", reservationID, "user_id", principal.UserID)

	existing, err := s.findReservation(ctx, principal, reservationID)
	if err != nil {
		logger.ErrorContext(ctx, "cancellation lookup failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if existing.Status == lifecycle.StatusCancelled {
		logger.InfoContext(ctx, "reservation already cancelled")
		return nil
	}
	if _, err := lifecycle.Transition(existing.Status, lifecycle.StatusCancelled); err != nil {
		logger.ErrorContext(ctx, "cancellation rejected by lifecycle", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.store.CancelReservation(ctx, reservationID); err != nil {
		logger.ErrorContext(ctx, "cancellation failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.invalidateSnapshots()
	logger.InfoContext(ctx, "reservation cancelled")
	return nil
}

// Reservations lists reservations visible to the principal, ordered by start
// time. Privileged principals may request everyone's reservations.
func (s *ReservationService) Reservations(ctx context.Context, principal Principal, all bool) ([]Reservation, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("reservation store not configured")
	}
	if all && !principal.Privileged {
		return nil, ErrUnauthorized
	}

	var (
		wire []gateway.Reservation
		err  error
	)
	if all {
		wire, err = s.store.ListAllReservations(ctx)
	} else {
		wire, err = s.store.ListReservations(ctx)
	}
	if err != nil {
		return nil, err
	}

	reservations, err := fromWireReservations(wire)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reservations, func(i, j int) bool {
		if reservations[i].Interval.Start.Equal(reservations[j].Interval.Start) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].Interval.Start.Before(reservations[j].Interval.Start)
	})
	return reservations, nil
}

// AdoptStatus reflects a store-reported status onto a local reservation. The
// store is authoritative for every transition the client does not initiate;
// an impossible transition therefore signals a defect, not user error.
func AdoptStatus(r Reservation, reported lifecycle.Status) (Reservation, error) {
	if r.Status == reported {
		return r, nil
	}
	next, err := lifecycle.Transition(r.Status, reported)
	if err != nil {
		return Reservation{}, err
	}
	r.Status = next
	return r, nil
}

// snapshot returns the cached reservation list for the principal's scope,
// fetching from the store when the cache entry is missing or expired. The
// cached slice is treated as read-only input and never mutated in place.
func (s *ReservationService) snapshot(ctx context.Context, principal Principal) ([]Reservation, error) {
	key := snapshotKeySelf
	if principal.Privileged {
		key = snapshotKeyAll
	}

	if cached, found := s.snapshots.Get(key); found {
		if reservations, ok := cached.([]Reservation); ok {
			return reservations, nil
		}
	}

	var (
		wire []gateway.Reservation
		err  error
	)
	if principal.Privileged {
		wire, err = s.store.ListAllReservations(ctx)
	} else {
		wire, err = s.store.ListReservations(ctx)
	}
	if err != nil {
		return nil, err
	}

	reservations, err := fromWireReservations(wire)
	if err != nil {
		return nil, err
	}
	s.snapshots.SetDefault(key, reservations)
	return reservations, nil
}

func (s *ReservationService) invalidateSnapshots() {
	s.snapshots.Delete(snapshotKeySelf)
	s.snapshots.Delete(snapshotKeyAll)
}

func (s *ReservationService) findReservation(ctx context.Context, principal Principal, id string) (Reservation, error) {
	// Cancellation decisions need current state, not the advisory cache.
	var (
		wire []gateway.Reservation
		err  error
	)
	if principal.Privileged {
		wire, err = s.store.ListAllReservations(ctx)
	} else {
		wire, err = s.store.ListReservations(ctx)
	}
	if err != nil {
		return Reservation{}, err
	}
	for _, w := range wire {
		if w.ID == id {
			return fromWireReservation(w)
		}
	}
	return Reservation{}, ErrNotFound
}

func validateReserve(params ReserveParams, equipment Equipment) *ValidationError {
	vErr := &ValidationError{}

	if params.Slot.IsZero() {
		vErr.add("slot", "a time slot must be selected")
	} else if _, err := interval.New(params.Slot.Start, params.Slot.End); err != nil {
		vErr.add("slot", "start must be before end")
	}

	if params.Purpose == "" {
		vErr.add("purpose", "purpose is required")
	}

	if !params.Slot.IsZero() && equipment.MaxReservationHours > 0 {
		max := time.Duration(equipment.MaxReservationHours) * time.Hour
		if params.Slot.Duration() > max {
			vErr.add("slot", fmt.Sprintf("duration exceeds the %d hour limit for this equipment", equipment.MaxReservationHours))
		}
	}

	if !equipment.Reservable() {
		vErr.add("equipment", "equipment is not accepting reservations")
	}

	if equipment.RequiresTraining && !params.Principal.TrainingCompleted {
		vErr.add("training", "equipment requires completed training")
	}

	if params.Recurring.IsRecurring && params.Recurring.Pattern == "" {
		vErr.add("recurring_pattern", "recurring reservations need a pattern")
	}

	return vErr
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var tErr *gateway.TransportError
	if errors.As(err, &tErr) && tErr.StatusCode == 404 {
		return ErrNotFound
	}
	return err
}
