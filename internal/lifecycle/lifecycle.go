// Package lifecycle governs reservation status transitions. The gateway is
// authoritative for time-based progression (confirmed to active to completed);
// the client itself only ever initiates cancellation. Either way, every status
// change flows through Transition so contract violations surface as errors
// instead of silently corrupting state.
package lifecycle

import (
	"errors"
	"fmt"
)

// Status enumerates the reservation lifecycle states reported by the gateway.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var (
	// ErrIllegalTransition indicates a transition outside the permitted set.
	ErrIllegalTransition = errors.New("lifecycle: illegal status transition")
	// ErrTerminalState indicates an attempt to leave a terminal status.
	ErrTerminalState = errors.New("lifecycle: reservation is in a terminal state")
	// ErrUnknownStatus indicates a status value outside the enumeration.
	ErrUnknownStatus = errors.New("lifecycle: unknown status")
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled, StatusNoShow},
	StatusActive:    {StatusCompleted},
	StatusCompleted: nil,
	StatusCancelled: nil,
	StatusNoShow:    nil,
}

// Valid reports whether s is a member of the status enumeration.
func Valid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// Parse converts a wire status string into a Status.
func Parse(value string) (Status, error) {
	s := Status(value)
	if !Valid(s) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return s, nil
}

// IsTerminal reports whether the status permits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Blocks reports whether a reservation in this status occupies its time window
// for conflict purposes. Only confirmed and active reservations block a slot.
func (s Status) Blocks() bool {
	return s == StatusConfirmed || s == StatusActive
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change. Terminal statuses reject every change
// with ErrTerminalState; all other disallowed moves fail with
// ErrIllegalTransition. A no-op transition onto the same status is rejected
// through the same rules, so callers wanting idempotent cancellation must
// check for it before calling.
func Transition(from, to Status) (Status, error) {
	if !Valid(from) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !Valid(to) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if IsTerminal(from) {
		return "", fmt.Errorf("%w: %s -> %s", ErrTerminalState, from, to)
	}
	if !CanTransition(from, to) {
		return "", fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, nil
}
