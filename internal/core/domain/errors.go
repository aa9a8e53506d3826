package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Grid Errors
// =============================================================================

var (
	// ErrPlanIntegrity is wrapped by every PlanIntegrityError.
	ErrPlanIntegrity = errors.New("plan integrity error")

	// ErrUnknownContainer is returned when a container has no assignment.
	ErrUnknownContainer = errors.New("unknown container")

	// ErrSlotOccupied is returned when a slot already holds a different container.
	ErrSlotOccupied = errors.New("slot occupied")

	// ErrUnknownSlot is returned when a slot reference is outside the grid.
	ErrUnknownSlot = errors.New("slot does not exist in grid")

	// ErrStaleAssignment is returned when the caller's view of a container's
	// location no longer matches the grid.
	ErrStaleAssignment = errors.New("container is no longer at the expected location")
)

// PlanIntegrityError reports structurally invalid plan data.
// It aborts loading; partially built grids are discarded.
type PlanIntegrityError struct {
	Subject string // What was being checked (e.g., "bay 03", "assignment C1")
	Reason  string
}

func (e *PlanIntegrityError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("plan integrity: %s", e.Reason)
	}
	return fmt.Sprintf("plan integrity: %s: %s", e.Subject, e.Reason)
}

func (e *PlanIntegrityError) Unwrap() error {
	return ErrPlanIntegrity
}

func integrityErr(subject, format string, args ...any) *PlanIntegrityError {
	return &PlanIntegrityError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// GridError wraps a grid operation failure with the slot and container involved.
type GridError struct {
	Op          string
	ContainerID string
	Location    string
	Err         error
}

func (e *GridError) Error() string {
	return fmt.Sprintf("%s %s at %s: %v", e.Op, e.ContainerID, e.Location, e.Err)
}

func (e *GridError) Unwrap() error {
	return e.Err
}
