package executor

import (
	"errors"
	"fmt"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/location"
	"github.com/artpar/stowage/internal/core/validation"
)

// ErrReplayRejected is returned by Replay when a recorded move no longer
// passes validation.
var ErrReplayRejected = errors.New("replayed move rejected")

// Request is one proposed move.
type Request struct {
	ContainerID string       `json:"container_id"`
	To          location.Ref `json:"to"`
}

// Result is the outcome of a move attempt.
type Result struct {
	Decision validation.Decision `json:"decision"`

	// Effect is set only when the move was applied.
	Effect *domain.MoveEffect `json:"effect,omitempty"`

	// Metrics are the grid's counters after the attempt.
	Metrics domain.Metrics `json:"metrics"`
}

// Applied reports whether the move changed the grid's counters.
func (r Result) Applied() bool {
	return r.Effect != nil
}

// Executor runs moves with a fixed validator.
type Executor struct {
	validator *validation.Validator
}

// New creates an executor. A nil validator uses default options.
func New(v *validation.Validator) *Executor {
	if v == nil {
		v = validation.New(validation.Options{})
	}
	return &Executor{validator: v}
}

// Validator returns the validator used by the executor.
func (e *Executor) Validator() *validation.Validator {
	return e.validator
}

// Move validates moving containerID to the target slot and applies it when
// accepted. A container without a current assignment is rejected with
// UnknownContainer. Errors are reserved for a grid that refuses an accepted
// move, which means the grid and validator disagree.
func (e *Executor) Move(g *domain.Grid, containerID string, to location.Ref) (Result, error) {
	current, decision := e.check(g, containerID, to)
	if !decision.Accepted {
		return Result{Decision: decision, Metrics: g.Metrics()}, nil
	}

	from := current.Location
	effect, err := g.ApplyAssignment(containerID, &from, to)
	if err != nil {
		return Result{Decision: decision, Metrics: g.Metrics()}, fmt.Errorf("apply accepted move of %s to %s: %w", containerID, to, err)
	}
	return Result{Decision: decision, Effect: &effect, Metrics: g.Metrics()}, nil
}

// Pending is a decided move that has not been applied.
type Pending struct {
	Decision validation.Decision

	// Effect is what applying the move would do. Set only when accepted.
	Effect domain.MoveEffect
}

// Prepare decides a move and, when accepted, computes its effect without
// changing the grid. Move with the same arguments on the unchanged grid
// applies exactly that effect, so a caller can record the move first.
func (e *Executor) Prepare(g *domain.Grid, containerID string, to location.Ref) (Pending, error) {
	current, decision := e.check(g, containerID, to)
	if !decision.Accepted {
		return Pending{Decision: decision}, nil
	}

	from := current.Location
	effect, err := g.PreviewAssignment(containerID, &from, to)
	if err != nil {
		return Pending{Decision: decision}, fmt.Errorf("apply accepted move of %s to %s: %w", containerID, to, err)
	}
	return Pending{Decision: decision, Effect: effect}, nil
}

// Validate decides a move for an assigned container without applying it.
// A container without a current assignment is rejected with UnknownContainer.
func (e *Executor) Validate(g *domain.Grid, containerID string, to location.Ref) validation.Decision {
	_, decision := e.check(g, containerID, to)
	return decision
}

func (e *Executor) check(g *domain.Grid, containerID string, to location.Ref) (domain.Assignment, validation.Decision) {
	current, ok := g.AssignmentOf(containerID)
	if !ok {
		return current, validation.Reject(validation.Rejection{
			Reason:  validation.ReasonUnknownContainer,
			Message: fmt.Sprintf("container %s has no current assignment on vessel %s", containerID, g.Vessel().ID),
		})
	}
	return current, e.validator.ValidateMove(g, current.Container, to)
}

// Replay applies requests in order. It stops at the first rejection and
// returns the results so far together with ErrReplayRejected.
func (e *Executor) Replay(g *domain.Grid, requests []Request) ([]Result, error) {
	results := make([]Result, 0, len(requests))
	for i, req := range requests {
		res, err := e.Move(g, req.ContainerID, req.To)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if !res.Decision.Accepted {
			return results, fmt.Errorf("move %d (%s to %s): %s: %w",
				i+1, req.ContainerID, req.To, res.Decision.Reason(), ErrReplayRejected)
		}
	}
	return results, nil
}

// Move runs a single move with default validator options.
func Move(g *domain.Grid, containerID string, to location.Ref) (Result, error) {
	return New(nil).Move(g, containerID, to)
}
