// Package session owns loaded plans and serializes access to them.
// This is part of the Imperative Shell: it wraps the pure executor with
// locking, journaling, metrics and logging.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/executor"
	"github.com/artpar/stowage/internal/core/location"
	"github.com/artpar/stowage/internal/core/planfile"
	"github.com/artpar/stowage/internal/core/validation"
	"github.com/artpar/stowage/internal/shell/metrics"
	"github.com/artpar/stowage/internal/shell/store"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrPlanNotFound is returned when no session exists for a plan ID.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrJournalWrite is returned when a move could not be recorded. The move
	// is not applied.
	ErrJournalWrite = errors.New("move journal write failed")
)

// =============================================================================
// Session
// =============================================================================

// Summary describes a loaded plan.
type Summary struct {
	ID         string          `json:"id"`
	VesselID   string          `json:"vessel_id"`
	Capacity   domain.Capacity `json:"capacity"`
	Bays       int             `json:"bays"`
	Containers int             `json:"containers"`
	Metrics    domain.Metrics  `json:"metrics"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Session owns the grid of one plan. Readers share the lock; a move holds it
// exclusively from validation through the journal write and the apply.
type Session struct {
	id        string
	createdAt time.Time

	mu   sync.RWMutex
	grid *domain.Grid
	seq  int

	exec    *executor.Executor
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// ID returns the plan ID.
func (s *Session) ID() string {
	return s.id
}

// Summary returns the plan summary.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.grid.Vessel()
	return Summary{
		ID:         s.id,
		VesselID:   v.ID,
		Capacity:   v.Capacity,
		Bays:       len(s.grid.Bays()),
		Containers: s.grid.Len(),
		Metrics:    s.grid.Metrics(),
		CreatedAt:  s.createdAt,
	}
}

// Validate decides a move without applying it.
func (s *Session) Validate(containerID string, to location.Ref) validation.Decision {
	s.mu.RLock()
	d := s.exec.Validate(s.grid, containerID, to)
	s.mu.RUnlock()

	s.metrics.RecordDecision(metrics.OpValidate, d.Accepted, string(d.Reason()))
	return d
}

// Move validates, journals and applies a move as one critical section, so
// journal order equals apply order and the journal never trails the grid.
//
// Rejections are returned in the result with a nil error. A non-nil error
// means either the journal write failed (ErrJournalWrite) and the grid is
// unchanged, or the grid refused an accepted move.
func (s *Session) Move(ctx context.Context, containerID string, to location.Ref) (executor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := ""
	if a, ok := s.grid.AssignmentOf(containerID); ok {
		from = a.Code
	}

	start := time.Now()
	pending, err := s.exec.Prepare(s.grid, containerID, to)
	if err != nil {
		s.logger.Error("accepted move refused by grid",
			"plan_id", s.id,
			"container_id", containerID,
			"error", err,
		)
		return executor.Result{Decision: pending.Decision, Metrics: s.grid.Metrics()}, err
	}

	seq, err := s.journal(ctx, containerID, from, to, pending)
	if err != nil {
		s.metrics.JournalErrors.Inc()
		s.logger.Error("failed to journal move",
			"plan_id", s.id,
			"container_id", containerID,
			"error", err,
		)
		return executor.Result{Decision: pending.Decision, Metrics: s.grid.Metrics()}, fmt.Errorf("%w: %v", ErrJournalWrite, err)
	}

	reason := string(pending.Decision.Reason())
	s.metrics.RecordDecision(metrics.OpMove, pending.Decision.Accepted, reason)
	if !pending.Decision.Accepted {
		s.logger.Debug("move rejected",
			"plan_id", s.id,
			"container_id", containerID,
			"to", to.String(),
			"reason", reason,
		)
		return executor.Result{Decision: pending.Decision, Metrics: s.grid.Metrics()}, nil
	}

	res, err := s.exec.Move(s.grid, containerID, to)
	if err == nil && !res.Applied() {
		err = fmt.Errorf("journaled move of %s to %s was not applied: %s", containerID, to, res.Decision.Reason())
	}
	if err != nil {
		s.logger.Error("accepted move refused by grid",
			"plan_id", s.id,
			"container_id", containerID,
			"error", err,
		)
		s.unjournal(ctx, seq)
		return res, err
	}

	s.metrics.RecordApplied(res.Effect.ReStows, time.Since(start))
	s.logger.Info("move applied",
		"plan_id", s.id,
		"container_id", containerID,
		"to", to.String(),
		"restows", res.Effect.ReStows,
		"total_moves", res.Metrics.TotalMoves,
	)
	return res, nil
}

// journal records a decided move and returns its sequence number.
func (s *Session) journal(ctx context.Context, containerID, from string, to location.Ref, p executor.Pending) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	m := &store.Move{
		PlanID:      s.id,
		Seq:         s.seq + 1,
		ContainerID: containerID,
		FromCode:    from,
		ToBay:       to.Bay,
		ToRow:       to.Row,
		ToTier:      to.Tier,
		Accepted:    p.Decision.Accepted,
	}
	if code, err := to.Code(); err == nil {
		m.ToCode = code
	}
	if p.Decision.Accepted {
		m.ReStows = p.Effect.ReStows
	}
	if rej := p.Decision.Rejection; rej != nil {
		m.Reason = string(rej.Reason)
		m.Message = rej.Message
	}

	if err := s.store.AppendMove(ctx, m); err != nil {
		return 0, err
	}
	s.seq = m.Seq
	return m.Seq, nil
}

// unjournal removes the row of a move the grid refused after it was
// recorded, so replay never sees it.
func (s *Session) unjournal(ctx context.Context, seq int) {
	if s.store == nil {
		return
	}
	if err := s.store.DeleteMove(ctx, s.id, seq); err != nil {
		s.metrics.JournalErrors.Inc()
		s.logger.Error("failed to remove journaled move",
			"plan_id", s.id,
			"seq", seq,
			"error", err,
		)
		return
	}
	s.seq = seq - 1
}

// Projection returns the render model of the plan.
func (s *Session) Projection() []domain.BayView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.Projection()
}

// Metrics returns the plan's running counters.
func (s *Session) Metrics() domain.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.Metrics()
}

// Export returns the current plan as a document.
func (s *Session) Export() *planfile.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return planfile.Export(s.grid)
}

// CheckInvariants verifies the grid's structural invariants.
func (s *Session) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.CheckInvariants()
}

// CheckPlacement reports standing placements that break a stacking rule
// under the session's validator options.
func (s *Session) CheckPlacement() []validation.Violation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exec.Validator().CheckPlacement(s.grid)
}

// Journal lists recorded move attempts. Without a store it returns nothing.
func (s *Session) Journal(ctx context.Context, opts store.ListOptions) ([]store.Move, error) {
	if s.store == nil {
		return []store.Move{}, nil
	}
	return s.store.ListMoves(ctx, s.id, opts)
}

// JournalLen returns the number of recorded move attempts.
func (s *Session) JournalLen(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.CountMoves(ctx, s.id)
}
