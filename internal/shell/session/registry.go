package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/executor"
	"github.com/artpar/stowage/internal/core/location"
	"github.com/artpar/stowage/internal/core/planfile"
	"github.com/artpar/stowage/internal/core/validation"
	"github.com/artpar/stowage/internal/shell/metrics"
	"github.com/artpar/stowage/internal/shell/store"
)

// =============================================================================
// Registry
// =============================================================================

// Config holds the rule and cost settings applied to every plan.
type Config struct {
	Validation validation.Options
	Cost       domain.CostModel
}

// DefaultConfig returns per-occupant weight rules and the default cost model.
func DefaultConfig() Config {
	return Config{Cost: domain.DefaultCostModel()}
}

// Registry holds independent sessions keyed by plan ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg     Config
	exec    *executor.Executor
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
// st may be nil, in which case plans are neither persisted nor journaled.
func NewRegistry(st store.Store, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if cfg.Cost == (domain.CostModel{}) {
		cfg.Cost = domain.DefaultCostModel()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		exec:     executor.New(validation.New(cfg.Validation)),
		store:    st,
		metrics:  m,
		logger:   logger,
	}
}

// Load decodes and builds a plan document, persists it and registers a new
// session. Structural and integrity errors are returned unchanged so callers
// can match planfile.ErrInvalidRecord and domain.ErrPlanIntegrity.
func (r *Registry) Load(ctx context.Context, doc []byte, format planfile.Format) (*Session, error) {
	grid, err := r.build(doc, format)
	if err != nil {
		return nil, err
	}

	plan := &store.Plan{
		ID:        uuid.New().String(),
		VesselID:  grid.Vessel().ID,
		Format:    string(format),
		Document:  doc,
		CreatedAt: time.Now().UTC(),
	}
	if r.store != nil {
		if err := r.store.CreatePlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("persist plan: %w", err)
		}
	}

	s := r.register(plan.ID, plan.CreatedAt, grid, 0)
	r.logger.Info("plan loaded",
		"plan_id", plan.ID,
		"vessel_id", plan.VesselID,
		"containers", grid.Len(),
	)
	return s, nil
}

func (r *Registry) build(doc []byte, format planfile.Format) (*domain.Grid, error) {
	rec, err := planfile.Decode(bytes.NewReader(doc), format)
	if err != nil {
		return nil, err
	}
	return planfile.Build(rec, domain.WithCostModel(r.cfg.Cost))
}

func (r *Registry) register(id string, createdAt time.Time, grid *domain.Grid, seq int) *Session {
	s := &Session{
		id:        id,
		createdAt: createdAt,
		grid:      grid,
		seq:       seq,
		exec:      r.exec,
		store:     r.store,
		metrics:   r.metrics,
		logger:    r.logger.With("component", "session"),
	}

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.PlansLoaded.Set(float64(n))
	return s
}

// Get returns the session for a plan.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return s, nil
}

// List returns summaries of all sessions, oldest first.
func (r *Registry) List() []Summary {
	sessions := r.Sessions()
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Sessions returns every registered session in no particular order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Remove unregisters a plan and deletes it with its journal.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.PlansLoaded.Set(float64(n))
	if r.store != nil {
		if err := r.store.DeletePlan(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete plan: %w", err)
		}
	}
	r.logger.Info("plan removed", "plan_id", id)
	return nil
}

// Len returns the number of registered plans.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// =============================================================================
// Restore
// =============================================================================

// Restore rebuilds every persisted plan by loading its document and replaying
// its accepted moves in journal order. A plan whose replay no longer passes
// validation (for example after a rule change) is skipped and logged.
// Returns the number of restored plans.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	restored := 0
	opts := store.ListOptions{Limit: 1000}
	for {
		plans, err := r.store.ListPlans(ctx, opts)
		if err != nil {
			return restored, fmt.Errorf("list plans: %w", err)
		}
		for i := range plans {
			if err := r.restoreOne(ctx, &plans[i]); err != nil {
				if ctx.Err() != nil {
					return restored, ctx.Err()
				}
				r.logger.Warn("skipping plan that could not be restored",
					"plan_id", plans[i].ID,
					"error", err,
				)
				continue
			}
			restored++
		}
		if len(plans) < opts.Limit {
			break
		}
		opts.Offset += len(plans)
	}

	r.logger.Info("plans restored", "count", restored)
	return restored, nil
}

func (r *Registry) restoreOne(ctx context.Context, p *store.Plan) error {
	format, err := planfile.ParseFormat(p.Format)
	if err != nil {
		return err
	}
	grid, err := r.build(p.Document, format)
	if err != nil {
		return err
	}

	moves, err := r.store.ListAcceptedMoves(ctx, p.ID)
	if err != nil {
		return err
	}
	requests := make([]executor.Request, 0, len(moves))
	for _, m := range moves {
		requests = append(requests, executor.Request{
			ContainerID: m.ContainerID,
			To:          location.Ref{Bay: m.ToBay, Row: m.ToRow, Tier: m.ToTier},
		})
	}
	if _, err := r.exec.Replay(grid, requests); err != nil {
		return err
	}

	seq, err := r.lastSeq(ctx, p.ID)
	if err != nil {
		return err
	}
	r.register(p.ID, p.CreatedAt, grid, seq)
	return nil
}

// lastSeq returns the highest recorded sequence number of a plan.
func (r *Registry) lastSeq(ctx context.Context, planID string) (int, error) {
	n, err := r.store.CountMoves(ctx, planID)
	if err != nil || n == 0 {
		return 0, err
	}
	last, err := r.store.ListMoves(ctx, planID, store.ListOptions{Limit: 1, Offset: n - 1})
	if err != nil {
		return 0, err
	}
	if len(last) == 0 {
		return n, nil
	}
	return last[0].Seq, nil
}
