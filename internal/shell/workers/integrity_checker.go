// Package workers contains background workers for the stowage service.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/stowage/internal/core/validation"
	"github.com/artpar/stowage/internal/shell/metrics"
	"github.com/artpar/stowage/internal/shell/session"
)

// Plan is a loaded plan whose grid invariants and standing placement can be
// checked.
type Plan interface {
	ID() string
	CheckInvariants() error
	CheckPlacement() []validation.Violation
}

// PlanLister returns the plans to check in one cycle.
type PlanLister func() []Plan

// RegistryPlans lists every session held by a registry.
func RegistryPlans(r *session.Registry) PlanLister {
	return func() []Plan {
		sessions := r.Sessions()
		out := make([]Plan, len(sessions))
		for i, s := range sessions {
			out[i] = s
		}
		return out
	}
}

// IntegrityCheckerConfig configures the integrity checker worker.
type IntegrityCheckerConfig struct {
	// Interval is the time between check cycles.
	// Default: 60 seconds.
	Interval time.Duration

	// MaxConcurrent is the maximum number of plans checked at once.
	// Default: 4.
	MaxConcurrent int
}

// DefaultIntegrityCheckerConfig returns the default configuration.
func DefaultIntegrityCheckerConfig() IntegrityCheckerConfig {
	return IntegrityCheckerConfig{
		Interval:      60 * time.Second,
		MaxConcurrent: 4,
	}
}

// IntegrityChecker periodically re-verifies the grid invariants of every
// loaded plan. A failure means an accepted move left the grid inconsistent;
// it is logged and counted but the plan stays loaded.
//
// Plans whose invariants hold are also swept for stacking rule breaches
// (discharge order, weight stacking, hazard isolation). Those are warnings:
// a plan may be loaded that way, and only moves are held to the rules.
type IntegrityChecker struct {
	plans   PlanLister
	metrics *metrics.Metrics
	config  IntegrityCheckerConfig
	logger  *slog.Logger

	mu      sync.Mutex
	failing map[string]bool
	warned  map[string]bool

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIntegrityChecker creates a new integrity checker worker.
func NewIntegrityChecker(
	plans PlanLister,
	m *metrics.Metrics,
	config IntegrityCheckerConfig,
	logger *slog.Logger,
) *IntegrityChecker {
	if config.Interval == 0 {
		config.Interval = 60 * time.Second
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 4
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IntegrityChecker{
		plans:   plans,
		metrics: m,
		config:  config,
		logger:  logger.With("component", "integrity_checker"),
		failing: make(map[string]bool),
		warned:  make(map[string]bool),
	}
}

// Start begins the checker's background goroutine.
func (c *IntegrityChecker) Start() {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go c.run()

	c.logger.Info("integrity checker started",
		"interval", c.config.Interval,
		"max_concurrent", c.config.MaxConcurrent,
	)
}

// Stop stops the checker and waits for an in-progress cycle.
func (c *IntegrityChecker) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("integrity checker stopped")
}

func (c *IntegrityChecker) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.runCycle(c.ctx)
		}
	}
}

// runCycle checks every listed plan and returns how many failed.
func (c *IntegrityChecker) runCycle(ctx context.Context) int {
	plans := c.plans()
	if len(plans) == 0 {
		c.logger.Debug("no plans to check")
		return 0
	}

	c.logger.Debug("starting integrity check cycle", "plan_count", len(plans))

	sem := make(chan struct{}, c.config.MaxConcurrent)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, p := range plans {
		wg.Add(1)
		go func(p Plan) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			if !c.checkPlan(p) {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(p)
	}

	wg.Wait()
	c.forgetRemoved(plans)
	c.logger.Debug("completed integrity check cycle", "plan_count", len(plans), "failed", failed)
	return failed
}

// checkPlan verifies one plan and logs state changes.
func (c *IntegrityChecker) checkPlan(p Plan) bool {
	err := p.CheckInvariants()
	c.metrics.RecordIntegrity(err == nil)

	var violations []validation.Violation
	if err == nil {
		violations = p.CheckPlacement()
		if len(violations) > 0 {
			c.metrics.RecordPlacementWarning()
		}
	}

	c.mu.Lock()
	wasFailing := c.failing[p.ID()]
	wasWarned := c.warned[p.ID()]
	c.failing[p.ID()] = err != nil
	c.warned[p.ID()] = len(violations) > 0
	c.mu.Unlock()

	logger := c.logger.With("plan_id", p.ID())
	switch {
	case err != nil && !wasFailing:
		logger.Error("plan invariants violated", "error", err)
	case err == nil && wasFailing:
		logger.Info("plan invariants restored")
	}
	switch {
	case len(violations) > 0 && !wasWarned:
		first := violations[0]
		logger.Warn("plan placement breaks stacking rules",
			"violations", len(violations),
			"container_id", first.ContainerID,
			"reason", string(first.Rejection.Reason),
			"message", first.Rejection.Message,
		)
	case len(violations) == 0 && wasWarned && err == nil:
		logger.Info("plan placement satisfies stacking rules")
	}
	return err == nil
}

func (c *IntegrityChecker) forgetRemoved(plans []Plan) {
	live := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		live[p.ID()] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.failing {
		if _, ok := live[id]; !ok {
			delete(c.failing, id)
			delete(c.warned, id)
		}
	}
}

// CheckAllNow runs one cycle immediately and returns the number of plans
// whose invariants do not hold.
func (c *IntegrityChecker) CheckAllNow(ctx context.Context) int {
	return c.runCycle(ctx)
}

// Warned returns the IDs of plans whose last check found stacking rule
// breaches.
func (c *IntegrityChecker) Warned() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for id, w := range c.warned {
		if w {
			out = append(out, id)
		}
	}
	return out
}

// Failing returns the IDs of plans that failed their last check.
func (c *IntegrityChecker) Failing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for id, bad := range c.failing {
		if bad {
			out = append(out, id)
		}
	}
	return out
}
