package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stowage/internal/core/planfile"
	"github.com/artpar/stowage/internal/core/validation"
	"github.com/artpar/stowage/internal/shell/metrics"
	"github.com/artpar/stowage/internal/shell/session"
)

// =============================================================================
// Test Helpers
// =============================================================================

type stubPlan struct {
	id         string
	mu         sync.Mutex
	err        error
	violations []validation.Violation
	calls      atomic.Int32
}

func (p *stubPlan) ID() string { return p.id }

func (p *stubPlan) CheckInvariants() error {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubPlan) CheckPlacement() []validation.Violation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.violations
}

func (p *stubPlan) setViolations(v []validation.Violation) {
	p.mu.Lock()
	p.violations = v
	p.mu.Unlock()
}

func (p *stubPlan) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func listOf(plans ...Plan) PlanLister {
	return func() []Plan { return plans }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Test Configuration
// =============================================================================

func TestDefaultIntegrityCheckerConfig(t *testing.T) {
	config := DefaultIntegrityCheckerConfig()

	assert.Equal(t, 60*time.Second, config.Interval)
	assert.Equal(t, 4, config.MaxConcurrent)
}

func TestNewIntegrityChecker_DefaultConfig(t *testing.T) {
	c := NewIntegrityChecker(listOf(), nil, IntegrityCheckerConfig{}, nil)

	assert.Equal(t, 60*time.Second, c.config.Interval)
	assert.Equal(t, 4, c.config.MaxConcurrent)
	assert.NotNil(t, c.metrics)
}

// =============================================================================
// Test Lifecycle
// =============================================================================

func TestIntegrityChecker_StartStop(t *testing.T) {
	p := &stubPlan{id: "p1"}
	c := NewIntegrityChecker(listOf(p), nil, IntegrityCheckerConfig{
		Interval: 10 * time.Millisecond,
	}, quietLogger())

	c.Start()
	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	c.Stop()

	// Should be able to start again
	c.Start()
	c.Stop()
}

func TestIntegrityChecker_StopWithoutStart(t *testing.T) {
	c := NewIntegrityChecker(listOf(), nil, IntegrityCheckerConfig{}, quietLogger())
	c.Stop()
}

// =============================================================================
// Test Check Cycle
// =============================================================================

func TestIntegrityChecker_CheckAllNow(t *testing.T) {
	m := metrics.New(nil)
	good := &stubPlan{id: "good"}
	bad := &stubPlan{id: "bad", err: errors.New("two codes for one container")}

	c := NewIntegrityChecker(listOf(good, bad), m, IntegrityCheckerConfig{}, quietLogger())

	failed := c.CheckAllNow(context.Background())
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"bad"}, c.Failing())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntegrityChecks.WithLabelValues(metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntegrityChecks.WithLabelValues(metrics.ResultFailed)))

	bad.setErr(nil)
	assert.Zero(t, c.CheckAllNow(context.Background()))
	assert.Empty(t, c.Failing())
}

func TestIntegrityChecker_PlacementWarnings(t *testing.T) {
	stacked := []validation.Violation{{
		ContainerID: "HEAVY",
		Rejection: validation.Rejection{
			Reason:  validation.ReasonWeightStackViolationBelow,
			Message: "weight stacking: 20000kg container cannot go on top of LIGHT weighing 1000kg",
		},
	}}

	tests := []struct {
		name        string
		err         error
		violations  []validation.Violation
		wantFailed  int
		wantWarned  []string
		wantWarning float64
	}{
		{name: "clean plan", wantWarned: nil},
		{name: "stacking breach is only a warning", violations: stacked, wantWarned: []string{"p1"}, wantWarning: 1},
		{name: "broken invariants skip the sweep", err: errors.New("broken"), violations: stacked, wantFailed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(nil)
			p := &stubPlan{id: "p1", err: tt.err, violations: tt.violations}
			c := NewIntegrityChecker(listOf(p), m, IntegrityCheckerConfig{}, quietLogger())

			assert.Equal(t, tt.wantFailed, c.CheckAllNow(context.Background()))
			assert.Equal(t, tt.wantWarned, c.Warned())
			assert.Equal(t, tt.wantWarning, testutil.ToFloat64(m.IntegrityChecks.WithLabelValues(metrics.ResultWarning)))
		})
	}
}

func TestIntegrityChecker_PlacementWarningClears(t *testing.T) {
	p := &stubPlan{id: "p1", violations: []validation.Violation{{ContainerID: "H"}}}
	c := NewIntegrityChecker(listOf(p), nil, IntegrityCheckerConfig{}, quietLogger())

	c.CheckAllNow(context.Background())
	require.Equal(t, []string{"p1"}, c.Warned())

	p.setViolations(nil)
	c.CheckAllNow(context.Background())
	assert.Empty(t, c.Warned())
}

func TestIntegrityChecker_NoPlans(t *testing.T) {
	m := metrics.New(nil)
	c := NewIntegrityChecker(listOf(), m, IntegrityCheckerConfig{}, quietLogger())

	assert.Zero(t, c.CheckAllNow(context.Background()))
	assert.Zero(t, testutil.CollectAndCount(m.IntegrityChecks))
}

func TestIntegrityChecker_ForgetsRemovedPlans(t *testing.T) {
	bad := &stubPlan{id: "bad", err: errors.New("broken")}
	plans := []Plan{bad}
	c := NewIntegrityChecker(func() []Plan { return plans }, nil, IntegrityCheckerConfig{}, quietLogger())

	c.CheckAllNow(context.Background())
	require.Equal(t, []string{"bad"}, c.Failing())

	plans = nil
	c.CheckAllNow(context.Background())
	assert.Empty(t, c.Failing())
}

func TestIntegrityChecker_ConcurrencyLimit(t *testing.T) {
	var (
		active  atomic.Int32
		maxSeen atomic.Int32
	)
	plans := make([]Plan, 0, 10)
	for i := 0; i < 10; i++ {
		plans = append(plans, &slowPlan{id: string(rune('a' + i)), active: &active, maxSeen: &maxSeen})
	}

	c := NewIntegrityChecker(listOf(plans...), nil, IntegrityCheckerConfig{MaxConcurrent: 2}, quietLogger())
	assert.Zero(t, c.CheckAllNow(context.Background()))
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestIntegrityChecker_CancelledContext(t *testing.T) {
	p := &stubPlan{id: "p1"}
	c := NewIntegrityChecker(listOf(p), nil, IntegrityCheckerConfig{MaxConcurrent: 1}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled cycle may skip the plan but never fails it.
	assert.Zero(t, c.CheckAllNow(ctx))
	assert.LessOrEqual(t, p.calls.Load(), int32(1))
}

type slowPlan struct {
	id      string
	active  *atomic.Int32
	maxSeen *atomic.Int32
}

func (p *slowPlan) ID() string { return p.id }

func (p *slowPlan) CheckPlacement() []validation.Violation { return nil }

func (p *slowPlan) CheckInvariants() error {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return nil
}

// =============================================================================
// Test Registry Adapter
// =============================================================================

func TestRegistryPlans(t *testing.T) {
	reg := session.NewRegistry(nil, nil, session.DefaultConfig(), quietLogger())
	s, err := reg.Load(context.Background(), []byte(`{
	  "vesselId": "W-1",
	  "bayDetails": [{"bayNumber": "01", "rows": [{"rowNumber": "01", "maxTiers": 2, "maxWeightKg": 1000}]}],
	  "assignment": [{"containerId": "A", "bay": "01", "row": "01", "tier": 2, "pod": "1", "weightKg": 10}]
	}`), planfile.FormatJSON)
	require.NoError(t, err)

	plans := RegistryPlans(reg)()
	require.Len(t, plans, 1)
	assert.Equal(t, s.ID(), plans[0].ID())

	c := NewIntegrityChecker(RegistryPlans(reg), nil, IntegrityCheckerConfig{}, quietLogger())
	assert.Zero(t, c.CheckAllNow(context.Background()))
	assert.Empty(t, c.Warned())
}

func TestRegistryPlans_StackingBreachIsWarned(t *testing.T) {
	reg := session.NewRegistry(nil, nil, session.DefaultConfig(), quietLogger())
	s, err := reg.Load(context.Background(), []byte(`{
	  "vesselId": "W-2",
	  "bayDetails": [{"bayNumber": "01", "rows": [{"rowNumber": "01", "maxTiers": 2, "maxWeightKg": 30000}]}],
	  "assignment": [
	    {"containerId": "LATE", "bay": "01", "row": "01", "tier": 1, "pod": "2", "weightKg": 10},
	    {"containerId": "EARLY", "bay": "01", "row": "01", "tier": 2, "pod": "1", "weightKg": 10}
	  ]
	}`), planfile.FormatJSON)
	require.NoError(t, err)

	c := NewIntegrityChecker(RegistryPlans(reg), nil, IntegrityCheckerConfig{}, quietLogger())
	assert.Zero(t, c.CheckAllNow(context.Background()))
	assert.Equal(t, []string{s.ID()}, c.Warned())
}
