package store

import (
	"context"
	"time"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for loaded plans and their move journal.
type Store interface {
	// Plan operations
	CreatePlan(ctx context.Context, plan *Plan) error
	GetPlan(ctx context.Context, id string) (*Plan, error)
	DeletePlan(ctx context.Context, id string) error
	ListPlans(ctx context.Context, opts ListOptions) ([]Plan, error)

	// Move journal operations
	AppendMove(ctx context.Context, move *Move) error
	ListMoves(ctx context.Context, planID string, opts ListOptions) ([]Move, error)
	ListAcceptedMoves(ctx context.Context, planID string) ([]Move, error)
	CountMoves(ctx context.Context, planID string) (int, error)
	DeleteMove(ctx context.Context, planID string, seq int) error

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Entities
// =============================================================================

// Plan is a loaded plan document as it was submitted.
type Plan struct {
	ID        string
	VesselID  string
	Format    string // "json" or "yaml"
	Document  []byte
	CreatedAt time.Time
}

// Move is one journaled move attempt. Seq is assigned by the caller and is
// unique per plan; replaying accepted moves in Seq order rebuilds the plan.
type Move struct {
	ID          string
	PlanID      string
	Seq         int
	ContainerID string
	FromCode    string
	ToBay       string
	ToRow       string
	ToTier      int
	ToCode      string
	Accepted    bool
	Reason      string
	Message     string
	ReStows     int
	CreatedAt   time.Time
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
