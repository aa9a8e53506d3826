package api

import (
	"time"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/location"
	"github.com/artpar/stowage/internal/core/planfile"
	"github.com/artpar/stowage/internal/core/validation"
)

// =============================================================================
// Request Types
// =============================================================================

// MoveRequest is the request body for validating or applying a move.
// Bay and row accept JSON strings or numbers, like the plan document.
type MoveRequest struct {
	ContainerID string          `json:"containerId"`
	TargetBay   planfile.Scalar `json:"targetBay"`
	TargetRow   planfile.Scalar `json:"targetRow"`
	TargetTier  int             `json:"targetTier"`
}

// Target returns the slot reference of the request.
func (r MoveRequest) Target() location.Ref {
	return location.Ref{Bay: string(r.TargetBay), Row: string(r.TargetRow), Tier: r.TargetTier}
}

// check returns a message for the first missing field, or "".
// Out-of-range targets are left to the validator so they come back as
// rejections rather than request errors.
func (r MoveRequest) check() string {
	switch {
	case r.ContainerID == "":
		return "containerId is required"
	case r.TargetBay == "":
		return "targetBay is required"
	case r.TargetRow == "":
		return "targetRow is required"
	}
	return ""
}

// =============================================================================
// Response Types
// =============================================================================

// PlanResponse summarizes a loaded plan.
type PlanResponse struct {
	ID         string          `json:"id"`
	VesselID   string          `json:"vessel_id"`
	Capacity   domain.Capacity `json:"capacity"`
	Bays       int             `json:"bays"`
	Containers int             `json:"containers"`
	Metrics    domain.Metrics  `json:"metrics"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PlanListResponse is the response for listing plans.
type PlanListResponse struct {
	Plans []PlanResponse `json:"plans"`
	Total int            `json:"total"`
}

// DecisionResponse is the response for a validate request.
type DecisionResponse struct {
	Accepted  bool                  `json:"accepted"`
	Reason    validation.Reason     `json:"reason,omitempty"`
	Message   string                `json:"message,omitempty"`
	Rejection *validation.Rejection `json:"rejection,omitempty"`
}

// MoveResponse is the response for a move request.
type MoveResponse struct {
	DecisionResponse
	Effect  *domain.MoveEffect `json:"effect,omitempty"`
	Metrics domain.Metrics     `json:"metrics"`
}

// BaysResponse is the render projection of a plan.
type BaysResponse struct {
	PlanID string           `json:"plan_id"`
	Bays   []domain.BayView `json:"bays"`
}

// MetricsResponse holds a plan's running counters.
type MetricsResponse struct {
	PlanID string `json:"plan_id"`
	domain.Metrics
}

// JournalEntryResponse is one recorded move attempt.
type JournalEntryResponse struct {
	Seq         int       `json:"seq"`
	ContainerID string    `json:"container_id"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	ToBay       string    `json:"to_bay"`
	ToRow       string    `json:"to_row"`
	ToTier      int       `json:"to_tier"`
	Accepted    bool      `json:"accepted"`
	Reason      string    `json:"reason,omitempty"`
	Message     string    `json:"message,omitempty"`
	ReStows     int       `json:"restows"`
	CreatedAt   time.Time `json:"created_at"`
}

// JournalResponse is the response for listing a plan's moves.
type JournalResponse struct {
	PlanID string                 `json:"plan_id"`
	Moves  []JournalEntryResponse `json:"moves"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// HealthResponse is the response for health checks.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for readiness checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decisionResponse(accepted bool, rej *validation.Rejection) DecisionResponse {
	resp := DecisionResponse{Accepted: accepted, Rejection: rej}
	if rej != nil {
		resp.Reason = rej.Reason
		resp.Message = rej.Message
	}
	return resp
}
