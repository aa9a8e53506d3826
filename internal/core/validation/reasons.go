package validation

import "fmt"

// =============================================================================
// Rejection Reasons
// =============================================================================

// Reason identifies the rule that rejected a move.
type Reason string

const (
	ReasonUnknownBay                Reason = "UnknownBay"
	ReasonUnknownRow                Reason = "UnknownRow"
	ReasonTierOutOfRange            Reason = "TierOutOfRange"
	ReasonSlotOccupied              Reason = "SlotOccupied"
	ReasonRowWeightExceeded         Reason = "RowWeightExceeded"
	ReasonReeferZoneRequired        Reason = "ReeferZoneRequired"
	ReasonPodOrderViolationBelow    Reason = "PodOrderViolationBelow"
	ReasonWeightStackViolationAbove Reason = "WeightStackViolationAbove"
	ReasonWeightStackViolationBelow Reason = "WeightStackViolationBelow"
	ReasonHazardIsolationViolation  Reason = "HazardIsolationViolation"
	ReasonAdjacentHazardViolation   Reason = "AdjacentHazardViolation"

	// ReasonUnknownContainer is reported by the move executor, never by ValidateMove.
	ReasonUnknownContainer Reason = "UnknownContainer"
)

// Reasons lists every rejection reason in rule order.
func Reasons() []Reason {
	return []Reason{
		ReasonUnknownBay,
		ReasonUnknownRow,
		ReasonTierOutOfRange,
		ReasonSlotOccupied,
		ReasonRowWeightExceeded,
		ReasonReeferZoneRequired,
		ReasonPodOrderViolationBelow,
		ReasonWeightStackViolationAbove,
		ReasonWeightStackViolationBelow,
		ReasonHazardIsolationViolation,
		ReasonAdjacentHazardViolation,
		ReasonUnknownContainer,
	}
}

// IsValid checks if the reason is a known rejection reason.
func (r Reason) IsValid() bool {
	for _, known := range Reasons() {
		if r == known {
			return true
		}
	}
	return false
}

// =============================================================================
// Decision
// =============================================================================

// Rejection explains why a move was refused.
type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`

	// Target is the location code of the proposed slot, empty when the
	// target cannot be encoded.
	Target string `json:"target,omitempty"`

	// BlockingContainerID and BlockingLocation name the occupant that
	// triggered the rule, when there is one.
	BlockingContainerID string `json:"blocking_container_id,omitempty"`
	BlockingLocation    string `json:"blocking_location,omitempty"`

	// Observed and Limit carry the compared quantities for weight rules.
	Observed float64 `json:"observed,omitempty"`
	Limit    float64 `json:"limit,omitempty"`
}

// Error makes a Rejection printable where an error is expected (CLI output).
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// Decision is the outcome of validating a move.
type Decision struct {
	Accepted  bool       `json:"accepted"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

// Accept returns an accepting decision.
func Accept() Decision {
	return Decision{Accepted: true}
}

// Reject returns a rejecting decision.
func Reject(r Rejection) Decision {
	return Decision{Rejection: &r}
}

// Reason returns the rejection reason, or "" when accepted.
func (d Decision) Reason() Reason {
	if d.Rejection == nil {
		return ""
	}
	return d.Rejection.Reason
}
