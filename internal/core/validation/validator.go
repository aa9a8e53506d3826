package validation

import (
	"fmt"

	"github.com/artpar/stowage/internal/core/adjacency"
	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/location"
)

// =============================================================================
// Validator
// =============================================================================

// Options tune optional rules.
type Options struct {
	// CumulativeColumnWeight additionally rejects a move when the column's
	// total weight, including the moving container, would exceed the row
	// ceiling. Off by default: the ceiling applies per occupant.
	CumulativeColumnWeight bool
}

// Validator evaluates the rule set with fixed options.
type Validator struct {
	opts Options
}

// New creates a validator.
func New(opts Options) *Validator {
	return &Validator{opts: opts}
}

// Options returns the validator options.
func (v *Validator) Options() Options {
	return v.opts
}

// ValidateMove validates a move with default options.
func ValidateMove(g *domain.Grid, c domain.Container, target location.Ref) Decision {
	return New(Options{}).ValidateMove(g, c, target)
}

// ValidateMove decides whether container c may occupy target.
// The grid is only read.
func (v *Validator) ValidateMove(g *domain.Grid, c domain.Container, target location.Ref) Decision {
	mc := &moveContext{grid: g, container: c, target: target, opts: v.opts}
	for _, r := range moveRules {
		if rej := r.check(mc); rej != nil {
			if rej.Target == "" {
				rej.Target = mc.targetCode
			}
			return Reject(*rej)
		}
	}
	return Accept()
}

// =============================================================================
// Standing Placement
// =============================================================================

// Violation is a current placement that breaks a stacking rule.
type Violation struct {
	ContainerID string    `json:"container_id"`
	Rejection   Rejection `json:"rejection"`
}

// placementRules re-check containers where they stand. Stacked pairs are
// judged once, from the upper container; hazard pairs once, from the
// hazardous container.
var placementRules = []moveRule{
	{name: "weight_ceiling", check: checkWeightCeiling},
	{name: "pod_below", check: checkPodBelow},
	{name: "weight_below", check: checkWeightBelow},
	{name: "hazard_self", check: checkHazardSelf},
}

// CheckPlacement sweeps every column and neighbourhood of the grid and
// reports placements that a move into the same slot would be refused for.
// Loaded plans are not required to satisfy the stacking rules, so these are
// findings rather than integrity errors. The grid is only read.
func (v *Validator) CheckPlacement(g *domain.Grid) []Violation {
	var out []Violation
	for _, a := range g.Assignments() {
		mc := &moveContext{grid: g, container: a.Container, target: a.Location, opts: v.opts}
		if checkExistence(mc) != nil || checkBounds(mc) != nil {
			continue
		}
		for _, r := range placementRules {
			if rej := r.check(mc); rej != nil {
				rej.Target = mc.targetCode
				out = append(out, Violation{ContainerID: a.Container.ID, Rejection: *rej})
			}
		}
	}
	return out
}

// =============================================================================
// Rule Context
// =============================================================================

// moveContext carries what earlier rules resolved to the later ones.
type moveContext struct {
	grid       *domain.Grid
	container  domain.Container
	target     location.Ref
	opts       Options
	bay        domain.Bay
	row        domain.Row
	targetCode string
	column     []domain.Slot
	neighbors  []adjacency.Neighbor
}

// above returns occupied slots physically above the target (smaller tier).
func (mc *moveContext) above() []domain.Slot {
	var out []domain.Slot
	for _, s := range mc.column {
		if s.Ref.Tier < mc.target.Tier && s.Occupied() && !s.HeldBy(mc.container.ID) {
			out = append(out, s)
		}
	}
	return out
}

// below returns occupied slots physically below the target (larger tier).
func (mc *moveContext) below() []domain.Slot {
	var out []domain.Slot
	for _, s := range mc.column {
		if s.Ref.Tier > mc.target.Tier && s.Occupied() && !s.HeldBy(mc.container.ID) {
			out = append(out, s)
		}
	}
	return out
}

type moveRule struct {
	name  string
	check func(mc *moveContext) *Rejection
}

// moveRules run in order; the first rejection wins.
var moveRules = []moveRule{
	{name: "existence", check: checkExistence},
	{name: "bounds", check: checkBounds},
	{name: "occupancy", check: checkOccupancy},
	{name: "weight_ceiling", check: checkWeightCeiling},
	{name: "reefer_zone", check: checkReeferZone},
	{name: "pod_below", check: checkPodBelow},
	{name: "weight_above", check: checkWeightAbove},
	{name: "weight_below", check: checkWeightBelow},
	{name: "hazard_self", check: checkHazardSelf},
	{name: "hazard_neighbor", check: checkHazardNeighbor},
}

// RuleNames returns the rule names in evaluation order.
func RuleNames() []string {
	names := make([]string, len(moveRules))
	for i, r := range moveRules {
		names[i] = r.name
	}
	return names
}

// =============================================================================
// Rules
// =============================================================================

func checkExistence(mc *moveContext) *Rejection {
	bay, ok := mc.grid.FindBay(mc.target.Bay)
	if !ok {
		return &Rejection{
			Reason:  ReasonUnknownBay,
			Message: fmt.Sprintf("bay %q does not exist on vessel %s", mc.target.Bay, mc.grid.Vessel().ID),
		}
	}
	row, ok := bay.FindRow(mc.target.Row)
	if !ok {
		return &Rejection{
			Reason:  ReasonUnknownRow,
			Message: fmt.Sprintf("row %q does not exist in bay %s", mc.target.Row, bay.Code),
		}
	}
	mc.bay, mc.row = bay, row
	return nil
}

func checkBounds(mc *moveContext) *Rejection {
	if !mc.row.HasTier(mc.target.Tier) {
		return &Rejection{
			Reason:   ReasonTierOutOfRange,
			Message:  fmt.Sprintf("tier %d is outside 1..%d for bay %s row %s", mc.target.Tier, mc.row.MaxTiers, mc.bay.Code, mc.row.Code),
			Observed: float64(mc.target.Tier),
			Limit:    float64(mc.row.MaxTiers),
		}
	}
	mc.targetCode = location.MustEncode(mc.target.Bay, mc.target.Row, mc.target.Tier)
	mc.column, _ = mc.grid.SlotsInColumn(mc.target.Bay, mc.target.Row)
	return nil
}

func checkOccupancy(mc *moveContext) *Rejection {
	occupant, ok := mc.grid.ContainerAt(mc.targetCode)
	if ok && occupant.ID != mc.container.ID {
		return &Rejection{
			Reason:              ReasonSlotOccupied,
			Message:             fmt.Sprintf("slot %s is already occupied by %s", mc.targetCode, occupant.ID),
			BlockingContainerID: occupant.ID,
			BlockingLocation:    mc.targetCode,
		}
	}
	return nil
}

func checkWeightCeiling(mc *moveContext) *Rejection {
	if mc.container.WeightKg > mc.row.MaxWeightKg {
		return &Rejection{
			Reason:   ReasonRowWeightExceeded,
			Message:  fmt.Sprintf("container weight %gkg exceeds the row limit of %gkg", mc.container.WeightKg, mc.row.MaxWeightKg),
			Observed: mc.container.WeightKg,
			Limit:    mc.row.MaxWeightKg,
		}
	}
	if !mc.opts.CumulativeColumnWeight {
		return nil
	}
	total := mc.container.WeightKg
	for _, s := range mc.column {
		if s.Occupied() && !s.HeldBy(mc.container.ID) {
			total += s.Container.WeightKg
		}
	}
	if total > mc.row.MaxWeightKg {
		return &Rejection{
			Reason:   ReasonRowWeightExceeded,
			Message:  fmt.Sprintf("column weight would reach %gkg, above the row limit of %gkg", total, mc.row.MaxWeightKg),
			Observed: total,
			Limit:    mc.row.MaxWeightKg,
		}
	}
	return nil
}

func checkReeferZone(mc *moveContext) *Rejection {
	if mc.container.Reefer && !mc.bay.ReeferReady {
		return &Rejection{
			Reason:  ReasonReeferZoneRequired,
			Message: fmt.Sprintf("reefer container %s needs a reefer-ready bay; bay %s has no reefer supply", mc.container.ID, mc.bay.Code),
		}
	}
	return nil
}

func checkPodBelow(mc *moveContext) *Rejection {
	order := mc.grid.PortOrder()
	for _, s := range mc.below() {
		if order.Compare(s.Container.POD, mc.container.POD) < 0 {
			return &Rejection{
				Reason: ReasonPodOrderViolationBelow,
				Message: fmt.Sprintf("discharge order: %s (POD %s) cannot sit above %s (POD %s) which is discharged earlier",
					mc.container.ID, mc.container.POD, s.Container.ID, s.Container.POD),
				BlockingContainerID: s.Container.ID,
				BlockingLocation:    s.Code,
			}
		}
	}
	return nil
}

func checkWeightAbove(mc *moveContext) *Rejection {
	for _, s := range mc.above() {
		if s.Container.WeightKg < mc.container.WeightKg {
			return &Rejection{
				Reason: ReasonWeightStackViolationAbove,
				Message: fmt.Sprintf("weight stacking: %gkg container cannot go under %s weighing %gkg",
					mc.container.WeightKg, s.Container.ID, s.Container.WeightKg),
				BlockingContainerID: s.Container.ID,
				BlockingLocation:    s.Code,
				Observed:            mc.container.WeightKg,
				Limit:               s.Container.WeightKg,
			}
		}
	}
	return nil
}

func checkWeightBelow(mc *moveContext) *Rejection {
	for _, s := range mc.below() {
		if s.Container.WeightKg < mc.container.WeightKg {
			return &Rejection{
				Reason: ReasonWeightStackViolationBelow,
				Message: fmt.Sprintf("weight stacking: %gkg container cannot go on top of %s weighing %gkg",
					mc.container.WeightKg, s.Container.ID, s.Container.WeightKg),
				BlockingContainerID: s.Container.ID,
				BlockingLocation:    s.Code,
				Observed:            mc.container.WeightKg,
				Limit:               s.Container.WeightKg,
			}
		}
	}
	return nil
}

func (mc *moveContext) resolveNeighbors() []adjacency.Neighbor {
	if mc.neighbors == nil {
		mc.neighbors = adjacency.Neighbors(mc.grid, mc.target.Bay, mc.target.Row, mc.target.Tier)
	}
	return mc.neighbors
}

func checkHazardSelf(mc *moveContext) *Rejection {
	if !mc.container.Hazardous {
		return nil
	}
	occupied := adjacency.Occupied(mc.resolveNeighbors(), mc.container.ID)
	if len(occupied) == 0 {
		return nil
	}
	n := occupied[0]
	return &Rejection{
		Reason: ReasonHazardIsolationViolation,
		Message: fmt.Sprintf("hazardous container %s needs empty neighbouring slots; %s is %s at %s",
			mc.container.ID, n.Container.ID, n.Direction, n.Code),
		BlockingContainerID: n.Container.ID,
		BlockingLocation:    n.Code,
	}
}

func checkHazardNeighbor(mc *moveContext) *Rejection {
	for _, n := range adjacency.Occupied(mc.resolveNeighbors(), mc.container.ID) {
		if n.Container.Hazardous {
			return &Rejection{
				Reason: ReasonAdjacentHazardViolation,
				Message: fmt.Sprintf("slot is next to hazardous container %s (%s at %s)",
					n.Container.ID, n.Direction, n.Code),
				BlockingContainerID: n.Container.ID,
				BlockingLocation:    n.Code,
			}
		}
	}
	return nil
}
