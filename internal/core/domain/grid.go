package domain

import (
	"sort"

	"github.com/artpar/stowage/internal/core/location"
)

// =============================================================================
// Slots and Assignments
// =============================================================================

// Slot is a resolved grid position and its occupant, if any.
// Container is a copy; mutating it does not affect the grid.
type Slot struct {
	Ref       location.Ref `json:"ref"`
	Code      string       `json:"code"`
	Container *Container   `json:"container,omitempty"`
}

// Occupied reports whether the slot holds a container.
func (s Slot) Occupied() bool {
	return s.Container != nil
}

// HeldBy reports whether the slot holds the container with the given ID.
func (s Slot) HeldBy(containerID string) bool {
	return s.Container != nil && s.Container.ID == containerID
}

// Assignment pairs a container with the slot it occupies.
type Assignment struct {
	Container Container    `json:"container"`
	Location  location.Ref `json:"location"`
	Code      string       `json:"code"`
}

// MoveEffect describes what an applied assignment changed.
type MoveEffect struct {
	ContainerID string       `json:"container_id"`
	From        location.Ref `json:"from"`
	To          location.Ref `json:"to"`
	ReStows     int          `json:"restows"`
}

// SelfMove reports whether the container stayed in place.
func (e MoveEffect) SelfMove() bool {
	return e.From == e.To
}

// =============================================================================
// Metrics
// =============================================================================

// Metrics are running counters. They only ever grow during a session.
type Metrics struct {
	TotalMoves   int     `json:"total_moves"`
	TotalReStows int     `json:"total_restows"`
	Cost         float64 `json:"cost"`
}

// CostModel prices moves and re-stows.
type CostModel struct {
	PerMove   float64
	PerReStow float64
}

// DefaultCostModel charges one unit per move and ten per re-stow.
func DefaultCostModel() CostModel {
	return CostModel{PerMove: 1, PerReStow: 10}
}

// =============================================================================
// Grid
// =============================================================================

// Grid is the stowage model of one vessel: its fixed bay/row/tier shape plus
// the mutable set of container assignments.
//
// The shape never changes after NewGrid. Assignments change only through
// Place (load time) and ApplyAssignment (validated moves).
//
// A Grid is not safe for concurrent use; callers serialize access.
type Grid struct {
	vessel    Vessel
	bays      []Bay
	bayIndex  map[string]int
	byCode    map[string]string
	byID      map[string]*Assignment
	metrics   Metrics
	cost      CostModel
	portOrder PortOrder
}

// GridOption configures a Grid at construction.
type GridOption func(*Grid)

// WithCostModel sets the cost model applied by ApplyAssignment.
func WithCostModel(c CostModel) GridOption {
	return func(g *Grid) {
		g.cost = c
	}
}

// WithPortOrder sets the discharge order used to compare PODs.
func WithPortOrder(o PortOrder) GridOption {
	return func(g *Grid) {
		g.portOrder = o
	}
}

// WithMetrics seeds the running counters, e.g. from a loaded plan.
func WithMetrics(m Metrics) GridOption {
	return func(g *Grid) {
		g.metrics = m
	}
}

// NewGrid builds an empty grid with the given shape.
// Returns PlanIntegrityError for duplicate or malformed bays and rows, and
// for shapes where two slots would encode to the same location code.
func NewGrid(vessel Vessel, bays []Bay, opts ...GridOption) (*Grid, error) {
	if vessel.ID == "" {
		return nil, integrityErr("vessel", "vessel id is required")
	}
	if len(bays) == 0 {
		return nil, integrityErr("vessel "+vessel.ID, "at least one bay is required")
	}

	g := &Grid{
		vessel:   vessel,
		bays:     make([]Bay, 0, len(bays)),
		bayIndex: make(map[string]int, len(bays)),
		byCode:   make(map[string]string),
		byID:     make(map[string]*Assignment),
		cost:     DefaultCostModel(),
	}

	// Location codes are bay+row+tier with a fixed-width tier, so two slots
	// share a code exactly when their bay+row prefixes are equal.
	prefixes := make(map[string]string)

	for _, bay := range bays {
		if bay.Code == "" {
			return nil, integrityErr("bay", "bay code is required")
		}
		if _, dup := g.bayIndex[bay.Code]; dup {
			return nil, integrityErr("bay "+bay.Code, "duplicate bay code")
		}
		if len(bay.Rows) == 0 {
			return nil, integrityErr("bay "+bay.Code, "at least one row is required")
		}
		seen := make(map[string]bool, len(bay.Rows))
		for _, row := range bay.Rows {
			subject := "bay " + bay.Code + " row " + row.Code
			switch {
			case row.Code == "":
				return nil, integrityErr("bay "+bay.Code, "row code is required")
			case seen[row.Code]:
				return nil, integrityErr(subject, "duplicate row code")
			case row.MaxTiers < 1 || row.MaxTiers > location.MaxTier:
				return nil, integrityErr(subject, "max tiers %d outside [1, %d]", row.MaxTiers, location.MaxTier)
			case row.MaxWeightKg <= 0:
				return nil, integrityErr(subject, "max weight must be positive")
			}
			seen[row.Code] = true

			prefix := bay.Code + row.Code
			if other, clash := prefixes[prefix]; clash {
				return nil, integrityErr(subject, "location codes collide with %s", other)
			}
			prefixes[prefix] = subject
		}

		cp := bay
		cp.Rows = append([]Row(nil), bay.Rows...)
		g.bayIndex[bay.Code] = len(g.bays)
		g.bays = append(g.bays, cp)
	}

	if g.vessel.Capacity == (Capacity{}) {
		g.vessel.Capacity = DeriveCapacity(g.bays)
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Vessel returns the vessel the grid belongs to.
func (g *Grid) Vessel() Vessel {
	return g.vessel
}

// PortOrder returns the discharge order for this plan.
func (g *Grid) PortOrder() PortOrder {
	return g.portOrder
}

// Metrics returns a copy of the running counters.
func (g *Grid) Metrics() Metrics {
	return g.metrics
}

// Bays returns a copy of the bay shapes in load order.
func (g *Grid) Bays() []Bay {
	out := make([]Bay, len(g.bays))
	for i, bay := range g.bays {
		out[i] = bay
		out[i].Rows = append([]Row(nil), bay.Rows...)
	}
	return out
}

// FindBay returns the bay with the given code.
func (g *Grid) FindBay(code string) (Bay, bool) {
	i, ok := g.bayIndex[code]
	if !ok {
		return Bay{}, false
	}
	return g.bays[i], true
}

// FindRow returns the row with the given code inside the given bay.
func (g *Grid) FindRow(bayCode, rowCode string) (Row, bool) {
	bay, ok := g.FindBay(bayCode)
	if !ok {
		return Row{}, false
	}
	return bay.FindRow(rowCode)
}

// Contains reports whether ref names an existing slot.
func (g *Grid) Contains(ref location.Ref) bool {
	row, ok := g.FindRow(ref.Bay, ref.Row)
	return ok && row.HasTier(ref.Tier)
}

// SlotAt resolves a slot and its occupant. The slot must exist.
func (g *Grid) SlotAt(ref location.Ref) (Slot, bool) {
	if !g.Contains(ref) {
		return Slot{}, false
	}
	code := location.MustEncode(ref.Bay, ref.Row, ref.Tier)
	return Slot{Ref: ref, Code: code, Container: g.occupant(code)}, true
}

// SlotsInColumn returns every slot of a (bay, row) column ordered by
// ascending tier. Tier 1 is the top of the stack.
func (g *Grid) SlotsInColumn(bayCode, rowCode string) ([]Slot, bool) {
	row, ok := g.FindRow(bayCode, rowCode)
	if !ok {
		return nil, false
	}
	slots := make([]Slot, 0, row.MaxTiers)
	for tier := 1; tier <= row.MaxTiers; tier++ {
		ref := location.Ref{Bay: bayCode, Row: rowCode, Tier: tier}
		code := location.MustEncode(bayCode, rowCode, tier)
		slots = append(slots, Slot{Ref: ref, Code: code, Container: g.occupant(code)})
	}
	return slots, true
}

// ContainerAt returns the container assigned to a location code.
func (g *Grid) ContainerAt(code string) (Container, bool) {
	id, ok := g.byCode[code]
	if !ok {
		return Container{}, false
	}
	return g.byID[id].Container, true
}

// AssignmentOf returns the current assignment of a container.
func (g *Grid) AssignmentOf(containerID string) (Assignment, bool) {
	a, ok := g.byID[containerID]
	if !ok {
		return Assignment{}, false
	}
	return *a, true
}

// Assignments returns all assignments ordered by location code.
func (g *Grid) Assignments() []Assignment {
	out := make([]Assignment, 0, len(g.byID))
	for _, a := range g.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of assigned containers.
func (g *Grid) Len() int {
	return len(g.byID)
}

func (g *Grid) occupant(code string) *Container {
	id, ok := g.byCode[code]
	if !ok {
		return nil
	}
	c := g.byID[id].Container
	return &c
}

// =============================================================================
// Mutation
// =============================================================================

// Place records an initial assignment while a plan is being loaded.
// Returns PlanIntegrityError when the slot does not exist, is already taken,
// the container is already placed, or a reefer is placed outside a reefer bay.
func (g *Grid) Place(c Container, ref location.Ref) error {
	subject := "assignment " + c.ID
	if c.ID == "" {
		return integrityErr("assignment", "container id is required")
	}
	bay, ok := g.FindBay(ref.Bay)
	if !ok {
		return integrityErr(subject, "unknown bay %q", ref.Bay)
	}
	row, ok := bay.FindRow(ref.Row)
	if !ok {
		return integrityErr(subject, "unknown row %q in bay %q", ref.Row, ref.Bay)
	}
	if !row.HasTier(ref.Tier) {
		return integrityErr(subject, "tier %d outside [1, %d]", ref.Tier, row.MaxTiers)
	}
	if c.Reefer && !bay.ReeferReady {
		return integrityErr(subject, "reefer container in bay %q which is not reefer ready", ref.Bay)
	}
	if _, dup := g.byID[c.ID]; dup {
		return integrityErr(subject, "container assigned more than once")
	}
	code := location.MustEncode(ref.Bay, ref.Row, ref.Tier)
	if other, taken := g.byCode[code]; taken {
		return integrityErr(subject, "location %s already holds %s", code, other)
	}

	g.byID[c.ID] = &Assignment{Container: c, Location: ref, Code: code}
	g.byCode[code] = c.ID
	return nil
}

// ApplyAssignment moves a container to a new slot. It is only called after
// the move has been validated.
//
// When from is non-nil it must match the container's current location,
// otherwise ErrStaleAssignment is returned. The destination must exist and
// must not hold a different container (ErrSlotOccupied). Either every step
// completes (remove old, insert new, update metrics) or the grid is untouched.
//
// Moving a container out from under others counts each container above it in
// the source column as a re-stow.
func (g *Grid) ApplyAssignment(containerID string, from *location.Ref, to location.Ref) (MoveEffect, error) {
	effect, err := g.PreviewAssignment(containerID, from, to)
	if err != nil {
		return MoveEffect{}, err
	}

	if !effect.SelfMove() {
		current := g.byID[containerID]
		toCode := location.MustEncode(to.Bay, to.Row, to.Tier)
		delete(g.byCode, current.Code)
		current.Location = to
		current.Code = toCode
		g.byCode[toCode] = containerID
	}

	g.metrics.TotalMoves++
	g.metrics.TotalReStows += effect.ReStows
	g.metrics.Cost += g.cost.PerMove + float64(effect.ReStows)*g.cost.PerReStow
	return effect, nil
}

// PreviewAssignment runs the checks of ApplyAssignment and returns the effect
// the move would have, without changing the grid. Until the grid changes,
// ApplyAssignment with the same arguments succeeds with the same effect.
func (g *Grid) PreviewAssignment(containerID string, from *location.Ref, to location.Ref) (MoveEffect, error) {
	current, ok := g.byID[containerID]
	if !ok {
		return MoveEffect{}, &GridError{Op: "ApplyAssignment", ContainerID: containerID, Location: to.String(), Err: ErrUnknownContainer}
	}
	if from != nil && *from != current.Location {
		return MoveEffect{}, &GridError{Op: "ApplyAssignment", ContainerID: containerID, Location: from.String(), Err: ErrStaleAssignment}
	}
	if !g.Contains(to) {
		return MoveEffect{}, &GridError{Op: "ApplyAssignment", ContainerID: containerID, Location: to.String(), Err: ErrUnknownSlot}
	}

	toCode := location.MustEncode(to.Bay, to.Row, to.Tier)
	if holder, taken := g.byCode[toCode]; taken && holder != containerID {
		return MoveEffect{}, &GridError{Op: "ApplyAssignment", ContainerID: containerID, Location: toCode, Err: ErrSlotOccupied}
	}

	effect := MoveEffect{ContainerID: containerID, From: current.Location, To: to}
	if !effect.SelfMove() {
		effect.ReStows = g.countAbove(current.Location, containerID)
	}
	return effect, nil
}

// countAbove counts occupied slots above ref in its column, excluding the
// container itself.
func (g *Grid) countAbove(ref location.Ref, containerID string) int {
	n := 0
	for tier := 1; tier < ref.Tier; tier++ {
		code := location.MustEncode(ref.Bay, ref.Row, tier)
		if id, ok := g.byCode[code]; ok && id != containerID {
			n++
		}
	}
	return n
}
