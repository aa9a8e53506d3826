package domain

import (
	"github.com/artpar/stowage/internal/core/location"
)

// =============================================================================
// Render Projection
// =============================================================================

// BayView is the render model of one bay.
type BayView struct {
	Bay         string    `json:"bay"`
	ReeferReady bool      `json:"reefer_ready"`
	Rows        []RowView `json:"rows"`
}

// RowView is the render model of one row (column of tiers).
type RowView struct {
	Row         string     `json:"row"`
	MaxTiers    int        `json:"max_tiers"`
	MaxWeightKg float64    `json:"max_weight_kg"`
	Slots       []SlotView `json:"slots"`
}

// SlotView is the render model of one slot.
type SlotView struct {
	Code        string     `json:"code"`
	Tier        int        `json:"tier"`
	Container   *Container `json:"container,omitempty"`
	MaxWeightKg float64    `json:"max_weight_kg"`
	ReeferReady bool       `json:"reefer_ready"`
}

// Projection returns a fresh render model of every bay, row and tier.
// It is rebuilt on every call so it always reflects committed assignments.
func (g *Grid) Projection() []BayView {
	views := make([]BayView, 0, len(g.bays))
	for _, bay := range g.bays {
		bv := BayView{Bay: bay.Code, ReeferReady: bay.ReeferReady, Rows: make([]RowView, 0, len(bay.Rows))}
		for _, row := range bay.Rows {
			rv := RowView{Row: row.Code, MaxTiers: row.MaxTiers, MaxWeightKg: row.MaxWeightKg, Slots: make([]SlotView, 0, row.MaxTiers)}
			for tier := 1; tier <= row.MaxTiers; tier++ {
				code := location.MustEncode(bay.Code, row.Code, tier)
				rv.Slots = append(rv.Slots, SlotView{
					Code:        code,
					Tier:        tier,
					Container:   g.occupant(code),
					MaxWeightKg: row.MaxWeightKg,
					ReeferReady: bay.ReeferReady,
				})
			}
			bv.Rows = append(bv.Rows, rv)
		}
		views = append(views, bv)
	}
	return views
}

// =============================================================================
// Invariants
// =============================================================================

// CheckInvariants verifies location-code uniqueness, container uniqueness,
// bounds and reefer placement over the whole grid.
// Stacking and hazard rules are enforced per move by the validator.
func (g *Grid) CheckInvariants() error {
	if len(g.byCode) != len(g.byID) {
		return integrityErr("grid", "%d location codes for %d containers", len(g.byCode), len(g.byID))
	}
	for id, a := range g.byID {
		subject := "assignment " + id
		if a.Container.ID != id {
			return integrityErr(subject, "indexed under the wrong container id %q", a.Container.ID)
		}
		bay, ok := g.FindBay(a.Location.Bay)
		if !ok {
			return integrityErr(subject, "unknown bay %q", a.Location.Bay)
		}
		row, ok := bay.FindRow(a.Location.Row)
		if !ok {
			return integrityErr(subject, "unknown row %q", a.Location.Row)
		}
		if !row.HasTier(a.Location.Tier) {
			return integrityErr(subject, "tier %d outside [1, %d]", a.Location.Tier, row.MaxTiers)
		}
		if a.Container.Reefer && !bay.ReeferReady {
			return integrityErr(subject, "reefer outside reefer-ready bay %q", bay.Code)
		}
		want := location.MustEncode(a.Location.Bay, a.Location.Row, a.Location.Tier)
		if a.Code != want {
			return integrityErr(subject, "code %s does not match %s", a.Code, want)
		}
		if holder := g.byCode[a.Code]; holder != id {
			return integrityErr(subject, "location %s indexed to %q", a.Code, holder)
		}
	}
	return nil
}
