// Package validation decides whether a container may occupy a slot.
//
// This package contains the functional core rule engine. ValidateMove is
// pure: it reads the grid, never mutates it, and returns a Decision value.
// A rejection is an ordinary outcome, not an error.
//
// # Rule Order
//
// Rules run in a fixed order and the first failure wins:
//
//  1. UnknownBay, UnknownRow: the target must exist
//  2. TierOutOfRange: 1 <= tier <= row.MaxTiers
//  3. SlotOccupied: no different container at the target code
//  4. RowWeightExceeded: container weight within the row ceiling
//  5. ReeferZoneRequired: reefers only in reefer-ready bays
//  6. PodOrderViolationBelow: nothing below is discharged earlier
//  7. WeightStackViolationAbove: nothing above is lighter
//  8. WeightStackViolationBelow: nothing below is lighter
//  9. HazardIsolationViolation: a hazardous container has empty neighbours
//  10. AdjacentHazardViolation: no different hazardous container next door
//
// Tier 1 is the top of a column: a larger tier is physically lower. Rules 6
// to 8 scan the whole column, not only the adjacent tiers. The moving
// container is never compared with itself.
//
// # Usage
//
//	d := validation.ValidateMove(grid, container, location.Ref{Bay: "01", Row: "02", Tier: 3})
//	if !d.Accepted {
//	    // d.Rejection.Reason names the rule, d.Rejection.Message explains it
//	}
package validation
