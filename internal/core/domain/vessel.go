// Package domain contains the stowage grid model and its invariants.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"sort"
	"strconv"
)

// =============================================================================
// Vessel
// =============================================================================

// Capacity is the nominal capacity of a vessel.
type Capacity struct {
	TotalSlots            int     `json:"total_slots"`
	TotalWeightCapacityKg float64 `json:"total_weight_capacity_kg"`
}

// Vessel identifies the ship a plan belongs to. Immutable after load.
type Vessel struct {
	ID       string   `json:"id"`
	Capacity Capacity `json:"capacity"`
}

// DeriveCapacity sums slot counts and weight ceilings over the given bays.
func DeriveCapacity(bays []Bay) Capacity {
	var c Capacity
	for _, bay := range bays {
		for _, row := range bay.Rows {
			c.TotalSlots += row.MaxTiers
			c.TotalWeightCapacityKg += row.MaxWeightKg
		}
	}
	return c
}

// =============================================================================
// Row
// =============================================================================

// Row is one column of tiers inside a bay.
// MaxWeightKg is the ceiling for the whole column, not per slot.
type Row struct {
	Code        string  `json:"code"`
	MaxTiers    int     `json:"max_tiers"`
	MaxWeightKg float64 `json:"max_weight_kg"`
}

// Number parses the row code as an integer.
// Rows whose code is not numeric have no lateral position.
func (r Row) Number() (int, bool) {
	n, err := strconv.Atoi(r.Code)
	if err != nil {
		return 0, false
	}
	return n, true
}

// HasTier reports whether tier lies within [1, MaxTiers].
func (r Row) HasTier(tier int) bool {
	return tier >= 1 && tier <= r.MaxTiers
}

// =============================================================================
// Bay
// =============================================================================

// Bay is an ordered set of rows. Bays are not spatially linked to each other.
type Bay struct {
	Code        string `json:"code"`
	ReeferReady bool   `json:"reefer_ready"`
	Rows        []Row  `json:"rows"`
}

// FindRow returns the row with the given code.
func (b Bay) FindRow(code string) (Row, bool) {
	for _, row := range b.Rows {
		if row.Code == code {
			return row, true
		}
	}
	return Row{}, false
}

// RowByNumber returns the row whose numeric code equals n.
func (b Bay) RowByNumber(n int) (Row, bool) {
	for _, row := range b.Rows {
		if num, ok := row.Number(); ok && num == n {
			return row, true
		}
	}
	return Row{}, false
}

// MaxRowNumber returns the highest numeric row code in the bay.
func (b Bay) MaxRowNumber() (int, bool) {
	maxNum, found := 0, false
	for _, row := range b.Rows {
		if num, ok := row.Number(); ok && (!found || num > maxNum) {
			maxNum, found = num, true
		}
	}
	return maxNum, found
}

// RowNumbers returns the sorted numeric row codes of the bay.
func (b Bay) RowNumbers() []int {
	var nums []int
	for _, row := range b.Rows {
		if num, ok := row.Number(); ok {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)
	return nums
}
