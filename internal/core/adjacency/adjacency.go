// Package adjacency resolves the spatial neighbours of a slot.
// This is part of the Functional Core - all functions are pure with no I/O.
//
// A slot has at most four neighbours, all inside the same bay: the tier
// above and below in its own column, and the same tier in the rows whose
// numbers are one lower (left) and one higher (right). Bays are not
// spatially linked, so there is never a cross-bay neighbour.
package adjacency

import (
	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/location"
)

// Direction names the side a neighbour lies on.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
	Left  Direction = "left"
	Right Direction = "right"
)

// Neighbor is a resolved adjacent slot.
type Neighbor struct {
	Direction Direction
	domain.Slot
}

// Neighbors returns the in-bounds neighbours of (bay, row, tier) in the
// order above, below, left, right. Tier 1 is the top of a column, so the
// slot above has tier-1 and the slot below has tier+1.
//
// Returns nil when the bay or row does not exist.
func Neighbors(g *domain.Grid, bayCode, rowCode string, tier int) []Neighbor {
	bay, ok := g.FindBay(bayCode)
	if !ok {
		return nil
	}
	row, ok := bay.FindRow(rowCode)
	if !ok {
		return nil
	}

	var out []Neighbor
	add := func(dir Direction, r location.Ref) {
		if slot, ok := g.SlotAt(r); ok {
			out = append(out, Neighbor{Direction: dir, Slot: slot})
		}
	}

	if tier > 1 {
		add(Above, location.Ref{Bay: bayCode, Row: rowCode, Tier: tier - 1})
	}
	if tier < row.MaxTiers {
		add(Below, location.Ref{Bay: bayCode, Row: rowCode, Tier: tier + 1})
	}

	num, ok := row.Number()
	if !ok {
		return out
	}
	if left, ok := bay.RowByNumber(num - 1); ok && tier <= left.MaxTiers {
		add(Left, location.Ref{Bay: bayCode, Row: left.Code, Tier: tier})
	}
	if maxNum, ok := bay.MaxRowNumber(); ok && num < maxNum {
		if right, ok := bay.RowByNumber(num + 1); ok && tier <= right.MaxTiers {
			add(Right, location.Ref{Bay: bayCode, Row: right.Code, Tier: tier})
		}
	}
	return out
}

// Occupied returns the neighbours holding a container other than excludeID.
func Occupied(neighbors []Neighbor, excludeID string) []Neighbor {
	var out []Neighbor
	for _, n := range neighbors {
		if n.Occupied() && !n.HeldBy(excludeID) {
			out = append(out, n)
		}
	}
	return out
}
