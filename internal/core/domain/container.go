package domain

import (
	"strconv"
	"strings"
)

// =============================================================================
// Port of Discharge
// =============================================================================

// PortCode identifies a port of discharge. A smaller code is discharged earlier.
type PortCode string

// PortOrder ranks ports of discharge.
//
// With a rotation, a port's rank is its position in the rotation and ports
// missing from it rank after every listed port. Without a rotation, two
// numeric codes compare as integers and anything else compares lexically.
type PortOrder struct {
	rotation []PortCode
	rank     map[PortCode]int
}

// NewPortOrder builds an order from a port rotation. A nil or empty rotation
// yields the natural order. Repeated ports keep their first position.
func NewPortOrder(rotation []PortCode) PortOrder {
	if len(rotation) == 0 {
		return PortOrder{}
	}
	o := PortOrder{rank: make(map[PortCode]int, len(rotation))}
	for _, port := range rotation {
		if _, seen := o.rank[port]; seen {
			continue
		}
		o.rank[port] = len(o.rotation)
		o.rotation = append(o.rotation, port)
	}
	return o
}

// Rotation returns the ports of the rotation in discharge order.
func (o PortOrder) Rotation() []PortCode {
	if len(o.rotation) == 0 {
		return nil
	}
	out := make([]PortCode, len(o.rotation))
	copy(out, o.rotation)
	return out
}

// Compare returns -1 if a is discharged before b, 1 if after, 0 if at the same port rank.
func (o PortOrder) Compare(a, b PortCode) int {
	if a == b {
		return 0
	}
	if len(o.rank) > 0 {
		ra, okA := o.rank[a]
		rb, okB := o.rank[b]
		switch {
		case okA && okB:
			return compareInts(ra, rb)
		case okA:
			return -1
		case okB:
			return 1
		}
	}
	return naturalCompare(a, b)
}

func naturalCompare(a, b PortCode) int {
	na, errA := strconv.Atoi(string(a))
	nb, errB := strconv.Atoi(string(b))
	if errA == nil && errB == nil {
		return compareInts(na, nb)
	}
	return strings.Compare(string(a), string(b))
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// =============================================================================
// Container
// =============================================================================

// Container is a unit of cargo that occupies exactly one slot.
type Container struct {
	ID        string   `json:"id"`
	WeightKg  float64  `json:"weight_kg"`
	POD       PortCode `json:"pod"`
	Reefer    bool     `json:"reefer"`
	Hazardous bool     `json:"hazardous"`
}
