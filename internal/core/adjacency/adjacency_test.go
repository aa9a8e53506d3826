package adjacency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/location"
)

func newGrid(t *testing.T) *domain.Grid {
	t.Helper()
	g, err := domain.NewGrid(domain.Vessel{ID: "V1"}, []domain.Bay{
		{
			Code: "01",
			Rows: []domain.Row{
				{Code: "01", MaxTiers: 4, MaxWeightKg: 30000},
				{Code: "02", MaxTiers: 4, MaxWeightKg: 30000},
				{Code: "03", MaxTiers: 2, MaxWeightKg: 30000},
			},
		},
		{
			Code: "02",
			Rows: []domain.Row{
				{Code: "01", MaxTiers: 4, MaxWeightKg: 30000},
				{Code: "03", MaxTiers: 4, MaxWeightKg: 30000},
				{Code: "AB", MaxTiers: 4, MaxWeightKg: 30000},
			},
		},
	})
	require.NoError(t, err)
	return g
}

type dirRef struct {
	Dir Direction
	Ref location.Ref
}

func collect(ns []Neighbor) []dirRef {
	out := make([]dirRef, 0, len(ns))
	for _, n := range ns {
		out = append(out, dirRef{Dir: n.Direction, Ref: n.Ref})
	}
	return out
}

func r(bay, row string, tier int) location.Ref {
	return location.Ref{Bay: bay, Row: row, Tier: tier}
}

func TestNeighbors(t *testing.T) {
	tests := []struct {
		name string
		bay  string
		row  string
		tier int
		want []dirRef
	}{
		{
			name: "interior slot has four neighbours",
			bay:  "01", row: "02", tier: 2,
			want: []dirRef{
				{Above, r("01", "02", 1)},
				{Below, r("01", "02", 3)},
				{Left, r("01", "01", 2)},
				{Right, r("01", "03", 2)},
			},
		},
		{
			name: "top tier has no slot above",
			bay:  "01", row: "01", tier: 1,
			want: []dirRef{
				{Below, r("01", "01", 2)},
				{Right, r("01", "02", 1)},
			},
		},
		{
			name: "bottom tier has no slot below",
			bay:  "01", row: "01", tier: 4,
			want: []dirRef{
				{Above, r("01", "01", 3)},
				{Right, r("01", "02", 4)},
			},
		},
		{
			name: "shorter neighbour row is skipped below its depth",
			bay:  "01", row: "02", tier: 3,
			want: []dirRef{
				{Above, r("01", "02", 2)},
				{Below, r("01", "02", 4)},
				{Left, r("01", "01", 3)},
			},
		},
		{
			name: "last row has no right neighbour",
			bay:  "01", row: "03", tier: 1,
			want: []dirRef{
				{Below, r("01", "03", 2)},
				{Left, r("01", "02", 1)},
			},
		},
		{
			name: "gap in row numbers leaves no lateral neighbour",
			bay:  "02", row: "01", tier: 2,
			want: []dirRef{
				{Above, r("02", "01", 1)},
				{Below, r("02", "01", 3)},
			},
		},
		{
			name: "non numeric row has only column neighbours",
			bay:  "02", row: "AB", tier: 2,
			want: []dirRef{
				{Above, r("02", "AB", 1)},
				{Below, r("02", "AB", 3)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGrid(t)
			got := Neighbors(g, tt.bay, tt.row, tt.tier)
			assert.Equal(t, tt.want, collect(got))
		})
	}
}

func TestNeighbors_NoCrossBay(t *testing.T) {
	g := newGrid(t)
	for _, n := range Neighbors(g, "01", "01", 2) {
		assert.Equal(t, "01", n.Ref.Bay)
	}
}

func TestNeighbors_UnknownSlot(t *testing.T) {
	g := newGrid(t)
	assert.Nil(t, Neighbors(g, "09", "01", 1))
	assert.Nil(t, Neighbors(g, "01", "09", 1))
}

func TestNeighbors_ResolvesContainers(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.Place(domain.Container{ID: "C1", WeightKg: 1}, r("01", "02", 1)))
	require.NoError(t, g.Place(domain.Container{ID: "C2", WeightKg: 1}, r("01", "01", 2)))

	ns := Neighbors(g, "01", "02", 2)
	occupied := Occupied(ns, "")
	require.Len(t, occupied, 2)
	assert.Equal(t, "C1", occupied[0].Container.ID)
	assert.Equal(t, "C2", occupied[1].Container.ID)

	assert.Len(t, Occupied(ns, "C1"), 1)
}
