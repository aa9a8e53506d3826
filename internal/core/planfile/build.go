package planfile

import (
	"fmt"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/location"
)

// =============================================================================
// Build
// =============================================================================

// Build validates the record and loads it into a new Grid. Options are applied
// after the record's own port rotation and metrics, so callers may override
// the cost model.
//
// Structural problems return a *ValidationError. Inconsistencies between
// assignments and the vessel shape return a *domain.PlanIntegrityError for
// the first offending entry.
func Build(rec *Record, opts ...domain.GridOption) (*domain.Grid, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	bays := make([]domain.Bay, 0, len(rec.BayDetails))
	for _, b := range rec.BayDetails {
		bay := domain.Bay{
			Code:        b.BayNumber.String(),
			ReeferReady: b.IsReeferReady,
			Rows:        make([]domain.Row, 0, len(b.Rows)),
		}
		for _, r := range b.Rows {
			bay.Rows = append(bay.Rows, domain.Row{
				Code:        r.RowNumber.String(),
				MaxTiers:    r.MaxTiers,
				MaxWeightKg: r.MaxWeightKg,
			})
		}
		bays = append(bays, bay)
	}

	vessel := domain.Vessel{ID: rec.VesselID}
	if rec.VesselCapacity != nil {
		vessel.Capacity = domain.Capacity{
			TotalSlots:            rec.VesselCapacity.TotalSlots,
			TotalWeightCapacityKg: rec.VesselCapacity.TotalWeightCapacityKg,
		}
	}

	rotation := make([]domain.PortCode, 0, len(rec.PortRotation))
	for _, p := range rec.PortRotation {
		rotation = append(rotation, domain.PortCode(p))
	}

	gridOpts := append([]domain.GridOption{
		domain.WithPortOrder(domain.NewPortOrder(rotation)),
		domain.WithMetrics(domain.Metrics{
			TotalMoves:   rec.TotalMoves,
			TotalReStows: rec.TotalReStows,
			Cost:         rec.Cost,
		}),
	}, opts...)

	g, err := domain.NewGrid(vessel, bays, gridOpts...)
	if err != nil {
		return nil, err
	}

	for i, a := range rec.Assignment {
		ref := location.Ref{Bay: a.Bay.String(), Row: a.Row.String(), Tier: a.Tier}
		if a.LocationCode != "" {
			want, err := location.Encode(ref.Bay, ref.Row, ref.Tier)
			if err != nil {
				return nil, &domain.PlanIntegrityError{
					Subject: fmt.Sprintf("assignment %d (%s)", i, a.ContainerID),
					Reason:  err.Error(),
				}
			}
			if want != a.LocationCode {
				return nil, &domain.PlanIntegrityError{
					Subject: fmt.Sprintf("assignment %d (%s)", i, a.ContainerID),
					Reason:  fmt.Sprintf("location code %s does not match %s", a.LocationCode, ref),
				}
			}
		}
		c := domain.Container{
			ID:        a.ContainerID,
			WeightKg:  a.WeightKg,
			POD:       domain.PortCode(a.POD),
			Reefer:    a.IsReefer,
			Hazardous: a.IsHazardous,
		}
		if err := g.Place(c, ref); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// =============================================================================
// Export
// =============================================================================

// Export snapshots a grid as a plan document. Assignments are ordered by
// location code.
func Export(g *domain.Grid) *Record {
	v := g.Vessel()
	m := g.Metrics()
	rec := &Record{
		VesselID: v.ID,
		VesselCapacity: &CapacityRecord{
			TotalSlots:            v.Capacity.TotalSlots,
			TotalWeightCapacityKg: v.Capacity.TotalWeightCapacityKg,
		},
		Cost:         m.Cost,
		TotalReStows: m.TotalReStows,
		TotalMoves:   m.TotalMoves,
	}

	for _, p := range g.PortOrder().Rotation() {
		rec.PortRotation = append(rec.PortRotation, Scalar(p))
	}

	bays := g.Bays()
	rec.BayDetails = make([]BayRecord, 0, len(bays))
	for _, b := range bays {
		br := BayRecord{BayNumber: Scalar(b.Code), IsReeferReady: b.ReeferReady, Rows: make([]RowRecord, 0, len(b.Rows))}
		for _, r := range b.Rows {
			br.Rows = append(br.Rows, RowRecord{RowNumber: Scalar(r.Code), MaxTiers: r.MaxTiers, MaxWeightKg: r.MaxWeightKg})
		}
		rec.BayDetails = append(rec.BayDetails, br)
	}

	assignments := g.Assignments()
	rec.Assignment = make([]AssignmentRecord, 0, len(assignments))
	for _, a := range assignments {
		rec.Assignment = append(rec.Assignment, AssignmentRecord{
			ContainerID:  a.Container.ID,
			Bay:          Scalar(a.Location.Bay),
			Row:          Scalar(a.Location.Row),
			Tier:         a.Location.Tier,
			LocationCode: a.Code,
			POD:          Scalar(a.Container.POD),
			WeightKg:     a.Container.WeightKg,
			IsHazardous:  a.Container.Hazardous,
			IsReefer:     a.Container.Reefer,
		})
	}
	return rec
}
