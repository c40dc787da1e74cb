package identity

import (
	"math"

	"ponto/internal/attendance/geo"
	"ponto/internal/attendance/models"
	"ponto/internal/platform/config"
)

// FenceMatch is the unit a device location was accepted for.
type FenceMatch struct {
	Unit           *models.WorkUnit
	DistanceMeters float64
}

// ResolveUnit fixes the event's work unit from the device location. Units
// without a fence never accept events.
func (r *Resolver) ResolveUnit(id *Identity, point models.GeoPoint) (*FenceMatch, error) {
	if id.Mode == ModeUnitBound {
		return checkFence(id.Unit, point)
	}
	return selectUnit(id.Candidates, point, r.tieBreak)
}

func checkFence(unit *models.WorkUnit, point models.GeoPoint) (*FenceMatch, error) {
	if !unit.HasFence() {
		return nil, models.Reject(models.KindFenceNotConfigured,
			"this unit has no location fence configured; attendance cannot be recorded here",
			map[string]any{"unitId": unit.ID.String()})
	}
	f := unit.Fence
	distance, inside := geo.WithinFence(point.Lat, point.Lng, f.Lat, f.Lng, f.RadiusMeters)
	if !inside {
		return nil, models.Reject(models.KindOutsideFence,
			"you are outside the allowed area for "+unit.Name,
			map[string]any{
				"distanceMeters": math.Round(distance),
				"allowedRadius":  f.RadiusMeters,
			})
	}
	return &FenceMatch{Unit: unit, DistanceMeters: distance}, nil
}

func selectUnit(candidates []*models.WorkUnit, point models.GeoPoint, tieBreak config.TieBreak) (*FenceMatch, error) {
	var (
		best   *FenceMatch
		fenced int
	)
	for _, unit := range candidates {
		if !unit.HasFence() {
			continue
		}
		fenced++
		f := unit.Fence
		distance, inside := geo.WithinFence(point.Lat, point.Lng, f.Lat, f.Lng, f.RadiusMeters)
		if !inside {
			continue
		}
		if tieBreak != config.TieBreakNearest {
			return &FenceMatch{Unit: unit, DistanceMeters: distance}, nil
		}
		if best == nil || distance < best.DistanceMeters {
			best = &FenceMatch{Unit: unit, DistanceMeters: distance}
		}
	}
	if best != nil {
		return best, nil
	}
	names := make([]string, 0, len(candidates))
	for _, unit := range candidates {
		names = append(names, unit.Name)
	}
	// Universal mode rejects the same way whether no fence exists or none
	// contains the point; fencesConfigured tells the two apart for support.
	return nil, models.Reject(models.KindNoUnitInRange,
		"you are not near any of your permitted units; move closer to one of them and try again",
		map[string]any{"permittedUnits": names, "fencesConfigured": fenced > 0})
}
