// Package spatial computes geometric relationships between booths on a
// floor plan.
package spatial

import (
	"math"
	"sort"

	"github.com/expohall/expohall/internal/floorplan"
)

// DefaultProximityFactor is the default K in the neighbor threshold
// distance <= gridSize * K.
const DefaultProximityFactor = 3.0

// Neighbor is a booth within proximity of the target, with its center
// distance.
type Neighbor struct {
	Booth    floorplan.Shape `json:"booth"`
	Distance float64         `json:"distance"`
}

// distance returns the Euclidean distance between two shape centers.
func distance(a, b floorplan.Geometry) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(ax-bx, ay-by)
}

// NeighboringBooths returns the booths whose center lies within
// gridSize * k of the target booth's center, excluding the target itself,
// sorted by ascending distance (shape id tie-break). limit <= 0 means no
// cap. Returns floorplan.ErrShapeNotFound when the target booth number is
// absent from the plan. When several booths share the target number the
// first in array order anchors the search; callers holding a shape id
// should use NeighboringBoothsByID instead.
func NeighboringBooths(plan *floorplan.FloorPlan, targetBoothNumber string, k float64, limit int) ([]Neighbor, error) {
	var target *floorplan.Shape
	for i := range plan.Shapes {
		s := &plan.Shapes[i]
		if s.Type == floorplan.ShapeBooth && s.Metadata.BoothNumber == targetBoothNumber {
			target = s
			break
		}
	}
	if target == nil {
		return nil, floorplan.ErrShapeNotFound
	}
	return neighborsOf(plan, target, k, limit)
}

// NeighboringBoothsByID anchors the neighbor search on the exact shape with
// the given id, so booths with empty or duplicated numbers resolve to
// themselves rather than to the first number match.
func NeighboringBoothsByID(plan *floorplan.FloorPlan, shapeID string, k float64, limit int) ([]Neighbor, error) {
	target := plan.FindShape(shapeID)
	if target == nil || !target.IsBooth() {
		return nil, floorplan.ErrShapeNotFound
	}
	return neighborsOf(plan, target, k, limit)
}

func neighborsOf(plan *floorplan.FloorPlan, target *floorplan.Shape, k float64, limit int) ([]Neighbor, error) {
	if k <= 0 {
		k = DefaultProximityFactor
	}

	threshold := float64(plan.GridSize) * k

	var neighbors []Neighbor
	for _, s := range plan.Shapes {
		if s.Type != floorplan.ShapeBooth || s.ID == target.ID {
			continue
		}
		d := distance(target.Geometry, s.Geometry)
		if d <= threshold {
			neighbors = append(neighbors, Neighbor{Booth: s, Distance: d})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Booth.ID < neighbors[j].Booth.ID
	})

	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	if neighbors == nil {
		neighbors = []Neighbor{}
	}
	return neighbors, nil
}
