// Package exhibitor binds exhibitors to the booths they occupy and decorates
// floor-plan shapes with viewer-specific highlight metadata.
package exhibitor

import (
	"context"

	"github.com/expohall/expohall/internal/floorplan"
)

// Exhibitor is the projection of an exhibitor record this service consumes.
type Exhibitor struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	BoothNumber string `json:"boothNumber,omitempty"`
}

// Directory is the external exhibitor directory collaborator.
type Directory interface {
	// GetByID looks up an exhibitor. Implementations return a nil exhibitor
	// (no error) when the id is unknown.
	GetByID(ctx context.Context, id string) (*Exhibitor, error)
}

// ResolveForExhibitor returns a derived copy of shapes where every booth
// whose boothNumber matches the exhibitor's is flagged isUserBooth. The
// input is never mutated and order is preserved. When multiple booths share
// the number, all of them are flagged: surfacing the data-quality issue
// beats silently picking one.
func ResolveForExhibitor(shapes []floorplan.Shape, ex *Exhibitor) []floorplan.Shape {
	resolved := make([]floorplan.Shape, len(shapes))
	copy(resolved, shapes)

	if ex == nil || ex.BoothNumber == "" {
		return resolved
	}
	for i := range resolved {
		if resolved[i].Type == floorplan.ShapeBooth && resolved[i].Metadata.BoothNumber == ex.BoothNumber {
			resolved[i].Metadata.IsUserBooth = true
		}
	}
	return resolved
}

// Match is a booth located by number together with the plan it sits on.
type Match struct {
	Booth     floorplan.Shape      `json:"booth"`
	FloorPlan *floorplan.FloorPlan `json:"floorPlan"`
}

// maxLookupPages bounds the cross-plan scan.
const maxLookupPages = 50

// FindBoothByNumber scans plans owned by scopeOwnerID or public, newest
// first, and returns the first booth with the given number (shape array
// order within a plan). Returns floorplan.ErrShapeNotFound if no plan
// contains it.
func FindBoothByNumber(ctx context.Context, repo floorplan.Repository, boothNumber, scopeOwnerID string) (*Match, error) {
	if boothNumber == "" {
		return nil, floorplan.ErrShapeNotFound
	}

	public := true
	scopes := []floorplan.Filters{{CreatedBy: scopeOwnerID}, {IsPublic: &public}}
	if scopeOwnerID == "" {
		scopes = scopes[1:]
	}

	seen := make(map[string]bool)
	var best *Match
	for _, scope := range scopes {
		for page := 1; page <= maxLookupPages; page++ {
			plans, _, err := repo.List(ctx, scope, page, floorplan.DefaultPageLimit)
			if err != nil {
				return nil, err
			}
			if len(plans) == 0 {
				break
			}
			for _, plan := range plans {
				if seen[plan.ID] {
					continue
				}
				seen[plan.ID] = true
				for _, shape := range plan.Shapes {
					if shape.Type == floorplan.ShapeBooth && shape.Metadata.BoothNumber == boothNumber {
						if best == nil || planBefore(best.FloorPlan, plan) {
							best = &Match{Booth: shape, FloorPlan: plan}
						}
						break
					}
				}
			}
		}
	}
	if best == nil {
		return nil, floorplan.ErrShapeNotFound
	}
	return best, nil
}

// planBefore reports whether a sorts after b in created-at-desc order,
// id desc tie-break (so b should replace a as the best match).
func planBefore(a, b *floorplan.FloorPlan) bool {
	if b.CreatedAt.After(a.CreatedAt) {
		return true
	}
	if b.CreatedAt.Equal(a.CreatedAt) {
		return b.ID > a.ID
	}
	return false
}
