// Package booth applies booth lifecycle operations to floor-plan shapes:
// status transitions, metadata merges, and booth add/remove.
package booth

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/expohall/expohall/internal/floorplan"
)

// MetadataPatch is a partial update of a shape's semantic metadata. Nil
// fields are left untouched; set fields win per key (last-write-wins).
type MetadataPatch struct {
	BoothNumber *string                `json:"boothNumber,omitempty"`
	ExhibitorID *string                `json:"exhibitorId,omitempty"`
	Status      *floorplan.BoothStatus `json:"status,omitempty"`
	Category    *string                `json:"category,omitempty"`
}

// Input describes a booth to append to a plan. Geometry is required.
type Input struct {
	Geometry    *floorplan.Geometry   `json:"geometry"`
	Visual      floorplan.Visual      `json:"visual"`
	BoothNumber string                `json:"boothNumber,omitempty"`
	ExhibitorID string                `json:"exhibitorId,omitempty"`
	Category    string                `json:"category,omitempty"`
	Status      floorplan.BoothStatus `json:"status,omitempty"`
}

// SetStatus moves the shape to newStatus. Any status is reachable from any
// other. The shape is left unchanged on failure.
func SetStatus(shape *floorplan.Shape, newStatus floorplan.BoothStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown booth status %q", floorplan.ErrValidation, newStatus)
	}
	shape.Metadata.Status = newStatus
	return nil
}

// MergeMetadata shallow-merges the patch into the shape's metadata. Only
// set fields are applied; repeated identical patches are idempotent.
func MergeMetadata(shape *floorplan.Shape, patch MetadataPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("%w: unknown booth status %q", floorplan.ErrValidation, *patch.Status)
	}
	if patch.BoothNumber != nil {
		shape.Metadata.BoothNumber = *patch.BoothNumber
	}
	if patch.ExhibitorID != nil {
		shape.Metadata.ExhibitorID = *patch.ExhibitorID
	}
	if patch.Status != nil {
		shape.Metadata.Status = *patch.Status
	}
	if patch.Category != nil {
		shape.Metadata.Category = *patch.Category
	}
	return nil
}

// Add appends a new booth shape to the plan with a generated id. The status
// defaults to available unless the input specifies one.
func Add(plan *floorplan.FloorPlan, in Input) (*floorplan.Shape, error) {
	if in.Geometry == nil {
		return nil, fmt.Errorf("%w: geometry is required", floorplan.ErrValidation)
	}
	status := in.Status
	if status == "" {
		status = floorplan.StatusAvailable
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown booth status %q", floorplan.ErrValidation, status)
	}

	shape := floorplan.Shape{
		ID:       uuid.New().String(),
		Type:     floorplan.ShapeBooth,
		Geometry: *in.Geometry,
		Visual:   in.Visual,
		Metadata: floorplan.ShapeMetadata{
			BoothNumber: in.BoothNumber,
			ExhibitorID: in.ExhibitorID,
			Category:    in.Category,
			Status:      status,
		},
	}
	plan.Shapes = append(plan.Shapes, shape)
	return &plan.Shapes[len(plan.Shapes)-1], nil
}

// Remove deletes the shape with the given id from the plan.
func Remove(plan *floorplan.FloorPlan, shapeID string) error {
	for i := range plan.Shapes {
		if plan.Shapes[i].ID == shapeID {
			plan.Shapes = append(plan.Shapes[:i], plan.Shapes[i+1:]...)
			return nil
		}
	}
	return floorplan.ErrShapeNotFound
}
