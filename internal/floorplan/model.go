// Package floorplan provides the floor-plan aggregate model and its
// persistence boundary for the exhibition layout service.
package floorplan

import (
	"errors"
	"fmt"
	"time"

	"github.com/expohall/expohall/internal/color"
)

// Common errors for floor-plan operations.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("floor plan not found")
	ErrShapeNotFound    = errors.New("shape not found")
	ErrMasterConflict   = errors.New("master floor plan already exists")
	ErrStaleRevision    = errors.New("floor plan revision is stale")
	ErrStoreUnavailable = errors.New("floor plan store unavailable")
)

// ShapeType identifies what a shape on the plan represents.
type ShapeType string

// Supported shape types.
const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeSquare    ShapeType = "square"
	ShapeCircle    ShapeType = "circle"
	ShapeBooth     ShapeType = "booth"
	ShapeTable     ShapeType = "table"
	ShapeChair     ShapeType = "chair"
	ShapeDoor      ShapeType = "door"
	ShapeText      ShapeType = "text"
)

// Valid reports whether the shape type is one of the supported variants.
func (t ShapeType) Valid() bool {
	switch t {
	case ShapeRectangle, ShapeSquare, ShapeCircle, ShapeBooth, ShapeTable, ShapeChair, ShapeDoor, ShapeText:
		return true
	}
	return false
}

// BoothStatus is the occupancy state of a booth shape.
type BoothStatus string

// Booth status domain. Any status is reachable from any other; assignment
// is not order-restricted.
const (
	StatusAvailable   BoothStatus = "available"
	StatusBooked      BoothStatus = "booked"
	StatusReserved    BoothStatus = "reserved"
	StatusMaintenance BoothStatus = "maintenance"
)

// AllStatuses lists every valid booth status, in reporting order.
var AllStatuses = []BoothStatus{StatusAvailable, StatusBooked, StatusReserved, StatusMaintenance}

// Valid reports whether the status is in the booth status domain.
func (s BoothStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusReserved, StatusMaintenance:
		return true
	}
	return false
}

// Geometry is the placement of a shape on the plan canvas.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Center returns the geometric center of the shape's bounding box.
func (g Geometry) Center() (float64, float64) {
	return g.X + g.Width/2, g.Y + g.Height/2
}

// Visual holds presentation attributes of a shape.
type Visual struct {
	Color       string  `json:"color,omitempty"`
	BorderColor string  `json:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
	ZIndex      int     `json:"zIndex,omitempty"`
	IsLocked    bool    `json:"isLocked,omitempty"`
}

// ShapeMetadata carries the semantic overlay of a shape. IsUserBooth is a
// transient, viewer-specific flag set by the exhibitor resolver; store
// implementations must strip it before persisting.
type ShapeMetadata struct {
	BoothNumber string      `json:"boothNumber,omitempty"`
	ExhibitorID string      `json:"exhibitorId,omitempty"`
	Status      BoothStatus `json:"status,omitempty"`
	Category    string      `json:"category,omitempty"`
	IsUserBooth bool        `json:"isUserBooth,omitempty"`
}

// Shape is a geometric plus semantic element on a floor plan.
type Shape struct {
	ID       string        `json:"id"`
	Type     ShapeType     `json:"type"`
	Geometry Geometry      `json:"geometry"`
	Visual   Visual        `json:"visual"`
	Text     string        `json:"text,omitempty"`     // text shapes only
	FontSize float64       `json:"fontSize,omitempty"` // text shapes only
	Metadata ShapeMetadata `json:"metadata"`
}

// IsBooth reports whether the shape represents a rentable booth.
func (s *Shape) IsBooth() bool {
	return s.Type == ShapeBooth
}

// FloorPlan is the aggregate root: a canvas of shapes with display settings,
// visibility flags, and ownership. At most one stored plan has IsMaster=true
// system-wide; the store layer enforces that invariant.
type FloorPlan struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Floor              string         `json:"floor,omitempty"`
	Version            string         `json:"version,omitempty"`
	Revision           int64          `json:"revision"`
	BackgroundImageRef string         `json:"backgroundImageRef,omitempty"`
	Shapes             []Shape        `json:"shapes"`
	Scale              float64        `json:"scale"`
	GridSize           int            `json:"gridSize"`
	ShowGrid           bool           `json:"showGrid"`
	IsPublic           bool           `json:"isPublic"`
	IsMaster           bool           `json:"isMaster"`
	Tags               []string       `json:"tags,omitempty"`
	CreatedBy          string         `json:"createdBy"`
	UpdatedBy          string         `json:"updatedBy,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Defaults for display settings when a plan omits them.
const (
	DefaultScale    = 1.0
	DefaultGridSize = 20
)

// Validate checks required fields and normalizes display defaults.
// It returns an error wrapping ErrValidation on failure.
func (p *FloorPlan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Scale == 0 {
		p.Scale = DefaultScale
	}
	if p.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive", ErrValidation)
	}
	if p.GridSize == 0 {
		p.GridSize = DefaultGridSize
	}
	if p.GridSize <= 0 {
		return fmt.Errorf("%w: gridSize must be positive", ErrValidation)
	}
	for i := range p.Shapes {
		s := &p.Shapes[i]
		if !s.Type.Valid() {
			return fmt.Errorf("%w: shape %q has unknown type %q", ErrValidation, s.ID, s.Type)
		}
		if s.Visual.Color != "" {
			if err := color.ValidateHexColor(s.Visual.Color); err != nil {
				return fmt.Errorf("%w: shape %q color: %v", ErrValidation, s.ID, err)
			}
			s.Visual.Color = color.Normalize(s.Visual.Color)
		}
		if s.Visual.BorderColor != "" {
			if err := color.ValidateHexColor(s.Visual.BorderColor); err != nil {
				return fmt.Errorf("%w: shape %q borderColor: %v", ErrValidation, s.ID, err)
			}
			s.Visual.BorderColor = color.Normalize(s.Visual.BorderColor)
		}
	}
	return nil
}

// FindShape returns a pointer to the shape with the given id, or nil.
func (p *FloorPlan) FindShape(shapeID string) *Shape {
	for i := range p.Shapes {
		if p.Shapes[i].ID == shapeID {
			return &p.Shapes[i]
		}
	}
	return nil
}

// Booths returns the shapes of type booth, in array order.
func (p *FloorPlan) Booths() []Shape {
	var booths []Shape
	for _, s := range p.Shapes {
		if s.Type == ShapeBooth {
			booths = append(booths, s)
		}
	}
	return booths
}

// Clone returns a deep copy of the plan. Mutating the copy never affects
// the original.
func (p *FloorPlan) Clone() *FloorPlan {
	cp := *p
	if p.Shapes != nil {
		cp.Shapes = make([]Shape, len(p.Shapes))
		copy(cp.Shapes, p.Shapes)
	}
	if p.Tags != nil {
		cp.Tags = make([]string, len(p.Tags))
		copy(cp.Tags, p.Tags)
	}
	if p.Metadata != nil {
		cp.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// StripTransient clears viewer-specific flags that must never be persisted.
func (p *FloorPlan) StripTransient() {
	for i := range p.Shapes {
		p.Shapes[i].Metadata.IsUserBooth = false
	}
}
