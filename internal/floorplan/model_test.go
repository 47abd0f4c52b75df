package floorplan

import "testing"

func TestShapeTypeValid(t *testing.T) {
	for _, st := range []ShapeType{ShapeRectangle, ShapeSquare, ShapeCircle, ShapeBooth, ShapeTable, ShapeChair, ShapeDoor, ShapeText} {
		if !st.Valid() {
			t.Errorf("expected %q to be valid", st)
		}
	}
	if ShapeType("hexagon").Valid() {
		t.Error("unexpected valid shape type")
	}
}

func TestBoothStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if BoothStatus("pending").Valid() {
		t.Error("unexpected valid status")
	}
}

func TestGeometryCenter(t *testing.T) {
	g := Geometry{X: 10, Y: 20, Width: 4, Height: 6}
	x, y := g.Center()
	if x != 12 || y != 23 {
		t.Errorf("expected center (12, 23), got (%f, %f)", x, y)
	}
}

func TestValidate_RejectsUnknownShapeType(t *testing.T) {
	plan := &FloorPlan{
		Name:   "Hall",
		Shapes: []Shape{{ID: "s1", Type: "hexagon"}},
	}
	if err := plan.Validate(); err == nil {
		t.Fatal("expected validation failure for unknown shape type")
	}
}

func TestValidate_ShapeColors(t *testing.T) {
	plan := &FloorPlan{
		Name: "Hall",
		Shapes: []Shape{
			{ID: "s1", Type: ShapeBooth, Visual: Visual{Color: "#FFAA00", BorderColor: "#336699"}},
			{ID: "s2", Type: ShapeTable},
		},
	}
	if err := plan.Validate(); err != nil {
		t.Fatalf("expected valid plan, got %v", err)
	}
	if plan.Shapes[0].Visual.Color != "#ffaa00" {
		t.Errorf("expected color normalized to lowercase, got %q", plan.Shapes[0].Visual.Color)
	}

	plan.Shapes[1].Visual.BorderColor = "red"
	if err := plan.Validate(); err == nil {
		t.Fatal("expected validation failure for non-hex border color")
	}
}

func TestClone_IsDeep(t *testing.T) {
	plan := &FloorPlan{
		Name:     "Hall",
		Shapes:   []Shape{{ID: "s1", Type: ShapeBooth, Metadata: ShapeMetadata{BoothNumber: "B1"}}},
		Tags:     []string{"expo"},
		Metadata: map[string]any{"theme": "dark"},
	}

	cp := plan.Clone()
	cp.Shapes[0].Metadata.BoothNumber = "B2"
	cp.Tags[0] = "changed"
	cp.Metadata["theme"] = "light"

	if plan.Shapes[0].Metadata.BoothNumber != "B1" {
		t.Error("clone shares shape storage with original")
	}
	if plan.Tags[0] != "expo" {
		t.Error("clone shares tag storage with original")
	}
	if plan.Metadata["theme"] != "dark" {
		t.Error("clone shares metadata map with original")
	}
}

func TestBooths_FiltersByType(t *testing.T) {
	plan := &FloorPlan{
		Name: "Hall",
		Shapes: []Shape{
			{ID: "s1", Type: ShapeBooth},
			{ID: "s2", Type: ShapeTable},
			{ID: "s3", Type: ShapeBooth},
			{ID: "s4", Type: ShapeText, Text: "Entrance"},
		},
	}

	booths := plan.Booths()
	if len(booths) != 2 {
		t.Fatalf("expected 2 booths, got %d", len(booths))
	}
	if booths[0].ID != "s1" || booths[1].ID != "s3" {
		t.Error("booths must preserve array order")
	}
}
