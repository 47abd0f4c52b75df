package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/spatial"
)

// seedBoothPlan stores a public plan owned by alice with two adjacent booths,
// matching the two-booth 10x10 layout used across the booth tests.
func seedBoothPlan(t *testing.T, d *testDeps) *floorplan.FloorPlan {
	t.Helper()
	return d.seedPlan(t, &floorplan.FloorPlan{
		Name:      "Expo",
		CreatedBy: "alice",
		IsPublic:  true,
		GridSize:  10,
		Shapes: []floorplan.Shape{
			{
				ID:       "b1",
				Type:     floorplan.ShapeBooth,
				Geometry: floorplan.Geometry{X: 0, Y: 0, Width: 10, Height: 10},
				Metadata: floorplan.ShapeMetadata{BoothNumber: "B1", Status: floorplan.StatusAvailable},
			},
			{
				ID:       "b2",
				Type:     floorplan.ShapeBooth,
				Geometry: floorplan.Geometry{X: 10, Y: 0, Width: 10, Height: 10},
				Metadata: floorplan.ShapeMetadata{BoothNumber: "B2", Status: floorplan.StatusAvailable, Category: "tech"},
			},
		},
	})
}

func TestAddBooth(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	body := `{"geometry":{"x":20,"y":0,"width":10,"height":10},"boothNumber":"B3"}`
	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/booths", body, organizerAlice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var shape floorplan.Shape
	decodeData(t, rec, &shape)
	if shape.Type != floorplan.ShapeBooth {
		t.Errorf("type = %q, want booth", shape.Type)
	}
	if shape.Metadata.Status != floorplan.StatusAvailable {
		t.Errorf("status = %q, want available (default)", shape.Metadata.Status)
	}
	if shape.ID == "" {
		t.Error("expected generated shape id")
	}

	stored, err := d.repo.GetByID(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("failed to reload plan: %v", err)
	}
	if len(stored.Shapes) != 3 {
		t.Errorf("stored shapes = %d, want 3", len(stored.Shapes))
	}
}

func TestAddBoothMissingGeometry(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/booths", `{"boothNumber":"B3"}`, organizerAlice)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeValidation {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeValidation)
	}
}

func TestSetBoothStatus(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPatch, "/floor-plans/"+plan.ID+"/booths/b1/status", `{"status":"booked"}`, organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var shape floorplan.Shape
	decodeData(t, rec, &shape)
	if shape.Metadata.Status != floorplan.StatusBooked {
		t.Errorf("status = %q, want booked", shape.Metadata.Status)
	}

	stored, _ := d.repo.GetByID(context.Background(), plan.ID)
	if got := stored.FindShape("b1").Metadata.Status; got != floorplan.StatusBooked {
		t.Errorf("stored status = %q, want booked", got)
	}
}

func TestSetBoothStatusInvalid(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPatch, "/floor-plans/"+plan.ID+"/booths/b1/status", `{"status":"occupied"}`, organizerAlice)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	stored, _ := d.repo.GetByID(context.Background(), plan.ID)
	if got := stored.FindShape("b1").Metadata.Status; got != floorplan.StatusAvailable {
		t.Errorf("stored status = %q, want unchanged available", got)
	}
}

func TestSetBoothStatusUnknownShape(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPatch, "/floor-plans/"+plan.ID+"/booths/missing/status", `{"status":"booked"}`, organizerAlice)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMergeBoothMetadata(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPut, "/floor-plans/"+plan.ID+"/booths/b1", `{"category":"food"}`, organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("first patch status = %d, want 200", rec.Code)
	}

	rec = d.do(t, http.MethodPut, "/floor-plans/"+plan.ID+"/booths/b1", `{"exhibitorId":"ex-42"}`, organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("second patch status = %d, want 200", rec.Code)
	}

	var shape floorplan.Shape
	decodeData(t, rec, &shape)
	if shape.Metadata.Category != "food" {
		t.Errorf("category = %q, want food (merge keeps earlier keys)", shape.Metadata.Category)
	}
	if shape.Metadata.ExhibitorID != "ex-42" {
		t.Errorf("exhibitorId = %q, want ex-42", shape.Metadata.ExhibitorID)
	}
	if shape.Metadata.BoothNumber != "B1" {
		t.Errorf("boothNumber = %q, want untouched B1", shape.Metadata.BoothNumber)
	}
}

func TestRemoveBooth(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodDelete, "/floor-plans/"+plan.ID+"/booths/b1", "", organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	stored, _ := d.repo.GetByID(context.Background(), plan.ID)
	if stored.FindShape("b1") != nil {
		t.Error("shape b1 still present after removal")
	}

	rec = d.do(t, http.MethodDelete, "/floor-plans/"+plan.ID+"/booths/b1", "", organizerAlice)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestBoothMutationForbiddenForStranger(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPatch, "/floor-plans/"+plan.ID+"/booths/b1/status", `{"status":"booked"}`, organizerBob)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestListBoothsFilters(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPatch, "/floor-plans/"+plan.ID+"/booths/b1/status", `{"status":"booked"}`, organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("setup status = %d, want 200", rec.Code)
	}

	var booths []floorplan.Shape

	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths", "", anonymous)
	decodeData(t, rec, &booths)
	if len(booths) != 2 {
		t.Errorf("unfiltered booths = %d, want 2", len(booths))
	}

	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths?status=booked", "", anonymous)
	decodeData(t, rec, &booths)
	if len(booths) != 1 || booths[0].ID != "b1" {
		t.Errorf("booked booths = %+v, want only b1", booths)
	}

	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths?category=tech", "", anonymous)
	decodeData(t, rec, &booths)
	if len(booths) != 1 || booths[0].ID != "b2" {
		t.Errorf("tech booths = %+v, want only b2", booths)
	}

	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths?status=bogus", "", anonymous)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", rec.Code)
	}
}

func TestGetNeighbors(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	// gridSize=10, default K=3: threshold 30, center distance B1->B2 is 10
	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths/b1/neighbors", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var neighbors []spatial.Neighbor
	decodeData(t, rec, &neighbors)
	if len(neighbors) != 1 || neighbors[0].Booth.ID != "b2" {
		t.Fatalf("neighbors = %+v, want only b2", neighbors)
	}
	if neighbors[0].Distance != 10 {
		t.Errorf("distance = %f, want 10", neighbors[0].Distance)
	}

	// Unknown shape
	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths/missing/neighbors", "", anonymous)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown shape status = %d, want 404", rec.Code)
	}

	// Malformed k
	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths/b1/neighbors?k=-1", "", anonymous)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad k status = %d, want 400", rec.Code)
	}
}

func TestGetNeighborsAnchorsOnAddressedShape(t *testing.T) {
	d := newTestDeps(t)
	// b1 and b2 share the number B1; b2 is the addressed shape and must
	// anchor the search itself rather than resolving through its number.
	plan := d.seedPlan(t, &floorplan.FloorPlan{
		Name:      "Expo",
		CreatedBy: "alice",
		IsPublic:  true,
		GridSize:  10,
		Shapes: []floorplan.Shape{
			{
				ID:       "b1",
				Type:     floorplan.ShapeBooth,
				Geometry: floorplan.Geometry{X: 0, Y: 0, Width: 10, Height: 10},
				Metadata: floorplan.ShapeMetadata{BoothNumber: "B1"},
			},
			{
				ID:       "b2",
				Type:     floorplan.ShapeBooth,
				Geometry: floorplan.Geometry{X: 10, Y: 0, Width: 10, Height: 10},
				Metadata: floorplan.ShapeMetadata{BoothNumber: "B1"},
			},
		},
	})

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/booths/b2/neighbors", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var neighbors []spatial.Neighbor
	decodeData(t, rec, &neighbors)
	if len(neighbors) != 1 || neighbors[0].Booth.ID != "b1" {
		t.Fatalf("neighbors = %+v, want only b1", neighbors)
	}
	for _, n := range neighbors {
		if n.Booth.ID == "b2" {
			t.Error("addressed booth appeared in its own neighbor list")
		}
	}
}
