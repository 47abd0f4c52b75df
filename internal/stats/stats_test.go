package stats

import (
	"testing"

	"github.com/expohall/expohall/internal/floorplan"
)

func booth(id, number string, status floorplan.BoothStatus, category string, x, y, w, h float64) floorplan.Shape {
	return floorplan.Shape{
		ID:       id,
		Type:     floorplan.ShapeBooth,
		Geometry: floorplan.Geometry{X: x, Y: y, Width: w, Height: h},
		Metadata: floorplan.ShapeMetadata{BoothNumber: number, Status: status, Category: category},
	}
}

func TestComputeBoothStatisticsCountsOnlyBooths(t *testing.T) {
	plan := &floorplan.FloorPlan{Shapes: []floorplan.Shape{
		booth("s1", "B1", floorplan.StatusAvailable, "", 0, 0, 10, 10),
		booth("s2", "B2", floorplan.StatusBooked, "food", 20, 0, 10, 10),
		{ID: "s3", Type: floorplan.ShapeRectangle, Geometry: floorplan.Geometry{Width: 100, Height: 2}},
	}}

	got := ComputeBoothStatistics(plan)

	if got.Total != 2 {
		t.Fatalf("total = %d, want 2", got.Total)
	}
	want := map[floorplan.BoothStatus]int{
		floorplan.StatusAvailable:   1,
		floorplan.StatusBooked:      1,
		floorplan.StatusReserved:    0,
		floorplan.StatusMaintenance: 0,
	}
	for status, n := range want {
		if got.ByStatus[status] != n {
			t.Errorf("byStatus[%s] = %d, want %d", status, got.ByStatus[status], n)
		}
	}
	if len(got.ByStatus) != len(want) {
		t.Errorf("byStatus has %d keys, want %d", len(got.ByStatus), len(want))
	}
	if got.ByCategory["food"] != 1 {
		t.Errorf("byCategory[food] = %d, want 1", got.ByCategory["food"])
	}
	if _, ok := got.ByCategory[""]; ok {
		t.Error("empty category should not be counted")
	}
}

func TestComputeBoothStatisticsUnsetStatusCountsAvailable(t *testing.T) {
	plan := &floorplan.FloorPlan{Shapes: []floorplan.Shape{
		booth("s1", "B1", "", "", 0, 0, 10, 10),
	}}

	got := ComputeBoothStatistics(plan)
	if got.ByStatus[floorplan.StatusAvailable] != 1 {
		t.Fatalf("byStatus[available] = %d, want 1", got.ByStatus[floorplan.StatusAvailable])
	}
}

func TestComputeBoothStatisticsEmptyPlan(t *testing.T) {
	got := ComputeBoothStatistics(&floorplan.FloorPlan{})

	if got.Total != 0 {
		t.Fatalf("total = %d, want 0", got.Total)
	}
	for _, status := range floorplan.AllStatuses {
		if _, ok := got.ByStatus[status]; !ok {
			t.Errorf("byStatus missing key %s", status)
		}
	}
}

func TestComputeOccupancyHeatmapBucketsByCenter(t *testing.T) {
	plan := &floorplan.FloorPlan{GridSize: 10, Shapes: []floorplan.Shape{
		// Center (5, 5), cell (0, 0).
		booth("s1", "B1", floorplan.StatusBooked, "", 0, 0, 10, 10),
		// Center (15, 5), cell (0, 1).
		booth("s2", "B2", floorplan.StatusReserved, "", 10, 0, 10, 10),
		// Center (5, 15), cell (1, 0); shares the cell with nothing.
		booth("s3", "B3", floorplan.StatusAvailable, "", 0, 10, 10, 10),
	}}

	hm := ComputeOccupancyHeatmap(plan)

	if hm.Rows != 2 || hm.Cols != 2 {
		t.Fatalf("grid = %dx%d, want 2x2", hm.Rows, hm.Cols)
	}
	cellWeight := func(row, col int) float64 {
		for _, c := range hm.Cells {
			if c.Row == row && c.Col == col {
				return c.Weight
			}
		}
		t.Fatalf("cell (%d,%d) missing", row, col)
		return 0
	}
	if w := cellWeight(0, 0); w != 1.0 {
		t.Errorf("cell (0,0) weight = %v, want 1.0", w)
	}
	if w := cellWeight(0, 1); w != 0.5 {
		t.Errorf("cell (0,1) weight = %v, want 0.5", w)
	}
	if w := cellWeight(1, 0); w != 0.0 {
		t.Errorf("cell (1,0) weight = %v, want 0", w)
	}
	if w := cellWeight(1, 1); w != 0.0 {
		t.Errorf("cell (1,1) weight = %v, want 0", w)
	}
}

func TestComputeOccupancyHeatmapAccumulatesSharedCell(t *testing.T) {
	plan := &floorplan.FloorPlan{GridSize: 20, Shapes: []floorplan.Shape{
		booth("s1", "B1", floorplan.StatusBooked, "", 0, 0, 10, 10),
		booth("s2", "B2", floorplan.StatusMaintenance, "", 8, 0, 10, 10),
	}}

	hm := ComputeOccupancyHeatmap(plan)
	if hm.Rows != 1 || hm.Cols != 1 {
		t.Fatalf("grid = %dx%d, want 1x1", hm.Rows, hm.Cols)
	}
	if w := hm.Cells[0].Weight; w != 1.25 {
		t.Fatalf("weight = %v, want 1.25", w)
	}
}

func TestComputeOccupancyHeatmapNoBooths(t *testing.T) {
	hm := ComputeOccupancyHeatmap(&floorplan.FloorPlan{GridSize: 10})

	if hm.Rows != 0 || hm.Cols != 0 || len(hm.Cells) != 0 {
		t.Fatalf("expected empty heatmap, got %dx%d with %d cells", hm.Rows, hm.Cols, len(hm.Cells))
	}
	if hm.Cells == nil {
		t.Fatal("cells should be an empty slice, not nil")
	}
}
