package api

import (
	"net/http"
	"testing"

	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/stats"
)

func TestGetBoothStatistics(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodPatch, "/floor-plans/"+plan.ID+"/booths/b1/status", `{"status":"booked"}`, organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("setup status = %d, want 200", rec.Code)
	}

	rec = d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/analytics/booths", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var got stats.BoothStatistics
	decodeData(t, rec, &got)
	if got.Total != 2 {
		t.Errorf("total = %d, want 2", got.Total)
	}
	want := map[floorplan.BoothStatus]int{
		floorplan.StatusAvailable:   1,
		floorplan.StatusBooked:      1,
		floorplan.StatusReserved:    0,
		floorplan.StatusMaintenance: 0,
	}
	for status, count := range want {
		if got.ByStatus[status] != count {
			t.Errorf("byStatus[%s] = %d, want %d", status, got.ByStatus[status], count)
		}
	}
}

func TestGetHeatmap(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/analytics/heatmap", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var hm stats.Heatmap
	decodeData(t, rec, &hm)
	if hm.GridSize != 10 {
		t.Errorf("gridSize = %d, want 10", hm.GridSize)
	}
	if hm.Cells == nil {
		t.Error("cells must be present, even when empty")
	}
}

func TestGetAnalyticsCombined(t *testing.T) {
	d := newTestDeps(t)
	plan := seedBoothPlan(t, d)

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/analytics", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var combined AnalyticsResponse
	decodeData(t, rec, &combined)
	if combined.Statistics.Total != 2 {
		t.Errorf("statistics total = %d, want 2", combined.Statistics.Total)
	}
	if combined.Heatmap.GridSize != 10 {
		t.Errorf("heatmap gridSize = %d, want 10", combined.Heatmap.GridSize)
	}
}

func TestAnalyticsForbiddenOnPrivatePlan(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Private", CreatedBy: "alice"})

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/analytics", "", viewerDave)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
