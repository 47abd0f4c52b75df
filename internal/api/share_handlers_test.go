package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/share"
)

func TestCreateShareLink(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Private", CreatedBy: "alice"})

	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/share", "", organizerAlice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var token share.Token
	decodeData(t, rec, &token)
	if len(token.Token) != 43 {
		t.Errorf("token length = %d, want 43 (32 bytes base64url)", len(token.Token))
	}
	if token.FloorPlanID != plan.ID {
		t.Errorf("floorPlanId = %q, want %q", token.FloorPlanID, plan.ID)
	}
	if token.CreatedBy != "alice" {
		t.Errorf("createdBy = %q, want alice", token.CreatedBy)
	}
}

func TestCreateShareLinkForbiddenForStranger(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Private", CreatedBy: "alice"})

	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/share", "", organizerBob)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestResolveSharedFloorPlan(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Private", CreatedBy: "alice"})

	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/share", "", organizerAlice)
	var token share.Token
	decodeData(t, rec, &token)

	// The token grants anonymous access to a private plan
	rec = d.do(t, http.MethodGet, "/shared/"+token.Token, "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var shared floorplan.FloorPlan
	decodeData(t, rec, &shared)
	if shared.ID != plan.ID {
		t.Errorf("plan id = %q, want %q", shared.ID, plan.ID)
	}
}

func TestResolveSharedUnknownToken(t *testing.T) {
	d := newTestDeps(t)

	rec := d.do(t, http.MethodGet, "/shared/not-a-real-token", "", anonymous)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeNotFound)
	}
}

func TestResolveSharedDeletedPlan(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Doomed", CreatedBy: "alice"})

	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/share", "", organizerAlice)
	var token share.Token
	decodeData(t, rec, &token)

	rec = d.do(t, http.MethodDelete, "/floor-plans/"+plan.ID, "", organizerAlice)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}

	rec = d.do(t, http.MethodGet, "/shared/"+token.Token, "", anonymous)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 after plan deletion", rec.Code)
	}
}

func TestExportFloorPlanJSON(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Expo", CreatedBy: "alice", IsPublic: true})

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/export?format=json", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	// Export bodies are raw documents, not the envelope
	var exported floorplan.FloorPlan
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatalf("failed to decode exported plan: %v", err)
	}
	if exported.ID != plan.ID {
		t.Errorf("exported id = %q, want %q", exported.ID, plan.ID)
	}
}

func TestExportDefaultsToJSON(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Expo", CreatedBy: "alice", IsPublic: true})

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/export", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Expo", CreatedBy: "alice", IsPublic: true})

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/export?format=docx", "", anonymous)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeUnsupportedFormat {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeUnsupportedFormat)
	}
}

func TestExportPDFWithoutRenderer(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Expo", CreatedBy: "alice", IsPublic: true})

	rec := d.do(t, http.MethodGet, "/floor-plans/"+plan.ID+"/export?format=pdf", "", anonymous)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body: %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeRenderFailure {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeRenderFailure)
	}
}

func TestSharedExport(t *testing.T) {
	d := newTestDeps(t)
	plan := d.seedPlan(t, &floorplan.FloorPlan{Name: "Private", CreatedBy: "alice"})

	rec := d.do(t, http.MethodPost, "/floor-plans/"+plan.ID+"/share", "", organizerAlice)
	var token share.Token
	decodeData(t, rec, &token)

	rec = d.do(t, http.MethodGet, "/shared/"+token.Token+"/export?format=json", "", anonymous)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var exported floorplan.FloorPlan
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatalf("failed to decode exported plan: %v", err)
	}
	if exported.ID != plan.ID {
		t.Errorf("exported id = %q, want %q", exported.ID, plan.ID)
	}
}
