package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/expohall/expohall/internal/floorplan"
)

type fakeRenderer struct {
	data  []byte
	err   error
	delay time.Duration
	got   *RenderRequest
}

func (f *fakeRenderer) Render(ctx context.Context, req *RenderRequest) ([]byte, error) {
	f.got = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.data, f.err
}

func testPlan() *floorplan.FloorPlan {
	return &floorplan.FloorPlan{
		ID:   "fp-1",
		Name: "Main Hall",
		Shapes: []floorplan.Shape{
			{
				ID:       "s1",
				Type:     floorplan.ShapeBooth,
				Geometry: floorplan.Geometry{X: 0, Y: 0, Width: 10, Height: 10},
				Metadata: floorplan.ShapeMetadata{BoothNumber: "B1", Status: floorplan.StatusBooked},
			},
		},
	}
}

func TestExportJSONBypassesRenderer(t *testing.T) {
	renderer := &fakeRenderer{}
	gw := NewGateway(renderer, time.Second)

	res, err := gw.Export(context.Background(), testPlan(), FormatJSON)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if renderer.got != nil {
		t.Error("JSON export must not call the renderer")
	}
	if res.ContentType != "application/json" {
		t.Errorf("contentType = %q, want application/json", res.ContentType)
	}

	var decoded floorplan.FloorPlan
	if err := json.Unmarshal(res.Data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.ID != "fp-1" || len(decoded.Shapes) != 1 {
		t.Errorf("decoded plan = %+v, want fp-1 with one shape", decoded)
	}
}

func TestExportDelegatesToRenderer(t *testing.T) {
	renderer := &fakeRenderer{data: []byte("%PDF-1.7")}
	gw := NewGateway(renderer, time.Second)

	res, err := gw.Export(context.Background(), testPlan(), FormatPDF)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.ContentType != "application/pdf" {
		t.Errorf("contentType = %q, want application/pdf", res.ContentType)
	}
	if string(res.Data) != "%PDF-1.7" {
		t.Errorf("data = %q, want renderer output", res.Data)
	}
	if renderer.got == nil || renderer.got.Format != FormatPDF {
		t.Fatalf("renderer request = %+v, want format pdf", renderer.got)
	}
}

func TestExportRenderTimeout(t *testing.T) {
	renderer := &fakeRenderer{delay: time.Second}
	gw := NewGateway(renderer, 20*time.Millisecond)

	_, err := gw.Export(context.Background(), testPlan(), FormatPNG)
	if !errors.Is(err, ErrRenderTimeout) {
		t.Fatalf("expected ErrRenderTimeout, got %v", err)
	}
}

func TestExportRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("boom")}
	gw := NewGateway(renderer, time.Second)

	_, err := gw.Export(context.Background(), testPlan(), FormatPDF)
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	gw := NewGateway(&fakeRenderer{}, time.Second)
	_, err := gw.Export(context.Background(), testPlan(), Format("svg"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportNoRendererConfigured(t *testing.T) {
	gw := NewGateway(nil, time.Second)
	if _, err := gw.Export(context.Background(), testPlan(), FormatPDF); !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
	if _, err := gw.Export(context.Background(), testPlan(), FormatJSON); err != nil {
		t.Fatalf("JSON export should work without a renderer, got %v", err)
	}
}

func TestHTTPRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/render" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req RenderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Format != FormatPNG || req.Plan == nil || req.Plan.ID != "fp-1" {
			t.Errorf("request = %+v, want png fp-1", req)
		}
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, srv.Client(), nil)
	data, err := r.Render(context.Background(), &RenderRequest{Format: FormatPNG, Plan: testPlan()})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("data = %q, want png-bytes", data)
	}
}

func TestHTTPRendererNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, srv.Client(), nil)
	if _, err := r.Render(context.Background(), &RenderRequest{Format: FormatPDF, Plan: testPlan()}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
