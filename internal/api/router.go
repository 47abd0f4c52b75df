package api

import (
	"net/http"

	"github.com/expohall/expohall/internal/middleware"
)

// RouterConfig wires handlers and per-route middleware into the mux.
// Nil optional limiters disable per-route rate limiting.
type RouterConfig struct {
	FloorPlans *FloorPlanHandlers
	Booths     *BoothHandlers
	Share      *ShareHandlers
	Export     *ExportHandlers
	Analytics  *AnalyticsHandlers
	Background *BackgroundHandlers
	Live       *LiveHandlers
	Health     *HealthHandlers

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler

	// ShareLimiter and ExportLimiter throttle the expensive routes.
	ShareLimiter  func(http.Handler) http.Handler
	ExportLimiter func(http.Handler) http.Handler
}

// NewRouter builds the service mux. Authentication is resolved by the
// Authenticate middleware further out; routes that demand a caller wrap
// RequireAuth here, everything else lets the access guard decide per plan.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(h)
	}
	limited := func(limiter func(http.Handler) http.Handler, h http.Handler) http.Handler {
		if limiter == nil {
			return h
		}
		return limiter(h)
	}

	// Floor plan CRUD and listing
	mux.Handle("POST /floor-plans", requireAuth(cfg.FloorPlans.CreateFloorPlan))
	mux.Handle("GET /floor-plans", requireAuth(cfg.FloorPlans.ListFloorPlans))
	mux.HandleFunc("GET /floor-plans/public", cfg.FloorPlans.ListPublicFloorPlans)
	mux.HandleFunc("GET /floor-plans/{id}", cfg.FloorPlans.GetFloorPlan)
	mux.Handle("PUT /floor-plans/{id}", requireAuth(cfg.FloorPlans.UpdateFloorPlan))
	mux.Handle("DELETE /floor-plans/{id}", requireAuth(cfg.FloorPlans.DeleteFloorPlan))

	// Master plan singleton
	mux.HandleFunc("GET /floor-plans/master", cfg.FloorPlans.GetMaster)
	mux.Handle("POST /floor-plans/master", requireAuth(cfg.FloorPlans.CreateOrUpdateMaster))
	mux.Handle("PUT /floor-plans/master", requireAuth(cfg.FloorPlans.CreateOrUpdateMaster))

	// Booths
	mux.HandleFunc("GET /floor-plans/{id}/booths", cfg.Booths.ListBooths)
	mux.Handle("POST /floor-plans/{id}/booths", requireAuth(cfg.Booths.AddBooth))
	mux.Handle("PUT /floor-plans/{id}/booths/{shapeId}", requireAuth(cfg.Booths.MergeBoothMetadata))
	mux.Handle("DELETE /floor-plans/{id}/booths/{shapeId}", requireAuth(cfg.Booths.RemoveBooth))
	mux.Handle("PATCH /floor-plans/{id}/booths/{shapeId}/status", requireAuth(cfg.Booths.SetBoothStatus))
	mux.HandleFunc("GET /floor-plans/{id}/booths/{shapeId}/neighbors", cfg.Booths.GetNeighbors)

	// Exhibitor cross-plan lookup
	mux.HandleFunc("GET /exhibitors/find-booth/{boothNumber}", cfg.FloorPlans.FindBooth)

	// Analytics
	mux.HandleFunc("GET /floor-plans/{id}/analytics", cfg.Analytics.GetAnalytics)
	mux.HandleFunc("GET /floor-plans/{id}/analytics/booths", cfg.Analytics.GetBoothStatistics)
	mux.HandleFunc("GET /floor-plans/{id}/analytics/heatmap", cfg.Analytics.GetHeatmap)

	// Sharing and export
	mux.Handle("POST /floor-plans/{id}/share",
		limited(cfg.ShareLimiter, requireAuth(cfg.Share.CreateShareLink)))
	mux.HandleFunc("GET /shared/{token}", cfg.Share.GetSharedFloorPlan)
	mux.Handle("GET /shared/{token}/export",
		limited(cfg.ExportLimiter, http.HandlerFunc(cfg.Share.ExportSharedFloorPlan)))
	mux.Handle("GET /floor-plans/{id}/export",
		limited(cfg.ExportLimiter, http.HandlerFunc(cfg.Export.ExportFloorPlan)))

	// Background uploads
	mux.Handle("POST /floor-plans/{id}/background/sign", requireAuth(cfg.Background.SignBackgroundUpload))
	mux.Handle("POST /floor-plans/{id}/background/finalize", requireAuth(cfg.Background.FinalizeBackground))

	// Live booth events
	mux.HandleFunc("GET /floor-plans/{id}/live", cfg.Live.SubscribeToBoothEvents)

	// Probes and metrics
	mux.HandleFunc("GET /health", cfg.Health.Health)
	mux.HandleFunc("GET /ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	// Root info and structured 404 for everything unmatched
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" || r.Method != http.MethodGet {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		WriteJSON(w, r.Context(), http.StatusOK, map[string]string{
			"service": "expohall-api",
			"version": "0.1.0",
		})
	})

	return mux
}
