package api

import (
	"net/http"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/middleware"
	"github.com/expohall/expohall/internal/stats"
)

// AnalyticsHandlers holds dependencies for occupancy analytics handlers.
type AnalyticsHandlers struct {
	repo floorplan.Repository
}

// NewAnalyticsHandlers creates a new AnalyticsHandlers instance.
func NewAnalyticsHandlers(repo floorplan.Repository) *AnalyticsHandlers {
	return &AnalyticsHandlers{repo: repo}
}

// AnalyticsResponse combines booth statistics with the occupancy heatmap
// for the combined analytics endpoint.
type AnalyticsResponse struct {
	Statistics stats.BoothStatistics `json:"statistics"`
	Heatmap    stats.Heatmap         `json:"heatmap"`
}

// GetAnalytics handles GET /floor-plans/{id}/analytics.
func (h *AnalyticsHandlers) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.loadPlan(w, r)
	if !ok {
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, AnalyticsResponse{
		Statistics: stats.ComputeBoothStatistics(plan),
		Heatmap:    stats.ComputeOccupancyHeatmap(plan),
	})
}

// GetBoothStatistics handles GET /floor-plans/{id}/analytics/booths.
func (h *AnalyticsHandlers) GetBoothStatistics(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.loadPlan(w, r)
	if !ok {
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, stats.ComputeBoothStatistics(plan))
}

// GetHeatmap handles GET /floor-plans/{id}/analytics/heatmap.
func (h *AnalyticsHandlers) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.loadPlan(w, r)
	if !ok {
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, stats.ComputeOccupancyHeatmap(plan))
}

// loadPlan fetches and read-authorizes the plan in the request path,
// writing the error response itself on failure.
func (h *AnalyticsHandlers) loadPlan(w http.ResponseWriter, r *http.Request) (*floorplan.FloorPlan, bool) {
	identity := middleware.GetIdentity(r.Context())

	plan, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	if err := access.AuthorizeRead(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	return plan, true
}
