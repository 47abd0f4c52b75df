package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/exhibitor"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/middleware"
)

// Floor plan name constraints.
const (
	MinPlanNameLength = 1
	MaxPlanNameLength = 128
)

// FloorPlanRequest is the request body for creating or replacing a plan.
// Revision is required on update for the optimistic concurrency check and
// ignored on create.
type FloorPlanRequest struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	Floor              string            `json:"floor,omitempty"`
	Version            string            `json:"version,omitempty"`
	Revision           int64             `json:"revision,omitempty"`
	BackgroundImageRef string            `json:"backgroundImageRef,omitempty"`
	Shapes             []floorplan.Shape `json:"shapes"`
	Scale              float64           `json:"scale,omitempty"`
	GridSize           int               `json:"gridSize,omitempty"`
	ShowGrid           bool              `json:"showGrid,omitempty"`
	IsPublic           bool              `json:"isPublic,omitempty"`
	Tags               []string          `json:"tags,omitempty"`
	Metadata           map[string]any    `json:"metadata,omitempty"`
}

// ListResponse wraps a page of plans with the total match count.
type ListResponse struct {
	Items []*floorplan.FloorPlan `json:"items"`
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

// toPlan converts the request into a plan aggregate. Ownership and master
// flags are set by the handlers, never from the request body.
func (req *FloorPlanRequest) toPlan() *floorplan.FloorPlan {
	return &floorplan.FloorPlan{
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		Floor:              req.Floor,
		Version:            req.Version,
		Revision:           req.Revision,
		BackgroundImageRef: req.BackgroundImageRef,
		Shapes:             req.Shapes,
		Scale:              req.Scale,
		GridSize:           req.GridSize,
		ShowGrid:           req.ShowGrid,
		IsPublic:           req.IsPublic,
		Tags:               req.Tags,
		Metadata:           req.Metadata,
	}
}

// FloorPlanHandlers holds dependencies for floor-plan HTTP handlers.
type FloorPlanHandlers struct {
	repo      floorplan.Repository
	master    *floorplan.MasterManager
	directory exhibitor.Directory // nil when no directory is configured
}

// NewFloorPlanHandlers creates a new FloorPlanHandlers instance.
func NewFloorPlanHandlers(repo floorplan.Repository, master *floorplan.MasterManager, directory exhibitor.Directory) *FloorPlanHandlers {
	return &FloorPlanHandlers{repo: repo, master: master, directory: directory}
}

// validatePlanName checks the plan name length after trimming.
// Returns an error message, or empty string if valid.
func validatePlanName(name string) string {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinPlanNameLength {
		return "name is required"
	}
	if len(trimmed) > MaxPlanNameLength {
		return "name must not exceed 128 characters"
	}
	return ""
}

// CreateFloorPlan handles POST /floor-plans.
func (h *FloorPlanHandlers) CreateFloorPlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req FloorPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if errMsg := validatePlanName(req.Name); errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	plan := req.toPlan()
	plan.Revision = 0
	plan.CreatedBy = identity.ID
	plan.UpdatedBy = identity.ID

	// The write runs to completion even if the client disconnects.
	if err := h.repo.Create(context.WithoutCancel(r.Context()), plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, plan)
}

// GetFloorPlan handles GET /floor-plans/{id}. When the caller is an
// exhibitor with a directory entry, their booths are flagged in the
// returned shapes.
func (h *FloorPlanHandlers) GetFloorPlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	planID := r.PathValue("id")

	plan, err := h.repo.GetByID(r.Context(), planID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := access.AuthorizeRead(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.decorateForViewer(r.Context(), plan, identity)
	WriteJSON(w, r.Context(), http.StatusOK, plan)
}

// decorateForViewer flags the caller's booths when an exhibitor directory
// is configured. Lookup failures leave the plan undecorated.
func (h *FloorPlanHandlers) decorateForViewer(ctx context.Context, plan *floorplan.FloorPlan, identity access.Identity) {
	if h.directory == nil || identity.Role != access.RoleExhibitor {
		return
	}
	ex, err := h.directory.GetByID(ctx, identity.ID)
	if err != nil || ex == nil {
		return
	}
	plan.Shapes = exhibitor.ResolveForExhibitor(plan.Shapes, ex)
}

// ListFloorPlans handles GET /floor-plans. Non-admin callers see their own
// plans unless they explicitly filter on is_public=true.
func (h *FloorPlanHandlers) ListFloorPlans(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	filters, page, limit, errMsg := parseListQuery(r)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	if !identity.IsAdmin() {
		publicOnly := filters.IsPublic != nil && *filters.IsPublic
		if !publicOnly {
			filters.CreatedBy = identity.ID
		}
	}

	h.writePage(w, r, filters, page, limit)
}

// ListPublicFloorPlans handles GET /floor-plans/public.
func (h *FloorPlanHandlers) ListPublicFloorPlans(w http.ResponseWriter, r *http.Request) {
	filters, page, limit, errMsg := parseListQuery(r)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	public := true
	filters.IsPublic = &public
	filters.CreatedBy = ""

	h.writePage(w, r, filters, page, limit)
}

// GetPublicFloorPlan handles GET /floor-plans/public/{id}. Non-public plans
// are reported as not found rather than forbidden.
func (h *FloorPlanHandlers) GetPublicFloorPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !plan.IsPublic {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Floor plan not found")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, plan)
}

// writePage runs the list query and writes the paged envelope.
func (h *FloorPlanHandlers) writePage(w http.ResponseWriter, r *http.Request, filters floorplan.Filters, page, limit int) {
	plans, total, err := h.repo.List(r.Context(), filters, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if limit <= 0 {
		limit = floorplan.DefaultPageLimit
	}
	if page <= 0 {
		page = 1
	}
	WriteJSON(w, r.Context(), http.StatusOK, ListResponse{Items: plans, Total: total, Page: page, Limit: limit})
}

// UpdateFloorPlan handles PUT /floor-plans/{id} - wholesale replacement
// with an optimistic revision check.
func (h *FloorPlanHandlers) UpdateFloorPlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	planID := r.PathValue("id")

	var req FloorPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if errMsg := validatePlanName(req.Name); errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}
	if req.Revision <= 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "revision is required for updates")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), planID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := access.AuthorizeMutation(identity, existing); err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated := req.toPlan()
	updated.ID = existing.ID
	updated.IsMaster = existing.IsMaster
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedBy = identity.ID
	if existing.IsMaster {
		// The master plan stays public.
		updated.IsPublic = true
	}

	if err := h.repo.Update(context.WithoutCancel(r.Context()), updated); err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// DeleteFloorPlan handles DELETE /floor-plans/{id}.
func (h *FloorPlanHandlers) DeleteFloorPlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	planID := r.PathValue("id")

	plan, err := h.repo.GetByID(r.Context(), planID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := access.AuthorizeMutation(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.repo.Delete(context.WithoutCancel(r.Context()), planID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteMessage(w, r.Context(), http.StatusOK, "Floor plan deleted")
}

// GetMaster handles GET /floor-plans/master. The master plan is always
// public, so no read authorization applies.
func (h *FloorPlanHandlers) GetMaster(w http.ResponseWriter, r *http.Request) {
	plan, err := h.master.GetMaster(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, plan)
}

// CreateOrUpdateMaster handles POST and PUT /floor-plans/master - get-or-create
// semantics converging on a single master plan.
func (h *FloorPlanHandlers) CreateOrUpdateMaster(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	if identity.Role != access.RoleAdmin && identity.Role != access.RoleOrganizer {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only admins and organizers can manage the master plan")
		return
	}

	var req FloorPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	plan, err := h.master.CreateOrUpdateMaster(context.WithoutCancel(r.Context()), req.toPlan(), identity.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, plan)
}

// FindBooth handles GET /floor-plans/find-booth/{boothNumber} - cross-plan
// booth lookup scoped to the caller's plans and public plans.
func (h *FloorPlanHandlers) FindBooth(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	boothNumber := r.PathValue("boothNumber")

	match, err := exhibitor.FindBoothByNumber(r.Context(), h.repo, boothNumber, identity.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, match)
}

// parseListQuery extracts filters and paging from list query parameters.
// Returns an error message for malformed values, empty string otherwise.
func parseListQuery(r *http.Request) (floorplan.Filters, int, int, string) {
	q := r.URL.Query()
	filters := floorplan.Filters{
		Search:    q.Get("search"),
		Floor:     q.Get("floor"),
		CreatedBy: q.Get("created_by"),
	}

	if raw := q.Get("is_public"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, 0, 0, "is_public must be true or false"
		}
		filters.IsPublic = &val
	}

	page, errMsg := parsePositiveInt(q.Get("page"), "page")
	if errMsg != "" {
		return filters, 0, 0, errMsg
	}
	limit, errMsg := parsePositiveInt(q.Get("limit"), "limit")
	if errMsg != "" {
		return filters, 0, 0, errMsg
	}
	return filters, page, limit, ""
}

// parsePositiveInt parses an optional positive integer query parameter.
func parsePositiveInt(raw, name string) (int, string) {
	if raw == "" {
		return 0, ""
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, name + " must be a positive integer"
	}
	return val, ""
}
