package api

import (
	"context"
	"net/http"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/export"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/middleware"
	"github.com/expohall/expohall/internal/share"
)

// ShareHandlers holds dependencies for share-link and export HTTP handlers.
type ShareHandlers struct {
	repo    floorplan.Repository
	service *share.Service
	gateway *export.Gateway
}

// NewShareHandlers creates a new ShareHandlers instance.
func NewShareHandlers(repo floorplan.Repository, service *share.Service, gateway *export.Gateway) *ShareHandlers {
	return &ShareHandlers{repo: repo, service: service, gateway: gateway}
}

// CreateShareLink handles POST /floor-plans/{id}/share - issues an expiring
// share token for the plan. Owner or admin only.
func (h *ShareHandlers) CreateShareLink(w http.ResponseWriter, r *http.Request) {
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

	token, err := h.service.Generate(context.WithoutCancel(r.Context()), plan.ID, identity.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, token)
}

// GetSharedFloorPlan handles GET /floor-plans/shared/{token} - unauthenticated
// plan access through a valid share token.
func (h *ShareHandlers) GetSharedFloorPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.resolvePlan(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, plan)
}

// ExportSharedFloorPlan handles GET /floor-plans/shared/{token}/export?format=.
func (h *ShareHandlers) ExportSharedFloorPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.resolvePlan(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeExport(w, r, h.gateway, plan)
}

// resolvePlan loads the plan behind the share token in the request path.
// Token validity substitutes for read authorization.
func (h *ShareHandlers) resolvePlan(r *http.Request) (*floorplan.FloorPlan, error) {
	token, err := h.service.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		return nil, err
	}
	plan, err := h.repo.GetByID(r.Context(), token.FloorPlanID)
	if err != nil {
		// The plan was deleted after the token was issued.
		return nil, share.ErrTokenNotFound
	}
	return plan, nil
}

// ExportHandlers holds dependencies for the authenticated export route.
type ExportHandlers struct {
	repo    floorplan.Repository
	gateway *export.Gateway
}

// NewExportHandlers creates a new ExportHandlers instance.
func NewExportHandlers(repo floorplan.Repository, gateway *export.Gateway) *ExportHandlers {
	return &ExportHandlers{repo: repo, gateway: gateway}
}

// ExportFloorPlan handles GET /floor-plans/{id}/export?format=json|pdf|png.
func (h *ExportHandlers) ExportFloorPlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	plan, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := access.AuthorizeRead(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeExport(w, r, h.gateway, plan)
}

// writeExport runs the export gateway and streams the rendered document.
// Unlike JSON endpoints the body is the raw document, not the envelope.
func writeExport(w http.ResponseWriter, r *http.Request, gateway *export.Gateway, plan *floorplan.FloorPlan) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatJSON
	}

	result, err := gateway.Export(r.Context(), plan, format)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		return
	}
}
