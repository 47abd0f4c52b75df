package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/booth"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/live"
	"github.com/expohall/expohall/internal/middleware"
	"github.com/expohall/expohall/internal/spatial"
)

// boothWriteRetries bounds the read-modify-write retry loop. Booth routes
// carry no client revision, so concurrent edits are retried server-side.
const boothWriteRetries = 3

// SetStatusRequest is the request body for a booth status transition.
type SetStatusRequest struct {
	Status floorplan.BoothStatus `json:"status"`
}

// BoothHandlers holds dependencies for booth HTTP handlers.
type BoothHandlers struct {
	repo        floorplan.Repository
	broadcaster *live.EventBroadcaster // nil disables live events
}

// NewBoothHandlers creates a new BoothHandlers instance.
func NewBoothHandlers(repo floorplan.Repository, broadcaster *live.EventBroadcaster) *BoothHandlers {
	return &BoothHandlers{repo: repo, broadcaster: broadcaster}
}

// ListBooths handles GET /floor-plans/{id}/booths with optional status and
// category filters.
func (h *BoothHandlers) ListBooths(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	statusFilter := floorplan.BoothStatus(q.Get("status"))
	if statusFilter != "" && !statusFilter.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "status must be available, booked, reserved, or maintenance")
		return
	}
	categoryFilter := q.Get("category")

	booths := plan.Booths()
	filtered := make([]floorplan.Shape, 0, len(booths))
	for _, b := range booths {
		status := b.Metadata.Status
		if status == "" {
			status = floorplan.StatusAvailable
		}
		if statusFilter != "" && status != statusFilter {
			continue
		}
		if categoryFilter != "" && b.Metadata.Category != categoryFilter {
			continue
		}
		filtered = append(filtered, b)
	}

	WriteJSON(w, r.Context(), http.StatusOK, filtered)
}

// AddBooth handles POST /floor-plans/{id}/booths.
func (h *BoothHandlers) AddBooth(w http.ResponseWriter, r *http.Request) {
	var req booth.Input
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	var added floorplan.Shape
	err := h.mutatePlan(r, func(plan *floorplan.FloorPlan) error {
		shape, err := booth.Add(plan, req)
		if err != nil {
			return err
		}
		added = *shape
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, added)
}

// RemoveBooth handles DELETE /floor-plans/{id}/booths/{shapeId}.
func (h *BoothHandlers) RemoveBooth(w http.ResponseWriter, r *http.Request) {
	shapeID := r.PathValue("shapeId")

	err := h.mutatePlan(r, func(plan *floorplan.FloorPlan) error {
		return booth.Remove(plan, shapeID)
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteMessage(w, r.Context(), http.StatusOK, "Booth removed")
}

// SetBoothStatus handles PATCH /floor-plans/{id}/booths/{shapeId}/status and
// broadcasts the transition to live subscribers.
func (h *BoothHandlers) SetBoothStatus(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	shapeID := r.PathValue("shapeId")

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	var updated floorplan.Shape
	err := h.mutatePlan(r, func(plan *floorplan.FloorPlan) error {
		shape := plan.FindShape(shapeID)
		if shape == nil {
			return floorplan.ErrShapeNotFound
		}
		if err := booth.SetStatus(shape, req.Status); err != nil {
			return err
		}
		updated = *shape
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(planID, &live.BoothEvent{
			FloorPlanID: planID,
			ShapeID:     updated.ID,
			BoothNumber: updated.Metadata.BoothNumber,
			Status:      string(updated.Metadata.Status),
			OccurredAt:  time.Now().UTC(),
		})
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// MergeBoothMetadata handles PUT /floor-plans/{id}/booths/{shapeId} - a
// partial metadata merge where only set fields are applied.
func (h *BoothHandlers) MergeBoothMetadata(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	shapeID := r.PathValue("shapeId")

	var patch booth.MetadataPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	var updated floorplan.Shape
	err := h.mutatePlan(r, func(plan *floorplan.FloorPlan) error {
		shape := plan.FindShape(shapeID)
		if shape == nil {
			return floorplan.ErrShapeNotFound
		}
		if err := booth.MergeMetadata(shape, patch); err != nil {
			return err
		}
		updated = *shape
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if h.broadcaster != nil && patch.Status != nil {
		h.broadcaster.Broadcast(planID, &live.BoothEvent{
			FloorPlanID: planID,
			ShapeID:     updated.ID,
			BoothNumber: updated.Metadata.BoothNumber,
			Status:      string(updated.Metadata.Status),
			OccurredAt:  time.Now().UTC(),
		})
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// GetNeighbors handles GET /floor-plans/{id}/booths/{shapeId}/neighbors?k=&limit=.
func (h *BoothHandlers) GetNeighbors(w http.ResponseWriter, r *http.Request) {
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

	target := plan.FindShape(r.PathValue("shapeId"))
	if target == nil || !target.IsBooth() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Booth not found")
		return
	}

	q := r.URL.Query()
	k := 0.0
	if raw := q.Get("k"); raw != "" {
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil || val <= 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "k must be a positive number")
			return
		}
		k = val
	}
	limit, errMsg := parsePositiveInt(q.Get("limit"), "limit")
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	neighbors, err := spatial.NeighboringBoothsByID(plan, target.ID, k, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, neighbors)
}

// mutatePlan runs a read-authorize-mutate-write cycle against the plan in
// the request path, retrying when a concurrent editor bumps the revision.
func (h *BoothHandlers) mutatePlan(r *http.Request, mutate func(*floorplan.FloorPlan) error) error {
	identity := middleware.GetIdentity(r.Context())
	planID := r.PathValue("id")

	var lastErr error
	for attempt := 0; attempt < boothWriteRetries; attempt++ {
		plan, err := h.repo.GetByID(r.Context(), planID)
		if err != nil {
			return err
		}
		if err := access.AuthorizeMutation(identity, plan); err != nil {
			return err
		}
		if err := mutate(plan); err != nil {
			return err
		}
		plan.UpdatedBy = identity.ID

		err = h.repo.Update(context.WithoutCancel(r.Context()), plan)
		if err == nil {
			return nil
		}
		if !errors.Is(err, floorplan.ErrStaleRevision) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
