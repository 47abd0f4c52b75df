package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/blob"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/middleware"
)

// SignBackgroundRequest is the request body for a background upload URL.
type SignBackgroundRequest struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// BackgroundHandlers holds dependencies for background image upload handlers.
type BackgroundHandlers struct {
	repo floorplan.Repository
	blob *blob.Service // nil when object storage is not configured
}

// NewBackgroundHandlers creates a new BackgroundHandlers instance.
func NewBackgroundHandlers(repo floorplan.Repository, blobService *blob.Service) *BackgroundHandlers {
	return &BackgroundHandlers{repo: repo, blob: blobService}
}

// SignBackgroundUpload handles POST /floor-plans/{id}/background/sign -
// returns a presigned PUT URL for the plan's background image. The returned
// object key goes into the plan's backgroundImageRef on the next update.
func (h *BackgroundHandlers) SignBackgroundUpload(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	planID := r.PathValue("id")

	if h.blob == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeStoreUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Background uploads are not configured")
		return
	}

	plan, err := h.repo.GetByID(r.Context(), planID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := access.AuthorizeMutation(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req SignBackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	signed, err := h.blob.GenerateSignedURL(r.Context(), blob.SignedURLRequest{
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		PlanID:      plan.ID,
	})
	if err != nil {
		writeBlobError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, signed)
}

// FinalizeBackgroundRequest carries the object key returned by the sign step.
type FinalizeBackgroundRequest struct {
	Key string `json:"key"`
}

// FinalizeBackground handles POST /floor-plans/{id}/background/finalize -
// sanitizes the uploaded object in place (EXIF stripped, re-encoded) and
// records it as the plan's background image.
func (h *BackgroundHandlers) FinalizeBackground(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	planID := r.PathValue("id")

	if h.blob == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeStoreUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Background uploads are not configured")
		return
	}

	var req FinalizeBackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Key == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "key is required")
		return
	}

	plan, err := h.repo.GetByID(r.Context(), planID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := access.AuthorizeMutation(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.blob.FinalizeBackground(r.Context(), req.Key); err != nil {
		writeBlobError(w, r, err)
		return
	}

	var lastErr error
	for attempt := 0; attempt < boothWriteRetries; attempt++ {
		plan, err = h.repo.GetByID(r.Context(), planID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		plan.BackgroundImageRef = req.Key
		plan.UpdatedBy = identity.ID

		lastErr = h.repo.Update(context.WithoutCancel(r.Context()), plan)
		if lastErr == nil {
			WriteJSON(w, r.Context(), http.StatusOK, plan)
			return
		}
		if !errors.Is(lastErr, floorplan.ErrStaleRevision) {
			break
		}
	}
	writeDomainError(w, r, lastErr)
}

// writeBlobError maps blob service errors to the envelope.
func writeBlobError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code, message string

	switch {
	case errors.Is(err, blob.ErrUnsupportedType):
		status, code, message = http.StatusBadRequest, ErrCodeUnsupportedType, "Content type must be image/jpeg, image/png, or image/webp"
	case errors.Is(err, blob.ErrFileTooLarge):
		status, code, message = http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge, "File exceeds the upload size limit"
	case errors.Is(err, blob.ErrInvalidPlanID):
		status, code, message = http.StatusBadRequest, ErrCodeValidation, "Invalid floor plan id for object key"
	case errors.Is(err, blob.ErrObjectNotFound):
		status, code, message = http.StatusNotFound, ErrCodeNotFound, "Uploaded object not found"
	default:
		status, code, message = http.StatusInternalServerError, ErrCodeInternal, "Failed to generate upload URL"
	}

	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}
