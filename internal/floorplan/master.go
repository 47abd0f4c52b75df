package floorplan

import (
	"context"
	"errors"
	"log/slog"
)

// MasterManager provides get-or-create semantics for the single public
// master floor plan. Uniqueness is guaranteed by the store (partial unique
// index or equivalent), never by a read-then-write check alone; this
// manager only retries when it loses the race.
type MasterManager struct {
	repo   Repository
	logger *slog.Logger
}

// NewMasterManager creates a master-plan manager over the given repository.
func NewMasterManager(repo Repository, logger *slog.Logger) *MasterManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &MasterManager{repo: repo, logger: logger}
}

// GetMaster returns the master plan, or ErrNotFound if none exists.
// It never auto-creates.
func (m *MasterManager) GetMaster(ctx context.Context) (*FloorPlan, error) {
	return m.repo.GetMaster(ctx)
}

// CreateOrUpdateMaster applies data to the existing master preserving its id,
// or creates a new master plan owned by callerID. Concurrent calls converge
// on a single master row.
func (m *MasterManager) CreateOrUpdateMaster(ctx context.Context, data *FloorPlan, callerID string) (*FloorPlan, error) {
	// Optimistic retry loop: every conflict means another caller committed,
	// so the loop cannot spin without system-wide progress.
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, err := m.repo.GetMaster(ctx)
		switch {
		case err == nil:
			updated := applyMasterUpdate(existing, data, callerID)
			if err := m.repo.Update(ctx, updated); err != nil {
				if errors.Is(err, ErrStaleRevision) || errors.Is(err, ErrNotFound) {
					// A concurrent editor or delete got there first.
					continue
				}
				return nil, err
			}
			return updated, nil

		case errors.Is(err, ErrNotFound):
			created := data.Clone()
			created.ID = ""
			created.IsMaster = true
			created.IsPublic = true
			created.CreatedBy = callerID
			created.UpdatedBy = callerID
			if err := m.repo.Create(ctx, created); err != nil {
				if errors.Is(err, ErrMasterConflict) {
					// Lost the creation race; the winner's row exists now.
					m.logger.Debug("master creation race lost, retrying as update")
					continue
				}
				return nil, err
			}
			return created, nil

		default:
			return nil, err
		}
	}
}

// applyMasterUpdate merges incoming data onto the stored master, preserving
// identity, ownership, and the master/public flags.
func applyMasterUpdate(existing, data *FloorPlan, callerID string) *FloorPlan {
	updated := data.Clone()
	updated.ID = existing.ID
	updated.Revision = existing.Revision
	updated.IsMaster = true
	updated.IsPublic = true
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedBy = callerID
	if updated.Name == "" {
		updated.Name = existing.Name
	}
	return updated
}
