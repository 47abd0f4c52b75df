package floorplan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// pqUniqueViolation is the Postgres error code raised when the partial
// unique index on is_master rejects a second master row.
const pqUniqueViolation = "23505"

// PostgresRepository implements Repository on PostgreSQL. Shapes and
// metadata are stored as JSONB; (de)serialization never leaks past this
// boundary. The single-master invariant is enforced by a partial unique
// index (see migrations), not by application-level read-then-write.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a Postgres-backed floor-plan repository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

const planColumns = `id, name, description, floor, version, revision, background_image_ref,
	shapes, scale, grid_size, show_grid, is_public, is_master, tags,
	created_by, updated_by, created_at, updated_at, metadata`

// Create stores a new plan row.
func (r *PostgresRepository) Create(ctx context.Context, plan *FloorPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}

	stored := plan.Clone()
	stored.StripTransient()

	shapes, metadata, err := marshalBlobs(stored)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO floor_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW(), $16)
		RETURNING revision, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		stored.ID, stored.Name, stored.Description, stored.Floor, stored.Version,
		stored.BackgroundImageRef, shapes, stored.Scale, stored.GridSize,
		stored.ShowGrid, stored.IsPublic, stored.IsMaster, pq.Array(stored.Tags),
		stored.CreatedBy, stored.UpdatedBy, metadata,
	).Scan(&plan.Revision, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if isMasterConflict(err) {
			return ErrMasterConflict
		}
		r.logger.Error("failed to insert floor plan", "error", err, "plan_id", stored.ID)
		return fmt.Errorf("%w: insert failed", ErrStoreUnavailable)
	}
	return nil
}

// GetByID retrieves a plan row by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*FloorPlan, error) {
	query := `SELECT ` + planColumns + ` FROM floor_plans WHERE id = $1`
	return r.scanPlan(r.db.QueryRowContext(ctx, query, id))
}

// List returns matching plans ordered by created_at desc with paging.
func (r *PostgresRepository) List(ctx context.Context, f Filters, page, limit int) ([]*FloorPlan, int, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if page <= 0 {
		page = 1
	}

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE %s OR description ILIKE %s OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE %s))", p, p, p))
	}
	if f.Floor != "" {
		conds = append(conds, "floor = "+arg(f.Floor))
	}
	if f.IsPublic != nil {
		conds = append(conds, "is_public = "+arg(*f.IsPublic))
	}
	if f.CreatedBy != "" {
		conds = append(conds, "created_by = "+arg(f.CreatedBy))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM floor_plans" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count floor plans", "error", err)
		return nil, 0, fmt.Errorf("%w: count failed", ErrStoreUnavailable)
	}

	query := "SELECT " + planColumns + " FROM floor_plans" + where +
		" ORDER BY created_at DESC, id DESC LIMIT " + arg(limit) + " OFFSET " + arg((page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list floor plans", "error", err)
		return nil, 0, fmt.Errorf("%w: list failed", ErrStoreUnavailable)
	}
	defer rows.Close()

	var plans []*FloorPlan
	for rows.Next() {
		plan, err := r.scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list scan failed", ErrStoreUnavailable)
	}
	if plans == nil {
		plans = []*FloorPlan{}
	}
	return plans, total, nil
}

// Update persists the plan with optimistic revision checking.
func (r *PostgresRepository) Update(ctx context.Context, plan *FloorPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	stored := plan.Clone()
	stored.StripTransient()

	shapes, metadata, err := marshalBlobs(stored)
	if err != nil {
		return err
	}

	query := `
		UPDATE floor_plans
		SET name = $1, description = $2, floor = $3, version = $4,
			background_image_ref = $5, shapes = $6, scale = $7, grid_size = $8,
			show_grid = $9, is_public = $10, is_master = $11, tags = $12,
			updated_by = $13, metadata = $14, revision = revision + 1, updated_at = NOW()
		WHERE id = $15 AND revision = $16
		RETURNING revision, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		stored.Name, stored.Description, stored.Floor, stored.Version,
		stored.BackgroundImageRef, shapes, stored.Scale, stored.GridSize,
		stored.ShowGrid, stored.IsPublic, stored.IsMaster, pq.Array(stored.Tags),
		stored.UpdatedBy, metadata, stored.ID, stored.Revision,
	).Scan(&plan.Revision, &plan.UpdatedAt)
	if err == nil {
		return nil
	}
	if isMasterConflict(err) {
		return ErrMasterConflict
	}
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing row from a revision mismatch.
		var exists bool
		checkErr := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM floor_plans WHERE id = $1)`, stored.ID).Scan(&exists)
		if checkErr != nil {
			return fmt.Errorf("%w: update check failed", ErrStoreUnavailable)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleRevision
	}
	r.logger.Error("failed to update floor plan", "error", err, "plan_id", stored.ID)
	return fmt.Errorf("%w: update failed", ErrStoreUnavailable)
}

// Delete removes a plan row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM floor_plans WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete floor plan", "error", err, "plan_id", id)
		return fmt.Errorf("%w: delete failed", ErrStoreUnavailable)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete failed", ErrStoreUnavailable)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMaster returns the single master plan if one exists.
func (r *PostgresRepository) GetMaster(ctx context.Context) (*FloorPlan, error) {
	query := `SELECT ` + planColumns + ` FROM floor_plans WHERE is_master`
	return r.scanPlan(r.db.QueryRowContext(ctx, query))
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPlan decodes one floor-plan row, unmarshalling the JSONB blobs.
func (r *PostgresRepository) scanPlan(row rowScanner) (*FloorPlan, error) {
	var plan FloorPlan
	var shapes, metadata []byte
	var description, floor, version, backgroundRef, updatedBy sql.NullString

	err := row.Scan(
		&plan.ID, &plan.Name, &description, &floor, &version, &plan.Revision,
		&backgroundRef, &shapes, &plan.Scale, &plan.GridSize, &plan.ShowGrid,
		&plan.IsPublic, &plan.IsMaster, pq.Array(&plan.Tags),
		&plan.CreatedBy, &updatedBy, &plan.CreatedAt, &plan.UpdatedAt, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to scan floor plan", "error", err)
		return nil, fmt.Errorf("%w: scan failed", ErrStoreUnavailable)
	}

	plan.Description = description.String
	plan.Floor = floor.String
	plan.Version = version.String
	plan.BackgroundImageRef = backgroundRef.String
	plan.UpdatedBy = updatedBy.String

	if len(shapes) > 0 {
		if err := json.Unmarshal(shapes, &plan.Shapes); err != nil {
			return nil, fmt.Errorf("%w: corrupt shapes blob", ErrStoreUnavailable)
		}
	}
	if plan.Shapes == nil {
		plan.Shapes = []Shape{}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &plan.Metadata); err != nil {
			return nil, fmt.Errorf("%w: corrupt metadata blob", ErrStoreUnavailable)
		}
	}
	return &plan, nil
}

// marshalBlobs encodes the JSONB columns for a write.
func marshalBlobs(plan *FloorPlan) ([]byte, []byte, error) {
	if plan.Shapes == nil {
		plan.Shapes = []Shape{}
	}
	shapes, err := json.Marshal(plan.Shapes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: shapes not serializable", ErrValidation)
	}
	var metadata []byte
	if plan.Metadata != nil {
		metadata, err = json.Marshal(plan.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: metadata not serializable", ErrValidation)
		}
	}
	return shapes, metadata, nil
}

// isMasterConflict reports whether err is the unique violation raised by the
// partial index on is_master.
func isMasterConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
