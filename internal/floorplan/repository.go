package floorplan

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Filters narrows a List query. Zero values mean "no filter".
type Filters struct {
	Search    string // substring match on name, description, or tags
	Floor     string
	IsPublic  *bool
	CreatedBy string
}

// Repository is the persistence boundary for floor plans. Implementations
// perform no business validation beyond required fields, strip transient
// shape flags on write, and enforce the single-master invariant atomically.
type Repository interface {
	// Create stores a new plan. A plan with IsMaster=true fails with
	// ErrMasterConflict if a master already exists.
	Create(ctx context.Context, plan *FloorPlan) error

	// GetByID retrieves a plan by id. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*FloorPlan, error)

	// List returns plans matching the filters, ordered by created_at desc
	// (id desc tie-break), along with the total match count before paging.
	// page is 1-based; limit <= 0 falls back to DefaultPageLimit.
	List(ctx context.Context, f Filters, page, limit int) ([]*FloorPlan, int, error)

	// Update persists the plan. If plan.Revision does not match the stored
	// revision the write is rejected with ErrStaleRevision; on success the
	// stored revision is incremented and reflected in the passed plan.
	// Promoting a plan to master fails with ErrMasterConflict if another
	// master exists.
	Update(ctx context.Context, plan *FloorPlan) error

	// Delete removes a plan. Returns ErrNotFound if missing.
	Delete(ctx context.Context, id string) error

	// GetMaster returns the master plan, or ErrNotFound if none exists.
	GetMaster(ctx context.Context) (*FloorPlan, error)
}

// DefaultPageLimit is used when a List caller supplies no limit.
const DefaultPageLimit = 20

// InMemoryRepository is an in-memory Repository implementation.
// Thread-safe via RWMutex; used for tests and development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	plans map[string]*FloorPlan
	now   func() time.Time
}

// NewInMemoryRepository creates an empty in-memory floor-plan repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		plans: make(map[string]*FloorPlan),
		now:   time.Now,
	}
}

// Create stores a new plan with a generated id and timestamps.
func (r *InMemoryRepository) Create(ctx context.Context, plan *FloorPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The single-master check and the insert happen under the same lock,
	// which is the in-memory equivalent of the store-level constraint.
	if plan.IsMaster {
		for _, existing := range r.plans {
			if existing.IsMaster {
				return ErrMasterConflict
			}
		}
	}

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := r.now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	plan.Revision = 1

	stored := plan.Clone()
	stored.StripTransient()
	r.plans[stored.ID] = stored
	return nil
}

// GetByID retrieves a deep copy of a plan by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*FloorPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return plan.Clone(), nil
}

// List returns matching plans ordered by created_at desc with paging.
func (r *InMemoryRepository) List(ctx context.Context, f Filters, page, limit int) ([]*FloorPlan, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*FloorPlan
	for _, plan := range r.plans {
		if matchesFilters(plan, f) {
			matches = append(matches, plan)
		}
	}

	sortPlansByCreatedDesc(matches)

	total := len(matches)
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return []*FloorPlan{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	results := make([]*FloorPlan, 0, end-start)
	for _, plan := range matches[start:end] {
		results = append(results, plan.Clone())
	}
	return results, total, nil
}

// Update persists the plan with optimistic revision checking.
func (r *InMemoryRepository) Update(ctx context.Context, plan *FloorPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.plans[plan.ID]
	if !ok {
		return ErrNotFound
	}
	if plan.Revision != existing.Revision {
		return ErrStaleRevision
	}
	if plan.IsMaster && !existing.IsMaster {
		for id, other := range r.plans {
			if other.IsMaster && id != plan.ID {
				return ErrMasterConflict
			}
		}
	}

	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = r.now()
	plan.Revision = existing.Revision + 1

	stored := plan.Clone()
	stored.StripTransient()
	r.plans[stored.ID] = stored
	return nil
}

// Delete removes a plan by id.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[id]; !ok {
		return ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

// GetMaster returns the single master plan if one exists.
func (r *InMemoryRepository) GetMaster(ctx context.Context) (*FloorPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, plan := range r.plans {
		if plan.IsMaster {
			return plan.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// matchesFilters applies List filters to a plan.
func matchesFilters(plan *FloorPlan, f Filters) bool {
	if f.Floor != "" && plan.Floor != f.Floor {
		return false
	}
	if f.IsPublic != nil && plan.IsPublic != *f.IsPublic {
		return false
	}
	if f.CreatedBy != "" && plan.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if strings.Contains(strings.ToLower(plan.Name), needle) {
			return true
		}
		if strings.Contains(strings.ToLower(plan.Description), needle) {
			return true
		}
		for _, tag := range plan.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	return true
}

// sortPlansByCreatedDesc orders plans newest first, id desc tie-break for
// stable paging.
func sortPlansByCreatedDesc(plans []*FloorPlan) {
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].CreatedAt.After(plans[j].CreatedAt) {
			return true
		}
		if plans[i].CreatedAt.Before(plans[j].CreatedAt) {
			return false
		}
		return plans[i].ID > plans[j].ID
	})
}
