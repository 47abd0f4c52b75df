package floorplan

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestGetMaster_NoAutoCreate(t *testing.T) {
	mgr := NewMasterManager(NewInMemoryRepository(), nil)

	if _, err := mgr.GetMaster(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateOrUpdateMaster_CreatesWithFlags(t *testing.T) {
	repo := NewInMemoryRepository()
	mgr := NewMasterManager(repo, nil)

	data := &FloorPlan{Name: "Main Hall"}
	created, err := mgr.CreateOrUpdateMaster(context.Background(), data, "admin-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !created.IsMaster || !created.IsPublic {
		t.Error("master plan must be flagged master and public")
	}
	if created.CreatedBy != "admin-1" {
		t.Errorf("expected createdBy admin-1, got %q", created.CreatedBy)
	}

	stored, err := repo.GetMaster(context.Background())
	if err != nil {
		t.Fatalf("master not stored: %v", err)
	}
	if stored.ID != created.ID {
		t.Error("stored master does not match returned plan")
	}
}

func TestCreateOrUpdateMaster_UpdatesPreservingIdentity(t *testing.T) {
	repo := NewInMemoryRepository()
	mgr := NewMasterManager(repo, nil)
	ctx := context.Background()

	first, err := mgr.CreateOrUpdateMaster(ctx, &FloorPlan{Name: "Main Hall"}, "admin-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	second, err := mgr.CreateOrUpdateMaster(ctx, &FloorPlan{Name: "Main Hall v2", Description: "rearranged"}, "admin-2")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if second.ID != first.ID {
		t.Error("update must preserve the master plan id")
	}
	if second.CreatedBy != "admin-1" {
		t.Errorf("update must preserve original owner, got %q", second.CreatedBy)
	}
	if second.UpdatedBy != "admin-2" {
		t.Errorf("expected updatedBy admin-2, got %q", second.UpdatedBy)
	}
	if second.Name != "Main Hall v2" {
		t.Errorf("expected updated name, got %q", second.Name)
	}
}

// TestCreateOrUpdateMaster_Race drives concurrent get-or-create calls and
// verifies exactly one master row survives.
func TestCreateOrUpdateMaster_Race(t *testing.T) {
	repo := NewInMemoryRepository()
	mgr := NewMasterManager(repo, nil)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := mgr.CreateOrUpdateMaster(ctx, &FloorPlan{Name: "Main Hall"}, "admin")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent call failed: %v", err)
		}
	}

	plans, total, err := repo.List(ctx, Filters{}, 1, 100)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly one plan, got %d", total)
	}
	if !plans[0].IsMaster {
		t.Error("surviving plan is not flagged master")
	}
}
