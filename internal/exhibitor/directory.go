package exhibitor

import (
	"context"
	"sync"
)

// InMemoryDirectory is an in-memory Directory implementation.
// Used for testing and development; production deployments plug in the
// real exhibitor directory service.
type InMemoryDirectory struct {
	mu         sync.RWMutex
	exhibitors map[string]*Exhibitor
}

// NewInMemoryDirectory creates an empty in-memory exhibitor directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{exhibitors: make(map[string]*Exhibitor)}
}

// Put stores or replaces an exhibitor record.
func (d *InMemoryDirectory) Put(ex *Exhibitor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *ex
	d.exhibitors[ex.ID] = &cp
}

// GetByID looks up an exhibitor. Unknown ids return (nil, nil).
func (d *InMemoryDirectory) GetByID(ctx context.Context, id string) (*Exhibitor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ex, ok := d.exhibitors[id]
	if !ok {
		return nil, nil
	}
	cp := *ex
	return &cp, nil
}
