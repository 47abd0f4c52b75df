// Package access decides who may read or mutate a floor plan.
package access

import (
	"errors"

	"github.com/expohall/expohall/internal/floorplan"
)

// ErrForbidden is returned when the caller lacks the required access.
var ErrForbidden = errors.New("forbidden")

// Role names a caller's privilege level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleExhibitor Role = "exhibitor"
	RoleViewer    Role = "viewer"
)

// Identity is the authenticated caller. A zero Identity is anonymous.
type Identity struct {
	ID   string
	Role Role
}

// Anonymous reports whether the identity carries no user ID.
func (id Identity) Anonymous() bool {
	return id.ID == ""
}

// IsAdmin reports whether the identity holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

func owns(id Identity, plan *floorplan.FloorPlan) bool {
	return !id.Anonymous() && plan.CreatedBy != "" && plan.CreatedBy == id.ID
}

// AuthorizeRead permits reading a plan when it is public, or the caller is
// an admin, or the caller owns it. Anyone, including anonymous callers, may
// read a public plan.
func AuthorizeRead(id Identity, plan *floorplan.FloorPlan) error {
	if plan.IsPublic || id.IsAdmin() || owns(id, plan) {
		return nil
	}
	return ErrForbidden
}

// AuthorizeMutation permits changing a plan only for admins and the owner.
// Public visibility grants read access, never write access.
func AuthorizeMutation(id Identity, plan *floorplan.FloorPlan) error {
	if id.IsAdmin() || owns(id, plan) {
		return nil
	}
	return ErrForbidden
}
