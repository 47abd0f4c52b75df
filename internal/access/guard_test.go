package access

import (
	"errors"
	"testing"

	"github.com/expohall/expohall/internal/floorplan"
)

var (
	owner    = Identity{ID: "user-1", Role: RoleOrganizer}
	stranger = Identity{ID: "user-2", Role: RoleViewer}
	admin    = Identity{ID: "user-3", Role: RoleAdmin}
	anon     = Identity{}
)

func privatePlan() *floorplan.FloorPlan {
	return &floorplan.FloorPlan{ID: "fp-1", CreatedBy: "user-1", IsPublic: false}
}

func publicPlan() *floorplan.FloorPlan {
	return &floorplan.FloorPlan{ID: "fp-2", CreatedBy: "user-1", IsPublic: true}
}

func TestAuthorizeRead(t *testing.T) {
	cases := []struct {
		name    string
		id      Identity
		plan    *floorplan.FloorPlan
		allowed bool
	}{
		{"owner reads own private plan", owner, privatePlan(), true},
		{"admin reads any private plan", admin, privatePlan(), true},
		{"stranger denied private plan", stranger, privatePlan(), false},
		{"anonymous denied private plan", anon, privatePlan(), false},
		{"stranger reads public plan", stranger, publicPlan(), true},
		{"anonymous reads public plan", anon, publicPlan(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeRead(tc.id, tc.plan)
			if tc.allowed && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestAuthorizeMutation(t *testing.T) {
	cases := []struct {
		name    string
		id      Identity
		plan    *floorplan.FloorPlan
		allowed bool
	}{
		{"owner mutates own plan", owner, privatePlan(), true},
		{"admin mutates any plan", admin, publicPlan(), true},
		{"stranger denied on public plan", stranger, publicPlan(), false},
		{"anonymous denied on public plan", anon, publicPlan(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeMutation(tc.id, tc.plan)
			if tc.allowed && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestAnonymousOwnerlessPlanDenied(t *testing.T) {
	// A plan without CreatedBy must not be claimable by an anonymous caller.
	plan := &floorplan.FloorPlan{ID: "fp-3", IsPublic: false}
	if err := AuthorizeMutation(anon, plan); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
