// Package actor defines the people-and-teams surface consumed by the
// permission evaluator and the executor. Organization and role
// administration live outside this module; the RoleDirectory interface is
// the seam to them.
package actor

import (
	"context"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Actor is a user acting on work items.
type Actor struct {
	metatasks.Entity

	ID          id.ActorID `json:"id"`
	OrgID       id.OrgID   `json:"org_id"`
	DisplayName string     `json:"display_name,omitempty"`
}

// Team is a named group of actors that steps can be assigned to.
type Team struct {
	metatasks.Entity

	ID    id.TeamID `json:"id"`
	OrgID id.OrgID  `json:"org_id"`
	Name  string    `json:"name"`
}

// RoleDirectory answers role and membership questions. Implementations
// wrap whatever organization administration system is in use. Lookups are
// synchronous; callers treat errors as a denial (fail-closed).
type RoleDirectory interface {
	// IsAdminOrStaff reports whether the actor holds an organization
	// admin role or staff-panel access in the given organization.
	IsAdminOrStaff(ctx context.Context, actorID id.ActorID, orgID id.OrgID) (bool, error)

	// TeamMembers returns the actor IDs belonging to a team.
	TeamMembers(ctx context.Context, teamID id.TeamID) ([]id.ActorID, error)
}
