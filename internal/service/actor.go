package service

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated principal performing an operation. It is
// always passed explicitly; a zero Actor is rejected.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil && a.Role != ""
}

func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func (a Actor) IsVendor() bool { return a.Role == model.RoleVendor }

// require rejects unauthenticated actors and, when roles are given,
// actors holding none of them.
func (a Actor) require(roles ...string) error {
	if !a.Authenticated() {
		return ErrUnauthenticated
	}
	if len(roles) > 0 && !a.HasRole(roles...) {
		return denied("role %q may not perform this operation", a.Role)
	}
	return nil
}

// Role groups used by the policies below
var (
	buyerRoles    = []string{model.RoleBuyerAdmin, model.RoleBuyerUser, model.RoleSourcingManager}
	approverRoles = []string{model.RoleBuyerAdmin, model.RoleSourcingManager}
	taxAdminRoles = []string{model.RoleBuyerAdmin, model.RoleSourcingManager}
)

type actorKey struct{}

// WithActor stores a on ctx for transports that cannot pass it directly
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by WithActor, or the zero Actor
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}
